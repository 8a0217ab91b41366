// Package textutil turns user-supplied names into safe artifact file names.
package textutil
