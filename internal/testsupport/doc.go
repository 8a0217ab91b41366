// Package testsupport holds shared test fixtures: temp-dir configs, stub
// executables, and synthetic WAV files.
package testsupport
