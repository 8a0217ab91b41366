package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// maxStemRunes bounds artifact stems so run-scoped suffixes still fit within
// common 255-byte file name limits.
const maxStemRunes = 80

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SafeStem converts a source file's base name (without extension) into a
// stem for derived artifacts. Unsafe characters are replaced, runs of
// whitespace and control characters become a single underscore, leading dots
// are dropped, and the result is truncated. Returns fallback when nothing
// usable remains.
func SafeStem(name, fallback string) string {
	name = fileNameReplacer.Replace(strings.TrimSpace(name))
	var b strings.Builder
	pendingSpace := false
	for _, r := range name {
		if unicode.IsSpace(r) || unicode.IsControl(r) || r == utf8.RuneError {
			pendingSpace = b.Len() > 0
			continue
		}
		if pendingSpace {
			b.WriteByte('_')
			pendingSpace = false
		}
		b.WriteRune(r)
	}
	out := strings.TrimLeft(b.String(), ".")
	if utf8.RuneCountInString(out) > maxStemRunes {
		out = string([]rune(out)[:maxStemRunes])
	}
	out = strings.Trim(out, "_-")
	if out == "" {
		return fallback
	}
	return out
}
