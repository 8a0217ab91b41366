package textutil

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSafeStem(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "talk", "talk"},
		{"spaces collapse", "  My   Great\tTalk ", "My_Great_Talk"},
		{"unsafe replaced", `a/b\c:d*e`, "a-b-c-d-e"},
		{"unsafe removed", `what?"<x>|`, "whatx"},
		{"hidden file", "..secret", "secret"},
		{"unicode kept", "Café Übung", "Café_Übung"},
		{"empty", "   ", "clip"},
		{"only unsafe", "???", "clip"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SafeStem(tt.in, "clip"); got != tt.want {
				t.Fatalf("SafeStem(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSafeStemTruncates(t *testing.T) {
	got := SafeStem(strings.Repeat("é", 200), "clip")
	if n := utf8.RuneCountInString(got); n != maxStemRunes {
		t.Fatalf("expected %d runes, got %d", maxStemRunes, n)
	}
}
