package encoding

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Progress is one encoder observation.
type Progress struct {
	Stage   string        `json:"stage"`
	Percent float64       `json:"percent"`
	Message string        `json:"message,omitempty"`
	ETA     time.Duration `json:"eta,omitempty"`
	Speed   float64       `json:"speed,omitempty"`
	FPS     float64       `json:"fps,omitempty"`
}

// Summary renders p as a single status line.
func (p Progress) Summary() string {
	message := strings.TrimSpace(p.Message)
	if message != "" {
		return message
	}
	if p.Percent < 0 {
		return ""
	}
	base := fmt.Sprintf("%s %.1f%%", formatStageLabel(p.Stage), p.Percent)
	extras := make([]string, 0, 2)
	if formatted := formatETA(p.ETA); formatted != "" {
		extras = append(extras, "ETA "+formatted)
	}
	if p.Speed > 0 {
		extras = append(extras, fmt.Sprintf("@ %.1fx", p.Speed))
	}
	if len(extras) == 0 {
		return base
	}
	return fmt.Sprintf("%s (%s)", base, strings.Join(extras, ", "))
}

func formatStageLabel(stage string) string {
	words := strings.FieldsFunc(strings.ToLower(stage), func(r rune) bool {
		return r == '_' || r == '-' || unicode.IsSpace(r)
	})
	if len(words) == 0 {
		return "Progress"
	}
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// formatETA renders d as compact h/m/s, e.g. "1h02m" or "45s".
func formatETA(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	secs := int(d.Round(time.Second) / time.Second)
	h, m, s := secs/3600, secs%3600/60, secs%60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh%02dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm%02ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
