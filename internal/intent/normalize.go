package intent

import (
	"regexp"
	"strings"
)

// WakeVariants are the spellings of the wake word removed before matching.
var WakeVariants = []string{"lagrace", "la grace", "la grâce", "lagrâce"}

var (
	punctRun = regexp.MustCompile(`[,;:!?.…]+`)
	spaceRun = regexp.MustCompile(`\s+`)
)

// Normalize lowercases the text, removes the wake word and collapses
// punctuation and whitespace runs.
func Normalize(raw string) string {
	t := strings.TrimSpace(strings.ToLower(raw))
	for _, v := range WakeVariants {
		t = strings.ReplaceAll(t, v, " ")
	}
	t = punctRun.ReplaceAllString(t, " ")
	t = spaceRun.ReplaceAllString(t, " ")
	return strings.TrimSpace(t)
}
