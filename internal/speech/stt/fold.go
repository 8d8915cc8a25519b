package stt

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var separators = strings.NewReplacer("'", " ", "’", " ", "-", " ")

// Fold lowercases text, strips diacritics and turns apostrophes and
// hyphens into spaces.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		out = strings.ToLower(s)
	}
	return strings.Join(strings.Fields(separators.Replace(out)), " ")
}

// ContainsWakeWord reports whether text holds one of the variants, or the
// split form "la grace" / "la gras" heard as separate words.
func ContainsWakeWord(text string, variants []string) bool {
	folded := Fold(text)
	if folded == "" {
		return false
	}
	padded := " " + folded + " "
	for _, v := range variants {
		fv := Fold(v)
		if fv != "" && strings.Contains(padded, " "+fv+" ") {
			return true
		}
	}

	hasLa, hasGrace := false, false
	for _, w := range strings.Fields(folded) {
		switch {
		case w == "la":
			hasLa = true
		case strings.HasPrefix(w, "grac"), strings.HasPrefix(w, "gras"):
			hasGrace = true
		}
	}
	return hasLa && hasGrace
}
