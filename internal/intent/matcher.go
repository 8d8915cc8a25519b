package intent

import "unicode/utf8"

const (
	coverageBonus = 0.3
	maxConfidence = 1.0
	// emptyCoverage applies when the text has no runes at all.
	emptyCoverage = 0.5
)

// Match is the winning alternative for a normalized text.
type Match struct {
	Definition *Definition
	Confidence float64
	Text       string
	Groups     []string
}

// BestMatch scores every alternative of every definition against the
// normalized text. Ties keep the earliest definition and alternative.
func BestMatch(normalized string, defs []Definition) (Match, bool) {
	var best Match
	found := false
	textLen := utf8.RuneCountInString(normalized)

	for i := range defs {
		def := &defs[i]
		for _, re := range def.Alternatives {
			m := re.FindStringSubmatch(normalized)
			if m == nil {
				continue
			}
			score := confidence(utf8.RuneCountInString(m[0]), textLen)
			if !found || score > best.Confidence {
				best = Match{
					Definition: def,
					Confidence: score,
					Text:       m[0],
					Groups:     m[1:],
				}
				found = true
			}
		}
	}
	return best, found
}

func confidence(matchLen, textLen int) float64 {
	coverage := emptyCoverage
	if textLen > 0 {
		coverage = float64(matchLen) / float64(textLen)
	}
	return min(coverage+coverageBonus, maxConfidence)
}
