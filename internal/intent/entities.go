package intent

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"lagrace/internal/domain"
)

var articles = []string{"les", "le", "la", "une", "un", "des", "de", "du", "d'"}

var productFallbacks = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:stock|quantité|prix|combien)\s+(?:de|du|des|pour|d')\s*["']*([a-z0-9][a-z0-9\s\-]*)["']*`),
	regexp.MustCompile(`["«]\s*([^"«»]+?)\s*["»]`),
	regexp.MustCompile(`(?i)\b([a-z]*[0-9]+[a-z0-9\-]*)\b`),
	regexp.MustCompile(`(?i)\b((?:mosquito|raid|mortein|baygon|insecticide)[\w\s]*)`),
}

type periodPhrase struct {
	phrase string
	period string
}

// First contained phrase wins.
var periodPhrases = []periodPhrase{
	{"aujourd'hui", domain.PeriodToday},
	{"aujourd hui", domain.PeriodToday},
	{"ce jour", domain.PeriodToday},
	{"du jour", domain.PeriodToday},
	{"hier", domain.PeriodYesterday},
	{"cette semaine", domain.PeriodWeek},
	{"la semaine", domain.PeriodWeek},
	{"semaine", domain.PeriodWeek},
	{"ce mois", domain.PeriodMonth},
	{"mois", domain.PeriodMonth},
	{"cette année", domain.PeriodYear},
	{"année", domain.PeriodYear},
}

// Entities returns the entities of the winning match.
func Entities(m Match, normalized string) map[string]string {
	out := map[string]string{}
	switch m.Definition.Entity {
	case EntityProduct:
		if p, ok := ExtractProduct(m.Groups, normalized); ok {
			out[domain.EntityProduct] = p
		}
	case EntityPeriod:
		if p, ok := ExtractPeriod(normalized); ok {
			out[domain.EntityPeriod] = p
		}
	case EntityNone:
	}
	return out
}

// ExtractProduct takes the first capture group longer than one rune,
// then falls back to heuristics over the whole text.
func ExtractProduct(groups []string, text string) (string, bool) {
	for _, g := range groups {
		if utf8.RuneCountInString(strings.TrimSpace(g)) > 1 {
			if p := cleanProduct(g); p != "" {
				return p, true
			}
		}
	}
	for _, re := range productFallbacks {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if p := cleanProduct(m[1]); utf8.RuneCountInString(p) > 1 {
			return p, true
		}
	}
	return "", false
}

func cleanProduct(raw string) string {
	return strings.ToUpper(strings.TrimSpace(StripArticle(strings.TrimSpace(raw))))
}

// StripArticle removes one leading article or preposition token. A bare
// article strips to the empty string.
func StripArticle(s string) string {
	lower := strings.ToLower(strings.TrimSpace(s))
	for _, a := range articles {
		if lower == a {
			return ""
		}
	}
	for _, a := range articles {
		if !strings.HasPrefix(lower, a) {
			continue
		}
		rest := s[len(a):]
		if strings.HasSuffix(a, "'") {
			return strings.TrimSpace(rest)
		}
		if rest != "" && (rest[0] == ' ' || rest[0] == '\t') {
			return strings.TrimSpace(rest)
		}
	}
	return s
}

// ExtractPeriod maps the first period phrase found in the text.
func ExtractPeriod(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, p := range periodPhrases {
		if strings.Contains(lower, p.phrase) {
			return p.period, true
		}
	}
	return "", false
}
