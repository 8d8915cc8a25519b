package tts

import (
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var units = map[int]string{
	0: "zéro", 1: "un", 2: "deux", 3: "trois", 4: "quatre", 5: "cinq",
	6: "six", 7: "sept", 8: "huit", 9: "neuf", 10: "dix",
	11: "onze", 12: "douze", 13: "treize", 14: "quatorze", 15: "quinze",
	16: "seize", 17: "dix-sept", 18: "dix-huit", 19: "dix-neuf",
	20: "vingt", 30: "trente", 40: "quarante", 50: "cinquante", 60: "soixante",
	80: "quatre-vingts",
}

// NumberToWords spells out a non-negative integer in French.
func NumberToWords(n int) string {
	if n < 0 {
		return "moins " + NumberToWords(-n)
	}
	if w, ok := units[n]; ok {
		return w
	}
	switch {
	case n >= 1_000_000_000:
		return strconv.Itoa(n)
	case n >= 1_000_000:
		m, r := n/1_000_000, n%1_000_000
		head := "un million"
		if m > 1 {
			head = NumberToWords(m) + " millions"
		}
		return joinWords(head, r)
	case n >= 1000:
		m, r := n/1000, n%1000
		head := "mille"
		if m > 1 {
			w := NumberToWords(m)
			if strings.HasSuffix(w, "cents") || strings.HasSuffix(w, "vingts") {
				w = strings.TrimSuffix(w, "s")
			}
			head = w + " mille"
		}
		return joinWords(head, r)
	case n >= 100:
		c, r := n/100, n%100
		if c == 1 {
			return joinWords("cent", r)
		}
		if r == 0 {
			return units[c] + " cents"
		}
		return units[c] + " cent " + NumberToWords(r)
	case n < 70:
		d, u := n/10*10, n%10
		if u == 1 {
			return units[d] + " et un"
		}
		return units[d] + "-" + units[u]
	case n < 80:
		if n == 71 {
			return "soixante et onze"
		}
		return "soixante-" + NumberToWords(n-60)
	default:
		return "quatre-vingt-" + NumberToWords(n-80)
	}
}

func joinWords(head string, rest int) string {
	if rest == 0 {
		return head
	}
	return head + " " + NumberToWords(rest)
}

var (
	datePattern   = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	numberPattern = regexp.MustCompile(`\d+(?:[ \x{00A0}]\d{3}\b)*`)
	segmentRe     = regexp.MustCompile(`([^.!?,;:…]+)(\.\.\.|…|[.!?,;:]+)?`)
)

// Pronounce rewrites digits and dates so the voice reads them in French.
func Pronounce(text string) string {
	text = datePattern.ReplaceAllString(text, "$1 $2 $3")
	return numberPattern.ReplaceAllStringFunc(text, func(s string) string {
		digits := strings.NewReplacer(" ", "", "\u00a0", "").Replace(s)
		n, err := strconv.Atoi(digits)
		if err != nil {
			return s
		}
		return NumberToWords(n)
	})
}

// Segment is a chunk of speech followed by a pause.
type Segment struct {
	Text  string
	Pause time.Duration
}

type pauseRange struct {
	base, jitter int
}

var pauses = map[string]pauseRange{
	".":   {350, 100},
	"!":   {500, 120},
	"?":   {380, 100},
	"...": {550, 150},
	",":   {160, 50},
	";":   {240, 70},
	":":   {220, 60},
}

// Split cuts text at punctuation and assigns each segment a pause.
// jitter returns a value in [0, n); nil uses math/rand.
func Split(text string, jitter func(n int) int) []Segment {
	if jitter == nil {
		jitter = rand.IntN
	}
	var out []Segment
	for _, m := range segmentRe.FindAllStringSubmatch(text, -1) {
		body := strings.TrimSpace(m[1])
		if body == "" {
			continue
		}
		punct := m[2]
		switch {
		case punct == "…" || strings.HasPrefix(punct, "..."):
			punct = "..."
		case punct != "":
			punct = punct[:1]
		}
		seg := Segment{Text: body}
		if r, ok := pauses[punct]; ok {
			ms := r.base - r.jitter + jitter(2*r.jitter+1)
			if (punct == "!" || punct == "?") && len(strings.Fields(body)) <= 3 {
				ms += 200
			}
			seg.Pause = time.Duration(ms) * time.Millisecond
		}
		out = append(out, seg)
	}
	return out
}
