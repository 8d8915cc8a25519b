package intent

import "lagrace/internal/domain"

// Classifier maps free text to an Intent. It is safe for concurrent use.
type Classifier struct {
	defs []Definition
}

func NewClassifier(defs []Definition) *Classifier {
	return &Classifier{defs: defs}
}

// Recognize never fails: text that matches nothing is the unknown intent.
func (c *Classifier) Recognize(raw string) domain.Intent {
	normalized := Normalize(raw)
	if normalized == "" {
		return domain.UnknownIntent(raw)
	}

	m, ok := BestMatch(normalized, c.defs)
	if !ok {
		return domain.UnknownIntent(raw)
	}

	return domain.Intent{
		Name:             m.Definition.Name,
		Confidence:       m.Confidence,
		Entities:         Entities(m, normalized),
		OriginalText:     raw,
		ResponseCategory: m.Definition.ResponseCategory,
	}
}

func (c *Classifier) Names() []domain.IntentName {
	out := make([]domain.IntentName, 0, len(c.defs))
	for _, d := range c.defs {
		out = append(out, d.Name)
	}
	return out
}
