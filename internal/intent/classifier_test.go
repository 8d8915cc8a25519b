package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lagrace/internal/domain"
)

func newTestClassifier() *Classifier {
	return NewClassifier(DefaultDefinitions())
}

func TestRecognizeIntentNames(t *testing.T) {
	c := newTestClassifier()
	cases := []struct {
		text string
		want domain.IntentName
	}{
		{"stock de mosquito", domain.IntentStockCheck},
		{"Lagrace, quel est le stock de savon ?", domain.IntentStockCheck},
		{"quel est le stock", domain.IntentStockCheck},
		{"combien reste-t-il de savon", domain.IntentStockCheck},
		{"ventes d'aujourd'hui", domain.IntentSalesToday},
		{"ventes de cette semaine", domain.IntentSalesSummary},
		{"ventes d'hier", domain.IntentSalesSummary},
		{"imprime la dernière facture", domain.IntentPrintInvoice},
		{"qui nous doit de l'argent ?", domain.IntentDebtCheck},
		{"combien coûte le savon", domain.IntentProductPrice},
		{"prix du riz", domain.IntentProductPrice},
		{"aide-moi", domain.IntentHelp},
		{"bonjour", domain.IntentGreeting},
		{"merci beaucoup", domain.IntentThanks},
		{"au revoir", domain.IntentGoodbye},
		{"bonne nuit", domain.IntentGoodbye},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			got := c.Recognize(tc.text)
			assert.Equal(t, tc.want, got.Name)
			assert.Equal(t, tc.text, got.OriginalText)
			assert.NotNil(t, got.Entities)
		})
	}
}

func TestRecognizeFirstRegisteredWinsTies(t *testing.T) {
	c := newTestClassifier()

	// "salut" scores 1.0 for both greeting and goodbye.
	got := c.Recognize("salut")
	assert.Equal(t, domain.IntentGreeting, got.Name)
	assert.Equal(t, 1.0, got.Confidence)
	assert.Equal(t, "greeting", got.ResponseCategory)
}

func TestRecognizeUnknown(t *testing.T) {
	c := newTestClassifier()
	for _, text := range []string{"", "   ", "lagrace", "blablabla xyz", "?!"} {
		t.Run(text, func(t *testing.T) {
			got := c.Recognize(text)
			assert.Equal(t, domain.IntentUnknown, got.Name)
			assert.Equal(t, 0.0, got.Confidence)
			assert.Empty(t, got.Entities)
			assert.NotNil(t, got.Entities)
			assert.Equal(t, domain.CategoryNotUnderstood, got.ResponseCategory)
		})
	}
}

func TestRecognizeConfidenceBounds(t *testing.T) {
	c := newTestClassifier()
	texts := []string{
		"stock de mosquito",
		"euh bonjour ma belle, comment ça va aujourd'hui",
		"merci beaucoup pour tout ce que tu fais",
		"qui nous doit de l'argent",
		"x",
		"",
	}
	for _, text := range texts {
		got := c.Recognize(text)
		assert.GreaterOrEqual(t, got.Confidence, 0.0, text)
		assert.LessOrEqual(t, got.Confidence, 1.0, text)
		if got.Name != domain.IntentUnknown {
			assert.GreaterOrEqual(t, got.Confidence, 0.3, text)
		}
	}
}

func TestRecognizePartialCoverage(t *testing.T) {
	c := newTestClassifier()
	got := c.Recognize("merci beaucoup")
	require.Equal(t, domain.IntentThanks, got.Name)
	// 5 of 14 runes matched.
	assert.InDelta(t, 5.0/14.0+0.3, got.Confidence, 1e-9)
}

func TestRecognizeIgnoresWakeWord(t *testing.T) {
	c := newTestClassifier()
	pairs := [][2]string{
		{"lagrace quel est le stock de savon", "quel est le stock de savon"},
		{"La Grâce, ventes d'hier", "ventes d'hier"},
		{"la grace bonjour", "bonjour"},
	}
	for _, p := range pairs {
		a, b := c.Recognize(p[0]), c.Recognize(p[1])
		assert.Equal(t, b.Name, a.Name, p[0])
		assert.Equal(t, b.Entities, a.Entities, p[0])
	}
}

func TestRecognizeEntities(t *testing.T) {
	c := newTestClassifier()
	cases := []struct {
		text string
		key  string
		want string
	}{
		{"stock de mosquito", domain.EntityProduct, "MOSQUITO"},
		{"quel est le stock de savon", domain.EntityProduct, "SAVON"},
		{"stock pour le savon", domain.EntityProduct, "SAVON"},
		{"combien coûte le savon", domain.EntityProduct, "SAVON"},
		{"quel est le stock d'huile", domain.EntityProduct, "HUILE"},
		{"ventes de cette semaine", domain.EntityPeriod, domain.PeriodWeek},
		{"ventes d'hier", domain.EntityPeriod, domain.PeriodYesterday},
		{"chiffre du mois", domain.EntityPeriod, domain.PeriodMonth},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			got := c.Recognize(tc.text)
			v, ok := got.Entity(tc.key)
			require.True(t, ok, "entities=%v", got.Entities)
			assert.Equal(t, tc.want, v)
		})
	}
}

func TestRecognizeMissingProduct(t *testing.T) {
	c := newTestClassifier()
	for _, text := range []string{"quel est le stock", "stock de", "stock les", "stock des"} {
		got := c.Recognize(text)
		require.Equal(t, domain.IntentStockCheck, got.Name, text)
		p, ok := got.Entity(domain.EntityProduct)
		assert.False(t, ok, "%s: product %q", text, p)
	}
}

func TestCompileExtraPatterns(t *testing.T) {
	defs, err := Compile(map[string][]string{"help": {`mode d'emploi`}})
	require.NoError(t, err)
	got := NewClassifier(defs).Recognize("mode d'emploi")
	assert.Equal(t, domain.IntentHelp, got.Name)

	_, err = Compile(map[string][]string{"dance": {`danse`}})
	assert.Error(t, err)

	_, err = Compile(map[string][]string{"help": {`(`}})
	assert.Error(t, err)
}

func TestNames(t *testing.T) {
	names := newTestClassifier().Names()
	require.Len(t, names, 10)
	assert.Equal(t, domain.IntentStockCheck, names[0])
	assert.Equal(t, domain.IntentGoodbye, names[9])
}
