package intent

import (
	"fmt"
	"regexp"

	"lagrace/internal/domain"
)

// EntityKind tells the extractor what to pull out of a winning match.
type EntityKind int

const (
	EntityNone EntityKind = iota
	EntityProduct
	EntityPeriod
)

// Definition is one registered intent. Alternatives are tried in order.
type Definition struct {
	Name             domain.IntentName
	Alternatives     []*regexp.Regexp
	ResponseCategory string
	Entity           EntityKind
}

type rawDefinition struct {
	name     domain.IntentName
	category string
	entity   EntityKind
	patterns []string
}

// prep matches a preposition introducing a product name.
const prep = `\b(?:(?:de|du|des|pour)\s+|d')`

// Registration order matters: on equal scores the earlier intent wins.
var builtin = []rawDefinition{
	{
		name:     domain.IntentStockCheck,
		category: "stock",
		entity:   EntityProduct,
		patterns: []string{
			`(?:quel|quelle|combien|c'est quoi).*?\b(?:stock|quantité).*?` + prep + `(.+)`,
			`\bstock\s+(?:(?:de|du|des|pour)\s+|d')?(.+)`,
			`(?:il reste|reste-t-il|on a|y a-t-il|y a t il)\s+(?:combien\s+|encore\s+)?(?:(?:de|du|des)\s+|d')(.+)`,
			`(?:vérifie|vérifier|check|regarde)\s+(?:le\s+|la\s+)?(?:stock|quantité)\s+(?:(?:de|du|des|pour)\s+|d')?(.+)`,
			`(?:combien|reste).*?\b(?:reste|disponible)\b.*?` + prep + `(.+)`,
			`(.+?)\s+(?:en stock|disponible)\b`,
			`(?:quel|quelle|combien|vérifie|regarde|check).*?\b(?:stock|quantité)`,
		},
	},
	{
		name:     domain.IntentSalesToday,
		category: "sales_today",
		patterns: []string{
			`(?:ventes?|chiffre|recette).*(?:aujourd'?hui|aujourd hui|ce jour|du jour)`,
			`(?:combien|quel).*(?:vendu|ventes?).*(?:aujourd'?hui|ce jour)`,
			`(?:résumé|bilan|total).*(?:ventes?|journée)`,
			`(?:comment|combien).*(?:ventes?|affaires?).*(?:aujourd'?hui)`,
			`(?:on a|avons).*(?:vendu|fait).*(?:aujourd'?hui|combien)`,
		},
	},
	{
		name:     domain.IntentSalesSummary,
		category: "sales_summary",
		entity:   EntityPeriod,
		patterns: []string{
			`(?:ventes?|chiffre|recette).*(?:semaine|mois|hier|année|cette|ce)`,
			`(?:résumé|bilan).*(?:ventes?|période)`,
			`\b(?:statistiques?|stats?)\b`,
		},
	},
	{
		name:     domain.IntentPrintInvoice,
		category: "print",
		patterns: []string{
			`(?:imprime|imprimer|impression).*(?:facture|ticket|reçu)`,
			`(?:lance|lancer).*(?:impression)`,
			`(?:facture|ticket).*(?:imprime|imprimer|impression)`,
			`(?:réimprime|réimprimer)`,
			`(?:dernière|derniere).*(?:facture).*(?:imprime|imprimer)?`,
		},
	},
	{
		name:     domain.IntentDebtCheck,
		category: "debts",
		patterns: []string{
			`(?:qui|quels?|liste).*(?:doit|doivent|dettes?|crédit)`,
			`(?:dettes?|créances?|crédits?)`,
			`(?:argent|somme).*(?:dû|due|doit)`,
			`(?:clients?).*(?:doivent|endettés?|crédit)`,
			`(?:combien).*(?:doit|doivent|dettes?)`,
		},
	},
	{
		name:     domain.IntentProductPrice,
		category: "price",
		entity:   EntityProduct,
		patterns: []string{
			`(?:quel|quelle|combien|c'est quoi).*?\b(?:prix|coût).*?` + prep + `(.+)`,
			`\bprix\s+(?:(?:de|du|des|pour)\s+|d')?(.+)`,
			`combien\s+(?:coûte|coute|vaut)\s+(.+)`,
			`(.+?)\s+(?:coûte|coute|vaut)\s+combien`,
			`(?:quel|quelle|combien|c'est quoi).*?\b(?:prix|coût)`,
		},
	},
	{
		name:     domain.IntentHelp,
		category: "help",
		patterns: []string{
			`(?:aide|help|comment|qu'?est-ce que tu).*(?:faire|peux|sais)`,
			`(?:commandes?|fonctions?|possibilités?|capacités?)`,
			`(?:que|quoi).*(?:sais|peux).*(?:faire)`,
			`(?:quoi|comment).*(?:t'?utiliser|demander)`,
			`(?:aide|aidez?)-?moi`,
		},
	},
	{
		name:     domain.IntentGreeting,
		category: "greeting",
		patterns: []string{
			`\b(?:bonjour|salut|hello|bonsoir|coucou)\b`,
			`(?:comment|ça)\s*va`,
			`\b(?:hey|yo|wesh)\b`,
			`(?:bonne|bon).*(?:journée|soir|matin)`,
			`(?:enchanté|ravi)`,
		},
	},
	{
		name:     domain.IntentThanks,
		category: "thanks",
		patterns: []string{
			`(?:merci|thanks|thank you)`,
			`(?:c'est|très).*(?:gentil|sympa|cool)`,
			`(?:parfait|super|génial|excellent)`,
		},
	},
	{
		name:     domain.IntentGoodbye,
		category: "goodbye",
		patterns: []string{
			`(?:au revoir|bye|à bientôt|à plus)`,
			`(?:bonne|bon).*(?:nuit|soirée|journée)`,
			`\b(?:salut|ciao|tchao)\b`,
		},
	},
}

// DefaultDefinitions compiles the built-in intent table.
func DefaultDefinitions() []Definition {
	defs, err := Compile(nil)
	if err != nil {
		panic(err)
	}
	return defs
}

// Compile builds the intent table, appending extra alternatives keyed by
// intent name after the built-in ones.
func Compile(extra map[string][]string) ([]Definition, error) {
	known := make(map[domain.IntentName]bool, len(builtin))
	for _, raw := range builtin {
		known[raw.name] = true
	}
	for name := range extra {
		if !known[domain.IntentName(name)] {
			return nil, fmt.Errorf("unknown intent %q", name)
		}
	}

	defs := make([]Definition, 0, len(builtin))
	for _, raw := range builtin {
		patterns := append(append([]string{}, raw.patterns...), extra[string(raw.name)]...)
		def := Definition{
			Name:             raw.name,
			ResponseCategory: raw.category,
			Entity:           raw.entity,
			Alternatives:     make([]*regexp.Regexp, 0, len(patterns)),
		}
		for _, p := range patterns {
			re, err := regexp.Compile(`(?i)` + p)
			if err != nil {
				return nil, fmt.Errorf("intent %s: compile %q: %w", raw.name, p, err)
			}
			def.Alternatives = append(def.Alternatives, re)
		}
		defs = append(defs, def)
	}
	return defs, nil
}
