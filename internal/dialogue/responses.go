package dialogue

import (
	"fmt"
	"strings"
	"time"
)

var (
	poolListening = []string{
		"Oui, je vous écoute.",
		"Je suis là, que puis-je faire ?",
		"À votre service !",
		"Oui ?",
		"Je vous écoute attentivement.",
		"Dites-moi.",
		"Hmm hmm, je vous écoute.",
	}

	poolProcessing = []string{
		"Un instant...",
		"Je vérifie...",
		"Alors, laissez-moi regarder...",
		"Un moment, s'il vous plaît...",
		"Je cherche...",
		"Voyons voir...",
	}

	poolNotUnderstood = []string{
		"Pardon, je n'ai pas bien compris. Pouvez-vous reformuler ?",
		"Désolée, je n'ai pas saisi votre demande. Essayez autrement ?",
		"Hmm, je ne suis pas sûre de comprendre. Pouvez-vous préciser ?",
		"Excusez-moi, je n'ai pas compris. Répétez, s'il vous plaît.",
		"Pardon ? Je n'ai pas bien entendu. Pouvez-vous répéter ?",
	}

	poolError = []string{
		"Désolée, une erreur s'est produite. Réessayez dans un moment.",
		"Il y a eu un petit problème technique. Essayez à nouveau.",
		"Oups, quelque chose n'a pas fonctionné. Réessayez.",
	}

	poolLookupFailed = []string{
		"Désolée, je n'arrive pas à consulter la base de données pour le moment.",
		"Je ne peux pas accéder à la base de données maintenant. Réessayez plus tard.",
		"Hmm, la base de données ne répond pas. Je n'ai pas pu trouver ça.",
	}

	poolThanks = []string{
		"De rien, c'est un plaisir !",
		"Je vous en prie !",
		"Avec plaisir !",
		"C'est tout naturel, voyons.",
		"À votre service, toujours !",
		"Pas de quoi, c'est normal !",
	}

	poolGoodbye = []string{
		"Au revoir, et bonne continuation !",
		"À bientôt ! Bonne journée.",
		"Au revoir, à votre service si besoin !",
		"Bonne journée à vous ! À la prochaine.",
		"À la prochaine ! Travaillez bien.",
		"Au revoir. N'hésitez pas à m'appeler.",
	}

	poolHelp = []string{
		"Alors, je peux vous aider avec plusieurs choses ! " +
			"Demandez-moi le stock d'un produit, les ventes du jour, " +
			"les dettes en cours, ou le prix d'un article. " +
			"Je peux aussi lancer une impression. " +
			"Dites simplement, LaGrace, suivi de votre demande.",
		"Voici ce que je sais faire. " +
			"Vérifier le stock, consulter les ventes, " +
			"voir les dettes impayées, donner le prix d'un produit, " +
			"et lancer des impressions. " +
			"Appelez-moi en disant LaGrace, puis posez votre question.",
		"Je suis là pour vous aider ! " +
			"Stock, ventes, prix, dettes, impressions... " +
			"Dites LaGrace suivi de ce que vous voulez savoir.",
	}

	poolAskProduct = []string{
		"Pour quel produit voulez-vous vérifier le stock ?",
		"Quel produit vous intéresse ?",
		"Dites-moi le nom du produit à vérifier.",
	}

	poolSalesNone = []string{
		"Aucune vente enregistrée aujourd'hui, pour le moment.",
		"Pas encore de ventes aujourd'hui. On attend les clients !",
		"Zéro vente pour l'instant. Mais ça va venir !",
	}

	poolNoDebts = []string{
		"Excellente nouvelle ! Aucune dette en cours. Tous les clients ont payé.",
		"Parfait ! Pas de dettes. Tout le monde a réglé.",
		"Zéro dette ! Tous les comptes sont en règle. Bravo !",
	}

	poolFarewell = []string{
		"Au revoir et à bientôt !",
		"À la prochaine !",
		"Bonne continuation !",
	}
)

// Stock pools, selected by quantity. %[1]s is the product, %[2]d the quantity.
var (
	poolStockRupture = []string{
		"Attention ! %[1]s est en rupture de stock. Il faut commander, urgentement.",
		"Alerte ! Plus de %[1]s en stock. Commande urgente nécessaire.",
		"Rupture de stock pour %[1]s ! C'est critique.",
	}
	poolStockCritical = []string{
		"Stock critique pour %[1]s. Il ne reste que %[2]d unités. Pensez à réapprovisionner.",
		"Attention au stock de %[1]s ! Seulement %[2]d en réserve.",
		"Alerte stock. %[1]s n'a plus que %[2]d unités.",
	}
	poolStockLow = []string{
		"Stock un peu bas pour %[1]s. Il reste %[2]d unités.",
		"%[1]s, il reste %[2]d unités. Ça va, mais surveillez.",
	}
	poolStockOK = []string{
		"Le stock de %[1]s est de %[2]d unités. Tout va bien.",
		"%[1]s, on a %[2]d unités en stock. C'est correct.",
		"Pas de souci ! %[2]d unités de %[1]s en réserve.",
	}
	poolProductNotFound = []string{
		"Hmm, je n'ai pas trouvé le produit %[1]s. Vérifiez le nom ou le code.",
		"Désolée, %[1]s n'est pas dans la base. C'est bien le bon nom ?",
		"Je ne trouve pas %[1]s. Essayez avec un autre mot.",
	}

	// %[1]s: one or two product names.
	poolDidYouMean = []string{
		"Vouliez-vous dire %[1]s ?",
		"Peut-être %[1]s ?",
		"J'ai trouvé %[1]s, c'est ça ?",
	}
)

// Price replies. %[1]s: product, %[2]d: sell price in francs.
var (
	poolAskPrice = []string{
		"Pour quel produit voulez-vous le prix ?",
		"Le prix de quel produit ?",
		"Dites-moi le produit dont vous voulez le prix.",
	}

	poolPrice = []string{
		"Le prix de %[1]s est de %[2]d francs congolais.",
		"%[1]s coûte %[2]d francs congolais.",
		"%[1]s est vendu à %[2]d francs.",
	}
)

// Sales summary replies. %[1]s: period, %[2]d: count, %[3]s: total.
var (
	poolSummaryNone = []string{
		"Aucune vente enregistrée %[1]s.",
		"Pas de vente %[1]s.",
		"Rien de vendu %[1]s.",
	}

	poolSummaryCount = []string{
		"%[1]s, nous avons réalisé %[2]d ventes.",
		"%[1]s, %[2]d ventes au total.",
	}

	poolSummaryTotal = []string{
		"%[1]s, nous avons réalisé %[2]d ventes pour %[3]s.",
		"%[1]s, %[2]d ventes, pour un total de %[3]s.",
		"%[1]s, le bilan est de %[2]d ventes, soit %[3]s.",
	}
)

// Stock thresholds.
const (
	stockCritical = 5
	stockLow      = 10
)

func stockPool(qty float64) []string {
	switch {
	case qty <= 0:
		return poolStockRupture
	case qty <= stockCritical:
		return poolStockCritical
	case qty <= stockLow:
		return poolStockLow
	default:
		return poolStockOK
	}
}

var periodNames = map[string]string{
	"today":     "aujourd'hui",
	"yesterday": "hier",
	"week":      "cette semaine",
	"month":     "ce mois-ci",
	"year":      "cette année",
}

// TimeGreeting is Bonjour, Bon après-midi or Bonsoir depending on the hour.
func TimeGreeting(t time.Time) string {
	switch h := t.Hour(); {
	case h >= 5 && h < 12:
		return "Bonjour"
	case h >= 12 && h < 18:
		return "Bon après-midi"
	default:
		return "Bonsoir"
	}
}

// PrintErrorMessage turns a POS print error code into advice for the operator.
func PrintErrorMessage(code, hint string) string {
	upper := strings.ToUpper(code)
	switch {
	case strings.Contains(upper, "PRINTER"):
		return "Attention ! Problème d'imprimante détecté. Vérifiez que l'imprimante est allumée et connectée."
	case strings.Contains(upper, "SPOOLER"):
		return "Le service d'impression semble bloqué. Essayez de redémarrer le spouleur."
	case hint != "":
		return "Erreur d'impression. " + hint
	default:
		return "Une erreur d'impression s'est produite."
	}
}

// Capitalize upper-cases the first letter.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}

func amountText(usd, cdf float64, both bool, cdfUnit string) string {
	switch {
	case both && usd > 0 && cdf > 0:
		return fmt.Sprintf("%d dollars et %d francs", int64(usd), int64(cdf))
	case usd > 0:
		return fmt.Sprintf("%d dollars", int64(usd))
	case cdf > 0:
		return fmt.Sprintf("%d %s", int64(cdf), cdfUnit)
	default:
		return ""
	}
}

// joinNames renders "A", or "A, B, et C".
func joinAlternatives(names []string) string {
	if len(names) == 1 {
		return names[0]
	}
	return strings.Join(names[:len(names)-1], ", ") + " ou " + names[len(names)-1]
}

func joinNames(names []string) string {
	if len(names) == 1 {
		return names[0]
	}
	return strings.Join(names[:len(names)-1], ", ") + ", et " + names[len(names)-1]
}
