package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"lagrace/internal/bus"
	"lagrace/internal/domain"
	"lagrace/internal/store"
)

const (
	topDebtors     = 3
	maxSuggestions = 2
)

var errNoLookup = errors.New("store unavailable")

// dispatch runs the handler for the intent. Panics and lookup failures
// become apologetic replies.
func (s *Session) dispatch(ctx context.Context, in domain.Intent) (reply string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("intent handler panicked", "intent", string(in.Name), "panic", r)
			reply = s.pick(poolError)
		}
	}()

	switch in.Name {
	case domain.IntentStockCheck:
		return s.handleStock(ctx, in)
	case domain.IntentProductPrice:
		return s.handlePrice(ctx, in)
	case domain.IntentSalesToday:
		return s.handleSalesToday(ctx)
	case domain.IntentSalesSummary:
		return s.handleSalesSummary(ctx, in)
	case domain.IntentDebtCheck:
		return s.handleDebts(ctx)
	case domain.IntentPrintInvoice:
		return s.handlePrint(ctx)
	case domain.IntentGreeting:
		return s.handleGreeting()
	case domain.IntentHelp:
		return s.pick(poolHelp)
	case domain.IntentThanks:
		return s.pick(poolThanks)
	case domain.IntentGoodbye:
		return s.pick(poolGoodbye)
	case domain.IntentUnknown:
		return s.pick(poolNotUnderstood)
	default:
		s.logger.Warn("no handler for intent", "intent", string(in.Name))
		return s.pick(poolNotUnderstood)
	}
}

func (s *Session) lookup(ctx context.Context) (Lookup, context.Context, context.CancelFunc, error) {
	if s.deps.Lookup == nil {
		return nil, ctx, func() {}, errNoLookup
	}
	lctx, cancel := context.WithTimeout(ctx, s.cfg.LookupTimeout)
	return s.deps.Lookup, lctx, cancel, nil
}

func (s *Session) lookupFailed(op string, err error) string {
	s.logger.Warn("lookup failed", "op", op, "error", err)
	return s.pick(poolLookupFailed)
}

func (s *Session) handleStock(ctx context.Context, in domain.Intent) string {
	name, ok := in.Entity(domain.EntityProduct)
	if !ok {
		return s.pick(poolAskProduct)
	}

	db, lctx, cancel, err := s.lookup(ctx)
	defer cancel()
	if err != nil {
		return s.lookupFailed("product_stock", err)
	}
	p, err := db.ProductStock(lctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return s.notFound(lctx, db, name)
	}
	if err != nil {
		return s.lookupFailed("product_stock", err)
	}

	label := p.DisplayName()
	if label == "" {
		label = name
	}
	return fmt.Sprintf(s.pick(stockPool(p.Quantity)), label, int64(p.Quantity))
}

func (s *Session) handlePrice(ctx context.Context, in domain.Intent) string {
	name, ok := in.Entity(domain.EntityProduct)
	if !ok {
		return s.pick(poolAskPrice)
	}

	db, lctx, cancel, err := s.lookup(ctx)
	defer cancel()
	if err != nil {
		return s.lookupFailed("product_price", err)
	}
	p, err := db.ProductPrice(lctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return s.notFound(lctx, db, name)
	}
	if err != nil {
		return s.lookupFailed("product_price", err)
	}

	label := p.DisplayName()
	if label == "" {
		label = name
	}
	return fmt.Sprintf(s.pick(poolPrice), label, int64(p.SellPrice))
}

// notFound apologizes for an unknown product and offers close matches
// when a looser search finds some.
func (s *Session) notFound(ctx context.Context, db Lookup, name string) string {
	reply := fmt.Sprintf(s.pick(poolProductNotFound), name)
	for _, term := range suggestionTerms(name) {
		found, err := db.SearchProducts(ctx, term, maxSuggestions)
		if err != nil {
			s.logger.Debug("product suggestions failed", "term", term, "error", err)
			return reply
		}
		var names []string
		for _, p := range found {
			if n := p.DisplayName(); n != "" {
				names = append(names, n)
			}
		}
		if len(names) > 0 {
			return reply + " " + fmt.Sprintf(s.pick(poolDidYouMean), joinAlternatives(names))
		}
	}
	return reply
}

// suggestionTerms lists the words of a product name, then the first
// word's opening letters to catch misheard endings.
func suggestionTerms(name string) []string {
	var terms []string
	seen := map[string]bool{}
	add := func(t string) {
		if utf8.RuneCountInString(t) >= 3 && !seen[t] {
			seen[t] = true
			terms = append(terms, t)
		}
	}
	words := strings.Fields(name)
	if len(words) > 1 {
		for _, w := range words {
			add(w)
		}
	}
	if len(words) > 0 {
		if r := []rune(words[0]); len(r) > 3 {
			add(string(r[:3]))
		}
	}
	return terms
}

func (s *Session) handleSalesToday(ctx context.Context) string {
	db, lctx, cancel, err := s.lookup(ctx)
	defer cancel()
	if err != nil {
		return s.lookupFailed("sales_today", err)
	}
	totals, err := db.SalesToday(lctx)
	if err != nil {
		return s.lookupFailed("sales_today", err)
	}

	if totals.Count == 0 {
		return s.pick(poolSalesNone)
	}

	sales := fmt.Sprintf("%d ventes", totals.Count)
	if totals.Count == 1 {
		sales = "une seule vente"
	}

	total := amountText(totals.TotalUSD, totals.TotalCDF, true, "francs congolais")
	if total == "" {
		return s.pick([]string{
			fmt.Sprintf("Aujourd'hui, nous avons %s.", sales),
			fmt.Sprintf("On a fait %s aujourd'hui.", sales),
		})
	}
	return s.pick([]string{
		fmt.Sprintf("Aujourd'hui, nous avons %s, pour un total de %s.", sales, total),
		fmt.Sprintf("Bilan du jour. %s. Total, %s.", Capitalize(sales), total),
		fmt.Sprintf("Les ventes d'aujourd'hui. %s pour %s. Pas mal !", Capitalize(sales), total),
	})
}

func (s *Session) handleSalesSummary(ctx context.Context, in domain.Intent) string {
	period, ok := in.Entity(domain.EntityPeriod)
	if !ok {
		period = domain.PeriodToday
	}
	name, ok := periodNames[period]
	if !ok {
		name = period
	}

	db, lctx, cancel, err := s.lookup(ctx)
	defer cancel()
	if err != nil {
		return s.lookupFailed("sales_summary", err)
	}
	totals, err := db.SalesForPeriod(lctx, period)
	if err != nil {
		return s.lookupFailed("sales_summary", err)
	}

	if totals.Count == 0 {
		return fmt.Sprintf(s.pick(poolSummaryNone), name)
	}
	total := amountText(totals.TotalUSD, totals.TotalCDF, false, "francs")
	if total == "" {
		return fmt.Sprintf(s.pick(poolSummaryCount), Capitalize(name), totals.Count)
	}
	return fmt.Sprintf(s.pick(poolSummaryTotal), Capitalize(name), totals.Count, total)
}

func (s *Session) handleDebts(ctx context.Context) string {
	db, lctx, cancel, err := s.lookup(ctx)
	defer cancel()
	if err != nil {
		return s.lookupFailed("debt_totals", err)
	}
	totals, err := db.DebtTotals(lctx)
	if err != nil {
		return s.lookupFailed("debt_totals", err)
	}

	if totals.Count == 0 {
		return s.pick(poolNoDebts)
	}

	debts := fmt.Sprintf("%d dettes impayées", totals.Count)
	if totals.Count == 1 {
		debts = "une dette impayée"
	}

	var msg string
	if total := amountText(totals.TotalUSD, totals.TotalCDF, false, "francs"); total != "" {
		msg = s.pick([]string{
			fmt.Sprintf("Alors, il y a %s, pour un total de %s.", debts, total),
			fmt.Sprintf("Dettes en cours. %s pour %s.", Capitalize(debts), total),
		})
	} else {
		msg = s.pick([]string{
			fmt.Sprintf("Il y a %s.", debts),
			fmt.Sprintf("On a %s en cours.", debts),
		})
	}

	top, err := db.TopDebts(lctx, topDebtors)
	if err != nil {
		s.logger.Warn("lookup failed", "op", "top_debts", "error", err)
		return msg
	}
	var names []string
	for _, d := range top {
		if n := strings.TrimSpace(d.ClientName); n != "" {
			names = append(names, n)
		}
	}
	switch len(names) {
	case 0:
		return msg
	case 1:
		return msg + fmt.Sprintf(" Le débiteur principal est %s.", names[0])
	default:
		return msg + fmt.Sprintf(" Les principaux débiteurs sont, %s.", joinNames(names))
	}
}

func (s *Session) handlePrint(ctx context.Context) string {
	db, lctx, cancel, err := s.lookup(ctx)
	defer cancel()
	if err != nil {
		return s.lookupFailed("last_sale", err)
	}
	sale, err := db.LastSale(lctx)
	if errors.Is(err, store.ErrNotFound) {
		return "Aucune facture récente à imprimer."
	}
	if err != nil {
		return s.lookupFailed("last_sale", err)
	}

	invoice := sale.InvoiceNumber
	if invoice == "" {
		invoice = fmt.Sprint(sale.ID)
	}
	if s.deps.Printer == nil {
		return "Je ne peux pas joindre le logiciel de caisse pour imprimer."
	}

	ack, err := s.deps.Printer.RequestPrint(ctx, sale)
	switch {
	case err == nil:
		return fmt.Sprintf("Lancement de l'impression pour la facture %s.", invoice)
	case errors.Is(err, bus.ErrNotConnected):
		return "Je ne peux pas joindre le logiciel de caisse pour imprimer."
	case errors.Is(err, bus.ErrPrintTimeout):
		return fmt.Sprintf("J'ai demandé l'impression de la facture %s, mais la caisse ne répond pas.", invoice)
	case ack.Code != "":
		return PrintErrorMessage(ack.Code, ack.Hint)
	default:
		s.logger.Warn("print request failed", "invoice", invoice, "error", err)
		return PrintErrorMessage("", "")
	}
}

func (s *Session) handleGreeting() string {
	g := TimeGreeting(s.now())
	pool := []string{
		g + " ! Comment puis-je vous aider ?",
		g + " ! Je suis là pour vous aider.",
		g + " ! Que souhaitez-vous faire ?",
	}
	if user := s.CurrentUser(); user != "" {
		pool = append(pool, fmt.Sprintf("%s %s ! Que puis-je faire pour vous ?", g, user))
	}
	return s.pick(pool)
}
