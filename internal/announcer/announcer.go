// Package announcer speaks POS notifications as they arrive on the bus.
package announcer

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"lagrace/internal/dialogue"
	"lagrace/internal/domain"
)

const (
	dedupSize    = 256
	limiterSize  = 512
	limiterTTL   = 30 * time.Minute
	unknownGoods = "un produit"
)

type Speaker interface {
	Speak(text string, priority bool)
}

// UserTracker records the operator who last logged in on the POS.
type UserTracker interface {
	SetCurrentUser(name string)
}

type Config struct {
	DedupWindow       time.Duration
	StockLowPerMinute float64
	StockLowBurst     int
}

type Announcer struct {
	cfg     Config
	speaker Speaker
	users   UserTracker
	logger  *slog.Logger
	rand    func(n int) int
	now     func() time.Time

	recent   *expirable.LRU[string, struct{}]
	limiters *expirable.LRU[string, *rate.Limiter]

	mu         sync.Mutex
	salesToday int
}

func New(cfg Config, speaker Speaker, users UserTracker, logger *slog.Logger) *Announcer {
	if cfg.StockLowPerMinute <= 0 {
		cfg.StockLowPerMinute = 1
	}
	if cfg.StockLowBurst <= 0 {
		cfg.StockLowBurst = 1
	}
	a := &Announcer{
		cfg:      cfg,
		speaker:  speaker,
		users:    users,
		logger:   logger,
		rand:     rand.IntN,
		now:      time.Now,
		limiters: expirable.NewLRU[string, *rate.Limiter](limiterSize, nil, limiterTTL),
	}
	if cfg.DedupWindow > 0 {
		a.recent = expirable.NewLRU[string, struct{}](dedupSize, nil, cfg.DedupWindow)
	}
	return a
}

func (a *Announcer) SetRand(fn func(n int) int) { a.rand = fn }

func (a *Announcer) SetClock(now func() time.Time) { a.now = now }

// Run speaks every event from events until ctx is done or events is closed.
func (a *Announcer) Run(ctx context.Context, events <-chan domain.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if msg, ok := a.Handle(ev); ok {
				a.speaker.Speak(msg, false)
			}
		}
	}
}

// Handle builds the announcement for ev. It reports false when the event is
// silent, a duplicate or rate limited.
func (a *Announcer) Handle(ev domain.Event) (string, bool) {
	a.logger.Info("bus event", "event", ev.EventName())

	switch e := ev.(type) {
	case domain.UserLogin:
		if a.users != nil {
			a.users.SetCurrentUser(e.Username)
		}
		if a.duplicate("login", e.Username) {
			return "", false
		}
		return a.userLogin(e), true
	case domain.LicenseActivated:
		return "Parfait ! La licence est maintenant activée. Le système est prêt à l'emploi.", true
	case domain.SaleCreated:
		if a.duplicate("sale", e.InvoiceNumber) {
			return "", false
		}
		a.mu.Lock()
		a.salesToday++
		a.mu.Unlock()
		return a.saleCreated(e), true
	case domain.PrintStarted:
		if a.duplicate("print_started", e.InvoiceNumber) {
			return "", false
		}
		return printStarted(e), true
	case domain.PrintDone:
		if a.duplicate("print_done", e.InvoiceNumber) {
			return "", false
		}
		if e.InvoiceNumber != "" {
			return fmt.Sprintf("Impression de la facture %s terminée.", e.InvoiceNumber), true
		}
		return "Impression terminée avec succès.", true
	case domain.PrintError:
		if a.duplicate("print_error", e.InvoiceNumber) {
			return "", false
		}
		return dialogue.PrintErrorMessage(e.Code, e.Hint), true
	case domain.StockLow:
		return a.stockLow(e)
	case domain.SyncCompleted:
		if e.Success {
			return "Synchronisation terminée avec succès.", true
		}
		return "La synchronisation a rencontré des problèmes. Vérifiez la connexion.", true
	case domain.DebtCreated:
		if e.Client == "" || a.duplicate("debt_created", e.Client) {
			return "", false
		}
		return fmt.Sprintf("Nouvelle dette enregistrée pour %s.", e.Client), true
	case domain.DebtPaid:
		if e.Client == "" || a.duplicate("debt_paid", e.Client) {
			return "", false
		}
		return fmt.Sprintf("Parfait ! %s a réglé sa dette. Merci !", e.Client), true
	default:
		a.logger.Warn("no announcement for event", "event", ev.EventName())
		return "", false
	}
}

// SalesToday is the number of sales announced since the last reset.
func (a *Announcer) SalesToday() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.salesToday
}

func (a *Announcer) ResetDailyCount() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.salesToday = 0
}

// duplicate reports whether the same kind and id was announced within the
// dedup window. An empty id is never a duplicate.
func (a *Announcer) duplicate(kind, id string) bool {
	if a.recent == nil || id == "" {
		return false
	}
	key := kind + "|" + id
	if a.recent.Contains(key) {
		a.logger.Debug("duplicate announcement suppressed", "key", key)
		return true
	}
	a.recent.Add(key, struct{}{})
	return false
}

func (a *Announcer) userLogin(e domain.UserLogin) string {
	g := dialogue.TimeGreeting(a.now())
	return a.pick([]string{
		fmt.Sprintf("%s %s ! Bienvenue sur La Grâce. Bonne journée de travail !", g, e.Username),
		fmt.Sprintf("%s %s ! Content de vous revoir. Je suis à votre service.", g, e.Username),
		fmt.Sprintf("Connexion réussie. %s %s ! Que puis-je faire pour vous ?", g, e.Username),
	})
}

func (a *Announcer) saleCreated(e domain.SaleCreated) string {
	var head string
	if e.Seller != "" {
		head = fmt.Sprintf(a.pick([]string{
			"La vente de %s est finalisée.",
			"C'est fait ! %s a finalisé une vente.",
			"Nouvelle vente de %s !",
		}), e.Seller)
	} else {
		head = a.pick([]string{
			"La vente est finalisée.",
			"Transaction validée !",
			"Nouvelle vente enregistrée.",
		})
	}

	var details []string
	if c := strings.TrimSpace(e.Client); c != "" && c != "-" {
		details = append(details, "pour "+c)
	}
	switch {
	case e.TotalUSD > 0:
		details = append(details, fmt.Sprintf("de %d dollars", int64(e.TotalUSD)))
	case e.TotalCDF > 0:
		details = append(details, fmt.Sprintf("de %d francs congolais", int64(e.TotalCDF)))
	}

	parts := []string{head}
	if len(details) > 0 {
		parts = append(parts, dialogue.Capitalize(strings.Join(details, " "))+".")
	}
	if e.InvoiceNumber != "" {
		parts = append(parts, fmt.Sprintf("Facture numéro %s.", e.InvoiceNumber))
	}
	return strings.Join(parts, " ")
}

func printStarted(e domain.PrintStarted) string {
	switch {
	case e.Seller != "" && e.InvoiceNumber != "":
		return fmt.Sprintf("Impression lancée de %s. Facture %s.", e.Seller, e.InvoiceNumber)
	case e.InvoiceNumber != "":
		return fmt.Sprintf("Impression lancée pour la facture %s.", e.InvoiceNumber)
	default:
		return "Impression en cours..."
	}
}

func (a *Announcer) stockLow(e domain.StockLow) (string, bool) {
	product := e.Product
	if product == "" {
		product = unknownGoods
	}

	key := strings.ToUpper(product)
	limiter, ok := a.limiters.Get(key)
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(a.cfg.StockLowPerMinute/60), a.cfg.StockLowBurst)
		a.limiters.Add(key, limiter)
	}
	if !limiter.AllowN(a.now(), 1) {
		a.logger.Debug("stock alert rate limited", "product", product)
		return "", false
	}

	qty := int64(e.Quantity)
	return a.pick([]string{
		fmt.Sprintf("Attention ! Stock bas pour %s. Il ne reste que %d unités.", product, qty),
		fmt.Sprintf("Alerte stock. %s n'a plus que %d unités. Pensez à commander.", product, qty),
		fmt.Sprintf("Attention au stock de %s ! Plus que %d en réserve.", product, qty),
	}), true
}

func (a *Announcer) pick(pool []string) string {
	return pool[a.rand(len(pool))]
}
