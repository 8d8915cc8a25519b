package dialogue

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"lagrace/internal/domain"
)

type fakeSpeaker struct {
	mu     sync.Mutex
	spoken []string
}

func (f *fakeSpeaker) Speak(text string, _ bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spoken = append(f.spoken, text)
}

func (f *fakeSpeaker) WaitUntilDone(context.Context) error { return nil }

func (f *fakeSpeaker) said() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.spoken...)
}

// fakeCapture returns text, or waits out the timeout when text is empty.
type fakeCapture struct {
	text     string
	release  chan struct{}
	timeouts []time.Duration
}

func (f *fakeCapture) Capture(ctx context.Context, timeout time.Duration) (string, error) {
	f.timeouts = append(f.timeouts, timeout)
	if f.release != nil {
		<-f.release
	}
	if f.text == "" {
		select {
		case <-time.After(timeout):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text, nil
}

type fakeWake struct {
	mu      sync.Mutex
	pauses  int
	resumes int
}

func (f *fakeWake) Pause() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauses++
}

func (f *fakeWake) Resume(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resumes++
	return nil
}

func (f *fakeWake) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pauses, f.resumes
}

type fixedClassifier struct {
	intent domain.Intent
}

func (f fixedClassifier) Recognize(string) domain.Intent { return f.intent }

type fakeLookup struct {
	product    domain.Product
	productErr error
	sales      domain.SalesTotals
	period     string
	debts      domain.DebtTotals
	top        []domain.Debt
	lastSale   domain.Sale
	saleErr    error
	err        error
	panicOn    string
	search     map[string][]domain.Product
	searched   []string
}

func (f *fakeLookup) ProductStock(_ context.Context, name string) (domain.Product, error) {
	if f.panicOn == "stock" {
		panic("boom")
	}
	if f.err != nil {
		return domain.Product{}, f.err
	}
	return f.product, f.productErr
}

func (f *fakeLookup) ProductPrice(ctx context.Context, name string) (domain.Product, error) {
	return f.ProductStock(ctx, name)
}

func (f *fakeLookup) SearchProducts(_ context.Context, q string, limit int) ([]domain.Product, error) {
	f.searched = append(f.searched, q)
	found := f.search[q]
	if len(found) > limit {
		found = found[:limit]
	}
	return found, nil
}

func (f *fakeLookup) SalesToday(context.Context) (domain.SalesTotals, error) {
	return f.sales, f.err
}

func (f *fakeLookup) SalesForPeriod(_ context.Context, period string) (domain.SalesTotals, error) {
	f.period = period
	return f.sales, f.err
}

func (f *fakeLookup) DebtTotals(context.Context) (domain.DebtTotals, error) {
	return f.debts, f.err
}

func (f *fakeLookup) TopDebts(_ context.Context, limit int) ([]domain.Debt, error) {
	if len(f.top) > limit {
		return f.top[:limit], nil
	}
	return f.top, nil
}

func (f *fakeLookup) LastSale(context.Context) (domain.Sale, error) {
	if f.err != nil {
		return domain.Sale{}, f.err
	}
	return f.lastSale, f.saleErr
}

type fakePrinter struct {
	ack  domain.PrintAck
	err  error
	sale domain.Sale
}

func (f *fakePrinter) RequestPrint(_ context.Context, sale domain.Sale) (domain.PrintAck, error) {
	f.sale = sale
	return f.ack, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// first always picks the first paraphrase.
func first(int) int { return 0 }

func newTestSession(deps Deps) *Session {
	if deps.Speaker == nil {
		deps.Speaker = &fakeSpeaker{}
	}
	s := New(Config{CommandTimeout: 20 * time.Millisecond}, deps, discardLogger())
	s.SetRand(first)
	s.SetClock(func() time.Time { return time.Date(2026, 10, 17, 9, 30, 0, 0, time.Local) })
	return s
}

func intentWith(name domain.IntentName, entities map[string]string) domain.Intent {
	if entities == nil {
		entities = map[string]string{}
	}
	return domain.Intent{Name: name, Confidence: 1, Entities: entities}
}
