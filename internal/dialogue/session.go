package dialogue

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"lagrace/internal/domain"
)

type Speaker interface {
	Speak(text string, priority bool)
	WaitUntilDone(ctx context.Context) error
}

type CommandCapture interface {
	Capture(ctx context.Context, timeout time.Duration) (string, error)
}

type WakeControl interface {
	Pause()
	Resume(ctx context.Context) error
}

type Classifier interface {
	Recognize(raw string) domain.Intent
}

// Lookup is the read-only POS data the handlers query.
type Lookup interface {
	ProductStock(ctx context.Context, name string) (domain.Product, error)
	ProductPrice(ctx context.Context, name string) (domain.Product, error)
	SearchProducts(ctx context.Context, q string, limit int) ([]domain.Product, error)
	SalesToday(ctx context.Context) (domain.SalesTotals, error)
	SalesForPeriod(ctx context.Context, period string) (domain.SalesTotals, error)
	DebtTotals(ctx context.Context) (domain.DebtTotals, error)
	TopDebts(ctx context.Context, limit int) ([]domain.Debt, error)
	LastSale(ctx context.Context) (domain.Sale, error)
}

type Printer interface {
	RequestPrint(ctx context.Context, sale domain.Sale) (domain.PrintAck, error)
}

type Config struct {
	CommandTimeout time.Duration
	LookupTimeout  time.Duration
}

// Deps are the session collaborators. Capture, Wake, Lookup and Printer may
// be nil when the matching subsystem is unavailable.
type Deps struct {
	Classifier Classifier
	Speaker    Speaker
	Capture    CommandCapture
	Wake       WakeControl
	Lookup     Lookup
	Printer    Printer
}

type Snapshot struct {
	Phase          string    `json:"phase"`
	ActiveSince    time.Time `json:"active_since,omitzero"`
	PendingCommand string    `json:"pending_command,omitempty"`
	CurrentUser    string    `json:"current_user,omitempty"`
	Turns          int       `json:"turns"`
}

// Session is the single dialogue flow: one command at a time, driven by Run.
type Session struct {
	cfg    Config
	deps   Deps
	logger *slog.Logger
	rand   func(n int) int
	now    func() time.Time
	wakeCh chan struct{}

	mu          sync.Mutex
	phase       domain.Phase
	activeSince time.Time
	pending     string
	currentUser string
	turns       int
}

func New(cfg Config, deps Deps, logger *slog.Logger) *Session {
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = 12 * time.Second
	}
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = 5 * time.Second
	}
	return &Session{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
		rand:   rand.IntN,
		now:    time.Now,
		wakeCh: make(chan struct{}, 1),
	}
}

// SetRand replaces the paraphrase picker. rand(n) must return [0, n).
func (s *Session) SetRand(fn func(n int) int) {
	s.rand = fn
}

func (s *Session) SetClock(now func() time.Time) {
	s.now = now
}

// Wake moves an idle session to Awake. It reports false, and does nothing,
// while a command is already in progress.
func (s *Session) Wake() bool {
	s.mu.Lock()
	if s.phase != domain.PhaseIdle {
		s.mu.Unlock()
		s.logger.Debug("wake ignored, session active", "phase", s.phase.String())
		return false
	}
	s.phase = domain.PhaseAwake
	s.activeSince = s.now()
	s.mu.Unlock()

	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
	return true
}

// Run drives one turn per accepted wake until ctx is done.
func (s *Session) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.wakeCh:
			s.turn(ctx)
		}
	}
}

func (s *Session) turn(ctx context.Context) {
	defer s.finish(ctx)
	s.logger.Info("session awake")

	s.say(s.pick(poolListening))
	s.waitSpeech(ctx)

	if s.deps.Wake != nil {
		s.deps.Wake.Pause()
	}
	s.setPhase(domain.PhaseListeningForCommand)

	var text string
	if s.deps.Capture != nil {
		var err error
		text, err = s.deps.Capture.Capture(ctx, s.cfg.CommandTimeout)
		if err != nil {
			s.logger.Warn("command capture failed", "error", err)
		}
	}
	text = strings.TrimSpace(text)

	if text == "" {
		s.setPhase(domain.PhaseResponding)
		s.logger.Info("no command received")
		s.say(s.pick(poolNotUnderstood))
		return
	}

	s.mu.Lock()
	s.pending = text
	s.phase = domain.PhaseProcessing
	s.mu.Unlock()
	s.logger.Info("command received", "text", text)

	s.say(s.pick(poolProcessing))
	reply := s.HandleText(ctx, text)

	s.setPhase(domain.PhaseResponding)
	s.say(reply)
}

// finish always returns the session to Idle and re-arms wake detection.
func (s *Session) finish(ctx context.Context) {
	if r := recover(); r != nil {
		s.logger.Error("dialogue turn panicked", "panic", r)
	}

	s.mu.Lock()
	s.phase = domain.PhaseIdle
	s.activeSince = time.Time{}
	s.pending = ""
	s.turns++
	s.mu.Unlock()

	if s.deps.Wake != nil && ctx.Err() == nil {
		if err := s.deps.Wake.Resume(ctx); err != nil {
			s.logger.Warn("resume wake detection failed", "error", err)
		}
	}
}

// HandleText classifies text and returns the reply without speaking it.
func (s *Session) HandleText(ctx context.Context, text string) string {
	in := s.deps.Classifier.Recognize(text)
	s.logger.Info("intent recognized",
		"intent", string(in.Name),
		"confidence", in.Confidence,
		"entities", in.Entities,
	)
	return s.dispatch(ctx, in)
}

func (s *Session) SetCurrentUser(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentUser = name
}

func (s *Session) CurrentUser() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentUser
}

func (s *Session) Phase() domain.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Phase:          s.phase.String(),
		ActiveSince:    s.activeSince,
		PendingCommand: s.pending,
		CurrentUser:    s.currentUser,
		Turns:          s.turns,
	}
}

// StartupGreeting is spoken once when the assistant comes up.
func (s *Session) StartupGreeting() string {
	g := TimeGreeting(s.now())
	return s.pick([]string{
		g + " ! Je suis LaGrace, votre assistante vocale. Le logiciel La Grâce est prêt. Dites LaGrace pour m'activer.",
		g + " et bienvenue ! LaGrace est à votre service. Pour m'activer, dites simplement LaGrace suivi de votre demande.",
		g + " ! Système La Grâce opérationnel. Je suis LaGrace, prête à vous aider. Appelez-moi quand vous voulez.",
	})
}

func (s *Session) Farewell() string {
	return s.pick(poolFarewell)
}

func (s *Session) setPhase(p domain.Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = p
}

func (s *Session) say(text string) {
	s.logger.Info("speak", "text", text)
	s.deps.Speaker.Speak(text, false)
}

func (s *Session) waitSpeech(ctx context.Context) {
	if err := s.deps.Speaker.WaitUntilDone(ctx); err != nil {
		s.logger.Warn("wait for speech failed", "error", err)
	}
}

func (s *Session) pick(pool []string) string {
	return pool[s.rand(len(pool))]
}
