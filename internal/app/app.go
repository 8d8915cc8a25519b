// Package app wires the assistant's subsystems together and owns their
// lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"lagrace/internal/announcer"
	"lagrace/internal/bus"
	"lagrace/internal/config"
	"lagrace/internal/dialogue"
	"lagrace/internal/intent"
	"lagrace/internal/speech/stt"
	"lagrace/internal/speech/tts"
	"lagrace/internal/store"
)

var capabilities = []string{"voice", "stock", "sales", "print", "debts"}

const (
	farewellTimeout = 10 * time.Second
	statusSchedule  = "@every 1m"
	midnight        = "0 0 * * *"
)

// Collaborators are the hardware-bound parts built by the caller. Engine
// defaults to a silent log engine; a nil Recognizer disables listening; a
// nil Transport is built from the bus configuration.
type Collaborators struct {
	Engine     tts.Engine
	Recognizer stt.Recognizer
	Transport  bus.Transport
}

type App struct {
	cfg    config.Config
	logger *slog.Logger

	classifier *intent.Classifier
	speech     *tts.Queue
	recognizer stt.Recognizer
	wake       *stt.WakeDetector
	store      *store.Store
	storeAt    string
	bus        *bus.Client
	announcer  *announcer.Announcer
	session    *dialogue.Session
	cron       *cron.Cron
	server     *http.Server

	startedAt   time.Time
	cancel      context.CancelFunc
	stopSession context.CancelFunc
	sessionDone chan struct{}
	stopSpeech  context.CancelFunc
	wg          sync.WaitGroup
	stopOnce    sync.Once
}

// New builds every subsystem. Only an invalid intent configuration is an
// error; missing peripherals leave the assistant degraded.
func New(ctx context.Context, cfg config.Config, c Collaborators, logger *slog.Logger) (*App, error) {
	defs, err := intent.Compile(cfg.Intents.ExtraPatterns)
	if err != nil {
		return nil, fmt.Errorf("intent patterns: %w", err)
	}

	a := &App{
		cfg:        cfg,
		logger:     logger,
		classifier: intent.NewClassifier(defs),
		recognizer: c.Recognizer,
	}

	engine := c.Engine
	if engine == nil {
		logger.Warn("no voice available, speech is logged only")
		engine = tts.NewLogEngine(component(logger, "tts"))
	}
	a.speech = tts.NewQueue(engine, component(logger, "tts"))

	a.store, a.storeAt, err = store.Connect(ctx, cfg.DB.Driver, cfg.DB.DSN, cfg.DB.SearchPaths)
	if err != nil {
		logger.Warn("database unavailable, lookups disabled", "error", err)
		a.store = nil
	} else {
		logger.Info("database connected", "driver", a.store.Driver(), "location", a.storeAt)
	}

	transport := c.Transport
	if transport == nil {
		transport, err = NewTransport(cfg.Bus, component(logger, "bus"))
		if err != nil {
			return nil, err
		}
	}
	if transport != nil {
		a.bus = bus.NewClient(bus.Config{
			Name:              config.AssistantName,
			Version:           config.AssistantVersion,
			Capabilities:      capabilities,
			ReconnectDelay:    cfg.Bus.ReconnectDelay,
			MaxReconnectDelay: cfg.Bus.MaxReconnectDelay,
			KeepaliveInterval: cfg.Bus.KeepaliveInterval,
			PrintTimeout:      cfg.Bus.PrintTimeout,
			QueueSize:         cfg.Bus.QueueSize,
		}, transport, component(logger, "bus"))
	}

	deps := dialogue.Deps{Classifier: a.classifier, Speaker: a.speech}
	if a.store != nil {
		deps.Lookup = a.store
	}
	if a.bus != nil {
		deps.Printer = a.bus
	}
	if c.Recognizer != nil {
		a.wake = stt.NewWakeDetector(c.Recognizer, cfg.Wake.Variations, func() bool {
			return a.session.Wake()
		}, component(logger, "wake"))
		deps.Wake = a.wake
		deps.Capture = stt.NewCapturer(c.Recognizer, component(logger, "stt"))
	}
	a.session = dialogue.New(dialogue.Config{CommandTimeout: cfg.Wake.Timeout}, deps, component(logger, "dialogue"))

	a.announcer = announcer.New(announcer.Config{
		DedupWindow:       cfg.Announce.DedupWindow,
		StockLowPerMinute: cfg.Announce.StockLowPerMinute,
		StockLowBurst:     cfg.Announce.StockLowBurst,
	}, a.speech, a.session, component(logger, "announcer"))

	return a, nil
}

// NewTransport builds the configured bus transport, or nil when the bus is
// disabled.
func NewTransport(cfg config.BusConfig, logger *slog.Logger) (bus.Transport, error) {
	switch cfg.Transport {
	case "mqtt":
		return bus.NewMQTTTransport(bus.MQTTConfig{
			BrokerURL:   cfg.URL,
			ClientID:    cfg.ClientID + "-" + uuid.NewString()[:8],
			Username:    cfg.Username,
			Password:    cfg.Password,
			TopicPrefix: cfg.TopicPrefix,
		}, logger), nil
	case "socketio":
		return bus.NewSocketIOTransport(cfg.URL, logger), nil
	case "websocket":
		return bus.NewWebSocketTransport(cfg.URL, logger), nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown bus transport %q", cfg.Transport)
	}
}

// Start launches every subsystem. They run until Stop.
func (a *App) Start(ctx context.Context) error {
	a.startedAt = time.Now()
	base := context.WithoutCancel(ctx)

	speechCtx, stopSpeech := context.WithCancel(base)
	a.stopSpeech = stopSpeech
	a.speech.Start(speechCtx)

	runCtx, cancel := context.WithCancel(base)
	a.cancel = cancel

	if a.bus != nil {
		a.spawn(func() { a.bus.Run(runCtx) })
		a.spawn(func() { a.announcer.Run(runCtx, a.bus.Events()) })
	}
	sessionCtx, stopSession := context.WithCancel(runCtx)
	a.stopSession = stopSession
	a.sessionDone = make(chan struct{})
	a.spawn(func() {
		defer close(a.sessionDone)
		a.session.Run(sessionCtx)
	})

	a.speech.Speak(a.session.StartupGreeting(), false)

	if a.wake != nil {
		if err := a.wake.Resume(runCtx); err != nil {
			a.logger.Warn("wake detection unavailable", "error", err)
		} else {
			a.logger.Info("listening for wake word", "word", a.cfg.Wake.Word)
		}
	} else {
		a.logger.Warn("speech recognition unavailable, announcements only")
	}

	if err := a.startJobs(); err != nil {
		return err
	}
	a.startServer()
	return nil
}

func (a *App) startJobs() error {
	a.cron = cron.New()
	if _, err := a.cron.AddFunc(statusSchedule, a.logStatus); err != nil {
		return fmt.Errorf("schedule status log: %w", err)
	}
	if _, err := a.cron.AddFunc(midnight, a.announcer.ResetDailyCount); err != nil {
		return fmt.Errorf("schedule daily reset: %w", err)
	}
	a.cron.Start()
	return nil
}

func (a *App) startServer() {
	if a.cfg.Status.Addr == "" {
		return
	}
	a.server = &http.Server{
		Addr:              a.cfg.Status.Addr,
		Handler:           a.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		a.logger.Info("status server started", "addr", a.cfg.Status.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("status server error", "error", err)
		}
	}()
}

// Stop says goodbye and shuts every subsystem down.
func (a *App) Stop(ctx context.Context) {
	a.stopOnce.Do(func() {
		a.logger.Info("stopping")

		a.speech.Speak(a.session.Farewell(), false)
		waitCtx, cancel := context.WithTimeout(ctx, farewellTimeout)
		if err := a.speech.WaitUntilDone(waitCtx); err != nil {
			a.logger.Warn("farewell interrupted", "error", err)
		}
		cancel()

		// No turn may re-arm wake detection once the microphone is released.
		if a.stopSession != nil {
			a.stopSession()
			select {
			case <-a.sessionDone:
			case <-ctx.Done():
				a.logger.Warn("dialogue turn still running at shutdown")
			}
		}
		if a.wake != nil {
			a.wake.Pause()
		}
		if a.recognizer != nil {
			a.recognizer.Stop()
		}
		if a.cron != nil {
			<-a.cron.Stop().Done()
		}
		if a.server != nil {
			if err := a.server.Shutdown(ctx); err != nil {
				a.logger.Error("status server shutdown failed", "error", err)
			}
		}

		if a.cancel != nil {
			a.cancel()
		}
		a.wg.Wait()

		if a.store != nil {
			if err := a.store.Close(); err != nil {
				a.logger.Warn("close database failed", "error", err)
			}
		}
		a.speech.Stop()
		if a.stopSpeech != nil {
			a.stopSpeech()
		}
		a.logger.Info("stopped")
	})
}

// Session exposes the dialogue for text-mode use.
func (a *App) Session() *dialogue.Session { return a.session }

func (a *App) Classifier() *intent.Classifier { return a.classifier }

func (a *App) Speech() *tts.Queue { return a.speech }

// Store is nil when the database is unavailable.
func (a *App) Store() *store.Store { return a.store }

func (a *App) spawn(fn func()) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		fn()
	}()
}

func component(logger *slog.Logger, name string) *slog.Logger {
	return logger.With("component", name)
}
