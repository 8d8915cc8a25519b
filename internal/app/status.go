package app

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"lagrace/internal/bus"
	"lagrace/internal/config"
	"lagrace/internal/dialogue"
)

type Status struct {
	Name           string            `json:"name"`
	Version        string            `json:"version"`
	StartedAt      time.Time         `json:"started_at"`
	UptimeSeconds  int64             `json:"uptime_seconds"`
	Session        dialogue.Snapshot `json:"session"`
	Bus            *bus.Status       `json:"bus,omitempty"`
	Database       string            `json:"database"`
	SpeechRunning  bool              `json:"speech_running"`
	PendingSpeech  int               `json:"pending_speech"`
	Listening      bool              `json:"listening"`
	SalesAnnounced int               `json:"sales_announced_today"`
}

func (a *App) Status() Status {
	st := Status{
		Name:           config.AssistantName,
		Version:        config.AssistantVersion,
		StartedAt:      a.startedAt,
		Session:        a.session.Snapshot(),
		Database:       "unavailable",
		SpeechRunning:  a.speech.Running(),
		PendingSpeech:  len(a.speech.Pending()),
		SalesAnnounced: a.announcer.SalesToday(),
	}
	if !a.startedAt.IsZero() {
		st.UptimeSeconds = int64(time.Since(a.startedAt).Seconds())
	}
	if a.bus != nil {
		bs := a.bus.Status()
		st.Bus = &bs
	}
	if a.store != nil {
		st.Database = a.store.Driver()
	}
	if a.wake != nil {
		st.Listening = a.wake.Listening()
	}
	return st
}

func (a *App) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, a.Status())
	})
	return r
}

func (a *App) logStatus() {
	st := a.Status()
	busConnected := st.Bus != nil && st.Bus.Connected
	a.logger.Info("status",
		"uptime", time.Duration(st.UptimeSeconds)*time.Second,
		"phase", st.Session.Phase,
		"bus_connected", busConnected,
		"database", st.Database,
		"sales_announced", st.SalesAnnounced,
	)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
