package ops

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fiberdesk/fiberdesk/internal/middleware"
	"github.com/fiberdesk/fiberdesk/internal/port/messagequeue"
)

// Handlers exposes the allow-listed operations over HTTP.
type Handlers struct {
	runner *Runner
	queue  messagequeue.Queue // optional; nil disables deploy events
}

// NewHandlers creates the ops handler set. queue may be nil.
func NewHandlers(runner *Runner, queue messagequeue.Queue) *Handlers {
	return &Handlers{runner: runner, queue: queue}
}

// MountRoutes registers the ops routes, all guarded by the bearer token.
func MountRoutes(r chi.Router, h *Handlers, token string) {
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]string{"status": "ok"}})
	})

	r.Route("/ops", func(r chi.Router) {
		r.Use(middleware.BearerAuth(token))

		r.Post("/restart", h.Restart)
		r.Post("/deploy", h.Deploy)
		r.Get("/journal", h.Journal)
		r.Get("/journal/stream", h.runner.StreamJournal)
	})
}

// deployEvent is published on NATS after every deploy attempt.
type deployEvent struct {
	ExitCode   int       `json:"exit_code"`
	Output     string    `json:"output"`
	FinishedAt time.Time `json:"finished_at"`
}

// Restart handles POST /ops/restart.
func (h *Handlers) Restart(w http.ResponseWriter, r *http.Request) {
	res, err := h.runner.RestartService(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeResult(w, res)
}

// Deploy handles POST /ops/deploy and publishes the outcome as a deploy
// event.
func (h *Handlers) Deploy(w http.ResponseWriter, r *http.Request) {
	res, err := h.runner.Deploy(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if h.queue != nil {
		data, err := json.Marshal(deployEvent{
			ExitCode: res.ExitCode, Output: res.Output, FinishedAt: time.Now(),
		})
		if err == nil {
			if err := h.queue.Publish(r.Context(), "deploy.finished", data); err != nil {
				slog.Warn("publish deploy event failed", "error", err)
			}
		}
	}
	writeResult(w, res)
}

// Journal handles GET /ops/journal. The lines query parameter bounds the
// tail length.
func (h *Handlers) Journal(w http.ResponseWriter, r *http.Request) {
	lines := 100
	if raw := r.URL.Query().Get("lines"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "lines must be a positive integer")
			return
		}
		lines = n
	}

	res, err := h.runner.Journal(r.Context(), lines)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeResult(w, res)
}

func writeResult(w http.ResponseWriter, res *Result) {
	status := http.StatusOK
	if res.ExitCode != 0 {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]any{"success": res.ExitCode == 0, "data": res})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "error": message})
}
