package watchdog

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-trophy-proxy/internal/psn"
	"github.com/ovaphlow/pitchfork/service-trophy-proxy/internal/watchdog/entity"
)

// History lists persisted events, newest first.
type History interface {
	Recent(ctx context.Context, limit int) ([]entity.Event, error)
}

const recentLimit = 20

type Handler struct {
	w       *Watchdog
	history History
	logger  *zap.SugaredLogger
}

// NewHandler builds the watchdog endpoints; history may be nil.
func NewHandler(w *Watchdog, history History, logger *zap.SugaredLogger) *Handler {
	return &Handler{w: w, history: history, logger: logger}
}

// PokeResponse is the body of POST /api/watchdog/poke.
type PokeResponse struct {
	Polled bool          `json:"polled"`
	Status entity.Status `json:"status"`
}

func (h *Handler) Poke(w http.ResponseWriter, r *http.Request) {
	polled, err := h.w.Trigger(r.Context())
	if err != nil {
		h.logger.Warnw("watchdog poke failed", "err", err)
		status, body := psn.StatusFor(err)
		h.writeJSON(w, status, body)
		return
	}
	h.writeJSON(w, http.StatusOK, PokeResponse{Polled: polled, Status: h.w.Status()})
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	st := h.w.Status()
	if h.history != nil {
		recent, err := h.history.Recent(r.Context(), recentLimit)
		if err != nil {
			h.logger.Warnw("watchdog history failed", "err", err)
		} else {
			st.Recent = recent
		}
	}
	h.writeJSON(w, http.StatusOK, st)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
