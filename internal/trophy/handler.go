package trophy

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-trophy-proxy/internal/psn"
	"github.com/ovaphlow/pitchfork/service-trophy-proxy/internal/trophy/entity"
)

// Handler exposes the profile and trophy relay endpoints.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	raw, err := h.svc.Profile(r.Context(), username)
	if err != nil {
		h.fail(w, "profile", err, "username", username)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(raw)
}

func (h *Handler) Titles(w http.ResponseWriter, r *http.Request) {
	accountID := r.PathValue("accountId")
	page, err := h.svc.TrophyTitles(r.Context(), accountID)
	if err != nil {
		h.fail(w, "trophy titles", err, "account_id", accountID)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"totalItemCount": page.TotalItemCount,
		"trophyTitles":   page.TrophyTitles,
	})
}

// TitleTrophiesResponse is the body of GET /api/trophies/{accountId}/{gameId}.
type TitleTrophiesResponse struct {
	GameName string          `json:"gameName,omitempty"`
	Trophies []entity.Trophy `json:"trophies"`
}

func (h *Handler) TitleTrophies(w http.ResponseWriter, r *http.Request) {
	accountID := r.PathValue("accountId")
	gameID := r.PathValue("gameId")
	q := r.URL.Query()
	trophies, err := h.svc.TitleTrophies(r.Context(), accountID, gameID, q.Get("platform"))
	if err != nil {
		h.fail(w, "title trophies", err, "account_id", accountID, "game_id", gameID, "game_name", q.Get("gameName"))
		return
	}
	h.writeJSON(w, http.StatusOK, TitleTrophiesResponse{GameName: q.Get("gameName"), Trophies: trophies})
}

// SummaryResponse adds the watchdog's comparison figure to the vendor summary.
type SummaryResponse struct {
	entity.Summary
	TotalEarned int `json:"totalEarned"`
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	accountID := r.PathValue("accountId")
	sum, err := h.svc.Summary(r.Context(), accountID)
	if err != nil {
		h.fail(w, "trophy summary", err, "account_id", accountID)
		return
	}
	h.writeJSON(w, http.StatusOK, SummaryResponse{Summary: *sum, TotalEarned: sum.TotalEarned()})
}

func (h *Handler) fail(w http.ResponseWriter, what string, err error, kv ...any) {
	h.logger.Warnw(what+" failed", append(kv, "err", err)...)
	status, body := psn.StatusFor(err)
	h.writeJSON(w, status, body)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
