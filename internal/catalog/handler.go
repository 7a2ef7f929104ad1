package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-trophy-proxy/internal/catalog/entity"
	"github.com/ovaphlow/pitchfork/service-trophy-proxy/internal/psn"
	trophyentity "github.com/ovaphlow/pitchfork/service-trophy-proxy/internal/trophy/entity"
)

// TitleSource lists a user's owned PlayStation titles.
type TitleSource interface {
	TrophyTitles(ctx context.Context, accountID string) (*trophyentity.TrophyTitlesPage, error)
}

type Handler struct {
	unifier *Unifier
	titles  TitleSource
	logger  *zap.SugaredLogger
}

func NewHandler(unifier *Unifier, titles TitleSource, logger *zap.SugaredLogger) *Handler {
	return &Handler{unifier: unifier, titles: titles, logger: logger}
}

// UnifyRequest is the body of POST /api/unify.
type UnifyRequest struct {
	PSNGames  []trophyentity.TrophyTitle `json:"psnGames"`
	XboxGames []trophyentity.XboxTitle   `json:"xboxGames"`
}

type UnifyResponse struct {
	Games []entity.UnifiedGame `json:"games"`
}

type LibraryResponse struct {
	Games          []entity.UnifiedGame `json:"games"`
	TotalItemCount int                  `json:"totalItemCount"`
}

func (h *Handler) Unify(w http.ResponseWriter, r *http.Request) {
	opts, err := ParseOptions(r.URL.Query())
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	var req UnifyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 16<<20)).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	games := h.unifier.Unify(req.PSNGames, req.XboxGames, opts)
	h.logger.Debugw("unified", "psn", len(req.PSNGames), "xbox", len(req.XboxGames), "games", len(games))
	h.writeJSON(w, http.StatusOK, UnifyResponse{Games: games})
}

func (h *Handler) Library(w http.ResponseWriter, r *http.Request) {
	accountID := r.PathValue("accountId")
	opts, err := ParseOptions(r.URL.Query())
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	page, err := h.titles.TrophyTitles(r.Context(), accountID)
	if err != nil {
		h.logger.Warnw("library fetch failed", "account_id", accountID, "err", err)
		status, body := psn.StatusFor(err)
		h.writeJSON(w, status, body)
		return
	}
	games := h.unifier.Unify(page.TrophyTitles, nil, opts)
	h.writeJSON(w, http.StatusOK, LibraryResponse{Games: games, TotalItemCount: page.TotalItemCount})
}

func (h *Handler) Entry(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	m, ok := h.unifier.Lookup(id)
	if !ok {
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "catalog entry not found"})
		return
	}
	h.writeJSON(w, http.StatusOK, m)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ParseOptions reads view options from a query string:
//
//	view=global|owned  unowned=1  platforms=PS5,PS4  shovelware=1  q=text
//	status=in_progress|completed|not_started  sort=title|progress|last_played
//	dir=asc|desc  pinned=NPWR1,NPWR2
//
// Without a platforms parameter every platform is shown. A platforms parameter
// that names nothing ("platforms=" or "platforms=,") enables no platform, so the
// result is empty.
func ParseOptions(q url.Values) (entity.Options, error) {
	var opts entity.Options

	switch v := q.Get("view"); v {
	case "", "owned":
	case "global":
		opts.ShowUnowned = true
	default:
		return opts, fmt.Errorf("invalid view %q", v)
	}
	if truthy(q.Get("unowned")) {
		opts.ShowUnowned = true
	}
	opts.ShowShovelware = truthy(q.Get("shovelware"))
	opts.Search = strings.TrimSpace(q.Get("q"))

	if q.Has("platforms") {
		opts.Platforms = map[string]bool{}
		for _, p := range splitList(q.Get("platforms")) {
			opts.Platforms[strings.ToUpper(p)] = true
		}
	}
	if raw := q.Get("pinned"); raw != "" {
		opts.Pinned = map[string]bool{}
		for _, id := range splitList(raw) {
			opts.Pinned[id] = true
		}
	}

	switch s := entity.Status(q.Get("status")); s {
	case entity.StatusAll, entity.StatusInProgress, entity.StatusCompleted, entity.StatusNotStarted:
		opts.Status = s
	case "all":
		opts.Status = entity.StatusAll
	default:
		return opts, fmt.Errorf("invalid status %q", s)
	}

	switch s := entity.SortMode(q.Get("sort")); s {
	case "":
	case entity.SortTitle, entity.SortProgress, entity.SortLastPlayed:
		opts.Sort = s
	default:
		return opts, fmt.Errorf("invalid sort %q", s)
	}

	switch d := entity.Direction(strings.ToLower(q.Get("dir"))); d {
	case "":
	case entity.Asc, entity.Desc:
		opts.Direction = d
	default:
		return opts, fmt.Errorf("invalid dir %q", d)
	}
	return opts, nil
}

func truthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
