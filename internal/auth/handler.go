package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-trophy-proxy/internal/psn"
)

// Handler exposes the broker's current credentials to the app.
type Handler struct {
	broker *Broker
	logger *zap.SugaredLogger
}

func NewHandler(broker *Broker, logger *zap.SugaredLogger) *Handler {
	return &Handler{broker: broker, logger: logger}
}

// LoginResponse is the body of GET /api/login.
type LoginResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
	AccountID    string `json:"accountId"`
	TokenType    string `json:"tokenType"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	a, err := h.broker.GetToken(r.Context())
	if err != nil {
		if errors.Is(err, ErrMissingSecret) {
			h.logger.Errorw("login impossible", "err", err)
			h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		h.logger.Warnw("login failed", "err", err)
		status, body := psn.StatusFor(err)
		h.writeJSON(w, status, body)
		return
	}
	h.writeJSON(w, http.StatusOK, LoginResponse{
		AccessToken:  a.AccessToken,
		RefreshToken: a.RefreshToken,
		ExpiresIn:    a.ExpiresIn(h.broker.now()),
		AccountID:    a.AccountID,
		TokenType:    a.TokenType,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
