package psn

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-trophy-proxy/internal/auth/entity"
	"github.com/ovaphlow/pitchfork/service-trophy-proxy/internal/metrics"
)

// TokenSource hands out the current vendor credentials.
type TokenSource interface {
	GetToken(ctx context.Context) (entity.ServiceAuth, error)
	Invalidate()
}

// Requester performs authenticated GETs and recovers from a rejected token
// exactly once per call: invalidate, re-acquire, retry.
type Requester struct {
	client *Client
	tokens TokenSource
	logger *zap.SugaredLogger
}

func NewRequester(client *Client, tokens TokenSource, logger *zap.SugaredLogger) *Requester {
	return &Requester{client: client, tokens: tokens, logger: logger}
}

// Client exposes the underlying client for URL building.
func (r *Requester) Client() *Client { return r.client }

// GetJSON fetches rawURL with the current token and decodes into out.
func (r *Requester) GetJSON(ctx context.Context, rawURL string, headers map[string]string, out any) error {
	auth, err := r.tokens.GetToken(ctx)
	if err != nil {
		return err
	}
	err = r.client.GetJSON(ctx, rawURL, auth.AccessToken, headers, out)
	if !IsKind(err, KindAuthExpired) {
		return err
	}

	r.logger.Infow("vendor rejected token, refreshing", "url", rawURL)
	metrics.VendorRetries.WithLabelValues("auth").Inc()
	r.tokens.Invalidate()
	auth, err = r.tokens.GetToken(ctx)
	if err != nil {
		return fmt.Errorf("re-acquire token: %w", err)
	}
	return r.client.GetJSON(ctx, rawURL, auth.AccessToken, headers, out)
}
