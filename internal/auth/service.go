package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-trophy-proxy/internal/auth/entity"
	"github.com/ovaphlow/pitchfork/service-trophy-proxy/internal/auth/repo"
	"github.com/ovaphlow/pitchfork/service-trophy-proxy/internal/metrics"
	"github.com/ovaphlow/pitchfork/service-trophy-proxy/internal/psn"
)

const (
	// minTTL keeps a zero or negative vendor expires_in from producing an already-expired cache.
	minTTL = 60 * time.Second
	// refreshWindow is how close to expiry a restored session may be before it is refreshed.
	refreshWindow = 5 * time.Minute
)

// ErrMissingSecret means NPSSO is not configured; nothing can be exchanged.
var ErrMissingSecret = errors.New("auth: NPSSO secret is not set")

// SecretFromEnv reads the long-lived session secret.
func SecretFromEnv() string {
	return os.Getenv("NPSSO")
}

// Exchanger is the vendor side of the OAuth dance.
type Exchanger interface {
	ExchangeCode(ctx context.Context, npsso string) (string, error)
	ExchangeToken(ctx context.Context, code string) (*psn.TokenResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*psn.TokenResponse, error)
}

// Broker hands out a currently valid ServiceAuth, exchanging the npsso secret
// only when the cached one is missing or expired.
//
// The slot is locked only while it is read or replaced. Two callers that both
// find it expired will both exchange and the last one to finish wins.
type Broker struct {
	secret    string
	exchanger Exchanger
	store     repo.SessionStore
	logger    *zap.SugaredLogger
	now       func() time.Time

	mu     sync.Mutex
	cached *entity.ServiceAuth
}

type Option func(*Broker)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *Broker) { b.now = now }
}

// WithStore persists every new session and enables Restore.
func WithStore(s repo.SessionStore) Option {
	return func(b *Broker) { b.store = s }
}

func NewBroker(secret string, exchanger Exchanger, logger *zap.SugaredLogger, opts ...Option) *Broker {
	b := &Broker{secret: secret, exchanger: exchanger, logger: logger, now: time.Now}
	for _, o := range opts {
		o(b)
	}
	return b
}

// GetToken returns the cached session while it is valid, otherwise refreshes
// (when a refresh token is at hand) or runs the full exchange.
func (b *Broker) GetToken(ctx context.Context) (entity.ServiceAuth, error) {
	cur := b.current()
	if cur != nil && cur.Valid(b.now()) {
		return *cur, nil
	}
	if cur != nil && cur.RefreshToken != "" {
		a, err := b.refresh(ctx, cur.RefreshToken)
		if err == nil {
			return a, nil
		}
		b.logger.Warnw("refresh grant failed, running full exchange", "err", err)
	}
	return b.exchange(ctx)
}

// Invalidate drops the cached and persisted session; the next GetToken runs a full exchange.
func (b *Broker) Invalidate() {
	b.mu.Lock()
	b.cached = nil
	b.mu.Unlock()

	if b.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := b.store.Delete(ctx); err != nil {
		b.logger.Warnw("delete stored session failed", "err", err)
	}
}

// Restore adopts a persisted session. One that is within refreshWindow of
// expiry is refreshed; if that is impossible it is discarded.
func (b *Broker) Restore(ctx context.Context) error {
	if b.store == nil {
		return nil
	}
	saved, err := b.store.Load(ctx)
	if errors.Is(err, repo.ErrNoSession) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if b.now().Before(saved.ExpiresAt.Add(-refreshWindow)) {
		b.replace(saved)
		metrics.TokenExchanges.WithLabelValues("restored").Inc()
		b.logger.Infow("restored vendor session", "account_id", saved.AccountID, "expires_at", saved.ExpiresAt)
		return nil
	}
	if saved.RefreshToken != "" {
		_, rerr := b.refresh(ctx, saved.RefreshToken)
		if rerr == nil {
			return nil
		}
		b.logger.Warnw("stored session could not be refreshed", "err", rerr)
	}
	b.logger.Infow("discarding expired stored session", "account_id", saved.AccountID)
	return b.store.Delete(ctx)
}

func (b *Broker) exchange(ctx context.Context) (entity.ServiceAuth, error) {
	if b.secret == "" {
		return entity.ServiceAuth{}, ErrMissingSecret
	}
	code, err := b.exchanger.ExchangeCode(ctx, b.secret)
	if err != nil {
		return entity.ServiceAuth{}, fmt.Errorf("exchange npsso: %w", err)
	}
	tr, err := b.exchanger.ExchangeToken(ctx, code)
	if err != nil {
		return entity.ServiceAuth{}, fmt.Errorf("exchange code: %w", err)
	}
	a := b.fromResponse(tr, "")
	b.install(ctx, a)
	metrics.TokenExchanges.WithLabelValues("full").Inc()
	b.logger.Infow("vendor token acquired", "account_id", a.AccountID, "expires_at", a.ExpiresAt)
	return a, nil
}

func (b *Broker) refresh(ctx context.Context, refreshToken string) (entity.ServiceAuth, error) {
	tr, err := b.exchanger.RefreshToken(ctx, refreshToken)
	if err != nil {
		return entity.ServiceAuth{}, err
	}
	a := b.fromResponse(tr, refreshToken)
	b.install(ctx, a)
	metrics.TokenExchanges.WithLabelValues("refresh").Inc()
	b.logger.Infow("vendor token refreshed", "account_id", a.AccountID, "expires_at", a.ExpiresAt)
	return a, nil
}

func (b *Broker) fromResponse(tr *psn.TokenResponse, prevRefresh string) entity.ServiceAuth {
	ttl := time.Duration(tr.ExpiresIn) * time.Second
	if ttl < minTTL {
		ttl = minTTL
	}
	accountID := accountIDFromToken(tr.AccessToken)
	if accountID == "" {
		accountID = tr.AccountID
	}
	refresh := tr.RefreshToken
	if refresh == "" {
		refresh = prevRefresh
	}
	return entity.ServiceAuth{
		AccessToken:  tr.AccessToken,
		RefreshToken: refresh,
		TokenType:    tr.TokenType,
		AccountID:    accountID,
		ExpiresAt:    b.now().Add(ttl),
	}
}

func (b *Broker) install(ctx context.Context, a entity.ServiceAuth) {
	b.replace(&a)
	if b.store == nil {
		return
	}
	if err := b.store.Save(ctx, a); err != nil {
		b.logger.Warnw("persist session failed", "err", err)
	}
}

func (b *Broker) current() *entity.ServiceAuth {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cached
}

func (b *Broker) replace(a *entity.ServiceAuth) {
	b.mu.Lock()
	b.cached = a
	b.mu.Unlock()
}

// accountIDFromToken reads the account id out of the access token payload
// without verifying it. Any decode problem yields "".
func accountIDFromToken(token string) string {
	if token == "" {
		return ""
	}
	claims := jwt.MapClaims{}
	p := jwt.NewParser(jwt.WithJSONNumber(), jwt.WithPaddingAllowed())
	if _, _, err := p.ParseUnverified(token, claims); err != nil {
		return ""
	}
	for _, key := range []string{"sub", "account_id"} {
		switch v := claims[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case fmt.Stringer:
			return v.String()
		}
	}
	return ""
}
