package repo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/ovaphlow/pitchfork/service-trophy-proxy/internal/auth/entity"
)

// Keys the session is stored under. Every backend uses the same names so a
// session written by one deployment can be read by another.
const (
	KeyAccessToken  = "psn:access_token"
	KeyRefreshToken = "psn:refresh_token"
	KeyAccountID    = "psn:account_id"
	KeyTokenType    = "psn:token_type"
	KeyExpiresAt    = "psn:expires_at"
)

// AllKeys lists every session key.
var AllKeys = []string{KeyAccessToken, KeyRefreshToken, KeyAccountID, KeyTokenType, KeyExpiresAt}

// ErrNoSession is returned by Load when nothing usable is stored.
var ErrNoSession = errors.New("no stored session")

// SessionStore persists the broker's ServiceAuth across restarts.
type SessionStore interface {
	Load(ctx context.Context) (*entity.ServiceAuth, error)
	Save(ctx context.Context, a entity.ServiceAuth) error
	Delete(ctx context.Context) error
}

// toFields flattens a session into key/value strings; expiry is epoch milliseconds.
func toFields(a entity.ServiceAuth) map[string]string {
	return map[string]string{
		KeyAccessToken:  a.AccessToken,
		KeyRefreshToken: a.RefreshToken,
		KeyAccountID:    a.AccountID,
		KeyTokenType:    a.TokenType,
		KeyExpiresAt:    strconv.FormatInt(a.ExpiresAt.UnixMilli(), 10),
	}
}

func fromFields(f map[string]string) (*entity.ServiceAuth, error) {
	if f[KeyAccessToken] == "" {
		return nil, ErrNoSession
	}
	ms, err := strconv.ParseInt(f[KeyExpiresAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", KeyExpiresAt, err)
	}
	return &entity.ServiceAuth{
		AccessToken:  f[KeyAccessToken],
		RefreshToken: f[KeyRefreshToken],
		AccountID:    f[KeyAccountID],
		TokenType:    f[KeyTokenType],
		ExpiresAt:    time.UnixMilli(ms),
	}, nil
}

// MemoryStore keeps the session in process; it does not survive restarts.
type MemoryStore struct {
	mu     sync.Mutex
	fields map[string]string
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Load(ctx context.Context) (*entity.ServiceAuth, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fromFields(s.fields)
}

func (s *MemoryStore) Save(ctx context.Context, a entity.ServiceAuth) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fields = toFields(a)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fields = nil
	return nil
}
