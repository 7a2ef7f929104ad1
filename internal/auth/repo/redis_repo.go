package repo

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ovaphlow/pitchfork/service-trophy-proxy/internal/auth/entity"
)

// RedisStore keeps one redis key per session field.
type RedisStore struct {
	c *goredis.Client
	// Grace keeps keys alive past access-token expiry so the refresh token can still be used.
	Grace time.Duration
}

func NewRedisStore(c *goredis.Client) *RedisStore {
	return &RedisStore{c: c, Grace: time.Hour}
}

func (s *RedisStore) Load(ctx context.Context) (*entity.ServiceAuth, error) {
	vals, err := s.c.MGet(ctx, AllKeys...).Result()
	if err != nil {
		return nil, err
	}
	fields := make(map[string]string, len(AllKeys))
	for i, v := range vals {
		if str, ok := v.(string); ok {
			fields[AllKeys[i]] = str
		}
	}
	return fromFields(fields)
}

func (s *RedisStore) Save(ctx context.Context, a entity.ServiceAuth) error {
	ttl := time.Until(a.ExpiresAt) + s.Grace
	if ttl <= 0 {
		ttl = s.Grace
	}
	fields := toFields(a)
	_, err := s.c.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		for _, k := range AllKeys {
			p.Set(ctx, k, fields[k], ttl)
		}
		return nil
	})
	return err
}

func (s *RedisStore) Delete(ctx context.Context) error {
	return s.c.Del(ctx, AllKeys...).Err()
}
