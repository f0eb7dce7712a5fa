// Package tokens keeps the ids (jti) of revoked JWTs until the tokens expire.
package tokens

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/KhanhMinhDz/CourseHub-Project/core"
)

const keyPrefix = "coursehub:revoked-jti:"

var nowFunc = time.Now // mockable

type Store interface {
	// Revoke marks jti as revoked until exp. Tokens already expired are ignored.
	Revoke(ctx context.Context, jti string, exp time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// NewStore returns a Redis backed Store when an address is configured and an in-memory one otherwise.
func NewStore(conf *core.Config) (Store, error) {
	if conf.Redis.Addr == "" {
		return NewMemoryStore(), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return NewRedisStore(client), nil
}

type RedisStore struct {
	client *redis.Client
}

var _ Store = (*RedisStore)(nil) // interface compliance check

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Revoke(ctx context.Context, jti string, exp time.Time) error {
	ttl := exp.Sub(nowFunc())
	if jti == "" || ttl <= 0 {
		return nil
	}
	return errors.Wrap(s.client.Set(ctx, keyPrefix+jti, 1, ttl).Err(), "storing revoked token")
}

func (s *RedisStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	n, err := s.client.Exists(ctx, keyPrefix+jti).Result()
	if err != nil {
		return false, errors.Wrap(err, "checking revoked token")
	}
	return n > 0, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// MemoryStore is a Store for single-process deployments and tests.
type MemoryStore struct {
	mu      sync.Mutex
	revoked map[string]time.Time // {jti: expiry}
}

var _ Store = (*MemoryStore)(nil) // interface compliance check

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{revoked: make(map[string]time.Time)}
}

func (s *MemoryStore) Revoke(ctx context.Context, jti string, exp time.Time) error {
	now := nowFunc()
	if jti == "" || !exp.After(now) {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, e := range s.revoked {
		if !e.After(now) {
			delete(s.revoked, k)
		}
	}
	s.revoked[jti] = exp
	return nil
}

func (s *MemoryStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.revoked[jti]
	return ok && exp.After(nowFunc()), nil
}
