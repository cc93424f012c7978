// Package session keeps authenticated identity in an external Redis store,
// keyed by an opaque token. The snapshot is a cache of the users row: it is
// refreshed on every authenticated request and served stale only when the
// database is unreachable.
package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"markethub/internal/models"
	"markethub/internal/repository"
)

// ErrNoSession is returned by a KV when the token is unknown or expired.
var ErrNoSession = errors.New("session: no such session")

const keyPrefix = "session:"

// KV is the minimal key/value surface the store needs. Redis backs it in
// production; tests use an in-memory map.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// RedisKV adapts a redis client to the KV interface.
type RedisKV struct {
	Client *redis.Client
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, error) {
	val, err := r.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoSession
	}
	return val, err
}

func (r *RedisKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.Client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisKV) Del(ctx context.Context, key string) error {
	return r.Client.Del(ctx, key).Err()
}

type Store struct {
	kv    KV
	users *repository.UserRepository
	ttl   time.Duration
}

func NewStore(kv KV, users *repository.UserRepository, ttl time.Duration) *Store {
	return &Store{kv: kv, users: users, ttl: ttl}
}

// Create mints a fresh opaque token for the identity and stores the snapshot
// with the full TTL.
func (s *Store) Create(ctx context.Context, ident *models.Identity) (string, error) {
	token := uuid.NewString()
	if err := s.put(ctx, token, ident); err != nil {
		return "", err
	}
	return token, nil
}

// Resolve looks up the token and refreshes the snapshot from the users
// table, catching out-of-band role and verification changes. A missing or
// expired token resolves to anonymous (nil identity, nil error). If the user
// row is gone the session is destroyed. A database error during refresh
// degrades to the stale snapshot rather than failing the request. Every
// successful resolve slides the expiry window.
func (s *Store) Resolve(ctx context.Context, token string) (*models.Identity, error) {
	raw, err := s.kv.Get(ctx, keyPrefix+token)
	if errors.Is(err, ErrNoSession) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session lookup: %w", err)
	}

	var cached models.Identity
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		// Corrupt snapshot: drop the session rather than guess.
		_ = s.kv.Del(ctx, keyPrefix+token)
		return nil, nil
	}

	fresh, err := s.users.GetIdentity(ctx, cached.ID)
	if errors.Is(err, sql.ErrNoRows) {
		_ = s.kv.Del(ctx, keyPrefix+token)
		return nil, nil
	}
	if err != nil {
		log.Printf("session refresh for user %d failed, serving stale snapshot: %v", cached.ID, err)
		_ = s.put(ctx, token, &cached)
		return &cached, nil
	}

	if err := s.put(ctx, token, fresh); err != nil {
		log.Printf("session snapshot write failed: %v", err)
	}
	return fresh, nil
}

// Destroy removes the session. Destroying a token that no longer exists is
// still success.
func (s *Store) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	err := s.kv.Del(ctx, keyPrefix+token)
	if errors.Is(err, ErrNoSession) {
		return nil
	}
	return err
}

func (s *Store) put(ctx context.Context, token string, ident *models.Identity) error {
	raw, err := json.Marshal(ident)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, keyPrefix+token, string(raw), s.ttl)
}
