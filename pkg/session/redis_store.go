package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultTTL is the sliding session expiry: 24 hours from last activity.
	DefaultTTL = 86400 * time.Second

	// maxUpdateAttempts bounds the optimistic-lock retry loop. The retry is
	// per-session contention only (duplicate client retries), so a small
	// budget is plenty; exhausting it surfaces ErrConflict instead of
	// spinning forever.
	maxUpdateAttempts = 8
)

// RedisStore implements Store on Redis. Updates use WATCH/MULTI/EXEC so
// concurrent writers for the same session serialize instead of losing writes.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	mu     sync.RWMutex
	closed bool
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	// Addr is the Redis server address (host:port).
	Addr string
	// Password is the Redis password (optional).
	Password string
	// DB is the Redis database number.
	DB int
	// Prefix is the key prefix for session keys (default: "session:").
	Prefix string
	// TTL is the sliding session expiry (default: DefaultTTL).
	TTL time.Duration
	// PoolSize is the connection pool size (default: 10).
	PoolSize int
}

// NewRedisStore creates a Redis-backed session store and verifies connectivity.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 10
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: poolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return newRedisStore(client, cfg.Prefix, cfg.TTL), nil
}

// NewRedisStoreFromClient creates a store from an existing client.
// This is useful for testing with miniredis.
func NewRedisStoreFromClient(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	return newRedisStore(client, prefix, ttl)
}

func newRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "session:"
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

func (s *RedisStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// Load retrieves the session for id. A missing or undecodable document is
// replaced with a fresh default session, persisted with the TTL. Reading an
// existing session refreshes its expiry.
func (s *RedisStore) Load(ctx context.Context, id string) (*Session, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return s.Reset(ctx, id)
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		// A corrupt document is unrecoverable; start the conversation over.
		return s.Reset(ctx, id)
	}

	if err := s.client.Expire(ctx, s.key(id), s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("refresh ttl: %w", err)
	}

	return &sess, nil
}

// Update runs one read-modify-write cycle under WATCH. When a concurrent
// commit invalidates the read, the cycle is retried under exponential backoff
// up to maxUpdateAttempts before giving up with ErrConflict.
func (s *RedisStore) Update(ctx context.Context, id string, mutate func(*Session) error) (*Session, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	key := s.key(id)

	attempt := func() (*Session, error) {
		var committed *Session

		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			sess := NewSession(id)
			data, err := tx.Get(ctx, key).Bytes()
			switch {
			case err == nil:
				if uerr := json.Unmarshal(data, sess); uerr != nil {
					sess = NewSession(id)
				}
			case errors.Is(err, redis.Nil):
				// First write for this session.
			default:
				return fmt.Errorf("get session: %w", err)
			}

			if err := mutate(sess); err != nil {
				return err
			}
			sess.LastActive = time.Now().UTC()

			out, err := json.Marshal(sess)
			if err != nil {
				return fmt.Errorf("marshal session: %w", err)
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, out, s.ttl)
				return nil
			})
			if err != nil {
				return err
			}
			committed = sess
			return nil
		}, key)

		if err != nil {
			if errors.Is(err, redis.TxFailedErr) {
				return nil, err // retryable conflict
			}
			return nil, backoff.Permanent(err)
		}
		return committed, nil
	}

	sess, err := backoff.Retry(ctx, attempt,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(maxUpdateAttempts),
	)
	if err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return nil, fmt.Errorf("%w: %s", ErrConflict, id)
		}
		return nil, err
	}
	return sess, nil
}

// Reset overwrites the session with a fresh default document.
func (s *RedisStore) Reset(ctx context.Context, id string) (*Session, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	sess := NewSession(id)
	data, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(id), data, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("set session: %w", err)
	}
	return sess, nil
}

// Ping checks if the Redis connection is alive.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.client.Ping(ctx).Err()
}

// Close releases resources held by the store.
func (s *RedisStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.client.Close()
}
