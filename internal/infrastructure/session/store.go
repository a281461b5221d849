package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrSessionNotFound is returned by stores for unknown or expired ids
var ErrSessionNotFound = errors.New("session not found")

// Store keeps server-side session state keyed by session id
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Set(ctx context.Context, sess *Session, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

// MemoryStore is a process-local Store. Expired entries are dropped on read.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}

	if sess.Expired(s.now()) {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		return nil, ErrSessionNotFound
	}

	cp := *sess
	return &cp, nil
}

func (s *MemoryStore) Set(_ context.Context, sess *Session, ttl time.Duration) error {
	cp := *sess
	cp.ExpiresAt = s.now().Add(ttl)

	s.mu.Lock()
	s.sessions[sess.ID] = &cp
	s.mu.Unlock()

	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()

	return nil
}

// Len reports how many sessions are held, expired or not
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// RedisStore keeps sessions in Redis with native key expiry
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore wraps an existing client
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "session:",
	}
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	data, err := s.client.Get(ctx, s.prefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}

	return &sess, nil
}

func (s *RedisStore) Set(ctx context.Context, sess *Session, ttl time.Duration) error {
	cp := *sess
	cp.ExpiresAt = time.Now().Add(ttl)

	data, err := json.Marshal(&cp)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	if err := s.client.Set(ctx, s.prefix+sess.ID, data, ttl).Err(); err != nil {
		return fmt.Errorf("set session: %w", err)
	}

	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.prefix+id).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Ping checks the Redis connection
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
