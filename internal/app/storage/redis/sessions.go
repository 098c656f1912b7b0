// Package redis stores login sessions in Redis so several service instances
// can share them. Keys expire with the session.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/dabbahouse/foodorder/internal/app/domain/session"
	"github.com/dabbahouse/foodorder/internal/app/storage"
	apperrors "github.com/dabbahouse/foodorder/internal/errors"
)

const keyPrefix = "foodorder:session:"

// SessionStore implements storage.SessionStore on Redis.
type SessionStore struct {
	client goredis.Cmdable
	now    func() time.Time
}

var _ storage.SessionStore = (*SessionStore)(nil)

// NewSessionStore wraps an existing client.
func NewSessionStore(client goredis.Cmdable) *SessionStore {
	return &SessionStore{client: client, now: time.Now}
}

// Dial connects to addr and verifies the connection.
func Dial(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return client, nil
}

func key(tokenHash string) string { return keyPrefix + tokenHash }

func (s *SessionStore) ttl(expiresAt time.Time) time.Duration {
	return expiresAt.Sub(s.now())
}

func (s *SessionStore) CreateSession(ctx context.Context, sess session.Session) error {
	ttl := s.ttl(sess.ExpiresAt)
	if ttl <= 0 {
		return apperrors.Validation("session already expired")
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	ok, err := s.client.SetNX(ctx, key(sess.TokenHash), data, ttl).Result()
	if err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	if !ok {
		return apperrors.DuplicateKey("session", "token_hash")
	}
	return nil
}

func (s *SessionStore) GetSessionByTokenHash(ctx context.Context, tokenHash string) (session.Session, error) {
	data, err := s.client.Get(ctx, key(tokenHash)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return session.Session{}, apperrors.NotFound("session", "token")
	}
	if err != nil {
		return session.Session{}, fmt.Errorf("load session: %w", err)
	}
	var sess session.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return session.Session{}, fmt.Errorf("decode session: %w", err)
	}
	return sess, nil
}

func (s *SessionStore) TouchSession(ctx context.Context, tokenHash string, seenAt, expiresAt time.Time) error {
	sess, err := s.GetSessionByTokenHash(ctx, tokenHash)
	if err != nil {
		return err
	}
	ttl := s.ttl(expiresAt)
	if ttl <= 0 {
		return s.DeleteSession(ctx, tokenHash)
	}
	sess.LastSeenAt = seenAt
	sess.ExpiresAt = expiresAt
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, key(tokenHash), data, ttl).Err(); err != nil {
		return fmt.Errorf("refresh session: %w", err)
	}
	return nil
}

func (s *SessionStore) DeleteSession(ctx context.Context, tokenHash string) error {
	if err := s.client.Del(ctx, key(tokenHash)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions is a no-op: Redis expires keys on its own.
func (s *SessionStore) DeleteExpiredSessions(context.Context, time.Time) (int, error) {
	return 0, nil
}
