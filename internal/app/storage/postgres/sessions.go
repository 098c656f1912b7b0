package postgres

import (
	"context"
	"time"

	"github.com/dabbahouse/foodorder/internal/app/domain/session"
)

type sessionRow struct {
	ID         string    `db:"id"`
	Role       string    `db:"role"`
	SubjectID  int64     `db:"subject_id"`
	Username   string    `db:"username"`
	Name       string    `db:"name"`
	TokenHash  string    `db:"token_hash"`
	CreatedAt  time.Time `db:"created_at"`
	ExpiresAt  time.Time `db:"expires_at"`
	LastSeenAt time.Time `db:"last_seen_at"`
}

// --- SessionStore ------------------------------------------------------------

func (s *Store) CreateSession(ctx context.Context, sess session.Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, role, subject_id, username, name, token_hash, created_at, expires_at, last_seen_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, sess.ID, string(sess.Role), sess.SubjectID, sess.Username, sess.Name, sess.TokenHash,
		sess.CreatedAt, sess.ExpiresAt, sess.LastSeenAt)
	return mapError(err, "session", sess.ID)
}

func (s *Store) GetSessionByTokenHash(ctx context.Context, tokenHash string) (session.Session, error) {
	var row sessionRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, role, subject_id, username, name, token_hash, created_at, expires_at, last_seen_at
		FROM sessions
		WHERE token_hash = $1
	`, tokenHash)
	if err != nil {
		return session.Session{}, mapError(err, "session", "token")
	}
	return session.Session{
		ID:         row.ID,
		Role:       session.Role(row.Role),
		SubjectID:  row.SubjectID,
		Username:   row.Username,
		Name:       row.Name,
		TokenHash:  row.TokenHash,
		CreatedAt:  row.CreatedAt,
		ExpiresAt:  row.ExpiresAt,
		LastSeenAt: row.LastSeenAt,
	}, nil
}

func (s *Store) TouchSession(ctx context.Context, tokenHash string, seenAt, expiresAt time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET last_seen_at = $2, expires_at = $3 WHERE token_hash = $1
	`, tokenHash, seenAt, expiresAt)
	if err != nil {
		return mapError(err, "session", "token")
	}
	return notFoundOnNoRows(result, "session", "token")
}

func (s *Store) DeleteSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token_hash = $1`, tokenHash)
	return mapError(err, "session", "token")
}

func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, mapError(err, "session", "expired")
	}
	n, _ := result.RowsAffected()
	return int(n), nil
}
