package session

import "time"

// Role distinguishes customer sessions from back-office sessions.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleAdmin
}

// Session is a server-side login record. Only the hash of the issued token
// is stored.
type Session struct {
	ID         string    `json:"id"`
	Role       Role      `json:"role"`
	SubjectID  int64     `json:"subject_id"`
	Username   string    `json:"username"`
	Name       string    `json:"name"`
	TokenHash  string    `json:"token_hash"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// Expired reports whether the session is no longer usable at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
