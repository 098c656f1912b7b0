// Package auth issues and resolves login sessions for customers and admins.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dabbahouse/foodorder/internal/app/domain/session"
	"github.com/dabbahouse/foodorder/internal/app/storage"
	apperrors "github.com/dabbahouse/foodorder/internal/errors"
	"github.com/dabbahouse/foodorder/internal/httputil"
	"github.com/dabbahouse/foodorder/pkg/logger"
)

const (
	// CustomerCookie carries the storefront session.
	CustomerCookie = "fo_session"
	// AdminCookie carries the back-office session.
	AdminCookie = "fo_admin"

	tokenIssuer     = "foodorder"
	minSecretLength = 16
)

// CookieName returns the cookie used for role.
func CookieName(role session.Role) string {
	if role == session.RoleAdmin {
		return AdminCookie
	}
	return CustomerCookie
}

// Claims is the payload of a session token. The token only points at the
// server-side session; expiry is enforced there.
type Claims struct {
	SessionID string       `json:"sid"`
	Role      session.Role `json:"role"`
	jwt.RegisteredClaims
}

// Principal is the authenticated caller attached to a request context.
type Principal struct {
	Role      session.Role
	SubjectID int64
	Username  string
	Name      string
	SessionID string
	ExpiresAt time.Time
}

// Config configures a Manager.
type Config struct {
	Secret       string
	Lifetime     time.Duration
	CookieSecure bool
}

// Manager issues session tokens and resolves them on incoming requests.
type Manager struct {
	store    storage.SessionStore
	secret   []byte
	lifetime time.Duration
	secure   bool
	now      func() time.Time
	log      *logger.Logger
}

// NewManager constructs a session manager.
func NewManager(store storage.SessionStore, cfg Config, log *logger.Logger) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if len(cfg.Secret) < minSecretLength {
		return nil, fmt.Errorf("session secret must be at least %d characters", minSecretLength)
	}
	if cfg.Lifetime <= 0 {
		cfg.Lifetime = 2 * time.Hour
	}
	if log == nil {
		log = logger.NewDefault("auth")
	}
	return &Manager{
		store:    store,
		secret:   []byte(cfg.Secret),
		lifetime: cfg.Lifetime,
		secure:   cfg.CookieSecure,
		now:      func() time.Time { return time.Now().UTC() },
		log:      log,
	}, nil
}

// Lifetime returns the sliding session lifetime.
func (m *Manager) Lifetime() time.Duration { return m.lifetime }

// Login creates a session for the subject, sets the role cookie and returns
// the token for clients that prefer the Authorization header.
func (m *Manager) Login(ctx context.Context, w http.ResponseWriter, p Principal) (string, error) {
	if !p.Role.Valid() {
		return "", fmt.Errorf("invalid role %q", p.Role)
	}
	now := m.now()
	sid := uuid.NewString()

	jti := make([]byte, 16)
	if _, err := rand.Read(jti); err != nil {
		return "", apperrors.Internal("generate token id", err)
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		SessionID: sid,
		Role:      p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  fmt.Sprint(p.SubjectID),
			Issuer:   tokenIssuer,
			IssuedAt: jwt.NewNumericDate(now),
			ID:       hex.EncodeToString(jti),
		},
	}).SignedString(m.secret)
	if err != nil {
		return "", apperrors.Internal("sign session token", err)
	}

	sess := session.Session{
		ID:         sid,
		Role:       p.Role,
		SubjectID:  p.SubjectID,
		Username:   p.Username,
		Name:       p.Name,
		TokenHash:  hashToken(token),
		CreatedAt:  now,
		ExpiresAt:  now.Add(m.lifetime),
		LastSeenAt: now,
	}
	if err := m.store.CreateSession(ctx, sess); err != nil {
		return "", err
	}
	m.setCookie(w, p.Role, token)
	m.log.WithField("role", p.Role).
		WithField("subject_id", p.SubjectID).
		WithField("session_id", sid).
		Info("session created")
	return token, nil
}

// Logout ends the caller's session for role, if any, and clears the cookie.
func (m *Manager) Logout(ctx context.Context, w http.ResponseWriter, r *http.Request, role session.Role) error {
	defer m.clearCookie(w, role)

	for _, token := range m.candidateTokens(r, role) {
		claims, err := m.parse(token)
		if err != nil || claims.Role != role {
			continue
		}
		if err := m.store.DeleteSession(ctx, hashToken(token)); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return err
		}
		m.log.WithField("role", role).WithField("session_id", claims.SessionID).Info("session ended")
		return nil
	}
	return nil
}

// Resolve attaches every valid session on the request to its context and
// slides their expiry. Requests without sessions pass through untouched.
func (m *Manager) Resolve(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		for _, role := range []session.Role{session.RoleCustomer, session.RoleAdmin} {
			p, ok := m.resolveRole(ctx, w, r, role)
			if ok {
				ctx = WithPrincipal(ctx, p)
			}
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Manager) resolveRole(ctx context.Context, w http.ResponseWriter, r *http.Request, role session.Role) (Principal, bool) {
	cookieToken := cookieValue(r, CookieName(role))
	for _, token := range m.candidateTokens(r, role) {
		p, err := m.Authenticate(ctx, token, role)
		if err != nil {
			if token == cookieToken && apperrors.HTTPStatus(err) == http.StatusUnauthorized {
				m.clearCookie(w, role)
			}
			continue
		}
		if token == cookieToken {
			m.setCookie(w, role, token)
		}
		return p, true
	}
	return Principal{}, false
}

// Authenticate validates token for role, refreshes the session expiry and
// returns the session's principal.
func (m *Manager) Authenticate(ctx context.Context, token string, role session.Role) (Principal, error) {
	claims, err := m.parse(token)
	if err != nil {
		return Principal{}, err
	}
	if claims.Role != role {
		return Principal{}, apperrors.InvalidToken(nil).WithDetails("reason", "role mismatch")
	}

	hash := hashToken(token)
	sess, err := m.store.GetSessionByTokenHash(ctx, hash)
	if errors.Is(err, apperrors.ErrNotFound) {
		return Principal{}, apperrors.Unauthorized("session expired")
	}
	if err != nil {
		return Principal{}, err
	}
	now := m.now()
	if sess.ID != claims.SessionID || sess.Role != role {
		return Principal{}, apperrors.Unauthorized("session expired")
	}
	if sess.Expired(now) {
		_ = m.store.DeleteSession(ctx, hash)
		return Principal{}, apperrors.Unauthorized("session expired")
	}

	expires := now.Add(m.lifetime)
	if err := m.store.TouchSession(ctx, hash, now, expires); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return Principal{}, apperrors.Unauthorized("session expired")
		}
		return Principal{}, err
	}
	return Principal{
		Role:      sess.Role,
		SubjectID: sess.SubjectID,
		Username:  sess.Username,
		Name:      sess.Name,
		SessionID: sess.ID,
		ExpiresAt: expires,
	}, nil
}

// RequireRole rejects requests without a resolved session for role.
func RequireRole(role session.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := FromContext(r.Context(), role); !ok {
				msg := "login required"
				if role == session.RoleAdmin {
					msg = "admin login required"
				}
				httputil.Unauthorized(w, msg)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PurgeExpired removes sessions past their expiry.
func (m *Manager) PurgeExpired(ctx context.Context) (int, error) {
	return m.store.DeleteExpiredSessions(ctx, m.now())
}

func (m *Manager) parse(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, apperrors.InvalidToken(err)
	}
	if !parsed.Valid || claims.SessionID == "" {
		return nil, apperrors.InvalidToken(nil)
	}
	return claims, nil
}

// candidateTokens returns the role cookie first, then a bearer token.
func (m *Manager) candidateTokens(r *http.Request, role session.Role) []string {
	var tokens []string
	if v := cookieValue(r, CookieName(role)); v != "" {
		tokens = append(tokens, v)
	}
	if v := bearerToken(r); v != "" && (len(tokens) == 0 || tokens[0] != v) {
		tokens = append(tokens, v)
	}
	return tokens
}

func (m *Manager) setCookie(w http.ResponseWriter, role session.Role, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName(role),
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.lifetime / time.Second),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *Manager) clearCookie(w http.ResponseWriter, role session.Role) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName(role),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

type principalKey struct{ role session.Role }

// WithPrincipal returns a context carrying p under its role.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{p.Role}, p)
}

// FromContext returns the principal for role, if one was resolved.
func FromContext(ctx context.Context, role session.Role) (Principal, bool) {
	p, ok := ctx.Value(principalKey{role}).(Principal)
	return p, ok
}

// Customer returns the customer principal, if any.
func Customer(ctx context.Context) (Principal, bool) {
	return FromContext(ctx, session.RoleCustomer)
}

// Admin returns the admin principal, if any.
func Admin(ctx context.Context) (Principal, bool) {
	return FromContext(ctx, session.RoleAdmin)
}
