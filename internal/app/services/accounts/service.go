package accounts

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/dabbahouse/foodorder/internal/app/domain/identity"
	"github.com/dabbahouse/foodorder/internal/app/storage"
	apperrors "github.com/dabbahouse/foodorder/internal/errors"
	"github.com/dabbahouse/foodorder/pkg/logger"
)

const (
	minPasswordLength = 4
	// bcrypt ignores everything past 72 bytes.
	maxPasswordLength = 72
)

// Service manages customer and admin identities and verifies credentials.
type Service struct {
	users     storage.UserStore
	admins    storage.AdminStore
	allowlist map[string]struct{}
	cost      int
	log       *logger.Logger

	dummyOnce sync.Once
	dummyHash []byte
}

// Option customises a Service.
type Option func(*Service)

// WithBcryptCost overrides the hashing cost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

// New constructs an identity service. allowlist holds the lower-cased emails
// permitted to register as admins; nil means nobody may.
func New(users storage.UserStore, admins storage.AdminStore, allowlist map[string]struct{}, log *logger.Logger, opts ...Option) *Service {
	if log == nil {
		log = logger.NewDefault("accounts")
	}
	normalized := make(map[string]struct{}, len(allowlist))
	for email := range allowlist {
		normalized[identity.NormalizeEmail(email)] = struct{}{}
	}
	s := &Service{
		users:     users,
		admins:    admins,
		allowlist: normalized,
		cost:      bcrypt.DefaultCost,
		log:       log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterUser creates a customer account.
func (s *Service) RegisterUser(ctx context.Context, email, password, confirm string) (identity.User, error) {
	email = identity.NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return identity.User{}, err
	}
	if err := validatePassword(password); err != nil {
		return identity.User{}, err
	}
	if password != confirm {
		return identity.User{}, apperrors.Validation("passwords do not match")
	}

	hash, err := s.hash(password)
	if err != nil {
		return identity.User{}, err
	}
	user, err := s.users.CreateUser(ctx, identity.User{
		Email:        email,
		PasswordHash: hash,
		Active:       true,
	})
	if err != nil {
		return identity.User{}, err
	}
	s.log.WithField("user_id", user.ID).Info("user registered")
	return user, nil
}

// AuthenticateUser verifies an email and password. Unknown emails, inactive
// accounts and wrong passwords are indistinguishable to the caller.
func (s *Service) AuthenticateUser(ctx context.Context, email, password string) (identity.User, error) {
	user, err := s.users.GetUserByEmail(ctx, identity.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.burnCompare(password)
			return identity.User{}, apperrors.InvalidCredentials()
		}
		return identity.User{}, err
	}
	if !s.verify(user.PasswordHash, password) || !user.Active {
		return identity.User{}, apperrors.InvalidCredentials()
	}
	return user, nil
}

// ResolveSSOUser returns the user owning email, creating one with an
// unusable random password when none exists.
func (s *Service) ResolveSSOUser(ctx context.Context, email, name string) (identity.User, bool, error) {
	email = identity.NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return identity.User{}, false, err
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err == nil {
		if !user.Active {
			return identity.User{}, false, apperrors.InvalidCredentials()
		}
		return user, false, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return identity.User{}, false, err
	}

	secret, err := randomSecret()
	if err != nil {
		return identity.User{}, false, err
	}
	hash, err := s.hash(secret)
	if err != nil {
		return identity.User{}, false, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	user, err = s.users.CreateUser(ctx, identity.User{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Active:       true,
	})
	if errors.Is(err, apperrors.ErrDuplicateKey) {
		// Lost a race with a concurrent first login for the same email.
		user, err = s.users.GetUserByEmail(ctx, email)
		return user, false, err
	}
	if err != nil {
		return identity.User{}, false, err
	}
	s.log.WithField("user_id", user.ID).Info("user created from single sign-on")
	return user, true, nil
}

// GetUser returns a user by id.
func (s *Service) GetUser(ctx context.Context, id int64) (identity.User, error) {
	return s.users.GetUser(ctx, id)
}

// UpdateProfile overwrites the user's delivery details.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, profile identity.Profile) (identity.User, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return identity.User{}, err
	}
	user.ApplyProfile(profile)
	updated, err := s.users.UpdateUser(ctx, user)
	if err != nil {
		return identity.User{}, err
	}
	s.log.WithField("user_id", userID).
		WithField("profile_complete", updated.ProfileComplete).
		Info("profile updated")
	return updated, nil
}

// ListUsers returns every customer account.
func (s *Service) ListUsers(ctx context.Context) ([]identity.User, error) {
	return s.users.ListUsers(ctx)
}

// CountUsers returns the number of customer accounts.
func (s *Service) CountUsers(ctx context.Context) (int, error) {
	return s.users.CountUsers(ctx)
}

// AdminRegistration is the input for RegisterAdmin.
type AdminRegistration struct {
	Username string
	Email    string
	Password string
	Name     string
}

// AdminAllowed reports whether email may register as an admin.
func (s *Service) AdminAllowed(email string) bool {
	_, ok := s.allowlist[identity.NormalizeEmail(email)]
	return ok
}

// RegisterAdmin creates an admin. The email must be on the allow-list; this is
// checked before anything else in the request.
func (s *Service) RegisterAdmin(ctx context.Context, reg AdminRegistration) (identity.Admin, error) {
	if !s.AdminAllowed(reg.Email) {
		s.log.WithField("email", identity.NormalizeEmail(reg.Email)).Warn("admin registration refused")
		return identity.Admin{}, apperrors.Forbidden("email is not authorized for admin registration")
	}
	return s.createAdmin(ctx, reg)
}

// EnsureAdmin creates the admin or resets its password and email. It skips
// the allow-list and is meant for provisioning tools.
func (s *Service) EnsureAdmin(ctx context.Context, reg AdminRegistration) (identity.Admin, error) {
	existing, err := s.admins.GetAdminByUsername(ctx, strings.TrimSpace(reg.Username))
	if errors.Is(err, apperrors.ErrNotFound) {
		return s.createAdmin(ctx, reg)
	}
	if err != nil {
		return identity.Admin{}, err
	}
	if err := validatePassword(reg.Password); err != nil {
		return identity.Admin{}, err
	}
	hash, err := s.hash(reg.Password)
	if err != nil {
		return identity.Admin{}, err
	}
	existing.PasswordHash = hash
	existing.Active = true
	if reg.Email != "" {
		existing.Email = identity.NormalizeEmail(reg.Email)
	}
	if reg.Name != "" {
		existing.Name = reg.Name
	}
	return s.admins.UpdateAdmin(ctx, existing)
}

func (s *Service) createAdmin(ctx context.Context, reg AdminRegistration) (identity.Admin, error) {
	username := strings.TrimSpace(reg.Username)
	email := identity.NormalizeEmail(reg.Email)
	if username == "" {
		return identity.Admin{}, apperrors.Validation("username is required")
	}
	if err := validateEmail(email); err != nil {
		return identity.Admin{}, err
	}
	if err := validatePassword(reg.Password); err != nil {
		return identity.Admin{}, err
	}
	hash, err := s.hash(reg.Password)
	if err != nil {
		return identity.Admin{}, err
	}
	name := strings.TrimSpace(reg.Name)
	if name == "" {
		name = username
	}
	admin, err := s.admins.CreateAdmin(ctx, identity.Admin{
		Username:     username,
		PasswordHash: hash,
		Email:        email,
		Name:         name,
		Active:       true,
	})
	if err != nil {
		return identity.Admin{}, err
	}
	s.log.WithField("admin_id", admin.ID).WithField("username", admin.Username).Info("admin registered")
	return admin, nil
}

// AuthenticateAdmin verifies a username and password.
func (s *Service) AuthenticateAdmin(ctx context.Context, username, password string) (identity.Admin, error) {
	admin, err := s.admins.GetAdminByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.burnCompare(password)
			return identity.Admin{}, apperrors.InvalidCredentials()
		}
		return identity.Admin{}, err
	}
	if !s.verify(admin.PasswordHash, password) || !admin.Active {
		return identity.Admin{}, apperrors.InvalidCredentials()
	}
	return admin, nil
}

// GetAdmin returns an admin by id.
func (s *Service) GetAdmin(ctx context.Context, id int64) (identity.Admin, error) {
	return s.admins.GetAdmin(ctx, id)
}

// ListAdmins returns every admin.
func (s *Service) ListAdmins(ctx context.Context) ([]identity.Admin, error) {
	return s.admins.ListAdmins(ctx)
}

func (s *Service) hash(password string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", apperrors.Internal("hash password", err)
	}
	return string(out), nil
}

func (s *Service) verify(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// burnCompare spends the same bcrypt work as a real check so response time
// does not reveal whether an identity exists.
func (s *Service) burnCompare(password string) {
	s.dummyOnce.Do(func() {
		secret, err := randomSecret()
		if err != nil {
			secret = "placeholder"
		}
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte(secret), s.cost)
	})
	_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
}

func validateEmail(email string) error {
	if email == "" {
		return apperrors.Validation("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return apperrors.Validationf("invalid email %q", email)
	}
	return nil
}

func validatePassword(password string) error {
	switch {
	case len(password) < minPasswordLength:
		return apperrors.Validationf("password must be at least %d characters", minPasswordLength)
	case len(password) > maxPasswordLength:
		return apperrors.Validationf("password must be at most %d bytes", maxPasswordLength)
	}
	return nil
}

func randomSecret() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
