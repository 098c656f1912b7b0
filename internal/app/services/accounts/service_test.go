package accounts

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/dabbahouse/foodorder/internal/app/domain/identity"
	"github.com/dabbahouse/foodorder/internal/app/storage/memory"
	apperrors "github.com/dabbahouse/foodorder/internal/errors"
	"github.com/dabbahouse/foodorder/pkg/testutil"
)

func newService(allow ...string) *Service {
	store := memory.New()
	log := testutil.QuietLogger("accounts-test")
	allowlist := make(map[string]struct{})
	for _, email := range allow {
		allowlist[email] = struct{}{}
	}
	return New(store, store, allowlist, log, WithBcryptCost(bcrypt.MinCost))
}

func TestRegisterAndAuthenticateUser(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	user, err := svc.RegisterUser(ctx, "Amna@Example.com", "secret", "secret")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.ID == 0 || user.Email != "amna@example.com" {
		t.Fatalf("unexpected user: %+v", user)
	}
	if user.PasswordHash == "secret" {
		t.Fatalf("password stored in clear")
	}

	if _, err := svc.AuthenticateUser(ctx, "amna@example.com", "secret"); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if _, err := svc.AuthenticateUser(ctx, "amna@example.com", "wrong"); !errors.Is(err, apperrors.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := svc.AuthenticateUser(ctx, "nobody@example.com", "secret"); !errors.Is(err, apperrors.ErrInvalidCredentials) {
		t.Fatalf("unknown email must look like a bad password, got %v", err)
	}
}

func TestRegisterUserDuplicateEmail(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	if _, err := svc.RegisterUser(ctx, "dup@example.com", "secret", "secret"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, err := svc.RegisterUser(ctx, "DUP@example.com", "other1", "other1")
	if !errors.Is(err, apperrors.ErrDuplicateKey) {
		t.Fatalf("expected duplicate key, got %v", err)
	}
}

func TestRegisterUserValidation(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	cases := map[string][3]string{
		"mismatch":  {"a@example.com", "secret", "secreT"},
		"short":     {"a@example.com", "abc", "abc"},
		"bad email": {"not-an-email", "secret", "secret"},
		"no email":  {"", "secret", "secret"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.RegisterUser(ctx, in[0], in[1], in[2]); !errors.Is(err, apperrors.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestUpdateProfileSetsCompleteness(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	user, _ := svc.RegisterUser(ctx, "p@example.com", "secret", "secret")

	updated, err := svc.UpdateProfile(ctx, user.ID, identity.Profile{
		Name: "P", Phone: "0300", Country: "PK", Province: "Sindh", Address: "Clifton",
	})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if !updated.ProfileComplete {
		t.Fatalf("expected profile complete")
	}

	updated, err = svc.UpdateProfile(ctx, user.ID, identity.Profile{Name: "P"})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if updated.ProfileComplete || updated.Address != "" {
		t.Fatalf("profile should be overwritten and incomplete: %+v", updated)
	}
}

func TestResolveSSOUser(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	local, _ := svc.RegisterUser(ctx, "local@example.com", "secret", "secret")

	got, created, err := svc.ResolveSSOUser(ctx, "LOCAL@example.com", "Local Person")
	if err != nil || created || got.ID != local.ID {
		t.Fatalf("expected existing local account, got %+v created=%v err=%v", got, created, err)
	}

	fresh, created, err := svc.ResolveSSOUser(ctx, "newcomer@example.com", "")
	if err != nil || !created {
		t.Fatalf("expected new user, created=%v err=%v", created, err)
	}
	if fresh.Name != "newcomer" {
		t.Fatalf("name fallback = %q", fresh.Name)
	}
	if _, err := svc.AuthenticateUser(ctx, "newcomer@example.com", ""); err == nil {
		t.Fatalf("sso user must not be able to log in with an empty password")
	}
}

func TestRegisterAdminRequiresAllowlist(t *testing.T) {
	svc := newService("owner@example.com")
	ctx := context.Background()

	_, err := svc.RegisterAdmin(ctx, AdminRegistration{Username: "intruder", Email: "intruder@example.com", Password: "secret"})
	if !errors.Is(err, apperrors.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	// Even an otherwise invalid payload is refused for the allow-list first.
	_, err = svc.RegisterAdmin(ctx, AdminRegistration{Email: "intruder@example.com"})
	if !errors.Is(err, apperrors.ErrForbidden) {
		t.Fatalf("expected forbidden before validation, got %v", err)
	}

	admin, err := svc.RegisterAdmin(ctx, AdminRegistration{Username: "owner", Email: "Owner@Example.com", Password: "secret"})
	if err != nil {
		t.Fatalf("register allowed admin: %v", err)
	}
	if admin.Name != "owner" {
		t.Fatalf("name fallback = %q", admin.Name)
	}

	_, err = svc.RegisterAdmin(ctx, AdminRegistration{Username: "owner", Email: "owner@example.com", Password: "secret"})
	if !errors.Is(err, apperrors.ErrDuplicateKey) {
		t.Fatalf("expected duplicate username, got %v", err)
	}

	if _, err := svc.AuthenticateAdmin(ctx, "owner", "secret"); err != nil {
		t.Fatalf("authenticate admin: %v", err)
	}
	if _, err := svc.AuthenticateAdmin(ctx, "ghost", "secret"); !errors.Is(err, apperrors.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
}

func TestEnsureAdminResetsPassword(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	first, err := svc.EnsureAdmin(ctx, AdminRegistration{Username: "admin", Email: "admin@example.com", Password: "admin123"})
	if err != nil {
		t.Fatalf("ensure admin: %v", err)
	}
	second, err := svc.EnsureAdmin(ctx, AdminRegistration{Username: "admin", Password: "changed1"})
	if err != nil {
		t.Fatalf("ensure admin again: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same admin, got %d and %d", first.ID, second.ID)
	}
	if _, err := svc.AuthenticateAdmin(ctx, "admin", "changed1"); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}
}
