package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("load order: %w", NotFound("order", "AB12CD34"))

	if !stderrors.Is(err, ErrNotFound) {
		t.Fatalf("expected wrapped not found to match sentinel")
	}
	if stderrors.Is(err, ErrDuplicateKey) {
		t.Fatalf("not found must not match duplicate key")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("items are required"), http.StatusBadRequest},
		{"duplicate", DuplicateKey("user", "email"), http.StatusConflict},
		{"credentials", InvalidCredentials(), http.StatusUnauthorized},
		{"forbidden", Forbidden("email not allowed"), http.StatusForbidden},
		{"wrapped", fmt.Errorf("ctx: %w", NotFound("menu item", 4)), http.StatusNotFound},
		{"plain", stderrors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Fatalf("HTTPStatus = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestWithDetailsDoesNotMutateOriginal(t *testing.T) {
	base := Validation("bad")
	withField := base.WithDetails("field", "price")

	if base.Details != nil {
		t.Fatalf("original details mutated: %v", base.Details)
	}
	if withField.Details["field"] != "price" {
		t.Fatalf("details = %v", withField.Details)
	}
}

func TestInternalHidesCauseFromMessage(t *testing.T) {
	err := Internal("place order", stderrors.New("connection reset"))
	if err.Message != "place order" {
		t.Fatalf("message = %q", err.Message)
	}
	if !stderrors.Is(err, err.Err) {
		t.Fatalf("expected cause to be unwrappable")
	}
}
