package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "github.com/dabbahouse/foodorder/internal/errors"
)

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func decode(t *testing.T, body string) error {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	var dst loginBody
	return DecodeJSON(httptest.NewRecorder(), req, &dst)
}

func TestDecodeJSON(t *testing.T) {
	if err := decode(t, `{"email":"a@example.com","password":"x"}`); err != nil {
		t.Fatalf("valid body: %v", err)
	}

	cases := map[string]string{
		"empty":         ``,
		"malformed":     `{"email":`,
		"unknown field": `{"email":"a","admin":true}`,
		"wrong type":    `{"email":42}`,
		"two objects":   `{"email":"a"}{"email":"b"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if err := decode(t, body); !errors.Is(err, apperrors.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestWriteServiceError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	WriteServiceError(rec, req, apperrors.DuplicateKey("user", "email"))

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error == "" || body.Code != string(apperrors.CodeDuplicateKey) {
		t.Fatalf("body = %+v", body)
	}
}

func TestWriteServiceErrorHidesInternals(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	WriteServiceError(rec, req, errors.New("pq: password authentication failed"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "pq:") {
		t.Fatalf("internal error leaked: %s", rec.Body.String())
	}
}
