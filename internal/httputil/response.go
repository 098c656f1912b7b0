package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/dabbahouse/foodorder/internal/errors"
)

// DefaultMaxBodyBytes bounds JSON request bodies.
const DefaultMaxBodyBytes = 1 << 20

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
	TraceID string                 `json:"trace_id,omitempty"`
}

// WriteJSON writes payload with the given status.
func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// WriteErrorResponse writes the error envelope. The trace id is copied from
// the X-Trace-ID response header when the tracing middleware set one.
func WriteErrorResponse(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]interface{}) {
	resp := ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
		TraceID: w.Header().Get("X-Trace-ID"),
	}
	WriteJSON(w, status, resp)
}

// WriteError writes a bare {"error": message} body.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorResponse{Error: message})
}

// WriteServiceError maps err onto its HTTP status. Errors outside the
// taxonomy become a generic 500 so internals do not leak.
func WriteServiceError(w http.ResponseWriter, r *http.Request, err error) {
	se := apperrors.GetServiceError(err)
	if se == nil {
		se = apperrors.Internal("internal server error", err)
	}
	message := se.Message
	if se.HTTPStatus >= http.StatusInternalServerError {
		message = "internal server error"
	}
	WriteErrorResponse(w, r, se.HTTPStatus, string(se.Code), message, se.Details)
}

// Unauthorized writes a 401 envelope.
func Unauthorized(w http.ResponseWriter, message string) {
	if message == "" {
		message = "authentication required"
	}
	WriteJSON(w, http.StatusUnauthorized, ErrorResponse{Error: message, Code: string(apperrors.CodeUnauthorized)})
}

// DecodeJSON decodes the request body into dst. Unknown fields, trailing data
// and oversized bodies are validation errors.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		return apperrors.Validationf("unsupported content type %q", ct)
	}
	r.Body = http.MaxBytesReader(w, r.Body, DefaultMaxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return apperrors.Validation("request body is empty")
		case errors.As(err, &syntaxErr):
			return apperrors.Validationf("malformed JSON at offset %d", syntaxErr.Offset)
		case errors.As(err, &typeErr):
			return apperrors.Validationf("field %q must be %s", typeErr.Field, typeErr.Type.String()).
				WithDetails("field", typeErr.Field)
		case errors.As(err, &maxErr):
			return apperrors.Validationf("request body exceeds %d bytes", maxErr.Limit)
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			field := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return apperrors.Validationf("unknown field %s", field).
				WithDetails("field", strings.Trim(field, `"`))
		default:
			return apperrors.Validation(fmt.Sprintf("invalid JSON: %v", err))
		}
	}
	if dec.More() {
		return apperrors.Validation("request body must contain a single JSON object")
	}
	return nil
}
