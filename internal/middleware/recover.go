package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/dabbahouse/foodorder/internal/httputil"
	"github.com/dabbahouse/foodorder/pkg/logger"
)

// Recover turns handler panics into a 500 JSON response.
func Recover(log *logger.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = logger.NewDefault("http")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.WithContext(r.Context()).
					WithField("panic", rec).
					WithField("stack", string(debug.Stack())).
					Error("handler panicked")
				httputil.WriteErrorResponse(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error", nil)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
