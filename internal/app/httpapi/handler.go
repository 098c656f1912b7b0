// Package httpapi exposes the storefront and back-office REST API.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	app "github.com/dabbahouse/foodorder/internal/app"
	"github.com/dabbahouse/foodorder/internal/app/auth"
	"github.com/dabbahouse/foodorder/internal/app/domain/session"
	"github.com/dabbahouse/foodorder/internal/app/metrics"
	"github.com/dabbahouse/foodorder/internal/app/services/orders"
	apperrors "github.com/dabbahouse/foodorder/internal/errors"
	"github.com/dabbahouse/foodorder/internal/httputil"
	"github.com/dabbahouse/foodorder/internal/middleware"
	"github.com/dabbahouse/foodorder/pkg/logger"
)

// Config holds settings of the HTTP layer.
type Config struct {
	// AuditSize bounds the in-memory audit trail. AuditPath, when set, also
	// appends every entry to a JSONL file.
	AuditSize int
	AuditPath string

	// AllowedOrigins lists browser origins allowed to open websockets. An
	// empty list only accepts same-origin requests.
	AllowedOrigins []string

	// OAuthSuccessRedirect is where the browser lands after Google sign-in.
	OAuthSuccessRedirect string

	// Limiter throttles logins, registrations and order placement.
	Limiter *middleware.RateLimiter
}

// Handler serves the API.
type Handler struct {
	router *mux.Router
	app    *app.Application
	log    *logger.Logger

	audit     *auditLog
	auditFile *fileAuditSink
	limiter   *middleware.RateLimiter
	upgrader  websocket.Upgrader
	origins   map[string]struct{}

	successRedirect string
	started         time.Time
}

// NewHandler builds the router for application.
func NewHandler(application *app.Application, cfg Config) (*Handler, error) {
	sink, err := newFileAuditSink(cfg.AuditPath)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}

	h := &Handler{
		router:          mux.NewRouter(),
		app:             application,
		log:             application.Logger().Named("httpapi"),
		auditFile:       sink,
		limiter:         cfg.Limiter,
		origins:         make(map[string]struct{}),
		successRedirect: cfg.OAuthSuccessRedirect,
		started:         time.Now(),
	}
	h.audit = newAuditLog(cfg.AuditSize, nil)
	if sink != nil {
		h.audit.sink = sink
	}
	if h.successRedirect == "" {
		h.successRedirect = "/"
	}
	for _, origin := range cfg.AllowedOrigins {
		h.origins[strings.TrimRight(origin, "/")] = struct{}{}
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}

	h.routes()
	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// Close releases the audit file.
func (h *Handler) Close() error {
	return h.auditFile.Close()
}

func (h *Handler) routes() {
	r := h.router
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	r.Use(middleware.MetricsMiddleware)
	r.Use(h.app.Sessions.Resolve)

	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	// storefront
	api.HandleFunc("/menu", h.listMenu).Methods(http.MethodGet)
	api.HandleFunc("/menu/categories", h.listCategories).Methods(http.MethodGet)
	api.HandleFunc("/announcements", h.listAnnouncements).Methods(http.MethodGet)
	api.Handle("/orders", h.throttle(h.placeOrder)).Methods(http.MethodPost)
	api.HandleFunc("/orders/{order_id}", h.getOrder).Methods(http.MethodGet)
	api.HandleFunc("/orders/{order_id}/live", h.orderLive).Methods(http.MethodGet)

	// customer accounts
	api.Handle("/auth/register", h.throttle(h.registerUser)).Methods(http.MethodPost)
	api.Handle("/auth/login", h.throttle(h.loginUser)).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout", h.logoutUser).Methods(http.MethodPost)
	api.HandleFunc("/auth/google", h.googleStart).Methods(http.MethodGet)
	api.HandleFunc("/auth/google/callback", h.googleCallback).Methods(http.MethodGet)

	api.Handle("/me", customerOnly(h.me)).Methods(http.MethodGet)
	api.Handle("/me/profile", customerOnly(h.updateProfile)).Methods(http.MethodPut)
	api.Handle("/me/orders", customerOnly(h.myOrders)).Methods(http.MethodGet)

	// back office
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(h.audit.middleware)
	admin.Handle("/register", h.throttle(h.registerAdmin)).Methods(http.MethodPost)
	admin.Handle("/login", h.throttle(h.loginAdmin)).Methods(http.MethodPost)
	admin.HandleFunc("/logout", h.logoutAdmin).Methods(http.MethodPost)

	admin.Handle("/me", adminOnly(h.adminMe)).Methods(http.MethodGet)
	admin.Handle("/stats", adminOnly(h.stats)).Methods(http.MethodGet)
	admin.Handle("/users", adminOnly(h.listUsers)).Methods(http.MethodGet)
	admin.Handle("/admins", adminOnly(h.listAdmins)).Methods(http.MethodGet)
	admin.Handle("/products", adminOnly(h.listProducts)).Methods(http.MethodGet)
	admin.Handle("/products", adminOnly(h.createProduct)).Methods(http.MethodPost)
	admin.Handle("/products/{id}", adminOnly(h.updateProduct)).Methods(http.MethodPut)
	admin.Handle("/products/{id}", adminOnly(h.deleteProduct)).Methods(http.MethodDelete)
	admin.Handle("/announcements", adminOnly(h.listAllAnnouncements)).Methods(http.MethodGet)
	admin.Handle("/announcements", adminOnly(h.createAnnouncement)).Methods(http.MethodPost)
	admin.Handle("/announcements/{id}", adminOnly(h.updateAnnouncement)).Methods(http.MethodPut)
	admin.Handle("/announcements/{id}", adminOnly(h.deleteAnnouncement)).Methods(http.MethodDelete)
	admin.Handle("/orders", adminOnly(h.listOrders)).Methods(http.MethodGet)
	admin.Handle("/orders/live", adminOnly(h.adminLive)).Methods(http.MethodGet)
	admin.Handle("/orders/{id}", adminOnly(h.updateOrder)).Methods(http.MethodPatch)
	admin.Handle("/audit", adminOnly(h.auditTrail)).Methods(http.MethodGet)
}

var (
	requireCustomer = auth.RequireRole(session.RoleCustomer)
	requireAdmin    = auth.RequireRole(session.RoleAdmin)
)

func customerOnly(fn http.HandlerFunc) http.Handler { return requireCustomer(fn) }

func adminOnly(fn http.HandlerFunc) http.Handler { return requireAdmin(fn) }

func (h *Handler) throttle(fn http.HandlerFunc) http.Handler {
	if h.limiter == nil {
		return fn
	}
	return h.limiter.Handler(fn)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"uptime":      time.Since(h.started).Round(time.Second).String(),
		"subscribers": h.app.Feed.Subscribers(),
	})
}

func (h *Handler) auditTrail(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.audit.recent(limit))
}

// writeError logs failures that surface as 5xx before writing the envelope.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if apperrors.HTTPStatus(err) >= http.StatusInternalServerError {
		h.log.WithContext(r.Context()).WithError(err).
			WithField("path", r.URL.Path).
			Error("request failed")
	}
	httputil.WriteServiceError(w, r, err)
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.Validationf("invalid %s %q", name, raw)
	}
	return id, nil
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, apperrors.Validationf("%s must be a non-negative integer", name)
	}
	return v, nil
}

// viewerFor describes the caller for order access checks.
func viewerFor(ctx context.Context) orders.Viewer {
	var v orders.Viewer
	if _, ok := auth.Admin(ctx); ok {
		v.Admin = true
	}
	if p, ok := auth.Customer(ctx); ok {
		id := p.SubjectID
		v.UserID = &id
	}
	return v
}
