package app

import (
	"context"
	"fmt"
	"time"

	"github.com/dabbahouse/foodorder/internal/app/auth"
	"github.com/dabbahouse/foodorder/internal/app/services/accounts"
	"github.com/dabbahouse/foodorder/internal/app/services/announcements"
	"github.com/dabbahouse/foodorder/internal/app/services/catalog"
	"github.com/dabbahouse/foodorder/internal/app/services/feed"
	"github.com/dabbahouse/foodorder/internal/app/services/janitor"
	"github.com/dabbahouse/foodorder/internal/app/services/orders"
	"github.com/dabbahouse/foodorder/internal/app/services/stats"
	"github.com/dabbahouse/foodorder/internal/app/storage"
	"github.com/dabbahouse/foodorder/internal/app/storage/memory"
	"github.com/dabbahouse/foodorder/internal/app/system"
	"github.com/dabbahouse/foodorder/internal/httputil"
	"github.com/dabbahouse/foodorder/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Users         storage.UserStore
	Admins        storage.AdminStore
	Menu          storage.MenuStore
	Orders        storage.OrderStore
	Announcements storage.AnnouncementStore
	Sessions      storage.SessionStore
}

// Options tunes service behaviour.
type Options struct {
	SessionSecret     string
	SessionLifetime   time.Duration
	CookieSecure      bool
	AdminAllowlist    map[string]struct{}
	StrictTransitions bool
	JanitorSchedule   string
	FeedBuffer        int
	// PasswordCost overrides the bcrypt cost when positive.
	PasswordCost int

	// Google enables SSO when non-nil.
	Google     *auth.GoogleConfig
	HTTPClient *httputil.Client

	// Cleaners run on every janitor pass.
	Cleaners []janitor.Cleaner
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Accounts      *accounts.Service
	Catalog       *catalog.Service
	Orders        *orders.Service
	Announcements *announcements.Service
	Stats         *stats.Service
	Feed          *feed.Hub
	Sessions      *auth.Manager
	Janitor       *janitor.Janitor

	// Google is nil when SSO is not configured.
	Google auth.IdentityProvider

	cookieSecure bool
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Users == nil {
		stores.Users = mem
	}
	if stores.Admins == nil {
		stores.Admins = mem
	}
	if stores.Menu == nil {
		stores.Menu = mem
	}
	if stores.Orders == nil {
		stores.Orders = mem
	}
	if stores.Announcements == nil {
		stores.Announcements = mem
	}
	if stores.Sessions == nil {
		stores.Sessions = mem
	}

	sessions, err := auth.NewManager(stores.Sessions, auth.Config{
		Secret:       opts.SessionSecret,
		Lifetime:     opts.SessionLifetime,
		CookieSecure: opts.CookieSecure,
	}, log.Named("sessions"))
	if err != nil {
		return nil, fmt.Errorf("configure sessions: %w", err)
	}

	hub := feed.NewHub(opts.FeedBuffer, log.Named("feed"))
	catalogService := catalog.New(stores.Menu, log.Named("catalog"))
	orderService := orders.New(stores.Orders, stores.Menu, log.Named("orders"),
		orders.WithPublisher(hub),
		orders.WithStrictTransitions(opts.StrictTransitions),
	)
	if opts.StrictTransitions {
		log.Info("strict order status transitions enabled")
	}

	var accountOpts []accounts.Option
	if opts.PasswordCost > 0 {
		accountOpts = append(accountOpts, accounts.WithBcryptCost(opts.PasswordCost))
	}

	application := &Application{
		manager:       system.NewManager(),
		log:           log,
		Accounts:      accounts.New(stores.Users, stores.Admins, opts.AdminAllowlist, log.Named("accounts"), accountOpts...),
		Catalog:       catalogService,
		Orders:        orderService,
		Announcements: announcements.New(stores.Announcements, log.Named("announcements")),
		Stats:         stats.New(stores.Orders, stores.Users, stores.Menu),
		Feed:          hub,
		Sessions:      sessions,
		cookieSecure:  opts.CookieSecure,
	}

	if opts.Google != nil {
		client := opts.HTTPClient
		if client == nil {
			client = httputil.NewClient(httputil.ClientConfig{})
		}
		application.Google = auth.NewGoogleProvider(*opts.Google, client)
	} else {
		log.Warn("google client credentials not set; SSO disabled")
	}

	application.Janitor = janitor.New(opts.JanitorSchedule, sessions, log.Named("janitor"), opts.Cleaners...)

	for _, svc := range []system.Service{hub, application.Janitor} {
		if err := application.manager.Register(svc); err != nil {
			return nil, fmt.Errorf("register %s: %w", svc.Name(), err)
		}
	}
	return application, nil
}

// CookieSecure reports whether auth cookies carry the Secure attribute.
func (a *Application) CookieSecure() bool { return a.cookieSecure }

// Logger returns the application logger.
func (a *Application) Logger() *logger.Logger { return a.log }

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
