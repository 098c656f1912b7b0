package storage

import (
	"context"
	"time"

	"github.com/dabbahouse/foodorder/internal/app/domain/announcement"
	"github.com/dabbahouse/foodorder/internal/app/domain/catalog"
	"github.com/dabbahouse/foodorder/internal/app/domain/identity"
	"github.com/dabbahouse/foodorder/internal/app/domain/order"
	"github.com/dabbahouse/foodorder/internal/app/domain/session"
)

// Implementations report missing rows with errors.NotFound and uniqueness
// violations with errors.DuplicateKey from internal/errors.

// UserStore persists customer accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user identity.User) (identity.User, error)
	UpdateUser(ctx context.Context, user identity.User) (identity.User, error)
	GetUser(ctx context.Context, id int64) (identity.User, error)
	GetUserByEmail(ctx context.Context, email string) (identity.User, error)
	ListUsers(ctx context.Context) ([]identity.User, error)
	CountUsers(ctx context.Context) (int, error)
}

// AdminStore persists back-office accounts.
type AdminStore interface {
	CreateAdmin(ctx context.Context, admin identity.Admin) (identity.Admin, error)
	UpdateAdmin(ctx context.Context, admin identity.Admin) (identity.Admin, error)
	GetAdmin(ctx context.Context, id int64) (identity.Admin, error)
	GetAdminByUsername(ctx context.Context, username string) (identity.Admin, error)
	ListAdmins(ctx context.Context) ([]identity.Admin, error)
}

// MenuStore persists menu items.
type MenuStore interface {
	CreateMenuItem(ctx context.Context, item catalog.Item) (catalog.Item, error)
	UpdateMenuItem(ctx context.Context, item catalog.Item) (catalog.Item, error)
	GetMenuItem(ctx context.Context, id int64) (catalog.Item, error)
	ListMenuItems(ctx context.Context, filter catalog.Filter) ([]catalog.Item, error)
	DeleteMenuItem(ctx context.Context, id int64) error
	CountMenuItems(ctx context.Context) (int, error)
}

// OrderStore persists the order ledger. Items and the customer snapshot are
// written once by CreateOrder; UpdateOrderStatus touches nothing else.
type OrderStore interface {
	CreateOrder(ctx context.Context, o order.Order) (order.Order, error)
	GetOrder(ctx context.Context, id int64) (order.Order, error)
	GetOrderByOrderID(ctx context.Context, orderID string) (order.Order, error)
	ListOrders(ctx context.Context, filter order.Filter) ([]order.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, update order.StatusUpdate) (order.Order, error)
	OrderStats(ctx context.Context) (order.Stats, error)
}

// AnnouncementStore persists announcements.
type AnnouncementStore interface {
	CreateAnnouncement(ctx context.Context, a announcement.Announcement) (announcement.Announcement, error)
	UpdateAnnouncement(ctx context.Context, a announcement.Announcement) (announcement.Announcement, error)
	GetAnnouncement(ctx context.Context, id int64) (announcement.Announcement, error)
	ListAnnouncements(ctx context.Context, activeOnly bool) ([]announcement.Announcement, error)
	DeleteAnnouncement(ctx context.Context, id int64) error
}

// SessionStore persists login sessions keyed by token hash.
type SessionStore interface {
	CreateSession(ctx context.Context, s session.Session) error
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (session.Session, error)
	TouchSession(ctx context.Context, tokenHash string, seenAt, expiresAt time.Time) error
	DeleteSession(ctx context.Context, tokenHash string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error)
}
