package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dabbahouse/foodorder/internal/app/domain/announcement"
	"github.com/dabbahouse/foodorder/internal/app/domain/catalog"
	"github.com/dabbahouse/foodorder/internal/app/domain/identity"
	"github.com/dabbahouse/foodorder/internal/app/domain/order"
	"github.com/dabbahouse/foodorder/internal/app/domain/session"
	"github.com/dabbahouse/foodorder/internal/app/storage"
	apperrors "github.com/dabbahouse/foodorder/internal/errors"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local development.
type Store struct {
	mu     sync.RWMutex
	nextID map[string]int64

	users         map[int64]identity.User
	usersByEmail  map[string]int64
	admins        map[int64]identity.Admin
	menu          map[int64]catalog.Item
	orders        map[int64]order.Order
	ordersByRef   map[string]int64
	announcements map[int64]announcement.Announcement
	sessions      map[string]session.Session
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.AdminStore = (*Store)(nil)
var _ storage.MenuStore = (*Store)(nil)
var _ storage.OrderStore = (*Store)(nil)
var _ storage.AnnouncementStore = (*Store)(nil)
var _ storage.SessionStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:        make(map[string]int64),
		users:         make(map[int64]identity.User),
		usersByEmail:  make(map[string]int64),
		admins:        make(map[int64]identity.Admin),
		menu:          make(map[int64]catalog.Item),
		orders:        make(map[int64]order.Order),
		ordersByRef:   make(map[string]int64),
		announcements: make(map[int64]announcement.Announcement),
		sessions:      make(map[string]session.Session),
	}
}

func (s *Store) nextIDLocked(table string) int64 {
	s.nextID[table]++
	return s.nextID[table]
}

func now() time.Time { return time.Now().UTC() }

// UserStore implementation ----------------------------------------------------

func (s *Store) CreateUser(_ context.Context, user identity.User) (identity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user.Email = identity.NormalizeEmail(user.Email)
	if _, exists := s.usersByEmail[user.Email]; exists {
		return identity.User{}, apperrors.DuplicateKey("user", "email")
	}
	user.ID = s.nextIDLocked("users")
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now()
	}
	s.users[user.ID] = user
	s.usersByEmail[user.Email] = user.ID
	return user, nil
}

func (s *Store) UpdateUser(_ context.Context, user identity.User) (identity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.users[user.ID]
	if !ok {
		return identity.User{}, apperrors.NotFound("user", user.ID)
	}
	user.Email = identity.NormalizeEmail(user.Email)
	if user.Email != original.Email {
		if _, exists := s.usersByEmail[user.Email]; exists {
			return identity.User{}, apperrors.DuplicateKey("user", "email")
		}
		delete(s.usersByEmail, original.Email)
		s.usersByEmail[user.Email] = user.ID
	}
	user.CreatedAt = original.CreatedAt
	s.users[user.ID] = user
	return user, nil
}

func (s *Store) GetUser(_ context.Context, id int64) (identity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return identity.User{}, apperrors.NotFound("user", id)
	}
	return user, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (identity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByEmail[identity.NormalizeEmail(email)]
	if !ok {
		return identity.User{}, apperrors.NotFound("user", email)
	}
	return s.users[id], nil
}

func (s *Store) ListUsers(_ context.Context) ([]identity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]identity.User, 0, len(s.users))
	for _, user := range s.users {
		result = append(result, user)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) CountUsers(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), nil
}

// AdminStore implementation ---------------------------------------------------

func (s *Store) CreateAdmin(_ context.Context, admin identity.Admin) (identity.Admin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	admin.Email = identity.NormalizeEmail(admin.Email)
	if err := s.checkAdminUniqueLocked(admin); err != nil {
		return identity.Admin{}, err
	}
	admin.ID = s.nextIDLocked("admins")
	if admin.CreatedAt.IsZero() {
		admin.CreatedAt = now()
	}
	s.admins[admin.ID] = admin
	return admin, nil
}

func (s *Store) UpdateAdmin(_ context.Context, admin identity.Admin) (identity.Admin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.admins[admin.ID]
	if !ok {
		return identity.Admin{}, apperrors.NotFound("admin", admin.ID)
	}
	admin.Email = identity.NormalizeEmail(admin.Email)
	if err := s.checkAdminUniqueLocked(admin); err != nil {
		return identity.Admin{}, err
	}
	admin.CreatedAt = original.CreatedAt
	s.admins[admin.ID] = admin
	return admin, nil
}

func (s *Store) checkAdminUniqueLocked(admin identity.Admin) error {
	for id, existing := range s.admins {
		if id == admin.ID {
			continue
		}
		if strings.EqualFold(existing.Username, admin.Username) {
			return apperrors.DuplicateKey("admin", "username")
		}
	}
	for id, existing := range s.admins {
		if id == admin.ID {
			continue
		}
		if existing.Email == admin.Email {
			return apperrors.DuplicateKey("admin", "email")
		}
	}
	return nil
}

func (s *Store) GetAdmin(_ context.Context, id int64) (identity.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	admin, ok := s.admins[id]
	if !ok {
		return identity.Admin{}, apperrors.NotFound("admin", id)
	}
	return admin, nil
}

func (s *Store) GetAdminByUsername(_ context.Context, username string) (identity.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, admin := range s.admins {
		if strings.EqualFold(admin.Username, username) {
			return admin, nil
		}
	}
	return identity.Admin{}, apperrors.NotFound("admin", username)
}

func (s *Store) ListAdmins(_ context.Context) ([]identity.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]identity.Admin, 0, len(s.admins))
	for _, admin := range s.admins {
		result = append(result, admin)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// MenuStore implementation ----------------------------------------------------

func (s *Store) CreateMenuItem(_ context.Context, item catalog.Item) (catalog.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item.ID = s.nextIDLocked("menu_items")
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now()
	}
	s.menu[item.ID] = item
	return item, nil
}

func (s *Store) UpdateMenuItem(_ context.Context, item catalog.Item) (catalog.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.menu[item.ID]
	if !ok {
		return catalog.Item{}, apperrors.NotFound("menu item", item.ID)
	}
	item.CreatedAt = original.CreatedAt
	s.menu[item.ID] = item
	return item, nil
}

func (s *Store) GetMenuItem(_ context.Context, id int64) (catalog.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.menu[id]
	if !ok {
		return catalog.Item{}, apperrors.NotFound("menu item", id)
	}
	return item, nil
}

func (s *Store) ListMenuItems(_ context.Context, filter catalog.Filter) ([]catalog.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]catalog.Item, 0, len(s.menu))
	for _, item := range s.menu {
		if filter.Matches(item) {
			result = append(result, item)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) DeleteMenuItem(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.menu[id]; !ok {
		return apperrors.NotFound("menu item", id)
	}
	delete(s.menu, id)
	return nil
}

func (s *Store) CountMenuItems(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.menu), nil
}

// OrderStore implementation ---------------------------------------------------

func (s *Store) CreateOrder(_ context.Context, o order.Order) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ordersByRef[o.OrderID]; exists {
		return order.Order{}, apperrors.DuplicateKey("order", "order_id")
	}
	o.ID = s.nextIDLocked("orders")
	ts := now()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = ts
	}
	o.UpdatedAt = o.CreatedAt
	o = cloneOrder(o)
	s.orders[o.ID] = o
	s.ordersByRef[o.OrderID] = o.ID
	return cloneOrder(o), nil
}

func (s *Store) GetOrder(_ context.Context, id int64) (order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return order.Order{}, apperrors.NotFound("order", id)
	}
	return cloneOrder(o), nil
}

func (s *Store) GetOrderByOrderID(_ context.Context, orderID string) (order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.ordersByRef[orderID]
	if !ok {
		return order.Order{}, apperrors.NotFound("order", orderID)
	}
	return cloneOrder(s.orders[id]), nil
}

func (s *Store) ListOrders(_ context.Context, filter order.Filter) ([]order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]order.Order, 0, len(s.orders))
	for _, o := range s.orders {
		if filter.UserID != nil && !o.OwnedBy(*filter.UserID) {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		result = append(result, cloneOrder(o))
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return paginate(result, filter.Offset, filter.Limit), nil
}

func (s *Store) UpdateOrderStatus(_ context.Context, id int64, update order.StatusUpdate) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return order.Order{}, apperrors.NotFound("order", id)
	}
	if update.Expect != "" && o.Status != update.Expect {
		return order.Order{}, apperrors.Conflict("order status changed concurrently")
	}
	o.Status = update.Status
	o.TrackingStatus = update.TrackingStatus
	o.UpdatedAt = update.UpdatedAt
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = now()
	}
	s.orders[id] = o
	return cloneOrder(o), nil
}

func (s *Store) OrderStats(_ context.Context) (order.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := order.Stats{TotalRevenue: decimal.Zero}
	for _, o := range s.orders {
		stats.TotalOrders++
		switch o.Status {
		case order.StatusPending:
			stats.PendingOrders++
		case order.StatusApproved:
			stats.ApprovedOrders++
		case order.StatusRejected:
			stats.RejectedOrders++
		}
		stats.TotalRevenue = stats.TotalRevenue.Add(o.TotalPrice)
	}
	return stats, nil
}

// AnnouncementStore implementation --------------------------------------------

func (s *Store) CreateAnnouncement(_ context.Context, a announcement.Announcement) (announcement.Announcement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a.ID = s.nextIDLocked("announcements")
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now()
	}
	s.announcements[a.ID] = a
	return a, nil
}

func (s *Store) UpdateAnnouncement(_ context.Context, a announcement.Announcement) (announcement.Announcement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.announcements[a.ID]
	if !ok {
		return announcement.Announcement{}, apperrors.NotFound("announcement", a.ID)
	}
	a.CreatedAt = original.CreatedAt
	a.CreatedBy = original.CreatedBy
	s.announcements[a.ID] = a
	return a, nil
}

func (s *Store) GetAnnouncement(_ context.Context, id int64) (announcement.Announcement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.announcements[id]
	if !ok {
		return announcement.Announcement{}, apperrors.NotFound("announcement", id)
	}
	return a, nil
}

func (s *Store) ListAnnouncements(_ context.Context, activeOnly bool) ([]announcement.Announcement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]announcement.Announcement, 0, len(s.announcements))
	for _, a := range s.announcements {
		if activeOnly && !a.Active {
			continue
		}
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

func (s *Store) DeleteAnnouncement(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.announcements[id]; !ok {
		return apperrors.NotFound("announcement", id)
	}
	delete(s.announcements, id)
	return nil
}

// SessionStore implementation -------------------------------------------------

func (s *Store) CreateSession(_ context.Context, sess session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[sess.TokenHash]; exists {
		return apperrors.DuplicateKey("session", "token_hash")
	}
	s.sessions[sess.TokenHash] = sess
	return nil
}

func (s *Store) GetSessionByTokenHash(_ context.Context, tokenHash string) (session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[tokenHash]
	if !ok {
		return session.Session{}, apperrors.NotFound("session", "token")
	}
	return sess, nil
}

func (s *Store) TouchSession(_ context.Context, tokenHash string, seenAt, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[tokenHash]
	if !ok {
		return apperrors.NotFound("session", "token")
	}
	sess.LastSeenAt = seenAt
	sess.ExpiresAt = expiresAt
	s.sessions[tokenHash] = sess
	return nil
}

func (s *Store) DeleteSession(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, tokenHash)
	return nil
}

func (s *Store) DeleteExpiredSessions(_ context.Context, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for hash, sess := range s.sessions {
		if sess.Expired(at) {
			delete(s.sessions, hash)
			removed++
		}
	}
	return removed, nil
}

func cloneOrder(o order.Order) order.Order {
	if o.UserID != nil {
		uid := *o.UserID
		o.UserID = &uid
	}
	if o.Items != nil {
		items := make([]order.Item, len(o.Items))
		copy(items, o.Items)
		o.Items = items
	}
	return o
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return items[:0]
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
