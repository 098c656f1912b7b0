package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dabbahouse/foodorder/internal/app/domain/identity"
	"github.com/dabbahouse/foodorder/internal/app/domain/order"
	"github.com/dabbahouse/foodorder/internal/app/domain/session"
	apperrors "github.com/dabbahouse/foodorder/internal/errors"
)

func TestUserEmailUniqueIgnoresCase(t *testing.T) {
	store := New()
	ctx := context.Background()

	if _, err := store.CreateUser(ctx, identity.User{Email: "Amna@Example.com"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	_, err := store.CreateUser(ctx, identity.User{Email: "amna@example.com"})
	if !errors.Is(err, apperrors.ErrDuplicateKey) {
		t.Fatalf("expected duplicate key, got %v", err)
	}

	got, err := store.GetUserByEmail(ctx, "AMNA@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got.Email != "amna@example.com" {
		t.Fatalf("email not normalized: %q", got.Email)
	}
}

func TestAdminUniqueness(t *testing.T) {
	store := New()
	ctx := context.Background()

	if _, err := store.CreateAdmin(ctx, identity.Admin{Username: "root", Email: "root@example.com"}); err != nil {
		t.Fatalf("create admin: %v", err)
	}

	_, err := store.CreateAdmin(ctx, identity.Admin{Username: "root", Email: "other@example.com"})
	se := apperrors.GetServiceError(err)
	if se == nil || se.Details["field"] != "username" {
		t.Fatalf("expected username conflict, got %v", err)
	}

	_, err = store.CreateAdmin(ctx, identity.Admin{Username: "other", Email: "ROOT@example.com"})
	se = apperrors.GetServiceError(err)
	if se == nil || se.Details["field"] != "email" {
		t.Fatalf("expected email conflict, got %v", err)
	}
}

func TestOrderStatusUpdateKeepsSnapshot(t *testing.T) {
	store := New()
	ctx := context.Background()

	placed, err := store.CreateOrder(ctx, order.Order{
		OrderID:        "AB12CD34",
		Customer:       order.Customer{Name: "Bilal", Phone: "0300", Email: "b@example.com", Address: "1 St", City: "Lahore"},
		Items:          []order.Item{{MenuItemID: 4, Name: "Samosas", Price: decimal.NewFromInt(120), Quantity: 2}},
		TotalPrice:     decimal.NewFromInt(240),
		Status:         order.StatusPending,
		TrackingStatus: order.DefaultTrackingStatus,
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	// Mutating the returned copy must not leak into the store.
	placed.Items[0].Quantity = 99

	updated, err := store.UpdateOrderStatus(ctx, placed.ID, order.StatusUpdate{
		Status:         order.StatusApproved,
		TrackingStatus: "Out for delivery",
		UpdatedAt:      time.Now().UTC().Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if updated.Items[0].Quantity != 2 || updated.Customer.City != "Lahore" {
		t.Fatalf("snapshot changed: %+v", updated)
	}
	if !updated.UpdatedAt.After(updated.CreatedAt) {
		t.Fatalf("updated_at not bumped")
	}

	_, err = store.UpdateOrderStatus(ctx, placed.ID, order.StatusUpdate{Status: order.StatusRejected, Expect: order.StatusPending})
	if !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("expected conflict on stale expectation, got %v", err)
	}
}

func TestDuplicateOrderReference(t *testing.T) {
	store := New()
	ctx := context.Background()

	if _, err := store.CreateOrder(ctx, order.Order{OrderID: "ZZZZ2222"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.CreateOrder(ctx, order.Order{OrderID: "ZZZZ2222"}); !errors.Is(err, apperrors.ErrDuplicateKey) {
		t.Fatalf("expected duplicate order id, got %v", err)
	}
}

func TestListOrdersFiltersAndPaginates(t *testing.T) {
	store := New()
	ctx := context.Background()
	uid := int64(1)
	base := time.Now().UTC()

	for i, ref := range []string{"A", "B", "C"} {
		o := order.Order{OrderID: ref, Status: order.StatusPending, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if ref != "B" {
			o.UserID = &uid
		}
		if _, err := store.CreateOrder(ctx, o); err != nil {
			t.Fatalf("create %s: %v", ref, err)
		}
	}

	mine, err := store.ListOrders(ctx, order.Filter{UserID: &uid})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(mine) != 2 || mine[0].OrderID != "C" || mine[1].OrderID != "A" {
		t.Fatalf("unexpected user orders: %+v", mine)
	}

	page, _ := store.ListOrders(ctx, order.Filter{Limit: 1, Offset: 1})
	if len(page) != 1 || page[0].OrderID != "B" {
		t.Fatalf("unexpected page: %+v", page)
	}
}

func TestOrderStats(t *testing.T) {
	store := New()
	ctx := context.Background()

	for _, o := range []order.Order{
		{OrderID: "1", Status: order.StatusPending, TotalPrice: decimal.RequireFromString("240")},
		{OrderID: "2", Status: order.StatusApproved, TotalPrice: decimal.RequireFromString("380.50")},
		{OrderID: "3", Status: order.StatusRejected, TotalPrice: decimal.RequireFromString("100")},
	} {
		if _, err := store.CreateOrder(ctx, o); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	stats, err := store.OrderStats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalOrders != 3 || stats.PendingOrders != 1 || stats.ApprovedOrders != 1 || stats.RejectedOrders != 1 {
		t.Fatalf("unexpected counts: %+v", stats)
	}
	if !stats.TotalRevenue.Equal(decimal.RequireFromString("720.5")) {
		t.Fatalf("revenue = %s", stats.TotalRevenue)
	}
}

func TestSessionsExpire(t *testing.T) {
	store := New()
	ctx := context.Background()
	now := time.Now().UTC()

	_ = store.CreateSession(ctx, session.Session{ID: "a", TokenHash: "h1", ExpiresAt: now.Add(-time.Second)})
	_ = store.CreateSession(ctx, session.Session{ID: "b", TokenHash: "h2", ExpiresAt: now.Add(time.Hour)})

	removed, err := store.DeleteExpiredSessions(ctx, now)
	if err != nil || removed != 1 {
		t.Fatalf("removed = %d, err = %v", removed, err)
	}
	if _, err := store.GetSessionByTokenHash(ctx, "h1"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected expired session gone, got %v", err)
	}

	later := now.Add(3 * time.Hour)
	if err := store.TouchSession(ctx, "h2", now, later); err != nil {
		t.Fatalf("touch: %v", err)
	}
	sess, _ := store.GetSessionByTokenHash(ctx, "h2")
	if !sess.ExpiresAt.Equal(later) {
		t.Fatalf("expires_at not extended")
	}
}
