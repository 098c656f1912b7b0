package orders

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/dabbahouse/foodorder/internal/app/domain/catalog"
	"github.com/dabbahouse/foodorder/internal/app/domain/order"
	"github.com/dabbahouse/foodorder/internal/app/storage/memory"
	apperrors "github.com/dabbahouse/foodorder/internal/errors"
	"github.com/dabbahouse/foodorder/pkg/testutil"
)

type fixture struct {
	svc     *Service
	store   *memory.Store
	samosas catalog.Item
	kheer   catalog.Item
	events  *testutil.MockPublisher
}

func newFixture(t *testing.T, opts ...Option) fixture {
	t.Helper()
	store := memory.New()
	ctx := context.Background()
	samosas, err := store.CreateMenuItem(ctx, catalog.Item{Name: "Samosas", Category: "Appetizers", Price: decimal.NewFromInt(120), Available: true})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	kheer, err := store.CreateMenuItem(ctx, catalog.Item{Name: "Kheer", Category: "Desserts", Price: decimal.NewFromInt(130)})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	log := testutil.QuietLogger("orders-test")
	events := &testutil.MockPublisher{}
	opts = append([]Option{WithPublisher(events)}, opts...)
	return fixture{
		svc:     New(store, store, log, opts...),
		store:   store,
		samosas: samosas,
		kheer:   kheer,
		events:  events,
	}
}

func customer() order.Customer {
	return order.Customer{Name: "Bilal", Phone: "0300", Email: "b@example.com", Address: "1 Mall Rd", City: "Lahore"}
}

func samosaRequest(f fixture, total int64) PlaceRequest {
	return PlaceRequest{
		Customer:   customer(),
		Items:      []LineRequest{{MenuItemID: f.samosas.ID, Name: "Samosas", Price: decimal.NewFromInt(120), Quantity: 2}},
		TotalPrice: decimal.NewFromInt(total),
	}
}

func TestPlaceOrderPricesFromCatalog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	o, err := f.svc.PlaceOrder(ctx, samosaRequest(f, 240))
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if len(o.OrderID) != OrderIDLength {
		t.Fatalf("order id %q", o.OrderID)
	}
	if o.Status != order.StatusPending || o.TrackingStatus != order.DefaultTrackingStatus {
		t.Fatalf("unexpected status: %s / %s", o.Status, o.TrackingStatus)
	}
	if !o.TotalPrice.Equal(decimal.NewFromInt(240)) {
		t.Fatalf("total = %s", o.TotalPrice)
	}
	if !o.IsGuest() {
		t.Fatalf("expected guest order")
	}

	fetched, err := f.svc.Get(ctx, strings.ToLower(o.OrderID), Viewer{})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(fetched.Items) != 1 || fetched.Items[0].Quantity != 2 || !fetched.Items[0].Price.Equal(decimal.NewFromInt(120)) {
		t.Fatalf("items = %+v", fetched.Items)
	}
	if got := f.events.Types(); len(got) != 1 || got[0] != order.EventCreated {
		t.Fatalf("events = %v", got)
	}
}

func TestPlaceOrderRejectsTotalMismatch(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.PlaceOrder(context.Background(), samosaRequest(f, 999))
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if se := apperrors.GetServiceError(err); se == nil || se.Details["expected_total"] != "240.00" {
		t.Fatalf("expected total detail, got %+v", se)
	}
}

func TestPlaceOrderAcceptsFloatingPointTotal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	falooda, err := f.store.CreateMenuItem(ctx, catalog.Item{Name: "Falooda", Category: "Desserts", Price: decimal.RequireFromString("99.99"), Available: true})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	// What a browser computes for 99.99 * 3.
	price, qty := 99.99, 3.0
	submitted := decimal.NewFromFloat(price * qty)
	if submitted.Equal(decimal.RequireFromString("299.97")) {
		t.Fatalf("expected an inexact float total, got %s", submitted)
	}

	req := PlaceRequest{
		Customer:   customer(),
		Items:      []LineRequest{{MenuItemID: falooda.ID, Quantity: 3}},
		TotalPrice: submitted,
	}
	o, err := f.svc.PlaceOrder(ctx, req)
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if !o.TotalPrice.Equal(decimal.RequireFromString("299.97")) {
		t.Fatalf("total = %s", o.TotalPrice)
	}

	req.TotalPrice = decimal.RequireFromString("299.96")
	_, err = f.svc.PlaceOrder(ctx, req)
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("a cent off should be rejected, got %v", err)
	}
	if !strings.Contains(err.Error(), "submitted 299.96, expected 299.97") {
		t.Fatalf("message = %q", err.Error())
	}
}

func TestPlaceOrderIgnoresClientPrices(t *testing.T) {
	f := newFixture(t)
	req := samosaRequest(f, 2)
	req.Items[0].Price = decimal.NewFromInt(1)
	if _, err := f.svc.PlaceOrder(context.Background(), req); !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("discounted client price should not be honoured, got %v", err)
	}
}

func TestPlaceOrderValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	noCity := samosaRequest(f, 240)
	noCity.Customer.City = " "
	noItems := samosaRequest(f, 0)
	noItems.Items = nil
	zeroQty := samosaRequest(f, 0)
	zeroQty.Items[0].Quantity = 0
	unavailable := samosaRequest(f, 130)
	unavailable.Items = []LineRequest{{MenuItemID: f.kheer.ID, Quantity: 1}}
	unknown := samosaRequest(f, 0)
	unknown.Items = []LineRequest{{MenuItemID: 9999, Quantity: 1}}

	cases := map[string]PlaceRequest{
		"missing city":     noCity,
		"no items":         noItems,
		"zero quantity":    zeroQty,
		"unavailable item": unavailable,
		"unknown item":     unknown,
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := f.svc.PlaceOrder(ctx, req); !errors.Is(err, apperrors.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestPlaceOrderRetriesOnCollision(t *testing.T) {
	ids := []string{"AAAAAAAA", "AAAAAAAA", "BBBBBBBB"}
	var mu sync.Mutex
	gen := func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		id := ids[0]
		ids = ids[1:]
		return id, nil
	}
	f := newFixture(t, WithIDGenerator(gen))
	ctx := context.Background()

	first, err := f.svc.PlaceOrder(ctx, samosaRequest(f, 240))
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := f.svc.PlaceOrder(ctx, samosaRequest(f, 240))
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if first.OrderID != "AAAAAAAA" || second.OrderID != "BBBBBBBB" {
		t.Fatalf("ids = %s, %s", first.OrderID, second.OrderID)
	}
}

func TestPlaceOrderGivesUpAfterRepeatedCollisions(t *testing.T) {
	f := newFixture(t, WithIDGenerator(func() (string, error) { return "CCCCCCCC", nil }))
	ctx := context.Background()

	if _, err := f.svc.PlaceOrder(ctx, samosaRequest(f, 240)); err != nil {
		t.Fatalf("first: %v", err)
	}
	if _, err := f.svc.PlaceOrder(ctx, samosaRequest(f, 240)); !errors.Is(err, apperrors.ErrDuplicateKey) {
		t.Fatalf("expected duplicate key after retries, got %v", err)
	}
}

func TestGetEnforcesOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice, bob := int64(1), int64(2)
	req := samosaRequest(f, 240)
	req.UserID = &alice
	o, err := f.svc.PlaceOrder(ctx, req)
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	if _, err := f.svc.Get(ctx, o.OrderID, Viewer{UserID: &alice}); err != nil {
		t.Fatalf("owner read: %v", err)
	}
	if _, err := f.svc.Get(ctx, o.OrderID, Viewer{UserID: &bob}); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("other customer should get not found, got %v", err)
	}
	if _, err := f.svc.Get(ctx, o.OrderID, Viewer{}); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("anonymous read of customer order should fail, got %v", err)
	}
	if _, err := f.svc.Get(ctx, o.OrderID, Viewer{Admin: true}); err != nil {
		t.Fatalf("admin read: %v", err)
	}

	mine, err := f.svc.ListForUser(ctx, alice)
	if err != nil || len(mine) != 1 {
		t.Fatalf("list for user = %d (%v)", len(mine), err)
	}
	theirs, _ := f.svc.ListForUser(ctx, bob)
	if len(theirs) != 0 {
		t.Fatalf("bob sees %d orders", len(theirs))
	}
}

func strPtr(s string) *string { return &s }

func TestUpdateStatusNumericReference(t *testing.T) {
	ids := []string{"ABCDEFGH", "00000001"}
	gen := func() (string, error) {
		id := ids[0]
		ids = ids[1:]
		return id, nil
	}
	f := newFixture(t, WithIDGenerator(gen))
	ctx := context.Background()

	first, err := f.svc.PlaceOrder(ctx, samosaRequest(f, 240))
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := f.svc.PlaceOrder(ctx, samosaRequest(f, 240))
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if first.ID != 1 {
		t.Fatalf("first internal id = %d", first.ID)
	}

	updated, err := f.svc.UpdateStatus(ctx, "00000001", StatusChange{Status: strPtr("approved")})
	if err != nil {
		t.Fatalf("update by id: %v", err)
	}
	if updated.OrderID != first.OrderID {
		t.Fatalf("numeric ref should match the internal id first, updated %s", updated.OrderID)
	}

	updated, err = f.svc.UpdateStatus(ctx, "00000001", StatusChange{Status: strPtr("rejected"), ByOrderID: true})
	if err != nil {
		t.Fatalf("update by order id: %v", err)
	}
	if updated.OrderID != second.OrderID || updated.Status != order.StatusRejected {
		t.Fatalf("updated %s / %s", updated.OrderID, updated.Status)
	}

	if _, err := f.svc.UpdateStatus(ctx, "1", StatusChange{Status: strPtr("approved"), ByOrderID: true}); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("internal id should not match an order reference, got %v", err)
	}
}

func TestUpdateStatusKeepsSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	o, _ := f.svc.PlaceOrder(ctx, samosaRequest(f, 240))

	// A later price change must not affect the stored order.
	item := f.samosas
	item.Price = decimal.NewFromInt(500)
	if _, err := f.store.UpdateMenuItem(ctx, item); err != nil {
		t.Fatalf("reprice: %v", err)
	}

	updated, err := f.svc.UpdateStatus(ctx, o.OrderID, StatusChange{Status: strPtr("approved"), TrackingStatus: strPtr("Out for delivery")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != order.StatusApproved || updated.TrackingStatus != "Out for delivery" {
		t.Fatalf("unexpected: %+v", updated)
	}
	if !updated.TotalPrice.Equal(decimal.NewFromInt(240)) || !updated.Items[0].Price.Equal(decimal.NewFromInt(120)) {
		t.Fatalf("snapshot changed: %+v", updated)
	}
	if updated.Customer != o.Customer {
		t.Fatalf("customer changed: %+v", updated.Customer)
	}

	// Tracking only, by internal id.
	again, err := f.svc.UpdateStatus(ctx, "1", StatusChange{TrackingStatus: strPtr("Delivered")})
	if err != nil {
		t.Fatalf("update by id: %v", err)
	}
	if again.Status != order.StatusApproved || again.TrackingStatus != "Delivered" {
		t.Fatalf("unexpected: %+v", again)
	}
	if got := f.events.Types(); len(got) != 3 || got[2] != order.EventUpdated {
		t.Fatalf("events = %v", got)
	}
}

func TestUpdateStatusValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o, _ := f.svc.PlaceOrder(ctx, samosaRequest(f, 240))

	if _, err := f.svc.UpdateStatus(ctx, o.OrderID, StatusChange{}); !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("expected validation error for empty change, got %v", err)
	}
	if _, err := f.svc.UpdateStatus(ctx, o.OrderID, StatusChange{Status: strPtr("shipped")}); !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("expected validation error for unknown status, got %v", err)
	}
	if _, err := f.svc.UpdateStatus(ctx, "ZZZZZZZZ", StatusChange{Status: strPtr("approved")}); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestTransitionPolicy(t *testing.T) {
	ctx := context.Background()

	permissive := newFixture(t)
	o, _ := permissive.svc.PlaceOrder(ctx, samosaRequest(permissive, 240))
	if _, err := permissive.svc.UpdateStatus(ctx, o.OrderID, StatusChange{Status: strPtr("approved")}); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := permissive.svc.UpdateStatus(ctx, o.OrderID, StatusChange{Status: strPtr("pending")}); err != nil {
		t.Fatalf("permissive policy should allow approved -> pending: %v", err)
	}

	strict := newFixture(t, WithStrictTransitions(true))
	o, _ = strict.svc.PlaceOrder(ctx, samosaRequest(strict, 240))
	if _, err := strict.svc.UpdateStatus(ctx, o.OrderID, StatusChange{Status: strPtr("approved")}); err != nil {
		t.Fatalf("approve: %v", err)
	}
	_, err := strict.svc.UpdateStatus(ctx, o.OrderID, StatusChange{Status: strPtr("pending")})
	if !errors.Is(err, apperrors.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	// Tracking text may still change on a terminal order.
	if _, err := strict.svc.UpdateStatus(ctx, o.OrderID, StatusChange{TrackingStatus: strPtr("Delivered")}); err != nil {
		t.Fatalf("tracking update: %v", err)
	}
}

func TestNewOrderIDAlphabet(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		id, err := NewOrderID()
		if err != nil {
			t.Fatalf("new id: %v", err)
		}
		if len(id) != OrderIDLength {
			t.Fatalf("length of %q", id)
		}
		if strings.ContainsAny(id, "01IO") {
			t.Fatalf("ambiguous character in %q", id)
		}
		seen[id] = struct{}{}
	}
	if len(seen) < 190 {
		t.Fatalf("only %d distinct ids out of 200", len(seen))
	}
}
