// Package order defines placed orders and their fulfillment status.
package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the fulfillment decision on an order.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// DefaultTrackingStatus is the tracking text every new order starts with.
const DefaultTrackingStatus = "Order Confirmed"

// ParseStatus validates a client supplied status.
func ParseStatus(raw string) (Status, error) {
	switch s := Status(strings.ToLower(strings.TrimSpace(raw))); s {
	case StatusPending, StatusApproved, StatusRejected:
		return s, nil
	default:
		return "", fmt.Errorf("unknown order status %q", raw)
	}
}

// CanTransition reports whether an order may move from one status to another.
// Without strict mode every move is allowed. In strict mode pending may
// become approved or rejected and both are terminal.
func CanTransition(from, to Status, strict bool) bool {
	if !strict || from == to {
		return true
	}
	return from == StatusPending && (to == StatusApproved || to == StatusRejected)
}

// Customer is the contact snapshot captured when the order is placed.
type Customer struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
	City    string `json:"city"`
}

// Item is a line of the order. Name and Price are copied from the menu at
// order time and never change afterwards.
type Item struct {
	MenuItemID int64           `json:"id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
}

// Subtotal returns price times quantity.
func (i Item) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Total sums the subtotals of items.
func Total(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// Order is a placed order. OrderID is the short external reference shown to
// customers; ID is the internal key.
type Order struct {
	ID             int64           `json:"id"`
	OrderID        string          `json:"order_id"`
	UserID         *int64          `json:"user_id"`
	Customer       Customer        `json:"customer"`
	Notes          string          `json:"notes"`
	Items          []Item          `json:"items"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	Status         Status          `json:"order_status"`
	TrackingStatus string          `json:"tracking_status"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// IsGuest reports whether the order was placed without a customer session.
func (o Order) IsGuest() bool { return o.UserID == nil }

// OwnedBy reports whether the order belongs to userID.
func (o Order) OwnedBy(userID int64) bool {
	return o.UserID != nil && *o.UserID == userID
}

// Filter narrows order listings.
type Filter struct {
	UserID *int64
	Status Status
	Limit  int
	Offset int
}

// StatusUpdate describes a fulfillment change. When Expect is set the update
// only applies if the stored status still equals it.
type StatusUpdate struct {
	Status         Status
	TrackingStatus string
	Expect         Status
	UpdatedAt      time.Time
}

// Stats aggregates the ledger for the dashboard.
type Stats struct {
	TotalOrders    int             `json:"total_orders"`
	PendingOrders  int             `json:"pending_orders"`
	ApprovedOrders int             `json:"approved_orders"`
	RejectedOrders int             `json:"rejected_orders"`
	TotalRevenue   decimal.Decimal `json:"total_revenue"`
}

// Event is published whenever an order is created or changes status.
type Event struct {
	Type  string `json:"type"`
	Order Order  `json:"order"`
}

const (
	EventCreated = "order.created"
	EventUpdated = "order.updated"
)
