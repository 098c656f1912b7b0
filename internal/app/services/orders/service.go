package orders

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dabbahouse/foodorder/internal/app/domain/catalog"
	"github.com/dabbahouse/foodorder/internal/app/domain/order"
	"github.com/dabbahouse/foodorder/internal/app/metrics"
	"github.com/dabbahouse/foodorder/internal/app/storage"
	apperrors "github.com/dabbahouse/foodorder/internal/errors"
	"github.com/dabbahouse/foodorder/pkg/logger"
)

const (
	maxIDAttempts  = 5
	currencyPlaces = 2
)

// MenuReader is the part of the catalog the ledger prices against.
type MenuReader interface {
	GetMenuItem(ctx context.Context, id int64) (catalog.Item, error)
}

// Publisher receives order events.
type Publisher interface {
	Publish(evt order.Event)
}

// Service is the order ledger.
type Service struct {
	store     storage.OrderStore
	menu      MenuReader
	publisher Publisher
	strict    bool
	newID     func() (string, error)
	now       func() time.Time
	log       *logger.Logger
}

// Option customises a Service.
type Option func(*Service)

// WithStrictTransitions enables the pending -> approved|rejected state
// machine.
func WithStrictTransitions(strict bool) Option {
	return func(s *Service) { s.strict = strict }
}

// WithPublisher sets where order events go.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithIDGenerator replaces the order reference generator.
func WithIDGenerator(gen func() (string, error)) Option {
	return func(s *Service) { s.newID = gen }
}

// New constructs the order ledger.
func New(store storage.OrderStore, menu MenuReader, log *logger.Logger, opts ...Option) *Service {
	if log == nil {
		log = logger.NewDefault("orders")
	}
	s := &Service{
		store: store,
		menu:  menu,
		newID: NewOrderID,
		now:   func() time.Time { return time.Now().UTC() },
		log:   log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LineRequest is one requested line. Name and Price are what the client
// displayed; the stored snapshot comes from the catalog.
type LineRequest struct {
	MenuItemID int64
	Name       string
	Price      decimal.Decimal
	Quantity   int
}

// PlaceRequest is the input of PlaceOrder.
type PlaceRequest struct {
	Customer   order.Customer
	Notes      string
	Items      []LineRequest
	TotalPrice decimal.Decimal
	// UserID is set when a customer session placed the order.
	UserID *int64
}

// Viewer describes who is reading an order.
type Viewer struct {
	Admin  bool
	UserID *int64
}

// CanView reports whether v may see o. Customers only see their own orders;
// anonymous callers only see guest orders.
func (v Viewer) CanView(o order.Order) bool {
	switch {
	case v.Admin:
		return true
	case v.UserID != nil:
		return o.OwnedBy(*v.UserID)
	default:
		return o.IsGuest()
	}
}

// PlaceOrder validates and prices the request against the catalog, then
// stores it as a pending order.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceRequest) (order.Order, error) {
	customer, err := normalizeCustomer(req.Customer)
	if err != nil {
		return order.Order{}, err
	}
	items, err := s.price(ctx, req.Items)
	if err != nil {
		return order.Order{}, err
	}
	total := order.Total(items)
	// Browsers sum prices in floating point, so totals match at cent precision.
	if !req.TotalPrice.Round(currencyPlaces).Equal(total.Round(currencyPlaces)) {
		return order.Order{}, apperrors.Validationf("total mismatch: submitted %s, expected %s",
			req.TotalPrice.String(), total.StringFixed(currencyPlaces)).
			WithDetails("expected_total", total.StringFixed(currencyPlaces))
	}

	o := order.Order{
		UserID:         req.UserID,
		Customer:       customer,
		Notes:          strings.TrimSpace(req.Notes),
		Items:          items,
		TotalPrice:     total,
		Status:         order.StatusPending,
		TrackingStatus: order.DefaultTrackingStatus,
		CreatedAt:      s.now(),
	}

	var created order.Order
	for attempt := 1; ; attempt++ {
		o.OrderID, err = s.newID()
		if err != nil {
			return order.Order{}, apperrors.Internal("generate order id", err)
		}
		created, err = s.store.CreateOrder(ctx, o)
		if err == nil {
			break
		}
		if !errors.Is(err, apperrors.ErrDuplicateKey) || attempt == maxIDAttempts {
			return order.Order{}, err
		}
		s.log.WithField("order_id", o.OrderID).WithField("attempt", attempt).Warn("order id collision, retrying")
	}

	metrics.RecordOrderPlaced(created.IsGuest(), created.TotalPrice.InexactFloat64())
	s.publish(order.EventCreated, created)
	s.log.WithField("order_id", created.OrderID).
		WithField("guest", created.IsGuest()).
		WithField("total", created.TotalPrice.StringFixed(2)).
		Info("order placed")
	return created, nil
}

func (s *Service) price(ctx context.Context, lines []LineRequest) ([]order.Item, error) {
	if len(lines) == 0 {
		return nil, apperrors.Validation("order must contain at least one item")
	}
	items := make([]order.Item, 0, len(lines))
	for i, line := range lines {
		if line.Quantity < 1 {
			return nil, apperrors.Validationf("items[%d]: quantity must be at least 1", i)
		}
		if line.MenuItemID <= 0 {
			return nil, apperrors.Validationf("items[%d]: id is required", i)
		}
		menuItem, err := s.menu.GetMenuItem(ctx, line.MenuItemID)
		if errors.Is(err, apperrors.ErrNotFound) || (err == nil && !menuItem.Available) {
			return nil, apperrors.Validationf("items[%d]: menu item %d is not available", i, line.MenuItemID)
		}
		if err != nil {
			return nil, err
		}
		items = append(items, order.Item{
			MenuItemID: menuItem.ID,
			Name:       menuItem.Name,
			Price:      menuItem.Price,
			Quantity:   line.Quantity,
		})
	}
	return items, nil
}

func normalizeCustomer(c order.Customer) (order.Customer, error) {
	c = order.Customer{
		Name:    strings.TrimSpace(c.Name),
		Phone:   strings.TrimSpace(c.Phone),
		Email:   strings.TrimSpace(c.Email),
		Address: strings.TrimSpace(c.Address),
		City:    strings.TrimSpace(c.City),
	}
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"name", c.Name}, {"phone", c.Phone}, {"email", c.Email}, {"address", c.Address}, {"city", c.City},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return c, apperrors.Validationf("missing customer details: %s", strings.Join(missing, ", ")).
			WithDetails("missing", missing)
	}
	return c, nil
}

// Get returns the order with the external reference orderID if viewer may
// see it. Orders the viewer may not see are reported as not found.
func (s *Service) Get(ctx context.Context, orderID string, viewer Viewer) (order.Order, error) {
	orderID = strings.ToUpper(strings.TrimSpace(orderID))
	o, err := s.store.GetOrderByOrderID(ctx, orderID)
	if err != nil {
		return order.Order{}, err
	}
	if !viewer.CanView(o) {
		return order.Order{}, apperrors.NotFound("order", orderID)
	}
	return o, nil
}

// ListForUser returns a customer's orders, newest first.
func (s *Service) ListForUser(ctx context.Context, userID int64) ([]order.Order, error) {
	return s.store.ListOrders(ctx, order.Filter{UserID: &userID})
}

// ListAll returns orders for the back office, newest first.
func (s *Service) ListAll(ctx context.Context, filter order.Filter) ([]order.Order, error) {
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, apperrors.Validation("limit and offset must not be negative")
	}
	return s.store.ListOrders(ctx, filter)
}

// StatusChange is the input of UpdateStatus. Nil fields keep their value.
type StatusChange struct {
	Status         *string
	TrackingStatus *string
	// ByOrderID reads the ref only as the external reference.
	ByOrderID bool
}

// UpdateStatus changes the fulfillment fields of the order identified by ref,
// which is either the numeric internal id or the external reference. A numeric
// ref matches an internal id first unless change.ByOrderID is set.
func (s *Service) UpdateStatus(ctx context.Context, ref string, change StatusChange) (order.Order, error) {
	if change.Status == nil && change.TrackingStatus == nil {
		return order.Order{}, apperrors.Validation("status or tracking_status is required")
	}
	current, err := s.resolve(ctx, ref, change.ByOrderID)
	if err != nil {
		return order.Order{}, err
	}

	update := order.StatusUpdate{
		Status:         current.Status,
		TrackingStatus: current.TrackingStatus,
		UpdatedAt:      s.now(),
	}
	if change.Status != nil {
		next, err := order.ParseStatus(*change.Status)
		if err != nil {
			return order.Order{}, apperrors.Validation(err.Error())
		}
		if !order.CanTransition(current.Status, next, s.strict) {
			return order.Order{}, apperrors.InvalidTransition(string(current.Status), string(next))
		}
		update.Status = next
	}
	if change.TrackingStatus != nil {
		update.TrackingStatus = strings.TrimSpace(*change.TrackingStatus)
	}
	if s.strict {
		update.Expect = current.Status
	}

	updated, err := s.store.UpdateOrderStatus(ctx, current.ID, update)
	if err != nil {
		return order.Order{}, err
	}
	metrics.RecordStatusChange(string(updated.Status))
	s.publish(order.EventUpdated, updated)
	s.log.WithField("order_id", updated.OrderID).
		WithField("from", current.Status).
		WithField("to", updated.Status).
		WithField("tracking_status", updated.TrackingStatus).
		Info("order status updated")
	return updated, nil
}

// resolve finds an order by internal id when ref is numeric, falling back to
// the external reference since references may also be all digits. An internal
// id wins over an all-digit reference with the same text.
func (s *Service) resolve(ctx context.Context, ref string, byOrderID bool) (order.Order, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return order.Order{}, apperrors.Validation("order id is required")
	}
	if byOrderID {
		return s.store.GetOrderByOrderID(ctx, strings.ToUpper(ref))
	}
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		o, err := s.store.GetOrder(ctx, id)
		if err == nil || !errors.Is(err, apperrors.ErrNotFound) {
			return o, err
		}
	}
	return s.store.GetOrderByOrderID(ctx, strings.ToUpper(ref))
}

// Stats aggregates the ledger.
func (s *Service) Stats(ctx context.Context) (order.Stats, error) {
	return s.store.OrderStats(ctx)
}

func (s *Service) publish(kind string, o order.Order) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(order.Event{Type: kind, Order: o})
}
