package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dabbahouse/foodorder/internal/app/domain/order"
	apperrors "github.com/dabbahouse/foodorder/internal/errors"
)

type orderRow struct {
	ID              int64           `db:"id"`
	OrderID         string          `db:"order_id"`
	UserID          sql.NullInt64   `db:"user_id"`
	CustomerName    string          `db:"customer_name"`
	CustomerPhone   string          `db:"customer_phone"`
	CustomerEmail   string          `db:"customer_email"`
	CustomerAddress string          `db:"customer_address"`
	CustomerCity    string          `db:"customer_city"`
	Notes           string          `db:"notes"`
	Items           []byte          `db:"items"`
	TotalPrice      decimal.Decimal `db:"total_price"`
	Status          string          `db:"order_status"`
	TrackingStatus  string          `db:"tracking_status"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

func (r orderRow) toDomain() (order.Order, error) {
	o := order.Order{
		ID:      r.ID,
		OrderID: r.OrderID,
		Customer: order.Customer{
			Name:    r.CustomerName,
			Phone:   r.CustomerPhone,
			Email:   r.CustomerEmail,
			Address: r.CustomerAddress,
			City:    r.CustomerCity,
		},
		Notes:          r.Notes,
		TotalPrice:     r.TotalPrice,
		Status:         order.Status(r.Status),
		TrackingStatus: r.TrackingStatus,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	if r.UserID.Valid {
		uid := r.UserID.Int64
		o.UserID = &uid
	}
	if len(r.Items) > 0 {
		items, err := decodeItems(r.Items)
		if err != nil {
			return order.Order{}, fmt.Errorf("decode items of order %s: %w", r.OrderID, err)
		}
		o.Items = items
	}
	return o, nil
}

// itemRecord is the JSONB shape of an order line. Prices are stored as JSON
// numbers regardless of how decimals marshal elsewhere in the process.
type itemRecord struct {
	ID       int64       `json:"id"`
	Name     string      `json:"name"`
	Price    json.Number `json:"price"`
	Quantity int         `json:"quantity"`
}

func encodeItems(items []order.Item) ([]byte, error) {
	records := make([]itemRecord, 0, len(items))
	for _, item := range items {
		records = append(records, itemRecord{
			ID:       item.MenuItemID,
			Name:     item.Name,
			Price:    json.Number(item.Price.String()),
			Quantity: item.Quantity,
		})
	}
	return json.Marshal(records)
}

func decodeItems(raw []byte) ([]order.Item, error) {
	var records []itemRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, err
	}
	items := make([]order.Item, 0, len(records))
	for _, rec := range records {
		price, err := decimal.NewFromString(rec.Price.String())
		if err != nil {
			return nil, fmt.Errorf("price of item %d: %w", rec.ID, err)
		}
		items = append(items, order.Item{
			MenuItemID: rec.ID,
			Name:       rec.Name,
			Price:      price,
			Quantity:   rec.Quantity,
		})
	}
	return items, nil
}

const orderColumns = `id, order_id, user_id, customer_name, customer_phone, customer_email, customer_address,
	customer_city, notes, items, total_price, order_status, tracking_status, created_at, updated_at`

// --- OrderStore --------------------------------------------------------------

func (s *Store) CreateOrder(ctx context.Context, o order.Order) (order.Order, error) {
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	o.UpdatedAt = o.CreatedAt

	itemsJSON, err := encodeItems(o.Items)
	if err != nil {
		return order.Order{}, err
	}
	var userID sql.NullInt64
	if o.UserID != nil {
		userID = sql.NullInt64{Int64: *o.UserID, Valid: true}
	}

	err = s.db.QueryRowxContext(ctx, `
		INSERT INTO orders (order_id, user_id, customer_name, customer_phone, customer_email, customer_address,
			customer_city, notes, items, total_price, order_status, tracking_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id
	`, o.OrderID, userID, o.Customer.Name, o.Customer.Phone, o.Customer.Email, o.Customer.Address,
		o.Customer.City, o.Notes, itemsJSON, o.TotalPrice, string(o.Status), o.TrackingStatus,
		o.CreatedAt, o.UpdatedAt).Scan(&o.ID)
	if err != nil {
		return order.Order{}, mapError(err, "order", o.OrderID)
	}
	return o, nil
}

func (s *Store) GetOrder(ctx context.Context, id int64) (order.Order, error) {
	var row orderRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id); err != nil {
		return order.Order{}, mapError(err, "order", id)
	}
	return row.toDomain()
}

func (s *Store) GetOrderByOrderID(ctx context.Context, orderID string) (order.Order, error) {
	var row orderRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+orderColumns+` FROM orders WHERE order_id = $1`, orderID); err != nil {
		return order.Order{}, mapError(err, "order", orderID)
	}
	return row.toDomain()
}

func (s *Store) ListOrders(ctx context.Context, filter order.Filter) ([]order.Order, error) {
	var userID sql.NullInt64
	if filter.UserID != nil {
		userID = sql.NullInt64{Int64: *filter.UserID, Valid: true}
	}
	var limit sql.NullInt64
	if filter.Limit > 0 {
		limit = sql.NullInt64{Int64: int64(filter.Limit), Valid: true}
	}

	var rows []orderRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE ($1::BIGINT IS NULL OR user_id = $1)
		  AND ($2 = '' OR order_status = $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4
	`, userID, string(filter.Status), limit, filter.Offset)
	if err != nil {
		return nil, mapError(err, "order", "list")
	}

	result := make([]order.Order, 0, len(rows))
	for _, row := range rows {
		o, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	return result, nil
}

// UpdateOrderStatus writes only the fulfillment columns. When update.Expect is
// set the row must still hold that status.
func (s *Store) UpdateOrderStatus(ctx context.Context, id int64, update order.StatusUpdate) (order.Order, error) {
	if update.UpdatedAt.IsZero() {
		update.UpdatedAt = time.Now().UTC()
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE orders
		SET order_status = $2, tracking_status = $3, updated_at = $4
		WHERE id = $1 AND ($5 = '' OR order_status = $5)
	`, id, string(update.Status), update.TrackingStatus, update.UpdatedAt, string(update.Expect))
	if err != nil {
		return order.Order{}, mapError(err, "order", id)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		if _, err := s.GetOrder(ctx, id); err != nil {
			return order.Order{}, err
		}
		return order.Order{}, apperrors.Conflict("order status changed concurrently")
	}
	return s.GetOrder(ctx, id)
}

func (s *Store) OrderStats(ctx context.Context) (order.Stats, error) {
	var row struct {
		Total    int             `db:"total"`
		Pending  int             `db:"pending"`
		Approved int             `db:"approved"`
		Rejected int             `db:"rejected"`
		Revenue  decimal.Decimal `db:"revenue"`
	}
	err := s.db.GetContext(ctx, &row, `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE order_status = 'pending') AS pending,
			COUNT(*) FILTER (WHERE order_status = 'approved') AS approved,
			COUNT(*) FILTER (WHERE order_status = 'rejected') AS rejected,
			COALESCE(SUM(total_price), 0) AS revenue
		FROM orders
	`)
	if err != nil {
		return order.Stats{}, mapError(err, "order", "stats")
	}
	return order.Stats{
		TotalOrders:    row.Total,
		PendingOrders:  row.Pending,
		ApprovedOrders: row.Approved,
		RejectedOrders: row.Rejected,
		TotalRevenue:   row.Revenue,
	}, nil
}
