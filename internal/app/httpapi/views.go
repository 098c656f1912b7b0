package httpapi

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/dabbahouse/foodorder/internal/app/domain/catalog"
	"github.com/dabbahouse/foodorder/internal/app/domain/order"
)

// Every API response renders money as JSON numbers. Storage encodes its own
// JSON and does not depend on this setting.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

type menuItemView struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url"`
}

func menuView(items []catalog.Item) []menuItemView {
	out := make([]menuItemView, 0, len(items))
	for _, item := range items {
		out = append(out, menuItemView{
			ID:          item.ID,
			Name:        item.Name,
			Category:    item.Category,
			Description: item.Description,
			Price:       item.Price,
			ImageURL:    item.ImageURL,
		})
	}
	return out
}

// orderView flattens the customer snapshot. Contact details beyond the name
// are only rendered for the back office and the owning customer.
type orderView struct {
	ID              int64           `json:"id"`
	OrderID         string          `json:"order_id"`
	CustomerName    string          `json:"customer_name"`
	CustomerPhone   string          `json:"customer_phone,omitempty"`
	CustomerEmail   string          `json:"customer_email,omitempty"`
	CustomerAddress string          `json:"customer_address,omitempty"`
	CustomerCity    string          `json:"customer_city,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	Items           []order.Item    `json:"items"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	Status          order.Status    `json:"order_status"`
	TrackingStatus  string          `json:"tracking_status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func newOrderView(o order.Order, detailed bool) orderView {
	v := orderView{
		ID:             o.ID,
		OrderID:        o.OrderID,
		CustomerName:   o.Customer.Name,
		Items:          o.Items,
		TotalPrice:     o.TotalPrice,
		Status:         o.Status,
		TrackingStatus: o.TrackingStatus,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
	if v.Items == nil {
		v.Items = []order.Item{}
	}
	if detailed {
		v.CustomerPhone = o.Customer.Phone
		v.CustomerEmail = o.Customer.Email
		v.CustomerAddress = o.Customer.Address
		v.CustomerCity = o.Customer.City
		v.Notes = o.Notes
	}
	return v
}

func orderViews(list []order.Order, detailed bool) []orderView {
	out := make([]orderView, 0, len(list))
	for _, o := range list {
		out = append(out, newOrderView(o, detailed))
	}
	return out
}

type liveMessage struct {
	Type  string    `json:"type"`
	Order orderView `json:"order"`
}
