// Package catalog defines menu items offered to customers.
package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is a dish on the menu. Price is never negative.
type Item struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url"`
	Available   bool            `json:"is_available"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Filter narrows item listings. Zero values match everything.
type Filter struct {
	Category      string
	AvailableOnly bool
}

// Matches reports whether item passes the filter.
func (f Filter) Matches(item Item) bool {
	if f.AvailableOnly && !item.Available {
		return false
	}
	if f.Category != "" && f.Category != item.Category {
		return false
	}
	return true
}

// Patch carries the fields of a partial item update. Nil fields are left
// unchanged.
type Patch struct {
	Name        *string
	Category    *string
	Description *string
	Price       *decimal.Decimal
	ImageURL    *string
	Available   *bool
}

// Apply merges p into item.
func (p Patch) Apply(item Item) Item {
	if p.Name != nil {
		item.Name = *p.Name
	}
	if p.Category != nil {
		item.Category = *p.Category
	}
	if p.Description != nil {
		item.Description = *p.Description
	}
	if p.Price != nil {
		item.Price = *p.Price
	}
	if p.ImageURL != nil {
		item.ImageURL = *p.ImageURL
	}
	if p.Available != nil {
		item.Available = *p.Available
	}
	return item
}
