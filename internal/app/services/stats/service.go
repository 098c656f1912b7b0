// Package stats aggregates dashboard figures for the back office.
package stats

import (
	"context"
	"fmt"

	"github.com/dabbahouse/foodorder/internal/app/domain/order"
	"github.com/dabbahouse/foodorder/internal/app/storage"
)

// Dashboard is the back-office summary. It is recomputed on every request.
type Dashboard struct {
	order.Stats
	TotalUsers    int `json:"total_users"`
	TotalProducts int `json:"total_products"`
}

// Service computes dashboard figures.
type Service struct {
	orders storage.OrderStore
	users  storage.UserStore
	menu   storage.MenuStore
}

// New constructs a stats service.
func New(orders storage.OrderStore, users storage.UserStore, menu storage.MenuStore) *Service {
	return &Service{orders: orders, users: users, menu: menu}
}

// Dashboard returns the current figures.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	orderStats, err := s.orders.OrderStats(ctx)
	if err != nil {
		return Dashboard{}, fmt.Errorf("order stats: %w", err)
	}
	users, err := s.users.CountUsers(ctx)
	if err != nil {
		return Dashboard{}, fmt.Errorf("count users: %w", err)
	}
	products, err := s.menu.CountMenuItems(ctx)
	if err != nil {
		return Dashboard{}, fmt.Errorf("count menu items: %w", err)
	}
	return Dashboard{Stats: orderStats, TotalUsers: users, TotalProducts: products}, nil
}
