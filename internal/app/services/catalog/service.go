package catalog

import (
	"context"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	domain "github.com/dabbahouse/foodorder/internal/app/domain/catalog"
	"github.com/dabbahouse/foodorder/internal/app/storage"
	apperrors "github.com/dabbahouse/foodorder/internal/errors"
	"github.com/dabbahouse/foodorder/pkg/logger"
)

// Service manages the menu.
type Service struct {
	store storage.MenuStore
	log   *logger.Logger
}

// New constructs a catalog service.
func New(store storage.MenuStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("catalog")
	}
	return &Service{store: store, log: log}
}

// ListAvailable returns the items customers may order, optionally narrowed to
// one category.
func (s *Service) ListAvailable(ctx context.Context, category string) ([]domain.Item, error) {
	return s.store.ListMenuItems(ctx, domain.Filter{
		Category:      strings.TrimSpace(category),
		AvailableOnly: true,
	})
}

// ListAll returns every item including unavailable ones.
func (s *Service) ListAll(ctx context.Context) ([]domain.Item, error) {
	return s.store.ListMenuItems(ctx, domain.Filter{})
}

// Categories returns the distinct categories of available items, sorted.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	items, err := s.ListAvailable(ctx, "")
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	categories := make([]string, 0)
	for _, item := range items {
		if _, ok := seen[item.Category]; ok {
			continue
		}
		seen[item.Category] = struct{}{}
		categories = append(categories, item.Category)
	}
	sort.Strings(categories)
	return categories, nil
}

// Get returns an item by id.
func (s *Service) Get(ctx context.Context, id int64) (domain.Item, error) {
	return s.store.GetMenuItem(ctx, id)
}

// Create adds an item to the menu.
func (s *Service) Create(ctx context.Context, item domain.Item) (domain.Item, error) {
	item.Name = strings.TrimSpace(item.Name)
	item.Category = strings.TrimSpace(item.Category)
	if err := validateItem(item); err != nil {
		return domain.Item{}, err
	}
	created, err := s.store.CreateMenuItem(ctx, item)
	if err != nil {
		return domain.Item{}, err
	}
	s.log.WithField("item_id", created.ID).WithField("name", created.Name).Info("menu item created")
	return created, nil
}

// Update merges patch into the stored item.
func (s *Service) Update(ctx context.Context, id int64, patch domain.Patch) (domain.Item, error) {
	current, err := s.store.GetMenuItem(ctx, id)
	if err != nil {
		return domain.Item{}, err
	}
	next := patch.Apply(current)
	next.Name = strings.TrimSpace(next.Name)
	next.Category = strings.TrimSpace(next.Category)
	if err := validateItem(next); err != nil {
		return domain.Item{}, err
	}
	updated, err := s.store.UpdateMenuItem(ctx, next)
	if err != nil {
		return domain.Item{}, err
	}
	s.log.WithField("item_id", id).Info("menu item updated")
	return updated, nil
}

// Delete removes an item. Orders keep their own snapshot of it.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteMenuItem(ctx, id); err != nil {
		return err
	}
	s.log.WithField("item_id", id).Info("menu item deleted")
	return nil
}

// Count returns the number of items on the menu.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.store.CountMenuItems(ctx)
}

func validateItem(item domain.Item) error {
	if item.Name == "" {
		return apperrors.Validation("name is required")
	}
	if item.Category == "" {
		return apperrors.Validation("category is required")
	}
	if item.Price.LessThan(decimal.Zero) {
		return apperrors.Validation("price must not be negative")
	}
	return nil
}
