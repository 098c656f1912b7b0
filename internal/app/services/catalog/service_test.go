package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	domain "github.com/dabbahouse/foodorder/internal/app/domain/catalog"
	"github.com/dabbahouse/foodorder/internal/app/storage/memory"
	apperrors "github.com/dabbahouse/foodorder/internal/errors"
	"github.com/dabbahouse/foodorder/pkg/testutil"
)

func newService() *Service {
	log := testutil.QuietLogger("catalog-test")
	return New(memory.New(), log)
}

func TestSeedDefaultsIsIdempotent(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	n, err := svc.SeedDefaults(ctx)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if n != len(DefaultMenu()) {
		t.Fatalf("inserted %d, want %d", n, len(DefaultMenu()))
	}
	n, err = svc.SeedDefaults(ctx)
	if err != nil || n != 0 {
		t.Fatalf("second seed inserted %d (err %v)", n, err)
	}

	cats, err := svc.Categories(ctx)
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	want := []string{"Appetizers", "Desserts", "Main Courses"}
	if len(cats) != len(want) {
		t.Fatalf("categories = %v", cats)
	}
	for i := range want {
		if cats[i] != want[i] {
			t.Fatalf("categories = %v, want %v", cats, want)
		}
	}
}

func TestListAvailableHidesUnavailable(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	visible, _ := svc.Create(ctx, domain.Item{Name: "Kheer", Category: "Desserts", Price: decimal.NewFromInt(130), Available: true})
	if _, err := svc.Create(ctx, domain.Item{Name: "Jalebi", Category: "Desserts", Price: decimal.NewFromInt(100)}); err != nil {
		t.Fatalf("create: %v", err)
	}

	items, err := svc.ListAvailable(ctx, "Desserts")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].ID != visible.ID {
		t.Fatalf("customer list = %+v", items)
	}

	all, _ := svc.ListAll(ctx)
	if len(all) != 2 {
		t.Fatalf("admin list has %d items", len(all))
	}

	if empty, _ := svc.ListAvailable(ctx, "Main Courses"); len(empty) != 0 {
		t.Fatalf("expected no main courses, got %+v", empty)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	cases := map[string]domain.Item{
		"no name":        {Category: "Desserts"},
		"no category":    {Name: "Kheer"},
		"negative price": {Name: "Kheer", Category: "Desserts", Price: decimal.NewFromInt(-1)},
	}
	for name, item := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.Create(ctx, item); !errors.Is(err, apperrors.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestUpdateMergesOnlyGivenFields(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	item, _ := svc.Create(ctx, domain.Item{
		Name: "Samosas", Category: "Appetizers", Description: "Crispy", Price: decimal.NewFromInt(120), Available: true,
	})

	price := decimal.NewFromInt(140)
	off := false
	updated, err := svc.Update(ctx, item.ID, domain.Patch{Price: &price, Available: &off})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Samosas" || updated.Description != "Crispy" {
		t.Fatalf("untouched fields changed: %+v", updated)
	}
	if !updated.Price.Equal(price) || updated.Available {
		t.Fatalf("patch not applied: %+v", updated)
	}

	blank := " "
	if _, err := svc.Update(ctx, item.ID, domain.Patch{Name: &blank}); !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.Update(ctx, 999, domain.Patch{Price: &price}); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	item, _ := svc.Create(ctx, domain.Item{Name: "Kheer", Category: "Desserts", Available: true})
	if err := svc.Delete(ctx, item.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(ctx, item.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
