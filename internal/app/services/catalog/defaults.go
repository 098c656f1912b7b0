package catalog

import (
	"context"

	"github.com/shopspring/decimal"

	domain "github.com/dabbahouse/foodorder/internal/app/domain/catalog"
)

func dish(name, category, description string, price int64, image string) domain.Item {
	return domain.Item{
		Name:        name,
		Category:    category,
		Description: description,
		Price:       decimal.NewFromInt(price),
		ImageURL:    "/static/images/" + image,
		Available:   true,
	}
}

// DefaultMenu is the starter menu loaded by the seed tool.
func DefaultMenu() []domain.Item {
	return []domain.Item{
		dish("Grilled Chicken Biryani", "Main Courses", "Fragrant basmati rice layered with spiced grilled chicken", 450, "biryani.jpg"),
		dish("Butter Chicken", "Main Courses", "Tender chicken simmered in a creamy tomato and butter gravy", 380, "butter-chicken.jpg"),
		dish("Beef Karahi", "Main Courses", "Beef cooked in a wok with tomatoes, ginger and green chillies", 520, "karahi.jpg"),
		dish("Samosas", "Appetizers", "Crispy pastries stuffed with spiced potatoes and peas", 120, "samosa.jpg"),
		dish("Chicken Tikka", "Appetizers", "Charcoal grilled chicken marinated in yogurt and spices", 280, "tikka.jpg"),
		dish("Seekh Kabab", "Appetizers", "Minced meat skewers grilled over open flame", 250, "seekh-kabab.jpg"),
		dish("Gulab Jamun", "Desserts", "Milk dumplings soaked in rose scented syrup", 150, "gulab-jamun.jpg"),
		dish("Kheer", "Desserts", "Slow cooked rice pudding with cardamom and nuts", 130, "kheer.jpg"),
		dish("Jalebi", "Desserts", "Crisp spirals of fried batter dipped in saffron syrup", 100, "jalebi.jpg"),
	}
}

// SeedDefaults loads DefaultMenu when the menu is empty and reports how many
// items were inserted.
func (s *Service) SeedDefaults(ctx context.Context) (int, error) {
	count, err := s.store.CountMenuItems(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.log.WithField("items", count).Info("menu already populated, skipping seed")
		return 0, nil
	}
	inserted := 0
	for _, item := range DefaultMenu() {
		if _, err := s.Create(ctx, item); err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}
