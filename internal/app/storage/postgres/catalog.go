package postgres

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dabbahouse/foodorder/internal/app/domain/announcement"
	"github.com/dabbahouse/foodorder/internal/app/domain/catalog"
)

type menuRow struct {
	ID          int64           `db:"id"`
	Name        string          `db:"name"`
	Category    string          `db:"category"`
	Description string          `db:"description"`
	Price       decimal.Decimal `db:"price"`
	ImageURL    string          `db:"image_url"`
	Available   bool            `db:"is_available"`
	CreatedAt   time.Time       `db:"created_at"`
}

func (r menuRow) toDomain() catalog.Item {
	return catalog.Item{
		ID:          r.ID,
		Name:        r.Name,
		Category:    r.Category,
		Description: r.Description,
		Price:       r.Price,
		ImageURL:    r.ImageURL,
		Available:   r.Available,
		CreatedAt:   r.CreatedAt,
	}
}

const menuColumns = `id, name, category, description, price, image_url, is_available, created_at`

// --- MenuStore ---------------------------------------------------------------

func (s *Store) CreateMenuItem(ctx context.Context, item catalog.Item) (catalog.Item, error) {
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO menu_items (name, category, description, price, image_url, is_available, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, item.Name, item.Category, item.Description, item.Price, item.ImageURL, item.Available, item.CreatedAt).Scan(&item.ID)
	if err != nil {
		return catalog.Item{}, mapError(err, "menu item", item.Name)
	}
	return item, nil
}

func (s *Store) UpdateMenuItem(ctx context.Context, item catalog.Item) (catalog.Item, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE menu_items
		SET name = $2, category = $3, description = $4, price = $5, image_url = $6, is_available = $7
		WHERE id = $1
	`, item.ID, item.Name, item.Category, item.Description, item.Price, item.ImageURL, item.Available)
	if err != nil {
		return catalog.Item{}, mapError(err, "menu item", item.ID)
	}
	if err := notFoundOnNoRows(result, "menu item", item.ID); err != nil {
		return catalog.Item{}, err
	}
	return s.GetMenuItem(ctx, item.ID)
}

func (s *Store) GetMenuItem(ctx context.Context, id int64) (catalog.Item, error) {
	var row menuRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+menuColumns+` FROM menu_items WHERE id = $1`, id); err != nil {
		return catalog.Item{}, mapError(err, "menu item", id)
	}
	return row.toDomain(), nil
}

func (s *Store) ListMenuItems(ctx context.Context, filter catalog.Filter) ([]catalog.Item, error) {
	var rows []menuRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+menuColumns+`
		FROM menu_items
		WHERE ($1 = '' OR category = $1)
		  AND (NOT $2 OR is_available)
		ORDER BY id
	`, filter.Category, filter.AvailableOnly)
	if err != nil {
		return nil, mapError(err, "menu item", "list")
	}
	result := make([]catalog.Item, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}

func (s *Store) DeleteMenuItem(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM menu_items WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "menu item", id)
	}
	return notFoundOnNoRows(result, "menu item", id)
}

func (s *Store) CountMenuItems(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM menu_items`); err != nil {
		return 0, mapError(err, "menu item", "count")
	}
	return n, nil
}

// --- AnnouncementStore -------------------------------------------------------

type announcementRow struct {
	ID        int64     `db:"id"`
	Title     string    `db:"title"`
	Message   string    `db:"message"`
	Active    bool      `db:"is_active"`
	CreatedBy int64     `db:"created_by"`
	CreatedAt time.Time `db:"created_at"`
}

func (r announcementRow) toDomain() announcement.Announcement {
	return announcement.Announcement{
		ID:        r.ID,
		Title:     r.Title,
		Message:   r.Message,
		Active:    r.Active,
		CreatedBy: r.CreatedBy,
		CreatedAt: r.CreatedAt,
	}
}

const announcementColumns = `id, title, message, is_active, created_by, created_at`

func (s *Store) CreateAnnouncement(ctx context.Context, a announcement.Announcement) (announcement.Announcement, error) {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO announcements (title, message, is_active, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, a.Title, a.Message, a.Active, a.CreatedBy, a.CreatedAt).Scan(&a.ID)
	if err != nil {
		return announcement.Announcement{}, mapError(err, "announcement", a.Title)
	}
	return a, nil
}

func (s *Store) UpdateAnnouncement(ctx context.Context, a announcement.Announcement) (announcement.Announcement, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE announcements SET title = $2, message = $3, is_active = $4 WHERE id = $1
	`, a.ID, a.Title, a.Message, a.Active)
	if err != nil {
		return announcement.Announcement{}, mapError(err, "announcement", a.ID)
	}
	if err := notFoundOnNoRows(result, "announcement", a.ID); err != nil {
		return announcement.Announcement{}, err
	}
	return s.GetAnnouncement(ctx, a.ID)
}

func (s *Store) GetAnnouncement(ctx context.Context, id int64) (announcement.Announcement, error) {
	var row announcementRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+announcementColumns+` FROM announcements WHERE id = $1`, id); err != nil {
		return announcement.Announcement{}, mapError(err, "announcement", id)
	}
	return row.toDomain(), nil
}

func (s *Store) ListAnnouncements(ctx context.Context, activeOnly bool) ([]announcement.Announcement, error) {
	var rows []announcementRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+announcementColumns+`
		FROM announcements
		WHERE (NOT $1 OR is_active)
		ORDER BY created_at DESC, id DESC
	`, activeOnly)
	if err != nil {
		return nil, mapError(err, "announcement", "list")
	}
	result := make([]announcement.Announcement, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}

func (s *Store) DeleteAnnouncement(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM announcements WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "announcement", id)
	}
	return notFoundOnNoRows(result, "announcement", id)
}
