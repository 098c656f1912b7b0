package announcements

import (
	"context"
	"strings"

	"github.com/dabbahouse/foodorder/internal/app/domain/announcement"
	"github.com/dabbahouse/foodorder/internal/app/storage"
	apperrors "github.com/dabbahouse/foodorder/internal/errors"
	"github.com/dabbahouse/foodorder/pkg/logger"
)

// Service manages announcements shown on the storefront.
type Service struct {
	store storage.AnnouncementStore
	log   *logger.Logger
}

// New constructs an announcement service.
func New(store storage.AnnouncementStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("announcements")
	}
	return &Service{store: store, log: log}
}

// Create stores a new announcement authored by adminID. A nil active flag
// means active.
func (s *Service) Create(ctx context.Context, adminID int64, title, message string, active *bool) (announcement.Announcement, error) {
	a := announcement.Announcement{
		Title:     strings.TrimSpace(title),
		Message:   strings.TrimSpace(message),
		Active:    active == nil || *active,
		CreatedBy: adminID,
	}
	if err := validate(a); err != nil {
		return announcement.Announcement{}, err
	}
	created, err := s.store.CreateAnnouncement(ctx, a)
	if err != nil {
		return announcement.Announcement{}, err
	}
	s.log.WithField("announcement_id", created.ID).WithField("admin_id", adminID).Info("announcement created")
	return created, nil
}

// Update merges patch into the stored announcement.
func (s *Service) Update(ctx context.Context, id int64, patch announcement.Patch) (announcement.Announcement, error) {
	current, err := s.store.GetAnnouncement(ctx, id)
	if err != nil {
		return announcement.Announcement{}, err
	}
	next := patch.Apply(current)
	next.Title = strings.TrimSpace(next.Title)
	next.Message = strings.TrimSpace(next.Message)
	if err := validate(next); err != nil {
		return announcement.Announcement{}, err
	}
	return s.store.UpdateAnnouncement(ctx, next)
}

// Delete removes an announcement.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteAnnouncement(ctx, id); err != nil {
		return err
	}
	s.log.WithField("announcement_id", id).Info("announcement deleted")
	return nil
}

// ListActive returns the announcements customers see, newest first.
func (s *Service) ListActive(ctx context.Context) ([]announcement.Announcement, error) {
	return s.store.ListAnnouncements(ctx, true)
}

// ListAll returns every announcement, newest first.
func (s *Service) ListAll(ctx context.Context) ([]announcement.Announcement, error) {
	return s.store.ListAnnouncements(ctx, false)
}

func validate(a announcement.Announcement) error {
	if a.Title == "" {
		return apperrors.Validation("title is required")
	}
	if a.Message == "" {
		return apperrors.Validation("message is required")
	}
	return nil
}
