package announcement

import "time"

// Announcement is a notice authored by an admin and shown to customers while
// active.
type Announcement struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Active    bool      `json:"is_active"`
	CreatedBy int64     `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// Patch carries a partial update. Nil fields are left unchanged.
type Patch struct {
	Title   *string
	Message *string
	Active  *bool
}

// Apply merges p into a.
func (p Patch) Apply(a Announcement) Announcement {
	if p.Title != nil {
		a.Title = *p.Title
	}
	if p.Message != nil {
		a.Message = *p.Message
	}
	if p.Active != nil {
		a.Active = *p.Active
	}
	return a
}
