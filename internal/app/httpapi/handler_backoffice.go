package httpapi

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/dabbahouse/foodorder/internal/app/auth"
	"github.com/dabbahouse/foodorder/internal/app/domain/announcement"
	"github.com/dabbahouse/foodorder/internal/app/domain/catalog"
	"github.com/dabbahouse/foodorder/internal/app/domain/identity"
	apperrors "github.com/dabbahouse/foodorder/internal/errors"
	"github.com/dabbahouse/foodorder/internal/httputil"
)

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.app.Stats.Dashboard(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, dashboard)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.app.Accounts.ListUsers(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if users == nil {
		users = []identity.User{}
	}
	httputil.WriteJSON(w, http.StatusOK, users)
}

func (h *Handler) listAdmins(w http.ResponseWriter, r *http.Request) {
	admins, err := h.app.Accounts.ListAdmins(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if admins == nil {
		admins = []identity.Admin{}
	}
	httputil.WriteJSON(w, http.StatusOK, admins)
}

// productRequest serves both create and update. On create, name, category and
// price are required and availability defaults to true.
type productRequest struct {
	Name        *string          `json:"name"`
	Category    *string          `json:"category"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	ImageURL    *string          `json:"image_url"`
	Available   *bool            `json:"is_available"`
}

func (p productRequest) patch() catalog.Patch {
	return catalog.Patch{
		Name:        p.Name,
		Category:    p.Category,
		Description: p.Description,
		Price:       p.Price,
		ImageURL:    p.ImageURL,
		Available:   p.Available,
	}
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	items, err := h.app.Catalog.ListAll(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if items == nil {
		items = []catalog.Item{}
	}
	httputil.WriteJSON(w, http.StatusOK, items)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var body productRequest
	if err := httputil.DecodeJSON(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	if body.Price == nil {
		h.writeError(w, r, apperrors.Validation("price is required"))
		return
	}
	item := body.patch().Apply(catalog.Item{Available: true})

	created, err := h.app.Catalog.Create(r.Context(), item)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{"success": true, "id": created.ID, "item": created})
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var body productRequest
	if err := httputil.DecodeJSON(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	updated, err := h.app.Catalog.Update(r.Context(), id, body.patch())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "item": updated})
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.app.Catalog.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

type announcementRequest struct {
	Title   *string `json:"title"`
	Message *string `json:"message"`
	Active  *bool   `json:"is_active"`
}

func (h *Handler) listAllAnnouncements(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Announcements.ListAll(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []announcement.Announcement{}
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) createAnnouncement(w http.ResponseWriter, r *http.Request) {
	var body announcementRequest
	if err := httputil.DecodeJSON(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	var title, message string
	if body.Title != nil {
		title = *body.Title
	}
	if body.Message != nil {
		message = *body.Message
	}
	p, _ := auth.Admin(r.Context())
	created, err := h.app.Announcements.Create(r.Context(), p.SubjectID, title, message, body.Active)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{"success": true, "id": created.ID})
}

func (h *Handler) updateAnnouncement(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var body announcementRequest
	if err := httputil.DecodeJSON(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	updated, err := h.app.Announcements.Update(r.Context(), id, announcement.Patch{
		Title:   body.Title,
		Message: body.Message,
		Active:  body.Active,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "id": updated.ID})
}

func (h *Handler) deleteAnnouncement(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.app.Announcements.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}
