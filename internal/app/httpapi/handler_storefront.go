package httpapi

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/dabbahouse/foodorder/internal/app/auth"
	"github.com/dabbahouse/foodorder/internal/app/domain/announcement"
	"github.com/dabbahouse/foodorder/internal/app/domain/order"
	"github.com/dabbahouse/foodorder/internal/app/services/orders"
	apperrors "github.com/dabbahouse/foodorder/internal/errors"
	"github.com/dabbahouse/foodorder/internal/httputil"
)

func (h *Handler) listMenu(w http.ResponseWriter, r *http.Request) {
	items, err := h.app.Catalog.ListAvailable(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, menuView(items))
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.app.Catalog.Categories(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if categories == nil {
		categories = []string{}
	}
	httputil.WriteJSON(w, http.StatusOK, categories)
}

func (h *Handler) listAnnouncements(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Announcements.ListActive(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []announcement.Announcement{}
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

type customerDetails struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
	City    string `json:"city"`
	Notes   string `json:"notes"`
}

type orderLine struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

type placeOrderRequest struct {
	CustomerDetails *customerDetails `json:"customerDetails"`
	Items           []orderLine      `json:"items"`
	TotalPrice      *decimal.Decimal `json:"totalPrice"`
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var body placeOrderRequest
	if err := httputil.DecodeJSON(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	switch {
	case body.CustomerDetails == nil:
		h.writeError(w, r, apperrors.Validation("customerDetails is required"))
		return
	case body.TotalPrice == nil:
		h.writeError(w, r, apperrors.Validation("totalPrice is required"))
		return
	}

	req := orders.PlaceRequest{
		Customer: order.Customer{
			Name:    body.CustomerDetails.Name,
			Phone:   body.CustomerDetails.Phone,
			Email:   body.CustomerDetails.Email,
			Address: body.CustomerDetails.Address,
			City:    body.CustomerDetails.City,
		},
		Notes:      body.CustomerDetails.Notes,
		TotalPrice: *body.TotalPrice,
	}
	for _, line := range body.Items {
		req.Items = append(req.Items, orders.LineRequest{
			MenuItemID: line.ID,
			Name:       line.Name,
			Price:      line.Price,
			Quantity:   line.Quantity,
		})
	}
	if p, ok := auth.Customer(r.Context()); ok {
		id := p.SubjectID
		req.UserID = &id
	}

	created, err := h.app.Orders.PlaceOrder(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{
		"success":  true,
		"order_id": created.OrderID,
		"message":  "Order placed successfully",
	})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	viewer := viewerFor(r.Context())
	o, err := h.app.Orders.Get(r.Context(), mux.Vars(r)["order_id"], viewer)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newOrderView(o, viewer.Admin || !o.IsGuest()))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	filter := order.Filter{}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := order.ParseStatus(raw)
		if err != nil {
			h.writeError(w, r, apperrors.Validation(err.Error()))
			return
		}
		filter.Status = status
	}
	var err error
	if filter.Limit, err = queryInt(r, "limit", 0); err != nil {
		h.writeError(w, r, err)
		return
	}
	if filter.Offset, err = queryInt(r, "offset", 0); err != nil {
		h.writeError(w, r, err)
		return
	}

	list, err := h.app.Orders.ListAll(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, orderViews(list, true))
}

type statusRequest struct {
	Status         *string `json:"status"`
	TrackingStatus *string `json:"tracking_status"`
}

func (h *Handler) updateOrder(w http.ResponseWriter, r *http.Request) {
	var byOrderID bool
	switch by := r.URL.Query().Get("by"); by {
	case "", "id":
	case "order_id":
		byOrderID = true
	default:
		h.writeError(w, r, apperrors.Validationf("by must be id or order_id, got %q", by))
		return
	}
	var body statusRequest
	if err := httputil.DecodeJSON(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	updated, err := h.app.Orders.UpdateStatus(r.Context(), mux.Vars(r)["id"], orders.StatusChange{
		Status:         body.Status,
		TrackingStatus: body.TrackingStatus,
		ByOrderID:      byOrderID,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"order_id":        updated.OrderID,
		"status":          updated.Status,
		"tracking_status": updated.TrackingStatus,
	})
}
