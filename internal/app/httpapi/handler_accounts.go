package httpapi

import (
	"net/http"

	"github.com/dabbahouse/foodorder/internal/app/auth"
	"github.com/dabbahouse/foodorder/internal/app/domain/identity"
	"github.com/dabbahouse/foodorder/internal/app/domain/order"
	"github.com/dabbahouse/foodorder/internal/app/domain/session"
	"github.com/dabbahouse/foodorder/internal/app/metrics"
	"github.com/dabbahouse/foodorder/internal/app/services/accounts"
	apperrors "github.com/dabbahouse/foodorder/internal/errors"
	"github.com/dabbahouse/foodorder/internal/httputil"
)

type registerUserRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type loginUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) registerUser(w http.ResponseWriter, r *http.Request) {
	var body registerUserRequest
	if err := httputil.DecodeJSON(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	user, err := h.app.Accounts.RegisterUser(r.Context(), body.Email, body.Password, body.ConfirmPassword)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	token, err := h.loginCustomer(w, r, user)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"user":    user,
		"token":   token,
	})
}

func (h *Handler) loginUser(w http.ResponseWriter, r *http.Request) {
	var body loginUserRequest
	if err := httputil.DecodeJSON(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	user, err := h.app.Accounts.AuthenticateUser(r.Context(), body.Email, body.Password)
	metrics.RecordLogin(string(session.RoleCustomer), "password", err == nil)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	token, err := h.loginCustomer(w, r, user)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    user,
		"token":   token,
	})
}

func (h *Handler) loginCustomer(w http.ResponseWriter, r *http.Request, user identity.User) (string, error) {
	return h.app.Sessions.Login(r.Context(), w, auth.Principal{
		Role:      session.RoleCustomer,
		SubjectID: user.ID,
		Username:  user.Email,
		Name:      user.Name,
	})
}

func (h *Handler) logoutUser(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Sessions.Logout(r.Context(), w, r, session.RoleCustomer); err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) googleStart(w http.ResponseWriter, r *http.Request) {
	if h.app.Google == nil {
		httputil.WriteError(w, http.StatusNotFound, "google sign-in is not configured")
		return
	}
	state, err := auth.NewState(w, h.app.CookieSecure())
	if err != nil {
		h.writeError(w, r, apperrors.Internal("create oauth state", err))
		return
	}
	http.Redirect(w, r, h.app.Google.AuthCodeURL(state), http.StatusFound)
}

func (h *Handler) googleCallback(w http.ResponseWriter, r *http.Request) {
	if h.app.Google == nil {
		httputil.WriteError(w, http.StatusNotFound, "google sign-in is not configured")
		return
	}
	if !auth.VerifyState(w, r, h.app.CookieSecure()) {
		metrics.RecordLogin(string(session.RoleCustomer), "google", false)
		h.writeError(w, r, apperrors.Unauthorized("oauth state mismatch"))
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		metrics.RecordLogin(string(session.RoleCustomer), "google", false)
		h.writeError(w, r, apperrors.Validation("missing authorization code"))
		return
	}

	ident, err := h.app.Google.Exchange(r.Context(), code)
	if err != nil {
		metrics.RecordLogin(string(session.RoleCustomer), "google", false)
		h.log.WithContext(r.Context()).WithError(err).Warn("google sign-in failed")
		h.writeError(w, r, apperrors.Unauthorized("google sign-in failed"))
		return
	}
	user, created, err := h.app.Accounts.ResolveSSOUser(r.Context(), ident.Email, ident.Name)
	metrics.RecordLogin(string(session.RoleCustomer), "google", err == nil)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if _, err := h.loginCustomer(w, r, user); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.log.WithContext(r.Context()).
		WithField("user_id", user.ID).
		WithField("created", created).
		Info("google sign-in")
	http.Redirect(w, r, h.successRedirect, http.StatusFound)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.Customer(r.Context())
	user, err := h.app.Accounts.GetUser(r.Context(), p.SubjectID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var body identity.Profile
	if err := httputil.DecodeJSON(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	p, _ := auth.Customer(r.Context())
	user, err := h.app.Accounts.UpdateProfile(r.Context(), p.SubjectID, body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) myOrders(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.Customer(r.Context())
	list, err := h.app.Orders.ListForUser(r.Context(), p.SubjectID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []order.Order{}
	}
	httputil.WriteJSON(w, http.StatusOK, orderViews(list, true))
}

type registerAdminRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginAdminRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) registerAdmin(w http.ResponseWriter, r *http.Request) {
	var body registerAdminRequest
	if err := httputil.DecodeJSON(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	admin, err := h.app.Accounts.RegisterAdmin(r.Context(), accounts.AdminRegistration{
		Username: body.Username,
		Email:    body.Email,
		Password: body.Password,
		Name:     body.Name,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"admin":   admin,
	})
}

func (h *Handler) loginAdmin(w http.ResponseWriter, r *http.Request) {
	var body loginAdminRequest
	if err := httputil.DecodeJSON(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	admin, err := h.app.Accounts.AuthenticateAdmin(r.Context(), body.Username, body.Password)
	metrics.RecordLogin(string(session.RoleAdmin), "password", err == nil)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	token, err := h.app.Sessions.Login(r.Context(), w, auth.Principal{
		Role:      session.RoleAdmin,
		SubjectID: admin.ID,
		Username:  admin.Username,
		Name:      admin.Name,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.log.WithContext(r.Context()).WithField("admin_id", admin.ID).Info("admin logged in")
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"admin":   admin,
		"token":   token,
	})
}

func (h *Handler) logoutAdmin(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Sessions.Logout(r.Context(), w, r, session.RoleAdmin); err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) adminMe(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.Admin(r.Context())
	admin, err := h.app.Accounts.GetAdmin(r.Context(), p.SubjectID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, admin)
}
