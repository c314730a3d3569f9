package api

import (
	"net/http"
	"strings"

	"github.com/ashureev/vami-console/internal/identity"
	"github.com/ashureev/vami-console/internal/session"
	"github.com/ashureev/vami-console/internal/validate"
	"github.com/ashureev/vami-console/internal/vamiapi"
	"github.com/go-chi/chi/v5"
)

// DefaultSignupPlan is used when registration names no plan.
const DefaultSignupPlan = "starter_trial"

// AuthHandler serves sign-in, sign-up and the session state.
type AuthHandler struct {
	*Handler
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(base *Handler) *AuthHandler {
	return &AuthHandler{Handler: base}
}

// RegisterRoutes registers auth routes.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/session", h.Session)
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/register", h.Register)
		r.Post("/logout", h.Logout)
		r.Post("/forgot-password", h.ForgotPassword)
		r.Post("/reset-password", h.ResetPassword)
		r.With(identity.RequireAuth).Get("/me", h.Me)
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	CompanyName string `json:"company_name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Plan        string `json:"plan"`
}

type resetRequest struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type registerResponse struct {
	session.State
	CheckoutURL string `json:"checkout_url,omitempty"`
}

// Session returns the device's session state. While the startup check is
// running the state reports loading.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	s := identity.SessionFromContext(r.Context())
	if s == nil {
		JSON(w, http.StatusOK, session.State{})
		return
	}
	JSON(w, http.StatusOK, s.Snapshot())
}

// Login signs the device in.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if errs := validate.Login.Validate(validate.Values{
		validate.FieldEmail:    req.Email,
		validate.FieldPassword: req.Password,
	}); errs != nil {
		h.fail(w, r, errs, "")
		return
	}

	s := identity.SessionFromContext(r.Context())
	if _, err := s.Login(r.Context(), strings.TrimSpace(req.Email), req.Password); err != nil {
		h.fail(w, r, err, "Login failed. Please check your credentials.")
		return
	}
	h.logger.Info("Device signed in", "device_id", identity.DeviceIDFromContext(r.Context()))
	JSON(w, http.StatusOK, s.Snapshot())
}

// Register creates an account and signs the device in. A checkout URL is
// returned when the chosen plan needs payment first.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if errs := validate.Register.Validate(validate.Values{
		validate.FieldCompanyName: req.CompanyName,
		validate.FieldEmail:       req.Email,
		validate.FieldPassword:    req.Password,
	}); errs != nil {
		h.fail(w, r, errs, "")
		return
	}
	if req.Plan == "" {
		req.Plan = DefaultSignupPlan
	}

	s := identity.SessionFromContext(r.Context())
	resp, err := s.Register(r.Context(), vamiapi.RegisterRequest{
		Email:       strings.TrimSpace(req.Email),
		Password:    req.Password,
		CompanyName: req.CompanyName,
		Plan:        req.Plan,
	})
	if err != nil {
		h.fail(w, r, err, "Registration failed. Please try again.")
		return
	}
	JSON(w, http.StatusCreated, registerResponse{State: s.Snapshot(), CheckoutURL: resp.CheckoutURL})
}

// Logout signs the device out. Every tab is sent to the login page.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if s := identity.SessionFromContext(r.Context()); s != nil {
		s.Logout(r.Context())
	}
	JSON(w, http.StatusOK, map[string]string{"redirect": session.LoginPath})
}

// Me refreshes and returns the signed-in user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	s := identity.SessionFromContext(r.Context())
	user, err := s.Client().Me(r.Context())
	if err != nil {
		h.fail(w, r, err, "Failed to load your account")
		return
	}
	s.SetUser(user)
	JSON(w, http.StatusOK, user)
}

// ForgotPassword asks the backend to email a reset link. The response does
// not reveal whether the address has an account.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if errs := validate.ForgotPassword.Validate(validate.Values{validate.FieldEmail: req.Email}); errs != nil {
		h.fail(w, r, errs, "")
		return
	}

	s := identity.SessionFromContext(r.Context())
	if err := s.Client().ForgotPassword(r.Context(), strings.TrimSpace(req.Email)); err != nil {
		h.fail(w, r, err, "Failed to send reset email. Please try again.")
		return
	}
	JSON(w, http.StatusOK, map[string]string{"message": "If an account exists for that email, a reset link is on its way."})
}

// ResetPassword sets a new password from a reset token.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Token == "" {
		Error(w, http.StatusBadRequest, "Invalid or missing reset token")
		return
	}
	if errs := validate.ResetPassword.Validate(validate.Values{
		validate.FieldPassword:        req.Password,
		validate.FieldConfirmPassword: req.ConfirmPassword,
	}); errs != nil {
		h.fail(w, r, errs, "")
		return
	}

	s := identity.SessionFromContext(r.Context())
	if err := s.Client().ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		h.fail(w, r, err, "Failed to reset password. The link may have expired.")
		return
	}
	JSON(w, http.StatusOK, map[string]string{"redirect": session.LoginPath})
}
