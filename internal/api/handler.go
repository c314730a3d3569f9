// Package api provides HTTP handlers for the Vami console.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/ashureev/vami-console/internal/onboarding"
	"github.com/ashureev/vami-console/internal/pages"
	"github.com/ashureev/vami-console/internal/session"
	"github.com/ashureev/vami-console/internal/validate"
	"github.com/ashureev/vami-console/internal/vamiapi"
)

const maxBodyBytes = 1 << 20

// Handler provides common handler utilities.
type Handler struct {
	logger *slog.Logger
}

// NewHandler creates a base handler.
func NewHandler(logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("Failed to encode response", "error", err)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// ErrorBody is the shape of every error response.
type ErrorBody struct {
	Error    string          `json:"error"`
	Fields   validate.Errors `json:"fields,omitempty"`
	Redirect string          `json:"redirect,omitempty"`
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

// fail maps err onto a response. fallback is the message shown when the
// error carries nothing better.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status, body := h.classify(err, fallback)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	} else {
		h.logger.Debug("Request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	JSON(w, status, body)
}

func (h *Handler) classify(err error, fallback string) (int, ErrorBody) {
	var (
		fieldErrs validate.Errors
		wizardErr *onboarding.ValidationError
		actErr    *onboarding.ActivationError
	)
	switch {
	case errors.As(err, &wizardErr):
		return http.StatusUnprocessableEntity, ErrorBody{Error: "Please fix the highlighted fields", Fields: wizardErr.Fields}
	case errors.As(err, &fieldErrs):
		return http.StatusUnprocessableEntity, ErrorBody{Error: "Please fix the highlighted fields", Fields: fieldErrs}
	case vamiapi.IsUnauthorized(err):
		return http.StatusUnauthorized, ErrorBody{Error: "Your session has expired. Please sign in again.", Redirect: session.LoginPath}
	case errors.As(err, &actErr):
		return statusForKind(vamiapi.KindOf(actErr.Err)), ErrorBody{Error: actErr.Message}
	case errors.Is(err, onboarding.ErrWrongStep),
		errors.Is(err, onboarding.ErrCannotProceed),
		errors.Is(err, onboarding.ErrActivating):
		return http.StatusConflict, ErrorBody{Error: err.Error()}
	case errors.Is(err, pages.ErrUnknownPlan):
		return http.StatusBadRequest, ErrorBody{Error: pages.PaymentFailedMessage, Redirect: pages.PricingPath}
	case errors.Is(err, pages.ErrUnknownCycle):
		return http.StatusBadRequest, ErrorBody{Error: err.Error()}
	case errors.Is(err, pages.ErrNoCheckoutURL):
		return http.StatusBadGateway, ErrorBody{Error: pages.CheckoutFailedMessage}
	case errors.Is(err, pages.ErrNoPortalURL), errors.Is(err, pages.ErrNoAuthURL):
		return http.StatusBadGateway, ErrorBody{Error: fallback}
	case errors.Is(err, pages.ErrNoAgent):
		return http.StatusNotFound, ErrorBody{Error: "Set up your agent first", Redirect: pages.OnboardingPath}
	}

	var apiErr *vamiapi.Error
	if errors.As(err, &apiErr) {
		return statusForKind(apiErr.Kind), ErrorBody{Error: vamiapi.Message(err, fallback)}
	}
	return http.StatusInternalServerError, ErrorBody{Error: fallback}
}

func statusForKind(k vamiapi.Kind) int {
	switch k {
	case vamiapi.KindValidation:
		return http.StatusBadRequest
	case vamiapi.KindConflict:
		return http.StatusConflict
	case vamiapi.KindNotFound:
		return http.StatusNotFound
	case vamiapi.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusBadGateway
	}
}
