package api

import (
	"net/http"
	"strings"

	"github.com/ashureev/vami-console/internal/domain"
	"github.com/ashureev/vami-console/internal/identity"
	"github.com/ashureev/vami-console/internal/pages"
	"github.com/ashureev/vami-console/internal/validate"
	"github.com/go-chi/chi/v5"
)

// PagesHandler serves the console views.
type PagesHandler struct {
	*Handler
	loader *pages.Loader
}

// NewPagesHandler creates a pages handler.
func NewPagesHandler(base *Handler, loader *pages.Loader) *PagesHandler {
	return &PagesHandler{Handler: base, loader: loader}
}

// RegisterRoutes registers page and billing routes.
func (h *PagesHandler) RegisterRoutes(r chi.Router) {
	// Public views.
	r.Get("/api/pages/pricing", h.Pricing)
	r.Get("/api/pages/help", h.Help)

	r.Group(func(r chi.Router) {
		r.Use(identity.RequireAuth)
		r.Get("/api/pages/dashboard", h.Dashboard)
		r.Get("/api/pages/analytics", h.Analytics)
		r.Get("/api/pages/calls", h.Calls)
		r.Get("/api/pages/billing", h.Billing)
		r.Get("/api/pages/calendar", h.Calendar)
		r.Get("/api/pages/team", h.Team)
		r.Post("/api/team/invite", h.Invite)
		r.Get("/api/pages/settings", h.Settings)
		r.Get("/api/integrations/google/auth-url", h.ConnectCalendar)
		r.Get("/api/pages/agent-settings", h.AgentSettings)
		r.Put("/api/agent", h.RenameAgent)
		r.Get("/api/agent/api-token", h.AgentToken)
		r.Post("/api/agent/regenerate-token", h.RegenerateAgentToken)
		r.Get("/api/pages/welcome", h.Welcome)
		r.Post("/api/billing/portal", h.Portal)
		r.Post("/api/billing/checkout", h.Checkout)
	})
}

func (h *PagesHandler) api(r *http.Request) pages.Backend {
	return identity.SessionFromContext(r.Context()).Client()
}

// render writes a loaded view, or the failure that stopped it.
func render[T any](h *PagesHandler, w http.ResponseWriter, r *http.Request, view T, err error) {
	if err != nil {
		h.fail(w, r, err, "Failed to load page")
		return
	}
	JSON(w, http.StatusOK, view)
}

// Dashboard serves the landing view.
func (h *PagesHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	view, err := h.loader.Dashboard(r.Context(), h.api(r))
	render(h, w, r, view, err)
}

// Analytics serves the conversation history.
func (h *PagesHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	view, err := h.loader.Analytics(r.Context(), h.api(r))
	render(h, w, r, view, err)
}

// Calls serves the call log, filtered by ?filter=all|successful|failed.
func (h *PagesHandler) Calls(w http.ResponseWriter, r *http.Request) {
	filter, err := pages.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	view, err := h.loader.Calls(r.Context(), h.api(r), filter)
	render(h, w, r, view, err)
}

// Billing serves plan and usage.
func (h *PagesHandler) Billing(w http.ResponseWriter, r *http.Request) {
	user := identity.SessionFromContext(r.Context()).Snapshot().User
	view, err := h.loader.Billing(r.Context(), h.api(r), user)
	render(h, w, r, view, err)
}

// Calendar serves integrations and appointments.
func (h *PagesHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	view, err := h.loader.Calendar(r.Context(), h.api(r))
	render(h, w, r, view, err)
}

// Team serves members and invitations.
func (h *PagesHandler) Team(w http.ResponseWriter, r *http.Request) {
	view, err := h.loader.Team(r.Context(), h.api(r))
	render(h, w, r, view, err)
}

type inviteRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Invite sends a team invitation. The role defaults to viewer.
func (h *PagesHandler) Invite(w http.ResponseWriter, r *http.Request) {
	var req inviteRequest
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Role == "" {
		req.Role = domain.RoleViewer
	}
	if errs := validate.Invite.Validate(validate.Values{
		validate.FieldEmail: req.Email,
		validate.FieldRole:  req.Role,
	}); errs != nil {
		h.fail(w, r, errs, "")
		return
	}

	inv, err := identity.SessionFromContext(r.Context()).Client().InviteMember(r.Context(), req.Email, req.Role)
	if err != nil {
		h.fail(w, r, err, "Failed to send invitation")
		return
	}
	JSON(w, http.StatusCreated, inv)
}

// Settings serves account details and notification preferences.
func (h *PagesHandler) Settings(w http.ResponseWriter, r *http.Request) {
	user := identity.SessionFromContext(r.Context()).Snapshot().User
	view, err := h.loader.Settings(r.Context(), h.api(r), user)
	render(h, w, r, view, err)
}

// ConnectCalendar returns the Google consent URL to send the browser to.
func (h *PagesHandler) ConnectCalendar(w http.ResponseWriter, r *http.Request) {
	auth, err := h.loader.ConnectCalendar(r.Context(), h.api(r))
	if err != nil {
		h.fail(w, r, err, "Failed to connect Google Calendar")
		return
	}
	JSON(w, http.StatusOK, auth)
}

// AgentSettings serves the agent configuration view.
func (h *PagesHandler) AgentSettings(w http.ResponseWriter, r *http.Request) {
	view, err := h.loader.AgentSettings(r.Context(), h.api(r))
	render(h, w, r, view, err)
}

type renameAgentRequest struct {
	AgentName string `json:"agent_name"`
}

// RenameAgent saves a new agent name.
func (h *PagesHandler) RenameAgent(w http.ResponseWriter, r *http.Request) {
	var req renameAgentRequest
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	agent, err := h.loader.RenameAgent(r.Context(), h.api(r), req.AgentName)
	if err != nil {
		h.fail(w, r, err, "Failed to save settings")
		return
	}
	JSON(w, http.StatusOK, map[string]any{"agent": agent, "message": pages.AgentSavedMessage})
}

// AgentToken reveals the agent's API token.
func (h *PagesHandler) AgentToken(w http.ResponseWriter, r *http.Request) {
	tok, err := h.loader.AgentToken(r.Context(), h.api(r))
	if err != nil {
		h.fail(w, r, err, "Failed to load API token")
		return
	}
	JSON(w, http.StatusOK, tok)
}

// RegenerateAgentToken replaces the agent's API token. The old one stops
// working immediately.
func (h *PagesHandler) RegenerateAgentToken(w http.ResponseWriter, r *http.Request) {
	tok, err := h.loader.RegenerateAgentToken(r.Context(), h.api(r))
	if err != nil {
		h.fail(w, r, err, "Failed to regenerate token")
		return
	}
	if tok.Message == "" {
		tok.Message = pages.TokenRegeneratedMessage
	}
	JSON(w, http.StatusOK, tok)
}

// Welcome checks that the visitor arrived with an activated agent.
func (h *PagesHandler) Welcome(w http.ResponseWriter, r *http.Request) {
	agentID := r.URL.Query().Get("agent_id")
	if to, redirect := pages.WelcomeRedirect(agentID); redirect {
		JSON(w, http.StatusOK, map[string]string{"redirect": to})
		return
	}
	JSON(w, http.StatusOK, map[string]string{"agent_id": agentID})
}

// Pricing serves the plan catalog priced for ?cycle=monthly|yearly.
func (h *PagesHandler) Pricing(w http.ResponseWriter, r *http.Request) {
	cycle := r.URL.Query().Get("cycle")
	if cycle == "" {
		cycle = domain.CycleMonthly
	}
	offers, err := h.loader.Plans().Offers(cycle)
	render(h, w, r, map[string]any{"billing_cycle": cycle, "plans": offers}, err)
}

// Help serves the FAQ, narrowed by ?q=.
func (h *PagesHandler) Help(w http.ResponseWriter, r *http.Request) {
	faq := h.loader.Help()
	JSON(w, http.StatusOK, map[string]any{
		"categories": faq.Categories(),
		"entries":    faq.Search(r.URL.Query().Get("q")),
	})
}

// Portal returns the Stripe customer portal link.
func (h *PagesHandler) Portal(w http.ResponseWriter, r *http.Request) {
	url, err := h.loader.PortalURL(r.Context(), h.api(r))
	if err != nil {
		h.fail(w, r, err, "Failed to open billing portal. Please try again.")
		return
	}
	JSON(w, http.StatusOK, map[string]string{"url": url})
}

type checkoutRequest struct {
	Plan         string `json:"plan"`
	BillingCycle string `json:"billing_cycle"`
}

// Checkout starts a Stripe checkout for a plan. A request without a plan is
// sent back to pricing.
func (h *PagesHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Plan == "" || req.BillingCycle == "" {
		JSON(w, http.StatusBadRequest, ErrorBody{Error: pages.PaymentFailedMessage, Redirect: pages.PricingPath})
		return
	}
	url, err := h.loader.Checkout(r.Context(), h.api(r), req.Plan, req.BillingCycle)
	if err != nil {
		h.fail(w, r, err, pages.PaymentFailedMessage)
		return
	}
	JSON(w, http.StatusOK, map[string]string{"checkout_url": url})
}
