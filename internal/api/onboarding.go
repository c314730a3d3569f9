package api

import (
	"context"
	"net/http"

	"github.com/ashureev/vami-console/internal/identity"
	"github.com/ashureev/vami-console/internal/onboarding"
	"github.com/ashureev/vami-console/internal/phone"
	"github.com/ashureev/vami-console/internal/vamiapi"
	"github.com/go-chi/chi/v5"
)

// PhoneSourceFunc picks the phone source for a wizard run. api is the
// session's client, for sources that ask the Vami backend.
type PhoneSourceFunc func(api *vamiapi.Client) phone.Source

// TabNavigator delivers a navigation to one browser tab.
type TabNavigator interface {
	NavigateTab(deviceID, tabID, to string, state any) bool
}

type tabNav struct {
	events          TabNavigator
	deviceID, tabID string
}

func (n tabNav) Navigate(_ context.Context, to string, state any) {
	n.events.NavigateTab(n.deviceID, n.tabID, to, state)
}

// OnboardingHandler drives the per-tab onboarding wizard.
type OnboardingHandler struct {
	*Handler
	wizards *onboarding.Registry
	phones  PhoneSourceFunc
	events  TabNavigator
}

// NewOnboardingHandler creates an onboarding handler. events may be nil.
func NewOnboardingHandler(base *Handler, wizards *onboarding.Registry, phones PhoneSourceFunc, events TabNavigator) *OnboardingHandler {
	return &OnboardingHandler{Handler: base, wizards: wizards, phones: phones, events: events}
}

// RegisterRoutes registers onboarding routes.
func (h *OnboardingHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/onboarding", func(r chi.Router) {
		r.Use(identity.RequireAuth)
		r.Post("/", h.Start)
		r.Get("/", h.View)
		r.Delete("/", h.Discard)
		r.Get("/templates", h.Templates)
		r.Put("/agent-info", h.ChangeAgentInfo)
		r.Post("/agent-info", h.SubmitAgentInfo)
		r.Put("/template", h.SelectTemplate)
		r.Post("/next", h.Next)
		r.Post("/back", h.Back)
		r.Post("/activate", h.Activate)
	})
}

type agentInfoRequest struct {
	AgentName    string `json:"agent_name"`
	BusinessName string `json:"business_name"`
}

type templateRequest struct {
	TemplateKey string `json:"template_key"`
}

type activateResponse struct {
	Welcome  *onboarding.Welcome `json:"welcome"`
	Redirect string              `json:"redirect"`
}

func wizardKey(r *http.Request) string {
	ctx := r.Context()
	return onboarding.Key(identity.DeviceIDFromContext(ctx), identity.TabIDFromContext(ctx))
}

// current returns the tab's wizard, answering 404 when there is none.
func (h *OnboardingHandler) current(w http.ResponseWriter, r *http.Request) (*onboarding.Wizard, bool) {
	wiz, ok := h.wizards.Get(wizardKey(r))
	if !ok {
		Error(w, http.StatusNotFound, "No onboarding in progress")
		return nil, false
	}
	return wiz, true
}

// Start begins a new run for the tab, abandoning any previous one.
func (h *OnboardingHandler) Start(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s := identity.SessionFromContext(ctx)
	api := s.Client()

	opts := []onboarding.Option{onboarding.WithLogger(h.logger.With("device_id", identity.DeviceIDFromContext(ctx)))}
	if h.events != nil {
		opts = append(opts, onboarding.WithNavigator(tabNav{
			events:   h.events,
			deviceID: identity.DeviceIDFromContext(ctx),
			tabID:    identity.TabIDFromContext(ctx),
		}))
	}

	wiz, err := onboarding.New(ctx, api, h.phones(api), opts...)
	if err != nil {
		h.fail(w, r, err, "Failed to start onboarding. Please try again.")
		return
	}
	h.wizards.Put(wizardKey(r), wiz)
	JSON(w, http.StatusCreated, wiz.View())
}

// View returns the current wizard state.
func (h *OnboardingHandler) View(w http.ResponseWriter, r *http.Request) {
	wiz, ok := h.current(w, r)
	if !ok {
		return
	}
	JSON(w, http.StatusOK, wiz.View())
}

// Discard abandons the tab's run.
func (h *OnboardingHandler) Discard(w http.ResponseWriter, r *http.Request) {
	h.wizards.Discard(wizardKey(r))
	w.WriteHeader(http.StatusNoContent)
}

// Templates lists the template catalog.
func (h *OnboardingHandler) Templates(w http.ResponseWriter, r *http.Request) {
	templates, err := identity.SessionFromContext(r.Context()).Client().ListTemplates(r.Context())
	if err != nil {
		h.fail(w, r, err, "Failed to load templates")
		return
	}
	JSON(w, http.StatusOK, map[string]any{"templates": templates, "total": len(templates)})
}

// ChangeAgentInfo records step-one input as it is typed.
func (h *OnboardingHandler) ChangeAgentInfo(w http.ResponseWriter, r *http.Request) {
	h.withAgentInfo(w, r, func(wiz *onboarding.Wizard, req agentInfoRequest) error {
		return wiz.UpdateAgentInfo(req.AgentName, req.BusinessName)
	})
}

// SubmitAgentInfo validates step one and moves on to template selection.
func (h *OnboardingHandler) SubmitAgentInfo(w http.ResponseWriter, r *http.Request) {
	h.withAgentInfo(w, r, func(wiz *onboarding.Wizard, req agentInfoRequest) error {
		return wiz.SubmitAgentInfo(req.AgentName, req.BusinessName)
	})
}

func (h *OnboardingHandler) withAgentInfo(w http.ResponseWriter, r *http.Request, apply func(*onboarding.Wizard, agentInfoRequest) error) {
	wiz, ok := h.current(w, r)
	if !ok {
		return
	}
	var req agentInfoRequest
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := apply(wiz, req); err != nil {
		h.fail(w, r, err, "")
		return
	}
	JSON(w, http.StatusOK, wiz.View())
}

// SelectTemplate picks the agent template.
func (h *OnboardingHandler) SelectTemplate(w http.ResponseWriter, r *http.Request) {
	wiz, ok := h.current(w, r)
	if !ok {
		return
	}
	var req templateRequest
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := wiz.SelectTemplate(r.Context(), req.TemplateKey); err != nil {
		h.fail(w, r, err, "")
		return
	}
	JSON(w, http.StatusOK, wiz.View())
}

// Next moves from template selection to confirmation.
func (h *OnboardingHandler) Next(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, (*onboarding.Wizard).Next)
}

// Back returns to the previous step.
func (h *OnboardingHandler) Back(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, (*onboarding.Wizard).Back)
}

func (h *OnboardingHandler) step(w http.ResponseWriter, r *http.Request, move func(*onboarding.Wizard) error) {
	wiz, ok := h.current(w, r)
	if !ok {
		return
	}
	if err := move(wiz); err != nil {
		h.fail(w, r, err, "")
		return
	}
	JSON(w, http.StatusOK, wiz.View())
}

// Activate creates, or renames, the account's agent. On success the run is
// finished and the response points at the welcome page.
func (h *OnboardingHandler) Activate(w http.ResponseWriter, r *http.Request) {
	wiz, ok := h.current(w, r)
	if !ok {
		return
	}
	welcome, err := wiz.Activate(r.Context())
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	h.wizards.Discard(wizardKey(r))
	JSON(w, http.StatusOK, activateResponse{Welcome: welcome, Redirect: onboarding.WelcomePath})
}
