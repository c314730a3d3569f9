package vamiapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ashureev/vami-console/internal/domain"
)

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, email, password string) (*domain.AuthResponse, error) {
	var out domain.AuthResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.post(ctx, "/auth/login", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	CompanyName string `json:"company_name,omitempty"`
	Plan        string `json:"plan"`
}

// Register creates an account and returns its first access token.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*domain.AuthResponse, error) {
	var out domain.AuthResponse
	if err := c.post(ctx, "/auth/register", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the identity behind the current token.
func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	var out domain.User
	if err := c.get(ctx, "/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes the current token on the backend.
func (c *Client) Logout(ctx context.Context) error {
	return c.post(ctx, "/auth/logout", nil, nil)
}

// ForgotPassword sends a reset email.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.Do(ctx, http.MethodPost, "/auth/forgot-password", nil, url.Values{"email": {email}}, nil)
}

// ResetPassword sets a new password using the token from the reset email.
func (c *Client) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	body := map[string]string{"access_token": resetToken, "new_password": newPassword}
	return c.post(ctx, "/auth/reset-password", body, nil)
}

// GetAgent returns the account's agent. KindNotFound means none exists yet,
// whether the backend answered 404 or an empty body.
func (c *Client) GetAgent(ctx context.Context) (*domain.Agent, error) {
	var out domain.Agent
	if err := c.get(ctx, "/agents", nil, &out); err != nil {
		return nil, err
	}
	if out.AgentID == "" {
		return nil, &Error{Kind: KindNotFound, Method: http.MethodGet, Path: "/agents"}
	}
	return &out, nil
}

// CreateAgent creates the account's agent. KindConflict means one already exists.
func (c *Client) CreateAgent(ctx context.Context, req domain.CreateAgentRequest) (*domain.Agent, error) {
	var out domain.Agent
	if err := c.post(ctx, "/agents", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateAgent updates the mutable fields of an agent.
func (c *Client) UpdateAgent(ctx context.Context, agentID string, req domain.UpdateAgentRequest) (*domain.Agent, error) {
	var out domain.Agent
	if err := c.put(ctx, "/agents/"+url.PathEscape(agentID), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AgentAPIToken returns the agent's current API token.
func (c *Client) AgentAPIToken(ctx context.Context, agentID string) (*domain.AgentToken, error) {
	var out domain.AgentToken
	if err := c.get(ctx, "/agents/"+url.PathEscape(agentID)+"/api-token", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RegenerateAgentToken replaces the agent's API token. The old token stops
// working immediately.
func (c *Client) RegenerateAgentToken(ctx context.Context, agentID string) (*domain.AgentToken, error) {
	var out domain.AgentToken
	if err := c.post(ctx, "/agents/"+url.PathEscape(agentID)+"/regenerate-token", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListTemplates returns the agent template catalog.
func (c *Client) ListTemplates(ctx context.Context) ([]domain.AgentTemplate, error) {
	var out domain.TemplateCatalog
	if err := c.get(ctx, "/templates/agent-templates", nil, &out); err != nil {
		return nil, err
	}
	return out.Templates, nil
}

// GetTemplate returns one template by key.
func (c *Client) GetTemplate(ctx context.Context, key string) (*domain.AgentTemplate, error) {
	var out domain.AgentTemplate
	if err := c.get(ctx, "/templates/agent-templates/"+url.PathEscape(key), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Usage returns minutes consumption for the current billing period.
func (c *Client) Usage(ctx context.Context) (*domain.Usage, error) {
	var out domain.Usage
	if err := c.get(ctx, "/billing/usage", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Portal returns the Stripe customer portal URL.
func (c *Client) Portal(ctx context.Context) (string, error) {
	var out struct {
		PortalURL string `json:"portal_url"`
	}
	if err := c.post(ctx, "/billing/portal", nil, &out); err != nil {
		return "", err
	}
	return out.PortalURL, nil
}

// CreateCheckoutSession starts a Stripe checkout for a plan.
func (c *Client) CreateCheckoutSession(ctx context.Context, req domain.CheckoutRequest) (*domain.CheckoutSession, error) {
	var out domain.CheckoutSession
	if err := c.post(ctx, "/billing/create-checkout-session", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Conversations returns one page of recorded calls.
func (c *Client) Conversations(ctx context.Context, page, perPage int) ([]domain.Conversation, error) {
	params := url.Values{
		"page":     {strconv.Itoa(page)},
		"per_page": {strconv.Itoa(perPage)},
	}
	var out []domain.Conversation
	if err := c.get(ctx, "/analytics/conversations", params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Stats returns aggregated call statistics for the last days.
func (c *Client) Stats(ctx context.Context, days int) (*domain.Stats, error) {
	var out domain.Stats
	if err := c.get(ctx, "/analytics/stats", url.Values{"days": {strconv.Itoa(days)}}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AvailablePhoneNumbers searches numbers that can be purchased for the agent.
func (c *Client) AvailablePhoneNumbers(ctx context.Context, areaCode string, limit int) ([]domain.PhoneNumber, error) {
	params := url.Values{}
	if areaCode != "" {
		params.Set("area_code", areaCode)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var out []domain.PhoneNumber
	if err := c.get(ctx, "/phone-numbers/available", params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TeamMembers lists users with access to the account.
func (c *Client) TeamMembers(ctx context.Context) ([]domain.TeamMember, error) {
	var out []domain.TeamMember
	if err := c.get(ctx, "/team/members", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TeamInvitations lists outstanding invitations.
func (c *Client) TeamInvitations(ctx context.Context) ([]domain.TeamInvitation, error) {
	var out []domain.TeamInvitation
	if err := c.get(ctx, "/team/invitations", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// InviteMember invites email to the account with role.
func (c *Client) InviteMember(ctx context.Context, email, role string) (*domain.TeamInvitation, error) {
	var out domain.TeamInvitation
	body := map[string]string{"email": email, "role": role}
	if err := c.post(ctx, "/team/invite", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GoogleAuthURL returns the Google Calendar OAuth consent URL.
func (c *Client) GoogleAuthURL(ctx context.Context) (*domain.CalendarAuth, error) {
	var out domain.CalendarAuth
	if err := c.get(ctx, "/integrations/google/auth-url", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CalendarIntegrations lists connected calendars.
func (c *Client) CalendarIntegrations(ctx context.Context) ([]domain.CalendarIntegration, error) {
	var out []domain.CalendarIntegration
	if err := c.get(ctx, "/calendar/integrations", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Appointments lists upcoming bookings.
func (c *Client) Appointments(ctx context.Context) ([]domain.Appointment, error) {
	var out []domain.Appointment
	if err := c.get(ctx, "/calendar/appointments", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// NotificationPreferences returns the account's notification settings.
func (c *Client) NotificationPreferences(ctx context.Context) (*domain.NotificationPreferences, error) {
	var out domain.NotificationPreferences
	if err := c.get(ctx, "/settings/notifications", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
