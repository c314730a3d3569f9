package domain

import (
	"encoding/json"
	"time"
)

// AgentStatusActive is the status of a live agent.
const AgentStatusActive = "active"

// Agent is the account's voice agent. The backend allows at most one per account.
type Agent struct {
	ID                 int             `json:"id,omitempty"`
	UserID             string          `json:"user_id,omitempty"`
	AgentID            string          `json:"agent_id"`
	AgentName          string          `json:"agent_name"`
	Status             string          `json:"status"`
	PhoneNumber        string          `json:"phone_number,omitempty"`
	ElevenLabsMetadata json.RawMessage `json:"elevenlabs_metadata,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// IsActive reports whether the agent is live.
func (a *Agent) IsActive() bool {
	return a != nil && a.Status == AgentStatusActive
}

// CreateAgentRequest is the body of POST /agents.
type CreateAgentRequest struct {
	AgentName    string `json:"agent_name"`
	TemplateKey  string `json:"template_key"`
	BusinessName string `json:"business_name"`
	PhoneNumber  string `json:"phone_number"`
}

// UpdateAgentRequest is the body of PUT /agents/{agent_id}. Template and
// creation-only fields are immutable after creation and cannot be sent.
type UpdateAgentRequest struct {
	AgentName *string `json:"agent_name,omitempty"`
	Status    *string `json:"status,omitempty"`
}

// AgentToken is the API token an agent's integrations authenticate with.
type AgentToken struct {
	AgentID      string `json:"agent_id"`
	APIToken     string `json:"api_token"`
	TokenPreview string `json:"token_preview,omitempty"`
	Message      string `json:"message,omitempty"`
}

// AgentTemplate is an entry of the server-owned template catalog.
type AgentTemplate struct {
	Key                 string   `json:"key"`
	Name                string   `json:"name"`
	Icon                string   `json:"icon"`
	Description         string   `json:"description"`
	SampleConversations []string `json:"sample_conversations"`
}

// TemplateCatalog is the response of GET /templates/agent-templates.
type TemplateCatalog struct {
	Templates []AgentTemplate `json:"templates"`
	Total     int             `json:"total"`
}

// PhoneNumber is a number that can be attached to an agent.
type PhoneNumber struct {
	PhoneNumber  string `json:"phone_number"`
	SID          string `json:"phone_number_sid,omitempty"`
	FriendlyName string `json:"friendly_name,omitempty"`
	Locality     string `json:"locality,omitempty"`
	Region       string `json:"region,omitempty"`
	PostalCode   string `json:"postal_code,omitempty"`
}
