package pages

import (
	"context"
	"errors"
	"strings"

	"github.com/ashureev/vami-console/internal/domain"
	"github.com/ashureev/vami-console/internal/validate"
	"github.com/ashureev/vami-console/internal/vamiapi"
)

// ErrNoAgent is returned by agent actions on an account without an agent.
var ErrNoAgent = errors.New("no agent set up yet")

// Messages shown after agent settings actions.
const (
	AgentSavedMessage       = "Settings saved successfully!"
	TokenRegeneratedMessage = "New API token generated successfully!"
)

// AgentSettings is the agent configuration view.
type AgentSettings struct {
	Agent    *domain.Agent `json:"agent"`
	HasAgent bool          `json:"has_agent"`
	Errors   Errors        `json:"errors,omitempty"`
}

// AgentSettings loads the account's agent. An account without one gets an
// empty view rather than an error.
func (l *Loader) AgentSettings(ctx context.Context, api Backend) (*AgentSettings, error) {
	v := &AgentSettings{}
	f := newFanout(ctx, l.logger)
	f.run(SectionAgent, func(ctx context.Context) error {
		agent, err := api.GetAgent(ctx)
		if vamiapi.IsKind(err, vamiapi.KindNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		v.Agent = agent
		return nil
	})
	errs, err := f.wait()
	if err != nil {
		return nil, err
	}
	v.Errors = errs
	v.HasAgent = v.Agent != nil
	return v, nil
}

// RenameAgent changes the agent's name. The template cannot be changed.
func (l *Loader) RenameAgent(ctx context.Context, api Backend, name string) (*domain.Agent, error) {
	if errs := validate.AgentSettings.Validate(validate.Values{validate.FieldAgentName: name}); errs != nil {
		return nil, errs
	}
	agent, err := currentAgent(ctx, api)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	updated, err := api.UpdateAgent(ctx, agent.AgentID, domain.UpdateAgentRequest{AgentName: &name})
	if err != nil {
		return nil, err
	}
	if updated == nil || updated.AgentID == "" {
		agent.AgentName = name
		return agent, nil
	}
	return updated, nil
}

// AgentToken returns the agent's API token.
func (l *Loader) AgentToken(ctx context.Context, api Backend) (*domain.AgentToken, error) {
	agent, err := currentAgent(ctx, api)
	if err != nil {
		return nil, err
	}
	return api.AgentAPIToken(ctx, agent.AgentID)
}

// RegenerateAgentToken issues a new API token for the agent.
func (l *Loader) RegenerateAgentToken(ctx context.Context, api Backend) (*domain.AgentToken, error) {
	agent, err := currentAgent(ctx, api)
	if err != nil {
		return nil, err
	}
	tok, err := api.RegenerateAgentToken(ctx, agent.AgentID)
	if err != nil {
		return nil, err
	}
	l.logger.Info("Agent API token regenerated", "agent_id", agent.AgentID)
	return tok, nil
}

func currentAgent(ctx context.Context, api Backend) (*domain.Agent, error) {
	agent, err := api.GetAgent(ctx)
	if vamiapi.IsKind(err, vamiapi.KindNotFound) {
		return nil, ErrNoAgent
	}
	if err != nil {
		return nil, err
	}
	return agent, nil
}
