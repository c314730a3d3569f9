// Package onboarding drives the three-step agent activation wizard.
package onboarding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/ashureev/vami-console/internal/domain"
	"github.com/ashureev/vami-console/internal/phone"
	"github.com/ashureev/vami-console/internal/validate"
	"github.com/ashureev/vami-console/internal/vamiapi"
	"github.com/google/uuid"
)

// Step is a wizard position.
type Step int

const (
	StepAgentInfo Step = iota + 1
	StepTemplate
	StepConfirm
	StepActivated
)

// TotalSteps is the number of user-facing steps.
const TotalSteps = 3

const (
	// WelcomePath is where a successful activation navigates.
	WelcomePath = "/welcome"

	activationFallback   = "Failed to activate agent. Please try again or contact support."
	templateNameFallback = "Selected Template"
	templateIconFallback = "🤖"
)

var (
	// ErrWrongStep is returned for an action the current step does not allow.
	ErrWrongStep = errors.New("action not allowed at this step")
	// ErrCannotProceed is returned by Next when the step is incomplete.
	ErrCannotProceed = errors.New("step is incomplete")
	// ErrActivating is returned while an activation request is in flight.
	ErrActivating = errors.New("activation already in progress")
)

// ValidationError carries per-field messages from step one.
type ValidationError struct {
	Fields validate.Errors
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid agent info: %d field(s)", len(e.Fields))
}

// ActivationError is a failed activation. Message is what the user sees.
type ActivationError struct {
	Message string
	Err     error
}

func (e *ActivationError) Error() string { return e.Message }

func (e *ActivationError) Unwrap() error { return e.Err }

// Backend is the subset of the API the wizard calls.
type Backend interface {
	GetTemplate(ctx context.Context, key string) (*domain.AgentTemplate, error)
	CreateAgent(ctx context.Context, req domain.CreateAgentRequest) (*domain.Agent, error)
	GetAgent(ctx context.Context) (*domain.Agent, error)
	UpdateAgent(ctx context.Context, agentID string, req domain.UpdateAgentRequest) (*domain.Agent, error)
}

// Navigator receives the post-activation navigation.
type Navigator interface {
	Navigate(ctx context.Context, to string, state any)
}

// Draft is everything collected so far. TemplateName and TemplateIcon are
// display only and never sent to the backend.
type Draft struct {
	AgentName    string `json:"agent_name"`
	BusinessName string `json:"business_name"`
	TemplateKey  string `json:"template_key"`
	TemplateName string `json:"template_name,omitempty"`
	TemplateIcon string `json:"template_icon,omitempty"`
	PhoneNumber  string `json:"phone_number"`
	PhoneSID     string `json:"phone_sid"`
}

// Welcome is the navigation state handed to the welcome page.
type Welcome struct {
	AgentID      string `json:"agent_id"`
	AgentName    string `json:"agent_name"`
	BusinessName string `json:"business_name"`
	PhoneNumber  string `json:"phone_number"`
	Updated      bool   `json:"updated,omitempty"`
}

// View is a snapshot of the wizard for rendering.
type View struct {
	ID           string          `json:"id"`
	Step         Step            `json:"step"`
	Draft        Draft           `json:"draft"`
	TemplateName string          `json:"template_label"`
	TemplateIcon string          `json:"template_icon_label"`
	FieldErrors  validate.Errors `json:"field_errors,omitempty"`
	Error        string          `json:"error,omitempty"`
	Activating   bool            `json:"activating"`
	CanProceed   bool            `json:"can_proceed"`
	Progress     Progress        `json:"progress"`
}

// Wizard is one onboarding run. Its methods are safe for concurrent use;
// each call observes a consistent step.
type Wizard struct {
	id      string
	backend Backend
	nav     Navigator
	logger  *slog.Logger

	mu          sync.Mutex
	step        Step
	draft       Draft
	fieldErrors validate.Errors
	err         string
	activating  bool
	lookupSeq   int
	welcome     *Welcome
}

// Option configures a Wizard.
type Option func(*Wizard)

// WithNavigator sets where the wizard navigates after activation.
func WithNavigator(nav Navigator) Option {
	return func(w *Wizard) { w.nav = nav }
}

// WithLogger sets the wizard logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Wizard) { w.logger = logger }
}

// New starts a wizard with an empty draft and the number from phones.
func New(ctx context.Context, backend Backend, phones phone.Source, opts ...Option) (*Wizard, error) {
	number, err := phones.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire phone number: %w", err)
	}
	w := &Wizard{
		id:      uuid.NewString(),
		backend: backend,
		logger:  slog.Default(),
		step:    StepAgentInfo,
		draft:   Draft{PhoneNumber: number.PhoneNumber, PhoneSID: number.SID},
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With("wizard_id", w.id)
	return w, nil
}

// ID identifies the run.
func (w *Wizard) ID() string { return w.id }

// Step returns the current step.
func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Draft returns a copy of the draft.
func (w *Wizard) Draft() Draft {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.draft
}

// Welcome returns the activation result, or nil before activation.
func (w *Wizard) Welcome() *Welcome {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.welcome
}

// View returns a snapshot for rendering.
func (w *Wizard) View() View {
	w.mu.Lock()
	defer w.mu.Unlock()

	name, icon := templateDisplay(w.draft)
	v := View{
		ID:           w.id,
		Step:         w.step,
		Draft:        w.draft,
		TemplateName: name,
		TemplateIcon: icon,
		Error:        w.err,
		Activating:   w.activating,
		CanProceed:   w.canProceedLocked(),
		Progress:     progressFor(w.step),
	}
	if len(w.fieldErrors) > 0 {
		v.FieldErrors = make(validate.Errors, len(w.fieldErrors))
		for k, msg := range w.fieldErrors {
			v.FieldErrors[k] = msg
		}
	}
	return v
}

// UpdateAgentInfo records raw step-one input as it is typed.
func (w *Wizard) UpdateAgentInfo(agentName, businessName string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step != StepAgentInfo {
		return ErrWrongStep
	}
	w.draft.AgentName = agentName
	w.draft.BusinessName = businessName
	return nil
}

// CanProceed reports whether the current step is complete.
func (w *Wizard) CanProceed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.canProceedLocked()
}

func (w *Wizard) canProceedLocked() bool {
	switch w.step {
	case StepAgentInfo:
		return validate.AgentInfo.Valid(agentInfoValues(w.draft.AgentName, w.draft.BusinessName))
	case StepTemplate:
		return w.draft.TemplateKey != ""
	case StepConfirm:
		return true
	default:
		return false
	}
}

// SubmitAgentInfo validates step one and, when valid, stores the trimmed
// values and moves to template selection.
func (w *Wizard) SubmitAgentInfo(agentName, businessName string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step != StepAgentInfo {
		return ErrWrongStep
	}

	w.draft.AgentName = agentName
	w.draft.BusinessName = businessName
	if errs := validate.AgentInfo.Validate(agentInfoValues(agentName, businessName)); errs != nil {
		w.fieldErrors = errs
		return &ValidationError{Fields: errs}
	}

	w.fieldErrors = nil
	w.draft.AgentName = strings.TrimSpace(agentName)
	w.draft.BusinessName = strings.TrimSpace(businessName)
	w.step = StepTemplate
	return nil
}

// SelectTemplate sets the template and fetches its display details. A
// failed lookup keeps the key and falls back to generic display values.
func (w *Wizard) SelectTemplate(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrCannotProceed
	}

	w.mu.Lock()
	if w.step != StepTemplate {
		w.mu.Unlock()
		return ErrWrongStep
	}
	w.lookupSeq++
	seq := w.lookupSeq
	w.draft.TemplateKey = key
	w.draft.TemplateName = ""
	w.draft.TemplateIcon = ""
	w.mu.Unlock()

	tmpl, err := w.backend.GetTemplate(ctx, key)

	w.mu.Lock()
	defer w.mu.Unlock()
	if seq != w.lookupSeq || w.draft.TemplateKey != key {
		// A later selection superseded this one.
		return nil
	}
	if err != nil {
		w.logger.Warn("Failed to fetch template details", "template_key", key, "error", err)
		return nil
	}
	w.draft.TemplateName = tmpl.Name
	w.draft.TemplateIcon = tmpl.Icon
	return nil
}

// Next advances from template selection to confirmation. Step one only
// advances through SubmitAgentInfo.
func (w *Wizard) Next() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step != StepTemplate {
		return ErrWrongStep
	}
	if !w.canProceedLocked() {
		return ErrCannotProceed
	}
	w.step = StepConfirm
	return nil
}

// Back returns to the previous step, clearing any activation error. The
// draft is left untouched.
func (w *Wizard) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.activating {
		return ErrActivating
	}
	if w.step != StepTemplate && w.step != StepConfirm {
		return ErrWrongStep
	}
	w.step--
	w.err = ""
	return nil
}

// Activate creates the agent from the draft. If the account already has an
// agent, that agent is renamed instead. On success the wizard navigates to
// the welcome page; on failure it stays on confirmation with the draft intact.
func (w *Wizard) Activate(ctx context.Context) (*Welcome, error) {
	w.mu.Lock()
	if w.step != StepConfirm {
		w.mu.Unlock()
		return nil, ErrWrongStep
	}
	if w.activating {
		w.mu.Unlock()
		return nil, ErrActivating
	}
	w.activating = true
	w.err = ""
	draft := w.draft
	w.mu.Unlock()

	welcome, err := w.activate(ctx, draft)

	w.mu.Lock()
	w.activating = false
	if err != nil {
		msg := vamiapi.Message(err, activationFallback)
		w.err = msg
		w.mu.Unlock()
		w.logger.Error("Agent activation failed", "kind", vamiapi.KindOf(err), "error", err)
		return nil, &ActivationError{Message: msg, Err: err}
	}
	w.step = StepActivated
	w.welcome = welcome
	w.draft = Draft{}
	w.mu.Unlock()

	w.logger.Info("Agent activated", "agent_id", welcome.AgentID, "updated", welcome.Updated)
	if w.nav != nil {
		w.nav.Navigate(ctx, WelcomePath, welcome)
	}
	return welcome, nil
}

func (w *Wizard) activate(ctx context.Context, d Draft) (*Welcome, error) {
	welcome := &Welcome{
		AgentName:    d.AgentName,
		BusinessName: d.BusinessName,
		PhoneNumber:  d.PhoneNumber,
	}

	created, err := w.backend.CreateAgent(ctx, domain.CreateAgentRequest{
		AgentName:    d.AgentName,
		TemplateKey:  d.TemplateKey,
		BusinessName: d.BusinessName,
		PhoneNumber:  d.PhoneNumber,
	})
	if err == nil {
		welcome.AgentID = created.AgentID
		return welcome, nil
	}
	if !vamiapi.IsKind(err, vamiapi.KindConflict) {
		return nil, err
	}

	// The template cannot be changed after creation; only the name is updated.
	existing, err := w.backend.GetAgent(ctx)
	if err != nil {
		return nil, fmt.Errorf("get existing agent: %w", err)
	}
	name := d.AgentName
	if _, err := w.backend.UpdateAgent(ctx, existing.AgentID, domain.UpdateAgentRequest{AgentName: &name}); err != nil {
		return nil, fmt.Errorf("update existing agent: %w", err)
	}
	welcome.AgentID = existing.AgentID
	welcome.Updated = true
	return welcome, nil
}

func agentInfoValues(agentName, businessName string) validate.Values {
	return validate.Values{
		validate.FieldAgentName:    agentName,
		validate.FieldBusinessName: businessName,
	}
}

func templateDisplay(d Draft) (name, icon string) {
	name, icon = d.TemplateName, d.TemplateIcon
	if name == "" {
		name = templateNameFallback
	}
	if icon == "" {
		icon = templateIconFallback
	}
	return name, icon
}
