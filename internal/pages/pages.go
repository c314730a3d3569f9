// Package pages assembles the read-mostly console views. Each loader fetches
// its sections concurrently and waits for all of them; a failed section is
// left empty and reported in Errors rather than failing the page.
package pages

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ashureev/vami-console/internal/domain"
	"github.com/ashureev/vami-console/internal/vamiapi"
	"golang.org/x/sync/errgroup"
)

// Backend is the set of API calls the views read from.
type Backend interface {
	Usage(ctx context.Context) (*domain.Usage, error)
	GetAgent(ctx context.Context) (*domain.Agent, error)
	Stats(ctx context.Context, days int) (*domain.Stats, error)
	Conversations(ctx context.Context, page, perPage int) ([]domain.Conversation, error)
	Portal(ctx context.Context) (string, error)
	CreateCheckoutSession(ctx context.Context, req domain.CheckoutRequest) (*domain.CheckoutSession, error)
	TeamMembers(ctx context.Context) ([]domain.TeamMember, error)
	TeamInvitations(ctx context.Context) ([]domain.TeamInvitation, error)
	CalendarIntegrations(ctx context.Context) ([]domain.CalendarIntegration, error)
	Appointments(ctx context.Context) ([]domain.Appointment, error)
	NotificationPreferences(ctx context.Context) (*domain.NotificationPreferences, error)
	UpdateAgent(ctx context.Context, agentID string, req domain.UpdateAgentRequest) (*domain.Agent, error)
	AgentAPIToken(ctx context.Context, agentID string) (*domain.AgentToken, error)
	RegenerateAgentToken(ctx context.Context, agentID string) (*domain.AgentToken, error)
	GoogleAuthURL(ctx context.Context) (*domain.CalendarAuth, error)
}

var _ Backend = (*vamiapi.Client)(nil)

// Section names used in Errors.
const (
	SectionUsage         = "usage"
	SectionAgent         = "agent"
	SectionStats         = "stats"
	SectionConversations = "conversations"
	SectionMembers       = "members"
	SectionInvitations   = "invitations"
	SectionIntegrations  = "integrations"
	SectionAppointments  = "appointments"
	SectionNotifications = "notifications"
)

// Errors maps a failed section to a user-facing message.
type Errors map[string]string

// fanout runs section fetches concurrently. Only an authentication failure
// aborts the page; the session hook has already run by then.
type fanout struct {
	g      *errgroup.Group
	ctx    context.Context
	logger *slog.Logger

	mu     sync.Mutex
	failed Errors
}

func newFanout(ctx context.Context, logger *slog.Logger) *fanout {
	g, gctx := errgroup.WithContext(ctx)
	if logger == nil {
		logger = slog.Default()
	}
	return &fanout{g: g, ctx: gctx, logger: logger}
}

func (f *fanout) run(section string, fetch func(ctx context.Context) error) {
	f.g.Go(func() error {
		err := fetch(f.ctx)
		if err == nil {
			return nil
		}
		if vamiapi.IsUnauthorized(err) {
			return err
		}
		f.logger.Warn("Page section failed", "section", section, "kind", vamiapi.KindOf(err), "error", err)
		f.mu.Lock()
		if f.failed == nil {
			f.failed = make(Errors)
		}
		f.failed[section] = vamiapi.Message(err, "Failed to load "+section)
		f.mu.Unlock()
		return nil
	})
}

func (f *fanout) wait() (Errors, error) {
	if err := f.g.Wait(); err != nil {
		return nil, err
	}
	return f.failed, nil
}

// Loader builds views.
type Loader struct {
	logger *slog.Logger
	plans  *Catalog
	help   *FAQ
}

// NewLoader creates a loader serving plans and the help FAQ.
func NewLoader(plans *Catalog, help *FAQ, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger, plans: plans, help: help}
}

// Plans returns the plan catalog.
func (l *Loader) Plans() *Catalog { return l.plans }

// Help returns the FAQ.
func (l *Loader) Help() *FAQ { return l.help }
