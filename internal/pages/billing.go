package pages

import (
	"context"
	"errors"
	"fmt"

	"github.com/ashureev/vami-console/internal/domain"
)

// ErrNoPortalURL is returned when the backend answers without a portal link.
var ErrNoPortalURL = errors.New("billing portal unavailable")

// Billing is the subscription and usage view.
type Billing struct {
	Plan            string              `json:"plan"`
	PlanLabel       string              `json:"plan_label"`
	Status          string              `json:"subscription_status"`
	Features        domain.UserFeatures `json:"features"`
	Usage           *domain.Usage       `json:"usage"`
	UsageLabel      string              `json:"usage_label"`
	UsageBarPercent float64             `json:"usage_bar_percent"`
	Warning         bool                `json:"warning"`
	Errors          Errors              `json:"errors,omitempty"`
}

// Billing loads usage and combines it with the signed-in user's plan.
func (l *Loader) Billing(ctx context.Context, api Backend, user *domain.User) (*Billing, error) {
	b := &Billing{}
	if user != nil {
		b.Plan = user.Plan
		b.PlanLabel = user.PlanLabel()
		b.Status = user.SubscriptionStatus
		b.Features = user.Features
	}

	f := newFanout(ctx, l.logger)
	f.run(SectionUsage, func(ctx context.Context) (err error) {
		b.Usage, err = api.Usage(ctx)
		return err
	})
	errs, err := f.wait()
	if err != nil {
		return nil, err
	}
	b.Errors = errs

	if b.Usage != nil {
		b.UsageLabel = fmt.Sprintf("%.1f%% used", b.Usage.PercentageUsed)
		b.UsageBarPercent = UsageBar(b.Usage.PercentageUsed)
		b.Warning = b.Usage.PercentageUsed > UsageWarningPercent
	}
	return b, nil
}

// PortalURL returns the customer portal link.
func (l *Loader) PortalURL(ctx context.Context, api Backend) (string, error) {
	url, err := api.Portal(ctx)
	if err != nil {
		return "", err
	}
	if url == "" {
		return "", ErrNoPortalURL
	}
	return url, nil
}
