package pages

import (
	"context"
	"math"

	"github.com/ashureev/vami-console/internal/domain"
	"github.com/ashureev/vami-console/internal/vamiapi"
)

// DashboardStatsDays is the window of the dashboard statistics.
const DashboardStatsDays = 7

// UsageWarningPercent is the usage level above which billing warns.
const UsageWarningPercent = 80

// Dashboard is the landing view.
type Dashboard struct {
	Usage                *domain.Usage `json:"usage"`
	Agent                *domain.Agent `json:"agent"`
	Stats                *domain.Stats `json:"stats"`
	SuccessRate          int           `json:"success_rate"`
	UsagePercent         int           `json:"usage_percent"`
	UsageBarPercent      float64       `json:"usage_bar_percent"`
	ShowOnboardingBanner bool          `json:"show_onboarding_banner"`
	Errors               Errors        `json:"errors,omitempty"`
}

// Dashboard loads usage, agent and the last week of statistics.
func (l *Loader) Dashboard(ctx context.Context, api Backend) (*Dashboard, error) {
	d := &Dashboard{}
	f := newFanout(ctx, l.logger)

	f.run(SectionUsage, func(ctx context.Context) (err error) {
		d.Usage, err = api.Usage(ctx)
		return err
	})
	f.run(SectionAgent, func(ctx context.Context) error {
		agent, err := api.GetAgent(ctx)
		if vamiapi.IsKind(err, vamiapi.KindNotFound) {
			return nil
		}
		d.Agent = agent
		return err
	})
	f.run(SectionStats, func(ctx context.Context) (err error) {
		d.Stats, err = api.Stats(ctx, DashboardStatsDays)
		return err
	})

	errs, err := f.wait()
	if err != nil {
		return nil, err
	}
	d.Errors = errs

	if d.Stats != nil {
		d.SuccessRate = SuccessRate(d.Stats.SuccessfulCalls, d.Stats.TotalCalls)
	}
	if d.Usage != nil {
		d.UsagePercent = int(math.Round(d.Usage.PercentageUsed))
		d.UsageBarPercent = UsageBar(d.Usage.PercentageUsed)
	}
	d.ShowOnboardingBanner = d.Agent == nil
	return d, nil
}

// SuccessRate returns successful/total as a rounded percentage, 0 when
// there were no calls.
func SuccessRate(successful, total int) int {
	if total == 0 {
		total = 1
	}
	return int(math.Round(float64(successful) / float64(total) * 100))
}

// UsageBar caps a usage percentage at 100 for display.
func UsageBar(percent float64) float64 {
	return math.Min(percent, 100)
}
