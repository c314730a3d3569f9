package pages

import (
	"context"
	"fmt"
	"math"

	"github.com/ashureev/vami-console/internal/domain"
)

// Conversation pages fetched by the analytics and calls views.
const (
	conversationsPage    = 1
	conversationsPerPage = 20
)

// Filter selects calls by outcome.
type Filter string

const (
	FilterAll        Filter = "all"
	FilterSuccessful Filter = "successful"
	FilterFailed     Filter = "failed"
)

// ParseFilter accepts "", all, successful and failed.
func ParseFilter(s string) (Filter, error) {
	switch Filter(s) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterSuccessful, FilterFailed:
		return Filter(s), nil
	default:
		return "", fmt.Errorf("unknown filter %q", s)
	}
}

// Match reports whether c passes the filter.
func (f Filter) Match(c *domain.Conversation) bool {
	switch f {
	case FilterSuccessful:
		return c.Successful()
	case FilterFailed:
		return !c.Successful()
	default:
		return true
	}
}

// CallRow is a conversation with display fields.
type CallRow struct {
	domain.Conversation
	DurationLabel string `json:"duration_label"`
}

// Calls is the call log view.
type Calls struct {
	Filter     Filter    `json:"filter"`
	Rows       []CallRow `json:"rows"`
	Total      int       `json:"total"`
	Successful int       `json:"successful"`
	AvgMinutes int       `json:"avg_minutes"`
	Errors     Errors    `json:"errors,omitempty"`
}

// Analytics is the conversation history view.
type Analytics struct {
	Conversations []domain.Conversation `json:"conversations"`
	Errors        Errors                `json:"errors,omitempty"`
}

// Analytics loads recent conversations.
func (l *Loader) Analytics(ctx context.Context, api Backend) (*Analytics, error) {
	a := &Analytics{}
	f := newFanout(ctx, l.logger)
	f.run(SectionConversations, func(ctx context.Context) (err error) {
		a.Conversations, err = api.Conversations(ctx, conversationsPage, conversationsPerPage)
		return err
	})
	errs, err := f.wait()
	if err != nil {
		return nil, err
	}
	a.Errors = errs
	if a.Conversations == nil {
		a.Conversations = []domain.Conversation{}
	}
	return a, nil
}

// Calls loads recent conversations and applies filter. Totals and the
// average cover every loaded call regardless of the filter.
func (l *Loader) Calls(ctx context.Context, api Backend, filter Filter) (*Calls, error) {
	a, err := l.Analytics(ctx, api)
	if err != nil {
		return nil, err
	}

	c := &Calls{
		Filter:     filter,
		Rows:       []CallRow{},
		Total:      len(a.Conversations),
		AvgMinutes: AverageMinutes(a.Conversations),
		Errors:     a.Errors,
	}
	for i := range a.Conversations {
		conv := &a.Conversations[i]
		if conv.Successful() {
			c.Successful++
		}
		if filter.Match(conv) {
			c.Rows = append(c.Rows, CallRow{Conversation: *conv, DurationLabel: DurationLabel(conv.DurationSecs)})
		}
	}
	return c, nil
}

// AverageMinutes returns the mean call duration in whole minutes, 0 for no
// calls. Calls without a duration count as zero seconds.
func AverageMinutes(convs []domain.Conversation) int {
	if len(convs) == 0 {
		return 0
	}
	total := 0
	for i := range convs {
		total += convs[i].Duration()
	}
	return int(math.Round(float64(total) / float64(len(convs)) / 60))
}

// DurationLabel renders seconds as "Xm Ys", or "-" when unknown or zero.
func DurationLabel(secs *int) string {
	if secs == nil || *secs == 0 {
		return "-"
	}
	return fmt.Sprintf("%dm %ds", *secs/60, *secs%60)
}
