package pages

import (
	"context"
	"errors"

	"github.com/ashureev/vami-console/internal/domain"
)

// ErrNoAuthURL is returned when the backend answers without a consent URL.
var ErrNoAuthURL = errors.New("calendar authorization unavailable")

// Team is the members and invitations view.
type Team struct {
	Members     []domain.TeamMember     `json:"members"`
	Invitations []domain.TeamInvitation `json:"invitations"`
	Total       int                     `json:"total"`
	Active      int                     `json:"active"`
	Pending     int                     `json:"pending"`
	Admins      int                     `json:"admins"`
	Errors      Errors                  `json:"errors,omitempty"`
}

// Team loads members and invitations.
func (l *Loader) Team(ctx context.Context, api Backend) (*Team, error) {
	t := &Team{}
	f := newFanout(ctx, l.logger)
	f.run(SectionMembers, func(ctx context.Context) (err error) {
		t.Members, err = api.TeamMembers(ctx)
		return err
	})
	f.run(SectionInvitations, func(ctx context.Context) (err error) {
		t.Invitations, err = api.TeamInvitations(ctx)
		return err
	})
	errs, err := f.wait()
	if err != nil {
		return nil, err
	}
	t.Errors = errs

	if t.Members == nil {
		t.Members = []domain.TeamMember{}
	}
	if t.Invitations == nil {
		t.Invitations = []domain.TeamInvitation{}
	}
	t.Total = len(t.Members)
	for i := range t.Members {
		m := &t.Members[i]
		switch m.Status {
		case "active":
			t.Active++
		case "pending":
			t.Pending++
		}
		if m.IsAdmin() {
			t.Admins++
		}
	}
	return t, nil
}

// Calendar is the integrations and bookings view.
type Calendar struct {
	Integrations []domain.CalendarIntegration `json:"integrations"`
	Appointments []domain.Appointment         `json:"appointments"`
	Connected    bool                         `json:"connected"`
	Errors       Errors                       `json:"errors,omitempty"`
}

// Calendar loads integrations and appointments.
func (l *Loader) Calendar(ctx context.Context, api Backend) (*Calendar, error) {
	c := &Calendar{}
	f := newFanout(ctx, l.logger)
	f.run(SectionIntegrations, func(ctx context.Context) (err error) {
		c.Integrations, err = api.CalendarIntegrations(ctx)
		return err
	})
	f.run(SectionAppointments, func(ctx context.Context) (err error) {
		c.Appointments, err = api.Appointments(ctx)
		return err
	})
	errs, err := f.wait()
	if err != nil {
		return nil, err
	}
	c.Errors = errs

	if c.Integrations == nil {
		c.Integrations = []domain.CalendarIntegration{}
	}
	if c.Appointments == nil {
		c.Appointments = []domain.Appointment{}
	}
	for _, in := range c.Integrations {
		if in.IsActive {
			c.Connected = true
			break
		}
	}
	return c, nil
}

// Settings is the account and integrations view.
type Settings struct {
	CompanyName string `json:"company_name"`
	Email       string `json:"email"`
	// CalendarBooking is set when the plan includes appointment booking.
	CalendarBooking bool                            `json:"calendar_booking"`
	Notifications   *domain.NotificationPreferences `json:"notifications"`
	Errors          Errors                          `json:"errors,omitempty"`
}

// Settings loads notification preferences and combines them with the
// signed-in user's account details.
func (l *Loader) Settings(ctx context.Context, api Backend, user *domain.User) (*Settings, error) {
	s := &Settings{}
	if user != nil {
		s.CompanyName = user.CompanyName
		s.Email = user.Email
		s.CalendarBooking = user.Features.CalendarBooking
	}
	f := newFanout(ctx, l.logger)
	f.run(SectionNotifications, func(ctx context.Context) (err error) {
		s.Notifications, err = api.NotificationPreferences(ctx)
		return err
	})
	errs, err := f.wait()
	if err != nil {
		return nil, err
	}
	s.Errors = errs
	return s, nil
}

// ConnectCalendar returns the Google consent page the browser is sent to.
func (l *Loader) ConnectCalendar(ctx context.Context, api Backend) (*domain.CalendarAuth, error) {
	auth, err := api.GoogleAuthURL(ctx)
	if err != nil {
		return nil, err
	}
	if auth.AuthURL == "" {
		return nil, ErrNoAuthURL
	}
	return auth, nil
}
