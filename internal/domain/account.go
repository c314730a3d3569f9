package domain

import (
	"time"
)

// Team roles.
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleEditor = "editor"
	RoleViewer = "viewer"
)

// TeamMember is a user with access to the account.
type TeamMember struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	FullName   string     `json:"full_name,omitempty"`
	Role       string     `json:"role"`
	AvatarURL  string     `json:"avatar_url,omitempty"`
	JoinedAt   time.Time  `json:"joined_at"`
	LastActive *time.Time `json:"last_active,omitempty"`
	Status     string     `json:"status"`
}

// IsAdmin reports whether the member can manage the account.
func (m *TeamMember) IsAdmin() bool {
	return m.Role == RoleOwner || m.Role == RoleAdmin
}

// TeamInvitation is a pending invite to join the account.
type TeamInvitation struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Role           string    `json:"role"`
	InvitedBy      string    `json:"invited_by"`
	InvitedByEmail string    `json:"invited_by_email"`
	Status         string    `json:"status"`
	ExpiresAt      time.Time `json:"expires_at"`
	CreatedAt      time.Time `json:"created_at"`
}

// CalendarAuth starts an OAuth calendar connection.
type CalendarAuth struct {
	AuthURL string `json:"auth_url"`
	State   string `json:"state,omitempty"`
}

// CalendarIntegration is a connected external calendar.
type CalendarIntegration struct {
	ID            string     `json:"id"`
	Provider      string     `json:"provider"`
	ProviderEmail string     `json:"provider_email"`
	CalendarID    string     `json:"calendar_id,omitempty"`
	CalendarName  string     `json:"calendar_name,omitempty"`
	IsActive      bool       `json:"is_active"`
	SyncEnabled   bool       `json:"sync_enabled"`
	LastSync      *time.Time `json:"last_sync,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Appointment is a booking made by the agent or by hand.
type Appointment struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Status        string    `json:"status"`
	AttendeeEmail string    `json:"attendee_email,omitempty"`
	AttendeeName  string    `json:"attendee_name,omitempty"`
	AttendeePhone string    `json:"attendee_phone,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// NotificationPreferences controls which events notify the account owner.
type NotificationPreferences struct {
	EmailNotifications struct {
		NewConversation   bool `json:"new_conversation"`
		AppointmentBooked bool `json:"appointment_booked"`
		UsageLimitWarning bool `json:"usage_limit_warning"`
		PaymentFailed     bool `json:"payment_failed"`
		WeeklySummary     bool `json:"weekly_summary"`
	} `json:"email_notifications"`
	SMSNotifications struct {
		CriticalAlerts bool `json:"critical_alerts"`
	} `json:"sms_notifications"`
}

// Plan is a subscription offering shown on the pricing page.
type Plan struct {
	Key          string   `json:"key" yaml:"key"`
	Name         string   `json:"name" yaml:"name"`
	Description  string   `json:"description" yaml:"description"`
	MonthlyPrice int      `json:"monthly_price" yaml:"monthly_price"`
	YearlyPrice  int      `json:"yearly_price" yaml:"yearly_price"`
	Minutes      int      `json:"minutes" yaml:"minutes"`
	Features     []string `json:"features" yaml:"features"`
	Popular      bool     `json:"popular,omitempty" yaml:"popular"`
	PriceIDs     PriceIDs `json:"price_ids" yaml:"price_ids"`
}

// PriceIDs holds the Stripe price identifiers of a plan per billing cycle.
type PriceIDs struct {
	Monthly string `json:"monthly" yaml:"monthly"`
	Yearly  string `json:"yearly" yaml:"yearly"`
}

// Billing cycles.
const (
	CycleMonthly = "monthly"
	CycleYearly  = "yearly"
)

// CheckoutRequest is the body of POST /billing/create-checkout-session.
type CheckoutRequest struct {
	PriceID      string `json:"price_id"`
	Plan         string `json:"plan"`
	BillingCycle string `json:"billing_cycle"`
}

// CheckoutSession is returned when a Stripe checkout session is created.
type CheckoutSession struct {
	CheckoutURL string `json:"checkout_url"`
	SessionID   string `json:"session_id,omitempty"`
}
