// Package domain contains core domain types for the Vami console.
package domain

import (
	"strings"
	"time"
)

// User is the authenticated account as reported by the Vami backend.
type User struct {
	ID                   string       `json:"id"`
	Email                string       `json:"email"`
	CompanyName          string       `json:"company_name,omitempty"`
	Plan                 string       `json:"plan"`
	SubscriptionStatus   string       `json:"subscription_status"`
	Features             UserFeatures `json:"features"`
	StripeCustomerID     string       `json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID string       `json:"stripe_subscription_id,omitempty"`
	CurrentPeriodEnd     *time.Time   `json:"current_period_end,omitempty"`
	CreatedAt            time.Time    `json:"created_at"`
	UpdatedAt            time.Time    `json:"updated_at"`
}

// UserFeatures lists the plan entitlements of an account.
type UserFeatures struct {
	MinutesLimit       int  `json:"minutes_limit"`
	ConcurrentCalls    int  `json:"concurrent_calls"`
	BusinessNumbers    int  `json:"business_numbers"`
	TeamMembers        int  `json:"team_members"`
	InboundCalls       bool `json:"inbound_calls"`
	OutboundCalls      bool `json:"outbound_calls"`
	CalendarBooking    bool `json:"calendar_booking"`
	EmailConfirmations bool `json:"email_confirmations"`
	SMSConfirmations   bool `json:"sms_confirmations"`
	CallTranscripts    bool `json:"call_transcripts"`
	CallRecordings     bool `json:"call_recordings"`
	BasicAnalytics     bool `json:"basic_analytics"`
	AdvancedAnalytics  bool `json:"advanced_analytics"`
	SentimentAnalysis  bool `json:"sentiment_analysis"`
	PrioritySupport    bool `json:"priority_support"`
	CustomIntegrations bool `json:"custom_integrations"`
	VoiceCloning       bool `json:"voice_cloning"`
	CallRouting        bool `json:"call_routing"`
	MultiLocation      bool `json:"multi_location"`
	WhiteLabeling      bool `json:"white_labeling"`
}

// AuthResponse is returned by login and registration.
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
	User        User   `json:"user"`
	CheckoutURL string `json:"checkout_url,omitempty"`
}

// PlanLabel returns the plan name for display. Only the first underscore is
// replaced, so "pro_plus_annual" renders as "pro plus_annual".
func (u *User) PlanLabel() string {
	return strings.Replace(u.Plan, "_", " ", 1)
}
