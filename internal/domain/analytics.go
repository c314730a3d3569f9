package domain

import (
	"encoding/json"
	"time"
)

// CallSuccessful is the call_successful value of a successful conversation.
const CallSuccessful = "successful"

// Conversation is one recorded call.
type Conversation struct {
	ID             int             `json:"id"`
	ConversationID string          `json:"conversation_id"`
	AgentID        string          `json:"agent_id"`
	EndUserID      string          `json:"end_user_id,omitempty"`
	DurationSecs   *int            `json:"duration_secs,omitempty"`
	TotalCost      *float64        `json:"total_cost,omitempty"`
	CallSuccessful string          `json:"call_successful,omitempty"`
	Summary        string          `json:"summary,omitempty"`
	Title          string          `json:"title,omitempty"`
	Sentiment      string          `json:"sentiment,omitempty"`
	Intent         string          `json:"intent,omitempty"`
	WebhookPayload json.RawMessage `json:"webhook_payload,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Successful reports whether the call ended successfully.
func (c *Conversation) Successful() bool {
	return c.CallSuccessful == CallSuccessful
}

// Duration returns the call duration in seconds, 0 when unknown.
func (c *Conversation) Duration() int {
	if c.DurationSecs == nil {
		return 0
	}
	return *c.DurationSecs
}

// Stats is the response of GET /analytics/stats.
type Stats struct {
	TotalCalls         int            `json:"total_calls"`
	TotalConversations int            `json:"total_conversations,omitempty"`
	TotalMinutes       float64        `json:"total_minutes"`
	SuccessfulCalls    int            `json:"successful_calls"`
	FailedCalls        int            `json:"failed_calls,omitempty"`
	SuccessRate        float64        `json:"success_rate"`
	AvgDurationSecs    float64        `json:"avg_duration_secs"`
	AppointmentsBooked int            `json:"appointments_booked,omitempty"`
	SentimentBreakdown map[string]int `json:"sentiment_breakdown,omitempty"`
}

// Usage is the response of GET /billing/usage.
type Usage struct {
	MinutesUsed        float64      `json:"minutes_used"`
	MinutesLimit       int          `json:"minutes_limit"`
	PercentageUsed     float64      `json:"percentage_used"`
	BillingPeriodStart time.Time    `json:"billing_period_start"`
	BillingPeriodEnd   time.Time    `json:"billing_period_end"`
	RecentUsage        []DailyUsage `json:"recent_usage,omitempty"`
}

// DailyUsage is one day of minutes consumption.
type DailyUsage struct {
	Date    string  `json:"date"`
	Minutes float64 `json:"minutes"`
}
