package store

import (
	"encoding/json"
	"fmt"
	"time"
)

// Campaign statuses
const (
	CampaignDraft     = "draft"
	CampaignScheduled = "scheduled"
	CampaignRunning   = "running"
	CampaignPaused    = "paused"
	CampaignCompleted = "completed"
)

// Recipient statuses. Only the first four keep a recipient in the active
// funnel; the rest are terminal for sequencing purposes.
const (
	RecipientPending      = "pending"
	RecipientSent         = "sent"
	RecipientOpened       = "opened"
	RecipientClicked      = "clicked"
	RecipientBounced      = "bounced"
	RecipientComplained   = "complained"
	RecipientUnsubscribed = "unsubscribed"
)

// Send statuses
const (
	SendQueued     = "queued"
	SendSent       = "sent"
	SendTempError  = "temp_error"
	SendPermError  = "perm_error"
	SendOpened     = "opened"
	SendClicked    = "clicked"
	SendBounced    = "bounced"
	SendComplained = "complained"
)

// Source record kinds
const (
	SourceLead    = "lead"
	SourcePartner = "partner"
	SourceNone    = "none"
)

// SourceRecord is the resolved lead or partner behind a recipient, flattened
// into one shape so downstream code never re-discriminates the two tables.
// Kind is SourceNone when the reference did not resolve.
type SourceRecord struct {
	Kind    string `json:"kind"`
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Website string `json:"website,omitempty"`
	Address string `json:"address,omitempty"`
}

// Campaign is one outreach campaign owned by a tenant.
type Campaign struct {
	ID          string     `json:"id"`
	TenantID    string     `json:"tenant_id"`
	Name        string     `json:"name"`
	Channel     string     `json:"channel"`
	Status      string     `json:"status"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Sequence is the ordered message plan for a campaign. Steps are stored as
// a JSON array; order is fixed by array index and never reordered.
type Sequence struct {
	ID         string    `json:"id"`
	CampaignID string    `json:"campaign_id"`
	StepsJSON  string    `json:"steps_json"`
	Active     SheetBool `json:"active"`
}

// Step is one position in a sequence.
type Step struct {
	DayOffset  int    `json:"dayOffset"`
	TemplateID string `json:"templateId"`
	Channel    string `json:"channel"`
}

// ParseSteps decodes a sequence's steps column. Empty input is an error;
// the engine requires at least one step to run a campaign.
func ParseSteps(stepsJSON string) ([]Step, error) {
	var steps []Step
	if err := json.Unmarshal([]byte(stepsJSON), &steps); err != nil {
		return nil, fmt.Errorf("parse sequence steps: %w", err)
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("sequence has no steps")
	}
	return steps, nil
}

// Recipient is one campaign audience member. The unsubscribe and suppression
// flags come from sheet imports and may arrive in several encodings; SheetBool
// normalized them on the way in.
type Recipient struct {
	ID           string     `json:"id"`
	CampaignID   string     `json:"campaign_id"`
	SourceType   string     `json:"source_type"`
	SourceID     string     `json:"source_id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	Phone        string     `json:"phone"`
	City         string     `json:"city"`
	CountryCode  string     `json:"country_code"`
	Status       string     `json:"status"`
	Unsubscribed SheetBool  `json:"unsubscribed"`
	Suppressed   SheetBool  `json:"suppressed"`
	LastSendAt   *time.Time `json:"last_send_at,omitempty"`
	LastResult   string     `json:"last_result,omitempty"`
}

// Send is one durable record of a single dispatch attempt. Rows are never
// deleted; history accumulates per recipient and step.
type Send struct {
	ID            string     `json:"id"`
	CampaignID    string     `json:"campaign_id"`
	SequenceID    string     `json:"sequence_id"`
	RecipientID   string     `json:"recipient_id"`
	StepIndex     int        `json:"step_index"`
	TemplateID    string     `json:"template_id"`
	Channel       string     `json:"channel"`
	Subject       string     `json:"subject"`
	Status        string     `json:"status"`
	ProviderMsgID string     `json:"provider_msg_id,omitempty"`
	QueuedAt      time.Time  `json:"queued_at"`
	SentAt        *time.Time `json:"sent_at,omitempty"`
	Error         string     `json:"error,omitempty"`
	RetryCount    int        `json:"retry_count"`
	LastErrorAt   *time.Time `json:"last_error_at,omitempty"`
}

// Template holds the subject line and markdown body for one step.
type Template struct {
	ID           string `json:"id"`
	Subject      string `json:"subject"`
	BodyMarkdown string `json:"body_markdown"`
	Locale       string `json:"locale"`
}

// Lead is a prospect source record.
type Lead struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Website string `json:"website"`
	Address string `json:"address"`
}

// Partner is a partner-organization source record.
type Partner struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Website string `json:"website"`
	Street  string `json:"street"`
}
