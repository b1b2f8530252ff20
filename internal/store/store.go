// Package store provides typed access to the tabular record store backing
// the outreach engine: campaigns, sequences, recipients, sends, templates
// and the two source-record tables.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a record id does not resolve.
var ErrNotFound = errors.New("record not found")

// Store is the record-store adapter consumed by the engine. Implementations
// must support partial row updates by primary key; the typed Update methods
// overwrite the mutable columns of the given row.
type Store interface {
	GetCampaign(ctx context.Context, id string) (*Campaign, error)
	UpdateCampaign(ctx context.Context, c *Campaign) error
	ListRunningCampaigns(ctx context.Context) ([]*Campaign, error)

	// GetActiveSequence returns the single active sequence for a campaign.
	GetActiveSequence(ctx context.Context, campaignID string) (*Sequence, error)

	ListRecipients(ctx context.Context, campaignID string) ([]*Recipient, error)
	UpdateRecipient(ctx context.Context, r *Recipient) error

	ListSends(ctx context.Context, campaignID string) ([]*Send, error)
	CreateSend(ctx context.Context, s *Send) error
	UpdateSend(ctx context.Context, s *Send) error

	GetTemplate(ctx context.Context, id string) (*Template, error)

	GetLead(ctx context.Context, id string) (*Lead, error)
	GetPartner(ctx context.Context, id string) (*Partner, error)
}
