package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ayodele-o/outreach/internal/store"
)

// Candidate is one eligible recipient joined with its send history summary
// and resolved source record.
type Candidate struct {
	Recipient     *store.Recipient
	Source        store.SourceRecord
	LastStepIndex int        // max step index across all sends, -1 if none
	LastSendAt    *time.Time // of the most-recent send
	LastStatus    string     // status of the most-recent send, "" if none
}

// activeFunnel lists the recipient statuses still eligible for sequencing.
var activeFunnel = map[string]bool{
	store.RecipientPending: true,
	store.RecipientSent:    true,
	store.RecipientOpened:  true,
	store.RecipientClicked: true,
}

// resolveEligible lists the campaign's recipients that are still in the
// active funnel and not unsubscribed or suppressed, each joined with its
// send history and source record. The returned send index (recipient id to
// sends, in store order) is shared with the scheduler so sends are loaded
// once per tick.
func (e *Engine) resolveEligible(ctx context.Context, campaignID string) ([]Candidate, map[string][]*store.Send, error) {
	recipients, err := e.store.ListRecipients(ctx, campaignID)
	if err != nil {
		return nil, nil, fmt.Errorf("list recipients: %w", err)
	}

	sends, err := e.store.ListSends(ctx, campaignID)
	if err != nil {
		return nil, nil, fmt.Errorf("list sends: %w", err)
	}

	index := make(map[string][]*store.Send)
	for _, s := range sends {
		index[s.RecipientID] = append(index[s.RecipientID], s)
	}

	var candidates []Candidate
	for _, r := range recipients {
		if !activeFunnel[r.Status] {
			continue
		}
		if r.Unsubscribed.Bool() || r.Suppressed.Bool() {
			continue
		}

		c := Candidate{
			Recipient:     r,
			Source:        e.resolveSource(ctx, r),
			LastStepIndex: -1,
		}

		if last := latestSend(index[r.ID]); last != nil {
			c.LastStepIndex = last.StepIndex
			c.LastStatus = last.Status
			if last.SentAt != nil {
				c.LastSendAt = last.SentAt
			} else {
				t := last.QueuedAt
				c.LastSendAt = &t
			}
		}

		candidates = append(candidates, c)
	}

	return candidates, index, nil
}

// resolveSource looks up the lead or partner behind a recipient. An
// unresolved reference yields an empty record, never an error.
func (e *Engine) resolveSource(ctx context.Context, r *store.Recipient) store.SourceRecord {
	switch r.SourceType {
	case store.SourceLead:
		lead, err := e.store.GetLead(ctx, r.SourceID)
		if err != nil {
			e.logger.Debug("lead not resolved",
				zap.String("recipient_id", r.ID),
				zap.String("source_id", r.SourceID),
			)
			return store.SourceRecord{Kind: store.SourceNone}
		}
		return store.SourceRecord{
			Kind:    store.SourceLead,
			Name:    lead.Name,
			Email:   lead.Email,
			Phone:   lead.Phone,
			Website: lead.Website,
			Address: lead.Address,
		}
	case store.SourcePartner:
		partner, err := e.store.GetPartner(ctx, r.SourceID)
		if err != nil {
			e.logger.Debug("partner not resolved",
				zap.String("recipient_id", r.ID),
				zap.String("source_id", r.SourceID),
			)
			return store.SourceRecord{Kind: store.SourceNone}
		}
		return store.SourceRecord{
			Kind:    store.SourcePartner,
			Name:    partner.Name,
			Email:   partner.Email,
			Phone:   partner.Phone,
			Website: partner.Website,
			Address: partner.Street,
		}
	default:
		return store.SourceRecord{Kind: store.SourceNone}
	}
}

// latestSend picks a recipient's most-recent send: highest step index,
// ties broken by queue time.
func latestSend(sends []*store.Send) *store.Send {
	var best *store.Send
	for _, s := range sends {
		if best == nil ||
			s.StepIndex > best.StepIndex ||
			(s.StepIndex == best.StepIndex && s.QueuedAt.After(best.QueuedAt)) {
			best = s
		}
	}
	return best
}

// latestSendForStep picks the most-recent send for one (recipient, step)
// pair out of an already-indexed send list.
func latestSendForStep(sends []*store.Send, stepIndex int) *store.Send {
	var best *store.Send
	for _, s := range sends {
		if s.StepIndex != stepIndex {
			continue
		}
		if best == nil || s.QueuedAt.After(best.QueuedAt) {
			best = s
		}
	}
	return best
}
