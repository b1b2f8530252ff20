package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ayodele-o/outreach/internal/store"
)

// dueItem is one recipient whose next step should be dispatched this tick.
type dueItem struct {
	Candidate Candidate
	StepIndex int
	// Prior is the latest send for this step, set when the step is being
	// retried after a transient failure. The dispatcher carries its retry
	// count into the new attempt row.
	Prior *store.Send
}

// scheduleDue walks the candidates in resolver order and picks those whose
// next step is due now. A step that last failed transiently is retried in
// place once its backoff has elapsed; after the retry budget is exhausted
// the failing send is promoted to a permanent error and the recipient is
// never scheduled for that step again.
func (e *Engine) scheduleDue(ctx context.Context, campaign *store.Campaign, steps []store.Step, candidates []Candidate, index map[string][]*store.Send) []dueItem {
	now := e.now()

	var due []dueItem
	for _, c := range candidates {
		if c.LastStatus == store.SendPermError {
			continue
		}

		next := c.LastStepIndex + 1
		retrying := c.LastStatus == store.SendTempError
		if retrying {
			// The failed step is retried, not skipped past.
			next = c.LastStepIndex
		}

		if next < 0 || next >= len(steps) {
			continue
		}
		step := steps[next]
		if step.DayOffset < 0 {
			// Malformed step: skipped, never errored.
			continue
		}

		dueDate := campaign.StartedAt.AddDate(0, 0, step.DayOffset)
		if now.Before(dueDate) {
			continue
		}

		var prior *store.Send
		if retrying {
			prior = latestSendForStep(index[c.Recipient.ID], next)
			if prior != nil && !e.retryDue(ctx, prior, now) {
				continue
			}
		}

		due = append(due, dueItem{Candidate: c, StepIndex: next, Prior: prior})
	}

	return due
}

// retryDue applies the two-tier backoff policy to a transiently failed send.
// It reports whether the retry may run now, promoting the send to perm_error
// once the retry budget is exhausted.
func (e *Engine) retryDue(ctx context.Context, prior *store.Send, now time.Time) bool {
	if prior.RetryCount >= maxRetries {
		prior.Status = store.SendPermError
		prior.Error = prior.Error + " (retries exhausted)"
		if err := e.store.UpdateSend(ctx, prior); err != nil {
			e.logger.Warn("failed to mark send permanently failed",
				zap.String("send_id", prior.ID),
				zap.Error(err),
			)
		} else {
			e.logger.Info("send promoted to permanent failure",
				zap.String("send_id", prior.ID),
				zap.String("recipient_id", prior.RecipientID),
				zap.Int("step_index", prior.StepIndex),
			)
		}
		return false
	}

	wait := firstRetryWait
	if prior.RetryCount > 0 {
		wait = laterRetryWait
	}

	from := prior.QueuedAt
	if prior.LastErrorAt != nil {
		from = *prior.LastErrorAt
	}

	return !now.Before(from.Add(wait))
}
