package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ayodele-o/outreach/internal/merge"
	"github.com/ayodele-o/outreach/internal/store"
	"github.com/ayodele-o/outreach/internal/transport"
)

// dispatch runs one step for one recipient: template fetch, merge render,
// durable queue record, transport send, final state write. The Send row is
// written before the transport call so a crash mid-dispatch still leaves an
// auditable queued record.
func (e *Engine) dispatch(ctx context.Context, campaign *store.Campaign, seq *store.Sequence, step store.Step, item dueItem) error {
	r := item.Candidate.Recipient

	tmpl, err := e.store.GetTemplate(ctx, step.TemplateID)
	if err != nil {
		return fmt.Errorf("template %s: %w", step.TemplateID, err)
	}

	vars := merge.BuildContext(r, item.Candidate.Source, e.config.Links)
	subject := merge.Render(tmpl.Subject, vars)
	bodyText := merge.Render(tmpl.BodyMarkdown, vars)
	html := e.body.Render(bodyText)

	// Retry count is cumulative per step: a retry attempt starts from one
	// past the failed attempt's count, so the promotion threshold is
	// reachable across attempt rows.
	retryCount := 0
	if item.Prior != nil {
		retryCount = item.Prior.RetryCount + 1
	}

	now := e.now()
	send := &store.Send{
		ID:          e.newID(),
		CampaignID:  campaign.ID,
		SequenceID:  seq.ID,
		RecipientID: r.ID,
		StepIndex:   item.StepIndex,
		TemplateID:  step.TemplateID,
		Channel:     step.Channel,
		Subject:     subject,
		Status:      store.SendQueued,
		QueuedAt:    now,
		RetryCount:  retryCount,
	}
	if err := e.store.CreateSend(ctx, send); err != nil {
		return fmt.Errorf("queue send: %w", err)
	}

	result, sendErr := e.transport.Send(ctx, transport.Request{
		To:          r.Email,
		Subject:     subject,
		HTML:        html,
		Text:        bodyText,
		Tags:        []string{"sequence"},
		CampaignID:  campaign.ID,
		TemplateID:  step.TemplateID,
		RecipientID: r.ID,
	})

	if sendErr != nil {
		errAt := e.now()
		send.Status = store.SendTempError
		send.Error = sendErr.Error()
		send.LastErrorAt = &errAt
		if err := e.store.UpdateSend(ctx, send); err != nil {
			e.logger.Error("failed to record transient send error",
				zap.String("send_id", send.ID),
				zap.Error(err),
			)
		}
		return fmt.Errorf("transport: %w", sendErr)
	}

	sentAt := e.now()
	send.Status = store.SendSent
	send.ProviderMsgID = result.ProviderMsgID
	send.SentAt = &sentAt
	if err := e.store.UpdateSend(ctx, send); err != nil {
		return fmt.Errorf("finalize send: %w", err)
	}

	r.LastSendAt = &sentAt
	r.LastResult = store.SendSent
	if err := e.store.UpdateRecipient(ctx, r); err != nil {
		return fmt.Errorf("update recipient: %w", err)
	}

	e.logger.Info("step dispatched",
		zap.String("campaign_id", campaign.ID),
		zap.String("recipient_id", r.ID),
		zap.Int("step_index", item.StepIndex),
		zap.String("provider_msg_id", result.ProviderMsgID),
	)
	return nil
}
