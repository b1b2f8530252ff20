package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ayodele-o/outreach/internal/metrics"
	"github.com/ayodele-o/outreach/internal/store"
)

// TickResult summarizes one engine invocation for one campaign.
type TickResult struct {
	Processed int      `json:"processed"` // recipients found due this tick
	Sent      int      `json:"sent"`
	Failed    int      `json:"failed"`
	Throttled int      `json:"throttled"`
	Errors    []string `json:"errors,omitempty"`
}

// Tick runs one dispatch pass for a campaign. It never returns an error:
// every failure, from a missing campaign to a single recipient's transport
// error, is folded into the result so a periodic caller can keep ticking.
func (e *Engine) Tick(ctx context.Context, campaignID string) TickResult {
	start := time.Now()
	result := e.tick(ctx, campaignID)

	metrics.RecordTick(time.Since(start))
	metrics.RecordSends(result.Sent, result.Failed, result.Throttled)

	e.logger.Info("tick finished",
		zap.String("campaign_id", campaignID),
		zap.Int("processed", result.Processed),
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed),
		zap.Int("throttled", result.Throttled),
		zap.Int("errors", len(result.Errors)),
	)
	return result
}

func (e *Engine) tick(ctx context.Context, campaignID string) TickResult {
	var result TickResult

	abort := func(format string, args ...any) TickResult {
		result.Errors = append(result.Errors, fmt.Sprintf(format, args...))
		return result
	}

	campaign, err := e.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return abort("campaign %s: %v", campaignID, err)
	}
	if campaign.Status != store.CampaignRunning || campaign.StartedAt == nil {
		return abort("campaign %s is not running", campaignID)
	}

	seq, err := e.store.GetActiveSequence(ctx, campaignID)
	if err != nil {
		return abort("active sequence: %v", err)
	}

	steps, err := store.ParseSteps(seq.StepsJSON)
	if err != nil {
		return abort("sequence %s: %v", seq.ID, err)
	}

	candidates, index, err := e.resolveEligible(ctx, campaignID)
	if err != nil {
		return abort("resolve recipients: %v", err)
	}

	due := e.scheduleDue(ctx, campaign, steps, candidates, index)
	result.Processed = len(due)

	toSend, throttled := splitDue(due, e.config.RatePerMin)
	result.Throttled = throttled

	// Sequential by design: the cap stays exact and no two attempts for the
	// same recipient/step can race.
	for _, item := range toSend {
		if err := e.dispatch(ctx, campaign, seq, steps[item.StepIndex], item); err != nil {
			result.Failed++
			result.Errors = append(result.Errors,
				fmt.Sprintf("send failed for %s: %v", item.Candidate.Recipient.ID, err))
			e.logger.Warn("dispatch failed",
				zap.String("campaign_id", campaignID),
				zap.String("recipient_id", item.Candidate.Recipient.ID),
				zap.Int("step_index", item.StepIndex),
				zap.Error(err),
			)
			continue
		}
		result.Sent++
	}

	return result
}
