package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ayodele-o/outreach/internal/store"
)

// Start transitions a campaign to running. StartedAt is set to startAt when
// given, otherwise to now; step due dates are measured from it.
func (e *Engine) Start(ctx context.Context, campaignID string, startAt *time.Time) error {
	campaign, err := e.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("start campaign: %w", err)
	}

	started := e.now()
	if startAt != nil {
		started = *startAt
	}
	campaign.Status = store.CampaignRunning
	campaign.StartedAt = &started

	if err := e.store.UpdateCampaign(ctx, campaign); err != nil {
		return fmt.Errorf("start campaign: %w", err)
	}

	e.logger.Info("campaign started",
		zap.String("campaign_id", campaignID),
		zap.Time("started_at", started),
	)
	return nil
}

// Pause transitions a campaign to paused. The transition is not state-checked;
// calling it outside running is the caller's responsibility.
func (e *Engine) Pause(ctx context.Context, campaignID string) error {
	campaign, err := e.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("pause campaign: %w", err)
	}

	campaign.Status = store.CampaignPaused
	if err := e.store.UpdateCampaign(ctx, campaign); err != nil {
		return fmt.Errorf("pause campaign: %w", err)
	}

	e.logger.Info("campaign paused", zap.String("campaign_id", campaignID))
	return nil
}

// Complete transitions a campaign to its terminal completed state.
func (e *Engine) Complete(ctx context.Context, campaignID string) error {
	campaign, err := e.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("complete campaign: %w", err)
	}

	completed := e.now()
	campaign.Status = store.CampaignCompleted
	campaign.CompletedAt = &completed

	if err := e.store.UpdateCampaign(ctx, campaign); err != nil {
		return fmt.Errorf("complete campaign: %w", err)
	}

	e.logger.Info("campaign completed",
		zap.String("campaign_id", campaignID),
		zap.Time("completed_at", completed),
	)
	return nil
}
