package redis

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DefaultLeaseTTL bounds how long a crashed ticker can block a campaign.
// Ticks are expected to finish well inside it.
const DefaultLeaseTTL = 5 * time.Minute

// TickLease guards against two concurrent ticks for the same campaign,
// which could double-send. The engine itself is not protected against this;
// every ticking caller must hold the lease first.
type TickLease struct {
	client *Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewTickLease creates a lease manager. Zero ttl uses DefaultLeaseTTL.
func NewTickLease(client *Client, ttl time.Duration, logger *zap.Logger) *TickLease {
	if ttl <= 0 {
		ttl = DefaultLeaseTTL
	}
	return &TickLease{client: client, ttl: ttl, logger: logger}
}

func leaseKey(campaignID string) string {
	return fmt.Sprintf("ticklease:%s", campaignID)
}

// Acquire attempts to take the lease for a campaign. It reports false when
// another tick currently holds it.
func (l *TickLease) Acquire(ctx context.Context, campaignID string) (bool, error) {
	ok, err := l.client.rdb.SetNX(ctx, leaseKey(campaignID), "held", l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire tick lease: %w", err)
	}
	if !ok {
		l.logger.Debug("tick lease busy", zap.String("campaign_id", campaignID))
	}
	return ok, nil
}

// Release frees the lease after a tick completes. Failing to release is not
// fatal; the TTL reclaims the lease.
func (l *TickLease) Release(ctx context.Context, campaignID string) {
	if err := l.client.rdb.Del(ctx, leaseKey(campaignID)).Err(); err != nil {
		l.logger.Warn("failed to release tick lease",
			zap.String("campaign_id", campaignID),
			zap.Error(err),
		)
	}
}
