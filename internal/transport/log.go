package transport

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Log is a transport that only logs the request, for development and tests.
type Log struct {
	logger *zap.Logger
}

func NewLog(logger *zap.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Send(ctx context.Context, req Request) (Result, error) {
	id := uuid.NewString()
	l.logger.Info("message logged (development mode)",
		zap.String("to", req.To),
		zap.String("subject", req.Subject),
		zap.String("campaign_id", req.CampaignID),
		zap.String("recipient_id", req.RecipientID),
		zap.String("provider_msg_id", id),
	)
	return Result{ProviderMsgID: id}, nil
}
