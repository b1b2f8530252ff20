package transport

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"go.uber.org/zap"
)

// SES delivers email via AWS SES.
type SES struct {
	client *ses.Client
	from   string
	logger *zap.Logger
}

// SESConfig holds the SES sender settings.
type SESConfig struct {
	Region    string
	FromEmail string
}

// NewSES creates an SES transport using the default AWS credential chain.
func NewSES(ctx context.Context, cfg SESConfig, logger *zap.Logger) (*SES, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return &SES{
		client: ses.NewFromConfig(awsCfg),
		from:   cfg.FromEmail,
		logger: logger,
	}, nil
}

func (s *SES) Send(ctx context.Context, req Request) (Result, error) {
	if req.To == "" {
		return Result{}, fmt.Errorf("request missing recipient address")
	}

	body := &types.Body{
		Html: &types.Content{
			Data:    aws.String(req.HTML),
			Charset: aws.String("UTF-8"),
		},
	}
	if req.Text != "" {
		body.Text = &types.Content{
			Data:    aws.String(req.Text),
			Charset: aws.String("UTF-8"),
		}
	}

	// Message tags surface the campaign context in SES event destinations.
	tags := []types.MessageTag{
		{Name: aws.String("campaign_id"), Value: aws.String(req.CampaignID)},
		{Name: aws.String("template_id"), Value: aws.String(req.TemplateID)},
		{Name: aws.String("recipient_id"), Value: aws.String(req.RecipientID)},
	}

	input := &ses.SendEmailInput{
		Source: aws.String(s.from),
		Destination: &types.Destination{
			ToAddresses: []string{req.To},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(req.Subject),
				Charset: aws.String("UTF-8"),
			},
			Body: body,
		},
		Tags: tags,
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return Result{}, fmt.Errorf("ses send failed: %w", err)
	}

	s.logger.Info("email sent via SES",
		zap.String("to", req.To),
		zap.String("campaign_id", req.CampaignID),
		zap.String("message_id", aws.ToString(result.MessageId)),
	)

	return Result{ProviderMsgID: aws.ToString(result.MessageId)}, nil
}
