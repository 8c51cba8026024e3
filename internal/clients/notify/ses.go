// internal/clients/notify/ses.go
package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"pika-api/internal/common/config"
	"pika-api/internal/common/logger"
)

// Notifier emails the operator when a task fails. Disabled notifiers are a
// no-op so callers never need to branch.
type Notifier struct {
	client *ses.Client
	cfg    config.NotificationConfig
	logger logger.Logger
}

func NewNotifier(ctx context.Context, cfg config.NotificationConfig, log logger.Logger) (*Notifier, error) {
	if !cfg.Enabled {
		return &Notifier{cfg: cfg, logger: log}, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load notifier credentials: %w", err)
	}
	return &Notifier{
		client: ses.NewFromConfig(awsCfg),
		cfg:    cfg,
		logger: log,
	}, nil
}

// NotifyTaskFailure sends a failure summary. Errors are logged, not
// propagated: a broken mailer must not fail the request.
func (n *Notifier) NotifyTaskFailure(ctx context.Context, taskType, errorCode, details string) {
	if n.client == nil {
		return
	}

	subject := fmt.Sprintf("Task failed: %s (%s)", taskType, errorCode)
	body := fmt.Sprintf("Task type: %s\nError code: %s\nDetails: %s\n", taskType, errorCode, details)

	_, err := n.client.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(n.cfg.FromEmail),
		Destination: &types.Destination{
			ToAddresses: []string{n.cfg.ToEmail},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
	})
	if err != nil {
		n.logger.Warn("Failed to send failure notification", map[string]interface{}{
			"taskType": taskType,
			"error":    err.Error(),
		})
		return
	}

	n.logger.Debug("Failure notification sent", map[string]interface{}{
		"taskType": taskType,
	})
}
