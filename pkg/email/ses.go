package email

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// SESConfig contains configuration for the AWS SES client.
type SESConfig struct {
	Region    string
	AccessKey string // Optional - uses default credential chain if empty
	SecretKey string // Optional - uses default credential chain if empty
	FromEmail string
	FromName  string
}

// SESClient implements Sender using AWS SES v2.
type SESClient struct {
	client    *sesv2.Client
	fromEmail string
	fromName  string
}

// NewSESClient creates a new AWS SES client.
func NewSESClient(cfg SESConfig) (*SESClient, error) {
	ctx := context.Background()

	var awsCfg aws.Config
	var err error

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		awsCfg, err = config.LoadDefaultConfig(ctx,
			config.WithRegion(cfg.Region),
			config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(
					cfg.AccessKey,
					cfg.SecretKey,
					"",
				),
			),
		)
	} else {
		// Default credential chain (env vars, IAM role, etc.)
		awsCfg, err = config.LoadDefaultConfig(ctx,
			config.WithRegion(cfg.Region),
		)
	}

	if err != nil {
		return nil, fmt.Errorf("email: failed to load AWS config: %w", err)
	}

	return &SESClient{
		client:    sesv2.NewFromConfig(awsCfg),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
	}, nil
}

// Send sends an email using AWS SES.
func (c *SESClient) Send(ctx context.Context, params SendParams) error {
	if err := params.validate(); err != nil {
		return err
	}

	fromAddress := c.fromEmail
	if c.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", c.fromName, c.fromEmail)
	}

	content := &types.EmailContent{
		Simple: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(params.Subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data:    aws.String(params.Text),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: params.To,
		},
		Content: content,
	}

	if params.ReplyTo != "" {
		input.ReplyToAddresses = []string{params.ReplyTo}
	}

	if _, err := c.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("email: SES SendEmail failed: %w", err)
	}

	return nil
}
