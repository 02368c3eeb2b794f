package email

import (
	"context"
	"fmt"
	netmail "net/mail"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/itchan-dev/newsletter/internal/config"
	"github.com/itchan-dev/newsletter/internal/logger"
)

// SESClient is the part of *sesv2.Client used here.
type SESClient interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

type SES struct {
	client  SESClient
	from    string
	timeout time.Duration
}

// NewSES uses static credentials when both keys are configured and the
// default AWS credential chain otherwise.
func NewSES(ctx context.Context, cfg config.Email, secrets config.EmailSecrets) (*SES, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.SESRegion)}
	if secrets.SESAccessKey != "" && secrets.SESSecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(secrets.SESAccessKey, secrets.SESSecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewSESWithClient(sesv2.NewFromConfig(awsCfg), cfg.SenderEmail, cfg.SenderName, cfg.Timeout), nil
}

func NewSESWithClient(client SESClient, senderEmail, senderName string, timeout time.Duration) *SES {
	from := (&netmail.Address{Name: senderName, Address: senderEmail}).String()
	return &SES{client: client, from: from, timeout: timeout}
}

func (s *SES) Send(ctx context.Context, recipientEmail, recipientName, subject, htmlBody string) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	to := (&netmail.Address{Name: recipientName, Address: recipientEmail}).String()
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from),
		Destination:      &types.Destination{ToAddresses: []string{to}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(htmlBody), Charset: aws.String("UTF-8")},
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("ses send: %w", err)
	}

	logger.Log.Debug("email sent", "transport", "ses", "recipient", logger.RedactEmail(recipientEmail), "message_id", aws.ToString(result.MessageId))
	return nil
}
