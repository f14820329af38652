// Package notify sends client-facing email: password resets and the
// six-month rate-expiry reminders.
package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers messages. Implemented by SESMailer in production and by
// fakes in tests.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SESMailer sends email through Amazon SES from a fixed verified identity.
type SESMailer struct {
	client *ses.Client
	sender string
}

// NewSESMailer loads the default AWS configuration for region and returns a
// mailer sending from the given verified identity.
func NewSESMailer(ctx context.Context, region, sender string) (*SESMailer, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("notify: load aws config: %w", err)
	}
	return &SESMailer{client: ses.NewFromConfig(cfg), sender: sender}, nil
}

// Send delivers one message. A single attempt; the caller decides whether a
// failure aborts the surrounding operation.
func (m *SESMailer) Send(ctx context.Context, msg Message) error {
	_, err := m.client.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(m.sender),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(msg.Body)},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("notify: send email to %s: %w", msg.To, err)
	}
	return nil
}

// PasswordResetMailer adapts a Mailer to the auth package's reset hook.
type PasswordResetMailer struct {
	Mailer Mailer
}

// SendPasswordReset emails the temporary password issued by a reset.
func (p PasswordResetMailer) SendPasswordReset(ctx context.Context, to, name, tempPassword string) error {
	return p.Mailer.Send(ctx, Message{
		To:      to,
		Subject: "Your password has been reset",
		Body: fmt.Sprintf(
			"Hi %s,\n\nYour password has been reset. Sign in with the temporary password below and you will be asked to choose a new one.\n\nTemporary password: %s\n",
			name, tempPassword,
		),
	})
}
