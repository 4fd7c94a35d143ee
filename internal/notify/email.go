// Package notify emails families about payments and low balances via Amazon SES.
package notify

import (
	"context"
	"fmt"
	"html"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/shopspring/decimal"

	"summerfest/internal/models"
)

// SESClient is the part of the SES API the notifier uses
type SESClient interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailNotifier sends family notifications. A disabled notifier logs and drops them.
type EmailNotifier struct {
	client     SESClient
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
}

// NewEmailNotifier creates an SES-backed notifier, or a disabled one when fromEmail is empty
func NewEmailNotifier(ctx context.Context, awsRegion, fromEmail, fromName, appBaseURL string) (*EmailNotifier, error) {
	if fromEmail == "" {
		slog.Info("email notifications disabled: SES_FROM_EMAIL not configured")
		return &EmailNotifier{}, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	slog.Info("email notifications enabled", "from", fromEmail, "region", awsRegion)
	return NewEmailNotifierWithClient(sesv2.NewFromConfig(cfg), fromEmail, fromName, appBaseURL), nil
}

// NewEmailNotifierWithClient creates an enabled notifier around an existing client
func NewEmailNotifierWithClient(client SESClient, fromEmail, fromName, appBaseURL string) *EmailNotifier {
	return &EmailNotifier{
		client:     client,
		fromEmail:  fromEmail,
		fromName:   fromName,
		appBaseURL: appBaseURL,
		enabled:    true,
	}
}

// IsEnabled returns whether notifications are sent
func (n *EmailNotifier) IsEnabled() bool {
	return n.enabled
}

// PaymentReceived sends a receipt for a credit
func (n *EmailNotifier) PaymentReceived(ctx context.Context, family models.Family, txn models.LedgerTransaction, balance decimal.Decimal) error {
	subject := fmt.Sprintf("Summerfest payment received: $%s", txn.Amount.StringFixed(2))
	textBody := fmt.Sprintf(`Hi %s,

We received your payment of $%s (%s).
Your Summerfest balance is now $%s.

View your account: %s/families/%d

---
This is an automated email from Summerfest. Please do not reply.
`, family.Name, txn.Amount.StringFixed(2), txn.Method, balance.StringFixed(2), n.appBaseURL, family.ID)

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
	<p>Hi %s,</p>
	<p>We received your payment of <strong>$%s</strong> (%s).</p>
	<p>Your Summerfest balance is now <strong>$%s</strong>.</p>
	<p><a href="%s/families/%d">View your account</a></p>
	<p style="font-size: 12px; color: #666;">This is an automated email from Summerfest. Please do not reply.</p>
</body>
</html>
`, html.EscapeString(family.Name), txn.Amount.StringFixed(2), txn.Method, balance.StringFixed(2), n.appBaseURL, family.ID)

	return n.send(ctx, family.Email, subject, htmlBody, textBody)
}

// LowBalance warns a family that their balance has fallen below the top-up threshold
func (n *EmailNotifier) LowBalance(ctx context.Context, family models.Family, balance decimal.Decimal) error {
	subject := "Summerfest balance is running low"
	textBody := fmt.Sprintf(`Hi %s,

Your Summerfest balance is $%s. Please top up before your next visit.
Children are never turned away for billing reasons; any shortfall is settled later.

Top up: %s/families/%d

---
This is an automated email from Summerfest. Please do not reply.
`, family.Name, balance.StringFixed(2), n.appBaseURL, family.ID)

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
	<p>Hi %s,</p>
	<p>Your Summerfest balance is <strong>$%s</strong>. Please top up before your next visit.</p>
	<p>Children are never turned away for billing reasons; any shortfall is settled later.</p>
	<p><a href="%s/families/%d">Top up</a></p>
	<p style="font-size: 12px; color: #666;">This is an automated email from Summerfest. Please do not reply.</p>
</body>
</html>
`, html.EscapeString(family.Name), balance.StringFixed(2), n.appBaseURL, family.ID)

	return n.send(ctx, family.Email, subject, htmlBody, textBody)
}

func (n *EmailNotifier) send(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	if !n.enabled {
		slog.Debug("skipping email (notifications disabled)", "to", toEmail, "subject", subject)
		return nil
	}
	if toEmail == "" {
		slog.Debug("skipping email (no address on file)", "subject", subject)
		return nil
	}

	fromAddress := n.fromEmail
	if n.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", n.fromName, n.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(htmlBody), Charset: aws.String("UTF-8")},
					Text: &types.Content{Data: aws.String(textBody), Charset: aws.String("UTF-8")},
				},
			},
		},
	}

	result, err := n.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	slog.Info("email sent", "to", toEmail, "subject", subject, "message_id", aws.ToString(result.MessageId))
	return nil
}
