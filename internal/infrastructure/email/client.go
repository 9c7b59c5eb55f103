// Package email provides the email client for sending transactional emails.
package email

import (
	"fmt"

	"github.com/resendlabs/resend-go"

	"github.com/dailymirror/mirror-go/internal/infrastructure/email/templates"
	"github.com/dailymirror/mirror-go/pkg/config"
)

// Service defines the interface for sending emails, allowing for mock
// implementations in tests.
type Service interface {
	Send(toEmail, subject, htmlBody string) error
	SendReEngagementEmail(toEmail, userName string, daysInactive int) error
}

// ResendClient is the concrete implementation of the email Service using the
// Resend API.
type ResendClient struct {
	client    *resend.Client
	fromEmail string
	fromName  string
}

// NewService creates a new email service client, returning the Service interface.
func NewService() (Service, error) {
	if config.ResendAPIKey == "" {
		return nil, fmt.Errorf("RESEND_API_KEY environment variable is required")
	}

	return &ResendClient{
		client:    resend.NewClient(config.ResendAPIKey),
		fromEmail: config.EmailFrom,
		fromName:  config.EmailFromName,
	}, nil
}

// Send delivers an already-composed HTML email.
func (c *ResendClient) Send(toEmail, subject, htmlBody string) error {
	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", c.fromName, c.fromEmail),
		To:      []string{toEmail},
		Subject: subject,
		Html:    htmlBody,
	}

	_, err := c.client.Emails.Send(params)
	if err != nil {
		return fmt.Errorf("failed to send email via Resend: %w", err)
	}
	return nil
}

// SendReEngagementEmail composes and sends the re-engagement email for a user
// who has not opened the app in daysInactive days.
func (c *ResendClient) SendReEngagementEmail(toEmail, userName string, daysInactive int) error {
	subject, content := templates.GetReEngagementContent(templates.ReEngagementProps{
		Name:         userName,
		DaysInactive: daysInactive,
	})

	htmlContent := templates.GetEmailLayout(templates.EmailLayoutProps{
		Content: content,
	})

	return c.Send(toEmail, subject, htmlContent)
}
