// Package email provides email sending capabilities using various providers.
package email

import (
	"context"
)

// Sender defines the interface for sending emails.
type Sender interface {
	Send(ctx context.Context, params SendParams) error
}

// SendParams contains all parameters for sending an email.
type SendParams struct {
	To      []string // Recipient email addresses
	Subject string   // Email subject
	Text    string   // Plain text content
	ReplyTo string   // Reply-to address (optional)
}

func (p SendParams) validate() error {
	if len(p.To) == 0 {
		return errEmptyRecipients
	}
	if p.Subject == "" {
		return errMissingSubject
	}
	if p.Text == "" {
		return errMissingBody
	}
	return nil
}
