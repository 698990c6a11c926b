// Package email delivers transactional notifications over SMTP.
package email

import "context"

// Sender delivers the CRM's transactional emails.
type Sender interface {
	// SendLeadClaimedEmail tells the previous owner that one of their lost
	// leads was picked up by another commercial.
	SendLeadClaimedEmail(ctx context.Context, toEmail, leadName, claimedByName string) error
	// SendLeadLostEmail tells the owner that a lead dropped out of the
	// pipeline and why.
	SendLeadLostEmail(ctx context.Context, toEmail, leadName, reason string) error
	// SendLeadAssignedEmail tells a commercial a lead landed on their desk.
	SendLeadAssignedEmail(ctx context.Context, toEmail, leadName string) error
}

// NoopSender satisfies Sender without delivering anything. Used when SMTP
// is not configured.
type NoopSender struct{}

func (NoopSender) SendLeadClaimedEmail(context.Context, string, string, string) error { return nil }
func (NoopSender) SendLeadLostEmail(context.Context, string, string, string) error    { return nil }
func (NoopSender) SendLeadAssignedEmail(context.Context, string, string) error        { return nil }

var _ Sender = NoopSender{}
