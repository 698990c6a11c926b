package email

import (
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender implements the Sender interface using a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates a new SMTPSender with the given SMTP credentials.
func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

func (s *SMTPSender) SendLeadClaimedEmail(ctx context.Context, toEmail, leadName, claimedByName string) error {
	content, err := renderEmailTemplate("lead_claimed.html", leadClaimedEmailData{
		baseEmailData: baseEmailData{
			Title:   "Lead rivendicato",
			Heading: "Un tuo lead perso è stato rivendicato",
		},
		LeadName:      leadName,
		ClaimedByName: claimedByName,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectLeadClaimed, content)
}

func (s *SMTPSender) SendLeadLostEmail(ctx context.Context, toEmail, leadName, reason string) error {
	content, err := renderEmailTemplate("lead_lost.html", leadLostEmailData{
		baseEmailData: baseEmailData{
			Title:   "Lead perso",
			Heading: "Un lead è uscito dalla pipeline",
		},
		LeadName: leadName,
		Reason:   reason,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectLeadLost, content)
}

func (s *SMTPSender) SendLeadAssignedEmail(ctx context.Context, toEmail, leadName string) error {
	content, err := renderEmailTemplate("lead_assigned.html", leadAssignedEmailData{
		baseEmailData: baseEmailData{
			Title:   "Nuovo lead",
			Heading: "Ti è stato assegnato un nuovo lead",
		},
		LeadName: leadName,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectLeadAssigned, content)
}

var _ Sender = (*SMTPSender)(nil)
