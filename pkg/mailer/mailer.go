package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/academiaalbert/academia-backend/pkg/config"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

var ErrNotConfigured = errors.New("sendgrid api key not configured")

// Message is a single transactional email.
type Message struct {
	ToName  string
	ToEmail string
	Subject string
	Text    string
	HTML    string
}

type sender interface {
	SendWithContext(ctx context.Context, email *sgmail.SGMailV3) (*rest.Response, error)
}

// Mailer delivers transactional email through SendGrid.
type Mailer struct {
	client sender
	from   *sgmail.Email
}

func New(cfg config.SendgridConfig) (*Mailer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}
	if strings.TrimSpace(cfg.DefaultFrom) == "" {
		return nil, fmt.Errorf("sendgrid from address is required")
	}
	return &Mailer{
		client: sendgrid.NewSendClient(cfg.APIKey),
		from:   sgmail.NewEmail(cfg.FromName, cfg.DefaultFrom),
	}, nil
}

func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.ToEmail) == "" {
		return fmt.Errorf("recipient email is required")
	}
	if msg.Text == "" && msg.HTML == "" {
		return fmt.Errorf("email body is required")
	}

	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject
	p.AddTos(sgmail.NewEmail(msg.ToName, msg.ToEmail))

	email := sgmail.NewV3Mail()
	email.SetFrom(m.from)
	email.AddPersonalizations(p)
	if msg.Text != "" {
		email.AddContent(sgmail.NewContent("text/plain", msg.Text))
	}
	if msg.HTML != "" {
		email.AddContent(sgmail.NewContent("text/html", msg.HTML))
	}

	resp, err := m.client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
