package email

import (
	"context"
	"errors"

	"gopkg.in/gomail.v2"

	"github.com/aaftab343/dailyfruit-backend/internal/config"
	"github.com/aaftab343/dailyfruit-backend/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*SMTPNotifier)(nil)

type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPNotifier sends customer mail through one SMTP relay. Each Send dials
// a fresh connection.
type SMTPNotifier struct {
	dialer mailSender
	from   string
}

func NewSMTPNotifier(cfg config.MailConfig) *SMTPNotifier {
	return &SMTPNotifier{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *SMTPNotifier) Name() string { return "email" }

func (s *SMTPNotifier) Send(ctx context.Context, n adapter.Notification) error {
	if n.To == "" {
		return errors.New("email: recipient is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", n.To)
	m.SetHeader("Subject", n.Subject)
	switch {
	case n.HTML != "" && n.Text != "":
		m.SetBody("text/plain", n.Text)
		m.AddAlternative("text/html", n.HTML)
	case n.HTML != "":
		m.SetBody("text/html", n.HTML)
	default:
		m.SetBody("text/plain", n.Text)
	}
	return s.dialer.DialAndSend(m)
}
