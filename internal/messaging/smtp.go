package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"

	appErr "github.com/hhi-dashboard/api/pkg/errors"
	"github.com/hhi-dashboard/api/pkg/metrics"
)

// SMTPSender delivers email through an SMTP relay.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
	domain string
}

func NewSMTPSender(host string, port int, user, password, from string) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(host, port, user, password),
		from:   from,
		domain: host,
	}
}

var _ EmailSender = (*SMTPSender)(nil)

// BuildMessage assembles the MIME message and returns it with its Message-ID.
func (s *SMTPSender) BuildMessage(msg EmailMessage) (*gomail.Message, string) {
	id := fmt.Sprintf("<%s@%s>", uuid.NewString(), s.domain)
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetHeader("Message-ID", id)
	switch {
	case msg.Text != "" && msg.HTML != "":
		m.SetBody("text/plain", msg.Text)
		m.AddAlternative("text/html", msg.HTML)
	case msg.HTML != "":
		m.SetBody("text/html", msg.HTML)
	default:
		m.SetBody("text/plain", msg.Text)
	}
	return m, id
}

// SendEmail dials the relay for every message; no connection is kept open
// between sends.
func (s *SMTPSender) SendEmail(ctx context.Context, msg EmailMessage) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	start := time.Now()
	m, id := s.BuildMessage(msg)
	err := s.dialer.DialAndSend(m)
	metrics.ObserveProviderCall("smtp", "send_email", start, err)
	if err != nil {
		return "", appErr.Wrap(err, appErr.CodeUnavailable, "smtp send failed")
	}
	return id, nil
}
