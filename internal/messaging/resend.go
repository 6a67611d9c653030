package messaging

import (
	"context"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"

	appErr "github.com/hhi-dashboard/api/pkg/errors"
	"github.com/hhi-dashboard/api/pkg/metrics"
)

// ResendSender delivers email through the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
}

func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{client: resend.NewClient(apiKey), from: from}
}

var _ EmailSender = (*ResendSender)(nil)

func (s *ResendSender) SendEmail(ctx context.Context, msg EmailMessage) (string, error) {
	start := time.Now()
	req := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	}
	for _, name := range slices.Sorted(maps.Keys(msg.Tags)) {
		req.Tags = append(req.Tags, resend.Tag{Name: tagSafe(name), Value: tagSafe(msg.Tags[name])})
	}
	sent, err := s.client.Emails.SendWithContext(ctx, req)
	metrics.ObserveProviderCall("resend", "send_email", start, err)
	if err != nil {
		return "", appErr.Wrap(err, appErr.CodeUnavailable, "resend send failed")
	}
	return sent.Id, nil
}

// maxTagLength is the longest tag name or value Resend accepts.
const maxTagLength = 256

// tagSafe maps s onto the ASCII letters, digits, underscores and dashes that
// Resend allows in tags.
func tagSafe(s string) string {
	out := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		}
		return '_'
	}, s)
	if len(out) > maxTagLength {
		out = out[:maxTagLength]
	}
	return out
}
