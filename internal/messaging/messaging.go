// Package messaging delivers rendered customer messages through external providers.
package messaging

import (
	"context"
	"strings"

	appErr "github.com/hhi-dashboard/api/pkg/errors"
)

type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
)

// Channels lists every supported channel in display order.
var Channels = []Channel{ChannelEmail, ChannelSMS, ChannelWhatsApp}

// ParseChannel validates a channel name, ignoring case.
func ParseChannel(s string) (Channel, bool) {
	c := Channel(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case ChannelEmail, ChannelSMS, ChannelWhatsApp:
		return c, true
	}
	return "", false
}

type EmailMessage struct {
	To      string
	Subject string
	HTML    string
	Text    string
	Tags    map[string]string
}

// EmailSender sends one email and returns the provider's message id.
type EmailSender interface {
	SendEmail(ctx context.Context, msg EmailMessage) (string, error)
}

// TextSender sends an SMS or WhatsApp message and returns the provider's message id.
type TextSender interface {
	SendText(ctx context.Context, channel Channel, to, body string) (string, error)
}

type unconfigured struct{ provider string }

// Unconfigured returns a sender that fails every send; used when a provider
// has no credentials.
func Unconfigured(provider string) interface {
	EmailSender
	TextSender
} {
	return unconfigured{provider: provider}
}

func (u unconfigured) SendEmail(context.Context, EmailMessage) (string, error) {
	return "", appErr.New(appErr.CodeUnavailable, u.provider+" is not configured")
}

func (u unconfigured) SendText(context.Context, Channel, string, string) (string, error) {
	return "", appErr.New(appErr.CodeUnavailable, u.provider+" is not configured")
}
