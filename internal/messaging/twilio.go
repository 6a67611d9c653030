package messaging

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/imroc/req/v3"

	appErr "github.com/hhi-dashboard/api/pkg/errors"
	"github.com/hhi-dashboard/api/pkg/metrics"
)

// TwilioSender sends SMS and WhatsApp messages through the Twilio REST API.
type TwilioSender struct {
	http         *req.Client
	accountSID   string
	fromNumber   string
	whatsAppFrom string
}

type TwilioConfig struct {
	BaseURL      string
	AccountSID   string
	AuthToken    string
	FromNumber   string
	WhatsAppFrom string
	Timeout      time.Duration
}

type twilioMessage struct {
	SID          string `json:"sid"`
	Status       string `json:"status"`
	ErrorCode    *int   `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

type twilioError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

func NewTwilioSender(cfg TwilioConfig) *TwilioSender {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := req.C().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetCommonBasicAuth(cfg.AccountSID, cfg.AuthToken)
	return &TwilioSender{
		http:         c,
		accountSID:   cfg.AccountSID,
		fromNumber:   cfg.FromNumber,
		whatsAppFrom: cfg.WhatsAppFrom,
	}
}

var _ TextSender = (*TwilioSender)(nil)

func whatsAppAddress(number string) string {
	if strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	return "whatsapp:" + number
}

func (s *TwilioSender) SendText(ctx context.Context, channel Channel, to, body string) (string, error) {
	from := s.fromNumber
	switch channel {
	case ChannelSMS:
	case ChannelWhatsApp:
		to = whatsAppAddress(to)
		from = whatsAppAddress(s.whatsAppFrom)
	default:
		return "", appErr.Newf(appErr.CodeInvalid, "channel %q cannot carry text messages", channel)
	}
	if strings.TrimSpace(to) == "" {
		return "", appErr.New(appErr.CodeInvalid, "recipient phone is required")
	}

	start := time.Now()
	var out twilioMessage
	var tErr twilioError
	resp, err := s.http.R().
		SetContext(ctx).
		SetPathParam("sid", s.accountSID).
		SetFormData(map[string]string{"To": to, "From": from, "Body": body}).
		SetSuccessResult(&out).
		SetErrorResult(&tErr).
		Post("/Accounts/{sid}/Messages.json")
	if err == nil && resp.IsErrorState() {
		err = appErr.New(appErr.CodeUnavailable, fmt.Sprintf("twilio %d: %s", tErr.Code, tErr.Message)).WithMeta("status", resp.StatusCode)
	}
	metrics.ObserveProviderCall("twilio", "send_"+string(channel), start, err)
	if err != nil {
		if appErr.CodeOf(err) == appErr.CodeUnknown {
			return "", appErr.Wrap(err, appErr.CodeUnavailable, "twilio send failed")
		}
		return "", err
	}
	return out.SID, nil
}
