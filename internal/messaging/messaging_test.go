package messaging

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErr "github.com/hhi-dashboard/api/pkg/errors"
)

func TestParseChannel(t *testing.T) {
	c, ok := ParseChannel(" WhatsApp ")
	assert.True(t, ok)
	assert.Equal(t, ChannelWhatsApp, c)

	_, ok = ParseChannel("fax")
	assert.False(t, ok)
}

func TestUnconfiguredSenderFails(t *testing.T) {
	s := Unconfigured("twilio")
	_, err := s.SendText(context.Background(), ChannelSMS, "+15550001", "hi")
	assert.True(t, appErr.IsCode(err, appErr.CodeUnavailable))
	_, err = s.SendEmail(context.Background(), EmailMessage{To: "a@example.com"})
	assert.True(t, appErr.IsCode(err, appErr.CodeUnavailable))
}

func newTwilioServer(t *testing.T, status int, response string, seen *url.Values) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/Accounts/AC123/Messages.json", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AC123", user)
		assert.Equal(t, "token", pass)
		assert.NoError(t, r.ParseForm())
		*seen = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestTwilio(baseURL string) *TwilioSender {
	return NewTwilioSender(TwilioConfig{
		BaseURL:      baseURL,
		AccountSID:   "AC123",
		AuthToken:    "token",
		FromNumber:   "+15550000",
		WhatsAppFrom: "+15559999",
	})
}

func TestTwilioSendSMS(t *testing.T) {
	var form url.Values
	srv := newTwilioServer(t, http.StatusCreated, `{"sid":"SM42","status":"queued"}`, &form)

	sid, err := newTestTwilio(srv.URL).SendText(context.Background(), ChannelSMS, "+15551234", "Your quote is ready")
	require.NoError(t, err)
	assert.Equal(t, "SM42", sid)
	assert.Equal(t, "+15551234", form.Get("To"))
	assert.Equal(t, "+15550000", form.Get("From"))
	assert.Equal(t, "Your quote is ready", form.Get("Body"))
}

func TestTwilioSendWhatsAppPrefixesAddresses(t *testing.T) {
	var form url.Values
	srv := newTwilioServer(t, http.StatusCreated, `{"sid":"SM43"}`, &form)

	_, err := newTestTwilio(srv.URL).SendText(context.Background(), ChannelWhatsApp, "+15551234", "hello")
	require.NoError(t, err)
	assert.Equal(t, "whatsapp:+15551234", form.Get("To"))
	assert.Equal(t, "whatsapp:+15559999", form.Get("From"))
}

func TestTwilioErrorIsUnavailable(t *testing.T) {
	var form url.Values
	srv := newTwilioServer(t, http.StatusBadRequest, `{"code":21211,"message":"Invalid 'To' Phone Number","status":400}`, &form)

	_, err := newTestTwilio(srv.URL).SendText(context.Background(), ChannelSMS, "123", "x")
	require.Error(t, err)
	assert.True(t, appErr.IsCode(err, appErr.CodeUnavailable))
	assert.Contains(t, appErr.MessageOf(err), "Invalid 'To' Phone Number")
}

func TestTwilioRejectsEmailChannel(t *testing.T) {
	_, err := newTestTwilio("http://127.0.0.1:1").SendText(context.Background(), ChannelEmail, "+1555", "x")
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalid))
}

func TestSMTPBuildMessage(t *testing.T) {
	s := NewSMTPSender("smtp.example.com", 587, "u", "p", "HHI <projects@example.com>")

	m, id := s.BuildMessage(EmailMessage{To: "sarah@example.com", Subject: "Update", HTML: "<p>hi</p>", Text: "hi"})
	assert.True(t, strings.HasPrefix(id, "<"))
	assert.True(t, strings.HasSuffix(id, "@smtp.example.com>"))
	assert.Equal(t, []string{id}, m.GetHeader("Message-ID"))
	assert.Equal(t, []string{"sarah@example.com"}, m.GetHeader("To"))
	assert.Equal(t, []string{"Update"}, m.GetHeader("Subject"))

	_, other := s.BuildMessage(EmailMessage{To: "sarah@example.com"})
	assert.NotEqual(t, id, other)
}

func TestSMTPSendHonoursCancelledContext(t *testing.T) {
	s := NewSMTPSender("127.0.0.1", 1, "", "", "a@example.com")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.SendEmail(ctx, EmailMessage{To: "b@example.com"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResendSendEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "HHI <projects@example.com>", body["from"])
		assert.Equal(t, "Quote ready", body["subject"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"re_msg_1"}`))
	}))
	defer srv.Close()

	s := NewResendSender("re_test", "HHI <projects@example.com>")
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	s.client.BaseURL = base

	id, err := s.SendEmail(context.Background(), EmailMessage{
		To:      "sarah@example.com",
		Subject: "Quote ready",
		HTML:    "<p>hi</p>",
		Tags:    map[string]string{"stage": "4"},
	})
	require.NoError(t, err)
	assert.Equal(t, "re_msg_1", id)
}

func TestResendSendEmailSanitizesTags(t *testing.T) {
	var tags []map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Tags []map[string]string `json:"tags"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		tags = body.Tags
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"re_msg_2"}`))
	}))
	defer srv.Close()

	s := NewResendSender("re_test", "HHI <projects@example.com>")
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	s.client.BaseURL = base

	_, err = s.SendEmail(context.Background(), EmailMessage{
		To:      "sarah@example.com",
		Subject: "Update",
		Text:    "hi",
		Tags: map[string]string{
			"customer_id": "cust 42@x",
			"kind":        "manual:" + strings.Repeat("a", 300),
		},
	})
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, map[string]string{"name": "customer_id", "value": "cust_42_x"}, tags[0])
	assert.Equal(t, "kind", tags[1]["name"])
	assert.Len(t, tags[1]["value"], 256)
	assert.True(t, strings.HasPrefix(tags[1]["value"], "manual_aaa"))
}

func TestTagSafe(t *testing.T) {
	assert.Equal(t, "Sarah_Johnson-2024", tagSafe("Sarah_Johnson-2024"))
	assert.Equal(t, "a_b_c_d", tagSafe("a b:c.d"))
	assert.Equal(t, "caf_", tagSafe("café"))
	assert.Equal(t, "", tagSafe(""))
}
