package bootstrap

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hhi-dashboard/api/internal/messaging"
	"github.com/hhi-dashboard/api/internal/services"
	"github.com/hhi-dashboard/api/pkg/config"
	appErr "github.com/hhi-dashboard/api/pkg/errors"
	"github.com/hhi-dashboard/api/pkg/events"
	"github.com/hhi-dashboard/api/pkg/logger"
)

func TestMain(m *testing.M) {
	if _, err := logger.Init("error", "json"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func testConfig() *config.Config {
	return &config.Config{
		EmailProvider:          "resend",
		EmailFrom:              "HHI <projects@example.com>",
		ResendAPIKey:           "re_test",
		SMTPHost:               "smtp.example.com",
		SMTPPort:               587,
		WebhookClientState:     "a-very-secret-client-state",
		WebhookClientStateMode: "hmac",
		GraphBaseURL:           "https://graph.microsoft.com/v1.0",
		TwilioBaseURL:          "https://api.twilio.com/2010-04-01",
		CompanyName:            "HHI",
	}
}

func TestEmailSenderFollowsProvider(t *testing.T) {
	cfg := testConfig()
	assert.IsType(t, &messaging.ResendSender{}, EmailSender(cfg))

	cfg.EmailProvider = "smtp"
	assert.IsType(t, &messaging.SMTPSender{}, EmailSender(cfg))
}

func TestTextSenderWithoutCredentials(t *testing.T) {
	cfg := testConfig()
	_, err := TextSender(cfg).SendText(context.Background(), messaging.ChannelSMS, "+15550100", "hi")
	assert.True(t, appErr.IsCode(err, appErr.CodeUnavailable))

	cfg.TwilioAccountSID = "AC123"
	cfg.TwilioAuthToken = "token"
	assert.IsType(t, &messaging.TwilioSender{}, TextSender(cfg))
}

func TestPublisherDefaultsToNop(t *testing.T) {
	p := Publisher(testConfig())
	require.NoError(t, p.Publish(context.Background(), events.RoutingStageChanged, map[string]string{}))
}

func TestGraphClientRequiresCredentials(t *testing.T) {
	cfg := testConfig()
	assert.Nil(t, GraphClient(context.Background(), cfg))

	cfg.GraphTenantID = "tenant"
	cfg.GraphClientID = "client"
	cfg.GraphClientSecret = "secret"
	assert.NotNil(t, GraphClient(context.Background(), cfg))
}

func TestServicesWithoutGraphReportUnavailable(t *testing.T) {
	cfg := testConfig()
	svc := NewServices(cfg, Deps{
		Enqueuer:  services.NopEnqueuer(),
		Publisher: events.NewNop(),
		Email:     EmailSender(cfg),
		Text:      TextSender(cfg),
	})

	_, err := svc.OneDrive.ProvisionProject(context.Background(), "org_1", uuid.New(), &services.ProvisionInput{DriveID: "d", RootFolderID: "r"})
	assert.True(t, appErr.IsCode(err, appErr.CodeUnavailable))
}
