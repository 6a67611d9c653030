// Package bootstrap builds the infrastructure shared by the api and worker
// binaries from configuration.
package bootstrap

import (
	"context"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hhi-dashboard/api/internal/messaging"
	"github.com/hhi-dashboard/api/internal/onedrive"
	"github.com/hhi-dashboard/api/internal/repository"
	"github.com/hhi-dashboard/api/internal/services"
	"github.com/hhi-dashboard/api/pkg/config"
	"github.com/hhi-dashboard/api/pkg/events"
	"github.com/hhi-dashboard/api/pkg/logger"
)

func RedisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	}
}

// EmailSender picks the configured email provider.
func EmailSender(cfg *config.Config) messaging.EmailSender {
	switch cfg.EmailProvider {
	case "smtp":
		return messaging.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.EmailFrom)
	default:
		return messaging.NewResendSender(cfg.ResendAPIKey, cfg.EmailFrom)
	}
}

// TextSender returns Twilio when credentials are present.
func TextSender(cfg *config.Config) messaging.TextSender {
	if !cfg.TwilioConfigured() {
		logger.L().Warn("twilio not configured, sms and whatsapp sends will fail")
		return messaging.Unconfigured("twilio")
	}
	return messaging.NewTwilioSender(messaging.TwilioConfig{
		BaseURL:      cfg.TwilioBaseURL,
		AccountSID:   cfg.TwilioAccountSID,
		AuthToken:    cfg.TwilioAuthToken,
		FromNumber:   cfg.TwilioFromNumber,
		WhatsAppFrom: cfg.TwilioWhatsAppFrom,
	})
}

// Publisher connects to AMQP_URL, falling back to a no-op publisher.
func Publisher(cfg *config.Config) events.Publisher {
	if cfg.AMQPURL == "" {
		return events.NewNop()
	}
	p, err := events.NewAMQP(cfg.AMQPURL)
	if err != nil {
		logger.L().Error("amqp unavailable, domain events disabled", zap.Error(err))
		return events.NewNop()
	}
	return p
}

// GraphClient returns nil when OneDrive credentials are missing.
func GraphClient(ctx context.Context, cfg *config.Config) *onedrive.Client {
	if !cfg.GraphConfigured() {
		logger.L().Warn("graph credentials not configured, onedrive lookups disabled")
		return nil
	}
	creds := onedrive.Credentials{
		TenantID:     cfg.GraphTenantID,
		ClientID:     cfg.GraphClientID,
		ClientSecret: cfg.GraphClientSecret,
	}
	return onedrive.NewClient(cfg.GraphBaseURL, creds.TokenSource(ctx), cfg.GraphTimeout)
}

func Validator(cfg *config.Config) *onedrive.Validator {
	return onedrive.NewValidator(cfg.WebhookClientState, onedrive.ClientStateMode(cfg.WebhookClientStateMode))
}

// Services is the wired service layer.
type Services struct {
	Stages        services.StageService
	Notifications services.NotificationService
	Communication services.CommunicationService
	Projects      services.ProjectService
	OneDrive      services.OneDriveService
	Users         services.UserService
}

// Deps carries the infrastructure the service layer is built from.
type Deps struct {
	DB        *gorm.DB
	Graph     *onedrive.Client
	Enqueuer  services.NotificationEnqueuer
	Publisher events.Publisher
	Email     messaging.EmailSender
	Text      messaging.TextSender
}

func NewServices(cfg *config.Config, d Deps) *Services {
	projectRepo := repository.NewProjectRepository(d.DB)
	stageRepo := repository.NewStageRepository(d.DB)
	templateRepo := repository.NewTemplateRepository(d.DB)
	notificationRepo := repository.NewNotificationRepository(d.DB)
	integrationRepo := repository.NewIntegrationRepository(d.DB)
	activityRepo := repository.NewActivityRepository(d.DB)
	userRepo := repository.NewUserRepository(d.DB)

	validator := Validator(cfg)

	// A nil *onedrive.Client must reach the services as a nil interface.
	var drive onedrive.DriveAPI
	var provisioner services.DriveProvisioner
	if d.Graph != nil {
		drive = d.Graph
		provisioner = d.Graph
	}

	return &Services{
		Stages: services.NewStageService(services.StageServiceDeps{
			Validator:       validator,
			Drive:           drive,
			ProjectRepo:     projectRepo,
			StageRepo:       stageRepo,
			IntegrationRepo: integrationRepo,
			ActivityRepo:    activityRepo,
			Enqueuer:        d.Enqueuer,
			Publisher:       d.Publisher,
		}),
		Notifications: services.NewNotificationService(services.NotificationServiceDeps{
			ProjectRepo:      projectRepo,
			StageRepo:        stageRepo,
			TemplateRepo:     templateRepo,
			NotificationRepo: notificationRepo,
			ActivityRepo:     activityRepo,
			Email:            d.Email,
			Enqueuer:         d.Enqueuer,
			Publisher:        d.Publisher,
			CompanyName:      cfg.CompanyName,
		}),
		Communication: services.NewCommunicationService(services.CommunicationServiceDeps{
			ProjectRepo:      projectRepo,
			TemplateRepo:     templateRepo,
			NotificationRepo: notificationRepo,
			Email:            d.Email,
			Text:             d.Text,
			CompanyName:      cfg.CompanyName,
		}),
		Projects: services.NewProjectService(projectRepo, activityRepo, d.Publisher),
		OneDrive: services.NewOneDriveService(provisioner, validator, projectRepo, integrationRepo, cfg.WebhookNotificationURL),
		Users:    services.NewUserService(userRepo),
	}
}
