package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/hhi-dashboard/api/internal/models"
	"github.com/hhi-dashboard/api/internal/onedrive"
	"github.com/hhi-dashboard/api/internal/repository"
	"github.com/hhi-dashboard/api/internal/stages"
	appErr "github.com/hhi-dashboard/api/pkg/errors"
	"github.com/hhi-dashboard/api/pkg/logger"
)

// SubscriptionLifetime is how long a new or renewed drive subscription lasts.
// Graph caps driveItem subscriptions just under 30 days.
const SubscriptionLifetime = 29 * 24 * time.Hour

// DriveProvisioner is the subset of Graph used to set up project folders.
type DriveProvisioner interface {
	EnsureProjectFolders(ctx context.Context, driveID, rootID, projectFolder string, stageFolders []string) (*onedrive.DriveItem, error)
	CreateSubscription(ctx context.Context, sub onedrive.Subscription) (*onedrive.Subscription, error)
	RenewSubscription(ctx context.Context, id string, expires time.Time) (*onedrive.Subscription, error)
}

type ProvisionInput struct {
	DriveID      string
	RootFolderID string
}

// OneDriveService links projects to OneDrive folders and keeps the change
// subscriptions alive.
type OneDriveService interface {
	ProvisionProject(ctx context.Context, orgID string, projectID uuid.UUID, input *ProvisionInput) (*models.OneDriveIntegration, error)
	GetIntegration(ctx context.Context, orgID string, projectID uuid.UUID) (*models.OneDriveIntegration, error)
	// RenewExpiring renews subscriptions expiring within window and returns
	// how many were renewed or replaced.
	RenewExpiring(ctx context.Context, window time.Duration) (int, error)
}

type oneDriveService struct {
	drive           DriveProvisioner
	validator       *onedrive.Validator
	projectRepo     repository.ProjectRepository
	integrationRepo repository.IntegrationRepository
	notificationURL string
	now             func() time.Time
}

func NewOneDriveService(drive DriveProvisioner, validator *onedrive.Validator, projectRepo repository.ProjectRepository, integrationRepo repository.IntegrationRepository, notificationURL string) OneDriveService {
	return &oneDriveService{
		drive:           drive,
		validator:       validator,
		projectRepo:     projectRepo,
		integrationRepo: integrationRepo,
		notificationURL: notificationURL,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

var _ OneDriveService = (*oneDriveService)(nil)

// ProjectFolderName names a project's client folder the same way files are
// named, so the file-name fallback resolves to the same project.
func ProjectFolderName(p *models.Project) string {
	parts := strings.Fields(p.ClientName)
	if p.ServiceType != "" {
		parts = append(parts, strings.ToUpper(p.ServiceType[:1])+p.ServiceType[1:])
	}
	return strings.Join(parts, "_")
}

func driveResource(driveID string) string {
	return fmt.Sprintf("/drives/%s/root", driveID)
}

func (s *oneDriveService) ProvisionProject(ctx context.Context, orgID string, projectID uuid.UUID, input *ProvisionInput) (*models.OneDriveIntegration, error) {
	if s.drive == nil {
		return nil, appErr.New(appErr.CodeUnavailable, "onedrive is not configured")
	}
	if strings.TrimSpace(input.DriveID) == "" || strings.TrimSpace(input.RootFolderID) == "" {
		return nil, appErr.New(appErr.CodeInvalid, "drive_id and root_folder_id are required")
	}
	p, err := s.projectRepo.GetInOrg(ctx, orgID, projectID)
	if err != nil {
		return nil, err
	}
	log := logger.With(ctx).With(zap.String("project_id", p.ID.String()), zap.String("drive_id", input.DriveID))

	stageFolders := lo.Map(stages.All(), func(st stages.Stage, _ int) string { return st.Folder })
	name := ProjectFolderName(p)
	folder, err := s.drive.EnsureProjectFolders(ctx, input.DriveID, input.RootFolderID, name, stageFolders)
	if err != nil {
		return nil, err
	}

	in := &models.OneDriveIntegration{
		OrganizationID: orgID,
		ProjectID:      p.ID,
		DriveID:        input.DriveID,
		FolderItemID:   folder.ID,
		FolderPath:     strings.TrimPrefix(folder.ParentReference.Path+"/"+name, "/drive/root:"),
		UpdatedAt:      s.now(),
	}
	if err := s.attachSubscription(ctx, in); err != nil {
		return nil, err
	}
	if err := s.integrationRepo.Upsert(ctx, in); err != nil {
		return nil, err
	}
	log.Info("project folders provisioned", zap.String("folder_item_id", folder.ID), zap.String("subscription_id", in.SubscriptionID))
	return in, nil
}

// attachSubscription reuses the drive's live subscription or creates one.
func (s *oneDriveService) attachSubscription(ctx context.Context, in *models.OneDriveIntegration) error {
	if s.notificationURL == "" {
		logger.With(ctx).Warn("webhook notification url not configured, skipping subscription")
		return nil
	}
	existing, err := s.integrationRepo.FindSubscribedByDrive(ctx, in.DriveID)
	if err == nil && existing.SubscriptionExpiresAt != nil && existing.SubscriptionExpiresAt.After(s.now()) {
		in.SubscriptionID = existing.SubscriptionID
		in.SubscriptionExpiresAt = existing.SubscriptionExpiresAt
		return nil
	}
	if err != nil && !appErr.IsCode(err, appErr.CodeNotFound) {
		return err
	}
	sub, err := s.createSubscription(ctx, in.DriveID)
	if err != nil {
		return err
	}
	in.SubscriptionID = sub.ID
	in.SubscriptionExpiresAt = lo.ToPtr(sub.ExpirationDateTime)
	return nil
}

func (s *oneDriveService) createSubscription(ctx context.Context, driveID string) (*onedrive.Subscription, error) {
	return s.drive.CreateSubscription(ctx, onedrive.Subscription{
		ChangeType:         onedrive.ChangeTypeUpdated,
		NotificationURL:    s.notificationURL,
		Resource:           driveResource(driveID),
		ExpirationDateTime: s.now().Add(SubscriptionLifetime),
		ClientState:        s.validator.IssueClientState(),
	})
}

func (s *oneDriveService) GetIntegration(ctx context.Context, orgID string, projectID uuid.UUID) (*models.OneDriveIntegration, error) {
	in, err := s.integrationRepo.FindByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if in.OrganizationID != orgID {
		return nil, appErr.New(appErr.CodeNotFound, "integration not found")
	}
	return in, nil
}

func (s *oneDriveService) RenewExpiring(ctx context.Context, window time.Duration) (int, error) {
	if s.drive == nil {
		return 0, nil
	}
	now := s.now()
	expiring, err := s.integrationRepo.ListExpiring(ctx, now.Add(window))
	if err != nil {
		return 0, err
	}
	renewed := 0
	for _, in := range lo.UniqBy(expiring, func(in models.OneDriveIntegration) string { return in.SubscriptionID }) {
		log := logger.With(ctx).With(zap.String("subscription_id", in.SubscriptionID), zap.String("drive_id", in.DriveID))
		newID := in.SubscriptionID
		expires := now.Add(SubscriptionLifetime)

		sub, err := s.drive.RenewSubscription(ctx, in.SubscriptionID, expires)
		switch {
		case err == nil:
			if !sub.ExpirationDateTime.IsZero() {
				expires = sub.ExpirationDateTime
			}
		case appErr.IsCode(err, appErr.CodeNotFound):
			// Expired subscriptions cannot be renewed, only replaced.
			created, err := s.createSubscription(ctx, in.DriveID)
			if err != nil {
				log.Error("replace subscription failed", zap.Error(err))
				continue
			}
			newID, expires = created.ID, created.ExpirationDateTime
		default:
			log.Error("renew subscription failed", zap.Error(err))
			continue
		}

		if err := s.integrationRepo.SetSubscription(ctx, in.SubscriptionID, newID, expires); err != nil {
			log.Error("store renewed subscription failed", zap.Error(err))
			continue
		}
		renewed++
		log.Info("subscription renewed", zap.String("new_subscription_id", newID), zap.Time("expires_at", expires))
	}
	return renewed, nil
}
