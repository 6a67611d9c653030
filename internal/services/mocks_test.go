package services

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/hhi-dashboard/api/internal/messaging"
	"github.com/hhi-dashboard/api/internal/models"
	"github.com/hhi-dashboard/api/internal/onedrive"
	"github.com/hhi-dashboard/api/internal/repository"
	"github.com/hhi-dashboard/api/pkg/logger"
)

func TestMain(m *testing.M) {
	// Initialize logger for tests (required by services)
	if _, err := logger.Init("error", "json"); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	os.Exit(m.Run())
}

type mockProjectRepo struct{ mock.Mock }

func (m *mockProjectRepo) Create(ctx context.Context, obj *models.Project) error {
	return m.Called(ctx, obj).Error(0)
}

func (m *mockProjectRepo) GetByID(ctx context.Context, id any, dest *models.Project) error {
	return m.Called(ctx, id, dest).Error(0)
}

func (m *mockProjectRepo) Update(ctx context.Context, obj *models.Project) error {
	return m.Called(ctx, obj).Error(0)
}

func (m *mockProjectRepo) Delete(ctx context.Context, id any) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockProjectRepo) GetInOrg(ctx context.Context, orgID string, id uuid.UUID) (*models.Project, error) {
	args := m.Called(ctx, orgID, id)
	if v := args.Get(0); v != nil {
		return v.(*models.Project), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProjectRepo) List(ctx context.Context, orgID string, f repository.ProjectFilter) ([]models.Project, int64, error) {
	args := m.Called(ctx, orgID, f)
	if v := args.Get(0); v != nil {
		return v.([]models.Project), args.Get(1).(int64), args.Error(2)
	}
	return nil, 0, args.Error(2)
}

func (m *mockProjectRepo) FindActiveByClient(ctx context.Context, orgID, clientName, serviceType string) (*models.Project, error) {
	args := m.Called(ctx, orgID, clientName, serviceType)
	if v := args.Get(0); v != nil {
		return v.(*models.Project), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProjectRepo) UpdateStage(ctx context.Context, id uuid.UUID, stage int, at time.Time, milestoneColumn string) error {
	return m.Called(ctx, id, stage, at, milestoneColumn).Error(0)
}

func (m *mockProjectRepo) AdvanceStage(ctx context.Context, id uuid.UUID, stage int, at time.Time, milestoneColumn string) (bool, error) {
	args := m.Called(ctx, id, stage, at, milestoneColumn)
	return args.Bool(0), args.Error(1)
}

func (m *mockProjectRepo) UpdateFields(ctx context.Context, orgID string, id uuid.UUID, fields map[string]any) error {
	return m.Called(ctx, orgID, id, fields).Error(0)
}

func (m *mockProjectRepo) Deactivate(ctx context.Context, orgID string, id uuid.UUID) error {
	return m.Called(ctx, orgID, id).Error(0)
}

func (m *mockProjectRepo) ListDueForReminder(ctx context.Context, stage int, enteredBefore time.Time) ([]models.Project, error) {
	args := m.Called(ctx, stage, enteredBefore)
	if v := args.Get(0); v != nil {
		return v.([]models.Project), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockStageRepo struct{ mock.Mock }

func (m *mockStageRepo) List(ctx context.Context) ([]models.StageDefinition, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.([]models.StageDefinition), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStageRepo) Get(ctx context.Context, stage int) (*models.StageDefinition, error) {
	args := m.Called(ctx, stage)
	if v := args.Get(0); v != nil {
		return v.(*models.StageDefinition), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStageRepo) Update(ctx context.Context, def *models.StageDefinition) error {
	return m.Called(ctx, def).Error(0)
}

func (m *mockStageRepo) Seed(ctx context.Context, defs []models.StageDefinition) error {
	return m.Called(ctx, defs).Error(0)
}

type mockTemplateRepo struct{ mock.Mock }

func (m *mockTemplateRepo) ListEmail(ctx context.Context, orgID string) ([]models.EmailTemplate, error) {
	args := m.Called(ctx, orgID)
	if v := args.Get(0); v != nil {
		return v.([]models.EmailTemplate), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTemplateRepo) GetEmail(ctx context.Context, orgID string, id uuid.UUID) (*models.EmailTemplate, error) {
	args := m.Called(ctx, orgID, id)
	if v := args.Get(0); v != nil {
		return v.(*models.EmailTemplate), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTemplateRepo) FindDefaultEmail(ctx context.Context, orgID string, stage int) (*models.EmailTemplate, error) {
	args := m.Called(ctx, orgID, stage)
	if v := args.Get(0); v != nil {
		return v.(*models.EmailTemplate), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTemplateRepo) CreateEmail(ctx context.Context, t *models.EmailTemplate) error {
	return m.Called(ctx, t).Error(0)
}

func (m *mockTemplateRepo) UpdateEmail(ctx context.Context, t *models.EmailTemplate) error {
	return m.Called(ctx, t).Error(0)
}

func (m *mockTemplateRepo) ListMessages(ctx context.Context, orgID, channel string) ([]models.MessageTemplate, error) {
	args := m.Called(ctx, orgID, channel)
	if v := args.Get(0); v != nil {
		return v.([]models.MessageTemplate), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTemplateRepo) GetMessage(ctx context.Context, orgID string, id uuid.UUID) (*models.MessageTemplate, error) {
	args := m.Called(ctx, orgID, id)
	if v := args.Get(0); v != nil {
		return v.(*models.MessageTemplate), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockNotificationRepo struct{ mock.Mock }

func (m *mockNotificationRepo) Create(ctx context.Context, obj *models.Notification) error {
	return m.Called(ctx, obj).Error(0)
}

func (m *mockNotificationRepo) GetByID(ctx context.Context, id any, dest *models.Notification) error {
	return m.Called(ctx, id, dest).Error(0)
}

func (m *mockNotificationRepo) Update(ctx context.Context, obj *models.Notification) error {
	return m.Called(ctx, obj).Error(0)
}

func (m *mockNotificationRepo) Delete(ctx context.Context, id any) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockNotificationRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Notification, error) {
	args := m.Called(ctx, projectID)
	if v := args.Get(0); v != nil {
		return v.([]models.Notification), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockNotificationRepo) Transition(ctx context.Context, id uuid.UUID, change repository.StatusChange) error {
	return m.Called(ctx, id, change).Error(0)
}

type mockIntegrationRepo struct{ mock.Mock }

func (m *mockIntegrationRepo) Upsert(ctx context.Context, in *models.OneDriveIntegration) error {
	return m.Called(ctx, in).Error(0)
}

func (m *mockIntegrationRepo) FindByFolder(ctx context.Context, driveID, folderItemID string) (*models.OneDriveIntegration, error) {
	args := m.Called(ctx, driveID, folderItemID)
	if v := args.Get(0); v != nil {
		return v.(*models.OneDriveIntegration), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockIntegrationRepo) FindByProject(ctx context.Context, projectID uuid.UUID) (*models.OneDriveIntegration, error) {
	args := m.Called(ctx, projectID)
	if v := args.Get(0); v != nil {
		return v.(*models.OneDriveIntegration), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockIntegrationRepo) FindSubscribedByDrive(ctx context.Context, driveID string) (*models.OneDriveIntegration, error) {
	args := m.Called(ctx, driveID)
	if v := args.Get(0); v != nil {
		return v.(*models.OneDriveIntegration), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockIntegrationRepo) OrganizationsOnDrive(ctx context.Context, driveID string) ([]string, error) {
	args := m.Called(ctx, driveID)
	if v := args.Get(0); v != nil {
		return v.([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockIntegrationRepo) ListExpiring(ctx context.Context, before time.Time) ([]models.OneDriveIntegration, error) {
	args := m.Called(ctx, before)
	if v := args.Get(0); v != nil {
		return v.([]models.OneDriveIntegration), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockIntegrationRepo) SetSubscription(ctx context.Context, oldID, newID string, expiresAt time.Time) error {
	return m.Called(ctx, oldID, newID, expiresAt).Error(0)
}

type mockActivityRepo struct{ mock.Mock }

func (m *mockActivityRepo) Create(ctx context.Context, a *models.ProjectActivity) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockActivityRepo) ListByProject(ctx context.Context, orgID string, projectID uuid.UUID, limit int) ([]models.ProjectActivity, error) {
	args := m.Called(ctx, orgID, projectID, limit)
	if v := args.Get(0); v != nil {
		return v.([]models.ProjectActivity), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockUserRepo struct{ mock.Mock }

func (m *mockUserRepo) Create(ctx context.Context, obj *models.User) error {
	return m.Called(ctx, obj).Error(0)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id any, dest *models.User) error {
	return m.Called(ctx, id, dest).Error(0)
}

func (m *mockUserRepo) Update(ctx context.Context, obj *models.User) error {
	return m.Called(ctx, obj).Error(0)
}

func (m *mockUserRepo) Delete(ctx context.Context, id any) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockUserRepo) GetByExternalID(ctx context.Context, externalID string, dest *models.User) error {
	return m.Called(ctx, externalID, dest).Error(0)
}

func (m *mockUserRepo) ListByOrg(ctx context.Context, orgID string) ([]models.User, error) {
	args := m.Called(ctx, orgID)
	if v := args.Get(0); v != nil {
		return v.([]models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) UpdateRole(ctx context.Context, orgID string, id uuid.UUID, role models.Role) error {
	return m.Called(ctx, orgID, id, role).Error(0)
}

func (m *mockUserRepo) GetPreferences(ctx context.Context, userID uuid.UUID) (*models.UserPreference, error) {
	args := m.Called(ctx, userID)
	if v := args.Get(0); v != nil {
		return v.(*models.UserPreference), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) SavePreferences(ctx context.Context, p *models.UserPreference) error {
	return m.Called(ctx, p).Error(0)
}

type mockDrive struct{ mock.Mock }

func (m *mockDrive) GetItem(ctx context.Context, driveID, itemID string) (*onedrive.DriveItem, error) {
	args := m.Called(ctx, driveID, itemID)
	if v := args.Get(0); v != nil {
		return v.(*onedrive.DriveItem), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDrive) EnsureProjectFolders(ctx context.Context, driveID, rootID, projectFolder string, stageFolders []string) (*onedrive.DriveItem, error) {
	args := m.Called(ctx, driveID, rootID, projectFolder, stageFolders)
	if v := args.Get(0); v != nil {
		return v.(*onedrive.DriveItem), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDrive) CreateSubscription(ctx context.Context, sub onedrive.Subscription) (*onedrive.Subscription, error) {
	args := m.Called(ctx, sub)
	if v := args.Get(0); v != nil {
		return v.(*onedrive.Subscription), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDrive) RenewSubscription(ctx context.Context, id string, expires time.Time) (*onedrive.Subscription, error) {
	args := m.Called(ctx, id, expires)
	if v := args.Get(0); v != nil {
		return v.(*onedrive.Subscription), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockEmailSender struct{ mock.Mock }

func (m *mockEmailSender) SendEmail(ctx context.Context, msg messaging.EmailMessage) (string, error) {
	args := m.Called(ctx, msg)
	return args.String(0), args.Error(1)
}

type mockTextSender struct{ mock.Mock }

func (m *mockTextSender) SendText(ctx context.Context, channel messaging.Channel, to, body string) (string, error) {
	args := m.Called(ctx, channel, to, body)
	return args.String(0), args.Error(1)
}

type mockEnqueuer struct{ mock.Mock }

func (m *mockEnqueuer) EnqueueStageNotification(ctx context.Context, projectID uuid.UUID, stage int) error {
	return m.Called(ctx, projectID, stage).Error(0)
}

func (m *mockEnqueuer) EnqueueStageReminder(ctx context.Context, projectID uuid.UUID, stage int) error {
	return m.Called(ctx, projectID, stage).Error(0)
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	return m.Called(ctx, routingKey, payload).Error(0)
}

func (m *mockPublisher) Close() error { return nil }
