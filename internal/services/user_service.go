package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hhi-dashboard/api/internal/models"
	"github.com/hhi-dashboard/api/internal/permissions"
	"github.com/hhi-dashboard/api/internal/repository"
	appErr "github.com/hhi-dashboard/api/pkg/errors"
	"github.com/hhi-dashboard/api/pkg/logger"
)

// Identity is the authenticated caller as asserted by the identity provider.
type Identity struct {
	Subject string
	OrgID   string
	Role    models.Role
	Email   string
	Name    string
}

type PreferencesInput struct {
	EmailNotifications    *bool
	SMSNotifications      *bool
	WhatsAppNotifications *bool
	Timezone              *string
}

type UserService interface {
	// CurrentUser returns the local record of id, creating it on first sight.
	CurrentUser(ctx context.Context, id Identity) (*models.User, error)
	ListUsers(ctx context.Context, orgID string) ([]models.User, error)
	UpdateRole(ctx context.Context, orgID string, userID uuid.UUID, role models.Role) error
	GetPreferences(ctx context.Context, user *models.User) (*models.UserPreference, error)
	UpdatePreferences(ctx context.Context, user *models.User, input *PreferencesInput) (*models.UserPreference, error)
}

type userService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

var _ UserService = (*userService)(nil)

func (s *userService) CurrentUser(ctx context.Context, id Identity) (*models.User, error) {
	var u models.User
	err := s.userRepo.GetByExternalID(ctx, id.Subject, &u)
	if err == nil {
		return &u, nil
	}
	if !appErr.IsCode(err, appErr.CodeNotFound) {
		return nil, err
	}

	role := id.Role
	if !permissions.ValidRole(role) {
		role = models.RoleViewer
	}
	u = models.User{
		ExternalID:     id.Subject,
		OrganizationID: id.OrgID,
		Email:          id.Email,
		Name:           id.Name,
		Role:           role,
		IsActive:       true,
	}
	if err := s.userRepo.Create(ctx, &u); err != nil {
		if appErr.IsCode(err, appErr.CodeAlreadyExists) {
			// created concurrently by another request
			if err := s.userRepo.GetByExternalID(ctx, id.Subject, &u); err != nil {
				return nil, err
			}
			return &u, nil
		}
		return nil, err
	}
	logger.With(ctx).Info("user registered", zap.String("user_id", u.ID.String()), zap.String("organization_id", id.OrgID))
	return &u, nil
}

func (s *userService) ListUsers(ctx context.Context, orgID string) ([]models.User, error) {
	return s.userRepo.ListByOrg(ctx, orgID)
}

func (s *userService) UpdateRole(ctx context.Context, orgID string, userID uuid.UUID, role models.Role) error {
	if !permissions.ValidRole(role) {
		return appErr.Newf(appErr.CodeInvalid, "unknown role %q", role)
	}
	if err := s.userRepo.UpdateRole(ctx, orgID, userID, role); err != nil {
		return err
	}
	logger.With(ctx).Info("user role updated", zap.String("user_id", userID.String()), zap.String("role", string(role)))
	return nil
}

func defaultPreferences(u *models.User) *models.UserPreference {
	return &models.UserPreference{
		UserID:             u.ID,
		OrganizationID:     u.OrganizationID,
		EmailNotifications: true,
		Timezone:           "UTC",
	}
}

func (s *userService) GetPreferences(ctx context.Context, user *models.User) (*models.UserPreference, error) {
	p, err := s.userRepo.GetPreferences(ctx, user.ID)
	if err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return defaultPreferences(user), nil
		}
		return nil, err
	}
	return p, nil
}

func (s *userService) UpdatePreferences(ctx context.Context, user *models.User, input *PreferencesInput) (*models.UserPreference, error) {
	p, err := s.GetPreferences(ctx, user)
	if err != nil {
		return nil, err
	}
	if input.EmailNotifications != nil {
		p.EmailNotifications = *input.EmailNotifications
	}
	if input.SMSNotifications != nil {
		p.SMSNotifications = *input.SMSNotifications
	}
	if input.WhatsAppNotifications != nil {
		p.WhatsAppNotifications = *input.WhatsAppNotifications
	}
	if input.Timezone != nil {
		tz := strings.TrimSpace(*input.Timezone)
		if _, err := time.LoadLocation(tz); err != nil || tz == "" {
			return nil, appErr.Newf(appErr.CodeInvalid, "unknown timezone %q", tz)
		}
		p.Timezone = tz
	}
	p.UpdatedAt = time.Now().UTC()
	if err := s.userRepo.SavePreferences(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
