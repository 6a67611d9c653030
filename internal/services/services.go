package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/hhi-dashboard/api/internal/models"
	"github.com/hhi-dashboard/api/internal/repository"
	"github.com/hhi-dashboard/api/internal/stages"
	"github.com/hhi-dashboard/api/internal/templates"
	"github.com/hhi-dashboard/api/pkg/logger"
)

// ActorWebhook is recorded on activities caused by OneDrive file moves.
const ActorWebhook = "onedrive-webhook"

// ActorSystem is recorded on activities caused by background jobs.
const ActorSystem = "system"

// NotificationEnqueuer schedules notification work on the background queue.
type NotificationEnqueuer interface {
	EnqueueStageNotification(ctx context.Context, projectID uuid.UUID, stage int) error
	EnqueueStageReminder(ctx context.Context, projectID uuid.UUID, stage int) error
}

type nopEnqueuer struct{}

// NopEnqueuer drops every task; used when no queue is configured.
func NopEnqueuer() NotificationEnqueuer { return nopEnqueuer{} }

func (nopEnqueuer) EnqueueStageNotification(ctx context.Context, projectID uuid.UUID, stage int) error {
	logger.With(ctx).Warn("queue not configured, dropping stage notification",
		zap.String("project_id", projectID.String()), zap.Int("stage", stage))
	return nil
}

func (nopEnqueuer) EnqueueStageReminder(ctx context.Context, projectID uuid.UUID, stage int) error {
	logger.With(ctx).Warn("queue not configured, dropping stage reminder",
		zap.String("project_id", projectID.String()), zap.Int("stage", stage))
	return nil
}

// ProjectVariables returns the placeholder values describing p at stage.
func ProjectVariables(p *models.Project, stage int, companyName string) templates.Variables {
	firstName := p.ClientName
	if fields := strings.Fields(p.ClientName); len(fields) > 0 {
		firstName = fields[0]
	}
	return templates.Variables{
		"clientName":    p.ClientName,
		"firstName":     firstName,
		"clientEmail":   p.ClientEmail,
		"clientPhone":   p.ClientPhone,
		"clientAddress": p.ClientAddress,
		"serviceType":   p.ServiceType,
		"projectValue":  fmt.Sprintf("%.2f", p.ProjectValue),
		"projectId":     p.ID.String(),
		"stageId":       fmt.Sprintf("%d", stage),
		"stageName":     stages.NameForStage(stage),
		"companyName":   companyName,
	}
}

func intPtr(v int) *int { return &v }

// recordActivity appends to the project timeline. Failures are logged only;
// the timeline never blocks the operation that produced it.
func recordActivity(ctx context.Context, repo repository.ActivityRepository, a *models.ProjectActivity, meta map[string]any) {
	if len(meta) > 0 {
		if b, err := json.Marshal(meta); err == nil {
			a.Meta = datatypes.JSON(b)
		}
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if err := repo.Create(ctx, a); err != nil {
		logger.With(ctx).Error("record activity failed",
			zap.String("project_id", a.ProjectID.String()),
			zap.String("kind", string(a.Kind)),
			zap.Error(err))
	}
}
