package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/hhi-dashboard/api/internal/services"
	appErr "github.com/hhi-dashboard/api/pkg/errors"
	"github.com/hhi-dashboard/api/pkg/logger"
)

const (
	TypeStageNotification = "notification:stage"
	TypeStageReminder     = "notification:reminder"

	// QueueNotifications carries every customer-facing delivery task.
	QueueNotifications = "notifications"
)

// NotificationPayload is the task payload for stage notifications and reminders.
type NotificationPayload struct {
	ProjectID string `json:"project_id"`
	Stage     int    `json:"stage"`
}

func (p NotificationPayload) parse() (uuid.UUID, error) {
	id, err := uuid.Parse(p.ProjectID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid project id %q: %w", p.ProjectID, asynq.SkipRetry)
	}
	return id, nil
}

// NotificationTaskHandler runs queued notification work through the dispatcher.
type NotificationTaskHandler struct {
	notifications services.NotificationService
}

func NewNotificationTaskHandler(notifications services.NotificationService) *NotificationTaskHandler {
	return &NotificationTaskHandler{notifications: notifications}
}

// Register mounts the handlers on mux.
func (h *NotificationTaskHandler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeStageNotification, h.HandleStageNotification)
	mux.HandleFunc(TypeStageReminder, h.HandleStageReminder)
}

func decode(t *asynq.Task) (NotificationPayload, uuid.UUID, error) {
	var p NotificationPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		logger.L().Error("invalid notification task payload", zap.String("type", t.Type()), zap.Error(err))
		return p, uuid.Nil, fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	id, err := p.parse()
	if err != nil {
		logger.L().Error("invalid project id in task", zap.String("type", t.Type()), zap.Error(err))
		return p, uuid.Nil, err
	}
	return p, id, nil
}

// outcome turns a dispatcher error into a task result. Missing projects and
// bad input are permanent; anything else is retried by asynq.
func outcome(taskType string, projectID uuid.UUID, res *services.SendResult, err error) error {
	log := logger.L().With(zap.String("type", taskType), zap.String("project_id", projectID.String()))
	if err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) || appErr.IsCode(err, appErr.CodeInvalid) {
			log.Warn("notification task dropped", zap.Error(err))
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		log.Error("notification task failed", zap.Error(err))
		return err
	}
	switch {
	case res.Skipped:
		log.Info("notification task skipped")
	case !res.Success:
		// the failed attempt is already in the notification log
		log.Warn("notification delivery failed", zap.String("error", res.Error))
	default:
		log.Info("notification task completed", zap.String("message_id", res.MessageID))
	}
	return nil
}

func (h *NotificationTaskHandler) HandleStageNotification(ctx context.Context, t *asynq.Task) error {
	p, id, err := decode(t)
	if err != nil {
		return err
	}
	logger.L().Info("handling stage notification task", zap.String("project_id", id.String()), zap.Int("stage", p.Stage))
	res, err := h.notifications.SendProjectNotification(ctx, id, p.Stage)
	return outcome(t.Type(), id, res, err)
}

func (h *NotificationTaskHandler) HandleStageReminder(ctx context.Context, t *asynq.Task) error {
	p, id, err := decode(t)
	if err != nil {
		return err
	}
	logger.L().Info("handling stage reminder task", zap.String("project_id", id.String()), zap.Int("stage", p.Stage))
	res, err := h.notifications.SendStageReminder(ctx, id, p.Stage)
	return outcome(t.Type(), id, res, err)
}

// TaskClient is the subset of *asynq.Client used to enqueue work.
type TaskClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Enqueuer puts notification tasks on the asynq queue.
type Enqueuer struct {
	client TaskClient
	now    func() time.Time
}

func NewEnqueuer(client TaskClient) *Enqueuer {
	return &Enqueuer{client: client, now: time.Now}
}

var _ services.NotificationEnqueuer = (*Enqueuer)(nil)

func newNotificationTask(taskType string, projectID uuid.UUID, stage int) (*asynq.Task, error) {
	b, err := json.Marshal(NotificationPayload{ProjectID: projectID.String(), Stage: stage})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, b), nil
}

func (e *Enqueuer) EnqueueStageNotification(ctx context.Context, projectID uuid.UUID, stage int) error {
	task, err := newNotificationTask(TypeStageNotification, projectID, stage)
	if err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "encode task failed")
	}
	info, err := e.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueNotifications),
		asynq.MaxRetry(5),
		asynq.Timeout(time.Minute),
	)
	if err != nil {
		return appErr.Wrap(err, appErr.CodeUnavailable, "enqueue stage notification failed")
	}
	logger.With(ctx).Info("stage notification enqueued", zap.String("task_id", info.ID), zap.String("project_id", projectID.String()), zap.Int("stage", stage))
	return nil
}

// ReminderTaskID identifies the reminder for a project and stage on a given
// day, so repeated scans on the same day enqueue it once.
func ReminderTaskID(projectID uuid.UUID, stage int, day time.Time) string {
	return fmt.Sprintf("reminder:%s:%d:%s", projectID, stage, day.UTC().Format("2006-01-02"))
}

func (e *Enqueuer) EnqueueStageReminder(ctx context.Context, projectID uuid.UUID, stage int) error {
	task, err := newNotificationTask(TypeStageReminder, projectID, stage)
	if err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "encode task failed")
	}
	id := ReminderTaskID(projectID, stage, e.now())
	_, err = e.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueNotifications),
		asynq.TaskID(id),
		asynq.MaxRetry(3),
		asynq.Timeout(time.Minute),
		asynq.Retention(24*time.Hour),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		logger.With(ctx).Debug("reminder already queued", zap.String("task_id", id))
		return nil
	}
	if err != nil {
		return appErr.Wrap(err, appErr.CodeUnavailable, "enqueue stage reminder failed")
	}
	logger.With(ctx).Info("stage reminder enqueued", zap.String("task_id", id))
	return nil
}
