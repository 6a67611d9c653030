package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/hhi-dashboard/api/pkg/logger"
)

const (
	Exchange = "hhi.events"

	RoutingStageChanged    = "project.stage_changed"
	RoutingNotificationLog = "notification.logged"
)

// Publisher publishes domain events for downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
	Close() error
}

// StageChanged is published whenever a project's stage changes.
type StageChanged struct {
	ProjectID      string    `json:"project_id"`
	OrganizationID string    `json:"organization_id"`
	FromStage      int       `json:"from_stage"`
	ToStage        int       `json:"to_stage"`
	Source         string    `json:"source"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type nopPublisher struct{}

// NewNop returns a publisher that drops every event.
func NewNop() Publisher { return nopPublisher{} }

func (nopPublisher) Publish(context.Context, string, any) error { return nil }
func (nopPublisher) Close() error                               { return nil }

type amqpPublisher struct {
	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQP dials url and declares the durable topic exchange.
func NewAMQP(url string) (Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("amqp exchange declare: %w", err)
	}
	return &amqpPublisher{conn: conn, ch: ch}, nil
}

func (p *amqpPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(ctx, Exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		logger.L().Warn("publish event failed", zap.String("routing_key", routingKey), zap.Error(err))
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	return nil
}

func (p *amqpPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.Close(); err != nil {
		_ = p.conn.Close()
		return err
	}
	return p.conn.Close()
}
