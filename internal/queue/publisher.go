// Package queue 向 RabbitMQ 发布工单领域事件。
// 通知投递本身由下游系统消费事件完成，不属于本服务职责。
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"titleflow/backend/config"
)

// ── 事件路由键 ──

const (
	EventAllocated     = "assignment.allocated"
	EventReallocated   = "assignment.reallocated"
	EventStatusChanged = "assignment.status_changed"
)

// Event 领域事件载荷
type Event struct {
	AssignmentID string    `json:"assignment_id"`
	RefCode      string    `json:"ref_code"`
	Status       string    `json:"status"`
	AdvocateID   string    `json:"advocate_id,omitempty"`
	ActorID      string    `json:"actor_id"`
	Detail       string    `json:"detail,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Publisher RabbitMQ 事件发布器
// nil Publisher 的 Publish 为空操作：MQ 未启用或连接失败时服务降级运行。
type Publisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	logger   *zap.Logger
}

// NewPublisher 建立 MQ 连接并声明 topic exchange
func NewPublisher(cfg *config.MQConfig, logger *zap.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("MQ 连接失败: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("创建 MQ channel 失败: %w", err)
	}

	if err := ch.ExchangeDeclare(
		cfg.Exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("声明 exchange 失败: %w", err)
	}

	logger.Info("MQ 连接成功", zap.String("exchange", cfg.Exchange))

	return &Publisher{
		conn:     conn,
		channel:  ch,
		exchange: cfg.Exchange,
		logger:   logger,
	}, nil
}

// Publish 发布事件；发布失败只记日志，不影响主流程
func (p *Publisher) Publish(ctx context.Context, routingKey string, event *Event) {
	if p == nil {
		return
	}

	body, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("事件序列化失败", zap.String("routing_key", routingKey), zap.Error(err))
		return
	}

	err = p.channel.PublishWithContext(ctx,
		p.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		})
	if err != nil {
		p.logger.Error("事件发布失败",
			zap.String("routing_key", routingKey),
			zap.String("assignment_id", event.AssignmentID),
			zap.Error(err),
		)
	}
}

// Close 关闭 MQ 连接
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	if err := p.channel.Close(); err != nil {
		return err
	}
	return p.conn.Close()
}
