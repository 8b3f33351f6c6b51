package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"data_hub/internal/common"
	"data_hub/internal/logger"
)

// AMQPPublisher phát sự kiện lên topic exchange; routing key = loại sự kiện
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	now      func() time.Time
}

// NewAMQPPublisher kết nối RabbitMQ, khai báo exchange (topic, durable) và bật publisher confirm
func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	if url == "" {
		return nil, common.WithDetails(common.ErrConfiguration, "RABBITMQ_URL is empty")
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, common.WithDetails(common.ErrConnection, fmt.Errorf("dial rabbitmq: %w", err))
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	if err := ch.Confirm(false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable confirm: %w", err)
	}

	logger.GetAppLogger().WithField("exchange", exchange).Info("📣 [EVENTS] Đã kết nối RabbitMQ")
	return &AMQPPublisher{conn: conn, ch: ch, exchange: exchange, now: time.Now}, nil
}

// Publish phát sự kiện và chờ broker xác nhận
func (p *AMQPPublisher) Publish(ctx context.Context, eventType string, data interface{}) error {
	env := NewEnvelope(ctx, eventType, data, p.now())
	msg, err := publishing(env)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	confirm, err := p.ch.PublishWithDeferredConfirmWithContext(ctx, p.exchange, eventType, false, false, msg)
	if err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	ok, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("confirm %s: %w", eventType, err)
	}
	if !ok {
		return fmt.Errorf("broker nack %s", eventType)
	}
	return nil
}

// publishing chuyển envelope thành message AMQP bền vững
func publishing(env Envelope) (amqp.Publishing, error) {
	body, err := encode(env)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encode envelope: %w", err)
	}
	cid := env.Meta.CorrelationID
	if cid == "" {
		cid = env.Meta.ID
	}
	return amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     env.Meta.ID,
		CorrelationId: cid,
		Type:          env.Meta.Type,
		AppId:         env.Meta.Producer,
		Timestamp:     env.Meta.Time,
		Body:          body,
	}, nil
}

// Close đóng channel và connection
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.ch.Close()
	return p.conn.Close()
}
