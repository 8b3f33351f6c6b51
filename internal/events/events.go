// Package events phát sự kiện domain của các job đối soát ra event bus (RabbitMQ hoặc NATS JetStream).
// Mọi sự kiện được bọc trong Envelope{meta, data}; lỗi phát không làm hỏng kết quả job.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"data_hub/internal/logger"
)

// Producer tên dịch vụ phát sự kiện
const Producer = "data_hub"

// Meta thông tin định danh của sự kiện
type Meta struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Time          time.Time `json:"time"`
	Producer      string    `json:"producer,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// Envelope sự kiện trên bus
type Envelope struct {
	Meta Meta        `json:"meta"`
	Data interface{} `json:"data"`
}

type correlationKey struct{}

// WithCorrelationID gắn correlation id (run id của job) vào ctx
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID lấy correlation id từ ctx, rỗng nếu không có
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// NewEnvelope tạo envelope với id mới
func NewEnvelope(ctx context.Context, eventType string, data interface{}, now time.Time) Envelope {
	return Envelope{
		Meta: Meta{
			ID:            uuid.NewString(),
			Type:          eventType,
			Time:          now.UTC(),
			Producer:      Producer,
			CorrelationID: CorrelationID(ctx),
		},
		Data: data,
	}
}

func encode(env Envelope) ([]byte, error) {
	return json.Marshal(env)
}

// NoopPublisher bỏ qua mọi sự kiện (EVENT_BUS=none)
type NoopPublisher struct{}

// Publish không làm gì
func (NoopPublisher) Publish(ctx context.Context, eventType string, data interface{}) error {
	logger.GetAppLogger().WithFields(map[string]interface{}{
		"event": eventType,
	}).Debug("📣 [EVENTS] Event bus tắt, bỏ qua sự kiện")
	return nil
}

// Close không làm gì
func (NoopPublisher) Close() error { return nil }
