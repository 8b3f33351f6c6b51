package events

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"data_hub/internal/common"
	"data_hub/internal/logger"
)

// SubjectPrefix tiền tố subject của mọi sự kiện đối soát (loại sự kiện bắt đầu bằng "reconcile.")
const SubjectPrefix = "reconcile"

// NATSPublisher phát sự kiện qua JetStream; subject = loại sự kiện
type NATSPublisher struct {
	nc  *nats.Conn
	js  jetstream.JetStream
	now func() time.Time
}

// NewNATSPublisher kết nối NATS và tạo stream nếu chưa có
func NewNATSPublisher(ctx context.Context, url, stream string) (*NATSPublisher, error) {
	if url == "" {
		return nil, common.WithDetails(common.ErrConfiguration, "NATS_URL is empty")
	}
	nc, err := nats.Connect(url, nats.Name(Producer))
	if err != nil {
		return nil, common.WithDetails(common.ErrConnection, fmt.Errorf("connect nats: %w", err))
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	log := logger.GetAppLogger().WithField("stream", stream)
	if _, err := js.Stream(ctx, stream); err != nil {
		log.Info("📣 [EVENTS] Chưa có stream, đang tạo")
		if _, err := js.CreateStream(ctx, streamConfig(stream)); err != nil {
			nc.Close()
			return nil, fmt.Errorf("create stream %s: %w", stream, err)
		}
	}

	log.Info("📣 [EVENTS] Đã kết nối NATS JetStream")
	return &NATSPublisher{nc: nc, js: js, now: time.Now}, nil
}

func streamConfig(name string) jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:        name,
		Description: "Sự kiện đối soát CRM",
		Subjects:    []string{SubjectPrefix + ".>"},
		MaxAge:      7 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
	}
}

// Publish phát sự kiện; id của envelope dùng làm msg id để JetStream loại trùng
func (p *NATSPublisher) Publish(ctx context.Context, eventType string, data interface{}) error {
	env := NewEnvelope(ctx, eventType, data, p.now())
	body, err := encode(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	if _, err := p.js.Publish(ctx, eventType, body, jetstream.WithMsgID(env.Meta.ID)); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}

// Close đóng kết nối sau khi đẩy hết buffer
func (p *NATSPublisher) Close() error {
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
		return err
	}
	return nil
}
