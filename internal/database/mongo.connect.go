package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"data_hub/config"
	"data_hub/internal/common"
	"data_hub/internal/logger"
)

// GetInstance khởi tạo và trả về *mongo.Client đã kiểm tra kết nối.
// URI rỗng là lỗi cấu hình; không kết nối/ping được là lỗi kết nối.
func GetInstance(ctx context.Context, c *config.Configuration) (*mongo.Client, error) {
	if c.MongoDB_ConnectionURI == "" {
		return nil, common.WithDetails(common.ErrConfiguration, "MONGODB_CONNECTION_URI is empty")
	}

	// Job đối soát chạy tuần tự nên pool nhỏ hơn server CRM
	clientOptions := options.Client().ApplyURI(c.MongoDB_ConnectionURI).
		SetMaxPoolSize(20).
		SetMinPoolSize(2).
		SetConnectTimeout(5 * time.Second).
		SetSocketTimeout(30 * time.Second)

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, common.WithDetails(common.ErrMongoConnection, fmt.Errorf("failed to connect to MongoDB: %w", err))
	}

	pingCtx, cancelPing := context.WithTimeout(ctx, 2*time.Second)
	defer cancelPing()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, common.WithDetails(common.ErrMongoConnection, fmt.Errorf("failed to ping MongoDB: %w", err))
	}

	logger.GetAppLogger().Info("Successfully connected to MongoDB")
	return client, nil
}

// CloseInstance đóng kết nối MongoDB
func CloseInstance(ctx context.Context, client *mongo.Client) error {
	if err := client.Disconnect(ctx); err != nil {
		logger.GetAppLogger().WithError(err).Error("Failed to disconnect MongoDB client")
		return err
	}
	logger.GetAppLogger().Info("Successfully disconnected from MongoDB")
	return nil
}
