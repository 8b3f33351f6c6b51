// Package lock - advisory lock theo key cho các job đối soát.
// RedisLocker (redsync) dùng khi nhiều tiến trình chạy song song; LocalLocker cho một tiến trình.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"

	"data_hub/internal/common"
	"data_hub/internal/logger"
)

const keyPrefix = "data_hub:lock:"

// LocalLocker lock trong tiến trình. Acquire không chờ: key đang bị giữ trả về common.ErrLockHeld.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocalLocker tạo LocalLocker
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]struct{})}
}

// Acquire lấy lock key
func (l *LocalLocker) Acquire(ctx context.Context, key string) (func(context.Context) error, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return nil, common.WithDetails(common.ErrLockHeld, key)
	}
	l.held[key] = struct{}{}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
		return nil
	}, nil
}

// RedisLocker lock phân tán qua redsync
type RedisLocker struct {
	client *redis.Client
	rs     *redsync.Redsync
	ttl    time.Duration
}

// NewRedisLocker kết nối Redis và tạo locker. ttl là thời gian sống tối đa của lock.
func NewRedisLocker(ctx context.Context, redisURL string, ttl time.Duration) (*RedisLocker, error) {
	if redisURL == "" {
		return nil, common.WithDetails(common.ErrConfiguration, "REDIS_URL is empty")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, common.WithDetails(common.ErrConnection, fmt.Errorf("redis ping: %w", err))
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	logger.GetAppLogger().WithField("ttl", ttl.String()).Info("🔒 [LOCK] Đã kết nối Redis cho advisory lock")
	return &RedisLocker{
		client: client,
		rs:     redsync.New(goredis.NewPool(client)),
		ttl:    ttl,
	}, nil
}

// Acquire thử lấy lock một lần, không chờ. Lock được gia hạn mỗi ttl/2 cho tới khi unlock,
// nên job chạy lâu hơn ttl vẫn giữ được lock.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(context.Context) error, error) {
	mutex := l.rs.NewMutex(keyPrefix+key, redsync.WithExpiry(l.ttl), redsync.WithTries(1))
	if err := mutex.TryLockContext(ctx); err != nil {
		if isTaken(err) {
			return nil, common.WithDetails(common.ErrLockHeld, key)
		}
		return nil, common.WithDetails(common.ErrConnection, fmt.Errorf("lock %s: %w", key, err))
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		keepAlive(stop, l.ttl/2, key, mutex.ExtendContext)
	}()
	var once sync.Once
	stopKeepAlive := func() {
		once.Do(func() {
			close(stop)
			<-done
		})
	}

	return func(ctx context.Context) error {
		stopKeepAlive()
		ok, err := mutex.UnlockContext(ctx)
		if err != nil {
			return fmt.Errorf("unlock %s: %w", key, err)
		}
		if !ok {
			return fmt.Errorf("unlock %s: lock đã hết hạn", key)
		}
		return nil
	}, nil
}

// keepAlive gọi extend mỗi interval cho tới khi stop đóng. Gia hạn thất bại thì dừng:
// lock sẽ hết hạn theo ttl và unlock báo lỗi.
func keepAlive(stop <-chan struct{}, interval time.Duration, key string, extend func(context.Context) (bool, error)) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			ok, err := extend(ctx)
			cancel()
			if err != nil || !ok {
				entry := logger.GetAppLogger().WithField("key", key)
				if err != nil {
					entry = entry.WithError(err)
				}
				entry.Warn("🔒 [LOCK] Không gia hạn được lock, lock sẽ hết hạn theo TTL")
				return
			}
		}
	}
}

func isTaken(err error) bool {
	var taken *redsync.ErrTaken
	return errors.Is(err, redsync.ErrFailed) || errors.As(err, &taken)
}

// Close đóng kết nối Redis
func (l *RedisLocker) Close() error {
	return l.client.Close()
}
