package lock

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"data_hub/internal/common"
)

func TestLocalLocker(t *testing.T) {
	ctx := context.Background()
	l := NewLocalLocker()

	unlock, err := l.Acquire(ctx, "customer:c1")
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "customer:c1")
	assert.ErrorIs(t, err, common.ErrLockHeld, "key đang bị giữ")

	other, err := l.Acquire(ctx, "customer:c2")
	require.NoError(t, err, "key khác không bị ảnh hưởng")
	require.NoError(t, other(ctx))

	require.NoError(t, unlock(ctx))
	require.NoError(t, unlock(ctx), "unlock nhiều lần an toàn")

	again, err := l.Acquire(ctx, "customer:c1")
	require.NoError(t, err)
	require.NoError(t, again(ctx))
}

func TestLocalLocker_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLocalLocker().Acquire(ctx, "job:x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsTaken(t *testing.T) {
	assert.True(t, isTaken(redsync.ErrFailed))
	assert.True(t, isTaken(&redsync.ErrTaken{Nodes: []int{0}}))
	assert.False(t, isTaken(errors.New("dial tcp: connection refused")))
}

func TestNewRedisLocker_EmptyURL(t *testing.T) {
	_, err := NewRedisLocker(context.Background(), "", 0)
	assert.ErrorIs(t, err, common.ErrConfiguration)
}

func runKeepAlive(stop <-chan struct{}, interval time.Duration, extend func(context.Context) (bool, error)) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		keepAlive(stop, interval, "job:merge-customers", extend)
	}()
	return done
}

func TestKeepAlive_ExtendsUntilStopped(t *testing.T) {
	var calls atomic.Int32
	stop := make(chan struct{})
	done := runKeepAlive(stop, 5*time.Millisecond, func(context.Context) (bool, error) {
		calls.Add(1)
		return true, nil
	})

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond,
		"lock được gia hạn nhiều lần khi job còn chạy")
	close(stop)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("keepAlive không dừng sau khi unlock")
	}
	after := calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, calls.Load(), "không gia hạn sau khi dừng")
}

func TestKeepAlive_StopsWhenExtendFails(t *testing.T) {
	tests := []struct {
		name   string
		extend func(context.Context) (bool, error)
	}{
		{"lock đã mất", func(context.Context) (bool, error) { return false, nil }},
		{"redis lỗi", func(context.Context) (bool, error) { return false, errors.New("connection reset") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stop := make(chan struct{})
			defer close(stop)
			done := runKeepAlive(stop, 5*time.Millisecond, tt.extend)
			select {
			case <-done:
			case <-time.After(time.Second):
				t.Fatal("keepAlive phải tự dừng khi gia hạn thất bại")
			}
		})
	}
}

func TestKeepAlive_ZeroInterval(t *testing.T) {
	stop := make(chan struct{})
	defer close(stop)
	done := runKeepAlive(stop, 0, func(context.Context) (bool, error) {
		t.Error("không được gọi extend")
		return true, nil
	})
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("interval 0 phải trả về ngay")
	}
}
