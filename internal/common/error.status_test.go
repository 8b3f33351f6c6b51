package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestError_IsMatchesByCodeAndMessage(t *testing.T) {
	withDetails := WithDetails(ErrLockHeld, map[string]string{"key": "job:merge-customers"})
	assert.True(t, errors.Is(withDetails, ErrLockHeld))
	assert.False(t, errors.Is(withDetails, ErrNotFound))

	wrapped := fmt.Errorf("chạy job: %w", withDetails)
	assert.True(t, errors.Is(wrapped, ErrLockHeld))

	var e *Error
	assert.True(t, errors.As(wrapped, &e))
	assert.Equal(t, StatusConflict, e.StatusCode)
}

func TestWithDetails_NonCustomErrorReturnedAsIs(t *testing.T) {
	base := errors.New("plain")
	assert.Same(t, base, WithDetails(base, "x"))
}

func TestConvertMongoError(t *testing.T) {
	t.Run("nil giữ nguyên", func(t *testing.T) {
		assert.NoError(t, ConvertMongoError(nil))
	})
	t.Run("ErrNoDocuments thành ErrNotFound", func(t *testing.T) {
		assert.True(t, errors.Is(ConvertMongoError(mongo.ErrNoDocuments), ErrNotFound))
	})
	t.Run("ErrNotFound không bị đổi", func(t *testing.T) {
		assert.Same(t, ErrNotFound, ConvertMongoError(ErrNotFound))
	})
	t.Run("standalone server không có transaction", func(t *testing.T) {
		err := ConvertMongoError(mongo.CommandError{Code: 20, Message: "Transaction numbers are only allowed on a replica set member or mongos"})
		assert.True(t, errors.Is(err, ErrMongoNoTxn))
	})
	t.Run("lỗi lạ giữ lỗi gốc trong chuỗi", func(t *testing.T) {
		orig := errors.New("boom")
		err := ConvertMongoError(orig)
		assert.True(t, errors.Is(err, orig))
	})
}
