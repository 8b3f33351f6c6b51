package registry

import (
	"errors"
	"testing"

	"data_hub/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry[int]()

	isNew, err := r.Register("orders", 1)
	require.NoError(t, err)
	assert.True(t, isNew)

	isNew, err = r.Register("orders", 2)
	require.NoError(t, err)
	assert.False(t, isNew, "đăng ký lại phải ghi đè")

	v, ok := r.Get("orders")
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	_, err = r.Register("", 3)
	assert.True(t, errors.Is(err, common.ErrRequiredField))
}

func TestRegistry_MustGetAndNames(t *testing.T) {
	r := NewRegistry[string]()
	_, _ = r.Register("merge-customers", "m")
	_, _ = r.Register("backfill-responders", "r")

	_, err := r.MustGet("missing")
	assert.True(t, errors.Is(err, common.ErrNotFound))
	assert.Equal(t, []string{"backfill-responders", "merge-customers"}, r.Names())
}

func TestRegistry_GetOrCreate(t *testing.T) {
	r := NewRegistry[string]()
	calls := 0
	create := func() (string, error) {
		calls++
		return "created", nil
	}
	v, err := r.GetOrCreate("x", create)
	require.NoError(t, err)
	assert.Equal(t, "created", v)
	_, _ = r.GetOrCreate("x", create)
	assert.Equal(t, 1, calls)

	_, err = r.GetOrCreate("y", func() (string, error) { return "", errors.New("boom") })
	assert.Error(t, err)
	_, ok := r.Get("y")
	assert.False(t, ok)
}
