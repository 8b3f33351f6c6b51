package database

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"data_hub/config"
	"data_hub/internal/common"
	"data_hub/internal/global"
)

func TestGetInstance_EmptyURI(t *testing.T) {
	_, err := GetInstance(context.Background(), &config.Configuration{})
	assert.ErrorIs(t, err, common.ErrConfiguration)
}

func TestIsIndexExistsError(t *testing.T) {
	assert.False(t, isIndexExistsError(nil))
	assert.True(t, isIndexExistsError(errors.New("Index with name: employee_code already exists with different options")))
	assert.False(t, isIndexExistsError(errors.New("connection refused")))
}

func TestReconcileIndexModels(t *testing.T) {
	names := global.DefaultCollectionNames()
	idx := ReconcileIndexModels(names)
	assert.Len(t, idx, 4)
	assert.Contains(t, idx, names.Messages)
	assert.True(t, *idx[names.Employees][0].Options.Unique)
}
