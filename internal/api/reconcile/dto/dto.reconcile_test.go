package reconciledto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"data_hub/internal/common"
	"data_hub/internal/global"
)

func TestTeamReportQuery_Range(t *testing.T) {
	from, to, err := TeamReportQuery{From: "2026-01-01", To: "2026-01-31"}.Range()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, 1, 31, 23, 59, 59, 999999999, time.UTC), to)

	from, to, err = TeamReportQuery{}.Range()
	require.NoError(t, err)
	assert.True(t, from.IsZero())
	assert.True(t, to.IsZero())
}

func TestTeamReportQuery_RangeInvalid(t *testing.T) {
	tests := []struct {
		name  string
		query TeamReportQuery
	}{
		{"bad from", TeamReportQuery{From: "01/02/2026"}},
		{"bad to", TeamReportQuery{To: "2026-13-01"}},
		{"to before from", TeamReportQuery{From: "2026-02-01", To: "2026-01-01"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tt.query.Range()
			assert.ErrorIs(t, err, common.ErrInvalidInput)
		})
	}
}

func TestQueries_Validate(t *testing.T) {
	assert.NoError(t, global.Struct(ResolveQuery{Name: "Fah"}))
	assert.Error(t, global.Struct(ResolveQuery{Name: "   "}))
	assert.NoError(t, global.Struct(AdsChatQuery{Period: "2026-02"}))
	assert.Error(t, global.Struct(AdsChatQuery{Period: "Feb 2026"}))
}
