package ruleset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	reconcilesvc "data_hub/internal/api/reconcile/service"
	"data_hub/internal/common"
)

const sampleRules = `
sentinels: [Unassigned, The V School]
canonicalMarkers: [WB, LINE]
minSubstringLength: 4
facebookEmailDomain: fb.example
aliases:
  - employeeId: e004
    aliases: ["Jutamat Fah N'Finn Sangprakai"]
pageId: "170707786504"
campaigns:
  - name: Sushi
    keywords: ["ซูชิ", "Sushi"]
paymentKeywords: ["โอน", "slip"]
amountKeywords: ["มัดจำ"]
`

func TestParse(t *testing.T) {
	r, err := Parse([]byte(sampleRules))
	require.NoError(t, err)

	ro := r.ResolverOptions("Folk Page")
	assert.Equal(t, []string{"Unassigned", "The V School", "Folk Page"}, ro.Sentinels)
	assert.Equal(t, 4, ro.MinSubstringLength)

	mo := r.MergeOptions()
	assert.Equal(t, []string{"WB", "LINE"}, mo.Markers)
	assert.Equal(t, "fb.example", mo.EmailDomain)

	require.Len(t, r.Aliases, 1)
	assert.Equal(t, "e004", r.Aliases[0].EmployeeID)

	ac := r.AdsChatRules("Folk Page")
	assert.Equal(t, "170707786504", ac.PageID)
	assert.Equal(t, "Folk Page", ac.PageName)
	assert.Equal(t, []reconcilesvc.CampaignRule{{Name: "Sushi", Keywords: []string{"ซูชิ", "Sushi"}}}, ac.Campaigns)
	assert.Equal(t, []string{"มัดจำ"}, ac.AmountKeywords)
}

func TestParse_Defaults(t *testing.T) {
	r, err := Parse([]byte(""))
	require.NoError(t, err)
	assert.Equal(t, reconcilesvc.DefaultResolverOptions(), r.ResolverOptions(""))
	assert.Equal(t, reconcilesvc.DefaultMergeOptions(), r.MergeOptions())

	ro := (&Rules{Sentinels: []string{"The V School"}}).ResolverOptions("")
	assert.Contains(t, ro.Sentinels, reconcilesvc.SentinelUnassigned, "Unassigned luôn là sentinel")
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want error
	}{
		{"key lạ", "sentinel: [x]", common.ErrInvalidFormat},
		{"alias thiếu employeeId", "aliases:\n  - aliases: [a]", common.ErrInvalidInput},
		{"alias rỗng", "aliases:\n  - employeeId: e1\n    aliases: ['  ']", common.ErrInvalidInput},
		{"campaign không keyword", "campaigns:\n  - name: Sushi", common.ErrInvalidInput},
		{"min âm", "minSubstringLength: -1", common.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	r, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, r.Aliases)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, common.ErrConfiguration)

	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleRules), 0o644))
	r, err = Load(path)
	require.NoError(t, err)
	assert.Len(t, r.Campaigns, 1)
}

func TestLoad_RepositoryRules(t *testing.T) {
	r, err := Load(filepath.Join("..", "..", "config", "reconcile.rules.yaml"))
	require.NoError(t, err)
	assert.NotEmpty(t, r.Aliases)
	assert.Contains(t, r.MergeOptions().Markers, "WB")
	assert.Equal(t, 3, r.ResolverOptions("").MinSubstringLength, "giới hạn chuỗi con đặt trong file quy tắc")
	assert.Equal(t, 0, reconcilesvc.DefaultResolverOptions().MinSubstringLength)
}
