package reconcilesvc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"data_hub/internal/api/reconcile/models"
)

func profileWB001() models.CustomerProfile {
	return models.CustomerProfile{
		ID:          "WB-001",
		ContactInfo: models.ContactInfo{FacebookID: "FB123"},
		Orders:      []models.ProfileOrder{{OrderID: "ORD-1", TotalAmount: 500}},
		Intelligence: models.Intelligence{
			Tags:    []string{"vip"},
			Metrics: models.Metrics{TotalSpend: 500, TotalOrder: 1},
		},
		Timeline: []models.TimelineEvent{{ID: "t1", Date: "2026-01-10", Type: "order"}},
	}
}

func profileFB077() models.CustomerProfile {
	return models.CustomerProfile{
		ID:          "FB-077",
		Profile:     models.ProfileInfo{Agent: "Fah"},
		ContactInfo: models.ContactInfo{FacebookID: "FB123", PhonePrimary: "0812345678"},
		Orders:      []models.ProfileOrder{{OrderID: "ORD-2", TotalAmount: 300}},
		Intelligence: models.Intelligence{
			Tags:    []string{"sushi", "vip"},
			Metrics: models.Metrics{TotalSpend: 300, TotalOrder: 1},
		},
		Inventory: models.Inventory{LearningCourses: []models.Entitlement{{ID: "course-1", Name: "Sushi"}}},
		Timeline:  []models.TimelineEvent{{ID: "t2", Date: "2025-12-01", Type: "chat"}},
	}
}

func profileFB099() models.CustomerProfile {
	return models.CustomerProfile{
		ID:             "FB-099",
		SocialProfiles: &models.SocialProfiles{Facebook: &models.FacebookProfile{ID: "FB123"}},
		ContactInfo:    models.ContactInfo{Email: "fb099@example.com"},
		Transactions:   []models.Transaction{{TransactionID: "tx-1", Amount: 100}},
	}
}

func TestExtractExternalID(t *testing.T) {
	tests := []struct {
		name    string
		profile models.CustomerProfile
		want    string
	}{
		{"contact_info.facebook_id được ưu tiên", models.CustomerProfile{
			ContactInfo:    models.ContactInfo{FacebookID: "111"},
			SocialProfiles: &models.SocialProfiles{Facebook: &models.FacebookProfile{ID: "222"}},
			FacebookID:     "333",
		}, "111"},
		{"social_profiles.facebook.id", models.CustomerProfile{
			SocialProfiles: &models.SocialProfiles{Facebook: &models.FacebookProfile{ID: " 222 "}},
			FacebookID:     "333",
		}, "222"},
		{"facebook_id", models.CustomerProfile{FacebookID: "333"}, "333"},
		{"email facebook", models.CustomerProfile{ContactInfo: models.ContactInfo{Email: "444@Facebook.com"}}, "444"},
		{"email thường không dùng", models.CustomerProfile{ContactInfo: models.ContactInfo{Email: "a@gmail.com"}}, ""},
		{"không có id", models.CustomerProfile{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractExternalID(tt.profile, ""))
		})
	}
}

func TestGroupByExternalID(t *testing.T) {
	profiles := []models.CustomerProfile{profileFB077(), {ID: "NO-ID"}, profileWB001(), {ID: "X", FacebookID: "999"}}
	groups, excluded := GroupByExternalID(profiles, DefaultFacebookEmailDomain)
	assert.Equal(t, 1, excluded)
	require.Len(t, groups["FB123"], 2)
	assert.Equal(t, "FB-077", groups["FB123"][0].ID, "giữ thứ tự đầu vào trong nhóm")
	assert.Equal(t, []string{"999", "FB123"}, SortedGroupKeys(groups))
}

func TestSelectCanonical(t *testing.T) {
	t.Run("marker thắng", func(t *testing.T) {
		c, ok := SelectCanonical([]models.CustomerProfile{profileFB077(), profileFB099(), profileWB001()}, []string{"WB"})
		require.True(t, ok)
		assert.Equal(t, "WB-001", c.ID)
	})
	t.Run("không có marker: id nhỏ nhất", func(t *testing.T) {
		c, _ := SelectCanonical([]models.CustomerProfile{profileFB099(), profileFB077()}, []string{"WB"})
		assert.Equal(t, "FB-077", c.ID)
	})
	t.Run("nhiều hồ sơ có marker: id nhỏ nhất trong số đó", func(t *testing.T) {
		c, _ := SelectCanonical([]models.CustomerProfile{{ID: "WB-009"}, {ID: "AA-001"}, {ID: "WB-002"}}, []string{"WB"})
		assert.Equal(t, "WB-002", c.ID)
	})
	t.Run("thứ tự marker", func(t *testing.T) {
		c, _ := SelectCanonical([]models.CustomerProfile{{ID: "WB-001"}, {ID: "CRM-7"}}, []string{"CRM", "WB"})
		assert.Equal(t, "CRM-7", c.ID)
	})
	t.Run("nhóm rỗng", func(t *testing.T) {
		_, ok := SelectCanonical(nil, nil)
		assert.False(t, ok)
	})
}

func TestMergeDuplicateProfiles_EndToEndScenario(t *testing.T) {
	canonical, losers := MergeDuplicateProfiles([]models.CustomerProfile{profileFB099(), profileFB077(), profileWB001()}, []string{"WB"})

	assert.Equal(t, "WB-001", canonical.ID)
	require.Len(t, losers, 2)
	assert.Equal(t, "FB-077", losers[0].ID)
	assert.Equal(t, "FB-099", losers[1].ID)

	require.Len(t, canonical.Orders, 2)
	assert.Equal(t, "ORD-1", canonical.Orders[0].OrderID.String())
	assert.Equal(t, "ORD-2", canonical.Orders[1].OrderID.String())
	assert.Equal(t, 500.0, canonical.Intelligence.Metrics.TotalSpend, "metrics lấy max, không cộng")
	assert.Equal(t, 1, canonical.Intelligence.Metrics.TotalOrder)

	assert.Equal(t, "Fah", canonical.Profile.Agent, "agent được điền khi canonical trống")
	assert.Equal(t, "0812345678", canonical.ContactInfo.PhonePrimary)
	assert.Equal(t, "fb099@example.com", canonical.ContactInfo.Email)
	assert.Equal(t, []string{"vip", "sushi"}, canonical.Intelligence.Tags)
	require.Len(t, canonical.Transactions, 1)
	require.Len(t, canonical.Inventory.LearningCourses, 1)

	require.Len(t, canonical.Timeline, 2)
	assert.Equal(t, "t2", canonical.Timeline[0].ID.String())
	assert.Equal(t, "t1", canonical.Timeline[1].ID.String())
}

func TestMergeProfiles_Associative(t *testing.T) {
	markers := []string{"WB"}
	a, b, c := profileWB001(), profileFB077(), profileFB099()

	ab, _ := MergeDuplicateProfiles([]models.CustomerProfile{a, b}, markers)
	twoPass, _ := MergeDuplicateProfiles([]models.CustomerProfile{ab, c}, markers)
	onePass, _ := MergeDuplicateProfiles([]models.CustomerProfile{a, b, c}, markers)

	assert.Equal(t, onePass, twoPass)

	again, _ := MergeDuplicateProfiles([]models.CustomerProfile{onePass, b, c}, markers)
	assert.Equal(t, onePass, again, "gộp lại với các loser cũ không thay đổi kết quả")
}

func TestMergeProfiles_MetricsMax(t *testing.T) {
	base := models.CustomerProfile{ID: "A", Intelligence: models.Intelligence{Metrics: models.Metrics{TotalSpend: 1000, TotalOrder: 2}}}
	other := models.CustomerProfile{ID: "B", Intelligence: models.Intelligence{Metrics: models.Metrics{TotalSpend: 800, TotalOrder: 5}}}

	merged := MergeProfiles(base, other)
	assert.Equal(t, 1000.0, merged.Intelligence.Metrics.TotalSpend)
	assert.Equal(t, 5, merged.Intelligence.Metrics.TotalOrder)
}

func TestMergeProfiles_TimelineUnionAndSort(t *testing.T) {
	base := models.CustomerProfile{Timeline: []models.TimelineEvent{{ID: "1", Date: "2026-01-01"}}}
	other := models.CustomerProfile{Timeline: []models.TimelineEvent{{ID: "1", Date: "2026-01-01"}, {ID: "2", Date: "2025-12-01"}}}

	merged := MergeProfiles(base, other)
	assert.Equal(t, []models.TimelineEvent{{ID: "2", Date: "2025-12-01"}, {ID: "1", Date: "2026-01-01"}}, merged.Timeline)
}

func TestMergeProfiles_UnparseableDatesLast(t *testing.T) {
	base := models.CustomerProfile{Timeline: []models.TimelineEvent{{ID: "x", Date: "sometime"}}}
	other := models.CustomerProfile{Timeline: []models.TimelineEvent{{ID: "y", Date: "2026-01-02T10:00:00Z"}, {ID: "z", Date: "2025-06-01 08:00:00"}}}

	merged := MergeProfiles(base, other)
	ids := []string{}
	for _, e := range merged.Timeline {
		ids = append(ids, e.ID.String())
	}
	assert.Equal(t, []string{"z", "y", "x"}, ids)
}

func TestMergeProfiles_DoesNotMutateInputs(t *testing.T) {
	base := profileWB001()
	other := profileFB077()
	_ = MergeProfiles(base, other)

	assert.Len(t, base.Orders, 1)
	assert.Equal(t, profileWB001(), base)
	assert.Equal(t, profileFB077(), other)
}

func TestMergeProfiles_KeylessItemsDeduplicatedWhenIdentical(t *testing.T) {
	base := models.CustomerProfile{Orders: []models.ProfileOrder{{Date: "2026-01-01", TotalAmount: 100}}}
	other := models.CustomerProfile{Orders: []models.ProfileOrder{
		{Date: "2026-01-01", TotalAmount: 100},
		{Date: "2026-01-02", TotalAmount: 200},
	}}
	merged := MergeProfiles(base, other)
	assert.Len(t, merged.Orders, 2)
}
