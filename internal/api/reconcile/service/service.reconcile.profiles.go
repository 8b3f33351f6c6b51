package reconcilesvc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"data_hub/internal/api/reconcile/models"
	"data_hub/internal/common"
	"data_hub/internal/logger"
)

// ArchivePrefix tiền tố nơi lưu hồ sơ bị gộp (collection/bảng/thư mục tuỳ store)
const ArchivePrefix = "backup_reconciliation_"

// ArchiveDestination nơi lưu hồ sơ bị gộp của một lần chạy
func ArchiveDestination(at time.Time) string {
	return fmt.Sprintf("%s%d", ArchivePrefix, at.UnixMilli())
}

// ProfileMergedEvent payload của EventProfileMerged
type ProfileMergedEvent struct {
	ExternalID  string   `json:"externalId"`
	CanonicalID string   `json:"canonicalId"`
	LoserIDs    []string `json:"loserIds"`
	Destination string   `json:"destination"`
}

// ProfileMergeJob gộp hồ sơ khách trùng id kênh ngoài thành một hồ sơ canonical.
// Mỗi nhóm được áp dụng nguyên tử qua ProfileStore.ApplyMerge; nhóm lỗi được giữ nguyên.
type ProfileMergeJob struct {
	Profiles  ProfileStore
	Locker    Locker
	Publisher Publisher
	Options   MergeOptions
	DryRun    bool
	Now       func() time.Time
}

// Name tên job
func (j *ProfileMergeJob) Name() string { return JobMergeCustomers }

// Run chạy job
func (j *ProfileMergeJob) Run(ctx context.Context, runID string) (*models.RunSummary, error) {
	started := clock(j.Now)
	summary := models.NewRunSummary(j.Name(), runID, started)
	summary.DryRun = j.DryRun
	log := logger.WithJob(j.Name(), runID)

	markers := j.Options.Markers
	if len(markers) == 0 {
		markers = []string{DefaultCanonicalMarker}
	}
	destination := ArchiveDestination(started)

	profiles, err := j.Profiles.ListCustomerProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list customer profiles: %w", err)
	}
	groups, excluded := GroupByExternalID(profiles, j.Options.EmailDomain)
	if excluded > 0 {
		summary.Notes["excluded_no_external_id"] = excluded
	}
	log.WithFields(map[string]interface{}{
		"profiles":    len(profiles),
		"groups":      len(groups),
		"excluded":    excluded,
		"destination": destination,
		"dryRun":      j.DryRun,
	}).Info("🔁 [MERGE] Bắt đầu gộp hồ sơ trùng")

	for _, key := range SortedGroupKeys(groups) {
		group := groups[key]
		if len(group) < 2 {
			continue
		}
		if interrupted(ctx, summary) {
			break
		}
		summary.Considered++

		canonical, losers := MergeDuplicateProfiles(group, markers)
		loserIDs := make([]string, 0, len(losers))
		for _, l := range losers {
			loserIDs = append(loserIDs, l.ID)
		}
		groupLog := log.WithFields(map[string]interface{}{
			"externalId":  key,
			"canonicalId": canonical.ID,
			"loserIds":    loserIDs,
		})

		if j.DryRun {
			summary.Succeeded++
			summary.Notes["would_archive"] += len(losers)
			groupLog.Info("🔁 [MERGE] Dry-run: sẽ gộp nhóm")
			continue
		}

		if err := j.applyGroup(ctx, key, canonical, loserIDs, destination); err != nil {
			if errors.Is(err, common.ErrLockHeld) {
				summary.Skip("locked")
				continue
			}
			summary.Fail("apply_error")
			groupLog.WithError(common.WithDetails(common.ErrMergeAborted, err)).Error("🔁 [MERGE] Gộp nhóm thất bại, nhóm giữ nguyên")
			continue
		}

		summary.Succeeded++
		summary.Notes["profiles_archived"] += len(losers)
		groupLog.Info("🔁 [MERGE] Đã gộp nhóm")

		logger.LogChange(logger.ChangeRecord{
			Job: j.Name(), RunID: runID, Action: "merge_profile", EntityType: "customer_profile", EntityID: canonical.ID,
			Details: map[string]interface{}{
				"externalId":  key,
				"loserIds":    loserIDs,
				"destination": destination,
				"orders":      len(canonical.Orders),
				"totalSpend":  canonical.Intelligence.Metrics.TotalSpend,
			},
		})
		publish(ctx, j.Publisher, EventProfileMerged, ProfileMergedEvent{
			ExternalID:  key,
			CanonicalID: canonical.ID,
			LoserIDs:    loserIDs,
			Destination: destination,
		})
	}

	summary.Finish(clock(j.Now))
	return summary, nil
}

func (j *ProfileMergeJob) applyGroup(ctx context.Context, externalID string, canonical models.CustomerProfile, loserIDs []string, destination string) error {
	key := "external:" + externalID
	unlock, err := acquire(ctx, j.Locker, key)
	if err != nil {
		return err
	}
	defer releaseLock(unlock, key)
	return j.Profiles.ApplyMerge(ctx, canonical, loserIDs, destination)
}
