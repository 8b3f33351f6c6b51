package reconcilesvc

import (
	"context"
	"errors"
	"strings"
	"time"

	"data_hub/internal/api/reconcile/models"
	"data_hub/internal/common"
	"data_hub/internal/logger"
)

// AliasMapping danh sách alias của một nhân viên (theo mã nhân viên)
type AliasMapping struct {
	EmployeeID string   `yaml:"employeeId" json:"employeeId" validate:"required,no_blank"`
	Aliases    []string `yaml:"aliases" json:"aliases" validate:"required,min=1,dive,no_blank"`
}

// AliasSyncJob ghi đè alias của nhân viên theo file quy tắc.
// Nhân viên không tồn tại được báo trong summary, không dừng job.
type AliasSyncJob struct {
	Employees EmployeeStore
	Mappings  []AliasMapping
	Now       func() time.Time
}

// Name tên job
func (j *AliasSyncJob) Name() string { return JobSyncAliases }

// Run chạy job
func (j *AliasSyncJob) Run(ctx context.Context, runID string) (*models.RunSummary, error) {
	summary := models.NewRunSummary(j.Name(), runID, clock(j.Now))
	log := logger.WithJob(j.Name(), runID)

	for _, m := range j.Mappings {
		if interrupted(ctx, summary) {
			break
		}
		summary.Considered++
		aliases := cleanAliases(m.Aliases)
		err := j.Employees.UpdateEmployeeAliases(ctx, m.EmployeeID, aliases)
		switch {
		case errors.Is(err, common.ErrNotFound):
			summary.Skip("employee_not_found")
			summary.AddUnresolved(m.EmployeeID)
			log.WithField("employeeId", m.EmployeeID).Warn("🔁 [IDENTITY] Không tìm thấy nhân viên, bỏ qua alias")
		case err != nil:
			summary.Fail("write_error")
			log.WithError(err).WithField("employeeId", m.EmployeeID).Warn("🔁 [IDENTITY] Ghi alias thất bại")
		default:
			summary.Succeeded++
			logger.LogChange(logger.ChangeRecord{
				Job: j.Name(), RunID: runID, Action: "set_aliases", EntityType: "employee", EntityID: m.EmployeeID,
				Details: map[string]interface{}{"aliases": aliases},
			})
		}
	}

	summary.Finish(clock(j.Now))
	return summary, nil
}

// cleanAliases bỏ khoảng trắng thừa, alias rỗng và alias trùng (không phân biệt hoa thường)
func cleanAliases(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, a := range in {
		a = strings.Join(strings.Fields(a), " ")
		if a == "" {
			continue
		}
		k := strings.ToLower(a)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, a)
	}
	return out
}
