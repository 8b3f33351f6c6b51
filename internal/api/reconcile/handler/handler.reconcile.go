// Package reconcilehdl - Handler API đối soát: chạy job, xem lần chạy gần nhất, tra tên, báo cáo.
package reconcilehdl

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"

	reconciledto "data_hub/internal/api/reconcile/dto"
	"data_hub/internal/api/reconcile/models"
	reconcilesvc "data_hub/internal/api/reconcile/service"
	"data_hub/internal/common"
	"data_hub/internal/logger"
)

// JobRunner chạy job theo tên (ReconcileService)
type JobRunner interface {
	RunJob(ctx context.Context, name string) (*models.RunSummary, error)
	LastRun(name string) (*models.RunSummary, bool)
	JobNames() []string
}

// Reporter các thao tác chỉ đọc (ReportService)
type Reporter interface {
	ResolveName(ctx context.Context, name string) (reconcilesvc.Resolution, error)
	TeamReport(ctx context.Context, opts reconcilesvc.TeamReportOptions) (reconcilesvc.TeamReport, error)
	AdsChatReport(ctx context.Context, period string) (reconcilesvc.AdsChatReport, error)
}

// ReconcileHandler xử lý API đối soát
type ReconcileHandler struct {
	Jobs    JobRunner
	Reports Reporter
}

// NewReconcileHandler tạo ReconcileHandler mới
func NewReconcileHandler(jobs JobRunner, reports Reporter) *ReconcileHandler {
	return &ReconcileHandler{Jobs: jobs, Reports: reports}
}

// respondSuccess trả về envelope thành công
func respondSuccess(c fiber.Ctx, data interface{}) error {
	return c.Status(common.StatusOK).JSON(fiber.Map{
		"code":    common.StatusOK,
		"message": common.MsgSuccess,
		"data":    data,
		"status":  "success",
	})
}

// respondError map lỗi về status code theo common.Error; lỗi khác là 500
func respondError(c fiber.Ctx, err error) error {
	var customErr *common.Error
	if errors.As(err, &customErr) {
		details := customErr.Details
		if e, ok := details.(error); ok {
			details = e.Error()
		}
		if customErr.StatusCode >= common.StatusInternalServerError {
			logger.WithRequest(c).WithError(err).Error("🔁 [RECONCILE] Request lỗi")
		}
		return c.Status(customErr.StatusCode).JSON(fiber.Map{
			"code":    customErr.Code.Code,
			"message": customErr.Message,
			"details": details,
			"status":  "error",
		})
	}
	logger.WithRequest(c).WithError(err).Error("🔁 [RECONCILE] Request lỗi")
	return c.Status(common.StatusInternalServerError).JSON(fiber.Map{
		"code":    common.ErrCodeInternalServer.Code,
		"message": err.Error(),
		"status":  "error",
	})
}

// HandleListJobs xử lý GET /reconcile/jobs: danh sách job đã đăng ký
func (h *ReconcileHandler) HandleListJobs(c fiber.Ctx) error {
	return respondSuccess(c, fiber.Map{"jobs": h.Jobs.JobNames()})
}

// HandleRunJob xử lý POST /reconcile/jobs/:job/run.
// 404 nếu job không tồn tại, 409 nếu job đang chạy (lock đang bị giữ).
func (h *ReconcileHandler) HandleRunJob(c fiber.Ctx) error {
	name := c.Params("job")
	logger.LogAction("reconcile.job.run", c, map[string]interface{}{"job": name})

	summary, err := h.Jobs.RunJob(c.Context(), name)
	if err != nil {
		return respondError(c, err)
	}
	return respondSuccess(c, summary)
}

// HandleLastRun xử lý GET /reconcile/jobs/:job/last
func (h *ReconcileHandler) HandleLastRun(c fiber.Ctx) error {
	name := c.Params("job")
	summary, ok := h.Jobs.LastRun(name)
	if !ok {
		return respondError(c, common.WithDetails(common.ErrNotFound, "chưa có lần chạy nào của job "+name))
	}
	return respondSuccess(c, summary)
}

// HandleResolve xử lý GET /reconcile/resolve?name=
func (h *ReconcileHandler) HandleResolve(c fiber.Ctx) error {
	var q reconciledto.ResolveQuery
	if err := c.Bind().Query(&q); err != nil {
		return respondError(c, common.WithDetails(common.ErrInvalidFormat, err.Error()))
	}
	if err := globalStruct(q); err != nil {
		return respondError(c, err)
	}

	res, err := h.Reports.ResolveName(c.Context(), q.Name)
	if err != nil {
		return respondError(c, err)
	}
	return respondSuccess(c, reconciledto.ResolveResult{
		Name:       q.Name,
		EmployeeID: res.EmployeeID,
		Matched:    res.Matched,
		Ignored:    res.Ignored,
		Ambiguous:  res.Ambiguous(),
		Candidates: res.Candidates,
	})
}

// HandleTeamReport xử lý GET /reconcile/team-report?from=&to=
func (h *ReconcileHandler) HandleTeamReport(c fiber.Ctx) error {
	var q reconciledto.TeamReportQuery
	if err := c.Bind().Query(&q); err != nil {
		return respondError(c, common.WithDetails(common.ErrInvalidFormat, err.Error()))
	}
	from, to, err := q.Range()
	if err != nil {
		return respondError(c, err)
	}

	report, err := h.Reports.TeamReport(c.Context(), reconcilesvc.TeamReportOptions{From: from, To: to, Now: time.Now()})
	if err != nil {
		return respondError(c, err)
	}
	return respondSuccess(c, report)
}

// HandleAdsChat xử lý GET /reconcile/ads-chat?period=
func (h *ReconcileHandler) HandleAdsChat(c fiber.Ctx) error {
	var q reconciledto.AdsChatQuery
	if err := c.Bind().Query(&q); err != nil {
		return respondError(c, common.WithDetails(common.ErrInvalidFormat, err.Error()))
	}
	if err := globalStruct(q); err != nil {
		return respondError(c, err)
	}

	report, err := h.Reports.AdsChatReport(c.Context(), q.Period)
	if err != nil {
		return respondError(c, err)
	}
	return respondSuccess(c, report)
}
