package worker

import (
	"context"
	"time"

	"data_hub/internal/api/reconcile/models"
	reconcilesvc "data_hub/internal/api/reconcile/service"
	"data_hub/internal/logger"
)

// JobRunner chạy job đối soát theo tên (ReconcileService)
type JobRunner interface {
	RunJob(ctx context.Context, name string) (*models.RunSummary, error)
	JobNames() []string
}

// ReconcileWorker chạy định kỳ backfill responder rồi mới gán đơn hàng:
// gán đơn dựa vào responderId nên phải chạy sau.
type ReconcileWorker struct {
	runner   JobRunner
	interval time.Duration
	jobs     []string
}

// NewReconcileWorker tạo worker. interval <= 0 thì Start trả về ngay (worker tắt).
// Chỉ giữ các job runner đã đăng ký (store file không có job backfill nào).
func NewReconcileWorker(runner JobRunner, interval time.Duration) *ReconcileWorker {
	registered := make(map[string]bool)
	for _, name := range runner.JobNames() {
		registered[name] = true
	}
	var jobs []string
	for _, name := range []string{reconcilesvc.JobBackfillResponders, reconcilesvc.JobBackfillOrderAttribution} {
		if registered[name] {
			jobs = append(jobs, name)
		}
	}
	return &ReconcileWorker{
		runner:   runner,
		interval: interval,
		jobs:     jobs,
	}
}

// Start chạy vòng lặp đến khi ctx bị huỷ
func (w *ReconcileWorker) Start(ctx context.Context) {
	log := logger.GetAppLogger()
	if w.interval <= 0 {
		log.Info("⏱️ [RECONCILE_WORKER] Worker đối soát định kỳ đang tắt (RECONCILE_WORKER_INTERVAL=0)")
		return
	}
	if len(w.jobs) == 0 {
		log.Info("⏱️ [RECONCILE_WORKER] Store hiện tại không có job backfill, worker không chạy")
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	log.WithFields(map[string]interface{}{
		"interval": w.interval.String(),
		"jobs":     w.jobs,
	}).Info("⏱️ [RECONCILE_WORKER] Starting Reconcile Worker...")

	for {
		select {
		case <-ctx.Done():
			log.Info("⏱️ [RECONCILE_WORKER] Reconcile Worker stopped")
			return
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Tick chạy lần lượt các job; job lỗi thì các job sau bị bỏ qua ở lượt này.
// Panic được recover để lượt sau vẫn chạy.
func (w *ReconcileWorker) Tick(ctx context.Context) (ran int) {
	log := logger.GetAppLogger()
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(map[string]interface{}{
				"panic": r,
			}).Error("⏱️ [RECONCILE_WORKER] Panic khi chạy job đối soát, sẽ tiếp tục ở lần chạy tiếp theo")
		}
	}()

	for _, name := range w.jobs {
		if ctx.Err() != nil {
			return ran
		}
		summary, err := w.runner.RunJob(ctx, name)
		if err != nil {
			log.WithError(err).WithField("job", name).Warn("⏱️ [RECONCILE_WORKER] Job lỗi, bỏ qua các job sau trong lượt này")
			return ran
		}
		ran++
		if summary.Interrupted {
			return ran
		}
	}
	return ran
}
