package reconcilesvc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"data_hub/internal/api/reconcile/models"
	"data_hub/internal/common"
	"data_hub/internal/events"
	"data_hub/internal/logger"
	"data_hub/internal/metrics"
	"data_hub/internal/registry"
)

// Tên các job đối soát (dùng chung cho CLI, API và worker)
const (
	JobBackfillResponders       = "backfill-responders"
	JobBackfillOrderAttribution = "backfill-order-attribution"
	JobMergeCustomers           = "merge-customers"
	JobSyncAliases              = "sync-aliases"
)

// Job một lần chạy đối soát trên store. Lỗi trả về là lỗi setup (không đọc được roster/danh sách);
// lỗi từng entity được đếm trong summary và không dừng vòng lặp.
type Job interface {
	Name() string
	Run(ctx context.Context, runID string) (*models.RunSummary, error)
}

// ReconcileService chạy job theo tên: giữ lock cấp job, ghi metrics, lưu summary gần nhất
// và phát sự kiện hoàn tất.
type ReconcileService struct {
	jobs      *registry.Registry[Job]
	locker    Locker
	publisher Publisher

	mu   sync.RWMutex
	last map[string]*models.RunSummary
}

// NewReconcileService tạo service. locker/publisher có thể nil.
func NewReconcileService(locker Locker, publisher Publisher) *ReconcileService {
	return &ReconcileService{
		jobs:      registry.NewRegistry[Job](),
		locker:    locker,
		publisher: publisher,
		last:      make(map[string]*models.RunSummary),
	}
}

// Register đăng ký job; job cùng tên bị ghi đè
func (s *ReconcileService) Register(job Job) error {
	_, err := s.jobs.Register(job.Name(), job)
	return err
}

// JobNames tên các job đã đăng ký
func (s *ReconcileService) JobNames() []string {
	return s.jobs.Names()
}

// RunJob chạy job theo tên.
// Trả về common.ErrUnknownJob nếu không có job, common.ErrLockHeld nếu job đang chạy ở nơi khác.
func (s *ReconcileService) RunJob(ctx context.Context, name string) (*models.RunSummary, error) {
	job, err := s.jobs.MustGet(name)
	if err != nil {
		return nil, common.WithDetails(common.ErrUnknownJob, name)
	}

	unlock, err := acquire(ctx, s.locker, "job:"+name)
	if err != nil {
		return nil, err
	}
	defer releaseLock(unlock, "job:"+name)

	runID := uuid.NewString()
	ctx = events.WithCorrelationID(ctx, runID)
	log := logger.WithJob(name, runID)
	log.Info("🔁 [RECONCILE] Bắt đầu chạy job")

	started := time.Now()
	summary, err := job.Run(ctx, runID)
	if err != nil {
		metrics.ObserveRunError(name)
		log.WithError(err).Error("🔁 [RECONCILE] Job dừng do lỗi setup")
		return nil, err
	}

	metrics.ObserveRun(name, time.Since(started), summary.Succeeded, summary.TotalSkipped(), summary.TotalFailed(), summary.Interrupted)
	log.WithFields(map[string]interface{}{
		"considered":  summary.Considered,
		"succeeded":   summary.Succeeded,
		"skipped":     summary.TotalSkipped(),
		"failed":      summary.TotalFailed(),
		"interrupted": summary.Interrupted,
	}).Info("🔁 [RECONCILE] Job hoàn tất")

	s.mu.Lock()
	s.last[name] = summary
	s.mu.Unlock()

	publish(context.WithoutCancel(ctx), s.publisher, EventRunCompleted, summary)
	return summary, nil
}

// LastRun summary của lần chạy thành công gần nhất trong tiến trình này
func (s *ReconcileService) LastRun(name string) (*models.RunSummary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	summary, ok := s.last[name]
	return summary, ok
}

// acquire lấy advisory lock; locker nil = không khoá
func acquire(ctx context.Context, l Locker, key string) (func(context.Context) error, error) {
	if l == nil {
		return func(context.Context) error { return nil }, nil
	}
	unlock, err := l.Acquire(ctx, key)
	if err != nil {
		if errors.Is(err, common.ErrLockHeld) {
			return nil, err
		}
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	return unlock, nil
}

// releaseLock mở lock bằng context riêng để vẫn mở được khi ctx của job đã bị huỷ
func releaseLock(unlock func(context.Context) error, key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := unlock(ctx); err != nil {
		logger.GetAppLogger().WithError(err).WithFields(map[string]interface{}{
			"lock": key,
		}).Warn("🔁 [RECONCILE] Không mở được lock, lock sẽ tự hết hạn")
	}
}

// publish phát sự kiện; lỗi chỉ được log, không ảnh hưởng kết quả job
func publish(ctx context.Context, p Publisher, eventType string, data interface{}) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, eventType, data); err != nil {
		logger.GetAppLogger().WithError(err).WithFields(map[string]interface{}{
			"event": eventType,
		}).Warn("🔁 [RECONCILE] Phát sự kiện thất bại")
	}
}

func clock(now func() time.Time) time.Time {
	if now != nil {
		return now()
	}
	return time.Now()
}

// interrupted kiểm tra ctx giữa các entity; đánh dấu summary nếu bị huỷ
func interrupted(ctx context.Context, summary *models.RunSummary) bool {
	if ctx.Err() != nil {
		summary.Interrupted = true
		return true
	}
	return false
}
