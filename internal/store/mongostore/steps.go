package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"data_hub/internal/common"
	"data_hub/internal/logger"
)

// step một bước ghi kèm bước hoàn tác
type step struct {
	name string
	do   func(ctx context.Context) error
	undo func(ctx context.Context) error
}

// runSteps chạy lần lượt; bước lỗi thì hoàn tác các bước đã xong theo thứ tự ngược lại.
// Hoàn tác dùng context riêng để vẫn chạy được khi ctx đã bị huỷ.
func runSteps(ctx context.Context, steps []step) error {
	for i, st := range steps {
		if err := ctx.Err(); err != nil {
			return rollback(steps[:i], err)
		}
		if err := st.do(ctx); err != nil {
			return rollback(steps[:i], fmt.Errorf("%s: %w", st.name, err))
		}
	}
	return nil
}

func rollback(done []step, cause error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var undoErrs []error
	for i := len(done) - 1; i >= 0; i-- {
		if err := done[i].undo(ctx); err != nil {
			logger.GetAppLogger().WithError(err).WithField("step", done[i].name).
				Error("🔀 [MERGE] Hoàn tác thất bại, cần kiểm tra dữ liệu thủ công")
			undoErrs = append(undoErrs, fmt.Errorf("undo %s: %w", done[i].name, err))
		}
	}
	if len(undoErrs) > 0 {
		return common.WithDetails(common.ErrTransaction, errors.Join(append([]error{cause}, undoErrs...)...))
	}
	return cause
}
