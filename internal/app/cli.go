package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"data_hub/config"
	"data_hub/internal/logger"
)

// Main khung chung của các lệnh CLI: đọc cấu hình, khởi tạo dependency, chạy fn.
// SIGINT/SIGTERM huỷ ctx; job dừng giữa hai entity và báo Interrupted.
// Trả về exit code: 0 hoàn tất, 1 lỗi setup hoặc lỗi chạy.
func Main(name string, opts Options, fn func(ctx context.Context, a *App) error) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := logger.Init(nil); err != nil {
		fmt.Fprintf(os.Stderr, "%s: init logger: %v\n", name, err)
		return 1
	}
	defer logger.Shutdown()

	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
		return 1
	}

	a, err := New(ctx, cfg, opts)
	if err != nil {
		logger.GetAppLogger().WithError(err).Error("🔁 [RECONCILE] Khởi tạo thất bại")
		fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
		return 1
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			logger.GetAppLogger().WithError(err).Warn("Đóng kết nối không thành công")
		}
	}()

	if err := fn(ctx, a); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
		return 1
	}
	return 0
}

// RunJobMain lệnh CLI chạy một job và in summary ra stdout
func RunJobMain(job string, opts Options) int {
	return Main(job, opts, func(ctx context.Context, a *App) error {
		return a.RunAndPrint(ctx, job, os.Stdout)
	})
}
