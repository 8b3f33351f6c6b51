// server chạy API đối soát và worker định kỳ (responder rồi order attribution).
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gofiber/fiber/v3"

	reconcilehdl "data_hub/internal/api/reconcile/handler"
	"data_hub/internal/api/router"
	"data_hub/internal/app"
	"data_hub/internal/logger"
	"data_hub/internal/worker"
)

func main() {
	os.Exit(app.Main("server", app.Options{}, serve))
}

func serve(ctx context.Context, a *app.App) error {
	log := logger.GetAppLogger()

	fiberApp := InitFiberApp(router.Handlers{
		System:    &reconcilehdl.SystemHandler{Ping: a.Backend.Ping, Driver: a.Config.StoreDriver},
		Reconcile: reconcilehdl.NewReconcileHandler(a.Service, a.Reports),
	})

	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()
	go worker.NewReconcileWorker(a.Service, a.Config.WorkerInterval).Start(workerCtx)

	errCh := make(chan error, 1)
	go func() {
		address := ":" + a.Config.Address
		log.WithFields(map[string]interface{}{
			"address":  address,
			"protocol": "HTTP",
		}).Info("Starting server with HTTP")
		errCh <- fiberApp.Listen(address, fiber.ListenConfig{DisableStartupMessage: true})
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("fiber listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Đang dừng server...")
	stopWorker()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := fiberApp.ShutdownWithContext(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
