// Package reconcilerouter - route của module đối soát.
package reconcilerouter

import (
	"github.com/gofiber/fiber/v3"

	reconcilehdl "data_hub/internal/api/reconcile/handler"
)

// RegisterRoutes đăng ký route /reconcile. Middleware gắn một lần cho cả group:
// mỗi lần Use trên cùng prefix sẽ chạy thêm một lượt cho mọi request.
func RegisterRoutes(v1 fiber.Router, h *reconcilehdl.ReconcileHandler, middlewares []fiber.Handler) {
	group := v1.Group("/reconcile")
	for _, mw := range middlewares {
		group.Use(mw)
	}

	group.Get("/jobs", h.HandleListJobs)
	group.Post("/jobs/:job/run", h.HandleRunJob)
	group.Get("/jobs/:job/last", h.HandleLastRun)
	group.Get("/resolve", h.HandleResolve)
	group.Get("/team-report", h.HandleTeamReport)
	group.Get("/ads-chat", h.HandleAdsChat)
}
