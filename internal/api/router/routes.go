// Package router - đăng ký route cho API.
package router

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"

	"data_hub/internal/api/middleware"
	reconcilehdl "data_hub/internal/api/reconcile/handler"
	reconcilerouter "data_hub/internal/api/reconcile/router"
	"data_hub/internal/metrics"
)

// Fiber v3: middleware truyền trực tiếp vào router.Get(path, mw, handler) không được gọi.
// Route lẻ đăng ký qua RegisterRouteWithMiddleware (group + Use); module nhiều route
// tự tạo group và Use một lần.

// RegisterRouteWithMiddleware đăng ký route với middleware qua group prefix
func RegisterRouteWithMiddleware(router fiber.Router, prefix string, method string, path string, middlewares []fiber.Handler, handler fiber.Handler) {
	routeGroup := router.Group(prefix)
	for _, mw := range middlewares {
		routeGroup.Use(mw)
	}

	switch method {
	case "GET":
		routeGroup.Get(path, handler)
	case "POST":
		routeGroup.Post(path, handler)
	case "PUT":
		routeGroup.Put(path, handler)
	case "DELETE":
		routeGroup.Delete(path, handler)
	}
}

// Handlers các handler mà app cần
type Handlers struct {
	System    *reconcilehdl.SystemHandler
	Reconcile *reconcilehdl.ReconcileHandler
}

// SetupRoutes đăng ký toàn bộ route: /api/v1/system, /api/v1/reconcile và /metrics
func SetupRoutes(app *fiber.App, h Handlers) {
	v1 := app.Group("/api/v1")
	mw := []fiber.Handler{middleware.MetricsMiddleware()}

	RegisterRouteWithMiddleware(v1, "/system", "GET", "/health", nil, h.System.HandleHealth)
	reconcilerouter.RegisterRoutes(v1, h.Reconcile, mw)

	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
}
