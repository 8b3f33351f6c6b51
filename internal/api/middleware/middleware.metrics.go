// Package middleware - middleware dùng chung cho các route API.
package middleware

import (
	"time"

	"github.com/gofiber/fiber/v3"

	"data_hub/internal/metrics"
)

// MetricsMiddleware ghi số request và thời gian xử lý theo route (path pattern, không phải path thật)
func MetricsMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if e, ok := err.(*fiber.Error); ok {
				status = e.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		metrics.RecordRequest(c.Method(), c.Route().Path, status, time.Since(start))
		return err
	}
}
