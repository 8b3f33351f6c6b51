package reconcilehdl

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"

	"data_hub/internal/common"
	"data_hub/internal/global"
)

// globalStruct validate DTO, lỗi trả về là ErrInvalidInput
func globalStruct(v interface{}) error {
	if err := global.Struct(v); err != nil {
		return common.WithDetails(common.ErrInvalidInput, err.Error())
	}
	return nil
}

// SystemHandler xử lý /system/health
type SystemHandler struct {
	// Ping kiểm tra store; nil = không có store cần kiểm tra
	Ping func(ctx context.Context) error
	// Driver tên store driver đang dùng
	Driver string
}

// HandleHealth kiểm tra tình trạng hệ thống
func (h *SystemHandler) HandleHealth(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	healthData := fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"services": fiber.Map{
			"api": "ok",
		},
	}
	services := healthData["services"].(fiber.Map)

	if h.Ping != nil {
		if err := h.Ping(ctx); err != nil {
			healthData["status"] = "degraded"
			services[h.Driver] = "error"
			healthData["store_error"] = err.Error()
			return c.Status(common.StatusServiceUnavailable).JSON(fiber.Map{
				"code":    common.StatusServiceUnavailable,
				"message": "Hệ thống đang gặp sự cố",
				"data":    healthData,
				"status":  "error",
			})
		}
		services[h.Driver] = "ok"
	}

	return c.Status(common.StatusOK).JSON(fiber.Map{
		"code":    common.StatusOK,
		"message": common.MsgSuccess,
		"data":    healthData,
		"status":  "success",
	})
}
