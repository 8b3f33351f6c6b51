package logger

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

// ChangeRecord mô tả một thay đổi dữ liệu do job đối soát thực hiện
type ChangeRecord struct {
	Job        string                 `json:"job"`         // Tên job (backfill-responders, merge-customers, ...)
	RunID      string                 `json:"run_id"`      // ID của lần chạy
	Action     string                 `json:"action"`      // set_responder, attribute_order, merge_profile, archive_profile, ...
	EntityType string                 `json:"entity_type"` // message, order, customer_profile, employee
	EntityID   string                 `json:"entity_id"`
	Details    map[string]interface{} `json:"details"`
}

// LogChange ghi một thay đổi dữ liệu vào audit log
func LogChange(rec ChangeRecord) {
	GetAuditLogger().WithFields(logrus.Fields{
		"job":         rec.Job,
		"run_id":      rec.RunID,
		"action":      rec.Action,
		"entity_type": rec.EntityType,
		"entity_id":   rec.EntityID,
		"details":     rec.Details,
		"timestamp":   time.Now(),
	}).Info("Audit log")
}

// LogAction ghi một yêu cầu thủ công qua HTTP (chạy job, xem báo cáo)
func LogAction(action string, c fiber.Ctx, details map[string]interface{}) {
	if details == nil {
		details = make(map[string]interface{})
	}
	if requestID := c.Get("X-Request-ID"); requestID != "" {
		details["request_id"] = requestID
	}
	GetAuditLogger().WithFields(logrus.Fields{
		"action":     action,
		"ip":         c.IP(),
		"user_agent": c.Get("User-Agent"),
		"path":       c.Path(),
		"details":    details,
		"timestamp":  time.Now(),
	}).Info("Audit log")
}
