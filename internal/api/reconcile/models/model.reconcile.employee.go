// Package models - các entity mà lõi đối soát đọc và cập nhật.
// Employee/Conversation/Message/Order/Customer do hệ thống upstream tạo; job đối soát chỉ gán
// các khoá tham chiếu (responderId, assignedEmployeeId, closedById, conversationId) và gộp hồ sơ khách.
package models

import "strings"

// Trạng thái nhân viên
const (
	EmployeeStatusActive   = "Active"
	EmployeeStatusInactive = "Inactive"
)

// Employee nhân viên trong roster. Aliases là các tên tự do (không phân biệt hoa thường)
// mà nhân viên xuất hiện trong chat hoặc trường "assigned agent" cũ.
type Employee struct {
	ID           string   `json:"id" bson:"_id"`
	EmployeeCode string   `json:"employeeId,omitempty" bson:"employeeId,omitempty"` // Mã nhân viên (e004, em_mgr_01)
	FirstName    string   `json:"firstName,omitempty" bson:"firstName,omitempty"`
	LastName     string   `json:"lastName,omitempty" bson:"lastName,omitempty"`
	NickName     string   `json:"nickName,omitempty" bson:"nickName,omitempty"`
	FacebookName string   `json:"facebookName,omitempty" bson:"facebookName,omitempty"` // Tên hiển thị trên Messenger
	Aliases      []string `json:"aliases,omitempty" bson:"aliases,omitempty"`
	Status       string   `json:"status" bson:"status"`
}

// IsActive so sánh status không phân biệt hoa thường
func (e Employee) IsActive() bool {
	return strings.EqualFold(strings.TrimSpace(e.Status), EmployeeStatusActive)
}

// DisplayName nickname, nếu trống thì first name
func (e Employee) DisplayName() string {
	if n := strings.TrimSpace(e.NickName); n != "" {
		return n
	}
	return strings.TrimSpace(e.FirstName)
}

// FullName "first last"
func (e Employee) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(e.FirstName) + " " + strings.TrimSpace(e.LastName))
}
