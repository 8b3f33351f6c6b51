// Package reconcilesvc - lõi đối soát: Identity Resolver, Temporal Attributor, Profile Merger
// và các job chạy chúng trên một store bất kỳ (Mongo, SQL, thư mục JSON, bộ nhớ).
package reconcilesvc

import (
	"context"

	"data_hub/internal/api/reconcile/models"
)

// EmployeeStore đọc roster và cập nhật alias
type EmployeeStore interface {
	ListActiveEmployees(ctx context.Context) ([]models.Employee, error)
	// UpdateEmployeeAliases ghi đè alias của nhân viên theo mã; common.ErrNotFound nếu không có
	UpdateEmployeeAliases(ctx context.Context, employeeCode string, aliases []string) error
}

// MessageStore các thao tác trên tin nhắn
type MessageStore interface {
	// ListUnresolvedMessages tin nhắn có fromName nhưng chưa có responderId, kèm ParticipantID của hội thoại
	ListUnresolvedMessages(ctx context.Context) ([]models.Message, error)
	// ListMessagesForCustomer tất cả tin nhắn thuộc các hội thoại của khách, tăng dần theo createdAt
	ListMessagesForCustomer(ctx context.Context, customerID string) ([]models.Message, error)
	// UpdateMessageResponder chỉ ghi khi responderId đang trống; trả về false nếu không có gì thay đổi
	UpdateMessageResponder(ctx context.Context, messageID, employeeID string) (bool, error)
}

// ConversationStore các thao tác trên hội thoại
type ConversationStore interface {
	// ListUnassignedConversations hội thoại có assignedAgent nhưng chưa có assignedEmployeeId
	ListUnassignedConversations(ctx context.Context) ([]models.Conversation, error)
	ListConversationsForCustomer(ctx context.Context, customerID string) ([]models.Conversation, error)
	// UpdateConversationAssignment chỉ ghi khi assignedEmployeeId đang trống
	UpdateConversationAssignment(ctx context.Context, conversationID, employeeID string) (bool, error)
}

// OrderStore các thao tác trên đơn hàng
type OrderStore interface {
	// ListOrdersNeedingAttribution đơn thiếu closedById hoặc conversationId
	ListOrdersNeedingAttribution(ctx context.Context) ([]models.Order, error)
	// GetCustomer common.ErrNotFound nếu không có
	GetCustomer(ctx context.Context, customerID string) (models.Customer, error)
	// UpdateOrderAttribution ghi từng field chỉ khi field đó đang trống; giá trị rỗng bị bỏ qua
	UpdateOrderAttribution(ctx context.Context, orderID, employeeID, conversationID string) (bool, error)
}

// ProfileStore hồ sơ khách dạng document
type ProfileStore interface {
	ListCustomerProfiles(ctx context.Context) ([]models.CustomerProfile, error)
	ArchiveProfile(ctx context.Context, profileID, destination string) error
	PersistProfile(ctx context.Context, profile models.CustomerProfile) error
	// ApplyMerge lưu canonical và chuyển toàn bộ loser sang destination, nguyên tử theo nhóm:
	// hoặc tất cả được áp dụng, hoặc không có gì thay đổi.
	ApplyMerge(ctx context.Context, canonical models.CustomerProfile, loserIDs []string, destination string) error
}

// AdsChatSource nguồn insight quảng cáo và file chat export
type AdsChatSource interface {
	LoadCampaignDays(ctx context.Context, period string) ([]models.CampaignDay, error)
	LoadChatThreads(ctx context.Context) ([]models.ChatThread, error)
}

// Store gộp các port mà một backend lưu trữ đầy đủ cung cấp
type Store interface {
	EmployeeStore
	MessageStore
	ConversationStore
	OrderStore
	ProfileStore
	Close(ctx context.Context) error
}

// Locker advisory lock theo key. Unlock phải được gọi trên mọi đường thoát.
// Acquire trả về common.ErrLockHeld nếu key đang bị giữ.
type Locker interface {
	Acquire(ctx context.Context, key string) (unlock func(context.Context) error, err error)
}

// Publisher phát sự kiện domain (order đã gán, hồ sơ đã gộp, job hoàn tất)
type Publisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
	Close() error
}

// Các loại sự kiện
const (
	EventOrderAttributed = "reconcile.order.attributed.v1"
	EventProfileMerged   = "reconcile.profile.merged.v1"
	EventRunCompleted    = "reconcile.run.completed.v1"
)
