package global

import (
	"github.com/go-playground/validator/v10"
)

// MongoDB_Reconcile_CollectionName chứa tên các collection mà job đối soát đọc/ghi
type MongoDB_Reconcile_CollectionName struct {
	Employees        string // Nhân viên (roster, alias)
	Customers        string // Khách hàng (facebookId)
	Conversations    string // Cuộc hội thoại Messenger
	Messages         string // Tin nhắn (fromName, responderId)
	Orders           string // Đơn hàng (closedById, conversationId)
	CustomerProfiles string // Hồ sơ khách hàng dạng document
	ProfileArchive   string // Hồ sơ bị gộp, lưu theo batch backup_reconciliation_*
}

// DefaultCollectionNames trả về tên collection mặc định
func DefaultCollectionNames() MongoDB_Reconcile_CollectionName {
	return MongoDB_Reconcile_CollectionName{
		Employees:        "employees",
		Customers:        "customers",
		Conversations:    "conversations",
		Messages:         "messages",
		Orders:           "orders",
		CustomerProfiles: "customer_profiles",
		ProfileArchive:   "customer_profiles_archive",
	}
}

// Các biến toàn cục
var Validate *validator.Validate // Biến để xác thực dữ liệu
