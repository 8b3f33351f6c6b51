package reconcilesvc

import (
	"time"

	"data_hub/internal/api/reconcile/models"
)

// DefaultFallbackMargin biên mở rộng khi không tìm thấy anchor trước thời điểm đơn
const DefaultFallbackMargin = 10 * time.Minute

// Nguồn của employee trong kết quả gán đơn
const (
	EmployeeFromResponder    = "responder"
	EmployeeFromConversation = "conversation"
)

// AttributionOptions cấu hình Temporal Attributor
type AttributionOptions struct {
	FallbackMargin time.Duration
}

// DefaultAttributionOptions trả về cấu hình mặc định
func DefaultAttributionOptions() AttributionOptions {
	return AttributionOptions{FallbackMargin: DefaultFallbackMargin}
}

// AttributionResult kết quả gán một đơn cho nhân viên/hội thoại
type AttributionResult struct {
	Found           bool
	EmployeeID      string // rỗng nếu anchor và hội thoại đều chưa có nhân viên
	ConversationID  string
	AnchorMessageID string
	AnchorAt        time.Time
	EmployeeSource  string // responder | conversation
	Fallback        bool   // anchor chỉ tìm thấy trong khoảng biên dự phòng
}

// isStaffAttributable tin nhắn có thể là của nhân viên.
// Tin nhắn do chính khách gửi (fromId = id kênh ngoài của khách hoặc participant của hội thoại)
// không bao giờ được chọn, kể cả khi đã có responderId.
func isStaffAttributable(m models.Message, customerExternalID string, conv *models.Conversation) bool {
	if m.FromID != "" {
		if customerExternalID != "" && m.FromID == customerExternalID {
			return false
		}
		if conv != nil && conv.ParticipantID != "" && m.FromID == conv.ParticipantID {
			return false
		}
		if m.ParticipantID != "" && m.FromID == m.ParticipantID {
			return false
		}
	}
	return m.ResponderID != "" || m.FromID != ""
}

// findAnchor tin nhắn nhân viên có createdAt lớn nhất và <= bound.
// Trùng thời điểm: tin nhắn đứng sau trong danh sách thắng.
func findAnchor(messages []models.Message, bound time.Time, customerExternalID string, convs map[string]*models.Conversation) (models.Message, bool) {
	var anchor models.Message
	found := false
	for _, m := range messages {
		if m.CreatedAt.IsZero() || m.CreatedAt.After(bound) {
			continue
		}
		if !isStaffAttributable(m, customerExternalID, convs[m.ConversationID]) {
			continue
		}
		if !found || !m.CreatedAt.Before(anchor.CreatedAt) {
			anchor = m
			found = true
		}
	}
	return anchor, found
}

// AttributeOrder tìm anchor message cho đơn và suy ra nhân viên + hội thoại.
//
//   - anchor = tin nhắn nhân viên gần nhất tại hoặc trước order.Date
//   - nhân viên = responderId của anchor, nếu trống thì assignedEmployeeId của hội thoại chứa anchor
//   - không có anchor: thử lại với mốc order.Date + FallbackMargin, kết quả được đánh dấu Fallback
//   - vẫn không có: Found=false, không đoán
func AttributeOrder(order models.Order, customer models.Customer, messages []models.Message, conversations []models.Conversation, opts AttributionOptions) AttributionResult {
	if order.Date.IsZero() || len(messages) == 0 {
		return AttributionResult{}
	}
	convs := make(map[string]*models.Conversation, len(conversations))
	for i := range conversations {
		convs[conversations[i].ID] = &conversations[i]
	}

	anchor, ok := findAnchor(messages, order.Date, customer.FacebookID, convs)
	fallback := false
	if !ok && opts.FallbackMargin > 0 {
		anchor, ok = findAnchor(messages, order.Date.Add(opts.FallbackMargin), customer.FacebookID, convs)
		fallback = ok
	}
	if !ok {
		return AttributionResult{}
	}

	res := AttributionResult{
		Found:           true,
		ConversationID:  anchor.ConversationID,
		AnchorMessageID: anchor.ID,
		AnchorAt:        anchor.CreatedAt,
		Fallback:        fallback,
	}
	switch {
	case anchor.ResponderID != "":
		res.EmployeeID = anchor.ResponderID
		res.EmployeeSource = EmployeeFromResponder
	case convs[anchor.ConversationID] != nil && convs[anchor.ConversationID].AssignedEmployeeID != "":
		res.EmployeeID = convs[anchor.ConversationID].AssignedEmployeeID
		res.EmployeeSource = EmployeeFromConversation
	}
	return res
}
