package models

import "time"

// Conversation cuộc hội thoại Messenger của một khách.
// AssignedAgent là nhãn text cũ (trước khi có khoá AssignedEmployeeID), được backfill qua Identity Resolver.
type Conversation struct {
	ID                 string    `json:"id" bson:"_id"`
	CustomerID         string    `json:"customerId" bson:"customerId"`
	ParticipantID      string    `json:"participantId,omitempty" bson:"participantId,omitempty"` // PSID của khách trong hội thoại
	AssignedEmployeeID string    `json:"assignedEmployeeId,omitempty" bson:"assignedEmployeeId,omitempty"`
	AssignedAgent      string    `json:"assignedAgent,omitempty" bson:"assignedAgent,omitempty"`
	LastMessageAt      time.Time `json:"lastMessageAt,omitempty" bson:"lastMessageAt,omitempty"`
}

// Message tin nhắn trong hội thoại.
type Message struct {
	ID             string    `json:"id" bson:"_id"`
	ConversationID string    `json:"conversationId" bson:"conversationId"`
	FromID         string    `json:"fromId,omitempty" bson:"fromId,omitempty"`
	FromName       string    `json:"fromName,omitempty" bson:"fromName,omitempty"`
	ResponderID    string    `json:"responderId,omitempty" bson:"responderId,omitempty"`
	Content        string    `json:"content,omitempty" bson:"content,omitempty"`
	CreatedAt      time.Time `json:"createdAt" bson:"createdAt"`

	// ParticipantID lấy từ conversation khi store liệt kê tin nhắn cần backfill (chỉ đọc)
	ParticipantID string `json:"participantId,omitempty" bson:"-"`
}
