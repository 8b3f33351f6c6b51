package models

import "time"

// Order đơn hàng. ClosedByID và ConversationID rỗng = chưa được gán.
type Order struct {
	ID             string    `json:"id" bson:"_id"`
	OrderCode      string    `json:"orderId,omitempty" bson:"orderId,omitempty"`
	CustomerID     string    `json:"customerId,omitempty" bson:"customerId,omitempty"`
	Date           time.Time `json:"date" bson:"date"`
	TotalAmount    float64   `json:"totalAmount,omitempty" bson:"totalAmount,omitempty"`
	ClosedByID     string    `json:"closedById,omitempty" bson:"closedById,omitempty"`
	ConversationID string    `json:"conversationId,omitempty" bson:"conversationId,omitempty"`
}

// NeedsAttribution đơn còn thiếu nhân viên chốt hoặc hội thoại
func (o Order) NeedsAttribution() bool {
	return o.ClosedByID == "" || o.ConversationID == ""
}

// Customer khách hàng; FacebookID là định danh kênh ngoài (PSID)
type Customer struct {
	ID         string `json:"id" bson:"_id"`
	FacebookID string `json:"facebookId,omitempty" bson:"facebookId,omitempty"`
	Name       string `json:"name,omitempty" bson:"name,omitempty"`
}
