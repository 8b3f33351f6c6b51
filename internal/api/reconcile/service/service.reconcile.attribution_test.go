package reconcilesvc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"data_hub/internal/api/reconcile/models"
)

var orderAt = time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC)

func at(hour, min int) time.Time {
	return time.Date(2026, 2, 14, hour, min, 0, 0, time.UTC)
}

func attributionFixture() (models.Order, models.Customer, []models.Conversation) {
	order := models.Order{ID: "o1", CustomerID: "c1", Date: orderAt}
	customer := models.Customer{ID: "c1", FacebookID: "psid-1"}
	convs := []models.Conversation{{ID: "conv1", CustomerID: "c1", ParticipantID: "psid-1", AssignedEmployeeID: "e-conv"}}
	return order, customer, convs
}

func TestAttributeOrder_LatestMessageBeforeOrder(t *testing.T) {
	order, customer, convs := attributionFixture()
	messages := []models.Message{
		{ID: "m1", ConversationID: "conv1", FromID: "page", ResponderID: "e004", CreatedAt: at(11, 59)},
		{ID: "m2", ConversationID: "conv1", FromID: "page", ResponderID: "e005", CreatedAt: at(12, 5)},
	}

	res := AttributeOrder(order, customer, messages, convs, DefaultAttributionOptions())
	assert.True(t, res.Found)
	assert.Equal(t, "m1", res.AnchorMessageID, "11:59 được chọn, 12:05 nằm sau thời điểm đơn")
	assert.Equal(t, "e004", res.EmployeeID)
	assert.Equal(t, "conv1", res.ConversationID)
	assert.Equal(t, EmployeeFromResponder, res.EmployeeSource)
	assert.False(t, res.Fallback)
}

func TestAttributeOrder_FallbackMargin(t *testing.T) {
	order, customer, convs := attributionFixture()

	t.Run("tin nhắn 12:07 chỉ tìm thấy trong biên dự phòng", func(t *testing.T) {
		messages := []models.Message{{ID: "m1", ConversationID: "conv1", FromID: "page", ResponderID: "e005", CreatedAt: at(12, 7)}}
		res := AttributeOrder(order, customer, messages, convs, DefaultAttributionOptions())
		assert.True(t, res.Found)
		assert.True(t, res.Fallback)
		assert.Equal(t, "e005", res.EmployeeID)
	})

	t.Run("tin nhắn 12:11 nằm ngoài biên", func(t *testing.T) {
		messages := []models.Message{{ID: "m1", ConversationID: "conv1", FromID: "page", ResponderID: "e005", CreatedAt: at(12, 11)}}
		res := AttributeOrder(order, customer, messages, convs, DefaultAttributionOptions())
		assert.False(t, res.Found)
		assert.Empty(t, res.EmployeeID)
	})

	t.Run("tắt biên dự phòng", func(t *testing.T) {
		messages := []models.Message{{ID: "m1", ConversationID: "conv1", FromID: "page", ResponderID: "e005", CreatedAt: at(12, 7)}}
		res := AttributeOrder(order, customer, messages, convs, AttributionOptions{})
		assert.False(t, res.Found)
	})
}

func TestAttributeOrder_ExcludesCustomerMessages(t *testing.T) {
	order, customer, convs := attributionFixture()
	messages := []models.Message{
		{ID: "staff", ConversationID: "conv1", FromID: "page", ResponderID: "e004", CreatedAt: at(11, 50)},
		// khách gửi, dù đã bị gán nhầm responderId
		{ID: "cust1", ConversationID: "conv1", FromID: "psid-1", ResponderID: "e-wrong", CreatedAt: at(11, 58)},
		{ID: "cust2", ConversationID: "conv1", FromID: "psid-1", CreatedAt: at(11, 59)},
	}

	res := AttributeOrder(order, customer, messages, convs, DefaultAttributionOptions())
	assert.True(t, res.Found)
	assert.Equal(t, "staff", res.AnchorMessageID)
	assert.Equal(t, "e004", res.EmployeeID)
}

func TestAttributeOrder_EmployeeFromConversation(t *testing.T) {
	order, customer, convs := attributionFixture()
	messages := []models.Message{{ID: "m1", ConversationID: "conv1", FromID: "page", CreatedAt: at(11, 30)}}

	res := AttributeOrder(order, customer, messages, convs, DefaultAttributionOptions())
	assert.True(t, res.Found)
	assert.Equal(t, "e-conv", res.EmployeeID)
	assert.Equal(t, EmployeeFromConversation, res.EmployeeSource)
}

func TestAttributeOrder_NoEmployeeAnywhere(t *testing.T) {
	order, customer, _ := attributionFixture()
	convs := []models.Conversation{{ID: "conv1", CustomerID: "c1", ParticipantID: "psid-1"}}
	messages := []models.Message{{ID: "m1", ConversationID: "conv1", FromID: "page", CreatedAt: at(11, 30)}}

	res := AttributeOrder(order, customer, messages, convs, DefaultAttributionOptions())
	assert.True(t, res.Found, "vẫn gán được hội thoại")
	assert.Empty(t, res.EmployeeID)
	assert.Equal(t, "conv1", res.ConversationID)
}

func TestAttributeOrder_TieLaterInStorageOrderWins(t *testing.T) {
	order, customer, convs := attributionFixture()
	messages := []models.Message{
		{ID: "first", ConversationID: "conv1", FromID: "page", ResponderID: "e1", CreatedAt: at(11, 59)},
		{ID: "second", ConversationID: "conv1", FromID: "page", ResponderID: "e2", CreatedAt: at(11, 59)},
	}
	res := AttributeOrder(order, customer, messages, convs, DefaultAttributionOptions())
	assert.Equal(t, "second", res.AnchorMessageID)
}

func TestAttributeOrder_NoMessages(t *testing.T) {
	order, customer, convs := attributionFixture()
	res := AttributeOrder(order, customer, nil, convs, DefaultAttributionOptions())
	assert.False(t, res.Found)
}

func TestAttributeOrder_MessageExactlyAtOrderTime(t *testing.T) {
	order, customer, convs := attributionFixture()
	messages := []models.Message{{ID: "m1", ConversationID: "conv1", FromID: "page", ResponderID: "e1", CreatedAt: orderAt}}
	res := AttributeOrder(order, customer, messages, convs, DefaultAttributionOptions())
	assert.True(t, res.Found)
	assert.False(t, res.Fallback, "createdAt bằng thời điểm đơn thuộc cửa sổ chính")
}
