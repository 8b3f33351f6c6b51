package reconcilesvc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"data_hub/internal/api/reconcile/models"
	"data_hub/internal/common"
	"data_hub/internal/logger"
)

// OrderAttributedEvent payload của EventOrderAttributed
type OrderAttributedEvent struct {
	OrderID         string    `json:"orderId"`
	CustomerID      string    `json:"customerId"`
	EmployeeID      string    `json:"employeeId,omitempty"`
	ConversationID  string    `json:"conversationId"`
	AnchorMessageID string    `json:"anchorMessageId"`
	AnchorAt        time.Time `json:"anchorAt"`
	Fallback        bool      `json:"fallback"`
}

// OrderAttributionJob gán closedById/conversationId cho đơn còn thiếu bằng Temporal Attributor.
// Mỗi khách được khoá trong lúc đọc tin nhắn và ghi đơn.
type OrderAttributionJob struct {
	Orders        OrderStore
	Messages      MessageStore
	Conversations ConversationStore
	Locker        Locker
	Publisher     Publisher
	Options       AttributionOptions
	Now           func() time.Time
}

// Name tên job
func (j *OrderAttributionJob) Name() string { return JobBackfillOrderAttribution }

// Run chạy job
func (j *OrderAttributionJob) Run(ctx context.Context, runID string) (*models.RunSummary, error) {
	summary := models.NewRunSummary(j.Name(), runID, clock(j.Now))
	log := logger.WithJob(j.Name(), runID)

	orders, err := j.Orders.ListOrdersNeedingAttribution(ctx)
	if err != nil {
		return nil, fmt.Errorf("list orders needing attribution: %w", err)
	}
	log.WithField("orders", len(orders)).Info("🔁 [ATTRIBUTION] Bắt đầu gán đơn hàng")

	for _, order := range orders {
		if interrupted(ctx, summary) {
			break
		}
		summary.Considered++
		j.attributeOne(ctx, runID, order, summary, log)
	}

	summary.Finish(clock(j.Now))
	return summary, nil
}

func (j *OrderAttributionJob) attributeOne(ctx context.Context, runID string, order models.Order, summary *models.RunSummary, log *logrus.Entry) {
	orderLog := log.WithFields(map[string]interface{}{
		"orderId":    order.ID,
		"customerId": order.CustomerID,
	})

	if !order.NeedsAttribution() {
		summary.Skip("already_attributed")
		return
	}
	if order.CustomerID == "" {
		summary.Skip("no_customer")
		return
	}
	customer, err := j.Orders.GetCustomer(ctx, order.CustomerID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			summary.Skip("no_customer")
			return
		}
		summary.Fail("read_error")
		orderLog.WithError(err).Warn("🔁 [ATTRIBUTION] Không đọc được khách hàng, bỏ qua")
		return
	}

	key := "customer:" + customer.ID
	unlock, err := acquire(ctx, j.Locker, key)
	if err != nil {
		if errors.Is(err, common.ErrLockHeld) {
			summary.Skip("locked")
			return
		}
		summary.Fail("lock_error")
		orderLog.WithError(err).Warn("🔁 [ATTRIBUTION] Không lấy được lock khách hàng, bỏ qua")
		return
	}
	defer releaseLock(unlock, key)

	messages, err := j.Messages.ListMessagesForCustomer(ctx, customer.ID)
	if err != nil {
		summary.Fail("read_error")
		orderLog.WithError(err).Warn("🔁 [ATTRIBUTION] Không đọc được tin nhắn, bỏ qua")
		return
	}
	if len(messages) == 0 {
		summary.Skip("no_messages")
		return
	}
	conversations, err := j.Conversations.ListConversationsForCustomer(ctx, customer.ID)
	if err != nil {
		summary.Fail("read_error")
		orderLog.WithError(err).Warn("🔁 [ATTRIBUTION] Không đọc được hội thoại, bỏ qua")
		return
	}

	res := AttributeOrder(order, customer, messages, conversations, j.Options)
	if !res.Found {
		summary.Fail("no_anchor")
		orderLog.WithField("orderDate", order.Date).Info("🔁 [ATTRIBUTION] Không có tin nhắn nhân viên trước thời điểm đơn")
		return
	}
	if res.Fallback {
		summary.Note("fallback")
	}
	if res.EmployeeID == "" {
		summary.Note("no_employee")
	}

	changed, err := j.Orders.UpdateOrderAttribution(ctx, order.ID, res.EmployeeID, res.ConversationID)
	if err != nil {
		summary.Fail("write_error")
		orderLog.WithError(err).Warn("🔁 [ATTRIBUTION] Ghi đơn thất bại, bỏ qua")
		return
	}
	if !changed {
		summary.Skip("already_attributed")
		return
	}
	summary.Succeeded++

	logger.LogChange(logger.ChangeRecord{
		Job: j.Name(), RunID: runID, Action: "attribute_order", EntityType: "order", EntityID: order.ID,
		Details: map[string]interface{}{
			"closedById":      res.EmployeeID,
			"conversationId":  res.ConversationID,
			"anchorMessageId": res.AnchorMessageID,
			"employeeSource":  res.EmployeeSource,
			"fallback":        res.Fallback,
		},
	})
	publish(ctx, j.Publisher, EventOrderAttributed, OrderAttributedEvent{
		OrderID:         order.ID,
		CustomerID:      customer.ID,
		EmployeeID:      res.EmployeeID,
		ConversationID:  res.ConversationID,
		AnchorMessageID: res.AnchorMessageID,
		AnchorAt:        res.AnchorAt,
		Fallback:        res.Fallback,
	})
}
