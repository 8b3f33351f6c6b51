package reconcilesvc

import (
	"context"
	"fmt"
	"time"

	"data_hub/internal/api/reconcile/models"
	"data_hub/internal/logger"
)

// ResponderBackfillJob điền responderId cho tin nhắn và assignedEmployeeId cho hội thoại
// từ tên tự do (fromName, assignedAgent). Chạy 2 pha: tin nhắn trước, hội thoại sau.
// Ghi theo kiểu chỉ-khi-trống nên chạy lại an toàn.
type ResponderBackfillJob struct {
	Employees     EmployeeStore
	Messages      MessageStore
	Conversations ConversationStore
	Resolver      ResolverOptions
	Now           func() time.Time
}

// Name tên job
func (j *ResponderBackfillJob) Name() string { return JobBackfillResponders }

// Run chạy job
func (j *ResponderBackfillJob) Run(ctx context.Context, runID string) (*models.RunSummary, error) {
	summary := models.NewRunSummary(j.Name(), runID, clock(j.Now))
	log := logger.WithJob(j.Name(), runID)

	employees, err := j.Employees.ListActiveEmployees(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active employees: %w", err)
	}
	roster := NewRoster(employees, j.Resolver)
	if roster.Len() == 0 {
		log.Warn("🔁 [IDENTITY] Không có nhân viên Active, mọi tên sẽ không khớp")
	}

	messages, err := j.Messages.ListUnresolvedMessages(ctx)
	if err != nil {
		return nil, fmt.Errorf("list unresolved messages: %w", err)
	}
	log.WithFields(map[string]interface{}{
		"employees": roster.Len(),
		"messages":  len(messages),
	}).Info("🔁 [IDENTITY] Bắt đầu điền responder cho tin nhắn")

	for _, m := range messages {
		if interrupted(ctx, summary) {
			break
		}
		summary.Considered++
		if m.ResponderID != "" {
			summary.Skip("message:already_set")
			continue
		}
		if m.FromID != "" && m.ParticipantID != "" && m.FromID == m.ParticipantID {
			summary.Skip("message:customer_message")
			continue
		}
		empID, ok := j.resolve(roster, m.FromName, "message", summary)
		if !ok {
			continue
		}
		changed, err := j.Messages.UpdateMessageResponder(ctx, m.ID, empID)
		if err != nil {
			summary.Fail("message:write_error")
			log.WithError(err).WithFields(map[string]interface{}{
				"messageId":  m.ID,
				"employeeId": empID,
			}).Warn("🔁 [IDENTITY] Ghi responderId thất bại, bỏ qua")
			continue
		}
		if !changed {
			summary.Skip("message:already_set")
			continue
		}
		summary.Succeeded++
		summary.Note("messages_linked")
		logger.LogChange(logger.ChangeRecord{
			Job: j.Name(), RunID: runID, Action: "set_responder", EntityType: "message", EntityID: m.ID,
			Details: map[string]interface{}{"responderId": empID, "fromName": m.FromName},
		})
	}

	if summary.Interrupted {
		summary.Finish(clock(j.Now))
		return summary, nil
	}

	conversations, err := j.Conversations.ListUnassignedConversations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list unassigned conversations: %w", err)
	}
	log.WithField("conversations", len(conversations)).Info("🔁 [IDENTITY] Bắt đầu gán nhân viên cho hội thoại")

	for _, c := range conversations {
		if interrupted(ctx, summary) {
			break
		}
		summary.Considered++
		if c.AssignedEmployeeID != "" {
			summary.Skip("conversation:already_set")
			continue
		}
		empID, ok := j.resolve(roster, c.AssignedAgent, "conversation", summary)
		if !ok {
			continue
		}
		changed, err := j.Conversations.UpdateConversationAssignment(ctx, c.ID, empID)
		if err != nil {
			summary.Fail("conversation:write_error")
			log.WithError(err).WithFields(map[string]interface{}{
				"conversationId": c.ID,
				"employeeId":     empID,
			}).Warn("🔁 [IDENTITY] Ghi assignedEmployeeId thất bại, bỏ qua")
			continue
		}
		if !changed {
			summary.Skip("conversation:already_set")
			continue
		}
		summary.Succeeded++
		summary.Note("conversations_linked")
		logger.LogChange(logger.ChangeRecord{
			Job: j.Name(), RunID: runID, Action: "assign_conversation", EntityType: "conversation", EntityID: c.ID,
			Details: map[string]interface{}{"assignedEmployeeId": empID, "assignedAgent": c.AssignedAgent},
		})
	}

	summary.Finish(clock(j.Now))
	return summary, nil
}

// resolve tra tên và ghi lý do bỏ qua vào summary với tiền tố phase
func (j *ResponderBackfillJob) resolve(roster *Roster, name, phase string, summary *models.RunSummary) (string, bool) {
	res := roster.Resolve(name)
	switch {
	case res.Ignored:
		summary.Skip(phase + ":sentinel")
		return "", false
	case !res.Matched:
		summary.Skip(phase + ":unresolved_name")
		summary.AddUnresolved(name)
		return "", false
	}
	if res.Ambiguous() {
		summary.Note("ambiguous_name")
		summary.AddAmbiguous(name)
	}
	return res.EmployeeID, true
}
