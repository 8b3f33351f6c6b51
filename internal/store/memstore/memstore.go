// Package memstore - store trong bộ nhớ cho test và chạy thử.
// Có thể cấu hình lỗi theo thao tác để kiểm tra các đường lỗi của job.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"data_hub/internal/api/reconcile/models"
	"data_hub/internal/common"
)

// Tên thao tác dùng cho failure injection
const (
	OpUpdateMessageResponder       = "UpdateMessageResponder"
	OpUpdateConversationAssignment = "UpdateConversationAssignment"
	OpUpdateOrderAttribution       = "UpdateOrderAttribution"
	OpApplyMerge                   = "ApplyMerge"
	OpListMessagesForCustomer      = "ListMessagesForCustomer"
	OpUpdateEmployeeAliases        = "UpdateEmployeeAliases"
)

// Store store trong bộ nhớ, an toàn khi dùng đồng thời.
// Thứ tự liệt kê = thứ tự thêm vào.
type Store struct {
	mu sync.RWMutex

	employees     []models.Employee
	conversations []models.Conversation
	messages      []models.Message
	orders        []models.Order
	customers     map[string]models.Customer
	profiles      []models.CustomerProfile
	archive       map[string][]models.CustomerProfile
	campaignDays  []models.CampaignDay
	chatThreads   []models.ChatThread

	failures map[string]error
}

// New tạo store rỗng
func New() *Store {
	return &Store{
		customers: make(map[string]models.Customer),
		archive:   make(map[string][]models.CustomerProfile),
		failures:  make(map[string]error),
	}
}

// FailOn cấu hình thao tác op trả về err cho entity id ("" = mọi entity)
func (s *Store) FailOn(op, id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op+":"+id] = err
}

func (s *Store) failure(op, id string) error {
	if err, ok := s.failures[op+":"+id]; ok {
		return err
	}
	if err, ok := s.failures[op+":"]; ok {
		return err
	}
	return nil
}

// Seed

func (s *Store) AddEmployees(e ...models.Employee) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.employees = append(s.employees, e...)
}

func (s *Store) AddConversations(c ...models.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations = append(s.conversations, c...)
}

func (s *Store) AddMessages(m ...models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, m...)
}

func (s *Store) AddOrders(o ...models.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, o...)
}

func (s *Store) AddCustomers(c ...models.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, x := range c {
		s.customers[x.ID] = x
	}
}

func (s *Store) AddProfiles(p ...models.CustomerProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles = append(s.profiles, p...)
}

func (s *Store) AddCampaignDays(d ...models.CampaignDay) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.campaignDays = append(s.campaignDays, d...)
}

func (s *Store) AddChatThreads(t ...models.ChatThread) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chatThreads = append(s.chatThreads, t...)
}

// Inspect

// Message bản sao tin nhắn theo id
func (s *Store) Message(id string) (models.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.messages {
		if m.ID == id {
			return m, true
		}
	}
	return models.Message{}, false
}

// Conversation bản sao hội thoại theo id
func (s *Store) Conversation(id string) (models.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.conversations {
		if c.ID == id {
			return c, true
		}
	}
	return models.Conversation{}, false
}

// Order bản sao đơn theo id
func (s *Store) Order(id string) (models.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.orders {
		if o.ID == id {
			return o, true
		}
	}
	return models.Order{}, false
}

// Employee bản sao nhân viên theo id
func (s *Store) Employee(id string) (models.Employee, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.employees {
		if e.ID == id {
			return e, true
		}
	}
	return models.Employee{}, false
}

// Profiles hồ sơ hiện tại
func (s *Store) Profiles() []models.CustomerProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.CustomerProfile(nil), s.profiles...)
}

// Archived hồ sơ đã chuyển sang destination
func (s *Store) Archived(destination string) []models.CustomerProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.CustomerProfile(nil), s.archive[destination]...)
}

// ArchiveDestinations các destination đã có dữ liệu, sắp xếp tăng dần
func (s *Store) ArchiveDestinations() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.archive))
	for k := range s.archive {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// EmployeeStore

func (s *Store) ListActiveEmployees(ctx context.Context) ([]models.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Employee, 0, len(s.employees))
	for _, e := range s.employees {
		if e.IsActive() {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) UpdateEmployeeAliases(ctx context.Context, employeeCode string, aliases []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure(OpUpdateEmployeeAliases, employeeCode); err != nil {
		return err
	}
	for i := range s.employees {
		if s.employees[i].EmployeeCode == employeeCode {
			s.employees[i].Aliases = append([]string(nil), aliases...)
			return nil
		}
	}
	return common.WithDetails(common.ErrNotFound, employeeCode)
}

// MessageStore

func (s *Store) ListUnresolvedMessages(ctx context.Context) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	participants := make(map[string]string, len(s.conversations))
	for _, c := range s.conversations {
		participants[c.ID] = c.ParticipantID
	}
	var out []models.Message
	for _, m := range s.messages {
		if strings.TrimSpace(m.FromName) == "" || m.ResponderID != "" {
			continue
		}
		m.ParticipantID = participants[m.ConversationID]
		out = append(out, m)
	}
	return out, nil
}

func (s *Store) ListMessagesForCustomer(ctx context.Context, customerID string) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure(OpListMessagesForCustomer, customerID); err != nil {
		return nil, err
	}
	convs := make(map[string]string)
	for _, c := range s.conversations {
		if c.CustomerID == customerID {
			convs[c.ID] = c.ParticipantID
		}
	}
	var out []models.Message
	for _, m := range s.messages {
		if participant, ok := convs[m.ConversationID]; ok {
			m.ParticipantID = participant
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdateMessageResponder(ctx context.Context, messageID, employeeID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure(OpUpdateMessageResponder, messageID); err != nil {
		return false, err
	}
	for i := range s.messages {
		if s.messages[i].ID != messageID {
			continue
		}
		if s.messages[i].ResponderID != "" {
			return false, nil
		}
		s.messages[i].ResponderID = employeeID
		return true, nil
	}
	return false, common.WithDetails(common.ErrNotFound, messageID)
}

// ConversationStore

func (s *Store) ListUnassignedConversations(ctx context.Context) ([]models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Conversation
	for _, c := range s.conversations {
		if strings.TrimSpace(c.AssignedAgent) != "" && c.AssignedEmployeeID == "" {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) ListConversationsForCustomer(ctx context.Context, customerID string) ([]models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Conversation
	for _, c := range s.conversations {
		if c.CustomerID == customerID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) UpdateConversationAssignment(ctx context.Context, conversationID, employeeID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure(OpUpdateConversationAssignment, conversationID); err != nil {
		return false, err
	}
	for i := range s.conversations {
		if s.conversations[i].ID != conversationID {
			continue
		}
		if s.conversations[i].AssignedEmployeeID != "" {
			return false, nil
		}
		s.conversations[i].AssignedEmployeeID = employeeID
		return true, nil
	}
	return false, common.WithDetails(common.ErrNotFound, conversationID)
}

// OrderStore

func (s *Store) ListOrdersNeedingAttribution(ctx context.Context) ([]models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Order
	for _, o := range s.orders {
		if o.NeedsAttribution() {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *Store) GetCustomer(ctx context.Context, customerID string) (models.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.customers[customerID]
	if !ok {
		return models.Customer{}, common.WithDetails(common.ErrNotFound, customerID)
	}
	return c, nil
}

func (s *Store) UpdateOrderAttribution(ctx context.Context, orderID, employeeID, conversationID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure(OpUpdateOrderAttribution, orderID); err != nil {
		return false, err
	}
	for i := range s.orders {
		o := &s.orders[i]
		if o.ID != orderID {
			continue
		}
		changed := false
		if o.ClosedByID == "" && employeeID != "" {
			o.ClosedByID = employeeID
			changed = true
		}
		if o.ConversationID == "" && conversationID != "" {
			o.ConversationID = conversationID
			changed = true
		}
		return changed, nil
	}
	return false, common.WithDetails(common.ErrNotFound, orderID)
}

// ProfileStore

func (s *Store) ListCustomerProfiles(ctx context.Context) ([]models.CustomerProfile, error) {
	return s.Profiles(), nil
}

func (s *Store) ArchiveProfile(ctx context.Context, profileID, destination string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.archiveLocked(profileID, destination)
}

func (s *Store) archiveLocked(profileID, destination string) error {
	for i, p := range s.profiles {
		if p.ID == profileID {
			s.archive[destination] = append(s.archive[destination], p)
			s.profiles = append(s.profiles[:i:i], s.profiles[i+1:]...)
			return nil
		}
	}
	return common.WithDetails(common.ErrNotFound, profileID)
}

func (s *Store) PersistProfile(ctx context.Context, profile models.CustomerProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persistLocked(profile)
	return nil
}

func (s *Store) persistLocked(profile models.CustomerProfile) {
	for i := range s.profiles {
		if s.profiles[i].ID == profile.ID {
			s.profiles[i] = profile
			return
		}
	}
	s.profiles = append(s.profiles, profile)
}

// ApplyMerge nguyên tử: kiểm tra mọi loser tồn tại trước khi thay đổi bất cứ gì
func (s *Store) ApplyMerge(ctx context.Context, canonical models.CustomerProfile, loserIDs []string, destination string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure(OpApplyMerge, canonical.ID); err != nil {
		return err
	}
	present := make(map[string]bool, len(s.profiles))
	for _, p := range s.profiles {
		present[p.ID] = true
	}
	for _, id := range loserIDs {
		if !present[id] {
			return fmt.Errorf("loser %s: %w", id, common.ErrNotFound)
		}
	}
	for _, id := range loserIDs {
		if err := s.archiveLocked(id, destination); err != nil {
			return err
		}
	}
	s.persistLocked(canonical)
	return nil
}

// AdsChatSource

func (s *Store) LoadCampaignDays(ctx context.Context, period string) ([]models.CampaignDay, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.CampaignDay
	for _, d := range s.campaignDays {
		if d.Date == "" || strings.HasPrefix(d.Date, period) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *Store) LoadChatThreads(ctx context.Context) ([]models.ChatThread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.ChatThread(nil), s.chatThreads...), nil
}

// Close không làm gì
func (s *Store) Close(ctx context.Context) error { return nil }
