package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"data_hub/internal/api/reconcile/models"
	reconcilesvc "data_hub/internal/api/reconcile/service"
	"data_hub/internal/common"
)

var _ reconcilesvc.Store = (*Store)(nil)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func exec(t *testing.T, s *Store, query string, args ...interface{}) {
	t.Helper()
	_, err := s.db.Exec(s.q(query), args...)
	require.NoError(t, err)
}

func ts(h, m int) time.Time {
	return time.Date(2026, 2, 14, h, m, 0, 0, time.UTC)
}

func seed(t *testing.T, s *Store) {
	exec(t, s, `INSERT INTO employees (id, employee_code, first_name, last_name, nick_name, aliases, status) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		"e004", "e004", "Jutamat", "Sangprakai", "Fah", pq.StringArray{"Jutamat Fah N'Finn Sangprakai"}, "Active")
	exec(t, s, `INSERT INTO employees (id, employee_code, first_name, status) VALUES (?, ?, ?, ?)`, "e009", "e009", "Kanda", "Inactive")
	exec(t, s, `INSERT INTO customers (id, facebook_id, name) VALUES (?, ?, ?)`, "c1", "psid-1", "Khun A")
	exec(t, s, `INSERT INTO conversations (id, customer_id, participant_id, assigned_agent) VALUES (?, ?, ?, ?)`, "conv1", "c1", "psid-1", "Fah")
	exec(t, s, `INSERT INTO messages (id, conversation_id, from_id, from_name, created_at) VALUES (?, ?, ?, ?, ?)`, "m2", "conv1", "page", "Fah", ts(11, 59))
	exec(t, s, `INSERT INTO messages (id, conversation_id, from_id, from_name, created_at) VALUES (?, ?, ?, ?, ?)`, "m1", "conv1", "psid-1", "Khun A", ts(11, 0))
	exec(t, s, `INSERT INTO messages (id, conversation_id, from_id, from_name, responder_id, created_at) VALUES (?, ?, ?, ?, ?, ?)`, "m3", "conv1", "page", "Fah", "e004", ts(12, 5))
	exec(t, s, `INSERT INTO orders (id, order_code, customer_id, date, total_amount) VALUES (?, ?, ?, ?, ?)`, "o1", "SO-1", "c1", ts(12, 0), 3900.0)
	exec(t, s, `INSERT INTO orders (id, customer_id, date, closed_by_id, conversation_id) VALUES (?, ?, ?, ?, ?)`, "o2", "c1", ts(13, 0), "e004", "conv1")
}

func TestOpen_RequiresDSN(t *testing.T) {
	_, err := Open(context.Background(), DriverSQLite, "")
	assert.ErrorIs(t, err, common.ErrConfiguration)

	_, err = Open(context.Background(), "mysql", "x")
	assert.ErrorIs(t, err, common.ErrConfiguration)
}

func TestRebind(t *testing.T) {
	q := "UPDATE t SET a = ? WHERE id = ? AND b = ?"
	assert.Equal(t, q, rebind(DriverSQLite, q))
	assert.Equal(t, "UPDATE t SET a = $1 WHERE id = $2 AND b = $3", rebind(DriverPostgres, q))
}

func TestSchema_Dialects(t *testing.T) {
	assert.Contains(t, schema(DriverPostgres), "aliases TEXT[]")
	assert.Contains(t, schema(DriverPostgres), "document JSONB")
	assert.NotContains(t, schema(DriverSQLite), "JSONB")
}

func TestEmployees(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	seed(t, s)

	employees, err := s.ListActiveEmployees(ctx)
	require.NoError(t, err)
	require.Len(t, employees, 1)
	assert.Equal(t, "Fah", employees[0].NickName)
	assert.Equal(t, []string{"Jutamat Fah N'Finn Sangprakai"}, employees[0].Aliases)

	require.NoError(t, s.UpdateEmployeeAliases(ctx, "e004", []string{"Fah", "Jutamat Sangprakai"}))
	employees, err = s.ListActiveEmployees(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fah", "Jutamat Sangprakai"}, employees[0].Aliases)

	assert.ErrorIs(t, s.UpdateEmployeeAliases(ctx, "nobody", []string{"x"}), common.ErrNotFound)
}

func TestMessages(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	seed(t, s)

	unresolved, err := s.ListUnresolvedMessages(ctx)
	require.NoError(t, err)
	require.Len(t, unresolved, 2, "m3 đã có responder")
	assert.Equal(t, "m1", unresolved[0].ID, "sắp xếp theo thời gian")
	assert.Equal(t, "psid-1", unresolved[0].ParticipantID)

	all, err := s.ListMessagesForCustomer(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"m1", "m2", "m3"}, []string{all[0].ID, all[1].ID, all[2].ID})
	assert.True(t, all[1].CreatedAt.Equal(ts(11, 59)))

	changed, err := s.UpdateMessageResponder(ctx, "m2", "e004")
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = s.UpdateMessageResponder(ctx, "m2", "e999")
	require.NoError(t, err)
	assert.False(t, changed, "không ghi đè responder đã có")
	_, err = s.UpdateMessageResponder(ctx, "missing", "e004")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestConversations(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	seed(t, s)

	convs, err := s.ListUnassignedConversations(ctx)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.True(t, convs[0].LastMessageAt.IsZero())

	changed, err := s.UpdateConversationAssignment(ctx, "conv1", "e004")
	require.NoError(t, err)
	assert.True(t, changed)

	convs, err = s.ListUnassignedConversations(ctx)
	require.NoError(t, err)
	assert.Empty(t, convs)

	byCustomer, err := s.ListConversationsForCustomer(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, byCustomer, 1)
	assert.Equal(t, "e004", byCustomer[0].AssignedEmployeeID)
}

func TestOrders(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	seed(t, s)

	orders, err := s.ListOrdersNeedingAttribution(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "SO-1", orders[0].OrderCode)
	assert.Equal(t, 3900.0, orders[0].TotalAmount)

	c, err := s.GetCustomer(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "psid-1", c.FacebookID)
	_, err = s.GetCustomer(ctx, "nobody")
	assert.ErrorIs(t, err, common.ErrNotFound)

	changed, err := s.UpdateOrderAttribution(ctx, "o1", "", "conv1")
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = s.UpdateOrderAttribution(ctx, "o1", "e004", "conv-other")
	require.NoError(t, err)
	assert.True(t, changed, "closedById vẫn trống nên được ghi")

	orders, err = s.ListOrdersNeedingAttribution(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)

	changed, err = s.UpdateOrderAttribution(ctx, "o1", "e009", "conv9")
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = s.UpdateOrderAttribution(ctx, "missing", "e004", "")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestProfiles_ApplyMerge(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	for _, p := range []models.CustomerProfile{
		{ID: "WB-001", Profile: models.ProfileInfo{Agent: "Fah"}, Extra: models.Extra{"source": "wb"}},
		{ID: "FB-077", Orders: []models.ProfileOrder{{OrderID: "1", TotalAmount: 3900}}},
		{ID: "FB-099"},
	} {
		require.NoError(t, s.PersistProfile(ctx, p))
	}

	profiles, err := s.ListCustomerProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, profiles, 3)
	assert.Equal(t, "FB-077", profiles[0].ID)
	assert.Equal(t, "wb", profiles[2].Extra["source"], "field lạ được giữ")

	canonical := profiles[2]
	canonical.Orders = profiles[0].Orders
	require.NoError(t, s.ApplyMerge(ctx, canonical, []string{"FB-077", "FB-099"}, "backup_reconciliation_1"))

	profiles, err = s.ListCustomerProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Len(t, profiles[0].Orders, 1)

	archived, err := s.ArchivedProfileIDs(ctx, "backup_reconciliation_1")
	require.NoError(t, err)
	assert.Equal(t, []string{"FB-077", "FB-099"}, archived)
}

func TestProfiles_ApplyMergeRollsBack(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	require.NoError(t, s.PersistProfile(ctx, models.CustomerProfile{ID: "WB-001"}))
	require.NoError(t, s.PersistProfile(ctx, models.CustomerProfile{ID: "FB-077"}))

	merged := models.CustomerProfile{ID: "WB-001", Profile: models.ProfileInfo{Agent: "changed"}}
	err := s.ApplyMerge(ctx, merged, []string{"FB-077", "FB-missing"}, "backup_reconciliation_2")
	require.ErrorIs(t, err, common.ErrNotFound)

	profiles, err := s.ListCustomerProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, profiles, 2, "nhóm giữ nguyên khi merge lỗi")
	assert.Empty(t, profiles[1].Profile.Agent)

	archived, err := s.ArchivedProfileIDs(ctx, "backup_reconciliation_2")
	require.NoError(t, err)
	assert.Empty(t, archived)
}

func TestJobsOnSQLite(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	seed(t, s)

	job := &reconcilesvc.ResponderBackfillJob{
		Employees: s, Messages: s, Conversations: s,
		Resolver: reconcilesvc.DefaultResolverOptions(),
	}
	summary, err := job.Run(ctx, "run-sql")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Succeeded, "m2 và conv1")

	orders := &reconcilesvc.OrderAttributionJob{Orders: s, Messages: s, Conversations: s, Options: reconcilesvc.DefaultAttributionOptions()}
	summary, err = orders.Run(ctx, "run-sql-2")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)

	remaining, err := s.ListOrdersNeedingAttribution(ctx)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}
