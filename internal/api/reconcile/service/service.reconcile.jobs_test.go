package reconcilesvc

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"data_hub/internal/api/reconcile/models"
	"data_hub/internal/common"
	"data_hub/internal/lock"
	"data_hub/internal/store/memstore"
)

var _ Store = (*memstore.Store)(nil)
var _ AdsChatSource = (*memstore.Store)(nil)
var _ Locker = (*lock.LocalLocker)(nil)

type recordedEvent struct {
	Type string
	Data interface{}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []recordedEvent
	err    error
}

func (p *fakePublisher) Publish(ctx context.Context, eventType string, data interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, recordedEvent{Type: eventType, Data: data})
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func fixedNow() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }

func seedChatStore() *memstore.Store {
	s := memstore.New()
	s.AddEmployees(testEmployees()...)
	s.AddCustomers(models.Customer{ID: "c1", FacebookID: "psid-1"})
	s.AddConversations(
		models.Conversation{ID: "conv1", CustomerID: "c1", ParticipantID: "psid-1", AssignedAgent: "Jutamat Sangprakai"},
		models.Conversation{ID: "conv2", CustomerID: "c2", ParticipantID: "psid-2", AssignedAgent: "Unassigned"},
	)
	s.AddMessages(
		models.Message{ID: "m1", ConversationID: "conv1", FromID: "page", FromName: "น้องฟ้า Fah", CreatedAt: at(11, 59)},
		models.Message{ID: "m2", ConversationID: "conv1", FromID: "psid-1", FromName: "Customer Fah", CreatedAt: at(11, 58)},
		models.Message{ID: "m3", ConversationID: "conv1", FromID: "page", FromName: "Somchai", CreatedAt: at(10, 0)},
		models.Message{ID: "m4", ConversationID: "conv1", FromID: "page", FromName: "NuPhung", CreatedAt: at(9, 0)},
	)
	return s
}

func TestResponderBackfillJob(t *testing.T) {
	ctx := context.Background()
	store := seedChatStore()
	store.FailOn(memstore.OpUpdateMessageResponder, "m4", errors.New("disk full"))

	job := &ResponderBackfillJob{Employees: store, Messages: store, Conversations: store, Resolver: DefaultResolverOptions(), Now: fixedNow}
	summary, err := job.Run(ctx, "run-1")
	require.NoError(t, err)

	m1, _ := store.Message("m1")
	assert.Equal(t, "e004", m1.ResponderID)
	m2, _ := store.Message("m2")
	assert.Empty(t, m2.ResponderID, "tin nhắn của khách không bao giờ được gán")
	conv1, _ := store.Conversation("conv1")
	assert.Equal(t, "e004", conv1.AssignedEmployeeID)
	conv2, _ := store.Conversation("conv2")
	assert.Empty(t, conv2.AssignedEmployeeID)

	assert.Equal(t, 6, summary.Considered)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.Skipped["message:customer_message"])
	assert.Equal(t, 1, summary.Skipped["message:unresolved_name"])
	assert.Equal(t, 1, summary.Skipped["conversation:sentinel"])
	assert.Equal(t, 1, summary.Failed["message:write_error"])
	assert.Equal(t, []string{"Somchai"}, summary.Unresolved)

	t.Run("chạy lại không ghi thêm", func(t *testing.T) {
		again, err := job.Run(ctx, "run-2")
		require.NoError(t, err)
		assert.Equal(t, 0, again.Succeeded)
		m1, _ := store.Message("m1")
		assert.Equal(t, "e004", m1.ResponderID)
	})
}

func TestResponderBackfillJob_Interrupted(t *testing.T) {
	store := seedChatStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job := &ResponderBackfillJob{Employees: store, Messages: store, Conversations: store, Resolver: DefaultResolverOptions()}
	summary, err := job.Run(ctx, "run-1")
	require.NoError(t, err)
	assert.True(t, summary.Interrupted)
	assert.Equal(t, 0, summary.Considered)
}

func seedOrderStore() *memstore.Store {
	s := memstore.New()
	s.AddCustomers(
		models.Customer{ID: "c1", FacebookID: "psid-1"},
		models.Customer{ID: "c3", FacebookID: "psid-3"},
	)
	s.AddConversations(
		models.Conversation{ID: "conv1", CustomerID: "c1", ParticipantID: "psid-1", AssignedEmployeeID: "e-conv"},
	)
	s.AddMessages(
		models.Message{ID: "m1", ConversationID: "conv1", FromID: "page", ResponderID: "e004", CreatedAt: at(11, 59)},
		models.Message{ID: "m2", ConversationID: "conv1", FromID: "psid-1", CreatedAt: at(11, 59)},
		models.Message{ID: "m3", ConversationID: "conv1", FromID: "page", ResponderID: "e005", CreatedAt: at(12, 5)},
	)
	s.AddOrders(
		models.Order{ID: "o1", CustomerID: "c1", Date: orderAt},
		models.Order{ID: "o2", CustomerID: "missing", Date: orderAt},
		models.Order{ID: "o3", CustomerID: "c3", Date: orderAt},
		models.Order{ID: "o4", CustomerID: "c1", Date: at(9, 0)},
		models.Order{ID: "o5", CustomerID: "c1", Date: at(11, 55)},
		models.Order{ID: "o6", CustomerID: "c1", Date: orderAt, ClosedByID: "e-manual", ConversationID: "conv1"},
	)
	return s
}

func TestOrderAttributionJob(t *testing.T) {
	ctx := context.Background()
	store := seedOrderStore()
	store.FailOn(memstore.OpUpdateOrderAttribution, "o5", errors.New("write conflict"))
	pub := &fakePublisher{}

	job := &OrderAttributionJob{
		Orders: store, Messages: store, Conversations: store,
		Locker: lock.NewLocalLocker(), Publisher: pub,
		Options: DefaultAttributionOptions(), Now: fixedNow,
	}
	summary, err := job.Run(ctx, "run-1")
	require.NoError(t, err)

	o1, _ := store.Order("o1")
	assert.Equal(t, "e004", o1.ClosedByID)
	assert.Equal(t, "conv1", o1.ConversationID)

	assert.Equal(t, 5, summary.Considered, "o6 đã đủ thông tin nên không được liệt kê")
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Skipped["no_customer"])
	assert.Equal(t, 1, summary.Skipped["no_messages"])
	assert.Equal(t, 1, summary.Failed["no_anchor"], "o4 lúc 9:00 không có tin nhắn nhân viên trước đó")
	assert.Equal(t, 1, summary.Failed["write_error"])
	assert.Equal(t, []string{EventOrderAttributed}, pub.types())

	t.Run("chạy lại idempotent", func(t *testing.T) {
		again, err := job.Run(ctx, "run-2")
		require.NoError(t, err)
		assert.Equal(t, 0, again.Succeeded)
		o1, _ := store.Order("o1")
		assert.Equal(t, "e004", o1.ClosedByID)
	})
}

func TestOrderAttributionJob_CustomerLocked(t *testing.T) {
	ctx := context.Background()
	store := seedOrderStore()
	locker := lock.NewLocalLocker()
	unlock, err := locker.Acquire(ctx, "customer:c1")
	require.NoError(t, err)
	defer unlock(ctx)

	job := &OrderAttributionJob{Orders: store, Messages: store, Conversations: store, Locker: locker, Options: DefaultAttributionOptions()}
	summary, err := job.Run(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Skipped["locked"])
	o1, _ := store.Order("o1")
	assert.Empty(t, o1.ClosedByID)
}

func TestOrderAttributionJob_FallbackNoted(t *testing.T) {
	store := memstore.New()
	store.AddCustomers(models.Customer{ID: "c1", FacebookID: "psid-1"})
	store.AddConversations(models.Conversation{ID: "conv1", CustomerID: "c1", ParticipantID: "psid-1"})
	store.AddMessages(models.Message{ID: "m1", ConversationID: "conv1", FromID: "page", ResponderID: "e005", CreatedAt: at(12, 7)})
	store.AddOrders(models.Order{ID: "o1", CustomerID: "c1", Date: orderAt})

	job := &OrderAttributionJob{Orders: store, Messages: store, Conversations: store, Options: DefaultAttributionOptions()}
	summary, err := job.Run(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Notes["fallback"])
}

func TestProfileMergeJob_EndToEnd(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	store.AddProfiles(profileFB077(), profileWB001(), profileFB099(), models.CustomerProfile{ID: "LONELY", FacebookID: "555"}, models.CustomerProfile{ID: "NOID"})
	pub := &fakePublisher{}

	job := &ProfileMergeJob{Profiles: store, Locker: lock.NewLocalLocker(), Publisher: pub, Options: DefaultMergeOptions(), Now: fixedNow}
	summary, err := job.Run(ctx, "run-1")
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Considered)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 2, summary.Notes["profiles_archived"])
	assert.Equal(t, 1, summary.Notes["excluded_no_external_id"])

	profiles := store.Profiles()
	ids := []string{}
	for _, p := range profiles {
		ids = append(ids, p.ID)
	}
	assert.ElementsMatch(t, []string{"WB-001", "LONELY", "NOID"}, ids)

	var merged models.CustomerProfile
	for _, p := range profiles {
		if p.ID == "WB-001" {
			merged = p
		}
	}
	assert.Len(t, merged.Orders, 2)
	assert.Equal(t, 500.0, merged.Intelligence.Metrics.TotalSpend)

	dest := ArchiveDestination(fixedNow())
	assert.True(t, strings.HasPrefix(dest, "backup_reconciliation_"))
	assert.Len(t, store.Archived(dest), 2)
	assert.Equal(t, []string{EventProfileMerged}, pub.types())
}

func TestProfileMergeJob_DryRun(t *testing.T) {
	store := memstore.New()
	store.AddProfiles(profileFB077(), profileWB001())

	job := &ProfileMergeJob{Profiles: store, Options: DefaultMergeOptions(), DryRun: true, Now: fixedNow}
	summary, err := job.Run(context.Background(), "run-1")
	require.NoError(t, err)
	assert.True(t, summary.DryRun)
	assert.Equal(t, 1, summary.Notes["would_archive"])
	assert.Len(t, store.Profiles(), 2, "dry-run không ghi")
	assert.Empty(t, store.ArchiveDestinations())
}

func TestProfileMergeJob_FailedGroupLeftIntact(t *testing.T) {
	store := memstore.New()
	store.AddProfiles(
		profileWB001(), profileFB077(),
		models.CustomerProfile{ID: "A-1", FacebookID: "222"}, models.CustomerProfile{ID: "A-2", FacebookID: "222"},
	)
	store.FailOn(memstore.OpApplyMerge, "WB-001", errors.New("transaction aborted"))

	job := &ProfileMergeJob{Profiles: store, Options: DefaultMergeOptions(), Now: fixedNow}
	summary, err := job.Run(context.Background(), "run-1")
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Considered)
	assert.Equal(t, 1, summary.Succeeded, "nhóm tiếp theo vẫn chạy")
	assert.Equal(t, 1, summary.Failed["apply_error"])
	assert.Len(t, store.Profiles(), 3)
}

func TestAliasSyncJob(t *testing.T) {
	store := memstore.New()
	store.AddEmployees(testEmployees()...)

	job := &AliasSyncJob{Employees: store, Mappings: []AliasMapping{
		{EmployeeID: "e004", Aliases: []string{" Jutamat  Sangprakai ", "jutamat sangprakai", "Fah N'Finn"}},
		{EmployeeID: "ghost", Aliases: []string{"Nobody"}},
	}}
	summary, err := job.Run(context.Background(), "run-1")
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Skipped["employee_not_found"])
	assert.Equal(t, []string{"ghost"}, summary.Unresolved)

	e, _ := store.Employee("e004")
	assert.Equal(t, []string{"Jutamat Sangprakai", "Fah N'Finn"}, e.Aliases)
}

type stubJob struct {
	name    string
	summary *models.RunSummary
	err     error
	started chan struct{}
	block   chan struct{}
}

func (j *stubJob) Name() string { return j.name }

func (j *stubJob) Run(ctx context.Context, runID string) (*models.RunSummary, error) {
	if j.started != nil {
		close(j.started)
	}
	if j.block != nil {
		<-j.block
	}
	if j.err != nil {
		return nil, j.err
	}
	s := *j.summary
	s.RunID = runID
	return &s, nil
}

func TestReconcileService_RunJob(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	svc := NewReconcileService(lock.NewLocalLocker(), pub)
	require.NoError(t, svc.Register(&stubJob{name: "ok", summary: models.NewRunSummary("ok", "", fixedNow())}))
	require.NoError(t, svc.Register(&stubJob{name: "broken", err: common.ErrConfiguration}))

	assert.Equal(t, []string{"broken", "ok"}, svc.JobNames())

	t.Run("job không tồn tại", func(t *testing.T) {
		_, err := svc.RunJob(ctx, "nope")
		assert.ErrorIs(t, err, common.ErrUnknownJob)
	})

	t.Run("chạy thành công lưu summary gần nhất", func(t *testing.T) {
		summary, err := svc.RunJob(ctx, "ok")
		require.NoError(t, err)
		assert.NotEmpty(t, summary.RunID)
		last, ok := svc.LastRun("ok")
		require.True(t, ok)
		assert.Equal(t, summary.RunID, last.RunID)
		assert.Contains(t, pub.types(), EventRunCompleted)
	})

	t.Run("lỗi setup được trả về", func(t *testing.T) {
		_, err := svc.RunJob(ctx, "broken")
		assert.ErrorIs(t, err, common.ErrConfiguration)
		_, ok := svc.LastRun("broken")
		assert.False(t, ok)
	})
}

func TestReconcileService_ConcurrentRunRejected(t *testing.T) {
	ctx := context.Background()
	started := make(chan struct{})
	block := make(chan struct{})
	svc := NewReconcileService(lock.NewLocalLocker(), nil)
	require.NoError(t, svc.Register(&stubJob{name: "slow", summary: models.NewRunSummary("slow", "", fixedNow()), started: started, block: block}))

	done := make(chan error, 1)
	go func() {
		_, err := svc.RunJob(ctx, "slow")
		done <- err
	}()
	<-started

	_, err := svc.RunJob(ctx, "slow")
	assert.ErrorIs(t, err, common.ErrLockHeld, "lần chạy thứ hai phải bị từ chối khi job đang chạy")

	close(block)
	require.NoError(t, <-done)
}
