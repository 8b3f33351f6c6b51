package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"data_hub/internal/api/reconcile/models"
	reconcilesvc "data_hub/internal/api/reconcile/service"
	"data_hub/internal/common"
)

type fakeRunner struct {
	mu        sync.Mutex
	calls     []string
	failOn    string
	panicOn   string
	interrupt string
	// jobs nil = cả hai job backfill đã đăng ký
	jobs []string
}

func (f *fakeRunner) JobNames() []string {
	if f.jobs == nil {
		return []string{reconcilesvc.JobBackfillOrderAttribution, reconcilesvc.JobBackfillResponders}
	}
	return f.jobs
}

func (f *fakeRunner) RunJob(ctx context.Context, name string) (*models.RunSummary, error) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
	if name == f.panicOn {
		panic("boom")
	}
	if name == f.failOn {
		return nil, common.ErrLockHeld
	}
	s := models.NewRunSummary(name, "run", time.Now())
	s.Interrupted = name == f.interrupt
	return s, nil
}

func (f *fakeRunner) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func TestTick_RunsRespondersBeforeOrders(t *testing.T) {
	r := &fakeRunner{}
	w := NewReconcileWorker(r, time.Minute)

	assert.Equal(t, 2, w.Tick(context.Background()))
	assert.Equal(t, []string{reconcilesvc.JobBackfillResponders, reconcilesvc.JobBackfillOrderAttribution}, r.Calls())
}

func TestNewReconcileWorker_SkipsUnregisteredJobs(t *testing.T) {
	r := &fakeRunner{jobs: []string{reconcilesvc.JobMergeCustomers, reconcilesvc.JobBackfillOrderAttribution}}
	w := NewReconcileWorker(r, time.Minute)

	assert.Equal(t, 1, w.Tick(context.Background()))
	assert.Equal(t, []string{reconcilesvc.JobBackfillOrderAttribution}, r.Calls())
}

func TestStart_NoBackfillJobs(t *testing.T) {
	r := &fakeRunner{jobs: []string{reconcilesvc.JobMergeCustomers, reconcilesvc.JobSyncAliases}}
	done := make(chan struct{})
	go func() {
		NewReconcileWorker(r, time.Millisecond).Start(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker không có job phải trả về ngay")
	}
	assert.Empty(t, r.Calls())
}

func TestTick_StopsAfterFailure(t *testing.T) {
	tests := []struct {
		name   string
		runner *fakeRunner
	}{
		{"setup error", &fakeRunner{failOn: reconcilesvc.JobBackfillResponders}},
		{"interrupted", &fakeRunner{interrupt: reconcilesvc.JobBackfillResponders}},
		{"panic", &fakeRunner{panicOn: reconcilesvc.JobBackfillResponders}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewReconcileWorker(tt.runner, time.Minute)
			assert.NotPanics(t, func() { w.Tick(context.Background()) })
			assert.Equal(t, []string{reconcilesvc.JobBackfillResponders}, tt.runner.Calls())
		})
	}
}

func TestTick_CancelledContext(t *testing.T) {
	r := &fakeRunner{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, 0, NewReconcileWorker(r, time.Minute).Tick(ctx))
	assert.Empty(t, r.Calls())
}

func TestStart_Disabled(t *testing.T) {
	done := make(chan struct{})
	go func() {
		NewReconcileWorker(&fakeRunner{}, 0).Start(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled worker should return immediately")
	}
}

func TestStart_TicksUntilCancelled(t *testing.T) {
	r := &fakeRunner{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewReconcileWorker(r, 10*time.Millisecond).Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return len(r.Calls()) >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
