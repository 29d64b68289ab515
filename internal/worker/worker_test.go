package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"neowatch/internal/service"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeIngest struct {
	mu       sync.Mutex
	calls    int
	deadline bool
	called   chan struct{}
	block    bool
}

func (f *fakeIngest) Sync(ctx context.Context, _ service.SyncOptions) service.SyncResult {
	f.mu.Lock()
	f.calls++
	_, f.deadline = ctx.Deadline()
	f.mu.Unlock()

	select {
	case f.called <- struct{}{}:
	default:
	}
	if f.block {
		<-ctx.Done()
		return service.SyncResult{Success: false, Error: ctx.Err().Error(), Err: ctx.Err()}
	}
	return service.SyncResult{Success: true}
}

func TestNewSyncWorker_InvalidSchedule(t *testing.T) {
	_, err := NewSyncWorker(&fakeIngest{}, SyncWorkerConfig{Schedule: "every tuesday"}, zap.NewNop())
	assert.Error(t, err)
}

func TestSyncWorker_RunsOnStart(t *testing.T) {
	fake := &fakeIngest{called: make(chan struct{}, 1)}
	w, err := NewSyncWorker(fake, SyncWorkerConfig{
		Schedule:   "0 0 0 1 1 *",
		Timeout:    time.Minute,
		RunOnStart: true,
	}, zap.NewNop())
	require.NoError(t, err)

	w.Start()
	select {
	case <-fake.called:
	case <-time.After(5 * time.Second):
		t.Fatal("sync pass did not run")
	}
	w.Stop()

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, 1, fake.calls)
	assert.True(t, fake.deadline)
}

func TestSyncWorker_StopCancelsRunningPass(t *testing.T) {
	fake := &fakeIngest{called: make(chan struct{}, 1), block: true}
	w, err := NewSyncWorker(fake, SyncWorkerConfig{
		Schedule:   "0 0 0 1 1 *",
		RunOnStart: true,
	}, zap.NewNop())
	require.NoError(t, err)

	w.Start()
	<-fake.called

	stopped := make(chan struct{})
	go func() {
		w.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestScheduler(t *testing.T) {
	fake := &fakeIngest{called: make(chan struct{}, 1)}
	w, err := NewSyncWorker(fake, SyncWorkerConfig{Schedule: "@every 1h", RunOnStart: true}, zap.NewNop())
	require.NoError(t, err)

	s := NewScheduler(zap.NewNop())
	s.AddWorker(w)
	assert.False(t, s.IsRunning())

	s.Start()
	assert.True(t, s.IsRunning())
	<-fake.called

	s.Stop(5 * time.Second)
	assert.False(t, s.IsRunning())

	// повторный вызов безопасен
	s.Start()
	s.Stop(time.Second)
	assert.False(t, s.IsRunning())
}
