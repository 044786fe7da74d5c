package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"lesson-booking/internal/model"
	"lesson-booking/internal/queue"
	"lesson-booking/internal/worker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSyncer struct {
	mu       sync.Mutex
	calls    []int
	failures int
	called   chan int
}

func newFakeSyncer(failures int) *fakeSyncer {
	return &fakeSyncer{failures: failures, called: make(chan int, 16)}
}

func (f *fakeSyncer) RefreshAvailability(ctx context.Context, scheduleID int) error {
	f.mu.Lock()
	f.calls = append(f.calls, scheduleID)
	fail := f.failures > 0
	if fail {
		f.failures--
	}
	f.mu.Unlock()

	f.called <- scheduleID
	if fail {
		return errors.New("redis unavailable")
	}
	return nil
}

func (f *fakeSyncer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func waitCalls(t *testing.T, f *fakeSyncer, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-f.called:
		case <-time.After(time.Second):
			t.Fatalf("超時！只收到 %d 次 refresh", i)
		}
	}
}

func TestEventWorker_RefreshesScheduleAvailability(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	q := queue.NewMemoryEventQueue(10)
	syncer := newFakeSyncer(0)
	w := worker.NewEventWorker(syncer, q)
	require.NoError(t, w.Start(ctx))

	event := model.NewDomainEvent(model.EventReservationCreated, time.Now())
	event.ScheduleID = 42
	require.NoError(t, q.Publish(ctx, event))

	waitCalls(t, syncer, 1)
	assert.Equal(t, 1, syncer.count())
}

func TestEventWorker_SkipsEventsWithoutSchedule(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	q := queue.NewMemoryEventQueue(10)
	syncer := newFakeSyncer(0)
	w := worker.NewEventWorker(syncer, q)
	require.NoError(t, w.Start(ctx))

	purchased := model.NewDomainEvent(model.EventTicketPurchased, time.Now())
	purchased.UserID = 1
	require.NoError(t, q.Publish(ctx, purchased))

	marker := model.NewDomainEvent(model.EventScheduleStarted, time.Now())
	marker.ScheduleID = 7
	require.NoError(t, q.Publish(ctx, marker))

	waitCalls(t, syncer, 1)
	assert.Equal(t, 1, syncer.count())
}

func TestEventWorker_RetriesThenDrops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	q := queue.NewMemoryEventQueue(10)
	syncer := newFakeSyncer(10)
	w := worker.NewEventWorker(syncer, q)
	require.NoError(t, w.Start(ctx))

	event := model.NewDomainEvent(model.EventReservationCancelled, time.Now())
	event.ScheduleID = 5
	require.NoError(t, q.Publish(ctx, event))

	waitCalls(t, syncer, 3)

	// 第三次失敗後不再重送
	select {
	case <-syncer.called:
		t.Fatal("超過重試上限仍被重送")
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	w.Wait()
	assert.Equal(t, 3, syncer.count())
}
