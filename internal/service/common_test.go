package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"lesson-booking/internal/clock"
	"lesson-booking/internal/model"
	"lesson-booking/internal/queue"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

// fakeTx 只實作 Commit / Rollback，其餘方法由 mock repository 接手
type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (f *fakeTx) Commit(ctx context.Context) error {
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(ctx context.Context) error {
	if !f.committed {
		f.rolledBack = true
	}
	return nil
}

type fakeDB struct {
	mu  sync.Mutex
	txs []*fakeTx
}

func (d *fakeDB) BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	tx := &fakeTx{}
	d.txs = append(d.txs, tx)
	return tx, nil
}

func (d *fakeDB) commits() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, tx := range d.txs {
		if tx.committed {
			n++
		}
	}
	return n
}

var testNow = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

func newTestClock() *clock.FakeClock {
	return clock.Fake(testNow)
}

// drainEvents 取出目前已發送的事件
func drainEvents(t *testing.T, q queue.EventQueue, n int) []*model.DomainEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	deliveries, err := q.Subscribe(ctx)
	require.NoError(t, err)

	events := make([]*model.DomainEvent, 0, n)
	for len(events) < n {
		select {
		case d := <-deliveries:
			events = append(events, d.Data)
		case <-ctx.Done():
			t.Fatalf("expected %d events, got %d", n, len(events))
		}
	}
	return events
}

func upcomingSchedule(id, instructorID int, startAt time.Time) *model.Schedule {
	return &model.Schedule{
		ID:           id,
		LessonID:     1,
		InstructorID: instructorID,
		StartAt:      startAt,
		EndAt:        startAt.Add(time.Hour),
		Capacity:     10,
		Status:       model.ScheduleStatusUpcoming,
		UpdatedAt:    testNow,
	}
}

var (
	student    = model.Caller{UserID: 1, Role: model.RoleStudent}
	otherUser  = model.Caller{UserID: 2, Role: model.RoleStudent}
	instructor = model.Caller{UserID: 50, Role: model.RoleInstructor}
	staff      = model.Caller{UserID: 99, Role: model.RoleStaff}
)
