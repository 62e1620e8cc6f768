package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/newspulse/pkg/scheduler/mocks"
)

func TestScheduler_Register(t *testing.T) {
	s := New(Params{})
	noop := func(context.Context) error { return nil }

	require.NoError(t, s.Register(Task{Name: "ingest", Interval: time.Minute, Run: noop}))
	require.NoError(t, s.Register(Task{Name: "purge", Interval: time.Hour, Run: noop}))
	assert.Equal(t, []string{"ingest", "purge"}, s.Tasks())

	tbl := []struct {
		name string
		task Task
	}{
		{name: "duplicate", task: Task{Name: "ingest", Interval: time.Minute, Run: noop}},
		{name: "no name", task: Task{Interval: time.Minute, Run: noop}},
		{name: "no run", task: Task{Name: "x", Interval: time.Minute}},
		{name: "zero interval", task: Task{Name: "x", Run: noop}},
	}
	for _, tt := range tbl {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, s.Register(tt.task))
		})
	}

	s.Start(context.Background())
	defer s.Stop()
	assert.Error(t, s.Register(Task{Name: "late", Interval: time.Minute, Run: noop}), "no registration after start")
}

func TestScheduler_StartRunsOnTicks(t *testing.T) {
	var count atomic.Int32
	s := New(Params{RunOnStart: true})
	require.NoError(t, s.Register(Task{Name: "tick", Interval: 20 * time.Millisecond, Run: func(context.Context) error {
		count.Add(1)
		return nil
	}}))

	s.Start(context.Background())
	assert.Eventually(t, func() bool { return count.Load() >= 3 }, time.Second, 5*time.Millisecond)
	s.Stop()

	stopped := count.Load()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, stopped, count.Load(), "no runs after stop")
}

func TestScheduler_FailuresDontStopWorker(t *testing.T) {
	var count atomic.Int32
	s := New(Params{RunOnStart: true})
	require.NoError(t, s.Register(Task{Name: "flaky", Interval: 10 * time.Millisecond, Run: func(context.Context) error {
		n := count.Add(1)
		switch n {
		case 1:
			return errors.New("upstream down")
		case 2:
			panic("boom")
		}
		return nil
	}}))

	s.Start(context.Background())
	defer s.Stop()
	assert.Eventually(t, func() bool { return count.Load() >= 4 }, time.Second, 5*time.Millisecond)
}

func TestScheduler_RunNow(t *testing.T) {
	s := New(Params{})
	require.NoError(t, s.Register(Task{Name: "ok", Interval: time.Hour, Run: func(context.Context) error { return nil }}))
	require.NoError(t, s.Register(Task{Name: "fail", Interval: time.Hour, Run: func(context.Context) error {
		return errors.New("failed")
	}}))
	require.NoError(t, s.Register(Task{Name: "panic", Interval: time.Hour, Run: func(context.Context) error { panic("oops") }}))

	assert.NoError(t, s.RunNow(context.Background(), "ok"))
	assert.EqualError(t, s.RunNow(context.Background(), "fail"), "failed")
	err := s.RunNow(context.Background(), "panic")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked: oops")
	assert.ErrorIs(t, s.RunNow(context.Background(), "nope"), ErrUnknownTask)
}

func TestScheduler_SkipsOverlappingRuns(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	s := New(Params{})
	require.NoError(t, s.Register(Task{Name: "slow", Interval: time.Hour, Run: func(context.Context) error {
		close(started)
		<-release
		return nil
	}}))

	done := make(chan error)
	go func() { done <- s.RunNow(context.Background(), "slow") }()
	<-started

	assert.ErrorIs(t, s.RunNow(context.Background(), "slow"), ErrBusy)
	close(release)
	assert.NoError(t, <-done)
}

func TestScheduler_Locker(t *testing.T) {
	var runs atomic.Int32
	task := Task{Name: "ingest", Interval: time.Minute, Run: func(context.Context) error {
		runs.Add(1)
		return nil
	}}

	t.Run("slot kept after success", func(t *testing.T) {
		locker := &mocks.LockerMock{
			AcquireFunc: func(context.Context, string, string, time.Duration) (bool, error) { return true, nil },
			ReleaseFunc: func(context.Context, string, string) error { return nil },
		}
		s := New(Params{Locker: locker})
		s.now = func() time.Time { return time.Unix(120, 0) }
		require.NoError(t, s.Register(task))
		require.NoError(t, s.RunNow(context.Background(), "ingest"))

		require.Len(t, locker.AcquireCalls(), 1)
		acq := locker.AcquireCalls()[0]
		assert.Equal(t, "newspulse:task:ingest:2", acq.Key, "second minute slot")
		assert.Equal(t, time.Minute, acq.TTL)
		assert.Len(t, acq.Owner, 36, "uuid run id")
		assert.Empty(t, locker.ReleaseCalls(), "slot stays claimed until it expires")
		assert.Equal(t, int32(1), runs.Load())
	})

	t.Run("failed run gives the slot back", func(t *testing.T) {
		locker := &mocks.LockerMock{
			AcquireFunc: func(context.Context, string, string, time.Duration) (bool, error) { return true, nil },
			ReleaseFunc: func(context.Context, string, string) error { return nil },
		}
		s := New(Params{Locker: locker})
		require.NoError(t, s.Register(Task{Name: "fail", Interval: time.Minute, Run: func(context.Context) error {
			return errors.New("feed down")
		}}))
		require.NoError(t, s.Register(Task{Name: "panic", Interval: time.Minute, Run: func(context.Context) error {
			panic("boom")
		}}))

		require.Error(t, s.RunNow(context.Background(), "fail"))
		require.Error(t, s.RunNow(context.Background(), "panic"))
		require.Len(t, locker.ReleaseCalls(), 2)
		for i, rel := range locker.ReleaseCalls() {
			assert.Equal(t, locker.AcquireCalls()[i].Key, rel.Key)
			assert.Equal(t, locker.AcquireCalls()[i].Owner, rel.Owner)
		}
	})

	t.Run("held by another worker", func(t *testing.T) {
		runs.Store(0)
		locker := &mocks.LockerMock{
			AcquireFunc: func(context.Context, string, string, time.Duration) (bool, error) { return false, nil },
		}
		s := New(Params{Locker: locker})
		require.NoError(t, s.Register(task))
		assert.ErrorIs(t, s.RunNow(context.Background(), "ingest"), ErrBusy)
		assert.Zero(t, runs.Load())
		assert.Empty(t, locker.ReleaseCalls())
	})

	t.Run("lock error skips the run", func(t *testing.T) {
		runs.Store(0)
		locker := &mocks.LockerMock{
			AcquireFunc: func(context.Context, string, string, time.Duration) (bool, error) {
				return false, errors.New("redis down")
			},
		}
		s := New(Params{Locker: locker})
		require.NoError(t, s.Register(task))
		assert.ErrorIs(t, s.RunNow(context.Background(), "ingest"), ErrBusy)
		assert.Zero(t, runs.Load())
	})
}

// memLocker is an in-process SET NX PX with compare-and-delete release
type memLocker struct {
	mu   sync.Mutex
	keys map[string]memLock
}

type memLock struct {
	owner   string
	expires time.Time
}

func (m *memLocker) Acquire(_ context.Context, key, owner string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.keys[key]; ok && time.Now().Before(l.expires) {
		return false, nil
	}
	m.keys[key] = memLock{owner: owner, expires: time.Now().Add(ttl)}
	return true, nil
}

func (m *memLocker) Release(_ context.Context, key, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.keys[key]; ok && l.owner == owner {
		delete(m.keys, key)
	}
	return nil
}

func TestScheduler_SharedLockerRunsEachSlotOnce(t *testing.T) {
	const interval = 200 * time.Millisecond
	locker := &memLocker{keys: map[string]memLock{}}
	var runs atomic.Int32
	task := Task{Name: "ingest", Interval: interval, Run: func(context.Context) error {
		runs.Add(1)
		return nil
	}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var workers []*Scheduler
	for i := 0; i < 2; i++ {
		s := New(Params{Locker: locker})
		require.NoError(t, s.Register(task))
		s.Start(ctx)
		workers = append(workers, s)
		time.Sleep(interval / 2) // second process ticks in the middle of each slot
	}
	time.Sleep(5 * interval)
	for _, s := range workers {
		s.Stop()
	}

	// both processes tick about 11 times in total, the slots cover 6 intervals
	assert.GreaterOrEqual(t, runs.Load(), int32(4))
	assert.LessOrEqual(t, runs.Load(), int32(7), "one run per interval, not per process")
}

func TestSlotKey(t *testing.T) {
	task := Task{Name: "purge", Interval: time.Hour}
	base := time.Date(2025, 9, 22, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, slotKey(task, base), slotKey(task, base.Add(59*time.Minute)))
	assert.NotEqual(t, slotKey(task, base), slotKey(task, base.Add(time.Hour)))
	assert.Equal(t, fmt.Sprintf("newspulse:task:purge:%d", base.Unix()/3600), slotKey(task, base))
}

func TestRedisLocker(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_URL")
	if addr == "" {
		t.Skip("REDIS_TEST_URL not set")
	}
	ctx := context.Background()
	l, err := NewRedisLocker(ctx, addr)
	require.NoError(t, err)
	defer l.Close()

	key := "newspulse:test:" + time.Now().Format(time.RFC3339Nano)
	ok, err := l.Acquire(ctx, key, "owner1", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Acquire(ctx, key, "owner2", time.Second)
	require.NoError(t, err)
	assert.False(t, ok, "already held")

	require.NoError(t, l.Release(ctx, key, "owner2"), "foreign release is a no-op")
	ok, err = l.Acquire(ctx, key, "owner2", time.Second)
	require.NoError(t, err)
	assert.False(t, ok, "still held by owner1")

	require.NoError(t, l.Release(ctx, key, "owner1"))
	ok, err = l.Acquire(ctx, key, "owner2", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, l.Release(ctx, key, "owner2"))
}

func TestNewRedisLocker_BadURL(t *testing.T) {
	_, err := NewRedisLocker(context.Background(), "http://nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse redis url")
}
