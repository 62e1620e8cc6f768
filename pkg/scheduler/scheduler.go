// Package scheduler runs registered tasks on fixed intervals. Every task gets its own worker
// with a ticker, runs are serialized per task and optionally claimed through a distributed lock
// per interval slot, so several processes sharing one broker run each interval only once.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/google/uuid"
)

//go:generate moq -out mocks/locker.go -pkg mocks -skip-ensure -fmt goimports . Locker

// ErrUnknownTask returned by RunNow for a name never registered
var ErrUnknownTask = errors.New("unknown task")

// ErrBusy returned by RunNow when the task is already running
var ErrBusy = errors.New("task is running")

// Task is a named periodic job
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Locker guards a run of a task across processes
type Locker interface {
	// Acquire takes the lock for ttl, false if somebody else holds it
	Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	// Release drops the lock if it is still owned by owner
	Release(ctx context.Context, key, owner string) error
}

// Params for the scheduler
type Params struct {
	Locker     Locker // optional
	RunOnStart bool   // run every task right after Start, before the first tick
}

// Scheduler keeps registered tasks and their workers
type Scheduler struct {
	locker     Locker
	runOnStart bool
	now        func() time.Time

	mu      sync.Mutex
	tasks   map[string]*entry
	order   []string
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type entry struct {
	task    Task
	running sync.Mutex // held while a run is in progress
}

// New makes a scheduler without tasks
func New(params Params) *Scheduler {
	return &Scheduler{locker: params.Locker, runOnStart: params.RunOnStart, now: time.Now, tasks: map[string]*entry{}}
}

// Register adds a task. Tasks can't be added after Start.
func (s *Scheduler) Register(t Task) error {
	if t.Name == "" {
		return errors.New("task name is required")
	}
	if t.Run == nil {
		return fmt.Errorf("task %q has no run function", t.Name)
	}
	if t.Interval <= 0 {
		return fmt.Errorf("task %q has non-positive interval %v", t.Name, t.Interval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("can't register task %q, scheduler already started", t.Name)
	}
	if _, ok := s.tasks[t.Name]; ok {
		return fmt.Errorf("task %q already registered", t.Name)
	}
	s.tasks[t.Name] = &entry{task: t}
	s.order = append(s.order, t.Name)
	lgr.Printf("[DEBUG] registered task %s, every %v", t.Name, t.Interval)
	return nil
}

// Tasks returns names of registered tasks in registration order
func (s *Scheduler) Tasks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := make([]string, len(s.order))
	copy(res, s.order)
	return res
}

// Start launches a worker per task. Workers stop on Stop or when ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	ctx, s.cancel = context.WithCancel(ctx)

	for _, name := range s.order {
		e := s.tasks[name]
		s.wg.Add(1)
		go s.worker(ctx, e)
	}
	lgr.Printf("[INFO] scheduler started with %d tasks", len(s.order))
}

// Stop cancels all workers and waits for runs in progress
func (s *Scheduler) Stop() {
	lgr.Printf("[INFO] stopping scheduler...")
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	lgr.Printf("[INFO] scheduler stopped")
}

// RunNow runs the task synchronously and returns its error
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	e, ok := s.tasks[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}
	ran, err := s.run(ctx, e)
	if !ran && err == nil {
		return fmt.Errorf("%w: %s", ErrBusy, name)
	}
	return err
}

func (s *Scheduler) worker(ctx context.Context, e *entry) {
	defer s.wg.Done()

	ticker := time.NewTicker(e.task.Interval)
	defer ticker.Stop()

	if s.runOnStart {
		s.tick(ctx, e)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx, e)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, e *entry) {
	if _, err := s.run(ctx, e); err != nil {
		lgr.Printf("[WARN] task %s failed: %v", e.task.Name, err)
	}
}

// run executes a single run of the task. Returns false if the run was skipped,
// because the previous one is still in progress or another process holds the lock.
func (s *Scheduler) run(ctx context.Context, e *entry) (ran bool, err error) {
	if !e.running.TryLock() {
		lgr.Printf("[WARN] task %s is still running, skip", e.task.Name)
		return false, nil
	}
	defer e.running.Unlock()

	runID := uuid.NewString()
	if s.locker != nil {
		key := slotKey(e.task, s.now())
		ok, lockErr := s.locker.Acquire(ctx, key, runID, e.task.Interval)
		if lockErr != nil {
			lgr.Printf("[WARN] can't lock task %s: %v", e.task.Name, lockErr)
			return false, nil
		}
		if !ok {
			lgr.Printf("[DEBUG] task %s slot %s is taken by another worker, skip", e.task.Name, key)
			return false, nil
		}
		// a successful run keeps the slot until it expires, a failed one gives it back for a retry
		defer func() {
			if err == nil {
				return
			}
			relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if relErr := s.locker.Release(relCtx, key, runID); relErr != nil {
				lgr.Printf("[WARN] can't unlock task %s: %v", e.task.Name, relErr)
			}
		}()
	}

	st := time.Now()
	lgr.Printf("[INFO] task %s started, run %s", e.task.Name, runID)
	defer func() {
		if r := recover(); r != nil {
			lgr.Printf("[ERROR] task %s panicked: %v\n%s", e.task.Name, r, debug.Stack())
			err = fmt.Errorf("task %s panicked: %v", e.task.Name, r)
		}
		lgr.Printf("[INFO] task %s finished in %v, run %s", e.task.Name, time.Since(st).Round(time.Millisecond), runID)
	}()

	ran = true
	return ran, e.task.Run(ctx)
}

// slotKey names the interval the time falls into. Workers of all processes tick in the
// same slots, so the first one to claim a slot runs the task and others skip it.
func slotKey(t Task, ts time.Time) string {
	return fmt.Sprintf("newspulse:task:%s:%d", t.Name, ts.UnixNano()/int64(t.Interval))
}
