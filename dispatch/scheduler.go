package dispatch

import (
	"container/heap"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/c360/ruleflow/automation"
)

// delayDuration converts a rule's delay_minutes to wall time.
func delayDuration(minutes int) time.Duration {
	return time.Duration(minutes) * 60 * time.Second
}

// delayedTask is one scheduled rule execution.
type delayedTask struct {
	rule   automation.Rule
	evt    automation.Event
	fireAt time.Time
	timer  *clock.Timer
}

// taskHeap is a min-heap ordered by fire time.
type taskHeap []*delayedTask

func (h taskHeap) Len() int           { return len(h) }
func (h taskHeap) Less(i, j int) bool { return h[i].fireAt.Before(h[j].fireAt) }
func (h taskHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *taskHeap) Push(x any)        { *h = append(*h, x.(*delayedTask)) }

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}

// Scheduler executes delayed actions. Each scheduled task arms a clock
// timer that nudges a single executor goroutine; the goroutine drains
// every due task, in fire-time order, through the dispatcher's normal
// execution path. Timers are armed in the scheduling caller's
// goroutine, so with a mock clock a test that schedules and then
// advances time sees deterministic deadlines. Tasks fire no earlier
// than their delay; ordering beyond that is unspecified.
//
// The scheduler is owned by its Dispatcher: created in New, stopped in
// Close. Stop drops pending tasks without reporting outcomes for them.
type Scheduler struct {
	dispatcher *Dispatcher
	clock      clock.Clock
	logger     *slog.Logger

	mu      sync.Mutex
	pending taskHeap
	stopped bool

	wake     chan struct{}
	shutdown chan struct{}
	done     chan struct{}
}

func newScheduler(d *Dispatcher, clk clock.Clock, logger *slog.Logger) *Scheduler {
	s := &Scheduler{
		dispatcher: d,
		clock:      clk,
		logger:     logger,
		wake:       make(chan struct{}, 1),
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
	}
	go s.run()
	return s
}

// schedule queues a task and arms its wake timer. Returns false when
// the scheduler has been stopped, in which case the task is not
// queued.
func (s *Scheduler) schedule(rule automation.Rule, evt automation.Event, fireAt time.Time) bool {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return false
	}
	t := &delayedTask{rule: rule, evt: evt, fireAt: fireAt}
	t.timer = s.clock.AfterFunc(fireAt.Sub(s.clock.Now()), s.notify)
	heap.Push(&s.pending, t)
	s.mu.Unlock()

	s.dispatcher.metrics.setPending(s.Len())

	// Cover a fire time that is already due.
	s.notify()
	return true
}

// notify nudges the executor. Non-blocking; one pending nudge is
// enough because the executor drains everything due.
func (s *Scheduler) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Len returns the number of pending delayed tasks.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// NextFire returns the fire time of the earliest pending task. The
// second return is false when nothing is pending.
func (s *Scheduler) NextFire() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return time.Time{}, false
	}
	return s.pending[0].fireAt, true
}

// Stop shuts the scheduler down and returns how many pending tasks
// were dropped. Dropped tasks produce no outcomes. Safe to call more
// than once; later calls return 0.
func (s *Scheduler) Stop() int {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		<-s.done
		return 0
	}
	s.stopped = true
	dropped := len(s.pending)
	for _, t := range s.pending {
		t.timer.Stop()
	}
	s.pending = nil
	s.mu.Unlock()

	close(s.shutdown)
	<-s.done

	s.dispatcher.metrics.setPending(0)
	return dropped
}

func (s *Scheduler) run() {
	defer close(s.done)

	for {
		select {
		case <-s.wake:
			s.runDue()
		case <-s.shutdown:
			return
		}
	}
}

// runDue pops and executes every task whose fire time has arrived.
// Execution happens outside the lock so a slow handler cannot block
// schedule or Stop.
func (s *Scheduler) runDue() {
	for {
		s.mu.Lock()
		if s.stopped || len(s.pending) == 0 || s.pending[0].fireAt.After(s.clock.Now()) {
			s.mu.Unlock()
			return
		}
		t := heap.Pop(&s.pending).(*delayedTask)
		s.mu.Unlock()

		s.dispatcher.metrics.setPending(s.Len())
		s.dispatcher.execute(context.Background(), t.rule, t.evt, true)
	}
}
