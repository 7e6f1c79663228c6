// Package uthread implements a cooperative user-space thread scheduler:
// a FIFO ready queue, one goroutine per thread standing in for a
// stack+context pair, and a ticker-driven preemption checkpoint.
// Grounded throughout on original_source/libuthread/{uthread,queue,sem,preempt}.c.
package uthread

import (
	"context"
	"log/slog"
	"sync"
)

// Func is the body of a uthread. It receives the Scheduler so it can call
// Yield, CheckPreempt, or create semaphores without relying on a package
// global — the original's uthread_func_t took a single void *arg and
// reached the global running_thread through uthread_current().
type Func func(s *Scheduler)

// Scheduler owns the ready queue, the recycle bin, and the single
// currently-running TCB. Grounded on uthread.c's three package-level
// statics (ready_queue, recycle_bin, running_thread), bundled into one
// struct so a process can run more than one independent scheduler.
type Scheduler struct {
	mu      sync.Mutex
	ready   queue[*TCB]
	recycle queue[*TCB]
	running *TCB
	idle    *TCB // sentinel "main" TCB; state Running but never enqueued as Ready
	nextID  int
	started bool

	preempt preemptor
	log     *slog.Logger
}

// New returns an unstarted Scheduler. log may be nil.
func New(log *slog.Logger) *Scheduler {
	return &Scheduler{log: log}
}

// Create allocates a new TCB in the Ready state, backed by its own
// goroutine, and enqueues it. Grounded on uthread_create: the goroutine
// blocks on its turn channel immediately, exactly like a freshly
// initialized context that hasn't been switched into yet. Returns
// ErrSchedulerNotRunning if called before Start (the original never
// calls uthread_create before the ready queue it enqueues into exists).
func (s *Scheduler) Create(f Func) (*TCB, error) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil, ErrSchedulerNotRunning
	}
	s.mu.Unlock()

	s.preempt.disable()
	defer s.preempt.enable()

	s.mu.Lock()
	s.nextID++
	t := &TCB{id: s.nextID, state: Ready, turn: make(chan struct{}), done: make(chan struct{})}
	s.ready.enqueue(t)
	s.mu.Unlock()

	s.debug("create", slog.Int("tid", t.id))
	go func() {
		<-t.turn
		s.preempt.enable() // balances the disable of the switch that granted the first turn
		f(s)
		s.exit(t)
	}()
	return t, nil
}

// Start runs the scheduler: it creates the first thread from f, starts
// the preemption ticker, and then repeatedly yields the calling
// goroutine — standing in for uthread_start's idle_thread context — until
// the ready queue drains. It returns once every thread has exited. The
// sentinel TCB representing this call never enters the ready queue itself
// (spec: "state Running but never enqueued as Ready") — switchAway and
// exit special-case it so it is handed the baton directly whenever the
// ready queue empties out, rather than by being dequeued like a peer.
func (s *Scheduler) Start(f Func) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	idle := &TCB{id: 0, state: Running, turn: make(chan struct{})}
	s.idle = idle
	s.running = idle
	s.mu.Unlock()

	s.Create(f)
	s.preempt.start()
	defer s.preempt.stop()

	for {
		s.mu.Lock()
		empty := s.ready.Len() == 0
		s.mu.Unlock()
		if empty {
			return nil
		}
		s.Yield()
	}
}

// Yield voluntarily gives up the baton: the running TCB goes to the back
// of the ready queue and the next ready TCB is granted the baton.
// Grounded on uthread_yield, including its preempt_disable/enable
// bracket around the whole switch.
func (s *Scheduler) Yield() {
	s.preempt.disable()
	defer s.preempt.enable()
	s.switchAway(Ready)
}

// CheckPreempt yields only if the 100Hz ticker has set the scheduler-wide
// pending flag since any thread last took it. Thread bodies that
// run tight loops without their own Yield calls should call this
// periodically to get round-robin fairness, matching what the original's
// SIGVTALRM handler did unconditionally.
func (s *Scheduler) CheckPreempt() {
	if s.preempt.takePending() {
		s.Yield()
	}
}

// Block transitions the running TCB to Blocked and switches away without
// re-enqueuing it onto the ready queue; the caller (e.g. Semaphore.Down)
// must already have recorded it on whatever wait queue will eventually
// call Unblock. Grounded on uthread_block.
func (s *Scheduler) Block() {
	s.switchAway(Blocked)
}

// Unblock moves t from Blocked to Ready and enqueues it, without forcing
// an immediate switch. Grounded on uthread_unblock.
func (s *Scheduler) Unblock(t *TCB) {
	s.mu.Lock()
	t.state = Ready
	s.ready.enqueue(t)
	s.mu.Unlock()
	s.debug("unblock", slog.Int("tid", t.id))
}

// switchAway records the running TCB's new state, picks the next ready
// TCB, hands it the baton, and blocks until the baton is handed back. A
// Blocked transition enqueues nowhere here — the caller (e.g.
// Semaphore.Down) already recorded self on its own wait queue before
// calling Block. Grounded on the shared tail of uthread_yield/
// uthread_block: both pick "prev_tcb", decide what becomes of it, then
// queue_dequeue the next thread and context-switch.
//
// self is special-cased when it is the idle sentinel: it never joins the
// ready queue even on a Ready transition, since spec.md describes it as
// "state Running but never enqueued as Ready". Symmetrically, whenever the
// ready queue is empty the baton falls back to idle rather than panicking
// — idle is always the home the scheduler returns to once nothing else is
// runnable.
func (s *Scheduler) switchAway(newState State) {
	s.mu.Lock()
	self := s.running
	if self == s.idle {
		// idle never changes state and never joins the ready queue.
	} else {
		self.state = newState
		if newState == Ready {
			s.ready.enqueue(self)
		}
	}
	next, ok := s.ready.dequeue()
	if ok {
		next.state = Running
	} else {
		next = s.idle
	}
	s.running = next
	s.mu.Unlock()

	if next == self {
		// self was the only ready TCB: it keeps the baton and carries on.
		return
	}
	next.turn <- struct{}{}
	<-self.turn
}

// exit retires the running TCB permanently: it is moved to the recycle
// bin and its goroutine returns for good, so — unlike switchAway — there
// is no blocking wait for a baton that will never be granted again. If
// the ready queue is empty the baton returns to the idle sentinel, which
// is what lets Start's loop wake up, notice the ready queue is empty, and
// return. Grounded on uthread_exit followed by uthread_yield's
// STATUS_EXIT branch.
func (s *Scheduler) exit(self *TCB) {
	// Like Yield, disable preemption across the switch; the TCB that
	// receives the baton re-enables it.
	s.preempt.disable()
	s.mu.Lock()
	self.state = Exited
	s.recycle.enqueue(self)
	next, ok := s.ready.dequeue()
	if ok {
		next.state = Running
	} else {
		next = s.idle
	}
	s.running = next
	s.mu.Unlock()

	s.debug("exit", slog.Int("tid", self.id))
	close(self.done)
	next.turn <- struct{}{}
}

// Stats reports the current ready and recycle queue lengths, useful for
// tests asserting on scheduling progress without reaching into internals.
func (s *Scheduler) Stats() (ready, recycled int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready.Len(), s.recycle.Len()
}

func (s *Scheduler) debug(msg string, attrs ...slog.Attr) {
	if s.log != nil {
		s.log.LogAttrs(context.Background(), slog.LevelDebug, msg, attrs...)
	}
}
