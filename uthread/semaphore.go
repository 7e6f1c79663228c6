package uthread

// Semaphore is a counting semaphore with a FIFO wait queue, grounded on
// original_source/libuthread/sem.c. Down uses the same Mesa-style "while
// count == 0, enqueue, block, recheck" loop as sem_down rather than a
// single blind wait, so a thread woken by Up still re-validates the
// count before consuming it.
type Semaphore struct {
	sched   *Scheduler
	count   int
	waiters queue[*TCB]
}

// NewSemaphore creates a semaphore initialized to count, bound to s so
// Down/Up can call s.Block/s.Unblock. Grounded on sem_create.
func (s *Scheduler) NewSemaphore(count int) *Semaphore {
	return &Semaphore{sched: s, count: count}
}

// Down blocks the calling thread until the semaphore's count is
// positive, then decrements it. Grounded on sem_down, including its
// preempt_disable/preempt_enable bracket around the whole operation.
func (sem *Semaphore) Down() {
	sem.sched.preempt.disable()
	defer sem.sched.preempt.enable()

	for {
		sem.sched.mu.Lock()
		if sem.count > 0 {
			sem.count--
			sem.sched.mu.Unlock()
			return
		}
		self := sem.sched.running
		sem.waiters.enqueue(self)
		sem.sched.mu.Unlock()
		sem.sched.Block()
	}
}

// Up increments the semaphore's count and, if a thread was waiting,
// unblocks the longest-waiting one. Grounded on sem_up.
func (sem *Semaphore) Up() {
	sem.sched.preempt.disable()
	defer sem.sched.preempt.enable()

	sem.sched.mu.Lock()
	waiter, ok := sem.waiters.dequeue()
	sem.count++
	sem.sched.mu.Unlock()

	if ok {
		sem.sched.Unblock(waiter)
	}
}

// Destroy releases sem, failing with ErrSemaphoreBusy if any thread is
// still waiting on it. Grounded on sem_destroy's contract as spec.md
// states it (destroy fails while the wait queue is non-empty) rather
// than the source's own check, which inverts that condition and so
// never actually accepts a destroy of an idle semaphore.
func (sem *Semaphore) Destroy() error {
	sem.sched.mu.Lock()
	defer sem.sched.mu.Unlock()
	if sem.waiters.Len() != 0 {
		return ErrSemaphoreBusy
	}
	return nil
}
