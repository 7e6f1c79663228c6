package uthread_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"minios/uthread"
)

// TestSemaphoreMutualExclusion reproduces the classic lost-update bug a
// broken mutex would allow: each worker reads the counter into a local,
// yields (so another thread could race in if Down/Up didn't actually
// exclude), then writes back. A correct binary semaphore must keep the
// final count exact.
func TestSemaphoreMutualExclusion(t *testing.T) {
	const n = 5
	const loopsPerThread = 200 // n * loopsPerThread == 1000

	sched := uthread.New(nil)
	sem := sched.NewSemaphore(1)
	counter := 0

	worker := func() uthread.Func {
		return func(s *uthread.Scheduler) {
			for i := 0; i < loopsPerThread; i++ {
				sem.Down()
				tmp := counter
				s.Yield()
				counter = tmp + 1
				sem.Up()
				s.Yield()
			}
		}
	}

	entry := func(s *uthread.Scheduler) {
		for i := 1; i < n; i++ {
			s.Create(worker())
		}
		worker()(s)
	}

	require.NoError(t, sched.Start(entry))
	require.Equal(t, n*loopsPerThread, counter)
}

// TestSemaphoreFIFOOrder checks that threads blocked on a zero-count
// semaphore are released in the order they blocked, matching sem.c's
// single FIFO block_queue.
func TestSemaphoreFIFOOrder(t *testing.T) {
	const n = 3
	sched := uthread.New(nil)
	sem := sched.NewSemaphore(0)
	var order []int

	entry := func(s *uthread.Scheduler) {
		for id := 1; id <= n; id++ {
			id := id
			s.Create(func(s *uthread.Scheduler) {
				sem.Down()
				order = append(order, id)
			})
		}
		s.Yield() // let all n workers reach sem.Down() and block

		for i := 0; i < n; i++ {
			sem.Up()
		}
		s.Yield() // let the released workers run and record their id
	}

	require.NoError(t, sched.Start(entry))
	require.Equal(t, []int{1, 2, 3}, order)
}

// TestSemaphoreDestroy checks Destroy's two outcomes: it refuses while a
// thread is waiting, and succeeds once the wait queue has drained.
func TestSemaphoreDestroy(t *testing.T) {
	sched := uthread.New(nil)
	sem := sched.NewSemaphore(0)
	var busyErr, idleErr error

	entry := func(s *uthread.Scheduler) {
		s.Create(func(s *uthread.Scheduler) {
			sem.Down()
		})
		s.Yield() // let the waiter reach sem.Down() and block

		busyErr = sem.Destroy()

		sem.Up() // release the waiter so the scheduler can drain
		s.Yield()

		idleErr = sem.Destroy()
	}

	require.NoError(t, sched.Start(entry))
	require.ErrorIs(t, busyErr, uthread.ErrSemaphoreBusy)
	require.NoError(t, idleErr)
}
