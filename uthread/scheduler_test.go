package uthread_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"minios/uthread"
)

func TestYieldRoundRobin(t *testing.T) {
	const n = 3
	const iters = 3
	var order []int

	entry := func(s *uthread.Scheduler) {
		for id := 1; id < n; id++ {
			id := id
			s.Create(func(s *uthread.Scheduler) {
				for i := 0; i < iters; i++ {
					order = append(order, id)
					s.Yield()
				}
			})
		}
		for i := 0; i < iters; i++ {
			order = append(order, 0)
			s.Yield()
		}
	}

	sched := uthread.New(nil)
	require.NoError(t, sched.Start(entry))
	require.Equal(t, []int{0, 1, 2, 0, 1, 2, 0, 1, 2}, order)

	ready, recycled := sched.Stats()
	require.Equal(t, 0, ready)
	require.Equal(t, n, recycled)
}

func TestStartTwiceFails(t *testing.T) {
	sched := uthread.New(nil)
	noop := func(s *uthread.Scheduler) {}
	require.NoError(t, sched.Start(noop))
	require.ErrorIs(t, sched.Start(noop), uthread.ErrAlreadyStarted)
}

func TestCheckPreemptIsNoOpWithoutPendingTick(t *testing.T) {
	var ran bool
	entry := func(s *uthread.Scheduler) {
		s.CheckPreempt() // nothing pending yet; must not deadlock or skip this line
		ran = true
	}
	sched := uthread.New(nil)
	require.NoError(t, sched.Start(entry))
	require.True(t, ran)
}
