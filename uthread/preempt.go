package uthread

import (
	"sync/atomic"
	"time"
)

const (
	preemptHz       = 100
	preemptInterval = time.Second / preemptHz
)

// preemptor reinterprets original_source/libuthread/preempt.c's SIGVTALRM
// itimer for Go: a signal handler can hijack whatever instruction the CPU
// is executing, but nothing can safely do that to an arbitrary running
// goroutine. Instead the ticker sets a pending flag at the same 100Hz
// cadence, and the running TCB clears and acts on it at its next
// cooperative checkpoint (Yield or CheckPreempt) — the same
// preempt_disable/preempt_enable bracket from the original still
// suppresses it around critical sections.
type preemptor struct {
	disabled atomic.Int32
	pending  atomic.Bool
	ticker   *time.Ticker
	stopCh   chan struct{}
}

func (p *preemptor) start() {
	p.stopCh = make(chan struct{})
	p.ticker = time.NewTicker(preemptInterval)
	t := p.ticker
	stop := p.stopCh
	go func() {
		for {
			select {
			case <-t.C:
				if p.disabled.Load() == 0 {
					p.pending.Store(true)
				}
			case <-stop:
				return
			}
		}
	}()
}

func (p *preemptor) stop() {
	if p.ticker != nil {
		p.ticker.Stop()
	}
	if p.stopCh != nil {
		close(p.stopCh)
	}
}

func (p *preemptor) disable() { p.disabled.Add(1) }
func (p *preemptor) enable()  { p.disabled.Add(-1) }

func (p *preemptor) takePending() bool {
	return p.pending.CompareAndSwap(true, false)
}
