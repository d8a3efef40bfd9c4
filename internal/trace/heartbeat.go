package trace

import (
	"fmt"
	"sync"
	"time"
)

// StartHeartbeat emits a heartbeat every interval until the returned
// function is called. Each heartbeat carries the number of spans still
// open: a count that stays flat while heartbeats keep coming means a
// step is stuck. The stop function is idempotent.
func StartHeartbeat(t Tracer, interval time.Duration) (stop func()) {
	if !Enabled(t) || interval <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		tick := time.NewTicker(interval)
		defer tick.Stop()
		for n := 1; ; n++ {
			select {
			case now := <-tick.C:
				t.Emit(&Event{
					Time:   now,
					Kind:   KindHeartbeat,
					Scope:  ScopeDriver,
					Name:   "heartbeat",
					Detail: fmt.Sprintf("#%d open=%d", n, openSpans.Load()),
				})
			case <-done:
				return
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			wg.Wait()
		})
	}
}
