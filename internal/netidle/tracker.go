// Package netidle decides when a page's network activity has settled.
//
// A Tracker is fed request lifecycle events by a browser driver and reports
// idle once the number of in-flight requests has stayed at or below a limit
// for a continuous quiet window. The window starts counting when the Tracker
// is created, so it should be created right before navigation starts.
package netidle

import (
	"context"
	"sync"
	"time"
)

// Tracker counts in-flight requests and signals quiescence.
// It is safe for concurrent use.
type Tracker struct {
	window time.Duration
	limit  int

	mu       sync.Mutex
	inflight map[string]struct{}
	timer    *time.Timer
	gen      uint64 // invalidates timers armed before the last state change
	idle     chan struct{}
	stopped  bool
}

// New returns a Tracker that reports idle after window elapses with at most
// limit requests in flight. A negative limit is treated as zero.
func New(window time.Duration, limit int) *Tracker {
	if limit < 0 {
		limit = 0
	}
	t := &Tracker{
		window:   window,
		limit:    limit,
		inflight: make(map[string]struct{}),
		idle:     make(chan struct{}),
	}
	t.mu.Lock()
	t.arm()
	t.mu.Unlock()
	return t
}

// Started records a request. Repeated ids (redirect hops) count once.
func (t *Tracker) Started(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	if _, ok := t.inflight[id]; ok {
		return
	}
	t.inflight[id] = struct{}{}
	if len(t.inflight) == t.limit+1 {
		t.disarm()
	}
}

// Finished records the end of a request, whether it succeeded or failed.
// Unknown ids are ignored.
func (t *Tracker) Finished(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	if _, ok := t.inflight[id]; !ok {
		return
	}
	delete(t.inflight, id)
	if len(t.inflight) == t.limit {
		t.arm()
	}
}

// Inflight returns the number of requests currently outstanding.
func (t *Tracker) Inflight() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight)
}

// Idle reports whether the quiet window has completed and no request has
// pushed the count over the limit since.
func (t *Tracker) Idle() bool {
	t.mu.Lock()
	ch := t.idle
	t.mu.Unlock()
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

// Wait blocks until the tracker is idle or ctx is done.
func (t *Tracker) Wait(ctx context.Context) error {
	for {
		t.mu.Lock()
		ch := t.idle
		t.mu.Unlock()

		select {
		case <-ch:
			// The channel is replaced when activity resumes; only a
			// current closed channel means idle.
			t.mu.Lock()
			current := ch == t.idle
			t.mu.Unlock()
			if current {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Stop releases the timer. Further events are ignored.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
	}
}

// arm starts a fresh quiet window. Callers hold mu.
func (t *Tracker) arm() {
	t.gen++
	gen := t.gen
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.window, func() { t.fire(gen) })
}

// disarm cancels the pending window and, if idle had been reached, opens a
// new idle channel so waiters block again. Callers hold mu.
func (t *Tracker) disarm() {
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
	}
	select {
	case <-t.idle:
		t.idle = make(chan struct{})
	default:
	}
}

func (t *Tracker) fire(gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || gen != t.gen || len(t.inflight) > t.limit {
		return
	}
	select {
	case <-t.idle:
	default:
		close(t.idle)
	}
}
