package watch

import (
	"context"
	"sync"
	"time"
)

// Event is one reason to rebuild: the changed path and when the change was
// observed.
type Event struct {
	Name string
	Time time.Time
}

// Coalescer runs a function for events one at a time. While a run is in
// flight, further events collapse into a single pending run that starts
// when the current one returns, so a burst of events always produces at
// least one and at most two runs.
//
// With a non-zero quiet period, a run only starts once no event has arrived
// for that long, which folds editor save bursts into one rebuild.
type Coalescer struct {
	fn      func(ctx context.Context, ev Event)
	quiet   time.Duration
	signal  chan struct{}
	mu      sync.Mutex
	pending Event
	wg      sync.WaitGroup
}

// NewCoalescer returns a coalescer for fn. Call Start before Trigger has
// any effect.
func NewCoalescer(quiet time.Duration, fn func(ctx context.Context, ev Event)) *Coalescer {
	return &Coalescer{
		fn:     fn,
		quiet:  quiet,
		signal: make(chan struct{}, 1),
	}
}

// Start launches the worker. It stops when ctx is cancelled.
func (c *Coalescer) Start(ctx context.Context) {
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		for {
			select {
			case <-ctx.Done():
				return
			case <-c.signal:
			}

			if !c.settle(ctx) {
				return
			}

			c.mu.Lock()
			ev := c.pending
			c.mu.Unlock()

			c.fn(ctx, ev)
		}
	}()
}

// settle waits until the quiet period passes without a new event. It
// returns false when ctx is cancelled first.
func (c *Coalescer) settle(ctx context.Context) bool {
	if c.quiet <= 0 {
		return true
	}

	timer := time.NewTimer(c.quiet)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-c.signal:
			timer.Reset(c.quiet)
		case <-timer.C:
			return true
		}
	}
}

// Trigger schedules a run. It never blocks; the most recent event wins
// when several arrive before the pending run starts.
func (c *Coalescer) Trigger(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	c.mu.Lock()
	c.pending = ev
	c.mu.Unlock()

	select {
	case c.signal <- struct{}{}:
	default:
	}
}

// Wait blocks until the worker has exited.
func (c *Coalescer) Wait() {
	c.wg.Wait()
}
