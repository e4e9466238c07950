// Package clock abstracts time so long waits can be driven by tests.
package clock

import (
	"context"
	"sync"
	"time"
)

// Step is the granularity of cancellable waits.
const Step = time.Second

// Clock provides the current time and timers.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// Real is the wall clock.
type Real struct{}

// Now implements Clock.
func (Real) Now() time.Time { return time.Now() }

// After implements Clock.
func (Real) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Sleep waits d in steps of at most one second, checking ctx between steps.
// It returns false if ctx was cancelled before d elapsed.
func Sleep(ctx context.Context, c Clock, d time.Duration) bool {
	return SleepTick(ctx, c, d, nil)
}

// SleepTick is Sleep that calls tick with the remaining duration before each step.
func SleepTick(ctx context.Context, c Clock, d time.Duration, tick func(remaining time.Duration)) bool {
	for remaining := d; remaining > 0; {
		if ctx.Err() != nil {
			return false
		}
		if tick != nil {
			tick(remaining)
		}
		step := min(remaining, Step)
		select {
		case <-ctx.Done():
			return false
		case <-c.After(step):
		}
		remaining -= step
	}
	return ctx.Err() == nil
}

// Fake is a Clock whose timers fire immediately and advance its time.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	slept   time.Duration
	onAfter func(total time.Duration)
}

// NewFake returns a Fake starting at start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// OnAfter registers fn, called with the total slept duration after every timer.
// Tests use it to cancel a run after enough simulated time.
func (f *Fake) OnAfter(fn func(total time.Duration)) {
	f.mu.Lock()
	f.onAfter = fn
	f.mu.Unlock()
}

// Now implements Clock.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// After implements Clock.
func (f *Fake) After(d time.Duration) <-chan time.Time {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.slept += d
	now, total, fn := f.now, f.slept, f.onAfter
	f.mu.Unlock()

	if fn != nil {
		fn(total)
	}

	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}

// Advance moves the clock forward without counting as sleep.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

// Slept returns the total duration waited through After.
func (f *Fake) Slept() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.slept
}
