package session

import (
	"sync"
	"time"
)

// Timer is a restartable countdown clock with one-second granularity.
// When the counter reaches zero while running it fires onExpire exactly
// once and parks itself; only Reset re-arms it. Start and Pause are
// idempotent.
type Timer struct {
	mu        sync.Mutex
	duration  int // seconds
	remaining int
	interval  time.Duration
	running   bool
	expired   bool
	stop      chan struct{}
	onExpire  func()
}

// NewTimer creates a paused timer counting down durationSeconds.
func NewTimer(durationSeconds int, onExpire func()) *Timer {
	return newTimer(durationSeconds, time.Second, onExpire)
}

func newTimer(durationSeconds int, interval time.Duration, onExpire func()) *Timer {
	if durationSeconds < 0 {
		durationSeconds = 0
	}
	return &Timer{
		duration:  durationSeconds,
		remaining: durationSeconds,
		interval:  interval,
		onExpire:  onExpire,
	}
}

// Start begins decrementing the counter. No-op if already running or
// already expired.
func (t *Timer) Start() {
	t.mu.Lock()
	if t.running || t.expired {
		t.mu.Unlock()
		return
	}
	if t.remaining <= 0 {
		// Zero time left before the first tick: expire immediately.
		t.expired = true
		t.mu.Unlock()
		if t.onExpire != nil {
			t.onExpire()
		}
		return
	}

	t.running = true
	t.stop = make(chan struct{})
	stop := t.stop
	t.mu.Unlock()

	go t.run(stop)
}

func (t *Timer) run(stop chan struct{}) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if t.tick() {
				if t.onExpire != nil {
					t.onExpire()
				}
				return
			}
			t.mu.Lock()
			running := t.running
			t.mu.Unlock()
			if !running {
				return
			}
		}
	}
}

// tick decrements the counter and reports whether expiry fired on this tick.
func (t *Timer) tick() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running || t.expired {
		return false
	}
	t.remaining--
	if t.remaining > 0 {
		return false
	}
	t.remaining = 0
	t.running = false
	t.expired = true
	return true
}

// Pause halts the countdown without resetting it. No-op if already paused.
func (t *Timer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return
	}
	t.running = false
	close(t.stop)
	t.stop = nil
}

// Reset restores the full duration and implies paused. It re-arms expiry.
func (t *Timer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		t.running = false
		close(t.stop)
		t.stop = nil
	}
	t.remaining = t.duration
	t.expired = false
}

// Remaining returns the seconds left on the counter.
func (t *Timer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// Expired reports whether the counter has reached zero and fired.
func (t *Timer) Expired() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.expired
}
