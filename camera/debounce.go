package camera

import (
	"sync"
	"time"
)

// debouncer coalesces rapid zoom requests: it holds the latest value and
// applies it once no newer request has arrived for delay.
type debouncer struct {
	delay   time.Duration
	apply   func(float64) error
	onError func(float64, error)

	mu      sync.Mutex
	timer   *time.Timer
	seq     uint64
	latest  float64
	pending bool
	stopped bool

	// applyMu serialises hardware calls when an apply outlives the delay.
	applyMu sync.Mutex
}

func newDebouncer(delay time.Duration, apply func(float64) error, onError func(float64, error)) *debouncer {
	return &debouncer{delay: delay, apply: apply, onError: onError}
}

// Request schedules v, replacing any value still waiting.
func (d *debouncer) Request(v float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.seq++
	d.latest = v
	d.pending = true
	if d.timer != nil {
		d.timer.Stop()
	}
	seq := d.seq
	d.timer = time.AfterFunc(d.delay, func() { d.fire(seq) })
}

func (d *debouncer) fire(seq uint64) {
	d.applyMu.Lock()
	defer d.applyMu.Unlock()

	d.mu.Lock()
	if d.stopped || !d.pending || seq != d.seq {
		d.mu.Unlock()
		return
	}
	v := d.latest
	d.pending = false
	d.mu.Unlock()

	if err := d.apply(v); err != nil && d.onError != nil {
		d.onError(v, err)
	}
}

// Flush applies a waiting value now instead of after the delay. It
// returns once the value, or an apply already in progress, has reached
// the hardware.
func (d *debouncer) Flush() {
	d.applyMu.Lock()
	defer d.applyMu.Unlock()

	d.mu.Lock()
	if d.stopped || !d.pending {
		d.mu.Unlock()
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	v := d.latest
	d.pending = false
	d.mu.Unlock()

	if err := d.apply(v); err != nil && d.onError != nil {
		d.onError(v, err)
	}
}

// Pending reports whether a value is waiting for its delay to elapse.
func (d *debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Stop drops any waiting value and waits for an apply already in progress
// to return. Later requests are ignored.
func (d *debouncer) Stop() {
	d.mu.Lock()
	d.stopped = true
	d.pending = false
	if d.timer != nil {
		d.timer.Stop()
	}
	d.mu.Unlock()

	d.applyMu.Lock()
	d.applyMu.Unlock()
}
