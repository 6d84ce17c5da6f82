// Package throttle provides leading-edge throttling and trailing
// debouncing for callbacks driven by noisy event sources such as scroll
// updates and like taps.
package throttle

import (
	"sync"
	"time"
)

// Throttled wraps a function so that it runs at most once per window.
type Throttled[T any] struct {
	fn    func() T
	limit time.Duration

	mu         sync.Mutex
	inThrottle bool
	last       T
	timer      *time.Timer
}

// Throttle returns a leading-edge throttle around fn. The first call runs
// fn immediately and opens a window of length limit; calls inside the
// window are dropped and return the previous result.
func Throttle[T any](fn func() T, limit time.Duration) *Throttled[T] {
	return &Throttled[T]{fn: fn, limit: limit}
}

// Call runs fn if the throttle window is closed and returns the latest
// result either way.
func (t *Throttled[T]) Call() T {
	t.mu.Lock()
	if t.inThrottle {
		last := t.last
		t.mu.Unlock()
		return last
	}
	t.inThrottle = true
	t.mu.Unlock()

	result := t.fn()

	t.mu.Lock()
	t.last = result
	t.timer = time.AfterFunc(t.limit, func() {
		t.mu.Lock()
		t.inThrottle = false
		t.mu.Unlock()
	})
	t.mu.Unlock()
	return result
}

// Cancel stops the pending window timer and reopens the throttle.
func (t *Throttled[T]) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.inThrottle = false
}

// Debounced delays calls until delay has passed without a new call.
type Debounced[A any] struct {
	fn    func(A)
	delay time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending bool
	gen     uint64
	arg     A
}

// Debounce returns a debouncer that invokes fn with the most recent
// argument once delay has elapsed since the last Call.
func Debounce[A any](fn func(A), delay time.Duration) *Debounced[A] {
	return &Debounced[A]{fn: fn, delay: delay}
}

// Call schedules fn(arg), replacing any call still waiting.
func (d *Debounced[A]) Call(arg A) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.arg = arg
	d.pending = true
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

func (d *Debounced[A]) fire(gen uint64) {
	d.mu.Lock()
	if !d.pending || gen != d.gen {
		d.mu.Unlock()
		return
	}
	arg := d.arg
	d.pending = false
	d.timer = nil
	d.mu.Unlock()

	d.fn(arg)
}

// Flush runs a waiting call immediately. It reports whether one ran.
func (d *Debounced[A]) Flush() bool {
	d.mu.Lock()
	if !d.pending {
		d.mu.Unlock()
		return false
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	arg := d.arg
	d.pending = false
	d.mu.Unlock()

	d.fn(arg)
	return true
}

// Cancel drops a waiting call.
func (d *Debounced[A]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = false
}

// Pending reports whether a call is waiting to fire.
func (d *Debounced[A]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// KeyedDebouncer keeps one independent debounce timer per key.
type KeyedDebouncer struct {
	delay time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewKeyed creates a KeyedDebouncer with the given delay.
func NewKeyed(delay time.Duration) *KeyedDebouncer {
	return &KeyedDebouncer{delay: delay, timers: make(map[string]*time.Timer)}
}

// Call schedules fn for key, replacing a call already waiting on the
// same key. It reports whether a waiting call was replaced; a replaced
// call never runs.
func (k *KeyedDebouncer) Call(key string, fn func()) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	old, replaced := k.timers[key]
	if replaced {
		old.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(k.delay, func() {
		k.mu.Lock()
		if k.timers[key] != t {
			k.mu.Unlock()
			return
		}
		delete(k.timers, key)
		k.mu.Unlock()
		fn()
	})
	k.timers[key] = t
	return replaced
}

// Cancel drops the waiting call for key and reports whether there was one.
func (k *KeyedDebouncer) Cancel(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	t, ok := k.timers[key]
	if ok {
		t.Stop()
		delete(k.timers, key)
	}
	return ok
}

// CancelAll drops every waiting call and returns how many were dropped.
func (k *KeyedDebouncer) CancelAll() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	n := len(k.timers)
	for key, t := range k.timers {
		t.Stop()
		delete(k.timers, key)
	}
	return n
}

// Pending returns the number of keys with a waiting call.
func (k *KeyedDebouncer) Pending() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.timers)
}
