// Package input provides the discrete input adapters that drive a scan
// controller: keyboard, gamepad, MQTT smart switches, remote browser
// switches and the voice wake-word listener.
//
// Every adapter's only contract with the controller is "press", plus the
// listening handshake used by the voice adapter.
package input

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-scanboard/pkg/scan"
)

// Default timings.
const (
	DefaultDebounce      = 300 * time.Millisecond
	DefaultFrameInterval = 16 * time.Millisecond
)

// Source names passed to Target.Press.
const (
	SourceKeyboard = "keyboard"
	SourceGamepad  = "gamepad"
	SourceMQTT     = "mqtt"
	SourceRemote   = "remote"
)

// Target receives the single activate signal. *scan.Controller implements it.
type Target interface {
	Press(source string)
}

// Listener is the controller surface the voice adapter needs: halting
// scanning for a capture and dispatching what was heard.
type Listener interface {
	Target
	BeginListening() (release func(), err error)
	Perform(effect scan.Effect) error
}

var (
	_ Target   = (*scan.Controller)(nil)
	_ Listener = (*scan.Controller)(nil)
)

// debouncer drops signals that arrive within window of the last accepted
// one. A zero window accepts everything.
type debouncer struct {
	mu     sync.Mutex
	window time.Duration
	now    func() time.Time
	last   time.Time
}

func newDebouncer(window time.Duration, now func() time.Time) *debouncer {
	if now == nil {
		now = time.Now
	}
	return &debouncer{window: window, now: now}
}

// allow reports whether a signal at the current time should fire and, if
// so, records it.
func (d *debouncer) allow() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	t := d.now()
	if d.window > 0 && !d.last.IsZero() && t.Sub(d.last) < d.window {
		return false
	}
	d.last = t
	return true
}

// Debounced is a Target that forwards at most one press per window, so one
// click gesture activates once. Click-like sources share it.
type Debounced struct {
	target   Target
	debounce *debouncer
	dropped  atomic.Uint64
}

var _ Target = (*Debounced)(nil)

// NewDebounced wraps target. A zero window forwards every press; now
// defaults to time.Now.
func NewDebounced(target Target, window time.Duration, now func() time.Time) *Debounced {
	return &Debounced{target: target, debounce: newDebouncer(window, now)}
}

// Press forwards the press unless it falls inside the window.
func (d *Debounced) Press(source string) {
	d.TryPress(source)
}

// TryPress is Press reporting whether the press was forwarded.
func (d *Debounced) TryPress(source string) bool {
	if !d.debounce.allow() {
		d.dropped.Add(1)
		return false
	}
	d.target.Press(source)
	return true
}

// Dropped returns how many presses were swallowed by the window.
func (d *Debounced) Dropped() uint64 {
	return d.dropped.Load()
}
