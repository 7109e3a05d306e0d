package input

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/teslashibe/go-scanboard/pkg/announce"
	"github.com/teslashibe/go-scanboard/pkg/scan"
)

// recordingTarget records presses and the listening handshake.
type recordingTarget struct {
	mu        sync.Mutex
	presses   []string
	listens   int
	releases  int
	performed []scan.Effect
	listenErr error
}

func (r *recordingTarget) Press(source string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.presses = append(r.presses, source)
}

func (r *recordingTarget) BeginListening() (func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listenErr != nil {
		return nil, r.listenErr
	}
	r.listens++
	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			r.releases++
			r.mu.Unlock()
		})
	}, nil
}

func (r *recordingTarget) Perform(effect scan.Effect) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.performed = append(r.performed, effect)
	return nil
}

func (r *recordingTarget) Presses() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.presses...)
}

func (r *recordingTarget) counts() (listens, releases, performed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listens, r.releases, len(r.performed)
}

// fakeClock is a settable wall clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// scriptedReader replays button states then repeats the last one.
type scriptedReader struct {
	mu     sync.Mutex
	states []bool
	errs   []error
	i      int
	closed bool
}

func (r *scriptedReader) Pressed() (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		return false, nil
	}
	i := r.i
	if i >= len(r.states) {
		i = len(r.states) - 1
	} else {
		r.i++
	}
	var err error
	if i < len(r.errs) {
		err = r.errs[i]
	}
	return r.states[i], err
}

func (r *scriptedReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// pass is one scripted recognition pass.
type pass struct {
	results []Result
	err     error
	hang    bool // keep the pass open until cancelled
}

// scriptedRecognizer serves passes in order per mode.
type scriptedRecognizer struct {
	mu     sync.Mutex
	passes map[Mode][]pass
	calls  []Mode
}

func newScriptedRecognizer() *scriptedRecognizer {
	return &scriptedRecognizer{passes: make(map[Mode][]pass)}
}

func (r *scriptedRecognizer) add(mode Mode, p pass) *scriptedRecognizer {
	r.passes[mode] = append(r.passes[mode], p)
	return r
}

func (r *scriptedRecognizer) Listen(ctx context.Context, mode Mode) (<-chan Result, func() error, error) {
	r.mu.Lock()
	r.calls = append(r.calls, mode)
	var p pass
	if q := r.passes[mode]; len(q) > 0 {
		p = q[0]
		r.passes[mode] = q[1:]
	} else {
		p = pass{hang: true}
	}
	r.mu.Unlock()

	ch := make(chan Result)
	var (
		errMu sync.Mutex
		end   error
	)
	go func() {
		defer close(ch)
		for _, res := range p.results {
			select {
			case ch <- res:
			case <-ctx.Done():
				return
			}
		}
		if p.hang {
			<-ctx.Done()
			return
		}
		errMu.Lock()
		end = p.err
		errMu.Unlock()
	}()
	return ch, func() error {
		errMu.Lock()
		defer errMu.Unlock()
		return end
	}, nil
}

func (r *scriptedRecognizer) modes() []Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Mode(nil), r.calls...)
}

// recordingAnnouncer records announcements and returns immediately.
type recordingAnnouncer struct {
	mu    sync.Mutex
	texts []string
}

func (a *recordingAnnouncer) Announce(_ context.Context, text string, _ announce.Channel, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.texts = append(a.texts, text)
	return nil
}

func (a *recordingAnnouncer) Texts() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.texts...)
}

func waitFor(t testing.TB, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
