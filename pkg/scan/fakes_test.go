package scan

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/teslashibe/go-scanboard/pkg/announce"
)

// manualScheduler arms at most one timer and fires it on demand.
type manualScheduler struct {
	mu       sync.Mutex
	onTick   func()
	interval time.Duration
	starts   int
	stops    int
}

func (s *manualScheduler) Start(interval time.Duration, onTick func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTick = onTick
	s.interval = interval
	s.starts++
}

func (s *manualScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTick = nil
	s.stops++
}

func (s *manualScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.onTick != nil
}

// Fire runs one tick of the armed timer, if any.
func (s *manualScheduler) Fire() {
	s.mu.Lock()
	f := s.onTick
	s.mu.Unlock()
	if f != nil {
		f()
	}
}

// FireN runs n ticks.
func (s *manualScheduler) FireN(n int) {
	for i := 0; i < n; i++ {
		s.Fire()
	}
}

// current returns the armed tick func, for replaying stale ticks.
func (s *manualScheduler) current() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.onTick
}

// manualClock runs AfterFunc callbacks when Advance passes their deadline.
type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

type manualTimer struct {
	clock   *manualClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Unix(1700000000, 0)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := !t.stopped && !t.fired
	t.stopped = true
	return was
}

// Advance moves time forward and runs due callbacks in deadline order.
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*manualTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.f()
	}
}

// Pending returns the number of armed one-shot timers.
func (c *manualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// fakeAnnouncer records announcements. Speech for texts in block waits
// until released.
type fakeAnnouncer struct {
	mu     sync.Mutex
	said   []string
	err    error
	gate   chan struct{}
	notify chan string
}

func newFakeAnnouncer() *fakeAnnouncer {
	return &fakeAnnouncer{notify: make(chan string, 64)}
}

func (a *fakeAnnouncer) Announce(ctx context.Context, text string, channel announce.Channel, record bool) error {
	a.mu.Lock()
	a.said = append(a.said, text)
	err := a.err
	gate := a.gate
	a.mu.Unlock()

	a.notify <- text

	if gate != nil && channel == announce.ChannelPersonal {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (a *fakeAnnouncer) Said() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.said))
	copy(out, a.said)
	return out
}

// expect waits for text to be announced.
func (a *fakeAnnouncer) expect(t *testing.T, text string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case got := <-a.notify:
			if got == text {
				return
			}
		case <-deadline:
			t.Fatalf("announcement %q not made; said %v", text, a.Said())
		}
	}
}

// recordingObserver records render adapter calls.
type recordingObserver struct {
	mu         sync.Mutex
	highlights []int
	labels     []string
	clears     int
	states     []State
	itemSets   int
	lastItems  []Item
}

func (o *recordingObserver) Highlight(index int, item Item) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.highlights = append(o.highlights, index)
	o.labels = append(o.labels, item.Label)
}

func (o *recordingObserver) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.clears++
}

func (o *recordingObserver) StateChanged(s State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.states = append(o.states, s)
}

func (o *recordingObserver) ItemsChanged(items []Item) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.itemSets++
	o.lastItems = append([]Item(nil), items...)
}

func (o *recordingObserver) LastItems() []Item {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Item(nil), o.lastItems...)
}

func (o *recordingObserver) Labels() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, len(o.labels))
	copy(out, o.labels)
	return out
}

// recordingHighlighter records local highlight speech.
type recordingHighlighter struct {
	mu       sync.Mutex
	spoken   []string
	silenced int
}

func (h *recordingHighlighter) Highlight(text string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.spoken = append(h.spoken, text)
}

func (h *recordingHighlighter) Silence() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.silenced++
}

// fakeNavigator returns fixed boards by name.
type fakeNavigator struct {
	boards map[string][]Item
}

func (n *fakeNavigator) Navigate(ctx context.Context, target string) (Outcome, error) {
	if target == "exit" {
		return Outcome{Teardown: true}, nil
	}
	items, ok := n.boards[target]
	if !ok {
		return Outcome{}, context.DeadlineExceeded
	}
	return ReplaceWith(items), nil
}

// waitFor polls cond until it holds or the test times out.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func speakItems(labels ...string) []Item {
	items := make([]Item, len(labels))
	for i, l := range labels {
		items[i] = NewItem(l, Speak{Text: l, Channel: announce.ChannelPersonal})
	}
	return items
}

type harness struct {
	ctrl  *Controller
	sched *manualScheduler
	clock *manualClock
	ann   *fakeAnnouncer
	obs   *recordingObserver
	hl    *recordingHighlighter
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		sched: &manualScheduler{},
		clock: newManualClock(),
		ann:   newFakeAnnouncer(),
		obs:   &recordingObserver{},
		hl:    &recordingHighlighter{},
	}
	base := []Option{
		WithInterval(100 * time.Millisecond),
		WithScheduler(h.sched),
		WithClock(h.clock),
		WithAnnouncer(h.ann),
		WithObserver(h.obs),
		WithHighlighter(h.hl),
	}
	ctrl, err := New(append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.ctrl = ctrl
	t.Cleanup(ctrl.Dispose)
	return h
}

func (h *harness) state() State {
	return h.ctrl.State()
}
