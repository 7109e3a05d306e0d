package scan

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/teslashibe/go-scanboard/pkg/announce"
	"github.com/teslashibe/go-scanboard/pkg/content"
)

func TestStartStepsImmediately(t *testing.T) {
	h := newHarness(t)
	h.ctrl.SetItems(speakItems("A", "B", "C"))

	if err := h.ctrl.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	snap := h.ctrl.Snapshot()
	if snap.State != StateScanning {
		t.Errorf("expected scanning, got %s", snap.State)
	}
	if snap.CursorIndex != 0 || snap.Current == nil || snap.Current.Label != "A" {
		t.Errorf("expected A highlighted at index 0, got %+v", snap)
	}
	if !h.sched.Running() {
		t.Error("expected timer armed")
	}
	if h.sched.interval != 100*time.Millisecond {
		t.Errorf("expected 100ms interval, got %v", h.sched.interval)
	}
}

func TestScanSequenceWrapsAndCountsCycles(t *testing.T) {
	h := newHarness(t)
	h.ctrl.SetItems(speakItems("A", "B", "C"))
	h.ctrl.Start()

	steps := []struct {
		label  string
		index  int
		cycles int
	}{
		{"B", 1, 0},
		{"C", 2, 0},
		{"A", 0, 1},
		{"B", 1, 1},
	}
	for _, step := range steps {
		h.sched.Fire()
		snap := h.ctrl.Snapshot()
		if snap.Current == nil || snap.Current.Label != step.label {
			t.Fatalf("expected %s highlighted, got %+v", step.label, snap.Current)
		}
		if snap.CursorIndex != step.index || snap.CycleCount != step.cycles {
			t.Errorf("%s: expected index %d cycles %d, got %d/%d",
				step.label, step.index, step.cycles, snap.CursorIndex, snap.CycleCount)
		}
	}

	want := []string{"A", "B", "C", "A", "B"}
	h.hl.mu.Lock()
	spoken := append([]string(nil), h.hl.spoken...)
	h.hl.mu.Unlock()
	if len(spoken) != len(want) {
		t.Fatalf("expected %d highlight utterances, got %v", len(want), spoken)
	}
	for i := range want {
		if spoken[i] != want[i] {
			t.Errorf("utterance %d: expected %s, got %s", i, want[i], spoken[i])
		}
	}
}

func TestCycleLimit(t *testing.T) {
	tests := []struct {
		name  string
		items int
		limit int
	}{
		{"one cycle of two", 2, 1},
		{"two cycles of three", 3, 2},
		{"three cycles of one", 1, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, WithCycleLimit(tt.limit))
			labels := []string{"A", "B", "C"}[:tt.items]
			h.ctrl.SetItems(speakItems(labels...))
			h.ctrl.Start()

			advances := tt.limit * tt.items
			h.sched.FireN(advances - 1)
			if got := h.state(); got != StateScanning {
				t.Fatalf("after %d advances expected scanning, got %s", advances-1, got)
			}

			h.sched.Fire()
			snap := h.ctrl.Snapshot()
			if snap.State != StatePausedByLimit {
				t.Fatalf("after %d advances expected paused, got %s", advances, snap.State)
			}
			if snap.CursorIndex != 0 {
				t.Errorf("expected cursor frozen at 0, got %d", snap.CursorIndex)
			}
			if h.sched.Running() {
				t.Error("expected timer disarmed")
			}
			h.ann.expect(t, "Scanning paused.")

			// Further ticks from a stale timer do nothing.
			h.sched.Fire()
			if h.ctrl.Snapshot().CursorIndex != 0 {
				t.Error("cursor moved while paused")
			}
		})
	}
}

func TestResume(t *testing.T) {
	t.Run("no-op when not paused", func(t *testing.T) {
		h := newHarness(t)
		h.ctrl.SetItems(speakItems("A", "B"))
		h.ctrl.Start()
		h.sched.Fire()
		before := h.ctrl.Snapshot()

		if err := h.ctrl.Resume(); !errors.Is(err, ErrNotPaused) {
			t.Errorf("expected ErrNotPaused, got %v", err)
		}
		after := h.ctrl.Snapshot()
		if after.State != before.State || after.CursorIndex != before.CursorIndex {
			t.Errorf("state changed: %+v -> %+v", before, after)
		}
		if h.clock.Pending() != 0 {
			t.Error("expected no pending restart")
		}
	})

	t.Run("restarts after grace delay", func(t *testing.T) {
		h := newHarness(t, WithCycleLimit(1))
		h.ctrl.SetItems(speakItems("A", "B"))
		h.ctrl.Start()
		h.sched.FireN(2)
		if h.state() != StatePausedByLimit {
			t.Fatalf("expected paused, got %s", h.state())
		}

		if err := h.ctrl.Resume(); err != nil {
			t.Fatalf("Resume: %v", err)
		}
		if got := h.ctrl.Snapshot().CycleCount; got != 0 {
			t.Errorf("expected cycle count reset, got %d", got)
		}
		h.ann.expect(t, "Scanning resumed.")

		// A second resume during the grace window is ignored.
		if err := h.ctrl.Resume(); !errors.Is(err, ErrNotPaused) {
			t.Errorf("expected second Resume to be ignored, got %v", err)
		}

		h.clock.Advance(time.Second)
		if h.state() != StatePausedByLimit {
			t.Fatalf("restarted before the resume delay")
		}

		h.clock.Advance(500 * time.Millisecond)
		snap := h.ctrl.Snapshot()
		if snap.State != StateScanning || snap.CursorIndex != 0 {
			t.Errorf("expected scanning from index 0, got %+v", snap)
		}
		if !h.sched.Running() {
			t.Error("expected timer armed after resume")
		}
	})
}

func TestPress(t *testing.T) {
	t.Run("resumes when paused", func(t *testing.T) {
		h := newHarness(t, WithCycleLimit(1))
		h.ctrl.SetItems(speakItems("A"))
		h.ctrl.Start()
		h.sched.Fire()
		if h.state() != StatePausedByLimit {
			t.Fatalf("expected paused, got %s", h.state())
		}

		h.ctrl.Press("keyboard")
		h.clock.Advance(DefaultResumeDelay)
		if h.state() != StateScanning {
			t.Errorf("expected scanning after press, got %s", h.state())
		}
	})

	t.Run("activates highlighted item", func(t *testing.T) {
		h := newHarness(t)
		h.ctrl.SetItems(speakItems("Yes", "No"))
		h.ctrl.Start()
		h.sched.Fire()

		h.ctrl.Press("gamepad")
		h.ann.expect(t, "No")
	})

	t.Run("ignored while idle", func(t *testing.T) {
		h := newHarness(t)
		h.ctrl.SetItems(speakItems("A"))
		h.ctrl.Press("keyboard")
		if h.state() != StateIdle {
			t.Errorf("expected idle, got %s", h.state())
		}
		if len(h.ann.Said()) != 0 {
			t.Error("expected nothing announced")
		}
	})

	t.Run("ignored while suspended", func(t *testing.T) {
		h := newHarness(t)
		h.ann.gate = make(chan struct{})
		h.ctrl.SetItems(speakItems("A", "B"))
		h.ctrl.Start()

		h.ctrl.Press("keyboard")
		h.ann.expect(t, "A")
		h.ctrl.Press("keyboard")
		h.ctrl.Press("keyboard")

		close(h.ann.gate)
		waitFor(t, "restart delay", func() bool { return h.clock.Pending() == 1 })
		if said := h.ann.Said(); len(said) != 1 {
			t.Errorf("expected a single activation, got %v", said)
		}
	})
}

func TestSpeakRestartsAfterAnnouncementCompletes(t *testing.T) {
	h := newHarness(t)
	h.ann.gate = make(chan struct{})
	h.ctrl.SetItems(speakItems("Hello", "Bye"))
	h.ctrl.Start()

	if err := h.ctrl.Activate(); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	h.ann.expect(t, "Hello")

	if h.state() != StateSuspended {
		t.Fatalf("expected suspended, got %s", h.state())
	}
	if h.sched.Running() {
		t.Error("timer armed during activation")
	}

	// However long playback takes, nothing restarts until it completes.
	h.clock.Advance(10 * time.Second)
	if h.state() != StateSuspended {
		t.Fatalf("restarted before announcement finished: %s", h.state())
	}

	close(h.ann.gate)
	waitFor(t, "post-selection delay", func() bool { return h.clock.Pending() == 1 })

	h.clock.Advance(999 * time.Millisecond)
	if h.state() != StateSuspended {
		t.Fatalf("restarted before the post-selection delay")
	}
	h.clock.Advance(time.Millisecond)

	snap := h.ctrl.Snapshot()
	if snap.State != StateScanning || snap.CursorIndex != 0 {
		t.Errorf("expected scanning from the first item, got %+v", snap)
	}
}

func TestGenerateOptionsReplacesItems(t *testing.T) {
	release := make(chan struct{})
	provider := content.NewMock()
	provider.GenerateFunc = func(ctx context.Context, prompt string) ([]content.Option, error) {
		<-release
		return []content.Option{
			{Option: "one"}, {Option: "two"}, {Option: "three"},
			{Option: "four"}, {Option: "five", Summary: "5"},
		}, nil
	}

	h := newHarness(t, WithContent(provider))
	items := speakItems("A", "B")
	items = append(items, NewItem("Ask", GenerateOptions{Prompt: "ideas"}))
	h.ctrl.SetItems(items)
	h.ctrl.Start()
	h.sched.FireN(2)

	h.ctrl.Press("keyboard")
	if h.state() != StateSuspended {
		t.Fatalf("expected suspended, got %s", h.state())
	}
	if h.sched.Running() {
		t.Fatal("timer armed while content is generating")
	}
	h.sched.Fire()

	close(release)
	waitFor(t, "new item set", func() bool { return h.state() == StateScanning })

	snap := h.ctrl.Snapshot()
	if len(snap.Items) != 5 {
		t.Fatalf("expected 5 items, got %d", len(snap.Items))
	}
	if snap.CursorIndex != 0 || snap.CycleCount != 0 {
		t.Errorf("expected fresh cursor at 0, got index %d cycles %d", snap.CursorIndex, snap.CycleCount)
	}
	if snap.Items[4].Label != "5" {
		t.Errorf("expected summary label, got %q", snap.Items[4].Label)
	}
	sp, ok := snap.Items[0].Effect.(Speak)
	if !ok || sp.Text != "one" || !sp.Record || sp.Channel != announce.ChannelPersonal {
		t.Errorf("unexpected option effect %#v", snap.Items[0].Effect)
	}
	if provider.Calls()[0].Prompt != "ideas" {
		t.Errorf("unexpected prompt %q", provider.Calls()[0].Prompt)
	}
	if h.clock.Pending() != 0 {
		t.Error("replacement should restart without a grace delay")
	}
}

func TestEffectErrorsRestartScanning(t *testing.T) {
	tests := []struct {
		name   string
		item   Item
		opts   []Option
		setErr error
	}{
		{
			name:   "announcement rejected",
			item:   NewItem("Hi", Speak{Text: "Hi", Channel: announce.ChannelPersonal}),
			setErr: errors.New("tts unavailable"),
		},
		{
			name: "content generation failed",
			item: NewItem("Ask", GenerateOptions{Prompt: "x"}),
			opts: []Option{WithContent(content.WithError(errors.New("502")))},
		},
		{
			name: "no options returned",
			item: NewItem("Ask", GenerateOptions{Prompt: "x"}),
			opts: []Option{WithContent(content.WithOptions())},
		},
		{
			name: "no navigator",
			item: NewItem("Go", Navigate{Target: "food"}),
		},
		{
			name: "action panicked",
			item: NewItem("Boom", Action{Name: "boom", Do: func(context.Context) (Outcome, error) {
				panic("kaboom")
			}}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.opts...)
			h.ann.err = tt.setErr
			h.ctrl.SetItems([]Item{tt.item, NewItem("Other", nil)})
			h.ctrl.Start()

			h.ctrl.Press("keyboard")
			h.ann.expect(t, "Sorry, an error occurred.")
			waitFor(t, "restart delay", func() bool { return h.clock.Pending() == 1 })

			if h.state() != StateSuspended {
				t.Fatalf("expected suspended during grace, got %s", h.state())
			}
			h.clock.Advance(DefaultPostSelectionDelay)

			snap := h.ctrl.Snapshot()
			if snap.State != StateScanning {
				t.Fatalf("expected scanning after error, got %s", snap.State)
			}
			if len(snap.Items) != 2 || snap.Items[0].Label != tt.item.Label {
				t.Errorf("expected last-known-good items, got %+v", snap.Items)
			}
		})
	}
}

func TestErrorWithNoItemsGoesIdle(t *testing.T) {
	h := newHarness(t)
	h.ann.err = errors.New("tts down")

	if err := h.ctrl.Perform(Speak{Text: "hello", Channel: announce.ChannelPersonal}); err != nil {
		t.Fatalf("Perform: %v", err)
	}
	waitFor(t, "idle", func() bool {
		return h.state() == StateIdle && len(h.ann.Said()) == 2
	})
	if h.clock.Pending() != 0 {
		t.Error("expected no restart scheduled for an idle controller")
	}
}

func TestStaleActivationDiscarded(t *testing.T) {
	var (
		cancelled = make(chan struct{})
		release   = make(chan struct{})
	)
	provider := content.NewMock()
	provider.GenerateFunc = func(ctx context.Context, prompt string) ([]content.Option, error) {
		<-ctx.Done()
		close(cancelled)
		<-release
		return []content.Option{{Option: "stale"}}, nil
	}

	h := newHarness(t, WithContent(provider))
	h.ctrl.SetItems([]Item{NewItem("Ask", GenerateOptions{Prompt: "x"})})
	h.ctrl.Start()
	h.ctrl.Press("keyboard")

	// The user navigates away mid-fetch.
	h.ctrl.SetItems(speakItems("Home", "Back"))

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight generation was not cancelled")
	}
	close(release)

	snap := h.ctrl.Snapshot()
	if snap.State != StateScanning || snap.Current == nil || snap.Current.Label != "Home" {
		t.Fatalf("expected scanning the new board, got %+v", snap)
	}

	time.Sleep(20 * time.Millisecond)
	snap = h.ctrl.Snapshot()
	for _, it := range snap.Items {
		if it.Label == "stale" {
			t.Fatal("stale response mutated the item set")
		}
	}
	if len(snap.Items) != 2 {
		t.Errorf("expected 2 items, got %d", len(snap.Items))
	}
}

func TestNavigation(t *testing.T) {
	nav := &fakeNavigator{boards: map[string][]Item{
		"food": speakItems("Apple", "Bread", "Cheese"),
	}}

	t.Run("speak then navigate", func(t *testing.T) {
		h := newHarness(t, WithNavigator(nav))
		h.ctrl.SetItems([]Item{NewItem("Food", Compound{Effects: []Effect{
			Speak{Text: "I'm hungry", Channel: announce.ChannelPersonal},
			Navigate{Target: "food"},
		}})})
		h.ctrl.Start()
		h.ctrl.Press("keyboard")

		h.ann.expect(t, "I'm hungry")
		waitFor(t, "food board", func() bool { return h.state() == StateScanning })

		snap := h.ctrl.Snapshot()
		if len(snap.Items) != 3 || snap.Current.Label != "Apple" {
			t.Errorf("expected food board at Apple, got %+v", snap)
		}
	})

	t.Run("teardown goes idle", func(t *testing.T) {
		h := newHarness(t, WithNavigator(nav))
		h.ctrl.SetItems([]Item{NewItem("Exit", Navigate{Target: "exit"})})
		h.ctrl.Start()
		h.ctrl.Press("keyboard")

		waitFor(t, "idle", func() bool { return h.state() == StateIdle })
		snap := h.ctrl.Snapshot()
		if len(snap.Items) != 0 || snap.CursorIndex != -1 {
			t.Errorf("expected empty idle controller, got %+v", snap)
		}
		if h.sched.Running() {
			t.Error("timer armed after teardown")
		}
	})

	t.Run("compound stops at first error", func(t *testing.T) {
		h := newHarness(t, WithNavigator(nav))
		h.ann.err = errors.New("offline")
		h.ctrl.SetItems([]Item{NewItem("Food", Compound{Effects: []Effect{
			Speak{Text: "I'm hungry", Channel: announce.ChannelPersonal},
			Navigate{Target: "food"},
		}})})
		h.ctrl.Start()
		h.ctrl.Press("keyboard")

		h.ann.expect(t, "Sorry, an error occurred.")
		waitFor(t, "restart delay", func() bool { return h.clock.Pending() == 1 })
		h.clock.Advance(DefaultPostSelectionDelay)

		if snap := h.ctrl.Snapshot(); len(snap.Items) != 1 || snap.Items[0].Label != "Food" {
			t.Errorf("expected original board, got %+v", snap.Items)
		}
	})
}

func TestSingleTimer(t *testing.T) {
	h := newHarness(t)
	h.ctrl.SetItems(speakItems("A", "B", "C"))

	h.ctrl.Start()
	staleTick := h.sched.current()
	h.ctrl.Start()

	if h.sched.starts != 2 {
		t.Fatalf("expected 2 arms, got %d", h.sched.starts)
	}

	// A tick from the first timer that slipped through must not advance.
	staleTick()
	if idx := h.ctrl.Snapshot().CursorIndex; idx != 0 {
		t.Errorf("stale tick advanced the cursor to %d", idx)
	}

	h.sched.Fire()
	if idx := h.ctrl.Snapshot().CursorIndex; idx != 1 {
		t.Errorf("expected live tick to advance to 1, got %d", idx)
	}
}

func TestStop(t *testing.T) {
	h := newHarness(t)
	h.ctrl.SetItems(speakItems("A", "B"))
	h.ctrl.Start()
	h.sched.Fire()

	h.ctrl.Stop()
	h.ctrl.Stop()

	snap := h.ctrl.Snapshot()
	if snap.State != StateIdle || snap.CursorIndex != -1 || snap.Current != nil {
		t.Errorf("expected idle with no highlight, got %+v", snap)
	}
	if h.sched.Running() {
		t.Error("timer still armed")
	}
	h.obs.mu.Lock()
	clears := h.obs.clears
	h.obs.mu.Unlock()
	if clears == 0 {
		t.Error("expected highlight cleared")
	}
	if len(snap.Items) != 2 {
		t.Error("Stop should keep the item set")
	}
}

func TestEmptyItemSet(t *testing.T) {
	h := newHarness(t)

	if err := h.ctrl.Start(); !errors.Is(err, ErrNoItems) {
		t.Errorf("expected ErrNoItems, got %v", err)
	}

	h.ctrl.SetItems(speakItems("A", "B"))
	h.ctrl.Start()
	h.ctrl.SetItems(nil)

	snap := h.ctrl.Snapshot()
	if snap.State != StateIdle || snap.CursorIndex != -1 {
		t.Errorf("expected idle at -1, got %+v", snap)
	}
	h.sched.Fire()

	hidden := speakItems("X")
	hidden[0].Hidden = true
	h.ctrl.SetItems(hidden)
	if err := h.ctrl.Start(); !errors.Is(err, ErrNoItems) {
		t.Errorf("hidden items should not be scannable, got %v", err)
	}
}

func TestHiddenItemsNotBroadcast(t *testing.T) {
	h := newHarness(t)
	items := speakItems("A", "Secret", "B")
	items[1].Hidden = true
	h.ctrl.SetItems(items)

	var labels []string
	for _, it := range h.obs.LastItems() {
		labels = append(labels, it.Label)
	}
	if len(labels) != 2 || labels[0] != "A" || labels[1] != "B" {
		t.Errorf("observer items = %v, want [A B]", labels)
	}
	if snap := h.ctrl.Snapshot(); len(snap.Items) != 2 {
		t.Errorf("snapshot items = %d, want 2", len(snap.Items))
	}
}

func TestSetItemsWhileScanningRestarts(t *testing.T) {
	h := newHarness(t)
	h.ctrl.SetItems(speakItems("A", "B", "C"))
	h.ctrl.Start()
	h.sched.FireN(2)

	h.ctrl.SetItems(speakItems("X", "Y"))
	snap := h.ctrl.Snapshot()
	if snap.State != StateScanning || snap.Current.Label != "X" || snap.CycleCount != 0 {
		t.Errorf("expected fresh scan of new set, got %+v", snap)
	}
}

func TestDisabled(t *testing.T) {
	h := newHarness(t, WithDisabled(true))
	h.ctrl.SetItems(speakItems("A"))
	if err := h.ctrl.Start(); !errors.Is(err, ErrScanningDisabled) {
		t.Errorf("expected ErrScanningDisabled, got %v", err)
	}

	h.ctrl.SetDisabled(false)
	if err := h.ctrl.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.ctrl.SetDisabled(true)
	if h.state() != StateIdle || h.sched.Running() {
		t.Errorf("expected disabling to stop scanning, got %s", h.state())
	}
}

func TestSetTiming(t *testing.T) {
	h := newHarness(t)
	h.ctrl.SetItems(speakItems("A", "B"))
	h.ctrl.Start()

	if err := h.ctrl.SetTiming(2*time.Second, 3); err != nil {
		t.Fatalf("SetTiming: %v", err)
	}
	if h.sched.interval != 2*time.Second {
		t.Errorf("expected timer re-armed at 2s, got %v", h.sched.interval)
	}
	snap := h.ctrl.Snapshot()
	if snap.CycleLimit != 3 || snap.CursorIndex != 0 {
		t.Errorf("unexpected snapshot %+v", snap)
	}

	if err := h.ctrl.SetTiming(0, 0); !errors.Is(err, ErrInvalidInterval) {
		t.Errorf("expected ErrInvalidInterval, got %v", err)
	}
	if err := h.ctrl.SetTiming(time.Second, -1); !errors.Is(err, ErrInvalidCycleLimit) {
		t.Errorf("expected ErrInvalidCycleLimit, got %v", err)
	}
}

func TestListening(t *testing.T) {
	t.Run("release restarts scanning", func(t *testing.T) {
		h := newHarness(t)
		h.ctrl.SetItems(speakItems("A", "B"))
		h.ctrl.Start()
		h.sched.Fire()

		release, err := h.ctrl.BeginListening()
		if err != nil {
			t.Fatalf("BeginListening: %v", err)
		}
		if h.state() != StateListening || h.sched.Running() {
			t.Fatalf("expected listening with timer off, got %s", h.state())
		}

		h.ctrl.Press("keyboard")
		if h.state() != StateListening {
			t.Error("press should be ignored while listening")
		}
		if _, err := h.ctrl.BeginListening(); !errors.Is(err, ErrBusy) {
			t.Errorf("expected ErrBusy, got %v", err)
		}
		if err := h.ctrl.Start(); !errors.Is(err, ErrBusy) {
			t.Errorf("expected Start to be refused, got %v", err)
		}

		release()
		release()

		snap := h.ctrl.Snapshot()
		if snap.State != StateScanning || snap.CursorIndex != 0 {
			t.Errorf("expected scanning from 0, got %+v", snap)
		}
		if h.sched.starts != 2 {
			t.Errorf("expected exactly one re-arm, got %d arms", h.sched.starts)
		}
	})

	t.Run("idle stays idle", func(t *testing.T) {
		h := newHarness(t)
		h.ctrl.SetItems(speakItems("A"))

		release, _ := h.ctrl.BeginListening()
		release()
		if h.state() != StateIdle {
			t.Errorf("expected idle, got %s", h.state())
		}
	})

	t.Run("perform from listening", func(t *testing.T) {
		provider := content.WithOptions(content.Option{Option: "Sunny today"})
		h := newHarness(t, WithContent(provider))
		h.ctrl.SetItems(speakItems("A"))
		h.ctrl.Start()

		release, _ := h.ctrl.BeginListening()
		if err := h.ctrl.Perform(GenerateOptions{Prompt: "what's the weather"}); err != nil {
			t.Fatalf("Perform: %v", err)
		}
		release()

		waitFor(t, "options", func() bool { return h.state() == StateScanning })
		if snap := h.ctrl.Snapshot(); snap.Current.Label != "Sunny today" {
			t.Errorf("expected generated option, got %+v", snap.Current)
		}
	})
}

func TestDispose(t *testing.T) {
	var started sync.WaitGroup
	started.Add(1)
	provider := content.NewMock()
	provider.GenerateFunc = func(ctx context.Context, prompt string) ([]content.Option, error) {
		started.Done()
		<-ctx.Done()
		return nil, ctx.Err()
	}

	h := newHarness(t, WithContent(provider))
	h.ctrl.SetItems([]Item{NewItem("Ask", GenerateOptions{Prompt: "x"})})
	h.ctrl.Start()
	h.ctrl.Press("keyboard")
	started.Wait()

	done := make(chan struct{})
	go func() {
		h.ctrl.Dispose()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Dispose did not return")
	}

	if h.sched.Running() {
		t.Error("timer armed after dispose")
	}
	if err := h.ctrl.Start(); !errors.Is(err, ErrDisposed) {
		t.Errorf("expected ErrDisposed, got %v", err)
	}
	if _, err := h.ctrl.BeginListening(); !errors.Is(err, ErrDisposed) {
		t.Errorf("expected ErrDisposed, got %v", err)
	}
	h.ctrl.Dispose()
}

func TestNewValidates(t *testing.T) {
	if _, err := New(WithInterval(0)); !errors.Is(err, ErrInvalidInterval) {
		t.Errorf("expected ErrInvalidInterval, got %v", err)
	}
	if _, err := New(WithCycleLimit(-2)); !errors.Is(err, ErrInvalidCycleLimit) {
		t.Errorf("expected ErrInvalidCycleLimit, got %v", err)
	}
}
