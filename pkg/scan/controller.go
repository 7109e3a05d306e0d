package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-scanboard/pkg/announce"
)

// Controller is the scanning state machine for one board session.
// All methods are safe for concurrent use.
//
// Activating an item halts the timer and runs the item's effect on its own
// goroutine. Exactly one restart follows each activation, whichever way the
// effect ends (success, error, panic). Activations superseded by SetItems,
// Stop or Dispose are cancelled through their context and their results
// are discarded.
type Controller struct {
	cfg    *Config
	logger *slog.Logger

	mu       sync.Mutex
	cursor   *Cursor
	state    State
	disposed bool

	scanGen uint64 // bumped whenever the timer is re-armed or halted

	actGen    uint64             // bumped per activation and on cancellation
	actCancel context.CancelFunc // cancels the in-flight activation, if any

	delay    Timer  // pending resume/post-selection restart
	delayGen uint64 // invalidates delay callbacks that already fired

	listenFrom State // state before BeginListening

	root       context.Context
	cancelRoot context.CancelFunc
	inflight   sync.WaitGroup
}

// New creates an idle controller with no items.
func New(opts ...Option) (*Controller, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Clock == nil {
		cfg.Clock = RealClock()
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = NewTickerScheduler()
	}
	if cfg.Highlighter == nil {
		cfg.Highlighter = nopHighlighter{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	root, cancel := context.WithCancel(context.Background())
	return &Controller{
		cfg:        cfg,
		logger:     cfg.Logger.With("component", "scan.Controller"),
		cursor:     NewCursor(nil),
		state:      StateIdle,
		root:       root,
		cancelRoot: cancel,
	}, nil
}

// SetItems replaces the scan set. Any in-flight activation is cancelled.
// An active controller restarts on the new set (or goes Idle if it is
// empty); an idle one stays idle. A listening controller keeps listening.
func (c *Controller) SetItems(items []Item) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return
	}

	c.cancelActivation()
	c.cancelDelay()
	c.halt()

	c.cursor.Set(items)
	c.notifyItems()

	switch c.state {
	case StateListening:
		c.clear()
	case StateScanning, StatePausedByLimit, StateSuspended:
		if c.cursor.Len() == 0 || c.cfg.Disabled {
			c.toIdle()
			return
		}
		c.startLocked()
	default:
		c.clear()
	}
}

// Start begins scanning: the first item is highlighted immediately and the
// timer is armed. Calling Start while scanning restarts from the first item.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.canStart(); err != nil {
		return err
	}
	c.cancelDelay()
	c.startLocked()
	return nil
}

// Stop halts scanning, clears the highlight and cancels any in-flight
// activation. Stop is idempotent.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return
	}
	c.cancelActivation()
	c.cancelDelay()
	c.toIdle()
}

// Resume restarts scanning after the cycle limit paused it. It is only
// valid from PausedByLimit; anywhere else it is a no-op returning
// ErrNotPaused. Scanning restarts after the resume delay.
func (c *Controller) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return ErrDisposed
	}
	return c.resumeLocked()
}

// Press is the single "activate" signal shared by every discrete input
// adapter. A press resumes a paused controller, activates the highlighted
// item while scanning, and is ignored otherwise.
func (c *Controller) Press(source string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return
	}

	switch c.state {
	case StatePausedByLimit:
		if err := c.resumeLocked(); err != nil {
			c.logger.Debug("press ignored", "source", source, "reason", err)
		}
	case StateScanning:
		item, ok := c.cursor.Current()
		if !ok {
			c.logger.Debug("press ignored", "source", source, "reason", "nothing highlighted")
			return
		}
		c.logger.Debug("press", "source", source, "item", item.Label)
		c.activateLocked(item.Effect, item.Label, true)
	default:
		c.logger.Debug("press ignored", "source", source, "state", c.state)
	}
}

// Activate selects the highlighted item.
func (c *Controller) Activate() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return ErrDisposed
	}
	if c.state != StateScanning {
		return ErrBusy
	}
	item, ok := c.cursor.Current()
	if !ok {
		return ErrNoItems
	}
	c.activateLocked(item.Effect, item.Label, true)
	return nil
}

// Perform runs an effect that is not tied to a highlighted item, such as a
// question captured by the voice adapter. It follows the same suspend and
// restart rules as an activation. Scanning only restarts afterwards if the
// controller was active before.
func (c *Controller) Perform(effect Effect) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return ErrDisposed
	}
	if c.state == StateSuspended {
		return ErrBusy
	}

	from := c.state
	if from == StateListening {
		from = c.listenFrom
	}
	c.activateLocked(effect, "", from != StateIdle)
	return nil
}

// BeginListening halts scanning for a voice capture. The returned release
// func restarts scanning if the controller is still listening when it is
// called; it is safe to call more than once.
func (c *Controller) BeginListening() (release func(), err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return nil, ErrDisposed
	}
	if c.state == StateSuspended || c.state == StateListening {
		return nil, ErrBusy
	}

	c.listenFrom = c.state
	c.cancelDelay()
	c.halt()
	c.cursor.Reset()
	c.clear()
	c.setState(StateListening)

	var once sync.Once
	return func() {
		once.Do(c.endListening)
	}, nil
}

func (c *Controller) endListening() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed || c.state != StateListening {
		return
	}
	if c.listenFrom == StateIdle || c.cfg.Disabled || c.cursor.Len() == 0 {
		c.toIdle()
		return
	}
	c.startLocked()
}

// SetTiming changes the interval and cycle limit at runtime. A running
// timer is re-armed with the new interval without moving the cursor.
func (c *Controller) SetTiming(interval time.Duration, cycleLimit int) error {
	if interval <= 0 {
		return ErrInvalidInterval
	}
	if cycleLimit < 0 {
		return ErrInvalidCycleLimit
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cfg.Interval = interval
	c.cfg.CycleLimit = cycleLimit
	if c.state == StateScanning && !c.disposed {
		c.arm()
	}
	return nil
}

// SetDisabled toggles the ScanningOff setting. Disabling stops an active
// scan; enabling does not start one.
func (c *Controller) SetDisabled(disabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cfg.Disabled = disabled
	if !disabled || c.disposed {
		return
	}
	if c.state == StateScanning || c.state == StatePausedByLimit {
		c.cancelDelay()
		c.toIdle()
	}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		State:       c.state,
		CursorIndex: c.cursor.Index(),
		CycleCount:  c.cursor.Cycles(),
		CycleLimit:  c.cfg.CycleLimit,
		Items:       c.cursor.Items(),
	}
	if item, ok := c.cursor.Current(); ok {
		s.Current = &item
	}
	return s
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Dispose tears the controller down: the timer is disarmed, pending delays
// and activations are cancelled, and Dispose waits for effect goroutines
// to return. The controller cannot be reused.
func (c *Controller) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.cancelActivation()
	c.cancelDelay()
	c.toIdle()
	c.disposed = true
	c.cancelRoot()
	c.mu.Unlock()

	c.inflight.Wait()
	c.logger.Debug("disposed")
}

// canStart reports why Start would be refused.
func (c *Controller) canStart() error {
	switch {
	case c.disposed:
		return ErrDisposed
	case c.cfg.Disabled:
		return ErrScanningDisabled
	case c.cursor.Len() == 0:
		return ErrNoItems
	case c.state == StateSuspended || c.state == StateListening:
		return ErrBusy
	}
	return nil
}

// startLocked resets the cursor, steps onto the first item and arms the
// timer. Callers check canStart (or equivalent) first.
func (c *Controller) startLocked() {
	c.cursor.Reset()
	c.cursor.ResetCycles()
	c.setState(StateScanning)
	c.step()
	if c.state == StateScanning {
		c.arm()
	}
}

// arm (re)starts the repeating timer for the current scan generation.
func (c *Controller) arm() {
	c.scanGen++
	gen := c.scanGen
	c.cfg.Scheduler.Start(c.cfg.Interval, func() {
		c.tick(gen)
	})
}

// halt disarms the timer. Ticks already in flight see a new generation
// and do nothing.
func (c *Controller) halt() {
	c.scanGen++
	c.cfg.Scheduler.Stop()
}

func (c *Controller) tick(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.scanGen || c.state != StateScanning || c.disposed {
		return
	}
	c.step()
}

// step advances the cursor once and enforces the cycle limit.
func (c *Controller) step() {
	wrapped, ok := c.cursor.Advance()
	if !ok {
		c.logger.Debug("empty item set, stopping")
		c.toIdle()
		return
	}

	if wrapped && c.cfg.CycleLimit > 0 && c.cursor.Cycles() >= c.cfg.CycleLimit {
		c.pause()
		return
	}

	item, _ := c.cursor.Current()
	c.highlight(c.cursor.Index(), item)
}

// pause enters PausedByLimit with the highlight frozen on the first item.
func (c *Controller) pause() {
	c.halt()
	c.cursor.Freeze(0)
	c.setState(StatePausedByLimit)

	if item, ok := c.cursor.Current(); ok {
		for _, o := range c.cfg.Observers {
			o.Highlight(0, item)
		}
	}
	c.cfg.Highlighter.Silence()

	c.logger.Info("cycle limit reached", "limit", c.cfg.CycleLimit)
	c.say(c.cfg.Messages.Paused)
}

func (c *Controller) resumeLocked() error {
	if c.state != StatePausedByLimit || c.delay != nil {
		return ErrNotPaused
	}

	c.cursor.ResetCycles()
	c.logger.Info("resuming", "delay", c.cfg.ResumeDelay)
	c.say(c.cfg.Messages.Resumed)

	c.after(c.cfg.ResumeDelay, func() {
		if c.state != StatePausedByLimit {
			return
		}
		if c.canStart() != nil {
			c.toIdle()
			return
		}
		c.startLocked()
	})
	return nil
}

// activateLocked halts scanning and runs effect on its own goroutine.
func (c *Controller) activateLocked(effect Effect, label string, restart bool) {
	c.cancelActivation()
	c.cancelDelay()
	c.halt()
	c.cfg.Highlighter.Silence()
	c.setState(StateSuspended)

	c.actGen++
	gen := c.actGen
	ctx, cancel := context.WithCancel(c.root)
	c.actCancel = cancel

	kind := "none"
	if effect != nil {
		kind = effect.Kind()
	}
	c.logger.Debug("activating", "kind", kind, "item", label)

	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		defer cancel()

		out, err := c.run(ctx, effect)
		if err != nil {
			err = &EffectError{Kind: kind, Label: label, Err: err}
		}
		c.finish(gen, effect, restart, out, err)
	}()
}

// run executes effect, converting a panic into an error.
func (c *Controller) run(ctx context.Context, effect Effect) (out Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return c.execute(ctx, effect)
}

func (c *Controller) execute(ctx context.Context, effect Effect) (Outcome, error) {
	switch e := effect.(type) {
	case nil:
		return Outcome{}, nil

	case Speak:
		if c.cfg.Announcer == nil {
			return Outcome{}, ErrNoAnnouncer
		}
		return Outcome{}, c.cfg.Announcer.Announce(ctx, e.Text, e.Channel, e.Record)

	case Navigate:
		if c.cfg.Navigator == nil {
			return Outcome{}, ErrNoNavigator
		}
		return c.cfg.Navigator.Navigate(ctx, e.Target)

	case GenerateOptions:
		if c.cfg.Content == nil {
			return Outcome{}, ErrNoContent
		}
		opts, err := c.cfg.Content.Generate(ctx, e.Prompt)
		if err != nil {
			return Outcome{}, err
		}
		items := OptionItems(opts)
		if len(items) == 0 {
			return Outcome{}, ErrNoOptions
		}
		return ReplaceWith(items), nil

	case Compound:
		var out Outcome
		for _, child := range e.Effects {
			o, err := c.execute(ctx, child)
			if err != nil {
				return out, err
			}
			if o.Teardown {
				return o, nil
			}
			if o.Replace {
				out = o
			}
		}
		return out, nil

	case Action:
		if e.Do == nil {
			return Outcome{}, nil
		}
		return e.Do(ctx)

	default:
		return Outcome{}, fmt.Errorf("scan: unknown effect %T", effect)
	}
}

// finish is the single restart point of an activation.
func (c *Controller) finish(gen uint64, effect Effect, restart bool, out Outcome, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.actGen || c.disposed {
		c.logger.Debug("discarding stale activation result", "error", err)
		return
	}
	c.actCancel = nil

	if err != nil {
		if errors.Is(err, context.Canceled) {
			c.logger.Debug("activation cancelled", "error", err)
		} else {
			c.logger.Warn("activation failed", "error", err)
			c.say(c.cfg.Messages.Failed)
		}
	}

	if out.Teardown && err == nil {
		c.cursor.Set(nil)
		c.notifyItems()
		c.toIdle()
		return
	}

	if out.Replace && err == nil {
		c.cursor.Set(out.Items)
		c.notifyItems()
	}

	if !restart || c.cfg.Disabled || c.cursor.Len() == 0 {
		c.toIdle()
		return
	}

	if err == nil && (out.Replace || !spoke(effect)) {
		c.startLocked()
		return
	}

	c.after(c.cfg.PostSelectionDelay, func() {
		if c.state != StateSuspended {
			return
		}
		if c.cfg.Disabled || c.cursor.Len() == 0 {
			c.toIdle()
			return
		}
		c.startLocked()
	})
}

// cancelActivation cancels the in-flight activation and invalidates its
// result.
func (c *Controller) cancelActivation() {
	c.actGen++
	if c.actCancel != nil {
		c.actCancel()
		c.actCancel = nil
	}
}

// after schedules f under the controller lock. Only one delay is pending
// at a time; scheduling another replaces it.
func (c *Controller) after(d time.Duration, f func()) {
	c.cancelDelay()
	gen := c.delayGen
	c.delay = c.cfg.Clock.AfterFunc(d, func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		if gen != c.delayGen || c.disposed {
			return
		}
		c.delay = nil
		f()
	})
}

func (c *Controller) cancelDelay() {
	c.delayGen++
	if c.delay != nil {
		c.delay.Stop()
		c.delay = nil
	}
}

// toIdle halts scanning and clears the highlight.
func (c *Controller) toIdle() {
	c.halt()
	c.cursor.Reset()
	c.clear()
	c.setState(StateIdle)
}

// say queues a controller announcement without waiting for it.
func (c *Controller) say(text string) {
	if c.cfg.Announcer == nil || text == "" {
		return
	}
	ctx := c.root
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		if err := c.cfg.Announcer.Announce(ctx, text, announce.ChannelSystem, false); err != nil {
			c.logger.Debug("announcement failed", "text", text, "error", err)
		}
	}()
}

func (c *Controller) setState(s State) {
	if c.state == s {
		return
	}
	c.logger.Debug("state", "from", c.state, "to", s)
	c.state = s
	for _, o := range c.cfg.Observers {
		o.StateChanged(s)
	}
}

func (c *Controller) highlight(index int, item Item) {
	for _, o := range c.cfg.Observers {
		o.Highlight(index, item)
	}
	c.cfg.Highlighter.Highlight(item.Label)
}

func (c *Controller) clear() {
	for _, o := range c.cfg.Observers {
		o.Clear()
	}
	c.cfg.Highlighter.Silence()
}

func (c *Controller) notifyItems() {
	if len(c.cfg.Observers) == 0 {
		return
	}
	items := c.cursor.Items()
	for _, o := range c.cfg.Observers {
		o.ItemsChanged(items)
	}
}
