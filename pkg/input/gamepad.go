package input

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ButtonReader reports the current state of the activate button.
// Implementations return the last known state when no new report arrived.
type ButtonReader interface {
	Pressed() (bool, error)
	Close() error
}

// PollerConfig configures a Poller.
type PollerConfig struct {
	Frame    time.Duration
	Debounce time.Duration
	Now      func() time.Time
	Logger   *slog.Logger
}

// PollerOption configures a Poller.
type PollerOption func(*PollerConfig)

// WithFrame sets the polling period.
func WithFrame(d time.Duration) PollerOption {
	return func(c *PollerConfig) {
		c.Frame = d
	}
}

// WithDebounce sets the minimum time between two activations.
func WithDebounce(d time.Duration) PollerOption {
	return func(c *PollerConfig) {
		c.Debounce = d
	}
}

// WithNow sets the wall clock used for debouncing.
func WithNow(now func() time.Time) PollerOption {
	return func(c *PollerConfig) {
		c.Now = now
	}
}

// WithPollerLogger sets the structured logger.
func WithPollerLogger(logger *slog.Logger) PollerOption {
	return func(c *PollerConfig) {
		c.Logger = logger
	}
}

// Poller samples a gamepad button once per frame and presses the target
// on each released-to-pressed transition. Activations closer together than
// the debounce window collapse into one, independent of the frame rate.
type Poller struct {
	reader   ButtonReader
	target   Target
	frame    time.Duration
	debounce *debouncer
	logger   *slog.Logger

	mu      sync.Mutex
	was     bool
	lastErr string
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewPoller creates a gamepad poller. Call Run or Start to begin polling.
func NewPoller(reader ButtonReader, target Target, opts ...PollerOption) *Poller {
	cfg := &PollerConfig{
		Frame:    DefaultFrameInterval,
		Debounce: DefaultDebounce,
		Logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Frame <= 0 {
		cfg.Frame = DefaultFrameInterval
	}

	return &Poller{
		reader:   reader,
		target:   target,
		frame:    cfg.Frame,
		debounce: newDebouncer(cfg.Debounce, cfg.Now),
		logger:   cfg.Logger.With("component", "input.Poller"),
	}
}

// Poll samples the button once. It reports whether a press was sent.
func (p *Poller) Poll() bool {
	pressed, err := p.reader.Pressed()

	p.mu.Lock()
	if err != nil {
		// Log each distinct failure once; a pad that stays unplugged
		// would otherwise flood the log at frame rate.
		if msg := err.Error(); msg != p.lastErr {
			p.lastErr = msg
			p.logger.Warn("gamepad read failed", "error", err)
		}
		p.was = false
		p.mu.Unlock()
		return false
	}
	p.lastErr = ""
	edge := pressed && !p.was
	p.was = pressed
	p.mu.Unlock()

	if !edge || !p.debounce.allow() {
		return false
	}
	p.target.Press(SourceGamepad)
	return true
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.frame)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.Poll()
		}
	}
}

// Start runs the poller in the background. Calling Start while running is
// a no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done

	go func() {
		defer close(done)
		p.Run(ctx)
	}()
	p.logger.Debug("gamepad polling started", "frame", p.frame)
}

// Stop halts background polling and waits for the loop to exit.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	p.logger.Debug("gamepad polling stopped")
}

// Close stops polling and closes the reader.
func (p *Poller) Close() error {
	p.Stop()
	return p.reader.Close()
}
