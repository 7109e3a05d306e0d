package scan

import (
	"log/slog"
	"time"

	"github.com/teslashibe/go-scanboard/pkg/content"
)

// Default timings.
const (
	DefaultInterval           = 3500 * time.Millisecond
	DefaultResumeDelay        = 1500 * time.Millisecond
	DefaultPostSelectionDelay = 1000 * time.Millisecond
)

// Messages are the fixed announcements made by the controller itself.
type Messages struct {
	Paused  string
	Resumed string
	Failed  string
}

// DefaultMessages returns the stock English announcements.
func DefaultMessages() Messages {
	return Messages{
		Paused:  "Scanning paused.",
		Resumed: "Scanning resumed.",
		Failed:  "Sorry, an error occurred.",
	}
}

// Config holds controller configuration.
// Use functional options (WithXxx) to set these values.
type Config struct {
	// Timing
	Interval           time.Duration
	CycleLimit         int // 0 = unlimited
	ResumeDelay        time.Duration
	PostSelectionDelay time.Duration

	// Disabled mirrors the ScanningOff setting: Start becomes a no-op.
	Disabled bool

	// Collaborators
	Clock       Clock
	Scheduler   Scheduler
	Announcer   Announcer
	Highlighter Highlighter
	Observers   []Observer
	Navigator   Navigator
	Content     content.Provider

	Messages Messages

	// Observability
	Logger *slog.Logger
}

// Option is a functional option for configuring a Controller.
type Option func(*Config)

// WithInterval sets the delay between scan steps.
func WithInterval(d time.Duration) Option {
	return func(c *Config) {
		c.Interval = d
	}
}

// WithCycleLimit sets how many full cycles run before auto-pausing.
// Zero means unlimited.
func WithCycleLimit(n int) Option {
	return func(c *Config) {
		c.CycleLimit = n
	}
}

// WithDisabled turns scanning off entirely.
func WithDisabled(disabled bool) Option {
	return func(c *Config) {
		c.Disabled = disabled
	}
}

// WithResumeDelay sets the grace window between Resume and the restart.
func WithResumeDelay(d time.Duration) Option {
	return func(c *Config) {
		c.ResumeDelay = d
	}
}

// WithPostSelectionDelay sets the pause after a spoken selection before
// scanning restarts.
func WithPostSelectionDelay(d time.Duration) Option {
	return func(c *Config) {
		c.PostSelectionDelay = d
	}
}

// WithClock sets the clock used for one-shot delays.
func WithClock(clock Clock) Option {
	return func(c *Config) {
		c.Clock = clock
	}
}

// WithScheduler sets the repeating scan timer.
func WithScheduler(s Scheduler) Option {
	return func(c *Config) {
		c.Scheduler = s
	}
}

// WithAnnouncer sets the queued announcer used by Speak effects and the
// controller's own messages.
func WithAnnouncer(a Announcer) Option {
	return func(c *Config) {
		c.Announcer = a
	}
}

// WithHighlighter sets the local, interruptible speech for highlights.
func WithHighlighter(h Highlighter) Option {
	return func(c *Config) {
		c.Highlighter = h
	}
}

// WithObserver adds a render adapter. May be given more than once.
func WithObserver(o Observer) Option {
	return func(c *Config) {
		if o != nil {
			c.Observers = append(c.Observers, o)
		}
	}
}

// WithNavigator sets the resolver for Navigate effects.
func WithNavigator(n Navigator) Option {
	return func(c *Config) {
		c.Navigator = n
	}
}

// WithContent sets the provider for GenerateOptions effects.
func WithContent(p content.Provider) Option {
	return func(c *Config) {
		c.Content = p
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithMessages overrides the controller's announcements.
func WithMessages(m Messages) Option {
	return func(c *Config) {
		c.Messages = m
	}
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		Interval:           DefaultInterval,
		ResumeDelay:        DefaultResumeDelay,
		PostSelectionDelay: DefaultPostSelectionDelay,
		Messages:           DefaultMessages(),
		Logger:             slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks the timing configuration.
func (c *Config) Validate() error {
	if c.Interval <= 0 {
		return ErrInvalidInterval
	}
	if c.CycleLimit < 0 {
		return ErrInvalidCycleLimit
	}
	return nil
}
