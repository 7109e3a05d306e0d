package announce

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-scanboard/pkg/tts"
)

// HistoryRecorder stores utterances after they were spoken.
type HistoryRecorder interface {
	Record(ctx context.Context, text, channel string) error
}

// Config holds announcer configuration.
type Config struct {
	Player  Player
	History HistoryRecorder

	// Timeout bounds synthesis plus playback of one request.
	Timeout time.Duration

	Logger *slog.Logger
}

// Option is a functional option for configuring an Announcer.
type Option func(*Config)

// WithPlayer sets where synthesized audio is played.
func WithPlayer(p Player) Option {
	return func(c *Config) {
		c.Player = p
	}
}

// WithHistory sets the recorder for requests with RecordHistory.
func WithHistory(h HistoryRecorder) Option {
	return func(c *Config) {
		c.History = h
	}
}

// WithTimeout bounds each request's synthesis and playback.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Timeout = d
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		Player:  NullPlayer{},
		Timeout: 60 * time.Second,
		Logger:  slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Announcer plays queued requests one at a time, in enqueue order.
type Announcer struct {
	synth   tts.Provider
	player  Player
	history HistoryRecorder
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	queue   []*Ticket
	current *Ticket
	closed  bool

	wake   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates an announcer and starts its worker.
func New(synth tts.Provider, opts ...Option) *Announcer {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if cfg.Player == nil {
		cfg.Player = NullPlayer{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &Announcer{
		synth:   synth,
		player:  cfg.Player,
		history: cfg.History,
		timeout: cfg.Timeout,
		logger:  cfg.Logger.With("component", "announce.Announcer"),
		wake:    make(chan struct{}, 1),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

// Enqueue adds a request to the tail of the queue and returns at once.
func (a *Announcer) Enqueue(text string, channel Channel, record bool) *Ticket {
	t := newTicket(Request{
		ID:            uuid.New(),
		Text:          text,
		Channel:       channel,
		RecordHistory: record,
		EnqueuedAt:    time.Now(),
	})

	if strings.TrimSpace(text) == "" {
		t.resolve(ErrEmptyText)
		return t
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		t.resolve(ErrClosed)
		return t
	}
	a.queue = append(a.queue, t)
	depth := len(a.queue)
	a.mu.Unlock()

	a.logger.Debug("enqueued", "id", t.Request.ID, "channel", channel, "depth", depth)

	select {
	case a.wake <- struct{}{}:
	default:
	}
	return t
}

// Announce enqueues text and waits until it has finished playing.
func (a *Announcer) Announce(ctx context.Context, text string, channel Channel, record bool) error {
	return a.Enqueue(text, channel, record).Wait(ctx)
}

// Pending returns the number of queued requests, excluding the one playing.
func (a *Announcer) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.queue)
}

// Playing reports whether a request is being synthesized or played.
func (a *Announcer) Playing() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current != nil
}

// Close stops the worker. Queued requests fail with ErrClosed and the
// request in flight is cancelled.
func (a *Announcer) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	pending := a.queue
	a.queue = nil
	a.mu.Unlock()

	a.cancel()
	for _, t := range pending {
		t.resolve(ErrClosed)
	}
	<-a.done
	return nil
}

func (a *Announcer) run() {
	defer close(a.done)

	for {
		t := a.next()
		if t == nil {
			select {
			case <-a.ctx.Done():
				return
			case <-a.wake:
				continue
			}
		}

		err := a.play(t)
		if err != nil {
			a.logger.Warn("announcement failed", "id", t.Request.ID, "error", err)
		}

		a.mu.Lock()
		a.current = nil
		a.mu.Unlock()

		t.resolve(err)
	}
}

// next pops the head of the queue and marks it current.
func (a *Announcer) next() *Ticket {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed || len(a.queue) == 0 {
		return nil
	}
	t := a.queue[0]
	a.queue[0] = nil
	a.queue = a.queue[1:]
	a.current = t
	return t
}

func (a *Announcer) play(t *Ticket) error {
	ctx := a.ctx
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	req := t.Request
	start := time.Now()

	audio, err := a.synth.Synthesize(ctx, tts.Request{Text: req.Text, Channel: string(req.Channel)})
	if err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}

	if err := a.player.Play(ctx, req, audio); err != nil {
		return fmt.Errorf("play: %w", err)
	}

	a.logger.Debug("announced",
		"id", req.ID,
		"channel", req.Channel,
		"duration", audio.Duration,
		"queued_ms", start.Sub(req.EnqueuedAt).Milliseconds(),
		"total_ms", time.Since(req.EnqueuedAt).Milliseconds(),
	)

	if req.RecordHistory && a.history != nil {
		if err := a.history.Record(ctx, req.Text, string(req.Channel)); err != nil {
			a.logger.Warn("record history failed", "id", req.ID, "error", err)
		}
	}
	return nil
}
