package input

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"
)

// ErrInterrupted is returned by Keyboard.ReadFrom when the user presses
// Ctrl-C or Ctrl-D on a raw-mode terminal.
var ErrInterrupted = errors.New("input: keyboard interrupted")

const (
	keyCtrlC = 0x03
	keyCtrlD = 0x04
)

// KeyboardConfig configures a Keyboard.
type KeyboardConfig struct {
	Key      string        // designated activate key
	Debounce time.Duration // drops repeats from a single gesture
	Now      func() time.Time
	Logger   *slog.Logger
}

// KeyboardOption configures a Keyboard.
type KeyboardOption func(*KeyboardConfig)

// WithKey sets the designated key. Default is space.
func WithKey(key string) KeyboardOption {
	return func(c *KeyboardConfig) {
		c.Key = key
	}
}

// WithKeyDebounce sets the repeat window. Zero disables it.
func WithKeyDebounce(d time.Duration) KeyboardOption {
	return func(c *KeyboardConfig) {
		c.Debounce = d
	}
}

// WithKeyboardNow sets the time source used for debouncing.
func WithKeyboardNow(now func() time.Time) KeyboardOption {
	return func(c *KeyboardConfig) {
		c.Now = now
	}
}

// WithKeyboardLogger sets the structured logger.
func WithKeyboardLogger(logger *slog.Logger) KeyboardOption {
	return func(c *KeyboardConfig) {
		c.Logger = logger
	}
}

// Keyboard maps one designated key to a press.
type Keyboard struct {
	target   Target
	key      string
	debounce *debouncer
	logger   *slog.Logger
}

// NewKeyboard creates a keyboard adapter for target.
func NewKeyboard(target Target, opts ...KeyboardOption) *Keyboard {
	cfg := &KeyboardConfig{
		Key:      " ",
		Debounce: DefaultDebounce,
		Logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &Keyboard{
		target:   target,
		key:      cfg.Key,
		debounce: newDebouncer(cfg.Debounce, cfg.Now),
		logger:   cfg.Logger.With("component", "input.Keyboard"),
	}
}

// Key returns the designated key.
func (k *Keyboard) Key() string {
	return k.key
}

// HandleKey presses the target if key is the designated key. It reports
// whether a press was sent.
func (k *Keyboard) HandleKey(key string) bool {
	if key != k.key {
		return false
	}
	if !k.debounce.allow() {
		k.logger.Debug("key debounced")
		return false
	}
	k.target.Press(SourceKeyboard)
	return true
}

// ReadFrom reads raw bytes from r, typically a terminal in raw mode, and
// feeds each byte to HandleKey. It returns ErrInterrupted on Ctrl-C or
// Ctrl-D, nil on EOF and ctx.Err() when ctx is cancelled. A blocked read
// is abandoned on cancellation, not interrupted.
func (k *Keyboard) ReadFrom(ctx context.Context, r io.Reader) error {
	type chunk struct {
		data []byte
		err  error
	}
	chunks := make(chan chunk)

	go func() {
		buf := make([]byte, 64)
		for {
			n, err := r.Read(buf)
			data := append([]byte(nil), buf[:n]...)
			select {
			case chunks <- chunk{data: data, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c := <-chunks:
			for _, b := range c.data {
				if b == keyCtrlC || b == keyCtrlD {
					return ErrInterrupted
				}
				k.HandleKey(string(rune(b)))
			}
			if c.err != nil {
				if errors.Is(c.err, io.EOF) {
					return nil
				}
				return c.err
			}
		}
	}
}
