package input

import (
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// RemoteMessage is sent by browser pages that forward key and switch
// presses over the remote switch socket.
type RemoteMessage struct {
	Type   string `json:"type"`             // "press" or "key"
	Key    string `json:"key,omitempty"`    // for "key"
	Source string `json:"source,omitempty"` // free-form, logged
}

// RemoteOption configures a RemoteSwitch.
type RemoteOption func(*remoteConfig)

type remoteConfig struct {
	debounce time.Duration
	now      func() time.Time
}

// WithRemoteDebounce sets the press debounce window. Default DefaultDebounce.
func WithRemoteDebounce(d time.Duration) RemoteOption {
	return func(c *remoteConfig) {
		c.debounce = d
	}
}

// WithRemoteNow sets the clock used for debouncing.
func WithRemoteNow(now func() time.Time) RemoteOption {
	return func(c *remoteConfig) {
		c.now = now
	}
}

// RemoteSwitch accepts presses from remote pages over a websocket.
type RemoteSwitch struct {
	target   *Debounced
	keyboard *Keyboard
	logger   *slog.Logger

	clients  atomic.Int32
	received atomic.Uint64
}

// NewRemoteSwitch creates a remote switch. Key messages are matched
// against keyboard's designated key and debounced by it; keyboard may be
// nil to accept only press messages.
func NewRemoteSwitch(target Target, keyboard *Keyboard, logger *slog.Logger, opts ...RemoteOption) *RemoteSwitch {
	if logger == nil {
		logger = slog.Default()
	}
	cfg := remoteConfig{debounce: DefaultDebounce}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &RemoteSwitch{
		target:   NewDebounced(target, cfg.debounce, cfg.now),
		keyboard: keyboard,
		logger:   logger.With("component", "input.RemoteSwitch"),
	}
}

// RegisterRoutes mounts the switch socket at /ws/switch.
func (r *RemoteSwitch) RegisterRoutes(app *fiber.App) {
	app.Use("/ws/switch", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/switch", websocket.New(r.handle))
}

func (r *RemoteSwitch) handle(c *websocket.Conn) {
	n := r.clients.Add(1)
	r.logger.Info("remote switch connected", "addr", c.RemoteAddr().String(), "clients", n)
	defer func() {
		n := r.clients.Add(-1)
		r.logger.Info("remote switch disconnected", "clients", n)
	}()

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				r.logger.Debug("remote switch read error", "error", err)
			}
			return
		}
		r.received.Add(1)
		r.dispatch(data)
	}
}

func (r *RemoteSwitch) dispatch(data []byte) {
	var msg RemoteMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		r.logger.Debug("remote switch bad message", "error", err)
		return
	}

	switch msg.Type {
	case "press":
		if !r.target.TryPress(SourceRemote) {
			r.logger.Debug("remote press debounced", "source", msg.Source)
		}
	case "key":
		if r.keyboard != nil {
			r.keyboard.HandleKey(msg.Key)
		}
	default:
		r.logger.Debug("remote switch unknown message", "type", msg.Type, "source", msg.Source)
	}
}

// Clients returns the number of connected pages.
func (r *RemoteSwitch) Clients() int {
	return int(r.clients.Load())
}

// Received returns the number of messages read.
func (r *RemoteSwitch) Received() uint64 {
	return r.received.Load()
}
