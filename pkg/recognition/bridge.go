// Package recognition bridges a streaming speech-recognition service to
// the voice input adapter.
//
// The service speaks a small JSON protocol over a websocket. Each
// recognition pass is one connection:
//
//	client → {"type":"start","mode":"continuous"|"single"}
//	server → {"type":"result","transcript":"…","final":true}
//	server → {"type":"error","error":"no-speech"}
//	server → {"type":"end"}
//	client → {"type":"stop"}
package recognition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-scanboard/pkg/input"
)

// Message types.
const (
	TypeStart  = "start"
	TypeStop   = "stop"
	TypeResult = "result"
	TypeError  = "error"
	TypeEnd    = "end"
)

// ErrNoURL is returned when the bridge has no service URL.
var ErrNoURL = errors.New("recognition: service URL not configured")

// Message is one protocol frame in either direction.
type Message struct {
	Type       string `json:"type"`
	Mode       string `json:"mode,omitempty"`
	Transcript string `json:"transcript,omitempty"`
	Final      bool   `json:"final,omitempty"`
	Error      string `json:"error,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Config configures a Bridge.
type Config struct {
	URL              string
	HandshakeTimeout time.Duration
	Logger           *slog.Logger
}

// Option configures a Bridge.
type Option func(*Config)

// WithHandshakeTimeout sets the dial timeout.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.HandshakeTimeout = d
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// Bridge implements input.Recognizer over a websocket.
type Bridge struct {
	cfg    Config
	dialer websocket.Dialer
	logger *slog.Logger
}

var _ input.Recognizer = (*Bridge)(nil)

// New creates a bridge to the recognition service at url (ws:// or wss://).
func New(url string, opts ...Option) *Bridge {
	cfg := Config{
		URL:              url,
		HandshakeTimeout: 10 * time.Second,
		Logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Bridge{
		cfg:    cfg,
		dialer: websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
		logger: cfg.Logger.With("component", "recognition.Bridge"),
	}
}

// Listen opens a connection and starts a recognition pass. The pass ends
// when the service sends "end" or "error", the connection drops, or ctx is
// cancelled; a "stop" is sent to the service on cancellation.
func (b *Bridge) Listen(ctx context.Context, mode input.Mode) (<-chan input.Result, func() error, error) {
	if b.cfg.URL == "" {
		return nil, nil, ErrNoURL
	}

	conn, resp, err := b.dialer.DialContext(ctx, b.cfg.URL, nil)
	if err != nil {
		if resp != nil {
			b.logger.Warn("recognition dial failed", "status", resp.StatusCode)
		}
		return nil, nil, &input.RecognitionError{Code: input.CodeNetwork, Message: err.Error()}
	}

	if err := conn.WriteJSON(Message{Type: TypeStart, Mode: string(mode)}); err != nil {
		conn.Close()
		return nil, nil, &input.RecognitionError{Code: input.CodeNetwork, Message: err.Error()}
	}

	p := &pass{
		conn:    conn,
		results: make(chan input.Result),
		logger:  b.logger.With("mode", mode),
	}

	stopped := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			p.stop()
		case <-stopped:
		}
	}()
	go func() {
		defer close(stopped)
		p.read(ctx)
	}()

	return p.results, p.Err, nil
}

// pass is one recognition session.
type pass struct {
	conn    *websocket.Conn
	results chan input.Result
	logger  *slog.Logger

	mu       sync.Mutex
	err      error
	stopOnce sync.Once
}

// stop asks the service to end the pass and closes the connection, which
// unblocks the reader.
func (p *pass) stop() {
	p.stopOnce.Do(func() {
		p.conn.SetWriteDeadline(time.Now().Add(time.Second))
		p.conn.WriteJSON(Message{Type: TypeStop})
		p.conn.WriteControl(websocket.CloseMessage, nil, time.Now().Add(time.Second))
		p.conn.Close()
	})
}

func (p *pass) read(ctx context.Context) {
	defer close(p.results)
	defer p.conn.Close()

	for {
		var msg Message
		if err := p.conn.ReadJSON(&msg); err != nil {
			if ctx.Err() == nil {
				p.fail(&input.RecognitionError{Code: input.CodeNetwork, Message: err.Error()})
			}
			return
		}

		switch msg.Type {
		case TypeResult:
			select {
			case p.results <- input.Result{Transcript: msg.Transcript, Final: msg.Final}:
			case <-ctx.Done():
				return
			}
		case TypeError:
			p.fail(&input.RecognitionError{Code: input.ErrorCode(msg.Error), Message: msg.Message})
			return
		case TypeEnd:
			return
		default:
			p.logger.Debug("unknown recognition message", "type", msg.Type)
		}
	}
}

func (p *pass) fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Err returns the error that ended the pass. Only meaningful after the
// results channel is closed.
func (p *pass) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Probe dials the service and closes the connection again.
func (b *Bridge) Probe(ctx context.Context) error {
	if b.cfg.URL == "" {
		return ErrNoURL
	}
	conn, _, err := b.dialer.DialContext(ctx, b.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("recognition: probe: %w", err)
	}
	return conn.Close()
}
