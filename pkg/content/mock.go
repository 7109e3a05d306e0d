package content

import (
	"context"
	"sync"
	"time"
)

// Mock implements Provider for testing.
type Mock struct {
	// GenerateFunc is called when Generate is invoked.
	// If nil, returns three canned options.
	GenerateFunc func(ctx context.Context, prompt string) ([]Option, error)

	// HealthFunc is called when Health is invoked.
	HealthFunc func(ctx context.Context) error

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a method invocation.
type MockCall struct {
	Method string
	Prompt string
	Time   time.Time
}

// NewMock creates a new mock provider with sensible defaults.
func NewMock() *Mock {
	return &Mock{}
}

// Generate calls GenerateFunc and records the call.
func (m *Mock) Generate(ctx context.Context, prompt string) ([]Option, error) {
	m.record("Generate", prompt)
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt)
	}
	return []Option{
		{Option: "Yes, please.", Summary: "Yes"},
		{Option: "No, thank you.", Summary: "No"},
		{Option: "I'm not sure yet.", Summary: "Not sure"},
	}, nil
}

// Health calls HealthFunc and records the call.
func (m *Mock) Health(ctx context.Context) error {
	m.record("Health", "")
	if m.HealthFunc != nil {
		return m.HealthFunc(ctx)
	}
	return nil
}

// Close records the call.
func (m *Mock) Close() error {
	m.record("Close", "")
	return nil
}

func (m *Mock) record(method, prompt string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{Method: method, Prompt: prompt, Time: time.Now()})
}

// Calls returns all recorded method calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of times a method was called.
func (m *Mock) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// WithOptions returns a mock that always returns opts.
func WithOptions(opts ...Option) *Mock {
	return &Mock{
		GenerateFunc: func(ctx context.Context, prompt string) ([]Option, error) {
			return opts, nil
		},
	}
}

// WithError returns a mock that always returns the given error.
func WithError(err error) *Mock {
	return &Mock{
		GenerateFunc: func(ctx context.Context, prompt string) ([]Option, error) {
			return nil, err
		},
		HealthFunc: func(ctx context.Context) error {
			return err
		},
	}
}

// WithLatency wraps a mock to add artificial latency. The delay honours
// context cancellation.
func WithLatency(m *Mock, delay time.Duration) *Mock {
	inner := m.GenerateFunc
	m.GenerateFunc = func(ctx context.Context, prompt string) ([]Option, error) {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if inner != nil {
			return inner(ctx, prompt)
		}
		return NewMock().Generate(ctx, prompt)
	}
	return m
}

var _ Provider = (*Mock)(nil)
