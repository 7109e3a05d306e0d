package content

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const providerBackend = "backend"

// Backend generates options through the board backend's POST /llm.
// The backend answers with a JSON array of {option, summary}.
type Backend struct {
	t *transport
}

// NewBackend creates a backend provider.
func NewBackend(opts ...Setting) (*Backend, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Backend{t: newTransport(providerBackend, cfg)}, nil
}

// Generate asks the backend for options.
func (b *Backend) Generate(ctx context.Context, prompt string) ([]Option, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}
	start := time.Now()

	resp, err := b.t.post(ctx, "/llm", map[string]string{"prompt": prompt})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, WrapError(providerBackend, fmt.Errorf("decode response: %w", err))
	}
	opts, err := decodeOptions(raw)
	if err != nil {
		return nil, WrapError(providerBackend, err)
	}
	opts = limit(Clean(opts), b.t.config.MaxOptions)

	b.t.logger.Debug("generated options",
		"count", len(opts),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return opts, nil
}

// Health checks that the backend answers.
func (b *Backend) Health(ctx context.Context) error {
	resp, err := b.t.get(ctx, "/api/settings")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Close releases idle connections.
func (b *Backend) Close() error {
	b.t.close()
	return nil
}

// decodeOptions accepts a bare array or an object wrapping one under
// "options".
func decodeOptions(raw []byte) ([]Option, error) {
	var opts []Option
	if err := json.Unmarshal(raw, &opts); err == nil {
		return opts, nil
	}

	var wrapped struct {
		Options []Option `json:"options"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Options != nil {
		return wrapped.Options, nil
	}
	return nil, ErrMalformedOptions
}

func limit(opts []Option, n int) []Option {
	if n > 0 && len(opts) > n {
		return opts[:n]
	}
	return opts
}

var _ Provider = (*Backend)(nil)
