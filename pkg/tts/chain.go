package tts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Chain is a Provider that falls back through several synthesizers, such
// as the board backend and a secondary voice server. A request that can
// never succeed (empty text) is not retried, and a cancelled context
// stops the walk.
type Chain struct {
	providers []Provider
	logger    *slog.Logger
}

var _ Provider = (*Chain)(nil)

// NewChain tries providers in the given order. At least one is required.
func NewChain(providers ...Provider) (*Chain, error) {
	return NewChainWithLogger(slog.Default(), providers...)
}

// NewChainWithLogger is NewChain with a logger.
func NewChainWithLogger(logger *slog.Logger, providers ...Provider) (*Chain, error) {
	if len(providers) == 0 {
		return nil, ErrProviderUnavailable
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{
		providers: providers,
		logger:    logger.With("component", "tts.Chain"),
	}, nil
}

// Synthesize returns audio from the first provider that produces it.
func (c *Chain) Synthesize(ctx context.Context, req Request) (*AudioResult, error) {
	failed := &ChainError{}
	for i, p := range c.providers {
		audio, err := p.Synthesize(ctx, req)
		if err == nil {
			if i > 0 {
				c.logger.Info("fallback voice used", "provider_index", i, "channel", req.Channel)
			}
			return audio, nil
		}
		if errors.Is(err, ErrEmptyText) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		failed.Errors = append(failed.Errors, err)
		c.logger.Warn("voice failed", "provider_index", i, "error", err)
	}
	return nil, failed
}

// Health succeeds when any provider is healthy.
func (c *Chain) Health(ctx context.Context) error {
	var errs []error
	for _, p := range c.providers {
		err := p.Health(ctx)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	return fmt.Errorf("tts: no healthy voice: %w", errors.Join(errs...))
}

// Close closes every provider and returns the first error.
func (c *Chain) Close() error {
	var first error
	for _, p := range c.providers {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Providers returns the chain's providers in order.
func (c *Chain) Providers() []Provider {
	return c.providers
}

// ChainError collects one error per failed provider.
type ChainError struct {
	Errors []error
}

func (e *ChainError) Error() string {
	switch len(e.Errors) {
	case 0:
		return "tts chain: no errors recorded"
	case 1:
		return fmt.Sprintf("tts chain: %v", e.Errors[0])
	}
	return fmt.Sprintf("tts chain: all %d voices failed, last: %v", len(e.Errors), e.Errors[len(e.Errors)-1])
}

// Unwrap exposes every provider error to errors.Is and errors.As.
func (e *ChainError) Unwrap() []error {
	return e.Errors
}
