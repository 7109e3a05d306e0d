// Package content generates dynamic option sets for the scan board.
//
// A GenerateOptions item sends a prompt to a Provider; the returned options
// replace the current item set. Providers talk to the board backend's /llm
// endpoint (Backend) or to any OpenAI-compatible chat endpoint (Chat).
//
// Example usage:
//
//	provider, _ := content.NewBackend(content.WithBaseURL("http://localhost:5000"))
//	defer provider.Close()
//
//	opts, _ := provider.Generate(ctx, "What would you like for lunch?")
//	for _, o := range opts {
//	    fmt.Println(o.Label())
//	}
package content

import (
	"context"
	"strings"
)

// Provider generates options for a prompt.
type Provider interface {
	// Generate returns options for prompt. An empty slice is not an error.
	Generate(ctx context.Context, prompt string) ([]Option, error)

	// Health checks provider connectivity.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// Option is one generated choice, in the backend's JSON shape.
type Option struct {
	// Option is the full text spoken when the option is selected.
	Option string `json:"option"`

	// Summary is a short form announced while scanning.
	Summary string `json:"summary,omitempty"`
}

// Label is what the highlighter reads: the summary if there is one.
func (o Option) Label() string {
	if s := strings.TrimSpace(o.Summary); s != "" {
		return s
	}
	return strings.TrimSpace(o.Option)
}

// Clean drops options without text and trims whitespace.
func Clean(opts []Option) []Option {
	out := opts[:0:0]
	for _, o := range opts {
		o.Option = strings.TrimSpace(o.Option)
		o.Summary = strings.TrimSpace(o.Summary)
		if o.Option == "" {
			continue
		}
		out = append(out, o)
	}
	return out
}
