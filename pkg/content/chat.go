package content

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const providerChat = "chat"

// Chat generates options with any OpenAI-compatible chat completions API
// (OpenAI, Ollama, vLLM, Groq). The model is asked for a JSON array in the
// backend's {option, summary} shape.
type Chat struct {
	t *transport
}

// NewChat creates a chat provider.
func NewChat(opts ...Setting) (*Chat, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Chat{t: newTransport(providerChat, cfg)}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// Generate asks the model for options.
func (c *Chat) Generate(ctx context.Context, prompt string) ([]Option, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}
	start := time.Now()
	cfg := c.t.config

	payload := map[string]any{
		"model": cfg.Model,
		"messages": []chatMessage{
			{Role: "system", Content: cfg.SystemPrompt},
			{Role: "user", Content: prompt},
		},
		"temperature": cfg.Temperature,
	}

	resp, err := c.t.post(ctx, "/chat/completions", payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, WrapError(providerChat, fmt.Errorf("decode response: %w", err))
	}
	if len(result.Choices) == 0 {
		return nil, WrapError(providerChat, fmt.Errorf("no choices returned"))
	}

	opts, err := decodeOptions([]byte(extractJSON(result.Choices[0].Message.Content)))
	if err != nil {
		return nil, WrapError(providerChat, err)
	}
	opts = limit(Clean(opts), cfg.MaxOptions)

	c.t.logger.Debug("generated options",
		"count", len(opts),
		"model", result.Model,
		"tokens", result.Usage.TotalTokens,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return opts, nil
}

// Health lists models to check connectivity.
func (c *Chat) Health(ctx context.Context) error {
	resp, err := c.t.get(ctx, "/models")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Close releases idle connections.
func (c *Chat) Close() error {
	c.t.close()
	return nil
}

// extractJSON strips markdown code fences models like to add.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	if i := strings.IndexAny(s, "[{"); i > 0 {
		s = s[i:]
	}
	return strings.TrimSpace(s)
}

var _ Provider = (*Chat)(nil)
