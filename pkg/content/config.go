package content

import (
	"log/slog"
	"net/http"
	"time"
)

// Config holds provider configuration.
type Config struct {
	// Connection
	BaseURL string // backend or OpenAI-compatible API base URL
	APIKey  string // optional bearer token

	// Chat provider only
	Model        string
	SystemPrompt string
	MaxOptions   int
	Temperature  float64

	// Timeouts
	Timeout time.Duration

	// Retry configuration
	MaxRetries int
	RetryDelay time.Duration

	HTTPClient *http.Client

	// Observability
	Logger *slog.Logger
}

// Setting is a functional option for configuring providers.
type Setting func(*Config)

// WithBaseURL sets the API base URL.
func WithBaseURL(url string) Setting {
	return func(c *Config) { c.BaseURL = url }
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) Setting {
	return func(c *Config) { c.APIKey = key }
}

// WithModel sets the chat model.
func WithModel(model string) Setting {
	return func(c *Config) { c.Model = model }
}

// WithSystemPrompt overrides the chat provider's instructions.
func WithSystemPrompt(prompt string) Setting {
	return func(c *Config) { c.SystemPrompt = prompt }
}

// WithMaxOptions caps how many options are returned.
func WithMaxOptions(n int) Setting {
	return func(c *Config) { c.MaxOptions = n }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Setting {
	return func(c *Config) { c.Temperature = t }
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) Setting {
	return func(c *Config) { c.Timeout = d }
}

// WithRetry configures retry behavior.
func WithRetry(maxRetries int, delay time.Duration) Setting {
	return func(c *Config) {
		c.MaxRetries = maxRetries
		c.RetryDelay = delay
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client *http.Client) Setting {
	return func(c *Config) { c.HTTPClient = client }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Setting {
	return func(c *Config) { c.Logger = logger }
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Model:        "gpt-4o-mini",
		SystemPrompt: defaultSystemPrompt,
		MaxOptions:   8,
		Temperature:  0.7,
		Timeout:      30 * time.Second,
		MaxRetries:   1,
		RetryDelay:   500 * time.Millisecond,
		Logger:       slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Setting) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrNoBaseURL
	}
	return nil
}

const defaultSystemPrompt = `You help a person who communicates by selecting from short spoken options.
Answer with a JSON array only. Each element is an object with "option" (a full first-person sentence the person could say) and "summary" (two to four words).`
