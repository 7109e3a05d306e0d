package content

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/teslashibe/go-scanboard/internal/httpc"
)

// transport is the HTTP plumbing shared by the providers.
type transport struct {
	provider string
	baseURL  string
	config   *Config
	http     *http.Client
	logger   *slog.Logger
}

func newTransport(provider string, cfg *Config) *transport {
	client := cfg.HTTPClient
	if client == nil {
		client = httpc.NewClient(cfg.Timeout)
	}
	return &transport{
		provider: provider,
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		config:   cfg,
		http:     client,
		logger:   cfg.Logger.With("component", "content."+provider),
	}
}

// post sends payload as JSON, retrying on 429 and 5xx.
// The caller closes the returned body.
func (t *transport) post(ctx context.Context, path string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, WrapError(t.provider, fmt.Errorf("marshal payload: %w", err))
	}

	var lastErr error
	for attempt := 0; attempt <= t.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(t.config.RetryDelay * time.Duration(attempt)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, WrapError(t.provider, fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		t.setHeaders(req)

		resp, err := t.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = WrapError(t.provider, err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = t.parseError(resp)
			resp.Body.Close()
			t.logger.Warn("retrying request", "attempt", attempt+1, "status", resp.StatusCode)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			defer resp.Body.Close()
			return nil, t.parseError(resp)
		}
		return resp, nil
	}
	return nil, lastErr
}

func (t *transport) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+path, nil)
	if err != nil {
		return nil, WrapError(t.provider, err)
	}
	t.setHeaders(req)

	resp, err := t.http.Do(req)
	if err != nil {
		return nil, WrapError(t.provider, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, t.parseError(resp)
	}
	return resp, nil
}

func (t *transport) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if t.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.config.APIKey)
	}
}

// parseError extracts an APIError from an error response.
func (t *transport) parseError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))

	var body struct {
		Error any `json:"error"`
	}
	msg := ""
	if json.Unmarshal(data, &body) == nil {
		switch e := body.Error.(type) {
		case string:
			msg = e
		case map[string]any:
			if m, ok := e["message"].(string); ok {
				msg = m
			}
		}
	}
	if msg == "" {
		msg = strings.TrimSpace(string(data))
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    msg,
		Provider:   t.provider,
	}
}

func (t *transport) close() {
	t.http.CloseIdleConnections()
}
