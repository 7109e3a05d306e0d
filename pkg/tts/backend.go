package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/teslashibe/go-scanboard/internal/httpc"
)

const providerBackend = "backend"

// Backend implements Provider against the board backend's
// POST /play-audio endpoint, which answers with base64 PCM16 audio.
type Backend struct {
	config *Config
	client *http.Client
	logger *slog.Logger
}

type playAudioRequest struct {
	Text    string `json:"text"`
	Channel string `json:"channel"`
}

type playAudioResponse struct {
	Audio      string `json:"audio"`
	SampleRate int    `json:"sampleRate"`
	Error      string `json:"error,omitempty"`
}

// NewBackend creates a provider for the board backend.
func NewBackend(opts ...Option) (*Backend, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	client := cfg.HTTPClient
	if client == nil {
		client = httpc.NewClient(cfg.Timeout)
	}

	return &Backend{
		config: cfg,
		client: client,
		logger: cfg.Logger.With("component", "tts.backend"),
	}, nil
}

// Synthesize converts text to PCM16 audio.
func (b *Backend) Synthesize(ctx context.Context, req Request) (*AudioResult, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyText
	}
	if req.Channel == "" {
		req.Channel = b.config.Channel
	}

	start := time.Now()

	body, err := json.Marshal(playAudioRequest{Text: req.Text, Channel: req.Channel})
	if err != nil {
		return nil, WrapError(providerBackend, fmt.Errorf("marshal payload: %w", err))
	}

	resp, err := b.doWithRetry(ctx, b.config.BaseURL+"/play-audio", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out playAudioResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, WrapError(providerBackend, fmt.Errorf("decode response: %w", err))
	}
	if out.Audio == "" {
		if out.Error != "" {
			return nil, WrapError(providerBackend, fmt.Errorf("%w: %s", ErrNoAudio, out.Error))
		}
		return nil, WrapError(providerBackend, ErrNoAudio)
	}

	audio, err := base64.StdEncoding.DecodeString(out.Audio)
	if err != nil {
		return nil, WrapError(providerBackend, fmt.Errorf("decode audio: %w", err))
	}

	rate := out.SampleRate
	if rate <= 0 {
		rate = SampleRateFromEncoding(EncodingPCM24)
	}
	latency := time.Since(start).Milliseconds()

	b.logger.Debug("synthesized audio",
		"chars", len(req.Text),
		"channel", req.Channel,
		"bytes", len(audio),
		"sample_rate", rate,
		"latency_ms", latency,
	)

	return &AudioResult{
		Audio: audio,
		Format: AudioFormat{
			Encoding:   EncodingFromSampleRate(rate),
			SampleRate: rate,
			Channels:   1,
			BitDepth:   16,
		},
		Duration:  PCMDuration(len(audio), rate),
		CharCount: len(req.Text),
		LatencyMs: latency,
	}, nil
}

// Health checks that the backend is reachable.
func (b *Backend) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.config.BaseURL+"/api/settings", nil)
	if err != nil {
		return WrapError(providerBackend, err)
	}
	b.setHeaders(req)

	resp, err := b.client.Do(req)
	if err != nil {
		return WrapError(providerBackend, fmt.Errorf("health check: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return b.parseError(resp)
	}
	return nil
}

// Close releases resources.
func (b *Backend) Close() error {
	b.client.CloseIdleConnections()
	return nil
}

// doWithRetry posts body, retrying on 429 and 5xx responses.
func (b *Backend) doWithRetry(ctx context.Context, url string, body []byte) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= b.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(b.config.RetryDelay * time.Duration(attempt)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, WrapError(providerBackend, fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		b.setHeaders(req)

		resp, err := b.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = WrapError(providerBackend, err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = b.parseError(resp)
			resp.Body.Close()
			b.logger.Warn("retrying request",
				"attempt", attempt+1,
				"status", resp.StatusCode,
			)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			defer resp.Body.Close()
			return nil, b.parseError(resp)
		}

		return resp, nil
	}

	return nil, lastErr
}

func (b *Backend) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if b.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.config.APIKey)
	}
}

// parseError extracts an APIError from a non-OK response.
func (b *Backend) parseError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Provider:   providerBackend,
	}

	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	if json.Unmarshal(data, &body) == nil {
		apiErr.Code = body.Code
		apiErr.Message = body.Error
		if apiErr.Message == "" {
			apiErr.Message = body.Message
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

// Verify Backend implements Provider at compile time.
var _ Provider = (*Backend)(nil)
