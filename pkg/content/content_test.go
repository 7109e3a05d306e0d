package content

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestBackendGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/llm" {
			t.Errorf("Expected /llm, got %s", r.URL.Path)
		}
		if r.Method != "POST" {
			t.Errorf("Expected POST, got %s", r.Method)
		}

		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req["prompt"] != "What should I eat?" {
			t.Errorf("unexpected prompt %q", req["prompt"])
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"option": "I would like a sandwich.", "summary": "Sandwich"},
			{"option": "  Soup, please. "},
			{"option": "", "summary": "blank"}
		]`))
	}))
	defer server.Close()

	b, err := NewBackend(WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	defer b.Close()

	opts, err := b.Generate(context.Background(), "What should I eat?")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(opts) != 2 {
		t.Fatalf("expected 2 options, got %d: %+v", len(opts), opts)
	}
	if opts[0].Label() != "Sandwich" {
		t.Errorf("expected summary label, got %q", opts[0].Label())
	}
	if opts[1].Label() != "Soup, please." {
		t.Errorf("expected option text as label, got %q", opts[1].Label())
	}
}

func TestBackendWrappedOptions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"options":[{"option":"Hello"}]}`))
	}))
	defer server.Close()

	b, _ := NewBackend(WithBaseURL(server.URL))
	opts, err := b.Generate(context.Background(), "greet")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(opts) != 1 || opts[0].Option != "Hello" {
		t.Errorf("unexpected options %+v", opts)
	}
}

func TestBackendErrors(t *testing.T) {
	t.Run("non-OK status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"prompt rejected"}`))
		}))
		defer server.Close()

		b, _ := NewBackend(WithBaseURL(server.URL))
		_, err := b.Generate(context.Background(), "x")

		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected APIError, got %v", err)
		}
		if apiErr.StatusCode != 400 || apiErr.Message != "prompt rejected" {
			t.Errorf("unexpected error %+v", apiErr)
		}
	})

	t.Run("retries server errors", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hits.Add(1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.Write([]byte(`[{"option":"ok"}]`))
		}))
		defer server.Close()

		b, _ := NewBackend(WithBaseURL(server.URL), WithRetry(1, time.Millisecond))
		opts, err := b.Generate(context.Background(), "x")
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if len(opts) != 1 || hits.Load() != 2 {
			t.Errorf("expected 1 option after 2 requests, got %d after %d", len(opts), hits.Load())
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`"just a string"`))
		}))
		defer server.Close()

		b, _ := NewBackend(WithBaseURL(server.URL))
		_, err := b.Generate(context.Background(), "x")
		if !errors.Is(err, ErrMalformedOptions) {
			t.Errorf("expected ErrMalformedOptions, got %v", err)
		}
		var pe *ProviderError
		if !errors.As(err, &pe) || pe.Provider != "backend" {
			t.Errorf("expected backend ProviderError, got %v", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-release
		}))
		defer server.Close()
		defer close(release)

		b, _ := NewBackend(WithBaseURL(server.URL))
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()

		if _, err := b.Generate(ctx, "x"); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("empty prompt", func(t *testing.T) {
		b, _ := NewBackend(WithBaseURL("http://unused"))
		if _, err := b.Generate(context.Background(), " "); err != ErrEmptyPrompt {
			t.Errorf("expected ErrEmptyPrompt, got %v", err)
		}
	})

	t.Run("requires base URL", func(t *testing.T) {
		if _, err := NewBackend(); err != ErrNoBaseURL {
			t.Errorf("expected ErrNoBaseURL, got %v", err)
		}
	})
}

func TestChatGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected /chat/completions, got %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Expected Bearer test-key, got %s", auth)
		}

		var req struct {
			Model    string        `json:"model"`
			Messages []chatMessage `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "test-model" {
			t.Errorf("unexpected model %q", req.Model)
		}
		if len(req.Messages) != 2 || req.Messages[1].Content != "weekend plans" {
			t.Errorf("unexpected messages %+v", req.Messages)
		}

		content := "```json\n[{\"option\":\"Let's go to the park.\",\"summary\":\"Park\"}]\n```"
		json.NewEncoder(w).Encode(map[string]any{
			"model": "test-model",
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": content}, "finish_reason": "stop"},
			},
		})
	}))
	defer server.Close()

	c, err := NewChat(WithBaseURL(server.URL), WithAPIKey("test-key"), WithModel("test-model"))
	if err != nil {
		t.Fatalf("NewChat: %v", err)
	}

	opts, err := c.Generate(context.Background(), "weekend plans")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(opts) != 1 || opts[0].Summary != "Park" {
		t.Errorf("unexpected options %+v", opts)
	}
}

func TestMaxOptions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"option":"a"},{"option":"b"},{"option":"c"}]`))
	}))
	defer server.Close()

	b, _ := NewBackend(WithBaseURL(server.URL), WithMaxOptions(2))
	opts, _ := b.Generate(context.Background(), "x")
	if len(opts) != 2 {
		t.Errorf("expected 2 options, got %d", len(opts))
	}
}

func TestChain(t *testing.T) {
	ctx := context.Background()

	t.Run("fallback on failure", func(t *testing.T) {
		primary := WithError(errors.New("down"))
		fallback := WithOptions(Option{Option: "Hi"})

		chain, err := NewChain(primary, fallback)
		if err != nil {
			t.Fatalf("NewChain: %v", err)
		}
		opts, err := chain.Generate(ctx, "x")
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if len(opts) != 1 || opts[0].Option != "Hi" {
			t.Errorf("unexpected options %+v", opts)
		}
		if primary.CallCount("Generate") != 1 || fallback.CallCount("Generate") != 1 {
			t.Error("expected both providers to be called once")
		}
	})

	t.Run("all fail", func(t *testing.T) {
		chain, _ := NewChain(WithError(errors.New("a")), WithError(errors.New("b")))
		_, err := chain.Generate(ctx, "x")
		var ce *ChainError
		if !errors.As(err, &ce) || len(ce.Errors) != 2 {
			t.Errorf("expected ChainError with 2 errors, got %v", err)
		}
	})

	t.Run("requires providers", func(t *testing.T) {
		if _, err := NewChain(); err != ErrProviderUnavailable {
			t.Errorf("expected ErrProviderUnavailable, got %v", err)
		}
	})
}

func TestMockLatencyCancel(t *testing.T) {
	m := WithLatency(NewMock(), time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := m.Generate(ctx, "x"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}
