package announce

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-scanboard/pkg/tts"
)

type fakeHub struct {
	mu     sync.Mutex
	events [][]byte
}

func (h *fakeHub) BroadcastJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.events = append(h.events, data)
	h.mu.Unlock()
	return nil
}

func (h *fakeHub) decode(t *testing.T, i int) map[string]any {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	var m map[string]any
	if err := json.Unmarshal(h.events[i], &m); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	return m
}

func TestHubPlayer(t *testing.T) {
	hub := &fakeHub{}
	p := NewHubPlayer(hub)
	p.margin = 0

	audio := &tts.AudioResult{
		Audio:    []byte{1, 2, 3, 4},
		Format:   tts.AudioFormat{SampleRate: 24000},
		Duration: 30 * time.Millisecond,
	}
	req := Request{ID: uuid.New(), Text: "hello", Channel: ChannelPersonal}

	start := time.Now()
	if err := p.Play(context.Background(), req, audio); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("Play returned after %v, before the audio duration", elapsed)
	}

	ev := hub.decode(t, 0)
	if ev["type"] != "audio" || ev["channel"] != "personal" || ev["audio"] != "AQIDBA==" {
		t.Errorf("unexpected event %v", ev)
	}
	if ev["sampleRate"].(float64) != 24000 {
		t.Errorf("unexpected sample rate %v", ev["sampleRate"])
	}
}

func TestNullPlayerCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NullPlayer{}.Play(ctx, Request{}, &tts.AudioResult{Duration: time.Hour})
	if err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestHubHighlighter(t *testing.T) {
	hub := &fakeHub{}
	h := NewHubHighlighter(hub)

	h.Highlight("Yes")
	h.Silence()

	if ev := hub.decode(t, 0); ev["type"] != "speak_local" || ev["text"] != "Yes" {
		t.Errorf("unexpected highlight event %v", ev)
	}
	if ev := hub.decode(t, 1); ev["type"] != "silence_local" {
		t.Errorf("unexpected silence event %v", ev)
	}
}

func TestExecHighlighterMissingBinary(t *testing.T) {
	h := NewExecHighlighter(nil)
	h.Command = func(text string) (string, []string) {
		return "definitely-not-a-real-synth", nil
	}

	h.Highlight("Yes")
	if h.Speaking() {
		t.Error("expected no utterance when the synthesizer is missing")
	}
	h.Silence()
}
