package announce

import (
	"log/slog"
	"os/exec"
	"runtime"
	"sync"
)

// ExecHighlighter speaks highlight labels with a local synthesizer
// (espeak-ng on Linux, say on macOS). Each call kills the previous
// utterance.
type ExecHighlighter struct {
	// Command builds the synthesizer invocation for text.
	Command func(text string) (name string, args []string)

	logger *slog.Logger

	mu  sync.Mutex
	cmd *exec.Cmd
}

// NewExecHighlighter picks a synthesizer for the current platform.
func NewExecHighlighter(logger *slog.Logger) *ExecHighlighter {
	if logger == nil {
		logger = slog.Default()
	}
	cmd := func(text string) (string, []string) {
		return "espeak-ng", []string{"-s", "170", "--", text}
	}
	if runtime.GOOS == "darwin" {
		cmd = func(text string) (string, []string) {
			return "say", []string{"--", text}
		}
	}
	return &ExecHighlighter{
		Command: cmd,
		logger:  logger.With("component", "announce.ExecHighlighter"),
	}
}

// Highlight interrupts any current utterance and starts speaking text.
// It does not wait for speech to finish.
func (h *ExecHighlighter) Highlight(text string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.killLocked()
	if text == "" {
		return
	}

	name, args := h.Command(text)
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		h.logger.Debug("local speech unavailable", "command", name, "error", err)
		return
	}
	h.cmd = cmd

	go func() {
		cmd.Wait()
		h.mu.Lock()
		if h.cmd == cmd {
			h.cmd = nil
		}
		h.mu.Unlock()
	}()
}

// Silence stops the current utterance.
func (h *ExecHighlighter) Silence() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.killLocked()
}

// Speaking reports whether an utterance is in progress.
func (h *ExecHighlighter) Speaking() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cmd != nil
}

func (h *ExecHighlighter) killLocked() {
	if h.cmd != nil && h.cmd.Process != nil {
		h.cmd.Process.Kill()
	}
	h.cmd = nil
}

// HighlightEvent asks browsers to speak a label with their local
// speech synthesis, cancelling any previous one.
type HighlightEvent struct {
	Type string `json:"type"` // "speak_local" or "silence_local"
	Text string `json:"text,omitempty"`
}

// HubHighlighter forwards highlight speech to browser clients.
type HubHighlighter struct {
	hub Broadcaster
}

// NewHubHighlighter creates a highlighter broadcasting on h.
func NewHubHighlighter(h Broadcaster) *HubHighlighter {
	return &HubHighlighter{hub: h}
}

// Highlight broadcasts a speak_local event.
func (h *HubHighlighter) Highlight(text string) {
	h.hub.BroadcastJSON(HighlightEvent{Type: "speak_local", Text: text})
}

// Silence broadcasts a silence_local event.
func (h *HubHighlighter) Silence() {
	h.hub.BroadcastJSON(HighlightEvent{Type: "silence_local"})
}

// Highlighters fans highlight speech out to several highlighters.
type Highlighters []interface {
	Highlight(text string)
	Silence()
}

// Highlight calls every highlighter.
func (hs Highlighters) Highlight(text string) {
	for _, h := range hs {
		h.Highlight(text)
	}
}

// Silence calls every highlighter.
func (hs Highlighters) Silence() {
	for _, h := range hs {
		h.Silence()
	}
}
