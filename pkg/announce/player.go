package announce

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/teslashibe/go-scanboard/pkg/tts"
)

// Player plays synthesized audio and blocks until playback is finished.
type Player interface {
	Play(ctx context.Context, req Request, audio *tts.AudioResult) error
}

// NullPlayer discards audio but still waits for its duration, so queue
// timing matches real playback.
type NullPlayer struct{}

// Play waits for the audio's duration.
func (NullPlayer) Play(ctx context.Context, _ Request, audio *tts.AudioResult) error {
	return sleep(ctx, audio.Duration)
}

// Broadcaster sends JSON events to connected browser clients.
// *hub.Hub implements it.
type Broadcaster interface {
	BroadcastJSON(v any) error
}

// AudioEvent is broadcast by HubPlayer for browsers to play.
type AudioEvent struct {
	Type       string `json:"type"` // "audio"
	ID         string `json:"id"`
	Text       string `json:"text"`
	Channel    string `json:"channel"`
	Audio      string `json:"audio"` // base64 PCM16
	SampleRate int    `json:"sampleRate"`
	DurationMs int64  `json:"durationMs"`
}

// HubPlayer hands audio to browser clients through the event hub and
// waits for the computed playback duration plus a small margin.
type HubPlayer struct {
	hub    Broadcaster
	margin time.Duration
}

// NewHubPlayer creates a player that broadcasts on h.
func NewHubPlayer(h Broadcaster) *HubPlayer {
	return &HubPlayer{hub: h, margin: 150 * time.Millisecond}
}

// Play broadcasts the audio and waits for it to finish.
func (p *HubPlayer) Play(ctx context.Context, req Request, audio *tts.AudioResult) error {
	err := p.hub.BroadcastJSON(AudioEvent{
		Type:       "audio",
		ID:         req.ID.String(),
		Text:       req.Text,
		Channel:    string(req.Channel),
		Audio:      base64.StdEncoding.EncodeToString(audio.Audio),
		SampleRate: audio.Format.SampleRate,
		DurationMs: audio.Duration.Milliseconds(),
	})
	if err != nil {
		return fmt.Errorf("broadcast audio: %w", err)
	}
	return sleep(ctx, audio.Duration+p.margin)
}

// ExecPlayer pipes raw PCM16 into a local command (aplay by default).
type ExecPlayer struct {
	// Command builds the player invocation for a sample rate.
	Command func(sampleRate int) (name string, args []string)

	// Callbacks
	OnPlaybackStart func(req Request)
	OnPlaybackEnd   func(req Request)

	mu  sync.Mutex
	cmd *exec.Cmd
}

// NewExecPlayer creates a player using aplay.
func NewExecPlayer() *ExecPlayer {
	return &ExecPlayer{
		Command: func(rate int) (string, []string) {
			return "aplay", []string{"-q", "-t", "raw", "-f", "S16_LE", "-c", "1", "-r", strconv.Itoa(rate)}
		},
	}
}

// Play runs the command with the audio on stdin and waits for it to exit.
// Cancelling ctx kills the process.
func (p *ExecPlayer) Play(ctx context.Context, req Request, audio *tts.AudioResult) error {
	name, args := p.Command(audio.Format.SampleRate)
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = bytes.NewReader(audio.Audio)

	p.mu.Lock()
	p.cmd = cmd
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.cmd = nil
		p.mu.Unlock()
	}()

	if p.OnPlaybackStart != nil {
		p.OnPlaybackStart(req)
	}
	err := cmd.Run()
	if p.OnPlaybackEnd != nil {
		p.OnPlaybackEnd(req)
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// IsPlaying returns whether audio is currently playing.
func (p *ExecPlayer) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cmd != nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var (
	_ Player = NullPlayer{}
	_ Player = (*HubPlayer)(nil)
	_ Player = (*ExecPlayer)(nil)
)
