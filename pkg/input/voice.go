package input

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/teslashibe/go-scanboard/pkg/announce"
	"github.com/teslashibe/go-scanboard/pkg/scan"
)

// Mode selects how long a recognition pass runs.
type Mode string

const (
	// ModeContinuous keeps recognising until cancelled. Used for the
	// keyword listener.
	ModeContinuous Mode = "continuous"

	// ModeSingle ends after the first final utterance.
	ModeSingle Mode = "single"
)

// Result is one recognition hypothesis.
type Result struct {
	Transcript string
	Final      bool
}

// Recognizer runs speech-recognition passes. Listen returns a channel of
// results that is closed when the pass ends; the pass's terminal error, if
// any, is available from the returned func after the channel closes.
// Cancelling ctx ends the pass.
type Recognizer interface {
	Listen(ctx context.Context, mode Mode) (<-chan Result, func() error, error)
}

// ErrorCode is a recognition failure reported by the engine.
type ErrorCode string

const (
	CodeNoSpeech     ErrorCode = "no-speech"
	CodeAudioCapture ErrorCode = "audio-capture"
	CodeNetwork      ErrorCode = "network"
	CodeNotAllowed   ErrorCode = "not-allowed"
	CodeAborted      ErrorCode = "aborted"
)

// RecognitionError is a typed recognition failure.
type RecognitionError struct {
	Code    ErrorCode
	Message string
}

func (e *RecognitionError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("recognition: %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("recognition: %s", e.Code)
}

// Fatal reports whether the error disables voice input for the session.
func (e *RecognitionError) Fatal() bool {
	return e.Code == CodeNotAllowed || e.Code == CodeAudioCapture
}

// ErrVoiceDisabled is returned by Voice.Run after a fatal recognition error.
var ErrVoiceDisabled = errors.New("input: voice input disabled for this session")

func codeOf(err error) ErrorCode {
	var re *RecognitionError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

func isFatal(err error) bool {
	var re *RecognitionError
	return errors.As(err, &re) && re.Fatal()
}

// WakeWord matches the two-part activation phrase, e.g. "hey eva".
// Matching ignores case and accepts a space or comma between the parts.
type WakeWord struct {
	Interjection string
	Name         string

	re *regexp.Regexp
}

// NewWakeWord builds a matcher. An empty name matches the interjection alone.
func NewWakeWord(interjection, name string) *WakeWord {
	w := &WakeWord{
		Interjection: strings.TrimSpace(interjection),
		Name:         strings.TrimSpace(name),
	}
	pattern := `(?i)\b` + regexp.QuoteMeta(w.Interjection)
	if w.Name != "" {
		pattern += `[\s,]+` + regexp.QuoteMeta(w.Name)
	}
	w.re = regexp.MustCompile(pattern + `\b`)
	return w
}

// Phrase returns the canonical phrase.
func (w *WakeWord) Phrase() string {
	if w.Name == "" {
		return w.Interjection
	}
	return w.Interjection + " " + w.Name
}

// Match reports whether transcript contains the phrase.
func (w *WakeWord) Match(transcript string) bool {
	if w.Interjection == "" {
		return false
	}
	return w.re.MatchString(transcript)
}

// VoiceMessages are the announcements made by the voice adapter.
type VoiceMessages struct {
	Prompt       string
	NoSpeech     string
	Retry        string
	AudioCapture string
	NotAllowed   string
	Network      string
	Failed       string
}

// DefaultVoiceMessages returns the stock English messages.
func DefaultVoiceMessages() VoiceMessages {
	return VoiceMessages{
		Prompt:       "Yes? What would you like to ask?",
		NoSpeech:     "I didn't hear anything.",
		Retry:        "I didn't catch that. Please try again.",
		AudioCapture: "No microphone was found.",
		NotAllowed:   "Microphone access was denied.",
		Network:      "Speech recognition is unavailable right now.",
		Failed:       "Sorry, I couldn't understand that.",
	}
}

// VoiceConfig configures a Voice adapter.
type VoiceConfig struct {
	CaptureTimeout time.Duration // per attempt, no-speech
	Retries        int           // extra attempts after no-speech
	RestartDelay   time.Duration // before restarting a dropped keyword pass
	Announcer      scan.Announcer
	Messages       VoiceMessages
	Logger         *slog.Logger
}

// DefaultVoiceConfig returns the standard capture policy.
func DefaultVoiceConfig() VoiceConfig {
	return VoiceConfig{
		CaptureTimeout: 10 * time.Second,
		Retries:        1,
		RestartDelay:   time.Second,
		Messages:       DefaultVoiceMessages(),
		Logger:         slog.Default(),
	}
}

// Voice listens for the wake word and captures a follow-up question. The
// question is dispatched to the controller as a GenerateOptions effect.
// Every capture ends by releasing the controller, so scanning resumes on
// success, timeout, error and empty results alike.
type Voice struct {
	rec      Recognizer
	listener Listener
	wake     *WakeWord
	cfg      VoiceConfig
	logger   *slog.Logger

	mu       sync.Mutex
	disabled bool
	captures int
}

// NewVoice creates a voice adapter.
func NewVoice(rec Recognizer, listener Listener, wake *WakeWord, cfg VoiceConfig) *Voice {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.CaptureTimeout <= 0 {
		cfg.CaptureTimeout = 10 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	return &Voice{
		rec:      rec,
		listener: listener,
		wake:     wake,
		cfg:      cfg,
		logger:   cfg.Logger.With("component", "input.Voice", "wake_word", wake.Phrase()),
	}
}

// Disabled reports whether a fatal error turned voice input off.
func (v *Voice) Disabled() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.disabled
}

// Captures returns the number of wake-word captures started.
func (v *Voice) Captures() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.captures
}

// Run runs the keyword listener until ctx is cancelled or a fatal error
// disables voice input, in which case ErrVoiceDisabled is returned.
func (v *Voice) Run(ctx context.Context) error {
	if v.Disabled() {
		return ErrVoiceDisabled
	}

	for {
		matched, err := v.listenForKeyword(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if matched {
			if err := v.capture(ctx); err != nil {
				if isFatal(err) {
					v.disable(err)
					return ErrVoiceDisabled
				}
			}
			continue
		}

		if err != nil {
			if isFatal(err) {
				v.say(ctx, v.messageFor(err))
				v.disable(err)
				return ErrVoiceDisabled
			}
			if codeOf(err) != CodeNoSpeech && codeOf(err) != CodeAborted {
				v.logger.Warn("keyword listener ended", "error", err)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(v.cfg.RestartDelay):
		}
	}
}

// listenForKeyword runs one continuous pass. It reports a wake-word match,
// or the error that ended the pass.
func (v *Voice) listenForKeyword(ctx context.Context) (bool, error) {
	passCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results, errFn, err := v.rec.Listen(passCtx, ModeContinuous)
	if err != nil {
		return false, err
	}

	for r := range results {
		if v.wake.Match(r.Transcript) {
			v.logger.Info("wake word heard", "transcript", r.Transcript)
			cancel()
			for range results {
			}
			return true, nil
		}
	}
	return false, errFn()
}

// capture handles one wake-word activation.
func (v *Voice) capture(ctx context.Context) error {
	release, err := v.listener.BeginListening()
	if err != nil {
		v.logger.Debug("capture skipped", "reason", err)
		return nil
	}
	defer release()

	v.mu.Lock()
	v.captures++
	v.mu.Unlock()

	v.say(ctx, v.cfg.Messages.Prompt)

	for attempt := 0; attempt <= v.cfg.Retries; attempt++ {
		text, err := v.captureOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err == nil && text != "" {
			v.logger.Info("question captured", "text", text)
			if err := v.listener.Perform(scan.GenerateOptions{Prompt: text}); err != nil {
				v.logger.Warn("question dispatch failed", "error", err)
			}
			return nil
		}

		if err == nil || codeOf(err) == CodeNoSpeech {
			if attempt < v.cfg.Retries {
				v.say(ctx, v.cfg.Messages.Retry)
				continue
			}
			v.say(ctx, v.cfg.Messages.NoSpeech)
			return nil
		}

		v.logger.Warn("question capture failed", "error", err)
		v.say(ctx, v.messageFor(err))
		return err
	}
	return nil
}

// captureOnce runs one single-utterance pass bounded by the capture
// timeout. A timeout is reported as no-speech.
func (v *Voice) captureOnce(ctx context.Context) (string, error) {
	passCtx, cancel := context.WithTimeout(ctx, v.cfg.CaptureTimeout)
	defer cancel()

	results, errFn, err := v.rec.Listen(passCtx, ModeSingle)
	if err != nil {
		return "", err
	}

	var text string
	for r := range results {
		if r.Final && strings.TrimSpace(r.Transcript) != "" {
			text = strings.TrimSpace(r.Transcript)
			cancel()
		}
	}
	if text != "" {
		return text, nil
	}

	err = errFn()
	if errors.Is(passCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return "", &RecognitionError{Code: CodeNoSpeech, Message: "timed out"}
	}
	return "", err
}

func (v *Voice) messageFor(err error) string {
	switch codeOf(err) {
	case CodeNoSpeech:
		return v.cfg.Messages.NoSpeech
	case CodeAudioCapture:
		return v.cfg.Messages.AudioCapture
	case CodeNotAllowed:
		return v.cfg.Messages.NotAllowed
	case CodeNetwork:
		return v.cfg.Messages.Network
	case CodeAborted:
		return ""
	default:
		return v.cfg.Messages.Failed
	}
}

// say announces text on the system channel and waits for it to finish.
func (v *Voice) say(ctx context.Context, text string) {
	if text == "" || v.cfg.Announcer == nil {
		return
	}
	if err := v.cfg.Announcer.Announce(ctx, text, announce.ChannelSystem, false); err != nil {
		v.logger.Debug("voice announcement failed", "error", err)
	}
}

func (v *Voice) disable(err error) {
	v.mu.Lock()
	v.disabled = true
	v.mu.Unlock()
	v.logger.Error("voice input disabled", "error", err)
}
