// Package session wires a scan controller, its announcer and its input
// adapters together for one open board, and tears them all down again.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/teslashibe/go-scanboard/pkg/announce"
	"github.com/teslashibe/go-scanboard/pkg/content"
	"github.com/teslashibe/go-scanboard/pkg/input"
	"github.com/teslashibe/go-scanboard/pkg/scan"
	"github.com/teslashibe/go-scanboard/pkg/settings"
	"github.com/teslashibe/go-scanboard/pkg/tts"
)

// ErrClosed is returned after Dispose.
var ErrClosed = errors.New("session: disposed")

// Pages resolves board pages. *board.Navigator implements it.
type Pages interface {
	scan.Navigator
	Open(ctx context.Context, name string) ([]scan.Item, error)
}

// Config holds everything a session needs. Synth and Pages are required;
// the rest are optional.
type Config struct {
	Settings settings.Settings

	Synth       tts.Provider
	Content     content.Provider
	Pages       Pages
	Player      announce.Player
	History     announce.HistoryRecorder
	Highlighter scan.Highlighter
	Observers   []scan.Observer

	// Input adapters
	SwitchKey  string // keyboard switch key, default space
	Gamepad    input.ButtonReader
	Recognizer input.Recognizer
	MQTT       *input.MQTTConfig

	// Scheduler and Clock override the real timers, for tests.
	Scheduler scan.Scheduler
	Clock     scan.Clock

	Logger *slog.Logger
}

// Session is one open board.
type Session struct {
	cfg    Config
	logger *slog.Logger

	announcer  *announce.Announcer
	controller *scan.Controller
	keyboard   *input.Keyboard
	poller     *input.Poller
	voice      *input.Voice
	mqtt       *input.MQTTSwitch

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	opened   bool
	disposed bool
}

// New builds the session's components. Nothing runs until Open.
func New(cfg Config) (*Session, error) {
	if cfg.Synth == nil {
		return nil, errors.New("session: a TTS provider is required")
	}
	if cfg.Pages == nil {
		return nil, errors.New("session: a page navigator is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	st := cfg.Settings.Normalize()
	cfg.Settings = st

	annOpts := []announce.Option{announce.WithLogger(cfg.Logger)}
	if cfg.Player != nil {
		annOpts = append(annOpts, announce.WithPlayer(cfg.Player))
	}
	if cfg.History != nil {
		annOpts = append(annOpts, announce.WithHistory(cfg.History))
	}
	ann := announce.New(cfg.Synth, annOpts...)

	opts := []scan.Option{
		scan.WithInterval(st.ScanDelay),
		scan.WithCycleLimit(st.ScanLoopLimit),
		scan.WithDisabled(st.ScanningOff),
		scan.WithAnnouncer(ann),
		scan.WithNavigator(cfg.Pages),
		scan.WithLogger(cfg.Logger),
	}
	if cfg.Content != nil {
		opts = append(opts, scan.WithContent(cfg.Content))
	}
	if cfg.Highlighter != nil {
		opts = append(opts, scan.WithHighlighter(cfg.Highlighter))
	}
	if cfg.Scheduler != nil {
		opts = append(opts, scan.WithScheduler(cfg.Scheduler))
	}
	if cfg.Clock != nil {
		opts = append(opts, scan.WithClock(cfg.Clock))
	}
	for _, o := range cfg.Observers {
		opts = append(opts, scan.WithObserver(o))
	}

	ctrl, err := scan.New(opts...)
	if err != nil {
		ann.Close()
		return nil, fmt.Errorf("session: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		cfg:        cfg,
		logger:     cfg.Logger.With("component", "session.Session"),
		announcer:  ann,
		controller: ctrl,
		keyboard:   newKeyboard(ctrl, cfg),
		ctx:        ctx,
		cancel:     cancel,
	}

	if cfg.Gamepad != nil {
		s.poller = input.NewPoller(cfg.Gamepad, ctrl, input.WithPollerLogger(cfg.Logger))
	}
	if cfg.Recognizer != nil && st.WakeWordInterjection != "" {
		vcfg := input.DefaultVoiceConfig()
		vcfg.Announcer = ann
		vcfg.Logger = cfg.Logger
		wake := input.NewWakeWord(st.WakeWordInterjection, st.WakeWordName)
		s.voice = input.NewVoice(cfg.Recognizer, ctrl, wake, vcfg)
	}
	if cfg.MQTT != nil {
		mcfg := *cfg.MQTT
		if mcfg.Logger == nil {
			mcfg.Logger = cfg.Logger
		}
		s.mqtt = input.NewMQTTSwitch(ctrl, mcfg)
	}
	return s, nil
}

func newKeyboard(target input.Target, cfg Config) *input.Keyboard {
	opts := []input.KeyboardOption{input.WithKeyboardLogger(cfg.Logger)}
	if cfg.SwitchKey != "" {
		opts = append(opts, input.WithKey(cfg.SwitchKey))
	}
	return input.NewKeyboard(target, opts...)
}

// Controller returns the session's scan controller.
func (s *Session) Controller() *scan.Controller {
	return s.controller
}

// Announcer returns the session's announcement queue.
func (s *Session) Announcer() *announce.Announcer {
	return s.announcer
}

// Keyboard returns the keyboard adapter.
func (s *Session) Keyboard() *input.Keyboard {
	return s.keyboard
}

// Voice returns the voice adapter, or nil when voice input is off.
func (s *Session) Voice() *input.Voice {
	return s.voice
}

// Open loads page, starts scanning and starts the input adapters. Calling
// Open again navigates to another page; adapters keep running. A failing
// MQTT connection is logged and does not fail Open.
func (s *Session) Open(ctx context.Context, page string) error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ErrClosed
	}
	first := !s.opened
	s.opened = true
	s.mu.Unlock()

	items, err := s.cfg.Pages.Open(ctx, page)
	if err != nil {
		return fmt.Errorf("session: open %q: %w", page, err)
	}
	s.controller.SetItems(items)
	if err := s.controller.Start(); err != nil && !errors.Is(err, scan.ErrScanningDisabled) {
		return fmt.Errorf("session: start: %w", err)
	}

	if first {
		s.startAdapters(ctx)
	}
	s.logger.Info("board opened", "page", page, "items", len(items))
	return nil
}

func (s *Session) startAdapters(ctx context.Context) {
	if s.poller != nil {
		s.poller.Start(s.ctx)
	}
	if s.voice != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.voice.Run(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Warn("voice input stopped", "error", err)
			}
		}()
	}
	if s.mqtt != nil {
		if err := s.mqtt.Connect(ctx); err != nil {
			s.logger.Warn("mqtt switch unavailable", "error", err)
		}
	}
}

// Apply pushes new settings into the running controller.
func (s *Session) Apply(st settings.Settings) error {
	st = st.Normalize()
	if err := s.controller.SetTiming(st.ScanDelay, st.ScanLoopLimit); err != nil {
		return err
	}
	s.controller.SetDisabled(st.ScanningOff)
	return nil
}

// Dispose stops scanning and every adapter, cancels in-flight content
// generation and closes the announcer. Safe to call more than once.
func (s *Session) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	s.mu.Unlock()

	s.cancel()
	if s.poller != nil {
		s.poller.Close()
	}
	if s.mqtt != nil {
		s.mqtt.Close()
	}
	s.controller.Dispose()
	s.wg.Wait()
	s.announcer.Close()
	s.logger.Info("session disposed")
}
