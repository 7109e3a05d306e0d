package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/teslashibe/go-scanboard/internal/config"
	"github.com/teslashibe/go-scanboard/internal/httpc"
	"github.com/teslashibe/go-scanboard/internal/log"
	"github.com/teslashibe/go-scanboard/pkg/announce"
	"github.com/teslashibe/go-scanboard/pkg/board"
	"github.com/teslashibe/go-scanboard/pkg/content"
	"github.com/teslashibe/go-scanboard/pkg/history"
	"github.com/teslashibe/go-scanboard/pkg/input"
	"github.com/teslashibe/go-scanboard/pkg/recognition"
	"github.com/teslashibe/go-scanboard/pkg/scan"
	"github.com/teslashibe/go-scanboard/pkg/session"
	"github.com/teslashibe/go-scanboard/pkg/settings"
	"github.com/teslashibe/go-scanboard/pkg/tts"
	"github.com/teslashibe/go-scanboard/pkg/web"
)

type serveFlags struct {
	addr       string
	page       string
	key        string
	static     string
	noKeyboard bool
	debug      bool
}

func newServeCmd(opts *options) *cobra.Command {
	var f serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the board: web surface, scanning session and switch inputs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := opts.cfg
			flags := cmd.Flags()
			if flags.Changed("addr") {
				cfg.Addr = f.addr
			}
			if flags.Changed("page") {
				cfg.StartPage = f.page
			}
			if flags.Changed("static") {
				cfg.StaticDir = f.static
			}
			if flags.Changed("debug") {
				cfg.Debug = f.debug
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return serve(ctx, cancel, cfg, f)
		},
	}

	cmd.Flags().StringVar(&f.addr, "addr", config.DefaultAddr, "web listen address (overrides SCANBOARD_ADDR)")
	cmd.Flags().StringVar(&f.page, "page", config.DefaultPage, "page opened at start")
	cmd.Flags().StringVar(&f.key, "key", " ", "keyboard switch key")
	cmd.Flags().StringVar(&f.static, "static", "", "directory served at / (overrides SCANBOARD_STATIC_DIR)")
	cmd.Flags().BoolVar(&f.noKeyboard, "no-keyboard", false, "do not read the terminal as a switch")
	cmd.Flags().BoolVar(&f.debug, "debug", false, "log every HTTP request")
	return cmd
}

func serve(ctx context.Context, cancel context.CancelFunc, cfg config.Config, f serveFlags) error {
	logger := log.L()
	client := httpc.NewClient(cfg.Timeout)

	// User settings: backend first, then the local copy.
	file := settings.NewFileSource(cfg.SettingsPath)
	src := settings.NewLayered(logger, settings.NewHTTPSource(cfg.BackendURL, client), file)
	st, err := src.Load(ctx)
	if err != nil {
		logger.Warn("using default settings", "error", err)
	} else if err := file.Save(st); err != nil {
		logger.Warn("settings not cached", "path", cfg.SettingsPath, "error", err)
	}

	store, err := history.NewStore(cfg.HistoryPath, cfg.HistoryMax)
	if err != nil {
		return err
	}

	webCfg := web.Config{
		Addr:      cfg.Addr,
		StaticDir: cfg.StaticDir,
		Debug:     cfg.Debug,
		History:   store,
		Settings:  src,
		Logger:    logger,
	}
	if cfg.GoogleEnabled() {
		exp, err := history.NewDocsExporter(history.DocsConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			TokenPath:    cfg.GoogleTokenPath,
			Logger:       logger,
		})
		if err != nil {
			return err
		}
		webCfg.Exporter = exp
	}
	srv := web.NewServer(webCfg)

	synth, err := newVoice(cfg, client, logger)
	if err != nil {
		return err
	}
	defer synth.Close()

	gen, err := newContent(cfg, client, logger)
	if err != nil {
		return err
	}
	defer gen.Close()

	nav := board.NewNavigator(cfg.BackendURL,
		board.WithClient(client),
		board.WithLogger(logger),
		board.WithPageListener(srv.PageChanged),
	)
	spell := board.NewFreestyle(board.HomePage)
	spell.OnChange(srv.TextChanged)
	nav.Register(board.FreestylePage, spell.Items)

	sessCfg := session.Config{
		Settings:    st,
		Synth:       synth,
		Content:     gen,
		Pages:       nav,
		Player:      newPlayer(cfg, srv),
		History:     store,
		Highlighter: newHighlighter(cfg, srv, logger),
		Observers:   []scan.Observer{srv},
		SwitchKey:   f.key,
		Logger:      logger,
	}
	if cfg.HIDEnabled {
		hcfg := input.DefaultHIDConfig()
		hcfg.Path = cfg.HIDPath
		pad, err := input.OpenHID(hcfg)
		if err != nil {
			logger.Warn("gamepad switch unavailable", "error", err)
		} else {
			sessCfg.Gamepad = pad
		}
	}
	if cfg.MQTTBroker != "" {
		mcfg := input.DefaultMQTTConfig()
		mcfg.Broker = cfg.MQTTBroker
		mcfg.Topic = cfg.MQTTTopic
		sessCfg.MQTT = &mcfg
	}
	if cfg.RecognizerURL != "" {
		sessCfg.Recognizer = recognition.New(cfg.RecognizerURL, recognition.WithLogger(logger))
	}

	sess, err := session.New(sessCfg)
	if err != nil {
		return err
	}
	defer sess.Dispose()

	srv.Attach(sess.Controller())
	srv.AttachSettings(settingsCache{sess: sess, file: file, logger: logger})
	input.NewRemoteSwitch(sess.Controller(), sess.Keyboard(), logger).RegisterRoutes(srv.App())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen()
	}()

	if err := sess.Open(ctx, cfg.StartPage); err != nil {
		logger.Error("start page unavailable", "page", cfg.StartPage, "error", err)
	}

	if !f.noKeyboard {
		go readKeyboard(ctx, cancel, sess.Keyboard(), logger)
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	logger.Info("shutting down")
	sess.Dispose()
	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	return srv.Shutdown(shutdownCtx)
}

// settingsCache applies reloaded settings to the session and keeps the
// local copy current.
type settingsCache struct {
	sess   *session.Session
	file   *settings.FileSource
	logger *slog.Logger
}

func (c settingsCache) Apply(st settings.Settings) error {
	if err := c.sess.Apply(st); err != nil {
		return err
	}
	if err := c.file.Save(st); err != nil {
		c.logger.Warn("settings not cached", "error", err)
	}
	return nil
}

// newVoice synthesizes with the backend, falling back to a second voice
// server when one is configured.
func newVoice(cfg config.Config, client *http.Client, logger *slog.Logger) (tts.Provider, error) {
	primary, err := tts.NewBackend(
		tts.WithBaseURL(cfg.BackendURL),
		tts.WithAPIKey(cfg.APIKey),
		tts.WithHTTPClient(client),
		tts.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	if cfg.FallbackTTSURL == "" {
		return primary, nil
	}

	fallback, err := tts.NewBackend(
		tts.WithBaseURL(cfg.FallbackTTSURL),
		tts.WithHTTPClient(client),
		tts.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	return tts.NewChainWithLogger(logger, primary, fallback)
}

// newContent chains the chat endpoint ahead of the backend when one is
// configured.
func newContent(cfg config.Config, client *http.Client, logger *slog.Logger) (content.Provider, error) {
	backend, err := content.NewBackend(
		content.WithBaseURL(cfg.BackendURL),
		content.WithAPIKey(cfg.APIKey),
		content.WithHTTPClient(client),
		content.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	if cfg.ChatURL == "" {
		return backend, nil
	}

	chat, err := content.NewChat(
		content.WithBaseURL(cfg.ChatURL),
		content.WithAPIKey(cfg.ChatKey),
		content.WithModel(cfg.ChatModel),
		content.WithHTTPClient(client),
		content.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	return content.NewChain(chat, backend)
}

func newPlayer(cfg config.Config, srv *web.Server) announce.Player {
	if cfg.LocalAudio {
		return announce.NewExecPlayer()
	}
	return announce.NewHubPlayer(srv.Events())
}

func newHighlighter(cfg config.Config, srv *web.Server, logger *slog.Logger) announce.Highlighters {
	hs := announce.Highlighters{announce.NewHubHighlighter(srv.Events())}
	if cfg.LocalHighlight {
		hs = append(hs, announce.NewExecHighlighter(logger))
	}
	return hs
}

// readKeyboard puts the terminal in raw mode and feeds it to the keyboard
// switch. Ctrl-C in raw mode arrives as a byte, so it cancels ctx here.
func readKeyboard(ctx context.Context, cancel context.CancelFunc, kb *input.Keyboard, logger *slog.Logger) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		logger.Info("stdin is not a terminal, keyboard switch off")
		return
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		logger.Warn("raw mode unavailable, keyboard switch off", "error", err)
		return
	}
	defer term.Restore(fd, state)

	logger.Info("keyboard switch ready", "key", kb.Key())
	err = kb.ReadFrom(ctx, os.Stdin)
	if errors.Is(err, input.ErrInterrupted) {
		cancel()
	}
}
