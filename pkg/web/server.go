// Package web serves the scanning board to browsers: a websocket event
// stream that mirrors the controller, and a small REST control surface.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teslashibe/go-scanboard/pkg/board"
	"github.com/teslashibe/go-scanboard/pkg/history"
	"github.com/teslashibe/go-scanboard/pkg/hub"
	"github.com/teslashibe/go-scanboard/pkg/input"
	"github.com/teslashibe/go-scanboard/pkg/scan"
	"github.com/teslashibe/go-scanboard/pkg/settings"
)

// SourceWeb is the press source for browser clicks.
const SourceWeb = "web"

// Controller is the scan controller surface the server drives.
type Controller interface {
	Snapshot() scan.Snapshot
	Start() error
	Stop()
	Resume() error
	Press(source string)
}

// History is the spoken history the server exposes.
type History interface {
	Recent(n int) []history.Entry
	Count() int
	Clear() error
}

// Exporter exports history to Google Docs.
type Exporter interface {
	IsAuthenticated() bool
	AuthURL(state string) string
	HandleCallback(ctx context.Context, code string) error
	Export(ctx context.Context, title string, entries []history.Entry) (string, error)
	Disconnect() error
}

// SettingsApplier takes reloaded settings, normally the running session.
type SettingsApplier interface {
	Apply(st settings.Settings) error
}

// RouteRegistrar mounts extra routes, such as the remote switch socket.
type RouteRegistrar interface {
	RegisterRoutes(app *fiber.App)
}

// Config configures a Server.
type Config struct {
	Addr       string
	StaticDir  string // served at /, empty disables
	Debug      bool   // request logging
	History    History
	Settings   settings.Source
	Exporter   Exporter
	Registrars []RouteRegistrar
	Logger     *slog.Logger

	// PressDebounce merges browser presses closer than this into one.
	// Zero means input.DefaultDebounce, negative disables it.
	PressDebounce time.Duration
	Now           func() time.Time // debounce clock, default time.Now
}

// Server is the board web server. It implements scan.Observer by
// broadcasting controller changes to every connected browser.
type Server struct {
	app    *fiber.App
	cfg    Config
	events *hub.Hub
	logger *slog.Logger

	mu         sync.RWMutex
	controller Controller
	presser    *input.Debounced
	applier    SettingsApplier
	oauthState string
}

var _ scan.Observer = (*Server)(nil)

// NewServer creates the server and its event hub. Attach a controller
// before serving control requests.
func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	switch {
	case cfg.PressDebounce == 0:
		cfg.PressDebounce = input.DefaultDebounce
	case cfg.PressDebounce < 0:
		cfg.PressDebounce = 0
	}

	s := &Server{
		cfg:    cfg,
		events: hub.New("events", cfg.Logger),
		logger: cfg.Logger.With("component", "web.Server"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "scanboard",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Content-Type",
	}))
	if cfg.Debug {
		app.Use(logger.New())
	}

	app.Get("/health", s.handleHealth)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(s.newRegistry(), promhttp.HandlerOpts{})))

	api := app.Group("/api")
	api.Get("/state", s.handleState)
	api.Post("/start", s.handleStart)
	api.Post("/stop", s.handleStop)
	api.Post("/resume", s.handleResume)
	api.Post("/press", s.handlePress)
	api.Get("/settings", s.handleSettings)
	api.Post("/settings/reload", s.handleReloadSettings)
	api.Get("/history", s.handleHistory)
	api.Delete("/history", s.handleClearHistory)
	api.Post("/history/export", s.handleExport)
	api.Get("/history/google/status", s.handleGoogleStatus)
	api.Get("/history/google/auth", s.handleGoogleAuth)
	api.Get("/history/google/callback", s.handleGoogleCallback)
	api.Post("/history/google/disconnect", s.handleGoogleDisconnect)

	app.Use("/ws/events", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/events", websocket.New(s.handleEventsWS))

	for _, r := range cfg.Registrars {
		r.RegisterRoutes(app)
	}

	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir)
	}

	s.app = app
	return s
}

// Attach sets the controller driven by the REST API. Browser presses
// reach it through a debouncer, like every other click-like switch.
func (s *Server) Attach(c Controller) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controller = c
	s.presser = input.NewDebounced(c, s.cfg.PressDebounce, s.cfg.Now)
}

// AttachSettings sets where POST /api/settings/reload sends settings.
func (s *Server) AttachSettings(a SettingsApplier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applier = a
}

func (s *Server) ctrl() Controller {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.controller
}

func (s *Server) pressTarget() *input.Debounced {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.presser
}

func (s *Server) settingsApplier() SettingsApplier {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.applier
}

// press forwards a browser press unless it belongs to the previous click.
func (s *Server) press(source string) {
	if p := s.pressTarget(); p != nil && !p.TryPress(source) {
		s.logger.Debug("press debounced", "source", source)
	}
}

// App returns the fiber app, for tests and extra routes.
func (s *Server) App() *fiber.App {
	return s.app
}

// Events returns the event hub. Hub players and highlighters broadcast on it.
func (s *Server) Events() *hub.Hub {
	return s.events
}

// Listen starts the event hub and serves on the configured address until
// Shutdown.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve starts the event hub and serves on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	go s.events.Run()
	s.logger.Info("web server listening", "addr", ln.Addr().String())
	return s.app.Listener(ln)
}

// Shutdown stops the server and the event hub.
func (s *Server) Shutdown(ctx context.Context) error {
	s.events.Stop()
	return s.app.ShutdownWithContext(ctx)
}

// Highlight implements scan.Observer.
func (s *Server) Highlight(index int, item scan.Item) {
	s.broadcast(HighlightEvent{Type: EventHighlight, Index: index, ID: item.ID, Label: item.Label})
}

// Clear implements scan.Observer.
func (s *Server) Clear() {
	s.broadcast(map[string]string{"type": EventClear})
}

// StateChanged implements scan.Observer.
func (s *Server) StateChanged(state scan.State) {
	s.broadcast(StateEvent{Type: EventState, State: state})
}

// ItemsChanged implements scan.Observer.
func (s *Server) ItemsChanged(items []scan.Item) {
	s.broadcast(ItemsEvent{Type: EventItems, Items: itemViews(items)})
}

// PageChanged broadcasts the board page now shown.
func (s *Server) PageChanged(p *board.Page) {
	s.broadcast(PageEvent{Type: EventPage, Name: p.Name, Title: p.Title, Columns: p.Columns})
}

// TextChanged broadcasts the spelling board buffer.
func (s *Server) TextChanged(text string) {
	s.broadcast(TextEvent{Type: EventText, Text: text})
}

func (s *Server) broadcast(v any) {
	if err := s.events.BroadcastJSON(v); err != nil {
		s.logger.Warn("event encode failed", "error", err)
	}
}

// handleEventsWS sends the current snapshot, then streams events. Browsers
// may send {"type":"press"} to activate.
func (s *Server) handleEventsWS(c *websocket.Conn) {
	if ctrl := s.ctrl(); ctrl != nil {
		if err := c.WriteJSON(SnapshotEvent{Type: EventSnapshot, Snapshot: ctrl.Snapshot()}); err != nil {
			return
		}
	}

	client := hub.NewClient(s.events, c)
	if client == nil {
		return
	}
	client.OnMessage(func(data []byte) {
		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return
		}
		if msg.Type == "press" {
			s.press(SourceWeb)
		}
	})
	client.Run()
}
