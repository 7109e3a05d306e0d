package web

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-scanboard/pkg/history"
	"github.com/teslashibe/go-scanboard/pkg/scan"
)

// errorHandler renders every error as {"error": "..."}.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

// controlError maps controller errors to HTTP statuses.
func controlError(err error) error {
	switch {
	case errors.Is(err, scan.ErrDisposed):
		return fiber.NewError(fiber.StatusGone, err.Error())
	case errors.Is(err, scan.ErrNoItems),
		errors.Is(err, scan.ErrScanningDisabled),
		errors.Is(err, scan.ErrBusy),
		errors.Is(err, scan.ErrNotPaused):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return err
	}
}

var errNoController = fiber.NewError(fiber.StatusServiceUnavailable, "no board open")

func (s *Server) handleHealth(c *fiber.Ctx) error {
	state := "none"
	if ctrl := s.ctrl(); ctrl != nil {
		state = ctrl.Snapshot().State.String()
	}
	return c.JSON(fiber.Map{
		"status":  "ok",
		"state":   state,
		"clients": s.events.ClientCount(),
	})
}

func (s *Server) handleState(c *fiber.Ctx) error {
	ctrl := s.ctrl()
	if ctrl == nil {
		return errNoController
	}
	return c.JSON(ctrl.Snapshot())
}

func (s *Server) handleStart(c *fiber.Ctx) error {
	ctrl := s.ctrl()
	if ctrl == nil {
		return errNoController
	}
	if err := ctrl.Start(); err != nil {
		return controlError(err)
	}
	return c.JSON(ctrl.Snapshot())
}

func (s *Server) handleStop(c *fiber.Ctx) error {
	ctrl := s.ctrl()
	if ctrl == nil {
		return errNoController
	}
	ctrl.Stop()
	return c.JSON(ctrl.Snapshot())
}

func (s *Server) handleResume(c *fiber.Ctx) error {
	ctrl := s.ctrl()
	if ctrl == nil {
		return errNoController
	}
	if err := ctrl.Resume(); err != nil {
		return controlError(err)
	}
	return c.JSON(ctrl.Snapshot())
}

// PressRequest is the body of POST /api/press.
type PressRequest struct {
	Source string `json:"source"`
}

func (s *Server) handlePress(c *fiber.Ctx) error {
	if s.ctrl() == nil {
		return errNoController
	}
	var req PressRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid press body")
		}
	}
	if req.Source == "" {
		req.Source = SourceWeb
	}
	s.press(req.Source)
	return c.SendStatus(fiber.StatusAccepted)
}

func (s *Server) handleSettings(c *fiber.Ctx) error {
	if s.cfg.Settings == nil {
		return fiber.NewError(fiber.StatusNotFound, "settings not configured")
	}
	st, err := s.cfg.Settings.Load(c.UserContext())
	if err != nil {
		s.logger.Warn("settings load failed", "error", err)
	}
	return c.JSON(st)
}

// handleReloadSettings loads settings again and applies them to the
// running session. A failed load leaves the current settings in place.
func (s *Server) handleReloadSettings(c *fiber.Ctx) error {
	if s.cfg.Settings == nil {
		return fiber.NewError(fiber.StatusNotFound, "settings not configured")
	}
	applier := s.settingsApplier()
	if applier == nil {
		return errNoController
	}
	st, err := s.cfg.Settings.Load(c.UserContext())
	if err != nil {
		s.logger.Warn("settings reload failed", "error", err)
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	if err := applier.Apply(st); err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}
	s.logger.Info("settings reloaded", "scan_delay", st.ScanDelay, "loop_limit", st.ScanLoopLimit, "scanning_off", st.ScanningOff)
	return c.JSON(st)
}

func (s *Server) handleHistory(c *fiber.Ctx) error {
	if s.cfg.History == nil {
		return c.JSON([]history.Entry{})
	}
	limit := c.QueryInt("limit", 50)
	return c.JSON(s.cfg.History.Recent(limit))
}

func (s *Server) handleClearHistory(c *fiber.Ctx) error {
	if s.cfg.History == nil {
		return c.SendStatus(fiber.StatusNoContent)
	}
	if err := s.cfg.History.Clear(); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleExport(c *fiber.Ctx) error {
	if s.cfg.Exporter == nil || s.cfg.History == nil {
		return fiber.NewError(fiber.StatusNotFound, "export not configured")
	}
	if !s.cfg.Exporter.IsAuthenticated() {
		return fiber.NewError(fiber.StatusUnauthorized, history.ErrNotAuthenticated.Error())
	}

	// Recent returns newest first; documents read oldest first.
	recent := s.cfg.History.Recent(0)
	entries := make([]history.Entry, len(recent))
	for i, e := range recent {
		entries[len(recent)-1-i] = e
	}

	id, err := s.cfg.Exporter.Export(c.UserContext(), history.ExportTitle(time.Now()), entries)
	if errors.Is(err, history.ErrNothingToExport) {
		return fiber.NewError(fiber.StatusConflict, err.Error())
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"doc_id": id, "url": history.DocURL(id)})
}

func (s *Server) handleGoogleStatus(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"configured":    s.cfg.Exporter != nil,
		"authenticated": s.cfg.Exporter != nil && s.cfg.Exporter.IsAuthenticated(),
	})
}

func (s *Server) handleGoogleAuth(c *fiber.Ctx) error {
	if s.cfg.Exporter == nil {
		return fiber.NewError(fiber.StatusNotFound, "export not configured")
	}
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return err
	}
	state := hex.EncodeToString(buf)

	s.mu.Lock()
	s.oauthState = state
	s.mu.Unlock()

	return c.Redirect(s.cfg.Exporter.AuthURL(state), fiber.StatusTemporaryRedirect)
}

func (s *Server) handleGoogleCallback(c *fiber.Ctx) error {
	if s.cfg.Exporter == nil {
		return fiber.NewError(fiber.StatusNotFound, "export not configured")
	}

	s.mu.Lock()
	want := s.oauthState
	s.oauthState = ""
	s.mu.Unlock()

	if want == "" || c.Query("state") != want {
		return fiber.NewError(fiber.StatusBadRequest, "invalid oauth state")
	}
	code := c.Query("code")
	if code == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing code")
	}
	if err := s.cfg.Exporter.HandleCallback(c.UserContext(), code); err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return c.SendString("Connected to Google. You can close this window.")
}

func (s *Server) handleGoogleDisconnect(c *fiber.Ctx) error {
	if s.cfg.Exporter == nil {
		return fiber.NewError(fiber.StatusNotFound, "export not configured")
	}
	if err := s.cfg.Exporter.Disconnect(); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
