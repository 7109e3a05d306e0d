// Package settings loads the user's scan settings from the board backend
// or a local YAML file.
package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Defaults.
const (
	DefaultScanDelay    = 3500 * time.Millisecond
	DefaultInterjection = "hey"
	DefaultGridColumns  = 4
)

// ErrNoSources is returned by Layered.Load when it has no sources.
var ErrNoSources = errors.New("settings: no sources configured")

// Settings are the user-tunable scanning preferences.
type Settings struct {
	ScanDelay            time.Duration `json:"scanDelay"`
	ScanLoopLimit        int           `json:"scanLoopLimit"`
	WakeWordInterjection string        `json:"wakeWordInterjection"`
	WakeWordName         string        `json:"wakeWordName"`
	GridColumns          int           `json:"gridColumns"`
	ScanningOff          bool          `json:"ScanningOff"`
}

// Default returns the settings used when no source answers.
func Default() Settings {
	return Settings{
		ScanDelay:            DefaultScanDelay,
		WakeWordInterjection: DefaultInterjection,
		GridColumns:          DefaultGridColumns,
	}
}

// Normalize replaces out-of-range values with defaults.
func (s Settings) Normalize() Settings {
	d := Default()
	if s.ScanDelay <= 0 {
		s.ScanDelay = d.ScanDelay
	}
	if s.ScanLoopLimit < 0 {
		s.ScanLoopLimit = 0
	}
	if s.GridColumns <= 0 {
		s.GridColumns = d.GridColumns
	}
	if s.WakeWordInterjection == "" {
		s.WakeWordInterjection = d.WakeWordInterjection
	}
	return s
}

// Source loads settings.
type Source interface {
	Load(ctx context.Context) (Settings, error)
}

// Static is a Source that always returns the same settings.
type Static Settings

// Load returns s.
func (s Static) Load(context.Context) (Settings, error) {
	return Settings(s).Normalize(), nil
}

// Layered tries each source in order; the first success wins.
type Layered struct {
	Sources []Source
	Logger  *slog.Logger
}

// NewLayered creates a layered source. Nil sources are skipped.
func NewLayered(logger *slog.Logger, sources ...Source) *Layered {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Layered{Logger: logger.With("component", "settings.Layered")}
	for _, s := range sources {
		if s != nil {
			l.Sources = append(l.Sources, s)
		}
	}
	return l
}

// Load returns the first source's settings that loads without error. If
// every source fails, it returns the defaults together with the joined
// errors, so callers can log and carry on.
func (l *Layered) Load(ctx context.Context) (Settings, error) {
	if len(l.Sources) == 0 {
		return Default(), ErrNoSources
	}

	var errs []error
	for i, src := range l.Sources {
		s, err := src.Load(ctx)
		if err == nil {
			return s.Normalize(), nil
		}
		l.Logger.Warn("settings source failed", "index", i, "error", err)
		errs = append(errs, fmt.Errorf("source %d: %w", i, err))
	}
	return Default(), errors.Join(errs...)
}
