package scan

import (
	"errors"
	"fmt"
)

// Sentinel errors for the scan controller.
var (
	// ErrDisposed is returned by every operation after Dispose.
	ErrDisposed = errors.New("scan: controller disposed")

	// ErrNoItems is returned when starting or activating with an empty set.
	ErrNoItems = errors.New("scan: no scannable items")

	// ErrScanningDisabled is returned by Start when scanning is turned off
	// in settings.
	ErrScanningDisabled = errors.New("scan: scanning disabled")

	// ErrBusy is returned when an activation or voice capture is in progress.
	ErrBusy = errors.New("scan: activation in progress")

	// ErrNotPaused is returned by Resume outside PausedByLimit.
	ErrNotPaused = errors.New("scan: not paused by cycle limit")

	// ErrNoOptions is returned when content generation produced nothing.
	ErrNoOptions = errors.New("scan: content provider returned no options")

	// ErrNoNavigator is returned for Navigate effects without a Navigator.
	ErrNoNavigator = errors.New("scan: no navigator configured")

	// ErrNoContent is returned for GenerateOptions effects without a
	// content provider.
	ErrNoContent = errors.New("scan: no content provider configured")

	// ErrNoAnnouncer is returned for Speak effects without an Announcer.
	ErrNoAnnouncer = errors.New("scan: no announcer configured")

	// ErrInvalidInterval is returned by Validate for a non-positive interval.
	ErrInvalidInterval = errors.New("scan: interval must be positive")

	// ErrInvalidCycleLimit is returned by Validate for a negative limit.
	ErrInvalidCycleLimit = errors.New("scan: cycle limit must not be negative")
)

// EffectError wraps a failure from running an item's effect.
type EffectError struct {
	Kind  string // effect variant, e.g. "generate"
	Label string // label of the activated item, if any
	Err   error
}

func (e *EffectError) Error() string {
	if e.Label != "" {
		return fmt.Sprintf("scan: %s effect of %q failed: %v", e.Kind, e.Label, e.Err)
	}
	return fmt.Sprintf("scan: %s effect failed: %v", e.Kind, e.Err)
}

func (e *EffectError) Unwrap() error {
	return e.Err
}

// PanicError is the error recorded when an effect panics.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("scan: effect panicked: %v", e.Value)
}
