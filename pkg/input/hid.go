package input

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sstallion/go-hid"
)

// HID usages for game controllers on the Generic Desktop page.
const (
	usagePageGenericDesktop = 0x01
	usageJoystick           = 0x04
	usageGamepad            = 0x05
)

// ErrNoGamepad is returned when no HID game controller is attached.
var ErrNoGamepad = errors.New("input: no HID gamepad found")

// HIDConfig selects the report bits holding the activate button.
type HIDConfig struct {
	Path       string        // device path; empty picks the first gamepad
	ReportByte int           // byte offset of the button bitfield
	ButtonMask byte          // bit of button 0 within ReportByte
	ReadWait   time.Duration // per-sample read timeout
}

// DefaultHIDConfig returns the layout used by most USB gamepads: buttons
// in the first report byte after the report ID, button 0 in bit 0.
func DefaultHIDConfig() HIDConfig {
	return HIDConfig{
		ReportByte: 1,
		ButtonMask: 0x01,
		ReadWait:   time.Millisecond,
	}
}

// HIDButtonReader reads button 0 from a USB HID game controller.
type HIDButtonReader struct {
	cfg HIDConfig
	dev *hid.Device
	buf []byte

	mu   sync.Mutex
	last bool
}

var _ ButtonReader = (*HIDButtonReader)(nil)

// OpenHID initialises the HID library and opens a game controller.
func OpenHID(cfg HIDConfig) (*HIDButtonReader, error) {
	if cfg.ButtonMask == 0 {
		cfg.ButtonMask = 0x01
	}
	if cfg.ReadWait <= 0 {
		cfg.ReadWait = time.Millisecond
	}

	if err := hid.Init(); err != nil {
		return nil, fmt.Errorf("input: hid init: %w", err)
	}

	path := cfg.Path
	if path == "" {
		var err error
		path, err = findGamepad()
		if err != nil {
			hid.Exit()
			return nil, err
		}
	}

	dev, err := hid.OpenPath(path)
	if err != nil {
		hid.Exit()
		return nil, fmt.Errorf("input: open %s: %w", path, err)
	}

	return &HIDButtonReader{
		cfg: cfg,
		dev: dev,
		buf: make([]byte, 64),
	}, nil
}

func findGamepad() (string, error) {
	var path string
	err := hid.Enumerate(hid.VendorIDAny, hid.ProductIDAny, func(info *hid.DeviceInfo) error {
		if path != "" || info.UsagePage != usagePageGenericDesktop {
			return nil
		}
		if info.Usage == usageGamepad || info.Usage == usageJoystick {
			path = info.Path
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("input: enumerate hid: %w", err)
	}
	if path == "" {
		return "", ErrNoGamepad
	}
	return path, nil
}

// Pressed reads one input report. When the device sent nothing within the
// read timeout the previous state is returned.
func (r *HIDButtonReader) Pressed() (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, err := r.dev.ReadWithTimeout(r.buf, r.cfg.ReadWait)
	if errors.Is(err, hid.ErrTimeout) {
		return r.last, nil
	}
	if err != nil {
		return false, fmt.Errorf("input: hid read: %w", err)
	}
	if n == 0 {
		return r.last, nil
	}
	r.last = decodeButton(r.buf[:n], r.cfg.ReportByte, r.cfg.ButtonMask)
	return r.last, nil
}

// Close closes the device and releases the HID library.
func (r *HIDButtonReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.dev.Close()
	hid.Exit()
	return err
}

func decodeButton(report []byte, index int, mask byte) bool {
	if index < 0 || index >= len(report) {
		return false
	}
	return report[index]&mask != 0
}
