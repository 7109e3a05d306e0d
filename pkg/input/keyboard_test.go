package input

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

func TestKeyboardHandleKey(t *testing.T) {
	target := &recordingTarget{}
	kb := NewKeyboard(target, WithKeyDebounce(0))

	if kb.Key() != " " {
		t.Errorf("default key = %q, want space", kb.Key())
	}
	if kb.HandleKey("a") {
		t.Error("HandleKey(a) should not press")
	}
	if !kb.HandleKey(" ") {
		t.Error("HandleKey(space) should press")
	}

	got := target.Presses()
	if len(got) != 1 || got[0] != SourceKeyboard {
		t.Errorf("presses = %v, want [keyboard]", got)
	}
}

func TestKeyboardDebounce(t *testing.T) {
	clock := newFakeClock()
	target := &recordingTarget{}
	kb := NewKeyboard(target, WithKey("x"), WithKeyboardNow(clock.Now))

	kb.HandleKey("x")
	clock.Advance(100 * time.Millisecond)
	kb.HandleKey("x")
	clock.Advance(DefaultDebounce)
	kb.HandleKey("x")

	if got := len(target.Presses()); got != 2 {
		t.Errorf("presses = %d, want 2", got)
	}
}

func TestKeyboardReadFrom(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		presses int
		wantErr error
	}{
		{"eof", "a b ", 2, nil},
		{"ctrl-c", " \x03 ", 1, ErrInterrupted},
		{"ctrl-d", "\x04", 0, ErrInterrupted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := &recordingTarget{}
			kb := NewKeyboard(target, WithKeyDebounce(0))

			err := kb.ReadFrom(context.Background(), strings.NewReader(tt.input))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ReadFrom error = %v, want %v", err, tt.wantErr)
			}
			if got := len(target.Presses()); got != tt.presses {
				t.Errorf("presses = %d, want %d", got, tt.presses)
			}
		})
	}
}

func TestKeyboardReadFromCancel(t *testing.T) {
	kb := NewKeyboard(&recordingTarget{})
	r, w := io.Pipe()
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- kb.ReadFrom(ctx, r) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("ReadFrom error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("ReadFrom did not return after cancel")
	}
}
