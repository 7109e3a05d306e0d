package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"SCANBOARD_ADDR", "SCANBOARD_BACKEND_URL", "SCANBOARD_HISTORY_MAX", "SCANBOARD_TIMEOUT"} {
		t.Setenv(k, "")
	}

	c := FromEnv()
	if c.Addr != DefaultAddr {
		t.Errorf("Addr = %q, want %q", c.Addr, DefaultAddr)
	}
	if c.StartPage != DefaultPage {
		t.Errorf("StartPage = %q, want %q", c.StartPage, DefaultPage)
	}
	if c.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", c.Timeout)
	}
	if err := c.Validate(); err == nil {
		t.Error("Validate() should require a backend URL")
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("SCANBOARD_ADDR", ":9090")
	t.Setenv("SCANBOARD_BACKEND_URL", "http://board.local/")
	t.Setenv("SCANBOARD_HID", "true")
	t.Setenv("SCANBOARD_HISTORY_MAX", "50")
	t.Setenv("SCANBOARD_TIMEOUT", "1500")
	t.Setenv("GOOGLE_CLIENT_ID", "id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "secret")

	c := FromEnv()
	if c.Addr != ":9090" {
		t.Errorf("Addr = %q", c.Addr)
	}
	if c.BackendURL != "http://board.local" {
		t.Errorf("BackendURL = %q, want trailing slash trimmed", c.BackendURL)
	}
	if !c.HIDEnabled {
		t.Error("HIDEnabled = false")
	}
	if c.HistoryMax != 50 {
		t.Errorf("HistoryMax = %d", c.HistoryMax)
	}
	if c.Timeout != 1500*time.Millisecond {
		t.Errorf("Timeout = %v, want 1.5s", c.Timeout)
	}
	if !c.GoogleEnabled() {
		t.Error("GoogleEnabled() = false")
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	body := "SCANBOARD_START_PAGE=food\nSCANBOARD_MQTT_TOPIC=zigbee2mqtt/button\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	// Set first so the process env wins over the file.
	t.Setenv("SCANBOARD_MQTT_TOPIC", "from/env")
	t.Setenv("SCANBOARD_START_PAGE", "")
	os.Unsetenv("SCANBOARD_START_PAGE")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.StartPage != "food" {
		t.Errorf("StartPage = %q, want food from file", c.StartPage)
	}
	if c.MQTTTopic != "from/env" {
		t.Errorf("MQTTTopic = %q, want env to win", c.MQTTTopic)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Errorf("Load() of a missing file error = %v", err)
	}
}

func TestDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", time.Second},
		{"2s", 2 * time.Second},
		{"250", 250 * time.Millisecond},
		{"soon", time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Setenv("SCANBOARD_TEST_DURATION", tt.in)
			if got := Duration("SCANBOARD_TEST_DURATION", time.Second); got != tt.want {
				t.Errorf("Duration(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
