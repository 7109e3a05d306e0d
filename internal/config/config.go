// Package config loads scanboard's process configuration from the
// environment, with an optional .env file underneath.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Defaults.
const (
	DefaultAddr      = ":8080"
	DefaultPage      = "home"
	DefaultLogLevel  = "info"
	DefaultMQTTTopic = "scanboard/switch"
	DefaultChatModel = "gpt-4o-mini"
)

// Config is the process configuration for cmd/scanboard.
type Config struct {
	// Web surface
	Addr      string
	StaticDir string
	Debug     bool
	LogLevel  string

	// Board backend: pages, settings, /llm and /play-audio
	BackendURL string
	APIKey     string
	StartPage  string

	// Optional OpenAI-compatible chat endpoint tried before the backend
	ChatURL   string
	ChatKey   string
	ChatModel string

	// Local state
	SettingsPath string
	HistoryPath  string
	HistoryMax   int

	// Speech
	FallbackTTSURL string // secondary /play-audio server
	LocalAudio     bool   // play announcements through the local player
	LocalHighlight bool   // speak highlights with the local TTS command

	// Input adapters
	HIDEnabled    bool
	HIDPath       string
	MQTTBroker    string
	MQTTTopic     string
	RecognizerURL string

	// Google Docs export
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	GoogleTokenPath    string

	Timeout time.Duration
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	dir := StateDir()
	return Config{
		Addr:            DefaultAddr,
		LogLevel:        DefaultLogLevel,
		StartPage:       DefaultPage,
		ChatModel:       DefaultChatModel,
		SettingsPath:    filepath.Join(dir, "settings.yaml"),
		HistoryPath:     filepath.Join(dir, "history.json"),
		HistoryMax:      500,
		GoogleTokenPath: filepath.Join(dir, "google-token.json"),
		MQTTTopic:       DefaultMQTTTopic,
		Timeout:         30 * time.Second,
	}
}

// Load reads envFile (when it exists) into the environment and builds a
// Config from SCANBOARD_* variables. Variables already set in the
// environment win over the file. An empty envFile means ".env".
func Load(envFile string) (Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}
	return FromEnv(), nil
}

// FromEnv builds a Config from the current environment only.
func FromEnv() Config {
	c := Default()
	c.Addr = String("SCANBOARD_ADDR", c.Addr)
	c.StaticDir = String("SCANBOARD_STATIC_DIR", c.StaticDir)
	c.Debug = Bool("SCANBOARD_DEBUG", c.Debug)
	c.LogLevel = String("LOG_LEVEL", c.LogLevel)

	c.BackendURL = strings.TrimRight(String("SCANBOARD_BACKEND_URL", c.BackendURL), "/")
	c.APIKey = String("SCANBOARD_API_KEY", c.APIKey)
	c.StartPage = String("SCANBOARD_START_PAGE", c.StartPage)

	c.ChatURL = String("SCANBOARD_CHAT_URL", c.ChatURL)
	c.ChatKey = String("OPENAI_API_KEY", c.ChatKey)
	c.ChatModel = String("SCANBOARD_CHAT_MODEL", c.ChatModel)

	c.SettingsPath = String("SCANBOARD_SETTINGS", c.SettingsPath)
	c.HistoryPath = String("SCANBOARD_HISTORY", c.HistoryPath)
	c.HistoryMax = Int("SCANBOARD_HISTORY_MAX", c.HistoryMax)

	c.FallbackTTSURL = strings.TrimRight(String("SCANBOARD_TTS_FALLBACK_URL", c.FallbackTTSURL), "/")
	c.LocalAudio = Bool("SCANBOARD_LOCAL_AUDIO", c.LocalAudio)
	c.LocalHighlight = Bool("SCANBOARD_LOCAL_HIGHLIGHT", c.LocalHighlight)

	c.HIDEnabled = Bool("SCANBOARD_HID", c.HIDEnabled)
	c.HIDPath = String("SCANBOARD_HID_PATH", c.HIDPath)
	c.MQTTBroker = String("SCANBOARD_MQTT_BROKER", c.MQTTBroker)
	c.MQTTTopic = String("SCANBOARD_MQTT_TOPIC", c.MQTTTopic)
	c.RecognizerURL = String("SCANBOARD_RECOGNIZER_URL", c.RecognizerURL)

	c.GoogleClientID = String("GOOGLE_CLIENT_ID", c.GoogleClientID)
	c.GoogleClientSecret = String("GOOGLE_CLIENT_SECRET", c.GoogleClientSecret)
	c.GoogleRedirectURL = String("GOOGLE_REDIRECT_URL", c.GoogleRedirectURL)
	c.GoogleTokenPath = String("SCANBOARD_GOOGLE_TOKEN", c.GoogleTokenPath)

	c.Timeout = Duration("SCANBOARD_TIMEOUT", c.Timeout)
	return c
}

// Validate reports configuration that cannot run.
func (c Config) Validate() error {
	if c.BackendURL == "" {
		return errors.New("config: SCANBOARD_BACKEND_URL is required")
	}
	if c.HistoryMax < 0 {
		return errors.New("config: SCANBOARD_HISTORY_MAX must not be negative")
	}
	return nil
}

// GoogleEnabled reports whether Docs export credentials are present.
func (c Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// StateDir returns ~/.scanboard, or .scanboard when there is no home.
func StateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".scanboard"
	}
	return filepath.Join(home, ".scanboard")
}

// String returns the env var key, or def when unset or empty.
func String(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// Int returns the env var key parsed as an int, or def.
func Int(key string, def int) int {
	if n, err := strconv.Atoi(String(key, "")); err == nil {
		return n
	}
	return def
}

// Bool returns the env var key parsed as a bool, or def.
func Bool(key string, def bool) bool {
	if b, err := strconv.ParseBool(String(key, "")); err == nil {
		return b
	}
	return def
}

// Duration accepts Go durations ("2s") or bare milliseconds ("2000").
func Duration(key string, def time.Duration) time.Duration {
	v := String(key, "")
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return def
}
