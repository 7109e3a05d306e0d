// Package history keeps the phrases a user has spoken through the
// announcer, and can export them to a Google Doc for caregivers.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxEntries bounds the stored history; the oldest entries are
// dropped first.
const DefaultMaxEntries = 1000

// ErrEmptyText is returned when recording blank text.
var ErrEmptyText = errors.New("history: text is empty")

// Entry is one spoken phrase.
type Entry struct {
	ID       uuid.UUID `json:"id"`
	Text     string    `json:"text"`
	Channel  string    `json:"channel"`
	SpokenAt time.Time `json:"spoken_at"`
}

// Store persists history entries to a JSON file.
type Store struct {
	path    string
	max     int
	now     func() time.Time
	entries []Entry
	mu      sync.RWMutex
}

// storeData is the JSON structure for the store file.
type storeData struct {
	Version   int     `json:"version"`
	UpdatedAt string  `json:"updated_at"`
	Entries   []Entry `json:"entries"`
}

const currentVersion = 1

// NewStore opens the store at path. If the file doesn't exist, it will be
// created on the first Record. An empty path keeps history in memory only.
func NewStore(path string, maxEntries int) (*Store, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	s := &Store{
		path: path,
		max:  maxEntries,
		now:  time.Now,
	}
	if path == "" {
		return s, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("history: create directory: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		if err := s.load(); err != nil {
			return nil, fmt.Errorf("history: load store: %w", err)
		}
	}
	return s, nil
}

// NewDefaultStore opens the store at ~/.scanboard/history.json.
func NewDefaultStore() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("history: home directory: %w", err)
	}
	return NewStore(filepath.Join(home, ".scanboard", "history.json"), DefaultMaxEntries)
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	var stored storeData
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("parse JSON: %w", err)
	}
	s.entries = stored.Entries
	s.trim()
	return nil
}

// save writes the store to disk. Caller holds the write lock.
func (s *Store) save() error {
	if s.path == "" {
		return nil
	}

	data, err := json.MarshalIndent(storeData{
		Version:   currentVersion,
		UpdatedAt: s.now().Format(time.RFC3339),
		Entries:   s.entries,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("history: marshal: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("history: write temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("history: rename temp file: %w", err)
	}
	return nil
}

func (s *Store) trim() {
	if over := len(s.entries) - s.max; over > 0 {
		s.entries = append([]Entry(nil), s.entries[over:]...)
	}
}

// Record appends a spoken phrase. It satisfies the announcer's history hook.
func (s *Store) Record(_ context.Context, text, channel string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyText
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, Entry{
		ID:       uuid.New(),
		Text:     text,
		Channel:  channel,
		SpokenAt: s.now(),
	})
	s.trim()
	return s.save()
}

// List returns every entry, oldest first.
func (s *Store) List() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Entry(nil), s.entries...)
}

// Recent returns up to n entries, newest first.
func (s *Store) Recent(n int) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || n > len(s.entries) {
		n = len(s.entries)
	}
	out := make([]Entry, 0, n)
	for i := len(s.entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.entries[i])
	}
	return out
}

// Count returns the number of stored entries.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Clear removes every entry.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	return s.save()
}
