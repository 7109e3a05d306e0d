package settings

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileSource reads settings from a YAML file such as:
//
//	scanDelay: 2500      # milliseconds, or a duration like 2.5s
//	scanLoopLimit: 3
//	wakeWordInterjection: hey
//	wakeWordName: eva
//	gridColumns: 5
//	scanningOff: false
type FileSource struct {
	Path string
}

// NewFileSource creates a YAML settings source.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// Load reads and decodes the file. Fields the file omits keep their defaults.
func (f *FileSource) Load(_ context.Context) (Settings, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return Settings{}, fmt.Errorf("settings: read %s: %w", f.Path, err)
	}

	doc := toDocument(Default())
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Settings{}, fmt.Errorf("settings: parse %s: %w", f.Path, err)
	}
	return doc.settings(), nil
}

// Save writes s to the file, creating parent directories.
func (f *FileSource) Save(s Settings) error {
	data, err := yaml.Marshal(toDocument(s.Normalize()))
	if err != nil {
		return fmt.Errorf("settings: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return fmt.Errorf("settings: create dir: %w", err)
	}
	if err := os.WriteFile(f.Path, data, 0o644); err != nil {
		return fmt.Errorf("settings: write %s: %w", f.Path, err)
	}
	return nil
}
