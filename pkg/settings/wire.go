package settings

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// document is the persisted shape. The backend stores numbers as numbers
// or strings depending on which form saved them, so every field tolerates
// both.
type document struct {
	ScanDelay            millis   `json:"scanDelay" yaml:"scanDelay"`
	ScanLoopLimit        flexInt  `json:"scanLoopLimit" yaml:"scanLoopLimit"`
	WakeWordInterjection string   `json:"wakeWordInterjection" yaml:"wakeWordInterjection"`
	WakeWordName         string   `json:"wakeWordName" yaml:"wakeWordName"`
	GridColumns          flexInt  `json:"gridColumns" yaml:"gridColumns"`
	ScanningOff          flexBool `json:"ScanningOff" yaml:"scanningOff"`
}

func toDocument(s Settings) document {
	return document{
		ScanDelay:            millis(s.ScanDelay),
		ScanLoopLimit:        flexInt(s.ScanLoopLimit),
		WakeWordInterjection: s.WakeWordInterjection,
		WakeWordName:         s.WakeWordName,
		GridColumns:          flexInt(s.GridColumns),
		ScanningOff:          flexBool(s.ScanningOff),
	}
}

func (d document) settings() Settings {
	return Settings{
		ScanDelay:            time.Duration(d.ScanDelay),
		ScanLoopLimit:        int(d.ScanLoopLimit),
		WakeWordInterjection: strings.TrimSpace(d.WakeWordInterjection),
		WakeWordName:         strings.TrimSpace(d.WakeWordName),
		GridColumns:          int(d.GridColumns),
		ScanningOff:          bool(d.ScanningOff),
	}.Normalize()
}

// MarshalJSON writes ScanDelay as milliseconds, matching the backend.
func (s Settings) MarshalJSON() ([]byte, error) {
	return json.Marshal(toDocument(s))
}

// UnmarshalJSON reads the backend shape over the current values.
func (s *Settings) UnmarshalJSON(data []byte) error {
	doc := toDocument(*s)
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	*s = doc.settings()
	return nil
}

// scalar extracts the text of a JSON number, string or bool.
func scalar(data []byte) (string, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return "", err
	}
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(x), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(x), nil
	default:
		return "", fmt.Errorf("settings: unexpected value %s", data)
	}
}

type flexInt int

func (f *flexInt) set(text string) error {
	if text == "" {
		return nil
	}
	n, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return fmt.Errorf("settings: invalid number %q", text)
	}
	*f = flexInt(n)
	return nil
}

func (f *flexInt) UnmarshalJSON(data []byte) error {
	text, err := scalar(data)
	if err != nil {
		return err
	}
	return f.set(text)
}

func (f *flexInt) UnmarshalYAML(node *yaml.Node) error {
	return f.set(strings.TrimSpace(node.Value))
}

type flexBool bool

func (f *flexBool) set(text string) error {
	switch strings.ToLower(text) {
	case "":
		return nil
	case "true", "1", "yes", "on":
		*f = true
	case "false", "0", "no", "off":
		*f = false
	default:
		return fmt.Errorf("settings: invalid bool %q", text)
	}
	return nil
}

func (f *flexBool) UnmarshalJSON(data []byte) error {
	text, err := scalar(data)
	if err != nil {
		return err
	}
	return f.set(text)
}

func (f *flexBool) UnmarshalYAML(node *yaml.Node) error {
	return f.set(strings.TrimSpace(node.Value))
}

// millis is a duration stored as a count of milliseconds. YAML files may
// also use Go duration syntax ("3.5s").
type millis time.Duration

func (m millis) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(m).Milliseconds())
}

func (m millis) MarshalYAML() (any, error) {
	return time.Duration(m).Milliseconds(), nil
}

func (m *millis) set(text string) error {
	if text == "" {
		return nil
	}
	if n, err := strconv.ParseFloat(text, 64); err == nil {
		*m = millis(time.Duration(n * float64(time.Millisecond)))
		return nil
	}
	d, err := time.ParseDuration(text)
	if err != nil {
		return fmt.Errorf("settings: invalid delay %q", text)
	}
	*m = millis(d)
	return nil
}

func (m *millis) UnmarshalJSON(data []byte) error {
	text, err := scalar(data)
	if err != nil {
		return err
	}
	return m.set(text)
}

func (m *millis) UnmarshalYAML(node *yaml.Node) error {
	return m.set(strings.TrimSpace(node.Value))
}
