package settings

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/teslashibe/go-scanboard/internal/httpc"
)

// ErrNoBaseURL is returned when an HTTPSource has no backend URL.
var ErrNoBaseURL = errors.New("settings: backend URL not configured")

// HTTPSource reads settings from the board backend at GET {base}/api/settings.
type HTTPSource struct {
	BaseURL string
	Client  *http.Client // nil means httpc.Client
}

// NewHTTPSource creates a backend settings source.
func NewHTTPSource(baseURL string, client *http.Client) *HTTPSource {
	return &HTTPSource{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  client,
	}
}

// Load fetches and decodes the settings. Fields the backend omits keep
// their defaults.
func (h *HTTPSource) Load(ctx context.Context) (Settings, error) {
	if h.BaseURL == "" {
		return Settings{}, ErrNoBaseURL
	}

	s := Default()
	if err := httpc.GetJSON(ctx, h.Client, h.BaseURL+"/api/settings", &s); err != nil {
		return Settings{}, fmt.Errorf("settings: load from backend: %w", err)
	}
	return s, nil
}
