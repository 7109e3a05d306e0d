package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/docs/v1"
	"google.golang.org/api/option"
)

// Errors returned by the Docs exporter.
var (
	ErrNoCredentials    = errors.New("history: GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET are required")
	ErrNotAuthenticated = errors.New("history: not connected to Google")
	ErrNothingToExport  = errors.New("history: no entries to export")
)

// DocsConfig configures the Google Docs exporter.
type DocsConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string // e.g. http://localhost:8080/api/history/google/callback
	TokenPath    string // default ~/.scanboard/google_token.json
	Endpoint     string // overrides the Docs API endpoint
	Logger       *slog.Logger
}

// DocsExporter writes the spoken history into a Google Doc.
type DocsExporter struct {
	config    *oauth2.Config
	tokenPath string
	endpoint  string
	logger    *slog.Logger

	mu      sync.RWMutex
	token   *oauth2.Token
	service *docs.Service
}

// NewDocsExporter creates an exporter. A previously saved token is
// reused when present.
func NewDocsExporter(cfg DocsConfig) (*DocsExporter, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrNoCredentials
	}
	if cfg.RedirectURL == "" {
		cfg.RedirectURL = "http://localhost:8080/api/history/google/callback"
	}
	if cfg.TokenPath == "" {
		home, _ := os.UserHomeDir()
		cfg.TokenPath = filepath.Join(home, ".scanboard", "google_token.json")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	e := &DocsExporter{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/documents",
				"https://www.googleapis.com/auth/drive.file",
			},
			Endpoint: google.Endpoint,
		},
		tokenPath: cfg.TokenPath,
		endpoint:  cfg.Endpoint,
		logger:    cfg.Logger.With("component", "history.DocsExporter"),
	}

	if tok, err := e.loadToken(); err == nil {
		if err := e.SetToken(tok); err != nil {
			e.logger.Warn("saved Google token unusable", "error", err)
		}
	}
	return e, nil
}

// IsAuthenticated reports whether a usable token is loaded.
func (e *DocsExporter) IsAuthenticated() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.service != nil && e.token != nil && (e.token.Valid() || e.token.RefreshToken != "")
}

// AuthURL returns the consent URL for the caregiver to open.
func (e *DocsExporter) AuthURL(state string) string {
	return e.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// HandleCallback exchanges the authorization code and stores the token.
func (e *DocsExporter) HandleCallback(ctx context.Context, code string) error {
	tok, err := e.config.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("history: exchange code: %w", err)
	}
	if err := e.SetToken(tok); err != nil {
		return err
	}
	if err := e.saveToken(tok); err != nil {
		e.logger.Warn("failed to save Google token", "error", err)
	}
	return nil
}

// SetToken installs tok and builds the Docs service around it.
func (e *DocsExporter) SetToken(tok *oauth2.Token) error {
	if tok == nil {
		return ErrNotAuthenticated
	}

	ctx := context.Background()
	opts := []option.ClientOption{option.WithHTTPClient(e.config.Client(ctx, tok))}
	if e.endpoint != "" {
		opts = append(opts, option.WithEndpoint(e.endpoint))
	}
	service, err := docs.NewService(ctx, opts...)
	if err != nil {
		return fmt.Errorf("history: create docs service: %w", err)
	}

	e.mu.Lock()
	e.token = tok
	e.service = service
	e.mu.Unlock()
	return nil
}

// Disconnect forgets the token and removes it from disk.
func (e *DocsExporter) Disconnect() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.token = nil
	e.service = nil
	if err := os.Remove(e.tokenPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("history: remove token: %w", err)
	}
	return nil
}

// Export creates a document titled title containing entries and returns
// its ID.
func (e *DocsExporter) Export(ctx context.Context, title string, entries []Entry) (string, error) {
	e.mu.RLock()
	service := e.service
	e.mu.RUnlock()

	if service == nil {
		return "", ErrNotAuthenticated
	}
	if len(entries) == 0 {
		return "", ErrNothingToExport
	}

	created, err := service.Documents.Create(&docs.Document{Title: title}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("history: create document: %w", err)
	}

	_, err = service.Documents.BatchUpdate(created.DocumentId, &docs.BatchUpdateDocumentRequest{
		Requests: []*docs.Request{{
			InsertText: &docs.InsertTextRequest{
				Location: &docs.Location{Index: 1},
				Text:     FormatEntries(entries),
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return created.DocumentId, fmt.Errorf("history: created document but failed to add content: %w", err)
	}

	e.logger.Info("history exported", "doc_id", created.DocumentId, "entries", len(entries))
	return created.DocumentId, nil
}

// DocURL returns the edit URL of a Google Doc.
func DocURL(docID string) string {
	return fmt.Sprintf("https://docs.google.com/document/d/%s/edit", docID)
}

// FormatEntries renders entries as plain text, one line each, grouped by day.
func FormatEntries(entries []Entry) string {
	var b strings.Builder
	var day string
	for _, e := range entries {
		local := e.SpokenAt.Local()
		if d := local.Format("Monday, January 2, 2006"); d != day {
			if day != "" {
				b.WriteString("\n")
			}
			day = d
			b.WriteString(d)
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s  %s\n", local.Format("15:04"), e.Text)
	}
	return b.String()
}

func (e *DocsExporter) loadToken() (*oauth2.Token, error) {
	data, err := os.ReadFile(e.tokenPath)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

func (e *DocsExporter) saveToken(tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(e.tokenPath), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(e.tokenPath, data, 0o600)
}

// ExportTitle returns the default document title for an export at t.
func ExportTitle(t time.Time) string {
	return "Scanboard history " + t.Format("2006-01-02 15:04")
}
