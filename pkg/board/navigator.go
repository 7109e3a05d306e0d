package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/teslashibe/go-scanboard/internal/httpc"
	"github.com/teslashibe/go-scanboard/pkg/scan"
)

// Exit is the navigation target that leaves the board.
const Exit = "exit"

// ErrNoBaseURL is returned when fetching pages without a backend URL.
var ErrNoBaseURL = errors.New("board: backend URL not configured")

// Local builds the items of a page served in-process, such as the
// spelling board.
type Local func() []scan.Item

// Navigator resolves Navigate effects by fetching pages from the backend
// at GET {base}/pages/{name}. A missing page falls back to HomePage.
type Navigator struct {
	baseURL string
	client  *http.Client
	builder Builder
	logger  *slog.Logger

	mu       sync.RWMutex
	local    map[string]Local
	current  string
	onChange func(*Page)
}

var _ scan.Navigator = (*Navigator)(nil)

// NavigatorOption configures a Navigator.
type NavigatorOption func(*Navigator)

// WithClient sets the HTTP client. Default is httpc.Client.
func WithClient(c *http.Client) NavigatorOption {
	return func(n *Navigator) {
		n.client = c
	}
}

// WithBuilder sets the button-to-item mapping.
func WithBuilder(b Builder) NavigatorOption {
	return func(n *Navigator) {
		n.builder = b
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) NavigatorOption {
	return func(n *Navigator) {
		n.logger = logger
	}
}

// WithPageListener is called with every page the navigator loads.
func WithPageListener(f func(*Page)) NavigatorOption {
	return func(n *Navigator) {
		n.onChange = f
	}
}

// NewNavigator creates a navigator for the backend at baseURL.
func NewNavigator(baseURL string, opts ...NavigatorOption) *Navigator {
	n := &Navigator{
		baseURL: strings.TrimRight(baseURL, "/"),
		builder: DefaultBuilder(),
		logger:  slog.Default(),
		local:   make(map[string]Local),
	}
	for _, opt := range opts {
		opt(n)
	}
	n.logger = n.logger.With("component", "board.Navigator")
	return n
}

// Register serves page name from build instead of the backend.
func (n *Navigator) Register(name string, build Local) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.local[name] = build
}

// Current returns the name of the last page loaded.
func (n *Navigator) Current() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.current
}

// Fetch loads a page from the backend.
func (n *Navigator) Fetch(ctx context.Context, name string) (*Page, error) {
	if n.baseURL == "" {
		return nil, ErrNoBaseURL
	}
	var p Page
	if err := httpc.GetJSON(ctx, n.client, n.baseURL+"/pages/"+url.PathEscape(name), &p); err != nil {
		return nil, fmt.Errorf("board: fetch page %q: %w", name, err)
	}
	if p.Name == "" {
		p.Name = name
	}
	return &p, nil
}

// Open loads a page and returns its items.
func (n *Navigator) Open(ctx context.Context, name string) ([]scan.Item, error) {
	if name == "" {
		name = HomePage
	}

	n.mu.RLock()
	build, ok := n.local[name]
	n.mu.RUnlock()
	if ok {
		n.setCurrent(&Page{Name: name})
		return build(), nil
	}

	p, err := n.Fetch(ctx, name)
	var status *httpc.StatusError
	if errors.As(err, &status) && status.NotFound() && name != HomePage {
		n.logger.Warn("page not found, falling back to home", "page", name)
		return n.Open(ctx, HomePage)
	}
	if err != nil {
		return nil, err
	}

	n.setCurrent(p)
	return n.builder.Items(p), nil
}

// Navigate implements scan.Navigator.
func (n *Navigator) Navigate(ctx context.Context, target string) (scan.Outcome, error) {
	if target == Exit {
		n.setCurrent(nil)
		return scan.Outcome{Teardown: true}, nil
	}
	items, err := n.Open(ctx, target)
	if err != nil {
		return scan.Outcome{}, err
	}
	return scan.ReplaceWith(items), nil
}

func (n *Navigator) setCurrent(p *Page) {
	n.mu.Lock()
	if p == nil {
		n.current = ""
	} else {
		n.current = p.Name
	}
	f := n.onChange
	n.mu.Unlock()

	if f != nil && p != nil {
		f(p)
	}
}
