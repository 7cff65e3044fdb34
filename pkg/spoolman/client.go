package spoolman

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/spoolbridge/spoolbridge-go/pkg/spool"
)

// Defaults for the Spoolman API client.
const (
	// DefaultBaseURL is the default Spoolman endpoint.
	DefaultBaseURL = "http://localhost:7912"

	// DefaultTimeout bounds one API request.
	DefaultTimeout = 10 * time.Second
)

// Client errors.
var (
	// ErrSpoolNotFound indicates the spool ID does not exist in Spoolman.
	ErrSpoolNotFound = errors.New("spoolman: spool not found")

	// ErrSessionClosed indicates an update was attempted on a closed session.
	ErrSessionClosed = errors.New("spoolman: session closed")
)

// ClientConfig configures a Spoolman API client.
type ClientConfig struct {
	// BaseURL is the Spoolman endpoint (default: http://localhost:7912).
	BaseURL string

	// Timeout bounds each API request (default: 10s).
	Timeout time.Duration

	// HTTPClient overrides the underlying HTTP client. Mostly for tests.
	HTTPClient *http.Client

	// Logger receives client diagnostics. Defaults to slog.Default.
	Logger *slog.Logger
}

// Client talks to a Spoolman server. It implements spool.SessionFactory.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a Spoolman client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if !strings.HasPrefix(cfg.BaseURL, "http://") && !strings.HasPrefix(cfg.BaseURL, "https://") {
		return nil, fmt.Errorf("spoolman: base URL must be http(s): %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    cfg.HTTPClient,
		logger:  cfg.Logger,
	}, nil
}

// NewSession opens a message-scoped session.
func (c *Client) NewSession(_ context.Context) (spool.Session, error) {
	return &Session{client: c}, nil
}

// Session is one message's handle to the Spoolman API.
type Session struct {
	client *Client
	closed bool
}

// UpdateRemainingWeight sets the remaining weight for a spool.
func (s *Session) UpdateRemainingWeight(ctx context.Context, spoolID int, grams float64) error {
	if s.closed {
		return ErrSessionClosed
	}

	body, err := json.Marshal(map[string]float64{"remaining_weight": grams})
	if err != nil {
		return fmt.Errorf("spoolman: encode update: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/spool/%d", s.client.baseURL, spoolID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("spoolman: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.http.Do(req)
	if err != nil {
		return fmt.Errorf("spoolman: update spool %d: %w", spoolID, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: id %d", ErrSpoolNotFound, spoolID)
	default:
		// Include a bounded amount of the error body for diagnostics.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("spoolman: update spool %d: status %d: %s",
			spoolID, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
}

// Close releases the session. Further updates fail with ErrSessionClosed.
func (s *Session) Close() error {
	s.closed = true
	return nil
}

// Compile-time interface satisfaction checks.
var (
	_ spool.SessionFactory = (*Client)(nil)
	_ spool.Session        = (*Session)(nil)
)
