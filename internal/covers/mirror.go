package covers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultMirrorBaseURL hosts the 100-best-books cover set.
const DefaultMirrorBaseURL = "https://raw.githubusercontent.com/benoitvallon/100-best-books/master/static/images"

// StaticMirror checks a fixed URL pattern with HEAD requests.
type StaticMirror struct {
	baseURL    string
	httpClient *http.Client
}

// NewStaticMirror creates a mirror prober for <baseURL>/<slug>.jpg.
func NewStaticMirror(baseURL string, timeout time.Duration) *StaticMirror {
	if baseURL == "" {
		baseURL = DefaultMirrorBaseURL
	}
	return &StaticMirror{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// URLFor returns the mirror URL for a slug.
func (m *StaticMirror) URLFor(slug string) string {
	return fmt.Sprintf("%s/%s.jpg", m.baseURL, slug)
}

// Probe returns the mirror URL if the image exists. Only the status line is
// inspected; no body is read.
func (m *StaticMirror) Probe(ctx context.Context, slug string) (string, error) {
	url := m.URLFor(slug)
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("head %s: %w", url, err)
	}
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", nil
	}
	return url, nil
}
