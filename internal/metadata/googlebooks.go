// Package metadata talks to external book search APIs.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultGoogleBooksBaseURL = "https://www.googleapis.com/books/v1"
	defaultMaxResults         = 5
	userAgent                 = "Bookshelf/1.0 (+https://github.com/mrlokans/bookshelf)"
)

// DefaultBurst lets a full catalog page (100 items) search at once.
const DefaultBurst = 100

// ImageLinks holds the cover variants returned for a volume.
type ImageLinks struct {
	SmallThumbnail string `json:"smallThumbnail"`
	Thumbnail      string `json:"thumbnail"`
	Small          string `json:"small"`
	Medium         string `json:"medium"`
	Large          string `json:"large"`
	ExtraLarge     string `json:"extraLarge"`
}

// Best returns the largest image available, or "".
func (l *ImageLinks) Best() string {
	if l == nil {
		return ""
	}
	for _, candidate := range []string{l.ExtraLarge, l.Large, l.Medium, l.Thumbnail, l.SmallThumbnail} {
		if candidate != "" {
			return candidate
		}
	}
	return ""
}

type volumeInfo struct {
	Title      string      `json:"title"`
	Authors    []string    `json:"authors"`
	ImageLinks *ImageLinks `json:"imageLinks"`
}

type volume struct {
	ID         string     `json:"id"`
	VolumeInfo volumeInfo `json:"volumeInfo"`
}

type volumesResponse struct {
	TotalItems int      `json:"totalItems"`
	Items      []volume `json:"items"`
}

// GoogleBooksClient searches the Google Books volumes API for cover images.
type GoogleBooksClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	maxResults int
	limiter    *rate.Limiter
}

// GoogleBooksConfig configures the client. Zero values fall back to defaults.
type GoogleBooksConfig struct {
	BaseURL           string
	APIKey            string
	RequestsPerSecond int
	Burst             int
	MaxResults        int
	Timeout           time.Duration
}

// NewGoogleBooksClient creates a rate-limited Google Books client.
func NewGoogleBooksClient(cfg GoogleBooksConfig) *GoogleBooksClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultGoogleBooksBaseURL
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Every(time.Second / time.Duration(cfg.RequestsPerSecond))
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = DefaultBurst
	}

	return &GoogleBooksClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     cfg.APIKey,
		maxResults: maxResults,
		limiter:    rate.NewLimiter(limit, burst),
	}
}

// BuildQuery returns the search expression for a title and an optional
// author.
func BuildQuery(title, author string) string {
	q := "intitle:" + strings.TrimSpace(title)
	if author = strings.TrimSpace(author); author != "" {
		q += "+inauthor:" + author
	}
	return q
}

// SearchCover waits for the rate limiter, then looks the cover up.
func (c *GoogleBooksClient) SearchCover(ctx context.Context, title, author string) (string, error) {
	if strings.TrimSpace(title) == "" {
		return "", fmt.Errorf("title is required")
	}
	if err := c.Wait(ctx); err != nil {
		return "", err
	}
	return c.LookupCover(ctx, title, author)
}

// Wait blocks until the rate limiter admits one request.
func (c *GoogleBooksClient) Wait(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	return nil
}

// LookupCover returns the best image of the first volume that has one,
// without waiting for the rate limiter; callers take a token with Wait
// first. No match is not an error: the URL is empty.
func (c *GoogleBooksClient) LookupCover(ctx context.Context, title, author string) (string, error) {
	if strings.TrimSpace(title) == "" {
		return "", fmt.Errorf("title is required")
	}

	volumes, err := c.search(ctx, BuildQuery(title, author))
	if err != nil {
		return "", err
	}

	for _, v := range volumes {
		if best := v.VolumeInfo.ImageLinks.Best(); best != "" {
			return best, nil
		}
	}
	return "", nil
}

func (c *GoogleBooksClient) search(ctx context.Context, query string) ([]volume, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("maxResults", strconv.Itoa(c.maxResults))
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}

	searchURL := fmt.Sprintf("%s/volumes?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search volumes: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result volumesResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	return result.Items, nil
}
