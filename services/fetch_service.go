package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
)

// Fetch limits. Annotation page fetches are best-effort enrichment, so
// the client is tightly bounded.
const (
	fetchMaxBodyBytes = 2 << 20 // 2MB
	fetchMaxRedirects = 5
	fetchUserAgent    = "discern-research/1.0"
)

// PageFetcher retrieves a web result's page and extracts the readable
// article text, discarding navigation, ads and boilerplate.
type PageFetcher struct {
	client *http.Client
}

// NewPageFetcher builds a fetcher with its own bounded client.
func NewPageFetcher(timeout time.Duration) *PageFetcher {
	return &PageFetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= fetchMaxRedirects {
					return fmt.Errorf("too many redirects (max %d)", fetchMaxRedirects)
				}
				return nil
			},
		},
	}
}

// FetchArticle implements ArticleFetcher.
func (f *PageFetcher) FetchArticle(ctx context.Context, link string) (string, string, error) {
	pageURL, err := url.Parse(link)
	if err != nil {
		return "", "", fmt.Errorf("invalid url %q: %w", link, err)
	}
	if pageURL.Scheme != "http" && pageURL.Scheme != "https" {
		return "", "", fmt.Errorf("unsupported url scheme %q", pageURL.Scheme)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL.String(), nil)
	if err != nil {
		return "", "", fmt.Errorf("failed to create fetch request: %w", err)
	}
	httpReq.Header.Set("User-Agent", fetchUserAgent)

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return "", "", fmt.Errorf("failed to fetch %s: %w", link, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("fetch of %s returned status %d", link, resp.StatusCode)
	}

	body := io.LimitReader(resp.Body, fetchMaxBodyBytes)
	article, err := readability.FromReader(body, pageURL)
	if err != nil {
		return "", "", fmt.Errorf("could not extract readable content from %s: %w", link, err)
	}

	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return "", "", fmt.Errorf("no readable content found at %s", link)
	}
	return article.Title, text, nil
}
