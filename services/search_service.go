package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/parishlabs/discern/models"
)

// SearchService returns ranked web results for a query. Implementations
// are external collaborators; the research flow only depends on this
// interface.
type SearchService interface {
	Search(ctx context.Context, query string) ([]models.SearchResult, error)
}

// serpSearchService calls a SerpAPI-compatible JSON endpoint.
type serpSearchService struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewSerpSearchService creates the web search adapter. baseURL is the
// full search endpoint, e.g. https://serpapi.com/search.json.
func NewSerpSearchService(client *http.Client, baseURL, apiKey string) SearchService {
	return &serpSearchService{
		httpClient: client,
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

// serpResponse is the slice of the SerpAPI payload we consume.
type serpResponse struct {
	OrganicResults []struct {
		Position      int    `json:"position"`
		Title         string `json:"title"`
		Link          string `json:"link"`
		DisplayedLink string `json:"displayed_link"`
		Snippet       string `json:"snippet"`
	} `json:"organic_results"`
}

func (s *serpSearchService) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	endpoint, err := url.Parse(s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid search endpoint %q: %w", s.baseURL, err)
	}
	params := endpoint.Query()
	params.Set("q", query)
	params.Set("engine", "google")
	if s.apiKey != "" {
		params.Set("api_key", s.apiKey)
	}
	endpoint.RawQuery = params.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call search api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("search api returned non-200 status: %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var payload serpResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	results := make([]models.SearchResult, 0, len(payload.OrganicResults))
	for i, r := range payload.OrganicResults {
		position := r.Position
		if position == 0 {
			position = i + 1
		}
		results = append(results, models.SearchResult{
			ID:            fmt.Sprintf("web-%d", position),
			Title:         r.Title,
			Snippet:       r.Snippet,
			Type:          models.ResultTypeWeb,
			Link:          r.Link,
			DisplayedLink: r.DisplayedLink,
			Position:      position,
		})
	}
	return results, nil
}
