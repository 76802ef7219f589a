package news

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/voxa-ai/voxa/domain/repositories"
)

const defaultBaseURL = "https://newsapi.org/v2"

// NewsAPI implements NewsLookup against newsapi.org.
type NewsAPI struct {
	baseURL string
	client  *http.Client
}

var _ repositories.NewsLookup = (*NewsAPI)(nil)

// NewNewsAPI creates a newsapi.org-backed lookup. An empty baseURL uses the
// production endpoint.
func NewNewsAPI(baseURL string) *NewsAPI {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &NewsAPI{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type headlinesResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Articles []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		Source      struct {
			Name string `json:"name"`
		} `json:"source"`
	} `json:"articles"`
}

// TopHeadlines fetches the current top headlines for a country and category.
func (n *NewsAPI) TopHeadlines(ctx context.Context, apiKey string, country string, category string, pageSize int) ([]repositories.Article, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("news api key is required")
	}
	if country == "" {
		country = "us"
	}
	if pageSize <= 0 {
		pageSize = 5
	}

	query := url.Values{}
	query.Set("apiKey", apiKey)
	query.Set("country", country)
	query.Set("pageSize", fmt.Sprintf("%d", pageSize))
	if category != "" {
		query.Set("category", category)
	}
	endpoint := fmt.Sprintf("%s/top-headlines?%s", n.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create news request: %w", err)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("news request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("news api key was rejected")
	}

	var body headlinesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode news response: %w", err)
	}
	if body.Status != "ok" {
		if body.Message != "" {
			return nil, fmt.Errorf("news api error: %s", body.Message)
		}
		return nil, fmt.Errorf("news api returned status %q", body.Status)
	}

	articles := make([]repositories.Article, 0, len(body.Articles))
	for _, a := range body.Articles {
		articles = append(articles, repositories.Article{
			Title:       a.Title,
			Description: a.Description,
			URL:         a.URL,
			Source:      a.Source.Name,
		})
	}
	return articles, nil
}
