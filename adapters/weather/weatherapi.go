package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/voxa-ai/voxa/domain/repositories"
)

const defaultBaseURL = "https://api.weatherapi.com/v1"

// WeatherAPI implements WeatherLookup against weatherapi.com.
type WeatherAPI struct {
	baseURL string
	client  *http.Client
}

var _ repositories.WeatherLookup = (*WeatherAPI)(nil)

// NewWeatherAPI creates a weatherapi.com-backed lookup. An empty baseURL uses
// the production endpoint.
func NewWeatherAPI(baseURL string) *WeatherAPI {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &WeatherAPI{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type currentResponse struct {
	Location struct {
		Name    string `json:"name"`
		Country string `json:"country"`
	} `json:"location"`
	Current struct {
		TempC     float64 `json:"temp_c"`
		Condition struct {
			Text string `json:"text"`
		} `json:"condition"`
	} `json:"current"`
}

// Current fetches current conditions for a city.
func (w *WeatherAPI) Current(ctx context.Context, apiKey string, city string) (repositories.WeatherReport, error) {
	var report repositories.WeatherReport

	if apiKey == "" {
		return report, fmt.Errorf("weather api key is required")
	}
	city = strings.TrimSpace(city)
	if city == "" {
		return report, fmt.Errorf("city is required")
	}

	endpoint := fmt.Sprintf("%s/current.json?key=%s&q=%s&aqi=no",
		w.baseURL, url.QueryEscape(apiKey), url.QueryEscape(city))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return report, fmt.Errorf("failed to create weather request: %w", err)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return report, fmt.Errorf("weather request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return report, fmt.Errorf("weather api key was rejected")
	}
	if resp.StatusCode != http.StatusOK {
		return report, fmt.Errorf("weather api returned status %d", resp.StatusCode)
	}

	var body currentResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return report, fmt.Errorf("failed to decode weather response: %w", err)
	}

	report = repositories.WeatherReport{
		Location:     body.Location.Name,
		Country:      body.Location.Country,
		TemperatureC: body.Current.TempC,
		Condition:    body.Current.Condition.Text,
	}
	return report, nil
}
