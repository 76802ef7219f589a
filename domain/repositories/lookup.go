package repositories

import "context"

// WeatherReport holds the structured fields used to format a weather reply.
type WeatherReport struct {
	Location     string  `json:"location"`
	Country      string  `json:"country"`
	TemperatureC float64 `json:"temperature_c"`
	Condition    string  `json:"condition"`
}

// WeatherLookup abstracts a current-conditions weather service.
type WeatherLookup interface {
	Current(ctx context.Context, apiKey string, city string) (WeatherReport, error)
}

// Article is one news headline.
type Article struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
	Source      string `json:"source"`
}

// NewsLookup abstracts a top-headlines news service. A nil article slice
// with a nil error means the capability had nothing to return.
type NewsLookup interface {
	TopHeadlines(ctx context.Context, apiKey string, country string, category string, pageSize int) ([]Article, error)
}
