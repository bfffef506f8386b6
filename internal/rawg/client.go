package rawg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"orbit/internal/services"
)

// NamedRef is the {id, name} pair RAWG uses for genres, developers and publishers.
type NamedRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Game is a single search hit or a detail payload. Detail-only fields are
// empty on search results.
type Game struct {
	ID               int64      `json:"id"`
	Slug             string     `json:"slug"`
	Name             string     `json:"name"`
	Released         string     `json:"released"`
	BackgroundImage  string     `json:"background_image"`
	AdditionalImage  string     `json:"background_image_additional"`
	Rating           float64    `json:"rating"`
	RatingsCount     int64      `json:"ratings_count"`
	Metacritic       int        `json:"metacritic"`
	Genres           []NamedRef `json:"genres"`
	Description      string     `json:"description"`
	DescriptionRaw   string     `json:"description_raw"`
	Developers       []NamedRef `json:"developers"`
	Publishers       []NamedRef `json:"publishers"`
	Website          string     `json:"website"`
	ShortScreenshots []Image    `json:"short_screenshots"`
}

// SearchResponse models the paginated /games response.
type SearchResponse struct {
	Count   int    `json:"count"`
	Next    string `json:"next"`
	Results []Game `json:"results"`
}

// Image is one screenshot entry.
type Image struct {
	ID    int64  `json:"id"`
	Image string `json:"image"`
}

type screenshotsResponse struct {
	Results []Image `json:"results"`
}

// Movie is one trailer entry. Data maps a quality label ("480", "max") to a URL.
type Movie struct {
	ID      int64             `json:"id"`
	Name    string            `json:"name"`
	Preview string            `json:"preview"`
	Data    map[string]string `json:"data"`
}

// BestURL returns the highest quality trailer URL available.
func (m Movie) BestURL() string {
	for _, key := range []string{"max", "480"} {
		if u := strings.TrimSpace(m.Data[key]); u != "" {
			return u
		}
	}
	return ""
}

type moviesResponse struct {
	Results []Movie `json:"results"`
}

// Searcher defines the RAWG operations the matcher depends on.
type Searcher interface {
	SearchGames(ctx context.Context, query string, pageSize int) (*SearchResponse, error)
	GetGame(ctx context.Context, id int64) (*Game, error)
	GetScreenshots(ctx context.Context, id int64) ([]Image, error)
	GetMovies(ctx context.Context, id int64) ([]Movie, error)
}

// Client provides access to the RAWG API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

var _ Searcher = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// New creates a RAWG client.
func New(apiKey, baseURL string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "rawg", "new client", "api key required", nil)
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "rawg", "new client", "base url required", nil)
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// SearchGames searches RAWG for the supplied title and returns up to pageSize hits.
func (c *Client) SearchGames(ctx context.Context, query string, pageSize int) (*SearchResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}
	params := url.Values{}
	params.Set("search", query)
	if pageSize > 0 {
		params.Set("page_size", strconv.Itoa(pageSize))
	}
	var payload SearchResponse
	if err := c.get(ctx, "/games", params, "search", &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// GetGame fetches the full detail record for a game.
func (c *Client) GetGame(ctx context.Context, id int64) (*Game, error) {
	if id <= 0 {
		return nil, errors.New("game id must be positive")
	}
	var payload Game
	if err := c.get(ctx, fmt.Sprintf("/games/%d", id), nil, "game detail", &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// GetScreenshots fetches the screenshot list for a game.
func (c *Client) GetScreenshots(ctx context.Context, id int64) ([]Image, error) {
	if id <= 0 {
		return nil, errors.New("game id must be positive")
	}
	var payload screenshotsResponse
	if err := c.get(ctx, fmt.Sprintf("/games/%d/screenshots", id), nil, "screenshots", &payload); err != nil {
		return nil, err
	}
	return payload.Results, nil
}

// GetMovies fetches the trailer list for a game.
func (c *Client) GetMovies(ctx context.Context, id int64) ([]Movie, error) {
	if id <= 0 {
		return nil, errors.New("game id must be positive")
	}
	var payload moviesResponse
	if err := c.get(ctx, fmt.Sprintf("/games/%d/movies", id), nil, "movies", &payload); err != nil {
		return nil, err
	}
	return payload.Results, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, what string, out any) error {
	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("parse rawg url: %w", err)
	}
	if params == nil {
		params = url.Values{}
	}
	params.Set("key", c.apiKey)
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return services.Wrap(services.ErrTransient, "rawg", what, fmt.Sprintf("execute request (latency=%v)", latency), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return services.Wrap(services.ErrNotFound, "rawg", what, fmt.Sprintf("returned %d (latency=%v)", resp.StatusCode, latency), nil)
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return services.Wrap(services.ErrConfiguration, "rawg", what, fmt.Sprintf("returned %d, check rawg.api_key (latency=%v)", resp.StatusCode, latency), nil)
	case resp.StatusCode != http.StatusOK:
		return services.Wrap(services.ErrExternal, "rawg", what, fmt.Sprintf("returned %d (latency=%v)", resp.StatusCode, latency), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrExternal, "rawg", what, "decode response", err)
	}
	return nil
}
