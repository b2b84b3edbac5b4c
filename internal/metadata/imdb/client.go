// Package imdb is a client for the IMDb API hosted on RapidAPI. The
// resolver uses it as a search fallback when TMDB comes up empty and
// for expanding ISO country codes into names.
package imdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/showsift/showsift/internal/config"
)

var (
	ErrAPIKeyMissing = errors.New("RapidAPI key is not configured")
	ErrNotFound      = errors.New("not found on IMDb")
	ErrAPIError      = errors.New("IMDb API error")
	ErrRateLimited   = errors.New("IMDb API rate limited")
)

// preferredTypes are the autocomplete result types picked before any
// other, in the order the list is scanned.
var preferredTypes = map[string]bool{
	"tvseries":     true,
	"tvminiseries": true,
	"tvmovie":      true,
}

// Client is an IMDb RapidAPI client.
type Client struct {
	httpClient *http.Client
	config     config.IMDBConfig
	logger     zerolog.Logger

	countriesMu sync.Mutex
	countries   map[string]string
}

// NewClient creates a new IMDb client.
func NewClient(cfg config.IMDBConfig, logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		config: cfg,
		logger: logger.With().Str("component", "imdb").Logger(),
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "imdb"
}

// IsConfigured returns true if the RapidAPI key is set.
func (c *Client) IsConfigured() bool {
	return c.config.APIKey != ""
}

// Search runs an autocomplete query and picks the first TV-shaped
// result, falling back to the first result of any type. Returns
// ErrNotFound when the list is empty.
func (c *Client) Search(ctx context.Context, query string) (*SearchResult, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	params := url.Values{}
	params.Set("query", query)

	var items []AutocompleteItem
	if err := c.doRequest(ctx, "/api/imdb/autocomplete", params, &items); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		c.logger.Debug().Str("query", query).Msg("Autocomplete returned nothing")
		return nil, ErrNotFound
	}

	pick := items[0]
	for _, item := range items {
		if preferredTypes[strings.ToLower(item.Type)] {
			pick = item
			break
		}
	}

	c.logger.Debug().
		Str("query", query).
		Str("imdbId", pick.ID).
		Str("type", pick.Type).
		Msg("Autocomplete match")

	return &SearchResult{
		IMDbID: pick.ID,
		Title:  pick.PrimaryTitle,
		Year:   pick.StartYear,
		Type:   pick.Type,
	}, nil
}

// GetTitle fetches the detailed record for an IMDb id.
func (c *Client) GetTitle(ctx context.Context, imdbID string) (*Title, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}
	if imdbID == "" {
		return nil, ErrNotFound
	}

	var title Title
	if err := c.doRequest(ctx, "/api/imdb/"+url.PathEscape(imdbID), nil, &title); err != nil {
		return nil, err
	}
	if title.ID == "" {
		return nil, ErrNotFound
	}
	return &title, nil
}

// Countries returns the ISO 3166-1 code to country name mapping,
// fetched once and cached for the client's lifetime.
func (c *Client) Countries(ctx context.Context) (map[string]string, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	c.countriesMu.Lock()
	defer c.countriesMu.Unlock()

	if c.countries != nil {
		return c.countries, nil
	}

	var list []country
	if err := c.doRequest(ctx, "/api/imdb/countries", nil, &list); err != nil {
		return nil, err
	}

	mapping := make(map[string]string, len(list))
	for _, entry := range list {
		if entry.ISO31661 != "" && entry.Name != "" {
			mapping[entry.ISO31661] = entry.Name
		}
	}
	c.countries = mapping

	c.logger.Debug().Int("countries", len(mapping)).Msg("Loaded country mapping")
	return mapping, nil
}

// CountryName expands an ISO code to a country name, returning the
// code itself when the mapping is unavailable.
func (c *Client) CountryName(ctx context.Context, code string) string {
	mapping, err := c.Countries(ctx)
	if err != nil {
		return code
	}
	if name, ok := mapping[code]; ok {
		return name
	}
	return code
}

// doRequest performs an authenticated GET against the RapidAPI host
// and decodes the JSON response.
func (c *Client) doRequest(ctx context.Context, path string, params url.Values, result any) error {
	reqURL := c.config.BaseURL + path
	if len(params) > 0 {
		reqURL = fmt.Sprintf("%s?%s", reqURL, params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-rapidapi-host", c.config.Host)
	req.Header.Set("x-rapidapi-key", c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		switch resp.StatusCode {
		case http.StatusNotFound:
			return ErrNotFound
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: invalid RapidAPI key", ErrAPIError)
		case http.StatusTooManyRequests:
			return ErrRateLimited
		default:
			return fmt.Errorf("%w: status %d", ErrAPIError, resp.StatusCode)
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
