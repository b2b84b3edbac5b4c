package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/avast/retry-go"
	"github.com/rs/zerolog"

	"github.com/showsift/showsift/internal/config"
)

var (
	ErrAPIKeyMissing  = errors.New("TMDB API key is not configured")
	ErrSeriesNotFound = errors.New("series not found")
	ErrAPIError       = errors.New("TMDB API error")
	ErrRateLimited    = errors.New("TMDB API rate limited")
)

// Client is a TMDB API client with an optional file-backed response
// cache.
type Client struct {
	httpClient *http.Client
	config     config.TMDBConfig
	cache      *Cache
	logger     zerolog.Logger
}

// NewClient creates a new TMDB client. The response cache is enabled
// when the config names a cache directory; a cache that cannot be
// created is logged and skipped.
func NewClient(cfg config.TMDBConfig, logger zerolog.Logger) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		config: cfg,
		logger: logger.With().Str("component", "tmdb").Logger(),
	}

	if cfg.CacheDir != "" {
		cache, err := NewCache(cfg.CacheDir, cfg.CacheTTL, logger)
		if err != nil {
			c.logger.Warn().Err(err).Str("dir", cfg.CacheDir).Msg("Response cache disabled")
		} else {
			c.cache = cache
		}
	}

	return c
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "tmdb"
}

// IsConfigured returns true if the API key is set.
func (c *Client) IsConfigured() bool {
	return c.config.APIKey != ""
}

// ResponseCache exposes the cache for maintenance commands. Nil when
// caching is disabled.
func (c *Client) ResponseCache() *Cache {
	return c.cache
}

// Test verifies connectivity to the TMDB API by making a configuration
// request.
func (c *Client) Test(ctx context.Context) error {
	if !c.IsConfigured() {
		return ErrAPIKeyMissing
	}

	params := url.Values{}
	params.Set("api_key", c.config.APIKey)

	var result struct {
		Images struct {
			BaseURL string `json:"base_url"`
		} `json:"images"`
	}

	return c.doRequest(ctx, "/configuration", params, false, &result)
}

// SearchTV searches for TV series by query with an optional first air
// date year filter. Results come back in TMDB's relevance order.
func (c *Client) SearchTV(ctx context.Context, query string, year int) ([]NormalizedSeriesResult, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	params := url.Values{}
	params.Set("api_key", c.config.APIKey)
	params.Set("query", query)
	params.Set("include_adult", "false")
	if year > 0 {
		params.Set("first_air_date_year", strconv.Itoa(year))
	}

	var response SearchTVResponse
	if err := c.doRequest(ctx, "/search/tv", params, true, &response); err != nil {
		return nil, err
	}

	results := make([]NormalizedSeriesResult, len(response.Results))
	for i, tv := range response.Results {
		results[i] = c.toSeriesResult(tv)
	}

	c.logger.Debug().
		Str("query", query).
		Int("year", year).
		Int("results", len(results)).
		Msg("TV search completed")

	return results, nil
}

// FindByIMDbID resolves an IMDb id to TMDB data via the /find
// endpoint. TV results are preferred; TV movies land in the movie
// list and are converted. Returns ErrSeriesNotFound when both lists
// are empty.
func (c *Client) FindByIMDbID(ctx context.Context, imdbID string) (*NormalizedSeriesResult, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}
	if imdbID == "" {
		return nil, fmt.Errorf("%w: empty IMDb id", ErrSeriesNotFound)
	}

	params := url.Values{}
	params.Set("api_key", c.config.APIKey)
	params.Set("external_source", "imdb_id")

	var response FindResponse
	if err := c.doRequest(ctx, "/find/"+url.PathEscape(imdbID), params, true, &response); err != nil {
		return nil, err
	}

	switch {
	case len(response.TVResults) > 0:
		result := c.toSeriesResult(response.TVResults[0])
		result.ImdbID = imdbID
		return &result, nil
	case len(response.MovieResults) > 0:
		result := c.movieToSeriesResult(response.MovieResults[0])
		result.ImdbID = imdbID
		return &result, nil
	default:
		c.logger.Debug().Str("imdbId", imdbID).Msg("No TMDB entry for IMDb id")
		return nil, ErrSeriesNotFound
	}
}

// GetSeriesDetails gets detailed TV series info by TMDB id, including
// external ids and the season list without specials.
func (c *Client) GetSeriesDetails(ctx context.Context, id int) (*NormalizedSeriesDetails, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	params := url.Values{}
	params.Set("api_key", c.config.APIKey)
	params.Set("append_to_response", "external_ids")

	var details TVDetails
	if err := c.doRequest(ctx, "/tv/"+strconv.Itoa(id), params, true, &details); err != nil {
		return nil, err
	}

	result := c.tvDetailsToResult(details)

	c.logger.Debug().
		Int("id", id).
		Str("title", result.Title).
		Int("seasons", len(result.Seasons)).
		Msg("Got TV series details")

	return &result, nil
}

// GetImageURL returns a full image URL for a given path and size.
// Size options: "w92", "w154", "w185", "w342", "w500", "w780",
// "original".
func (c *Client) GetImageURL(path string, size string) string {
	if path == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s%s", c.config.ImageBaseURL, size, path)
}

// doRequest performs a cached HTTP GET against an API path and decodes
// the JSON response. Rate limits and transport errors are retried with
// backoff; API errors are mapped to the package sentinels.
func (c *Client) doRequest(ctx context.Context, path string, params url.Values, cacheable bool, result any) error {
	if cacheable && c.cache != nil && c.cache.Get(path, params, result) {
		return nil
	}

	reqURL := c.config.BaseURL + path
	if len(params) > 0 {
		reqURL = fmt.Sprintf("%s?%s", reqURL, params.Encode())
	}

	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
			if err != nil {
				return fmt.Errorf("failed to create request: %w", err)
			}
			req.Header.Set("Accept", "application/json")

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return fmt.Errorf("HTTP request failed: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				var errResp ErrorResponse
				if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.StatusMessage != "" {
					c.logger.Debug().
						Int("status", resp.StatusCode).
						Str("message", errResp.StatusMessage).
						Msg("TMDB API error")
				}

				switch resp.StatusCode {
				case http.StatusNotFound:
					return ErrSeriesNotFound
				case http.StatusUnauthorized:
					return fmt.Errorf("%w: invalid API key", ErrAPIError)
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
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			if errors.Is(err, ErrRateLimited) {
				return true
			}
			var netErr *url.Error
			return errors.As(err, &netErr)
		}),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn().Uint("attempt", n+1).Err(err).Str("path", path).Msg("Retrying TMDB request")
		}),
	)
	if err != nil {
		return err
	}

	if cacheable && c.cache != nil {
		c.cache.Set(path, params, result)
	}
	return nil
}

// toSeriesResult converts a TMDB TV result to a NormalizedSeriesResult.
func (c *Client) toSeriesResult(tv TVResult) NormalizedSeriesResult {
	year := 0
	if len(tv.FirstAirDate) >= 4 {
		year, _ = strconv.Atoi(tv.FirstAirDate[:4])
	}

	result := NormalizedSeriesResult{
		ID:            tv.ID,
		Title:         tv.Name,
		OriginalTitle: tv.OriginalName,
		Year:          year,
		Overview:      tv.Overview,
		Rating:        tv.VoteAverage,
		VoteCount:     tv.VoteCount,
		OriginCountry: tv.OriginCountry,
	}

	if tv.PosterPath != nil {
		result.PosterURL = c.GetImageURL(*tv.PosterPath, "original")
	}
	if tv.BackdropPath != nil {
		result.BackdropURL = c.GetImageURL(*tv.BackdropPath, "original")
	}

	return result
}

// movieToSeriesResult adapts a movie find result into the series
// shape used by the resolver.
func (c *Client) movieToSeriesResult(movie MovieResult) NormalizedSeriesResult {
	year := 0
	if len(movie.ReleaseDate) >= 4 {
		year, _ = strconv.Atoi(movie.ReleaseDate[:4])
	}

	result := NormalizedSeriesResult{
		ID:       movie.ID,
		Title:    movie.Title,
		Year:     year,
		Overview: movie.Overview,
		Rating:   movie.VoteAverage,
	}

	if movie.PosterPath != nil {
		result.PosterURL = c.GetImageURL(*movie.PosterPath, "original")
	}
	if movie.BackdropPath != nil {
		result.BackdropURL = c.GetImageURL(*movie.BackdropPath, "original")
	}

	return result
}

// tvDetailsToResult converts TMDB TV details to a
// NormalizedSeriesDetails, dropping season 0 specials.
func (c *Client) tvDetailsToResult(details TVDetails) NormalizedSeriesDetails {
	year := 0
	if len(details.FirstAirDate) >= 4 {
		year, _ = strconv.Atoi(details.FirstAirDate[:4])
	}

	result := NormalizedSeriesDetails{
		NormalizedSeriesResult: NormalizedSeriesResult{
			ID:            details.ID,
			Title:         details.Name,
			OriginalTitle: details.OriginalName,
			Year:          year,
			Overview:      details.Overview,
			Rating:        details.VoteAverage,
			VoteCount:     details.VoteCount,
			OriginCountry: details.OriginCountry,
		},
		Status:           details.Status,
		NumberOfSeasons:  details.NumberOfSeasons,
		NumberOfEpisodes: details.NumberOfEpisodes,
	}

	if details.PosterPath != nil {
		result.PosterURL = c.GetImageURL(*details.PosterPath, "original")
	}
	if details.BackdropPath != nil {
		result.BackdropURL = c.GetImageURL(*details.BackdropPath, "original")
	}
	if details.ExternalIDs != nil {
		result.ImdbID = details.ExternalIDs.ImdbID
	}

	result.Seasons = make([]NormalizedSeasonInfo, 0, len(details.Seasons))
	for _, season := range details.Seasons {
		if season.SeasonNumber == 0 {
			continue
		}
		info := NormalizedSeasonInfo{
			SeasonNumber: season.SeasonNumber,
			Name:         season.Name,
			EpisodeCount: season.EpisodeCount,
			AirDate:      season.AirDate,
		}
		if len(season.AirDate) >= 4 {
			info.Year, _ = strconv.Atoi(season.AirDate[:4])
		}
		result.Seasons = append(result.Seasons, info)
	}

	return result
}
