// Package openrouter calls chat completion models through the
// OpenRouter API: a fast text model for release name analysis and
// season grouping, and vision models for poster identification.
package openrouter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/rs/zerolog"

	"github.com/showsift/showsift/internal/config"
)

var (
	ErrAPIKeyMissing = errors.New("OpenRouter API key is not configured")
	ErrAPIError      = errors.New("OpenRouter API error")
	ErrRateLimited   = errors.New("OpenRouter API rate limited")
	ErrNoResponse    = errors.New("model returned no usable response")
	ErrNoMatch       = errors.New("model selected no candidate")
)

const (
	// maxSelectCandidates bounds the candidate list shown to the model.
	maxSelectCandidates = 10
	// maxGroupNames bounds the torrent names per grouping call.
	maxGroupNames = 20

	referer = "https://github.com/showsift/showsift"
)

// Model replies are not always pure JSON. Reasoning models in
// particular wrap the object in prose, so the object is cut out by
// pattern before unmarshaling.
var (
	seasonJSONRe = regexp.MustCompile(`\{[^{}]*"season"[^{}]*\}`)
	idsJSONRe    = regexp.MustCompile(`\{[^{}]*"tmdb_id"[^{}]*\}`)
	nameJSONRe   = regexp.MustCompile(`\{[^{}]*"series_name"[^{}]*\}`)
	objectJSONRe = regexp.MustCompile(`\{[^{}]*(?:\{[^{}]*\}[^{}]*)*\}`)

	candidateNumberRe = regexp.MustCompile(`^(\d+)[:.\s]`)
)

// Client is an OpenRouter chat completions client.
type Client struct {
	httpClient *http.Client
	config     config.OpenRouterConfig
	logger     zerolog.Logger
}

// NewClient creates a new OpenRouter client.
func NewClient(cfg config.OpenRouterConfig, logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		config: cfg,
		logger: logger.With().Str("component", "openrouter").Logger(),
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "openrouter"
}

// IsConfigured returns true if the API key is set.
func (c *Client) IsConfigured() bool {
	return c.config.APIKey != ""
}

// AnalyzeName asks the fast text model to read season and episode
// numbers out of a release name. Season and episode carry what the
// regex parser found so the model can confirm or correct them; the
// caller decides whether the returned confidence is good enough.
func (c *Client) AnalyzeName(ctx context.Context, filename, seriesName string, season, episode int) (*NameAnalysis, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	request := chatRequest{
		Model: c.config.FastModel,
		Messages: []chatMessage{
			{Role: "system", Content: nameAnalysisSystem},
			{Role: "user", Content: nameAnalysisPrompt(filename, seriesName, season, episode)},
		},
		Temperature: 0.1,
		// Reasoning models spend output tokens thinking before the JSON.
		MaxTokens: 10000,
	}

	content, err := c.doChat(ctx, request)
	if err != nil {
		return nil, err
	}

	var analysis NameAnalysis
	if err := decodeExtracted(content, &analysis, seasonJSONRe); err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("filename", filename).
		Int("season", analysis.Season).
		Int("episode", analysis.Episode).
		Float64("confidence", analysis.Confidence).
		Msg("Name analysis completed")

	return &analysis, nil
}

// ClassifyPoster asks the fast vision model to describe a poster:
// country of origin, printed title and year, and the actor, director
// and network names it can read off the artwork.
func (c *Client) ClassifyPoster(ctx context.Context, posterPath, expectedTitle string) (*PosterAnalysis, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	dataURL, err := posterDataURL(posterPath)
	if err != nil {
		return nil, err
	}

	request := chatRequest{
		Model: c.config.FastModel,
		Messages: []chatMessage{
			{Role: "user", Content: []contentPart{
				{Type: "text", Text: classifyPrompt(expectedTitle)},
				{Type: "image_url", ImageURL: &imageRef{URL: dataURL}},
			}},
		},
		Temperature:     0.1,
		MaxTokens:       3000,
		ReasoningEffort: "medium",
	}

	content, err := c.doChat(ctx, request)
	if err != nil {
		return nil, err
	}

	var analysis PosterAnalysis
	if err := decodeExtracted(content, &analysis, objectJSONRe); err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("title", expectedTitle).
		Str("country", analysis.Country).
		Bool("directIds", analysis.HasIDs()).
		Str("confidence", analysis.Confidence).
		Msg("Poster classified")

	return &analysis, nil
}

// IdentifySeries asks the deep vision model to identify the show on a
// poster and produce its database ids. More capable and slower than
// ClassifyPoster; the last resort before giving up on a series.
func (c *Client) IdentifySeries(ctx context.Context, posterPath, seriesName string) (*Identification, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	dataURL, err := posterDataURL(posterPath)
	if err != nil {
		return nil, err
	}

	request := chatRequest{
		Model: c.config.DeepModel,
		Messages: []chatMessage{
			{Role: "user", Content: []contentPart{
				{Type: "text", Text: identifyPrompt(seriesName)},
				{Type: "image_url", ImageURL: &imageRef{URL: dataURL}},
			}},
		},
		Temperature: 0.1,
		MaxTokens:   2000,
	}

	content, err := c.doChat(ctx, request)
	if err != nil {
		return nil, err
	}

	var identification Identification
	if err := decodeExtracted(content, &identification, idsJSONRe, nameJSONRe); err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("series", seriesName).
		Int("tmdbId", identification.TMDBID).
		Str("imdbId", identification.IMDbID).
		Str("confidence", identification.Confidence).
		Msg("Deep poster identification completed")

	return &identification, nil
}

// SelectCandidate asks the fast model which search candidate matches
// a poster analysis. Returns the zero-based index into candidates, or
// ErrNoMatch when the model declines or answers out of range.
func (c *Client) SelectCandidate(ctx context.Context, analysis *PosterAnalysis, candidates []Candidate) (int, error) {
	if !c.IsConfigured() {
		return 0, ErrAPIKeyMissing
	}
	if len(candidates) == 0 {
		return 0, ErrNoMatch
	}
	if len(candidates) > maxSelectCandidates {
		candidates = candidates[:maxSelectCandidates]
	}

	request := chatRequest{
		Model: c.config.FastModel,
		Messages: []chatMessage{
			{Role: "user", Content: selectPrompt(analysis, candidates)},
		},
		Temperature:     0.1,
		MaxTokens:       800,
		ReasoningEffort: "low",
	}

	content, err := c.doChat(ctx, request)
	if err != nil {
		return 0, err
	}

	m := candidateNumberRe.FindStringSubmatch(content)
	if m == nil {
		c.logger.Debug().Str("reply", truncate(content, 120)).Msg("Model selected no candidate")
		return 0, ErrNoMatch
	}

	number, err := strconv.Atoi(m[1])
	if err != nil || number < 1 || number > len(candidates) {
		return 0, ErrNoMatch
	}

	c.logger.Debug().
		Int("candidate", number).
		Str("reply", truncate(content, 120)).
		Msg("Model selected candidate")

	return number - 1, nil
}

// GroupSeasons asks the fast model to assign torrent names to season
// numbers. Ids the model invents and its "unknown" bucket are dropped;
// at most maxGroupNames torrents are sent per call.
func (c *Client) GroupSeasons(ctx context.Context, seriesName string, torrents []TorrentName) (map[int][]int64, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}
	if len(torrents) == 0 {
		return map[int][]int64{}, nil
	}
	if len(torrents) > maxGroupNames {
		torrents = torrents[:maxGroupNames]
	}

	request := chatRequest{
		Model: c.config.FastModel,
		Messages: []chatMessage{
			{Role: "user", Content: groupSeasonsPrompt(seriesName, torrents)},
		},
		Temperature: 0.1,
		MaxTokens:   1000,
	}

	content, err := c.doChat(ctx, request)
	if err != nil {
		return nil, err
	}

	var raw map[string][]int64
	if err := decodeExtracted(content, &raw, objectJSONRe); err != nil {
		return nil, err
	}

	known := make(map[int64]bool, len(torrents))
	for _, t := range torrents {
		known[t.ID] = true
	}

	groups := make(map[int][]int64)
	for key, ids := range raw {
		season, err := strconv.Atoi(key)
		if err != nil || season < 1 {
			continue
		}
		for _, id := range ids {
			if known[id] {
				groups[season] = append(groups[season], id)
			}
		}
	}

	c.logger.Debug().
		Str("series", seriesName).
		Int("torrents", len(torrents)).
		Int("seasons", len(groups)).
		Msg("Season grouping completed")

	return groups, nil
}

// doChat posts a completion request and returns the reply text,
// falling back to the reasoning field when content is empty. Rate
// limits are retried with backoff.
func (c *Client) doChat(ctx context.Context, request chatRequest) (string, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	var response chatResponse
	err = retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/chat/completions", bytes.NewReader(body))
			if err != nil {
				return fmt.Errorf("failed to create request: %w", err)
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
			req.Header.Set("HTTP-Referer", referer)

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return fmt.Errorf("HTTP request failed: %w", err)
			}
			defer resp.Body.Close()

			switch resp.StatusCode {
			case http.StatusOK:
			case http.StatusUnauthorized:
				return fmt.Errorf("%w: invalid API key", ErrAPIError)
			case http.StatusPaymentRequired:
				return fmt.Errorf("%w: insufficient credits", ErrAPIError)
			case http.StatusTooManyRequests:
				return ErrRateLimited
			default:
				return fmt.Errorf("%w: status %d", ErrAPIError, resp.StatusCode)
			}

			response = chatResponse{}
			if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
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
			return errors.Is(err, ErrRateLimited)
		}),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn().Uint("attempt", n+1).Err(err).Str("model", request.Model).Msg("Retrying OpenRouter request")
		}),
	)
	if err != nil {
		return "", err
	}

	if response.Error != nil {
		return "", fmt.Errorf("%w: %s", ErrAPIError, response.Error.Message)
	}
	if len(response.Choices) == 0 {
		return "", ErrNoResponse
	}

	content := strings.TrimSpace(response.Choices[0].Message.Content)
	if content == "" {
		content = strings.TrimSpace(response.Choices[0].Message.Reasoning)
	}
	if content == "" {
		return "", ErrNoResponse
	}

	return content, nil
}

// decodeExtracted cuts the first JSON object matching one of the
// patterns out of a model reply and unmarshals it. When no pattern
// matches, the whole reply is treated as JSON.
func decodeExtracted(content string, out any, patterns ...*regexp.Regexp) error {
	payload := content
	for _, re := range patterns {
		if m := re.FindString(content); m != "" {
			payload = m
			break
		}
	}
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return fmt.Errorf("%w: %v", ErrNoResponse, err)
	}
	return nil
}

// posterDataURL reads an image file and encodes it as a data URL.
// PNG is detected by extension; everything else is sent as JPEG.
func posterDataURL(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read poster: %w", err)
	}

	mime := "image/jpeg"
	if strings.EqualFold(filepath.Ext(path), ".png") {
		mime = "image/png"
	}

	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func firstN(ss []string, n int) []string {
	if len(ss) <= n {
		return ss
	}
	return ss[:n]
}
