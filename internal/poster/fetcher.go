// Package poster downloads and caches topic poster artwork for the
// vision resolution tiers.
package poster

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/rs/zerolog"

	"github.com/showsift/showsift/internal/config"
)

var (
	ErrNotFound = errors.New("poster not found")
	ErrNotImage = errors.New("response is not an image")
	ErrTooLarge = errors.New("poster exceeds size limit")
)

// Fetcher downloads posters into a local cache directory. Files are
// keyed by series id and URL hash so a changed topic poster is fetched
// fresh while re-runs reuse the copy on disk.
type Fetcher struct {
	httpClient *http.Client
	config     config.PosterConfig
	logger     zerolog.Logger
}

// NewFetcher creates a poster fetcher and its cache directory.
func NewFetcher(cfg config.PosterConfig, logger zerolog.Logger) (*Fetcher, error) {
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create poster directory: %w", err)
	}

	return &Fetcher{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		config: cfg,
		logger: logger.With().Str("component", "poster").Logger(),
	}, nil
}

// Fetch returns a local path for the poster at posterURL, downloading
// it unless a cached copy already exists.
func (f *Fetcher) Fetch(ctx context.Context, seriesID int64, posterURL string) (string, error) {
	if posterURL == "" {
		return "", fmt.Errorf("%w: empty poster URL", ErrNotFound)
	}

	sum := sha256.Sum256([]byte(posterURL))
	name := fmt.Sprintf("series_%d_%s%s", seriesID, hex.EncodeToString(sum[:8]), extFor(posterURL))
	cachePath := filepath.Join(f.config.Dir, name)

	if _, err := os.Stat(cachePath); err == nil {
		f.logger.Debug().Str("path", cachePath).Msg("Poster cache hit")
		return cachePath, nil
	}

	data, err := f.download(ctx, posterURL)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(cachePath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write poster: %w", err)
	}

	f.logger.Debug().
		Str("url", posterURL).
		Str("path", cachePath).
		Int("bytes", len(data)).
		Msg("Poster downloaded")

	return cachePath, nil
}

// download gets the poster bytes, retrying transient failures.
// Missing posters, non-image responses and oversized files abort
// immediately.
func (f *Fetcher) download(ctx context.Context, posterURL string) ([]byte, error) {
	var data []byte

	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, posterURL, nil)
			if err != nil {
				return fmt.Errorf("failed to create request: %w", err)
			}
			req.Header.Set("Accept", "image/*")

			resp, err := f.httpClient.Do(req)
			if err != nil {
				return fmt.Errorf("HTTP request failed: %w", err)
			}
			defer resp.Body.Close()

			switch {
			case resp.StatusCode == http.StatusNotFound:
				return ErrNotFound
			case resp.StatusCode != http.StatusOK:
				return fmt.Errorf("unexpected status %d", resp.StatusCode)
			}

			if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
				return fmt.Errorf("%w: %s", ErrNotImage, ct)
			}

			reader := io.Reader(resp.Body)
			if f.config.MaxBytes > 0 {
				reader = io.LimitReader(resp.Body, f.config.MaxBytes+1)
			}
			body, err := io.ReadAll(reader)
			if err != nil {
				return fmt.Errorf("failed to read response: %w", err)
			}
			if f.config.MaxBytes > 0 && int64(len(body)) > f.config.MaxBytes {
				return fmt.Errorf("%w: more than %d bytes", ErrTooLarge, f.config.MaxBytes)
			}

			data = body
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrNotImage) && !errors.Is(err, ErrTooLarge)
		}),
		retry.OnRetry(func(n uint, err error) {
			f.logger.Warn().Uint("attempt", n+1).Err(err).Str("url", posterURL).Msg("Retrying poster download")
		}),
	)
	if err != nil {
		return nil, err
	}

	return data, nil
}

// extFor picks the cache file extension from the URL path. The vision
// client derives the image MIME type from this extension, so PNG has
// to survive; everything unrecognized is stored as JPEG.
func extFor(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err == nil {
		switch strings.ToLower(path.Ext(u.Path)) {
		case ".png":
			return ".png"
		case ".jpg", ".jpeg":
			return ".jpg"
		case ".webp":
			return ".webp"
		}
	}
	return ".jpg"
}
