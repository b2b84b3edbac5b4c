package tmdb

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Cache is a file-backed cache for TMDB responses. One JSON file per
// request, keyed by a hash of the endpoint and its query parameters.
// Entries older than the TTL are treated as misses and removed.
type Cache struct {
	dir    string
	ttl    time.Duration
	logger zerolog.Logger
}

type cacheEntry struct {
	Timestamp int64           `json:"timestamp"`
	Endpoint  string          `json:"endpoint"`
	Data      json.RawMessage `json:"data"`
}

// CacheStats summarizes the on-disk cache state.
type CacheStats struct {
	Entries   int       `json:"entries"`
	SizeBytes int64     `json:"sizeBytes"`
	Expired   int       `json:"expired"`
	Oldest    time.Time `json:"oldest,omitzero"`
	Newest    time.Time `json:"newest,omitzero"`
}

// NewCache creates the cache directory if needed.
func NewCache(dir string, ttl time.Duration, logger zerolog.Logger) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Cache{
		dir:    dir,
		ttl:    ttl,
		logger: logger.With().Str("component", "tmdb-cache").Logger(),
	}, nil
}

// cacheKey hashes the endpoint and canonically encoded parameters.
// The API key never participates so rotating it keeps the cache warm.
func cacheKey(endpoint string, params url.Values) string {
	filtered := url.Values{}
	for k, vs := range params {
		if k == "api_key" {
			continue
		}
		filtered[k] = vs
	}
	sum := sha256.Sum256([]byte(endpoint + ":" + filtered.Encode()))
	return hex.EncodeToString(sum[:])
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}

// Get loads a cached response into out. Returns false on miss,
// expiry, or a corrupted entry; the latter two are deleted.
func (c *Cache) Get(endpoint string, params url.Values, out any) bool {
	path := c.path(cacheKey(endpoint, params))

	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}

	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.logger.Warn().Str("file", path).Err(err).Msg("Removing corrupted cache entry")
		os.Remove(path)
		return false
	}

	age := time.Since(time.Unix(entry.Timestamp, 0))
	if age > c.ttl {
		c.logger.Debug().Str("endpoint", endpoint).Msg("Cache entry expired")
		os.Remove(path)
		return false
	}

	if err := json.Unmarshal(entry.Data, out); err != nil {
		os.Remove(path)
		return false
	}

	c.logger.Debug().Str("endpoint", endpoint).Dur("age", age).Msg("Cache hit")
	return true
}

// Set stores a response. Write failures are logged, not returned; a
// cold cache only costs an extra API call.
func (c *Cache) Set(endpoint string, params url.Values, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		c.logger.Warn().Str("endpoint", endpoint).Err(err).Msg("Failed to encode cache entry")
		return
	}

	entry := cacheEntry{
		Timestamp: time.Now().Unix(),
		Endpoint:  endpoint,
		Data:      raw,
	}
	encoded, err := json.Marshal(entry)
	if err != nil {
		return
	}

	path := c.path(cacheKey(endpoint, params))
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		c.logger.Warn().Str("file", path).Err(err).Msg("Failed to write cache entry")
	}
}

// Clear removes every cache entry and returns how many were deleted.
func (c *Cache) Clear() (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read cache directory: %w", err)
	}

	count := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, entry.Name())); err == nil {
			count++
		}
	}

	c.logger.Info().Int("removed", count).Msg("Cleared TMDB cache")
	return count, nil
}

// Stats walks the cache directory and reports entry counts and ages.
func (c *Cache) Stats() (CacheStats, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return CacheStats{}, fmt.Errorf("failed to read cache directory: %w", err)
	}

	var stats CacheStats
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		path := filepath.Join(c.dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			continue
		}
		stats.Entries++
		stats.SizeBytes += info.Size()

		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var ce cacheEntry
		if err := json.Unmarshal(data, &ce); err != nil {
			continue
		}

		ts := time.Unix(ce.Timestamp, 0)
		if time.Since(ts) > c.ttl {
			stats.Expired++
		}
		if stats.Oldest.IsZero() || ts.Before(stats.Oldest) {
			stats.Oldest = ts
		}
		if stats.Newest.IsZero() || ts.After(stats.Newest) {
			stats.Newest = ts
		}
	}

	return stats, nil
}

// CleanupExpired removes entries older than the TTL and corrupted
// files. Returns how many were deleted.
func (c *Cache) CleanupExpired() (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read cache directory: %w", err)
	}

	count := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		path := filepath.Join(c.dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		var ce cacheEntry
		if err := json.Unmarshal(data, &ce); err != nil {
			if os.Remove(path) == nil {
				count++
			}
			continue
		}
		if time.Since(time.Unix(ce.Timestamp, 0)) > c.ttl {
			if os.Remove(path) == nil {
				count++
			}
		}
	}

	if count > 0 {
		c.logger.Info().Int("removed", count).Msg("Cleaned up expired cache entries")
	}
	return count, nil
}
