// Package feed loads scraped topic dumps produced by the forum scraper.
// The scraper emits JSON arrays of topics, each carrying the magnet and
// .torrent links found on the topic page. YAML copies of the same shape
// are accepted for hand-maintained fixtures.
package feed

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Torrent is one release link scraped from a topic page.
type Torrent struct {
	Type      string `json:"type" yaml:"type"`
	Name      string `json:"name" yaml:"name"`
	Link      string `json:"link" yaml:"link"`
	SizeBytes int64  `json:"size_bytes" yaml:"size_bytes"`
	SizeHuman string `json:"size_human,omitempty" yaml:"size_human,omitempty"`
}

// Topic is one forum topic with the torrents found on its page. PosterURL
// is the artwork embedded in the post itself, captured at scrape time; the
// resolver's vision stages depend on it since no provider artwork exists
// before a series is identified.
type Topic struct {
	Title     string    `json:"title" yaml:"title"`
	URL       string    `json:"url" yaml:"url"`
	PosterURL string    `json:"poster_url,omitempty" yaml:"poster_url,omitempty"`
	ScrapedAt string    `json:"scraped_at,omitempty" yaml:"scraped_at,omitempty"`
	Torrents  []Torrent `json:"torrents" yaml:"torrents"`
}

// Item pairs a single torrent with the topic it was scraped from.
type Item struct {
	Topic   *Topic
	Torrent Torrent
}

// Loader reads topic dumps from a file or a directory of files.
type Loader struct {
	logger zerolog.Logger
}

func NewLoader(logger zerolog.Logger) *Loader {
	return &Loader{
		logger: logger.With().Str("component", "feed").Logger(),
	}
}

// Load reads topics from path. A directory is read non-recursively; files
// that fail to parse are logged and skipped so one bad dump does not block
// the rest of the ingest.
func (l *Loader) Load(path string) ([]Topic, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat feed path: %w", err)
	}
	if info.IsDir() {
		return l.loadDirectory(path)
	}

	topics, err := parseFile(path)
	if err != nil {
		return nil, err
	}
	l.logger.Debug().Str("file", path).Int("topics", len(topics)).Msg("Loaded feed file")
	return topics, nil
}

func (l *Loader) loadDirectory(dir string) ([]Topic, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed directory: %w", err)
	}

	all := make([]Topic, 0)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".json" && ext != ".yaml" && ext != ".yml" {
			continue
		}

		filePath := filepath.Join(dir, entry.Name())
		topics, err := parseFile(filePath)
		if err != nil {
			l.logger.Warn().Str("file", filePath).Err(err).Msg("Failed to parse feed file")
			continue
		}
		all = append(all, topics...)
	}

	l.logger.Debug().Str("dir", dir).Int("topics", len(all)).Msg("Loaded feed directory")
	return all, nil
}

func parseFile(path string) ([]Topic, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed file: %w", err)
	}

	var topics []Topic
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &topics); err != nil {
			return nil, fmt.Errorf("failed to parse feed JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &topics); err != nil {
			return nil, fmt.Errorf("failed to parse feed YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported feed format: %s", filepath.Ext(path))
	}
	return topics, nil
}

// Flatten expands topics into one item per torrent. Topics without any
// torrent yield a single item with a zero Torrent so the series itself
// still enters the catalog.
func Flatten(topics []Topic) []Item {
	items := make([]Item, 0, len(topics))
	for i := range topics {
		topic := &topics[i]
		if len(topic.Torrents) == 0 {
			items = append(items, Item{Topic: topic})
			continue
		}
		for _, torrent := range topic.Torrents {
			items = append(items, Item{Topic: topic, Torrent: torrent})
		}
	}
	return items
}
