package feed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

const sampleJSON = `[
  {
    "title": "Be My Princess (2024) S01 EP (01-10)",
    "url": "https://forum.example/topic/1",
    "poster_url": "https://forum.example/uploads/princess.jpg",
    "scraped_at": "2025-01-15T10:30:00",
    "torrents": [
      {
        "type": "magnet",
        "name": "Be My Princess (2024) S01 EP (01-10) 1080p",
        "link": "magnet:?xt=urn:btih:aaa",
        "size_bytes": 5905580032,
        "size_human": "5.5 GB"
      },
      {
        "type": "torrent",
        "name": "Be My Princess (2024) S01 EP (01-10) 720p",
        "link": "https://forum.example/files/princess-720.torrent",
        "size_bytes": 734003200
      }
    ]
  },
  {
    "title": "Quiet Topic Without Links",
    "url": "https://forum.example/topic/2",
    "torrents": []
  }
]`

const sampleYAML = `- title: Silo S02
  url: https://forum.example/topic/3
  torrents:
    - type: magnet
      name: Silo S02E01 2160p
      link: magnet:?xt=urn:btih:bbb
      size_bytes: 4294967296
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_JSONFile(t *testing.T) {
	loader := NewLoader(zerolog.Nop())
	path := writeFile(t, t.TempDir(), "feed.json", sampleJSON)

	topics, err := loader.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(topics) != 2 {
		t.Fatalf("topics = %d, want 2", len(topics))
	}
	if topics[0].Title != "Be My Princess (2024) S01 EP (01-10)" {
		t.Errorf("Title = %q", topics[0].Title)
	}
	if topics[0].PosterURL != "https://forum.example/uploads/princess.jpg" {
		t.Errorf("PosterURL = %q", topics[0].PosterURL)
	}
	if len(topics[0].Torrents) != 2 {
		t.Fatalf("torrents = %d, want 2", len(topics[0].Torrents))
	}
	if topics[0].Torrents[0].SizeBytes != 5905580032 {
		t.Errorf("SizeBytes = %d", topics[0].Torrents[0].SizeBytes)
	}
	if topics[0].Torrents[1].Type != "torrent" {
		t.Errorf("Type = %q, want torrent", topics[0].Torrents[1].Type)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	loader := NewLoader(zerolog.Nop())
	path := writeFile(t, t.TempDir(), "feed.yaml", sampleYAML)

	topics, err := loader.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(topics) != 1 || topics[0].Torrents[0].Name != "Silo S02E01 2160p" {
		t.Errorf("topics = %+v", topics)
	}
}

func TestLoad_Directory(t *testing.T) {
	loader := NewLoader(zerolog.Nop())
	dir := t.TempDir()
	writeFile(t, dir, "a.json", sampleJSON)
	writeFile(t, dir, "b.yaml", sampleYAML)
	writeFile(t, dir, "notes.txt", "ignore me")
	writeFile(t, dir, "broken.json", "{not json")

	topics, err := loader.Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	// Two from a.json, one from b.yaml; broken.json skipped
	if len(topics) != 3 {
		t.Errorf("topics = %d, want 3", len(topics))
	}
}

func TestLoad_MissingPath(t *testing.T) {
	loader := NewLoader(zerolog.Nop())
	if _, err := loader.Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("Load() on missing path should fail")
	}
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	loader := NewLoader(zerolog.Nop())
	path := writeFile(t, t.TempDir(), "feed.csv", "a,b\n")
	if _, err := loader.Load(path); err == nil {
		t.Error("Load() on unsupported format should fail")
	}
}

func TestFlatten(t *testing.T) {
	topics := []Topic{
		{
			Title: "Two Links",
			URL:   "u1",
			Torrents: []Torrent{
				{Name: "a", Link: "l1"},
				{Name: "b", Link: "l2"},
			},
		},
		{Title: "No Links", URL: "u2"},
	}

	items := Flatten(topics)
	if len(items) != 3 {
		t.Fatalf("items = %d, want 3", len(items))
	}
	if items[0].Topic.URL != "u1" || items[1].Torrent.Name != "b" {
		t.Errorf("unexpected flatten order: %+v", items)
	}
	if items[2].Torrent.Link != "" {
		t.Errorf("topic without torrents should yield zero torrent, got %+v", items[2].Torrent)
	}
}
