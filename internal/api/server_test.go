package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/showsift/showsift/internal/config"
	"github.com/showsift/showsift/internal/database"
	"github.com/showsift/showsift/internal/metrics"
)

func setupTestServer(t *testing.T, cfg *config.Config) (*Server, *database.Store) {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Failed to migrate database: %v", err)
	}
	store := database.NewStore(db, zerolog.Nop())

	if cfg == nil {
		cfg = &config.Config{}
	}
	return NewServer(store, nil, nil, cfg, zerolog.Nop()), store
}

func intPtr(v int) *int { return &v }

// seedSeries writes one series with a linked season torrent and one
// unassigned torrent, and returns the series id.
func seedSeries(t *testing.T, store *database.Store, title string) int64 {
	t.Helper()
	ctx := context.Background()

	seriesID, err := store.UpsertSeries(ctx, database.UpsertSeriesParams{
		Title:           title,
		Year:            intPtr(2024),
		SourceURL:       "https://forum.example/t/1",
		SourcePosterURL: "https://img.example/poster.jpg",
	})
	if err != nil {
		t.Fatalf("Failed to seed series: %v", err)
	}

	seasonID, err := store.UpsertSeason(ctx, database.UpsertSeasonParams{
		SeriesID:     seriesID,
		SeasonNumber: 1,
	})
	if err != nil {
		t.Fatalf("Failed to seed season: %v", err)
	}

	_, err = store.UpsertTorrent(ctx, database.UpsertTorrentParams{
		SeriesID:     seriesID,
		SeasonID:     &seasonID,
		Name:         title + " S01E01 1080p",
		ContentLink:  "magnet:?xt=urn:btih:" + title,
		LinkType:     "magnet",
		Quality:      "1080p",
		SizeBytes:    2 << 30,
		SeasonNumber: intPtr(1),
		EpisodeStart: intPtr(1),
		EpisodeEnd:   intPtr(1),
		Confidence:   "high",
	})
	if err != nil {
		t.Fatalf("Failed to seed torrent: %v", err)
	}

	_, err = store.UpsertTorrent(ctx, database.UpsertTorrentParams{
		SeriesID:    seriesID,
		Name:        title + " extras pack",
		ContentLink: "magnet:?xt=urn:btih:" + title + "-extras",
		LinkType:    "magnet",
		Quality:     "unknown",
		SizeBytes:   1 << 30,
		Confidence:  "low",
	})
	if err != nil {
		t.Fatalf("Failed to seed unassigned torrent: %v", err)
	}

	if err := store.RecomputeSeriesAggregates(ctx, seriesID); err != nil {
		t.Fatalf("Failed to recompute aggregates: %v", err)
	}
	return seriesID
}

func TestHealthz(t *testing.T) {
	server, _ := setupTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want %d", rec.Code, http.StatusOK)
	}

	var response map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if response["status"] != "ok" {
		t.Errorf("healthz status = %q, want %q", response["status"], "ok")
	}
}

func TestGetStats(t *testing.T) {
	server, store := setupTestServer(t, nil)
	seedSeries(t, store, "Be My Princess")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("stats status = %d, want %d. Body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var stats map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if stats["series"].(float64) != 1 {
		t.Errorf("stats series = %v, want 1", stats["series"])
	}
	if stats["torrents"].(float64) != 2 {
		t.Errorf("stats torrents = %v, want 2", stats["torrents"])
	}
	if stats["unassigned"].(float64) != 1 {
		t.Errorf("stats unassigned = %v, want 1", stats["unassigned"])
	}
	if stats["total_size"] == "" {
		t.Error("stats missing total_size")
	}
	byStatus, ok := stats["series_by_status"].(map[string]interface{})
	if !ok || byStatus["unresolved"].(float64) != 1 {
		t.Errorf("stats series_by_status = %v, want unresolved=1", stats["series_by_status"])
	}
}

func TestListSeries(t *testing.T) {
	server, store := setupTestServer(t, nil)
	firstID := seedSeries(t, store, "Be My Princess")
	seedSeries(t, store, "Palace Arc")

	ok, err := store.ResolveSeries(context.Background(), firstID, database.Resolution{
		Status: database.SeriesSearchMatched,
	})
	if err != nil || !ok {
		t.Fatalf("Failed to resolve seed series: ok=%v err=%v", ok, err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/series", nil)
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("list series status = %d, want %d", rec.Code, http.StatusOK)
	}

	var list []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("list series returned %d entries, want 2", len(list))
	}

	// Status filter narrows to the resolved one.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/series?status=search_matched", nil)
	rec = httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)

	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("filtered list returned %d entries, want 1", len(list))
	}
	if list[0]["title"] != "Be My Princess" {
		t.Errorf("filtered list title = %v, want Be My Princess", list[0]["title"])
	}
}

func TestGetSeriesDetail(t *testing.T) {
	server, store := setupTestServer(t, nil)
	seriesID := seedSeries(t, store, "Be My Princess")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/series/1", nil)
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("get series status = %d, want %d. Body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var detail map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &detail); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if int64(detail["id"].(float64)) != seriesID {
		t.Errorf("detail id = %v, want %d", detail["id"], seriesID)
	}
	if detail["title"] != "Be My Princess" {
		t.Errorf("detail title = %v, want Be My Princess", detail["title"])
	}

	seasons, ok := detail["seasons"].([]interface{})
	if !ok || len(seasons) != 1 {
		t.Fatalf("detail seasons = %v, want 1 season", detail["seasons"])
	}
	season := seasons[0].(map[string]interface{})
	if season["season_number"].(float64) != 1 {
		t.Errorf("season number = %v, want 1", season["season_number"])
	}
	torrents, ok := season["torrents"].([]interface{})
	if !ok || len(torrents) != 1 {
		t.Fatalf("season torrents = %v, want 1 torrent", season["torrents"])
	}

	unassigned, ok := detail["unassigned_torrents"].([]interface{})
	if !ok || len(unassigned) != 1 {
		t.Fatalf("unassigned torrents = %v, want 1", detail["unassigned_torrents"])
	}
}

func TestGetSeriesNotFound(t *testing.T) {
	server, _ := setupTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/series/999", nil)
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("get missing series status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/series/bogus", nil)
	rec = httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("get series with bad id status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestListRuns(t *testing.T) {
	server, store := setupTestServer(t, nil)
	ctx := context.Background()

	runID, err := store.StartPipelineRun(ctx, "manual")
	if err != nil {
		t.Fatalf("Failed to start run: %v", err)
	}
	err = store.FinishPipelineRun(ctx, runID, database.RunCounts{Parsed: 4, Selected: 3}, nil)
	if err != nil {
		t.Fatalf("Failed to finish run: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil)
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("list runs status = %d, want %d", rec.Code, http.StatusOK)
	}

	var runs []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &runs); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("list runs returned %d entries, want 1", len(runs))
	}
	if runs[0]["id"] != runID {
		t.Errorf("run id = %v, want %s", runs[0]["id"], runID)
	}
	if runs[0]["parsed"].(float64) != 4 {
		t.Errorf("run parsed = %v, want 4", runs[0]["parsed"])
	}
	if runs[0]["finished_at"] == nil {
		t.Error("run finished_at missing")
	}
}

func TestAPIKeyGuard(t *testing.T) {
	cfg := &config.Config{Server: config.ServerConfig{APIKey: "sekret"}}
	server, _ := setupTestServer(t, cfg)

	// No key.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no key status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	// Wrong key.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	req.Header.Set("X-Api-Key", "wrong")
	rec = httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong key status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	// Right key.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	req.Header.Set("X-Api-Key", "sekret")
	rec = httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("right key status = %d, want %d", rec.Code, http.StatusOK)
	}

	// Health stays open.
	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec = httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("healthz with key configured status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, store := setupTestServer(t, nil)

	server := NewServer(store, nil, metrics.New(), &config.Config{}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "showsift_release_names_parsed_total") {
		t.Error("metrics output missing pipeline counters")
	}
}
