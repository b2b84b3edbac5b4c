package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/showsift/showsift/internal/database"
)

func addTorrent(t *testing.T, store *database.Store, seriesID int64, name, link string, season *int) int64 {
	t.Helper()
	id, err := store.UpsertTorrent(context.Background(), database.UpsertTorrentParams{
		SeriesID:     seriesID,
		Name:         name,
		ContentLink:  link,
		Quality:      "1080p",
		SizeBytes:    1 << 30,
		SizeHuman:    "1.0 GB",
		SeasonNumber: season,
	})
	require.NoError(t, err)
	return id
}

func TestMatchSeasons(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seriesID, err := store.UpsertSeries(ctx, database.UpsertSeriesParams{Title: "Be My Princess"})
	require.NoError(t, err)

	// Parsed season number, regex-recoverable name, and one only the
	// model can place
	parsed := addTorrent(t, store, seriesID, "Be My Princess S02 EP01 1080p", "magnet:?xt=urn:btih:aaa", intPtr(2))
	swept := addTorrent(t, store, seriesID, "Be My Princess Series 3 Complete", "magnet:?xt=urn:btih:bbb", nil)
	opaque := addTorrent(t, store, seriesID, "Be My Princess Palace Arc", "magnet:?xt=urn:btih:ccc", nil)

	vision := &fakeVision{
		configured: true,
		groups:     map[int][]int64{1: {opaque}},
	}
	svc := newTestService(store, nil, nil, vision, nil)

	linked, err := svc.MatchSeasons(ctx, seriesID)
	require.NoError(t, err)
	assert.Equal(t, 3, linked)

	unassigned, err := store.ListUnassignedTorrents(ctx, seriesID)
	require.NoError(t, err)
	assert.Empty(t, unassigned)

	seasons, err := store.ListSeasons(ctx, seriesID)
	require.NoError(t, err)
	require.Len(t, seasons, 3)

	byNumber := make(map[int]database.Season, len(seasons))
	for _, season := range seasons {
		byNumber[season.SeasonNumber] = season
	}
	for number, want := range map[int]int64{1: opaque, 2: parsed, 3: swept} {
		season, ok := byNumber[number]
		require.True(t, ok, "season %d missing", number)
		assert.Equal(t, 1, season.TorrentCount, "season %d torrent count", number)

		members, err := store.ListSeasonTorrents(ctx, season.ID)
		require.NoError(t, err)
		require.Len(t, members, 1)
		assert.Equal(t, want, members[0].ID)
	}
}

func TestMatchSeasons_NoModelLeavesOpaqueUnassigned(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seriesID, err := store.UpsertSeries(ctx, database.UpsertSeriesParams{Title: "Be My Princess"})
	require.NoError(t, err)

	addTorrent(t, store, seriesID, "Be My Princess S01 EP01", "magnet:?xt=urn:btih:aaa", intPtr(1))
	opaque := addTorrent(t, store, seriesID, "Be My Princess Palace Arc", "magnet:?xt=urn:btih:bbb", nil)

	svc := newTestService(store, nil, nil, nil, nil)

	linked, err := svc.MatchSeasons(ctx, seriesID)
	require.NoError(t, err)
	assert.Equal(t, 1, linked)

	unassigned, err := store.ListUnassignedTorrents(ctx, seriesID)
	require.NoError(t, err)
	require.Len(t, unassigned, 1)
	assert.Equal(t, opaque, unassigned[0].ID)
}

func TestMatchSeasons_InventedIDsDropped(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seriesID, err := store.UpsertSeries(ctx, database.UpsertSeriesParams{Title: "Be My Princess"})
	require.NoError(t, err)

	opaque := addTorrent(t, store, seriesID, "Be My Princess Palace Arc", "magnet:?xt=urn:btih:aaa", nil)

	vision := &fakeVision{
		configured: true,
		// The model hallucinated id 9999 alongside the real one
		groups: map[int][]int64{1: {opaque, 9999}},
	}
	svc := newTestService(store, nil, nil, vision, nil)

	linked, err := svc.MatchSeasons(ctx, seriesID)
	require.NoError(t, err)
	assert.Equal(t, 1, linked)
}

func TestMatchSeasons_NothingToDo(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seriesID, err := store.UpsertSeries(ctx, database.UpsertSeriesParams{Title: "Be My Princess"})
	require.NoError(t, err)

	svc := newTestService(store, nil, nil, nil, nil)

	linked, err := svc.MatchSeasons(ctx, seriesID)
	require.NoError(t, err)
	assert.Zero(t, linked)
}

func TestMatchAllSeasons(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.UpsertSeries(ctx, database.UpsertSeriesParams{Title: "Alpha Protocol"})
	require.NoError(t, err)
	second, err := store.UpsertSeries(ctx, database.UpsertSeriesParams{Title: "Beta Quadrant"})
	require.NoError(t, err)

	addTorrent(t, store, first, "Alpha Protocol S01", "magnet:?xt=urn:btih:aaa", intPtr(1))
	addTorrent(t, store, second, "Beta Quadrant S04 720p", "magnet:?xt=urn:btih:bbb", intPtr(4))

	svc := newTestService(store, nil, nil, nil, nil)

	total, err := svc.MatchAllSeasons(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestExtractSeason(t *testing.T) {
	tests := []struct {
		name string
		want int
		ok   bool
	}{
		{"Show S2 Complete", 2, true},
		{"Show s10 batch", 10, true},
		{"Show Season 4 WEB-DL", 4, true},
		{"Show season4 pack", 4, true},
		{"Show Series 11 HDTV", 11, true},
		{"Show Complete Batch", 0, false},
		{"Assorted Specials", 0, false},
	}

	for _, tt := range tests {
		got, ok := extractSeason(tt.name)
		assert.Equal(t, tt.ok, ok, "%q", tt.name)
		assert.Equal(t, tt.want, got, "%q", tt.name)
	}
}

func TestCommonYear(t *testing.T) {
	members := []database.Torrent{
		{Name: "Show (2023) S01 720p"},
		{Name: "Show (2023) S01 1080p"},
		{Name: "Show (2024) S01 Special"},
	}
	assert.Equal(t, 2023, commonYear(members))

	tied := []database.Torrent{
		{Name: "Show (2024) S02"},
		{Name: "Show (2023) S02"},
	}
	assert.Equal(t, 2023, commonYear(tied), "tie goes to the earlier year")

	assert.Zero(t, commonYear([]database.Torrent{{Name: "Show S02"}}))
}
