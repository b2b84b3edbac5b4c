package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Torrent download states.
const (
	DownloadNotStarted = "not_downloaded"
	DownloadFailed     = "failed"
	DownloadSuccess    = "success"
)

// Torrent is one release of a series, keyed naturally by its content
// link. season_id is filled once the torrent is matched to a season.
type Torrent struct {
	ID             int64
	SeriesID       int64
	SeasonID       sql.NullInt64
	Name           string
	ContentLink    string
	LinkType       string
	Quality        string
	SizeBytes      int64
	SizeHuman      sql.NullString
	SeasonNumber   sql.NullInt64
	EpisodeStart   sql.NullInt64
	EpisodeEnd     sql.NullInt64
	Confidence     string
	DownloadStatus string
	CreatedAt      string
	UpdatedAt      string
}

// UpsertTorrentParams carries everything an ingest run knows about a
// torrent.
type UpsertTorrentParams struct {
	SeriesID     int64
	SeasonID     *int64
	Name         string
	ContentLink  string
	LinkType     string
	Quality      string
	SizeBytes    int64
	SizeHuman    string
	SeasonNumber *int
	EpisodeStart *int
	EpisodeEnd   *int
	Confidence   string
}

const torrentColumns = `id, series_id, season_id, name, content_link, link_type,
	quality, size_bytes, size_human, season_number, episode_start, episode_end,
	confidence, download_status, created_at, updated_at`

func scanTorrent(row rowScanner) (*Torrent, error) {
	var t Torrent
	err := row.Scan(&t.ID, &t.SeriesID, &t.SeasonID, &t.Name, &t.ContentLink,
		&t.LinkType, &t.Quality, &t.SizeBytes, &t.SizeHuman, &t.SeasonNumber,
		&t.EpisodeStart, &t.EpisodeEnd, &t.Confidence, &t.DownloadStatus,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// UpsertTorrent inserts a torrent or refreshes the existing row
// matched by content link. Parse-derived fields follow the newest
// ingest; download_status is never touched so a re-scrape cannot
// reset download bookkeeping.
func (s *Store) UpsertTorrent(ctx context.Context, params UpsertTorrentParams) (int64, error) {
	if params.ContentLink == "" {
		return 0, fmt.Errorf("torrent %q has no content link", params.Name)
	}
	linkType := params.LinkType
	if linkType == "" {
		linkType = "magnet"
	}
	confidence := params.Confidence
	if confidence == "" {
		confidence = "high"
	}

	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO torrents (series_id, season_id, name, content_link, link_type,
			quality, size_bytes, size_human, season_number, episode_start,
			episode_end, confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(content_link) DO UPDATE SET
			series_id = excluded.series_id,
			season_id = COALESCE(excluded.season_id, season_id),
			name = excluded.name,
			link_type = excluded.link_type,
			quality = excluded.quality,
			size_bytes = excluded.size_bytes,
			size_human = COALESCE(excluded.size_human, size_human),
			season_number = COALESCE(excluded.season_number, season_number),
			episode_start = COALESCE(excluded.episode_start, episode_start),
			episode_end = COALESCE(excluded.episode_end, episode_end),
			confidence = excluded.confidence,
			updated_at = datetime('now')
		RETURNING id`,
		params.SeriesID, nullInt64(params.SeasonID), params.Name, params.ContentLink,
		linkType, params.Quality, params.SizeBytes, nullString(params.SizeHuman),
		nullInt(params.SeasonNumber), nullInt(params.EpisodeStart),
		nullInt(params.EpisodeEnd), confidence,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert torrent %q: %w", params.Name, err)
	}
	return id, nil
}

// GetTorrent fetches a torrent by id.
func (s *Store) GetTorrent(ctx context.Context, id int64) (*Torrent, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+torrentColumns+` FROM torrents WHERE id = ?`, id)
	torrent, err := scanTorrent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return torrent, err
}

// ListTorrents returns the torrents of a series, newest first.
func (s *Store) ListTorrents(ctx context.Context, seriesID int64) ([]Torrent, error) {
	return s.queryTorrents(ctx,
		`SELECT `+torrentColumns+` FROM torrents WHERE series_id = ? ORDER BY id DESC`,
		seriesID)
}

// ListSeasonTorrents returns the torrents linked to a season.
func (s *Store) ListSeasonTorrents(ctx context.Context, seasonID int64) ([]Torrent, error) {
	return s.queryTorrents(ctx,
		`SELECT `+torrentColumns+` FROM torrents WHERE season_id = ? ORDER BY id`,
		seasonID)
}

// ListUnassignedTorrents returns torrents of a series that are not
// linked to a season yet. These are the season matcher's input.
func (s *Store) ListUnassignedTorrents(ctx context.Context, seriesID int64) ([]Torrent, error) {
	return s.queryTorrents(ctx,
		`SELECT `+torrentColumns+` FROM torrents
		 WHERE series_id = ? AND season_id IS NULL ORDER BY id`,
		seriesID)
}

func (s *Store) queryTorrents(ctx context.Context, query string, args ...any) ([]Torrent, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Torrent
	for rows.Next() {
		torrent, err := scanTorrent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *torrent)
	}
	return out, rows.Err()
}

// LinkTorrentToSeason attaches a torrent to a season and refreshes
// the season's aggregates.
func (s *Store) LinkTorrentToSeason(ctx context.Context, torrentID, seasonID int64) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE torrents SET season_id = ?, updated_at = datetime('now') WHERE id = ?`,
		seasonID, torrentID)
	if err != nil {
		return fmt.Errorf("link torrent %d to season %d: %w", torrentID, seasonID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return s.RecomputeSeasonAggregates(ctx, seasonID)
}

// SetDownloadStatus updates the download state of a torrent.
func (s *Store) SetDownloadStatus(ctx context.Context, torrentID int64, status string) error {
	switch status {
	case DownloadNotStarted, DownloadFailed, DownloadSuccess:
	default:
		return fmt.Errorf("unknown download status %q", status)
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE torrents SET download_status = ?, updated_at = datetime('now') WHERE id = ?`,
		status, torrentID)
	if err != nil {
		return fmt.Errorf("set download status of torrent %d: %w", torrentID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
