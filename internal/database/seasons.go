package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Season aggregates the torrents of one season of a series.
// episode_count is the larger of the metadata provider's value and
// the highest episode number seen in linked torrents.
type Season struct {
	ID             int64
	SeriesID       int64
	SeasonNumber   int
	Year           sql.NullInt64
	EpisodeCount   int
	TorrentCount   int
	BestQuality    string
	TotalSizeBytes int64
	AirDate        sql.NullString
	CreatedAt      string
	UpdatedAt      string
}

// UpsertSeasonParams identifies a season by its natural key and
// carries optional metadata.
type UpsertSeasonParams struct {
	SeriesID     int64
	SeasonNumber int
	Year         *int
	EpisodeCount *int
	AirDate      string
}

const seasonColumns = `id, series_id, season_number, year, episode_count,
	torrent_count, best_quality, total_size_bytes, air_date, created_at, updated_at`

func scanSeason(row rowScanner) (*Season, error) {
	var n Season
	err := row.Scan(&n.ID, &n.SeriesID, &n.SeasonNumber, &n.Year, &n.EpisodeCount,
		&n.TorrentCount, &n.BestQuality, &n.TotalSizeBytes, &n.AirDate,
		&n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// UpsertSeason inserts a season or refreshes metadata on the existing
// row matched by (series, season number). Aggregate columns are left
// alone; RecomputeSeasonAggregates owns them.
func (s *Store) UpsertSeason(ctx context.Context, params UpsertSeasonParams) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO seasons (series_id, season_number, year, episode_count, air_date)
		VALUES (?, ?, ?, COALESCE(?, 0), ?)
		ON CONFLICT(series_id, season_number) DO UPDATE SET
			year = COALESCE(excluded.year, year),
			episode_count = MAX(episode_count, excluded.episode_count),
			air_date = COALESCE(excluded.air_date, air_date),
			updated_at = datetime('now')
		RETURNING id`,
		params.SeriesID, params.SeasonNumber, nullInt(params.Year),
		nullInt(params.EpisodeCount), nullString(params.AirDate),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert season %d of series %d: %w",
			params.SeasonNumber, params.SeriesID, err)
	}
	return id, nil
}

// GetSeason fetches a season by id.
func (s *Store) GetSeason(ctx context.Context, id int64) (*Season, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+seasonColumns+` FROM seasons WHERE id = ?`, id)
	season, err := scanSeason(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return season, err
}

// ListSeasons returns the seasons of a series in season order.
func (s *Store) ListSeasons(ctx context.Context, seriesID int64) ([]Season, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+seasonColumns+` FROM seasons WHERE series_id = ? ORDER BY season_number`,
		seriesID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Season
	for rows.Next() {
		season, err := scanSeason(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *season)
	}
	return out, rows.Err()
}

// RecomputeSeasonAggregates rebuilds the derived columns of one
// season from its linked torrents. Called after any torrent change
// that touches the season.
func (s *Store) RecomputeSeasonAggregates(ctx context.Context, seasonID int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE seasons SET
			torrent_count = (SELECT COUNT(*) FROM torrents WHERE season_id = seasons.id),
			total_size_bytes = (SELECT COALESCE(SUM(size_bytes), 0) FROM torrents WHERE season_id = seasons.id),
			best_quality = COALESCE((
				SELECT quality FROM torrents
				WHERE season_id = seasons.id AND quality != 'unknown'
				ORDER BY CASE quality
					WHEN '2160p' THEN 4
					WHEN '1080p' THEN 3
					WHEN '720p' THEN 2
					WHEN '480p' THEN 1
					ELSE 0 END DESC
				LIMIT 1), 'unknown'),
			episode_count = MAX(episode_count, (
				SELECT COALESCE(MAX(episode_end), 0) FROM torrents WHERE season_id = seasons.id)),
			updated_at = datetime('now')
		WHERE id = ?`, seasonID)
	if err != nil {
		return fmt.Errorf("recompute aggregates for season %d: %w", seasonID, err)
	}
	return nil
}

// RecomputeSeriesAggregates refreshes every season of a series.
func (s *Store) RecomputeSeriesAggregates(ctx context.Context, seriesID int64) error {
	seasons, err := s.ListSeasons(ctx, seriesID)
	if err != nil {
		return err
	}
	for _, season := range seasons {
		if err := s.RecomputeSeasonAggregates(ctx, season.ID); err != nil {
			return err
		}
	}
	return nil
}
