package database

import (
	"context"
	"fmt"
)

// Stats summarizes the catalog.
type Stats struct {
	Series           int64
	SeriesByStatus   map[string]int64
	Seasons          int64
	Torrents         int64
	TorrentsBySeason int64
	Unassigned       int64
	LowConfidence    int64
	TotalSizeBytes   int64
}

// GetStats collects catalog counters in one pass per table.
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{SeriesByStatus: make(map[string]int64)}

	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM series GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("series stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats.SeriesByStatus[status] = count
		stats.Series += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM seasons`).Scan(&stats.Seasons); err != nil {
		return nil, fmt.Errorf("season stats: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COUNT(season_id),
			SUM(CASE WHEN season_id IS NULL THEN 1 ELSE 0 END),
			SUM(CASE WHEN confidence = 'low' THEN 1 ELSE 0 END),
			COALESCE(SUM(size_bytes), 0)
		FROM torrents`).Scan(
		&stats.Torrents, &stats.TorrentsBySeason, &stats.Unassigned,
		&stats.LowConfidence, &stats.TotalSizeBytes)
	if err != nil {
		return nil, fmt.Errorf("torrent stats: %w", err)
	}

	return stats, nil
}

// VerifyReport lists consistency problems found in the catalog.
type VerifyReport struct {
	SeasonsWithStaleCounts int64
	TorrentsBadSeasonLink  int64
	SeriesEmpty            int64
}

// Clean reports whether no problems were found.
func (r VerifyReport) Clean() bool {
	return r.SeasonsWithStaleCounts == 0 && r.TorrentsBadSeasonLink == 0 && r.SeriesEmpty == 0
}

// Verify cross-checks derived columns and links without modifying
// anything.
func (s *Store) Verify(ctx context.Context) (*VerifyReport, error) {
	report := &VerifyReport{}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM seasons s
		WHERE s.torrent_count !=
			(SELECT COUNT(*) FROM torrents t WHERE t.season_id = s.id)`).
		Scan(&report.SeasonsWithStaleCounts)
	if err != nil {
		return nil, fmt.Errorf("verify season counts: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM torrents t
		JOIN seasons s ON s.id = t.season_id
		WHERE s.series_id != t.series_id`).
		Scan(&report.TorrentsBadSeasonLink)
	if err != nil {
		return nil, fmt.Errorf("verify season links: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM series se
		WHERE NOT EXISTS (SELECT 1 FROM torrents t WHERE t.series_id = se.id)`).
		Scan(&report.SeriesEmpty)
	if err != nil {
		return nil, fmt.Errorf("verify empty series: %w", err)
	}

	return report, nil
}

// RepairSeasonCounts recomputes aggregates for every season whose
// counters drifted.
func (s *Store) RepairSeasonCounts(ctx context.Context) (int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id FROM seasons s
		WHERE s.torrent_count !=
			(SELECT COUNT(*) FROM torrents t WHERE t.season_id = s.id)`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return 0, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, id := range ids {
		if err := s.RecomputeSeasonAggregates(ctx, id); err != nil {
			return 0, err
		}
	}
	return int64(len(ids)), nil
}
