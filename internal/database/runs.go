package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PipelineRun records one end to end pipeline execution and the
// counts it reported.
type PipelineRun struct {
	ID               string
	TriggeredBy      string
	StartedAt        string
	FinishedAt       sql.NullString
	Parsed           int64
	LowConfidence    int64
	Grouped          int64
	Selected         int64
	Discarded        int64
	SeriesUpserted   int64
	SeasonsUpserted  int64
	TorrentsUpserted int64
	Resolved         int64
	Failed           int64
	Error            sql.NullString
}

// RunCounts are the counters a finished run reports.
type RunCounts struct {
	Parsed           int64
	LowConfidence    int64
	Grouped          int64
	Selected         int64
	Discarded        int64
	SeriesUpserted   int64
	SeasonsUpserted  int64
	TorrentsUpserted int64
	Resolved         int64
	Failed           int64
}

// StartPipelineRun opens a run record and returns its id.
func (s *Store) StartPipelineRun(ctx context.Context, triggeredBy string) (string, error) {
	id := uuid.NewString()
	if triggeredBy == "" {
		triggeredBy = "manual"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pipeline_runs (id, triggered_by, started_at) VALUES (?, ?, ?)`,
		id, triggeredBy, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("start pipeline run: %w", err)
	}
	return id, nil
}

// FinishPipelineRun closes a run record with its final counts.
// runErr is stored when the run ended early.
func (s *Store) FinishPipelineRun(ctx context.Context, id string, counts RunCounts, runErr error) error {
	var errText any
	if runErr != nil {
		errText = runErr.Error()
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE pipeline_runs SET
			finished_at = ?,
			parsed = ?, low_confidence = ?, grouped = ?, selected = ?, discarded = ?,
			series_upserted = ?, seasons_upserted = ?, torrents_upserted = ?,
			resolved = ?, failed = ?, error = ?
		WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339),
		counts.Parsed, counts.LowConfidence, counts.Grouped, counts.Selected,
		counts.Discarded, counts.SeriesUpserted, counts.SeasonsUpserted,
		counts.TorrentsUpserted, counts.Resolved, counts.Failed, errText, id)
	if err != nil {
		return fmt.Errorf("finish pipeline run %s: %w", id, err)
	}
	return nil
}

// ListPipelineRuns returns the most recent runs, newest first.
func (s *Store) ListPipelineRuns(ctx context.Context, limit int) ([]PipelineRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, triggered_by, started_at, finished_at, parsed, low_confidence,
			grouped, selected, discarded, series_upserted, seasons_upserted,
			torrents_upserted, resolved, failed, error
		FROM pipeline_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PipelineRun
	for rows.Next() {
		var r PipelineRun
		err := rows.Scan(&r.ID, &r.TriggeredBy, &r.StartedAt, &r.FinishedAt,
			&r.Parsed, &r.LowConfidence, &r.Grouped, &r.Selected, &r.Discarded,
			&r.SeriesUpserted, &r.SeasonsUpserted, &r.TorrentsUpserted,
			&r.Resolved, &r.Failed, &r.Error)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
