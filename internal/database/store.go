package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/showsift/showsift/internal/release"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// Series resolution states. A series starts unresolved, moves to one
// of the matched states when an external identity is found, or to
// failed when every resolution stage came up empty.
const (
	SeriesUnresolved    = "unresolved"
	SeriesAIMatched     = "ai_matched"
	SeriesSearchMatched = "search_matched"
	SeriesFailed        = "failed"
)

// statusAuthority orders resolution states by trust. Updates never
// move a series to a lower authority state except through an explicit
// force.
func statusAuthority(status string) int {
	switch status {
	case SeriesSearchMatched:
		return 3
	case SeriesAIMatched:
		return 2
	case SeriesFailed:
		return 1
	default:
		return 0
	}
}

// Store provides typed access to the catalog tables.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewStore creates a Store on top of an open database.
func NewStore(db *DB, logger zerolog.Logger) *Store {
	return &Store{
		db:     db.Conn(),
		logger: logger.With().Str("component", "store").Logger(),
	}
}

// Series is one scraped show, keyed naturally by its normalized title.
// PosterURL is provider artwork written at resolution time;
// SourcePosterURL is the artwork scraped from the topic itself and is
// what the vision stages analyze for still-unidentified series.
type Series struct {
	ID              int64
	Title           string
	NormalizedTitle string
	Year            sql.NullInt64
	Status          string
	TMDBID          sql.NullInt64
	IMDBID          sql.NullString
	Country         sql.NullString
	Overview        sql.NullString
	Rating          sql.NullFloat64
	PosterURL       sql.NullString
	BackdropURL     sql.NullString
	PosterPath      sql.NullString
	SourceURL       sql.NullString
	SourcePosterURL sql.NullString
	CreatedAt       string
	UpdatedAt       string
}

// UpsertSeriesParams carries the fields an ingest run knows about a
// series. Nil or empty optional fields never erase stored values.
type UpsertSeriesParams struct {
	Title           string
	Year            *int
	SourceURL       string
	SourcePosterURL string
}

const seriesColumns = `id, title, normalized_title, year, status, tmdb_id, imdb_id,
	country, overview, rating, poster_url, backdrop_url, poster_path, source_url,
	source_poster_url, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSeries(row rowScanner) (*Series, error) {
	var s Series
	err := row.Scan(&s.ID, &s.Title, &s.NormalizedTitle, &s.Year, &s.Status,
		&s.TMDBID, &s.IMDBID, &s.Country, &s.Overview, &s.Rating,
		&s.PosterURL, &s.BackdropURL, &s.PosterPath, &s.SourceURL,
		&s.SourcePosterURL, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// UpsertSeries inserts a series or refreshes an existing one matched
// by normalized title. Re-ingesting the same feed is a no-op apart
// from the updated_at touch. Returns the series row id.
func (s *Store) UpsertSeries(ctx context.Context, params UpsertSeriesParams) (int64, error) {
	normalized := release.NormalizeName(params.Title)
	if normalized == "" {
		return 0, fmt.Errorf("series title %q normalizes to empty", params.Title)
	}

	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO series (title, normalized_title, year, source_url, source_poster_url)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(normalized_title) DO UPDATE SET
			title = excluded.title,
			year = COALESCE(excluded.year, year),
			source_url = COALESCE(excluded.source_url, source_url),
			source_poster_url = COALESCE(excluded.source_poster_url, source_poster_url),
			updated_at = datetime('now')
		RETURNING id`,
		params.Title, normalized, nullInt(params.Year),
		nullString(params.SourceURL), nullString(params.SourcePosterURL),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert series %q: %w", params.Title, err)
	}
	return id, nil
}

// GetSeries fetches a series by id.
func (s *Store) GetSeries(ctx context.Context, id int64) (*Series, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+seriesColumns+` FROM series WHERE id = ?`, id)
	series, err := scanSeries(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return series, err
}

// GetSeriesByTitle fetches a series by any title variant that
// normalizes to the same natural key.
func (s *Store) GetSeriesByTitle(ctx context.Context, title string) (*Series, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+seriesColumns+` FROM series WHERE normalized_title = ?`,
		release.NormalizeName(title))
	series, err := scanSeries(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return series, err
}

// ListSeries returns all series ordered by title.
func (s *Store) ListSeries(ctx context.Context) ([]Series, error) {
	return s.querySeries(ctx,
		`SELECT `+seriesColumns+` FROM series ORDER BY title`)
}

// ListSeriesByStatus returns series in the given state ordered by id.
func (s *Store) ListSeriesByStatus(ctx context.Context, status string) ([]Series, error) {
	return s.querySeries(ctx,
		`SELECT `+seriesColumns+` FROM series WHERE status = ? ORDER BY id`, status)
}

// ListResolvedSeries returns series with a confirmed identity. Used
// as the candidate set for local matching of new arrivals.
func (s *Store) ListResolvedSeries(ctx context.Context) ([]Series, error) {
	return s.querySeries(ctx,
		`SELECT `+seriesColumns+` FROM series
		 WHERE status IN (?, ?) ORDER BY id`,
		SeriesAIMatched, SeriesSearchMatched)
}

// ListResolutionBacklog returns series awaiting resolution in
// ascending id order, so older entries are attempted first.
// includeFailed adds previously failed series for retry sweeps.
func (s *Store) ListResolutionBacklog(ctx context.Context, includeFailed bool) ([]Series, error) {
	if includeFailed {
		return s.querySeries(ctx,
			`SELECT `+seriesColumns+` FROM series
			 WHERE status IN (?, ?) ORDER BY id`,
			SeriesUnresolved, SeriesFailed)
	}
	return s.querySeries(ctx,
		`SELECT `+seriesColumns+` FROM series WHERE status = ? ORDER BY id`,
		SeriesUnresolved)
}

func (s *Store) querySeries(ctx context.Context, query string, args ...any) ([]Series, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Series
	for rows.Next() {
		series, err := scanSeries(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *series)
	}
	return out, rows.Err()
}

// Resolution carries the identity found for a series. Nil and empty
// fields leave existing values untouched.
type Resolution struct {
	Status      string // SeriesAIMatched or SeriesSearchMatched
	TMDBID      *int64
	IMDBID      string
	Country     string
	Year        *int
	Overview    string
	Rating      *float64
	PosterURL   string
	BackdropURL string
}

// ResolveSeries records a resolved identity with a compare-and-set
// guard: identifiers written by a matched state are never overwritten
// by a later, lower-authority attempt. Returns false when the guard
// rejected the update.
func (s *Store) ResolveSeries(ctx context.Context, seriesID int64, res Resolution) (bool, error) {
	if statusAuthority(res.Status) < statusAuthority(SeriesAIMatched) {
		return false, fmt.Errorf("resolution status %q is not a matched state", res.Status)
	}
	result, err := s.db.ExecContext(ctx, resolveSeriesSQL+` AND status IN (?, ?)`,
		append(resolveSeriesArgs(seriesID, res), SeriesUnresolved, SeriesFailed)...)
	if err != nil {
		return false, fmt.Errorf("resolve series %d: %w", seriesID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		s.logger.Debug().Int64("seriesId", seriesID).Str("status", res.Status).
			Msg("Resolution skipped, series already in a matched state")
		return false, nil
	}
	return true, nil
}

// ForceResolveSeries applies a resolution regardless of the current
// state. Used by explicit re-resolution requests.
func (s *Store) ForceResolveSeries(ctx context.Context, seriesID int64, res Resolution) error {
	result, err := s.db.ExecContext(ctx, resolveSeriesSQL, resolveSeriesArgs(seriesID, res)...)
	if err != nil {
		return fmt.Errorf("force resolve series %d: %w", seriesID, err)
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

const resolveSeriesSQL = `
	UPDATE series SET
		tmdb_id = COALESCE(?, tmdb_id),
		imdb_id = COALESCE(?, imdb_id),
		country = COALESCE(?, country),
		year = COALESCE(?, year),
		overview = COALESCE(?, overview),
		rating = COALESCE(?, rating),
		poster_url = COALESCE(?, poster_url),
		backdrop_url = COALESCE(?, backdrop_url),
		status = ?,
		updated_at = datetime('now')
	WHERE id = ?`

func resolveSeriesArgs(seriesID int64, res Resolution) []any {
	return []any{
		nullInt64(res.TMDBID), nullString(res.IMDBID), nullString(res.Country),
		nullInt(res.Year), nullString(res.Overview), nullFloat(res.Rating),
		nullString(res.PosterURL), nullString(res.BackdropURL),
		res.Status, seriesID,
	}
}

// MarkSeriesFailed moves an unresolved series to failed after every
// resolution stage was exhausted. A matched series is never demoted.
func (s *Store) MarkSeriesFailed(ctx context.Context, seriesID int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE series SET status = ?, updated_at = datetime('now')
		WHERE id = ? AND status = ?`,
		SeriesFailed, seriesID, SeriesUnresolved)
	if err != nil {
		return false, fmt.Errorf("mark series %d failed: %w", seriesID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ResetSeriesResolution moves a series back to unresolved so the next
// resolver sweep picks it up again.
func (s *Store) ResetSeriesResolution(ctx context.Context, seriesID int64) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE series SET status = ?, updated_at = datetime('now') WHERE id = ?`,
		SeriesUnresolved, seriesID)
	if err != nil {
		return fmt.Errorf("reset series %d: %w", seriesID, err)
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

// SetSeriesPosterPath records where a poster image was cached
// locally.
func (s *Store) SetSeriesPosterPath(ctx context.Context, seriesID int64, path string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE series SET poster_path = ?, updated_at = datetime('now') WHERE id = ?`,
		path, seriesID)
	return err
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullInt64(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullFloat(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
