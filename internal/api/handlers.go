package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"

	"github.com/showsift/showsift/internal/database"
)

type statsResponse struct {
	Series         int64            `json:"series"`
	SeriesByStatus map[string]int64 `json:"series_by_status"`
	Seasons        int64            `json:"seasons"`
	Torrents       int64            `json:"torrents"`
	Assigned       int64            `json:"assigned"`
	Unassigned     int64            `json:"unassigned"`
	LowConfidence  int64            `json:"low_confidence"`
	TotalSizeBytes int64            `json:"total_size_bytes"`
	TotalSize      string           `json:"total_size"`
}

type seriesResponse struct {
	ID              int64    `json:"id"`
	Title           string   `json:"title"`
	Year            *int64   `json:"year,omitempty"`
	Status          string   `json:"status"`
	TMDBID          *int64   `json:"tmdb_id,omitempty"`
	IMDBID          *string  `json:"imdb_id,omitempty"`
	Country         *string  `json:"country,omitempty"`
	Overview        *string  `json:"overview,omitempty"`
	Rating          *float64 `json:"rating,omitempty"`
	PosterURL       *string  `json:"poster_url,omitempty"`
	BackdropURL     *string  `json:"backdrop_url,omitempty"`
	PosterPath      *string  `json:"poster_path,omitempty"`
	SourceURL       *string  `json:"source_url,omitempty"`
	SourcePosterURL *string  `json:"source_poster_url,omitempty"`
	CreatedAt       string   `json:"created_at"`
	UpdatedAt       string   `json:"updated_at"`
}

type seasonResponse struct {
	ID             int64             `json:"id"`
	SeasonNumber   int               `json:"season_number"`
	Year           *int64            `json:"year,omitempty"`
	EpisodeCount   int               `json:"episode_count"`
	TorrentCount   int               `json:"torrent_count"`
	BestQuality    string            `json:"best_quality,omitempty"`
	TotalSizeBytes int64             `json:"total_size_bytes"`
	TotalSize      string            `json:"total_size"`
	AirDate        *string           `json:"air_date,omitempty"`
	Torrents       []torrentResponse `json:"torrents"`
}

type torrentResponse struct {
	ID             int64   `json:"id"`
	SeasonID       *int64  `json:"season_id,omitempty"`
	Name           string  `json:"name"`
	ContentLink    string  `json:"content_link"`
	LinkType       string  `json:"link_type,omitempty"`
	Quality        string  `json:"quality"`
	SizeBytes      int64   `json:"size_bytes"`
	SizeHuman      *string `json:"size_human,omitempty"`
	SeasonNumber   *int64  `json:"season_number,omitempty"`
	EpisodeStart   *int64  `json:"episode_start,omitempty"`
	EpisodeEnd     *int64  `json:"episode_end,omitempty"`
	Confidence     string  `json:"confidence"`
	DownloadStatus string  `json:"download_status"`
	CreatedAt      string  `json:"created_at"`
}

type seriesDetailResponse struct {
	seriesResponse
	Seasons    []seasonResponse  `json:"seasons"`
	Unassigned []torrentResponse `json:"unassigned_torrents"`
}

type runResponse struct {
	ID               string  `json:"id"`
	TriggeredBy      string  `json:"triggered_by"`
	StartedAt        string  `json:"started_at"`
	FinishedAt       *string `json:"finished_at,omitempty"`
	Error            *string `json:"error,omitempty"`
	Parsed           int64   `json:"parsed"`
	LowConfidence    int64   `json:"low_confidence"`
	Grouped          int64   `json:"grouped"`
	Selected         int64   `json:"selected"`
	Discarded        int64   `json:"discarded"`
	SeriesUpserted   int64   `json:"series_upserted"`
	SeasonsUpserted  int64   `json:"seasons_upserted"`
	TorrentsUpserted int64   `json:"torrents_upserted"`
	Resolved         int64   `json:"resolved"`
	Failed           int64   `json:"failed"`
}

func toSeriesResponse(series *database.Series) seriesResponse {
	return seriesResponse{
		ID:              series.ID,
		Title:           series.Title,
		Year:            optInt64(series.Year),
		Status:          series.Status,
		TMDBID:          optInt64(series.TMDBID),
		IMDBID:          optString(series.IMDBID),
		Country:         optString(series.Country),
		Overview:        optString(series.Overview),
		Rating:          optFloat(series.Rating),
		PosterURL:       optString(series.PosterURL),
		BackdropURL:     optString(series.BackdropURL),
		PosterPath:      optString(series.PosterPath),
		SourceURL:       optString(series.SourceURL),
		SourcePosterURL: optString(series.SourcePosterURL),
		CreatedAt:       series.CreatedAt,
		UpdatedAt:       series.UpdatedAt,
	}
}

func toSeasonResponse(season *database.Season, torrents []database.Torrent) seasonResponse {
	return seasonResponse{
		ID:             season.ID,
		SeasonNumber:   season.SeasonNumber,
		Year:           optInt64(season.Year),
		EpisodeCount:   season.EpisodeCount,
		TorrentCount:   season.TorrentCount,
		BestQuality:    season.BestQuality,
		TotalSizeBytes: season.TotalSizeBytes,
		TotalSize:      humanize.IBytes(uint64(season.TotalSizeBytes)),
		AirDate:        optString(season.AirDate),
		Torrents:       toTorrentResponses(torrents),
	}
}

func toTorrentResponses(torrents []database.Torrent) []torrentResponse {
	out := make([]torrentResponse, 0, len(torrents))
	for i := range torrents {
		t := &torrents[i]
		out = append(out, torrentResponse{
			ID:             t.ID,
			SeasonID:       optInt64(t.SeasonID),
			Name:           t.Name,
			ContentLink:    t.ContentLink,
			LinkType:       t.LinkType,
			Quality:        t.Quality,
			SizeBytes:      t.SizeBytes,
			SizeHuman:      optString(t.SizeHuman),
			SeasonNumber:   optInt64(t.SeasonNumber),
			EpisodeStart:   optInt64(t.EpisodeStart),
			EpisodeEnd:     optInt64(t.EpisodeEnd),
			Confidence:     t.Confidence,
			DownloadStatus: t.DownloadStatus,
			CreatedAt:      t.CreatedAt,
		})
	}
	return out
}

func toRunResponse(run *database.PipelineRun) runResponse {
	return runResponse{
		ID:               run.ID,
		TriggeredBy:      run.TriggeredBy,
		StartedAt:        run.StartedAt,
		FinishedAt:       optString(run.FinishedAt),
		Error:            optString(run.Error),
		Parsed:           run.Parsed,
		LowConfidence:    run.LowConfidence,
		Grouped:          run.Grouped,
		Selected:         run.Selected,
		Discarded:        run.Discarded,
		SeriesUpserted:   run.SeriesUpserted,
		SeasonsUpserted:  run.SeasonsUpserted,
		TorrentsUpserted: run.TorrentsUpserted,
		Resolved:         run.Resolved,
		Failed:           run.Failed,
	}
}

func optString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func optInt64(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}

func optFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func (s *Server) healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getStats(c echo.Context) error {
	stats, err := s.store.GetStats(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, statsResponse{
		Series:         stats.Series,
		SeriesByStatus: stats.SeriesByStatus,
		Seasons:        stats.Seasons,
		Torrents:       stats.Torrents,
		Assigned:       stats.TorrentsBySeason,
		Unassigned:     stats.Unassigned,
		LowConfidence:  stats.LowConfidence,
		TotalSizeBytes: stats.TotalSizeBytes,
		TotalSize:      humanize.IBytes(uint64(stats.TotalSizeBytes)),
	})
}

func (s *Server) listSeries(c echo.Context) error {
	ctx := c.Request().Context()

	var (
		list []database.Series
		err  error
	)
	if status := c.QueryParam("status"); status != "" {
		list, err = s.store.ListSeriesByStatus(ctx, status)
	} else {
		list, err = s.store.ListSeries(ctx)
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	out := make([]seriesResponse, 0, len(list))
	for i := range list {
		out = append(out, toSeriesResponse(&list[i]))
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) getSeries(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}

	series, err := s.store.GetSeries(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "series not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	seasons, err := s.store.ListSeasons(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	detail := seriesDetailResponse{
		seriesResponse: toSeriesResponse(series),
		Seasons:        make([]seasonResponse, 0, len(seasons)),
	}
	for i := range seasons {
		torrents, err := s.store.ListSeasonTorrents(ctx, seasons[i].ID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		detail.Seasons = append(detail.Seasons, toSeasonResponse(&seasons[i], torrents))
	}

	unassigned, err := s.store.ListUnassignedTorrents(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	detail.Unassigned = toTorrentResponses(unassigned)

	return c.JSON(http.StatusOK, detail)
}

func (s *Server) listRuns(c echo.Context) error {
	limit := 20
	if l := c.QueryParam("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil {
			limit = parsed
		}
	}

	runs, err := s.store.ListPipelineRuns(c.Request().Context(), limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	out := make([]runResponse, 0, len(runs))
	for i := range runs {
		out = append(out, toRunResponse(&runs[i]))
	}
	return c.JSON(http.StatusOK, out)
}
