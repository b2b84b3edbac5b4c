// Package pipeline runs the scrape-to-catalog flow: load topic dumps,
// parse every release name, keep the best copy of each episode span,
// write series, seasons and torrents, then hand new series to the
// resolver. Each run is recorded in pipeline_runs with its counts.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/showsift/showsift/internal/config"
	"github.com/showsift/showsift/internal/database"
	"github.com/showsift/showsift/internal/decisioning"
	"github.com/showsift/showsift/internal/feed"
	"github.com/showsift/showsift/internal/metrics"
	"github.com/showsift/showsift/internal/release"
	"github.com/showsift/showsift/internal/resolver"
	"github.com/showsift/showsift/internal/vision/openrouter"
)

// Events broadcast over a run's life.
const (
	EventRunStarted  = "run:started"
	EventRunFinished = "run:finished"
)

// parseWorkers bounds the parse stage. Parsing itself is cheap; the
// bound keeps concurrent name-repair calls to the model polite.
const parseWorkers = 4

// NameAnalyzer fills season and episode numbers the tokenizer could
// not extract. Implemented by the OpenRouter client.
type NameAnalyzer interface {
	IsConfigured() bool
	AnalyzeName(ctx context.Context, filename, seriesName string, season, episode int) (*openrouter.NameAnalysis, error)
}

// Resolver assigns identities and seasons to the catalog after an
// ingest. Implemented by the resolver service.
type Resolver interface {
	ResolveBacklog(ctx context.Context, includeFailed bool) (*resolver.Report, error)
	MatchAllSeasons(ctx context.Context) (int, error)
}

// EventSink pushes run progress to connected clients. Implemented by
// the websocket hub.
type EventSink interface {
	Broadcast(event string, payload interface{}) error
}

// RunOptions controls a single run.
type RunOptions struct {
	// TriggeredBy is recorded on the run row: "manual" or "scheduler".
	TriggeredBy string
	// SkipResolve ends the run after persistence. New series stay
	// unresolved until the next resolver sweep.
	SkipResolve bool
	// RetryFailed lets the resolve pass revisit series whose previous
	// attempts exhausted every tier.
	RetryFailed bool
}

// Report is the outcome of one run. The counts mirror the
// pipeline_runs row written when the run finishes.
type Report struct {
	RunID    string        `json:"run_id"`
	Duration time.Duration `json:"-"`

	Topics        int `json:"topics"`
	Parsed        int `json:"parsed"`
	LowConfidence int `json:"low_confidence"`
	Repaired      int `json:"repaired"`
	Grouped       int `json:"grouped"`
	Selected      int `json:"selected"`
	Discarded     int `json:"discarded"`

	SeriesUpserted   int `json:"series_upserted"`
	SeasonsUpserted  int `json:"seasons_upserted"`
	TorrentsUpserted int `json:"torrents_upserted"`

	Resolved       int `json:"resolved"`
	Failed         int `json:"failed"`
	TorrentsLinked int `json:"torrents_linked"`
}

func (r *Report) runCounts() database.RunCounts {
	return database.RunCounts{
		Parsed:           int64(r.Parsed),
		LowConfidence:    int64(r.LowConfidence),
		Grouped:          int64(r.Grouped),
		Selected:         int64(r.Selected),
		Discarded:        int64(r.Discarded),
		SeriesUpserted:   int64(r.SeriesUpserted),
		SeasonsUpserted:  int64(r.SeasonsUpserted),
		TorrentsUpserted: int64(r.TorrentsUpserted),
		Resolved:         int64(r.Resolved),
		Failed:           int64(r.Failed),
	}
}

// Service owns the end-to-end ingest flow. The store and loader are
// required; a nil analyzer skips name repair, a nil resolver skips
// identification, nil metrics and events skip reporting.
type Service struct {
	store    *database.Store
	loader   *feed.Loader
	names    NameAnalyzer
	resolver Resolver
	metrics  *metrics.Metrics
	events   EventSink
	config   *config.Config
	logger   zerolog.Logger
}

// NewService creates a pipeline service.
func NewService(store *database.Store, loader *feed.Loader, names NameAnalyzer, res Resolver, mets *metrics.Metrics, events EventSink, cfg *config.Config, logger zerolog.Logger) *Service {
	return &Service{
		store:    store,
		loader:   loader,
		names:    names,
		resolver: res,
		metrics:  mets,
		events:   events,
		config:   cfg,
		logger:   logger.With().Str("component", "pipeline").Logger(),
	}
}

// entry carries one feed item through parse, selection and persist.
type entry struct {
	item       feed.Item
	hasRelease bool
	parse      release.ParsedRelease
	repaired   bool
	selected   bool

	// seriesTitle keys the series row: the parsed name when one was
	// extracted, the raw topic title otherwise.
	seriesTitle string
	seriesYear  *int
}

// seasonNumber is the season the torrent files under. Episode-only
// names fall back to season 1: the forum's single-season shows rarely
// bother with a season marker.
func (e *entry) seasonNumber() int {
	if n := e.parse.SeasonNumber(); n > 0 {
		return n
	}
	if _, _, ok := e.parse.EpisodeSpan(); ok {
		return 1
	}
	return 0
}

// Run executes one full pass over the configured feed. The run is
// recorded whether it succeeds or not; the returned Report carries
// whatever counts were reached before a failure.
func (s *Service) Run(ctx context.Context, opts RunOptions) (*Report, error) {
	if opts.TriggeredBy == "" {
		opts.TriggeredBy = "manual"
	}

	start := time.Now()
	runID, err := s.store.StartPipelineRun(ctx, opts.TriggeredBy)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("run_id", runID).Str("triggered_by", opts.TriggeredBy).Msg("Pipeline run started")
	s.emit(EventRunStarted, map[string]interface{}{
		"run_id":       runID,
		"triggered_by": opts.TriggeredBy,
	})

	report := &Report{RunID: runID}
	runErr := s.run(ctx, report, opts)
	report.Duration = time.Since(start)

	if err := s.store.FinishPipelineRun(ctx, runID, report.runCounts(), runErr); err != nil {
		s.logger.Error().Err(err).Str("run_id", runID).Msg("Failed to record pipeline run")
	}

	status := metrics.RunCompleted
	if runErr != nil {
		status = metrics.RunFailed
	}
	s.observe(ctx, report, status)
	s.emit(EventRunFinished, map[string]interface{}{
		"run_id":           runID,
		"status":           status,
		"duration_seconds": report.Duration.Seconds(),
		"report":           report,
	})

	evt := s.logger.Info()
	if runErr != nil {
		evt = s.logger.Error().Err(runErr)
	}
	evt.Str("run_id", runID).
		Int("parsed", report.Parsed).
		Int("selected", report.Selected).
		Int("series", report.SeriesUpserted).
		Int("torrents", report.TorrentsUpserted).
		Int("resolved", report.Resolved).
		Dur("duration", report.Duration).
		Msg("Pipeline run finished")

	return report, runErr
}

func (s *Service) run(ctx context.Context, report *Report, opts RunOptions) error {
	topics, err := s.loader.Load(s.config.Feed.Path)
	if err != nil {
		return fmt.Errorf("load feed: %w", err)
	}
	report.Topics = len(topics)

	items := feed.Flatten(topics)
	if len(items) == 0 {
		s.logger.Info().Str("path", s.config.Feed.Path).Msg("Feed is empty, nothing to ingest")
		return nil
	}

	entries := s.parseItems(ctx, items, report)
	if err := ctx.Err(); err != nil {
		return err
	}

	s.selectReleases(entries, report)

	if err := s.persist(ctx, entries, report); err != nil {
		return err
	}

	if opts.SkipResolve || s.resolver == nil {
		return nil
	}
	return s.resolve(ctx, report, opts)
}

// parseItems parses topic titles and torrent names, repairing
// low-confidence parses with the name-analysis model when one is
// configured. Entries keep the input order so later selection stays
// deterministic.
func (s *Service) parseItems(ctx context.Context, items []feed.Item, report *Report) []entry {
	topicParses := make(map[*feed.Topic]release.ParsedRelease, report.Topics)
	for _, item := range items {
		if _, done := topicParses[item.Topic]; !done {
			topicParses[item.Topic] = release.Parse(item.Topic.Title)
		}
	}

	entries := make([]entry, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parseWorkers)
	for i, item := range items {
		g.Go(func() error {
			entries[i] = s.parseItem(gctx, item, topicParses[item.Topic])
			return nil
		})
	}
	_ = g.Wait()

	for i := range entries {
		if !entries[i].hasRelease {
			continue
		}
		report.Parsed++
		if entries[i].parse.Confidence == release.ConfidenceLow {
			report.LowConfidence++
		}
		if entries[i].repaired {
			report.Repaired++
		}
	}
	return entries
}

func (s *Service) parseItem(ctx context.Context, item feed.Item, topicParse release.ParsedRelease) entry {
	e := entry{item: item}
	if item.Torrent.Name == "" && item.Torrent.Link == "" {
		// A topic with no scraped torrents still enters the catalog so
		// its poster can drive resolution.
		e.seriesTitle, e.seriesYear = seriesIdentity(release.ParsedRelease{}, topicParse, item.Topic)
		return e
	}

	e.hasRelease = true
	e.parse = release.Parse(item.Torrent.Name)
	if item.Torrent.SizeBytes > 0 {
		// The scraped size beats whatever number is printed in the name.
		e.parse.SizeBytes = item.Torrent.SizeBytes
	}

	if e.parse.Confidence == release.ConfidenceLow {
		s.repair(ctx, &e, topicParse)
	}

	e.seriesTitle, e.seriesYear = seriesIdentity(e.parse, topicParse, item.Topic)
	e.parse.SeriesName = e.seriesTitle
	return e
}

// seriesIdentity picks the title and year the series row is keyed on.
// A high confidence parse names the series itself. For low confidence
// parses the topic title is the better witness, since the name
// substring is exactly the part the tokenizer could not vouch for.
func seriesIdentity(torrentParse, topicParse release.ParsedRelease, topic *feed.Topic) (string, *int) {
	title := torrentParse.SeriesName
	if title == "" || torrentParse.Confidence == release.ConfidenceLow {
		if topicParse.SeriesName != "" {
			title = topicParse.SeriesName
		}
	}
	if title == "" {
		title = strings.TrimSpace(topic.Title)
	}
	year := torrentParse.Year
	if year == nil {
		year = topicParse.Year
	}
	return title, year
}

// repair asks the name-analysis model for the season and episode the
// tokenizer could not find. Answers below the configured confidence
// floor are ignored and the deterministic values kept.
func (s *Service) repair(ctx context.Context, e *entry, topicParse release.ParsedRelease) {
	if s.names == nil || !s.names.IsConfigured() {
		return
	}

	hintName := e.parse.SeriesName
	if hintName == "" {
		hintName = topicParse.SeriesName
	}
	season, episode := 0, 0
	if e.parse.Season != nil {
		season = *e.parse.Season
	}
	if e.parse.Episode != nil {
		episode = *e.parse.Episode
	}

	analysis, err := s.names.AnalyzeName(ctx, e.parse.RawName, hintName, season, episode)
	if err != nil {
		s.logger.Warn().Err(err).Str("name", e.parse.RawName).Msg("Name analysis failed, keeping parsed values")
		return
	}
	if analysis.Confidence < s.config.OpenRouter.MinNameConfidence {
		s.logger.Debug().
			Str("name", e.parse.RawName).
			Float64("confidence", analysis.Confidence).
			Msg("Name analysis below confidence floor, keeping parsed values")
		return
	}

	if e.parse.Season == nil && analysis.Season > 0 {
		e.parse.Season = &analysis.Season
		e.repaired = true
	}
	if e.parse.Episode == nil && e.parse.EpisodeRange == nil && analysis.Episode > 0 {
		e.parse.Episode = &analysis.Episode
		e.repaired = true
	}
	if e.repaired {
		s.logger.Debug().
			Str("name", e.parse.RawName).
			Int("season", analysis.Season).
			Int("episode", analysis.Episode).
			Msg("Name repaired by analysis model")
	}
}

// selectReleases runs quality selection across every parsed release
// and marks the winners on their entries.
func (s *Service) selectReleases(entries []entry, report *Report) {
	indices := make([]int, 0, len(entries))
	releases := make([]release.ParsedRelease, 0, len(entries))
	for i := range entries {
		if !entries[i].hasRelease {
			continue
		}
		indices = append(indices, i)
		releases = append(releases, entries[i].parse)
	}
	if len(releases) == 0 {
		return
	}

	policy := decisioning.Policy{Allow4K: s.config.Quality.Allow4K}
	result := decisioning.SelectIndexed(releases, policy, s.logger)

	report.Grouped = result.Groups
	report.Selected = len(result.Selected)
	report.Discarded = len(result.Discarded)
	for _, idx := range result.Selected {
		entries[indices[idx]].selected = true
	}
}

type seasonKey struct {
	seriesID int64
	number   int
}

// persist writes winners and topic-only series to the store. A failed
// upsert skips that entry rather than aborting the run; aggregate
// recomputes happen once per touched series at the end.
func (s *Service) persist(ctx context.Context, entries []entry, report *Report) error {
	seriesIDs := make(map[string]int64)
	seasonIDs := make(map[seasonKey]int64)
	touched := make(map[int64]struct{})

	for i := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		e := &entries[i]
		if e.hasRelease && !e.selected {
			continue
		}

		seriesID, err := s.ensureSeries(ctx, e, seriesIDs, report)
		if err != nil {
			s.logger.Warn().Err(err).Str("title", e.seriesTitle).Msg("Series upsert failed, skipping entry")
			continue
		}
		if !e.hasRelease {
			continue
		}

		var seasonID *int64
		if number := e.seasonNumber(); number > 0 {
			id, err := s.ensureSeason(ctx, seriesID, number, e.parse.Year, seasonIDs, report)
			if err != nil {
				s.logger.Warn().Err(err).
					Int64("series_id", seriesID).
					Int("season", number).
					Msg("Season upsert failed, leaving torrent unassigned")
			} else {
				seasonID = &id
			}
		}

		if err := s.upsertTorrent(ctx, seriesID, seasonID, e); err != nil {
			s.logger.Warn().Err(err).Str("name", e.item.Torrent.Name).Msg("Torrent upsert failed")
			continue
		}
		report.TorrentsUpserted++
		touched[seriesID] = struct{}{}
	}

	for seriesID := range touched {
		if err := s.store.RecomputeSeriesAggregates(ctx, seriesID); err != nil {
			s.logger.Warn().Err(err).Int64("series_id", seriesID).Msg("Aggregate recompute failed")
		}
	}
	return nil
}

func (s *Service) ensureSeries(ctx context.Context, e *entry, cache map[string]int64, report *Report) (int64, error) {
	key := release.NormalizeName(e.seriesTitle)
	if id, ok := cache[key]; ok {
		return id, nil
	}

	id, err := s.store.UpsertSeries(ctx, database.UpsertSeriesParams{
		Title:           e.seriesTitle,
		Year:            e.seriesYear,
		SourceURL:       e.item.Topic.URL,
		SourcePosterURL: e.item.Topic.PosterURL,
	})
	if err != nil {
		return 0, err
	}
	cache[key] = id
	report.SeriesUpserted++
	return id, nil
}

func (s *Service) ensureSeason(ctx context.Context, seriesID int64, number int, year *int, cache map[seasonKey]int64, report *Report) (int64, error) {
	key := seasonKey{seriesID: seriesID, number: number}
	if id, ok := cache[key]; ok {
		return id, nil
	}

	id, err := s.store.UpsertSeason(ctx, database.UpsertSeasonParams{
		SeriesID:     seriesID,
		SeasonNumber: number,
		Year:         year,
	})
	if err != nil {
		return 0, err
	}
	cache[key] = id
	report.SeasonsUpserted++
	return id, nil
}

func (s *Service) upsertTorrent(ctx context.Context, seriesID int64, seasonID *int64, e *entry) error {
	torrent := e.item.Torrent

	sizeHuman := torrent.SizeHuman
	if sizeHuman == "" && e.parse.SizeBytes > 0 {
		sizeHuman = humanize.IBytes(uint64(e.parse.SizeBytes))
	}

	var episodeStart, episodeEnd *int
	if start, end, ok := e.parse.EpisodeSpan(); ok {
		episodeStart, episodeEnd = &start, &end
	}

	_, err := s.store.UpsertTorrent(ctx, database.UpsertTorrentParams{
		SeriesID:     seriesID,
		SeasonID:     seasonID,
		Name:         torrent.Name,
		ContentLink:  torrent.Link,
		LinkType:     torrent.Type,
		Quality:      string(e.parse.Quality),
		SizeBytes:    e.parse.SizeBytes,
		SizeHuman:    sizeHuman,
		SeasonNumber: e.parse.Season,
		EpisodeStart: episodeStart,
		EpisodeEnd:   episodeEnd,
		Confidence:   string(e.parse.Confidence),
	})
	return err
}

// resolve runs the identity chain over the backlog, then re-derives
// seasons for torrents the parse left unassigned.
func (s *Service) resolve(ctx context.Context, report *Report, opts RunOptions) error {
	res, err := s.resolver.ResolveBacklog(ctx, opts.RetryFailed)
	if err != nil {
		return fmt.Errorf("resolve backlog: %w", err)
	}
	report.Resolved = res.Resolved()
	report.Failed = res.Failed
	if s.metrics != nil {
		s.metrics.Resolutions.WithLabelValues(database.SeriesSearchMatched).Add(float64(res.SearchMatched))
		s.metrics.Resolutions.WithLabelValues(database.SeriesAIMatched).Add(float64(res.AIMatched))
		s.metrics.Resolutions.WithLabelValues(database.SeriesFailed).Add(float64(res.Failed))
	}

	linked, err := s.resolver.MatchAllSeasons(ctx)
	if err != nil {
		return fmt.Errorf("match seasons: %w", err)
	}
	report.TorrentsLinked = linked
	return nil
}

func (s *Service) observe(ctx context.Context, report *Report, status string) {
	if s.metrics == nil {
		return
	}

	s.metrics.ObserveRun(status, report.Duration.Seconds())
	s.metrics.NamesParsed.Add(float64(report.Parsed))
	s.metrics.LowConfidenceNames.Add(float64(report.LowConfidence))
	s.metrics.NamesRepaired.Add(float64(report.Repaired))
	s.metrics.TorrentsSelected.Add(float64(report.Selected))
	s.metrics.TorrentsDiscarded.Add(float64(report.Discarded))
	s.metrics.TorrentsLinked.Add(float64(report.TorrentsLinked))

	if stats, err := s.store.GetStats(ctx); err == nil {
		s.metrics.SetSeriesCounts(stats.SeriesByStatus)
	}
}

func (s *Service) emit(event string, payload interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.Broadcast(event, payload); err != nil {
		s.logger.Debug().Err(err).Str("event", event).Msg("Event broadcast failed")
	}
}
