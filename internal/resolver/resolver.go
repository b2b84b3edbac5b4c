// Package resolver assigns external identities to scraped series
// through a staged fallback chain: local reuse of already-resolved
// titles, metadata search, poster classification and a deep vision
// pass as the last resort. Each tier either produces a resolution or
// falls through to the next; provider failures count as no result and
// never abort the chain.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/showsift/showsift/internal/config"
	"github.com/showsift/showsift/internal/database"
	"github.com/showsift/showsift/internal/metadata/imdb"
	"github.com/showsift/showsift/internal/metadata/tmdb"
	"github.com/showsift/showsift/internal/release"
	"github.com/showsift/showsift/internal/vision/openrouter"
)

// Tier labels reported in outcomes and logs.
const (
	TierLocal  = "local"
	TierSearch = "search"
	TierVision = "vision"
	TierDeep   = "deep"
)

const (
	// Parsed names shorter than this cannot be searched; such series
	// are only resolvable from their poster.
	minSearchRunes = 3

	// Near-matching needs enough runes to be meaningful. Between very
	// short normalized titles a small edit distance says nothing, so
	// those are matched exactly or not at all.
	minNearMatchRunes = 5
)

// MetadataSearcher is the metadata provider surface the resolver
// needs. Satisfied by the TMDB client.
type MetadataSearcher interface {
	IsConfigured() bool
	SearchTV(ctx context.Context, query string, year int) ([]tmdb.NormalizedSeriesResult, error)
	FindByIMDbID(ctx context.Context, imdbID string) (*tmdb.NormalizedSeriesResult, error)
	GetSeriesDetails(ctx context.Context, id int) (*tmdb.NormalizedSeriesDetails, error)
}

// TitleSearcher is the fallback title lookup used when the primary
// search comes back empty. Satisfied by the IMDb client.
type TitleSearcher interface {
	IsConfigured() bool
	Search(ctx context.Context, query string) (*imdb.SearchResult, error)
	CountryName(ctx context.Context, code string) string
}

// VisionClassifier is the model surface for the poster tiers and for
// season grouping. Satisfied by the OpenRouter client.
type VisionClassifier interface {
	IsConfigured() bool
	ClassifyPoster(ctx context.Context, posterPath, expectedTitle string) (*openrouter.PosterAnalysis, error)
	IdentifySeries(ctx context.Context, posterPath, seriesName string) (*openrouter.Identification, error)
	SelectCandidate(ctx context.Context, analysis *openrouter.PosterAnalysis, candidates []openrouter.Candidate) (int, error)
	GroupSeasons(ctx context.Context, seriesName string, torrents []openrouter.TorrentName) (map[int][]int64, error)
}

// PosterSource downloads topic artwork for the vision tiers.
// Satisfied by the poster fetcher.
type PosterSource interface {
	Fetch(ctx context.Context, seriesID int64, posterURL string) (string, error)
}

// Outcome describes how one series resolution ended.
type Outcome struct {
	SeriesID int64
	Title    string
	Status   string
	Tier     string
	TMDBID   int64
	IMDBID   string
}

// Report tallies one resolver sweep.
type Report struct {
	Attempted     int
	SearchMatched int
	AIMatched     int
	Failed        int
	Skipped       int
}

// Resolved returns the number of series that gained an identity.
func (r Report) Resolved() int {
	return r.SearchMatched + r.AIMatched
}

// Service runs the resolution chain. Collaborators may be nil when
// unconfigured; tiers that depend on a missing collaborator are
// skipped.
type Service struct {
	store    *database.Store
	search   MetadataSearcher
	titles   TitleSearcher
	vision   VisionClassifier
	posters  PosterSource
	config   config.ResolverConfig
	logger   zerolog.Logger
	inflight *inflightSet
}

// NewService creates a resolver service.
func NewService(store *database.Store, search MetadataSearcher, titles TitleSearcher, vision VisionClassifier, posters PosterSource, cfg config.ResolverConfig, logger zerolog.Logger) *Service {
	return &Service{
		store:    store,
		search:   search,
		titles:   titles,
		vision:   vision,
		posters:  posters,
		config:   cfg,
		logger:   logger.With().Str("component", "resolver").Logger(),
		inflight: newInflightSet(),
	}
}

// ResolveBacklog runs the chain over every series awaiting an
// identity, oldest first. Series are processed concurrently up to the
// configured bound with at most one attempt in flight per series.
// includeFailed retries series whose previous attempts exhausted the
// chain.
func (s *Service) ResolveBacklog(ctx context.Context, includeFailed bool) (*Report, error) {
	backlog, err := s.store.ListResolutionBacklog(ctx, includeFailed)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	if len(backlog) == 0 {
		return report, nil
	}

	// Snapshot of resolved series for local matching. Series resolved
	// during this sweep join the snapshot on the next one.
	resolved, err := s.store.ListResolvedSeries(ctx)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int("backlog", len(backlog)).
		Int("resolved", len(resolved)).
		Bool("includeFailed", includeFailed).
		Msg("Starting resolution sweep")

	outcomes := make([]*Outcome, len(backlog))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Concurrency)

	for i, series := range backlog {
		if !s.inflight.tryAcquire(series.ID) {
			s.logger.Debug().Int64("seriesId", series.ID).Msg("Resolution already in flight, skipping")
			continue
		}
		g.Go(func() error {
			defer s.inflight.release(series.ID)

			outcome, err := s.resolveSeries(gctx, series, resolved, false)
			if err != nil {
				return err
			}
			outcomes[i] = outcome
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, outcome := range outcomes {
		if outcome == nil {
			report.Skipped++
			continue
		}
		report.Attempted++
		switch outcome.Status {
		case database.SeriesSearchMatched:
			report.SearchMatched++
		case database.SeriesAIMatched:
			report.AIMatched++
		default:
			report.Failed++
		}
	}

	s.logger.Info().
		Int("attempted", report.Attempted).
		Int("searchMatched", report.SearchMatched).
		Int("aiMatched", report.AIMatched).
		Int("failed", report.Failed).
		Msg("Resolution sweep completed")

	return report, nil
}

// ResolveOne runs the chain for a single series. force re-runs the
// chain even when the series already holds an identity and overwrites
// the stored result with whatever the chain finds.
func (s *Service) ResolveOne(ctx context.Context, seriesID int64, force bool) (*Outcome, error) {
	series, err := s.store.GetSeries(ctx, seriesID)
	if err != nil {
		return nil, err
	}

	if !force && (series.Status == database.SeriesSearchMatched || series.Status == database.SeriesAIMatched) {
		return &Outcome{
			SeriesID: series.ID,
			Title:    series.Title,
			Status:   series.Status,
			TMDBID:   series.TMDBID.Int64,
			IMDBID:   series.IMDBID.String,
		}, nil
	}

	if !s.inflight.tryAcquire(series.ID) {
		return nil, fmt.Errorf("resolution for series %d already in flight", series.ID)
	}
	defer s.inflight.release(series.ID)

	resolved, err := s.store.ListResolvedSeries(ctx)
	if err != nil {
		return nil, err
	}

	return s.resolveSeries(ctx, *series, resolved, force)
}

// resolveSeries walks the tiers for one series. Store failures abort
// with an error; provider failures are logged and downgrade to a
// no-result for their tier so control falls through.
func (s *Service) resolveSeries(ctx context.Context, series database.Series, resolved []database.Series, force bool) (*Outcome, error) {
	logger := s.logger.With().Int64("seriesId", series.ID).Str("title", series.Title).Logger()

	parsed := release.Parse(series.Title)
	searchName := parsed.SeriesName
	year := 0
	if series.Year.Valid {
		year = int(series.Year.Int64)
	} else if parsed.Year != nil {
		year = *parsed.Year
	}

	if utf8.RuneCountInString(searchName) >= minSearchRunes {
		if res, ok := s.matchLocal(series, resolved); ok {
			return s.accept(ctx, series, res, TierLocal, force, logger)
		}
		if res, ok := s.matchSearch(ctx, searchName, year, logger); ok {
			return s.accept(ctx, series, res, TierSearch, force, logger)
		}
	} else {
		logger.Debug().Str("searchName", searchName).Msg("Name too short to search, skipping search tiers")
	}

	if posterPath := s.fetchPoster(ctx, series, logger); posterPath != "" {
		if analysis := s.classifyPoster(ctx, posterPath, series.Title, logger); analysis != nil {
			if res, ok := s.resolveFromIDs(ctx, analysis.TMDBID, analysis.IMDbID, logger); ok {
				return s.accept(ctx, series, res, TierVision, force, logger)
			}
			if res, ok := s.matchWithContext(ctx, analysis, searchName, year, logger); ok {
				return s.accept(ctx, series, res, TierVision, force, logger)
			}
		}
		if res, ok := s.identifyDeep(ctx, posterPath, series.Title, logger); ok {
			return s.accept(ctx, series, res, TierDeep, force, logger)
		}
	}

	return s.exhaust(ctx, series, logger)
}

// matchLocal reuses the identity of an already-resolved series whose
// normalized title matches exactly or within the edit distance bound.
func (s *Service) matchLocal(series database.Series, resolved []database.Series) (database.Resolution, bool) {
	for _, candidate := range resolved {
		if candidate.ID == series.ID {
			continue
		}
		if !s.localTitlesMatch(series.NormalizedTitle, candidate.NormalizedTitle) {
			continue
		}

		res := database.Resolution{
			Status:      database.SeriesSearchMatched,
			IMDBID:      candidate.IMDBID.String,
			Country:     candidate.Country.String,
			Overview:    candidate.Overview.String,
			PosterURL:   candidate.PosterURL.String,
			BackdropURL: candidate.BackdropURL.String,
		}
		if candidate.TMDBID.Valid {
			res.TMDBID = &candidate.TMDBID.Int64
		}
		if candidate.Year.Valid {
			year := int(candidate.Year.Int64)
			res.Year = &year
		}
		if candidate.Rating.Valid {
			res.Rating = &candidate.Rating.Float64
		}
		return res, true
	}

	return database.Resolution{}, false
}

func (s *Service) localTitlesMatch(a, b string) bool {
	if a == b {
		return true
	}
	if utf8.RuneCountInString(a) < minNearMatchRunes || utf8.RuneCountInString(b) < minNearMatchRunes {
		return false
	}
	return fuzzy.LevenshteinDistance(a, b) <= s.config.MaxEditDistance
}

// matchSearch accepts a provider result only when exactly one strong
// candidate exists: title similarity at or above the threshold and,
// when both years are known, within the year tolerance. An empty
// result set falls back to the title autocomplete provider.
func (s *Service) matchSearch(ctx context.Context, name string, year int, logger zerolog.Logger) (database.Resolution, bool) {
	if s.search == nil || !s.search.IsConfigured() {
		return database.Resolution{}, false
	}

	results, err := s.search.SearchTV(ctx, name, year)
	if err != nil {
		logger.Warn().Err(err).Msg("Metadata search failed")
		return database.Resolution{}, false
	}
	if len(results) == 0 {
		return s.matchTitleFallback(ctx, name, year, logger)
	}

	var strong []tmdb.NormalizedSeriesResult
	for _, result := range results {
		if s.isStrongCandidate(result, name, year) {
			strong = append(strong, result)
		}
	}
	if len(strong) != 1 {
		logger.Debug().
			Int("results", len(results)).
			Int("strong", len(strong)).
			Msg("Search result ambiguous")
		return database.Resolution{}, false
	}

	return s.resolutionFromResult(ctx, strong[0], database.SeriesSearchMatched), true
}

func (s *Service) isStrongCandidate(result tmdb.NormalizedSeriesResult, name string, year int) bool {
	similarity := release.NameSimilarity(name, result.Title)
	if alt := release.NameSimilarity(name, result.OriginalTitle); alt > similarity {
		similarity = alt
	}
	if similarity < s.config.SimilarityThreshold {
		return false
	}
	if year > 0 && result.Year > 0 && abs(result.Year-year) > s.config.YearTolerance {
		return false
	}
	return true
}

// matchTitleFallback tries the autocomplete provider when the primary
// search comes back empty, then maps the hit back through the external
// id lookup.
func (s *Service) matchTitleFallback(ctx context.Context, name string, year int, logger zerolog.Logger) (database.Resolution, bool) {
	if s.titles == nil || !s.titles.IsConfigured() {
		return database.Resolution{}, false
	}

	hit, err := s.titles.Search(ctx, name)
	if err != nil {
		if !errors.Is(err, imdb.ErrNotFound) {
			logger.Warn().Err(err).Msg("Title fallback search failed")
		}
		return database.Resolution{}, false
	}
	if release.NameSimilarity(name, hit.Title) < s.config.SimilarityThreshold {
		return database.Resolution{}, false
	}
	if year > 0 && hit.Year > 0 && abs(hit.Year-year) > s.config.YearTolerance {
		return database.Resolution{}, false
	}

	found, err := s.search.FindByIMDbID(ctx, hit.IMDbID)
	if err != nil {
		logger.Debug().Err(err).Str("imdbId", hit.IMDbID).Msg("No provider entry for fallback hit")
		return database.Resolution{}, false
	}

	logger.Debug().Str("imdbId", hit.IMDbID).Int("tmdbId", found.ID).Msg("Matched via title fallback")
	res := s.resolutionFromResult(ctx, *found, database.SeriesSearchMatched)
	if res.IMDBID == "" {
		res.IMDBID = hit.IMDbID
	}
	return res, true
}

// fetchPoster downloads the topic artwork when the vision tiers can
// use it. Returns an empty path when no poster is available or the
// vision collaborator is not configured.
func (s *Service) fetchPoster(ctx context.Context, series database.Series, logger zerolog.Logger) string {
	if s.posters == nil || s.vision == nil || !s.vision.IsConfigured() {
		return ""
	}
	if !series.SourcePosterURL.Valid || series.SourcePosterURL.String == "" {
		logger.Debug().Msg("No topic poster available for vision tiers")
		return ""
	}

	path, err := s.posters.Fetch(ctx, series.ID, series.SourcePosterURL.String)
	if err != nil {
		logger.Warn().Err(err).Msg("Poster download failed")
		return ""
	}
	if err := s.store.SetSeriesPosterPath(ctx, series.ID, path); err != nil {
		logger.Warn().Err(err).Msg("Failed to record poster path")
	}
	return path
}

func (s *Service) classifyPoster(ctx context.Context, posterPath, title string, logger zerolog.Logger) *openrouter.PosterAnalysis {
	analysis, err := s.vision.ClassifyPoster(ctx, posterPath, title)
	if err != nil {
		logger.Warn().Err(err).Msg("Poster classification failed")
		return nil
	}

	logger.Debug().
		Str("visionTitle", analysis.Title).
		Str("country", analysis.Country).
		Bool("directIds", analysis.HasIDs()).
		Msg("Poster classified")
	return analysis
}

// resolveFromIDs turns model-provided identifiers into a resolution.
// A TMDB id is enriched from the detail endpoint; an IMDb-only answer
// is mapped through the find endpoint. When the provider cannot
// confirm them the identifiers are recorded as given.
func (s *Service) resolveFromIDs(ctx context.Context, tmdbID int, imdbID string, logger zerolog.Logger) (database.Resolution, bool) {
	if tmdbID <= 0 && imdbID == "" {
		return database.Resolution{}, false
	}

	providerUp := s.search != nil && s.search.IsConfigured()

	if tmdbID > 0 && providerUp {
		details, err := s.search.GetSeriesDetails(ctx, tmdbID)
		if err == nil {
			res := s.resolutionFromResult(ctx, details.NormalizedSeriesResult, database.SeriesAIMatched)
			if res.IMDBID == "" {
				res.IMDBID = imdbID
			}
			return res, true
		}
		logger.Debug().Err(err).Int("tmdbId", tmdbID).Msg("Detail lookup for model ids failed")
	}

	if tmdbID <= 0 && providerUp {
		found, err := s.search.FindByIMDbID(ctx, imdbID)
		if err == nil {
			res := s.resolutionFromResult(ctx, *found, database.SeriesAIMatched)
			if res.IMDBID == "" {
				res.IMDBID = imdbID
			}
			return res, true
		}
		logger.Debug().Err(err).Str("imdbId", imdbID).Msg("No provider entry for model ids")
	}

	res := database.Resolution{Status: database.SeriesAIMatched, IMDBID: imdbID}
	if tmdbID > 0 {
		id := int64(tmdbID)
		res.TMDBID = &id
	}
	return res, true
}

// matchWithContext re-runs the provider search once with what the
// vision pass extracted: its title and year, with candidates filtered
// by year and origin country. A single survivor is accepted; several
// survivors go back to the model for selection. A declined selection
// falls through to the deep tier rather than guessing.
func (s *Service) matchWithContext(ctx context.Context, analysis *openrouter.PosterAnalysis, fallbackName string, fallbackYear int, logger zerolog.Logger) (database.Resolution, bool) {
	if s.search == nil || !s.search.IsConfigured() {
		return database.Resolution{}, false
	}

	name := analysis.Title
	if name == "" {
		name = fallbackName
	}
	if name == "" {
		return database.Resolution{}, false
	}
	year := analysis.Year
	if year == 0 {
		year = fallbackYear
	}

	results, err := s.search.SearchTV(ctx, name, year)
	if err != nil {
		logger.Warn().Err(err).Msg("Context search failed")
		return database.Resolution{}, false
	}
	if len(results) == 0 {
		return database.Resolution{}, false
	}

	candidates := s.filterByContext(ctx, results, analysis, year)
	if len(candidates) == 1 {
		logger.Debug().Int("tmdbId", candidates[0].ID).Msg("Context filters left a single candidate")
		return s.resolutionFromResult(ctx, candidates[0], database.SeriesAIMatched), true
	}

	idx, err := s.vision.SelectCandidate(ctx, analysis, toSelectable(candidates))
	if err != nil {
		if !errors.Is(err, openrouter.ErrNoMatch) {
			logger.Warn().Err(err).Msg("Candidate selection failed")
		}
		return database.Resolution{}, false
	}

	logger.Debug().Int("tmdbId", candidates[idx].ID).Msg("Model selected a candidate")
	return s.resolutionFromResult(ctx, candidates[idx], database.SeriesAIMatched), true
}

// filterByContext narrows candidates to the vision year and country
// when those are known. Filters that would empty the list are skipped;
// they are hints, not hard requirements.
func (s *Service) filterByContext(ctx context.Context, results []tmdb.NormalizedSeriesResult, analysis *openrouter.PosterAnalysis, year int) []tmdb.NormalizedSeriesResult {
	candidates := results

	if year > 0 {
		var exact []tmdb.NormalizedSeriesResult
		for _, result := range candidates {
			if result.Year == year {
				exact = append(exact, result)
			}
		}
		if len(exact) > 0 {
			candidates = exact
		}
	}

	if analysis.Country != "" && !strings.EqualFold(analysis.Country, "Other") {
		var matched []tmdb.NormalizedSeriesResult
		for _, result := range candidates {
			if s.countryMatches(ctx, result.OriginCountry, analysis.Country) {
				matched = append(matched, result)
			}
		}
		if len(matched) > 0 {
			candidates = matched
		}
	}

	return candidates
}

func (s *Service) countryMatches(ctx context.Context, codes []string, country string) bool {
	for _, code := range codes {
		if strings.EqualFold(code, country) || strings.EqualFold(s.countryName(ctx, code), country) {
			return true
		}
	}
	return false
}

// identifyDeep is the last tier: the deep vision model names the show
// outright. Its answer stands unless it labels itself low confidence.
func (s *Service) identifyDeep(ctx context.Context, posterPath, title string, logger zerolog.Logger) (database.Resolution, bool) {
	identified, err := s.vision.IdentifySeries(ctx, posterPath, title)
	if err != nil {
		logger.Warn().Err(err).Msg("Deep identification failed")
		return database.Resolution{}, false
	}
	if !identified.HasIDs() {
		logger.Debug().Str("series", identified.SeriesName).Msg("Deep identification produced no ids")
		return database.Resolution{}, false
	}
	if strings.EqualFold(identified.Confidence, "low") {
		logger.Debug().Str("series", identified.SeriesName).Msg("Deep identification confidence too low")
		return database.Resolution{}, false
	}

	return s.resolveFromIDs(ctx, identified.TMDBID, identified.IMDbID, logger)
}

// accept writes a resolution through the status guard and provisions
// seasons from provider metadata. When the guard rejects the write the
// stored identity stands and is reported instead.
func (s *Service) accept(ctx context.Context, series database.Series, res database.Resolution, tier string, force bool, logger zerolog.Logger) (*Outcome, error) {
	var applied bool
	if force {
		if err := s.store.ForceResolveSeries(ctx, series.ID, res); err != nil {
			return nil, err
		}
		applied = true
	} else {
		var err error
		applied, err = s.store.ResolveSeries(ctx, series.ID, res)
		if err != nil {
			return nil, err
		}
	}

	if !applied {
		current, err := s.store.GetSeries(ctx, series.ID)
		if err != nil {
			return nil, err
		}
		logger.Debug().Str("tier", tier).Str("status", current.Status).Msg("Series already resolved, keeping stored identity")
		return &Outcome{
			SeriesID: series.ID,
			Title:    series.Title,
			Status:   current.Status,
			TMDBID:   current.TMDBID.Int64,
			IMDBID:   current.IMDBID.String,
		}, nil
	}

	outcome := &Outcome{
		SeriesID: series.ID,
		Title:    series.Title,
		Status:   res.Status,
		Tier:     tier,
		IMDBID:   res.IMDBID,
	}
	if res.TMDBID != nil {
		outcome.TMDBID = *res.TMDBID
	}

	logger.Info().
		Str("tier", tier).
		Str("status", res.Status).
		Int64("tmdbId", outcome.TMDBID).
		Str("imdbId", outcome.IMDBID).
		Msg("Series resolved")

	s.provisionSeasons(ctx, series.ID, int(outcome.TMDBID), logger)

	return outcome, nil
}

// exhaust records a failed resolution. Matched series are never
// demoted, so an identity written by a concurrent attempt survives.
func (s *Service) exhaust(ctx context.Context, series database.Series, logger zerolog.Logger) (*Outcome, error) {
	marked, err := s.store.MarkSeriesFailed(ctx, series.ID)
	if err != nil {
		return nil, err
	}

	status := database.SeriesFailed
	if !marked {
		current, err := s.store.GetSeries(ctx, series.ID)
		if err != nil {
			return nil, err
		}
		status = current.Status
	}

	logger.Info().Str("status", status).Msg("Resolution exhausted, no identity found")
	return &Outcome{SeriesID: series.ID, Title: series.Title, Status: status}, nil
}

// resolutionFromResult converts a provider hit into a resolution,
// backfilling the IMDb id from the detail endpoint when the search
// result lacks one.
func (s *Service) resolutionFromResult(ctx context.Context, result tmdb.NormalizedSeriesResult, status string) database.Resolution {
	res := database.Resolution{
		Status:      status,
		IMDBID:      result.ImdbID,
		Overview:    result.Overview,
		PosterURL:   result.PosterURL,
		BackdropURL: result.BackdropURL,
	}
	if len(result.OriginCountry) > 0 {
		res.Country = s.countryName(ctx, result.OriginCountry[0])
	}
	if result.ID > 0 {
		id := int64(result.ID)
		res.TMDBID = &id
	}
	if result.Year > 0 {
		year := result.Year
		res.Year = &year
	}
	if result.Rating > 0 {
		rating := result.Rating
		res.Rating = &rating
	}

	if res.IMDBID == "" && result.ID > 0 && s.search != nil {
		if details, err := s.search.GetSeriesDetails(ctx, result.ID); err == nil {
			res.IMDBID = details.ImdbID
		}
	}

	return res
}

// provisionSeasons creates season rows from provider metadata so that
// season matching has targets before any torrent is linked.
func (s *Service) provisionSeasons(ctx context.Context, seriesID int64, tmdbID int, logger zerolog.Logger) {
	if tmdbID <= 0 || s.search == nil || !s.search.IsConfigured() {
		return
	}

	details, err := s.search.GetSeriesDetails(ctx, tmdbID)
	if err != nil {
		logger.Warn().Err(err).Int("tmdbId", tmdbID).Msg("Season provisioning skipped")
		return
	}

	provisioned := 0
	for _, season := range details.Seasons {
		params := database.UpsertSeasonParams{
			SeriesID:     seriesID,
			SeasonNumber: season.SeasonNumber,
			AirDate:      season.AirDate,
		}
		if season.EpisodeCount > 0 {
			params.EpisodeCount = &season.EpisodeCount
		}
		if season.Year > 0 {
			params.Year = &season.Year
		}
		if _, err := s.store.UpsertSeason(ctx, params); err != nil {
			logger.Warn().Err(err).Int("season", season.SeasonNumber).Msg("Failed to provision season")
			continue
		}
		provisioned++
	}

	if provisioned > 0 {
		logger.Debug().Int("seasons", provisioned).Msg("Seasons provisioned from provider metadata")
	}
}

// countryName expands an ISO 3166-1 code to a display name through the
// title provider's country table. Falls back to the code itself.
func (s *Service) countryName(ctx context.Context, code string) string {
	if code == "" {
		return ""
	}
	if s.titles == nil {
		return code
	}
	return s.titles.CountryName(ctx, code)
}

func toSelectable(results []tmdb.NormalizedSeriesResult) []openrouter.Candidate {
	candidates := make([]openrouter.Candidate, len(results))
	for i, result := range results {
		candidates[i] = openrouter.Candidate{
			TMDBID:        result.ID,
			Title:         result.Title,
			OriginalTitle: result.OriginalTitle,
			Overview:      result.Overview,
		}
	}
	return candidates
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
