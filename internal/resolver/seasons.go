package resolver

import (
	"context"
	"regexp"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/showsift/showsift/internal/database"
	"github.com/showsift/showsift/internal/release"
	"github.com/showsift/showsift/internal/vision/openrouter"
)

// maxGroupBatch caps how many names go to the model per grouping call.
const maxGroupBatch = 20

// seasonPatterns is the loose sweep for names the parser passed on.
var seasonPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b[Ss](\d+)\b`),
	regexp.MustCompile(`(?i)\bSeason\s*(\d+)\b`),
	regexp.MustCompile(`(?i)\bSeries\s*(\d+)\b`),
}

// MatchSeasons assigns a series' unlinked torrents to season rows.
// Parsed season numbers and a regex sweep cover most names; whatever
// is left goes to the text model for grouping. Torrents the model
// cannot place stay unassigned for the next sweep. Returns the number
// of torrents linked.
func (s *Service) MatchSeasons(ctx context.Context, seriesID int64) (int, error) {
	series, err := s.store.GetSeries(ctx, seriesID)
	if err != nil {
		return 0, err
	}
	torrents, err := s.store.ListUnassignedTorrents(ctx, seriesID)
	if err != nil {
		return 0, err
	}
	if len(torrents) == 0 {
		return 0, nil
	}

	logger := s.logger.With().Int64("seriesId", seriesID).Str("title", series.Title).Logger()

	groups := make(map[int][]database.Torrent)
	var uncertain []database.Torrent
	for _, torrent := range torrents {
		number := 0
		if torrent.SeasonNumber.Valid {
			number = int(torrent.SeasonNumber.Int64)
		} else if n, ok := extractSeason(torrent.Name); ok {
			number = n
		}
		if number > 0 {
			groups[number] = append(groups[number], torrent)
		} else {
			uncertain = append(uncertain, torrent)
		}
	}

	if len(uncertain) > 0 {
		s.groupUncertain(ctx, series.Title, uncertain, groups, logger)
	}

	linked := 0
	for number, members := range groups {
		seasonID, err := s.ensureSeason(ctx, seriesID, number, members)
		if err != nil {
			logger.Warn().Err(err).Int("season", number).Msg("Failed to upsert season")
			continue
		}
		for _, torrent := range members {
			if err := s.store.LinkTorrentToSeason(ctx, torrent.ID, seasonID); err != nil {
				logger.Warn().Err(err).Int64("torrentId", torrent.ID).Msg("Failed to link torrent")
				continue
			}
			linked++
		}
	}

	if linked > 0 {
		if err := s.store.RecomputeSeriesAggregates(ctx, seriesID); err != nil {
			logger.Warn().Err(err).Msg("Failed to recompute series aggregates")
		}
	}

	logger.Info().
		Int("torrents", len(torrents)).
		Int("linked", linked).
		Int("seasons", len(groups)).
		Msg("Season matching completed")

	return linked, nil
}

// MatchAllSeasons runs season matching for every series.
func (s *Service) MatchAllSeasons(ctx context.Context) (int, error) {
	series, err := s.store.ListSeries(ctx)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, sr := range series {
		linked, err := s.MatchSeasons(ctx, sr.ID)
		if err != nil {
			s.logger.Warn().Err(err).Int64("seriesId", sr.ID).Msg("Season matching failed")
			continue
		}
		total += linked
	}
	return total, nil
}

// groupUncertain sends names the fast paths could not place to the
// text model in batches. Ids the model invents are dropped; a model
// error leaves the batch unassigned.
func (s *Service) groupUncertain(ctx context.Context, seriesTitle string, uncertain []database.Torrent, groups map[int][]database.Torrent, logger zerolog.Logger) {
	if s.vision == nil || !s.vision.IsConfigured() {
		logger.Debug().Int("torrents", len(uncertain)).Msg("No model available for season grouping")
		return
	}

	byID := make(map[int64]database.Torrent, len(uncertain))
	names := make([]openrouter.TorrentName, 0, len(uncertain))
	for _, torrent := range uncertain {
		byID[torrent.ID] = torrent
		names = append(names, openrouter.TorrentName{ID: torrent.ID, Name: torrent.Name})
	}

	for start := 0; start < len(names); start += maxGroupBatch {
		batch := names[start:min(start+maxGroupBatch, len(names))]
		assigned, err := s.vision.GroupSeasons(ctx, seriesTitle, batch)
		if err != nil {
			logger.Warn().Err(err).Msg("Season grouping failed")
			return
		}
		for number, ids := range assigned {
			for _, id := range ids {
				if torrent, ok := byID[id]; ok {
					groups[number] = append(groups[number], torrent)
				}
			}
		}
	}
}

// ensureSeason creates or refreshes the season row for a group. The
// season year is the year named most often across member names.
func (s *Service) ensureSeason(ctx context.Context, seriesID int64, number int, members []database.Torrent) (int64, error) {
	params := database.UpsertSeasonParams{
		SeriesID:     seriesID,
		SeasonNumber: number,
	}
	if year := commonYear(members); year > 0 {
		params.Year = &year
	}
	return s.store.UpsertSeason(ctx, params)
}

// extractSeason finds a season number in a raw name.
func extractSeason(name string) (int, bool) {
	for _, re := range seasonPatterns {
		if m := re.FindStringSubmatch(name); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
				return n, true
			}
		}
	}
	return 0, false
}

// commonYear returns the year named most often across member names,
// ties going to the earlier year.
func commonYear(members []database.Torrent) int {
	counts := make(map[int]int)
	for _, torrent := range members {
		if parsed := release.Parse(torrent.Name); parsed.Year != nil {
			counts[*parsed.Year]++
		}
	}

	best, bestCount := 0, 0
	for year, count := range counts {
		if count > bestCount || (count == bestCount && year < best) {
			best, bestCount = year, count
		}
	}
	return best
}
