package decisioning

import (
	"github.com/rs/zerolog"

	"github.com/showsift/showsift/internal/release"
)

const (
	ReasonLowerQuality = "lower quality available"
	ReasonSmallerSize  = "smaller copy of same quality"
	ReasonDuplicate    = "duplicate of selected release"
	Reason4KExcluded   = "4k excluded by policy"
)

// Select partitions releases into content groups and picks one winner
// per group. Ranking is quality first, then size, then earliest seen.
// 2160p releases are excluded unless the policy allows them or a
// group has no other quality to offer. Select does not modify its
// input and always produces the same result for the same input, so
// re-running it over an unchanged scrape is a no-op.
func Select(releases []release.ParsedRelease, policy Policy, logger zerolog.Logger) Result {
	indexed := SelectIndexed(releases, policy, logger)

	var result Result
	for _, idx := range indexed.Selected {
		result.Selected = append(result.Selected, releases[idx])
	}
	for _, d := range indexed.Discarded {
		result.Discarded = append(result.Discarded, Discard{Release: releases[d.Index], Reason: d.Reason})
	}
	return result
}

// SelectIndexed is Select for callers that carry state alongside each
// release: winners and losers are reported as positions into the
// input slice instead of copies, so a release can be traced back to
// whatever produced it.
func SelectIndexed(releases []release.ParsedRelease, policy Policy, logger zerolog.Logger) IndexedResult {
	groups := make(map[GroupKey][]int)
	var order []GroupKey
	for i, rel := range releases {
		key := KeyFor(rel)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}

	result := IndexedResult{Groups: len(order)}
	for _, key := range order {
		indices := groups[key]

		candidates := indices
		if !policy.Allow4K {
			var non4K []int
			for _, idx := range indices {
				if releases[idx].Quality != release.Quality2160p {
					non4K = append(non4K, idx)
				}
			}
			switch {
			case len(non4K) == len(indices):
				// nothing to exclude
			case len(non4K) == 0:
				logger.Debug().
					Str("group", key.String()).
					Int("releases", len(indices)).
					Msg("Group only offers 2160p, keeping it")
			default:
				for _, idx := range indices {
					if releases[idx].Quality == release.Quality2160p {
						logger.Debug().
							Str("group", key.String()).
							Str("release", releases[idx].RawName).
							Msg("Rejected - 4k excluded by policy")
						result.Discarded = append(result.Discarded, IndexedDiscard{Index: idx, Reason: Reason4KExcluded})
					}
				}
				candidates = non4K
			}
		}

		best := candidates[0]
		for _, idx := range candidates[1:] {
			if beats(releases[idx], releases[best]) {
				result.Discarded = append(result.Discarded, IndexedDiscard{Index: best, Reason: reasonFor(releases[best], releases[idx])})
				best = idx
			} else {
				result.Discarded = append(result.Discarded, IndexedDiscard{Index: idx, Reason: reasonFor(releases[idx], releases[best])})
			}
		}

		logger.Debug().
			Str("group", key.String()).
			Str("release", releases[best].RawName).
			Str("quality", string(releases[best].Quality)).
			Int("candidates", len(indices)).
			Msg("Selected release for group")
		result.Selected = append(result.Selected, best)
	}

	return result
}

// beats reports whether a strictly outranks b. Equal rank and size is
// not a win, which keeps the earliest seen release in place.
func beats(a, b release.ParsedRelease) bool {
	if a.Quality.Rank() != b.Quality.Rank() {
		return a.Quality.Rank() > b.Quality.Rank()
	}
	return a.SizeBytes > b.SizeBytes
}

func reasonFor(loser, winner release.ParsedRelease) string {
	switch {
	case loser.Quality.Rank() < winner.Quality.Rank():
		return ReasonLowerQuality
	case loser.Quality.Rank() == winner.Quality.Rank() && loser.SizeBytes < winner.SizeBytes:
		return ReasonSmallerSize
	}
	return ReasonDuplicate
}
