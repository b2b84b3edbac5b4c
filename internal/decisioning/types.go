// Package decisioning groups parsed releases that cover the same
// content and keeps only the best copy of each group.
package decisioning

import (
	"fmt"

	"github.com/showsift/showsift/internal/release"
)

// Policy controls selection behavior.
type Policy struct {
	// Allow4K admits 2160p releases into normal ranking. When false,
	// 2160p is only selected if a group offers nothing else.
	Allow4K bool
}

// GroupKey identifies a unit of content: one episode, one episode
// range or one season pack of a series. Season is 0 when the name
// carried no season marker, Episode and EpisodeEnd are 0 when it
// carried no episode marker.
type GroupKey struct {
	Series     string
	Season     int
	Episode    int
	EpisodeEnd int
}

func (k GroupKey) String() string {
	if k.Episode == 0 && k.EpisodeEnd == 0 {
		return fmt.Sprintf("%s/S%02d", k.Series, k.Season)
	}
	if k.Episode == k.EpisodeEnd {
		return fmt.Sprintf("%s/S%02dE%02d", k.Series, k.Season, k.Episode)
	}
	return fmt.Sprintf("%s/S%02dE%02d-E%02d", k.Series, k.Season, k.Episode, k.EpisodeEnd)
}

// KeyFor derives the grouping key for a parsed release. Series names
// are normalized so separator and punctuation variants of the same
// title land in the same group.
func KeyFor(rel release.ParsedRelease) GroupKey {
	key := GroupKey{Series: release.NormalizeName(rel.SeriesName)}
	if rel.Season != nil {
		key.Season = *rel.Season
	}
	if start, end, ok := rel.EpisodeSpan(); ok {
		key.Episode = start
		key.EpisodeEnd = end
	}
	return key
}

// Discard records a release that lost selection and why.
type Discard struct {
	Release release.ParsedRelease
	Reason  string
}

// Result holds the winners and the audit trail of losers. Selected
// order follows first appearance of each group in the input.
type Result struct {
	Selected  []release.ParsedRelease
	Discarded []Discard
}

// IndexedDiscard records a losing position and why it lost.
type IndexedDiscard struct {
	Index  int
	Reason string
}

// IndexedResult reports winners and losers as positions into the
// input slice. Groups counts the distinct content groups seen.
type IndexedResult struct {
	Groups    int
	Selected  []int
	Discarded []IndexedDiscard
}
