package release

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/moistari/rls"
)

var (
	// Matches leading tracker site tags such as "www.1TamilMV.yt - "
	sitePrefixPattern = regexp.MustCompile(`(?i)^\s*www\.\S+\s*-?\s*`)

	// Matches complete bracket tags like [Tamil + Telugu] or (HQ)
	bracketTagPattern = regexp.MustCompile(`\[[^\[\]]*\]|\([^()]*\)|\{[^{}]*\}`)

	separatorRunPattern = regexp.MustCompile(`[\s._-]+`)
)

// minSeriesNameRunes is the shortest series name still considered a
// usable match key. Anything shorter marks the parse low confidence.
const minSeriesNameRunes = 3

// Parse turns a raw release or topic name into a ParsedRelease. It
// never fails: names with no recognizable structure come back with an
// empty series name and low confidence rather than an error. The
// series name is everything before the first recognized token,
// stripped of site tags, bracket groups and separator runs.
func Parse(raw string) ParsedRelease {
	tokens := Tokenize(raw)

	rel := ParsedRelease{RawName: raw, Quality: QualityUnknown}
	nameEnd := len(raw)
	if len(tokens) > 0 {
		nameEnd = tokens[0].Start
	}

	for _, tok := range tokens {
		switch tok.Kind {
		case TokenSeason:
			n := tok.Number
			rel.Season = &n
		case TokenEpisode:
			n := tok.Number
			rel.Episode = &n
		case TokenEpisodeRange:
			rel.EpisodeRange = &EpisodeRange{Start: tok.Number, End: tok.RangeEnd}
		case TokenYear:
			n := tok.Number
			rel.Year = &n
		case TokenQuality:
			rel.Quality = tok.Quality
		case TokenSize:
			rel.SizeBytes = tok.Bytes
		}
	}

	rel.SeriesName = cleanSeriesName(raw[:nameEnd])
	enrich(&rel)

	if (rel.Season == nil && rel.Episode == nil && rel.EpisodeRange == nil) ||
		utf8.RuneCountInString(rel.SeriesName) < minSeriesNameRunes {
		rel.Confidence = ConfidenceLow
	} else {
		rel.Confidence = ConfidenceHigh
	}
	return rel
}

// ParseAll parses a batch of names preserving input order.
func ParseAll(names []string) []ParsedRelease {
	parsed := make([]ParsedRelease, len(names))
	for i, name := range names {
		parsed[i] = Parse(name)
	}
	return parsed
}

func cleanSeriesName(s string) string {
	s = sitePrefixPattern.ReplaceAllString(s, "")
	s = bracketTagPattern.ReplaceAllString(s, " ")
	s = separatorRunPattern.ReplaceAllString(s, " ")
	s = strings.Trim(s, " ([{)]}:,-")
	return strings.TrimSpace(s)
}

// enrich fills release attributes the tokenizer does not cover from a
// general purpose release name parser. Enrichment only adds fields;
// tokenizer results are never overwritten.
func enrich(rel *ParsedRelease) {
	r := rls.ParseString(rel.RawName)
	rel.Source = r.Source
	if len(r.Codec) > 0 {
		rel.Codec = r.Codec[0]
	}
	rel.ReleaseGroup = r.Group
}
