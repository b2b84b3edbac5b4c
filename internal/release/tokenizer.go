package release

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Pre-compiled patterns for release name tokenization. Keyword
// anchored forms are tried before bare numeric forms so that an
// anchored reading wins whenever a digit run is ambiguous.
var (
	// Matches: S01 EP (01-10), S01EP(01-10)
	combinedParenRangePattern = regexp.MustCompile(`(?i)\bS(\d{1,2})[\s._-]*E(?:P)?[\s._-]*\(\s*(\d{1,3})\s*-\s*(\d{1,3})\s*\)`)

	// Matches: S01E05, S01 EP 05, optionally followed by a range tail as in S01E01-E10
	combinedPattern = regexp.MustCompile(`(?i)\bS(\d{1,2})[\s._-]*E(?:P)?[\s._-]*(\d{1,3})(?:\s*-\s*E?(?:P)?[\s._-]*(\d{1,3}))?\b`)

	// Matches: 1x05, 2x13
	crossPattern = regexp.MustCompile(`(?i)\b(\d{1,2})x(\d{1,3})\b`)

	// Matches: EP (01-10), E(1-5)
	episodeParenRangePattern = regexp.MustCompile(`(?i)\bE(?:P)?[\s._-]*\(\s*(\d{1,3})\s*-\s*(\d{1,3})\s*\)`)

	// Matches: E01-E10, EP01-10, EP 01 - EP 10
	episodeDashRangePattern = regexp.MustCompile(`(?i)\bE(?:P)?[\s._-]*(\d{1,3})\s*-\s*(?:E(?:P)?[\s._-]*)?(\d{1,3})\b`)

	// Matches: Episode 5, Episode.12
	episodeWordPattern = regexp.MustCompile(`(?i)\bEpisode[\s._-]*(\d{1,3})\b`)

	// Matches: E05, EP05, EP 13
	episodePattern = regexp.MustCompile(`(?i)\bE(?:P)?[\s._-]*(\d{1,3})\b`)

	// Matches: Season 1, Season.02
	seasonWordPattern = regexp.MustCompile(`(?i)\bSeason[\s._-]*(\d{1,2})\b`)

	// Matches: S01, s2
	seasonPattern = regexp.MustCompile(`(?i)\bS(\d{1,2})\b`)

	qualityPattern = regexp.MustCompile(`(?i)\b(2160p|4k|1080p|720p|480p)\b`)

	// Matches: 5.6GB, 700 MB, 1.2 TB
	sizePattern = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*(TB|GB|MB|KB|B)\b`)

	// Four digit year candidate, validated against the plausible range below.
	yearPattern = regexp.MustCompile(`\b(\d{4})\b`)
)

const minReleaseYear = 1900

// Tokenize scans a raw release name and returns all recognized
// tokens ordered by position. Claimed spans never overlap: once a
// pattern consumes a region of the name, later patterns skip digits
// inside it, so the year scan cannot re-read a season number and a
// bare number never outranks a keyword anchored reading. Tokenize
// never fails; names with nothing recognizable yield an empty slice.
func Tokenize(raw string) []Token {
	// Underscores count as word characters, which would defeat the \b
	// anchors in names like Stranger_Things_S04E09. Scan a same-length
	// shadow with underscores turned into spaces; byte offsets remain
	// valid for the original string.
	t := &tokenizer{raw: strings.ReplaceAll(raw, "_", " ")}

	hasSeason, hasEpisode := t.scanCombined()
	if !hasEpisode {
		t.scanEpisode()
	}
	if !hasSeason {
		t.scanSeason()
	}
	t.scanQuality()
	t.scanSize()
	t.scanYear()

	sort.Slice(t.tokens, func(i, j int) bool { return t.tokens[i].Start < t.tokens[j].Start })
	return t.tokens
}

type tokenizer struct {
	raw     string
	tokens  []Token
	claimed [][2]int
}

func (t *tokenizer) free(start, end int) bool {
	for _, span := range t.claimed {
		if start < span[1] && end > span[0] {
			return false
		}
	}
	return true
}

func (t *tokenizer) claim(tok Token) {
	t.claimed = append(t.claimed, [2]int{tok.Start, tok.End})
	t.tokens = append(t.tokens, tok)
}

// scanCombined handles forms that carry season and episode in one
// span. The match is split into adjacent season and episode tokens so
// downstream consumers see one token per category.
func (t *tokenizer) scanCombined() (season, episode bool) {
	if m := combinedParenRangePattern.FindStringSubmatchIndex(t.raw); m != nil {
		seasonNum, _ := strconv.Atoi(t.raw[m[2]:m[3]])
		first, _ := strconv.Atoi(t.raw[m[4]:m[5]])
		last, _ := strconv.Atoi(t.raw[m[6]:m[7]])
		if last < first {
			first, last = last, first
		}
		t.claim(Token{Kind: TokenSeason, Start: m[0], End: m[3], Number: seasonNum})
		t.claim(Token{Kind: TokenEpisodeRange, Start: m[3], End: m[1], Number: first, RangeEnd: last})
		return true, true
	}
	if m := combinedPattern.FindStringSubmatchIndex(t.raw); m != nil {
		seasonNum, _ := strconv.Atoi(t.raw[m[2]:m[3]])
		first, _ := strconv.Atoi(t.raw[m[4]:m[5]])
		t.claim(Token{Kind: TokenSeason, Start: m[0], End: m[3], Number: seasonNum})
		if m[6] >= 0 {
			last, _ := strconv.Atoi(t.raw[m[6]:m[7]])
			if last < first {
				first, last = last, first
			}
			t.claim(Token{Kind: TokenEpisodeRange, Start: m[3], End: m[1], Number: first, RangeEnd: last})
		} else {
			t.claim(Token{Kind: TokenEpisode, Start: m[3], End: m[1], Number: first})
		}
		return true, true
	}
	if m := crossPattern.FindStringSubmatchIndex(t.raw); m != nil {
		seasonNum, _ := strconv.Atoi(t.raw[m[2]:m[3]])
		episodeNum, _ := strconv.Atoi(t.raw[m[4]:m[5]])
		t.claim(Token{Kind: TokenSeason, Start: m[0], End: m[3], Number: seasonNum})
		t.claim(Token{Kind: TokenEpisode, Start: m[3], End: m[1], Number: episodeNum})
		return true, true
	}
	return false, false
}

func (t *tokenizer) scanEpisode() {
	for _, p := range []*regexp.Regexp{episodeParenRangePattern, episodeDashRangePattern} {
		for _, m := range p.FindAllStringSubmatchIndex(t.raw, -1) {
			if !t.free(m[0], m[1]) {
				continue
			}
			first, _ := strconv.Atoi(t.raw[m[2]:m[3]])
			last, _ := strconv.Atoi(t.raw[m[4]:m[5]])
			if last < first {
				first, last = last, first
			}
			t.claim(Token{Kind: TokenEpisodeRange, Start: m[0], End: m[1], Number: first, RangeEnd: last})
			return
		}
	}
	for _, p := range []*regexp.Regexp{episodeWordPattern, episodePattern} {
		for _, m := range p.FindAllStringSubmatchIndex(t.raw, -1) {
			if !t.free(m[0], m[1]) {
				continue
			}
			n, _ := strconv.Atoi(t.raw[m[2]:m[3]])
			t.claim(Token{Kind: TokenEpisode, Start: m[0], End: m[1], Number: n})
			return
		}
	}
}

func (t *tokenizer) scanSeason() {
	for _, p := range []*regexp.Regexp{seasonWordPattern, seasonPattern} {
		for _, m := range p.FindAllStringSubmatchIndex(t.raw, -1) {
			if !t.free(m[0], m[1]) {
				continue
			}
			n, _ := strconv.Atoi(t.raw[m[2]:m[3]])
			t.claim(Token{Kind: TokenSeason, Start: m[0], End: m[1], Number: n})
			return
		}
	}
}

func (t *tokenizer) scanQuality() {
	for _, m := range qualityPattern.FindAllStringSubmatchIndex(t.raw, -1) {
		if !t.free(m[0], m[1]) {
			continue
		}
		t.claim(Token{Kind: TokenQuality, Start: m[0], End: m[1], Quality: normalizeQuality(t.raw[m[2]:m[3]])})
		return
	}
}

func (t *tokenizer) scanSize() {
	for _, m := range sizePattern.FindAllStringSubmatchIndex(t.raw, -1) {
		if !t.free(m[0], m[1]) {
			continue
		}
		value, err := strconv.ParseFloat(t.raw[m[2]:m[3]], 64)
		if err != nil {
			continue
		}
		t.claim(Token{Kind: TokenSize, Start: m[0], End: m[1], Bytes: sizeToBytes(value, t.raw[m[4]:m[5]])})
		return
	}
}

// scanYear claims the first free four digit run that falls inside the
// plausible release window. Out of range candidates are skipped, not
// fatal, so a leading catalog number does not shadow a real year.
func (t *tokenizer) scanYear() {
	maxYear := time.Now().Year() + 1
	for _, m := range yearPattern.FindAllStringSubmatchIndex(t.raw, -1) {
		if !t.free(m[0], m[1]) {
			continue
		}
		year, _ := strconv.Atoi(t.raw[m[2]:m[3]])
		if year < minReleaseYear || year > maxYear {
			continue
		}
		t.claim(Token{Kind: TokenYear, Start: m[0], End: m[1], Number: year})
		return
	}
}

func normalizeQuality(s string) Quality {
	switch strings.ToLower(s) {
	case "2160p", "4k":
		return Quality2160p
	case "1080p":
		return Quality1080p
	case "720p":
		return Quality720p
	case "480p":
		return Quality480p
	}
	return QualityUnknown
}

func sizeToBytes(value float64, unit string) int64 {
	switch strings.ToUpper(unit) {
	case "TB":
		value *= 1 << 40
	case "GB":
		value *= 1 << 30
	case "MB":
		value *= 1 << 20
	case "KB":
		value *= 1 << 10
	}
	return int64(value)
}
