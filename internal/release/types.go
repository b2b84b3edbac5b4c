package release

// Quality is a normalized video quality tier. 4K sources are folded
// into Quality2160p during tokenization.
type Quality string

const (
	Quality2160p   Quality = "2160p"
	Quality1080p   Quality = "1080p"
	Quality720p    Quality = "720p"
	Quality480p    Quality = "480p"
	QualityUnknown Quality = "unknown"
)

// Rank orders qualities for selection. Higher is better.
func (q Quality) Rank() int {
	switch q {
	case Quality2160p:
		return 4
	case Quality1080p:
		return 3
	case Quality720p:
		return 2
	case Quality480p:
		return 1
	default:
		return 0
	}
}

// Confidence reflects how trustworthy a parse is. Low confidence
// records are kept but excluded from automatic matching.
type Confidence string

const (
	ConfidenceHigh Confidence = "high"
	ConfidenceLow  Confidence = "low"
)

// TokenKind identifies the category of a recognized token.
type TokenKind string

const (
	TokenSeason       TokenKind = "season"
	TokenEpisode      TokenKind = "episode"
	TokenEpisodeRange TokenKind = "episode_range"
	TokenYear         TokenKind = "year"
	TokenQuality      TokenKind = "quality"
	TokenSize         TokenKind = "size"
)

// Token is a single recognized span within a raw release name.
// Start and End are byte offsets into the raw string, End exclusive.
// Tokens produced by Tokenize never overlap.
type Token struct {
	Kind     TokenKind
	Start    int
	End      int
	Number   int // season, episode, range start or year depending on Kind
	RangeEnd int // inclusive range end, set for TokenEpisodeRange only
	Quality  Quality
	Bytes    int64 // decoded size, set for TokenSize only
}

// EpisodeRange is an inclusive episode span such as EP(01-10).
type EpisodeRange struct {
	Start int
	End   int
}

// ParsedRelease is the structured result of parsing a single release
// or topic name. Pointer fields are nil when the corresponding token
// was absent from the name.
type ParsedRelease struct {
	RawName      string
	SeriesName   string
	Season       *int
	Episode      *int
	EpisodeRange *EpisodeRange
	Year         *int
	Quality      Quality
	SizeBytes    int64
	Source       string
	Codec        string
	ReleaseGroup string
	Confidence   Confidence
}

// EpisodeSpan returns the inclusive episode span covered by the
// release. Single episodes collapse to a one-element span. ok is
// false when the name carried no episode information.
func (p ParsedRelease) EpisodeSpan() (start, end int, ok bool) {
	switch {
	case p.EpisodeRange != nil:
		return p.EpisodeRange.Start, p.EpisodeRange.End, true
	case p.Episode != nil:
		return *p.Episode, *p.Episode, true
	}
	return 0, 0, false
}

// SeasonNumber returns the season number or 0 when unknown.
func (p ParsedRelease) SeasonNumber() int {
	if p.Season != nil {
		return *p.Season
	}
	return 0
}
