package release

import (
	"strconv"
	"testing"
	"time"
)

func findToken(tokens []Token, kind TokenKind) *Token {
	for i := range tokens {
		if tokens[i].Kind == kind {
			return &tokens[i]
		}
	}
	return nil
}

func TestTokenize_SeasonEpisodeForms(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantSeason  int
		wantEpisode int
	}{
		{
			name:        "compact S01E05",
			input:       "Show.Name.S01E05.1080p",
			wantSeason:  1,
			wantEpisode: 5,
		},
		{
			name:        "spaced S01 EP 05",
			input:       "Show Name S01 EP 05",
			wantSeason:  1,
			wantEpisode: 5,
		},
		{
			name:        "cross notation 2x13",
			input:       "Show Name 2x13 720p",
			wantSeason:  2,
			wantEpisode: 13,
		},
		{
			name:        "season word",
			input:       "Show Name Season 3 Episode 7",
			wantSeason:  3,
			wantEpisode: 7,
		},
		{
			name:        "lowercase s2 e4",
			input:       "show name s2 e4",
			wantSeason:  2,
			wantEpisode: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := Tokenize(tt.input)

			season := findToken(tokens, TokenSeason)
			if season == nil {
				t.Fatalf("Tokenize(%q) missing season token", tt.input)
			}
			if season.Number != tt.wantSeason {
				t.Errorf("season = %d, want %d", season.Number, tt.wantSeason)
			}

			episode := findToken(tokens, TokenEpisode)
			if episode == nil {
				t.Fatalf("Tokenize(%q) missing episode token", tt.input)
			}
			if episode.Number != tt.wantEpisode {
				t.Errorf("episode = %d, want %d", episode.Number, tt.wantEpisode)
			}
		})
	}
}

func TestTokenize_EpisodeRanges(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantFirst int
		wantLast  int
	}{
		{
			name:      "parenthesized range after season",
			input:     "Be My Princess (2024) S01 EP (01-10) 1080p",
			wantFirst: 1,
			wantLast:  10,
		},
		{
			name:      "glued parenthesized range",
			input:     "Show S01EP(01-24) 720p",
			wantFirst: 1,
			wantLast:  24,
		},
		{
			name:      "dash range with anchors on both sides",
			input:     "Show Name E01-E10 480p",
			wantFirst: 1,
			wantLast:  10,
		},
		{
			name:      "dash range with single anchor",
			input:     "Show Name EP01-10",
			wantFirst: 1,
			wantLast:  10,
		},
		{
			name:      "combined with range tail",
			input:     "Show S02E01-E08 1080p",
			wantFirst: 1,
			wantLast:  8,
		},
		{
			name:      "reversed bounds are normalized",
			input:     "Show EP(10-01)",
			wantFirst: 1,
			wantLast:  10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := Tokenize(tt.input)

			rng := findToken(tokens, TokenEpisodeRange)
			if rng == nil {
				t.Fatalf("Tokenize(%q) missing episode range token", tt.input)
			}
			if rng.Number != tt.wantFirst || rng.RangeEnd != tt.wantLast {
				t.Errorf("range = (%d, %d), want (%d, %d)", rng.Number, rng.RangeEnd, tt.wantFirst, tt.wantLast)
			}
			if findToken(tokens, TokenEpisode) != nil {
				t.Errorf("Tokenize(%q) produced both range and single episode tokens", tt.input)
			}
		})
	}
}

func TestTokenize_Year(t *testing.T) {
	nextYear := time.Now().Year() + 1

	tests := []struct {
		name     string
		input    string
		wantYear int
	}{
		{"year in parentheses", "Show Name (2024) S01", 2024},
		{"bare year", "Show Name 1999 720p", 1999},
		{"lower bound", "Show Name 1900", 1900},
		{"next year accepted", "Show Name " + strconv.Itoa(nextYear), nextYear},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			year := findToken(Tokenize(tt.input), TokenYear)
			if year == nil {
				t.Fatalf("Tokenize(%q) missing year token", tt.input)
			}
			if year.Number != tt.wantYear {
				t.Errorf("year = %d, want %d", year.Number, tt.wantYear)
			}
		})
	}
}

func TestTokenize_YearRejected(t *testing.T) {
	tooFar := time.Now().Year() + 2

	tests := []struct {
		name  string
		input string
	}{
		{"before window", "Antiques 1899 Catalog"},
		{"after window", "Show Name " + strconv.Itoa(tooFar)},
		{"digits claimed by size", "Show Name 1024MB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tok := findToken(Tokenize(tt.input), TokenYear); tok != nil {
				t.Errorf("Tokenize(%q) produced year %d, want none", tt.input, tok.Number)
			}
		})
	}
}

func TestTokenize_YearSkipsOutOfRangeCandidate(t *testing.T) {
	tokens := Tokenize("Catalog 0042 Show 2021 1080p")
	year := findToken(tokens, TokenYear)
	if year == nil {
		t.Fatal("missing year token")
	}
	if year.Number != 2021 {
		t.Errorf("year = %d, want 2021", year.Number)
	}
}

func TestTokenize_Quality(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Quality
	}{
		{"1080p", "Show S01E01 1080p WEB-DL", Quality1080p},
		{"720p", "Show S01E01 720p", Quality720p},
		{"480p", "Show S01E01 480p", Quality480p},
		{"2160p", "Show S01E01 2160p", Quality2160p},
		{"4K folds into 2160p", "Show S01E01 4K HDR", Quality2160p},
		{"case insensitive", "Show S01E01 1080P", Quality1080p},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quality := findToken(Tokenize(tt.input), TokenQuality)
			if quality == nil {
				t.Fatalf("Tokenize(%q) missing quality token", tt.input)
			}
			if quality.Quality != tt.want {
				t.Errorf("quality = %s, want %s", quality.Quality, tt.want)
			}
		})
	}
}

func TestTokenize_Size(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantBytes int64
	}{
		{"fractional GB", "Show S01 1080p 5.5GB", 11 << 29},
		{"whole MB with space", "Show S01 700 MB", 700 << 20},
		{"terabytes", "Pack 1.5TB", 3 << 39},
		{"kilobytes", "Sample 512KB", 512 << 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size := findToken(Tokenize(tt.input), TokenSize)
			if size == nil {
				t.Fatalf("Tokenize(%q) missing size token", tt.input)
			}
			if size.Bytes != tt.wantBytes {
				t.Errorf("bytes = %d, want %d", size.Bytes, tt.wantBytes)
			}
		})
	}
}

func TestTokenize_BareNumbersIgnored(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"bare two digit number", "Show Name 05"},
		{"resolution style digits", "Wallpaper 1920x1080 Pack"},
		{"nothing recognizable", "Random Topic Title"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, tok := range Tokenize(tt.input) {
				if tok.Kind == TokenSeason || tok.Kind == TokenEpisode || tok.Kind == TokenEpisodeRange {
					t.Errorf("Tokenize(%q) produced %s token from unanchored digits", tt.input, tok.Kind)
				}
			}
		})
	}
}

func TestTokenize_SpansDoNotOverlap(t *testing.T) {
	inputs := []string{
		"Be My Princess (2024) S01 EP (01-10) 1080p HQ HDRip 5.6GB",
		"www.1TamilMV.yt - Show Name (2023) S02 EP 14 720p 1.4GB",
		"Show.S01E05.2160p.WEB-DL.x265",
	}

	for _, input := range inputs {
		tokens := Tokenize(input)
		for i := range tokens {
			if tokens[i].Start < 0 || tokens[i].End > len(input) || tokens[i].Start >= tokens[i].End {
				t.Errorf("Tokenize(%q): token %d has invalid span [%d, %d)", input, i, tokens[i].Start, tokens[i].End)
			}
			for j := i + 1; j < len(tokens); j++ {
				if tokens[i].Start < tokens[j].End && tokens[j].Start < tokens[i].End {
					t.Errorf("Tokenize(%q): tokens %d and %d overlap", input, i, j)
				}
			}
		}
	}
}

func TestTokenize_SortedByPosition(t *testing.T) {
	tokens := Tokenize("Show Name (2024) S01 EP (01-10) 1080p 5.6GB")
	for i := 1; i < len(tokens); i++ {
		if tokens[i-1].Start > tokens[i].Start {
			t.Fatalf("tokens out of order at %d: %d > %d", i, tokens[i-1].Start, tokens[i].Start)
		}
	}
}
