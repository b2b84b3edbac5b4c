package openrouter

// chatRequest is the OpenRouter chat completion request body. Content
// is a plain string for text prompts and a []contentPart for vision
// prompts.
type chatRequest struct {
	Model           string        `json:"model"`
	Messages        []chatMessage `json:"messages"`
	Temperature     float64       `json:"temperature"`
	MaxTokens       int           `json:"max_tokens"`
	ReasoningEffort string        `json:"reasoning_effort,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageRef `json:"image_url,omitempty"`
}

type imageRef struct {
	URL string `json:"url"`
}

// chatResponse carries the fields of a completion this package reads.
// Reasoning models sometimes leave content empty and put their output
// in the reasoning field instead.
type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *apiError    `json:"error,omitempty"`
}

type chatChoice struct {
	Message struct {
		Content   string `json:"content"`
		Reasoning string `json:"reasoning"`
	} `json:"message"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NameAnalysis is the text model's reading of a release name. Episode
// 0 means the name covers a batch or names no specific episode.
type NameAnalysis struct {
	Season     int     `json:"season"`
	Episode    int     `json:"episode"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// PosterAnalysis is the fast vision model's description of a poster:
// origin, the title as printed, and names read off the artwork. The
// model also volunteers database ids when it recognizes the show.
type PosterAnalysis struct {
	IsWebSeries       bool     `json:"is_web_series"`
	Country           string   `json:"country"`
	Title             string   `json:"title"`
	Year              int      `json:"year"`
	ActorsOnPoster    []string `json:"actors_on_poster"`
	DirectorsOnPoster []string `json:"directors_on_poster"`
	Networks          []string `json:"networks"`
	TMDBID            int      `json:"tmdb_id"`
	IMDbID            string   `json:"imdb_id"`
	Confidence        string   `json:"confidence"`
	Reasoning         string   `json:"reasoning"`
}

// HasIDs reports whether the model named the series directly.
func (p *PosterAnalysis) HasIDs() bool {
	return p.TMDBID > 0 || p.IMDbID != ""
}

// Identification is the deep vision model's answer for a poster.
// Confidence is a band: "high", "medium" or "low".
type Identification struct {
	SeriesName string `json:"series_name"`
	TMDBID     int    `json:"tmdb_id"`
	IMDbID     string `json:"imdb_id"`
	Confidence string `json:"confidence"`
	Reasoning  string `json:"reasoning"`
}

// HasIDs reports whether the model produced at least one database id.
func (id *Identification) HasIDs() bool {
	return id.TMDBID > 0 || id.IMDbID != ""
}

// Candidate is a metadata search result offered to the model for
// selection against a poster analysis.
type Candidate struct {
	TMDBID        int
	Title         string
	OriginalTitle string
	Overview      string
}

// TorrentName pairs a catalog torrent id with its raw release name
// for season grouping.
type TorrentName struct {
	ID   int64
	Name string
}
