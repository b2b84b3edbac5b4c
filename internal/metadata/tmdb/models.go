package tmdb

// SearchTVResponse is the response from TMDB TV search.
type SearchTVResponse struct {
	Page         int        `json:"page"`
	Results      []TVResult `json:"results"`
	TotalPages   int        `json:"total_pages"`
	TotalResults int        `json:"total_results"`
}

// TVResult is a TV series from TMDB search results.
type TVResult struct {
	ID               int      `json:"id"`
	Name             string   `json:"name"`
	OriginalName     string   `json:"original_name"`
	Overview         string   `json:"overview"`
	FirstAirDate     string   `json:"first_air_date"`
	PosterPath       *string  `json:"poster_path"`
	BackdropPath     *string  `json:"backdrop_path"`
	VoteAverage      float64  `json:"vote_average"`
	VoteCount        int      `json:"vote_count"`
	Popularity       float64  `json:"popularity"`
	GenreIDs         []int    `json:"genre_ids"`
	OriginCountry    []string `json:"origin_country"`
	OriginalLanguage string   `json:"original_language"`
}

// MovieResult is a movie from TMDB find results. Forum topics
// occasionally resolve to TV movies, which TMDB files under movies.
type MovieResult struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	Overview     string  `json:"overview"`
	ReleaseDate  string  `json:"release_date"`
	PosterPath   *string `json:"poster_path"`
	BackdropPath *string `json:"backdrop_path"`
	VoteAverage  float64 `json:"vote_average"`
}

// FindResponse is the response from the TMDB /find endpoint.
type FindResponse struct {
	TVResults    []TVResult    `json:"tv_results"`
	MovieResults []MovieResult `json:"movie_results"`
}

// TVDetails is the detailed TV series info from TMDB.
type TVDetails struct {
	ID               int          `json:"id"`
	Name             string       `json:"name"`
	OriginalName     string       `json:"original_name"`
	Overview         string       `json:"overview"`
	FirstAirDate     string       `json:"first_air_date"`
	LastAirDate      string       `json:"last_air_date"`
	PosterPath       *string      `json:"poster_path"`
	BackdropPath     *string      `json:"backdrop_path"`
	VoteAverage      float64      `json:"vote_average"`
	VoteCount        int          `json:"vote_count"`
	Popularity       float64      `json:"popularity"`
	Status           string       `json:"status"`
	OriginCountry    []string     `json:"origin_country"`
	NumberOfSeasons  int          `json:"number_of_seasons"`
	NumberOfEpisodes int          `json:"number_of_episodes"`
	Seasons          []Season     `json:"seasons"`
	ExternalIDs      *ExternalIDs `json:"external_ids,omitempty"`
}

// Season represents a TV season from TMDB.
type Season struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	Overview     string  `json:"overview"`
	AirDate      string  `json:"air_date"`
	EpisodeCount int     `json:"episode_count"`
	PosterPath   *string `json:"poster_path"`
	SeasonNumber int     `json:"season_number"`
}

// ExternalIDs contains external IDs from TMDB.
type ExternalIDs struct {
	ImdbID     string `json:"imdb_id"`
	TvdbID     int    `json:"tvdb_id"`
	WikidataID string `json:"wikidata_id"`
}

// ErrorResponse is an error from the TMDB API.
type ErrorResponse struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
	Success       bool   `json:"success"`
}

// NormalizedSeriesResult is the normalized series result returned by
// the client.
type NormalizedSeriesResult struct {
	ID            int      `json:"id"`
	Title         string   `json:"title"`
	OriginalTitle string   `json:"originalTitle,omitempty"`
	Year          int      `json:"year"`
	Overview      string   `json:"overview"`
	PosterURL     string   `json:"posterUrl,omitempty"`
	BackdropURL   string   `json:"backdropUrl,omitempty"`
	Rating        float64  `json:"rating,omitempty"`
	VoteCount     int      `json:"voteCount,omitempty"`
	OriginCountry []string `json:"originCountry,omitempty"`
	ImdbID        string   `json:"imdbId,omitempty"`
}

// NormalizedSeriesDetails extends the search result with the season
// list and totals from the details endpoint.
type NormalizedSeriesDetails struct {
	NormalizedSeriesResult
	Status           string                 `json:"status,omitempty"`
	NumberOfSeasons  int                    `json:"numberOfSeasons"`
	NumberOfEpisodes int                    `json:"numberOfEpisodes"`
	Seasons          []NormalizedSeasonInfo `json:"seasons"`
}

// NormalizedSeasonInfo is one season entry from series details.
// Specials (season 0) are filtered out by the client.
type NormalizedSeasonInfo struct {
	SeasonNumber int    `json:"seasonNumber"`
	Name         string `json:"name"`
	EpisodeCount int    `json:"episodeCount"`
	AirDate      string `json:"airDate,omitempty"`
	Year         int    `json:"year,omitempty"`
}
