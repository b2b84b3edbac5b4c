package imdb

// AutocompleteItem is one entry from the autocomplete search.
type AutocompleteItem struct {
	ID            string `json:"id"`
	PrimaryTitle  string `json:"primaryTitle"`
	OriginalTitle string `json:"originalTitle"`
	Type          string `json:"type"`
	StartYear     int    `json:"startYear"`
}

// Title is the detailed title record from the API.
type Title struct {
	ID                string   `json:"id"`
	PrimaryTitle      string   `json:"primaryTitle"`
	OriginalTitle     string   `json:"originalTitle"`
	Type              string   `json:"type"`
	Description       string   `json:"description"`
	StartYear         int      `json:"startYear"`
	EndYear           int      `json:"endYear"`
	ReleaseDate       string   `json:"releaseDate"`
	AverageRating     float64  `json:"averageRating"`
	NumVotes          int      `json:"numVotes"`
	ContentRating     string   `json:"contentRating"`
	Genres            []string `json:"genres"`
	CountriesOfOrigin []string `json:"countriesOfOrigin"`
	SpokenLanguages   []string `json:"spokenLanguages"`
	OriginalLanguage  string   `json:"originalLanguage"`
	IsAdult           bool     `json:"isAdult"`
}

// SearchResult is the normalized autocomplete pick.
type SearchResult struct {
	IMDbID string `json:"imdbId"`
	Title  string `json:"title"`
	Year   int    `json:"year"`
	Type   string `json:"type"`
}

// country is one entry of the countries list endpoint.
type country struct {
	ISO31661 string `json:"iso_3166_1"`
	Name     string `json:"name"`
}
