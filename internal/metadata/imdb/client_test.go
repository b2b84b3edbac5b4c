package imdb

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/showsift/showsift/internal/config"
)

func newTestClient(server *httptest.Server) *Client {
	cfg := config.IMDBConfig{
		APIKey:  "test-rapidapi-key",
		Host:    "imdb236.p.rapidapi.com",
		BaseURL: server.URL,
		Timeout: 5,
	}
	return NewClient(cfg, zerolog.Nop())
}

func TestClient_Search_PrefersTVSeries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/imdb/autocomplete" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if host := r.Header.Get("x-rapidapi-host"); host != "imdb236.p.rapidapi.com" {
			t.Errorf("x-rapidapi-host = %q", host)
		}
		if key := r.Header.Get("x-rapidapi-key"); key != "test-rapidapi-key" {
			t.Errorf("x-rapidapi-key = %q", key)
		}
		if query := r.URL.Query().Get("query"); query != "Be My Princess" {
			t.Errorf("query = %q", query)
		}

		items := []AutocompleteItem{
			{ID: "tt0000010", PrimaryTitle: "Be My Princess", Type: "movie", StartYear: 2011},
			{ID: "tt37356230", PrimaryTitle: "Be My Princess", Type: "tvSeries", StartYear: 2024},
		}
		json.NewEncoder(w).Encode(items)
	}))
	defer server.Close()

	client := newTestClient(server)
	result, err := client.Search(context.Background(), "Be My Princess")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if result.IMDbID != "tt37356230" {
		t.Errorf("IMDbID = %q, want the tvSeries entry", result.IMDbID)
	}
	if result.Year != 2024 {
		t.Errorf("Year = %d, want 2024", result.Year)
	}
}

func TestClient_Search_FallsBackToFirst(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		items := []AutocompleteItem{
			{ID: "tt0000020", PrimaryTitle: "Some Film", Type: "movie", StartYear: 2019},
			{ID: "tt0000021", PrimaryTitle: "Some Film II", Type: "movie", StartYear: 2021},
		}
		json.NewEncoder(w).Encode(items)
	}))
	defer server.Close()

	client := newTestClient(server)
	result, err := client.Search(context.Background(), "Some Film")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if result.IMDbID != "tt0000020" {
		t.Errorf("IMDbID = %q, want the first entry", result.IMDbID)
	}
}

func TestClient_Search_Empty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]AutocompleteItem{})
	}))
	defer server.Close()

	client := newTestClient(server)
	_, err := client.Search(context.Background(), "Nothing Matches This")
	if err != ErrNotFound {
		t.Errorf("Search() error = %v, want %v", err, ErrNotFound)
	}
}

func TestClient_Search_NoAPIKey(t *testing.T) {
	client := NewClient(config.IMDBConfig{}, zerolog.Nop())
	_, err := client.Search(context.Background(), "Anything")
	if err != ErrAPIKeyMissing {
		t.Errorf("Search() error = %v, want %v", err, ErrAPIKeyMissing)
	}
}

func TestClient_GetTitle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/imdb/tt37356230" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		title := Title{
			ID:                "tt37356230",
			PrimaryTitle:      "Be My Princess",
			Type:              "tvSeries",
			Description:       "A drama across two timelines.",
			StartYear:         2024,
			AverageRating:     7.4,
			NumVotes:          812,
			Genres:            []string{"Drama", "Romance"},
			CountriesOfOrigin: []string{"CN"},
		}
		json.NewEncoder(w).Encode(title)
	}))
	defer server.Close()

	client := newTestClient(server)
	title, err := client.GetTitle(context.Background(), "tt37356230")
	if err != nil {
		t.Fatalf("GetTitle() error = %v", err)
	}
	if title.PrimaryTitle != "Be My Princess" || title.StartYear != 2024 {
		t.Errorf("title = %+v", title)
	}
	if len(title.CountriesOfOrigin) != 1 || title.CountriesOfOrigin[0] != "CN" {
		t.Errorf("CountriesOfOrigin = %v", title.CountriesOfOrigin)
	}
}

func TestClient_GetTitle_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(server)
	_, err := client.GetTitle(context.Background(), "tt9999999")
	if err != ErrNotFound {
		t.Errorf("GetTitle() error = %v, want %v", err, ErrNotFound)
	}
}

func TestClient_Countries_CachedAfterFirstCall(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/imdb/countries" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		calls++
		json.NewEncoder(w).Encode([]country{
			{ISO31661: "IN", Name: "India"},
			{ISO31661: "KR", Name: "South Korea"},
		})
	}))
	defer server.Close()

	client := newTestClient(server)
	for i := 0; i < 2; i++ {
		mapping, err := client.Countries(context.Background())
		if err != nil {
			t.Fatalf("Countries() error = %v", err)
		}
		if mapping["IN"] != "India" {
			t.Errorf("mapping = %v", mapping)
		}
	}
	if calls != 1 {
		t.Errorf("server calls = %d, want 1", calls)
	}

	if name := client.CountryName(context.Background(), "KR"); name != "South Korea" {
		t.Errorf("CountryName(KR) = %q", name)
	}
	if name := client.CountryName(context.Background(), "ZZ"); name != "ZZ" {
		t.Errorf("CountryName(ZZ) = %q, want the code back", name)
	}
}
