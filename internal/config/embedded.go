package config

// Embedded API keys injected at build time via ldflags.
// These serve as fallbacks when neither environment variables nor the
// config file provide a key.
//
// Build with:
//   go build -ldflags "-X 'github.com/showsift/showsift/internal/config.EmbeddedTMDBKey=xxx' \
//                      -X 'github.com/showsift/showsift/internal/config.EmbeddedOpenRouterKey=yyy'"
var (
	EmbeddedTMDBKey       string
	EmbeddedOpenRouterKey string
	EmbeddedRapidAPIKey   string
)

func applyEmbeddedKeys(cfg *Config) {
	if cfg.TMDB.APIKey == "" {
		cfg.TMDB.APIKey = EmbeddedTMDBKey
	}
	if cfg.OpenRouter.APIKey == "" {
		cfg.OpenRouter.APIKey = EmbeddedOpenRouterKey
	}
	if cfg.IMDB.APIKey == "" {
		cfg.IMDB.APIKey = EmbeddedRapidAPIKey
	}
}
