package config

import (
	"time"

	"github.com/stixly/stixly/internal/api"
	"github.com/stixly/stixly/internal/cache"
	"github.com/stixly/stixly/internal/loader"
)

// FileName is the config file looked up in the working directory.
const FileName = ".stixly.yml"

// EnvPrefix prefixes environment overrides. Nested keys use a double
// underscore: STIXLY_CACHE__MAX_SIZE sets cache.max_size.
const EnvPrefix = "STIXLY_"

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		APIBaseURL:   api.DefaultBaseURL,
		DataDir:      ".stixly",
		RateLimitRPM: 120,
		Cache: CacheConfig{
			MaxSize:       cache.DefaultMaxSize,
			TTL:           cache.DefaultTTL,
			PreloadNext:   true,
			SweepInterval: cache.DefaultSweepInterval,
		},
		Loader: LoaderConfig{
			MaxConcurrency: loader.DefaultMaxConcurrency,
			Attempts:       loader.DefaultAttempts,
			RetryDelay:     loader.DefaultRetryDelay,
			AttemptTimeout: loader.DefaultAttemptTimeout,
		},
		Gallery: GalleryConfig{
			PageSize: api.DefaultPageSize,
			Fallback: true,
		},
		Server: ServerConfig{
			Port:           8090,
			InitDataMaxAge: 24 * time.Hour,
		},
	}
}
