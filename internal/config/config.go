package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/stixly/stixly/internal/cache"
	"github.com/stixly/stixly/internal/embeddings"
	"github.com/stixly/stixly/internal/loader"
)

// LoadDotEnv loads a .env file into the process environment without
// overriding variables that are already set. A missing file is ignored.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (STIXLY_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// STIXLY_API_BASE_URL -> api_base_url, STIXLY_SERVER__PORT -> server.port
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	// The file can hold init data and a bot token.
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("api_base_url is required")
	}
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid api_base_url %q: must be an absolute http(s) URL", c.APIBaseURL)
	}

	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.RateLimitRPM < 0 {
		return fmt.Errorf("rate_limit_rpm must be non-negative")
	}
	if c.Cache.MaxSize < 0 {
		return fmt.Errorf("cache.max_size must be non-negative")
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must be non-negative")
	}
	if c.Loader.MaxConcurrency < 0 {
		return fmt.Errorf("loader.max_concurrency must be non-negative")
	}
	if c.Loader.Attempts < 0 {
		return fmt.Errorf("loader.attempts must be non-negative")
	}
	if c.Gallery.PageSize < 0 || c.Gallery.PageSize > 100 {
		return fmt.Errorf("gallery.page_size must be between 0 and 100")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.Server.RedisURL != "" {
		if u, err := url.Parse(c.Server.RedisURL); err != nil || (u.Scheme != "redis" && u.Scheme != "rediss") {
			return fmt.Errorf("invalid server.redis_url %q", c.Server.RedisURL)
		}
	}

	switch c.Embeddings.Provider {
	case "", embeddings.ProviderOpenAI, embeddings.ProviderOllama:
	default:
		return fmt.Errorf("invalid embeddings.provider %q: must be openai or ollama", c.Embeddings.Provider)
	}
	return nil
}

// DBPath is the SQLite database inside the data directory.
func (c *Config) DBPath() string { return filepath.Join(c.DataDir, "stixly.db") }

// IndexDir is where the similarity index is persisted.
func (c *Config) IndexDir() string { return filepath.Join(c.DataDir, "index") }

// DownloadDir is the default target of `stixly download`.
func (c *Config) DownloadDir() string { return filepath.Join(c.DataDir, "downloads") }

// CacheOptions converts the cache section to cache.Options.
func (c *Config) CacheOptions() cache.Options {
	return cache.Options{
		MaxSize:        c.Cache.MaxSize,
		TTL:            c.Cache.TTL,
		DisablePreload: !c.Cache.PreloadNext,
		SweepInterval:  c.Cache.SweepInterval,
	}
}

// LoaderOptions converts the loader section to loader.Options.
func (c *Config) LoaderOptions() loader.Options {
	opts := loader.Options{
		MaxConcurrency: c.Loader.MaxConcurrency,
		Attempts:       c.Loader.Attempts,
		RetryDelay:     c.Loader.RetryDelay,
		AttemptTimeout: c.Loader.AttemptTimeout,
	}
	if u, err := url.Parse(c.APIBaseURL); err == nil {
		opts.Origin = u.Scheme + "://" + u.Host
	}
	return opts
}

// EmbeddingsConfig returns the embeddings section, filling the API key
// from OPENAI_API_KEY when it is not set in the file.
func (c *Config) EmbeddingsConfig() embeddings.Config {
	e := c.Embeddings
	if e.Provider == embeddings.ProviderOpenAI && e.APIKey == "" {
		e.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	return e
}
