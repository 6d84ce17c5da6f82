package config

import (
	"time"

	"github.com/stixly/stixly/internal/embeddings"
)

// Config is the top-level stixly configuration, corresponding to .stixly.yml.
type Config struct {
	APIBaseURL   string            `yaml:"api_base_url" koanf:"api_base_url"`
	InitData     string            `yaml:"init_data,omitempty" koanf:"init_data"`
	BotToken     string            `yaml:"bot_token,omitempty" koanf:"bot_token"`
	DataDir      string            `yaml:"data_dir" koanf:"data_dir"`
	RateLimitRPM int               `yaml:"rate_limit_rpm" koanf:"rate_limit_rpm"`
	Cache        CacheConfig       `yaml:"cache" koanf:"cache"`
	Loader       LoaderConfig      `yaml:"loader" koanf:"loader"`
	Gallery      GalleryConfig     `yaml:"gallery" koanf:"gallery"`
	Server       ServerConfig      `yaml:"server" koanf:"server"`
	Embeddings   embeddings.Config `yaml:"embeddings" koanf:"embeddings"`
}

// CacheConfig tunes the gallery page cache.
type CacheConfig struct {
	MaxSize       int           `yaml:"max_size" koanf:"max_size"`
	TTL           time.Duration `yaml:"ttl" koanf:"ttl"`
	PreloadNext   bool          `yaml:"preload_next" koanf:"preload_next"`
	SweepInterval time.Duration `yaml:"sweep_interval" koanf:"sweep_interval"`
}

// LoaderConfig tunes the sticker file loader.
type LoaderConfig struct {
	MaxConcurrency int           `yaml:"max_concurrency" koanf:"max_concurrency"`
	Attempts       int           `yaml:"attempts" koanf:"attempts"`
	RetryDelay     time.Duration `yaml:"retry_delay" koanf:"retry_delay"`
	AttemptTimeout time.Duration `yaml:"attempt_timeout" koanf:"attempt_timeout"`
}

// GalleryConfig tunes gallery listings.
type GalleryConfig struct {
	PageSize int  `yaml:"page_size" koanf:"page_size"`
	Fallback bool `yaml:"fallback" koanf:"fallback"`
}

// ServerConfig configures `stixly server`.
type ServerConfig struct {
	Port            int           `yaml:"port" koanf:"port"`
	AllowAllOrigins bool          `yaml:"allow_all_origins" koanf:"allow_all_origins"`
	RedisURL        string        `yaml:"redis_url,omitempty" koanf:"redis_url"`
	InitDataMaxAge  time.Duration `yaml:"init_data_max_age" koanf:"init_data_max_age"`
}
