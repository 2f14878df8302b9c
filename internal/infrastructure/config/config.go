package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the immutable application configuration passed into each
// component at construction.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	OpenRouter OpenRouterConfig `mapstructure:"openrouter"`
	Embedding  EmbeddingConfig  `mapstructure:"embedding"`
	Search     SearchConfig     `mapstructure:"search"`
	Store      StoreConfig      `mapstructure:"store"`
	Session    SessionConfig    `mapstructure:"session"`
	Resolution ResolutionConfig `mapstructure:"resolution"`
	Pantry     PantryConfig     `mapstructure:"pantry"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	LogLevel   string           `mapstructure:"log_level"`
}

// AppConfig holds application identity settings.
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// OpenRouterConfig holds generation provider settings.
type OpenRouterConfig struct {
	APIKey    string        `mapstructure:"api_key"`
	Model     string        `mapstructure:"model"`
	MaxTokens int           `mapstructure:"max_tokens"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// SearchConfig holds web search provider settings.
type SearchConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	APIKey     string        `mapstructure:"api_key"`
	MaxResults int           `mapstructure:"max_results"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// StoreConfig holds recipe store settings.
type StoreConfig struct {
	Path             string  `mapstructure:"path"`
	SimilarityCutoff float64 `mapstructure:"similarity_cutoff"`
	HotCacheSize     int     `mapstructure:"hot_cache_size"`
}

// SessionConfig holds resolution session store settings.
type SessionConfig struct {
	Backend   string        `mapstructure:"backend"` // "redis" or "memory"
	RedisAddr string        `mapstructure:"redis_addr"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// ResolutionConfig holds the retry and negotiation budgets.
type ResolutionConfig struct {
	MaxIterations int `mapstructure:"max_iterations"`
	MaxExtras     int `mapstructure:"max_extras"`
}

// PantryConfig holds the default pantry ingredient list.
type PantryConfig struct {
	Defaults []string `mapstructure:"defaults"`
}

// RateLimitConfig holds rate limiting settings.
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// LoadConfig reads configuration from .env and the environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// missing .env is fine in production, env vars still apply
		fmt.Println("Warning: .env file not found")
	}

	setDefaults()

	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.BindEnv("openrouter.api_key", "OPENROUTER_API_KEY")
	viper.BindEnv("openrouter.model", "OPENROUTER_MODEL")
	viper.BindEnv("embedding.api_key", "GEMINI_API_KEY")
	viper.BindEnv("embedding.model", "EMBEDDING_MODEL")
	viper.BindEnv("search.api_key", "TAVILY_API_KEY")
	viper.BindEnv("session.redis_addr", "REDIS_ADDR")
	viper.BindEnv("session.backend", "SESSION_BACKEND")
	viper.BindEnv("store.path", "STORE_PATH")
	viper.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	viper.BindEnv("rate_limit.requests", "RATE_LIMIT_REQUESTS")
	viper.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	viper.BindEnv("log_level", "LOG_LEVEL")

	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// MaskAPIKey shows only the first and last 4 characters of a key.
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func setDefaults() {
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.debug", true)
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.name", "recipe-resolver")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")

	viper.SetDefault("openrouter.model", "google/gemini-2.0-flash-001")
	viper.SetDefault("openrouter.max_tokens", 2048)
	viper.SetDefault("openrouter.timeout", "60s")

	viper.SetDefault("embedding.enabled", true)
	viper.SetDefault("embedding.model", "gemini-embedding-001")
	viper.SetDefault("embedding.timeout", "15s")

	viper.SetDefault("search.enabled", true)
	viper.SetDefault("search.max_results", 3)
	viper.SetDefault("search.timeout", "20s")

	viper.SetDefault("store.path", "recipes.db")
	viper.SetDefault("store.similarity_cutoff", 0.85)
	viper.SetDefault("store.hot_cache_size", 512)

	viper.SetDefault("session.backend", "memory")
	viper.SetDefault("session.redis_addr", "localhost:6379")
	viper.SetDefault("session.ttl", "30m")

	viper.SetDefault("resolution.max_iterations", 3)
	viper.SetDefault("resolution.max_extras", 2)

	viper.SetDefault("pantry.defaults", defaultPantry)

	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.requests", 5)
	viper.SetDefault("rate_limit.window", "1m")

	viper.SetDefault("log_level", "info")
}

// defaultPantry lists staples assumed available in every household,
// in English and Turkish.
var defaultPantry = []string{
	"water", "oil", "olive oil", "vegetable oil", "salt", "sugar",
	"su", "yağ", "zeytinyağı", "sıvıyağ", "tuz", "şeker",
	"pepper", "black pepper", "paprika", "red pepper flakes",
	"cumin", "cinnamon", "oregano", "basil", "thyme", "rosemary",
	"garlic powder", "onion powder",
	"biber", "karabiber", "kırmızıbiber", "pul biber",
	"kimyon", "tarçın", "kekik", "fesleğen", "biberiye",
	"sarımsak tozu", "soğan tozu",
}

func validateConfig(config *Config) error {
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}
	if config.Store.Path == "" {
		return fmt.Errorf("store path is required")
	}
	if config.Store.SimilarityCutoff <= 0 || config.Store.SimilarityCutoff > 1 {
		return fmt.Errorf("similarity cutoff must be in (0, 1]")
	}
	if config.Resolution.MaxIterations <= 0 {
		return fmt.Errorf("invalid max iterations")
	}
	if config.Resolution.MaxExtras < 0 {
		return fmt.Errorf("invalid max extras")
	}
	if config.Session.Backend != "memory" && config.Session.Backend != "redis" {
		return fmt.Errorf("session backend must be memory or redis")
	}
	return nil
}
