package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server       ServerConfig
	App          AppConfig
	Steam        SteamConfig
	IGDB         IGDBConfig
	GameCache    GameCacheConfig
	ProfileCache ProfileCacheConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"commongames-api"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Debug       bool   `envconfig:"APP_DEBUG" default:"false"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
}

// SteamConfig holds Steam Web API settings.
type SteamConfig struct {
	APIKey         string        `envconfig:"STEAM_API_KEY" default:""`
	ConnectTimeout time.Duration `envconfig:"STEAM_CONNECT_TIMEOUT" default:"5s"`
	ReadTimeout    time.Duration `envconfig:"STEAM_READ_TIMEOUT" default:"10s"`
}

// IGDBConfig holds IGDB / Twitch OAuth settings.
type IGDBConfig struct {
	ClientID       string        `envconfig:"IGDB_CLIENT_ID" default:""`
	ClientSecret   string        `envconfig:"IGDB_CLIENT_SECRET" default:""`
	TokenPath      string        `envconfig:"IGDB_TOKEN_PATH" default:"./data/twitch_token.json"`
	ConnectTimeout time.Duration `envconfig:"IGDB_CONNECT_TIMEOUT" default:"5s"`
	ReadTimeout    time.Duration `envconfig:"IGDB_READ_TIMEOUT" default:"10s"`
}

// GameCacheConfig holds the persistent game metadata cache settings.
type GameCacheConfig struct {
	Type string        `envconfig:"GAME_CACHE_TYPE" default:"sqlite"` // sqlite or mysql
	Path string        `envconfig:"GAME_CACHE_PATH" default:"./data/games.db"`
	TTL  time.Duration `envconfig:"GAME_CACHE_TTL" default:"720h"` // 30 days

	// MySQL settings (alternate backend)
	Host     string `envconfig:"GAME_CACHE_DB_HOST" default:"localhost"`
	Port     int    `envconfig:"GAME_CACHE_DB_PORT" default:"3306"`
	Name     string `envconfig:"GAME_CACHE_DB_NAME" default:"commongames"`
	User     string `envconfig:"GAME_CACHE_DB_USER" default:"root"`
	Password string `envconfig:"GAME_CACHE_DB_PASS" default:""`

	// CleanupInterval is how often expired rows are purged. Zero disables
	// the scheduler (expired rows are ignored on read either way).
	CleanupInterval time.Duration `envconfig:"GAME_CACHE_CLEANUP_INTERVAL" default:"6h"`
}

// ProfileCacheConfig holds the short-lived player summary cache settings.
type ProfileCacheConfig struct {
	Type string        `envconfig:"PROFILE_CACHE_TYPE" default:"memory"` // memory or redis
	TTL  time.Duration `envconfig:"PROFILE_CACHE_TTL" default:"5m"`

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *ProfileCacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// DSN returns the MySQL data source name for the alternate cache backend.
func (g *GameCacheConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		g.User, g.Password, g.Host, g.Port, g.Name)
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
