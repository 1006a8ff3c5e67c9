package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config mirrors config.yaml.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Log        LogConfig        `mapstructure:"log"`
	Tournament TournamentConfig `mapstructure:"tournament"`
	Presence   PresenceConfig   `mapstructure:"presence"`
	Ledger     LedgerConfig     `mapstructure:"ledger"`
	Archive    ArchiveConfig    `mapstructure:"archive"`
	Vote       VoteConfig       `mapstructure:"vote"`
	Photos     PhotosConfig     `mapstructure:"photos"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Mode    string     `mapstructure:"mode"`
	Address string     `mapstructure:"address"`
	Cors    CorsConfig `mapstructure:"cors"`
	// CookieSecret signs the session cookie. An empty secret makes the server
	// generate one at startup, which invalidates cookies on every restart.
	CookieSecret string `mapstructure:"cookieSecret"`
}

// CorsConfig holds CORS settings.
type CorsConfig struct {
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
}

// DatabaseConfig groups the hot store and the durable store.
type DatabaseConfig struct {
	Redis  RedisConfig  `mapstructure:"redis"`
	Sqlite SqliteConfig `mapstructure:"sqlite"`
}

// RedisConfig holds the Redis connection settings.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SqliteConfig holds the durable store settings.
type SqliteConfig struct {
	Path string `mapstructure:"path"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// TournamentConfig holds the bracket and scheduling policy.
type TournamentConfig struct {
	VotesPerMatchup     int           `mapstructure:"votesPerMatchup"`
	Duration            time.Duration `mapstructure:"duration"`
	CheckInterval       time.Duration `mapstructure:"checkInterval"`
	TickInterval        time.Duration `mapstructure:"tickInterval"`
	CleanupInterval     time.Duration `mapstructure:"cleanupInterval"`
	AutoStart           bool          `mapstructure:"autoStart"`
	PhotosPerTournament int           `mapstructure:"photosPerTournament"`
}

// PresenceConfig holds the liveness windows of the presence map.
type PresenceConfig struct {
	Window        time.Duration `mapstructure:"window"`
	CleanupWindow time.Duration `mapstructure:"cleanupWindow"`
}

// LedgerConfig holds vote history settings.
type LedgerConfig struct {
	HistoryCapacity int `mapstructure:"historyCapacity"`
}

// ArchiveConfig holds history archive settings.
type ArchiveConfig struct {
	Capacity int `mapstructure:"capacity"`
}

// VoteConfig holds the per-user vote rate limit.
type VoteConfig struct {
	RatePerSecond float64 `mapstructure:"ratePerSecond"`
	Burst         int     `mapstructure:"burst"`
}

// PhotosConfig points at the photo catalog seed file.
type PhotosConfig struct {
	CatalogPath string `mapstructure:"catalogPath"`
}

// TracingConfig selects where spans go. Exporter is none, stdout or otlp.
type TracingConfig struct {
	Exporter    string  `mapstructure:"exporter"`
	Endpoint    string  `mapstructure:"endpoint"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRatio float64 `mapstructure:"sampleRatio"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.cors.allowedOrigins", []string{"http://localhost:3000"})
	v.SetDefault("database.redis.address", "localhost:6379")
	v.SetDefault("database.redis.db", 0)
	v.SetDefault("database.sqlite.path", "tournament.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("tournament.votesPerMatchup", 3)
	v.SetDefault("tournament.duration", 30*time.Minute)
	v.SetDefault("tournament.checkInterval", 15*time.Minute)
	v.SetDefault("tournament.tickInterval", 60*time.Second)
	v.SetDefault("tournament.cleanupInterval", time.Hour)
	v.SetDefault("tournament.autoStart", true)
	v.SetDefault("tournament.photosPerTournament", 0)
	v.SetDefault("presence.window", 5*time.Minute)
	v.SetDefault("presence.cleanupWindow", 25*time.Hour)
	v.SetDefault("ledger.historyCapacity", 100)
	v.SetDefault("archive.capacity", 10)
	v.SetDefault("vote.ratePerSecond", 2.0)
	v.SetDefault("vote.burst", 5)
	v.SetDefault("photos.catalogPath", "config/photos.yaml")
	v.SetDefault("tracing.exporter", "none")
	v.SetDefault("tracing.endpoint", "localhost:4317")
	v.SetDefault("tracing.insecure", true)
	v.SetDefault("tracing.sampleRatio", 1.0)
}

// LoadConfig reads config.yaml from ./config or the working directory.
// A missing file is not an error; defaults and environment variables apply.
// Environment overrides use underscores, e.g. DATABASE_REDIS_ADDRESS.
func LoadConfig() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the tournament cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Tournament.VotesPerMatchup < 1:
		return fmt.Errorf("tournament.votesPerMatchup must be positive, got %d", c.Tournament.VotesPerMatchup)
	case c.Tournament.Duration <= 0:
		return errors.New("tournament.duration must be positive")
	case c.Tournament.CheckInterval <= 0:
		return errors.New("tournament.checkInterval must be positive")
	case c.Tournament.TickInterval <= 0:
		return errors.New("tournament.tickInterval must be positive")
	case c.Presence.Window <= 0:
		return errors.New("presence.window must be positive")
	case c.Ledger.HistoryCapacity < 1:
		return fmt.Errorf("ledger.historyCapacity must be positive, got %d", c.Ledger.HistoryCapacity)
	case c.Archive.Capacity < 1:
		return fmt.Errorf("archive.capacity must be positive, got %d", c.Archive.Capacity)
	case c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1:
		return fmt.Errorf("tracing.sampleRatio must be within [0, 1], got %g", c.Tracing.SampleRatio)
	}
	return nil
}
