// Package config loads the webquery CLI configuration from defaults, an optional YAML file and
// WEBQUERY_* environment variables, which may come from a .env file. Environment variables win.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/AntonStoeckl/webquery-go/webquery"
)

const envPrefix = "WEBQUERY"

// Supported database drivers.
const (
	DriverPGX      = "pgx"
	DriverPostgres = "postgres"
	DriverSQLX     = "sqlx"
	DriverSQLite   = "sqlite"
)

// Config represents the application configuration
type Config struct {
	Paging   PagingConfig   `mapstructure:"paging"`
	Database DatabaseConfig `mapstructure:"database"`
	Schema   SchemaConfig   `mapstructure:"schema"`
	Log      LogConfig      `mapstructure:"log"`
}

// PagingConfig contains the limits applied while decoding requests
type PagingConfig struct {
	DefaultLimit int `mapstructure:"default_limit"`
	MaxLimit     int `mapstructure:"max_limit"`
}

// DatabaseConfig selects the driver and the queried table
type DatabaseConfig struct {
	Driver         string `mapstructure:"driver"`
	DSN            string `mapstructure:"dsn"`
	ReplicaDSN     string `mapstructure:"replica_dsn"`
	Table          string `mapstructure:"table"`
	SubclassColumn string `mapstructure:"subclass_column"`
}

// SchemaConfig points to the YAML field schema
type SchemaConfig struct {
	File string `mapstructure:"file"`
}

// LogConfig contains zerolog settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// Load reads the configuration. With an empty configFile it looks for webquery.yaml in the
// working directory and in ./config, a missing file is not an error then.
func Load(configFile string) (*Config, error) {
	if err := loadEnvFile(); err != nil {
		log.Debug().Err(err).Msg("No .env file loaded")
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("webquery")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}

		log.Debug().Msg("No config file found, using environment variables and defaults")
	} else {
		log.Debug().Str("file", v.ConfigFileUsed()).Msg("Config file loaded")
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads environment variables from the first .env file found, without overriding set variables
func loadEnvFile() error {
	for _, location := range []string{".env", ".env.local"} {
		if _, err := os.Stat(location); err != nil {
			continue
		}

		if err := godotenv.Load(location); err != nil {
			return fmt.Errorf("error loading .env file from %s: %w", location, err)
		}

		log.Debug().Str("file", location).Msg(".env file loaded")

		return nil
	}

	return errors.New("no .env file found")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("paging.default_limit", webquery.DefaultLimit)
	v.SetDefault("paging.max_limit", 1000)

	v.SetDefault("database.driver", DriverPGX)
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.replica_dsn", "")
	v.SetDefault("database.table", "")
	v.SetDefault("database.subclass_column", "")

	v.SetDefault("schema.file", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Paging.DefaultLimit < 0 || c.Paging.MaxLimit < 0 {
		return errors.New("paging limits must not be negative")
	}

	if c.Paging.MaxLimit > 0 && c.Paging.DefaultLimit > c.Paging.MaxLimit {
		return fmt.Errorf("paging.default_limit (%d) exceeds paging.max_limit (%d)", c.Paging.DefaultLimit, c.Paging.MaxLimit)
	}

	switch c.Database.Driver {
	case DriverPGX, DriverPostgres, DriverSQLX, DriverSQLite:
	default:
		return fmt.Errorf("database.driver must be one of pgx, postgres, sqlx or sqlite, not %q", c.Database.Driver)
	}

	if c.Database.ReplicaDSN != "" && c.Database.Driver != DriverPGX {
		return errors.New("database.replica_dsn is only supported with the pgx driver")
	}

	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}

	return nil
}

// DecoderOptions returns the webquery.Decoder options for the paging settings.
func (c *Config) DecoderOptions() []webquery.DecoderOption {
	return []webquery.DecoderOption{
		webquery.WithDefaultLimit(c.Paging.DefaultLimit),
		webquery.WithMaxLimit(c.Paging.MaxLimit),
	}
}

// Logger builds the zerolog logger described by the log settings.
func (c *Config) Logger() zerolog.Logger {
	level, err := zerolog.ParseLevel(c.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if c.Log.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		logger = zerolog.New(os.Stderr)
	}

	return logger.Level(level).With().Timestamp().Logger()
}
