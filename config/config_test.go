package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/webquery-go/config"
	"github.com/AntonStoeckl/webquery-go/webquery"
)

func Test_Load_Defaults(t *testing.T) {
	// act
	cfg, err := config.Load("")

	// assert
	require.NoError(t, err)
	assert.Equal(t, webquery.DefaultLimit, cfg.Paging.DefaultLimit)
	assert.Equal(t, 1000, cfg.Paging.MaxLimit)
	assert.Equal(t, config.DriverPGX, cfg.Database.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Log.Pretty)
}

func Test_Load_FileAndEnvironment(t *testing.T) {
	// arrange
	file := filepath.Join(t.TempDir(), "webquery.yaml")
	content := `
paging:
  default_limit: 20
  max_limit: 100
database:
  driver: sqlite
  dsn: "file:books.db"
  table: books
schema:
  file: books.yaml
log:
  level: debug
`
	require.NoError(t, os.WriteFile(file, []byte(content), 0o600))
	t.Setenv("WEBQUERY_PAGING_MAX_LIMIT", "50")
	t.Setenv("WEBQUERY_DATABASE_SUBCLASS_COLUMN", "kind")

	// act
	cfg, err := config.Load(file)

	// assert
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Paging.DefaultLimit)
	assert.Equal(t, 50, cfg.Paging.MaxLimit)
	assert.Equal(t, config.DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "file:books.db", cfg.Database.DSN)
	assert.Equal(t, "books", cfg.Database.Table)
	assert.Equal(t, "kind", cfg.Database.SubclassColumn)
	assert.Equal(t, "books.yaml", cfg.Schema.File)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func Test_Load_MissingExplicitFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))

	assert.Error(t, err)
}

func Test_Config_Validate(t *testing.T) {
	valid := func() config.Config {
		return config.Config{
			Paging:   config.PagingConfig{DefaultLimit: 200, MaxLimit: 1000},
			Database: config.DatabaseConfig{Driver: config.DriverPGX},
			Log:      config.LogConfig{Level: "info"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *config.Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(_ *config.Config) {}, wantErr: false},
		{name: "no_max_limit", mutate: func(c *config.Config) { c.Paging.MaxLimit = 0 }, wantErr: false},
		{name: "negative_default_limit", mutate: func(c *config.Config) { c.Paging.DefaultLimit = -1 }, wantErr: true},
		{name: "default_above_max", mutate: func(c *config.Config) { c.Paging.DefaultLimit = 2000 }, wantErr: true},
		{name: "unknown_driver", mutate: func(c *config.Config) { c.Database.Driver = "mysql" }, wantErr: true},
		{name: "replica_with_pgx", mutate: func(c *config.Config) { c.Database.ReplicaDSN = "postgres://replica" }, wantErr: false},
		{
			name: "replica_without_pgx",
			mutate: func(c *config.Config) {
				c.Database.Driver = config.DriverPostgres
				c.Database.ReplicaDSN = "postgres://replica"
			},
			wantErr: true,
		},
		{name: "unknown_log_level", mutate: func(c *config.Config) { c.Log.Level = "verbose" }, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// arrange
			cfg := valid()
			tc.mutate(&cfg)

			// act
			err := cfg.Validate()

			// assert
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func Test_Config_DecoderOptions(t *testing.T) {
	// arrange
	cfg := config.Config{Paging: config.PagingConfig{DefaultLimit: 5, MaxLimit: 10}}
	resolver, err := webquery.NewStaticResolver(webquery.Property{FieldPath: "title", Type: webquery.TypeString})
	require.NoError(t, err)

	decoder, err := webquery.NewDecoder(resolver, cfg.DecoderOptions()...)
	require.NoError(t, err)

	// act
	defaulted, defaultErr := decoder.DecodeQuery("title=x")
	capped, cappedErr := decoder.DecodeQuery("_limit=500")

	// assert
	require.NoError(t, defaultErr)
	require.NoError(t, cappedErr)
	assert.Equal(t, 5, defaulted.Limit())
	assert.Equal(t, 10, capped.Limit())
}
