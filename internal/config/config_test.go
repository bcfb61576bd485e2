package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.True(t, cfg.Engine.IncompleteMatching)
	assert.True(t, cfg.Engine.AutocompleteLastSyllable)
	assert.True(t, cfg.Engine.AutoSuggest)
	assert.Equal(t, 8, cfg.Engine.BufferLimit)
	assert.Equal(t, 8, cfg.Engine.MaxTermLength)
	assert.Equal(t, 10*time.Second, cfg.Engine.CacheTimeout.Std())
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data:
  words: /srv/words.json
storage:
  enabled: false
engine:
  incomplete_matching: false
  buffer_limit: 5
  cache_timeout: 2s
log:
  level: debug
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/words.json", cfg.Data.Words)
	assert.Equal(t, Default().Data.Phrases, cfg.Data.Phrases, "unset keys keep defaults")
	assert.False(t, cfg.Storage.Enabled)
	assert.False(t, cfg.Engine.IncompleteMatching)
	assert.True(t, cfg.Engine.AutoSuggest)
	assert.Equal(t, 5, cfg.Engine.BufferLimit)
	assert.Equal(t, 2*time.Second, cfg.Engine.CacheTimeout.Std())
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[storage]
driver = "sqlite3"

[engine]
auto_suggest = false
max_term_length = 4
cache_timeout = "500ms"
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite3, cfg.Storage.Driver)
	assert.True(t, cfg.Storage.Enabled)
	assert.False(t, cfg.Engine.AutoSuggest)
	assert.Equal(t, 4, cfg.Engine.MaxTermLength)
	assert.Equal(t, 500*time.Millisecond, cfg.Engine.CacheTimeout.Std())
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine: [1, 2"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	for _, name := range []string{"config.yaml", "config.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)

			cfg := Default()
			cfg.Engine.BufferLimit = 6
			cfg.Engine.CacheTimeout = Duration(3 * time.Second)
			cfg.Storage.Driver = DriverSQLite3
			require.NoError(t, cfg.Save(path))

			loaded, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{"buffer limit", func(c *Config) { c.Engine.BufferLimit = 1 }, "buffer_limit"},
		{"term length", func(c *Config) { c.Engine.MaxTermLength = 0 }, "max_term_length"},
		{"driver", func(c *Config) { c.Storage.Driver = "postgres" }, "storage.driver"},
		{"storage path", func(c *Config) { c.Storage.Path = "" }, "storage.path"},
		{"no source", func(c *Config) {
			c.Data = Data{}
			c.Storage.Enabled = false
		}, "no lexicon source"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	cfg := Default()
	cfg.Storage.Enabled = false
	cfg.Storage.Driver = ""
	assert.NoError(t, cfg.Validate(), "driver is ignored when storage is disabled")
}

func TestDataPaths(t *testing.T) {
	cfg := Default()
	cfg.SetDataDir("/srv/zhuyin")
	assert.Equal(t, []string{"/srv/zhuyin/words.json", "/srv/zhuyin/phrases.json"}, cfg.DataPaths())

	cfg.Data.Phrases = ""
	assert.Equal(t, []string{"/srv/zhuyin/words.json"}, cfg.DataPaths())
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "x.db"), ExpandPath("~/x.db"))
	assert.Equal(t, "/abs/x.db", ExpandPath("/abs/x.db"))
	assert.Equal(t, "~user/x", ExpandPath("~user/x"))
}
