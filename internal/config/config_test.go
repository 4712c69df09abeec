package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, DefaultPageSize, cfg.PageSize)
	assert.Equal(t, 15*time.Second, cfg.Timeout.Std())
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
page_size = 50
timeout = "30s"
chrome_tls = true
lat = 45.76
lng = 4.83
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.PageSize)
	assert.Equal(t, 30*time.Second, cfg.Timeout.Std())
	assert.True(t, cfg.ChromeTLS)
	require.NotNil(t, cfg.Lat)
	assert.InDelta(t, 45.76, *cfg.Lat, 1e-9)
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL, "unset keys keep defaults")
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("page_size = ["), 0644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := DefaultConfig()
	cfg.PageSize = 7
	cfg.ProxyURL = "socks5://127.0.0.1:1080"
	require.NoError(t, Save(cfg, path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestValidate(t *testing.T) {
	lat := 100.0
	lng := 2.0
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty base url", func(c *Config) { c.BaseURL = "" }},
		{"relative base url", func(c *Config) { c.BaseURL = "operateurs" }},
		{"zero page size", func(c *Config) { c.PageSize = 0 }},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }},
		{"lat without lng", func(c *Config) { c.Lat = &lng }},
		{"latitude out of range", func(c *Config) { c.Lat, c.Lng = &lat, &lng }},
		{"empty db path", func(c *Config) { c.DBPath = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestFlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("page_size = 50\n"), 0644))

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	f := RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"-config", path, "-page-size", "5", "-lat", "48.85", "-lng", "2.35"}))

	cfg, err := f.Resolve(fs)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.PageSize)
	require.NotNil(t, cfg.Lng)
	assert.InDelta(t, 2.35, *cfg.Lng, 1e-9)
}

func TestFlagsValidated(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	f := RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"-config", filepath.Join(t.TempDir(), "none.toml"), "-page-size", "0"}))

	_, err := f.Resolve(fs)
	assert.Error(t, err)
}
