package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	appName  = "bioconnect"
	fileName = "config.toml"

	DefaultBaseURL     = "https://opendata.agencebio.org/api/gouv/operateurs/"
	DefaultGeocoderURL = "https://nominatim.openstreetmap.org/search"
	DefaultPageSize    = 20
)

// Duration is a time.Duration written as text ("15s") in TOML.
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds the application settings.
type Config struct {
	BaseURL       string   `toml:"base_url"`
	GeocoderURL   string   `toml:"geocoder_url"`
	UserAgent     string   `toml:"user_agent,omitempty"`
	ProxyURL      string   `toml:"proxy_url,omitempty"`
	ChromeTLS     bool     `toml:"chrome_tls"`
	PageSize      int      `toml:"page_size"`
	Timeout       Duration `toml:"timeout"`
	LocateTimeout Duration `toml:"locate_timeout"`
	DBPath        string   `toml:"db_path"`
	LogPath       string   `toml:"log_path"`

	// Lat/Lng pin the user's position, bypassing the address lookup.
	Lat *float64 `toml:"lat,omitempty"`
	Lng *float64 `toml:"lng,omitempty"`
}

// Dir returns the bioconnect directory under the user config dir.
func Dir() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		// Fallback to home directory
		configDir, err = os.UserHomeDir()
		if err != nil {
			configDir = "."
		}
		configDir = filepath.Join(configDir, ".config")
	}
	return filepath.Join(configDir, appName)
}

// Path is the default config file location.
func Path() string {
	return filepath.Join(Dir(), fileName)
}

func DefaultConfig() *Config {
	dir := Dir()
	return &Config{
		BaseURL:       DefaultBaseURL,
		GeocoderURL:   DefaultGeocoderURL,
		PageSize:      DefaultPageSize,
		Timeout:       Duration(15 * time.Second),
		LocateTimeout: Duration(15 * time.Second),
		DBPath:        filepath.Join(dir, "bioconnect.db"),
		LogPath:       filepath.Join(dir, "bioconnect.log"),
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating the directory.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("base_url must not be empty")
	}
	if _, err := url.ParseRequestURI(c.BaseURL); err != nil {
		return fmt.Errorf("base_url: %w", err)
	}
	if c.PageSize < 1 {
		return fmt.Errorf("page_size must be at least 1, got %d", c.PageSize)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout.Std())
	}
	if (c.Lat == nil) != (c.Lng == nil) {
		return errors.New("lat and lng must be set together")
	}
	if c.Lat != nil && (*c.Lat < -90 || *c.Lat > 90 || *c.Lng < -180 || *c.Lng > 180) {
		return fmt.Errorf("position %.5f,%.5f out of range", *c.Lat, *c.Lng)
	}
	if c.DBPath == "" {
		return errors.New("db_path must not be empty")
	}
	return nil
}

// Flags holds the global command-line overrides.
type Flags struct {
	ConfigPath string
	DBPath     string
	LogPath    string
	BaseURL    string
	ProxyURL   string
	ChromeTLS  bool
	PageSize   int
	Lat        float64
	Lng        float64
}

// RegisterFlags binds the global flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVar(&f.ConfigPath, "config", Path(), "Config file")
	fs.StringVar(&f.DBPath, "db", "", "SQLite database (favorites, preferences)")
	fs.StringVar(&f.LogPath, "log", "", "Log file")
	fs.StringVar(&f.BaseURL, "base-url", "", "Operator directory API URL")
	fs.StringVar(&f.ProxyURL, "proxy", "", "HTTP/SOCKS5 proxy URL")
	fs.BoolVar(&f.ChromeTLS, "chrome-tls", false, "Use a Chrome TLS fingerprint")
	fs.IntVar(&f.PageSize, "page-size", 0, "Results per page")
	fs.Float64Var(&f.Lat, "lat", 0, "Latitude of your position")
	fs.Float64Var(&f.Lng, "lng", 0, "Longitude of your position")
	return f
}

// Resolve loads the config file named by the flags and applies the flags
// that were set explicitly on fs.
func (f *Flags) Resolve(fs *flag.FlagSet) (*Config, error) {
	cfg, err := Load(f.ConfigPath)
	if err != nil {
		return nil, err
	}

	set := map[string]bool{}
	fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })

	if set["db"] {
		cfg.DBPath = f.DBPath
	}
	if set["log"] {
		cfg.LogPath = f.LogPath
	}
	if set["base-url"] {
		cfg.BaseURL = f.BaseURL
	}
	if set["proxy"] {
		cfg.ProxyURL = f.ProxyURL
	}
	if set["chrome-tls"] {
		cfg.ChromeTLS = f.ChromeTLS
	}
	if set["page-size"] {
		cfg.PageSize = f.PageSize
	}
	if set["lat"] || set["lng"] {
		lat, lng := f.Lat, f.Lng
		cfg.Lat, cfg.Lng = &lat, &lng
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
