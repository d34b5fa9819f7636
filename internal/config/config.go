package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server struct {
		Port            string        `yaml:"port"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	// Logging configuration
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	// Database configuration
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	// Search provider configuration
	Search struct {
		GoogleBooksURL string        `yaml:"google_books_url"`
		OpenLibraryURL string        `yaml:"open_library_url"`
		HardcoverURL   string        `yaml:"hardcover_url"`
		HardcoverToken string        `yaml:"hardcover_token"`
		Timeout        time.Duration `yaml:"timeout"`
		Debounce       time.Duration `yaml:"debounce"`
		MaxResults     int           `yaml:"max_results"`
	} `yaml:"search"`

	// Application settings
	App struct {
		SecondsPerPage int `yaml:"seconds_per_page"`
		RecentLimit    int `yaml:"recent_limit"`
	} `yaml:"app"`
}

// Load loads configuration from a file (if specified) and environment
// variables. Priority: environment variables, then config file, then
// defaults.
func Load(configFile string) (*Config, error) {
	cfg := &Config{}

	// Defaults
	cfg.Server.Port = "8080"
	cfg.Server.ShutdownTimeout = 10 * time.Second
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"
	cfg.Database.Path = "./data/bookmate.db"
	cfg.Search.Timeout = 15 * time.Second
	cfg.Search.Debounce = 500 * time.Millisecond
	cfg.Search.MaxResults = 20
	cfg.App.SecondsPerPage = 180
	cfg.App.RecentLimit = 10

	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("config file not found: %s", configFile)
			}
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	loadFromEnv(cfg)
	return cfg, nil
}

func loadFromEnv(cfg *Config) {
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Port = port
	}
	if timeout := getDurationFromEnv("SHUTDOWN_TIMEOUT"); timeout > 0 {
		cfg.Server.ShutdownTimeout = timeout
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		cfg.Logging.Format = format
	}
	if path := os.Getenv("DATABASE_PATH"); path != "" {
		cfg.Database.Path = path
	}
	if u := os.Getenv("GOOGLE_BOOKS_URL"); u != "" {
		cfg.Search.GoogleBooksURL = u
	}
	if u := os.Getenv("OPEN_LIBRARY_URL"); u != "" {
		cfg.Search.OpenLibraryURL = u
	}
	if token := os.Getenv("HARDCOVER_TOKEN"); token != "" {
		cfg.Search.HardcoverToken = token
	}
	if timeout := getDurationFromEnv("SEARCH_TIMEOUT"); timeout > 0 {
		cfg.Search.Timeout = timeout
	}
	if debounce := getDurationFromEnv("SEARCH_DEBOUNCE"); debounce > 0 {
		cfg.Search.Debounce = debounce
	}
	if n := getIntFromEnv("SEARCH_MAX_RESULTS"); n > 0 {
		cfg.Search.MaxResults = n
	}
	if n := getIntFromEnv("SECONDS_PER_PAGE"); n > 0 {
		cfg.App.SecondsPerPage = n
	}
	if n := getIntFromEnv("RECENT_LIMIT"); n > 0 {
		cfg.App.RecentLimit = n
	}
}

func getDurationFromEnv(key string) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return 0
	}
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return d
}

func getIntFromEnv(key string) int {
	raw := os.Getenv(key)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return n
}
