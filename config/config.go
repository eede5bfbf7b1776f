package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"
)

// Config holds the process configuration. A JSON config file is optional;
// environment variables override file values; defaults fill the rest.
type Config struct {
	ListenAddr string `json:"listen_addr"`
	LogPath    string `json:"log_path"`

	// Search backend
	SearchBaseURL        string `json:"search_base_url"`
	SearchTimeoutSeconds int    `json:"search_timeout_seconds"`
	PageSize             int    `json:"page_size"`

	// Metadata provider
	MetadataBaseURL         string `json:"metadata_base_url"`
	MetadataAPIKey          string `json:"metadata_api_key"`
	MetadataTimeoutSeconds  int    `json:"metadata_timeout_seconds"`
	MetadataMaxAttempts     int    `json:"metadata_max_attempts"`
	MetadataRetryBaseMillis int    `json:"metadata_retry_base_millis"`

	// Result cache
	CacheTTLHours     int    `json:"cache_ttl_hours"`
	CacheDatabasePath string `json:"cache_database_path"`

	// Sessions
	SessionIdleMinutes int `json:"session_idle_minutes"`
}

// Manager loads and serves config snapshots.
type Manager struct {
	mu  sync.RWMutex
	cfg Config
}

// NewManager loads configuration from the given JSON file (missing file is
// fine), applies environment overrides, then defaults.
func NewManager(path string) (*Manager, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err == nil {
			if err := json.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	return &Manager{cfg: cfg}, nil
}

// Get returns the current config snapshot.
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

func applyEnv(cfg *Config) {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	envInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	envStr("CINESCOUT_LISTEN_ADDR", &cfg.ListenAddr)
	envStr("CINESCOUT_LOG_PATH", &cfg.LogPath)
	envStr("CINESCOUT_SEARCH_URL", &cfg.SearchBaseURL)
	envInt("CINESCOUT_SEARCH_TIMEOUT_SECONDS", &cfg.SearchTimeoutSeconds)
	envInt("CINESCOUT_PAGE_SIZE", &cfg.PageSize)
	envStr("CINESCOUT_TMDB_URL", &cfg.MetadataBaseURL)
	envStr("CINESCOUT_TMDB_API_KEY", &cfg.MetadataAPIKey)
	envInt("CINESCOUT_TMDB_TIMEOUT_SECONDS", &cfg.MetadataTimeoutSeconds)
	envInt("CINESCOUT_TMDB_MAX_ATTEMPTS", &cfg.MetadataMaxAttempts)
	envInt("CINESCOUT_TMDB_RETRY_BASE_MILLIS", &cfg.MetadataRetryBaseMillis)
	envInt("CINESCOUT_CACHE_TTL_HOURS", &cfg.CacheTTLHours)
	envStr("CINESCOUT_CACHE_DB_PATH", &cfg.CacheDatabasePath)
	envInt("CINESCOUT_SESSION_IDLE_MINUTES", &cfg.SessionIdleMinutes)
}

func applyDefaults(cfg *Config) {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8780"
	}
	if cfg.SearchTimeoutSeconds <= 0 {
		cfg.SearchTimeoutSeconds = 10
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 20
	}
	if cfg.MetadataTimeoutSeconds <= 0 {
		cfg.MetadataTimeoutSeconds = 10
	}
	if cfg.MetadataMaxAttempts <= 0 {
		cfg.MetadataMaxAttempts = 3
	}
	if cfg.MetadataRetryBaseMillis <= 0 {
		cfg.MetadataRetryBaseMillis = 250
	}
	if cfg.CacheTTLHours <= 0 {
		cfg.CacheTTLHours = 7 * 24
	}
	if cfg.SessionIdleMinutes <= 0 {
		cfg.SessionIdleMinutes = 30
	}
}
