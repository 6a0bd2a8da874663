package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Config holds application configuration.
type Config struct {
	// FastPathThreshold is the confidence at or above which a classification
	// is accepted without LLM verification.
	FastPathThreshold float64 `json:"fastpath_threshold,omitempty"`

	// FallbackThreshold is the confidence at or above which a classification
	// is returned as provisional (flagged for verification). Below it the
	// query is unclassified.
	FallbackThreshold float64 `json:"fallback_threshold,omitempty"`

	// InclusionThreshold is the minimum per-candidate keyword score for a
	// system/domain/cluster to appear in the classification sets.
	InclusionThreshold float64 `json:"inclusion_threshold,omitempty"`

	// BoostIncrement is the confidence added per consecutive prior query in
	// the same domain.
	BoostIncrement float64 `json:"boost_increment,omitempty"`

	// BoostCap is the maximum total confidence the session booster may add.
	BoostCap float64 `json:"boost_cap,omitempty"`

	// HistoryWindow is how many recent history entries the booster inspects.
	HistoryWindow int `json:"history_window,omitempty"`

	// MaxQueryChars is the maximum accepted query length. Longer queries are
	// rejected as invalid.
	MaxQueryChars int `json:"max_query_chars,omitempty"`

	// StoreBackend selects the persistence backend: "sqlite" (default),
	// "file", or "memory".
	StoreBackend string `json:"store_backend,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized (reduces "database is locked" errors).
	// 0 means use sql.DB default (unlimited). Only set if you experience contention.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// All tools are enabled by default. Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes is a list of type names to disable entirely.
	// All tools belonging to disabled types are excluded from registration.
	// Known types: "query", "constraint", "session", "cache".
	DisabledTypes []string `json:"disabled_types,omitempty"`

	// TaxonomyPaths lists markdown overlay files merged into the built-in
	// taxonomy at startup, in order.
	TaxonomyPaths []string `json:"taxonomy_paths,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		FastPathThreshold:  0.85,
		FallbackThreshold:  0.40,
		InclusionThreshold: 0.35,
		BoostIncrement:     0.05,
		BoostCap:           0.15,
		HistoryWindow:      3,
		MaxQueryChars:      2000,
		StoreBackend:       "sqlite",
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.switchboard.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.switchboard) and repo
// (.switchboard) directories. Repo config is found by walking upward from
// startDir to find the nearest .switchboard/config.json. Repo config takes
// precedence for scalar values; arrays are merged (deduplicated). Either or
// both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	// Apply defaults, then global, then repo
	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest
// .switchboard/config.json. Returns the path if found, or empty string.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".switchboard", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.FastPathThreshold = overlayFloat(base.FastPathThreshold, overlay.FastPathThreshold)
	result.FallbackThreshold = overlayFloat(base.FallbackThreshold, overlay.FallbackThreshold)
	result.InclusionThreshold = overlayFloat(base.InclusionThreshold, overlay.InclusionThreshold)
	result.BoostIncrement = overlayFloat(base.BoostIncrement, overlay.BoostIncrement)
	result.BoostCap = overlayFloat(base.BoostCap, overlay.BoostCap)

	result.HistoryWindow = overlayInt(base.HistoryWindow, overlay.HistoryWindow)
	result.MaxQueryChars = overlayInt(base.MaxQueryChars, overlay.MaxQueryChars)
	result.DBMaxOpenConns = overlayInt(base.DBMaxOpenConns, overlay.DBMaxOpenConns)
	result.DBMaxIdleConns = overlayInt(base.DBMaxIdleConns, overlay.DBMaxIdleConns)

	result.StoreBackend = overlay.StoreBackend
	if result.StoreBackend == "" {
		result.StoreBackend = base.StoreBackend
	}

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)
	result.TaxonomyPaths = mergeStringSlice(base.TaxonomyPaths, overlay.TaxonomyPaths)

	return result
}

func overlayFloat(base, overlay float64) float64 {
	if overlay != 0 {
		return overlay
	}
	return base
}

func overlayInt(base, overlay int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
