// Package config loads ghost's .ghost/settings.json, overlaid by
// .ghost/settings.local.json, into a single explicit Config record. There
// is no mutable global config singleton — callers call Load and read the
// fields they need from the returned *Config.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ghostctl/ghost/internal/paths"
)

// Default tunables, used whenever a field is absent from both settings
// files.
const (
	DefaultLogLevel             = "info"
	DefaultStaleDecayDays       = 30
	DefaultSyncIntervalSeconds  = 300
	DefaultRedactionMode        = "gitleaks+builtin"
	FallbackRedactionMode       = "builtin-only"
)

// ScoreWeights holds per-repository values for the coefficients of the
// relevance-scoring formula (spec §4.6). They are loaded and merged from
// the settings files, but comod.Score does not read them: it applies its
// own literal coefficients (the same values as DefaultScoreWeights).
type ScoreWeights struct {
	FilesMatch      float64 `json:"files_match"`
	NeighboursMatch float64 `json:"neighbours_match"`
	AreaMatch       float64 `json:"area_match"`
	Recency         float64 `json:"recency"`
	Rule            float64 `json:"rule"`
	NoFilesBaseline float64 `json:"no_files_baseline"`
}

// DefaultScoreWeights mirrors the formula's literal coefficients.
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		FilesMatch:      10,
		NeighboursMatch: 5,
		AreaMatch:       5,
		Recency:         3,
		Rule:            20,
		NoFilesBaseline: 1,
	}
}

// Config is ghost's merged, explicit configuration record.
type Config struct {
	Enabled              bool         `json:"enabled"`
	LogLevel             string       `json:"log_level,omitempty"`
	ScoreWeights         ScoreWeights `json:"score_weights,omitempty"`
	StaleDecayDays       int          `json:"stale_decay_days,omitempty"`
	SyncIntervalSeconds  int          `json:"sync_interval_seconds,omitempty"`
	RedactionMode        string       `json:"redaction_mode,omitempty"`
}

func defaults() *Config {
	return &Config{
		Enabled:             true,
		LogLevel:            DefaultLogLevel,
		ScoreWeights:        DefaultScoreWeights(),
		StaleDecayDays:      DefaultStaleDecayDays,
		SyncIntervalSeconds: DefaultSyncIntervalSeconds,
		RedactionMode:       DefaultRedactionMode,
	}
}

// Load reads .ghost/settings.json, then applies any overrides present in
// .ghost/settings.local.json. Missing files yield defaults rather than an
// error; a malformed file is the one case that still errors, since a
// present-but-unparsable settings file is more likely a typo the user
// wants surfaced than a state this package should paper over.
func Load(repoRoot string) (*Config, error) {
	cfg, err := loadFile(paths.Abs(repoRoot, paths.SettingsFile), defaults())
	if err != nil {
		return nil, fmt.Errorf("reading settings file: %w", err)
	}

	localData, err := os.ReadFile(paths.Abs(repoRoot, paths.SettingsLocalFile))
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading local settings file: %w", err)
		}
	} else if err := mergeOverrides(cfg, localData); err != nil {
		return nil, fmt.Errorf("merging local settings: %w", err)
	}

	applyZeroValueDefaults(cfg)
	return cfg, nil
}

func loadFile(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return base, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, base); err != nil {
		return nil, fmt.Errorf("parsing settings file: %w", err)
	}
	return base, nil
}

// mergeOverrides applies only the fields actually present in data onto cfg,
// so an override file containing just `{"log_level": "debug"}` doesn't
// clobber the rest of the configuration with zero values.
func mergeOverrides(cfg *Config, data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parsing JSON: %w", err)
	}

	if v, ok := raw["enabled"]; ok {
		if err := json.Unmarshal(v, &cfg.Enabled); err != nil {
			return fmt.Errorf("parsing enabled: %w", err)
		}
	}
	if v, ok := raw["log_level"]; ok {
		if err := json.Unmarshal(v, &cfg.LogLevel); err != nil {
			return fmt.Errorf("parsing log_level: %w", err)
		}
	}
	if v, ok := raw["score_weights"]; ok {
		if err := json.Unmarshal(v, &cfg.ScoreWeights); err != nil {
			return fmt.Errorf("parsing score_weights: %w", err)
		}
	}
	if v, ok := raw["stale_decay_days"]; ok {
		if err := json.Unmarshal(v, &cfg.StaleDecayDays); err != nil {
			return fmt.Errorf("parsing stale_decay_days: %w", err)
		}
	}
	if v, ok := raw["sync_interval_seconds"]; ok {
		if err := json.Unmarshal(v, &cfg.SyncIntervalSeconds); err != nil {
			return fmt.Errorf("parsing sync_interval_seconds: %w", err)
		}
	}
	if v, ok := raw["redaction_mode"]; ok {
		if err := json.Unmarshal(v, &cfg.RedactionMode); err != nil {
			return fmt.Errorf("parsing redaction_mode: %w", err)
		}
	}
	return nil
}

func applyZeroValueDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.StaleDecayDays == 0 {
		cfg.StaleDecayDays = DefaultStaleDecayDays
	}
	if cfg.SyncIntervalSeconds == 0 {
		cfg.SyncIntervalSeconds = DefaultSyncIntervalSeconds
	}
	if cfg.RedactionMode == "" {
		cfg.RedactionMode = DefaultRedactionMode
	}
	if cfg.ScoreWeights == (ScoreWeights{}) {
		cfg.ScoreWeights = DefaultScoreWeights()
	}
}

// LogLevelGetter adapts Load for internal/logging.SetLevelGetter, which
// needs a zero-argument callback — avoids logging importing config
// directly and creating a cycle risk as config grows.
func LogLevelGetter(repoRoot string) func() string {
	return func() string {
		cfg, err := Load(repoRoot)
		if err != nil {
			return ""
		}
		return cfg.LogLevel
	}
}
