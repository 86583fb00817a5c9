package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghostctl/ghost/internal/testutil"
)

func TestLoad_DefaultsWhenNoSettingsFiles(t *testing.T) {
	repo := t.TempDir()
	cfg, err := Load(repo)
	require.NoError(t, err)

	assert.True(t, cfg.Enabled)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, DefaultStaleDecayDays, cfg.StaleDecayDays)
	assert.Equal(t, DefaultSyncIntervalSeconds, cfg.SyncIntervalSeconds)
	assert.Equal(t, DefaultRedactionMode, cfg.RedactionMode)
	assert.Equal(t, DefaultScoreWeights(), cfg.ScoreWeights)
}

func TestLoad_ReadsBaseSettingsFile(t *testing.T) {
	repo := t.TempDir()
	testutil.WriteFile(t, repo, ".ghost/settings.json", `{"enabled": false, "log_level": "debug"}`)

	cfg, err := Load(repo)
	require.NoError(t, err)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_LocalOverlayOnlyTouchesPresentFields(t *testing.T) {
	repo := t.TempDir()
	testutil.WriteFile(t, repo, ".ghost/settings.json", `{"enabled": true, "log_level": "info", "sync_interval_seconds": 600}`)
	testutil.WriteFile(t, repo, ".ghost/settings.local.json", `{"log_level": "debug"}`)

	cfg, err := Load(repo)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 600, cfg.SyncIntervalSeconds)
}

func TestLoad_MalformedSettingsFileErrors(t *testing.T) {
	repo := t.TempDir()
	testutil.WriteFile(t, repo, ".ghost/settings.json", `{not json`)

	_, err := Load(repo)
	assert.Error(t, err)
}

func TestLoad_CustomScoreWeightsOverride(t *testing.T) {
	repo := t.TempDir()
	testutil.WriteFile(t, repo, ".ghost/settings.json", `{"score_weights": {"files_match": 100, "neighbours_match": 50, "area_match": 5, "recency": 3, "rule": 20, "no_files_baseline": 1}}`)

	cfg, err := Load(repo)
	require.NoError(t, err)
	assert.Equal(t, 100.0, cfg.ScoreWeights.FilesMatch)
	assert.Equal(t, 50.0, cfg.ScoreWeights.NeighboursMatch)
}

func TestLogLevelGetter_ReflectsSettings(t *testing.T) {
	repo := t.TempDir()
	testutil.WriteFile(t, repo, ".ghost/settings.json", `{"log_level": "warn"}`)

	getter := LogLevelGetter(repo)
	assert.Equal(t, "warn", getter())
}
