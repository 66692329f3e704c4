package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTuningConfig(t *testing.T) {
	cfg := DefaultTuningConfig()

	if cfg.HighThreshold == nil || *cfg.HighThreshold != 0.6 {
		t.Errorf("Expected HighThreshold 0.6, got %v", cfg.HighThreshold)
	}
	if cfg.TrackerAlgorithm == nil || *cfg.TrackerAlgorithm != "bytetrack" {
		t.Errorf("Expected TrackerAlgorithm bytetrack, got %v", cfg.TrackerAlgorithm)
	}
	if cfg.BannerTTL == nil || *cfg.BannerTTL != "3s" {
		t.Errorf("Expected BannerTTL '3s', got %v", cfg.BannerTTL)
	}
	if cfg.GetMaxAge() != 30 {
		t.Errorf("GetMaxAge() = %d, want 30", cfg.GetMaxAge())
	}
	if cfg.GetPhoneDwell() != 2*time.Second {
		t.Errorf("GetPhoneDwell() = %v, want 2s", cfg.GetPhoneDwell())
	}
	require.NoError(t, cfg.Validate())
}

func TestEmptyTuningConfigGetters(t *testing.T) {
	cfg := EmptyTuningConfig()

	assert.Equal(t, "bytetrack", cfg.GetTrackerAlgorithm())
	assert.Equal(t, 0.1, cfg.GetLowThreshold())
	assert.Equal(t, 0.3, cfg.GetMatchIoU())
	assert.Equal(t, 0.4, cfg.GetReIDThreshold())
	assert.Equal(t, 0.1, cfg.GetPoseAssocMinIoU())
	assert.Equal(t, 15.0, cfg.GetFPS())
	assert.Equal(t, 0.65, cfg.GetCollapseThreshold())
	assert.Equal(t, 15, cfg.GetCollapseWindow())
	assert.Equal(t, "", cfg.GetCollapseModelPath())
	assert.Equal(t, 80.0, cfg.GetHandToEarPx())
	assert.Equal(t, 3*time.Second, cfg.GetBannerTTL())
	assert.Equal(t, 500*time.Millisecond, cfg.GetPollInterval())
	assert.Equal(t, 64, cfg.GetQueueSize())
	assert.Empty(t, cfg.GetGestureThresholds())
}

func TestLoadTuningConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")

	testJSON := `{
  "tracker_algorithm": "Simple",
  "max_age": 5,
  "fps": 30,
  "banner_ttl": "10s",
  "gesture_thresholds": {"HALT": 0.9}
}`
	require.NoError(t, os.WriteFile(configPath, []byte(testJSON), 0644))

	cfg, err := LoadTuningConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "simple", cfg.GetTrackerAlgorithm())
	assert.Equal(t, 5, cfg.GetMaxAge())
	assert.Equal(t, 30.0, cfg.GetFPS())
	assert.Equal(t, 10*time.Second, cfg.GetBannerTTL())
	assert.Equal(t, map[string]float64{"halt": 0.9}, cfg.GetGestureThresholds())
	// Omitted fields keep their defaults.
	assert.Equal(t, 0.6, cfg.GetHighThreshold())
}

func TestLoadTuningConfigErrors(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"wrong extension", "cfg.yaml", `{}`},
		{"bad json", "bad.json", `{"max_age": `},
		{"threshold out of range", "range.json", `{"high_threshold": 1.5}`},
		{"low above high", "order.json", `{"high_threshold": 0.2, "low_threshold": 0.3}`},
		{"unknown algorithm", "algo.json", `{"tracker_algorithm": "sort"}`},
		{"bad duration", "dur.json", `{"banner_ttl": "soon"}`},
		{"zero fps", "fps.json", `{"fps": 0}`},
		{"bad gesture threshold", "gesture.json", `{"gesture_thresholds": {"halt": -1}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(tmpDir, tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))
			_, err := LoadTuningConfig(path)
			assert.Error(t, err)
		})
	}

	_, err := LoadTuningConfig(filepath.Join(tmpDir, "missing.json"))
	assert.Error(t, err)
}

func TestLoadTuningConfigTooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "huge.json")
	data := make([]byte, 1024*1024+1)
	for i := range data {
		data[i] = ' '
	}
	require.NoError(t, os.WriteFile(path, data, 0644))
	_, err := LoadTuningConfig(path)
	assert.ErrorContains(t, err, "too large")
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	want := DefaultTuningConfig()

	assert.Equal(t, want.GetTrackerAlgorithm(), cfg.GetTrackerAlgorithm())
	assert.Equal(t, want.GetHighThreshold(), cfg.GetHighThreshold())
	assert.Equal(t, want.GetLowThreshold(), cfg.GetLowThreshold())
	assert.Equal(t, want.GetMaxAge(), cfg.GetMaxAge())
	assert.Equal(t, want.GetCollapseThreshold(), cfg.GetCollapseThreshold())
	assert.Equal(t, want.GetPhoneDwell(), cfg.GetPhoneDwell())
	assert.Equal(t, want.GetBannerTTL(), cfg.GetBannerTTL())
	assert.Equal(t, want.GetPollInterval(), cfg.GetPollInterval())
	assert.Equal(t, want.GetQueueSize(), cfg.GetQueueSize())
}
