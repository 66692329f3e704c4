package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for pipeline tuning
// parameters: tracker, pose association, pose monitor and runner settings.
// All fields are optional; the Get* accessors supply defaults.
type TuningConfig struct {
	// Tracker params
	TrackerAlgorithm *string  `json:"tracker_algorithm,omitempty"` // "bytetrack" or "simple"
	HighThreshold    *float64 `json:"high_threshold,omitempty"`
	LowThreshold     *float64 `json:"low_threshold,omitempty"`
	MatchIoU         *float64 `json:"match_iou,omitempty"`
	MaxAge           *int     `json:"max_age,omitempty"`
	ReIDThreshold    *float64 `json:"reid_threshold,omitempty"`

	// Pose association and pose tracker params
	PoseAssocMinIoU *float64 `json:"pose_assoc_min_iou,omitempty"`
	PoseTrackIoU    *float64 `json:"pose_track_iou,omitempty"`
	PoseTrackMaxAge *int     `json:"pose_track_max_age,omitempty"`

	// Pose monitor params
	FPS               *float64           `json:"fps,omitempty"`
	CollapseThreshold *float64           `json:"collapse_threshold,omitempty"`
	CollapseWindow    *int               `json:"collapse_window,omitempty"`
	CollapseModelPath *string            `json:"collapse_model_path,omitempty"`
	GestureThreshold  *float64           `json:"gesture_threshold,omitempty"`
	GestureThresholds map[string]float64 `json:"gesture_thresholds,omitempty"`
	PhoneThreshold    *float64           `json:"phone_threshold,omitempty"`
	PhoneMinSpeedKmph *float64           `json:"phone_min_speed_kmph,omitempty"`
	HandToEarPx       *float64           `json:"hand_to_ear_px,omitempty"`
	PhoneDwell        *string            `json:"phone_dwell,omitempty"` // duration string like "2s"
	BannerTTL         *string            `json:"banner_ttl,omitempty"`  // duration string like "3s"
	SmootherAlpha     *float64           `json:"smoother_alpha,omitempty"`

	// Runner params
	QueueSize    *int    `json:"queue_size,omitempty"`
	PollInterval *string `json:"poll_interval,omitempty"` // duration string like "500ms"
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated
// from the Get* defaults.
func DefaultTuningConfig() *TuningConfig {
	e := EmptyTuningConfig()
	return &TuningConfig{
		TrackerAlgorithm:  ptrString(e.GetTrackerAlgorithm()),
		HighThreshold:     ptrFloat64(e.GetHighThreshold()),
		LowThreshold:      ptrFloat64(e.GetLowThreshold()),
		MatchIoU:          ptrFloat64(e.GetMatchIoU()),
		MaxAge:            ptrInt(e.GetMaxAge()),
		ReIDThreshold:     ptrFloat64(e.GetReIDThreshold()),
		PoseAssocMinIoU:   ptrFloat64(e.GetPoseAssocMinIoU()),
		PoseTrackIoU:      ptrFloat64(e.GetPoseTrackIoU()),
		PoseTrackMaxAge:   ptrInt(e.GetPoseTrackMaxAge()),
		FPS:               ptrFloat64(e.GetFPS()),
		CollapseThreshold: ptrFloat64(e.GetCollapseThreshold()),
		CollapseWindow:    ptrInt(e.GetCollapseWindow()),
		GestureThreshold:  ptrFloat64(e.GetGestureThreshold()),
		PhoneThreshold:    ptrFloat64(e.GetPhoneThreshold()),
		PhoneMinSpeedKmph: ptrFloat64(e.GetPhoneMinSpeedKmph()),
		HandToEarPx:       ptrFloat64(e.GetHandToEarPx()),
		PhoneDwell:        ptrString(e.GetPhoneDwell().String()),
		BannerTTL:         ptrString(e.GetBannerTTL().String()),
		SmootherAlpha:     ptrFloat64(e.GetSmootherAlpha()),
		QueueSize:         ptrInt(e.GetQueueSize()),
		PollInterval:      ptrString(e.GetPollInterval().String()),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file fall back to their defaults, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/vision/detector/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

func checkUnit(name string, v *float64) error {
	if v != nil && (*v < 0 || *v > 1) {
		return fmt.Errorf("%s must be between 0 and 1, got %f", name, *v)
	}
	return nil
}

func checkDuration(name string, v *string) error {
	if v != nil && *v != "" {
		if _, err := time.ParseDuration(*v); err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
		}
	}
	return nil
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.TrackerAlgorithm != nil {
		switch strings.ToLower(*c.TrackerAlgorithm) {
		case "", "bytetrack", "simple":
		default:
			return fmt.Errorf("tracker_algorithm must be bytetrack or simple, got %q", *c.TrackerAlgorithm)
		}
	}

	units := []struct {
		name string
		v    *float64
	}{
		{"high_threshold", c.HighThreshold},
		{"low_threshold", c.LowThreshold},
		{"match_iou", c.MatchIoU},
		{"reid_threshold", c.ReIDThreshold},
		{"pose_assoc_min_iou", c.PoseAssocMinIoU},
		{"pose_track_iou", c.PoseTrackIoU},
		{"collapse_threshold", c.CollapseThreshold},
		{"gesture_threshold", c.GestureThreshold},
		{"phone_threshold", c.PhoneThreshold},
		{"smoother_alpha", c.SmootherAlpha},
	}
	for _, u := range units {
		if err := checkUnit(u.name, u.v); err != nil {
			return err
		}
	}
	if c.GetLowThreshold() > c.GetHighThreshold() {
		return fmt.Errorf("low_threshold %.2f exceeds high_threshold %.2f", c.GetLowThreshold(), c.GetHighThreshold())
	}
	for label, thr := range c.GestureThresholds {
		if thr < 0 || thr > 1 {
			return fmt.Errorf("gesture_thresholds[%s] must be between 0 and 1, got %f", label, thr)
		}
	}

	if c.MaxAge != nil && *c.MaxAge < 0 {
		return fmt.Errorf("max_age must be non-negative, got %d", *c.MaxAge)
	}
	if c.PoseTrackMaxAge != nil && *c.PoseTrackMaxAge < 0 {
		return fmt.Errorf("pose_track_max_age must be non-negative, got %d", *c.PoseTrackMaxAge)
	}
	if c.FPS != nil && *c.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %f", *c.FPS)
	}
	if c.CollapseWindow != nil && *c.CollapseWindow < 1 {
		return fmt.Errorf("collapse_window must be at least 1, got %d", *c.CollapseWindow)
	}
	if c.QueueSize != nil && *c.QueueSize < 1 {
		return fmt.Errorf("queue_size must be at least 1, got %d", *c.QueueSize)
	}

	for _, d := range []struct {
		name string
		v    *string
	}{
		{"phone_dwell", c.PhoneDwell},
		{"banner_ttl", c.BannerTTL},
		{"poll_interval", c.PollInterval},
	} {
		if err := checkDuration(d.name, d.v); err != nil {
			return err
		}
	}

	return nil
}

func parseDurationOr(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return def
	}
	return d
}

// GetTrackerAlgorithm returns the tracker_algorithm value or the default.
func (c *TuningConfig) GetTrackerAlgorithm() string {
	if c.TrackerAlgorithm == nil || *c.TrackerAlgorithm == "" {
		return "bytetrack"
	}
	return strings.ToLower(*c.TrackerAlgorithm)
}

// GetHighThreshold returns the high_threshold value or the default.
func (c *TuningConfig) GetHighThreshold() float64 {
	if c.HighThreshold == nil {
		return 0.6
	}
	return *c.HighThreshold
}

// GetLowThreshold returns the low_threshold value or the default.
func (c *TuningConfig) GetLowThreshold() float64 {
	if c.LowThreshold == nil {
		return 0.1
	}
	return *c.LowThreshold
}

// GetMatchIoU returns the match_iou value or the default.
func (c *TuningConfig) GetMatchIoU() float64 {
	if c.MatchIoU == nil {
		return 0.3
	}
	return *c.MatchIoU
}

// GetMaxAge returns the max_age value or the default.
func (c *TuningConfig) GetMaxAge() int {
	if c.MaxAge == nil {
		return 30
	}
	return *c.MaxAge
}

// GetReIDThreshold returns the reid_threshold value or the default.
func (c *TuningConfig) GetReIDThreshold() float64 {
	if c.ReIDThreshold == nil {
		return 0.4
	}
	return *c.ReIDThreshold
}

// GetPoseAssocMinIoU returns the pose_assoc_min_iou value or the default.
func (c *TuningConfig) GetPoseAssocMinIoU() float64 {
	if c.PoseAssocMinIoU == nil {
		return 0.1
	}
	return *c.PoseAssocMinIoU
}

// GetPoseTrackIoU returns the pose_track_iou value or the default.
func (c *TuningConfig) GetPoseTrackIoU() float64 {
	if c.PoseTrackIoU == nil {
		return 0.3
	}
	return *c.PoseTrackIoU
}

// GetPoseTrackMaxAge returns the pose_track_max_age value or the default.
func (c *TuningConfig) GetPoseTrackMaxAge() int {
	if c.PoseTrackMaxAge == nil {
		return 30
	}
	return *c.PoseTrackMaxAge
}

// GetFPS returns the fps value or the default.
func (c *TuningConfig) GetFPS() float64 {
	if c.FPS == nil {
		return 15
	}
	return *c.FPS
}

// GetCollapseThreshold returns the collapse_threshold value or the default.
func (c *TuningConfig) GetCollapseThreshold() float64 {
	if c.CollapseThreshold == nil {
		return 0.65
	}
	return *c.CollapseThreshold
}

// GetCollapseWindow returns the collapse_window value or the default.
func (c *TuningConfig) GetCollapseWindow() int {
	if c.CollapseWindow == nil {
		return 15
	}
	return *c.CollapseWindow
}

// GetCollapseModelPath returns the collapse_model_path value or "" when the
// heuristic scorer should be used.
func (c *TuningConfig) GetCollapseModelPath() string {
	if c.CollapseModelPath == nil {
		return ""
	}
	return *c.CollapseModelPath
}

// GetGestureThreshold returns the default gesture threshold.
func (c *TuningConfig) GetGestureThreshold() float64 {
	if c.GestureThreshold == nil {
		return 0.6
	}
	return *c.GestureThreshold
}

// GetGestureThresholds returns a copy of the per-label gesture thresholds.
func (c *TuningConfig) GetGestureThresholds() map[string]float64 {
	out := make(map[string]float64, len(c.GestureThresholds))
	for k, v := range c.GestureThresholds {
		out[strings.ToLower(k)] = v
	}
	return out
}

// GetPhoneThreshold returns the phone_threshold value or the default.
func (c *TuningConfig) GetPhoneThreshold() float64 {
	if c.PhoneThreshold == nil {
		return 0.6
	}
	return *c.PhoneThreshold
}

// GetPhoneMinSpeedKmph returns the phone_min_speed_kmph value or the default.
func (c *TuningConfig) GetPhoneMinSpeedKmph() float64 {
	if c.PhoneMinSpeedKmph == nil {
		return 0
	}
	return *c.PhoneMinSpeedKmph
}

// GetHandToEarPx returns the hand_to_ear_px value or the default.
func (c *TuningConfig) GetHandToEarPx() float64 {
	if c.HandToEarPx == nil {
		return 80
	}
	return *c.HandToEarPx
}

// GetPhoneDwell parses and returns the PhoneDwell as a time.Duration.
func (c *TuningConfig) GetPhoneDwell() time.Duration {
	return parseDurationOr(c.PhoneDwell, 2*time.Second)
}

// GetBannerTTL parses and returns the BannerTTL as a time.Duration.
func (c *TuningConfig) GetBannerTTL() time.Duration {
	return parseDurationOr(c.BannerTTL, 3*time.Second)
}

// GetSmootherAlpha returns the smoother_alpha value; 0 disables smoothing.
func (c *TuningConfig) GetSmootherAlpha() float64 {
	if c.SmootherAlpha == nil {
		return 0
	}
	return *c.SmootherAlpha
}

// GetQueueSize returns the per-camera frame queue size or the default.
func (c *TuningConfig) GetQueueSize() int {
	if c.QueueSize == nil {
		return 64
	}
	return *c.QueueSize
}

// GetPollInterval parses and returns the PollInterval as a time.Duration.
func (c *TuningConfig) GetPollInterval() time.Duration {
	return parseDurationOr(c.PollInterval, 500*time.Millisecond)
}
