package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Task identifies which detector a DetectorConfig builds.
type Task string

const (
	TaskObject          Task = "object"
	TaskPose            Task = "pose"
	TaskFace            Task = "face"
	TaskFaceRecognition Task = "face_recognition"
	TaskSimulated       Task = "simulated"
)

// ParseTask maps a configured task name, including its aliases, onto a Task.
// Unrecognised names select the simulated detector.
func ParseTask(name string) Task {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "object", "object_detection", "detection":
		return TaskObject
	case "pose", "pose_detection":
		return TaskPose
	case "face", "face_detection":
		return TaskFace
	case "face_recognition", "frs":
		return TaskFaceRecognition
	default:
		return TaskSimulated
	}
}

// InputSize is the model input canvas.
type InputSize struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// DetectorConfig is the YAML configuration of one detector instance.
type DetectorConfig struct {
	Task                string    `yaml:"task"`
	Input               InputSize `yaml:"input"`
	ConfidenceThreshold *float64  `yaml:"confidence_threshold"`
	NMSIoUThreshold     *float64  `yaml:"nms_iou_threshold"`
	MaxDetections       *int      `yaml:"max_detections"`
	Classes             []string  `yaml:"classes"`
	ONNXPath            string    `yaml:"onnx_path"`
	SharedLibrary       string    `yaml:"shared_library"`

	// Simulated detector only.
	Interval        int    `yaml:"interval"`
	SimulationClass string `yaml:"simulation_class"`
	EventType       string `yaml:"event_type"`
}

// LoadDetectorConfig reads a DetectorConfig from a YAML file.
func LoadDetectorConfig(path string) (*DetectorConfig, error) {
	cleanPath := filepath.Clean(path)
	switch ext := filepath.Ext(cleanPath); ext {
	case ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("detector config must have .yaml extension, got %q", ext)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read detector config: %w", err)
	}
	return ParseDetectorConfig(data)
}

// ParseDetectorConfig decodes and validates YAML detector configuration.
func ParseDetectorConfig(data []byte) (*DetectorConfig, error) {
	var cfg DetectorConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse detector YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid detector configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *DetectorConfig) Validate() error {
	if c.Input.Width < 0 || c.Input.Height < 0 {
		return fmt.Errorf("input size must be non-negative, got %dx%d", c.Input.Width, c.Input.Height)
	}
	if err := checkUnit("confidence_threshold", c.ConfidenceThreshold); err != nil {
		return err
	}
	if err := checkUnit("nms_iou_threshold", c.NMSIoUThreshold); err != nil {
		return err
	}
	if c.MaxDetections != nil && *c.MaxDetections < 0 {
		return fmt.Errorf("max_detections must be non-negative, got %d", *c.MaxDetections)
	}
	if c.Interval < 0 {
		return fmt.Errorf("interval must be non-negative, got %d", c.Interval)
	}
	return nil
}

// GetTask returns the normalised task.
func (c *DetectorConfig) GetTask() Task { return ParseTask(c.Task) }

// GetInputSize returns the configured input size, using def for unset sides.
func (c *DetectorConfig) GetInputSize(def int) (int, int) {
	w, h := c.Input.Width, c.Input.Height
	if w <= 0 {
		w = def
	}
	if h <= 0 {
		h = def
	}
	return w, h
}

// GetConfidenceThreshold returns confidence_threshold or def.
func (c *DetectorConfig) GetConfidenceThreshold(def float64) float64 {
	if c.ConfidenceThreshold == nil {
		return def
	}
	return *c.ConfidenceThreshold
}

// GetNMSIoUThreshold returns nms_iou_threshold or def.
func (c *DetectorConfig) GetNMSIoUThreshold(def float64) float64 {
	if c.NMSIoUThreshold == nil {
		return def
	}
	return *c.NMSIoUThreshold
}

// GetMaxDetections returns max_detections or def.
func (c *DetectorConfig) GetMaxDetections(def int) int {
	if c.MaxDetections == nil {
		return def
	}
	return *c.MaxDetections
}

// GetInterval returns the simulated emission interval (default 30).
func (c *DetectorConfig) GetInterval() int {
	if c.Interval <= 0 {
		return 30
	}
	return c.Interval
}

// GetSimulationClass returns the simulated class name (default "event").
func (c *DetectorConfig) GetSimulationClass() string {
	if c.SimulationClass == "" {
		return "event"
	}
	return c.SimulationClass
}

// GetEventType returns the simulated event type (default "object").
func (c *DetectorConfig) GetEventType() string {
	if c.EventType == "" {
		return "object"
	}
	return c.EventType
}
