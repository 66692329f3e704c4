package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTask(t *testing.T) {
	t.Parallel()

	tests := map[string]Task{
		"object":           TaskObject,
		"object_detection": TaskObject,
		"Detection":        TaskObject,
		"pose":             TaskPose,
		"pose_detection":   TaskPose,
		"face":             TaskFace,
		"face_detection":   TaskFace,
		"face_recognition": TaskFaceRecognition,
		"frs":              TaskFaceRecognition,
		"tamper":           TaskSimulated,
		"":                 TaskSimulated,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseTask(in), "task %q", in)
	}
}

func TestLoadDetectorConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "pose.yaml")
	content := `
task: pose_detection
input:
  width: 320
confidence_threshold: 0.4
classes: [person]
onnx_path: /models/pose.onnx
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadDetectorConfig(path)
	require.NoError(t, err)

	assert.Equal(t, TaskPose, cfg.GetTask())
	w, h := cfg.GetInputSize(640)
	assert.Equal(t, 320, w)
	assert.Equal(t, 640, h)
	assert.Equal(t, 0.4, cfg.GetConfidenceThreshold(0.25))
	assert.Equal(t, 0.6, cfg.GetNMSIoUThreshold(0.6))
	assert.Equal(t, 200, cfg.GetMaxDetections(200))
	assert.Equal(t, []string{"person"}, cfg.Classes)
	assert.Equal(t, "/models/pose.onnx", cfg.ONNXPath)
}

func TestDetectorConfigSimulatedDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := ParseDetectorConfig([]byte("task: tamper\n"))
	require.NoError(t, err)
	assert.Equal(t, TaskSimulated, cfg.GetTask())
	assert.Equal(t, 30, cfg.GetInterval())
	assert.Equal(t, "event", cfg.GetSimulationClass())
	assert.Equal(t, "object", cfg.GetEventType())
}

func TestDetectorConfigRejects(t *testing.T) {
	t.Parallel()

	for _, doc := range []string{
		"confidence_threshold: 2\n",
		"nms_iou_threshold: -0.1\n",
		"max_detections: -1\n",
		"input: {width: -5}\n",
		"interval: -2\n",
		"task: [",
	} {
		_, err := ParseDetectorConfig([]byte(doc))
		assert.Error(t, err, doc)
	}

	_, err := LoadDetectorConfig(filepath.Join(t.TempDir(), "cfg.json"))
	assert.Error(t, err)
}
