package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	_ "golang.org/x/image/bmp"
)

// ErrFrameUnreadable reports a frame whose image is missing or cannot be
// decoded. The frame is skipped.
var ErrFrameUnreadable = errors.New("frame unreadable")

// DefaultCameraID is used for frame records without a camera.
const DefaultCameraID = "CAM01"

// FrameRecord is one line of the frames log written by frame acquisition.
type FrameRecord struct {
	CameraID   string  `json:"camera_id"`
	FrameIndex int64   `json:"frame_index"`
	Timestamp  float64 `json:"timestamp"`
	Path       string  `json:"path"`
}

// ParseFrameRecord decodes one frames log line.
func ParseFrameRecord(line []byte) (FrameRecord, error) {
	var fr FrameRecord
	if err := json.Unmarshal(line, &fr); err != nil {
		return FrameRecord{}, fmt.Errorf("decode frame record: %w", err)
	}
	if fr.CameraID == "" {
		fr.CameraID = DefaultCameraID
	}
	return fr, nil
}

// ImageLoader reads the image a frame record refers to.
type ImageLoader func(path string) (image.Image, error)

// LoadImage decodes a JPEG, PNG or BMP frame from disk.
func LoadImage(path string) (image.Image, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: no path", ErrFrameUnreadable)
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFrameUnreadable, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFrameUnreadable, path, err)
	}
	return img, nil
}
