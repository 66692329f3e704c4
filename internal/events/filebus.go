package events

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileBus appends records to a newline-delimited JSON log.
type FileBus struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

// OpenFileBus opens path for appending, creating it and its directory.
func OpenFileBus(path string) (*FileBus, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create bus directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open bus %s: %w", path, err)
	}
	return &FileBus{path: path, f: f}, nil
}

// Path is the log file location.
func (b *FileBus) Path() string { return b.path }

// Publish writes one record as a single line. Records without an event_id
// are given one.
func (b *FileBus) Publish(ctx context.Context, r Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.EnsureID()
	line, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode %s record: %w", r.Type, err)
	}
	line = append(line, '\n')

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.f == nil {
		return os.ErrClosed
	}
	if _, err := b.f.Write(line); err != nil {
		return fmt.Errorf("append to %s: %w", b.path, err)
	}
	return nil
}

// Close closes the log file.
func (b *FileBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.f == nil {
		return nil
	}
	err := b.f.Close()
	b.f = nil
	return err
}
