package events

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Dv04/aixavier/internal/timeutil"
)

// DefaultPollInterval is how often Follow checks a log for new lines.
const DefaultPollInterval = 200 * time.Millisecond

// Tailer reads newline-delimited records appended to a file, remembering
// its byte offset between reads. A trailing line without a newline is left
// for the next read.
type Tailer struct {
	path   string
	offset int64
	poll   time.Duration
	clock  timeutil.Clock
}

// NewTailer tails path from the start of the file.
func NewTailer(path string, poll time.Duration) *Tailer {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &Tailer{path: path, poll: poll, clock: timeutil.RealClock{}}
}

// SetClock replaces the clock used between polls.
func (t *Tailer) SetClock(c timeutil.Clock) { t.clock = c }

// Offset is the byte position after the last complete line read.
func (t *Tailer) Offset() int64 { return t.offset }

// SetOffset resumes reading at a previously saved offset.
func (t *Tailer) SetOffset(off int64) { t.offset = off }

// Poll calls fn for every complete non-empty line written since the last
// call and returns the number of lines delivered. A missing file yields
// zero lines. An error from fn stops the read; the failing line is not
// consumed.
func (t *Tailer) Poll(fn func(line []byte) error) (int, error) {
	f, err := os.Open(t.path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", t.path, err)
	}
	defer f.Close()

	if st, err := f.Stat(); err == nil && st.Size() < t.offset {
		// Truncated or replaced; start over.
		t.offset = 0
	}
	if _, err := f.Seek(t.offset, io.SeekStart); err != nil {
		return 0, fmt.Errorf("seek %s: %w", t.path, err)
	}

	r := bufio.NewReader(f)
	n := 0
	for {
		line, err := r.ReadBytes('\n')
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("read %s: %w", t.path, err)
		}
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) > 0 {
			if err := fn(trimmed); err != nil {
				return n, err
			}
			n++
		}
		t.offset += int64(len(line))
	}
}

// Follow polls until ctx is cancelled, returning ctx.Err() then. Errors
// from fn end the loop.
func (t *Tailer) Follow(ctx context.Context, fn func(line []byte) error) error {
	for {
		if _, err := t.Poll(fn); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.clock.After(t.poll):
		}
	}
}

// DecodeRecords adapts a record callback to a line callback. Lines that are
// not valid records are passed to onBad, when set, and skipped.
func DecodeRecords(fn func(Record) error, onBad func(line []byte, err error)) func([]byte) error {
	return func(line []byte) error {
		var r Record
		if err := json.Unmarshal(line, &r); err != nil {
			if onBad != nil {
				onBad(line, err)
			}
			return nil
		}
		return fn(r)
	}
}
