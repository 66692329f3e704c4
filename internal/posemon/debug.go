package posemon

import (
	"io"

	"github.com/Dv04/aixavier/internal/monitoring"
)

var streams monitoring.Streams

// SetLogWriters configures the three logging streams for the posemon package.
// Pass nil for any writer to disable that stream.
func SetLogWriters(ops, diag, trace io.Writer) {
	streams.Set("posemon", ops, diag, trace)
}

// opsf logs to the ops stream (collapse model failures).
func opsf(format string, args ...interface{}) { streams.Opsf(format, args...) }

// diagf logs to the diag stream (scorer selection).
func diagf(format string, args ...interface{}) { streams.Diagf(format, args...) }

// tracef logs to the trace stream (per-track emissions).
func tracef(format string, args ...interface{}) { streams.Tracef(format, args...) }
