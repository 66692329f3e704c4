package detector

import (
	"io"

	"github.com/Dv04/aixavier/internal/monitoring"
)

var streams monitoring.Streams

// SetLogWriters configures the three logging streams for the detector package.
// Pass nil for any writer to disable that stream.
func SetLogWriters(ops, diag, trace io.Writer) {
	streams.Set("detector", ops, diag, trace)
}

// opsf logs to the ops stream (backend fallbacks, load failures).
func opsf(format string, args ...interface{}) { streams.Opsf(format, args...) }

// diagf logs to the diag stream (backend selection, input sizing).
func diagf(format string, args ...interface{}) { streams.Diagf(format, args...) }

// tracef logs to the trace stream (per-frame candidate counts).
func tracef(format string, args ...interface{}) { streams.Tracef(format, args...) }
