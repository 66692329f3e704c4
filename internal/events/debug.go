package events

import (
	"io"

	"github.com/Dv04/aixavier/internal/monitoring"
)

var streams monitoring.Streams

// SetLogWriters configures the three logging streams for the events package.
// Pass nil for any writer to disable that stream.
func SetLogWriters(ops, diag, trace io.Writer) {
	streams.Set("events", ops, diag, trace)
}

// opsf logs to the ops stream (server lifecycle, dropped records).
func opsf(format string, args ...interface{}) { streams.Opsf(format, args...) }

// diagf logs to the diag stream (subscriber connects and disconnects).
func diagf(format string, args ...interface{}) { streams.Diagf(format, args...) }
