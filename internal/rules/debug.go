package rules

import (
	"io"

	"github.com/Dv04/aixavier/internal/monitoring"
)

var streams monitoring.Streams

// SetLogWriters configures the three logging streams for the rules package.
// Pass nil for any writer to disable that stream.
func SetLogWriters(ops, diag, trace io.Writer) {
	streams.Set("rules", ops, diag, trace)
}

func opsf(format string, args ...interface{})   { streams.Opsf(format, args...) }
func diagf(format string, args ...interface{})  { streams.Diagf(format, args...) }
func tracef(format string, args ...interface{}) { streams.Tracef(format, args...) }
