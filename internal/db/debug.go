package db

import (
	"io"

	"github.com/Dv04/aixavier/internal/monitoring"
)

var streams monitoring.Streams

// SetLogWriters configures the three logging streams for the db package.
// Pass nil for any writer to disable that stream.
func SetLogWriters(ops, diag, trace io.Writer) {
	streams.Set("db", ops, diag, trace)
}

func opsf(format string, args ...interface{})  { streams.Opsf(format, args...) }
func diagf(format string, args ...interface{}) { streams.Diagf(format, args...) }
