// Package monitoring owns process-wide logging for the analytics pipeline.
//
// Packages keep their own ops/diag/trace streams (see each package's
// debug.go) and build them from NewStream so every stream shares the same
// zap encoder settings.
package monitoring

import (
	"io"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logMu sync.RWMutex
	base  *zap.Logger
	sugar *zap.SugaredLogger
)

// Logf is the package-level diagnostic logger. It defaults to the zap global
// sugared logger but may be replaced by SetLogger. Tests or production code
// can redirect or mute it.
var Logf func(format string, v ...interface{}) = func(format string, v ...interface{}) {
	S().Infof(format, v...)
}

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// InitProduction installs a JSON production logger as the process logger.
func InitProduction() error {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	l, err := cfg.Build()
	if err != nil {
		return err
	}
	setLogger(l)
	return nil
}

// InitDevelopment installs a console logger at debug level.
func InitDevelopment() error {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	l, err := cfg.Build()
	if err != nil {
		return err
	}
	setLogger(l)
	return nil
}

func setLogger(l *zap.Logger) {
	logMu.Lock()
	defer logMu.Unlock()
	zap.ReplaceGlobals(l)
	if base != nil {
		_ = base.Sync()
	}
	base = l
	sugar = l.Sugar()
}

// L returns the process logger (never nil).
func L() *zap.Logger {
	logMu.RLock()
	defer logMu.RUnlock()
	if base != nil {
		return base
	}
	return zap.L()
}

// S returns the sugared process logger (never nil).
func S() *zap.SugaredLogger {
	logMu.RLock()
	defer logMu.RUnlock()
	if sugar != nil {
		return sugar
	}
	return zap.S()
}

// Sync flushes the process logger.
func Sync() {
	logMu.RLock()
	defer logMu.RUnlock()
	if base != nil {
		_ = base.Sync()
	}
}

// NewStream builds a console-encoded logger writing to w with the given
// component name. A nil writer yields nil so callers can treat the stream
// as disabled.
func NewStream(name string, w io.Writer) *zap.SugaredLogger {
	if w == nil {
		return nil
	}
	enc := zap.NewDevelopmentEncoderConfig()
	enc.TimeKey = "timestamp"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.CallerKey = ""
	enc.StacktraceKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(w), zapcore.DebugLevel)
	return zap.New(core).Named(name).Sugar()
}

// Streams holds the ops, diag and trace loggers of one package. The zero
// value has every stream disabled.
type Streams struct {
	mu    sync.RWMutex
	ops   *zap.SugaredLogger
	diag  *zap.SugaredLogger
	trace *zap.SugaredLogger
}

// Set replaces all three streams. A nil writer disables that stream.
func (s *Streams) Set(name string, ops, diag, trace io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = NewStream(name, ops)
	s.diag = NewStream(name, diag)
	s.trace = NewStream(name, trace)
}

func (s *Streams) get(which int) *zap.SugaredLogger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch which {
	case 0:
		return s.ops
	case 1:
		return s.diag
	default:
		return s.trace
	}
}

// Opsf logs to the ops stream (actionable warnings, errors, lifecycle events).
func (s *Streams) Opsf(format string, args ...interface{}) {
	if l := s.get(0); l != nil {
		l.Warnf(format, args...)
	}
}

// Diagf logs to the diag stream (day-to-day diagnostics, tuning context).
func (s *Streams) Diagf(format string, args ...interface{}) {
	if l := s.get(1); l != nil {
		l.Infof(format, args...)
	}
}

// Tracef logs to the trace stream (high-frequency per-frame telemetry).
func (s *Streams) Tracef(format string, args ...interface{}) {
	if l := s.get(2); l != nil {
		l.Debugf(format, args...)
	}
}
