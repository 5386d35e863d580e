package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a named logger with printf-style level helpers.
type Logger struct {
	name  string
	sugar *zap.SugaredLogger
}

// writerHolder wraps an io.Writer so that atomic.Value always stores the same
// concrete type when switching between *os.File and *bytes.Buffer.
type writerHolder struct {
	w io.Writer
}

// sink is the zapcore.WriteSyncer shared by every logger. It forwards to the
// writer currently stored in outputWriter.
type sink struct {
	mu sync.Mutex
}

func (s *sink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return outputWriter.Load().(writerHolder).w.Write(p)
}

func (s *sink) Sync() error {
	if f, ok := outputWriter.Load().(writerHolder).w.(*os.File); ok {
		// stderr/stdout may not support fsync
		_ = f.Sync()
	}
	return nil
}

var (
	globalDebug  atomic.Bool
	serviceDebug sync.Map // map[string]*atomic.Bool
	loggers      sync.Map // map[string]*Logger
	outputWriter atomic.Value

	sharedSink = &sink{}
	core       zapcore.Core
)

const (
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
	LevelDebug = "DEBUG"
)

func init() {
	outputWriter.Store(writerHolder{w: os.Stderr})

	encCfg := zapcore.EncoderConfig{
		TimeKey:          "ts",
		LevelKey:         "level",
		NameKey:          "logger",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeTime:       zapcore.TimeEncoderOfLayout("2006/01/02 15:04:05.000000"),
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		EncodeName:       func(name string, enc zapcore.PrimitiveArrayEncoder) { enc.AppendString("[" + name + ">]") },
		ConsoleSeparator: " ",
	}
	// Level filtering for debug happens in Debugf so it can be toggled per service.
	core = zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), sharedSink, zapcore.DebugLevel)
}

// ForService returns (and memoizes) a named logger for the given service.
func ForService(name string) *Logger {
	if name == "" {
		name = "unknown"
	}
	if l, ok := loggers.Load(name); ok {
		return l.(*Logger)
	}
	logger := &Logger{
		name:  name,
		sugar: zap.New(core).Named(name).Sugar(),
	}
	actual, _ := loggers.LoadOrStore(name, logger)
	return actual.(*Logger)
}

// SetGlobalDebug enables or disables debug logging globally.
func SetGlobalDebug(enabled bool) {
	globalDebug.Store(enabled)
}

// GlobalDebug returns whether global debug logging is enabled.
func GlobalDebug() bool {
	return globalDebug.Load()
}

// EnableDebugFor enables debug logging for a specific service.
func EnableDebugFor(name string) {
	if name == "" {
		return
	}
	val, _ := serviceDebug.LoadOrStore(name, &atomic.Bool{})
	val.(*atomic.Bool).Store(true)
}

// DisableDebugFor disables debug logging for a specific service.
func DisableDebugFor(name string) {
	if name == "" {
		return
	}
	if val, ok := serviceDebug.Load(name); ok {
		val.(*atomic.Bool).Store(false)
	}
}

// DebugEnabledFor returns whether debug is enabled for the given service,
// either globally or specifically.
func DebugEnabledFor(name string) bool {
	if globalDebug.Load() {
		return true
	}
	if val, ok := serviceDebug.Load(name); ok {
		return val.(*atomic.Bool).Load()
	}
	return false
}

// SetOutput routes all loggers, existing and future, to w.
func SetOutput(w io.Writer) {
	if w == nil {
		return
	}
	outputWriter.Store(writerHolder{w: w})
}

// Name returns the service name of the logger.
func (l *Logger) Name() string {
	return l.name
}

// Infof logs an informational message with fmt.Sprintf semantics.
func (l *Logger) Infof(format string, args ...any) {
	l.sugar.Info(fmt.Sprintf(format, args...))
}

// Warnf logs a warning message.
func (l *Logger) Warnf(format string, args ...any) {
	l.sugar.Warn(fmt.Sprintf(format, args...))
}

// Errorf logs an error message.
func (l *Logger) Errorf(format string, args ...any) {
	l.sugar.Error(fmt.Sprintf(format, args...))
}

// Debugf logs a debug message if debug is enabled for this logger's service.
func (l *Logger) Debugf(format string, args ...any) {
	if !DebugEnabledFor(l.name) {
		return
	}
	l.sugar.Debug(fmt.Sprintf(format, args...))
}

// Zap exposes the underlying zap logger for libraries that accept one.
func (l *Logger) Zap() *zap.Logger {
	return l.sugar.Desugar()
}

// Flush syncs buffered output of the shared sink.
func Flush() {
	_ = sharedSink.Sync()
}
