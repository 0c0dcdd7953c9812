// Package logger is the process-wide zap logger. Console output is JSON or
// key=value text; an optional file sink rotates through lumberjack.
package logger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Field keys shared by every component that logs about a passport view
const (
	FieldRenderID       = "render_id"
	FieldPassportNumber = "passport_number"
	FieldSection        = "section"
)

// Rotation defaults for the log file
const (
	defaultMaxSize    = 100 // megabytes
	defaultMaxAge     = 7   // days
	defaultMaxBackups = 5
)

var (
	globalLogger *zap.Logger
	once         sync.Once
)

type ctxKey struct{}

// Config is the logging section of the configuration file
type Config struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
	// File additionally writes to a rotated log file when set
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size"` // megabytes
	MaxAge     int    `yaml:"max_age"`  // days
	MaxBackups int    `yaml:"max_backups"`
	Compress   bool   `yaml:"compress"`
	// AccessLog logs successful HTTP requests at info level
	AccessLog bool `yaml:"access_log"`
	// Stderr sends console output to stderr, keeping stdout free for rendered documents
	Stderr bool `yaml:"stderr"`
}

// Init installs the global logger. Only the first call takes effect.
func Init(cfg Config) error {
	var initErr error
	once.Do(func() {
		globalLogger, initErr = Build(cfg)
	})
	return initErr
}

// Build creates a logger from cfg without installing it globally.
// An unknown level falls back to info.
func Build(cfg Config) (*zap.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	consoleEnc, fileEnc := encoders(cfg.Format)
	cores := []zapcore.Core{zapcore.NewCore(consoleEnc, consoleSink(cfg), level)}
	if sink, ok := fileSink(cfg); ok {
		cores = append(cores, zapcore.NewCore(fileEnc, sink, level))
	}

	return zap.New(zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	), nil
}

// encoders returns the console and file encoders; only the console one is colored
func encoders(format string) (console, file zapcore.Encoder) {
	if format == "text" {
		return newKVEncoder(textEncoderConfig(bracketColorLevelEncoder)),
			newKVEncoder(textEncoderConfig(bracketLevelEncoder))
	}
	enc := zapcore.NewJSONEncoder(jsonEncoderConfig())
	return enc, enc.Clone()
}

func consoleSink(cfg Config) zapcore.WriteSyncer {
	if cfg.Stderr {
		return zapcore.Lock(os.Stderr)
	}
	return zapcore.Lock(os.Stdout)
}

// fileSink returns a rotating writer for cfg.File. A directory that cannot be
// created leaves console logging only.
func fileSink(cfg Config) (zapcore.WriteSyncer, bool) {
	if cfg.File == "" {
		return nil, false
	}
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create log directory: %v, using console only\n", err)
		return nil, false
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    orDefault(cfg.MaxSize, defaultMaxSize),
		MaxAge:     orDefault(cfg.MaxAge, defaultMaxAge),
		MaxBackups: orDefault(cfg.MaxBackups, defaultMaxBackups),
		Compress:   cfg.Compress,
	}), true
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// textEncoderConfig lays out "[time] [LEVEL] caller msg"
func textEncoderConfig(levelEncoder zapcore.LevelEncoder) zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "time"
	cfg.NameKey = zapcore.OmitKey
	cfg.EncodeLevel = levelEncoder
	cfg.EncodeTime = bracketTimeEncoder
	cfg.EncodeDuration = zapcore.StringDurationEncoder
	cfg.ConsoleSeparator = " "
	return cfg
}

func jsonEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg
}

const ansiReset = "\x1b[0m"

var levelColors = map[zapcore.Level]string{
	zapcore.DebugLevel:  "\x1b[35m",
	zapcore.InfoLevel:   "\x1b[34m",
	zapcore.WarnLevel:   "\x1b[33m",
	zapcore.ErrorLevel:  "\x1b[31m",
	zapcore.DPanicLevel: "\x1b[31m",
	zapcore.PanicLevel:  "\x1b[31m",
	zapcore.FatalLevel:  "\x1b[31m",
}

func bracketTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("[2006-01-02 15:04:05]"))
}

func bracketLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString("[" + level.CapitalString() + "]")
}

func bracketColorLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	color, ok := levelColors[level]
	if !ok {
		bracketLevelEncoder(level, enc)
		return
	}
	enc.AppendString(color + "[" + level.CapitalString() + "]" + ansiReset)
}

func parseLevel(level string) (zapcore.Level, error) {
	return zapcore.ParseLevel(level)
}

// Get returns the global logger, or a no-op logger before Init
func Get() *zap.Logger {
	if globalLogger == nil {
		return zap.NewNop()
	}
	return globalLogger
}

// WithView creates a child logger tagged with a view's identity so that all
// lines produced while rendering one passport can be correlated.
func WithView(renderID, passportNumber string) *zap.Logger {
	return Get().With(
		zap.String(FieldRenderID, renderID),
		zap.String(FieldPassportNumber, passportNumber),
	)
}

// NewContext returns ctx carrying l, so code below a view logs with its fields
func NewContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stored by NewContext, or the global logger
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
		return l
	}
	return Get()
}

// The package-level helpers skip their own frame so the caller is reported.
func skipped() *zap.Logger {
	return Get().WithOptions(zap.AddCallerSkip(1))
}

func Debug(msg string, fields ...zap.Field) { skipped().Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { skipped().Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { skipped().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { skipped().Error(msg, fields...) }

// Fatal logs and exits the process
func Fatal(msg string, fields ...zap.Field) { skipped().Fatal(msg, fields...) }

// Sync flushes buffered entries; a nil logger has nothing to flush
func Sync() error {
	if globalLogger == nil {
		return nil
	}
	return globalLogger.Sync()
}
