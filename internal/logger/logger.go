package logger

import (
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Format string

const (
	FormatConsole Format = "CONSOLE"
	FormatJSON    Format = "JSON"
)

// Options controls where and how log entries are written.
// An empty File logs to stdout only.
type Options struct {
	Level      string
	Format     Format
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "WARN":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func ParseFormat(format string) Format {
	if Format(strings.ToUpper(format)) == FormatConsole {
		return FormatConsole
	}
	return FormatJSON
}

func encoderConfig(format Format) zapcore.EncoderConfig {
	cfg := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "component",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
	}
	if format == FormatConsole {
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.ConsoleSeparator = " | "
	} else {
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	return cfg
}

// New builds a logger writing to stdout and, when opts.File is set, to a
// size-rotated file. The file sink always uses JSON.
func New(opts Options) *zap.Logger {
	level := zap.NewAtomicLevelAt(parseLevel(opts.Level))

	var stdoutEncoder zapcore.Encoder
	if opts.Format == FormatConsole {
		stdoutEncoder = zapcore.NewConsoleEncoder(encoderConfig(FormatConsole))
	} else {
		stdoutEncoder = zapcore.NewJSONEncoder(encoderConfig(FormatJSON))
	}

	cores := []zapcore.Core{
		zapcore.NewCore(stdoutEncoder, zapcore.AddSync(os.Stdout), level),
	}

	if opts.File != "" {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderConfig(FormatJSON)),
			zapcore.AddSync(rotatingFile(opts)),
			level,
		))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller())
}

func rotatingFile(opts Options) io.Writer {
	maxSize := opts.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 50
	}
	return &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    maxSize,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   true,
	}
}

// Initialize replaces the zap globals so packages can use For.
func Initialize(opts Options) *zap.Logger {
	l := New(opts)
	zap.ReplaceGlobals(l)
	l.Info("Logger initialized",
		zap.String("level", opts.Level),
		zap.String("format", string(opts.Format)),
		zap.String("file", opts.File))
	return l
}

// For creates a named logger for a specific component.
func For(component string) *zap.SugaredLogger {
	return zap.S().Named(component)
}

func Sync() error {
	return zap.L().Sync()
}
