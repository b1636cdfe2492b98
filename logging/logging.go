// Package logging builds the zap loggers used by the server and the acquisition loop.
package logging

import (
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config describes where logs go and how verbose they are
type Config struct {
	// Level is one of debug, info, warn, error
	Level string `yaml:"Level" koanf:"Level"`

	// File is the path of the rotated JSON log.  Empty disables file output.
	File string `yaml:"File" koanf:"File"`

	MaxSizeMB  int `yaml:"MaxSizeMB" koanf:"MaxSizeMB"`
	MaxBackups int `yaml:"MaxBackups" koanf:"MaxBackups"`
	MaxAgeDays int `yaml:"MaxAgeDays" koanf:"MaxAgeDays"`

	// Development switches the console to colored, human readable output
	Development bool `yaml:"Development" koanf:"Development"`
}

// DefaultConfig returns the configuration used when none is provided
func DefaultConfig() Config {
	return Config{
		Level:       "info",
		MaxSizeMB:   100,
		MaxBackups:  5,
		MaxAgeDays:  30,
		Development: true,
	}
}

// encoderConfig is the JSON encoder layout used for files
func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// consoleEncoderConfig is the layout used for terminals
func consoleEncoderConfig() zapcore.EncoderConfig {
	cfg := encoderConfig()
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncodeDuration = zapcore.StringDurationEncoder
	cfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.Format("15:04:05.000"))
	}
	return cfg
}

// ParseLevel converts a level name to a zapcore.Level, defaulting to info
func ParseLevel(s string) zapcore.Level {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return zapcore.InfoLevel
	}
	return l
}

// New returns a logger which writes to stdout and, if c.File is set,
// to a rotated JSON file
func New(c Config) *zap.Logger {
	level := ParseLevel(c.Level)

	var console zapcore.Encoder
	if c.Development {
		console = zapcore.NewConsoleEncoder(consoleEncoderConfig())
	} else {
		console = zapcore.NewJSONEncoder(encoderConfig())
	}
	cores := []zapcore.Core{zapcore.NewCore(console, zapcore.AddSync(os.Stdout), level)}

	if c.File != "" {
		w := &lumberjack.Logger{
			Filename:   c.File,
			MaxSize:    c.MaxSizeMB,
			MaxBackups: c.MaxBackups,
			MaxAge:     c.MaxAgeDays,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), zapcore.AddSync(w), level))
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller())
}

// OrNop returns l, or a no-op logger if l is nil
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
