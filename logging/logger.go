// Package logging builds the zap logger shared by the server and the CLI.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls level, encoding and the optional rotated log file.
type Options struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// New returns a logger writing to stderr and, when File is set, to a
// lumberjack-rotated file as JSON.
func New(opts Options) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var consoleEncoder zapcore.Encoder
	if opts.Format == "json" {
		consoleEncoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		devConfig := encoderConfig
		devConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		consoleEncoder = zapcore.NewConsoleEncoder(devConfig)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stderr), level),
	}
	if opts.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(rotator), level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}
