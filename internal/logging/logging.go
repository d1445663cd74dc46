// Package logging builds the process logger. Console output goes to stderr
// as JSON; an optional file sink rotates via lumberjack.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects log verbosity and an optional rotating file sink.
type Options struct {
	// Verbose lowers the level from Info to Debug.
	Verbose bool

	// FilePath, when non-empty, duplicates log output to a rotating file.
	FilePath string
}

// New constructs the logger. Callers should defer logger.Sync().
func New(opts Options) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	enc := zapcore.NewJSONEncoder(encCfg)

	level := zapcore.InfoLevel
	if opts.Verbose {
		level = zapcore.DebugLevel
	}

	cores := []zapcore.Core{
		zapcore.NewCore(enc, zapcore.Lock(os.Stderr), level),
	}

	if opts.FilePath != "" {
		sink := &lumberjack.Logger{
			Filename:  opts.FilePath,
			MaxSize:   200, // megabytes per file before rotation
			LocalTime: true,
			Compress:  true,
		}
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(sink), level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller())
}
