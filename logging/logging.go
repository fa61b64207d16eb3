// Package logging configures the process-wide logger. The chat TUI owns
// stdout and stderr, so all diagnostics go to a rolling file under the
// active .parley directory.
package logging

import (
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup builds a file-backed zap logger. logDir is created by lumberjack on
// first write. Pass debug=true to lower the level to Debug.
func Setup(logDir string, debug bool) *zap.Logger {
	w := zapcore.AddSync(&lumberjack.Logger{
		Filename:   filepath.Join(logDir, "parley.log"),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     14, // days
	})

	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), w, level)

	return zap.New(core, zap.AddCaller())
}
