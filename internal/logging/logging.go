// Package logging builds the zap logger used by every component.
package logging

import (
	"fmt"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/leeovery/minimize/internal/config"
)

// New builds a logger writing to w. The console format is meant for people
// watching a run; json suits log collectors. An empty level means warn.
func New(cfg config.LoggerConfig, w io.Writer) (*zap.Logger, error) {
	var encCfg zapcore.EncoderConfig
	var enc zapcore.Encoder

	switch cfg.Format {
	case "", "console":
		encCfg = zap.NewDevelopmentEncoderConfig()
		encCfg.TimeKey = "timestamp"
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	case "json":
		encCfg = zap.NewProductionEncoderConfig()
		encCfg.TimeKey = "timestamp"
		encCfg.EncodeTime = zapcore.RFC3339TimeEncoder
		enc = zapcore.NewJSONEncoder(encCfg)
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	levelName := cfg.Level
	if levelName == "" {
		levelName = "warn"
	}
	level, err := zapcore.ParseLevel(levelName)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(w), zap.NewAtomicLevelAt(level))
	return zap.New(core, zap.AddStacktrace(zapcore.ErrorLevel)).Named("minimize"), nil
}
