package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger. "debug" selects the development encoder; any other
// level uses the production JSON encoder at that level, defaulting to info.
func New(level, name string) (*zap.Logger, error) {
	if level == "debug" {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		return logger.Named(name), nil
	}

	cfg := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Named(name), nil
}
