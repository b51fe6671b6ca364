package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Init replaces the global zap logger. Call the returned func before exit to flush buffered entries.
func Init(mode string) (func(), error) {
	config := zap.NewProductionConfig()
	if mode == "debug" || mode == "development" {
		config = zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	config.EncoderConfig.TimeKey = "time"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}

	undo := zap.ReplaceGlobals(logger)
	return func() {
		//nolint:errcheck
		logger.Sync()
		undo()
	}, nil
}
