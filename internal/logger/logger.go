package logger

import "go.uber.org/zap"

// Log is shared application logger. It does nothing until Initialize is called.
var Log = zap.NewNop()

// New creates logger with log level
func New(level string) (*zap.Logger, error) {
	loggerLvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	loggerCfg := zap.NewProductionConfig()
	loggerCfg.Level = loggerLvl

	return loggerCfg.Build()
}

// Initialize replaces Log with logger of given level
func Initialize(level string) error {
	l, err := New(level)
	if err != nil {
		return err
	}
	Log = l
	return nil
}
