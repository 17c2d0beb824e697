package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
)

var (
	logger *zap.Logger
	once   sync.Once
)

// GetLogger returns the shared zap.Logger instance, using singleton pattern creates
// only one reusable instance. Production encoding when APP_ENV=production,
// development config otherwise
func GetLogger() *zap.Logger {
	once.Do(func() {
		var err error
		if os.Getenv("APP_ENV") == "production" {
			logger, err = zap.NewProduction()
		} else {
			logger, err = zap.NewDevelopment()
		}
		if err != nil {
			panic("failed logger setup : " + err.Error())
		}
	})
	return logger
}
