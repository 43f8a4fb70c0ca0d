package logger_test

import (
	"errors"

	"github.com/wonny/optincome/pkg/config"
	"github.com/wonny/optincome/pkg/logger"
)

// Example_basic demonstrates basic logger usage
func Example_basic() {
	cfg := &config.Config{
		Env:       "development",
		LogLevel:  "info",
		LogFormat: "console",
	}

	// Create logger (SSOT)
	log := logger.New(cfg)

	log.Debug("This won't appear (level is info)")
	log.Info("Screening started")
	log.Warnf("Retry attempt %d of %d", 2, 3)
}

// Example_withFields demonstrates structured logging with fields
func Example_withFields() {
	log := logger.New(&config.Config{Env: "production", LogLevel: "info", LogFormat: "json"})

	log.WithFields(map[string]interface{}{
		"ticker":     "MSFT",
		"expiration": "2024-03-15",
		"passed":     4,
	}).Info("Chain screened")

	log.WithError(errors.New("upstream timeout")).
		WithField("ticker", "QQQ").
		Error("Ticker failed")
}
