// Package logging builds the application logger.
package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// New returns a zap logger tuned for the given environment: human-readable
// console output in dev, JSON in prod.
func New(appEnv string) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if appEnv == "prod" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, fmt.Errorf("build zap logger: %w", err)
	}
	return logger, nil
}
