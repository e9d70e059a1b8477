// Package logging builds the process logger from configuration.
package logging

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/backsim/config"
)

// New constructs a logrus logger per the logging config. An empty level
// defaults to info, an empty format to text.
func New(cfg config.LoggingConfig) (*logrus.Logger, error) {
	log := logrus.New()

	level := cfg.Level
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	log.SetLevel(lvl)

	switch cfg.Format {
	case "", "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("logging: unknown format %q", cfg.Format)
	}

	return log, nil
}
