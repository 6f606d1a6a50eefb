package config

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"mediasort/pkg/imports"
	"mediasort/pkg/storage"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.DateLayout().Validate(); err != nil {
		return fmt.Errorf("layout: %w", err)
	}
	switch c.DuplicateMode() {
	case imports.DuplicatesOff, imports.DuplicatesDelete, imports.DuplicatesQuarantine:
	default:
		return fmt.Errorf("duplicates.mode must be off, delete or quarantine, got %q", c.Duplicates.Mode)
	}
	switch c.CollisionPolicy() {
	case storage.CollisionSuffix, storage.CollisionReject:
	default:
		return fmt.Errorf("move.on_collision must be suffix or reject, got %q", c.Move.OnCollision)
	}
	if c.Extract.Workers < 1 {
		return errors.New("extract.workers must be positive")
	}
	switch c.HEIC.Originals {
	case heicOriginalsDelete, heicOriginalsMove:
	default:
		return fmt.Errorf("heic.originals must be delete or move, got %q", c.HEIC.Originals)
	}
	return c.validateLogging()
}

func (c *Config) validateLogging() error {
	if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch c.Logging.Format {
	case "text", "json":
		return nil
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
}
