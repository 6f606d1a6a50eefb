package config

import (
	"fmt"
	"strings"

	"mediasort/pkg/imports"
	"mediasort/pkg/storage"
)

func (c *Config) normalize() error {
	var err error
	if c.Paths.OutputDir, err = expandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.StagingDir, err = expandPath(strings.TrimSpace(c.Paths.StagingDir)); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}

	c.Duplicates.Mode = strings.ToLower(strings.TrimSpace(c.Duplicates.Mode))
	if c.Duplicates.Mode == "" {
		c.Duplicates.Mode = string(imports.DuplicatesOff)
	}
	c.Move.OnCollision = strings.ToLower(strings.TrimSpace(c.Move.OnCollision))
	if c.Move.OnCollision == "" {
		c.Move.OnCollision = string(storage.CollisionSuffix)
	}
	if c.Extract.Workers == 0 {
		c.Extract.Workers = defaultWorkers
	}

	c.HEIC.Binary = strings.TrimSpace(c.HEIC.Binary)
	if c.HEIC.Binary == "" {
		c.HEIC.Binary = defaultHEICBinary
	}
	c.HEIC.Originals = strings.ToLower(strings.TrimSpace(c.HEIC.Originals))
	if c.HEIC.Originals == "" {
		c.HEIC.Originals = heicOriginalsMove
	}

	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
}
