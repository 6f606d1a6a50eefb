package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"mediasort/pkg/config"
	"mediasort/pkg/logging"
)

type globalFlags struct {
	config    string
	logLevel  string
	logFormat string
}

type commandContext struct {
	flags *globalFlags

	config *config.Config
	logger *logrus.Logger
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

// ensureConfig loads the configuration once and builds the logger from it.
// Log flags override the file.
func (c *commandContext) ensureConfig(cmd *cobra.Command) (*config.Config, error) {
	if c.config != nil {
		return c.config, nil
	}
	cfg, _, _, err := config.Load(strings.TrimSpace(c.flags.config))
	if err != nil {
		return nil, err
	}

	level, format := cfg.Logging.Level, cfg.Logging.Format
	if c.flags.logLevel != "" {
		level = c.flags.logLevel
	}
	if c.flags.logFormat != "" {
		format = c.flags.logFormat
	}
	logger, err := logging.New(logging.Options{Level: level, Format: format, Output: cmd.ErrOrStderr()})
	if err != nil {
		return nil, err
	}

	c.config = cfg
	c.logger = logger
	return cfg, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

// dirArg returns the absolute form of the optional directory argument.
func dirArg(args []string, fallback string) (string, error) {
	dir := fallback
	if len(args) > 0 {
		dir = args[0]
	}
	if dir == "" {
		dir = "."
	}
	expanded, err := config.ExpandPath(dir)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", dir, err)
	}
	return filepath.Clean(expanded), nil
}
