// Package config loads mediasort settings from TOML.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"mediasort/pkg/imports"
	"mediasort/pkg/layout"
	"mediasort/pkg/storage"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	// OutputDir is the root of the sorted tree. Empty means "<source>/Years".
	OutputDir  string `toml:"output_dir"`
	StagingDir string `toml:"staging_dir"`
	APIBind    string `toml:"api_bind"`
}

// Layout selects the date units of the output tree.
type Layout struct {
	Year   bool `toml:"year"`
	Month  bool `toml:"month"`
	Day    bool `toml:"day"`
	Nested bool `toml:"nested"`
}

// Duplicates configures copy-suffix and AppleDouble handling.
type Duplicates struct {
	Mode string `toml:"mode"`
}

// Move configures placement into the output tree.
type Move struct {
	OnCollision  string `toml:"on_collision"`
	IncludeOther bool   `toml:"include_other"`
}

// Extract configures metadata extraction.
type Extract struct {
	Workers int `toml:"workers"`
}

// Catalog configures the move history database.
type Catalog struct {
	Enabled bool `toml:"enabled"`
}

// HEIC configures the converter.
type HEIC struct {
	Binary    string `toml:"binary"`
	Originals string `toml:"originals"`
}

// Logging contains configuration for log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config encapsulates all configuration values for mediasort.
type Config struct {
	Paths      Paths      `toml:"paths"`
	Layout     Layout     `toml:"layout"`
	Duplicates Duplicates `toml:"duplicates"`
	Move       Move       `toml:"move"`
	Extract    Extract    `toml:"extract"`
	Catalog    Catalog    `toml:"catalog"`
	HEIC       HEIC       `toml:"heic"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. It returns the
// path that was considered and whether a file existed there.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

// resolveConfigPath prefers an explicit path, then ./mediasort.toml, then
// the per-user file.
func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return "", false, fmt.Errorf("config file %s: %w", expanded, err)
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

// OutputFor returns the output directory used when sorting source.
func (c *Config) OutputFor(source string) string {
	if c.Paths.OutputDir != "" {
		return c.Paths.OutputDir
	}
	return filepath.Join(source, defaultOutputName)
}

// DateLayout converts the layout section.
func (c *Config) DateLayout() layout.Layout {
	return layout.Layout{
		Year:   c.Layout.Year,
		Month:  c.Layout.Month,
		Day:    c.Layout.Day,
		Nested: c.Layout.Nested,
	}
}

// DuplicateMode returns the configured duplicate handling.
func (c *Config) DuplicateMode() imports.DuplicateMode {
	return imports.DuplicateMode(c.Duplicates.Mode)
}

// CollisionPolicy returns the configured collision policy.
func (c *Config) CollisionPolicy() storage.CollisionPolicy {
	return storage.CollisionPolicy(c.Move.OnCollision)
}

// DeleteHEICOriginals reports whether converted originals are deleted rather
// than moved aside.
func (c *Config) DeleteHEICOriginals() bool {
	return c.HEIC.Originals == heicOriginalsDelete
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
