// Package heic converts HEIC photos to JPEG with ImageMagick.
package heic

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"mediasort/pkg/storage"
)

// DefaultBinary is the ImageMagick 7 entry point.
const DefaultBinary = "magick"

// OriginalsDir receives converted originals unless they are deleted.
const OriginalsDir = "heic"

// ErrTargetExists is reported for files whose .jpg already exists.
var ErrTargetExists = errors.New("jpeg already exists")

// Converter shells out to ImageMagick.
type Converter struct {
	Binary string

	log           logrus.FieldLogger
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewConverter returns a Converter for binary (DefaultBinary when empty).
func NewConverter(binary string, log logrus.FieldLogger) *Converter {
	if binary == "" {
		binary = DefaultBinary
	}
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	return &Converter{Binary: binary, log: log}
}

// WithCommandRunner sets a custom command runner (for testing).
func (c *Converter) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	c.commandRunner = runner
}

// Convert writes dst from src. The output format follows dst's extension.
func (c *Converter) Convert(ctx context.Context, src, dst string) error {
	return c.run(ctx, c.Binary, src, dst)
}

func (c *Converter) run(ctx context.Context, name string, args ...string) error {
	if c.commandRunner != nil {
		return c.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// DirOptions controls ConvertDir.
type DirOptions struct {
	// DeleteOriginals removes converted .heic files instead of moving them
	// into OriginalsDir.
	DeleteOriginals bool
	DryRun          bool
}

// Result describes one .heic file handled by ConvertDir.
type Result struct {
	Source   string
	Target   string
	Original string // where the original ended up, empty when deleted
	Err      error
}

// ConvertDir converts every .heic file directly inside dir to a .jpg next to
// it. Existing .jpg files are never overwritten. Per-file failures are
// recorded in the results and do not stop the batch.
func (c *Converter) ConvertDir(ctx context.Context, dir string, opts DirOptions) ([]Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.EqualFold(filepath.Ext(e.Name()), ".heic") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var (
		originals *storage.DestinationFileStorage
		results   []Result
	)
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		src := filepath.Join(dir, name)
		res := Result{
			Source: src,
			Target: strings.TrimSuffix(src, filepath.Ext(src)) + ".jpg",
		}
		log := c.log.WithFields(logrus.Fields{"file": name, "target": filepath.Base(res.Target)})

		if _, err := os.Lstat(res.Target); err == nil {
			res.Err = ErrTargetExists
			log.Warn("jpeg already exists, skipping")
			results = append(results, res)
			continue
		} else if !errors.Is(err, fs.ErrNotExist) {
			res.Err = err
			results = append(results, res)
			continue
		}

		if opts.DryRun {
			log.Info("would convert")
			results = append(results, res)
			continue
		}

		if err := c.Convert(ctx, src, res.Target); err != nil {
			res.Err = err
			log.WithError(err).Error("conversion failed")
			results = append(results, res)
			continue
		}

		if opts.DeleteOriginals {
			res.Err = os.Remove(src)
		} else {
			if originals == nil {
				originals, err = storage.NewDestinationFileStorage(filepath.Join(dir, OriginalsDir), storage.CollisionSuffix)
				if err != nil {
					return results, err
				}
			}
			res.Original, res.Err = originals.Move(src, name)
		}
		if res.Err != nil {
			log.WithError(res.Err).Error("failed to put original aside")
		} else {
			log.Info("converted")
		}
		results = append(results, res)
	}
	return results, nil
}
