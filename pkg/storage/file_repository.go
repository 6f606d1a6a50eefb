package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"mediasort/pkg/imports"
)

// StateDir holds the catalog and run lock inside the output directory.
const StateDir = ".mediasort"

// CollisionPolicy decides what happens when a destination name is taken.
type CollisionPolicy string

const (
	// CollisionSuffix appends _1, _2, ... before the extension.
	CollisionSuffix CollisionPolicy = "suffix"
	// CollisionReject fails the move with ErrCollision.
	CollisionReject CollisionPolicy = "reject"
)

var (
	// ErrCollision is returned under CollisionReject when the destination exists.
	ErrCollision = errors.New("destination already exists")
	// ErrAlreadyMoved is returned when a source is moved a second time in one run.
	ErrAlreadyMoved = errors.New("source already moved in this run")
)

// maxSuffix bounds the search for a free name.
const maxSuffix = 10000

type SourceFileStorage struct {
	sourcePath string
	skipDirs   []string
}

// NewSourceFileStorage opens a source directory. Entries under skipDirs (for
// example an output tree nested in the source) are never listed.
func NewSourceFileStorage(sourcePath string, skipDirs ...string) (*SourceFileStorage, error) {
	info, err := os.Stat(sourcePath)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", sourcePath)
	}
	s := SourceFileStorage{
		sourcePath: filepath.Clean(sourcePath),
	}
	for _, d := range skipDirs {
		if d != "" {
			s.skipDirs = append(s.skipDirs, filepath.Clean(d))
		}
	}
	return &s, nil
}

// SourcePath returns the listed directory.
func (s *SourceFileStorage) SourcePath() string {
	return s.sourcePath
}

// GetSourceFiles lists the regular files directly inside the source
// directory, sorted by name. Hidden files are skipped except AppleDouble
// "._" entries, which duplicate detection needs to see. XMP sidecars are
// not listed; they are read through their media file.
func (s *SourceFileStorage) GetSourceFiles() ([]imports.SourceEntry, error) {
	entries, err := os.ReadDir(s.sourcePath)
	if err != nil {
		return nil, err
	}

	files := make([]imports.SourceEntry, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		path := filepath.Join(s.sourcePath, name)
		if e.IsDir() || s.skipped(path) {
			continue
		}
		if strings.HasPrefix(name, ".") && !strings.HasPrefix(name, "._") {
			continue
		}
		if strings.EqualFold(filepath.Ext(name), ".xmp") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// vanished between ReadDir and Info
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		files = append(files, imports.SourceEntry{Name: name, Path: path, Size: info.Size()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

func (s *SourceFileStorage) skipped(path string) bool {
	for _, d := range s.skipDirs {
		if path == d || strings.HasPrefix(path, d+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// RemoveSourceFile deletes a file from the source directory.
func (s *SourceFileStorage) RemoveSourceFile(fpath string) error {
	return os.Remove(fpath)
}

// DestinationFileStorage moves files into the output tree. Moves never
// overwrite an existing file.
type DestinationFileStorage struct {
	destinationPath string
	policy          CollisionPolicy

	mu      sync.Mutex
	moved   map[string]string
	claimed map[string]struct{}
}

// NewDestinationFileStorage create new file storage object. Directories are
// created by the first Move into them.
func NewDestinationFileStorage(destPath string, policy CollisionPolicy) (*DestinationFileStorage, error) {
	switch policy {
	case "":
		policy = CollisionSuffix
	case CollisionSuffix, CollisionReject:
	default:
		return nil, fmt.Errorf("unknown collision policy %q", policy)
	}
	return &DestinationFileStorage{
		destinationPath: filepath.Clean(destPath),
		policy:          policy,
		moved:           make(map[string]string),
		claimed:         make(map[string]struct{}),
	}, nil
}

// OutputPath returns the root of the output tree.
func (d *DestinationFileStorage) OutputPath() string {
	return d.destinationPath
}

func (d *DestinationFileStorage) getTargetPath(rel string) (string, error) {
	target := filepath.Join(d.destinationPath, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", err
	}
	return target, nil
}

// Move renames src to rel (a slash separated path relative to the output
// root) and returns the final absolute destination.
func (d *DestinationFileStorage) Move(src, rel string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if prev, ok := d.moved[src]; ok {
		return "", fmt.Errorf("%s -> %s: %w", src, prev, ErrAlreadyMoved)
	}
	target, err := d.getTargetPath(rel)
	if err != nil {
		return "", err
	}

	for n := 0; n < maxSuffix; n++ {
		candidate := withSuffix(target, n)
		err := renameNoReplace(src, candidate)
		if err == nil {
			d.moved[src] = candidate
			d.claimed[candidate] = struct{}{}
			return candidate, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", err
		}
		if d.policy == CollisionReject {
			return "", fmt.Errorf("%s: %w", candidate, ErrCollision)
		}
	}
	return "", fmt.Errorf("%s: no free name after %d attempts: %w", target, maxSuffix, ErrCollision)
}

// Plan returns where Move would put src without touching the filesystem.
// Names returned by earlier Plan calls count as taken.
func (d *DestinationFileStorage) Plan(src, rel string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if prev, ok := d.moved[src]; ok {
		return "", fmt.Errorf("%s -> %s: %w", src, prev, ErrAlreadyMoved)
	}
	target := filepath.Join(d.destinationPath, filepath.FromSlash(rel))
	for n := 0; n < maxSuffix; n++ {
		candidate := withSuffix(target, n)
		if d.taken(candidate) {
			if d.policy == CollisionReject {
				return "", fmt.Errorf("%s: %w", candidate, ErrCollision)
			}
			continue
		}
		d.moved[src] = candidate
		d.claimed[candidate] = struct{}{}
		return candidate, nil
	}
	return "", fmt.Errorf("%s: no free name after %d attempts: %w", target, maxSuffix, ErrCollision)
}

func (d *DestinationFileStorage) taken(path string) bool {
	if _, ok := d.claimed[path]; ok {
		return true
	}
	_, err := os.Lstat(path)
	return err == nil
}

// withSuffix returns path for n == 0 and "base_n.ext" otherwise.
func withSuffix(path string, n int) string {
	if n == 0 {
		return path
	}
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s_%d%s", strings.TrimSuffix(path, ext), n, ext)
}

// moveAcrossDevices copies src to a freshly created dst and removes src.
func moveAcrossDevices(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", src)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return err
	}
	_ = os.Chtimes(dst, info.ModTime(), info.ModTime())
	return os.Remove(src)
}
