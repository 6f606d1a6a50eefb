// Package metadata determines when a photo or video was captured.
//
// Extraction is best effort. Every source is tried in a fixed order (EXIF,
// container, XMP, filesystem) and failures silently fall through to the next
// one; the Result records which source produced the timestamp.
package metadata

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/djherbis/times"
	"github.com/sirupsen/logrus"
)

// Source names where a capture time came from.
type Source string

const (
	SourceExif       Source = "exif"
	SourceContainer  Source = "container"
	SourceXMP        Source = "xmp"
	SourceFilesystem Source = "filesystem"
	SourceNone       Source = "none"
)

// Result is a capture time together with its provenance. Time is zero when
// Source is SourceNone.
type Result struct {
	Time   time.Time
	Source Source
}

// Known reports whether a timestamp was found.
func (r Result) Known() bool {
	return r.Source != SourceNone && !r.Time.IsZero()
}

// Info is everything the extractor learned about one file.
type Info struct {
	Taken  Result
	Camera string // raw EXIF model, empty when unavailable
}

// Kind is the media class inferred for a file.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
	KindOther Kind = "other"
)

var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".heic": true,
	".heif": true,
	".tif":  true,
	".tiff": true,
	".dng":  true,
	".arw":  true,
	".cr2":  true,
	".nef":  true,
}

var videoExts = map[string]bool{
	".mp4": true,
	".m4v": true,
	".mov": true,
	".3gp": true,
}

// KindByExt classifies name by its extension, case-insensitively.
func KindByExt(name string) Kind {
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case imageExts[ext]:
		return KindImage
	case videoExts[ext]:
		return KindVideo
	default:
		return KindOther
	}
}

// Extractor reads capture metadata from files. It is safe for concurrent use.
type Extractor struct {
	log  logrus.FieldLogger
	stat func(name string) (times.Timespec, error)
}

// NewExtractor returns an Extractor logging fallbacks at debug level.
func NewExtractor(log logrus.FieldLogger) *Extractor {
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	return &Extractor{log: log, stat: times.Stat}
}

// Extract returns the capture time of path and, for images, the camera model.
// It never fails: the worst case is a Result with SourceNone.
func (e *Extractor) Extract(path string, kind Kind) Info {
	log := e.log.WithFields(logrus.Fields{"path": path, "kind": kind})
	var info Info

	switch kind {
	case KindImage:
		x, err := readExif(path)
		info.Camera = x.model
		if err != nil {
			log.WithError(err).Debug("exif unavailable")
			break
		}
		if !x.taken.IsZero() {
			info.Taken = Result{Time: x.taken, Source: SourceExif}
			return info
		}
		log.Debug("exif has no DateTimeOriginal")
	case KindVideo:
		t, err := readContainerCreation(path)
		if err == nil {
			info.Taken = Result{Time: t, Source: SourceContainer}
			return info
		}
		log.WithError(err).Debug("container creation date unavailable")
	}

	t, err := readXMP(path)
	if err == nil {
		info.Taken = Result{Time: t, Source: SourceXMP}
		return info
	}
	log.WithError(err).Debug("xmp date unavailable")

	t, err = e.filesystemTime(path)
	if err != nil {
		log.WithError(err).Debug("filesystem time unavailable")
		info.Taken = Result{Source: SourceNone}
		return info
	}
	info.Taken = Result{Time: t, Source: SourceFilesystem}
	return info
}

// filesystemTime prefers the birth time, then the inode change time, then
// the modification time.
func (e *Extractor) filesystemTime(path string) (time.Time, error) {
	ts, err := e.stat(path)
	if err != nil {
		return time.Time{}, err
	}
	switch {
	case ts.HasBirthTime():
		return ts.BirthTime(), nil
	case ts.HasChangeTime():
		return ts.ChangeTime(), nil
	default:
		return ts.ModTime(), nil
	}
}
