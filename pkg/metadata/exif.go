package metadata

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	dexif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
	heicexif "github.com/dsoprea/go-heic-exif-extractor/v2"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

const exifDateLayout = "2006:01:02 15:04:05"

type exifData struct {
	taken time.Time
	model string
}

func readExif(path string) (exifData, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".heic", ".heif":
		return readHeicExif(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return exifData{}, err
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if x == nil || (err != nil && exif.IsCriticalError(err)) {
		if err == nil {
			err = errors.New("exif: no data")
		}
		return exifData{}, err
	}

	var data exifData
	if tag, err := x.Get(exif.Model); err == nil {
		data.model = rawASCII(tag)
	}
	if tag, err := x.Get(exif.DateTimeOriginal); err == nil {
		s, err := tag.StringVal()
		if err != nil {
			return data, fmt.Errorf("DateTimeOriginal: %w", err)
		}
		t, err := parseExifDate(s)
		if err != nil {
			return data, err
		}
		data.taken = t
	}
	return data, nil
}

// rawASCII keeps interior NUL padding and strips only the terminator, so
// corrupted fixed-width fields survive for camera.Normalize.
func rawASCII(tag *tiff.Tag) string {
	if tag.Type != tiff.DTAscii {
		s, _ := tag.StringVal()
		return s
	}
	s := strings.TrimSuffix(string(tag.Val), "\x00")
	return strings.TrimRight(s, " ")
}

func parseExifDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(exifDateLayout, s, time.Local); err == nil {
		return t, nil
	}
	if len(s) >= len("2006:01:02") {
		if t, err := time.ParseInLocation("2006:01:02", s[:10], time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("DateTimeOriginal %q: unrecognized layout", s)
}

// readHeicExif pulls the Exif item out of an ISO-BMFF container. goexif only
// understands JPEG and TIFF framing.
func readHeicExif(path string) (data exifData, err error) {
	defer func() {
		if state := recover(); state != nil {
			err = fmt.Errorf("heic exif: %v", state)
		}
	}()

	mc, err := heicexif.NewHeicExifMediaParser().ParseFile(path)
	if err != nil {
		return exifData{}, err
	}
	rootIfd, _, err := mc.Exif()
	if err != nil {
		return exifData{}, err
	}
	return exifFromIfd(rootIfd)
}

func exifFromIfd(rootIfd *dexif.Ifd) (exifData, error) {
	var data exifData
	model, err := ifdString(rootIfd, "Model")
	if err != nil {
		return data, err
	}
	data.model = model

	exifIfd, err := rootIfd.ChildWithIfdPath(exifcommon.IfdExifStandardIfdIdentity)
	if errors.Is(err, dexif.ErrTagNotFound) {
		return data, nil
	} else if err != nil {
		return data, err
	}
	s, err := ifdString(exifIfd, "DateTimeOriginal")
	if err != nil || s == "" {
		return data, err
	}
	t, err := parseExifDate(s)
	if err != nil {
		return data, err
	}
	data.taken = t
	return data, nil
}

// ifdString returns the first ASCII value of tagName, or "" when absent.
func ifdString(ifd *dexif.Ifd, tagName string) (string, error) {
	tags, err := ifd.FindTagWithName(tagName)
	if errors.Is(err, dexif.ErrTagNotFound) || (err == nil && len(tags) == 0) {
		return "", nil
	} else if err != nil {
		return "", err
	}
	value, err := tags[0].Value()
	if err != nil {
		return "", err
	}
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%s: unexpected type %T", tagName, value)
	}
	return strings.TrimRight(s, " \x00"), nil
}
