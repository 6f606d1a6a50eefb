package metadata

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/djherbis/times"
	dexif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"

	"mediasort/pkg/testsupport"
)

func TestKindByExt(t *testing.T) {
	tests := map[string]Kind{
		"a.jpg":    KindImage,
		"a.JPEG":   KindImage,
		"a.png":    KindImage,
		"a.HEIC":   KindImage,
		"a.mp4":    KindVideo,
		"a.MOV":    KindVideo,
		"a.m4v":    KindVideo,
		"a.txt":    KindOther,
		"noext":    KindOther,
		"a.jpg.gz": KindOther,
	}
	for name, want := range tests {
		if got := KindByExt(name); got != want {
			t.Errorf("KindByExt(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestExtractPrefersExif(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.jpg")
	testsupport.WriteFile(t, path, testsupport.JPEGWithExif("2022:01:05 09:15:30", "ILCE-7M3"))

	info := NewExtractor(nil).Extract(path, KindImage)
	if info.Taken.Source != SourceExif {
		t.Fatalf("source = %q, want exif", info.Taken.Source)
	}
	want := time.Date(2022, time.January, 5, 9, 15, 30, 0, time.Local)
	if !info.Taken.Time.Equal(want) {
		t.Fatalf("time = %s, want %s", info.Taken.Time, want)
	}
	if info.Camera != "ILCE-7M3" {
		t.Fatalf("camera = %q", info.Camera)
	}
}

func TestExtractKeepsNulPaddedModel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ricoh.jpg")
	model := "GR II" + strings.Repeat("\x00", 58)
	testsupport.WriteFile(t, path, testsupport.JPEGWithExif("2019:07:01 12:00:00", model))

	info := NewExtractor(nil).Extract(path, KindImage)
	if info.Camera != model {
		t.Fatalf("camera = %q, want the padded model", info.Camera)
	}
}

func TestExtractExifWithoutDateFallsBack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nodate.jpg")
	testsupport.WriteFile(t, path, testsupport.JPEGWithExif("", "EX-Z85"))

	info := NewExtractor(nil).Extract(path, KindImage)
	if info.Taken.Source != SourceFilesystem {
		t.Fatalf("source = %q, want filesystem", info.Taken.Source)
	}
	if info.Camera != "EX-Z85" {
		t.Fatalf("camera = %q", info.Camera)
	}
}

func TestExtractKeepsCameraWithPlaceholderDate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "zero.jpg")
	testsupport.WriteFile(t, path, testsupport.JPEGWithExif("0000:00:00 00:00:00", "ILCE-7M3"))

	info := NewExtractor(nil).Extract(path, KindImage)
	if info.Taken.Source != SourceFilesystem {
		t.Fatalf("source = %q, want filesystem", info.Taken.Source)
	}
	if info.Camera != "ILCE-7M3" {
		t.Fatalf("camera = %q, want ILCE-7M3", info.Camera)
	}
}

func collectIfd(t *testing.T, raw []byte) *dexif.Ifd {
	t.Helper()
	im, err := exifcommon.NewIfdMappingWithStandard()
	if err != nil {
		t.Fatalf("ifd mapping: %v", err)
	}
	_, index, err := dexif.Collect(im, dexif.NewTagIndex(), raw)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	return index.RootIfd
}

func TestExifFromIfd(t *testing.T) {
	x, err := exifFromIfd(collectIfd(t, testsupport.ExifTIFF("2023:06:01 08:30:00", "iPhone 13")))
	if err != nil {
		t.Fatalf("exifFromIfd: %v", err)
	}
	want := time.Date(2023, time.June, 1, 8, 30, 0, 0, time.Local)
	if !x.taken.Equal(want) {
		t.Fatalf("taken = %s, want %s", x.taken, want)
	}
	if x.model != "iPhone 13" {
		t.Fatalf("model = %q", x.model)
	}

	x, err = exifFromIfd(collectIfd(t, testsupport.ExifTIFF("", "iPhone 13")))
	if err != nil {
		t.Fatalf("exifFromIfd without date: %v", err)
	}
	if !x.taken.IsZero() || x.model != "iPhone 13" {
		t.Fatalf("without date: got %+v", x)
	}
}

func TestExtractHeicWithoutExifFallsBack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.heic")
	testsupport.WriteFile(t, path, []byte("not an iso-bmff container"))

	info := NewExtractor(nil).Extract(path, KindImage)
	if info.Taken.Source != SourceFilesystem {
		t.Fatalf("source = %q, want filesystem", info.Taken.Source)
	}
}

func TestExtractFallsBackToFilesystem(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]Kind{
		"corrupt.jpg": KindImage,
		"plain.png":   KindImage,
		"broken.mp4":  KindVideo,
		"notes.txt":   KindOther,
	}
	before := time.Now().Add(-time.Minute)
	for name, kind := range cases {
		path := filepath.Join(dir, name)
		testsupport.WriteFile(t, path, []byte("not really media"))

		info := NewExtractor(nil).Extract(path, kind)
		if info.Taken.Source != SourceFilesystem {
			t.Errorf("%s: source = %q, want filesystem", name, info.Taken.Source)
			continue
		}
		if info.Taken.Time.Before(before) || info.Taken.Time.After(time.Now().Add(time.Minute)) {
			t.Errorf("%s: filesystem time %s is not recent", name, info.Taken.Time)
		}
	}
}

func TestExtractContainerCreation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	created := time.Date(2022, time.February, 10, 12, 0, 0, 0, time.UTC)
	testsupport.WriteFile(t, path, testsupport.MP4WithCreation(created))

	info := NewExtractor(nil).Extract(path, KindVideo)
	if info.Taken.Source != SourceContainer {
		t.Fatalf("source = %q, want container", info.Taken.Source)
	}
	if !info.Taken.Time.Equal(created) {
		t.Fatalf("time = %s, want %s", info.Taken.Time, created)
	}
}

func TestExtractXMPSidecar(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scan.png")
	testsupport.WriteFile(t, path, []byte("\x89PNG\r\n\x1a\n"))
	testsupport.WriteFile(t, filepath.Join(dir, "scan.xmp"), testsupport.XMPPacket("2021-03-04T05:06:07", "2020-12-31T23:00"))

	info := NewExtractor(nil).Extract(path, KindImage)
	if info.Taken.Source != SourceXMP {
		t.Fatalf("source = %q, want xmp", info.Taken.Source)
	}
	want := time.Date(2020, time.December, 31, 23, 0, 0, 0, time.Local)
	if !info.Taken.Time.Equal(want) {
		t.Fatalf("time = %s, want the earliest date %s", info.Taken.Time, want)
	}
}

func TestExtractEmbeddedXMP(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "export.mov")
	data := append([]byte("garbage before the packet "), testsupport.XMPPacket("2018-08-09", "")...)
	testsupport.WriteFile(t, path, append(data, " trailing bytes"...))

	info := NewExtractor(nil).Extract(path, KindVideo)
	if info.Taken.Source != SourceXMP {
		t.Fatalf("source = %q, want xmp", info.Taken.Source)
	}
	if y, m, d := info.Taken.Time.Date(); y != 2018 || m != time.August || d != 9 {
		t.Fatalf("time = %s", info.Taken.Time)
	}
}

func TestEarliestXMPDateElements(t *testing.T) {
	packet := []byte(`<x:xmpmeta xmlns:x="adobe:ns:meta/"><rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">
<rdf:Description xmlns:photoshop="http://ns.adobe.com/photoshop/1.0/" xmlns:exif="http://ns.adobe.com/exif/1.0/">
<photoshop:DateCreated>2015-05-05</photoshop:DateCreated>
<exif:DateTimeOriginal>2015-05-04T10:00:00+02:00</exif:DateTimeOriginal>
</rdf:Description></rdf:RDF></x:xmpmeta>`)

	got, err := earliestXMPDate(packet)
	if err != nil {
		t.Fatalf("earliestXMPDate: %v", err)
	}
	want := time.Date(2015, time.May, 4, 8, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %s, want %s", got, want)
	}

	if _, err := earliestXMPDate([]byte(`<x:xmpmeta xmlns:x="adobe:ns:meta/"/>`)); !errors.Is(err, errNoXMPDate) {
		t.Fatalf("err = %v, want errNoXMPDate", err)
	}
}

func TestExtractWithoutStatReportsNone(t *testing.T) {
	e := NewExtractor(nil)
	e.stat = func(string) (times.Timespec, error) { return nil, os.ErrPermission }

	info := e.Extract(filepath.Join(t.TempDir(), "missing.mp4"), KindVideo)
	if info.Taken.Source != SourceNone || info.Taken.Known() {
		t.Fatalf("taken = %+v, want unknown", info.Taken)
	}
}
