package metadata

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	nsXMP       = "http://ns.adobe.com/xap/1.0/"
	nsExif      = "http://ns.adobe.com/exif/1.0/"
	nsPhotoshop = "http://ns.adobe.com/photoshop/1.0/"

	// maxEmbeddedScan bounds how much of a media file is searched for an
	// embedded packet.
	maxEmbeddedScan = 4 << 20
)

var (
	errNoXMP       = errors.New("no xmp packet")
	errNoXMPDate   = errors.New("xmp packet has no date")
	xmpPacketStart = []byte("<x:xmpmeta")
	xmpPacketEnd   = []byte("</x:xmpmeta>")
)

// Prefixes are accepted in place of namespace URIs for hand-written sidecars
// that omit the xmlns declarations.
var xmpPrefixes = map[string]string{
	"xmp":       nsXMP,
	"exif":      nsExif,
	"photoshop": nsPhotoshop,
}

var xmpDateProps = map[xml.Name]bool{
	{Space: nsXMP, Local: "CreateDate"}:        true,
	{Space: nsExif, Local: "DateTimeOriginal"}: true,
	{Space: nsXMP, Local: "ModifyDate"}:        true,
	{Space: nsPhotoshop, Local: "DateCreated"}: true,
}

var xmpDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02",
}

// readXMP looks for a sidecar first ("IMG_1.jpg.xmp", then "IMG_1.xmp") and
// falls back to a packet embedded in the file itself.
func readXMP(path string) (time.Time, error) {
	for _, sidecar := range sidecarPaths(path) {
		b, err := os.ReadFile(sidecar)
		if err != nil {
			continue
		}
		return earliestXMPDate(b)
	}

	packet, err := embeddedPacket(path)
	if err != nil {
		return time.Time{}, err
	}
	return earliestXMPDate(packet)
}

func sidecarPaths(path string) []string {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	return []string{path + ".xmp", base + ".xmp", base + ".XMP"}
}

func embeddedPacket(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxEmbeddedScan))
	if err != nil {
		return nil, err
	}
	start := bytes.Index(data, xmpPacketStart)
	if start < 0 {
		return nil, errNoXMP
	}
	end := bytes.Index(data[start:], xmpPacketEnd)
	if end < 0 {
		return nil, errNoXMP
	}
	return data[start : start+end+len(xmpPacketEnd)], nil
}

// earliestXMPDate returns the earliest of the known date properties, whether
// written as attributes of rdf:Description or as child elements.
func earliestXMPDate(packet []byte) (time.Time, error) {
	dec := xml.NewDecoder(bytes.NewReader(packet))
	dec.Strict = false

	var earliest time.Time
	consider := func(value string) {
		t, err := parseXMPDate(value)
		if err != nil {
			return
		}
		if earliest.IsZero() || t.Before(earliest) {
			earliest = t
		}
	}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return time.Time{}, fmt.Errorf("parse xmp: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		for _, attr := range start.Attr {
			if isXMPDateProp(attr.Name) {
				consider(attr.Value)
			}
		}
		if isXMPDateProp(start.Name) {
			var value string
			if err := dec.DecodeElement(&value, &start); err != nil {
				return time.Time{}, fmt.Errorf("parse xmp %s: %w", start.Name.Local, err)
			}
			consider(value)
		}
	}

	if earliest.IsZero() {
		return time.Time{}, errNoXMPDate
	}
	return earliest, nil
}

func isXMPDateProp(name xml.Name) bool {
	if uri, ok := xmpPrefixes[name.Space]; ok {
		name.Space = uri
	}
	return xmpDateProps[name]
}

func parseXMPDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range xmpDateLayouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("xmp date %q: unrecognized layout", value)
}
