// Package testsupport builds small but valid media fixtures for tests.
package testsupport

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var be = binary.BigEndian

// WriteFile writes data to path, creating parent directories.
func WriteFile(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

type ifdEntry struct {
	tag    uint16
	typ    uint16
	count  uint32
	inline uint32
	data   []byte
}

// encodeIFD lays out an IFD that starts at offset start, followed by the
// values that do not fit in the 4-byte offset field.
func encodeIFD(entries []ifdEntry, start uint32) []byte {
	bodyLen := uint32(2 + 12*len(entries) + 4)
	body := make([]byte, 0, bodyLen)
	var extra []byte

	body = be.AppendUint16(body, uint16(len(entries)))
	for _, e := range entries {
		body = be.AppendUint16(body, e.tag)
		body = be.AppendUint16(body, e.typ)
		body = be.AppendUint32(body, e.count)
		switch {
		case e.data == nil:
			body = be.AppendUint32(body, e.inline)
		case len(e.data) <= 4:
			v := make([]byte, 4)
			copy(v, e.data)
			body = append(body, v...)
		default:
			body = be.AppendUint32(body, start+bodyLen+uint32(len(extra)))
			extra = append(extra, e.data...)
		}
	}
	body = be.AppendUint32(body, 0)
	return append(body, extra...)
}

func asciiEntry(tag uint16, s string) ifdEntry {
	data := append([]byte(s), 0)
	return ifdEntry{tag: tag, typ: 2, count: uint32(len(data)), data: data}
}

// ExifTIFF returns a big-endian TIFF structure holding Model (IFD0) and
// DateTimeOriginal (Exif sub-IFD). Empty arguments are omitted.
func ExifTIFF(dateTimeOriginal, model string) []byte {
	var ifd0 []ifdEntry
	if model != "" {
		ifd0 = append(ifd0, asciiEntry(0x0110, model))
	}
	var sub []ifdEntry
	if dateTimeOriginal != "" {
		sub = append(sub, asciiEntry(0x9003, dateTimeOriginal))
		ifd0 = append(ifd0, ifdEntry{tag: 0x8769, typ: 4, count: 1})
	}

	const ifd0Start = 8
	ifd0Bytes := encodeIFD(ifd0, ifd0Start)
	subStart := uint32(ifd0Start + len(ifd0Bytes))
	if sub != nil {
		ifd0[len(ifd0)-1].inline = subStart
		ifd0Bytes = encodeIFD(ifd0, ifd0Start)
	}

	out := []byte("MM")
	out = be.AppendUint16(out, 42)
	out = be.AppendUint32(out, ifd0Start)
	out = append(out, ifd0Bytes...)
	if sub != nil {
		out = append(out, encodeIFD(sub, subStart)...)
	}
	return out
}

// JPEGWithExif wraps ExifTIFF in an APP1 segment between SOI and EOI markers.
func JPEGWithExif(dateTimeOriginal, model string) []byte {
	payload := append([]byte("Exif\x00\x00"), ExifTIFF(dateTimeOriginal, model)...)

	out := []byte{0xFF, 0xD8, 0xFF, 0xE1}
	out = be.AppendUint16(out, uint16(len(payload)+2))
	out = append(out, payload...)
	return append(out, 0xFF, 0xD9)
}

func box(typ string, payload []byte) []byte {
	out := be.AppendUint32(nil, uint32(8+len(payload)))
	out = append(out, typ...)
	return append(out, payload...)
}

// MP4WithCreation returns an ftyp box and a moov box whose version 0 mvhd
// records created as its creation time.
func MP4WithCreation(created time.Time) []byte {
	ftyp := box("ftyp", []byte("isom\x00\x00\x02\x00isomiso2mp41"))

	secs := uint32(created.Unix() + 2082844800)
	var p []byte
	p = be.AppendUint32(p, 0) // version and flags
	p = be.AppendUint32(p, secs)
	p = be.AppendUint32(p, secs)
	p = be.AppendUint32(p, 1000)       // timescale
	p = be.AppendUint32(p, 0)          // duration
	p = be.AppendUint32(p, 0x00010000) // rate 1.0
	p = be.AppendUint16(p, 0x0100)     // volume 1.0
	p = be.AppendUint16(p, 0)
	p = append(p, make([]byte, 8)...)
	for _, m := range []uint32{0x00010000, 0, 0, 0, 0x00010000, 0, 0, 0, 0x40000000} {
		p = be.AppendUint32(p, m)
	}
	p = append(p, make([]byte, 24)...)
	p = be.AppendUint32(p, 2) // next track id

	return append(ftyp, box("moov", box("mvhd", p))...)
}

// XMPPacket returns an xmpmeta packet with xmp:CreateDate and, when non-empty,
// xmp:ModifyDate set as attributes.
func XMPPacket(createDate, modifyDate string) []byte {
	attrs := ` xmp:CreateDate="` + createDate + `"`
	if modifyDate != "" {
		attrs += ` xmp:ModifyDate="` + modifyDate + `"`
	}
	return []byte(`<?xpacket begin="" id="W5M0MpCehiHzreSzNTczkc9d"?>
<x:xmpmeta xmlns:x="adobe:ns:meta/">
 <rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">
  <rdf:Description rdf:about="" xmlns:xmp="http://ns.adobe.com/xap/1.0/"` + attrs + `/>
 </rdf:RDF>
</x:xmpmeta>
<?xpacket end="w"?>`)
}
