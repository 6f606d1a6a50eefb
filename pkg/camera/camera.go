// Package camera maps raw EXIF camera models to display names and
// aggregates per-camera file counts.
package camera

import (
	"sort"
	"strings"
)

// Unknown is used for files without a readable camera model.
const Unknown = "UNKNOWN"

// corruptedGRII is how one Ricoh GR II writes its model: the name followed by
// the NUL padding of a fixed-width field.
var corruptedGRII = "GR II" + strings.Repeat("\x00", 58)

var aliases = map[string]string{
	"EX-Z85":                "Casio EXILIM",
	"ILCE-7M3":              "A7III",
	"Canon EOS R":           "EOSR",
	"Canon DIGITAL IXUS 70": "IXUS70",
	corruptedGRII:           Unknown,
}

// Normalize returns the display name for raw. Unmatched values pass through.
func Normalize(raw string) string {
	if name, ok := aliases[raw]; ok {
		return name
	}
	return raw
}

// Counts maps display names to the number of files taken with that camera.
type Counts map[string]int

// Entry is one row of Counts.Sorted.
type Entry struct {
	Camera string
	Files  int
}

// Count normalizes each name and tallies the result. Empty names count as Unknown.
func Count(names []string) Counts {
	counts := make(Counts, len(names))
	for _, n := range names {
		n = Normalize(n)
		if n == "" {
			n = Unknown
		}
		counts[n]++
	}
	return counts
}

// Total is the number of files across all cameras.
func (c Counts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// Sorted orders entries by file count, then by name.
func (c Counts) Sorted() []Entry {
	entries := make([]Entry, 0, len(c))
	for name, n := range c {
		entries = append(entries, Entry{Camera: name, Files: n})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Files != entries[j].Files {
			return entries[i].Files > entries[j].Files
		}
		return entries[i].Camera < entries[j].Camera
	})
	return entries
}
