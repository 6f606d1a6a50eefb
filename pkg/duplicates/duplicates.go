// Package duplicates recognizes copies that operating systems create when a
// file is saved or downloaded twice, such as "img (2).jpg" next to "img.jpg".
//
// Detection is name based only. Two distinct photos can share a stripped name
// and the detector will still report the copy; callers decide what to do.
package duplicates

import (
	"regexp"
	"sort"
	"strings"
)

// Kind tells why a name was reported.
type Kind string

const (
	// KindCopySuffix is a trailing " (n)" before the extension.
	KindCopySuffix Kind = "copy_suffix"
	// KindAppleDouble is a "._name" resource fork left by macOS.
	KindAppleDouble Kind = "apple_double"
)

const appleDoublePrefix = "._"

var copySuffix = regexp.MustCompile(`^(.*) \(([0-9]+)\)(\.[^.]*)?$`)

// Duplicate pairs a redundant name with the name it duplicates.
type Duplicate struct {
	Name     string
	Original string
	Kind     Kind
}

// Strip removes a copy suffix from name. ok is false when name has none.
func Strip(name string) (original string, ok bool) {
	m := copySuffix.FindStringSubmatch(name)
	if m == nil || m[1] == "" {
		return name, false
	}
	return m[1] + m[3], true
}

// Detect returns the duplicates among names, ordered by name. A name is a
// duplicate only when its original is present in the same set.
func Detect(names []string) []Duplicate {
	present := make(map[string]struct{}, len(names))
	for _, n := range names {
		present[n] = struct{}{}
	}

	var dups []Duplicate
	for _, n := range names {
		if strings.HasPrefix(n, appleDoublePrefix) {
			original := strings.TrimPrefix(n, appleDoublePrefix)
			if _, ok := present[original]; ok && original != "" {
				dups = append(dups, Duplicate{Name: n, Original: original, Kind: KindAppleDouble})
			}
			continue
		}
		original, ok := Strip(n)
		if !ok {
			continue
		}
		if _, exists := present[original]; exists {
			dups = append(dups, Duplicate{Name: n, Original: original, Kind: KindCopySuffix})
		}
	}

	sort.Slice(dups, func(i, j int) bool { return dups[i].Name < dups[j].Name })
	return dups
}

// Set indexes duplicates by their name.
func Set(dups []Duplicate) map[string]Duplicate {
	set := make(map[string]Duplicate, len(dups))
	for _, d := range dups {
		set[d.Name] = d
	}
	return set
}
