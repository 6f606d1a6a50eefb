package layout

import (
	"errors"
	"path"
	"strconv"
	"strings"
	"time"
)

// ErrNoGranularity is returned when none of year, month or day is selected.
var ErrNoGranularity = errors.New("layout: at least one of year, month or day must be enabled")

// NoDateDir receives files whose capture time could not be determined.
const NoDateDir = "nodate/"

// Layout describes how a capture time becomes a destination path.
type Layout struct {
	Year   bool
	Month  bool
	Day    bool
	Nested bool
}

// Validate reports configuration errors.
func (l Layout) Validate() error {
	if !l.Year && !l.Month && !l.Day {
		return ErrNoGranularity
	}
	return nil
}

// Path builds the relative destination for t. Nested layouts yield a
// directory ("2023/6/"), flat layouts a hyphenated prefix ("2023-6-").
// Numbers are not zero padded.
func (l Layout) Path(t time.Time) string {
	sep := "-"
	if l.Nested {
		sep = "/"
	}
	var b strings.Builder
	for _, u := range l.units(t) {
		b.WriteString(strconv.Itoa(u))
		b.WriteString(sep)
	}
	return b.String()
}

// Destination joins a relative path from Path with a file name.
func (l Layout) Destination(rel, name string) string {
	if rel == "" {
		return name
	}
	return path.Clean(rel + name)
}

func (l Layout) units(t time.Time) []int {
	units := make([]int, 0, 3)
	if l.Year {
		units = append(units, t.Year())
	}
	if l.Month {
		units = append(units, int(t.Month()))
	}
	if l.Day {
		units = append(units, t.Day())
	}
	return units
}

// String renders the layout as a template such as "year/month/" or "year-month-day-".
func (l Layout) String() string {
	sep := "-"
	if l.Nested {
		sep = "/"
	}
	var parts []string
	if l.Year {
		parts = append(parts, "year")
	}
	if l.Month {
		parts = append(parts, "month")
	}
	if l.Day {
		parts = append(parts, "day")
	}
	if len(parts) == 0 {
		return "<none>"
	}
	return strings.Join(parts, sep) + sep
}
