package metadata

import (
	"errors"
	"fmt"
	"os"
	"time"

	mp4 "github.com/abema/go-mp4"
)

// appleEpochOffset is the number of seconds between 1904-01-01 and 1970-01-01 UTC.
const appleEpochOffset = 2082844800

var errNoMovieHeader = errors.New("mvhd box not found")

// readContainerCreation reads moov/mvhd from an ISO base media file
// (mp4, mov, m4v, 3gp).
func readContainerCreation(path string) (time.Time, error) {
	f, err := os.Open(path)
	if err != nil {
		return time.Time{}, err
	}
	defer f.Close()

	boxes, err := mp4.ExtractBoxWithPayload(f, nil, mp4.BoxPath{mp4.BoxTypeMoov(), mp4.BoxTypeMvhd()})
	if err != nil {
		return time.Time{}, fmt.Errorf("read mp4 structure: %w", err)
	}
	for _, box := range boxes {
		mvhd, ok := box.Payload.(*mp4.Mvhd)
		if !ok {
			continue
		}
		created := mvhd.GetCreationTime()
		if created == 0 {
			return time.Time{}, errors.New("mvhd creation time is zero")
		}
		t := time.Unix(int64(created)-appleEpochOffset, 0).UTC()
		if t.Year() < 1970 {
			return time.Time{}, fmt.Errorf("mvhd creation time %s predates the unix epoch", t)
		}
		return t, nil
	}
	return time.Time{}, errNoMovieHeader
}
