package storage

import (
	"os"
)

// renameChecked refuses to replace an existing dst. The check and the
// rename are not atomic; moves are serialized so only outside writers race.
func renameChecked(src, dst string) error {
	if _, err := os.Lstat(dst); err == nil {
		return &os.LinkError{Op: "rename", Old: src, New: dst, Err: os.ErrExist}
	} else if !os.IsNotExist(err) {
		return err
	}
	if err := os.Rename(src, dst); err != nil {
		if isCrossDevice(err) {
			return moveAcrossDevices(src, dst)
		}
		return err
	}
	return nil
}
