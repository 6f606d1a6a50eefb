//go:build !unix

package storage

func isCrossDevice(error) bool {
	return false
}
