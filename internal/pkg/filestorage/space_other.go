//go:build !linux && !darwin && !freebsd

package filestorage

func freeSpace(string) (uint64, error) {
	return 0, ErrFreeSpaceUnsupported
}
