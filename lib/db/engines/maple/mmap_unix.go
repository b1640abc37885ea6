//go:build unix

package maple

import (
	"golang.org/x/sys/unix"
	"os"
)

// mapFile maps size bytes of f read-only into memory.
// The returned function unmaps the region.
func mapFile(f *os.File, size int) ([]byte, func() error, error) {
	if size == 0 {
		return nil, nil, nil
	}
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, err
	}
	return data, func() error { return unix.Munmap(data) }, nil
}
