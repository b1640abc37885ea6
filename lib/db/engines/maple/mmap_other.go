//go:build !unix

package maple

import (
	"io"
	"os"
)

// mapFile reads the file into memory on platforms without mmap support
func mapFile(f *os.File, size int) ([]byte, func() error, error) {
	data := make([]byte, size)
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, nil, err
	}
	return data, nil, nil
}
