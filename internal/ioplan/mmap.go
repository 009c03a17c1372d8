// mmap.go -- map a file read-only and expose it as an io.ReaderAt
//
// Maps an arbitrary input file for the parser's --method=mmap path. Uses
// golang.org/x/sys/unix instead of the frozen stdlib syscall package,
// which is the ecosystem-recommended replacement for raw mmap/munmap
// calls.
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim is made to its
// suitability for any purpose.
package ioplan

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// MappedFile is a read-only memory-mapped view of a file, satisfying
// io.ReaderAt.
type MappedFile struct {
	data []byte
}

// MapFile maps f's first 'size' bytes read-only and private.
func MapFile(f *os.File, size int64) (*MappedFile, error) {
	if size == 0 {
		return &MappedFile{data: nil}, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("ioplan: mmap: %w", err)
	}

	return &MappedFile{data: data}, nil
}

// ReadAt implements io.ReaderAt over the mapped region.
func (m *MappedFile) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(len(m.data)) {
		return 0, fmt.Errorf("ioplan: offset %d out of range", off)
	}

	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Close unmaps the region.
func (m *MappedFile) Close() error {
	if m.data == nil {
		return nil
	}
	err := unix.Munmap(m.data)
	m.data = nil
	return err
}
