//go:build linux

package mmio

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Mapping is a live mapping of physical memory. It must be closed exactly once;
// extra calls to Close are no-ops.
type Mapping struct {
	block *Block
	err   error
	data  []byte
	fd    int
	once  sync.Once
}

// Map maps size bytes of physical memory starting at base through the memory
// device at path. base must be page aligned.
func Map(path string, base, size uint32) (*Mapping, error) {
	if unix.Geteuid() != 0 {
		return nil, ErrNotRoot
	}
	if base%PageSize != 0 || size == 0 {
		return nil, fmt.Errorf("%w: base 0x%x size 0x%x", ErrOutOfRange, base, size)
	}

	fd, err := unix.Open(path, unix.O_RDWR|unix.O_SYNC|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	data, err := unix.Mmap(fd, int64(base), int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("failed to map 0x%x bytes at 0x%x: %w", size, base, err)
	}

	words := unsafe.Slice((*uint32)(unsafe.Pointer(&data[0])), len(data)/4)
	return &Mapping{block: NewBlock(words), data: data, fd: fd}, nil
}

// Block returns the mapped registers
func (m *Mapping) Block() *Block {
	return m.block
}

// Close unmaps the memory and closes the device
func (m *Mapping) Close() error {
	m.once.Do(func() {
		if err := unix.Munmap(m.data); err != nil {
			m.err = fmt.Errorf("failed to unmap: %w", err)
		}
		if err := unix.Close(m.fd); err != nil && m.err == nil {
			m.err = fmt.Errorf("failed to close memory device: %w", err)
		}
		m.data = nil
	})
	return m.err
}
