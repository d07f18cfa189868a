//go:build !linux

package mmio

// Mapping is a live mapping of physical memory
type Mapping struct {
	block *Block
}

// Map is not supported on this platform
func Map(string, uint32, uint32) (*Mapping, error) {
	return nil, ErrUnsupported
}

// Block returns the mapped registers
func (m *Mapping) Block() *Block {
	return m.block
}

// Close is a no-op on this platform
func (*Mapping) Close() error {
	return nil
}
