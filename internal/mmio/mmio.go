// go-swd
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-swd.
//
// go-swd is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-swd is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-swd; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// Package mmio maps the SoC peripheral window and exposes it as 32-bit registers
package mmio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
)

// DefaultRangesPath is where the device tree publishes the peripheral window
const DefaultRangesPath = "/proc/device-tree/soc/ranges"

// DefaultMemPath is the physical memory device
const DefaultMemPath = "/dev/mem"

// PageSize is the granularity of a mapping
const PageSize = 4096

var (
	// ErrNotRoot is returned when the process lacks the privileges to map /dev/mem
	ErrNotRoot = errors.New("mapping physical memory requires root")
	// ErrBadRanges is returned when the ranges property cannot be parsed
	ErrBadRanges = errors.New("malformed soc ranges")
	// ErrUnsupported is returned on platforms without /dev/mem
	ErrUnsupported = errors.New("memory mapped I/O not supported on this platform")
	// ErrOutOfRange is returned for a register offset outside the block
	ErrOutOfRange = errors.New("register offset out of range")
)

// Block is a window of 32-bit registers addressed by byte offset
type Block struct {
	words []uint32
}

// NewBlock wraps words as a register block
func NewBlock(words []uint32) *Block {
	return &Block{words: words}
}

// Read32 loads the register at byte offset off
func (b *Block) Read32(off uint32) uint32 {
	return atomic.LoadUint32(&b.words[off/4])
}

// Write32 stores v in the register at byte offset off
func (b *Block) Write32(off, v uint32) {
	atomic.StoreUint32(&b.words[off/4], v)
}

// Size returns the size of the block in bytes
func (b *Block) Size() uint32 {
	return uint32(len(b.words) * 4)
}

// Sub returns the registers starting at byte offset off
func (b *Block) Sub(off, size uint32) (*Block, error) {
	if off%4 != 0 || size%4 != 0 || uint64(off)+uint64(size) > uint64(b.Size()) {
		return nil, fmt.Errorf("%w: 0x%x+0x%x in 0x%x", ErrOutOfRange, off, size, b.Size())
	}
	return &Block{words: b.words[off/4 : (off+size)/4]}, nil
}

// PeripheralRange reads the physical base address and size of the peripheral
// window from the device tree ranges property at path
func PeripheralRange(path string) (base, size uint32, err error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return ParseRanges(buf)
}

// ParseRanges decodes a soc ranges property. The first cell is the bus
// address; the CPU address and size follow. On SoCs with 64-bit parent
// addresses the base cell is zero and everything shifts by one cell.
func ParseRanges(buf []byte) (base, size uint32, err error) {
	if len(buf) < 12 {
		return 0, 0, fmt.Errorf("%w: %d bytes", ErrBadRanges, len(buf))
	}
	base = binary.BigEndian.Uint32(buf[4:8])
	size = binary.BigEndian.Uint32(buf[8:12])
	if base == 0 {
		if len(buf) < 16 {
			return 0, 0, fmt.Errorf("%w: %d bytes", ErrBadRanges, len(buf))
		}
		base = binary.BigEndian.Uint32(buf[8:12])
		size = binary.BigEndian.Uint32(buf[12:16])
	}
	if base == 0 || size == 0 {
		return 0, 0, fmt.Errorf("%w: base 0x%x size 0x%x", ErrBadRanges, base, size)
	}
	return base, size, nil
}
