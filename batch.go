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

package swd

import "fmt"

const (
	// MaxBatchSlots is the depth of the transmit and receive FIFOs
	MaxBatchSlots = 4
	// MaxSlotBits is the longest word the shift register moves in one slot
	MaxSlotBits = 24
)

// Slot is one FIFO word. In is filled by Transport.Exchange.
type Slot struct {
	Out  uint32
	In   uint32
	Bits uint8
}

// Batch is a bounded queue of up to MaxBatchSlots words exchanged in one
// transport call. The zero value is an empty batch.
type Batch struct {
	slots [MaxBatchSlots]Slot
	n     int
}

// Add appends a word of the given bit length. Exceeding MaxBatchSlots is a
// capacity error; the batch is left unchanged.
func (b *Batch) Add(out uint32, bits uint8) error {
	if bits == 0 || bits > MaxSlotBits {
		return fmt.Errorf("%w: slot length %d bits", ErrInvalidParameter, bits)
	}
	if b.n >= MaxBatchSlots {
		return NewCapacityError("batch add", b.n+1, MaxBatchSlots-b.n, MaxBatchSlots-b.n)
	}
	b.slots[b.n] = Slot{Out: out, Bits: bits}
	b.n++
	return nil
}

// Len returns the number of populated slots
func (b *Batch) Len() int {
	return b.n
}

// Slots returns the populated slots. The slice aliases the batch so that a
// transport can store received words in place.
func (b *Batch) Slots() []Slot {
	return b.slots[:b.n]
}

// In returns the word received in slot i
func (b *Batch) In(i int) uint32 {
	return b.slots[i].In
}

// Reset empties the batch for reuse
func (b *Batch) Reset() {
	b.slots = [MaxBatchSlots]Slot{}
	b.n = 0
}
