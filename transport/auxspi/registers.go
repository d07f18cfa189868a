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

package auxspi

import "periph.io/x/conn/v3/physic"

// Register offsets from the start of the AUX peripheral block
const (
	// AuxOffset is the AUX block offset within the peripheral window
	AuxOffset uint32 = 0x215000

	RegEnable uint32 = 0x04
	RegCNTL0  uint32 = 0x80
	RegCNTL1  uint32 = 0x84
	RegSTAT   uint32 = 0x88
	RegPEEK   uint32 = 0x94
	// RegIO is the data register. Some datasheet tables list it at 0x90.
	RegIO uint32 = 0xA0

	// EnableSPI1 is the SPI1 bit of the AUX enable register
	EnableSPI1 uint32 = 1 << 1

	// FIFODepth is the number of words each FIFO holds
	FIFODepth = 4
	// MaxWordBits is the longest word the variable width mode shifts
	MaxWordBits = 24

	ioLengthShift = 24

	// DefaultCoreClock is the VPU clock the divider is derived from
	DefaultCoreClock = 250 * physic.MegaHertz
	maxSpeed         = 0xFFF
)

// RegisterBlock is a window of 32-bit device registers addressed by byte offset
type RegisterBlock interface {
	Read32(off uint32) uint32
	Write32(off, v uint32)
}

// Control holds the fields of the CNTL0 and CNTL1 registers
type Control struct {
	Speed         uint16
	ChipSelect    uint8
	DoutHold      uint8
	ShiftLength   uint8
	CSHighTime    uint8
	PostInput     bool
	VariableCS    bool
	VariableWidth bool
	Enable        bool
	InRising      bool
	ClearFIFOs    bool
	OutRising     bool
	InvertClock   bool
	MSBOutFirst   bool
	TxEmptyIRQ    bool
	DoneIRQ       bool
	MSBInFirst    bool
	KeepInput     bool
}

func flag(b bool, n uint) uint32 {
	if b {
		return 1 << n
	}
	return 0
}

func isSet(w uint32, n uint) bool {
	return w&(1<<n) != 0
}

// Encode packs the fields into CNTL0 and CNTL1
func (c Control) Encode() (cntl0, cntl1 uint32) {
	cntl0 = uint32(c.Speed&maxSpeed)<<20 |
		uint32(c.ChipSelect&0x7)<<17 |
		flag(c.PostInput, 16) |
		flag(c.VariableCS, 15) |
		flag(c.VariableWidth, 14) |
		uint32(c.DoutHold&0x3)<<12 |
		flag(c.Enable, 11) |
		flag(c.InRising, 10) |
		flag(c.ClearFIFOs, 9) |
		flag(c.OutRising, 8) |
		flag(c.InvertClock, 7) |
		flag(c.MSBOutFirst, 6) |
		uint32(c.ShiftLength&0x3F)
	cntl1 = uint32(c.CSHighTime&0x7)<<8 |
		flag(c.TxEmptyIRQ, 7) |
		flag(c.DoneIRQ, 6) |
		flag(c.MSBInFirst, 1) |
		flag(c.KeepInput, 0)
	return cntl0, cntl1
}

// DecodeControl unpacks CNTL0 and CNTL1
func DecodeControl(cntl0, cntl1 uint32) Control {
	return Control{
		Speed:         uint16(cntl0>>20) & maxSpeed,
		ChipSelect:    uint8(cntl0>>17) & 0x7,
		PostInput:     isSet(cntl0, 16),
		VariableCS:    isSet(cntl0, 15),
		VariableWidth: isSet(cntl0, 14),
		DoutHold:      uint8(cntl0>>12) & 0x3,
		Enable:        isSet(cntl0, 11),
		InRising:      isSet(cntl0, 10),
		ClearFIFOs:    isSet(cntl0, 9),
		OutRising:     isSet(cntl0, 8),
		InvertClock:   isSet(cntl0, 7),
		MSBOutFirst:   isSet(cntl0, 6),
		ShiftLength:   uint8(cntl0) & 0x3F,
		CSHighTime:    uint8(cntl1>>8) & 0x7,
		TxEmptyIRQ:    isSet(cntl1, 7),
		DoneIRQ:       isSet(cntl1, 6),
		MSBInFirst:    isSet(cntl1, 1),
		KeepInput:     isSet(cntl1, 0),
	}
}

// DefaultControl is variable width, LSB first, sampling and shifting on the
// rising edge, at speed
func DefaultControl(speed uint16) Control {
	return Control{
		Speed:         speed,
		VariableWidth: true,
		Enable:        true,
		InRising:      true,
		OutRising:     true,
	}
}

// Status is the decoded STAT register. The RX FIFO level sits at bits 23:20,
// not where the datasheet or its errata place it.
type Status struct {
	TxLevel  uint8
	RxLevel  uint8
	BitCount uint8
	TxFull   bool
	TxEmpty  bool
	RxFull   bool
	RxEmpty  bool
	Busy     bool
}

// DecodeStatus unpacks STAT
func DecodeStatus(w uint32) Status {
	return Status{
		TxLevel:  uint8(w>>28) & 0xF,
		RxLevel:  uint8(w>>20) & 0xF,
		TxFull:   isSet(w, 10),
		TxEmpty:  isSet(w, 9),
		RxFull:   isSet(w, 8),
		RxEmpty:  isSet(w, 7),
		Busy:     isSet(w, 6),
		BitCount: uint8(w) & 0x3F,
	}
}

// TxFree returns the free transmit FIFO slots
func (s Status) TxFree() int {
	return FIFODepth - int(s.TxLevel)
}

// RxFree returns the free receive FIFO slots
func (s Status) RxFree() int {
	return FIFODepth - int(s.RxLevel)
}

// SpeedForFrequency returns the divider for freq, rounding towards the faster
// clock: freq = core / (2 * (speed + 1))
func SpeedForFrequency(core, freq physic.Frequency) uint16 {
	if freq <= 0 || core <= 0 {
		return maxSpeed
	}
	div := int64(core/(2*freq)) - 1
	switch {
	case div < 0:
		return 0
	case div > maxSpeed:
		return maxSpeed
	}
	return uint16(div)
}

// FrequencyForSpeed returns the SPI clock produced by a divider
func FrequencyForSpeed(core physic.Frequency, speed uint16) physic.Frequency {
	return core / physic.Frequency(2*(int64(speed)+1))
}

// ioWord formats a word for the IO register: data in the low bits and the
// length in bits 28:24
func ioWord(out uint32, bits uint8) uint32 {
	mask := uint32(1)<<bits - 1
	return out&mask | uint32(bits)<<ioLengthShift
}
