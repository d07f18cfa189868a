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

import (
	"fmt"
	"math/bits"
)

// Header byte layout, least significant bit first on the wire.
const (
	headerStart  = 1 << 0
	headerAPnDP  = 1 << 1
	headerRnW    = 1 << 2
	headerAShift = 3
	headerParity = 1 << 5
	headerStop   = 1 << 6
	headerPark   = 1 << 7

	headerSemanticMask = headerAPnDP | headerRnW | 0x3<<headerAShift
)

// Raw ACK codes as driven by the target
const (
	AckCodeOK    = 0b001
	AckCodeWait  = 0b010
	AckCodeFault = 0b100
)

// AckStatus is the decoded outcome of the 3-bit ACK field
type AckStatus int

const (
	AckOK AckStatus = iota
	AckWait
	AckFault
	AckUnknown
)

func (s AckStatus) String() string {
	switch s {
	case AckOK:
		return "OK"
	case AckWait:
		return "WAIT"
	case AckFault:
		return "FAULT"
	default:
		return "UNKNOWN"
	}
}

// Err maps the status onto its sentinel error, nil for AckOK
func (s AckStatus) Err() error {
	switch s {
	case AckOK:
		return nil
	case AckWait:
		return ErrAckWait
	case AckFault:
		return ErrAckFault
	default:
		return ErrAckUnknown
	}
}

// DecodeAck maps the low three bits of code onto an AckStatus. It never fails:
// anything other than the three defined codes is AckUnknown.
func DecodeAck(code uint8) AckStatus {
	switch code & 0x7 {
	case AckCodeOK:
		return AckOK
	case AckCodeWait:
		return AckWait
	case AckCodeFault:
		return AckFault
	default:
		return AckUnknown
	}
}

// EvenParity reports whether the low n bits of word contain an even number of
// set bits. n is capped at 32.
func EvenParity(word uint32, n uint) bool {
	if n < 32 {
		word &= (1 << n) - 1
	}
	return bits.OnesCount32(word)%2 == 0
}

// parityBit returns the bit that makes word plus parity even
func parityBit(word uint32) uint32 {
	if EvenParity(word, 32) {
		return 0
	}
	return 1
}

// BuildHeader encodes a request header byte with the start and park bits set
// and a parity bit that makes APnDP, RnW, A[2:3] and parity even.
func BuildHeader(apndp, rnw bool, a23 uint8) byte {
	word := byte(headerStart | headerPark)
	if apndp {
		word |= headerAPnDP
	}
	if rnw {
		word |= headerRnW
	}
	word |= (a23 & 0x3) << headerAShift
	if !EvenParity(uint32(word&headerSemanticMask), 8) {
		word |= headerParity
	}
	return word
}

// ParseHeader decodes a header byte, validating its framing and parity
func ParseHeader(b byte) (Header, error) {
	if b&headerStart == 0 || b&headerPark == 0 || b&headerStop != 0 {
		return Header{}, fmt.Errorf("%w: bad header framing 0x%02x", ErrInvalidParameter, b)
	}
	if !EvenParity(uint32(b&(headerSemanticMask|headerParity)), 8) {
		return Header{}, fmt.Errorf("%w: bad header parity 0x%02x", ErrInvalidParameter, b)
	}
	return Header{
		APnDP: b&headerAPnDP != 0,
		RnW:   b&headerRnW != 0,
		A:     (b >> headerAShift) & 0x3,
	}, nil
}
