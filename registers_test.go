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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeDPIDR(t *testing.T) {
	t.Parallel()

	got := DecodeDPIDR(0x2BA01477)
	assert.Equal(t, DPIDR{
		Revision: 0x2,
		PartNo:   0xBA,
		Min:      false,
		Version:  0x1,
		Designer: 0x23B,
	}, got)
}

func TestCtrlStatRoundTrip(t *testing.T) {
	t.Parallel()

	bools := []bool{false, true}
	for _, sys := range bools {
		for _, dbg := range bools {
			for _, rst := range bools {
				for _, orun := range bools {
					for _, trnCnt := range []uint16{0, 1, 0x555, 0xFFF} {
						for mask := uint8(0); mask < 16; mask++ {
							for mode := uint8(0); mode < 4; mode++ {
								v := CtrlStat{
									CSysPwrUpReq: sys,
									CDbgPwrUpReq: dbg,
									CDbgRstReq:   rst,
									TrnCnt:       trnCnt,
									MaskLane:     mask,
									TrnMode:      mode,
									OrunDetect:   orun,
								}
								assert.Equal(t, v, DecodeCtrlStat(v.Encode()))
							}
						}
					}
				}
			}
		}
	}
}

func TestCtrlStatEncodeNeverAssertsReadOnlyBits(t *testing.T) {
	t.Parallel()

	all := CtrlStat{
		CSysPwrUpAck: true,
		CDbgPwrUpAck: true,
		CDbgRstAck:   true,
		WDataErr:     true,
		ReadOK:       true,
		StickyErr:    true,
		StickyCmp:    true,
		StickyOrun:   true,
	}
	assert.Zero(t, all.Encode())
}

func TestCtrlStatDecode(t *testing.T) {
	t.Parallel()

	cs := DecodeCtrlStat(0xF0000022)
	assert.True(t, cs.CSysPwrUpAck)
	assert.True(t, cs.CSysPwrUpReq)
	assert.True(t, cs.CDbgPwrUpAck)
	assert.True(t, cs.CDbgPwrUpReq)
	assert.True(t, cs.StickyErr)
	assert.True(t, cs.StickyOrun)
	assert.True(t, cs.HasStickyErrors())
	assert.True(t, cs.PowerAcked(true))
	assert.False(t, cs.PowerAcked(false))

	assert.False(t, DecodeCtrlStat(0x50000000).HasStickyErrors())
	assert.True(t, DecodeCtrlStat(0x80).HasStickyErrors())
}

func TestSelectEncode(t *testing.T) {
	t.Parallel()

	s := Select{APSel: 0xAB, APBank: 0x3, DPBank: 0x5}
	assert.Equal(t, uint32(0xAB000035), s.Encode())
	assert.Equal(t, s, DecodeSelect(s.Encode()))

	overflow := Select{APSel: 1, APBank: 0x1F, DPBank: 0x12}
	assert.Equal(t, uint32(0x010000F2), overflow.Encode())
}

func TestAbortEncode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint32(0x1E), ClearStickyErrors.Encode())
	assert.Equal(t, uint32(0x01), Abort{DAPAbort: true}.Encode())
	assert.Equal(t, uint32(0x04), Abort{StkErrClr: true}.Encode())

	for w := uint32(0); w < 32; w++ {
		assert.Equal(t, w, DecodeAbort(w).Encode())
	}
}

func TestDecodeAPIDR(t *testing.T) {
	t.Parallel()

	assert.Equal(t, APIDR{ID: 0x11, Class: 8, JEDEC: 0x3B, Continuation: 4, Revision: 2}, DecodeAPIDR(0x24770011))
	assert.Equal(t, APIDR{JEDEC: 0x44, Continuation: 2, Revision: 0}, DecodeAPIDR(0x02880000))
}

func TestCSW(t *testing.T) {
	t.Parallel()

	t.Run("decode", func(t *testing.T) {
		t.Parallel()
		c := DecodeCSW(0x23000052)
		assert.Equal(t, uint8(0x23), c.Prot)
		assert.Equal(t, CSWSize32, c.Size)
		assert.Equal(t, CSWAddrIncSingle, c.AddrInc)
		assert.True(t, c.DeviceEnable)
		assert.False(t, c.TrInProg)
		assert.False(t, c.DbgSwEnable)
	})

	t.Run("prot always forced", func(t *testing.T) {
		t.Parallel()
		for _, prot := range []uint8{0, 0x01, 0x23, 0x3F, 0xFF} {
			w := CSW{Prot: prot, Size: CSWSize32}.Encode()
			assert.Equal(t, uint32(0x23), (w>>24)&0x3F, "prot input 0x%02x", prot)
		}
	})

	t.Run("encode writable fields", func(t *testing.T) {
		t.Parallel()
		c := CSW{DbgSwEnable: true, Mode: 0x3, AddrInc: CSWAddrIncPacked, Size: CSWSize16, TrInProg: true, DeviceEnable: true}
		assert.Equal(t, uint32(0xA3000321), c.Encode())
	})
}
