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

// Debug port register addresses
const (
	DPRegIDR      uint8 = 0x0 // read
	DPRegAbort    uint8 = 0x0 // write
	DPRegCtrlStat uint8 = 0x4
	DPRegSelect   uint8 = 0x8
	DPRegRDBUFF   uint8 = 0xC
)

// MEM-AP register addresses
const (
	MemAPRegCSW uint8 = 0x00
	MemAPRegTAR uint8 = 0x04
	MemAPRegDRW uint8 = 0x0C
	// MemAPRegIDR lives in bank 0xF at offset 0xC.
	MemAPRegIDR uint8 = 0xFC
)

// nRF52 CTRL-AP register addresses
const (
	CtrlAPRegReset           uint8 = 0x00
	CtrlAPRegEraseAll        uint8 = 0x04
	CtrlAPRegEraseAllStatus  uint8 = 0x08
	CtrlAPRegApprotectStatus uint8 = 0x0C
	CtrlAPRegIDR             uint8 = 0xFC
)

// Access port selectors on nRF52 targets
const (
	APSelMemAP  uint8 = 0
	APSelCtrlAP uint8 = 1
)

// ApprotectUnlocked is the APPROTECTSTATUS value of an unprotected device
const ApprotectUnlocked uint32 = 1

// a23 extracts the A[3:2] header field from a register address
func a23(addr uint8) uint8 {
	return (addr >> 2) & 0x3
}

// apBank extracts the SELECT bank of an AP register address
func apBank(addr uint8) uint8 {
	return (addr >> 4) & 0xF
}

func bit(w uint32, n uint) bool {
	return w&(1<<n) != 0
}

func setBit(b bool, n uint) uint32 {
	if b {
		return 1 << n
	}
	return 0
}

// DPIDR is the decoded Debug Port identification register
type DPIDR struct {
	Revision uint8
	PartNo   uint8
	Min      bool
	Version  uint8
	Designer uint16
}

// DecodeDPIDR decodes a raw DPIDR word
func DecodeDPIDR(w uint32) DPIDR {
	return DPIDR{
		Revision: uint8(w >> 28),
		PartNo:   uint8(w >> 20),
		Min:      bit(w, 16),
		Version:  uint8(w>>12) & 0xF,
		Designer: uint16(w>>1) & 0x7FF,
	}
}

func (d DPIDR) String() string {
	return fmt.Sprintf("rev=%d part=0x%02x min=%t version=%d designer=0x%03x",
		d.Revision, d.PartNo, d.Min, d.Version, d.Designer)
}

// CtrlStat is the decoded DP CTRL/STAT register
type CtrlStat struct {
	CSysPwrUpAck bool
	CSysPwrUpReq bool
	CDbgPwrUpAck bool
	CDbgPwrUpReq bool
	CDbgRstAck   bool
	CDbgRstReq   bool
	TrnCnt       uint16
	MaskLane     uint8
	WDataErr     bool
	ReadOK       bool
	StickyErr    bool
	StickyCmp    bool
	TrnMode      uint8
	StickyOrun   bool
	OrunDetect   bool
}

// CTRL/STAT bit positions
const (
	ctrlStatCSysPwrUpAck = 31
	ctrlStatCSysPwrUpReq = 30
	ctrlStatCDbgPwrUpAck = 29
	ctrlStatCDbgPwrUpReq = 28
	ctrlStatCDbgRstAck   = 27
	ctrlStatCDbgRstReq   = 26
	ctrlStatTrnCnt       = 12
	ctrlStatMaskLane     = 8
	ctrlStatWDataErr     = 7
	ctrlStatReadOK       = 6
	ctrlStatStickyErr    = 5
	ctrlStatStickyCmp    = 4
	ctrlStatTrnMode      = 2
	ctrlStatStickyOrun   = 1
	ctrlStatOrunDetect   = 0
)

// DecodeCtrlStat decodes a raw CTRL/STAT word
func DecodeCtrlStat(w uint32) CtrlStat {
	return CtrlStat{
		CSysPwrUpAck: bit(w, ctrlStatCSysPwrUpAck),
		CSysPwrUpReq: bit(w, ctrlStatCSysPwrUpReq),
		CDbgPwrUpAck: bit(w, ctrlStatCDbgPwrUpAck),
		CDbgPwrUpReq: bit(w, ctrlStatCDbgPwrUpReq),
		CDbgRstAck:   bit(w, ctrlStatCDbgRstAck),
		CDbgRstReq:   bit(w, ctrlStatCDbgRstReq),
		TrnCnt:       uint16(w>>ctrlStatTrnCnt) & 0xFFF,
		MaskLane:     uint8(w>>ctrlStatMaskLane) & 0xF,
		WDataErr:     bit(w, ctrlStatWDataErr),
		ReadOK:       bit(w, ctrlStatReadOK),
		StickyErr:    bit(w, ctrlStatStickyErr),
		StickyCmp:    bit(w, ctrlStatStickyCmp),
		TrnMode:      uint8(w>>ctrlStatTrnMode) & 0x3,
		StickyOrun:   bit(w, ctrlStatStickyOrun),
		OrunDetect:   bit(w, ctrlStatOrunDetect),
	}
}

// Encode packs the writable fields. Status and acknowledge bits are read-only
// and always encode as zero.
func (c CtrlStat) Encode() uint32 {
	return setBit(c.CSysPwrUpReq, ctrlStatCSysPwrUpReq) |
		setBit(c.CDbgPwrUpReq, ctrlStatCDbgPwrUpReq) |
		setBit(c.CDbgRstReq, ctrlStatCDbgRstReq) |
		uint32(c.TrnCnt&0xFFF)<<ctrlStatTrnCnt |
		uint32(c.MaskLane&0xF)<<ctrlStatMaskLane |
		uint32(c.TrnMode&0x3)<<ctrlStatTrnMode |
		setBit(c.OrunDetect, ctrlStatOrunDetect)
}

// HasStickyErrors reports whether any sticky flag needs clearing via ABORT
func (c CtrlStat) HasStickyErrors() bool {
	return c.StickyErr || c.StickyCmp || c.StickyOrun || c.WDataErr
}

// PowerAcked reports whether both power domains acknowledge the requested state
func (c CtrlStat) PowerAcked(on bool) bool {
	return c.CSysPwrUpAck == on && c.CDbgPwrUpAck == on
}

func (c CtrlStat) String() string {
	return fmt.Sprintf("sysack=%t sysreq=%t dbgack=%t dbgreq=%t sticky(err=%t cmp=%t orun=%t wdata=%t) readok=%t",
		c.CSysPwrUpAck, c.CSysPwrUpReq, c.CDbgPwrUpAck, c.CDbgPwrUpReq,
		c.StickyErr, c.StickyCmp, c.StickyOrun, c.WDataErr, c.ReadOK)
}

// Select is the DP SELECT register
type Select struct {
	APSel  uint8
	APBank uint8
	DPBank uint8
}

// Encode packs the fields, truncating the banks to four bits
func (s Select) Encode() uint32 {
	return uint32(s.APSel)<<24 | uint32(s.APBank&0xF)<<4 | uint32(s.DPBank&0xF)
}

// DecodeSelect decodes a raw SELECT word
func DecodeSelect(w uint32) Select {
	return Select{
		APSel:  uint8(w >> 24),
		APBank: uint8(w>>4) & 0xF,
		DPBank: uint8(w) & 0xF,
	}
}

// Abort is the write-only DP ABORT register
type Abort struct {
	OrunErrClr bool
	WDErrClr   bool
	StkErrClr  bool
	StkCmpClr  bool
	DAPAbort   bool
}

// ClearStickyErrors requests clearing of every sticky flag
var ClearStickyErrors = Abort{OrunErrClr: true, WDErrClr: true, StkErrClr: true, StkCmpClr: true}

// Encode packs the flags
func (a Abort) Encode() uint32 {
	return setBit(a.OrunErrClr, 4) |
		setBit(a.WDErrClr, 3) |
		setBit(a.StkErrClr, 2) |
		setBit(a.StkCmpClr, 1) |
		setBit(a.DAPAbort, 0)
}

// DecodeAbort decodes a raw ABORT word
func DecodeAbort(w uint32) Abort {
	return Abort{
		OrunErrClr: bit(w, 4),
		WDErrClr:   bit(w, 3),
		StkErrClr:  bit(w, 2),
		StkCmpClr:  bit(w, 1),
		DAPAbort:   bit(w, 0),
	}
}

// APIDR is the decoded access port identification register
type APIDR struct {
	ID           uint8
	Class        uint8
	JEDEC        uint8
	Continuation uint8
	Revision     uint8
}

// DecodeAPIDR decodes a raw AP IDR word
func DecodeAPIDR(w uint32) APIDR {
	return APIDR{
		ID:           uint8(w),
		Class:        uint8(w>>13) & 0xF,
		JEDEC:        uint8(w>>17) & 0x7F,
		Continuation: uint8(w>>24) & 0xF,
		Revision:     uint8(w >> 28),
	}
}

func (a APIDR) String() string {
	return fmt.Sprintf("id=0x%02x class=%d jedec=0x%02x cont=%d rev=%d",
		a.ID, a.Class, a.JEDEC, a.Continuation, a.Revision)
}

// MEM-AP transfer sizes
const (
	CSWSize8  uint8 = 0b000
	CSWSize16 uint8 = 0b001
	CSWSize32 uint8 = 0b010
)

// MEM-AP address increment modes
const (
	CSWAddrIncOff    uint8 = 0b00
	CSWAddrIncSingle uint8 = 0b01
	CSWAddrIncPacked uint8 = 0b10
)

// CSWProt is the bus protection value always written to CSW
const CSWProt uint8 = 0x23

// CSW is the decoded MEM-AP control/status word
type CSW struct {
	DbgSwEnable  bool
	Prot         uint8
	SPIDEN       bool
	Type         uint8
	Mode         uint8
	TrInProg     bool
	DeviceEnable bool
	AddrInc      uint8
	Size         uint8
}

// DecodeCSW decodes a raw CSW word
func DecodeCSW(w uint32) CSW {
	return CSW{
		DbgSwEnable:  bit(w, 31),
		Prot:         uint8(w>>24) & 0x3F,
		SPIDEN:       bit(w, 23),
		Type:         uint8(w>>12) & 0xF,
		Mode:         uint8(w>>8) & 0xF,
		TrInProg:     bit(w, 7),
		DeviceEnable: bit(w, 6),
		AddrInc:      uint8(w>>4) & 0x3,
		Size:         uint8(w) & 0x7,
	}
}

// Encode packs the writable fields. Prot is always written as CSWProt.
func (c CSW) Encode() uint32 {
	return setBit(c.DbgSwEnable, 31) |
		uint32(CSWProt)<<24 |
		uint32(c.Mode&0xF)<<8 |
		uint32(c.AddrInc&0x3)<<4 |
		uint32(c.Size&0x7)
}

func (c CSW) String() string {
	return fmt.Sprintf("dbgsw=%t prot=0x%02x spiden=%t type=%d mode=%d trinprog=%t deviceen=%t addrinc=%d size=%d",
		c.DbgSwEnable, c.Prot, c.SPIDEN, c.Type, c.Mode, c.TrInProg, c.DeviceEnable, c.AddrInc, c.Size)
}
