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

// Header is the semantic part of an SWD request
type Header struct {
	APnDP bool
	RnW   bool
	// A holds address bits A[3:2].
	A uint8
}

// Byte encodes the header including start, parity, stop and park bits
func (h Header) Byte() byte {
	return BuildHeader(h.APnDP, h.RnW, h.A)
}

func (h Header) String() string {
	port := "DP"
	if h.APnDP {
		port = "AP"
	}
	dir := "W"
	if h.RnW {
		dir = "R"
	}
	return fmt.Sprintf("%s%s 0x%x", port, dir, h.A<<2)
}

// Packet is one DP or AP register access. Ack, and for reads Data and Parity,
// are filled in by Engine.Execute. Build a new Packet for every access.
type Packet struct {
	Name   string
	Header Header
	Data   uint32
	Ack    uint8
	Parity uint8
}

// Status decodes the ACK captured by the last execution
func (p *Packet) Status() AckStatus {
	return DecodeAck(p.Ack)
}

func (p *Packet) String() string {
	if p.Header.RnW {
		return fmt.Sprintf("%s [%s] ack=%s data=0x%08x", p.Name, p.Header, p.Status(), p.Data)
	}
	return fmt.Sprintf("%s [%s] data=0x%08x ack=%s", p.Name, p.Header, p.Data, p.Status())
}

func newDPRead(name string, addr uint8) *Packet {
	return &Packet{Name: name, Header: Header{RnW: true, A: a23(addr)}}
}

func newDPWrite(name string, addr uint8, data uint32) *Packet {
	return &Packet{Name: name, Header: Header{A: a23(addr)}, Data: data}
}

// NewReadDPIDR reads the Debug Port identification register
func NewReadDPIDR() *Packet {
	return newDPRead("DPIDR", DPRegIDR)
}

// NewReadCtrlStat reads CTRL/STAT
func NewReadCtrlStat() *Packet {
	return newDPRead("CTRL/STAT", DPRegCtrlStat)
}

// NewWriteCtrlStat writes the writable fields of c to CTRL/STAT
func NewWriteCtrlStat(c CtrlStat) *Packet {
	return newDPWrite("CTRL/STAT", DPRegCtrlStat, c.Encode())
}

// NewWriteSelect writes the SELECT register
func NewWriteSelect(s Select) *Packet {
	return newDPWrite("SELECT", DPRegSelect, s.Encode())
}

// NewWriteAbort writes the ABORT register
func NewWriteAbort(a Abort) *Packet {
	return newDPWrite("ABORT", DPRegAbort, a.Encode())
}

// NewReadRDBUFF reads the posted result of the previous AP read
func NewReadRDBUFF() *Packet {
	return newDPRead("RDBUFF", DPRegRDBUFF)
}

// NewReadAP reads the AP register at addr in the currently selected bank
func NewReadAP(addr uint8) *Packet {
	return &Packet{
		Name:   fmt.Sprintf("AP[0x%02x]", addr),
		Header: Header{APnDP: true, RnW: true, A: a23(addr)},
	}
}

// NewWriteAP writes data to the AP register at addr in the currently selected bank
func NewWriteAP(addr uint8, data uint32) *Packet {
	return &Packet{
		Name:   fmt.Sprintf("AP[0x%02x]", addr),
		Header: Header{APnDP: true, A: a23(addr)},
		Data:   data,
	}
}

func named(p *Packet, name string) *Packet {
	p.Name = name
	return p
}

// NewReadAPIDR reads the IDR of the selected AP. SELECT must point at bank 0xF.
func NewReadAPIDR() *Packet {
	return named(NewReadAP(MemAPRegIDR), "AP IDR")
}

// NewWriteEraseAll triggers the CTRL-AP erase-all
func NewWriteEraseAll() *Packet {
	return named(NewWriteAP(CtrlAPRegEraseAll, 1), "ERASEALL")
}

// NewReadEraseStatus reads CTRL-AP ERASEALLSTATUS
func NewReadEraseStatus() *Packet {
	return named(NewReadAP(CtrlAPRegEraseAllStatus), "ERASEALLSTATUS")
}

// NewReadProtectStatus reads CTRL-AP APPROTECTSTATUS
func NewReadProtectStatus() *Packet {
	return named(NewReadAP(CtrlAPRegApprotectStatus), "APPROTECTSTATUS")
}

// NewReadCSW reads the MEM-AP CSW
func NewReadCSW() *Packet {
	return named(NewReadAP(MemAPRegCSW), "CSW")
}

// NewWriteCSW writes the MEM-AP CSW
func NewWriteCSW(c CSW) *Packet {
	return named(NewWriteAP(MemAPRegCSW, c.Encode()), "CSW")
}

// NewReadTAR reads the MEM-AP transfer address register
func NewReadTAR() *Packet {
	return named(NewReadAP(MemAPRegTAR), "TAR")
}

// NewWriteTAR sets the MEM-AP transfer address
func NewWriteTAR(addr uint32) *Packet {
	return named(NewWriteAP(MemAPRegTAR, addr), "TAR")
}

// NewReadDRW reads the MEM-AP data register
func NewReadDRW() *Packet {
	return named(NewReadAP(MemAPRegDRW), "DRW")
}

// NewWriteDRW writes the MEM-AP data register
func NewWriteDRW(data uint32) *Packet {
	return named(NewWriteAP(MemAPRegDRW, data), "DRW")
}
