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

// Package swdtest provides a wire-level simulated SWD target for tests
package swdtest

import (
	"sync"

	swd "github.com/ZaparooProject/go-swd"
)

// Identification values reported by the simulated nRF52832
const (
	DefaultDPIDR     uint32 = 0x2BA01477
	DefaultCtrlAPIDR uint32 = 0x02880000
	DefaultMemAPIDR  uint32 = 0x24770011
	DefaultCSW       uint32 = 0x23000042
	DefaultFlashSize uint32 = 0x80000
	NVMCBase         uint32 = 0x4001E000
	NVMCReady        uint32 = NVMCBase + 0x400
	NVMCConfig       uint32 = NVMCBase + 0x504
	NVMCEraseAll     uint32 = NVMCBase + 0x50C
	ErasedWord       uint32 = 0xFFFFFFFF
)

const (
	// ackNone is what the host samples when nobody drives the line
	ackNone = 0x7

	cswWritable uint32 = 0xBF000F37
)

// Transaction is one register access seen by the target
type Transaction struct {
	Header swd.Header
	APSel  uint8
	// Addr is the full register address including the SELECT bank for AP accesses
	Addr uint8
	Data uint32
	Ack  uint8
}

// VirtualTarget simulates a Cortex-M debug port with an nRF52 style CTRL-AP,
// an AHB MEM-AP and a NVMC-controlled flash. It implements swd.Transport and
// decodes the bit stream the engine produces, so every layer above the
// transport can be tested against it.
//
// The target starts detached and answers nothing until it has seen the
// JTAG-to-SWD switch followed by a line reset.
type VirtualTarget struct {
	// WaitHook, when set, is asked before every access whether to answer WAIT
	WaitHook func(tx Transaction) bool

	mem     map[uint32]uint32
	pending *Transaction
	log     []Transaction

	DPIDR     uint32
	FlashSize uint32

	lineResets int
	switches   int

	ctrlStat   swd.CtrlStat
	sel        swd.Select
	posted     uint32
	csw        uint32
	tar        uint32
	nvmcConfig uint32
	ctrlReset  uint32
	eraseBusy  int

	// PowerUpDelay is the number of CTRL/STAT reads before the power
	// acknowledgements follow a request
	PowerUpDelay int
	powerReads   int

	// EraseBusyReads is how many ERASEALLSTATUS reads report busy after ERASEALL
	EraseBusyReads int

	mu sync.Mutex

	switched      bool
	attached      bool
	closed        bool
	Locked        bool
	Unresponsive  bool
	CorruptParity bool
}

// NewVirtualTarget creates a detached, unlocked target with erased flash
func NewVirtualTarget() *VirtualTarget {
	return &VirtualTarget{
		mem:       make(map[uint32]uint32),
		DPIDR:     DefaultDPIDR,
		FlashSize: DefaultFlashSize,
		csw:       DefaultCSW,
	}
}

// Exchange implements swd.Transport
func (v *VirtualTarget) Exchange(b *swd.Batch) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return swd.ErrTransportClosed
	}

	slots := b.Slots()
	switch {
	case isLineSequence(slots):
		v.lineSequence(slots[3])
	case v.pending != nil:
		v.dataPhase(slots)
	case len(slots) == 1:
		v.headerPhase(&slots[0])
	default:
		for i := range slots {
			slots[i].In = 0
		}
	}
	return nil
}

func isLineSequence(slots []swd.Slot) bool {
	if len(slots) != 4 {
		return false
	}
	for _, s := range slots[:3] {
		if s.Bits != 24 || s.Out != 0xFFFFFF {
			return false
		}
	}
	return true
}

func (v *VirtualTarget) lineSequence(tail swd.Slot) {
	v.pending = nil
	switch {
	case tail.Bits == 8 && tail.Out == 0:
		v.lineResets++
		if v.switched {
			v.attached = true
		}
	case tail.Bits == 16 && tail.Out == 0xE79E:
		v.switches++
		v.switched = true
		v.attached = false
	}
}

func (v *VirtualTarget) headerPhase(slot *swd.Slot) {
	slot.In = ackNone << 9
	if !v.attached || v.Unresponsive {
		return
	}
	h, err := swd.ParseHeader(byte(slot.Out))
	if err != nil {
		return
	}
	wantBits := uint8(12)
	if !h.RnW {
		wantBits = 13
	}
	if slot.Bits != wantBits {
		return
	}

	tx := Transaction{Header: h, Addr: h.A << 2}
	if h.APnDP {
		tx.APSel = v.sel.APSel
		tx.Addr |= v.sel.APBank << 4
	}

	tx.Ack = v.ack(tx)
	slot.In = uint32(tx.Ack) << 9
	if tx.Ack != swd.AckCodeOK {
		v.log = append(v.log, tx)
		return
	}
	v.pending = &tx
}

func (v *VirtualTarget) ack(tx Transaction) uint8 {
	if v.WaitHook != nil && v.WaitHook(tx) {
		return swd.AckCodeWait
	}
	if !tx.Header.APnDP {
		return swd.AckCodeOK
	}
	if v.ctrlStat.HasStickyErrors() {
		return swd.AckCodeFault
	}
	if v.Locked && tx.APSel == swd.APSelMemAP {
		v.ctrlStat.StickyErr = true
		return swd.AckCodeFault
	}
	return swd.AckCodeOK
}

func (v *VirtualTarget) dataPhase(slots []swd.Slot) {
	tx := v.pending
	v.pending = nil
	if len(slots) != 3 || slots[0].Bits != 16 || slots[1].Bits != 17 || slots[2].Bits < 8 {
		return
	}

	if tx.Header.RnW {
		tx.Data = v.read(tx)
		parity := uint32(0)
		if !swd.EvenParity(tx.Data, 32) {
			parity = 1
		}
		if v.CorruptParity {
			parity ^= 1
		}
		slots[0].In = tx.Data & 0xFFFF
		slots[1].In = tx.Data>>16 | parity<<16
		slots[2].In = 0
		v.log = append(v.log, *tx)
		return
	}

	tx.Data = slots[0].Out&0xFFFF | (slots[1].Out&0xFFFF)<<16
	parity := (slots[1].Out >> 16) & 1
	v.log = append(v.log, *tx)
	if swd.EvenParity(tx.Data, 32) != (parity == 0) {
		v.ctrlStat.WDataErr = true
		return
	}
	v.write(tx)
}

func (v *VirtualTarget) read(tx *Transaction) uint32 {
	if !tx.Header.APnDP {
		return v.readDP(tx.Addr)
	}
	result := v.posted
	v.posted = v.readAP(tx.APSel, tx.Addr)
	return result
}

func (v *VirtualTarget) readDP(addr uint8) uint32 {
	switch addr {
	case swd.DPRegIDR:
		return v.DPIDR
	case swd.DPRegCtrlStat:
		return v.readCtrlStat()
	case swd.DPRegSelect:
		return v.sel.Encode()
	case swd.DPRegRDBUFF:
		return v.posted
	}
	return 0
}

func (v *VirtualTarget) readCtrlStat() uint32 {
	cs := v.ctrlStat
	if cs.CSysPwrUpReq != cs.CSysPwrUpAck || cs.CDbgPwrUpReq != cs.CDbgPwrUpAck {
		v.powerReads++
		if v.powerReads > v.PowerUpDelay {
			v.ctrlStat.CSysPwrUpAck = cs.CSysPwrUpReq
			v.ctrlStat.CDbgPwrUpAck = cs.CDbgPwrUpReq
			v.powerReads = 0
		}
	}
	cs = v.ctrlStat
	return cs.Encode() |
		boolBit(cs.CSysPwrUpAck, 31) |
		boolBit(cs.CDbgPwrUpAck, 29) |
		boolBit(cs.CDbgRstAck, 27) |
		boolBit(cs.WDataErr, 7) |
		boolBit(cs.ReadOK, 6) |
		boolBit(cs.StickyErr, 5) |
		boolBit(cs.StickyCmp, 4) |
		boolBit(cs.StickyOrun, 1)
}

func boolBit(b bool, n uint) uint32 {
	if b {
		return 1 << n
	}
	return 0
}

func (v *VirtualTarget) readAP(apsel, addr uint8) uint32 {
	switch apsel {
	case swd.APSelCtrlAP:
		switch addr {
		case swd.CtrlAPRegReset:
			return v.ctrlReset
		case swd.CtrlAPRegEraseAllStatus:
			if v.eraseBusy > 0 {
				v.eraseBusy--
				return 1
			}
			return 0
		case swd.CtrlAPRegApprotectStatus:
			if v.Locked {
				return 0
			}
			return swd.ApprotectUnlocked
		case swd.CtrlAPRegIDR:
			return DefaultCtrlAPIDR
		}
	case swd.APSelMemAP:
		switch addr {
		case swd.MemAPRegCSW:
			return v.csw
		case swd.MemAPRegTAR:
			return v.tar
		case swd.MemAPRegDRW:
			return v.readMem(v.tar)
		case swd.MemAPRegIDR:
			return DefaultMemAPIDR
		}
	}
	return 0
}

func (v *VirtualTarget) write(tx *Transaction) {
	if tx.Header.APnDP {
		v.writeAP(tx.APSel, tx.Addr, tx.Data)
		return
	}
	switch tx.Addr {
	case swd.DPRegAbort:
		a := swd.DecodeAbort(tx.Data)
		if a.OrunErrClr {
			v.ctrlStat.StickyOrun = false
		}
		if a.WDErrClr {
			v.ctrlStat.WDataErr = false
		}
		if a.StkErrClr {
			v.ctrlStat.StickyErr = false
		}
		if a.StkCmpClr {
			v.ctrlStat.StickyCmp = false
		}
	case swd.DPRegCtrlStat:
		req := swd.DecodeCtrlStat(tx.Data)
		cs := &v.ctrlStat
		cs.CSysPwrUpReq = req.CSysPwrUpReq
		cs.CDbgPwrUpReq = req.CDbgPwrUpReq
		cs.CDbgRstReq = req.CDbgRstReq
		cs.TrnCnt = req.TrnCnt
		cs.MaskLane = req.MaskLane
		cs.TrnMode = req.TrnMode
		cs.OrunDetect = req.OrunDetect
	case swd.DPRegSelect:
		v.sel = swd.DecodeSelect(tx.Data)
	}
}

func (v *VirtualTarget) writeAP(apsel, addr uint8, data uint32) {
	switch apsel {
	case swd.APSelCtrlAP:
		switch addr {
		case swd.CtrlAPRegReset:
			v.ctrlReset = data & 1
		case swd.CtrlAPRegEraseAll:
			if data&1 != 0 {
				v.eraseFlash()
				v.Locked = false
				v.eraseBusy = v.EraseBusyReads
			}
		}
	case swd.APSelMemAP:
		switch addr {
		case swd.MemAPRegCSW:
			v.csw = v.csw&^cswWritable | data&cswWritable
		case swd.MemAPRegTAR:
			v.tar = data
		case swd.MemAPRegDRW:
			v.writeMem(v.tar, data)
		}
	}
}

func (v *VirtualTarget) readMem(addr uint32) uint32 {
	switch {
	case addr == NVMCReady:
		return 1
	case addr == NVMCConfig:
		return v.nvmcConfig
	case addr < v.FlashSize:
		if w, ok := v.mem[addr&^3]; ok {
			return w
		}
		return ErasedWord
	}
	return v.mem[addr&^3]
}

func (v *VirtualTarget) writeMem(addr, data uint32) {
	switch {
	case addr == NVMCConfig:
		v.nvmcConfig = data & 0x3
	case addr == NVMCEraseAll:
		if data&1 != 0 && v.nvmcConfig == 2 {
			v.eraseFlash()
		}
	case addr < v.FlashSize:
		if v.nvmcConfig == 1 {
			v.mem[addr&^3] = v.readMem(addr) & data
		}
	default:
		v.mem[addr&^3] = data
	}
}

func (v *VirtualTarget) eraseFlash() {
	for a := range v.mem {
		if a < v.FlashSize {
			delete(v.mem, a)
		}
	}
}

// SetSticky raises STICKYERR as if a previous access had faulted
func (v *VirtualTarget) SetSticky() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ctrlStat.StickyErr = true
}

// Flash returns the word stored at a flash address
func (v *VirtualTarget) Flash(addr uint32) uint32 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.readMem(addr)
}

// Poke stores a word without going through the NVMC
func (v *VirtualTarget) Poke(addr, data uint32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.mem[addr&^3] = data
}

// NVMCConfig returns the current NVMC CONFIG value
func (v *VirtualTarget) NVMCConfig() uint32 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.nvmcConfig
}

// Transactions returns every completed or refused access in order
func (v *VirtualTarget) Transactions() []Transaction {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]Transaction(nil), v.log...)
}

// ResetLog discards the recorded transactions
func (v *VirtualTarget) ResetLog() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.log = nil
}

// LineResets returns the number of line resets seen
func (v *VirtualTarget) LineResets() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lineResets
}

// Switches returns the number of JTAG-to-SWD sequences seen
func (v *VirtualTarget) Switches() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.switches
}

// Attached reports whether the target accepts transactions
func (v *VirtualTarget) Attached() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.attached
}

// Close implements swd.Transport
func (v *VirtualTarget) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	return nil
}

// IsClosed reports whether Close was called
func (v *VirtualTarget) IsClosed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.closed
}

// Type implements swd.Transport
func (*VirtualTarget) Type() swd.TransportType {
	return swd.TransportVirtual
}
