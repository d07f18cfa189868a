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
	"context"
	"fmt"
	"time"
)

// Device exposes the single-shot debug port commands of an attached target.
// Every method maps onto one engine transaction, or two for AP reads.
//
// Thread Safety: Device is NOT thread-safe. The wire protocol is strictly
// sequential, so all methods must be called from a single goroutine.
type Device struct {
	engine *Engine
}

// New creates a device on top of transport
func New(transport Transport, opts ...Option) (*Device, error) {
	engine, err := NewEngine(transport, opts...)
	if err != nil {
		return nil, err
	}
	return &Device{engine: engine}, nil
}

// Engine returns the transaction engine driving the device
func (d *Device) Engine() *Engine {
	return d.engine
}

// Close closes the underlying transport
func (d *Device) Close() error {
	return d.engine.Close()
}

// LineReset sends an SWD line reset
func (d *Device) LineReset(ctx context.Context) error {
	return d.engine.LineReset(ctx)
}

// SwitchToSWD sends the JTAG-to-SWD select sequence
func (d *Device) SwitchToSWD(ctx context.Context) error {
	return d.engine.SwitchToSWD(ctx)
}

// Attach runs the full reset and mode switch sequence
func (d *Device) Attach(ctx context.Context, settle time.Duration) error {
	return d.engine.Attach(ctx, settle)
}

// WriteSelect writes the SELECT register
func (d *Device) WriteSelect(ctx context.Context, apsel, apbank, dpbank uint8) error {
	return d.engine.Execute(ctx, NewWriteSelect(Select{APSel: apsel, APBank: apbank, DPBank: dpbank}))
}

// ReadDPIDR reads the debug port identification register
func (d *Device) ReadDPIDR(ctx context.Context) (uint32, error) {
	p := NewReadDPIDR()
	if err := d.engine.Execute(ctx, p); err != nil {
		return 0, err
	}
	return p.Data, nil
}

// ReadAPIDR reads the IDR of the selected AP. SELECT must address bank 0xF.
func (d *Device) ReadAPIDR(ctx context.Context) (uint32, error) {
	return d.readAP(ctx, NewReadAPIDR())
}

// WriteAbort writes the ABORT register
func (d *Device) WriteAbort(ctx context.Context, flags Abort) error {
	return d.engine.Execute(ctx, NewWriteAbort(flags))
}

// ReadCtrlStat reads CTRL/STAT
func (d *Device) ReadCtrlStat(ctx context.Context) (uint32, error) {
	_, raw, err := ReadCtrlStat(ctx, d.engine)
	return raw, err
}

// WriteCtrlStat writes the writable fields of c to CTRL/STAT
func (d *Device) WriteCtrlStat(ctx context.Context, c CtrlStat) error {
	return d.engine.Execute(ctx, NewWriteCtrlStat(c))
}

// ClearStickyErrors clears every sticky flag through ABORT
func (d *Device) ClearStickyErrors(ctx context.Context) error {
	return ClearSticky(ctx, d.engine)
}

// SetDebugPower writes the system and debug power-up requests without
// waiting for the acknowledgements
func (d *Device) SetDebugPower(ctx context.Context, on bool) error {
	return d.WriteCtrlStat(ctx, CtrlStat{CSysPwrUpReq: on, CDbgPwrUpReq: on})
}

// PowerUpDebug requests debug power and waits for it to be acknowledged
func (d *Device) PowerUpDebug(ctx context.Context, on bool) (CtrlStat, error) {
	return PowerUpDebug(ctx, d.engine, on)
}

// ReadProtectStatus reads CTRL-AP APPROTECTSTATUS. The CTRL-AP must be selected.
func (d *Device) ReadProtectStatus(ctx context.Context) (uint32, error) {
	return d.readAP(ctx, NewReadProtectStatus())
}

// ReadEraseStatus reads CTRL-AP ERASEALLSTATUS. The CTRL-AP must be selected.
func (d *Device) ReadEraseStatus(ctx context.Context) (uint32, error) {
	return d.readAP(ctx, NewReadEraseStatus())
}

// EraseAll triggers the CTRL-AP erase-all. The CTRL-AP must be selected.
func (d *Device) EraseAll(ctx context.Context) error {
	return d.engine.Execute(ctx, NewWriteEraseAll())
}

// ReadAP reads the AP register at addr in the selected bank
func (d *Device) ReadAP(ctx context.Context, addr uint8) (uint32, error) {
	return d.readAP(ctx, NewReadAP(addr))
}

// WriteAP writes the AP register at addr in the selected bank
func (d *Device) WriteAP(ctx context.Context, addr uint8, data uint32) error {
	return d.engine.Execute(ctx, NewWriteAP(addr, data))
}

// ReadCSW reads the MEM-AP CSW
func (d *Device) ReadCSW(ctx context.Context) (uint32, error) {
	return d.readAP(ctx, NewReadCSW())
}

// ReadTAR reads the MEM-AP transfer address register
func (d *Device) ReadTAR(ctx context.Context) (uint32, error) {
	return d.readAP(ctx, NewReadTAR())
}

// WriteTAR writes the MEM-AP transfer address register
func (d *Device) WriteTAR(ctx context.Context, addr uint32) error {
	return d.engine.Execute(ctx, NewWriteTAR(addr))
}

// ReadDRW reads the MEM-AP data register
func (d *Device) ReadDRW(ctx context.Context) (uint32, error) {
	return d.readAP(ctx, NewReadDRW())
}

// WriteDRW writes the MEM-AP data register
func (d *Device) WriteDRW(ctx context.Context, data uint32) error {
	return d.engine.Execute(ctx, NewWriteDRW(data))
}

func (d *Device) readAP(ctx context.Context, p *Packet) (uint32, error) {
	if err := d.engine.ReadAP(ctx, p); err != nil {
		return 0, err
	}
	return p.Data, nil
}

// ProbeReport summarizes the identity and state of an attached target
type ProbeReport struct {
	IDCode        uint32
	DPIDR         DPIDR
	CtrlStat      CtrlStat
	CtrlStatRaw   uint32
	CtrlAPIDR     APIDR
	CtrlAPIDRRaw  uint32
	ProtectStatus uint32
}

// Unlocked reports whether APPROTECT allows access through the MEM-AP
func (r *ProbeReport) Unlocked() bool {
	return r.ProtectStatus == ApprotectUnlocked
}

// Probe identifies the target after Attach: it reads DPIDR, powers up the
// debug domain, reads the IDR and protection status of the CTRL-AP at ctrlAP.
// SELECT is left pointing at bank 0 of that AP.
func (d *Device) Probe(ctx context.Context, ctrlAP uint8) (*ProbeReport, error) {
	idcode, err := d.ReadDPIDR(ctx)
	if err != nil {
		return nil, fmt.Errorf("target not responding: %w", err)
	}
	report := &ProbeReport{IDCode: idcode, DPIDR: DecodeDPIDR(idcode)}

	if report.CtrlStat, err = d.PowerUpDebug(ctx, true); err != nil {
		return report, fmt.Errorf("debug power-up failed: %w", err)
	}
	if report.CtrlStat, report.CtrlStatRaw, err = ReadCtrlStat(ctx, d.engine); err != nil {
		return report, err
	}

	if err := SelectAP(ctx, d.engine, ctrlAP, apBank(CtrlAPRegIDR)); err != nil {
		return report, err
	}
	if report.CtrlAPIDRRaw, err = d.ReadAPIDR(ctx); err != nil {
		return report, err
	}
	report.CtrlAPIDR = DecodeAPIDR(report.CtrlAPIDRRaw)

	if err := SelectAP(ctx, d.engine, ctrlAP, 0); err != nil {
		return report, err
	}
	if report.ProtectStatus, err = d.ReadProtectStatus(ctx); err != nil {
		return report, err
	}
	return report, nil
}
