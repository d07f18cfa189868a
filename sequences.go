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

	"github.com/golang/glog"
)

// powerUpPolls bounds how often CTRL/STAT is re-read after a power request
const powerUpPolls = 10

// ReadAP issues the read in p twice. AP reads are posted: the first returns
// whatever the previous AP access produced, the second returns the value of
// the register p names.
func ReadAP(ctx context.Context, x Executor, p *Packet) error {
	if err := x.Execute(ctx, p); err != nil {
		return err
	}
	return x.Execute(ctx, p)
}

// SelectAP points SELECT at the given access port and register bank
func SelectAP(ctx context.Context, x Executor, apsel, apbank uint8) error {
	return x.Execute(ctx, NewWriteSelect(Select{APSel: apsel, APBank: apbank}))
}

// ReadCtrlStat reads and decodes CTRL/STAT
func ReadCtrlStat(ctx context.Context, x Executor) (CtrlStat, uint32, error) {
	p := NewReadCtrlStat()
	if err := x.Execute(ctx, p); err != nil {
		return CtrlStat{}, 0, err
	}
	return DecodeCtrlStat(p.Data), p.Data, nil
}

// ClearSticky writes ABORT with every sticky-flag clear bit set
func ClearSticky(ctx context.Context, x Executor) error {
	return x.Execute(ctx, NewWriteAbort(ClearStickyErrors))
}

// PowerUpDebug requests the system and debug power domains on or off. It
// refuses to touch a port with sticky errors pending, skips the write when
// both acknowledgements already match, and otherwise writes the request and
// re-reads CTRL/STAT until the acknowledgements follow.
func PowerUpDebug(ctx context.Context, x Executor, on bool) (CtrlStat, error) {
	cs, raw, err := ReadCtrlStat(ctx, x)
	if err != nil {
		return CtrlStat{}, err
	}
	if cs.HasStickyErrors() {
		return cs, fmt.Errorf("%w: CTRL/STAT=0x%08x", ErrStickyError, raw)
	}
	if cs.PowerAcked(on) {
		glog.V(3).Infof("debug power already %t", on)
		return cs, nil
	}

	cs.CSysPwrUpReq = on
	cs.CDbgPwrUpReq = on
	if err := x.Execute(ctx, NewWriteCtrlStat(cs)); err != nil {
		return cs, err
	}

	for range powerUpPolls {
		cs, raw, err = ReadCtrlStat(ctx, x)
		if err != nil {
			return cs, err
		}
		if cs.PowerAcked(on) {
			glog.V(3).Infof("CTRL/STAT = 0x%08x", raw)
			return cs, nil
		}
	}
	return cs, fmt.Errorf("%w: CTRL/STAT=0x%08x", ErrPowerUpTimeout, raw)
}

// WriteMem stores data at addr through the selected MEM-AP
func WriteMem(ctx context.Context, x Executor, addr, data uint32) error {
	if err := x.Execute(ctx, NewWriteTAR(addr)); err != nil {
		return err
	}
	return x.Execute(ctx, NewWriteDRW(data))
}

// ReadMem loads the word at addr through the selected MEM-AP
func ReadMem(ctx context.Context, x Executor, addr uint32) (uint32, error) {
	if err := x.Execute(ctx, NewWriteTAR(addr)); err != nil {
		return 0, err
	}
	p := NewReadDRW()
	if err := ReadAP(ctx, x, p); err != nil {
		return 0, err
	}
	return p.Data, nil
}
