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

package swd_test

import (
	"context"
	"testing"

	swd "github.com/ZaparooProject/go-swd"
	"github.com/ZaparooProject/go-swd/internal/swdtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAttachedDevice(t *testing.T) (*swd.Device, *swdtest.VirtualTarget) {
	t.Helper()
	target := swdtest.NewVirtualTarget()
	device, err := swd.New(target)
	require.NoError(t, err)
	require.NoError(t, device.Attach(context.Background(), 0))
	return device, target
}

func TestDeviceRequiresAttach(t *testing.T) {
	t.Parallel()

	target := swdtest.NewVirtualTarget()
	device, err := swd.New(target)
	require.NoError(t, err)

	_, err = device.ReadDPIDR(context.Background())
	require.ErrorIs(t, err, swd.ErrAckUnknown)

	require.NoError(t, device.Attach(context.Background(), 0))
	assert.True(t, target.Attached())
	assert.Equal(t, 3, target.LineResets())
	assert.Equal(t, 1, target.Switches())

	idcode, err := device.ReadDPIDR(context.Background())
	require.NoError(t, err)
	assert.Equal(t, swdtest.DefaultDPIDR, idcode)
}

func TestDeviceProbe(t *testing.T) {
	t.Parallel()

	device, target := newAttachedDevice(t)
	target.PowerUpDelay = 2

	report, err := device.Probe(context.Background(), swd.APSelCtrlAP)
	require.NoError(t, err)
	assert.Equal(t, swdtest.DefaultDPIDR, report.IDCode)
	assert.Equal(t, uint8(0xBA), report.DPIDR.PartNo)
	assert.True(t, report.CtrlStat.PowerAcked(true))
	assert.Equal(t, uint32(0xF0000000), report.CtrlStatRaw, "raw word keeps the read-only ACK bits")
	assert.Equal(t, swdtest.DefaultCtrlAPIDR, report.CtrlAPIDRRaw)
	assert.Equal(t, uint8(0x44), report.CtrlAPIDR.JEDEC)
	assert.True(t, report.Unlocked())
}

func TestDeviceProbeLocked(t *testing.T) {
	t.Parallel()

	device, target := newAttachedDevice(t)
	target.Locked = true

	report, err := device.Probe(context.Background(), swd.APSelCtrlAP)
	require.NoError(t, err)
	assert.False(t, report.Unlocked())
	assert.Zero(t, report.ProtectStatus)
}

func TestDeviceProbeSelectsGivenAP(t *testing.T) {
	t.Parallel()

	device, target := newAttachedDevice(t)
	target.Poke(0x0, 0x5A5A0001)

	report, err := device.Probe(context.Background(), swd.APSelMemAP)
	require.NoError(t, err)
	assert.Equal(t, swdtest.DefaultMemAPIDR, report.CtrlAPIDRRaw)
	assert.Equal(t, uint32(0x5A5A0001), report.ProtectStatus)
	for _, tx := range target.Transactions() {
		if tx.Header.APnDP {
			assert.Equal(t, swd.APSelMemAP, tx.APSel)
		}
	}
}

func TestDeviceMemAPRegisters(t *testing.T) {
	t.Parallel()

	device, target := newAttachedDevice(t)
	ctx := context.Background()
	target.Poke(0x20000000, 0xCAFEF00D)

	require.NoError(t, device.WriteSelect(ctx, swd.APSelMemAP, 0, 0))

	csw, err := device.ReadCSW(ctx)
	require.NoError(t, err)
	assert.Equal(t, swdtest.DefaultCSW, csw)

	require.NoError(t, device.WriteTAR(ctx, 0x20000000))
	tar, err := device.ReadTAR(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x20000000), tar)

	drw, err := device.ReadDRW(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xCAFEF00D), drw)

	require.NoError(t, device.WriteDRW(ctx, 0x12345678))
	assert.Equal(t, uint32(0x12345678), target.Flash(0x20000000))

	require.NoError(t, device.WriteAP(ctx, swd.MemAPRegCSW, swd.CSW{Size: swd.CSWSize32, AddrInc: swd.CSWAddrIncSingle}.Encode()))
	csw, err = device.ReadAP(ctx, swd.MemAPRegCSW)
	require.NoError(t, err)
	assert.Equal(t, swd.CSWAddrIncSingle, swd.DecodeCSW(csw).AddrInc)

	require.NoError(t, device.WriteSelect(ctx, swd.APSelMemAP, 0xF, 0))
	idr, err := device.ReadAPIDR(ctx)
	require.NoError(t, err)
	assert.Equal(t, swdtest.DefaultMemAPIDR, idr)
}

func TestDeviceCtrlAPErase(t *testing.T) {
	t.Parallel()

	device, target := newAttachedDevice(t)
	ctx := context.Background()
	target.Locked = true
	target.EraseBusyReads = 2
	target.Poke(0x100, 0)

	require.NoError(t, device.WriteSelect(ctx, swd.APSelCtrlAP, 0, 0))
	require.NoError(t, device.EraseAll(ctx))

	status, err := device.ReadEraseStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), status)

	status, err = device.ReadEraseStatus(ctx)
	require.NoError(t, err)
	assert.Zero(t, status)

	prot, err := device.ReadProtectStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, swd.ApprotectUnlocked, prot)
	assert.Equal(t, swdtest.ErasedWord, target.Flash(0x100))
}

func TestDeviceStickyErrors(t *testing.T) {
	t.Parallel()

	device, target := newAttachedDevice(t)
	ctx := context.Background()
	target.SetSticky()

	_, err := device.ReadCSW(ctx)
	require.ErrorIs(t, err, swd.ErrAckFault)

	raw, err := device.ReadCtrlStat(ctx)
	require.NoError(t, err)
	assert.True(t, swd.DecodeCtrlStat(raw).StickyErr)

	_, err = device.PowerUpDebug(ctx, true)
	require.ErrorIs(t, err, swd.ErrStickyError)

	require.NoError(t, device.ClearStickyErrors(ctx))
	raw, err = device.ReadCtrlStat(ctx)
	require.NoError(t, err)
	assert.False(t, swd.DecodeCtrlStat(raw).HasStickyErrors())

	_, err = device.ReadCSW(ctx)
	require.NoError(t, err)
}

func TestDeviceWriteAbort(t *testing.T) {
	t.Parallel()

	device, target := newAttachedDevice(t)
	ctx := context.Background()
	target.SetSticky()

	require.NoError(t, device.WriteAbort(ctx, swd.Abort{StkCmpClr: true}))
	raw, err := device.ReadCtrlStat(ctx)
	require.NoError(t, err)
	assert.True(t, swd.DecodeCtrlStat(raw).StickyErr, "clearing STICKYCMP must leave STICKYERR set")

	require.NoError(t, device.WriteAbort(ctx, swd.Abort{StkErrClr: true}))
	raw, err = device.ReadCtrlStat(ctx)
	require.NoError(t, err)
	assert.False(t, swd.DecodeCtrlStat(raw).StickyErr)
}

func TestDeviceDebugPower(t *testing.T) {
	t.Parallel()

	device, _ := newAttachedDevice(t)
	ctx := context.Background()

	require.NoError(t, device.SetDebugPower(ctx, true))
	raw, err := device.ReadCtrlStat(ctx)
	require.NoError(t, err)
	cs := swd.DecodeCtrlStat(raw)
	assert.True(t, cs.CSysPwrUpReq)
	assert.True(t, cs.PowerAcked(true))

	require.NoError(t, device.WriteCtrlStat(ctx, swd.CtrlStat{}))
	raw, err = device.ReadCtrlStat(ctx)
	require.NoError(t, err)
	assert.True(t, swd.DecodeCtrlStat(raw).PowerAcked(false))
}

func TestDeviceParityMismatch(t *testing.T) {
	t.Parallel()

	device, target := newAttachedDevice(t)
	target.CorruptParity = true

	_, err := device.ReadDPIDR(context.Background())
	require.ErrorIs(t, err, swd.ErrParityMismatch)
}

func TestDeviceClose(t *testing.T) {
	t.Parallel()

	device, target := newAttachedDevice(t)
	require.NoError(t, device.Close())
	assert.True(t, target.IsClosed())

	_, err := device.ReadDPIDR(context.Background())
	require.ErrorIs(t, err, swd.ErrTransportClosed)
}
