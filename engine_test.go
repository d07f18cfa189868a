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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedTarget answers the header phase with ack and a read data phase
// with data, optionally flipping the parity bit
func scriptedTarget(ack uint8, data uint32, badParity bool) func(b *Batch) error {
	return func(b *Batch) error {
		slots := b.Slots()
		if len(slots) == 1 {
			slots[0].In = uint32(ack) << 9
			return nil
		}
		p := parityBit(data)
		if badParity {
			p ^= 1
		}
		slots[0].In = data & 0xFFFF
		slots[1].In = data>>16 | p<<16
		return nil
	}
}

func TestEngineReadFraming(t *testing.T) {
	t.Parallel()

	mock := NewMockTransportWithFunc(scriptedTarget(AckCodeOK, 0x2BA01477, false))
	engine, err := NewEngine(mock)
	require.NoError(t, err)

	p := NewReadDPIDR()
	require.NoError(t, engine.Execute(context.Background(), p))
	assert.Equal(t, uint32(0x2BA01477), p.Data)
	assert.Equal(t, AckOK, p.Status())

	ex := mock.Exchanges()
	require.Len(t, ex, 2)
	require.Len(t, ex[0], 1)
	assert.Equal(t, uint8(12), ex[0][0].Bits)
	assert.Equal(t, uint32(0xFA5), ex[0][0].Out)

	require.Len(t, ex[1], 3)
	assert.Equal(t, Slot{Out: 0xFFFF, Bits: 16, In: 0x1477}, ex[1][0])
	assert.Equal(t, uint8(17), ex[1][1].Bits)
	assert.Equal(t, uint32(0x1FFFF), ex[1][1].Out)
	assert.Equal(t, Slot{Out: 0, Bits: DefaultIdleBits}, ex[1][2])
}

func TestEngineWriteFraming(t *testing.T) {
	t.Parallel()

	mock := NewMockTransportWithFunc(scriptedTarget(AckCodeOK, 0, false))
	engine, err := NewEngine(mock, WithIdleBits(8))
	require.NoError(t, err)

	// 0x00010001 has two bits set, 0x00010000 one
	require.NoError(t, engine.Execute(context.Background(), NewWriteTAR(0x00010001)))
	require.NoError(t, engine.Execute(context.Background(), NewWriteTAR(0x00010000)))

	ex := mock.Exchanges()
	require.Len(t, ex, 4)

	assert.Equal(t, uint8(13), ex[0][0].Bits)
	assert.Equal(t, uint32(0x1F8B), ex[0][0].Out)

	assert.Equal(t, Slot{Out: 0x0001, Bits: 16}, ex[1][0])
	assert.Equal(t, Slot{Out: 0x0001, Bits: 17}, ex[1][1])
	assert.Equal(t, Slot{Out: 0, Bits: 8}, ex[1][2])

	assert.Equal(t, Slot{Out: 0x0000, Bits: 16}, ex[3][0])
	assert.Equal(t, Slot{Out: 0x10001, Bits: 17}, ex[3][1])
}

func TestEngineAckOutcomes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		want error
		name string
		ack  uint8
	}{
		{name: "wait", ack: AckCodeWait, want: ErrAckWait},
		{name: "fault", ack: AckCodeFault, want: ErrAckFault},
		{name: "no response", ack: 0b111, want: ErrAckUnknown},
		{name: "garbage", ack: 0b011, want: ErrAckUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mock := NewMockTransportWithFunc(scriptedTarget(tt.ack, 0, false))
			engine, err := NewEngine(mock)
			require.NoError(t, err)

			p := NewReadCtrlStat()
			err = engine.Execute(context.Background(), p)
			require.ErrorIs(t, err, tt.want)

			var te *TransactionError
			require.True(t, errors.As(err, &te))
			assert.Equal(t, tt.ack, te.Ack)
			assert.Equal(t, tt.ack, p.Ack)
			assert.Equal(t, 1, mock.CallCount(), "a non-OK ACK must end the transaction after the header")
		})
	}
}

func TestEngineParityMismatch(t *testing.T) {
	t.Parallel()

	mock := NewMockTransportWithFunc(scriptedTarget(AckCodeOK, 0x12345678, true))
	engine, err := NewEngine(mock)
	require.NoError(t, err)

	p := NewReadCtrlStat()
	err = engine.Execute(context.Background(), p)
	require.ErrorIs(t, err, ErrParityMismatch)
	assert.Equal(t, AckOK, p.Status())
}

func TestEngineLineSequences(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	engine, err := NewEngine(mock)
	require.NoError(t, err)

	require.NoError(t, engine.Attach(context.Background(), 0))

	ex := mock.Exchanges()
	require.Len(t, ex, 4)
	for _, batch := range ex {
		require.Len(t, batch, 4)
		for _, s := range batch[:3] {
			assert.Equal(t, Slot{Out: 0xFFFFFF, Bits: 24}, s)
		}
	}
	assert.Equal(t, Slot{Out: 0, Bits: 8}, ex[0][3])
	assert.Equal(t, Slot{Out: 0xE79E, Bits: 16}, ex[1][3])
	assert.Equal(t, Slot{Out: 0, Bits: 8}, ex[2][3])
	assert.Equal(t, Slot{Out: 0, Bits: 8}, ex[3][3])
}

func TestEngineCancelledContext(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	engine, err := NewEngine(mock)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, engine.Execute(ctx, NewReadDPIDR()), context.Canceled)
	require.ErrorIs(t, engine.Attach(ctx, 0), context.Canceled)
	assert.Zero(t, mock.CallCount())
}

func TestEngineOptions(t *testing.T) {
	t.Parallel()

	_, err := NewEngine(nil)
	require.ErrorIs(t, err, ErrInvalidParameter)

	_, err = NewEngine(NewMockTransport(), WithIdleBits(4))
	require.ErrorIs(t, err, ErrInvalidParameter)

	engine, err := NewEngine(NewMockTransport(), WithRetryConfig(DefaultRetryConfig()))
	require.NoError(t, err)
	_, ok := engine.Transport().(*TransportWithRetry)
	assert.True(t, ok)
	assert.Equal(t, TransportMock, engine.Transport().Type())
}

func TestEngineClose(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	engine, err := NewEngine(mock)
	require.NoError(t, err)
	require.NoError(t, engine.Close())
	assert.True(t, mock.IsClosed())

	err = engine.Execute(context.Background(), NewReadDPIDR())
	require.ErrorIs(t, err, ErrTransportClosed)
}
