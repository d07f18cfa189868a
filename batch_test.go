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
	"github.com/stretchr/testify/require"
)

func TestBatchCapacity(t *testing.T) {
	t.Parallel()

	var b Batch
	for i := range MaxBatchSlots {
		require.NoError(t, b.Add(uint32(i), 8))
	}
	assert.Equal(t, MaxBatchSlots, b.Len())

	err := b.Add(0xFF, 8)
	require.ErrorIs(t, err, ErrTransportCapacity)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, MaxBatchSlots, b.Len(), "a rejected add must not truncate or grow the batch")
}

func TestBatchRejectsBadLength(t *testing.T) {
	t.Parallel()

	var b Batch
	require.ErrorIs(t, b.Add(0, 0), ErrInvalidParameter)
	require.ErrorIs(t, b.Add(0, MaxSlotBits+1), ErrInvalidParameter)
	require.NoError(t, b.Add(0xFFFFFF, MaxSlotBits))
	assert.Equal(t, 1, b.Len())
}

func TestBatchSlotsAlias(t *testing.T) {
	t.Parallel()

	var b Batch
	require.NoError(t, b.Add(0x12, 8))
	require.NoError(t, b.Add(0x3456, 16))

	slots := b.Slots()
	require.Len(t, slots, 2)
	slots[1].In = 0xBEEF
	assert.Equal(t, uint32(0xBEEF), b.In(1))

	b.Reset()
	assert.Zero(t, b.Len())
	assert.Empty(t, b.Slots())
	require.NoError(t, b.Add(1, 1))
	assert.Zero(t, b.In(0))
}
