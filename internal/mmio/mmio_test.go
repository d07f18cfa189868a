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

package mmio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRanges(t *testing.T) {
	t.Parallel()

	tests := []struct {
		wantErr error
		name    string
		buf     []byte
		base    uint32
		size    uint32
	}{
		{
			name: "pi 2 and 3",
			buf:  []byte{0x7E, 0, 0, 0, 0x3F, 0, 0, 0, 0x01, 0, 0, 0, 0x40, 0, 0, 0},
			base: 0x3F000000,
			size: 0x01000000,
		},
		{
			name: "pi 1",
			buf:  []byte{0x7E, 0, 0, 0, 0x20, 0, 0, 0, 0x01, 0, 0, 0},
			base: 0x20000000,
			size: 0x01000000,
		},
		{
			name: "pi 4 with 64-bit parent",
			buf:  []byte{0x7E, 0, 0, 0, 0, 0, 0, 0, 0xFE, 0, 0, 0, 0x01, 0x80, 0, 0},
			base: 0xFE000000,
			size: 0x01800000,
		},
		{
			name:    "too short",
			buf:     []byte{0x7E, 0, 0, 0},
			wantErr: ErrBadRanges,
		},
		{
			name:    "all zero",
			buf:     make([]byte, 16),
			wantErr: ErrBadRanges,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			base, size, err := ParseRanges(tt.buf)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.base, base)
			assert.Equal(t, tt.size, size)
		})
	}
}

func TestPeripheralRange(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ranges")
	require.NoError(t, os.WriteFile(path, []byte{0x7E, 0, 0, 0, 0x3F, 0, 0, 0, 0x01, 0, 0, 0, 0x40, 0, 0, 0}, 0o600))

	base, size, err := PeripheralRange(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x3F000000), base)
	assert.Equal(t, uint32(0x01000000), size)

	_, _, err = PeripheralRange(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

func TestBlock(t *testing.T) {
	t.Parallel()

	words := make([]uint32, 64)
	b := NewBlock(words)
	assert.Equal(t, uint32(256), b.Size())

	b.Write32(0x88, 0xDEADBEEF)
	assert.Equal(t, uint32(0xDEADBEEF), words[0x22])
	assert.Equal(t, uint32(0xDEADBEEF), b.Read32(0x88))

	sub, err := b.Sub(0x80, 0x40)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xDEADBEEF), sub.Read32(0x08))
	sub.Write32(0x20, 7)
	assert.Equal(t, uint32(7), b.Read32(0xA0))

	_, err = b.Sub(0xF0, 0x20)
	require.ErrorIs(t, err, ErrOutOfRange)
	_, err = b.Sub(0x2, 0x4)
	require.ErrorIs(t, err, ErrOutOfRange)
}
