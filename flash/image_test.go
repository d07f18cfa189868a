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

package flash

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type word struct {
	addr, value uint32
}

func collect(t *testing.T, img *Image) []word {
	t.Helper()
	var words []word
	require.NoError(t, img.Walk(func(addr, value uint32) error {
		words = append(words, word{addr, value})
		return nil
	}))
	return words
}

func TestImageWalk(t *testing.T) {
	t.Parallel()

	data := []byte{0x78, 0x56, 0x34, 0x12, 0xEF, 0xBE, 0xAD, 0xDE, 0x01, 0x02}
	img := NewImage(bytes.NewReader(data))

	n, err := img.Words()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	want := []word{{0, 0x12345678}, {4, 0xDEADBEEF}}
	assert.Equal(t, want, collect(t, img))
	assert.Equal(t, want, collect(t, img), "every walk starts from the beginning")
	require.NoError(t, img.Close())
}

func TestImageWalkStops(t *testing.T) {
	t.Parallel()

	img := NewImage(bytes.NewReader(make([]byte, 16)))
	calls := 0
	err := img.Walk(func(uint32, uint32) error {
		calls++
		if calls == 2 {
			return errStop
		}
		return nil
	})
	require.ErrorIs(t, err, errStop)
	assert.Equal(t, 2, calls)
}

func TestImageEmpty(t *testing.T) {
	t.Parallel()

	img := NewImage(bytes.NewReader(nil))
	assert.Empty(t, collect(t, img))
}

func TestOpenImageRaw(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "app.bin")
	require.NoError(t, os.WriteFile(path, []byte{1, 0, 0, 0, 2, 0, 0, 0}, 0o600))

	img, err := OpenImage(path, NRF52832.FlashSize)
	require.NoError(t, err)
	defer func() { _ = img.Close() }()
	assert.Equal(t, []word{{0, 1}, {4, 2}}, collect(t, img))

	_, err = OpenImage(filepath.Join(t.TempDir(), "missing.bin"), NRF52832.FlashSize)
	require.Error(t, err)
}

func TestOpenImageHex(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		hex     string
		want    []word
		wantErr bool
	}{
		{
			name: "gap is erased and data outside flash is skipped",
			hex: ":0400040078563412E4\n" +
				":020000041000EA\n" +
				":04120800FFFFFF00E5\n" +
				":00000001FF\n",
			want: []word{{0, 0xFFFFFFFF}, {4, 0x12345678}},
		},
		{
			name: "partial word is padded",
			hex:  ":03000000AABBCCCC\n:00000001FF\n",
			want: []word{{0, 0xFFCCBBAA}},
		},
		{
			name:    "nothing inside flash",
			hex:     ":020000041000EA\n:04120800FFFFFF00E5\n:00000001FF\n",
			wantErr: true,
		},
		{
			name:    "bad checksum",
			hex:     ":0400040078563412E5\n:00000001FF\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "app.hex")
			require.NoError(t, os.WriteFile(path, []byte(tt.hex), 0o600))

			img, err := OpenImage(path, NRF52832.FlashSize)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, collect(t, img))
		})
	}
}
