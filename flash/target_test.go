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
	"os"
	"path/filepath"
	"testing"

	swd "github.com/ZaparooProject/go-swd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupTarget(t *testing.T) {
	t.Parallel()

	tgt, err := LookupTarget("nrf52840")
	require.NoError(t, err)
	assert.Equal(t, uint32(0x100000), tgt.FlashSize)
	assert.Equal(t, uint32(0x40000), tgt.Words())
	assert.Equal(t, uint32(0x4001E504), tgt.nvmcConfig())
	assert.Equal(t, uint32(0x4001E50C), tgt.nvmcEraseAll())
	assert.Equal(t, uint32(0x4001E400), tgt.nvmcReady())

	tgt.FlashSize = 1
	again, err := LookupTarget("nrf52840")
	require.NoError(t, err)
	assert.Equal(t, uint32(0x100000), again.FlashSize, "profiles are returned as copies")

	_, err = LookupTarget("stm32")
	require.ErrorIs(t, err, ErrUnknownTarget)
	assert.Equal(t, []string{"nrf52", "nrf52832", "nrf52840"}, TargetNames())
}

func TestParseTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		want    *Target
		wantErr error
		name    string
		yaml    string
	}{
		{
			name: "overrides keep defaults",
			yaml: "name: nrf52810\nflash_size: 0x30000\n",
			want: func() *Target {
				tgt := NRF52832
				tgt.Name = "nrf52810"
				tgt.FlashSize = 0x30000
				return &tgt
			}(),
		},
		{
			name: "unnamed profile",
			yaml: "unlocked_status: 0x1\n",
			want: func() *Target {
				tgt := NRF52832
				tgt.Name = "custom"
				return &tgt
			}(),
		},
		{name: "unknown field", yaml: "flash_sise: 4\n"},
		{name: "unaligned flash", yaml: "flash_size: 6\n", wantErr: swd.ErrInvalidParameter},
		{name: "shared selectors", yaml: "mem_ap: 1\n", wantErr: swd.ErrInvalidParameter},
		{name: "nvmc inside flash", yaml: "nvmc_base: 0x1000\n", wantErr: swd.ErrInvalidParameter},
		{name: "unaligned offset", yaml: "config_offset: 0x505\n", wantErr: swd.ErrInvalidParameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tgt, err := ParseTarget([]byte(tt.yaml))
			if tt.want == nil {
				require.Error(t, err)
				if tt.wantErr != nil {
					require.ErrorIs(t, err, tt.wantErr)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, tgt)
		})
	}
}

func TestLoadTarget(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "target.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: big\nflash_size: 0x200000\n"), 0o600))

	tgt, err := LoadTarget(path)
	require.NoError(t, err)
	assert.Equal(t, "big", tgt.Name)
	assert.Equal(t, uint32(0x200000), tgt.FlashSize)

	_, err = LoadTarget(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}
