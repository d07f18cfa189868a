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


package main

import (
	"testing"
	"time"

	"github.com/ZaparooProject/go-swd/internal/flagenv"
	"github.com/ZaparooProject/go-swd/transport/auxspi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"
)

func TestFlagSet(t *testing.T) {
	t.Parallel()

	o := defaultOptions()
	spi := auxspi.DefaultConfig()
	fs := newFlagSet(o, spi)
	require.NoError(t, fs.Parse([]string{"--target", "nrf52840", "--script=init.swd", "--settle=10ms", "--verbose"}))

	env := map[string]string{"SWD_SPI_FREQ": "500kHz", "SWD_TARGET": "ignored", "SWD_NO_COLOR": "true"}
	require.NoError(t, flagenv.ParseFlagSetWith(fs, flagenv.Prefix, func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}))

	assert.Equal(t, "nrf52840", o.targetName)
	assert.Equal(t, "init.swd", o.script)
	assert.Equal(t, 10*time.Millisecond, o.settle)
	assert.True(t, o.verbose)
	assert.True(t, o.noColor)
	assert.Equal(t, 500*physic.KiloHertz, spi.Frequency)

	glogV := fs.ShorthandLookup("v")
	require.NotNil(t, glogV, "glog verbosity keeps its single-letter flag")
	assert.Equal(t, "v", glogV.Name)
}

func TestRunHelp(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, run([]string{"--help"}))
	assert.Equal(t, 2, run([]string{"--no-such-flag"}))
}
