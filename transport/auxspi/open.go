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

package auxspi

import (
	"fmt"

	swd "github.com/ZaparooProject/go-swd"
	"github.com/ZaparooProject/go-swd/internal/mmio"
	"periph.io/x/host/v3"
)

// Open routes the SPI1 pins, maps the AUX block from physical memory and
// returns a ready transport. The process must run as root. Close releases
// the mapping.
func Open(config *Config) (*Transport, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}
	if err := configurePins(config); err != nil {
		return nil, err
	}

	base, _, err := mmio.PeripheralRange(config.RangesPath)
	if err != nil {
		return nil, swd.NewTransportError("Open", fmt.Errorf("%w: %w", swd.ErrHardwareAccess, err), swd.ErrorTypePermanent)
	}
	mapping, err := mmio.Map(config.MemPath, base+AuxOffset, mmio.PageSize)
	if err != nil {
		return nil, swd.NewTransportError("Open", fmt.Errorf("%w: %w", swd.ErrHardwareAccess, err), swd.ErrorTypePermanent)
	}

	t, err := New(mapping.Block(), config)
	if err != nil {
		_ = mapping.Close()
		return nil, err
	}
	t.closer = mapping
	return t, nil
}
