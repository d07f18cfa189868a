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
	"github.com/golang/glog"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/pin"
	"periph.io/x/conn/v3/spi"
)

// funcSetter is implemented by pins whose alternate function can be changed
type funcSetter interface {
	SetFunc(f pin.Func) error
}

// configurePins routes the configured GPIOs to SPI1
func configurePins(config *Config) error {
	assignments := []struct {
		name string
		fn   pin.Func
	}{
		{config.MOSI, spi.MOSI.Specialize(1, -1)},
		{config.MISO, spi.MISO.Specialize(1, -1)},
		{config.CLK, spi.CLK.Specialize(1, -1)},
	}

	for _, a := range assignments {
		p := gpioreg.ByName(a.name)
		if p == nil {
			return fmt.Errorf("%w: no pin named %s", swd.ErrHardwareAccess, a.name)
		}
		fs, ok := p.(funcSetter)
		if !ok {
			return fmt.Errorf("%w: pin %s cannot change function", swd.ErrHardwareAccess, a.name)
		}
		if err := fs.SetFunc(a.fn); err != nil {
			return fmt.Errorf("%w: setting %s to %s: %w", swd.ErrHardwareAccess, a.name, a.fn, err)
		}
		glog.V(2).Infof("%s -> %s", a.name, a.fn)
	}
	return nil
}
