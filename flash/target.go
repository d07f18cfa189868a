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
	"errors"
	"fmt"
	"os"
	"sort"

	swd "github.com/ZaparooProject/go-swd"
	"gopkg.in/yaml.v3"
)

// NVMC CONFIG values
const (
	NVMCReadOnly    uint32 = 0
	NVMCWriteEnable uint32 = 1
	NVMCEraseEnable uint32 = 2
)

// Target describes the flash geometry and controller registers of one
// microcontroller family
type Target struct {
	Name string `yaml:"name"`
	// FlashSize is the size in bytes of the flash window starting at 0
	FlashSize uint32 `yaml:"flash_size"`
	// NVMCBase is the address of the non-volatile memory controller
	NVMCBase       uint32 `yaml:"nvmc_base"`
	ReadyOffset    uint32 `yaml:"ready_offset"`
	ConfigOffset   uint32 `yaml:"config_offset"`
	EraseAllOffset uint32 `yaml:"eraseall_offset"`
	// UnlockedStatus is the CTRL-AP APPROTECTSTATUS value of an open device
	UnlockedStatus uint32 `yaml:"unlocked_status"`
	MemAP          uint8  `yaml:"mem_ap"`
	CtrlAP         uint8  `yaml:"ctrl_ap"`
}

// NRF52832 is the default target
var NRF52832 = Target{
	Name:           "nrf52832",
	FlashSize:      0x80000,
	NVMCBase:       0x4001E000,
	ReadyOffset:    0x400,
	ConfigOffset:   0x504,
	EraseAllOffset: 0x50C,
	UnlockedStatus: swd.ApprotectUnlocked,
	MemAP:          swd.APSelMemAP,
	CtrlAP:         swd.APSelCtrlAP,
}

// NRF52840 differs from the NRF52832 only in flash size
var NRF52840 = func() Target {
	t := NRF52832
	t.Name = "nrf52840"
	t.FlashSize = 0x100000
	return t
}()

var builtinTargets = map[string]Target{
	"nrf52":    NRF52832,
	"nrf52832": NRF52832,
	"nrf52840": NRF52840,
}

// ErrUnknownTarget is returned for target names with no built-in profile
var ErrUnknownTarget = errors.New("unknown target")

// TargetNames lists the built-in target profiles
func TargetNames() []string {
	names := make([]string, 0, len(builtinTargets))
	for name := range builtinTargets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupTarget returns a copy of a built-in target profile
func LookupTarget(name string) (*Target, error) {
	t, ok := builtinTargets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownTarget, name, TargetNames())
	}
	return &t, nil
}

// LoadTarget reads a YAML target profile from path
func LoadTarget(path string) (*Target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read target profile: %w", err)
	}
	t, err := ParseTarget(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// ParseTarget decodes a YAML target profile. Omitted fields keep their
// NRF52832 values and unknown fields are rejected.
func ParseTarget(data []byte) (*Target, error) {
	t := NRF52832
	t.Name = ""
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("failed to parse target profile: %w", err)
	}
	if t.Name == "" {
		t.Name = "custom"
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate checks that the profile describes a usable flash layout
func (t *Target) Validate() error {
	switch {
	case t.FlashSize == 0 || t.FlashSize%4 != 0:
		return fmt.Errorf("%w: flash size 0x%x is not a positive multiple of 4", swd.ErrInvalidParameter, t.FlashSize)
	case t.NVMCBase%4 != 0:
		return fmt.Errorf("%w: NVMC base 0x%08x is not word aligned", swd.ErrInvalidParameter, t.NVMCBase)
	case t.NVMCBase < t.FlashSize:
		return fmt.Errorf("%w: NVMC base 0x%08x lies inside flash", swd.ErrInvalidParameter, t.NVMCBase)
	case t.MemAP == t.CtrlAP:
		return fmt.Errorf("%w: MEM-AP and CTRL-AP share selector %d", swd.ErrInvalidParameter, t.MemAP)
	}
	for _, off := range []uint32{t.ReadyOffset, t.ConfigOffset, t.EraseAllOffset} {
		if off%4 != 0 {
			return fmt.Errorf("%w: NVMC register offset 0x%x is not word aligned", swd.ErrInvalidParameter, off)
		}
	}
	return nil
}

// Words returns the flash capacity in 32-bit words
func (t *Target) Words() uint32 {
	return t.FlashSize / 4
}

func (t *Target) nvmcReady() uint32    { return t.NVMCBase + t.ReadyOffset }
func (t *Target) nvmcConfig() uint32   { return t.NVMCBase + t.ConfigOffset }
func (t *Target) nvmcEraseAll() uint32 { return t.NVMCBase + t.EraseAllOffset }
