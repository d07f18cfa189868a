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
	"context"
	"fmt"
	"sort"
	"strings"

	swd "github.com/ZaparooProject/go-swd"
	"github.com/ZaparooProject/go-swd/flash"
)

// command is one shell command. args is the exact argument count.
type command struct {
	run   func(ctx context.Context, s *Shell, args []uint32) error
	usage string
	help  string
	args  int
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"swd_reset":   {run: cmdLineReset, help: "send an SWD line reset"},
		"jtag_to_swd": {run: cmdSwitch, help: "send the JTAG-to-SWD select sequence"},
		"attach":      {run: cmdAttach, help: "reset, switch to SWD and reset twice"},
		"write_select": {
			run: cmdWriteSelect, args: 3, usage: "apsel apbank dpbank",
			help: "write the DP SELECT register",
		},
		"read_dpid":     {run: cmdReadDPIDR, help: "read the DP identification register"},
		"read_idrcode":  {run: cmdReadAPIDR, help: "read the IDR of the selected AP (bank 0xf)"},
		"write_abort":   {run: cmdWriteAbort, args: 1, usage: "flags", help: "write the DP ABORT register"},
		"read_ctrlstat": {run: cmdReadCtrlStat, help: "read the DP CTRL/STAT register"},
		"write_ctrlstat": {
			run: cmdWriteCtrlStat, args: 1, usage: "value",
			help: "write the writable fields of CTRL/STAT",
		},
		"clear_stickyerr":     {run: cmdClearSticky, help: "clear every sticky error flag"},
		"read_prot_status":    {run: cmdReadProtStatus, help: "read CTRL-AP APPROTECTSTATUS"},
		"read_erase_status":   {run: cmdReadEraseStatus, help: "read CTRL-AP ERASEALLSTATUS"},
		"do_erase_all":        {run: cmdEraseAll, help: "start a CTRL-AP erase all"},
		"control_debug_power": {run: cmdDebugPower, args: 1, usage: "0|1", help: "request debug power off or on"},
		"read_ap_addr":        {run: cmdReadAP, args: 1, usage: "addr", help: "read an AP register of the selected bank"},
		"write_ap_addr": {
			run: cmdWriteAP, args: 2, usage: "addr value",
			help: "write an AP register of the selected bank",
		},
		"read_ap_csw": {run: cmdReadCSW, help: "read and decode the MEM-AP CSW"},
		"read_tar":    {run: cmdReadTAR, help: "read the MEM-AP TAR"},
		"write_tar":   {run: cmdWriteTAR, args: 1, usage: "addr", help: "write the MEM-AP TAR"},
		"read_drw":    {run: cmdReadDRW, help: "read the MEM-AP DRW"},
		"write_drw":   {run: cmdWriteDRW, args: 1, usage: "value", help: "write the MEM-AP DRW"},
		"probe":       {run: cmdProbe, help: "identify the target and report its protection"},
		"unlock":      {run: cmdUnlock, help: "erase the whole device to clear APPROTECT"},
		"help":        {run: cmdHelp, help: "list commands"},
	}
}

func cmdLineReset(ctx context.Context, s *Shell, _ []uint32) error {
	return s.dev.LineReset(ctx)
}

func cmdSwitch(ctx context.Context, s *Shell, _ []uint32) error {
	return s.dev.SwitchToSWD(ctx)
}

func cmdAttach(ctx context.Context, s *Shell, _ []uint32) error {
	return s.dev.Attach(ctx, s.settle)
}

func cmdWriteSelect(ctx context.Context, s *Shell, args []uint32) error {
	if args[0] > 0xFF || args[1] > 0xF || args[2] > 0xF {
		return fmt.Errorf("%w: apsel must fit 8 bits and banks 4 bits", swd.ErrInvalidParameter)
	}
	return s.dev.WriteSelect(ctx, uint8(args[0]), uint8(args[1]), uint8(args[2]))
}

func cmdReadDPIDR(ctx context.Context, s *Shell, _ []uint32) error {
	v, err := s.dev.ReadDPIDR(ctx)
	if err != nil {
		return err
	}
	s.out.Register("IDCODE", v)
	d := swd.DecodeDPIDR(v)
	s.out.Printf("revision=0x%x partno=0x%x min=%t version=0x%x designer=0x%03x\n",
		d.Revision, d.PartNo, d.Min, d.Version, d.Designer)
	return nil
}

func cmdReadAPIDR(ctx context.Context, s *Shell, _ []uint32) error {
	v, err := s.dev.ReadAPIDR(ctx)
	if err != nil {
		return err
	}
	s.out.Register("IDR", v)
	s.out.Printf("%s\n", swd.DecodeAPIDR(v))
	return nil
}

func cmdWriteAbort(ctx context.Context, s *Shell, args []uint32) error {
	return s.dev.WriteAbort(ctx, swd.DecodeAbort(args[0]))
}

func cmdReadCtrlStat(ctx context.Context, s *Shell, _ []uint32) error {
	v, err := s.dev.ReadCtrlStat(ctx)
	if err != nil {
		return err
	}
	s.out.Register("CTRL/STAT", v)
	s.out.Verbose("%s", swd.DecodeCtrlStat(v))
	return nil
}

func cmdWriteCtrlStat(ctx context.Context, s *Shell, args []uint32) error {
	return s.dev.WriteCtrlStat(ctx, swd.DecodeCtrlStat(args[0]))
}

func cmdClearSticky(ctx context.Context, s *Shell, _ []uint32) error {
	return s.dev.ClearStickyErrors(ctx)
}

func cmdReadProtStatus(ctx context.Context, s *Shell, _ []uint32) error {
	return s.printRead(ctx, "APPROTECTSTATUS", s.dev.ReadProtectStatus)
}

func cmdReadEraseStatus(ctx context.Context, s *Shell, _ []uint32) error {
	return s.printRead(ctx, "ERASEALLSTATUS", s.dev.ReadEraseStatus)
}

func cmdEraseAll(ctx context.Context, s *Shell, _ []uint32) error {
	return s.dev.EraseAll(ctx)
}

func cmdDebugPower(ctx context.Context, s *Shell, args []uint32) error {
	if args[0] > 1 {
		return fmt.Errorf("%w: power must be 0 or 1", swd.ErrInvalidParameter)
	}
	return s.dev.SetDebugPower(ctx, args[0] == 1)
}

func apAddr(v uint32) (uint8, error) {
	if v > 0xFF || v%4 != 0 {
		return 0, fmt.Errorf("%w: AP address 0x%x must be a word offset below 0x100", swd.ErrInvalidParameter, v)
	}
	return uint8(v), nil
}

func cmdReadAP(ctx context.Context, s *Shell, args []uint32) error {
	addr, err := apAddr(args[0])
	if err != nil {
		return err
	}
	v, err := s.dev.ReadAP(ctx, addr)
	if err != nil {
		return err
	}
	s.out.Register(fmt.Sprintf("AP[0x%02x]", addr), v)
	return nil
}

func cmdWriteAP(ctx context.Context, s *Shell, args []uint32) error {
	addr, err := apAddr(args[0])
	if err != nil {
		return err
	}
	return s.dev.WriteAP(ctx, addr, args[1])
}

func cmdReadCSW(ctx context.Context, s *Shell, _ []uint32) error {
	v, err := s.dev.ReadCSW(ctx)
	if err != nil {
		return err
	}
	s.out.Register("CSW", v)
	s.out.Printf("%s\n", swd.DecodeCSW(v))
	return nil
}

func cmdReadTAR(ctx context.Context, s *Shell, _ []uint32) error {
	return s.printRead(ctx, "TAR", s.dev.ReadTAR)
}

func cmdWriteTAR(ctx context.Context, s *Shell, args []uint32) error {
	return s.dev.WriteTAR(ctx, args[0])
}

func cmdReadDRW(ctx context.Context, s *Shell, _ []uint32) error {
	return s.printRead(ctx, "DRW", s.dev.ReadDRW)
}

func cmdWriteDRW(ctx context.Context, s *Shell, args []uint32) error {
	return s.dev.WriteDRW(ctx, args[0])
}

func cmdProbe(ctx context.Context, s *Shell, _ []uint32) error {
	r, err := s.dev.Probe(ctx, s.target.CtrlAP)
	if err != nil {
		return err
	}
	s.out.Register("IDCODE", r.IDCode)
	s.out.Printf("%s\n", r.DPIDR)
	s.out.Register("CTRL/STAT", r.CtrlStatRaw)
	s.out.Register("CTRL-AP IDR", r.CtrlAPIDRRaw)
	if r.Unlocked() {
		s.out.OK("APPROTECT disabled")
	} else {
		s.out.Warning("APPROTECT enabled (status 0x%x), run unlock to erase the device", r.ProtectStatus)
	}
	return nil
}

func cmdUnlock(ctx context.Context, s *Shell, _ []uint32) error {
	cfg := flash.DefaultUnlockConfig()
	cfg.Target = s.target
	if err := flash.Unlock(ctx, s.dev.Engine(), cfg); err != nil {
		return err
	}
	s.out.OK("device erased and unlocked")
	return nil
}

func cmdHelp(_ context.Context, s *Shell, _ []uint32) error {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := commands[name]
		s.out.Printf("  %-32s %s\n", strings.TrimSpace(name+" "+c.usage), c.help)
	}
	s.out.Printf("  %-32s %s\n", "exit", "leave the shell")
	return nil
}
