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
	"errors"

	swd "github.com/ZaparooProject/go-swd"
	"github.com/ZaparooProject/go-swd/flash"
	"github.com/ZaparooProject/go-swd/internal/console"
)

// execute probes, optionally unlocks, and flashes img through tr. It never
// closes tr.
func execute(ctx context.Context, out *console.Output, tr swd.Transport, img *flash.Image,
	target *flash.Target, o *options,
) error {
	dev, err := swd.New(tr, swd.WithRetryConfig(swd.DefaultRetryConfig()))
	if err != nil {
		return err
	}

	if o.probeOnly || o.unlock {
		if err := probe(ctx, out, dev, target, o); err != nil {
			return err
		}
	}
	if img == nil {
		return nil
	}

	cfg := flash.DefaultConfig()
	cfg.Target = target
	cfg.SettleDelay = o.settle
	cfg.MaxMismatches = o.maxMismatches
	cfg.MaxWaitRetries = o.maxWaitRetries
	cfg.StrictVerify = o.strictVerify
	cfg.EnforceCSW = o.enforceCSW
	cfg.OnState = func(s flash.State) {
		out.Verbose("%s", s)
	}
	cfg.OnProgress = progressPrinter(out, o.verbose)

	p, err := flash.NewProgrammer(dev.Engine(), cfg)
	if err != nil {
		return err
	}
	report, err := p.Run(ctx, img)
	if err != nil {
		if errors.Is(err, swd.ErrProtectionLocked) {
			out.Warning("run again with --unlock to erase the device")
		}
		return err
	}

	out.Info("IDCODE 0x%08x, %s", report.IDCode, report.DPIDR)
	if warn := report.Warnings(); warn != nil {
		out.Warning("%v", warn)
		for _, m := range report.Mismatches {
			out.Verbose("0x%08x: read 0x%08x, expected 0x%08x", m.Addr, m.Actual, m.Expected)
		}
	}
	out.OK("wrote %d words, verified %d", report.WordsWritten, report.WordsVerified)
	return nil
}

func probe(ctx context.Context, out *console.Output, dev *swd.Device, target *flash.Target, o *options) error {
	if err := dev.Attach(ctx, o.settle); err != nil {
		return err
	}
	report, err := dev.Probe(ctx, target.CtrlAP)
	if err != nil {
		return err
	}
	out.Info("IDCODE 0x%08x, %s", report.IDCode, report.DPIDR)
	out.Info("CTRL-AP %s", report.CtrlAPIDR)
	if report.Unlocked() {
		out.OK("APPROTECT disabled")
		return nil
	}
	if !o.unlock {
		out.Warning("APPROTECT enabled, flashing requires --unlock")
		return nil
	}

	out.Warning("erasing the whole device to clear APPROTECT")
	cfg := flash.DefaultUnlockConfig()
	cfg.Target = target
	if err := flash.Unlock(ctx, dev.Engine(), cfg); err != nil {
		return err
	}
	out.OK("device unlocked")
	return nil
}

func progressPrinter(out *console.Output, verbose bool) func(flash.State, int, int) {
	if !verbose {
		return nil
	}
	last := -1
	return func(s flash.State, done, total int) {
		if total == 0 {
			return
		}
		pct := done * 100 / total
		if pct/10 != last/10 || done == total {
			last = pct
			out.Verbose("%s %3d%% (%d/%d)", s, pct, done, total)
		}
	}
}
