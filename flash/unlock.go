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
	"context"
	"errors"
	"fmt"
	"time"

	swd "github.com/ZaparooProject/go-swd"
	"github.com/ZaparooProject/go-swd/internal/transport"
	"github.com/golang/glog"
)

// UnlockConfig controls the CTRL-AP erase-all unlock
type UnlockConfig struct {
	Target       *Target
	PollInterval time.Duration
	// Timeout bounds the wait for the erase to finish. Zero waits forever.
	Timeout time.Duration
}

// DefaultUnlockConfig polls every 10ms for up to 15 seconds
func DefaultUnlockConfig() *UnlockConfig {
	t := NRF52832
	return &UnlockConfig{
		Target:       &t,
		PollInterval: 10 * time.Millisecond,
		Timeout:      15 * time.Second,
	}
}

// Unlock erases the whole device through the CTRL-AP, which also clears
// APPROTECT. All flash and UICR contents are lost. The link must be attached
// with debug power up. SELECT is left pointing at CTRL-AP bank 0.
func Unlock(ctx context.Context, link Link, config *UnlockConfig) error {
	if config == nil {
		config = DefaultUnlockConfig()
	}
	if config.Target == nil {
		t := NRF52832
		config.Target = &t
	}

	if err := swd.SelectAP(ctx, link, config.Target.CtrlAP, 0); err != nil {
		return err
	}
	glog.Info("starting CTRL-AP erase all")
	if err := link.Execute(ctx, swd.NewWriteEraseAll()); err != nil {
		return fmt.Errorf("failed to start erase all: %w", err)
	}

	poll := transport.PollConfig{
		Description: "erase all",
		Interval:    config.PollInterval,
		Timeout:     config.Timeout,
	}
	err := transport.WaitUntil(ctx, poll, func() (bool, error) {
		pkt := swd.NewReadEraseStatus()
		err := swd.ReadAP(ctx, link, pkt)
		if errors.Is(err, swd.ErrAckWait) {
			return false, nil
		}
		return err == nil && pkt.Data == 0, err
	})
	if err != nil {
		return err
	}

	pkt := swd.NewReadProtectStatus()
	if err := swd.ReadAP(ctx, link, pkt); err != nil {
		return err
	}
	if pkt.Data != config.Target.UnlockedStatus {
		return fmt.Errorf("%w: APPROTECTSTATUS=0x%x after erase all", swd.ErrProtectionLocked, pkt.Data)
	}
	glog.Info("device unlocked")
	return nil
}
