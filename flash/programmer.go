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

// Package flash programs and verifies the flash of an SWD attached target.
//
// The Programmer runs a fixed sequence of states:
//
//	Reset -> SwitchToSWD -> ReadID -> PowerUp -> CheckProtection ->
//	SelectMemAP -> CheckCSW -> EraseAll -> WriteLoop -> VerifyLoop -> Done
//
// Any error other than a WAIT acknowledgement or a verify mismatch moves it
// to Aborted. The programmer never unlocks a protected device on its own;
// Unlock must be called explicitly.
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

// DefaultMaxMismatches is how many verify mismatches are tolerated before
// verification stops early
const DefaultMaxMismatches = 100

// Link is the engine surface the programmer drives. *swd.Engine implements it.
type Link interface {
	swd.Executor
	LineReset(ctx context.Context) error
	SwitchToSWD(ctx context.Context) error
}

// State is a step of the programming sequence
type State int

// Programming states in the order they run
const (
	StateIdle State = iota
	StateReset
	StateSwitchToSWD
	StateReadID
	StatePowerUp
	StateCheckProtection
	StateSelectMemAP
	StateCheckCSW
	StateEraseAll
	StateWriteLoop
	StateVerifyLoop
	StateDone
	StateAborted
)

var stateNames = [...]string{
	StateIdle:            "Idle",
	StateReset:           "Reset",
	StateSwitchToSWD:     "SwitchToSWD",
	StateReadID:          "ReadID",
	StatePowerUp:         "PowerUp",
	StateCheckProtection: "CheckProtection",
	StateSelectMemAP:     "SelectMemAP",
	StateCheckCSW:        "CheckCSW",
	StateEraseAll:        "EraseAll",
	StateWriteLoop:       "WriteLoop",
	StateVerifyLoop:      "VerifyLoop",
	StateDone:            "Done",
	StateAborted:         "Aborted",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// StateError reports the state in which the sequence aborted
type StateError struct {
	Err   error
	State State
	// Addr is the flash address being written or verified, when relevant
	Addr    uint32
	HasAddr bool
}

func (e *StateError) Error() string {
	if e.HasAddr {
		return fmt.Sprintf("%s at 0x%08x: %v", e.State, e.Addr, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.State, e.Err)
}

func (e *StateError) Unwrap() error {
	return e.Err
}

// Config controls a programming run
type Config struct {
	// Target defaults to NRF52832
	Target *Target
	// OnState is called on every state transition
	OnState func(State)
	// OnProgress is called after each word written or verified
	OnProgress func(state State, done, total int)
	// SettleDelay is the wait after the reset sequence
	SettleDelay time.Duration
	// ReadyTimeout bounds the wait for the NVMC after an erase. Zero waits forever.
	ReadyTimeout time.Duration
	// MaxMismatches stops verification once exceeded
	MaxMismatches int
	// MaxWaitRetries caps WAIT retries per word. Zero retries until the
	// target accepts or the context ends.
	MaxWaitRetries int
	// StrictVerify fails the run when any word mismatches
	StrictVerify bool
	// EnforceCSW aborts when the MEM-AP CSW is not set up for single 32-bit
	// transfers instead of only logging it
	EnforceCSW bool
}

// DefaultConfig returns the programming defaults for the NRF52832
func DefaultConfig() *Config {
	t := NRF52832
	return &Config{
		Target:        &t,
		SettleDelay:   swd.DefaultSettleDelay,
		ReadyTimeout:  5 * time.Second,
		MaxMismatches: DefaultMaxMismatches,
	}
}

// Report describes the outcome of a run
type Report struct {
	CtrlStat swd.CtrlStat
	DPIDR    swd.DPIDR
	CSW      swd.CSW
	// Mismatches lists the first verify mismatches by address
	Mismatches    []Mismatch
	IDCode        uint32
	NVMCConfig    uint32
	WordsWritten  int
	WordsVerified int
	WaitRetries   int
	Truncated     bool
}

// Mismatch is a word that read back differently from the image
type Mismatch struct {
	Addr     uint32
	Expected uint32
	Actual   uint32
}

// Warnings returns the non-fatal problems of the run joined into one error,
// or nil
func (r *Report) Warnings() error {
	var errs []error
	if r.Truncated {
		errs = append(errs, fmt.Errorf("%w: wrote %d words", swd.ErrFlashCapacityExceeded, r.WordsWritten))
	}
	if len(r.Mismatches) > 0 {
		errs = append(errs, fmt.Errorf("%w: %d words differ", swd.ErrVerifyMismatch, len(r.Mismatches)))
	}
	return errors.Join(errs...)
}

// Programmer writes an image to the flash of the target behind a Link
type Programmer struct {
	link   Link
	config *Config
	state  State
}

// NewProgrammer creates a programmer from a copy of config. A nil config
// selects DefaultConfig.
func NewProgrammer(link Link, config *Config) (*Programmer, error) {
	if link == nil {
		return nil, fmt.Errorf("%w: nil link", swd.ErrInvalidParameter)
	}
	if config == nil {
		config = DefaultConfig()
	}
	cfg := *config
	if cfg.Target == nil {
		t := NRF52832
		cfg.Target = &t
	}
	if err := cfg.Target.Validate(); err != nil {
		return nil, err
	}
	if cfg.MaxMismatches <= 0 {
		cfg.MaxMismatches = DefaultMaxMismatches
	}
	return &Programmer{link: link, config: &cfg}, nil
}

// State returns the current state
func (p *Programmer) State() State {
	return p.state
}

func (p *Programmer) enter(s State) {
	p.state = s
	glog.V(1).Infof("flash: %s", s)
	if p.config.OnState != nil {
		p.config.OnState(s)
	}
}

type step struct {
	run   func(ctx context.Context, img *Image, r *Report) error
	state State
}

// Run attaches to the target and programs img. The returned report is never
// nil and holds whatever was learned before an abort. Truncation and verify
// mismatches are reported through Report.Warnings, unless StrictVerify turns
// mismatches into an error. The caller owns the link and releases it.
func (p *Programmer) Run(ctx context.Context, img *Image) (*Report, error) {
	report := &Report{}
	steps := []step{
		{state: StateReset, run: p.reset},
		{state: StateSwitchToSWD, run: p.switchToSWD},
		{state: StateReadID, run: p.readID},
		{state: StatePowerUp, run: p.powerUp},
		{state: StateCheckProtection, run: p.checkProtection},
		{state: StateSelectMemAP, run: p.selectMemAP},
		{state: StateCheckCSW, run: p.checkCSW},
		{state: StateEraseAll, run: p.eraseAll},
		{state: StateWriteLoop, run: p.writeLoop},
		{state: StateVerifyLoop, run: p.verifyLoop},
	}

	for _, s := range steps {
		p.enter(s.state)
		if err := s.run(ctx, img, report); err != nil {
			var se *StateError
			if !errors.As(err, &se) {
				err = &StateError{State: s.state, Err: err}
			}
			glog.Errorf("flash aborted: %v", err)
			p.enter(StateAborted)
			return report, err
		}
	}

	if p.config.StrictVerify && len(report.Mismatches) > 0 {
		p.enter(StateAborted)
		return report, &StateError{State: StateVerifyLoop, Err: report.Warnings()}
	}
	p.enter(StateDone)
	return report, nil
}

func (p *Programmer) reset(ctx context.Context, _ *Image, _ *Report) error {
	return p.link.LineReset(ctx)
}

func (p *Programmer) switchToSWD(ctx context.Context, _ *Image, _ *Report) error {
	for _, fn := range []func(context.Context) error{p.link.SwitchToSWD, p.link.LineReset, p.link.LineReset} {
		if err := fn(ctx); err != nil {
			return err
		}
	}
	if p.config.SettleDelay <= 0 {
		return nil
	}
	timer := time.NewTimer(p.config.SettleDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (p *Programmer) readID(ctx context.Context, _ *Image, r *Report) error {
	pkt := swd.NewReadDPIDR()
	if err := p.link.Execute(ctx, pkt); err != nil {
		return fmt.Errorf("target not responding: %w", err)
	}
	r.IDCode = pkt.Data
	r.DPIDR = swd.DecodeDPIDR(pkt.Data)
	glog.Infof("IDCODE 0x%08x (%s)", r.IDCode, r.DPIDR)
	return nil
}

func (p *Programmer) powerUp(ctx context.Context, _ *Image, r *Report) error {
	cs, err := swd.PowerUpDebug(ctx, p.link, true)
	r.CtrlStat = cs
	return err
}

func (p *Programmer) checkProtection(ctx context.Context, _ *Image, _ *Report) error {
	if err := swd.SelectAP(ctx, p.link, p.config.Target.CtrlAP, 0); err != nil {
		return err
	}
	pkt := swd.NewReadProtectStatus()
	if err := swd.ReadAP(ctx, p.link, pkt); err != nil {
		return err
	}
	if pkt.Data != p.config.Target.UnlockedStatus {
		return fmt.Errorf("%w: APPROTECTSTATUS=0x%x, an explicit unlock (erase all) is required",
			swd.ErrProtectionLocked, pkt.Data)
	}
	return nil
}

func (p *Programmer) selectMemAP(ctx context.Context, _ *Image, _ *Report) error {
	return swd.SelectAP(ctx, p.link, p.config.Target.MemAP, 0)
}

func (p *Programmer) checkCSW(ctx context.Context, _ *Image, r *Report) error {
	pkt := swd.NewReadCSW()
	if err := swd.ReadAP(ctx, p.link, pkt); err != nil {
		return err
	}
	r.CSW = swd.DecodeCSW(pkt.Data)

	var problems []error
	if r.CSW.Size != swd.CSWSize32 {
		problems = append(problems, fmt.Errorf("transfer size %d is not 32-bit", r.CSW.Size))
	}
	if r.CSW.AddrInc != swd.CSWAddrIncOff {
		problems = append(problems, fmt.Errorf("address increment %d is enabled", r.CSW.AddrInc))
	}
	if r.CSW.TrInProg {
		problems = append(problems, errors.New("transfer in progress"))
	}
	if len(problems) == 0 {
		return nil
	}
	err := fmt.Errorf("%w: CSW=0x%08x: %w", swd.ErrCSWPrecondition, pkt.Data, errors.Join(problems...))
	if p.config.EnforceCSW {
		return err
	}
	glog.Warning(err)
	return nil
}

func (p *Programmer) eraseAll(ctx context.Context, _ *Image, _ *Report) error {
	t := p.config.Target
	if err := swd.WriteMem(ctx, p.link, t.nvmcConfig(), NVMCEraseEnable); err != nil {
		return fmt.Errorf("failed to enable erase: %w", err)
	}
	if err := swd.WriteMem(ctx, p.link, t.nvmcEraseAll(), 1); err != nil {
		return fmt.Errorf("failed to start erase: %w", err)
	}
	return p.waitReady(ctx)
}

func (p *Programmer) waitReady(ctx context.Context) error {
	cfg := transport.PollConfig{
		Description: "NVMC ready",
		Interval:    time.Millisecond,
		Timeout:     p.config.ReadyTimeout,
	}
	return transport.WaitUntil(ctx, cfg, func() (bool, error) {
		ready, err := swd.ReadMem(ctx, p.link, p.config.Target.nvmcReady())
		if errors.Is(err, swd.ErrAckWait) {
			return false, nil
		}
		return ready&1 != 0, err
	})
}

// retryWait repeats op while the target answers WAIT
func (p *Programmer) retryWait(ctx context.Context, r *Report, op func() error) error {
	for retries := 0; ; retries++ {
		err := op()
		if !errors.Is(err, swd.ErrAckWait) {
			return err
		}
		if p.config.MaxWaitRetries > 0 && retries >= p.config.MaxWaitRetries {
			return fmt.Errorf("gave up after %d retries: %w", retries, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Join(ctxErr, err)
		}
		r.WaitRetries++
	}
}

// errStop ends an image walk early without failing it
var errStop = errors.New("stop")

func (p *Programmer) writeLoop(ctx context.Context, img *Image, r *Report) error {
	t := p.config.Target
	if err := swd.WriteMem(ctx, p.link, t.nvmcConfig(), NVMCWriteEnable); err != nil {
		return fmt.Errorf("failed to enable writes: %w", err)
	}

	total, err := img.Words()
	if err != nil {
		return err
	}
	glog.Infof("writing %d words", total)

	err = img.Walk(func(addr, word uint32) error {
		if addr >= t.FlashSize {
			r.Truncated = true
			glog.Warningf("image does not fit in %d bytes of flash, stopping at 0x%08x", t.FlashSize, addr)
			return errStop
		}
		glog.V(3).Infof("write 0x%08x = 0x%08x", addr, word)
		err := p.retryWait(ctx, r, func() error {
			return swd.WriteMem(ctx, p.link, addr, word)
		})
		if err != nil {
			return &StateError{State: StateWriteLoop, Addr: addr, HasAddr: true, Err: err}
		}
		r.WordsWritten++
		if p.config.OnProgress != nil {
			p.config.OnProgress(StateWriteLoop, r.WordsWritten, total)
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return err
	}

	if r.NVMCConfig, err = swd.ReadMem(ctx, p.link, t.nvmcConfig()); err != nil {
		return fmt.Errorf("failed to read back NVMC CONFIG: %w", err)
	}
	glog.V(1).Infof("NVMC CONFIG = 0x%x after writing", r.NVMCConfig)
	return nil
}

func (p *Programmer) verifyLoop(ctx context.Context, img *Image, r *Report) error {
	if err := swd.WriteMem(ctx, p.link, p.config.Target.nvmcConfig(), NVMCReadOnly); err != nil {
		return fmt.Errorf("failed to restore read-only mode: %w", err)
	}

	limit := uint32(r.WordsWritten) * 4
	err := img.Walk(func(addr, want uint32) error {
		if addr >= limit {
			return errStop
		}
		var got uint32
		err := p.retryWait(ctx, r, func() error {
			var err error
			got, err = swd.ReadMem(ctx, p.link, addr)
			return err
		})
		if err != nil {
			return &StateError{State: StateVerifyLoop, Addr: addr, HasAddr: true, Err: err}
		}
		r.WordsVerified++
		if p.config.OnProgress != nil {
			p.config.OnProgress(StateVerifyLoop, r.WordsVerified, r.WordsWritten)
		}
		if got == want {
			return nil
		}

		glog.Warningf("flash mismatch at 0x%08x: read 0x%08x, expected 0x%08x", addr, got, want)
		r.Mismatches = append(r.Mismatches, Mismatch{Addr: addr, Expected: want, Actual: got})
		if len(r.Mismatches) > p.config.MaxMismatches {
			glog.Warningf("more than %d mismatches, stopping verification", p.config.MaxMismatches)
			return errStop
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return err
	}
	return nil
}
