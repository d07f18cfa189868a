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

// Package auxspi provides the SWD bit transport over the BCM283x auxiliary
// SPI1 shift register
package auxspi

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	swd "github.com/ZaparooProject/go-swd"
	"github.com/ZaparooProject/go-swd/internal/transport"
	"github.com/golang/glog"
	"periph.io/x/conn/v3/physic"
)

// Config configures the AUX SPI transport
type Config struct {
	// RangesPath is the device tree ranges property of the SoC bus
	RangesPath string
	// MemPath is the physical memory device
	MemPath string
	// MOSI, MISO and CLK name the GPIOs routed to SPI1
	MOSI string
	MISO string
	CLK  string
	// Frequency is the requested SWCLK rate
	Frequency physic.Frequency
	// CoreClock is the VPU clock feeding the SPI divider
	CoreClock physic.Frequency
	// PollInterval is the sleep between busy checks
	PollInterval time.Duration
	// BusyTimeout bounds each wait for the shifter to go idle. Zero waits forever.
	BusyTimeout time.Duration
	// DoutHold is the two-bit data out hold time
	DoutHold uint8
	// MSBFirst selects most significant bit first in both directions. SWD is
	// LSB first, so this is only useful for loopback testing.
	MSBFirst bool
}

// DefaultConfig returns a 3 MHz, LSB first configuration on GPIO19-21
func DefaultConfig() *Config {
	return &Config{
		RangesPath:   "/proc/device-tree/soc/ranges",
		MemPath:      "/dev/mem",
		MOSI:         "GPIO20",
		MISO:         "GPIO19",
		CLK:          "GPIO21",
		Frequency:    3 * physic.MegaHertz,
		CoreClock:    DefaultCoreClock,
		PollInterval: 10 * time.Microsecond,
		BusyTimeout:  100 * time.Millisecond,
	}
}

// Control returns the CNTL0/CNTL1 settings the configuration selects
func (c *Config) Control() Control {
	ctl := DefaultControl(SpeedForFrequency(c.CoreClock, c.Frequency))
	ctl.DoutHold = c.DoutHold & 0x3
	ctl.MSBOutFirst = c.MSBFirst
	ctl.MSBInFirst = c.MSBFirst
	return ctl
}

// Transport implements swd.Transport on the AUX SPI1 registers
type Transport struct {
	regs     RegisterBlock
	closer   io.Closer
	config   *Config
	closeErr error
	mu       sync.Mutex
	once     sync.Once
	closed   bool
}

// New enables SPI1 in regs and programs its control registers. regs must
// start at the AUX block.
func New(regs RegisterBlock, config *Config) (*Transport, error) {
	if regs == nil {
		return nil, fmt.Errorf("%w: nil register block", swd.ErrInvalidParameter)
	}
	if config == nil {
		config = DefaultConfig()
	}

	regs.Write32(RegEnable, regs.Read32(RegEnable)|EnableSPI1)
	ctl := config.Control()
	cntl0, cntl1 := ctl.Encode()
	regs.Write32(RegCNTL0, cntl0)
	regs.Write32(RegCNTL1, cntl1)
	glog.V(2).Infof("aux spi1: CNTL0=0x%08x CNTL1=0x%08x (%v)",
		cntl0, cntl1, FrequencyForSpeed(config.CoreClock, ctl.Speed))

	return &Transport{regs: regs, config: config}, nil
}

// Status reads and decodes STAT
func (t *Transport) Status() Status {
	return DecodeStatus(t.regs.Read32(RegSTAT))
}

// Exchange shifts every populated slot of b out in order and stores the
// words shifted in. It fails with a retryable capacity error when either FIFO
// lacks room for the whole batch.
func (t *Transport) Exchange(b *swd.Batch) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return swd.ErrTransportClosed
	}

	slots := b.Slots()
	if len(slots) == 0 {
		return nil
	}
	stat := t.Status()
	if len(slots) > stat.TxFree() || len(slots) > stat.RxFree() {
		return swd.NewCapacityError("Exchange", len(slots), stat.TxFree(), stat.RxFree())
	}

	if err := t.waitIdle(); err != nil {
		return err
	}
	for _, s := range slots {
		if s.Bits == 0 || s.Bits > MaxWordBits {
			return fmt.Errorf("%w: %d bit word", swd.ErrInvalidParameter, s.Bits)
		}
		t.regs.Write32(RegIO, ioWord(s.Out, s.Bits))
	}
	if err := t.waitIdle(); err != nil {
		return err
	}

	for i := range slots {
		in := t.regs.Read32(RegIO)
		if !t.config.MSBFirst {
			in >>= 32 - uint32(slots[i].Bits)
		}
		slots[i].In = in
		glog.V(5).Infof("aux spi1: out=0x%06x in=0x%06x bits=%d", slots[i].Out, in, slots[i].Bits)
	}
	return nil
}

func (t *Transport) waitIdle() error {
	cfg := transport.PollConfig{
		Description: "aux spi busy",
		Interval:    t.config.PollInterval,
		Timeout:     t.config.BusyTimeout,
	}
	err := transport.WaitUntil(context.Background(), cfg, func() (bool, error) {
		return !t.Status().Busy, nil
	})
	if err != nil {
		return swd.NewTransportError("Exchange", fmt.Errorf("%w: %w", swd.ErrHardwareAccess, err), swd.ErrorTypePermanent)
	}
	return nil
}

// Close disables SPI1 and releases the register mapping. It is safe to call
// more than once.
func (t *Transport) Close() error {
	t.once.Do(func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.closed = true
		t.regs.Write32(RegEnable, t.regs.Read32(RegEnable)&^EnableSPI1)
		if t.closer != nil {
			if err := t.closer.Close(); err != nil {
				t.closeErr = fmt.Errorf("failed to release registers: %w", err)
			}
		}
	})
	return t.closeErr
}

// Type returns the transport type
func (*Transport) Type() swd.TransportType {
	return swd.TransportAuxSPI
}
