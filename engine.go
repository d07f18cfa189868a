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

package swd

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"
)

// Header phase framing: 8 header bits, a turnaround and three ACK bits, plus
// a second turnaround before the host drives write data.
const (
	headerPhasePad  = 0xF << 8
	headerPhaseBits = 12
	writeTurnaround = 1 << 12
	ackShift        = 9

	// DefaultIdleBits is the number of low clock cycles closing every transaction
	DefaultIdleBits = 16
	minIdleBits     = 8

	lineResetWord   = 0xFFFFFF
	jtagToSWDSwitch = 0xE79E

	// DefaultSettleDelay is how long Attach waits after the reset sequence
	DefaultSettleDelay = time.Second
)

// Executor runs single DP/AP register accesses
type Executor interface {
	Execute(ctx context.Context, p *Packet) error
}

// Engine drives complete SWD register transactions over a Transport
type Engine struct {
	transport Transport
	idleBits  uint8
}

// NewEngine creates an engine on top of transport
func NewEngine(transport Transport, opts ...Option) (*Engine, error) {
	if transport == nil {
		return nil, fmt.Errorf("%w: nil transport", ErrInvalidParameter)
	}
	e := &Engine{
		transport: transport,
		idleBits:  DefaultIdleBits,
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Transport returns the underlying transport
func (e *Engine) Transport() Transport {
	return e.transport
}

// Close closes the underlying transport
func (e *Engine) Close() error {
	if err := e.transport.Close(); err != nil {
		return fmt.Errorf("failed to close transport: %w", err)
	}
	return nil
}

// Execute performs one register access. On return p.Ack holds the received
// ACK; for reads p.Data and p.Parity hold the received word. A non-OK ACK or
// a parity failure is reported as a *TransactionError wrapping ErrAckWait,
// ErrAckFault, ErrAckUnknown or ErrParityMismatch. The data of a read that
// failed its parity check must not be trusted.
func (e *Engine) Execute(ctx context.Context, p *Packet) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var b Batch
	out := uint32(p.Header.Byte()) | headerPhasePad
	bits := uint8(headerPhaseBits)
	if !p.Header.RnW {
		out |= writeTurnaround
		bits++
	}
	if err := b.Add(out, bits); err != nil {
		return err
	}
	if err := e.transport.Exchange(&b); err != nil {
		return e.fail(p, err)
	}

	p.Ack = uint8(b.In(0)>>ackShift) & 0x7
	if status := p.Status(); status != AckOK {
		glog.V(4).Infof("%s: ack %s (0b%03b)", p.Name, status, p.Ack)
		return e.fail(p, status.Err())
	}

	b.Reset()
	if p.Header.RnW {
		_ = b.Add(0xFFFF, 16)
		_ = b.Add(0x1FFFF, 17)
	} else {
		_ = b.Add(p.Data&0xFFFF, 16)
		_ = b.Add(p.Data>>16|parityBit(p.Data)<<16, 17)
	}
	if err := b.Add(0, e.idleBits); err != nil {
		return err
	}
	if err := e.transport.Exchange(&b); err != nil {
		return e.fail(p, err)
	}

	if !p.Header.RnW {
		glog.V(4).Infof("%s <- 0x%08x", p.Name, p.Data)
		return nil
	}

	p.Data = b.In(0)&0xFFFF | (b.In(1)&0xFFFF)<<16
	p.Parity = uint8(b.In(1)>>16) & 1
	if uint32(p.Parity) != parityBit(p.Data) {
		glog.V(2).Infof("%s: parity mismatch data=0x%08x parity=%d", p.Name, p.Data, p.Parity)
		return e.fail(p, ErrParityMismatch)
	}
	glog.V(4).Infof("%s == 0x%08x", p.Name, p.Data)
	return nil
}

func (*Engine) fail(p *Packet, err error) error {
	return &TransactionError{
		Op:     p.Name,
		Header: p.Header,
		Data:   p.Data,
		Ack:    p.Ack,
		Err:    err,
	}
}

// ReadAP issues the same AP read twice so that p.Data holds the value of the
// register it names rather than the result of the previous AP access
func (e *Engine) ReadAP(ctx context.Context, p *Packet) error {
	return ReadAP(ctx, e, p)
}

// LineReset clocks 72 high cycles followed by 8 idle cycles
func (e *Engine) LineReset(ctx context.Context) error {
	return e.sequence(ctx, "line reset", 0, 8)
}

// SwitchToSWD clocks 72 high cycles followed by the JTAG-to-SWD select sequence
func (e *Engine) SwitchToSWD(ctx context.Context) error {
	return e.sequence(ctx, "jtag to swd", jtagToSWDSwitch, 16)
}

func (e *Engine) sequence(ctx context.Context, name string, tail uint32, tailBits uint8) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var b Batch
	for range 3 {
		_ = b.Add(lineResetWord, 24)
	}
	_ = b.Add(tail, tailBits)
	if err := e.transport.Exchange(&b); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	glog.V(4).Infof("%s sent", name)
	return nil
}

// Attach brings the target's debug port into SWD mode: reset, switch, then
// reset twice more, and finally waits settle for the target to come up
func (e *Engine) Attach(ctx context.Context, settle time.Duration) error {
	steps := []func(context.Context) error{e.LineReset, e.SwitchToSWD, e.LineReset, e.LineReset}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			return err
		}
	}
	if settle <= 0 {
		return nil
	}
	timer := time.NewTimer(settle)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
