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

/*
Package swd provides a pure Go implementation of the ARM Serial Wire Debug
protocol for hosts that have no SWD peripheral but do have a synchronous
shift register, such as the auxiliary SPI block of the BCM283x.

The package is layered leaves first:

  - Transport: moves a Batch of up to four words of at most 24 bits each
  - Codec: header, parity and ACK encoding
  - Register model: decode and encode helpers for DP and AP registers
  - Engine: drives one complete DP/AP register transaction
  - Device: the single-shot command surface used by interactive tools

Flash programming is built on top of the engine in the flash subpackage.

Basic Usage:

	import (
	    "github.com/ZaparooProject/go-swd"
	    "github.com/ZaparooProject/go-swd/transport/auxspi"
	)

	transport, err := auxspi.Open(auxspi.DefaultConfig())
	if err != nil {
	    return err
	}

	device, err := swd.New(transport)
	if err != nil {
	    return err
	}
	defer device.Close()

	if err := device.Attach(ctx, swd.DefaultSettleDelay); err != nil {
	    return err
	}
	report, err := device.Probe(ctx, swd.APSelCtrlAP)

Access Port Reads:

AP reads are posted. The value returned by an AP read is the result of the
previous AP access, so every AP register read is issued twice. Engine.ReadAP
and the Device helpers do this; Engine.Execute never does.

Error Handling:

Every transaction returns a *TransactionError wrapping one of the protocol
sentinels:

	if errors.Is(err, swd.ErrAckWait) {
	    // the target is busy, repeat the same transaction
	}
	if errors.Is(err, swd.ErrAckFault) {
	    // sticky error set, clear it through ABORT before continuing
	}

WAIT is an expected outcome and is never retried by the engine itself.

Thread Safety:

The wire protocol is strictly sequential. Engine and Device are not safe for
concurrent use.
*/
package swd
