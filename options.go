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

import "fmt"

// Option is a functional option for configuring an Engine
type Option func(*Engine) error

// WithRetryConfig retries exchanges that fail because the FIFOs are still full
func WithRetryConfig(config *RetryConfig) Option {
	return func(e *Engine) error {
		if tr, ok := e.transport.(*TransportWithRetry); ok {
			tr.SetRetryConfig(config)
			return nil
		}
		e.transport = NewTransportWithRetry(e.transport, config)
		return nil
	}
}

// WithIdleBits sets the number of idle cycles closing every transaction
func WithIdleBits(n uint8) Option {
	return func(e *Engine) error {
		if n < minIdleBits || n > MaxSlotBits {
			return fmt.Errorf("%w: idle bits %d outside [%d, %d]", ErrInvalidParameter, n, minIdleBits, MaxSlotBits)
		}
		e.idleBits = n
		return nil
	}
}
