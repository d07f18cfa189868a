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

// Package transport provides internal transport utilities
package transport

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrPollTimeout is returned when a polled condition does not hold in time
var ErrPollTimeout = errors.New("poll timed out")

// PollOperation reports a result and whether polling should continue.
// A non-nil error stops polling immediately.
type PollOperation[T any] func() (T, bool, error)

// PollConfig configures a polling loop
type PollConfig struct {
	Description string
	// Interval is the sleep between attempts. Zero spins.
	Interval time.Duration
	// Timeout bounds the whole loop. Zero polls until the operation is done
	// or the context ends.
	Timeout time.Duration
}

// Poll runs operation until it no longer asks to continue
func Poll[T any](ctx context.Context, config PollConfig, operation PollOperation[T]) (T, error) {
	var zero T
	var deadline time.Time
	if config.Timeout > 0 {
		deadline = time.Now().Add(config.Timeout)
	}

	for {
		result, again, err := operation()
		if err != nil {
			return zero, err
		}
		if !again {
			return result, nil
		}

		if !deadline.IsZero() && time.Now().After(deadline) {
			return result, fmt.Errorf("%w: %s after %v", ErrPollTimeout, config.Description, config.Timeout)
		}
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("%s: %w", config.Description, err)
		}
		if config.Interval > 0 {
			time.Sleep(config.Interval)
		}
	}
}

// WaitUntil polls cond until it returns true
func WaitUntil(ctx context.Context, config PollConfig, cond func() (bool, error)) error {
	_, err := Poll(ctx, config, func() (struct{}, bool, error) {
		done, err := cond()
		return struct{}{}, !done, err
	})
	return err
}
