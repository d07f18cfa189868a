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
	"slices"
	"sync"
)

// MockTransport records every exchanged batch and answers through ExchangeFunc.
// Without an ExchangeFunc every received word is zero.
type MockTransport struct {
	ExchangeFunc func(b *Batch) error
	exchanges    [][]Slot
	mu           sync.Mutex
	closed       bool
}

// NewMockTransport creates a new mock transport
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

// NewMockTransportWithFunc creates a mock transport answering through fn
func NewMockTransportWithFunc(fn func(b *Batch) error) *MockTransport {
	return &MockTransport{ExchangeFunc: fn}
}

// Exchange records b and fills its received words
func (m *MockTransport) Exchange(b *Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrTransportClosed
	}
	var err error
	if m.ExchangeFunc != nil {
		err = m.ExchangeFunc(b)
	}
	m.exchanges = append(m.exchanges, slices.Clone(b.Slots()))
	return err
}

// Exchanges returns a copy of every batch seen so far, after its received
// words were filled in
func (m *MockTransport) Exchanges() [][]Slot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.exchanges)
}

// CallCount returns the number of exchanges
func (m *MockTransport) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.exchanges)
}

// Close marks the transport closed
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// IsClosed reports whether Close was called
func (m *MockTransport) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Type returns TransportMock
func (*MockTransport) Type() TransportType {
	return TransportMock
}
