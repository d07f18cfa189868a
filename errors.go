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
	"errors"
	"fmt"
)

// Transport errors
var (
	ErrTransportCapacity = errors.New("transport FIFO has insufficient space")
	ErrTransportClosed   = errors.New("transport closed")
	ErrHardwareAccess    = errors.New("hardware access failed")
	ErrInvalidParameter  = errors.New("invalid parameter")
)

// Protocol errors
var (
	ErrAckWait        = errors.New("target responded WAIT")
	ErrAckFault       = errors.New("target responded FAULT")
	ErrAckUnknown     = errors.New("target responded with an unknown ACK")
	ErrParityMismatch = errors.New("read data parity mismatch")
)

// Target state errors
var (
	ErrStickyError           = errors.New("sticky error flags set in CTRL/STAT")
	ErrPowerUpTimeout        = errors.New("debug power-up not acknowledged")
	ErrProtectionLocked      = errors.New("flash access port protection is enabled")
	ErrCSWPrecondition       = errors.New("MEM-AP CSW precondition not met")
	ErrFlashCapacityExceeded = errors.New("image exceeds flash capacity")
	ErrVerifyMismatch        = errors.New("flash contents differ from image")
)

// ErrorType classifies an error by how a caller is expected to react to it.
type ErrorType int

const (
	// ErrorTypePermanent errors end the current operation.
	ErrorTypePermanent ErrorType = iota
	// ErrorTypeTransient errors may succeed when the same operation is repeated.
	ErrorTypeTransient
	// ErrorTypeProtocol errors are anomalies reported by the SWD target itself.
	ErrorTypeProtocol
	// ErrorTypeWarning errors describe a partial result rather than a failure.
	ErrorTypeWarning
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypePermanent:
		return "permanent"
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeProtocol:
		return "protocol"
	case ErrorTypeWarning:
		return "warning"
	default:
		return fmt.Sprintf("ErrorType(%d)", int(t))
	}
}

// TransportError wraps a failure of the bit transport
type TransportError struct {
	Err       error
	Op        string
	Type      ErrorType
	Retryable bool
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError creates a transport error, retryable when errType is transient
func NewTransportError(op string, err error, errType ErrorType) *TransportError {
	return &TransportError{
		Op:        op,
		Err:       err,
		Type:      errType,
		Retryable: errType == ErrorTypeTransient,
	}
}

// NewCapacityError reports that a batch of n words does not fit the free FIFO space
func NewCapacityError(op string, n, txFree, rxFree int) *TransportError {
	return NewTransportError(op,
		fmt.Errorf("%w: %d words queued, %d TX and %d RX slots free", ErrTransportCapacity, n, txFree, rxFree),
		ErrorTypeTransient)
}

// TransactionError describes a failed DP/AP register access
type TransactionError struct {
	Err    error
	Op     string
	Header Header
	Data   uint32
	Ack    uint8
}

func (e *TransactionError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Header, e.Err)
	}
	return fmt.Sprintf("%s (%s): %v", e.Op, e.Header, e.Err)
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether repeating the failed operation unchanged can succeed.
// Only FIFO capacity errors and WAIT acknowledgements qualify.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable
	}
	return errors.Is(err, ErrTransportCapacity) || errors.Is(err, ErrAckWait)
}

// GetErrorType returns the classification of err
func GetErrorType(err error) ErrorType {
	var te *TransportError
	switch {
	case err == nil:
		return ErrorTypePermanent
	case errors.As(err, &te):
		return te.Type
	case errors.Is(err, ErrAckWait):
		return ErrorTypeTransient
	case errors.Is(err, ErrAckFault), errors.Is(err, ErrAckUnknown), errors.Is(err, ErrParityMismatch):
		return ErrorTypeProtocol
	case errors.Is(err, ErrFlashCapacityExceeded), errors.Is(err, ErrVerifyMismatch):
		return ErrorTypeWarning
	default:
		return ErrorTypePermanent
	}
}
