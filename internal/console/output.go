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

// Package console formats the user-facing output of the swd tools
package console

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Output handles consistent formatting of messages
type Output struct {
	w       io.Writer
	errorC  *color.Color
	warnC   *color.Color
	okC     *color.Color
	infoC   *color.Color
	verbose bool
}

// NewOutput creates an output handler writing to w. Colors are used only
// when colored is true and color output is not globally disabled.
func NewOutput(w io.Writer, verbose, colored bool) *Output {
	o := &Output{
		w:       w,
		verbose: verbose,
		errorC:  color.New(color.FgRed, color.Bold),
		warnC:   color.New(color.FgYellow),
		okC:     color.New(color.FgGreen),
		infoC:   color.New(color.FgCyan),
	}
	if !colored {
		for _, c := range []*color.Color{o.errorC, o.warnC, o.okC, o.infoC} {
			c.DisableColor()
		}
	}
	return o
}

func (o *Output) line(c *color.Color, tag, format string, args ...any) {
	_, _ = c.Fprint(o.w, tag)
	_, _ = fmt.Fprintf(o.w, " "+format+"\n", args...)
}

// Error prints an error message
func (o *Output) Error(format string, args ...any) {
	o.line(o.errorC, "ERROR:", format, args...)
}

// Warning prints a warning message
func (o *Output) Warning(format string, args ...any) {
	o.line(o.warnC, "WARNING:", format, args...)
}

// Info prints an info message
func (o *Output) Info(format string, args ...any) {
	o.line(o.infoC, "INFO:", format, args...)
}

// OK prints a success message
func (o *Output) OK(format string, args ...any) {
	o.line(o.okC, "OK:", format, args...)
}

// Printf prints without decoration
func (o *Output) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(o.w, format, args...)
}

// Verbose prints only if verbose mode is enabled
func (o *Output) Verbose(format string, args ...any) {
	if o.verbose {
		_, _ = fmt.Fprintf(o.w, format+"\n", args...)
	}
}

// Register prints a named 32-bit register value
func (o *Output) Register(name string, value uint32) {
	_, _ = fmt.Fprintf(o.w, "%s = 0x%08x\n", name, value)
}
