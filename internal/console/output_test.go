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

package console

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		print   func(o *Output)
		name    string
		want    string
		verbose bool
	}{
		{name: "error", print: func(o *Output) { o.Error("bad %d", 1) }, want: "ERROR: bad 1\n"},
		{name: "warning", print: func(o *Output) { o.Warning("hmm") }, want: "WARNING: hmm\n"},
		{name: "info", print: func(o *Output) { o.Info("x=%s", "y") }, want: "INFO: x=y\n"},
		{name: "ok", print: func(o *Output) { o.OK("done") }, want: "OK: done\n"},
		{name: "register", print: func(o *Output) { o.Register("DPIDR", 0x2BA01477) }, want: "DPIDR = 0x2ba01477\n"},
		{name: "verbose hidden", print: func(o *Output) { o.Verbose("detail") }, want: ""},
		{name: "verbose shown", print: func(o *Output) { o.Verbose("detail") }, want: "detail\n", verbose: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			tt.print(NewOutput(&buf, tt.verbose, false))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}
