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

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	swd "github.com/ZaparooProject/go-swd"
	"github.com/ZaparooProject/go-swd/flash"
	"github.com/ZaparooProject/go-swd/internal/console"
	"github.com/golang/glog"
	"github.com/mattn/go-shellwords"
)

// errExit is returned by Execute for the exit command
var errExit = errors.New("exit")

// Shell runs single-shot debug port commands against a device
type Shell struct {
	dev    *swd.Device
	out    *console.Output
	target *flash.Target
	prompt string
	settle time.Duration
}

// NewShell creates a shell. An empty prompt disables prompting.
func NewShell(dev *swd.Device, out *console.Output, target *flash.Target, prompt string) *Shell {
	return &Shell{
		dev:    dev,
		out:    out,
		target: target,
		prompt: prompt,
		settle: swd.DefaultSettleDelay,
	}
}

// Execute runs one line. Blank lines and lines starting with # do nothing.
func (s *Shell) Execute(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}

	words, err := shellwords.Parse(line)
	if err != nil {
		return fmt.Errorf("%w: %w", swd.ErrInvalidParameter, err)
	}
	if len(words) == 0 {
		return nil
	}

	name := words[0]
	switch name {
	case "exit", "quit":
		return errExit
	}
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("%s is not a valid command, try help", name)
	}
	if len(words)-1 != cmd.args {
		return fmt.Errorf("%s takes %d arguments, %d given (usage: %s %s)",
			name, cmd.args, len(words)-1, name, cmd.usage)
	}

	args := make([]uint32, cmd.args)
	for i, w := range words[1:] {
		v, err := strconv.ParseUint(w, 0, 32)
		if err != nil {
			return fmt.Errorf("%w: argument %d of %s: %w", swd.ErrInvalidParameter, i+1, name, err)
		}
		args[i] = uint32(v)
	}

	glog.V(1).Infof("shell: %s %v", name, args)
	return cmd.run(ctx, s, args)
}

// Run executes lines from r until end of input, the exit command or the
// context ends. Command errors are reported and do not stop the shell.
func (s *Shell) Run(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for {
		if s.prompt != "" {
			s.out.Printf("%s", s.prompt)
		}
		if !scanner.Scan() {
			if s.prompt != "" {
				s.out.Printf("\n")
			}
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		err := s.Execute(ctx, scanner.Text())
		switch {
		case errors.Is(err, errExit):
			return nil
		case errors.Is(err, context.Canceled):
			return err
		case err != nil:
			s.report(err)
		}
	}
}

func (s *Shell) printRead(ctx context.Context, name string, read func(context.Context) (uint32, error)) error {
	v, err := read(ctx)
	if err != nil {
		return err
	}
	s.out.Register(name, v)
	return nil
}

func (s *Shell) report(err error) {
	s.out.Error("%v", err)
	switch swd.GetErrorType(err) {
	case swd.ErrorTypeProtocol:
		if errors.Is(err, swd.ErrAckFault) {
			s.out.Warning("sticky error set, run clear_stickyerr")
		}
	case swd.ErrorTypeTransient:
		s.out.Warning("target busy, repeat the command")
	}
}
