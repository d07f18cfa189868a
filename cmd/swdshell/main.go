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
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	swd "github.com/ZaparooProject/go-swd"
	"github.com/ZaparooProject/go-swd/flash"
	"github.com/ZaparooProject/go-swd/internal/console"
	"github.com/ZaparooProject/go-swd/internal/flagenv"
	"github.com/ZaparooProject/go-swd/transport/auxspi"
	"github.com/golang/glog"
	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"
)

func main() {
	if code := run(os.Args[1:]); code != 0 {
		os.Exit(code)
	}
}

type options struct {
	targetName string
	targetFile string
	script     string
	settle     time.Duration
	noColor    bool
	verbose    bool
}

func defaultOptions() *options {
	return &options{
		targetName: "nrf52832",
		settle:     swd.DefaultSettleDelay,
	}
}

func newFlagSet(o *options, spi *auxspi.Config) *pflag.FlagSet {
	fs := pflag.NewFlagSet("swdshell", pflag.ContinueOnError)
	fs.StringVar(&o.targetName, "target", o.targetName, "built-in target profile")
	fs.StringVar(&o.targetFile, "target-file", o.targetFile, "YAML target profile, overrides --target")
	fs.StringVar(&o.script, "script", o.script, "read commands from a file instead of standard input")
	fs.DurationVar(&o.settle, "settle", o.settle, "wait after the attach sequence")
	fs.BoolVar(&o.noColor, "no-color", o.noColor, "disable colored output")
	fs.BoolVar(&o.verbose, "verbose", o.verbose, "decode registers in command output")
	flagenv.FrequencyVar(fs, &spi.Frequency, "spi-freq", spi.Frequency, "SWCLK frequency")
	fs.AddGoFlagSet(flag.CommandLine)
	return fs
}

func run(args []string) int {
	defer glog.Flush()

	opts := defaultOptions()
	spiConfig := auxspi.DefaultConfig()
	fs := newFlagSet(opts, spiConfig)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	out := console.NewOutput(os.Stdout, opts.verbose, !opts.noColor && isatty.IsTerminal(os.Stdout.Fd()))
	if err := flagenv.ParseFlagSet(fs, flagenv.Prefix); err != nil {
		out.Error("%v", err)
		return 2
	}
	_ = flag.CommandLine.Parse(nil)

	target, err := resolveTarget(opts.targetName, opts.targetFile)
	if err != nil {
		out.Error("%v", err)
		return 1
	}

	input := os.Stdin
	prompt := "swd> "
	if opts.script != "" {
		f, err := os.Open(opts.script)
		if err != nil {
			out.Error("%v", err)
			return 1
		}
		defer func() { _ = f.Close() }()
		input, prompt = f, ""
	} else if !isatty.IsTerminal(os.Stdin.Fd()) {
		prompt = ""
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tr, err := auxspi.Open(spiConfig)
	if err != nil {
		out.Error("%v", err)
		return 1
	}
	dev, err := swd.New(tr, swd.WithRetryConfig(swd.DefaultRetryConfig()))
	if err != nil {
		_ = tr.Close()
		out.Error("%v", err)
		return 1
	}
	defer func() {
		if err := dev.Close(); err != nil {
			out.Error("%v", err)
		}
	}()

	sh := NewShell(dev, out, target, prompt)
	sh.settle = opts.settle
	if err := sh.Run(ctx, input); err != nil {
		out.Error("%v", err)
		return 1
	}
	return 0
}

func resolveTarget(name, file string) (*flash.Target, error) {
	if file != "" {
		return flash.LoadTarget(file)
	}
	t, err := flash.LookupTarget(name)
	if err != nil {
		return nil, fmt.Errorf("--target: %w", err)
	}
	return t, nil
}
