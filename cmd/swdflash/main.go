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
	"github.com/spf13/pflag"
)

func main() {
	if code := run(os.Args[1:]); code != 0 {
		os.Exit(code)
	}
}

// run owns every resource of the process. All failures return through it so
// the deferred teardown always unmaps the hardware before exit.
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
	out := console.NewOutput(os.Stdout, opts.verbose, !opts.noColor)
	if err := flagenv.ParseFlagSet(fs, flagenv.Prefix); err != nil {
		out.Error("%v", err)
		return 2
	}
	_ = flag.CommandLine.Parse(nil)

	if opts.image == "" && fs.NArg() == 1 {
		opts.image = fs.Arg(0)
	}
	if opts.image == "" && !opts.probeOnly && !opts.unlock {
		out.Error("no image given, use --image or a positional argument")
		return 2
	}

	target, err := resolveTarget(opts.targetName, opts.targetFile)
	if err != nil {
		out.Error("%v", err)
		return 1
	}

	var img *flash.Image
	if opts.image != "" {
		if img, err = flash.OpenImage(opts.image, target.FlashSize); err != nil {
			out.Error("%v", err)
			return 1
		}
		defer func() { _ = img.Close() }()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tr, err := auxspi.Open(spiConfig)
	if err != nil {
		out.Error("%v", err)
		return 1
	}
	defer func() {
		if err := tr.Close(); err != nil {
			out.Error("%v", err)
		}
	}()

	if err := execute(ctx, out, tr, img, target, opts); err != nil {
		out.Error("%v", err)
		return 1
	}
	return 0
}

type options struct {
	image          string
	targetName     string
	targetFile     string
	settle         time.Duration
	maxMismatches  int
	maxWaitRetries int
	strictVerify   bool
	enforceCSW     bool
	unlock         bool
	probeOnly      bool
	verbose        bool
	noColor        bool
}

func defaultOptions() *options {
	return &options{
		targetName:    "nrf52832",
		settle:        swd.DefaultSettleDelay,
		maxMismatches: flash.DefaultMaxMismatches,
	}
}

func newFlagSet(o *options, spi *auxspi.Config) *pflag.FlagSet {
	fs := pflag.NewFlagSet("swdflash", pflag.ContinueOnError)
	fs.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "usage: swdflash [flags] [image.bin|image.hex]\n")
		fs.PrintDefaults()
	}
	fs.StringVarP(&o.image, "image", "i", o.image, "firmware image, raw little-endian words or Intel HEX")
	fs.StringVarP(&o.targetName, "target", "t", o.targetName, "built-in target profile")
	fs.StringVar(&o.targetFile, "target-file", o.targetFile, "YAML target profile, overrides --target")
	fs.DurationVar(&o.settle, "settle", o.settle, "wait after the attach sequence")
	fs.IntVar(&o.maxMismatches, "max-mismatches", o.maxMismatches, "stop verifying after this many mismatches")
	fs.IntVar(&o.maxWaitRetries, "max-wait-retries", o.maxWaitRetries, "WAIT retries per word, 0 retries forever")
	fs.BoolVar(&o.strictVerify, "strict-verify", o.strictVerify, "fail when any word does not verify")
	fs.BoolVar(&o.enforceCSW, "enforce-csw", o.enforceCSW, "fail when the MEM-AP CSW is not set up for 32-bit transfers")
	fs.BoolVar(&o.unlock, "unlock", o.unlock, "erase the whole device to clear APPROTECT before flashing")
	fs.BoolVar(&o.probeOnly, "probe", o.probeOnly, "only identify the target")
	fs.BoolVar(&o.verbose, "verbose", o.verbose, "print progress")
	fs.BoolVar(&o.noColor, "no-color", o.noColor, "disable colored output")
	flagenv.FrequencyVar(fs, &spi.Frequency, "spi-freq", spi.Frequency, "SWCLK frequency")
	fs.DurationVar(&spi.BusyTimeout, "busy-timeout", spi.BusyTimeout, "longest wait for the SPI shifter")
	fs.AddGoFlagSet(flag.CommandLine)
	return fs
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
