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

// Package flagenv fills command-line flags that were not given from
// environment variables
package flagenv

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/pflag"
	"periph.io/x/conn/v3/physic"
)

// Prefix is the environment variable prefix used by the swd tools
const Prefix = "SWD_"

// LookupFunc reports the value of an environment variable
type LookupFunc func(key string) (string, bool)

// ParseFlagSet sets every flag of fs that was not given on the command line
// from the environment variable named by the upper-cased flag name, with
// dashes turned into underscores, prefixed with envPrefix. Empty variables
// are ignored. It must be called after fs.Parse.
func ParseFlagSet(fs *pflag.FlagSet, envPrefix string) error {
	return ParseFlagSetWith(fs, envPrefix, os.LookupEnv)
}

// ParseFlagSetWith is ParseFlagSet with a custom environment lookup
func ParseFlagSetWith(fs *pflag.FlagSet, envPrefix string, lookup LookupFunc) error {
	// pflag cannot tell a defaulted flag from one never given, so collect
	// every flag and drop those the command line set.
	nonset := make(map[string]*pflag.Flag)
	fs.VisitAll(func(f *pflag.Flag) {
		nonset[f.Name] = f
	})
	fs.Visit(func(f *pflag.Flag) {
		delete(nonset, f.Name)
	})

	names := make([]string, 0, len(nonset))
	for name := range nonset {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		key := EnvName(name, envPrefix)
		value, ok := lookup(key)
		if !ok || value == "" {
			continue
		}
		if err := fs.Set(name, value); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}
	return nil
}

// EnvName returns the environment variable consulted for a flag
func EnvName(flagName, envPrefix string) string {
	return envPrefix + strings.ReplaceAll(strings.ToUpper(flagName), "-", "_")
}

// Frequency is a pflag.Value holding a clock rate such as "3MHz"
type Frequency struct {
	F *physic.Frequency
}

// FrequencyVar defines a frequency flag
func FrequencyVar(fs *pflag.FlagSet, p *physic.Frequency, name string, value physic.Frequency, usage string) {
	*p = value
	fs.Var(&Frequency{F: p}, name, usage)
}

func (f *Frequency) String() string {
	if f.F == nil {
		return ""
	}
	return f.F.String()
}

// Set parses s with physic.Frequency.Set
func (f *Frequency) Set(s string) error {
	return f.F.Set(s)
}

// Type implements pflag.Value
func (*Frequency) Type() string {
	return "frequency"
}
