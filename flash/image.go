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

package flash

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/glog"
	"github.com/marcinbor85/gohex"
)

// Image is a flash image: a stream of little-endian 32-bit words where word
// i belongs at address 4*i. A trailing partial word is ignored.
type Image struct {
	src    io.ReadSeeker
	closer io.Closer
}

// NewImage wraps a raw binary image
func NewImage(src io.ReadSeeker) *Image {
	return &Image{src: src}
}

// OpenImage opens a raw binary or, for .hex and .ihex files, an Intel HEX
// image. HEX data is laid out from address 0 with gaps filled with erased
// bytes; segments at or beyond flashSize are skipped.
func OpenImage(path string, flashSize uint32) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".hex", ".ihex":
		defer func() { _ = f.Close() }()
		data, err := decodeHex(f, flashSize)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return NewImage(bytes.NewReader(data)), nil
	}
	return &Image{src: f, closer: f}, nil
}

func decodeHex(r io.Reader, flashSize uint32) ([]byte, error) {
	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(r); err != nil {
		return nil, fmt.Errorf("failed to parse Intel HEX: %w", err)
	}

	var end uint32
	var segments []gohex.DataSegment
	for _, seg := range mem.GetDataSegments() {
		if seg.Address >= flashSize {
			glog.Warningf("skipping %d bytes at 0x%08x outside flash", len(seg.Data), seg.Address)
			continue
		}
		segments = append(segments, seg)
		end = max(end, seg.Address+uint32(len(seg.Data)))
	}
	if len(segments) == 0 {
		return nil, errors.New("no data inside flash")
	}

	data := bytes.Repeat([]byte{0xFF}, int(end+3)&^3)
	for _, seg := range segments {
		copy(data[seg.Address:], seg.Data)
	}
	return data, nil
}

// Words returns the number of whole words in the image
func (img *Image) Words() (int, error) {
	size, err := img.src.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("failed to size image: %w", err)
	}
	return int(size / 4), nil
}

// Walk calls fn for every whole word in address order, starting from the
// beginning of the image each time. It stops at the first error fn returns.
func (img *Image) Walk(fn func(addr, word uint32) error) error {
	if _, err := img.src.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind image: %w", err)
	}

	r := bufio.NewReader(img.src)
	var buf [4]byte
	for addr := uint32(0); ; addr += 4 {
		n, err := io.ReadFull(r, buf[:])
		switch {
		case errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, io.ErrUnexpectedEOF):
			glog.Warningf("ignoring %d trailing bytes at 0x%08x", n, addr)
			return nil
		case err != nil:
			return fmt.Errorf("failed to read image at 0x%08x: %w", addr, err)
		}
		if err := fn(addr, binary.LittleEndian.Uint32(buf[:])); err != nil {
			return err
		}
	}
}

// Close releases the file behind the image, if any
func (img *Image) Close() error {
	if img.closer == nil {
		return nil
	}
	return img.closer.Close()
}
