// Copyright 2015 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package vfstesting

import (
	"sync"

	"github.com/minikernel/vfs"
	"golang.org/x/net/context"
)

// A ConsoleDevice is a character device that accumulates everything
// written to it, like a terminal with nobody typing: reads see end of
// file, writes always succeed and ignore the offset.
type ConsoleDevice struct {
	mu sync.Mutex

	contents []byte // GUARDED_BY(mu)
}

func (d *ConsoleDevice) ReadAt(
	ctx context.Context,
	p []byte,
	off int64) (int, error) {
	return 0, nil
}

func (d *ConsoleDevice) WriteAt(
	ctx context.Context,
	p []byte,
	off int64) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.contents = append(d.contents, p...)
	return len(p), nil
}

// Contents returns a copy of everything written so far.
func (d *ConsoleDevice) Contents() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]byte(nil), d.contents...)
}

// A NullDevice discards writes and offers nothing to read.
type NullDevice struct{}

func (NullDevice) ReadAt(
	ctx context.Context,
	p []byte,
	off int64) (int, error) {
	return 0, nil
}

func (NullDevice) WriteAt(
	ctx context.Context,
	p []byte,
	off int64) (int, error) {
	return len(p), nil
}

// A RAMDisk is a block device backed by a memory buffer.
type RAMDisk struct {
	blockSize int

	mu sync.Mutex

	// INVARIANT: len(data) == blockSize * block count
	data []byte // GUARDED_BY(mu)
}

func NewRAMDisk(blockSize, blocks int) *RAMDisk {
	return &RAMDisk{
		blockSize: blockSize,
		data:      make([]byte, blockSize*blocks),
	}
}

func (d *RAMDisk) BlockSize() int {
	return d.blockSize
}

func (d *RAMDisk) ReadBlock(
	ctx context.Context,
	p []byte,
	block int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	off := block * int64(d.blockSize)
	if block < 0 || off+int64(d.blockSize) > int64(len(d.data)) {
		return vfs.EINVAL
	}

	copy(p, d.data[off:off+int64(d.blockSize)])
	return nil
}

func (d *RAMDisk) WriteBlock(
	ctx context.Context,
	p []byte,
	block int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	off := block * int64(d.blockSize)
	if block < 0 || off+int64(d.blockSize) > int64(len(d.data)) {
		return vfs.EINVAL
	}

	copy(d.data[off:off+int64(d.blockSize)], p)
	return nil
}
