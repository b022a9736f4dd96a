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

package vfs

import (
	"golang.org/x/net/context"
)

// DevID identifies a device within the kernel's device registries: a major
// number in the high 16 bits and a minor number in the low 16.
type DevID uint32

// MakeDevID packs a major and minor number into a DevID.
func MakeDevID(major, minor uint16) DevID {
	return DevID(major)<<16 | DevID(minor)
}

// Major returns the major number of the device ID.
func (d DevID) Major() uint16 {
	return uint16(d >> 16)
}

// Minor returns the minor number of the device ID.
func (d DevID) Minor() uint16 {
	return uint16(d & 0xffff)
}

// A ByteDevice is a character device driver: a positioned byte stream with
// no fixed length. Reads and writes may block.
type ByteDevice interface {
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	WriteAt(ctx context.Context, p []byte, off int64) (int, error)
}

// A BlockDevice is a block device driver: fixed-size blocks addressed by
// block number. Reads and writes may block.
type BlockDevice interface {
	BlockSize() int
	ReadBlock(ctx context.Context, p []byte, block int64) error
	WriteBlock(ctx context.Context, p []byte, block int64) error
}

////////////////////////////////////////////////////////////////////////
// Registries
////////////////////////////////////////////////////////////////////////

// RegisterByteDevice adds a character device to the registry. Returns
// EEXIST if the ID is taken.
func (v *VFS) RegisterByteDevice(id DevID, d ByteDevice) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.byteDevs[id]; ok {
		return EEXIST
	}

	v.byteDevs[id] = d
	return nil
}

// RegisterBlockDevice adds a block device to the registry. Returns EEXIST
// if the ID is taken.
func (v *VFS) RegisterBlockDevice(id DevID, d BlockDevice) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.blockDevs[id]; ok {
		return EEXIST
	}

	v.blockDevs[id] = d
	return nil
}

// LookupByteDevice finds a registered character device.
func (v *VFS) LookupByteDevice(id DevID) (ByteDevice, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	d, ok := v.byteDevs[id]
	return d, ok
}

// LookupBlockDevice finds a registered block device.
func (v *VFS) LookupBlockDevice(id DevID) (BlockDevice, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	d, ok := v.blockDevs[id]
	return d, ok
}
