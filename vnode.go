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
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/net/context"
)

// A 64-bit number uniquely identifying an inode within its file system.
// File systems may mint inode IDs with any value except zero, which is
// reserved as "no inode".
type InodeID uint64

// The inode ID conventionally used by drivers for the root directory of a
// file system.
const RootInodeID = 1

// Stat is the record filled in by the Stat vnode operation.
type Stat struct {
	Ino   InodeID
	Mode  os.FileMode
	Nlink uint32
	Size  int64

	// The device ID for character and block special files; zero otherwise.
	Rdev DevID

	// Time information. See `man 2 stat`.
	Atime time.Time
	Mtime time.Time
	Ctime time.Time
}

// FileSystem is the contract between this layer and a concrete file system
// driver, seen from the vnode lifecycle side. The driver mints vnodes (with
// NewVnode) when it first hands out a handle for an inode, and is told via
// Forget when the last reference to one of its vnodes is dropped, at which
// point it is free to reclaim the handle.
type FileSystem interface {
	// Called exactly once per minted vnode, when its reference count reaches
	// zero. The vnode must not be handed out again afterward; a later lookup
	// of the same inode mints a fresh vnode.
	Forget(vn *Vnode)
}

////////////////////////////////////////////////////////////////////////
// Vnode operations
////////////////////////////////////////////////////////////////////////

// VnodeOps is the base contract every vnode supports. The remaining
// operations are optional capabilities: callers type-assert to the narrower
// interfaces below before invoking, and report ENOTDIR or EISDIR when the
// assertion fails.
//
// Reference discipline: every operation that returns a vnode returns it
// with its reference count incremented; the caller owns that reference and
// releases it with DecRef.
//
// Any of these operations may block on device I/O; the kernel's cooperative
// scheduler may run other threads while one is suspended.
type VnodeOps interface {
	// Fill in st for the given vnode.
	Stat(ctx context.Context, vn *Vnode, st *Stat) error
}

// DirOps is implemented by vnodes that act as directories. A vnode whose
// ops do not implement DirOps used in a directory position yields ENOTDIR.
type DirOps interface {
	VnodeOps

	// Look up the child with the given name. Returns ENOENT if absent.
	Lookup(ctx context.Context, dir *Vnode, name string) (*Vnode, error)

	// Create a child directory. Must fail with EEXIST if the name exists.
	MkDir(ctx context.Context, dir *Vnode, name string) error

	// Create a device special file. mode carries the char- or block-special
	// type bits; dev identifies the device.
	MkNod(ctx context.Context, dir *Vnode, name string, mode os.FileMode, dev DevID) error

	// Remove the child directory with the given name. Returns ENOENT if
	// absent, ENOTDIR if not a directory, ENOTEMPTY if not empty.
	RmDir(ctx context.Context, dir *Vnode, name string) error

	// Remove the non-directory child with the given name. Returns ENOENT if
	// absent, EISDIR for a directory.
	Unlink(ctx context.Context, dir *Vnode, name string) error

	// Link src into dir under the given name. Returns EEXIST if the name
	// exists, EXDEV if src belongs to another file system.
	Link(ctx context.Context, src *Vnode, dir *Vnode, name string) error

	// Produce the entry at the given position into d, returning the number
	// of position units consumed. Returns 0 at end of directory. The unit is
	// chosen by the driver; callers advance their cursor by the returned
	// count and never interpret it.
	ReadDir(ctx context.Context, dir *Vnode, pos int64, d *Dirent) (int, error)
}

// Creator is implemented by directory vnodes that support creating regular
// files. It is asserted separately from DirOps because read-only drivers
// may resolve names without supporting creation.
type Creator interface {
	// Create a regular file with the given name and return its vnode. Called
	// only after a lookup of the name returned ENOENT.
	Create(ctx context.Context, dir *Vnode, name string) (*Vnode, error)
}

// FileOps is implemented by vnodes whose bytes can be read and written:
// regular files and device special files. A vnode without FileOps passed to
// read or write yields EISDIR.
type FileOps interface {
	VnodeOps

	// Read up to len(p) bytes starting at off. Returns the number of bytes
	// copied; 0 means end of file.
	ReadAt(ctx context.Context, vn *Vnode, p []byte, off int64) (int, error)

	// Write len(p) bytes starting at off, extending the file as needed.
	// Returns the number of bytes written.
	WriteAt(ctx context.Context, vn *Vnode, p []byte, off int64) (int, error)
}

// Truncater is implemented by file vnodes that support truncation on open.
type Truncater interface {
	Truncate(ctx context.Context, vn *Vnode, size int64) error
}

////////////////////////////////////////////////////////////////////////
// Vnode
////////////////////////////////////////////////////////////////////////

// A Vnode is the in-memory handle for one inode: the unit of polymorphism
// and reference counting in this layer. Vnodes are minted by file system
// drivers and stay alive exactly as long as some file object, cwd slot, or
// in-flight resolver frame holds a reference.
type Vnode struct {
	/////////////////////////
	// Constant data
	/////////////////////////

	// The driver that minted this vnode.
	fs FileSystem

	// Identity of the inode within fs.
	ino InodeID

	// File type and permission bits. Immutable for the vnode's lifetime.
	mode os.FileMode

	// Device ID for special files; zero otherwise.
	rdev DevID

	// The vtable.
	ops VnodeOps

	/////////////////////////
	// Mutable state
	/////////////////////////

	mu sync.Mutex

	// INVARIANT: refCount >= 0
	refCount int // GUARDED_BY(mu)

	// The driver-maintained length of the file in bytes, kept current by the
	// driver on writes and truncation.
	length int64 // GUARDED_BY(mu)
}

// NewVnode mints a vnode for the given inode with a reference count of one,
// owned by the caller.
func NewVnode(
	fs FileSystem,
	ino InodeID,
	mode os.FileMode,
	rdev DevID,
	ops VnodeOps) *Vnode {
	return &Vnode{
		fs:       fs,
		ino:      ino,
		mode:     mode,
		rdev:     rdev,
		ops:      ops,
		refCount: 1,
	}
}

func (vn *Vnode) FS() FileSystem { return vn.fs }

func (vn *Vnode) Ino() InodeID { return vn.ino }

func (vn *Vnode) Mode() os.FileMode { return vn.mode }

func (vn *Vnode) Rdev() DevID { return vn.rdev }

func (vn *Vnode) Ops() VnodeOps { return vn.ops }

func (vn *Vnode) IsDir() bool {
	return vn.mode&os.ModeDir != 0
}

func (vn *Vnode) IsCharDevice() bool {
	return vn.mode&os.ModeCharDevice != 0
}

func (vn *Vnode) IsBlockDevice() bool {
	return vn.mode&os.ModeDevice != 0 && vn.mode&os.ModeCharDevice == 0
}

func (vn *Vnode) IsRegular() bool {
	return vn.mode&os.ModeType == 0
}

// Len returns the driver-maintained length of the file in bytes.
func (vn *Vnode) Len() int64 {
	vn.mu.Lock()
	defer vn.mu.Unlock()

	return vn.length
}

// SetLen updates the cached length. For use by the owning driver only.
func (vn *Vnode) SetLen(n int64) {
	vn.mu.Lock()
	defer vn.mu.Unlock()

	vn.length = n
}

// IncRef acquires a reference. The caller must already hold one; handles
// whose count has reached zero belong to the driver and must not be
// resurrected.
func (vn *Vnode) IncRef() {
	vn.mu.Lock()
	defer vn.mu.Unlock()

	if vn.refCount <= 0 {
		panic(fmt.Sprintf("IncRef on released vnode %d", vn.ino))
	}

	vn.refCount++
}

// DecRef releases one reference. When the count reaches zero the owning
// driver's Forget is invoked and the handle must not be used again.
func (vn *Vnode) DecRef() {
	vn.mu.Lock()

	if vn.refCount <= 0 {
		panic(fmt.Sprintf("DecRef on released vnode %d", vn.ino))
	}

	vn.refCount--
	dead := vn.refCount == 0
	vn.mu.Unlock()

	if dead {
		vn.fs.Forget(vn)
	}
}

// RefCount returns the current reference count. Intended for driver
// invariant checks and tests.
func (vn *Vnode) RefCount() int {
	vn.mu.Lock()
	defer vn.mu.Unlock()

	return vn.refCount
}
