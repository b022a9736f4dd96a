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

// Package ramfs implements an in-memory file system behind the vfs vnode
// contract: a flat inode table holding directories, regular files, and
// device special files, with hard-link accounting and offset-stable
// directory entries.
package ramfs

import (
	"fmt"
	"os"

	"github.com/jacobsa/syncutil"
	"github.com/jacobsa/timeutil"
	"github.com/minikernel/vfs"
)

// Devices is the view of the kernel's device registries the file system
// needs in order to serve reads and writes on device special files. It is
// implemented by *vfs.VFS.
type Devices interface {
	LookupByteDevice(vfs.DevID) (vfs.ByteDevice, bool)
	LookupBlockDevice(vfs.DevID) (vfs.BlockDevice, bool)
}

type FileSystem struct {
	/////////////////////////
	// Dependencies
	/////////////////////////

	clock timeutil.Clock

	// Consulted for device special file I/O. May be nil, in which case all
	// device file I/O fails with ENXIO.
	devs Devices

	/////////////////////////
	// Constant data
	/////////////////////////

	dirOps  *dirOps
	fileOps *fileOps
	devOps  *devOps

	/////////////////////////
	// Mutable state
	/////////////////////////

	// When acquiring this lock, the caller must hold no vnode locks.
	mu syncutil.InvariantMutex

	// The collection of inodes, indexed by inode number. Entry zero is
	// reserved and always nil.
	//
	// INVARIANT: len(inodes) > vfs.RootInodeID
	// INVARIANT: inodes[0] == nil
	// INVARIANT: inodes[vfs.RootInodeID] != nil
	// INVARIANT: inodes[vfs.RootInodeID].isDir()
	inodes []*inode // GUARDED_BY(mu)

	// Indices of nil entries of inodes above the root, available for reuse.
	//
	// INVARIANT: This is all and only indices i > vfs.RootInodeID of
	// 'inodes' such that inodes[i] == nil
	freeInodes []vfs.InodeID // GUARDED_BY(mu)

	// The vnodes currently on loan to the VFS layer, by inode number. An
	// entry is present exactly while its vnode's reference count is
	// positive; Forget removes it.
	//
	// INVARIANT: For all keys k, vnodes[k].Ino() == k
	// INVARIANT: For all keys k, inodes[k] != nil
	vnodes map[vfs.InodeID]*vfs.Vnode // GUARDED_BY(mu)
}

// New creates a file system containing an empty root directory. devs may be
// nil if no device special files will be used.
func New(clock timeutil.Clock, devs Devices) *FileSystem {
	fs := &FileSystem{
		clock:  clock,
		devs:   devs,
		inodes: make([]*inode, vfs.RootInodeID+1),
		vnodes: make(map[vfs.InodeID]*vfs.Vnode),
	}

	fs.dirOps = &dirOps{commonOps{fs}}
	fs.fileOps = &fileOps{commonOps{fs}}
	fs.devOps = &devOps{commonOps{fs}}

	// Set up the root directory, linked to itself by both "." and "..".
	root := newInode(clock, os.ModeDir|0755, 0)
	root.addEntry(".", vfs.RootInodeID)
	root.addEntry("..", vfs.RootInodeID)
	root.nlink = 2
	fs.inodes[vfs.RootInodeID] = root

	fs.mu = syncutil.NewInvariantMutex(fs.checkInvariants)

	return fs
}

// Root returns a vnode for the root directory, with a reference the caller
// owns. The first caller conventionally transfers it to vfs.SetRoot.
func (fs *FileSystem) Root() *vfs.Vnode {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	return fs.getVnodeLocked(vfs.RootInodeID)
}

// ActiveVnodes returns the number of vnodes currently on loan to the VFS
// layer. Intended for tests checking reference count balance.
func (fs *FileSystem) ActiveVnodes() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	return len(fs.vnodes)
}

// LiveInodes returns the number of allocated inodes, including the root.
// Intended for tests.
func (fs *FileSystem) LiveInodes() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	n := 0
	for _, in := range fs.inodes {
		if in != nil {
			n++
		}
	}

	return n
}

// CheckInvariants runs the file system's invariant checks unconditionally.
func (fs *FileSystem) CheckInvariants() {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.checkInvariants()
}

////////////////////////////////////////////////////////////////////////
// Helpers
////////////////////////////////////////////////////////////////////////

func (fs *FileSystem) checkInvariants() {
	// INVARIANT: len(inodes) > vfs.RootInodeID
	if len(fs.inodes) <= vfs.RootInodeID {
		panic(fmt.Sprintf("Unexpected inode table length: %d", len(fs.inodes)))
	}

	// INVARIANT: inodes[0] == nil
	if fs.inodes[0] != nil {
		panic("Non-nil inode for reserved ID 0")
	}

	// INVARIANT: inodes[vfs.RootInodeID] != nil
	// INVARIANT: inodes[vfs.RootInodeID].isDir()
	if fs.inodes[vfs.RootInodeID] == nil || !fs.inodes[vfs.RootInodeID].isDir() {
		panic("Root inode missing or not a directory.")
	}

	// Build the set of free IDs we expect.
	freeIDsEncountered := make(map[vfs.InodeID]struct{})
	for i := vfs.RootInodeID + 1; i < len(fs.inodes); i++ {
		if fs.inodes[i] == nil {
			freeIDsEncountered[vfs.InodeID(i)] = struct{}{}
		}
	}

	// INVARIANT: freeInodes matches the nil entries above the root.
	if len(fs.freeInodes) != len(freeIDsEncountered) {
		panic(fmt.Sprintf(
			"Length mismatch: %d vs. %d",
			len(fs.freeInodes),
			len(freeIDsEncountered)))
	}

	for _, id := range fs.freeInodes {
		if _, ok := freeIDsEncountered[id]; !ok {
			panic(fmt.Sprintf("Unexpected free inode ID: %d", id))
		}
	}

	// Check each inode.
	for i, in := range fs.inodes {
		if in == nil {
			continue
		}

		in.checkInvariants()

		// Directory entries must name live inodes.
		for _, e := range in.entries {
			if e.ino != 0 && fs.inodes[e.ino] == nil {
				panic(fmt.Sprintf("Entry %q of inode %d names a dead inode", e.name, i))
			}
		}
	}

	// INVARIANT: vnodes maps each key to a vnode for a live inode with a
	// matching ID.
	for ino, vn := range fs.vnodes {
		if vn.Ino() != ino {
			panic(fmt.Sprintf("Vnode ID mismatch: %d vs. %d", vn.Ino(), ino))
		}

		if fs.inodes[ino] == nil {
			panic(fmt.Sprintf("Vnode for dead inode %d", ino))
		}
	}
}

// Mint or revive the vnode for the given inode, returning it with a
// reference the caller owns.
//
// LOCKS_REQUIRED(fs.mu)
func (fs *FileSystem) getVnodeLocked(ino vfs.InodeID) *vfs.Vnode {
	if vn, ok := fs.vnodes[ino]; ok {
		vn.IncRef()
		return vn
	}

	in := fs.inodes[ino]

	var ops vfs.VnodeOps
	switch {
	case in.isDir():
		ops = fs.dirOps
	case in.isDevice():
		ops = fs.devOps
	default:
		ops = fs.fileOps
	}

	vn := vfs.NewVnode(fs, ino, in.mode, in.rdev, ops)
	vn.SetLen(int64(len(in.contents)))
	fs.vnodes[ino] = vn

	return vn
}

// Allocate an inode, reusing a free table slot if possible.
//
// LOCKS_REQUIRED(fs.mu)
func (fs *FileSystem) allocInodeLocked(
	mode os.FileMode,
	rdev vfs.DevID) (vfs.InodeID, *inode) {
	in := newInode(fs.clock, mode, rdev)

	if n := len(fs.freeInodes); n > 0 {
		ino := fs.freeInodes[n-1]
		fs.freeInodes = fs.freeInodes[:n-1]
		fs.inodes[ino] = in
		return ino, in
	}

	fs.inodes = append(fs.inodes, in)
	return vfs.InodeID(len(fs.inodes) - 1), in
}

// Reclaim the given inode's table slot.
//
// LOCKS_REQUIRED(fs.mu)
func (fs *FileSystem) freeInodeLocked(ino vfs.InodeID) {
	fs.inodes[ino] = nil
	fs.freeInodes = append(fs.freeInodes, ino)
}

// Reclaim the inode if nothing refers to it any more: no directory entry
// (nlink zero) and no vnode on loan.
//
// LOCKS_REQUIRED(fs.mu)
func (fs *FileSystem) maybeReapLocked(ino vfs.InodeID) {
	in := fs.inodes[ino]
	if in == nil || in.nlink > 0 {
		return
	}

	if _, ok := fs.vnodes[ino]; ok {
		return
	}

	fs.freeInodeLocked(ino)
}

////////////////////////////////////////////////////////////////////////
// vfs.FileSystem
////////////////////////////////////////////////////////////////////////

// Forget takes a dead vnode back from the VFS layer. If the inode's link
// count has meanwhile dropped to zero, its storage is reclaimed.
func (fs *FileSystem) Forget(vn *vfs.Vnode) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	delete(fs.vnodes, vn.Ino())
	fs.maybeReapLocked(vn.Ino())
}
