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
	"sync"
)

// A File is the kernel-side state of an open file: one vnode reference, a
// byte cursor, mode flags, and a reference count of its own. Dup'd file
// descriptors (and descriptors inherited across fork) share a single File,
// and therefore a single cursor; that sharing is the point of dup.
//
// A File has two visible states: open (installed in at least one fd slot)
// and free. The only transitions are allocation by Open and
// drop-to-zero when the last referencing descriptor is closed.
type File struct {
	/////////////////////////
	// Constant data
	/////////////////////////

	// What the file may be used for. Set once by Open.
	//
	// INVARIANT: If mode&(FModeWrite|FModeAppend) != 0, vnode is not a
	// directory.
	//
	// Open does not check the vnode's ops: a directory may be open for
	// reading, and Read and Write check for FileOps at each call.
	mode FMode

	/////////////////////////
	// Mutable state
	/////////////////////////

	mu sync.Mutex

	// The vnode this file refers to. The File owns exactly one reference to
	// it, dropped when the File's own count reaches zero. Set once by Open,
	// after which it is constant.
	vnode *Vnode

	// The cursor for the next read or write.
	//
	// INVARIANT: pos >= 0
	pos int64 // GUARDED_BY(mu)

	// INVARIANT: refCount >= 0
	refCount int // GUARDED_BY(mu)
}

// Hook for file object allocation, so tests can simulate an exhausted
// kernel allocator. Returns nil on failure.
var allocFile = func() *File {
	return &File{refCount: 1}
}

// attach hands the file its vnode reference. Called exactly once, by Open,
// after which the vnode is constant.
func (f *File) attach(vn *Vnode) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.vnode != nil {
		panic("attach to a file that already has a vnode")
	}

	f.vnode = vn
}

// Vnode returns the vnode this file refers to, without touching its
// reference count.
func (f *File) Vnode() *Vnode {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.vnode
}

// Mode returns the file's mode bits.
func (f *File) Mode() FMode {
	return f.mode
}

// Pos returns the current cursor.
func (f *File) Pos() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.pos
}

// setPos stores a new cursor in one step.
func (f *File) setPos(pos int64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.pos = pos
}

// advance moves the cursor forward by n in one step.
func (f *File) advance(n int64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.pos += n
}

// IncRef acquires a reference to the file object.
func (f *File) IncRef() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.refCount <= 0 {
		panic("IncRef on freed file object")
	}

	f.refCount++
}

// DecRef releases one reference. When the count reaches zero the file's
// vnode reference is dropped and the object is dead.
func (f *File) DecRef() {
	f.mu.Lock()

	if f.refCount <= 0 {
		panic("DecRef on freed file object")
	}

	f.refCount--
	dead := f.refCount == 0
	vn := f.vnode
	f.mu.Unlock()

	if dead && vn != nil {
		vn.DecRef()
	}
}

// RefCount returns the current reference count. Intended for tests.
func (f *File) RefCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.refCount
}

func (f *File) String() string {
	var ino InodeID
	if vn := f.Vnode(); vn != nil {
		ino = vn.Ino()
	}

	return fmt.Sprintf("file{ino: %v, pos: %v, mode: %#x}", ino, f.Pos(), f.mode)
}
