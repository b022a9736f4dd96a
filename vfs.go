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
	"sync"
)

// VFS is the top-level object of the layer: it owns the root vnode, the
// device registries, and exposes the syscall surface as methods. One VFS
// serves all processes of the kernel.
type VFS struct {
	/////////////////////////
	// Mutable state
	/////////////////////////

	mu sync.Mutex

	// The root of the (single) mounted file system. The VFS owns one
	// reference to it for as long as it is installed.
	root *Vnode // GUARDED_BY(mu)

	// Device registries consulted when opening special files.
	byteDevs  map[DevID]ByteDevice  // GUARDED_BY(mu)
	blockDevs map[DevID]BlockDevice // GUARDED_BY(mu)
}

// New creates a VFS with no root installed and empty device registries.
func New() *VFS {
	return &VFS{
		byteDevs:  make(map[DevID]ByteDevice),
		blockDevs: make(map[DevID]BlockDevice),
	}
}

// SetRoot installs the root vnode, taking ownership of one reference to it.
// Must be called before any path may be resolved. Replacing a previously
// installed root drops the reference owned for it.
func (v *VFS) SetRoot(vn *Vnode) {
	v.mu.Lock()
	old := v.root
	v.root = vn
	v.mu.Unlock()

	if old != nil {
		old.DecRef()
	}
}

// Root returns the root vnode without acquiring a reference.
func (v *VFS) Root() *Vnode {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.root
}

// NewProcess creates a process context with the given pid, an empty
// descriptor table, and the root as its working directory.
func (v *VFS) NewProcess(pid int) *Process {
	root := v.Root()
	if root == nil {
		panic("NewProcess before SetRoot")
	}

	root.IncRef()
	return &Process{
		pid: pid,
		cwd: root,
	}
}
