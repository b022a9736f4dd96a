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

// NFILES is the number of slots in each process's file descriptor table.
const NFILES = 32

// A Process is the execution context the syscall layer works on behalf of:
// a pid, a current working directory, and the file descriptor table. The
// table is per-process; after fork only File objects are shared, never the
// table itself.
type Process struct {
	/////////////////////////
	// Constant data
	/////////////////////////

	pid int

	/////////////////////////
	// Mutable state
	/////////////////////////

	mu sync.Mutex

	// The current working directory: the base for resolving relative paths.
	// The process owns exactly one reference to it.
	//
	// INVARIANT: cwd != nil until Exit
	cwd *Vnode // GUARDED_BY(mu)

	// The descriptor table. Distinct occupied slots may point to the same
	// File (dup); each occupied slot accounts for one File reference.
	files [NFILES]*File // GUARDED_BY(mu)
}

func (p *Process) Pid() int {
	return p.pid
}

// Cwd returns the current working directory without acquiring a reference.
// Callers that keep the vnode past the next SetCwd must IncRef it.
func (p *Process) Cwd() *Vnode {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.cwd
}

// SetCwd installs vn as the working directory, taking ownership of one
// reference to it, and drops the reference owned for the old one. The swap
// is atomic with respect to the owning reference: there is no moment where
// the process holds references to both or neither.
func (p *Process) SetCwd(vn *Vnode) {
	p.mu.Lock()
	old := p.cwd
	p.cwd = vn
	p.mu.Unlock()

	if old != nil {
		old.DecRef()
	}
}

// GetFile returns the open file at fd with its reference count raised, or
// EBADF. The caller must DecRef the result.
func (p *Process) GetFile(fd int) (*File, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if fd < 0 || fd >= NFILES || p.files[fd] == nil {
		return nil, EBADF
	}

	f := p.files[fd]
	f.IncRef()
	return f, nil
}

// getEmptyFD scans the table for the lowest free slot. Returns EMFILE when
// every slot is occupied.
func (p *Process) getEmptyFD() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for fd := 0; fd < NFILES; fd++ {
		if p.files[fd] == nil {
			return fd, nil
		}
	}

	logf("out of file descriptors for pid %d", p.pid)
	return 0, EMFILE
}

// install writes f into the given slot, which must be free. The slot takes
// over one reference to f from the caller.
func (p *Process) install(fd int, f *File) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.files[fd] != nil {
		panic("install over an occupied fd slot")
	}

	p.files[fd] = f
}

// clear vacates the given slot and returns the File that occupied it. The
// caller inherits the slot's reference and must DecRef it; the File itself
// is never freed here.
func (p *Process) clear(fd int) (*File, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if fd < 0 || fd >= NFILES || p.files[fd] == nil {
		return nil, EBADF
	}

	f := p.files[fd]
	p.files[fd] = nil
	return f, nil
}

// OpenFDs returns the currently occupied descriptors, in order. Intended
// for tests and diagnostics.
func (p *Process) OpenFDs() []int {
	p.mu.Lock()
	defer p.mu.Unlock()

	var fds []int
	for fd := 0; fd < NFILES; fd++ {
		if p.files[fd] != nil {
			fds = append(fds, fd)
		}
	}

	return fds
}

// Exit tears the process context down: every open descriptor is closed and
// the cwd reference is dropped. The Process must not be used afterward.
func (p *Process) Exit() {
	p.mu.Lock()
	var open []*File
	for fd := 0; fd < NFILES; fd++ {
		if p.files[fd] != nil {
			open = append(open, p.files[fd])
			p.files[fd] = nil
		}
	}
	cwd := p.cwd
	p.cwd = nil
	p.mu.Unlock()

	for _, f := range open {
		f.DecRef()
	}

	if cwd != nil {
		cwd.DecRef()
	}
}
