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

	"github.com/jacobsa/reqtrace"
	"golang.org/x/net/context"
)

// startOp opens a trace span for one syscall and returns a report hook that
// also feeds the debug log. Call the hook exactly once, with the op's
// error.
func startOp(
	ctx context.Context,
	format string,
	args ...interface{}) (context.Context, func(error)) {
	desc := fmt.Sprintf(format, args...)
	ctx, report := reqtrace.StartSpan(ctx, desc)

	return ctx, func(err error) {
		if err != nil {
			logf("%s: error: %v", desc, err)
		} else {
			logf("%s: OK", desc)
		}

		report(err)
	}
}

// Open resolves path and installs a fresh file object at the lowest free
// descriptor, which it returns.
//
// The access mode must be one of O_RDONLY, O_WRONLY, O_RDWR, optionally
// OR'd with O_CREAT, O_TRUNC, and O_APPEND; any other bit fails with
// EINVAL. Opening a directory with write access fails with EISDIR. A
// device special file whose device is not registered fails with ENXIO.
func (v *VFS) Open(
	ctx context.Context,
	proc *Process,
	path string,
	flags OpenFlags) (fd int, err error) {
	ctx, report := startOp(ctx, "Open(%q, %#x)", path, uint32(flags))
	defer func() { report(err) }()

	if !flags.valid() {
		return 0, EINVAL
	}

	fd, err = proc.getEmptyFD()
	if err != nil {
		return 0, err
	}

	f := allocFile()
	if f == nil {
		return 0, ENOMEM
	}

	switch flags.AccessMode() {
	case O_RDONLY:
		f.mode = FModeRead
	case O_WRONLY:
		f.mode = FModeWrite
	case O_RDWR:
		f.mode = FModeRead | FModeWrite
	}

	if flags&O_APPEND != 0 {
		f.mode |= FModeAppend
	}

	// Reserve the slot before resolving: the walk below may yield, and a
	// concurrent open must not be handed the same descriptor.
	proc.install(fd, f)

	// Release the slot and the file object, undoing the steps above. Used by
	// every error path below.
	abort := func() {
		proc.clear(fd)
		f.DecRef()
	}

	vn, err := v.openNamev(ctx, proc, path, flags, nil)
	if err != nil {
		abort()
		return 0, err
	}

	if vn.IsDir() && f.mode&(FModeWrite|FModeAppend) != 0 {
		vn.DecRef()
		abort()
		return 0, EISDIR
	}

	// Special files must name a device that is actually present.
	switch {
	case vn.IsCharDevice():
		if _, ok := v.LookupByteDevice(vn.Rdev()); !ok {
			vn.DecRef()
			abort()
			return 0, ENXIO
		}

	case vn.IsBlockDevice():
		if _, ok := v.LookupBlockDevice(vn.Rdev()); !ok {
			vn.DecRef()
			abort()
			return 0, ENXIO
		}
	}

	if flags&O_TRUNC != 0 && f.mode&FModeWrite != 0 && vn.IsRegular() {
		if t, ok := vn.Ops().(Truncater); ok {
			if err = t.Truncate(ctx, vn, 0); err != nil {
				vn.DecRef()
				abort()
				return 0, err
			}
		}
	}

	// The file object takes over our reference to the vnode.
	f.attach(vn)

	return fd, nil
}

// Close vacates the descriptor and releases the slot's reference to the
// file object. The object itself dies only when its last referencing
// descriptor is closed.
func (v *VFS) Close(proc *Process, fd int) error {
	f, err := proc.clear(fd)
	if err != nil {
		return err
	}

	f.DecRef()
	return nil
}

// Dup installs the file open at fd into the lowest free descriptor, which
// it returns. Both descriptors share the file object, and therefore its
// cursor.
func (v *VFS) Dup(proc *Process, fd int) (int, error) {
	f, err := proc.GetFile(fd)
	if err != nil {
		return 0, err
	}

	nfd, err := proc.getEmptyFD()
	if err != nil {
		f.DecRef()
		return 0, err
	}

	// The reference acquired above becomes the new slot's.
	proc.install(nfd, f)

	return nfd, nil
}

// Dup2 installs the file open at ofd into the caller-supplied slot nfd,
// closing whatever occupied it first unless nfd already aliases ofd.
func (v *VFS) Dup2(proc *Process, ofd, nfd int) (int, error) {
	if nfd < 0 || nfd >= NFILES {
		return 0, EBADF
	}

	f, err := proc.GetFile(ofd)
	if err != nil {
		return 0, err
	}

	if nfd == ofd {
		f.DecRef()
		return nfd, nil
	}

	if old, err := proc.clear(nfd); err == nil {
		old.DecRef()
	}

	proc.install(nfd, f)

	return nfd, nil
}

// MkNod creates a device special file. mode must carry char-special or
// block-special type bits; anything else fails with EINVAL.
func (v *VFS) MkNod(
	ctx context.Context,
	proc *Process,
	path string,
	mode os.FileMode,
	dev DevID) (err error) {
	ctx, report := startOp(ctx, "MkNod(%q, %v, %v)", path, mode, dev)
	defer func() { report(err) }()

	isChar := mode&os.ModeCharDevice != 0
	isBlock := mode&os.ModeDevice != 0 && !isChar
	if !isChar && !isBlock {
		return EINVAL
	}

	parent, name, err := v.dirNamev(ctx, proc, path, nil)
	if err != nil {
		return err
	}

	vn, err := lookup(ctx, parent, name)
	if err == nil {
		vn.DecRef()
		parent.DecRef()
		return EEXIST
	}

	if err != ENOENT {
		parent.DecRef()
		return err
	}

	// lookup succeeded in asserting DirOps, so this cannot fail.
	err = parent.Ops().(DirOps).MkNod(ctx, parent, name, mode, dev)
	parent.DecRef()

	return err
}

// MkDir creates a directory at path. Fails with EEXIST if the final
// component already exists.
func (v *VFS) MkDir(
	ctx context.Context,
	proc *Process,
	path string) (err error) {
	ctx, report := startOp(ctx, "MkDir(%q)", path)
	defer func() { report(err) }()

	parent, name, err := v.dirNamev(ctx, proc, path, nil)
	if err != nil {
		return err
	}

	vn, err := lookup(ctx, parent, name)
	if err == nil {
		vn.DecRef()
		parent.DecRef()
		return EEXIST
	}

	if err != ENOENT {
		parent.DecRef()
		return err
	}

	err = parent.Ops().(DirOps).MkDir(ctx, parent, name)
	parent.DecRef()

	return err
}

// RmDir removes the directory at path. Paths whose final component is "."
// (or empty) fail with EINVAL and ".." fails with ENOTEMPTY.
func (v *VFS) RmDir(
	ctx context.Context,
	proc *Process,
	path string) (err error) {
	ctx, report := startOp(ctx, "RmDir(%q)", path)
	defer func() { report(err) }()

	parent, name, err := v.dirNamev(ctx, proc, path, nil)
	if err != nil {
		return err
	}

	switch name {
	case ".", "":
		parent.DecRef()
		return EINVAL

	case "..":
		parent.DecRef()
		return ENOTEMPTY
	}

	dops, ok := parent.Ops().(DirOps)
	if !ok {
		parent.DecRef()
		return ENOTDIR
	}

	err = dops.RmDir(ctx, parent, name)
	parent.DecRef()

	return err
}

// Unlink removes the non-directory at path. A directory target fails with
// EISDIR.
func (v *VFS) Unlink(
	ctx context.Context,
	proc *Process,
	path string) (err error) {
	ctx, report := startOp(ctx, "Unlink(%q)", path)
	defer func() { report(err) }()

	parent, name, err := v.dirNamev(ctx, proc, path, nil)
	if err != nil {
		return err
	}

	vn, err := lookup(ctx, parent, name)
	if err != nil {
		parent.DecRef()
		return err
	}

	isDir := vn.IsDir()
	vn.DecRef()
	if isDir {
		parent.DecRef()
		return EISDIR
	}

	err = parent.Ops().(DirOps).Unlink(ctx, parent, name)
	parent.DecRef()

	return err
}

// Link creates a hard link at to referring to the existing file at from.
// Fails with EEXIST if to already exists.
func (v *VFS) Link(
	ctx context.Context,
	proc *Process,
	from string,
	to string) (err error) {
	ctx, report := startOp(ctx, "Link(%q, %q)", from, to)
	defer func() { report(err) }()

	src, err := v.openNamev(ctx, proc, from, 0, nil)
	if err != nil {
		return err
	}

	parent, name, err := v.dirNamev(ctx, proc, to, nil)
	if err != nil {
		src.DecRef()
		return err
	}

	vn, err := lookup(ctx, parent, name)
	switch {
	case err == nil:
		vn.DecRef()
		err = EEXIST

	case err == ENOENT:
		err = parent.Ops().(DirOps).Link(ctx, src, parent, name)
	}

	parent.DecRef()
	src.DecRef()

	return err
}

// Rename links old to new and then unlinks old, reporting the first
// failure. Note that unlike rename(2) this is not atomic: if the unlink
// fails, two links to the file remain.
func (v *VFS) Rename(
	ctx context.Context,
	proc *Process,
	old string,
	new string) error {
	if err := v.Link(ctx, proc, old, new); err != nil {
		return err
	}

	return v.Unlink(ctx, proc, old)
}

// Chdir makes path the process's working directory, swapping the owned cwd
// reference atomically. A non-directory fails with ENOTDIR.
func (v *VFS) Chdir(
	ctx context.Context,
	proc *Process,
	path string) (err error) {
	ctx, report := startOp(ctx, "Chdir(%q)", path)
	defer func() { report(err) }()

	vn, err := v.openNamev(ctx, proc, path, 0, nil)
	if err != nil {
		return err
	}

	if !vn.IsDir() {
		vn.DecRef()
		return ENOTDIR
	}

	proc.SetCwd(vn)
	return nil
}

// Stat resolves path and fills in st via the vnode's stat operation.
func (v *VFS) Stat(
	ctx context.Context,
	proc *Process,
	path string,
	st *Stat) (err error) {
	ctx, report := startOp(ctx, "Stat(%q)", path)
	defer func() { report(err) }()

	parent, name, err := v.dirNamev(ctx, proc, path, nil)
	if err != nil {
		return err
	}

	vn, err := lookup(ctx, parent, name)
	parent.DecRef()
	if err != nil {
		return err
	}

	err = vn.Ops().Stat(ctx, vn, st)
	vn.DecRef()

	return err
}
