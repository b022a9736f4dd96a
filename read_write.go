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

// Read copies up to len(p) bytes from the file open at fd into p, starting
// at the file's cursor, and advances the cursor by the number of bytes
// read. A descriptor without read access fails with EBADF; a directory
// fails with EISDIR.
func (v *VFS) Read(
	ctx context.Context,
	proc *Process,
	fd int,
	p []byte) (n int, err error) {
	ctx, report := startOp(ctx, "Read(%v, %v)", fd, len(p))
	defer func() { report(err) }()

	f, err := proc.GetFile(fd)
	if err != nil {
		return 0, err
	}
	defer f.DecRef()

	if f.mode&FModeRead == 0 {
		return 0, EBADF
	}

	vn := f.Vnode()
	fops, ok := vn.Ops().(FileOps)
	if vn.IsDir() || !ok {
		return 0, EISDIR
	}

	// Snapshot the cursor, perform the (possibly blocking) read, then
	// advance by what was actually produced. Concurrent users of a dup'd
	// descriptor share this cursor; each update is a single step but the
	// read-then-advance pair is deliberately not atomic.
	n, err = fops.ReadAt(ctx, vn, p, f.Pos())
	if n > 0 {
		f.advance(int64(n))
	}

	return n, err
}

// Write copies len(p) bytes from p into the file open at fd. Without
// O_APPEND the write lands at the cursor, which then advances by the
// number of bytes written. With O_APPEND the cursor is moved to the end of
// the file before the write and again after it, so concurrent appenders
// never clobber each other's cursor. A descriptor opened with neither write
// access nor O_APPEND fails with EBADF.
func (v *VFS) Write(
	ctx context.Context,
	proc *Process,
	fd int,
	p []byte) (n int, err error) {
	ctx, report := startOp(ctx, "Write(%v, %v)", fd, len(p))
	defer func() { report(err) }()

	f, err := proc.GetFile(fd)
	if err != nil {
		return 0, err
	}
	defer f.DecRef()

	if f.mode&(FModeWrite|FModeAppend) == 0 {
		return 0, EBADF
	}

	vn := f.Vnode()
	fops, ok := vn.Ops().(FileOps)
	if vn.IsDir() || !ok {
		return 0, EISDIR
	}

	if f.mode&FModeAppend != 0 {
		f.setPos(vn.Len())
		n, err = fops.WriteAt(ctx, vn, p, vn.Len())
		f.setPos(vn.Len())
		return n, err
	}

	n, err = fops.WriteAt(ctx, vn, p, f.Pos())
	if n > 0 {
		f.advance(int64(n))
	}

	return n, err
}

// Seek moves the cursor of the file open at fd according to offset and
// whence, returning the new cursor. A resulting cursor that would be
// negative fails with EINVAL; seeking past the end of the file is
// permitted.
func (v *VFS) Seek(
	proc *Process,
	fd int,
	offset int64,
	whence int) (int64, error) {
	if whence != SeekSet && whence != SeekCur && whence != SeekEnd {
		return 0, EINVAL
	}

	f, err := proc.GetFile(fd)
	if err != nil {
		return 0, err
	}
	defer f.DecRef()

	var base int64
	switch whence {
	case SeekCur:
		base = f.Pos()
	case SeekEnd:
		base = f.Vnode().Len()
	}

	pos := base + offset
	if pos < 0 {
		return 0, EINVAL
	}

	f.setPos(pos)
	return pos, nil
}

// GetDent produces the next directory entry of the directory open at fd
// into d, advancing the cursor past it. Returns DirentSize when an entry
// was produced and 0 at end of directory. A descriptor that does not refer
// to a directory with a readdir operation fails with ENOTDIR.
func (v *VFS) GetDent(
	ctx context.Context,
	proc *Process,
	fd int,
	d *Dirent) (n int, err error) {
	ctx, report := startOp(ctx, "GetDent(%v)", fd)
	defer func() { report(err) }()

	f, err := proc.GetFile(fd)
	if err != nil {
		return 0, err
	}
	defer f.DecRef()

	vn := f.Vnode()
	dops, ok := vn.Ops().(DirOps)
	if !vn.IsDir() || !ok {
		return 0, ENOTDIR
	}

	consumed, err := dops.ReadDir(ctx, vn, f.Pos(), d)
	if err != nil {
		return 0, err
	}

	if consumed == 0 {
		return 0, nil
	}

	f.advance(int64(consumed))
	return DirentSize, nil
}
