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

package ramfs

import (
	"os"

	"github.com/minikernel/vfs"
	"golang.org/x/net/context"
)

// Behavior shared by all three vnode kinds.
type commonOps struct {
	fs *FileSystem
}

func (o commonOps) Stat(
	ctx context.Context,
	vn *vfs.Vnode,
	st *vfs.Stat) error {
	fs := o.fs
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	in := fs.inodes[vn.Ino()]

	*st = vfs.Stat{
		Ino:   vn.Ino(),
		Mode:  in.mode,
		Nlink: uint32(in.nlink),
		Size:  int64(len(in.contents)),
		Rdev:  in.rdev,
		Atime: in.atime,
		Mtime: in.mtime,
		Ctime: in.ctime,
	}

	return nil
}

////////////////////////////////////////////////////////////////////////
// Directories
////////////////////////////////////////////////////////////////////////

type dirOps struct {
	commonOps
}

func (o *dirOps) Lookup(
	ctx context.Context,
	dir *vfs.Vnode,
	name string) (*vfs.Vnode, error) {
	fs := o.fs
	fs.mu.Lock()
	defer fs.mu.Unlock()

	in := fs.inodes[dir.Ino()]
	ino, ok := in.findEntry(name)
	if !ok {
		return nil, vfs.ENOENT
	}

	return fs.getVnodeLocked(ino), nil
}

func (o *dirOps) Create(
	ctx context.Context,
	dir *vfs.Vnode,
	name string) (*vfs.Vnode, error) {
	fs := o.fs
	fs.mu.Lock()
	defer fs.mu.Unlock()

	parent := fs.inodes[dir.Ino()]
	if _, ok := parent.findEntry(name); ok {
		return nil, vfs.EEXIST
	}

	ino, child := fs.allocInodeLocked(0644, 0)
	child.nlink = 1
	parent.addEntry(name, ino)
	parent.touch()

	return fs.getVnodeLocked(ino), nil
}

func (o *dirOps) MkDir(
	ctx context.Context,
	dir *vfs.Vnode,
	name string) error {
	fs := o.fs
	fs.mu.Lock()
	defer fs.mu.Unlock()

	parent := fs.inodes[dir.Ino()]
	if _, ok := parent.findEntry(name); ok {
		return vfs.EEXIST
	}

	ino, child := fs.allocInodeLocked(os.ModeDir|0755, 0)
	child.addEntry(".", ino)
	child.addEntry("..", dir.Ino())
	child.nlink = 2

	parent.addEntry(name, ino)
	parent.nlink++
	parent.touch()

	return nil
}

func (o *dirOps) MkNod(
	ctx context.Context,
	dir *vfs.Vnode,
	name string,
	mode os.FileMode,
	dev vfs.DevID) error {
	fs := o.fs
	fs.mu.Lock()
	defer fs.mu.Unlock()

	parent := fs.inodes[dir.Ino()]
	if _, ok := parent.findEntry(name); ok {
		return vfs.EEXIST
	}

	ino, child := fs.allocInodeLocked(mode|0644, dev)
	child.nlink = 1
	parent.addEntry(name, ino)
	parent.touch()

	return nil
}

func (o *dirOps) RmDir(
	ctx context.Context,
	dir *vfs.Vnode,
	name string) error {
	fs := o.fs
	fs.mu.Lock()
	defer fs.mu.Unlock()

	parent := fs.inodes[dir.Ino()]
	ino, ok := parent.findEntry(name)
	if !ok {
		return vfs.ENOENT
	}

	child := fs.inodes[ino]
	if !child.isDir() {
		return vfs.ENOTDIR
	}

	if child.childCount() != 0 {
		return vfs.ENOTEMPTY
	}

	parent.removeEntry(name)
	parent.nlink--
	parent.touch()

	// Drop the links held by the child's own "." and its entry in parent.
	child.nlink -= 2
	child.ctime = child.clock.Now()
	fs.maybeReapLocked(ino)

	return nil
}

func (o *dirOps) Unlink(
	ctx context.Context,
	dir *vfs.Vnode,
	name string) error {
	fs := o.fs
	fs.mu.Lock()
	defer fs.mu.Unlock()

	parent := fs.inodes[dir.Ino()]
	ino, ok := parent.findEntry(name)
	if !ok {
		return vfs.ENOENT
	}

	child := fs.inodes[ino]
	if child.isDir() {
		return vfs.EISDIR
	}

	parent.removeEntry(name)
	parent.touch()

	child.nlink--
	child.ctime = child.clock.Now()
	fs.maybeReapLocked(ino)

	return nil
}

func (o *dirOps) Link(
	ctx context.Context,
	src *vfs.Vnode,
	dir *vfs.Vnode,
	name string) error {
	fs := o.fs

	if src.FS() != vfs.FileSystem(fs) {
		return vfs.EXDEV
	}

	if src.IsDir() {
		return vfs.EISDIR
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	parent := fs.inodes[dir.Ino()]
	if _, ok := parent.findEntry(name); ok {
		return vfs.EEXIST
	}

	child := fs.inodes[src.Ino()]
	parent.addEntry(name, src.Ino())
	parent.touch()

	child.nlink++
	child.ctime = child.clock.Now()

	return nil
}

func (o *dirOps) ReadDir(
	ctx context.Context,
	dir *vfs.Vnode,
	pos int64,
	d *vfs.Dirent) (int, error) {
	fs := o.fs
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	return fs.inodes[dir.Ino()].readDirAt(pos, d), nil
}

////////////////////////////////////////////////////////////////////////
// Regular files
////////////////////////////////////////////////////////////////////////

type fileOps struct {
	commonOps
}

func (o *fileOps) ReadAt(
	ctx context.Context,
	vn *vfs.Vnode,
	p []byte,
	off int64) (int, error) {
	fs := o.fs
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	in := fs.inodes[vn.Ino()]
	if off >= int64(len(in.contents)) {
		return 0, nil
	}

	return copy(p, in.contents[off:]), nil
}

func (o *fileOps) WriteAt(
	ctx context.Context,
	vn *vfs.Vnode,
	p []byte,
	off int64) (int, error) {
	fs := o.fs
	fs.mu.Lock()
	defer fs.mu.Unlock()

	in := fs.inodes[vn.Ino()]

	// Ensure the contents are long enough, padding any hole with zeroes.
	newLen := int(off) + len(p)
	if len(in.contents) < newLen {
		padding := make([]byte, newLen-len(in.contents))
		in.contents = append(in.contents, padding...)
	}

	n := copy(in.contents[off:], p)
	in.touch()
	vn.SetLen(int64(len(in.contents)))

	return n, nil
}

func (o *fileOps) Truncate(
	ctx context.Context,
	vn *vfs.Vnode,
	size int64) error {
	fs := o.fs
	fs.mu.Lock()
	defer fs.mu.Unlock()

	in := fs.inodes[vn.Ino()]

	if size <= int64(len(in.contents)) {
		in.contents = in.contents[:size]
	} else {
		padding := make([]byte, size-int64(len(in.contents)))
		in.contents = append(in.contents, padding...)
	}

	in.touch()
	vn.SetLen(size)

	return nil
}

////////////////////////////////////////////////////////////////////////
// Device special files
////////////////////////////////////////////////////////////////////////

type devOps struct {
	commonOps
}

// Reads and writes on device special files bypass file system storage and
// go to the registered driver. The registries are consulted per call: a
// device may be registered or withdrawn while the file is open.
func (o *devOps) ReadAt(
	ctx context.Context,
	vn *vfs.Vnode,
	p []byte,
	off int64) (int, error) {
	if vn.IsCharDevice() {
		d, ok := o.lookupByte(vn)
		if !ok {
			return 0, vfs.ENXIO
		}

		return d.ReadAt(ctx, p, off)
	}

	d, ok := o.lookupBlock(vn)
	if !ok {
		return 0, vfs.ENXIO
	}

	return blockIO(ctx, d, p, off, d.ReadBlock)
}

func (o *devOps) WriteAt(
	ctx context.Context,
	vn *vfs.Vnode,
	p []byte,
	off int64) (int, error) {
	if vn.IsCharDevice() {
		d, ok := o.lookupByte(vn)
		if !ok {
			return 0, vfs.ENXIO
		}

		return d.WriteAt(ctx, p, off)
	}

	d, ok := o.lookupBlock(vn)
	if !ok {
		return 0, vfs.ENXIO
	}

	return blockIO(ctx, d, p, off, d.WriteBlock)
}

func (o *devOps) lookupByte(vn *vfs.Vnode) (vfs.ByteDevice, bool) {
	if o.fs.devs == nil {
		return nil, false
	}

	return o.fs.devs.LookupByteDevice(vn.Rdev())
}

func (o *devOps) lookupBlock(vn *vfs.Vnode) (vfs.BlockDevice, bool) {
	if o.fs.devs == nil {
		return nil, false
	}

	return o.fs.devs.LookupBlockDevice(vn.Rdev())
}

// blockIO shuttles p block by block through the given transfer function.
// The offset and length must be block-aligned.
func blockIO(
	ctx context.Context,
	d vfs.BlockDevice,
	p []byte,
	off int64,
	xfer func(context.Context, []byte, int64) error) (int, error) {
	bs := int64(d.BlockSize())
	if off%bs != 0 || int64(len(p))%bs != 0 {
		return 0, vfs.EINVAL
	}

	n := 0
	for int64(n) < int64(len(p)) {
		block := (off + int64(n)) / bs
		if err := xfer(ctx, p[n:n+int(bs)], block); err != nil {
			return n, err
		}

		n += int(bs)
	}

	return n, nil
}
