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

package ramfs_test

import (
	"os"
	"testing"
	"time"

	"github.com/jacobsa/timeutil"
	"github.com/minikernel/vfs"
	"github.com/minikernel/vfs/ramfs"
	"github.com/stretchr/testify/suite"
	"golang.org/x/net/context"
)

type RamfsTest struct {
	suite.Suite

	ctx   context.Context
	clock timeutil.SimulatedClock

	fs   *ramfs.FileSystem
	root *vfs.Vnode
}

func TestRamfsSuite(t *testing.T) {
	suite.Run(t, new(RamfsTest))
}

func (t *RamfsTest) SetupTest() {
	t.ctx = context.Background()
	t.clock.SetTime(time.Date(2012, 8, 15, 22, 56, 0, 0, time.Local))

	t.fs = ramfs.New(&t.clock, nil)
	t.root = t.fs.Root()
}

func (t *RamfsTest) TearDownTest() {
	t.root.DecRef()

	t.fs.CheckInvariants()
	t.Equal(0, t.fs.ActiveVnodes(), "leaked vnodes")
}

func (t *RamfsTest) dirOps() vfs.DirOps {
	ops, ok := t.root.Ops().(vfs.DirOps)
	t.Require().True(ok)
	return ops
}

// Collect the names visible in dir, walking the way the syscall layer
// does: advancing the cursor by whatever ReadDir consumes.
func (t *RamfsTest) readDirNames(dir *vfs.Vnode) []string {
	ops := dir.Ops().(vfs.DirOps)

	var names []string
	var pos int64
	for {
		var d vfs.Dirent
		n, err := ops.ReadDir(t.ctx, dir, pos, &d)
		t.Require().NoError(err)
		if n == 0 {
			return names
		}

		names = append(names, d.Name)
		pos += int64(n)
	}
}

////////////////////////////////////////////////////////////////////////
// Tests
////////////////////////////////////////////////////////////////////////

func (t *RamfsTest) TestRootEntries() {
	t.Equal([]string{".", ".."}, t.readDirNames(t.root))

	var st vfs.Stat
	t.Require().NoError(t.root.Ops().Stat(t.ctx, t.root, &st))
	t.Equal(vfs.InodeID(vfs.RootInodeID), st.Ino)
	t.EqualValues(2, st.Nlink)
	t.True(st.Mode.IsDir())
}

func (t *RamfsTest) TestCreateAndLookup() {
	ops := t.dirOps()

	created, err := ops.(vfs.Creator).Create(t.ctx, t.root, "foo")
	t.Require().NoError(err)

	// Looking the name up must revive the same handle, not mint a second
	// one.
	found, err := ops.Lookup(t.ctx, t.root, "foo")
	t.Require().NoError(err)
	t.Same(created, found)
	t.Equal(2, created.RefCount())

	found.DecRef()
	created.DecRef()

	// With no handle on loan and the link still present, the inode stays.
	t.Equal(2, t.fs.LiveInodes())
}

func (t *RamfsTest) TestLookupMissing() {
	_, err := t.dirOps().Lookup(t.ctx, t.root, "nosuch")
	t.Equal(vfs.ENOENT, err)
}

func (t *RamfsTest) TestHardLinkCounts() {
	ops := t.dirOps()

	vn, err := ops.(vfs.Creator).Create(t.ctx, t.root, "a")
	t.Require().NoError(err)

	t.Require().NoError(ops.Link(t.ctx, vn, t.root, "b"))

	var st vfs.Stat
	t.Require().NoError(vn.Ops().Stat(t.ctx, vn, &st))
	t.EqualValues(2, st.Nlink)

	// Dropping one name keeps the inode; dropping both reclaims it once the
	// handle goes away.
	t.Require().NoError(ops.Unlink(t.ctx, t.root, "a"))
	t.Require().NoError(ops.Unlink(t.ctx, t.root, "b"))
	t.Equal(2, t.fs.LiveInodes())

	vn.DecRef()
	t.Equal(1, t.fs.LiveInodes())
}

func (t *RamfsTest) TestLinkOfDirectory() {
	ops := t.dirOps()
	t.Require().NoError(ops.MkDir(t.ctx, t.root, "d"))

	d, err := ops.Lookup(t.ctx, t.root, "d")
	t.Require().NoError(err)
	defer d.DecRef()

	t.Equal(vfs.EISDIR, ops.Link(t.ctx, d, t.root, "d2"))
}

func (t *RamfsTest) TestLinkAcrossFileSystems() {
	other := ramfs.New(&t.clock, nil)
	otherRoot := other.Root()
	defer otherRoot.DecRef()

	vn, err := t.dirOps().(vfs.Creator).Create(t.ctx, t.root, "a")
	t.Require().NoError(err)
	defer vn.DecRef()

	err = otherRoot.Ops().(vfs.DirOps).Link(t.ctx, vn, otherRoot, "alien")
	t.Equal(vfs.EXDEV, err)
}

func (t *RamfsTest) TestMkDirLinkCounts() {
	ops := t.dirOps()
	t.Require().NoError(ops.MkDir(t.ctx, t.root, "d"))

	// The new child's ".." adds a link to the root.
	var st vfs.Stat
	t.Require().NoError(t.root.Ops().Stat(t.ctx, t.root, &st))
	t.EqualValues(3, st.Nlink)

	d, err := ops.Lookup(t.ctx, t.root, "d")
	t.Require().NoError(err)

	t.Require().NoError(d.Ops().Stat(t.ctx, d, &st))
	t.EqualValues(2, st.Nlink)
	d.DecRef()

	t.Require().NoError(ops.RmDir(t.ctx, t.root, "d"))
	t.Require().NoError(t.root.Ops().Stat(t.ctx, t.root, &st))
	t.EqualValues(2, st.Nlink)
	t.Equal(1, t.fs.LiveInodes())
}

func (t *RamfsTest) TestRmDirErrors() {
	ops := t.dirOps()

	t.Equal(vfs.ENOENT, ops.RmDir(t.ctx, t.root, "nosuch"))

	vn, err := ops.(vfs.Creator).Create(t.ctx, t.root, "f")
	t.Require().NoError(err)
	vn.DecRef()
	t.Equal(vfs.ENOTDIR, ops.RmDir(t.ctx, t.root, "f"))

	t.Require().NoError(ops.MkDir(t.ctx, t.root, "d"))
	d, err := ops.Lookup(t.ctx, t.root, "d")
	t.Require().NoError(err)
	t.Require().NoError(d.Ops().(vfs.DirOps).MkDir(t.ctx, d, "sub"))
	d.DecRef()

	t.Equal(vfs.ENOTEMPTY, ops.RmDir(t.ctx, t.root, "d"))
}

func (t *RamfsTest) TestReadDirOffsetStability() {
	ops := t.dirOps()

	for _, name := range []string{"a", "b", "c"} {
		vn, err := ops.(vfs.Creator).Create(t.ctx, t.root, name)
		t.Require().NoError(err)
		vn.DecRef()
	}

	// Consume up to and including "a" (after "." and "..").
	var pos int64
	for i := 0; i < 3; i++ {
		var d vfs.Dirent
		n, err := ops.ReadDir(t.ctx, t.root, pos, &d)
		t.Require().NoError(err)
		t.Require().NotZero(n)
		pos += int64(n)
	}

	// Removing an already-consumed entry must not shift what follows.
	t.Require().NoError(ops.Unlink(t.ctx, t.root, "a"))

	var rest []string
	for {
		var d vfs.Dirent
		n, err := ops.ReadDir(t.ctx, t.root, pos, &d)
		t.Require().NoError(err)
		if n == 0 {
			break
		}

		rest = append(rest, d.Name)
		pos += int64(n)
	}

	t.Equal([]string{"b", "c"}, rest)

	// The freed slot is reused by the next entry added.
	vn, err := ops.(vfs.Creator).Create(t.ctx, t.root, "z")
	t.Require().NoError(err)
	vn.DecRef()

	t.Equal([]string{".", "..", "z", "b", "c"}, t.readDirNames(t.root))
}

func (t *RamfsTest) TestWriteExtendsAndPads() {
	vn, err := t.dirOps().(vfs.Creator).Create(t.ctx, t.root, "f")
	t.Require().NoError(err)
	defer vn.DecRef()

	fops := vn.Ops().(vfs.FileOps)

	n, err := fops.WriteAt(t.ctx, vn, []byte("tail"), 3)
	t.Require().NoError(err)
	t.Equal(4, n)
	t.EqualValues(7, vn.Len())

	buf := make([]byte, 16)
	n, err = fops.ReadAt(t.ctx, vn, buf, 0)
	t.Require().NoError(err)
	t.Equal(7, n)
	t.Equal("\x00\x00\x00tail", string(buf[:n]))

	// Reading at or past the end sees EOF.
	n, err = fops.ReadAt(t.ctx, vn, buf, 7)
	t.Require().NoError(err)
	t.Zero(n)
}

func (t *RamfsTest) TestTruncate() {
	vn, err := t.dirOps().(vfs.Creator).Create(t.ctx, t.root, "f")
	t.Require().NoError(err)
	defer vn.DecRef()

	fops := vn.Ops().(vfs.FileOps)
	_, err = fops.WriteAt(t.ctx, vn, []byte("enchilada"), 0)
	t.Require().NoError(err)

	t.Require().NoError(vn.Ops().(vfs.Truncater).Truncate(t.ctx, vn, 4))
	t.EqualValues(4, vn.Len())

	buf := make([]byte, 16)
	n, err := fops.ReadAt(t.ctx, vn, buf, 0)
	t.Require().NoError(err)
	t.Equal("ench", string(buf[:n]))
}

func (t *RamfsTest) TestMkNod() {
	ops := t.dirOps()

	dev := vfs.MakeDevID(1, 0)
	err := ops.MkNod(t.ctx, t.root, "tty", os.ModeDevice|os.ModeCharDevice, dev)
	t.Require().NoError(err)

	vn, err := ops.Lookup(t.ctx, t.root, "tty")
	t.Require().NoError(err)
	defer vn.DecRef()

	t.True(vn.IsCharDevice())
	t.Equal(dev, vn.Rdev())

	// With no device registry wired, I/O on the node reports no such
	// device.
	_, err = vn.Ops().(vfs.FileOps).WriteAt(t.ctx, vn, []byte("x"), 0)
	t.Equal(vfs.ENXIO, err)
}

func (t *RamfsTest) TestUnlinkWhileHandleHeld() {
	ops := t.dirOps()

	vn, err := ops.(vfs.Creator).Create(t.ctx, t.root, "f")
	t.Require().NoError(err)

	t.Require().NoError(ops.Unlink(t.ctx, t.root, "f"))

	// The inode must survive while the handle is on loan.
	t.Equal(2, t.fs.LiveInodes())

	fops := vn.Ops().(vfs.FileOps)
	_, err = fops.WriteAt(t.ctx, vn, []byte("still here"), 0)
	t.NoError(err)

	vn.DecRef()
	t.Equal(1, t.fs.LiveInodes())
}
