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

package vfs_test

import (
	"strings"

	. "github.com/jacobsa/ogletest"
	"github.com/minikernel/vfs"
	"github.com/minikernel/vfs/vfstesting"
)

////////////////////////////////////////////////////////////////////////
// Boilerplate
////////////////////////////////////////////////////////////////////////

type PathResolutionTest struct {
	vfstesting.VFSTest
}

func init() { RegisterTestSuite(&PathResolutionTest{}) }

func (t *PathResolutionTest) stat(path string) error {
	var st vfs.Stat
	return t.VFS.Stat(t.Ctx, t.Proc, path, &st)
}

////////////////////////////////////////////////////////////////////////
// Test functions
////////////////////////////////////////////////////////////////////////

func (t *PathResolutionTest) Root() {
	var st vfs.Stat
	AssertEq(nil, t.VFS.Stat(t.Ctx, t.Proc, "/", &st))
	ExpectTrue(st.Mode.IsDir())
	ExpectEq(vfs.RootInodeID, st.Ino)
}

func (t *PathResolutionTest) EmptyPath() {
	ExpectEq(vfs.ENOENT, t.stat(""))
	ExpectEq(vfs.ENOENT, t.VFS.MkDir(t.Ctx, t.Proc, ""))

	_, err := t.VFS.Open(t.Ctx, t.Proc, "", vfs.O_RDONLY)
	ExpectEq(vfs.ENOENT, err)
}

func (t *PathResolutionTest) DotAndDotDot() {
	AssertEq(nil, t.VFS.MkDir(t.Ctx, t.Proc, "/a"))
	AssertEq(nil, t.VFS.MkDir(t.Ctx, t.Proc, "/a/b"))

	ExpectEq(nil, t.stat("/a/."))
	ExpectEq(nil, t.stat("/a/b/.."))
	ExpectEq(nil, t.stat("/a/b/../b"))
	ExpectEq(nil, t.stat("/.."))

	// ".." of the root is the root itself.
	var st vfs.Stat
	AssertEq(nil, t.VFS.Stat(t.Ctx, t.Proc, "/../..", &st))
	ExpectEq(vfs.RootInodeID, st.Ino)
}

func (t *PathResolutionTest) ConsecutiveSlashes() {
	AssertEq(nil, t.VFS.MkDir(t.Ctx, t.Proc, "/a"))
	AssertEq(nil, t.VFS.MkDir(t.Ctx, t.Proc, "/a/b"))

	ExpectEq(nil, t.stat("//a"))
	ExpectEq(nil, t.stat("/a//b"))
	ExpectEq(nil, t.stat("/a///b"))
}

func (t *PathResolutionTest) TrailingSlash() {
	AssertEq(nil, t.VFS.MkDir(t.Ctx, t.Proc, "/a"))

	// On a directory the trailing slash resolves to the directory itself.
	var st vfs.Stat
	AssertEq(nil, t.VFS.Stat(t.Ctx, t.Proc, "/a/", &st))
	ExpectTrue(st.Mode.IsDir())
}

func (t *PathResolutionTest) ComponentLengthBoundary() {
	justRight := strings.Repeat("x", vfs.NameMax)
	tooLong := strings.Repeat("x", vfs.NameMax+1)

	// A component of exactly NameMax bytes must work...
	AssertEq(nil, t.VFS.MkDir(t.Ctx, t.Proc, "/"+justRight))
	ExpectEq(nil, t.stat("/"+justRight))

	// ...both terminally and as an intermediate component.
	AssertEq(nil, t.VFS.MkDir(t.Ctx, t.Proc, "/"+justRight+"/sub"))
	ExpectEq(nil, t.stat("/"+justRight+"/sub"))

	// One byte more must not.
	ExpectEq(vfs.ENAMETOOLONG, t.VFS.MkDir(t.Ctx, t.Proc, "/"+tooLong))
	ExpectEq(vfs.ENAMETOOLONG, t.stat("/"+tooLong))
	ExpectEq(vfs.ENAMETOOLONG, t.stat("/"+tooLong+"/sub"))

	_, err := t.VFS.Open(t.Ctx, t.Proc, "/"+tooLong, vfs.O_RDONLY|vfs.O_CREAT)
	ExpectEq(vfs.ENAMETOOLONG, err)
}

func (t *PathResolutionTest) IntermediateIsFile() {
	fd, err := t.VFS.Open(t.Ctx, t.Proc, "/f", vfs.O_WRONLY|vfs.O_CREAT)
	AssertEq(nil, err)
	AssertEq(nil, t.VFS.Close(t.Proc, fd))

	ExpectEq(vfs.ENOTDIR, t.stat("/f/x"))
	ExpectEq(vfs.ENOTDIR, t.VFS.MkDir(t.Ctx, t.Proc, "/f/d"))

	_, err = t.VFS.Open(t.Ctx, t.Proc, "/f/x", vfs.O_RDONLY)
	ExpectEq(vfs.ENOTDIR, err)
}

func (t *PathResolutionTest) IntermediateIsMissing() {
	ExpectEq(vfs.ENOENT, t.stat("/no/such/path"))
	ExpectEq(vfs.ENOENT, t.VFS.MkDir(t.Ctx, t.Proc, "/no/d"))

	_, err := t.VFS.Open(t.Ctx, t.Proc, "/no/x", vfs.O_RDONLY|vfs.O_CREAT)
	ExpectEq(vfs.ENOENT, err)
}

func (t *PathResolutionTest) RelativePaths() {
	AssertEq(nil, t.VFS.MkDir(t.Ctx, t.Proc, "/a"))
	AssertEq(nil, t.VFS.Chdir(t.Ctx, t.Proc, "/a"))

	AssertEq(nil, t.VFS.MkDir(t.Ctx, t.Proc, "b"))
	ExpectEq(nil, t.stat("/a/b"))

	// ".." climbs out of the working directory.
	AssertEq(nil, t.VFS.MkDir(t.Ctx, t.Proc, "../c"))
	ExpectEq(nil, t.stat("/c"))
}

// Failed resolutions must not leave vnodes behind: the counts observed
// before and after a series of failing calls must match. (TearDown checks
// the same property for every test, but only after the process has exited;
// this checks without that teardown.)
func (t *PathResolutionTest) ErrorPathsReleaseReferences() {
	AssertEq(nil, t.VFS.MkDir(t.Ctx, t.Proc, "/a"))
	t.createRegular("/a/f")

	before := t.FS.ActiveVnodes()

	ExpectEq(vfs.ENOENT, t.stat("/a/nosuch"))
	ExpectEq(vfs.ENOTDIR, t.stat("/a/f/x"))
	ExpectEq(vfs.ENOENT, t.stat("/a/nosuch/deeper"))
	ExpectEq(vfs.ENAMETOOLONG, t.stat("/a/"+strings.Repeat("x", vfs.NameMax+1)))
	ExpectEq(vfs.EEXIST, t.VFS.MkDir(t.Ctx, t.Proc, "/a"))
	ExpectEq(vfs.ENOTEMPTY, t.VFS.RmDir(t.Ctx, t.Proc, "/a"))
	ExpectEq(vfs.EISDIR, t.VFS.Unlink(t.Ctx, t.Proc, "/a"))
	ExpectEq(vfs.EEXIST, t.VFS.Link(t.Ctx, t.Proc, "/a/f", "/a/f"))

	_, err := t.VFS.Open(t.Ctx, t.Proc, "/a/nosuch", vfs.O_RDWR)
	ExpectEq(vfs.ENOENT, err)

	ExpectEq(before, t.FS.ActiveVnodes())
}

func (t *PathResolutionTest) createRegular(path string) {
	fd, err := t.VFS.Open(t.Ctx, t.Proc, path, vfs.O_WRONLY|vfs.O_CREAT)
	AssertEq(nil, err)
	AssertEq(nil, t.VFS.Close(t.Proc, fd))
}
