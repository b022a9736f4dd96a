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
	"fmt"
	"os"
	"time"

	"github.com/jacobsa/timeutil"
	"github.com/minikernel/vfs"
)

// One directory entry within an inode. An entry with inode zero is unused.
type dirEntry struct {
	name string
	ino  vfs.InodeID
}

// Common storage for directories, regular files, and device special files.
// All state is guarded by the owning file system's lock.
type inode struct {
	/////////////////////////
	// Dependencies
	/////////////////////////

	clock timeutil.Clock

	/////////////////////////
	// Constant data
	/////////////////////////

	// INVARIANT: mode &^ (os.ModePerm|os.ModeDir|os.ModeDevice|os.ModeCharDevice) == 0
	mode os.FileMode

	// The device ID for special files; zero otherwise.
	rdev vfs.DevID

	/////////////////////////
	// Mutable state
	/////////////////////////

	// The number of directory entries referring to this inode. For
	// directories this includes "." and the child's entry in its parent.
	//
	// INVARIANT: nlink >= 0
	nlink int

	// For directories, the children. This array can never be shortened, nor
	// can its elements be moved, because its indices are the readdir
	// positions exposed to users who may be reading the directory in a loop
	// while concurrently modifying it. Unused entries can, however, be
	// reused.
	//
	// INVARIANT: If !isDir(), len(entries) == 0
	// INVARIANT: Contains no duplicate names in used entries.
	entries []dirEntry

	// For regular files, the current contents.
	//
	// INVARIANT: If !isFile(), len(contents) == 0
	contents []byte

	// Time information.
	atime time.Time
	mtime time.Time
	ctime time.Time
}

// Create an inode with the supplied mode. Time fields are initialized from
// the clock.
func newInode(
	clock timeutil.Clock,
	mode os.FileMode,
	rdev vfs.DevID) *inode {
	now := clock.Now()
	return &inode{
		clock: clock,
		mode:  mode,
		rdev:  rdev,
		atime: now,
		mtime: now,
		ctime: now,
	}
}

func (in *inode) checkInvariants() {
	// INVARIANT: mode contains only permission and supported type bits.
	if in.mode&^(os.ModePerm|os.ModeDir|os.ModeDevice|os.ModeCharDevice) != 0 {
		panic(fmt.Sprintf("Unexpected mode: %v", in.mode))
	}

	// INVARIANT: nlink >= 0
	if in.nlink < 0 {
		panic(fmt.Sprintf("Unexpected nlink: %d", in.nlink))
	}

	// INVARIANT: If !isDir(), len(entries) == 0
	if !in.isDir() && len(in.entries) != 0 {
		panic(fmt.Sprintf("Unexpected entries length: %d", len(in.entries)))
	}

	// INVARIANT: Contains no duplicate names in used entries.
	childNames := make(map[string]struct{})
	for _, e := range in.entries {
		if e.ino != 0 {
			if _, ok := childNames[e.name]; ok {
				panic(fmt.Sprintf("Duplicate name: %s", e.name))
			}

			childNames[e.name] = struct{}{}
		}
	}

	// INVARIANT: If !isFile(), len(contents) == 0
	if !in.isFile() && len(in.contents) != 0 {
		panic(fmt.Sprintf("Unexpected contents length: %d", len(in.contents)))
	}
}

func (in *inode) isDir() bool {
	return in.mode&os.ModeDir != 0
}

func (in *inode) isDevice() bool {
	return in.mode&(os.ModeDevice|os.ModeCharDevice) != 0
}

func (in *inode) isFile() bool {
	return !(in.isDir() || in.isDevice())
}

////////////////////////////////////////////////////////////////////////
// Directory entry manipulation
////////////////////////////////////////////////////////////////////////

// Find the used entry with the given name.
//
// REQUIRES: in.isDir()
func (in *inode) findEntry(name string) (vfs.InodeID, bool) {
	for _, e := range in.entries {
		if e.ino != 0 && e.name == name {
			return e.ino, true
		}
	}

	return 0, false
}

// Add an entry, filling a gap in the table if possible.
//
// REQUIRES: in.isDir()
// REQUIRES: No used entry with the given name exists.
func (in *inode) addEntry(name string, ino vfs.InodeID) {
	e := dirEntry{name: name, ino: ino}

	for i := range in.entries {
		if in.entries[i].ino == 0 {
			in.entries[i] = e
			return
		}
	}

	in.entries = append(in.entries, e)
}

// Mark the entry with the given name unused.
//
// REQUIRES: in.isDir()
// REQUIRES: An entry with the given name exists.
func (in *inode) removeEntry(name string) {
	for i := range in.entries {
		if in.entries[i].ino != 0 && in.entries[i].name == name {
			in.entries[i] = dirEntry{}
			return
		}
	}

	panic(fmt.Sprintf("Unknown entry: %s", name))
}

// Return the number of used entries besides "." and "..".
//
// REQUIRES: in.isDir()
func (in *inode) childCount() int {
	n := 0
	for _, e := range in.entries {
		if e.ino != 0 && e.name != "." && e.name != ".." {
			n++
		}
	}

	return n
}

// Produce the used entry at or after the given position, returning the
// number of positions consumed up to and including it. Returns 0 at the
// end of the directory.
//
// REQUIRES: in.isDir()
func (in *inode) readDirAt(pos int64, d *vfs.Dirent) int {
	for i := pos; i < int64(len(in.entries)); i++ {
		e := in.entries[i]
		if e.ino == 0 {
			continue
		}

		d.Ino = e.ino
		d.Name = e.name
		return int(i - pos + 1)
	}

	return 0
}

// touch updates the modification time.
func (in *inode) touch() {
	in.mtime = in.clock.Now()
}
