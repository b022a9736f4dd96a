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

// NameMax is the maximum length in bytes of a single path component. The
// resolver applies it per component, not to the whole pathname.
const NameMax = 32

// DirentSize is the size of the user-visible directory entry record: an
// 8-byte inode number followed by a NameMax-byte name field. GetDent
// returns it whenever an entry was produced.
const DirentSize = 8 + NameMax

// A Dirent is one directory entry as produced by GetDent.
//
// INVARIANT: len(Name) <= NameMax
type Dirent struct {
	// The inode number of the entry within its file system.
	Ino InodeID

	// The entry's name within its directory.
	Name string
}
