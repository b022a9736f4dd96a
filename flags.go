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

// OpenFlags is the flag word accepted by Open. The lowest two bits encode
// the access mode; the remaining defined bits modify the open. Any other
// bit is rejected with EINVAL.
type OpenFlags uint32

const (
	O_RDONLY OpenFlags = 0
	O_WRONLY OpenFlags = 1
	O_RDWR   OpenFlags = 2

	// Create the file if it does not exist.
	O_CREAT OpenFlags = 0x100

	// Truncate a regular file to zero length on open for writing.
	O_TRUNC OpenFlags = 0x200

	// All writes go to the end of the file. A descriptor opened with
	// O_APPEND accepts writes even when its access mode is O_RDONLY.
	O_APPEND OpenFlags = 0x400
)

const accessMask OpenFlags = 0x3

// AccessMode returns the access-mode bits of the flag word.
func (f OpenFlags) AccessMode() OpenFlags {
	return f & accessMask
}

// valid reports whether the flag word is one this layer accepts: a defined
// access mode and no unknown bits.
func (f OpenFlags) valid() bool {
	if f.AccessMode() == accessMask {
		return false
	}

	return f&^(accessMask|O_CREAT|O_TRUNC|O_APPEND) == 0
}

// FMode describes what an open file object may be used for. Set once by
// Open from the open flags.
type FMode uint32

const (
	FModeRead FMode = 1 << iota
	FModeWrite
	FModeAppend
)

// Whence values for Seek.
const (
	SeekSet = 0
	SeekCur = 1
	SeekEnd = 2
)
