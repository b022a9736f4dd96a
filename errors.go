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
	"golang.org/x/sys/unix"
)

// Errno is the error number type used throughout the layer. File system
// drivers and device drivers must report failures using these values; the
// syscall layer recovers nothing and propagates the first failure it sees.
type Errno = unix.Errno

const (
	// Unknown or closed fd, or mismatched access mode on read/write.
	EBADF = unix.EBADF

	// Invalid flag combination, invalid whence, negative resulting offset,
	// mknod with a non-device mode, rmdir of ".".
	EINVAL = unix.EINVAL

	// No free slot in the process's file descriptor table.
	EMFILE = unix.EMFILE

	// File object allocation failed.
	ENOMEM = unix.ENOMEM

	// Missing intermediate or terminal path component.
	ENOENT = unix.ENOENT

	// Target already exists on create/mkdir/mknod/link.
	EEXIST = unix.EEXIST

	// Write access requested on a directory, or unlink of a directory.
	EISDIR = unix.EISDIR

	// Non-directory used as a directory.
	ENOTDIR = unix.ENOTDIR

	// rmdir of a non-empty directory, or a path ending in "..".
	ENOTEMPTY = unix.ENOTEMPTY

	// A path component exceeds NameMax.
	ENAMETOOLONG = unix.ENAMETOOLONG

	// A device special file references an absent device.
	ENXIO = unix.ENXIO

	// Hard link across file systems.
	EXDEV = unix.EXDEV

	// Output buffer too small.
	ERANGE = unix.ERANGE
)
