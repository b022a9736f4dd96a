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

// Package vfs implements the virtual file system indirection layer of a
// teaching operating system kernel: the subsystem that translates file
// operations over textual pathnames into calls on concrete file system
// drivers, while owning the lifecycle of in-memory vnodes and the
// per-process file descriptor table.
//
// The layer is built from a small number of pieces:
//
//  *  Vnode, a reference-counted in-memory handle for an inode, carrying a
//     capability-style vtable (see VnodeOps, DirOps, FileOps).
//
//  *  The name resolver (dirNamev, openNamev), which walks slash-separated
//     pathnames component by component while keeping the reference counts
//     of intermediate directories strictly balanced.
//
//  *  File, the kernel-side open file state: one vnode reference, a byte
//     cursor, mode flags, and its own reference count so that dup'd
//     descriptors share a cursor.
//
//  *  Process, which carries a pid, a current working directory (one owned
//     vnode reference) and a fixed-size file descriptor table.
//
//  *  VFS, which holds the file system root, the device registries, and
//     exposes the syscall surface (Open, Read, Write, Close, Dup, Dup2,
//     MkNod, MkDir, RmDir, Link, Unlink, Rename, Chdir, GetDent, Seek,
//     Stat).
//
// Concrete file system drivers implement the vnode capability interfaces;
// see the ramfs package for the bundled in-memory driver.
//
// The kernel this layer is written for schedules cooperatively: vnode
// operations may block (yield) on device I/O, so every vtable call accepts a
// context and the layer is re-entrant at each such call. Pure bookkeeping
// (fd table scans, reference count updates) does not block.
package vfs
