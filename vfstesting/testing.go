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

// Package vfstesting provides common scaffolding for tests that drive the
// VFS syscall surface: a fully wired kernel context (VFS + ramfs + process
// + fake devices) and device fakes usable on their own.
package vfstesting

import (
	"fmt"
	"os"
	"time"

	"github.com/jacobsa/ogletest"
	"github.com/jacobsa/timeutil"
	"github.com/minikernel/vfs"
	"github.com/minikernel/vfs/ramfs"
	"golang.org/x/net/context"
)

// Device IDs registered by VFSTest.SetUp.
var (
	ConsoleDev = vfs.MakeDevID(1, 0)
	NullDev    = vfs.MakeDevID(1, 3)
	DiskDev    = vfs.MakeDevID(2, 0)
)

// A struct that implements common behavior needed by tests of the syscall
// layer. Use it as an embedded field in your test fixture; its SetUp wires
// a VFS over a fresh ramfs, creates a process, and reserves descriptors
// 0 through 2 on the console device, the way the kernel proper sets up a
// new process's stdio.
type VFSTest struct {
	// A context object that can be used for VFS operations.
	Ctx context.Context

	// A clock with a fixed initial time, wired into the file system.
	Clock timeutil.SimulatedClock

	VFS  *vfs.VFS
	FS   *ramfs.FileSystem
	Proc *vfs.Process

	// The fake devices registered with the VFS.
	Console *ConsoleDevice
	Disk    *RAMDisk
}

func (t *VFSTest) SetUp(ti *ogletest.TestInfo) {
	t.Ctx = context.Background()
	t.Clock.SetTime(time.Date(2012, 8, 15, 22, 56, 0, 0, time.Local))

	t.VFS = vfs.New()
	t.FS = ramfs.New(&t.Clock, t.VFS)
	t.VFS.SetRoot(t.FS.Root())
	t.Proc = t.VFS.NewProcess(1)

	t.Console = &ConsoleDevice{}
	t.Disk = NewRAMDisk(512, 8)

	if err := t.VFS.RegisterByteDevice(ConsoleDev, t.Console); err != nil {
		panic(fmt.Errorf("RegisterByteDevice: %v", err))
	}
	if err := t.VFS.RegisterByteDevice(NullDev, NullDevice{}); err != nil {
		panic(fmt.Errorf("RegisterByteDevice: %v", err))
	}
	if err := t.VFS.RegisterBlockDevice(DiskDev, t.Disk); err != nil {
		panic(fmt.Errorf("RegisterBlockDevice: %v", err))
	}

	err := t.VFS.MkNod(
		t.Ctx,
		t.Proc,
		"/console",
		os.ModeDevice|os.ModeCharDevice,
		ConsoleDev)
	if err != nil {
		panic(fmt.Errorf("MkNod: %v", err))
	}

	for fd := 0; fd <= 2; fd++ {
		got, err := t.VFS.Open(t.Ctx, t.Proc, "/console", vfs.O_RDWR)
		if err != nil {
			panic(fmt.Errorf("Open console: %v", err))
		}
		if got != fd {
			panic(fmt.Errorf("Unexpected console fd: %d", got))
		}
	}
}

// TearDown exits the process and verifies that reference counts balanced:
// afterward the only vnode on loan must be the root held by the VFS
// itself. Panics otherwise, so that no leak goes unnoticed.
func (t *VFSTest) TearDown() {
	t.Proc.Exit()
	t.FS.CheckInvariants()

	if n := t.FS.ActiveVnodes(); n != 1 {
		panic(fmt.Errorf("vnode leak: %d vnodes still active after exit", n))
	}
}
