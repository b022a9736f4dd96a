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

// vfsh is an interactive shell over the kernel VFS layer, backed by an
// in-memory file system and a console device wired to stdout. It exists to
// poke at the syscall surface by hand.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/jacobsa/timeutil"
	"github.com/minikernel/vfs"
	"github.com/minikernel/vfs/ramfs"
	"github.com/spf13/cobra"
	"golang.org/x/net/context"
)

var consoleDev = vfs.MakeDevID(1, 0)

// A character device that writes through to the host's stdout.
type stdoutConsole struct{}

func (stdoutConsole) ReadAt(
	ctx context.Context,
	p []byte,
	off int64) (int, error) {
	return 0, nil
}

func (stdoutConsole) WriteAt(
	ctx context.Context,
	p []byte,
	off int64) (int, error) {
	return os.Stdout.Write(p)
}

// One shell session: a VFS over a fresh ramfs and a single process.
type shell struct {
	ctx  context.Context
	vfs  *vfs.VFS
	proc *vfs.Process
}

func newShell() *shell {
	v := vfs.New()
	fs := ramfs.New(timeutil.RealClock(), v)
	v.SetRoot(fs.Root())

	if err := v.RegisterByteDevice(consoleDev, stdoutConsole{}); err != nil {
		panic(err)
	}

	s := &shell{
		ctx:  context.Background(),
		vfs:  v,
		proc: v.NewProcess(1),
	}

	if err := v.MkNod(s.ctx, s.proc, "/console", os.ModeDevice|os.ModeCharDevice, consoleDev); err != nil {
		panic(err)
	}

	return s
}

func (s *shell) cat(path string) error {
	fd, err := s.vfs.Open(s.ctx, s.proc, path, vfs.O_RDONLY)
	if err != nil {
		return err
	}
	defer s.vfs.Close(s.proc, fd)

	buf := make([]byte, 512)
	for {
		n, err := s.vfs.Read(s.ctx, s.proc, fd, buf)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}

		os.Stdout.Write(buf[:n])
	}
}

func (s *shell) writeFile(path, contents string) error {
	fd, err := s.vfs.Open(s.ctx, s.proc, path, vfs.O_WRONLY|vfs.O_CREAT|vfs.O_TRUNC)
	if err != nil {
		return err
	}
	defer s.vfs.Close(s.proc, fd)

	_, err = s.vfs.Write(s.ctx, s.proc, fd, []byte(contents))
	return err
}

func (s *shell) ls(path string) error {
	fd, err := s.vfs.Open(s.ctx, s.proc, path, vfs.O_RDONLY)
	if err != nil {
		return err
	}
	defer s.vfs.Close(s.proc, fd)

	var d vfs.Dirent
	for {
		n, err := s.vfs.GetDent(s.ctx, s.proc, fd, &d)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}

		fmt.Printf("%8d  %s\n", d.Ino, d.Name)
	}
}

func (s *shell) stat(path string) error {
	var st vfs.Stat
	if err := s.vfs.Stat(s.ctx, s.proc, path, &st); err != nil {
		return err
	}

	fmt.Printf(
		"ino %d mode %v nlink %d size %d rdev %d mtime %v\n",
		st.Ino, st.Mode, st.Nlink, st.Size, st.Rdev, st.Mtime)
	return nil
}

func (s *shell) dispatch(fields []string) error {
	arg := func(i int) string {
		if i < len(fields) {
			return fields[i]
		}
		return ""
	}

	switch fields[0] {
	case "mkdir":
		return s.vfs.MkDir(s.ctx, s.proc, arg(1))
	case "rmdir":
		return s.vfs.RmDir(s.ctx, s.proc, arg(1))
	case "rm":
		return s.vfs.Unlink(s.ctx, s.proc, arg(1))
	case "ln":
		return s.vfs.Link(s.ctx, s.proc, arg(1), arg(2))
	case "mv":
		return s.vfs.Rename(s.ctx, s.proc, arg(1), arg(2))
	case "cd":
		return s.vfs.Chdir(s.ctx, s.proc, arg(1))
	case "ls":
		path := arg(1)
		if path == "" {
			path = "."
		}
		return s.ls(path)
	case "cat":
		return s.cat(arg(1))
	case "write":
		return s.writeFile(arg(1), strings.Join(fields[2:], " "))
	case "stat":
		return s.stat(arg(1))
	case "help":
		fmt.Println("commands: mkdir rmdir rm ln mv cd ls cat write stat exit")
		return nil
	default:
		return fmt.Errorf("unknown command %q (try \"help\")", fields[0])
	}
}

func (s *shell) run() error {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("vfsh> ")
		if !scanner.Scan() {
			break
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		if fields[0] == "exit" {
			break
		}

		if err := s.dispatch(fields); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}

	s.proc.Exit()
	return scanner.Err()
}

func main() {
	root := &cobra.Command{
		Use:   "vfsh",
		Short: "Interactive shell over the kernel VFS layer",
		Long: "vfsh drives the VFS syscall surface (open, read, write, link, " +
			"...) against an in-memory file system, from a line-oriented prompt.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return newShell().run()
		},
	}

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
