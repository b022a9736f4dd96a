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
	"golang.org/x/net/context"
)

// lookup resolves name within dir via the driver's Lookup operation,
// returning the child with its reference count incremented.
//
// The empty name resolves to dir itself (with a fresh reference); this is
// what a pathname with a trailing slash reduces to. Returns ENOTDIR if dir
// has no lookup capability and ENAMETOOLONG if name exceeds NameMax.
func lookup(ctx context.Context, dir *Vnode, name string) (*Vnode, error) {
	dops, ok := dir.Ops().(DirOps)
	if !ok {
		return nil, ENOTDIR
	}

	if len(name) > NameMax {
		return nil, ENAMETOOLONG
	}

	if name == "" {
		dir.IncRef()
		return dir, nil
	}

	return dops.Lookup(ctx, dir, name)
}

// dirNamev resolves all but the final component of pathname, returning the
// parent directory's vnode and the final component's name.
//
// The walk starts at the root vnode for absolute paths; otherwise at base
// if non-nil, else at proc's working directory. The returned vnode carries
// one reference which the caller inherits. The basename is not looked up
// here: the caller decides whether it must exist.
//
// An empty basename is returned for pathnames ending in a slash (and for
// "/" itself); callers interpret it as "the directory itself", which makes
// a trailing slash an assertion that the path names a directory.
//
// An empty pathname fails with ENOENT. No reference is retained on any
// error return.
func (v *VFS) dirNamev(
	ctx context.Context,
	proc *Process,
	pathname string,
	base *Vnode) (parent *Vnode, name string, err error) {
	if pathname == "" {
		return nil, "", ENOENT
	}

	// Choose the starting vnode; the resolver owns one reference to the
	// current directory at all times.
	cur := base
	if pathname[0] == '/' {
		cur = v.Root()
	} else if cur == nil {
		cur = proc.Cwd()
	}
	cur.IncRef()

	i := 0
	if pathname[0] == '/' {
		i = 1
	}

	last := i
	for {
		for i < len(pathname) && pathname[i] != '/' {
			i++
		}
		token := pathname[last:i]

		// The final token is the basename; the caller inherits the reference
		// held on cur, which is its parent. Empty tokens mid-walk resolve to
		// cur itself, so consecutive slashes are harmless.
		if i == len(pathname) {
			if len(token) > NameMax {
				cur.DecRef()
				return nil, "", ENAMETOOLONG
			}

			return cur, token, nil
		}

		next, err := lookup(ctx, cur, token)
		cur.DecRef()
		if err != nil {
			return nil, "", err
		}

		cur = next
		i++
		last = i
	}
}

// openNamev resolves pathname to its final vnode, returning it with one
// reference the caller inherits. If the final component is absent, O_CREAT
// is set, and the parent supports creation, the file is created.
func (v *VFS) openNamev(
	ctx context.Context,
	proc *Process,
	pathname string,
	flags OpenFlags,
	base *Vnode) (*Vnode, error) {
	parent, name, err := v.dirNamev(ctx, proc, pathname, base)
	if err != nil {
		return nil, err
	}

	vn, err := lookup(ctx, parent, name)
	if err == nil {
		parent.DecRef()
		return vn, nil
	}

	if err == ENOENT && flags&O_CREAT != 0 {
		if c, ok := parent.Ops().(Creator); ok {
			vn, err := c.Create(ctx, parent, name)
			parent.DecRef()
			return vn, err
		}
	}

	parent.DecRef()
	return nil, err
}
