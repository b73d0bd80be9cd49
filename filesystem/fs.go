// Package filesystem implements the null filesystem's operation
// dispatch: every FUSE operation is answered from two immutable
// inodes, a root directory and a data-discarding "null" file.
//
// Error policy is two-tier and deliberate: an identifier that resolves
// to neither inode is an identity error (ENOENT), while an identifier
// that resolves but names the wrong kind of object for the operation
// is a kind error (EPERM). Kernel clients key caching and retry
// behavior off that distinction, so it must hold for every operation.
package filesystem

import (
	"path"

	"github.com/hanwen/go-fuse/v2/fuse"
)

// NullFS answers every filesystem operation from the two fixed inodes.
// It holds no mutable state, so it is safe for concurrent dispatch
// from any number of kernel request threads.
type NullFS struct{}

// New returns the filesystem core.
func New() *NullFS {
	return &NullFS{}
}

type kind int

const (
	kindDir kind = iota
	kindFile
)

// kindCheck implements the two-tier error policy for inode-addressed
// operations: unknown inodes fail with ENOENT, known inodes of the
// wrong kind fail with EPERM.
func kindCheck(ino uint64, want kind) fuse.Status {
	switch ino {
	case RootIno:
		if want == kindDir {
			return fuse.OK
		}
		return fuse.EPERM
	case NullIno:
		if want == kindFile {
			return fuse.OK
		}
		return fuse.EPERM
	}
	return fuse.ENOENT
}

// Lookup resolves name under parent. The only resolvable entry is
// "null" under the root.
func (fs *NullFS) Lookup(parent uint64, name string) (fuse.Attr, fuse.Status) {
	if parent == RootIno && name == NullName {
		return nullAttr, fuse.OK
	}
	return fuse.Attr{}, fuse.ENOENT
}

// GetAttr returns the fixed attributes for either inode.
func (fs *NullFS) GetAttr(ino uint64) (fuse.Attr, fuse.Status) {
	switch ino {
	case RootIno:
		return rootAttr, fuse.OK
	case NullIno:
		return nullAttr, fuse.OK
	}
	return fuse.Attr{}, fuse.ENOENT
}

// SetAttr accepts and silently discards every requested change,
// echoing the current attributes back. Chmod, chown, truncate and
// utimes all appear to succeed without taking effect.
func (fs *NullFS) SetAttr(ino uint64) (fuse.Attr, fuse.Status) {
	return fs.GetAttr(ino)
}

// Read always returns an empty byte sequence for the null file,
// regardless of offset or requested size and regardless of any
// prior writes.
func (fs *NullFS) Read(ino uint64, off uint64, size uint32) ([]byte, fuse.Status) {
	if ino != NullIno {
		return nil, fuse.ENOENT
	}
	return []byte{}, fuse.OK
}

// Write reports every byte as written and retains none of them.
// Offsets beyond the reported size (always 0) are fine; there is no
// content for them to land in.
func (fs *NullFS) Write(ino uint64, off uint64, data []byte) (uint32, fuse.Status) {
	if ino != NullIno {
		return 0, fuse.ENOENT
	}
	return uint32(len(data)), fuse.OK
}

// ReadDir enumerates the root directory from the given resume offset.
// The stream is restartable: enumerating from any previously returned
// cookie yields exactly the remaining entries.
func (fs *NullFS) ReadDir(ino uint64, offset uint64) (*DirStream, fuse.Status) {
	if ino != RootIno {
		return nil, fuse.ENOENT
	}
	return newDirStream(offset), fuse.OK
}

// Open opens the null file for byte I/O and returns its constant
// handle with the caller's flags untouched.
func (fs *NullFS) Open(ino uint64, flags uint32) (fh uint64, outFlags uint32, status fuse.Status) {
	if status := kindCheck(ino, kindFile); status != fuse.OK {
		return 0, 0, status
	}
	return NullHandle, flags, fuse.OK
}

// OpenDir opens the root directory for listing.
func (fs *NullFS) OpenDir(ino uint64, flags uint32) (fh uint64, outFlags uint32, status fuse.Status) {
	if status := kindCheck(ino, kindDir); status != fuse.OK {
		return 0, 0, status
	}
	return RootHandle, flags, fuse.OK
}

// Flush succeeds for the null file; there is nothing to flush.
func (fs *NullFS) Flush(ino uint64) fuse.Status {
	return kindCheck(ino, kindFile)
}

// Release closes a file handle. No side effect; mirrors Open's
// permission split.
func (fs *NullFS) Release(ino uint64) fuse.Status {
	return kindCheck(ino, kindFile)
}

// Fsync succeeds for the null file; no data ever reaches storage.
func (fs *NullFS) Fsync(ino uint64) fuse.Status {
	return kindCheck(ino, kindFile)
}

// ReleaseDir closes a directory handle, mirroring OpenDir's
// permission split.
func (fs *NullFS) ReleaseDir(ino uint64) fuse.Status {
	return kindCheck(ino, kindDir)
}

// FsyncDir succeeds for the root directory.
func (fs *NullFS) FsyncDir(ino uint64) fuse.Status {
	return kindCheck(ino, kindDir)
}

// Create pretends to create (parent, name) but can only ever hand back
// the already-existing null file, as if newly created. Every other
// name is a namespace mutation and is refused.
func (fs *NullFS) Create(parent uint64, name string, flags uint32) (fuse.Attr, uint64, fuse.Status) {
	if parent == RootIno && name == NullName {
		return nullAttr, NullHandle, fuse.OK
	}
	return fuse.Attr{}, 0, fuse.EPERM
}

// Mknod behaves like Create without opening a handle.
func (fs *NullFS) Mknod(parent uint64, name string) (fuse.Attr, fuse.Status) {
	if parent == RootIno && name == NullName {
		return nullAttr, fuse.OK
	}
	return fuse.Attr{}, fuse.EPERM
}

// Access always grants: the fixed permission bits are world-rwx and
// world-rw, so no mask can be refused.
func (fs *NullFS) Access(ino uint64, mask uint32) fuse.Status {
	switch ino {
	case RootIno, NullIno:
		return fuse.OK
	}
	return fuse.ENOENT
}

// GetXAttr reports that no extended attribute exists. A size-0 probe
// succeeds with length 0; any real buffer can never be filled, so a
// non-zero size fails with ERANGE.
func (fs *NullFS) GetXAttr(ino uint64, attr string, size uint32) (uint32, fuse.Status) {
	switch ino {
	case RootIno, NullIno:
	default:
		return 0, fuse.ENOENT
	}
	if size > 0 {
		return 0, fuse.ERANGE
	}
	return 0, fuse.OK
}

// ListXAttr reports an empty attribute list for either inode.
func (fs *NullFS) ListXAttr(ino uint64) (uint32, fuse.Status) {
	switch ino {
	case RootIno, NullIno:
		return 0, fuse.OK
	}
	return 0, fuse.ENOENT
}

// Unlink refuses to remove any name: the namespace is immutable.
// Unknown parents are still an identity error.
func (fs *NullFS) Unlink(parent uint64, name string) fuse.Status {
	if status := kindCheck(parent, kindDir); status != fuse.OK {
		return status
	}
	return fuse.EPERM
}

// Rmdir refuses like Unlink; there is no removable directory.
func (fs *NullFS) Rmdir(parent uint64, name string) fuse.Status {
	if status := kindCheck(parent, kindDir); status != fuse.OK {
		return status
	}
	return fuse.EPERM
}

// Rename refuses any rename once both directories resolve.
func (fs *NullFS) Rename(parent, newParent uint64) fuse.Status {
	if status := kindCheck(parent, kindDir); status != fuse.OK {
		return status
	}
	if status := kindCheck(newParent, kindDir); status != fuse.OK {
		return status
	}
	return fuse.EPERM
}

// Mkdir refuses to grow the namespace.
func (fs *NullFS) Mkdir(parent uint64, name string) fuse.Status {
	if status := kindCheck(parent, kindDir); status != fuse.OK {
		return status
	}
	return fuse.EPERM
}

// Symlink refuses to grow the namespace.
func (fs *NullFS) Symlink(parent uint64, name string) fuse.Status {
	if status := kindCheck(parent, kindDir); status != fuse.OK {
		return status
	}
	return fuse.EPERM
}

// Link refuses to grow the namespace.
func (fs *NullFS) Link(parent uint64, name string) fuse.Status {
	if status := kindCheck(parent, kindDir); status != fuse.OK {
		return status
	}
	return fuse.EPERM
}

// Resolve maps an absolute path onto an inode for path-addressed
// bridges: "/" resolves to the root, "/null" to the null file. After
// resolution the inode-addressed policy applies unchanged.
func (fs *NullFS) Resolve(p string) (uint64, fuse.Status) {
	switch path.Clean("/" + p) {
	case "/":
		return RootIno, fuse.OK
	case "/" + NullName:
		return NullIno, fuse.OK
	}
	return 0, fuse.ENOENT
}
