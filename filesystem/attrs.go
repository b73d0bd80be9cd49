package filesystem

import (
	"syscall"

	"github.com/hanwen/go-fuse/v2/fuse"
)

// The two inodes this filesystem ever exposes. Nothing can create,
// rename, or remove an inode, so these are the whole namespace.
const (
	// RootIno is the root directory's inode
	RootIno uint64 = fuse.FUSE_ROOT_ID

	// NullIno is the inode of the single "null" file
	NullIno uint64 = 2

	// NullName is the only name resolvable under the root
	NullName = "null"
)

// Constant handles returned by Open/OpenDir. The kernel echoes them back
// on read/write/release but they carry no state, so a fixed value per
// inode is enough.
const (
	RootHandle uint64 = 1
	NullHandle uint64 = 2
)

// rootAttr and nullAttr are the complete, immutable attribute tables.
// All timestamps are pinned to the epoch and sizes stay zero no matter
// how many bytes are written.
var (
	rootAttr = fuse.Attr{
		Ino:     RootIno,
		Size:    0,
		Blocks:  0,
		Mode:    syscall.S_IFDIR | 0o777,
		Nlink:   2,
		Blksize: 4096,
	}

	nullAttr = fuse.Attr{
		Ino:     NullIno,
		Size:    0,
		Blocks:  1,
		Mode:    syscall.S_IFREG | 0o666,
		Nlink:   1,
		Blksize: 4096,
	}
)

// RootAttr returns a copy of the root directory's attributes.
func RootAttr() fuse.Attr { return rootAttr }

// NullAttr returns a copy of the null file's attributes.
func NullAttr() fuse.Attr { return nullAttr }
