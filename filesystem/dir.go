package filesystem

import "syscall"

// DirEntry is one row of a directory listing. Off is the entry's
// cookie: enumeration resumed from a cookie continues with the entry
// after it, which is how the kernel recovers from short reads.
type DirEntry struct {
	Ino  uint64
	Mode uint32
	Name string
	Off  uint64
}

// rootEntries is the entire listing of the root directory. ".." points
// back at the root itself since the mount has no parent inside the
// filesystem. Cookies are strictly increasing from 1.
var rootEntries = [3]DirEntry{
	{Ino: RootIno, Mode: syscall.S_IFDIR, Name: ".", Off: 1},
	{Ino: RootIno, Mode: syscall.S_IFDIR, Name: "..", Off: 2},
	{Ino: NullIno, Mode: syscall.S_IFREG, Name: NullName, Off: 3},
}

// DirStream lazily walks the root listing from a resume offset.
// Streams are cheap per-request values; creating one never fails and
// re-creating one from the same offset yields the same entries.
type DirStream struct {
	next int
}

func newDirStream(offset uint64) *DirStream {
	s := &DirStream{}
	for s.next < len(rootEntries) && rootEntries[s.next].Off <= offset {
		s.next++
	}
	return s
}

// HasNext reports whether another entry remains.
func (s *DirStream) HasNext() bool {
	return s.next < len(rootEntries)
}

// Next returns the next entry and advances the stream. Callers must
// check HasNext first.
func (s *DirStream) Next() DirEntry {
	e := rootEntries[s.next]
	s.next++
	return e
}
