// Package fuse adapts the filesystem core to the go-fuse raw wire
// protocol. It is glue: every opcode unpacks its input struct, calls
// the matching core method, and packs the typed result or status back
// into the reply. See https://www.man7.org/linux/man-pages/man4/fuse.4.html
package fuse

import (
	"sync/atomic"
	"time"

	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/mys721tx/nullfs/config"
	"github.com/mys721tx/nullfs/filesystem"
	"github.com/mys721tx/nullfs/internal/util"
)

// FuseRaw implements the low-level FUSE wire protocol over the
// filesystem core. Opcodes the core has no opinion on fall through to
// the embedded default (ENOSYS).
type FuseRaw struct {
	fuse.RawFileSystem
	fs     *filesystem.NullFS
	server *fuse.Server

	attrTTL  time.Duration
	entryTTL time.Duration

	// Outstanding open handles per inode, for unmount diagnostics.
	// The core itself stays stateless; this bookkeeping is bridge-side
	// only and never influences a response.
	opens *xsync.Map[uint64, *atomic.Int64]
}

// NewFuseRaw wires the core into a raw protocol adapter.
func NewFuseRaw(fs *filesystem.NullFS, cfg *config.Config) *FuseRaw {
	r := &FuseRaw{
		RawFileSystem: fuse.NewDefaultRawFileSystem(),
		fs:            fs,
		attrTTL:       time.Duration(cfg.AttrTimeout * float64(time.Second)),
		entryTTL:      time.Duration(cfg.EntryTimeout * float64(time.Second)),
		opens:         xsync.NewMap[uint64, *atomic.Int64](),
	}
	r.opens.Store(filesystem.RootIno, &atomic.Int64{})
	r.opens.Store(filesystem.NullIno, &atomic.Int64{})
	return r
}

func (r *FuseRaw) String() string {
	return "nullfs"
}

func (r *FuseRaw) Init(s *fuse.Server) {
	logger := util.GetLogger("Fuse.Init")
	logger.Debug().Msg("FUSE initialized")
	r.server = s
}

func (r *FuseRaw) OnUnmount() {
	logger := util.GetLogger("Fuse.OnUnmount")
	r.opens.Range(func(ino uint64, n *atomic.Int64) bool {
		if open := n.Load(); open != 0 {
			logger.Warn().Uint64("ino", ino).Int64("open", open).Msg("Handles still open at unmount")
		}
		return true
	})
	logger.Info().Msg("FUSE unmounted")
}

// track records an open (+1) or release (-1) against an inode.
func (r *FuseRaw) track(ino uint64, delta int64) {
	if n, ok := r.opens.Load(ino); ok {
		n.Add(delta)
	}
}

// OpenCount returns the number of outstanding handles for an inode.
func (r *FuseRaw) OpenCount(ino uint64) int64 {
	if n, ok := r.opens.Load(ino); ok {
		return n.Load()
	}
	return 0
}

// fillEntry packs attributes into an EntryOut with the configured
// cache windows. Generation stays 0: inode numbers are never reused.
func (r *FuseRaw) fillEntry(out *fuse.EntryOut, attr fuse.Attr) {
	out.NodeId = attr.Ino
	out.Generation = 0
	out.Attr = attr
	out.SetEntryTimeout(r.entryTTL)
	out.SetAttrTimeout(r.attrTTL)
}

func (r *FuseRaw) Lookup(cancel <-chan struct{}, header *fuse.InHeader, name string, out *fuse.EntryOut) fuse.Status {
	logger := util.GetLogger("Fuse.Lookup")
	logger.Debug().Uint64("parent", header.NodeId).Str("name", name).Msg("Lookup called")

	attr, status := r.fs.Lookup(header.NodeId, name)
	if status != fuse.OK {
		return status
	}
	r.fillEntry(out, attr)
	return fuse.OK
}

// Forget is a no-op: the inode table is compiled in and nothing is
// ever evicted.
func (r *FuseRaw) Forget(nodeid, nlookup uint64) {}

func (r *FuseRaw) GetAttr(cancel <-chan struct{}, input *fuse.GetAttrIn, out *fuse.AttrOut) fuse.Status {
	attr, status := r.fs.GetAttr(input.NodeId)
	if status != fuse.OK {
		return status
	}
	out.Attr = attr
	out.SetTimeout(r.attrTTL)
	return fuse.OK
}

// SetAttr accepts any change request and echoes the unchanged
// attributes, matching the core's discard-everything policy.
func (r *FuseRaw) SetAttr(cancel <-chan struct{}, input *fuse.SetAttrIn, out *fuse.AttrOut) fuse.Status {
	logger := util.GetLogger("Fuse.SetAttr")
	logger.Debug().Uint64("ino", input.NodeId).Uint32("valid", input.Valid).Msg("SetAttr called (ignored)")

	attr, status := r.fs.SetAttr(input.NodeId)
	if status != fuse.OK {
		return status
	}
	out.Attr = attr
	out.SetTimeout(r.attrTTL)
	return fuse.OK
}

func (r *FuseRaw) Open(cancel <-chan struct{}, input *fuse.OpenIn, out *fuse.OpenOut) fuse.Status {
	fh, flags, status := r.fs.Open(input.NodeId, input.Flags)
	if status != fuse.OK {
		return status
	}
	out.Fh = fh
	out.OpenFlags = flags
	r.track(input.NodeId, 1)
	return fuse.OK
}

func (r *FuseRaw) OpenDir(cancel <-chan struct{}, input *fuse.OpenIn, out *fuse.OpenOut) fuse.Status {
	fh, flags, status := r.fs.OpenDir(input.NodeId, input.Flags)
	if status != fuse.OK {
		return status
	}
	out.Fh = fh
	out.OpenFlags = flags
	r.track(input.NodeId, 1)
	return fuse.OK
}

func (r *FuseRaw) Read(cancel <-chan struct{}, input *fuse.ReadIn, buf []byte) (fuse.ReadResult, fuse.Status) {
	data, status := r.fs.Read(input.NodeId, input.Offset, input.Size)
	if status != fuse.OK {
		return nil, status
	}
	return fuse.ReadResultData(data), fuse.OK
}

func (r *FuseRaw) Write(cancel <-chan struct{}, input *fuse.WriteIn, data []byte) (uint32, fuse.Status) {
	logger := util.GetLogger("Fuse.Write")
	logger.Trace().Uint64("ino", input.NodeId).Uint64("offset", input.Offset).Int("len", len(data)).Msg("Write called")

	return r.fs.Write(input.NodeId, input.Offset, data)
}

func (r *FuseRaw) ReadDir(cancel <-chan struct{}, input *fuse.ReadIn, out *fuse.DirEntryList) fuse.Status {
	logger := util.GetLogger("Fuse.ReadDir")
	logger.Debug().Uint64("ino", input.NodeId).Uint64("offset", input.Offset).Msg("ReadDir called")

	stream, status := r.fs.ReadDir(input.NodeId, input.Offset)
	if status != fuse.OK {
		return status
	}
	for stream.HasNext() {
		e := stream.Next()
		if !out.AddDirEntry(fuse.DirEntry{Ino: e.Ino, Mode: e.Mode, Name: e.Name, Off: e.Off}) {
			// Reply buffer is full; the kernel resumes from the last
			// cookie it received.
			break
		}
	}
	return fuse.OK
}

func (r *FuseRaw) ReadDirPlus(cancel <-chan struct{}, input *fuse.ReadIn, out *fuse.DirEntryList) fuse.Status {
	stream, status := r.fs.ReadDir(input.NodeId, input.Offset)
	if status != fuse.OK {
		return status
	}
	for stream.HasNext() {
		e := stream.Next()
		entryOut := out.AddDirLookupEntry(fuse.DirEntry{Ino: e.Ino, Mode: e.Mode, Name: e.Name, Off: e.Off})
		if entryOut == nil {
			break
		}
		*entryOut = fuse.EntryOut{}
		if e.Name == "." || e.Name == ".." {
			// No lookup counts for the dot entries.
			continue
		}
		if attr, st := r.fs.Lookup(input.NodeId, e.Name); st == fuse.OK {
			r.fillEntry(entryOut, attr)
		}
	}
	return fuse.OK
}

func (r *FuseRaw) Release(cancel <-chan struct{}, input *fuse.ReleaseIn) {
	// The raw protocol sends no reply for Release; the core's verdict
	// is still recorded for diagnostics.
	if status := r.fs.Release(input.NodeId); status != fuse.OK {
		logger := util.GetLogger("Fuse.Release")
		logger.Warn().Uint64("ino", input.NodeId).Str("status", status.String()).Msg("Release on invalid inode")
		return
	}
	r.track(input.NodeId, -1)
}

func (r *FuseRaw) ReleaseDir(input *fuse.ReleaseIn) {
	if status := r.fs.ReleaseDir(input.NodeId); status != fuse.OK {
		logger := util.GetLogger("Fuse.ReleaseDir")
		logger.Warn().Uint64("ino", input.NodeId).Str("status", status.String()).Msg("ReleaseDir on invalid inode")
		return
	}
	r.track(input.NodeId, -1)
}

func (r *FuseRaw) Flush(cancel <-chan struct{}, input *fuse.FlushIn) fuse.Status {
	return r.fs.Flush(input.NodeId)
}

func (r *FuseRaw) Fsync(cancel <-chan struct{}, input *fuse.FsyncIn) fuse.Status {
	return r.fs.Fsync(input.NodeId)
}

func (r *FuseRaw) FsyncDir(cancel <-chan struct{}, input *fuse.FsyncIn) fuse.Status {
	return r.fs.FsyncDir(input.NodeId)
}

func (r *FuseRaw) Create(cancel <-chan struct{}, input *fuse.CreateIn, name string, out *fuse.CreateOut) fuse.Status {
	logger := util.GetLogger("Fuse.Create")
	logger.Debug().Uint64("parent", input.NodeId).Str("name", name).Msg("Create called")

	attr, fh, status := r.fs.Create(input.NodeId, name, input.Flags)
	if status != fuse.OK {
		return status
	}
	r.fillEntry(&out.EntryOut, attr)
	out.Fh = fh
	out.OpenFlags = input.Flags
	r.track(attr.Ino, 1)
	return fuse.OK
}

func (r *FuseRaw) Mknod(cancel <-chan struct{}, input *fuse.MknodIn, name string, out *fuse.EntryOut) fuse.Status {
	attr, status := r.fs.Mknod(input.NodeId, name)
	if status != fuse.OK {
		return status
	}
	r.fillEntry(out, attr)
	return fuse.OK
}

func (r *FuseRaw) Mkdir(cancel <-chan struct{}, input *fuse.MkdirIn, name string, out *fuse.EntryOut) fuse.Status {
	return r.fs.Mkdir(input.NodeId, name)
}

func (r *FuseRaw) Unlink(cancel <-chan struct{}, header *fuse.InHeader, name string) fuse.Status {
	return r.fs.Unlink(header.NodeId, name)
}

func (r *FuseRaw) Rmdir(cancel <-chan struct{}, header *fuse.InHeader, name string) fuse.Status {
	return r.fs.Rmdir(header.NodeId, name)
}

func (r *FuseRaw) Rename(cancel <-chan struct{}, input *fuse.RenameIn, oldName string, newName string) fuse.Status {
	return r.fs.Rename(input.NodeId, input.Newdir)
}

func (r *FuseRaw) Symlink(cancel <-chan struct{}, header *fuse.InHeader, pointedTo string, linkName string, out *fuse.EntryOut) fuse.Status {
	return r.fs.Symlink(header.NodeId, linkName)
}

func (r *FuseRaw) Link(cancel <-chan struct{}, input *fuse.LinkIn, name string, out *fuse.EntryOut) fuse.Status {
	return r.fs.Link(input.NodeId, name)
}

// Access always succeeds for the two inodes; permission bits are
// world-open so no mask can fail.
func (r *FuseRaw) Access(cancel <-chan struct{}, input *fuse.AccessIn) fuse.Status {
	return r.fs.Access(input.NodeId, input.Mask)
}

func (r *FuseRaw) GetXAttr(cancel <-chan struct{}, header *fuse.InHeader, attr string, dest []byte) (uint32, fuse.Status) {
	return r.fs.GetXAttr(header.NodeId, attr, uint32(len(dest)))
}

func (r *FuseRaw) ListXAttr(cancel <-chan struct{}, header *fuse.InHeader, dest []byte) (uint32, fuse.Status) {
	return r.fs.ListXAttr(header.NodeId)
}

// StatFs reports an empty filesystem so df and friends do not error
// against the mount.
func (r *FuseRaw) StatFs(cancel <-chan struct{}, input *fuse.InHeader, out *fuse.StatfsOut) fuse.Status {
	out.NameLen = 255
	out.Bsize = 4096
	return fuse.OK
}
