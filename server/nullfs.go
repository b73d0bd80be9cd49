// Package server owns the mount lifecycle: it assembles mount options
// from config, hands the protocol adapter to go-fuse, and exposes
// Serve/Wait/Unmount to callers.
package server

import (
	"github.com/google/uuid"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/mys721tx/nullfs/config"
	"github.com/mys721tx/nullfs/filesystem"
	nfuse "github.com/mys721tx/nullfs/fuse"
	"github.com/mys721tx/nullfs/internal/util"
)

// NullFs contains the filesystem core and its mount state, with
// abstractions over the underlying FUSE wire protocol implementation.
type NullFs struct {
	*filesystem.NullFS
	cfg       *config.Config
	server    *fuse.Server
	sessionID string
}

// New creates a NullFs instance given your config.
func New(cfg *config.Config) *NullFs {
	return &NullFs{
		NullFS: filesystem.New(),
		cfg:    cfg,
	}
}

// mountOptions translates config into go-fuse mount options. Extra -o
// options from the CLI are passed through verbatim.
func (fs *NullFs) mountOptions() *fuse.MountOptions {
	opts := make([]string, 0, len(fs.cfg.Options)+2)
	if fs.cfg.AutoUnmount {
		opts = append(opts, "auto_unmount")
	}
	if fs.cfg.ReadOnly {
		opts = append(opts, "ro")
	} else {
		opts = append(opts, "rw")
	}
	opts = append(opts, fs.cfg.Options...)

	return &fuse.MountOptions{
		Name:     fs.cfg.Name,
		FsName:   fs.cfg.FsName,
		Options:  opts,
		MaxWrite: fs.cfg.MaxWrite,
		Debug:    fs.cfg.Debug || fs.cfg.LogLvl == util.TraceLevel,
		Logger:   util.NewLogLogger("FuseServer", util.DebugLevel),
	}
}

// Serve mounts and serves the filesystem at the given mountPoint.
// It returns once the mount is visible to the kernel; use Wait to
// block until unmount.
func (fs *NullFs) Serve(mountPoint string) error {
	logger := util.GetLogger("Server.Serve")

	fs.sessionID = uuid.NewString()
	raw := nfuse.NewFuseRaw(fs.NullFS, fs.cfg)
	srv, err := fuse.NewServer(raw, mountPoint, fs.mountOptions())
	if err != nil {
		return err
	}
	fs.server = srv

	go srv.Serve()
	if err := srv.WaitMount(); err != nil {
		return err
	}
	logger.Info().Str("session", fs.sessionID).Str("mountpoint", mountPoint).Msg("Filesystem mounted")
	return nil
}

// ServeAsync serves on a goroutine and reports the mount result on the
// returned channel.
func (fs *NullFs) ServeAsync(mountPoint string) <-chan error {
	done := make(chan error, 1)

	go func() {
		done <- fs.Serve(mountPoint)
		close(done)
	}()

	return done
}

// Wait blocks until the filesystem is unmounted, whether by Unmount or
// externally via fusermount -u.
func (fs *NullFs) Wait() {
	if fs.server == nil {
		return
	}
	fs.server.Wait()
}

// Unmount cleanly unmounts the filesystem.
func (fs *NullFs) Unmount() error {
	if fs.server == nil {
		return nil
	}
	return fs.server.Unmount()
}

// SessionID returns the id assigned to the current mount session, or
// "" before Serve.
func (fs *NullFs) SessionID() string {
	return fs.sessionID
}
