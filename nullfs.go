// Package nullfs mounts a two-inode FUSE filesystem: a root directory
// holding a single file named "null" that discards writes and reads
// back empty.
package nullfs

import (
	"github.com/mys721tx/nullfs/config"
	"github.com/mys721tx/nullfs/server"
)

// New creates a NullFs instance given your config.
func New(cfg *config.Config) *server.NullFs {
	return server.New(cfg)
}
