package server

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mys721tx/nullfs/config"
	"github.com/mys721tx/nullfs/internal/util"
)

func TestServe_BadMountPoint(t *testing.T) {
	t.Parallel()

	fs := New(config.NewConfig(nil))

	err := fs.Serve(filepath.Join(t.TempDir(), "does_not_exist"))
	require.Error(t, err, "mounting on a missing directory must fail")
}

func TestLifecycle_BeforeServe(t *testing.T) {
	t.Parallel()

	fs := New(config.NewConfig(nil))

	// all lifecycle calls are safe no-ops before a mount exists
	assert.NoError(t, fs.Unmount())
	fs.Wait()
	assert.Empty(t, fs.SessionID())
}

func TestMountOptions_FromConfig(t *testing.T) {
	t.Parallel()

	cfg := config.NewConfig(&config.ConfigOverride{
		Options:  []string{"allow_other"},
		ReadOnly: util.Pointer(true),
	})
	fs := New(cfg)

	opts := fs.mountOptions()

	assert.Equal(t, config.DefaultFsName, opts.FsName)
	assert.Contains(t, opts.Options, "auto_unmount")
	assert.Contains(t, opts.Options, "ro")
	assert.NotContains(t, opts.Options, "rw")
	assert.Contains(t, opts.Options, "allow_other", "extra -o options pass through verbatim")
	assert.Equal(t, config.DefaultMaxWrite, opts.MaxWrite)
	assert.NotNil(t, opts.Logger)
}
