package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vsearch/internal/cache"
)

func TestNewCLIDepsDefaultsToInMemoryBlockCache(t *testing.T) {
	root := NewRootCmd()
	require.NoError(t, root.ParseFlags(nil))

	deps, err := newCLIDeps(root)
	require.NoError(t, err)
	defer deps.Close()

	require.NotNil(t, deps.blockCache)
	assert.IsType(t, &cache.ShardedLRUBlockCache{}, deps.blockCache)
}

func TestNewCLIDepsZeroCacheBytesDisablesCaching(t *testing.T) {
	root := NewRootCmd()
	require.NoError(t, root.ParseFlags([]string{"--cache-bytes=0"}))

	deps, err := newCLIDeps(root)
	require.NoError(t, err)
	defer deps.Close()

	assert.Nil(t, deps.blockCache)
}

func TestNewCLIDepsDiskCacheDirSelectsDiskBlockCache(t *testing.T) {
	root := NewRootCmd()
	require.NoError(t, root.ParseFlags([]string{"--disk-cache-dir=" + filepath.Join(t.TempDir(), "blockcache")}))

	deps, err := newCLIDeps(root)
	require.NoError(t, err)
	defer deps.Close()

	require.NotNil(t, deps.blockCache)
	assert.IsType(t, &cache.DiskBlockCache{}, deps.blockCache)
}
