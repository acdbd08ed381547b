package zoo

import (
	"path/filepath"
	"testing"

	"github.com/containerd/errdefs"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
	"gotest.tools/v3/fs"

	"github.com/docker/model-zoo/pkg/logging"
	"github.com/docker/model-zoo/pkg/weights/oci"
)

func TestNewFactoryFromConfig(t *testing.T) {
	dir := fs.NewDir(t, "zoo-config")
	cache := filepath.Join(dir.Path(), "cache")

	f, err := NewFactoryFromConfig(Config{CacheDir: cache}, logging.Discard())
	assert.NilError(t, err)
	assert.Equal(t, f.source.Name(), SourceHuggingFace)
	assert.Equal(t, f.store.RootPath(), cache)
	assert.Assert(t, f.memory != nil)
	assert.Equal(t, f.Catalog().Len(), 38)

	f, err = NewFactoryFromConfig(Config{
		CacheDir:           cache,
		Source:             SourceOCI,
		Mirror:             "registry.example.com/zoo",
		Platform:           "linux/arm64",
		DisableMemoryGuard: true,
	}, nil)
	assert.NilError(t, err)
	assert.Equal(t, f.source.Name(), SourceOCI)
	assert.Assert(t, f.memory == nil)
}

func TestNewFactoryFromConfigErrors(t *testing.T) {
	cache := t.TempDir()

	_, err := NewFactoryFromConfig(Config{CacheDir: cache, Source: "s3"}, nil)
	assert.Assert(t, errdefs.IsInvalidArgument(err), "got %v", err)

	_, err = NewFactoryFromConfig(Config{CacheDir: cache, Source: SourceOCI}, nil)
	assert.Assert(t, is.ErrorIs(err, oci.ErrInvalidReference))

	_, err = NewFactoryFromConfig(Config{CacheDir: cache, Source: SourceOCI, Mirror: "r.example.com/zoo", Platform: "not a platform"}, nil)
	assert.Assert(t, errdefs.IsInvalidArgument(err), "got %v", err)
}
