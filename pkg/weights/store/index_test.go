package store

import (
	"strings"
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
	"gotest.tools/v3/fs"
)

func TestIndex(t *testing.T) {
	dir := fs.NewDir(t, "zoo-store")
	s, err := New(Options{RootPath: dir.Path()})
	assert.NilError(t, err)

	weights := "fake safetensors"
	hash, size, err := s.Ingest(strings.NewReader(weights))
	assert.NilError(t, err)

	key := Key("huggingface", "ResNet50", "imagenet")
	assert.Equal(t, key, "huggingface/ResNet50@imagenet")

	_, ok, err := s.Lookup(key)
	assert.NilError(t, err)
	assert.Assert(t, !ok)

	entry := Entry{
		Key:       key,
		Source:    "huggingface",
		Reference: "timm/resnet50.tv_in1k@main",
		Files:     []File{{Name: "model.safetensors", Digest: hash, Size: size}},
	}
	assert.NilError(t, s.Record(entry))

	got, ok, err := s.Lookup(key)
	assert.NilError(t, err)
	assert.Assert(t, ok)
	assert.Equal(t, got.Reference, entry.Reference)
	assert.Assert(t, !got.Created.IsZero())
	assert.Equal(t, got.TotalSize(), int64(len(weights)))

	paths, err := s.Paths(got)
	assert.NilError(t, err)
	assert.Assert(t, is.Len(paths, 1))
	assert.Assert(t, is.Contains(paths, "model.safetensors"))

	entries, err := s.Entries()
	assert.NilError(t, err)
	assert.Assert(t, is.Len(entries, 1))

	// Reopening the store sees the same index.
	reopened, err := New(Options{RootPath: dir.Path()})
	assert.NilError(t, err)
	_, ok, err = reopened.Lookup(key)
	assert.NilError(t, err)
	assert.Assert(t, ok)

	// A missing blob turns the entry into a miss.
	assert.NilError(t, s.RemoveBlob(hash))
	_, ok, err = s.Lookup(key)
	assert.NilError(t, err)
	assert.Assert(t, !ok)
}

func TestRecordRequiresBlobs(t *testing.T) {
	s, err := New(Options{RootPath: t.TempDir()})
	assert.NilError(t, err)

	hash := sha256Of(t, "absent")
	err = s.Record(Entry{Key: "k", Files: []File{{Name: "model.safetensors", Digest: hash}}})
	assert.ErrorIs(t, err, ErrBlobNotFound)

	err = s.Record(Entry{})
	assert.ErrorContains(t, err, "no key")
}
