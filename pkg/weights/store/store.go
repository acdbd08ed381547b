// Package store caches weight files on disk, addressed by content digest.
//
// Layout under the root path:
//
//	blobs/<algorithm>/<hex>              complete blobs
//	blobs/<algorithm>/<hex>.incomplete   interrupted downloads, resumed on retry
//	ingest/                              blobs whose digest is not known up front
//	index.json                           which blobs make up which cached weights
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/containerd/errdefs"
)

const (
	blobsDir  = "blobs"
	ingestDir = "ingest"
	indexFile = "index.json"
)

var (
	// ErrBlobNotFound is returned when a blob is not in the store.
	ErrBlobNotFound = fmt.Errorf("blob not found: %w", errdefs.ErrNotFound)
	// ErrDigestMismatch is returned when written content does not hash to the
	// expected digest.
	ErrDigestMismatch = fmt.Errorf("digest mismatch: %w", errdefs.ErrDataLoss)
)

// Options configures a LocalStore.
type Options struct {
	RootPath string
}

// LocalStore is a weights cache rooted at a directory.
type LocalStore struct {
	rootPath string
	// mu guards index.json.
	mu sync.Mutex
}

// New opens (creating if needed) a store at opts.RootPath.
func New(opts Options) (*LocalStore, error) {
	if opts.RootPath == "" {
		return nil, fmt.Errorf("store root path is required: %w", errdefs.ErrInvalidArgument)
	}
	for _, dir := range []string{opts.RootPath, filepath.Join(opts.RootPath, blobsDir), filepath.Join(opts.RootPath, ingestDir)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory %q: %w", dir, err)
		}
	}
	return &LocalStore{rootPath: opts.RootPath}, nil
}

// RootPath returns the directory the store lives in.
func (s *LocalStore) RootPath() string {
	return s.rootPath
}

func (s *LocalStore) indexPath() string {
	return filepath.Join(s.rootPath, indexFile)
}
