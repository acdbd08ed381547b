package huggingface

import (
	"context"
	"fmt"
	"io"

	"github.com/containerd/errdefs"
	"github.com/docker/go-units"

	"github.com/docker/model-zoo/pkg/weights/progress"
	"github.com/docker/model-zoo/pkg/weights/store"
	"github.com/docker/model-zoo/pkg/zoo/catalog"
)

// SourceName keys HuggingFace entries in the store index.
const SourceName = "huggingface"

// Source resolves an architecture's pretrained weights to the repository
// the catalog names for it.
type Source struct {
	client   *Client
	store    *store.LocalStore
	progress io.Writer
}

// NewSource returns a source downloading into st.
func NewSource(client *Client, st *store.LocalStore, progressWriter io.Writer) *Source {
	return &Source{client: client, store: st, progress: progress.Synchronized(progressWriter)}
}

// Name returns SourceName.
func (s *Source) Name() string { return SourceName }

// Fetch downloads the weight and config files of arch's repository.
func (s *Source) Fetch(ctx context.Context, arch catalog.Architecture, weights string) (store.Entry, error) {
	if arch.Repository == "" {
		return store.Entry{}, fmt.Errorf("no HuggingFace repository for %s: %w", arch.Name, errdefs.ErrNotFound)
	}
	revision := arch.Revision
	if revision == "" {
		revision = defaultRevision
	}

	files, err := s.client.ListFiles(ctx, arch.Repository, revision)
	if err != nil {
		return store.Entry{}, err
	}
	weightFiles, configs := FilterModelFiles(files)
	if len(weightFiles) == 0 {
		return store.Entry{}, fmt.Errorf("repository %q has no weight files: %w", arch.Repository, errdefs.ErrNotFound)
	}

	if len(configs) == 0 {
		_ = progress.WriteWarning(s.progress, arch.Name, "no config file in "+arch.Repository)
	}

	wanted := append(weightFiles, configs...)
	dl := NewDownloader(s.client, s.store, arch.Repository, revision, arch.Name, s.progress)
	stored, err := dl.DownloadAll(ctx, wanted)
	if err != nil {
		_ = progress.WriteError(s.progress, arch.Name, err.Error())
		return store.Entry{}, err
	}
	_ = progress.WriteSuccess(s.progress, arch.Name, fmt.Sprintf("Fetched %d files (%s) from %s", len(stored), units.HumanSize(float64(TotalSize(wanted))), arch.Repository))
	return store.Entry{
		Key:       store.Key(SourceName, arch.Name, weights),
		Source:    SourceName,
		Reference: fmt.Sprintf("%s/%s@%s", s.client.BaseURL(), arch.Repository, revision),
		Files:     stored,
	}, nil
}
