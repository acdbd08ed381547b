package huggingface

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	v1 "github.com/google/go-containerregistry/pkg/v1"
	"golang.org/x/sync/errgroup"

	"github.com/docker/model-zoo/pkg/weights/format"
	"github.com/docker/model-zoo/pkg/weights/progress"
	"github.com/docker/model-zoo/pkg/weights/store"
)

// maxConcurrent bounds parallel file downloads for one repository.
const maxConcurrent = 4

// Downloader copies repository files into the blob store.
type Downloader struct {
	client   *Client
	store    *store.LocalStore
	repo     string
	revision string
	arch     string
	progress io.Writer
}

// NewDownloader creates a downloader for one repository. Progress lines are
// labeled with arch and written to progressWriter when it is not nil.
func NewDownloader(client *Client, st *store.LocalStore, repo, revision, arch string, progressWriter io.Writer) *Downloader {
	if revision == "" {
		revision = defaultRevision
	}
	return &Downloader{
		client:   client,
		store:    st,
		repo:     repo,
		revision: revision,
		arch:     arch,
		progress: progress.Synchronized(progressWriter),
	}
}

// DownloadAll downloads files in parallel and returns them as store files in
// the order given. The first failure cancels the remaining downloads.
func (d *Downloader) DownloadAll(ctx context.Context, files []RepoFile) ([]store.File, error) {
	out := make([]store.File, len(files))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)
	for i, f := range files {
		g.Go(func() error {
			sf, err := d.download(ctx, f)
			if err != nil {
				return fmt.Errorf("download %s: %w", f.Path, err)
			}
			mu.Lock()
			out[i] = sf
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// download fetches one file. LFS files carry their sha256, so they are
// verified on write and skipped when already cached. Other files are
// ingested and hashed on the fly.
func (d *Downloader) download(ctx context.Context, f RepoFile) (store.File, error) {
	sf := store.File{Name: f.Path, Size: f.ActualSize(), MediaType: mediaType(f.Filename())}

	var known *v1.Hash
	if f.LFS != nil && f.LFS.OID != "" {
		h, err := v1.NewHash("sha256:" + strings.ToLower(f.LFS.OID))
		if err != nil {
			return store.File{}, fmt.Errorf("invalid LFS oid %q: %w", f.LFS.OID, err)
		}
		has, err := d.store.HasBlob(h)
		if err != nil {
			return store.File{}, err
		}
		if has {
			sf.Digest = h
			return sf, nil
		}
		known = &h
	}

	body, _, err := d.client.DownloadFile(ctx, d.repo, d.revision, f.Path)
	if err != nil {
		return store.File{}, err
	}
	defer body.Close()

	size := uint64(f.ActualSize())
	r := progress.NewReader(body, d.progress, d.arch, f.Path, size, 0)

	if known != nil {
		if err := d.store.WriteBlob(*known, r); err != nil {
			return store.File{}, err
		}
		sf.Digest = *known
		return sf, nil
	}
	h, n, err := d.store.Ingest(r)
	if err != nil {
		return store.File{}, err
	}
	sf.Digest = h
	sf.Size = n
	return sf, nil
}

func mediaType(filename string) string {
	if f, err := format.Detect(filename); err == nil {
		return f.MediaType()
	}
	if strings.HasSuffix(strings.ToLower(filename), ".json") {
		return "application/json"
	}
	return ""
}
