// Package oci pulls pretrained weights packaged as OCI artifacts from a
// registry mirror. Each architecture is a repository under the mirror and
// each weights label is a tag; layers carry one weight or config file each,
// named by their title annotation.
package oci

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/containerd/errdefs"
	"github.com/google/go-containerregistry/pkg/authn"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/google/go-containerregistry/pkg/v1/remote/transport"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/docker/model-zoo/pkg/platform"
	"github.com/docker/model-zoo/pkg/weights/format"
	"github.com/docker/model-zoo/pkg/weights/progress"
	"github.com/docker/model-zoo/pkg/weights/store"
	"github.com/docker/model-zoo/pkg/zoo/catalog"
)

// SourceName keys OCI entries in the store index.
const SourceName = "oci"

const defaultUserAgent = "model-zoo"

// Options configures a Source.
type Options struct {
	// Mirror is the registry namespace, e.g. "registry.example.com/zoo".
	Mirror string
	// Insecure allows plain HTTP.
	Insecure bool
	// Platform selects a manifest from an image index. Defaults to the host.
	Platform *v1.Platform
	// Transport overrides the HTTP transport. Defaults to an otelhttp
	// instrumented http.DefaultTransport.
	Transport http.RoundTripper
	UserAgent string
	Keychain  authn.Keychain
}

// Source pulls weights from an OCI registry into the blob store.
type Source struct {
	store    *store.LocalStore
	opts     Options
	progress io.Writer
}

// NewSource returns a source pulling from opts.Mirror into st.
func NewSource(st *store.LocalStore, opts Options, progressWriter io.Writer) (*Source, error) {
	if opts.Mirror == "" {
		return nil, fmt.Errorf("%w: no mirror configured", ErrInvalidReference)
	}
	if opts.Platform == nil {
		p := platform.Default()
		opts.Platform = &p
	}
	if opts.Transport == nil {
		opts.Transport = otelhttp.NewTransport(http.DefaultTransport)
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Keychain == nil {
		opts.Keychain = authn.DefaultKeychain
	}
	return &Source{store: st, opts: opts, progress: progress.Synchronized(progressWriter)}, nil
}

// Name returns SourceName.
func (s *Source) Name() string { return SourceName }

// Fetch pulls the image tagged weights for arch and stores every layer that
// holds a weight or config file.
func (s *Source) Fetch(ctx context.Context, arch catalog.Architecture, weights string) (store.Entry, error) {
	ref, err := Reference(s.opts.Mirror, arch.Name, weights, s.opts.Insecure)
	if err != nil {
		return store.Entry{}, err
	}

	img, err := remote.Image(ref,
		remote.WithContext(ctx),
		remote.WithAuthFromKeychain(s.opts.Keychain),
		remote.WithTransport(s.opts.Transport),
		remote.WithUserAgent(s.opts.UserAgent),
		remote.WithPlatform(*s.opts.Platform),
	)
	if err != nil {
		return store.Entry{}, wrapRemoteError(ref.String(), err)
	}
	manifest, err := img.Manifest()
	if err != nil {
		return store.Entry{}, wrapRemoteError(ref.String(), err)
	}
	imgDigest, err := img.Digest()
	if err != nil {
		return store.Entry{}, fmt.Errorf("digest %s: %w", ref, err)
	}

	var files []store.File
	hasWeights := false
	for _, desc := range manifest.Layers {
		filename, isWeights, ok := layerFile(desc)
		if !ok {
			continue
		}
		if err := s.pullLayer(ctx, img, desc, arch.Name, filename); err != nil {
			_ = progress.WriteError(s.progress, arch.Name, err.Error())
			return store.Entry{}, err
		}
		hasWeights = hasWeights || isWeights
		files = append(files, store.File{
			Name:      filename,
			Digest:    desc.Digest,
			Size:      desc.Size,
			MediaType: string(desc.MediaType),
		})
	}
	if !hasWeights {
		return store.Entry{}, fmt.Errorf("image %s has no weight layers: %w", ref, errdefs.ErrNotFound)
	}
	_ = progress.WriteSuccess(s.progress, arch.Name, fmt.Sprintf("Pulled %d files from %s", len(files), ref))

	return store.Entry{
		Key:       store.Key(SourceName, arch.Name, weights),
		Source:    SourceName,
		Reference: ref.Context().Name() + "@" + imgDigest.String(),
		Files:     files,
	}, nil
}

// layerFile names the file a layer holds. Weight layers are recognized by
// media type or title; config layers only by title.
func layerFile(desc v1.Descriptor) (filename string, isWeights, ok bool) {
	title := desc.Annotations[ocispec.AnnotationTitle]
	if f, found := format.ByMediaType(string(desc.MediaType)); found {
		if title == "" {
			title = desc.Digest.Hex + "." + string(f.Name())
		}
		return title, true, true
	}
	switch format.Classify(title) {
	case format.FileTypeWeights:
		return title, true, true
	case format.FileTypeConfig:
		return title, false, true
	case format.FileTypeUnknown:
	}
	return "", false, false
}

func (s *Source) pullLayer(ctx context.Context, img v1.Image, desc v1.Descriptor, arch, filename string) error {
	has, err := s.store.HasBlob(desc.Digest)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	layer, err := img.LayerByDigest(desc.Digest)
	if err != nil {
		return fmt.Errorf("layer %s: %w", desc.Digest, err)
	}
	rc, err := layer.Compressed()
	if err != nil {
		return wrapRemoteError(filename, err)
	}
	defer rc.Close()

	r := progress.NewReader(rc, s.progress, arch, filename, uint64(desc.Size), 0)
	if err := s.store.WriteBlob(desc.Digest, r); err != nil {
		return fmt.Errorf("write %s: %w", filename, err)
	}
	return nil
}

// RegistryError is a failed registry request, classified by status code.
type RegistryError struct {
	Ref        string
	StatusCode int
	Err        error
}

func (e *RegistryError) Error() string {
	return fmt.Sprintf("registry request for %s failed: %v", e.Ref, e.Err)
}

func (e *RegistryError) Unwrap() []error {
	return []error{statusSentinel(e.StatusCode), e.Err}
}

func statusSentinel(code int) error {
	switch {
	case code == http.StatusUnauthorized:
		return errdefs.ErrUnauthenticated
	case code == http.StatusForbidden:
		return errdefs.ErrPermissionDenied
	case code == http.StatusNotFound:
		return errdefs.ErrNotFound
	case code == http.StatusTooManyRequests:
		return errdefs.ErrResourceExhausted
	case code >= http.StatusInternalServerError:
		return errdefs.ErrUnavailable
	}
	return errdefs.ErrUnknown
}

func wrapRemoteError(ref string, err error) error {
	var terr *transport.Error
	if errors.As(err, &terr) {
		return &RegistryError{Ref: ref, StatusCode: terr.StatusCode, Err: err}
	}
	return fmt.Errorf("%s: %w", ref, err)
}
