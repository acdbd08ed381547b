package zoo

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/containerd/errdefs"
	"github.com/sirupsen/logrus"

	"github.com/docker/model-zoo/pkg/platform"
	"github.com/docker/model-zoo/pkg/weights/huggingface"
	"github.com/docker/model-zoo/pkg/weights/oci"
	"github.com/docker/model-zoo/pkg/weights/store"
	"github.com/docker/model-zoo/pkg/zoo/catalog"
)

// Weight sources selectable in Config.
const (
	SourceHuggingFace = huggingface.SourceName
	SourceOCI         = oci.SourceName
)

// Config describes a factory in plain values, as read from the environment
// or command-line flags.
type Config struct {
	// CacheDir holds downloaded weights. Defaults to ~/.cache/model-zoo.
	CacheDir string
	// Source is SourceHuggingFace (default) or SourceOCI.
	Source string
	// Mirror is the registry namespace for SourceOCI.
	Mirror string
	// Insecure allows a plain HTTP mirror.
	Insecure bool
	// Platform overrides the OCI platform, e.g. "linux/arm64".
	Platform   string
	HFEndpoint string
	HFToken    string
	UserAgent  string
	// DisableMemoryGuard skips the available memory check.
	DisableMemoryGuard bool
	// Progress receives JSON progress lines for downloads. May be nil.
	Progress io.Writer
	// Catalog replaces the default Keras catalog when set.
	Catalog *catalog.Catalog
}

// DefaultCacheDir returns the cache directory used when Config.CacheDir is
// empty.
func DefaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "model-zoo")
	}
	return filepath.Join(os.TempDir(), "model-zoo")
}

// NewFactoryFromConfig wires a store, a weights source and the memory guard
// into a factory.
func NewFactoryFromConfig(cfg Config, log *logrus.Entry) (*Factory, error) {
	if cfg.CacheDir == "" {
		cfg.CacheDir = DefaultCacheDir()
	}
	st, err := store.New(store.Options{RootPath: cfg.CacheDir})
	if err != nil {
		return nil, fmt.Errorf("open weights cache: %w", err)
	}

	var src Source
	switch cfg.Source {
	case "", SourceHuggingFace:
		client := huggingface.NewClient(
			huggingface.WithBaseURL(cfg.HFEndpoint),
			huggingface.WithToken(cfg.HFToken),
			huggingface.WithUserAgent(cfg.UserAgent),
		)
		src = huggingface.NewSource(client, st, cfg.Progress)
	case SourceOCI:
		p, err := platform.Parse(cfg.Platform)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errdefs.ErrInvalidArgument, err)
		}
		src, err = oci.NewSource(st, oci.Options{
			Mirror:    cfg.Mirror,
			Insecure:  cfg.Insecure,
			Platform:  &p,
			UserAgent: cfg.UserAgent,
		}, cfg.Progress)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown weights source %q: %w", cfg.Source, errdefs.ErrInvalidArgument)
	}

	opts := []Option{
		WithCatalog(cfg.Catalog),
		WithStore(st),
		WithSource(src),
		WithLogger(log),
	}
	if cfg.DisableMemoryGuard {
		opts = append(opts, WithMemoryProbe(nil))
	}
	return NewFactory(opts...)
}
