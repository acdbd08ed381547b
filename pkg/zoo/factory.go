package zoo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/containerd/errdefs"
	"github.com/docker/go-units"
	"github.com/sirupsen/logrus"

	"github.com/docker/model-zoo/internal/utils"
	"github.com/docker/model-zoo/pkg/loader"
	"github.com/docker/model-zoo/pkg/logging"
	"github.com/docker/model-zoo/pkg/platform"
	"github.com/docker/model-zoo/pkg/weights/format"
	"github.com/docker/model-zoo/pkg/weights/store"
	"github.com/docker/model-zoo/pkg/zoo/catalog"
)

// WeightsNone requests a randomly initialized model.
const WeightsNone = "none"

// sourceFile labels weights read from a local path.
const sourceFile = "file"

// Source fetches pretrained weights for an architecture into the store.
type Source interface {
	Name() string
	Fetch(ctx context.Context, arch catalog.Architecture, weights string) (store.Entry, error)
}

// MemoryProbe reports how many bytes the host can still allocate.
type MemoryProbe func() (uint64, error)

// Factory builds models by catalog identifier. It implements
// loader.Factory[*Model].
type Factory struct {
	catalog *catalog.Catalog
	store   *store.LocalStore
	source  Source
	memory  MemoryProbe
	log     *logrus.Entry
}

var _ loader.Factory[*Model] = (*Factory)(nil)

// Option configures a Factory.
type Option func(*Factory)

// WithCatalog replaces the default Keras catalog.
func WithCatalog(c *catalog.Catalog) Option {
	return func(f *Factory) {
		if c != nil {
			f.catalog = c
		}
	}
}

// WithStore sets the weights cache.
func WithStore(s *store.LocalStore) Option {
	return func(f *Factory) {
		f.store = s
	}
}

// WithSource sets where pretrained weights come from.
func WithSource(s Source) Option {
	return func(f *Factory) {
		f.source = s
	}
}

// WithMemoryProbe replaces the host memory probe. A nil probe disables the
// memory guard.
func WithMemoryProbe(p MemoryProbe) Option {
	return func(f *Factory) {
		f.memory = p
	}
}

// WithLogger sets the log entry used for cache and download messages.
func WithLogger(log *logrus.Entry) Option {
	return func(f *Factory) {
		if log != nil {
			f.log = log
		}
	}
}

// NewFactory returns a factory over the default catalog with the host
// memory guard enabled. Pretrained weights need both a store and a source.
func NewFactory(opts ...Option) (*Factory, error) {
	f := &Factory{
		catalog: catalog.Default(),
		memory:  platform.AvailableMemory,
		log:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.source != nil && f.store == nil {
		return nil, errors.New("a weights source needs a store")
	}
	return f, nil
}

// Catalog returns the architectures the factory knows.
func (f *Factory) Catalog() *catalog.Catalog {
	return f.catalog
}

// New builds the architecture called name. The returned error wraps an
// errdefs class describing why construction failed.
func (f *Factory) New(ctx context.Context, name string, opts loader.Options) (*Model, error) {
	arch, err := f.catalog.Lookup(name)
	if err != nil {
		return nil, err
	}
	construct, err := Lookup(arch.Family)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", arch.Name, err)
	}

	var weights *Weights
	switch opts.Weights {
	case "", WeightsNone:
	case loader.WeightsImageNet:
		weights, err = f.pretrained(ctx, arch, opts.Weights)
	default:
		weights, err = f.local(arch, opts.Weights)
	}
	if err != nil {
		return nil, err
	}
	return construct(arch, weights)
}

// pretrained resolves published weights, from the cache when possible.
func (f *Factory) pretrained(ctx context.Context, arch catalog.Architecture, label string) (*Weights, error) {
	if f.source == nil {
		return nil, fmt.Errorf("%w: %s: no weights source configured", ErrWeightsUnavailable, arch.Name)
	}
	log := f.log.WithField("architecture", arch.Name)

	key := store.Key(f.source.Name(), arch.Name, label)
	entry, ok, err := f.store.Lookup(key)
	if err != nil {
		return nil, err
	}
	if ok {
		log.Debugf("Using cached weights %s", utils.SanitizeForLog(entry.Reference))
	} else {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		log.Infof("Fetching %s weights from %s", label, f.source.Name())
		entry, err = f.source.Fetch(ctx, arch, label)
		if err != nil {
			if errdefs.IsNotFound(err) {
				return nil, fmt.Errorf("%w: %s: %w", ErrWeightsUnavailable, arch.Name, err)
			}
			return nil, err
		}
		entry.Key = key
		if err := f.store.Record(entry); err != nil {
			return nil, fmt.Errorf("record %s: %w", key, err)
		}
	}

	paths, err := f.store.Paths(entry)
	if err != nil {
		return nil, err
	}
	files := make([]WeightFile, 0, len(entry.Files))
	for _, file := range entry.Files {
		files = append(files, WeightFile{Name: file.Name, Path: paths[file.Name], Digest: file.Digest, Size: file.Size})
	}
	return f.inspect(arch, label, entry.Source, entry.Reference, files)
}

// local resolves weights stored at path: a weights file, or a directory
// holding the files of a (possibly sharded) checkpoint.
func (f *Factory) local(arch catalog.Architecture, path string) (*Weights, error) {
	st, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s: %s does not exist", errdefs.ErrNotFound, arch.Name, utils.SanitizeForLog(path))
	}
	if err != nil {
		return nil, err
	}

	var files []WeightFile
	if !st.IsDir() {
		files = append(files, WeightFile{Name: filepath.Base(path), Path: path, Size: st.Size()})
	} else {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() || format.Classify(e.Name()) != format.FileTypeWeights {
				continue
			}
			info, err := e.Info()
			if err != nil {
				return nil, err
			}
			files = append(files, WeightFile{Name: e.Name(), Path: filepath.Join(path, e.Name()), Size: info.Size()})
		}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return f.inspect(arch, path, sourceFile, abs, files)
}

// inspect applies the memory guard and parses the weight file headers.
func (f *Factory) inspect(arch catalog.Architecture, label, source, ref string, files []WeightFile) (*Weights, error) {
	var weightFiles []WeightFile
	var size int64
	for _, file := range files {
		if format.Classify(file.Name) != format.FileTypeWeights {
			continue
		}
		weightFiles = append(weightFiles, file)
		size += file.Size
	}
	if len(weightFiles) == 0 {
		return nil, fmt.Errorf("%w: %s: no weight files in %s", ErrIncompatibleWeights, arch.Name, utils.SanitizeForLog(ref))
	}
	sort.Slice(weightFiles, func(a, b int) bool { return weightFiles[a].Name < weightFiles[b].Name })

	if err := f.checkMemory(arch, size); err != nil {
		return nil, err
	}

	names := make([]string, len(weightFiles))
	paths := make([]string, len(weightFiles))
	for i, file := range weightFiles {
		names[i] = file.Name
		paths[i] = file.Path
	}
	fm, err := format.DetectAll(names)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", arch.Name, err)
	}
	info, err := fm.Inspect(paths)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", arch.Name, err)
	}
	return &Weights{
		Label:     label,
		Source:    source,
		Reference: ref,
		Files:     files,
		Info:      info,
	}, nil
}

func (f *Factory) checkMemory(arch catalog.Architecture, size int64) error {
	if f.memory == nil {
		return nil
	}
	available, err := f.memory()
	if err != nil {
		f.log.WithField("architecture", arch.Name).Warnf("Skipping memory check: %v", err)
		return nil
	}
	if uint64(size) > available {
		return fmt.Errorf("%w: %s needs %s, %s available", ErrInsufficientMemory, arch.Name,
			units.BytesSize(float64(size)), units.BytesSize(float64(available)))
	}
	return nil
}

// Describe returns a one-line description of m for logs.
func Describe(m *Model) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s, %dx%d, %s)", m.Name, m.Family, m.InputShape[0], m.InputShape[1], m.Preprocessing)
	if m.Weights != nil {
		fmt.Fprintf(&b, " %s params from %s", m.Weights.HumanParameters(), m.Weights.Source)
	}
	return b.String()
}
