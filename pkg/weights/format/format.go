// Package format reads the headers of weight files. Each supported format
// registers itself; callers detect the format from a file name and inspect
// the files to learn tensor names, shapes and dtypes without loading the
// tensor data.
package format

import (
	"fmt"
	"sort"

	"github.com/containerd/errdefs"
	"github.com/docker/go-units"
	"github.com/docker/model-zoo/internal/utils"
)

// Name identifies a weight file format.
type Name string

const (
	Safetensors Name = "safetensors"
	GGUF        Name = "gguf"
)

var (
	// ErrUnknownFormat is returned for files no registered format claims.
	ErrUnknownFormat = fmt.Errorf("unknown weights format: %w", errdefs.ErrInvalidArgument)
	// ErrCorrupt is returned when a weight file header cannot be trusted.
	ErrCorrupt = fmt.Errorf("corrupt weights file: %w", errdefs.ErrDataLoss)
)

// Format is implemented by every supported weights format.
type Format interface {
	// Name returns the format identifier.
	Name() Name
	// MediaType returns the OCI media type used for layers of this format.
	MediaType() string
	// Matches reports whether a file name belongs to this format.
	Matches(filename string) bool
	// Inspect parses the headers of paths (one file, or all shards of a
	// sharded checkpoint) and describes the tensors they hold.
	Inspect(paths []string) (Info, error)
}

// Tensor describes one tensor stored in a weights file.
type Tensor struct {
	Name  string
	Dtype string
	Shape []int64
}

// Elements returns the number of scalars in the tensor. Inspect rejects
// shapes whose size does not fit in an int64.
func (t Tensor) Elements() int64 {
	n := int64(1)
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// Info is what Inspect learns about a set of weight files.
type Info struct {
	Format Name
	// Tensors sorted by name.
	Tensors    []Tensor
	Parameters int64
	// Dtype is the single dtype of all tensors, "mixed" or "unknown".
	Dtype        string
	Size         int64
	Architecture string
	Metadata     map[string]string
}

// Tensor returns the tensor called name.
func (i Info) Tensor(name string) (Tensor, bool) {
	idx := sort.Search(len(i.Tensors), func(k int) bool { return i.Tensors[k].Name >= name })
	if idx < len(i.Tensors) && i.Tensors[idx].Name == name {
		return i.Tensors[idx], true
	}
	return Tensor{}, false
}

// HumanParameters formats the parameter count like "25.56M".
func (i Info) HumanParameters() string {
	return units.CustomSize("%.2f%s", float64(i.Parameters), 1000.0, []string{"", "K", "M", "B", "T"})
}

// HumanSize formats the byte size the way `docker images` does.
func (i Info) HumanSize() string {
	return units.HumanSize(float64(i.Size))
}

const (
	dtypeUnknown = "unknown"
	dtypeMixed   = "mixed"
)

// summarize fills Parameters and Dtype from Tensors and sorts them.
func (i *Info) summarize() {
	sort.Slice(i.Tensors, func(a, b int) bool { return i.Tensors[a].Name < i.Tensors[b].Name })
	i.Parameters = 0
	dtypes := map[string]struct{}{}
	for _, t := range i.Tensors {
		i.Parameters += t.Elements()
		if t.Dtype != "" {
			dtypes[t.Dtype] = struct{}{}
		}
	}
	switch len(dtypes) {
	case 0:
		i.Dtype = dtypeUnknown
	case 1:
		for d := range dtypes {
			i.Dtype = d
		}
	default:
		i.Dtype = dtypeMixed
	}
}

// registry holds all registered format implementations
var registry = make(map[Name]Format)

// Register adds a format implementation. Formats call it from init().
func Register(f Format) {
	registry[f.Name()] = f
}

// Get returns the registered format called name.
func Get(name Name) (Format, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, name)
	}
	return f, nil
}

// Detect returns the format a file name belongs to.
func Detect(filename string) (Format, error) {
	for _, f := range registry {
		if f.Matches(filename) {
			return f, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, utils.SanitizeForLog(filename))
}

// ByMediaType returns the format whose OCI layer media type is mediaType.
func ByMediaType(mediaType string) (Format, bool) {
	for _, f := range registry {
		if f.MediaType() == mediaType {
			return f, true
		}
	}
	return nil, false
}

// DetectAll returns the single format shared by all file names.
func DetectAll(filenames []string) (Format, error) {
	if len(filenames) == 0 {
		return nil, fmt.Errorf("%w: no weight files", ErrUnknownFormat)
	}
	first, err := Detect(filenames[0])
	if err != nil {
		return nil, err
	}
	for _, name := range filenames[1:] {
		f, err := Detect(name)
		if err != nil {
			return nil, err
		}
		if f.Name() != first.Name() {
			return nil, fmt.Errorf("%w: mixed formats %s and %s", ErrUnknownFormat, first.Name(), f.Name())
		}
	}
	return first, nil
}
