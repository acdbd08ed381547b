// Package catalog declares the image-classification architectures the zoo
// knows how to build, in the order they are loaded.
package catalog

import (
	"errors"
	"fmt"
	"os"

	"github.com/containerd/errdefs"
	"github.com/goccy/go-yaml"
)

// Family groups architectures that share a constructor and preprocessing.
type Family string

const (
	FamilyXception        Family = "xception"
	FamilyVGG             Family = "vgg"
	FamilyResNet          Family = "resnet"
	FamilyResNetV2        Family = "resnet_v2"
	FamilyInception       Family = "inception_v3"
	FamilyInceptionResNet Family = "inception_resnet_v2"
	FamilyMobileNet       Family = "mobilenet"
	FamilyMobileNetV2     Family = "mobilenet_v2"
	FamilyDenseNet        Family = "densenet"
	FamilyNASNet          Family = "nasnet"
	FamilyEfficientNet    Family = "efficientnet"
	FamilyEfficientNetV2  Family = "efficientnet_v2"
	FamilyConvNeXt        Family = "convnext"
)

var (
	// ErrUnknownArchitecture is returned for identifiers that are not declared.
	ErrUnknownArchitecture = fmt.Errorf("unknown architecture: %w", errdefs.ErrNotFound)
	// ErrInvalidCatalog is returned when a catalog definition is malformed.
	ErrInvalidCatalog = fmt.Errorf("invalid catalog: %w", errdefs.ErrInvalidArgument)
)

// Architecture is a single declared model variant.
type Architecture struct {
	// Name is the architecture identifier, e.g. "ResNet50".
	Name string `yaml:"name"`
	// Family selects the constructor.
	Family Family `yaml:"family"`
	// InputSize is the default square input resolution in pixels.
	InputSize int `yaml:"input_size"`
	// Repository holds the ImageNet weights on the HuggingFace Hub.
	// Empty when no public mirror exists.
	Repository string `yaml:"repository,omitempty"`
	// Revision pins the repository revision, "main" when empty.
	Revision string `yaml:"revision,omitempty"`
}

// HasPretrained reports whether ImageNet weights are published for a.
func (a Architecture) HasPretrained() bool {
	return a.Repository != ""
}

// Catalog is an immutable, ordered set of architectures.
type Catalog struct {
	archs []Architecture
	index map[string]int
}

// New builds a catalog preserving the given order. Names must be unique and
// every entry needs a family and a positive input size.
func New(archs ...Architecture) (*Catalog, error) {
	c := &Catalog{
		archs: make([]Architecture, 0, len(archs)),
		index: make(map[string]int, len(archs)),
	}
	for i, a := range archs {
		switch {
		case a.Name == "":
			return nil, fmt.Errorf("%w: entry %d has no name", ErrInvalidCatalog, i)
		case a.Family == "":
			return nil, fmt.Errorf("%w: %s has no family", ErrInvalidCatalog, a.Name)
		case a.InputSize <= 0:
			return nil, fmt.Errorf("%w: %s has input size %d", ErrInvalidCatalog, a.Name, a.InputSize)
		}
		if _, dup := c.index[a.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate architecture %s", ErrInvalidCatalog, a.Name)
		}
		c.index[a.Name] = len(c.archs)
		c.archs = append(c.archs, a)
	}
	return c, nil
}

// Len returns the number of declared architectures.
func (c *Catalog) Len() int {
	return len(c.archs)
}

// Names returns the identifiers in declared order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.archs))
	for i, a := range c.archs {
		names[i] = a.Name
	}
	return names
}

// Architectures returns a copy of the declared architectures.
func (c *Catalog) Architectures() []Architecture {
	return append([]Architecture(nil), c.archs...)
}

// Lookup returns the architecture declared under name.
func (c *Catalog) Lookup(name string) (Architecture, error) {
	i, ok := c.index[name]
	if !ok {
		return Architecture{}, fmt.Errorf("%w: %q", ErrUnknownArchitecture, name)
	}
	return c.archs[i], nil
}

// Select narrows the catalog to names. The result follows declared order,
// not argument order, and drops duplicates. No names selects everything.
func (c *Catalog) Select(names ...string) ([]string, error) {
	if len(names) == 0 {
		return c.Names(), nil
	}
	wanted := make(map[string]struct{}, len(names))
	var errs []error
	for _, n := range names {
		if _, ok := c.index[n]; !ok {
			errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownArchitecture, n))
			continue
		}
		wanted[n] = struct{}{}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	selected := make([]string, 0, len(wanted))
	for _, a := range c.archs {
		if _, ok := wanted[a.Name]; ok {
			selected = append(selected, a.Name)
		}
	}
	return selected, nil
}

// file is the on-disk shape of a catalog override.
type file struct {
	Architectures []Architecture `yaml:"architectures"`
}

// Parse reads a YAML catalog definition.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.UnmarshalWithOptions(data, &f, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if len(f.Architectures) == 0 {
		return nil, fmt.Errorf("%w: no architectures declared", ErrInvalidCatalog)
	}
	return New(f.Architectures...)
}

// LoadFile reads a YAML catalog definition from path.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}
