package zoo

import (
	"fmt"
	"sync"

	"github.com/docker/model-zoo/pkg/zoo/catalog"
)

// Constructor builds a model of one family. weights is nil for a randomly
// initialized model.
type Constructor func(arch catalog.Architecture, weights *Weights) (*Model, error)

var (
	familiesMu sync.RWMutex
	families   = make(map[catalog.Family]Constructor)
)

// Register installs the constructor for a family, replacing any previous one.
func Register(family catalog.Family, c Constructor) {
	familiesMu.Lock()
	defer familiesMu.Unlock()
	families[family] = c
}

// Lookup returns the constructor registered for family.
func Lookup(family catalog.Family) (Constructor, error) {
	familiesMu.RLock()
	defer familiesMu.RUnlock()
	c, ok := families[family]
	if !ok {
		return nil, fmt.Errorf("%w: no constructor for family %q", ErrUnsupportedArchitecture, family)
	}
	return c, nil
}

// classifier returns a Constructor for a family whose classifier head is
// stored under one of heads. The first head found must have ImageNetClasses
// outputs, in either the PyTorch [out, in] or the Keras [in, out] layout.
func classifier(mode Preprocessing, heads ...string) Constructor {
	heads = append(heads, "predictions.weight", "predictions/kernel")
	return func(arch catalog.Architecture, weights *Weights) (*Model, error) {
		m := &Model{
			Name:          arch.Name,
			Family:        arch.Family,
			InputShape:    [3]int{arch.InputSize, arch.InputSize, 3},
			Preprocessing: mode,
			Classes:       ImageNetClasses,
			Weights:       weights,
		}
		if weights == nil {
			return m, nil
		}
		for _, name := range heads {
			head, ok := weights.Tensor(name)
			if !ok {
				continue
			}
			if len(head.Shape) == 0 {
				return nil, fmt.Errorf("%w: %s: classifier %s is a scalar", ErrIncompatibleWeights, arch.Name, name)
			}
			first, last := head.Shape[0], head.Shape[len(head.Shape)-1]
			if first != ImageNetClasses && last != ImageNetClasses {
				return nil, fmt.Errorf("%w: %s: classifier %s has shape %v, want %d classes",
					ErrIncompatibleWeights, arch.Name, name, head.Shape, ImageNetClasses)
			}
			return m, nil
		}
		return nil, fmt.Errorf("%w: %s: no classifier head among %v", ErrIncompatibleWeights, arch.Name, heads)
	}
}

func init() {
	Register(catalog.FamilyXception, classifier(PreprocessTF, "fc.weight", "head.fc.weight"))
	Register(catalog.FamilyVGG, classifier(PreprocessCaffe, "head.fc.weight", "classifier.6.weight"))
	Register(catalog.FamilyResNet, classifier(PreprocessCaffe, "fc.weight"))
	Register(catalog.FamilyResNetV2, classifier(PreprocessTF, "head.fc.weight"))
	Register(catalog.FamilyInception, classifier(PreprocessTF, "fc.weight"))
	Register(catalog.FamilyInceptionResNet, classifier(PreprocessTF, "classif.weight", "head.fc.weight"))
	Register(catalog.FamilyMobileNet, classifier(PreprocessTF, "classifier.weight"))
	Register(catalog.FamilyMobileNetV2, classifier(PreprocessTF, "classifier.weight"))
	Register(catalog.FamilyDenseNet, classifier(PreprocessTorch, "classifier.weight"))
	Register(catalog.FamilyNASNet, classifier(PreprocessTF, "last_linear.weight"))
	Register(catalog.FamilyEfficientNet, classifier(PreprocessNone, "classifier.weight"))
	Register(catalog.FamilyEfficientNetV2, classifier(PreprocessNone, "classifier.weight"))
	Register(catalog.FamilyConvNeXt, classifier(PreprocessNone, "head.fc.weight"))
}
