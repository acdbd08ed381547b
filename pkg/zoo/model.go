// Package zoo builds image-classification model instances from the catalog,
// optionally with pretrained weights fetched into a local cache.
package zoo

import (
	"fmt"
	"io"
	"strconv"

	"github.com/docker/go-units"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/olekukonko/tablewriter"

	"github.com/docker/model-zoo/pkg/weights/format"
	"github.com/docker/model-zoo/pkg/zoo/catalog"
)

// ImageNetClasses is the class count of every classifier in the zoo.
const ImageNetClasses = 1000

// Preprocessing is how inputs are scaled before inference, as in
// keras.applications.
type Preprocessing string

const (
	// PreprocessCaffe converts RGB to BGR and subtracts the ImageNet mean.
	PreprocessCaffe Preprocessing = "caffe"
	// PreprocessTF scales pixels to [-1, 1].
	PreprocessTF Preprocessing = "tf"
	// PreprocessTorch scales to [0, 1] and normalizes with ImageNet stats.
	PreprocessTorch Preprocessing = "torch"
	// PreprocessNone leaves inputs alone; the model rescales internally.
	PreprocessNone Preprocessing = "none"
)

// WeightFile is one file backing a model's weights.
type WeightFile struct {
	Name   string
	Path   string
	Digest v1.Hash
	Size   int64
}

// Weights describes the pretrained weights attached to a model.
type Weights struct {
	// Label is the requested weights, "imagenet" or a local path.
	Label     string
	Source    string
	Reference string
	Files     []WeightFile
	format.Info
}

// Model is a constructed classifier. It is opaque to the loader.
type Model struct {
	Name          string
	Family        catalog.Family
	InputShape    [3]int // height, width, channels
	Preprocessing Preprocessing
	Classes       int
	// Weights is nil for randomly initialized models.
	Weights *Weights
}

// Pretrained reports whether weights were attached.
func (m *Model) Pretrained() bool {
	return m.Weights != nil
}

// Summary renders the model as a two-column table.
func (m *Model) Summary(w io.Writer) error {
	table := tablewriter.NewTable(w, tablewriter.WithHeader([]string{"PROPERTY", "VALUE"}))
	rows := [][]string{
		{"Name", m.Name},
		{"Family", string(m.Family)},
		{"Input shape", fmt.Sprintf("%dx%dx%d", m.InputShape[0], m.InputShape[1], m.InputShape[2])},
		{"Preprocessing", string(m.Preprocessing)},
		{"Classes", strconv.Itoa(m.Classes)},
	}
	if m.Weights == nil {
		rows = append(rows, []string{"Weights", "none"})
	} else {
		rows = append(rows,
			[]string{"Weights", m.Weights.Label},
			[]string{"Source", m.Weights.Source},
			[]string{"Reference", m.Weights.Reference},
			[]string{"Format", string(m.Weights.Format)},
			[]string{"Parameters", m.Weights.HumanParameters()},
			[]string{"Dtype", m.Weights.Dtype},
			[]string{"Size", units.HumanSize(float64(m.Weights.Size))},
			[]string{"Tensors", strconv.Itoa(len(m.Weights.Tensors))},
		)
	}
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}
