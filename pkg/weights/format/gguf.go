package format

import (
	"fmt"
	"strings"

	parser "github.com/gpustack/gguf-parser-go"
)

// MediaTypeGGUF is the OCI layer media type for GGUF v3 files.
const MediaTypeGGUF = "application/vnd.docker.ai.gguf.v3"

// maxArraySize skips large metadata arrays such as tokenizer vocabularies.
const maxArraySize = 50

type ggufFormat struct{}

func init() {
	Register(ggufFormat{})
}

func (ggufFormat) Name() Name { return GGUF }

func (ggufFormat) MediaType() string { return MediaTypeGGUF }

func (ggufFormat) Matches(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".gguf")
}

func (ggufFormat) Inspect(paths []string) (Info, error) {
	info := Info{Format: GGUF, Metadata: map[string]string{}}
	for _, path := range paths {
		gf, err := parser.ParseGGUFFile(path)
		if err != nil {
			return Info{}, fmt.Errorf("%w: %s: %w", ErrCorrupt, path, err)
		}
		if info.Architecture == "" {
			info.Architecture = strings.TrimSpace(gf.Metadata().Architecture)
		}
		info.Size += int64(gf.Size)
		for _, kv := range gf.Header.MetadataKV {
			if kv.ValueType == parser.GGUFMetadataValueTypeArray && kv.ValueArray().Len > maxArraySize {
				continue
			}
			info.Metadata[kv.Key] = fmt.Sprint(kv.Value)
		}
		for _, ti := range gf.TensorInfos {
			shape := make([]int64, 0, len(ti.Dimensions))
			for _, d := range ti.Dimensions {
				shape = append(shape, int64(d))
			}
			info.Tensors = append(info.Tensors, Tensor{
				Name:  ti.Name,
				Dtype: ti.Type.String(),
				Shape: shape,
			})
		}
	}
	info.summarize()
	return info, nil
}
