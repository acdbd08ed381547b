package format

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// WriteSafetensors writes a safetensors file holding zero-filled tensors.
// Tensors are laid out in name order.
func WriteSafetensors(w io.Writer, tensors []Tensor, metadata map[string]string) error {
	sorted := append([]Tensor(nil), tensors...)
	sort.Slice(sorted, func(a, b int) bool { return sorted[a].Name < sorted[b].Name })

	header := make(map[string]any, len(sorted)+1)
	if len(metadata) > 0 {
		header["__metadata__"] = metadata
	}
	var offset int64
	for _, t := range sorted {
		width, ok := dtypeSizes[t.Dtype]
		if !ok {
			return fmt.Errorf("tensor %q: unknown dtype %q", t.Name, t.Dtype)
		}
		n := t.Elements() * width
		shape := t.Shape
		if shape == nil {
			shape = []int64{}
		}
		header[t.Name] = safetensorsEntry{Dtype: t.Dtype, Shape: shape, DataOffsets: [2]int64{offset, offset + n}}
		offset += n
	}
	raw, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(len(raw))); err != nil {
		return err
	}
	if _, err := w.Write(raw); err != nil {
		return err
	}
	_, err = io.CopyN(w, zeroReader{}, offset)
	return err
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}
