package format

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
)

// MediaTypeSafetensors is the OCI layer media type for safetensors files.
const MediaTypeSafetensors = "application/vnd.docker.ai.safetensors"

// maxSafetensorsHeader bounds the JSON header read from a safetensors file.
const maxSafetensorsHeader = 100 << 20

// dtypeSizes is the width in bytes of every safetensors dtype.
var dtypeSizes = map[string]int64{
	"BOOL": 1, "U8": 1, "I8": 1, "F8_E4M3": 1, "F8_E5M2": 1,
	"U16": 2, "I16": 2, "F16": 2, "BF16": 2,
	"U32": 4, "I32": 4, "F32": 4,
	"U64": 8, "I64": 8, "F64": 8,
}

type safetensorsFormat struct{}

func init() {
	Register(safetensorsFormat{})
}

func (safetensorsFormat) Name() Name { return Safetensors }

func (safetensorsFormat) MediaType() string { return MediaTypeSafetensors }

func (safetensorsFormat) Matches(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".safetensors")
}

// Inspect merges the headers of every shard. A tensor name repeated across
// shards is reported as corruption.
func (safetensorsFormat) Inspect(paths []string) (Info, error) {
	info := Info{Format: Safetensors, Metadata: map[string]string{}}
	seen := map[string]string{}
	for _, path := range paths {
		header, size, err := readSafetensorsHeader(path)
		if err != nil {
			return Info{}, err
		}
		info.Size += size
		for k, v := range header.metadata {
			info.Metadata[k] = v
		}
		for _, t := range header.tensors {
			if prev, ok := seen[t.Name]; ok {
				return Info{}, fmt.Errorf("%w: tensor %q in both %s and %s", ErrCorrupt, t.Name, prev, path)
			}
			seen[t.Name] = path
			info.Tensors = append(info.Tensors, t)
		}
	}
	info.Architecture = info.Metadata["architecture"]
	info.summarize()
	return info, nil
}

type safetensorsHeader struct {
	metadata map[string]string
	tensors  []Tensor
}

type safetensorsEntry struct {
	Dtype       string   `json:"dtype"`
	Shape       []int64  `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

// readSafetensorsHeader parses the header of path and checks every tensor's
// data range against the file size.
func readSafetensorsHeader(path string) (safetensorsHeader, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return safetensorsHeader{}, 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return safetensorsHeader{}, 0, fmt.Errorf("stat %s: %w", path, err)
	}
	size := st.Size()

	var headerLen uint64
	if err := binary.Read(f, binary.LittleEndian, &headerLen); err != nil {
		return safetensorsHeader{}, 0, fmt.Errorf("%w: read header length: %w", ErrCorrupt, err)
	}
	if headerLen > maxSafetensorsHeader || int64(headerLen) > size-8 {
		return safetensorsHeader{}, 0, fmt.Errorf("%w: header length %d exceeds file size %d", ErrCorrupt, headerLen, size)
	}
	raw := make([]byte, headerLen)
	if _, err := io.ReadFull(f, raw); err != nil {
		return safetensorsHeader{}, 0, fmt.Errorf("%w: read header: %w", ErrCorrupt, err)
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return safetensorsHeader{}, 0, fmt.Errorf("%w: parse header: %w", ErrCorrupt, err)
	}

	header := safetensorsHeader{metadata: map[string]string{}}
	if m, ok := entries["__metadata__"]; ok {
		if err := json.Unmarshal(m, &header.metadata); err != nil {
			return safetensorsHeader{}, 0, fmt.Errorf("%w: parse metadata: %w", ErrCorrupt, err)
		}
		delete(entries, "__metadata__")
	}

	dataLen := size - 8 - int64(headerLen)
	for name, msg := range entries {
		var e safetensorsEntry
		if err := json.Unmarshal(msg, &e); err != nil {
			return safetensorsHeader{}, 0, fmt.Errorf("%w: tensor %q: %w", ErrCorrupt, name, err)
		}
		width, ok := dtypeSizes[e.Dtype]
		if !ok {
			return safetensorsHeader{}, 0, fmt.Errorf("%w: tensor %q has unknown dtype %q", ErrCorrupt, name, e.Dtype)
		}
		t := Tensor{Name: name, Dtype: e.Dtype, Shape: e.Shape}
		nbytes := width
		for _, d := range e.Shape {
			if d < 0 {
				return safetensorsHeader{}, 0, fmt.Errorf("%w: tensor %q has negative dimension", ErrCorrupt, name)
			}
			if d != 0 && nbytes > math.MaxInt64/d {
				return safetensorsHeader{}, 0, fmt.Errorf("%w: tensor %q shape %v overflows", ErrCorrupt, name, e.Shape)
			}
			nbytes *= d
		}
		begin, end := e.DataOffsets[0], e.DataOffsets[1]
		if begin < 0 || end < begin || end > dataLen {
			return safetensorsHeader{}, 0, fmt.Errorf("%w: tensor %q data [%d, %d) outside %d bytes", ErrCorrupt, name, begin, end, dataLen)
		}
		if end-begin != nbytes {
			return safetensorsHeader{}, 0, fmt.Errorf("%w: tensor %q holds %d bytes, shape needs %d", ErrCorrupt, name, end-begin, nbytes)
		}
		header.tensors = append(header.tensors, t)
	}
	return header, size, nil
}
