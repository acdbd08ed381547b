package format

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/containerd/errdefs"
)

func TestGet(t *testing.T) {
	tests := []struct {
		name      string
		format    Name
		wantError bool
	}{
		{"get gguf", GGUF, false},
		{"get safetensors", Safetensors, false},
		{"get unknown", Name("pickle"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Get(tt.format)
			if tt.wantError {
				if !errors.Is(err, ErrUnknownFormat) {
					t.Errorf("Expected ErrUnknownFormat, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if f.Name() != tt.format {
				t.Errorf("Got format %s, want %s", f.Name(), tt.format)
			}
		})
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		want      Name
		wantError bool
	}{
		{"gguf file", "model.gguf", GGUF, false},
		{"gguf uppercase", "MODEL.GGUF", GGUF, false},
		{"safetensors file", "model.safetensors", Safetensors, false},
		{"safetensors shard", "model-00001-of-00003.safetensors", Safetensors, false},
		{"safetensors with path", "/weights/resnet50/model.safetensors", Safetensors, false},
		{"keras h5", "resnet50_weights_tf_dim_ordering_tf_kernels.h5", "", true},
		{"config file", "config.json", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Detect(tt.path)
			if tt.wantError {
				if err == nil {
					t.Errorf("Expected error, got format %s", f.Name())
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if f.Name() != tt.want {
				t.Errorf("Got format %s, want %s", f.Name(), tt.want)
			}
		})
	}
}

func TestDetectAll(t *testing.T) {
	if _, err := DetectAll(nil); err == nil {
		t.Error("Expected error for empty file list")
	}
	if _, err := DetectAll([]string{"a.safetensors", "b.gguf"}); err == nil {
		t.Error("Expected error for mixed formats")
	}
	f, err := DetectAll([]string{"model-00001-of-00002.safetensors", "model-00002-of-00002.safetensors"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if f.Name() != Safetensors {
		t.Errorf("Got format %s, want %s", f.Name(), Safetensors)
	}
}

func TestClassify(t *testing.T) {
	tests := map[string]FileType{
		"model.safetensors":               FileTypeWeights,
		"model.gguf":                      FileTypeWeights,
		"config.json":                     FileTypeConfig,
		"nested/preprocessor_config.json": FileTypeConfig,
		"README.md":                       FileTypeUnknown,
		"pytorch_model.bin":               FileTypeUnknown,
	}
	for name, want := range tests {
		if got := Classify(name); got != want {
			t.Errorf("Classify(%q) = %s, want %s", name, got, want)
		}
	}
}

func writeFixture(t *testing.T, name string, tensors []Tensor, metadata map[string]string) string {
	t.Helper()
	var buf bytes.Buffer
	if err := WriteSafetensors(&buf, tensors, metadata); err != nil {
		t.Fatalf("WriteSafetensors: %v", err)
	}
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestInspectSafetensors(t *testing.T) {
	path := writeFixture(t, "model.safetensors", []Tensor{
		{Name: "fc.weight", Dtype: "F32", Shape: []int64{1000, 8}},
		{Name: "fc.bias", Dtype: "F32", Shape: []int64{1000}},
		{Name: "conv1.weight", Dtype: "F32", Shape: []int64{8, 3, 3, 3}},
	}, map[string]string{"architecture": "resnet50"})

	f, err := Get(Safetensors)
	if err != nil {
		t.Fatal(err)
	}
	info, err := f.Inspect([]string{path})
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if info.Parameters != 1000*8+1000+8*3*3*3 {
		t.Errorf("Parameters = %d", info.Parameters)
	}
	if info.Dtype != "F32" {
		t.Errorf("Dtype = %q, want F32", info.Dtype)
	}
	if info.Architecture != "resnet50" {
		t.Errorf("Architecture = %q", info.Architecture)
	}
	if info.Tensors[0].Name != "conv1.weight" {
		t.Errorf("Tensors not sorted: first is %q", info.Tensors[0].Name)
	}
	fc, ok := info.Tensor("fc.bias")
	if !ok || fc.Shape[0] != 1000 {
		t.Errorf("Tensor(fc.bias) = %+v, %v", fc, ok)
	}
	if _, ok := info.Tensor("missing"); ok {
		t.Error("Tensor(missing) should not be found")
	}
	if info.HumanParameters() != "9.22K" {
		t.Errorf("HumanParameters = %q", info.HumanParameters())
	}
}

func TestInspectSafetensorsMixedAndSharded(t *testing.T) {
	a := writeFixture(t, "model-00001-of-00002.safetensors", []Tensor{{Name: "a", Dtype: "F16", Shape: []int64{2}}}, nil)
	b := writeFixture(t, "model-00002-of-00002.safetensors", []Tensor{{Name: "b", Dtype: "F32", Shape: []int64{2}}}, nil)

	f, _ := Get(Safetensors)
	info, err := f.Inspect([]string{a, b})
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if info.Dtype != "mixed" {
		t.Errorf("Dtype = %q, want mixed", info.Dtype)
	}
	if len(info.Tensors) != 2 {
		t.Errorf("got %d tensors, want 2", len(info.Tensors))
	}

	dup := writeFixture(t, "dup.safetensors", []Tensor{{Name: "a", Dtype: "F16", Shape: []int64{2}}}, nil)
	if _, err := f.Inspect([]string{a, dup}); !errors.Is(err, ErrCorrupt) {
		t.Errorf("Expected ErrCorrupt for duplicated tensor, got %v", err)
	}
}

func TestInspectSafetensorsCorrupt(t *testing.T) {
	f, _ := Get(Safetensors)
	dir := t.TempDir()

	write := func(name string, data []byte) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, data, 0o644); err != nil {
			t.Fatal(err)
		}
		return p
	}
	withHeader := func(header string, payload int) []byte {
		var buf bytes.Buffer
		_ = binary.Write(&buf, binary.LittleEndian, uint64(len(header)))
		buf.WriteString(header)
		buf.Write(make([]byte, payload))
		return buf.Bytes()
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"too short", []byte{1, 2}},
		{"header longer than file", withHeader("{}", 0)[:9]},
		{"invalid json", withHeader("{not json", 0)},
		{"unknown dtype", withHeader(`{"w":{"dtype":"Q4","shape":[1],"data_offsets":[0,1]}}`, 1)},
		{"offsets past end", withHeader(`{"w":{"dtype":"F32","shape":[4],"data_offsets":[0,16]}}`, 8)},
		{"shape disagrees with offsets", withHeader(`{"w":{"dtype":"F32","shape":[4],"data_offsets":[0,8]}}`, 8)},
		{"element count overflows", withHeader(`{"w":{"dtype":"F32","shape":[4294967296,4294967296],"data_offsets":[0,0]}}`, 0)},
		{"byte size overflows", withHeader(`{"w":{"dtype":"F32","shape":[2305843009213693952],"data_offsets":[0,0]}}`, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.Inspect([]string{write(tt.name+".safetensors", tt.data)})
			if !errors.Is(err, ErrCorrupt) {
				t.Fatalf("Expected ErrCorrupt, got %v", err)
			}
			if !errdefs.IsDataLoss(err) {
				t.Errorf("Expected a data loss error, got %v", err)
			}
		})
	}
}

func TestInspectMissingFile(t *testing.T) {
	f, _ := Get(Safetensors)
	_, err := f.Inspect([]string{filepath.Join(t.TempDir(), "nope.safetensors")})
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected not-exist error, got %v", err)
	}
}

func TestByMediaType(t *testing.T) {
	f, ok := ByMediaType(MediaTypeGGUF)
	if !ok || f.Name() != GGUF {
		t.Errorf("ByMediaType(%s) = %v, %v", MediaTypeGGUF, f, ok)
	}
	if _, ok := ByMediaType("application/octet-stream"); ok {
		t.Error("ByMediaType should not match a generic media type")
	}
}
