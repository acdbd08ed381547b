package zoo

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/containerd/errdefs"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docker/model-zoo/pkg/loader"
	"github.com/docker/model-zoo/pkg/weights/format"
	"github.com/docker/model-zoo/pkg/weights/store"
	"github.com/docker/model-zoo/pkg/zoo/catalog"
)

func resnetTensors(classes int64) []format.Tensor {
	return []format.Tensor{
		{Name: "conv1.weight", Dtype: "F32", Shape: []int64{8, 3, 7, 7}},
		{Name: "fc.weight", Dtype: "F32", Shape: []int64{classes, 8}},
		{Name: "fc.bias", Dtype: "F32", Shape: []int64{classes}},
	}
}

type fakeSource struct {
	st      *store.LocalStore
	tensors []format.Tensor
	err     error
	calls   atomic.Int32
}

func (s *fakeSource) Name() string { return "fake" }

func (s *fakeSource) Fetch(_ context.Context, arch catalog.Architecture, _ string) (store.Entry, error) {
	s.calls.Add(1)
	if s.err != nil {
		return store.Entry{}, s.err
	}
	var buf bytes.Buffer
	if err := format.WriteSafetensors(&buf, s.tensors, nil); err != nil {
		return store.Entry{}, err
	}
	weights, n, err := s.st.Ingest(&buf)
	if err != nil {
		return store.Entry{}, err
	}
	cfg, m, err := s.st.Ingest(bytes.NewBufferString(`{"num_classes":1000}`))
	if err != nil {
		return store.Entry{}, err
	}
	return store.Entry{
		Source:    "fake",
		Reference: "fake://" + arch.Name,
		Files: []store.File{
			{Name: "model.safetensors", Digest: weights, Size: n},
			{Name: "config.json", Digest: cfg, Size: m},
		},
	}, nil
}

func newTestFactory(t *testing.T, tensors []format.Tensor, opts ...Option) (*Factory, *fakeSource) {
	t.Helper()
	st, err := store.New(store.Options{RootPath: t.TempDir()})
	require.NoError(t, err)
	src := &fakeSource{st: st, tensors: tensors}
	opts = append([]Option{
		WithStore(st),
		WithSource(src),
		WithMemoryProbe(func() (uint64, error) { return 1 << 40, nil }),
	}, opts...)
	f, err := NewFactory(opts...)
	require.NoError(t, err)
	return f, src
}

func imagenet() loader.Options {
	return loader.Options{Weights: loader.WeightsImageNet}
}

func TestFactoryUnknownArchitecture(t *testing.T) {
	f, _ := newTestFactory(t, resnetTensors(1000))

	_, err := f.New(t.Context(), "ResNet9000", imagenet())
	require.ErrorIs(t, err, catalog.ErrUnknownArchitecture)
	assert.Equal(t, loader.KindPermanent, loader.Classify(err))
}

func TestFactoryUnsupportedFamily(t *testing.T) {
	c, err := catalog.New(catalog.Architecture{Name: "ViTB16", Family: "vit", InputSize: 224})
	require.NoError(t, err)
	f, _ := newTestFactory(t, resnetTensors(1000), WithCatalog(c))

	_, err = f.New(t.Context(), "ViTB16", imagenet())
	require.ErrorIs(t, err, ErrUnsupportedArchitecture)
	assert.True(t, errdefs.IsNotImplemented(err))
}

func TestFactoryRandomInit(t *testing.T) {
	f, src := newTestFactory(t, nil)

	for _, weights := range []string{"", WeightsNone} {
		m, err := f.New(t.Context(), "DenseNet121", loader.Options{Weights: weights})
		require.NoError(t, err)
		assert.False(t, m.Pretrained())
		assert.Equal(t, [3]int{224, 224, 3}, m.InputShape)
		assert.Equal(t, PreprocessTorch, m.Preprocessing)
		assert.Equal(t, ImageNetClasses, m.Classes)
	}
	assert.Zero(t, src.calls.Load())
}

func TestFactoryPretrainedUsesCache(t *testing.T) {
	f, src := newTestFactory(t, resnetTensors(1000))

	m, err := f.New(t.Context(), "ResNet50", imagenet())
	require.NoError(t, err)
	require.True(t, m.Pretrained())
	assert.Equal(t, PreprocessCaffe, m.Preprocessing)
	assert.Equal(t, "fake", m.Weights.Source)
	assert.Equal(t, format.Safetensors, m.Weights.Format)
	assert.Equal(t, int64(8*3*7*7+1000*8+1000), m.Weights.Parameters)
	assert.Len(t, m.Weights.Files, 2)

	_, err = f.New(t.Context(), "ResNet50", imagenet())
	require.NoError(t, err)
	assert.Equal(t, int32(1), src.calls.Load(), "second load must come from the cache")
}

func TestFactoryNoSource(t *testing.T) {
	f, err := NewFactory(WithMemoryProbe(nil))
	require.NoError(t, err)

	_, err = f.New(t.Context(), "ResNet50", imagenet())
	require.ErrorIs(t, err, ErrWeightsUnavailable)

	_, err = NewFactory(WithSource(&fakeSource{}))
	assert.Error(t, err, "a source without a store is rejected")
}

func TestFactorySourceErrors(t *testing.T) {
	f, src := newTestFactory(t, nil)

	src.err = errdefs.ErrNotFound
	_, err := f.New(t.Context(), "NASNetMobile", imagenet())
	require.ErrorIs(t, err, ErrWeightsUnavailable)
	assert.Equal(t, loader.KindPermanent, loader.Classify(err))

	src.err = errdefs.ErrUnavailable
	_, err = f.New(t.Context(), "ResNet50", imagenet())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrWeightsUnavailable)
	assert.Equal(t, loader.KindTransient, loader.Classify(err))
}

func TestFactoryCanceledBeforeFetch(t *testing.T) {
	f, src := newTestFactory(t, resnetTensors(1000))
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := f.New(ctx, "ResNet50", imagenet())
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, src.calls.Load())
}

func TestFactoryMemoryGuard(t *testing.T) {
	f, _ := newTestFactory(t, resnetTensors(1000),
		WithMemoryProbe(func() (uint64, error) { return 16, nil }))

	_, err := f.New(t.Context(), "ResNet50", imagenet())
	require.ErrorIs(t, err, ErrInsufficientMemory)
	assert.Equal(t, loader.KindTransient, loader.Classify(err))

	logger, hook := test.NewNullLogger()
	g, _ := newTestFactory(t, resnetTensors(1000),
		WithLogger(logrus.NewEntry(logger)),
		WithMemoryProbe(func() (uint64, error) { return 0, errors.New("no /proc") }))
	_, err = g.New(t.Context(), "ResNet50", imagenet())
	require.NoError(t, err, "a failing probe must not block loading")
	require.NotNil(t, hook.LastEntry())
	assert.Contains(t, hook.LastEntry().Message, "Skipping memory check")
}

func TestFactoryIncompatibleHead(t *testing.T) {
	f, _ := newTestFactory(t, resnetTensors(10))

	_, err := f.New(t.Context(), "ResNet50", imagenet())
	require.ErrorIs(t, err, ErrIncompatibleWeights)
	assert.True(t, errdefs.IsFailedPrecondition(err))

	g, _ := newTestFactory(t, []format.Tensor{{Name: "stem.weight", Dtype: "F32", Shape: []int64{4}}})
	_, err = g.New(t.Context(), "VGG16", imagenet())
	require.ErrorIs(t, err, ErrIncompatibleWeights)
}

func writeWeights(t *testing.T, path string, tensors []format.Tensor) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, format.WriteSafetensors(&buf, tensors, nil))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestFactoryLocalWeights(t *testing.T) {
	f, src := newTestFactory(t, nil)
	dir := t.TempDir()

	file := filepath.Join(dir, "densenet.safetensors")
	writeWeights(t, file, []format.Tensor{{Name: "classifier.weight", Dtype: "F16", Shape: []int64{1000, 16}}})

	m, err := f.New(t.Context(), "DenseNet121", loader.Options{Weights: file})
	require.NoError(t, err)
	assert.Equal(t, "file", m.Weights.Source)
	assert.Equal(t, file, m.Weights.Label)
	assert.Equal(t, "F16", m.Weights.Dtype)

	shards := t.TempDir()
	writeWeights(t, filepath.Join(shards, "model-00001-of-00002.safetensors"), []format.Tensor{{Name: "features.weight", Dtype: "F32", Shape: []int64{4, 4}}})
	writeWeights(t, filepath.Join(shards, "model-00002-of-00002.safetensors"), []format.Tensor{{Name: "classifier.weight", Dtype: "F32", Shape: []int64{1000, 4}}})
	require.NoError(t, os.WriteFile(filepath.Join(shards, "README.md"), []byte("shards"), 0o644))

	m, err = f.New(t.Context(), "EfficientNetB0", loader.Options{Weights: shards})
	require.NoError(t, err)
	assert.Len(t, m.Weights.Files, 2)
	assert.Equal(t, PreprocessNone, m.Preprocessing)

	_, err = f.New(t.Context(), "DenseNet121", loader.Options{Weights: filepath.Join(dir, "missing.safetensors")})
	assert.True(t, errdefs.IsNotFound(err), "got %v", err)

	assert.Zero(t, src.calls.Load())
}

func TestFactoryCorruptLocalWeights(t *testing.T) {
	f, _ := newTestFactory(t, nil)
	path := filepath.Join(t.TempDir(), "broken.safetensors")
	require.NoError(t, os.WriteFile(path, []byte("garbage!garbage!"), 0o644))

	_, err := f.New(t.Context(), "ResNet50", loader.Options{Weights: path})
	require.ErrorIs(t, err, format.ErrCorrupt)
	assert.Equal(t, loader.KindPermanent, loader.Classify(err))
}

func TestLoadWithFactory(t *testing.T) {
	f, _ := newTestFactory(t, resnetTensors(1000))
	logger, hook := test.NewNullLogger()

	registry, results := loader.Load[*Model](t.Context(), f,
		[]string{"ResNet50", "NotAModel", "ResNet101"}, imagenet(),
		loader.WithLogger(logrus.NewEntry(logger)))

	assert.Equal(t, []string{"ResNet50", "ResNet101"}, registry.Names())
	require.Len(t, results, 3)
	assert.False(t, results[1].OK())

	var messages []string
	for _, e := range hook.AllEntries() {
		messages = append(messages, e.Message)
	}
	assert.Contains(t, messages, "Successfully loaded ResNet50")
	assert.Contains(t, messages, "Successfully loaded ResNet101")
}

func TestModelSummary(t *testing.T) {
	f, _ := newTestFactory(t, resnetTensors(1000))
	m, err := f.New(t.Context(), "ResNet50", imagenet())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, m.Summary(&buf))
	out := buf.String()
	assert.Contains(t, out, "ResNet50")
	assert.Contains(t, out, "caffe")
	assert.Contains(t, out, "224x224x3")
	assert.Contains(t, out, "F32")

	assert.Contains(t, Describe(m), "ResNet50 (resnet, 224x224, caffe)")
}

func TestFamiliesCoverDefaultCatalog(t *testing.T) {
	for _, arch := range catalog.Default().Architectures() {
		c, err := Lookup(arch.Family)
		require.NoError(t, err, arch.Name)
		m, err := c(arch, nil)
		require.NoError(t, err, arch.Name)
		assert.Equal(t, arch.InputSize, m.InputShape[0])
	}
}
