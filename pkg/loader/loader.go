// Package loader builds a batch of models, one architecture at a time, and
// collects the ones that loaded into a Registry. A failure is logged and
// recorded but never stops the batch.
package loader

import (
	"context"
	"fmt"
	"time"
)

// WeightsImageNet requests weights pretrained on ImageNet.
const WeightsImageNet = "imagenet"

// Options is handed to the factory for every architecture.
type Options struct {
	// Weights selects the pretrained weights to attach: WeightsImageNet,
	// "none" for random initialization, or a path to a weights file.
	Weights string
}

// DefaultOptions requests ImageNet weights.
func DefaultOptions() Options {
	return Options{Weights: WeightsImageNet}
}

// Factory constructs a model instance for an architecture identifier.
// The loader treats the returned model as opaque.
type Factory[M any] interface {
	New(ctx context.Context, name string, opts Options) (M, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc[M any] func(ctx context.Context, name string, opts Options) (M, error)

// New calls f.
func (f FactoryFunc[M]) New(ctx context.Context, name string, opts Options) (M, error) {
	return f(ctx, name, opts)
}

// Result is the outcome of one construction attempt: either Model or Err.
type Result[M any] struct {
	Name     string
	Model    M
	Err      error
	Kind     Kind
	Duration time.Duration
}

// OK reports whether the attempt produced a model.
func (r Result[M]) OK() bool {
	return r.Err == nil
}

// Report drops the model so the outcome can be passed to observers that
// don't know the model type.
func (r Result[M]) Report() Report {
	return Report{Name: r.Name, Err: r.Err, Kind: r.Kind, Duration: r.Duration}
}

// Report summarises a Result without its model.
type Report struct {
	Name     string
	Err      error
	Kind     Kind
	Duration time.Duration
}

// Attempt invokes factory once for name. Errors and panics are captured in
// the Result rather than returned.
func Attempt[M any](ctx context.Context, factory Factory[M], name string, opts Options) (res Result[M]) {
	start := time.Now()
	res.Name = name
	defer func() {
		if p := recover(); p != nil {
			var zero M
			res.Model = zero
			res.Err = fmt.Errorf("%w: %v", ErrPanicked, p)
		}
		res.Kind = Classify(res.Err)
		res.Duration = time.Since(start)
	}()

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}
	model, err := factory.New(ctx, name, opts)
	if err != nil {
		res.Err = err
		return res
	}
	res.Model = model
	return res
}
