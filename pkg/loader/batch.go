package loader

import (
	"context"
	"iter"
	"sync/atomic"

	"github.com/docker/model-zoo/pkg/logging"
	"github.com/sirupsen/logrus"
)

// Option configures a Batch or a Load call.
type Option func(*config)

type config struct {
	log       *logrus.Entry
	observers []func(Report)
}

// WithLogger sets the entry the per-model outcome lines are written to.
func WithLogger(log *logrus.Entry) Option {
	return func(c *config) {
		if log != nil {
			c.log = log
		}
	}
}

// WithObserver registers fn to receive a Report after every attempt.
func WithObserver(fn func(Report)) Option {
	return func(c *config) {
		if fn != nil {
			c.observers = append(c.observers, fn)
		}
	}
}

func newConfig(opts []Option) *config {
	c := &config{log: logging.Discard()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Batch is a single pass over a fixed list of identifiers. Nothing is built
// until the batch is ranged over, and a batch can only be ranged over once.
type Batch[M any] struct {
	factory  Factory[M]
	names    []string
	opts     Options
	cfg      *config
	consumed atomic.Bool
}

// NewBatch prepares a pass over names in the given order. Repeated
// identifiers are visited once, at their first position.
func NewBatch[M any](factory Factory[M], names []string, opts Options, options ...Option) *Batch[M] {
	seen := make(map[string]struct{}, len(names))
	unique := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		unique = append(unique, n)
	}
	return &Batch[M]{
		factory: factory,
		names:   unique,
		opts:    opts,
		cfg:     newConfig(options),
	}
}

// Names returns the identifiers the batch visits, in order.
func (b *Batch[M]) Names() []string {
	return append([]string(nil), b.names...)
}

// Consumed reports whether the batch has already been ranged over.
func (b *Batch[M]) Consumed() bool {
	return b.consumed.Load()
}

// All yields one (identifier, result) pair per identifier, building each
// model only when the consumer asks for the next pair. Ranging over a
// consumed batch yields nothing.
func (b *Batch[M]) All(ctx context.Context) iter.Seq2[string, Result[M]] {
	return func(yield func(string, Result[M]) bool) {
		if !b.consumed.CompareAndSwap(false, true) {
			return
		}
		for _, name := range b.names {
			res := Attempt(ctx, b.factory, name, b.opts)
			for _, observe := range b.cfg.observers {
				observe(res.Report())
			}
			if !yield(name, res) {
				return
			}
		}
	}
}
