package loader

import (
	"context"

	"github.com/docker/model-zoo/internal/utils"
)

// Load runs a batch over names and registers every model that built.
// It never fails: each failure is logged as "Error loading <name>: <detail>"
// and the batch moves on. Results are returned in visiting order.
func Load[M any](ctx context.Context, factory Factory[M], names []string, opts Options, options ...Option) (*Registry[M], []Result[M]) {
	batch := NewBatch(factory, names, opts, options...)
	log := batch.cfg.log
	registry := NewRegistry[M]()
	results := make([]Result[M], 0, len(batch.names))

	for name, res := range batch.All(ctx) {
		results = append(results, res)
		entry := log.WithField("architecture", name).WithField("duration", res.Duration.String())
		if !res.OK() {
			entry.WithField("kind", res.Kind.String()).
				Errorf("Error loading %s: %s", name, utils.SanitizeForLog(res.Err.Error(), -1))
			continue
		}
		if err := registry.Add(name, res.Model); err != nil {
			entry.Warnf("Skipping %s: %v", name, err)
			continue
		}
		entry.Infof("Successfully loaded %s", name)
	}
	return registry, results
}

// Summary counts outcomes of a batch.
type Summary struct {
	Loaded    int
	Failed    int
	Transient int
	Permanent int
	Canceled  int
}

// Summarize tallies results.
func Summarize[M any](results []Result[M]) Summary {
	var s Summary
	for _, r := range results {
		switch r.Kind {
		case KindNone:
			s.Loaded++
			continue
		case KindTransient:
			s.Transient++
		case KindPermanent:
			s.Permanent++
		case KindCanceled:
			s.Canceled++
		}
		s.Failed++
	}
	return s
}
