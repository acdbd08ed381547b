package zoo

import (
	"fmt"

	"github.com/containerd/errdefs"
)

var (
	// ErrUnsupportedArchitecture is returned for catalog entries whose family
	// has no registered constructor.
	ErrUnsupportedArchitecture = fmt.Errorf("unsupported architecture: %w", errdefs.ErrNotImplemented)
	// ErrWeightsUnavailable is returned when no pretrained weights are
	// published for an architecture or no source is configured.
	ErrWeightsUnavailable = fmt.Errorf("weights unavailable: %w", errdefs.ErrNotFound)
	// ErrInsufficientMemory is returned when the weights would not fit into
	// the memory the host has available.
	ErrInsufficientMemory = fmt.Errorf("out of memory: %w", errdefs.ErrResourceExhausted)
	// ErrIncompatibleWeights is returned when weight files do not match the
	// architecture, such as a classifier head of the wrong size.
	ErrIncompatibleWeights = fmt.Errorf("incompatible weights: %w", errdefs.ErrFailedPrecondition)
)
