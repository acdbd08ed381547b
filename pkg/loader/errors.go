package loader

import (
	"errors"
	"fmt"
	"net"

	"github.com/containerd/errdefs"
)

// Kind classifies why a construction attempt failed. Kinds are reported,
// never acted on: the loader does not retry.
type Kind int

const (
	// KindNone marks a successful attempt.
	KindNone Kind = iota
	// KindPermanent failures repeat on every run: unknown or unsupported
	// architectures, unpublished weights, auth failures, corrupt or
	// incompatible weight files.
	KindPermanent
	// KindTransient failures may clear up on their own: network errors,
	// timeouts, upstream outages, rate limits, memory pressure.
	KindTransient
	// KindCanceled means the caller's context ended the attempt.
	KindCanceled
)

// String returns the label used in logs and metrics.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindPermanent:
		return "permanent"
	case KindTransient:
		return "transient"
	case KindCanceled:
		return "canceled"
	}
	return "unknown"
}

// ErrPanicked wraps a panic raised inside a factory.
var ErrPanicked = fmt.Errorf("factory panicked: %w", errdefs.ErrInternal)

// Classify maps err onto a Kind. Lower layers wrap containerd/errdefs
// sentinels; raw network errors count as transient.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}
	if errdefs.IsCanceled(err) {
		return KindCanceled
	}
	switch {
	case errdefs.IsUnavailable(err),
		errdefs.IsDeadlineExceeded(err),
		errdefs.IsResourceExhausted(err),
		errdefs.IsAborted(err):
		return KindTransient
	case errdefs.IsNotFound(err),
		errdefs.IsNotImplemented(err),
		errdefs.IsInvalidArgument(err),
		errdefs.IsUnauthorized(err),
		errdefs.IsPermissionDenied(err),
		errdefs.IsFailedPrecondition(err),
		errdefs.IsDataLoss(err):
		return KindPermanent
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransient
	}
	return KindPermanent
}
