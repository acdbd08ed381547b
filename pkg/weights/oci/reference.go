package oci

import (
	"fmt"
	"strings"

	"github.com/containerd/errdefs"
	"github.com/distribution/reference"
	"github.com/google/go-containerregistry/pkg/name"
)

// ErrInvalidReference is returned when a mirror, architecture or weights
// label does not form a valid image reference.
var ErrInvalidReference = fmt.Errorf("invalid weights reference: %w", errdefs.ErrInvalidArgument)

// Reference builds "<mirror>/<lowercase architecture>:<weights>". Names
// are checked against the distribution grammar before go-containerregistry
// sees them so bad mirrors fail with a clear message.
func Reference(mirror, architecture, weights string, insecure bool) (name.Reference, error) {
	mirror = strings.TrimSuffix(mirror, "/")
	if mirror == "" {
		return nil, fmt.Errorf("%w: no mirror configured", ErrInvalidReference)
	}
	repo := mirror + "/" + strings.ToLower(architecture)

	named, err := reference.ParseNormalizedNamed(repo)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidReference, repo, err)
	}
	tagged, err := reference.WithTag(named, weights)
	if err != nil {
		return nil, fmt.Errorf("%w: tag %q: %w", ErrInvalidReference, weights, err)
	}

	var opts []name.Option
	if insecure {
		opts = append(opts, name.Insecure)
	}
	ref, err := name.ParseReference(tagged.String(), opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidReference, err)
	}
	return ref, nil
}
