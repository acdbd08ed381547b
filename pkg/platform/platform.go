// Package platform describes the host the zoo runs on: which OCI platform
// to pull weights for and how much memory is left to hold them.
package platform

import (
	"fmt"

	"github.com/containerd/platforms"
	"github.com/elastic/go-sysinfo"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// Memory is a snapshot of host memory in bytes.
type Memory struct {
	Total     uint64
	Available uint64
}

// HostMemory reads the host's memory counters.
func HostMemory() (Memory, error) {
	host, err := sysinfo.Host()
	if err != nil {
		return Memory{}, fmt.Errorf("read host info: %w", err)
	}
	mem, err := host.Memory()
	if err != nil {
		return Memory{}, fmt.Errorf("read host memory: %w", err)
	}
	return Memory{Total: mem.Total, Available: mem.Available}, nil
}

// AvailableMemory returns how many bytes can be allocated without swapping.
func AvailableMemory() (uint64, error) {
	mem, err := HostMemory()
	if err != nil {
		return 0, err
	}
	return mem.Available, nil
}

// Default returns the platform of the running binary.
func Default() v1.Platform {
	return fromSpec(platforms.DefaultSpec())
}

// Parse reads a platform specifier such as "linux/arm64/v8".
func Parse(s string) (v1.Platform, error) {
	if s == "" {
		return Default(), nil
	}
	spec, err := platforms.Parse(s)
	if err != nil {
		return v1.Platform{}, fmt.Errorf("parse platform %q: %w", s, err)
	}
	return fromSpec(platforms.Normalize(spec)), nil
}

// String formats p the way containerd does.
func String(p v1.Platform) string {
	return platforms.Format(ocispec.Platform{OS: p.OS, Architecture: p.Architecture, Variant: p.Variant})
}

func fromSpec(spec ocispec.Platform) v1.Platform {
	return v1.Platform{
		OS:           spec.OS,
		Architecture: spec.Architecture,
		Variant:      spec.Variant,
		OSVersion:    spec.OSVersion,
	}
}
