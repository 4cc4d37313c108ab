// Package runtime defines shared types for the container engine abstraction.
package runtime

import (
	"errors"
	"fmt"

	"github.com/distribution/reference"
)

// ErrNotFound is returned when the requested container or image does not
// exist. Absence is a normal state for most lifecycle guards, so callers
// check for it with errors.Is rather than treating every error as fatal.
var ErrNotFound = errors.New("runtime: not found")

// ContainerState mirrors the engine's container states.
type ContainerState string

const (
	StateRunning ContainerState = "running"
	StateExited  ContainerState = "exited"
	StateCreated ContainerState = "created"
	StatePaused  ContainerState = "paused"
	StateUnknown ContainerState = "unknown"
)

// Descriptor identifies a container instance.
type Descriptor struct {
	// ID is the engine-assigned container ID.
	ID string
	// Name is the container name.
	Name string
	// State is the container's current state.
	State ContainerState
	// Image is the repo:tag the container was started from.
	Image string
}

// Running reports whether the container is currently running.
func (d Descriptor) Running() bool {
	return d.State == StateRunning
}

// ImageRef is a (repository, tag) pair identifying an image.
type ImageRef struct {
	Repository string
	Tag        string
}

// String renders the reference in repo:tag form.
func (r ImageRef) String() string {
	if r.Tag == "" {
		return r.Repository
	}
	return r.Repository + ":" + r.Tag
}

// IsZero reports whether the reference is empty.
func (r ImageRef) IsZero() bool {
	return r.Repository == ""
}

// ParseImageRef parses a repo[:tag] string into an ImageRef without
// normalization, so short names like "alice-kdk:1000" round-trip exactly
// as the engine reports them. An untagged reference defaults to "latest".
func ParseImageRef(s string) (ImageRef, error) {
	ref, err := reference.Parse(s)
	if err != nil {
		return ImageRef{}, fmt.Errorf("parse image reference %q: %w", s, err)
	}
	named, ok := ref.(reference.Named)
	if !ok {
		return ImageRef{}, fmt.Errorf("image reference %q has no repository name", s)
	}
	out := ImageRef{Repository: named.Name(), Tag: "latest"}
	if tagged, ok := ref.(reference.Tagged); ok {
		out.Tag = tagged.Tag()
	}
	return out, nil
}

// RunOptions enumerates the container creation options the lifecycle
// commands support. Every field is named and validated before use; there
// is no pass-through option map.
type RunOptions struct {
	// Name is the container name. Required.
	Name string
	// Hostname sets the container hostname.
	Hostname string
	// Env holds environment variables injected into the container.
	Env map[string]string
	// Volumes are bind mounts in "host:container[:mode]" form.
	Volumes []string
	// Ports are published ports in "host:container" form.
	Ports []string
	// Capabilities are Linux capabilities added to the container.
	Capabilities []string
	// SecurityOpt holds engine security options (e.g. seccomp profiles).
	SecurityOpt []string
	// Privileged runs the container with extended privileges.
	Privileged bool
}
