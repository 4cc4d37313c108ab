// Package runtime defines the Runtime interface over the container engine.
package runtime

import "context"

// Runtime abstracts the container engine primitives the lifecycle commands
// are composed from. Implementations translate engine-specific errors for
// a missing container or image into ErrNotFound.
type Runtime interface {
	// GetContainer returns the descriptor for the named container.
	// Returns ErrNotFound when no container with that name exists.
	GetContainer(ctx context.Context, name string) (Descriptor, error)

	// ListImages returns every image reference known to the engine.
	// Images without a repo:tag (dangling layers) are omitted.
	ListImages(ctx context.Context) ([]ImageRef, error)

	// PullImage fetches the image into the local cache. Pulling an image
	// that is already current is a no-op at the engine level.
	PullImage(ctx context.Context, ref ImageRef) error

	// RunContainer creates and starts a container from the image with the
	// given options and returns its descriptor.
	RunContainer(ctx context.Context, ref ImageRef, opts RunOptions) (Descriptor, error)

	// CommitContainer snapshots the named container's filesystem into a
	// new image tagged ref.
	CommitContainer(ctx context.Context, name string, ref ImageRef) error

	// RemoveContainer deletes the named container. Returns ErrNotFound
	// when it does not exist.
	RemoveContainer(ctx context.Context, name string, force bool) error

	// KillContainer sends SIGKILL to the named container.
	KillContainer(ctx context.Context, name string) error

	// RemoveImage deletes the image from the local cache.
	RemoveImage(ctx context.Context, ref ImageRef) error

	// ExecContainer runs cmd inside the named container over the engine's
	// exec channel, streaming output to the process stdout/stderr, and
	// returns the command's exit code.
	ExecContainer(ctx context.Context, name string, cmd []string) (int, error)
}
