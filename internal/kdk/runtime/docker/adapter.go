// Package docker provides the Docker Engine adapter for the kdk runtime.
package docker

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	dockerclient "github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"

	"github.com/kdk-project/kdk/internal/kdk/runtime"
)

const labelManagedBy = "kdk.managed-by"

// Adapter implements runtime.Runtime using the Docker Engine API.
type Adapter struct {
	client *dockerclient.Client
}

// New creates a Docker runtime adapter.
// Uses the DOCKER_HOST env var or the default socket path.
func New() (*Adapter, error) {
	cli, err := dockerclient.NewClientWithOpts(
		dockerclient.FromEnv,
		dockerclient.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}
	return &Adapter{client: cli}, nil
}

// GetContainer inspects the named container.
func (a *Adapter) GetContainer(ctx context.Context, name string) (runtime.Descriptor, error) {
	inspect, err := a.client.ContainerInspect(ctx, name)
	if err != nil {
		if dockerclient.IsErrNotFound(err) {
			return runtime.Descriptor{}, fmt.Errorf("container %q: %w", name, runtime.ErrNotFound)
		}
		return runtime.Descriptor{}, fmt.Errorf("inspect container %q: %w", name, err)
	}

	desc := runtime.Descriptor{
		ID:   inspect.ID,
		Name: strings.TrimPrefix(inspect.Name, "/"),
	}
	if inspect.State != nil {
		desc.State = parseContainerState(inspect.State.Status)
	}
	if inspect.Config != nil {
		desc.Image = inspect.Config.Image
	}
	return desc, nil
}

// ListImages returns all tagged images in the local cache.
func (a *Adapter) ListImages(ctx context.Context) ([]runtime.ImageRef, error) {
	summaries, err := a.client.ImageList(ctx, image.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}

	refs := make([]runtime.ImageRef, 0, len(summaries))
	for _, s := range summaries {
		for _, repoTag := range s.RepoTags {
			if strings.Contains(repoTag, "<none>") {
				continue
			}
			ref, err := runtime.ParseImageRef(repoTag)
			if err != nil {
				continue
			}
			refs = append(refs, ref)
		}
	}
	return refs, nil
}

// PullImage fetches ref into the local image cache, blocking until the
// pull stream is drained.
func (a *Adapter) PullImage(ctx context.Context, ref runtime.ImageRef) error {
	reader, err := a.client.ImagePull(ctx, ref.String(), image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull image %s: %w", ref, err)
	}
	defer reader.Close()
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("pull image %s: %w", ref, err)
	}
	return nil
}

// RunContainer creates and starts a container from ref.
func (a *Adapter) RunContainer(ctx context.Context, ref runtime.ImageRef, opts runtime.RunOptions) (runtime.Descriptor, error) {
	if opts.Name == "" {
		return runtime.Descriptor{}, fmt.Errorf("opts.Name is required")
	}

	env := make([]string, 0, len(opts.Env))
	for k, v := range opts.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}

	containerCfg := &container.Config{
		Image:    ref.String(),
		Hostname: opts.Hostname,
		Env:      env,
		Labels:   map[string]string{labelManagedBy: "kdk"},
	}

	hostCfg := &container.HostConfig{
		Binds:       opts.Volumes,
		CapAdd:      opts.Capabilities,
		SecurityOpt: opts.SecurityOpt,
		Privileged:  opts.Privileged,
	}

	if len(opts.Ports) > 0 {
		exposed, bindings, err := nat.ParsePortSpecs(opts.Ports)
		if err != nil {
			return runtime.Descriptor{}, fmt.Errorf("parse port specs: %w", err)
		}
		containerCfg.ExposedPorts = exposed
		hostCfg.PortBindings = bindings
	}

	resp, err := a.client.ContainerCreate(ctx, containerCfg, hostCfg, nil, nil, opts.Name)
	if err != nil {
		return runtime.Descriptor{}, fmt.Errorf("create container: %w", err)
	}

	if err := a.client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		// Best-effort cleanup
		_ = a.client.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
		return runtime.Descriptor{}, fmt.Errorf("start container: %w", err)
	}

	return runtime.Descriptor{
		ID:    resp.ID,
		Name:  opts.Name,
		State: runtime.StateRunning,
		Image: ref.String(),
	}, nil
}

// CommitContainer snapshots the named container's filesystem into ref.
func (a *Adapter) CommitContainer(ctx context.Context, name string, ref runtime.ImageRef) error {
	_, err := a.client.ContainerCommit(ctx, name, container.CommitOptions{
		Reference: ref.String(),
		Pause:     true,
	})
	if err != nil {
		if dockerclient.IsErrNotFound(err) {
			return fmt.Errorf("container %q: %w", name, runtime.ErrNotFound)
		}
		return fmt.Errorf("commit container %q: %w", name, err)
	}
	return nil
}

// RemoveContainer deletes the named container.
func (a *Adapter) RemoveContainer(ctx context.Context, name string, force bool) error {
	err := a.client.ContainerRemove(ctx, name, container.RemoveOptions{Force: force})
	if err != nil {
		if dockerclient.IsErrNotFound(err) {
			return fmt.Errorf("container %q: %w", name, runtime.ErrNotFound)
		}
		return fmt.Errorf("remove container %q: %w", name, err)
	}
	return nil
}

// KillContainer sends SIGKILL to the named container.
func (a *Adapter) KillContainer(ctx context.Context, name string) error {
	if err := a.client.ContainerKill(ctx, name, "SIGKILL"); err != nil {
		if dockerclient.IsErrNotFound(err) {
			return fmt.Errorf("container %q: %w", name, runtime.ErrNotFound)
		}
		return fmt.Errorf("kill container %q: %w", name, err)
	}
	return nil
}

// RemoveImage deletes ref from the local image cache.
func (a *Adapter) RemoveImage(ctx context.Context, ref runtime.ImageRef) error {
	_, err := a.client.ImageRemove(ctx, ref.String(), image.RemoveOptions{})
	if err != nil {
		if dockerclient.IsErrNotFound(err) {
			return fmt.Errorf("image %s: %w", ref, runtime.ErrNotFound)
		}
		return fmt.Errorf("remove image %s: %w", ref, err)
	}
	return nil
}

// ExecContainer runs cmd inside the named container, streaming output to
// the process stdout/stderr, and returns the exit code.
func (a *Adapter) ExecContainer(ctx context.Context, name string, cmd []string) (int, error) {
	exec, err := a.client.ContainerExecCreate(ctx, name, container.ExecOptions{
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		if dockerclient.IsErrNotFound(err) {
			return -1, fmt.Errorf("container %q: %w", name, runtime.ErrNotFound)
		}
		return -1, fmt.Errorf("exec create: %w", err)
	}

	attach, err := a.client.ContainerExecAttach(ctx, exec.ID, container.ExecAttachOptions{})
	if err != nil {
		return -1, fmt.Errorf("exec attach: %w", err)
	}
	defer attach.Close()

	if _, err := stdcopy.StdCopy(os.Stdout, os.Stderr, attach.Reader); err != nil {
		return -1, fmt.Errorf("exec stream: %w", err)
	}

	inspect, err := a.client.ContainerExecInspect(ctx, exec.ID)
	if err != nil {
		return -1, fmt.Errorf("exec inspect: %w", err)
	}
	return inspect.ExitCode, nil
}

// --- helpers ---

func parseContainerState(s string) runtime.ContainerState {
	switch strings.ToLower(s) {
	case "running":
		return runtime.StateRunning
	case "exited":
		return runtime.StateExited
	case "created":
		return runtime.StateCreated
	case "paused":
		return runtime.StatePaused
	default:
		return runtime.StateUnknown
	}
}
