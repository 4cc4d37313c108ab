package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/kdk-project/kdk/common/retry"
	"github.com/kdk-project/kdk/internal/kdk/config"
	"github.com/kdk-project/kdk/internal/kdk/runtime"
	"github.com/kdk-project/kdk/internal/kdk/tags"
)

// Init writes the default configuration record, generates the ssh keypair
// if absent, and pulls the base image. Overwriting an existing
// configuration requires explicit confirmation.
func (o *Orchestrator) Init(ctx context.Context) error {
	trace := newTraceID()

	if config.Exists(o.cfgPath) {
		ok, err := o.prompt.Confirm(fmt.Sprintf("Configuration %s exists. Overwrite?", o.cfgPath))
		if err != nil {
			return err
		}
		if !ok {
			o.record(ctx, trace, "init", "", ErrDeclined, "")
			return ErrDeclined
		}
	}

	cfg := config.Default(o.user)
	if err := config.Save(o.cfgPath, cfg); err != nil {
		o.record(ctx, trace, "init", "", err, "")
		return err
	}
	o.printf("Wrote configuration to %s", o.cfgPath)

	// Key generation failure must not abort init.
	o.swallow("keygen", o.keygen(o.dir))

	if err := o.Pull(ctx); err != nil {
		o.record(ctx, trace, "init", cfg.Image, err, "")
		return err
	}

	o.record(ctx, trace, "init", cfg.Image, nil, "configuration written")
	return nil
}

// Pull fetches the configured base image into the local cache. Re-pulling
// a current image is a no-op at the engine level.
func (o *Orchestrator) Pull(ctx context.Context) error {
	trace := newTraceID()

	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}
	base, err := cfg.BaseImage()
	if err != nil {
		return err
	}

	o.printf("Pulling %s ...", base)
	if err := o.rt.PullImage(ctx, base); err != nil {
		o.record(ctx, trace, "pull", base.String(), err, "")
		return err
	}
	o.printf("Pulled %s", base)
	o.record(ctx, trace, "pull", base.String(), nil, "")
	return nil
}

// UpOptions carries transient overrides for Up.
type UpOptions struct {
	// Image overrides image selection when non-zero (used by restart to
	// start from the just-taken snapshot).
	Image runtime.ImageRef
	// NonInteractive skips the snapshot selection prompt and starts from
	// Image or the configured base.
	NonInteractive bool
}

// Up starts the managed container if absent. When snapshots exist and the
// call is interactive, the user picks the image to start from; the offered
// default is always the configured base image, not the newest snapshot.
// Returns ErrAlreadyRunning without mutating anything when the container
// exists.
func (o *Orchestrator) Up(ctx context.Context, opts UpOptions) error {
	trace := newTraceID()

	if desc, err := o.getContainer(ctx); err == nil {
		o.printf("Container %s is already running (image %s)", desc.Name, desc.Image)
		o.record(ctx, trace, "up", desc.Image, ErrAlreadyRunning, "")
		return ErrAlreadyRunning
	} else if !errors.Is(err, runtime.ErrNotFound) {
		return err
	}

	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}
	base, err := cfg.BaseImage()
	if err != nil {
		return err
	}

	image, err := o.resolveImage(ctx, base, opts)
	if err != nil {
		return err
	}

	o.printf("Starting %s from %s ...", config.ContainerName, image)
	desc, err := o.rt.RunContainer(ctx, image, cfg.RunOptions())
	if err != nil {
		o.record(ctx, trace, "up", image.String(), err, "")
		return err
	}
	o.printf("Started %s (%s)", desc.Name, shortID(desc.ID))
	o.record(ctx, trace, "up", image.String(), nil, shortID(desc.ID))

	return o.Provision(ctx)
}

// resolveImage picks the image Up starts from: an explicit override, the
// user's snapshot choice, or the configured base.
func (o *Orchestrator) resolveImage(ctx context.Context, base runtime.ImageRef, opts UpOptions) (runtime.ImageRef, error) {
	if !opts.Image.IsZero() {
		return opts.Image, nil
	}

	refs, err := o.rt.ListImages(ctx)
	if err != nil {
		return runtime.ImageRef{}, err
	}
	snapshots := tags.Filter(o.user, refs)
	if len(snapshots) == 0 || opts.NonInteractive {
		return base, nil
	}

	options := make([]string, len(snapshots))
	for i, s := range snapshots {
		options[i] = s.String()
	}
	choice, err := o.prompt.Select("Snapshots found. Start from:", options, base.String())
	if err != nil {
		return runtime.ImageRef{}, err
	}
	return runtime.ParseImageRef(choice)
}

// Provision runs the in-container provisioning script. The script itself
// is idempotent; a non-zero exit is fatal for this command.
func (o *Orchestrator) Provision(ctx context.Context) error {
	trace := newTraceID()

	if _, err := o.getContainer(ctx); err != nil {
		return err
	}

	// The engine may report the container before its init has settled;
	// poll until it is running.
	err := retry.Do(ctx, retry.DefaultConfig, func() error {
		desc, err := o.getContainer(ctx)
		if err != nil {
			return err
		}
		if !desc.Running() {
			return fmt.Errorf("container %s is %s, not running", desc.Name, desc.State)
		}
		return nil
	})
	if err != nil {
		return err
	}

	o.printf("Provisioning %s ...", config.ContainerName)
	code, err := o.rt.ExecContainer(ctx, config.ContainerName, provisionCommand)
	if err != nil {
		o.record(ctx, trace, "provision", config.ContainerName, err, "")
		return err
	}
	if code != 0 {
		err := fmt.Errorf("provisioning exited with code %d", code)
		o.record(ctx, trace, "provision", config.ContainerName, err, "")
		return err
	}
	o.printf("Provisioned %s", config.ContainerName)
	o.record(ctx, trace, "provision", config.ContainerName, nil, "")
	return nil
}

// SSH opens an interactive session to the container's published port.
// Session errors are best-effort: logged, never fatal.
func (o *Orchestrator) SSH(ctx context.Context) error {
	trace := newTraceID()

	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}

	o.swallow("ssh session", o.session(cfg.SSH))
	o.record(ctx, trace, "ssh", config.ContainerName, nil, "")
	return nil
}

// Snapshot commits the running container's filesystem to a new per-user
// snapshot image and returns its reference. Fails when the container is
// absent.
func (o *Orchestrator) Snapshot(ctx context.Context) (runtime.ImageRef, error) {
	trace := newTraceID()

	if _, err := o.getContainer(ctx); err != nil {
		o.record(ctx, trace, "snapshot", "", err, "")
		return runtime.ImageRef{}, err
	}

	ref := tags.Derive(o.user, o.now())
	o.printf("Committing %s to %s ...", config.ContainerName, ref)
	if err := o.rt.CommitContainer(ctx, config.ContainerName, ref); err != nil {
		o.record(ctx, trace, "snapshot", ref.String(), err, "")
		return runtime.ImageRef{}, err
	}
	o.printf("Snapshot %s created", ref)
	o.record(ctx, trace, "snapshot", ref.String(), nil, "")
	return ref, nil
}

// Prune removes every snapshot image of the user's that is not backing
// the currently running container. Interactive calls require
// confirmation; an empty stale set is a reported no-op.
func (o *Orchestrator) Prune(ctx context.Context, nonInteractive bool) error {
	trace := newTraceID()

	runningImage := ""
	if desc, err := o.getContainer(ctx); err == nil {
		runningImage = desc.Image
	} else if !errors.Is(err, runtime.ErrNotFound) {
		return err
	}

	refs, err := o.rt.ListImages(ctx)
	if err != nil {
		return err
	}

	var stale []runtime.ImageRef
	for _, ref := range refs {
		if tags.IsStale(o.user, ref.String(), runningImage) {
			stale = append(stale, ref)
		}
	}

	if len(stale) == 0 {
		o.printf("No stale snapshots to remove")
		o.record(ctx, trace, "prune", "", nil, "nothing stale")
		return nil
	}

	if !nonInteractive {
		ok, err := o.prompt.Confirm(fmt.Sprintf("Remove %d stale snapshot(s)?", len(stale)))
		if err != nil {
			return err
		}
		if !ok {
			o.record(ctx, trace, "prune", "", ErrDeclined, "")
			return ErrDeclined
		}
	}

	for _, ref := range stale {
		o.printf("Removing %s", ref)
		if err := o.rt.RemoveImage(ctx, ref); err != nil {
			o.record(ctx, trace, "prune", ref.String(), err, "")
			return err
		}
	}
	o.record(ctx, trace, "prune", "", nil, fmt.Sprintf("removed %d", len(stale)))
	return nil
}

// Destroy force-removes the managed container. Fails when it does not
// exist; interactive calls require confirmation.
func (o *Orchestrator) Destroy(ctx context.Context, nonInteractive bool) error {
	trace := newTraceID()

	desc, err := o.getContainer(ctx)
	if err != nil {
		o.record(ctx, trace, "destroy", config.ContainerName, err, "")
		return err
	}

	if !nonInteractive {
		ok, err := o.prompt.Confirm(fmt.Sprintf("Destroy container %s?", desc.Name))
		if err != nil {
			return err
		}
		if !ok {
			o.record(ctx, trace, "destroy", desc.Name, ErrDeclined, "")
			return ErrDeclined
		}
	}

	// Kill first so removal does not wait out a graceful stop.
	o.swallow("kill", o.rt.KillContainer(ctx, config.ContainerName))

	if err := o.rt.RemoveContainer(ctx, config.ContainerName, true); err != nil {
		o.record(ctx, trace, "destroy", desc.Name, err, "")
		return err
	}
	o.printf("Destroyed %s", desc.Name)
	o.record(ctx, trace, "destroy", desc.Name, nil, "")
	return nil
}

// Restart replaces the running container with a fresh instance started
// from a just-taken snapshot: snapshot, destroy, up, prune, in that
// order. A snapshot failure aborts the whole sequence before destroy;
// later failures leave partial completion, with no compensation.
func (o *Orchestrator) Restart(ctx context.Context) error {
	ref, err := o.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("restart aborted, snapshot failed: %w", err)
	}
	if err := o.Destroy(ctx, true); err != nil {
		return err
	}
	if err := o.Up(ctx, UpOptions{Image: ref, NonInteractive: true}); err != nil {
		return err
	}
	return o.Prune(ctx, true)
}

// Status reports the container's current state and the user's snapshots.
func (o *Orchestrator) Status(ctx context.Context) error {
	desc, err := o.getContainer(ctx)
	switch {
	case errors.Is(err, runtime.ErrNotFound):
		o.printf("Container:  absent")
	case err != nil:
		return err
	default:
		o.printf("Container:  %s (%s)", desc.State, shortID(desc.ID))
		o.printf("Image:      %s", desc.Image)
	}

	refs, err := o.rt.ListImages(ctx)
	if err != nil {
		return err
	}
	snapshots := tags.Filter(o.user, refs)
	o.printf("Snapshots:  %d", len(snapshots))
	for _, s := range snapshots {
		o.printf("  %s", s)
	}
	return nil
}

// shortID returns up to 12 bytes of an engine ID.
func shortID(s string) string {
	if len(s) <= 12 {
		return s
	}
	return s[:12]
}
