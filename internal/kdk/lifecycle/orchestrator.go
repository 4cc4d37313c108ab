// Package lifecycle implements the state-aware command set over the
// container runtime: init, pull, up, provision, ssh, snapshot, prune,
// destroy, and restart.
//
// There is no persisted state machine. Every command queries the runtime
// for the container's current state (absent or running), applies its
// guard, and performs at most one mutating call sequence. The composed
// restart command chains snapshot, destroy, up, and prune, aborting
// before destroy when the snapshot fails.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/kdk-project/kdk/internal/kdk/config"
	"github.com/kdk-project/kdk/internal/kdk/prompt"
	"github.com/kdk-project/kdk/internal/kdk/runtime"
	"github.com/kdk-project/kdk/internal/kdk/sshkeys"
)

// ErrDeclined is returned when the user answers no at a confirmation
// prompt. It maps to a clean non-zero exit, not a failure report.
var ErrDeclined = errors.New("lifecycle: declined by user")

// ErrAlreadyRunning is returned by up when the container already exists.
var ErrAlreadyRunning = errors.New("lifecycle: container already running")

// BestEffortError wraps a failure that is intentionally non-fatal (ssh
// session teardown, keypair generation). It is logged and never
// propagated out of a command.
type BestEffortError struct {
	Op  string
	Err error
}

func (e *BestEffortError) Error() string {
	return fmt.Sprintf("best-effort %s: %v", e.Op, e.Err)
}

func (e *BestEffortError) Unwrap() error {
	return e.Err
}

// provisionCommand is the in-container provisioning entry point. The
// script is idempotent: it performs account and dotfile setup once and
// records completion in a flag file inside the container.
var provisionCommand = []string{"/usr/local/bin/kdk-provision"}

// History is the subset of the store used to record operations.
type History interface {
	WriteHistory(ctx context.Context, traceID, command, target, outcome, detail, errorMsg string) error
}

// Orchestrator sequences runtime calls for the managed container.
type Orchestrator struct {
	rt      runtime.Runtime
	prompt  *prompt.Prompter
	history History
	user    string
	dir     string
	cfgPath string
	out     io.Writer
	now     func() time.Time
	session func(config.SSH) error
	keygen  func(dir string) error
}

// Options configures an Orchestrator. Runtime and User are required; the
// remaining fields default to the production collaborators.
type Options struct {
	Prompt  *prompt.Prompter
	History History
	// Dir is the kdk home directory; defaults to config.Dir().
	Dir string
	// ConfigPath defaults to config.Path().
	ConfigPath string
	// Out receives human-readable status; defaults to os.Stdout.
	Out io.Writer
	// Now supplies the clock for snapshot tags; defaults to time.Now.
	Now func() time.Time
	// Session opens an interactive ssh session; defaults to sshkeys.Session.
	Session func(config.SSH) error
	// Keygen generates the ssh keypair; defaults to sshkeys.Generate.
	Keygen func(dir string) error
}

// New creates an Orchestrator for the given user over rt.
func New(rt runtime.Runtime, user string, opts Options) *Orchestrator {
	o := &Orchestrator{
		rt:      rt,
		prompt:  opts.Prompt,
		history: opts.History,
		user:    user,
		dir:     opts.Dir,
		cfgPath: opts.ConfigPath,
		out:     opts.Out,
		now:     opts.Now,
		session: opts.Session,
		keygen:  opts.Keygen,
	}
	if o.dir == "" {
		o.dir = config.Dir()
	}
	if o.cfgPath == "" {
		o.cfgPath = config.Path()
	}
	if o.out == nil {
		o.out = os.Stdout
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.session == nil {
		o.session = sshkeys.Session
	}
	if o.keygen == nil {
		o.keygen = sshkeys.Generate
	}
	if o.prompt == nil {
		o.prompt = prompt.New(os.Stdin, os.Stderr)
	}
	return o
}

// printf writes a human-readable status line.
func (o *Orchestrator) printf(format string, args ...any) {
	fmt.Fprintf(o.out, format+"\n", args...)
}

// record writes a history entry, best-effort.
func (o *Orchestrator) record(ctx context.Context, traceID, command, target string, opErr error, detail string) {
	if o.history == nil {
		return
	}
	outcome := "success"
	errMsg := ""
	if opErr != nil {
		outcome = "error"
		errMsg = opErr.Error()
		if errors.Is(opErr, ErrDeclined) {
			outcome = "declined"
		}
	}
	if err := o.history.WriteHistory(ctx, traceID, command, target, outcome, detail, errMsg); err != nil {
		slog.Warn("history write failed", "command", command, "err", err)
	}
}

// swallow logs a best-effort failure and drops it.
func (o *Orchestrator) swallow(op string, err error) {
	if err == nil {
		return
	}
	be := &BestEffortError{Op: op, Err: err}
	slog.Warn("best-effort operation failed", "op", op, "err", be.Err)
}

// loadConfig reads the configuration record for commands that require it.
func (o *Orchestrator) loadConfig() (*config.Config, error) {
	return config.Load(o.cfgPath)
}

// getContainer queries the current state of the managed container.
// A nil error means the container exists.
func (o *Orchestrator) getContainer(ctx context.Context) (runtime.Descriptor, error) {
	return o.rt.GetContainer(ctx, config.ContainerName)
}

func newTraceID() string {
	return uuid.New().String()
}
