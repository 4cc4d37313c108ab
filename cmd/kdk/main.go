// Kdk manages a single named development container on the local Docker
// engine: its configuration, base image, lifecycle, provisioning, ssh
// access, and timestamped snapshot images.
//
// Usage:
//
//	kdk <command> [flags]
//
// Commands:
//
//	init       write default configuration, generate ssh keys, pull base image
//	pull       pull the configured base image
//	up         start the container (prompts for a snapshot when any exist)
//	provision  run the in-container provisioning script
//	ssh        open an interactive ssh session into the container
//	snapshot   commit the running container to a timestamped image
//	prune      remove stale snapshot images
//	destroy    kill and remove the container
//	restart    snapshot, destroy, start from the snapshot, prune
//	status     show container state and snapshots
//	history    show recent operations
//	version    print version information
//
// Optional environment variables:
//
//	KDK_HOME        - kdk home directory (default: ~/.kdk)
//	KDK_USER        - override the snapshot namespace user (default: current user)
//	KDK_LOG_LEVEL   - "debug", "info", "warn", "error" (default: "info")
//	KDK_LOG_FORMAT  - "text" or "json" (default: "text")
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"os/user"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/kdk-project/kdk/common/environment"
	"github.com/kdk-project/kdk/common/version"
	"github.com/kdk-project/kdk/internal/kdk/config"
	"github.com/kdk-project/kdk/internal/kdk/lifecycle"
	"github.com/kdk-project/kdk/internal/kdk/observability"
	"github.com/kdk-project/kdk/internal/kdk/runtime/docker"
	"github.com/kdk-project/kdk/internal/kdk/store"
)

func main() {
	observability.Setup(
		environment.StringOr("KDK_LOG_LEVEL", "info"),
		environment.StringOr("KDK_LOG_FORMAT", "text"),
	)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	command, args := os.Args[1], os.Args[2:]

	switch command {
	case "version", "--version":
		fmt.Println("kdk", version.Info())
		return
	case "help", "--help", "-h":
		usage()
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, command, args); err != nil {
		switch {
		case errors.Is(err, lifecycle.ErrDeclined):
			fmt.Fprintln(os.Stderr, "Aborted.")
		case errors.Is(err, lifecycle.ErrAlreadyRunning):
			// The status line was already printed.
		case errors.Is(err, errUnknownCommand):
			fmt.Fprintf(os.Stderr, "kdk: unknown command %q\n", command)
			usage()
			os.Exit(2)
		default:
			slog.Error("command failed", "command", command, "err", err)
		}
		os.Exit(1)
	}
}

var errUnknownCommand = errors.New("unknown command")

func run(ctx context.Context, command string, args []string) error {
	rt, err := docker.New()
	if err != nil {
		return fmt.Errorf("connect to docker: %w", err)
	}

	// The history store is an observer, not a dependency: a failure to
	// open it must not block lifecycle commands.
	var history lifecycle.History
	var st *store.Store
	if err := os.MkdirAll(config.Dir(), 0o700); err == nil {
		st, err = store.New(filepath.Join(config.Dir(), "kdk.db"))
		if err != nil {
			slog.Warn("history store unavailable", "err", err)
		} else {
			defer st.Close()
			history = st
		}
	}

	orch := lifecycle.New(rt, resolveUser(), lifecycle.Options{History: history})
	yes := hasFlag(args, "-y", "--yes")

	switch command {
	case "init":
		return orch.Init(ctx)
	case "pull":
		return orch.Pull(ctx)
	case "up":
		return orch.Up(ctx, lifecycle.UpOptions{NonInteractive: yes})
	case "provision":
		return orch.Provision(ctx)
	case "ssh":
		return orch.SSH(ctx)
	case "snapshot":
		_, err := orch.Snapshot(ctx)
		return err
	case "prune":
		return orch.Prune(ctx, yes)
	case "destroy":
		return orch.Destroy(ctx, yes)
	case "restart":
		return orch.Restart(ctx)
	case "status":
		return orch.Status(ctx)
	case "history":
		return printHistory(ctx, st, args)
	default:
		return errUnknownCommand
	}
}

// resolveUser returns the name the snapshot repository is derived from.
func resolveUser() string {
	if v := os.Getenv("KDK_USER"); v != "" {
		return v
	}
	u, err := user.Current()
	if err != nil || u.Username == "" {
		slog.Warn("cannot determine current user, using fallback", "err", err)
		return "kdk"
	}
	return u.Username
}

func printHistory(ctx context.Context, st *store.Store, args []string) error {
	if st == nil {
		return errors.New("history store unavailable")
	}
	limit := 20
	for _, a := range args {
		if n, err := strconv.Atoi(a); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := st.RecentHistory(ctx, limit)
	if err != nil {
		return err
	}
	for _, e := range entries {
		line := fmt.Sprintf("%s  %-10s %-9s", e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.Command, e.Outcome)
		if e.Target.Valid {
			line += "  " + e.Target.String
		}
		if e.ErrorMessage.Valid {
			line += "  (" + e.ErrorMessage.String + ")"
		}
		fmt.Println(line)
	}
	return nil
}

func hasFlag(args []string, names ...string) bool {
	for _, a := range args {
		for _, n := range names {
			if a == n {
				return true
			}
		}
	}
	return false
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: kdk <command> [flags]

Commands:
  init       write default configuration, generate ssh keys, pull base image
  pull       pull the configured base image
  up         start the container (prompts for a snapshot when any exist)
  provision  run the in-container provisioning script
  ssh        open an interactive ssh session into the container
  snapshot   commit the running container to a timestamped image
  prune      remove stale snapshot images
  destroy    kill and remove the container
  restart    snapshot, destroy, start from the snapshot, prune
  status     show container state and snapshots
  history    show recent operations
  version    print version information

Flags:
  -y, --yes  skip confirmation prompts (prune, destroy); start up non-interactively`)
}
