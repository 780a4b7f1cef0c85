package record

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/TheMatthew/lttng-utils/lttng"
	"github.com/TheMatthew/lttng-utils/profile"
)

const (
	kernelChannel = "k"
	userChannel   = "u"

	// SyscallEvent is the sentinel kernel event name requesting the
	// system-call event class instead of a named tracepoint.
	SyscallEvent = "syscall"

	// schedSwitchEvent carries enough state for per-event process
	// attribution, making explicit context redundant.
	schedSwitchEvent = "sched_switch"

	timestampFormat = "20060102-150405"
)

// ErrNothingToTrace indicates that no events were resolved and all-events
// mode was not requested.
var ErrNothingToTrace = errors.New("nothing to trace")

// SessionName generates the session name for the active domains:
// <base>[-k][-u]-<timestamp>.
func SessionName(base string, kernel, ust bool, now time.Time) string {
	var sb strings.Builder

	sb.WriteString(base)

	if kernel {
		sb.WriteString("-k")
	}

	if ust {
		sb.WriteString("-u")
	}

	sb.WriteString("-")
	sb.WriteString(now.Format(timestampFormat))

	return sb.String()
}

// Recorder drives the daemon through one trace session.
//
// Create instances with [Config.NewRecorder].
type Recorder struct {
	Client *lttng.Client
	Token  *Token

	// WaitInterval is the poll interval of the manual wait loop.
	WaitInterval time.Duration
	// Progress receives the wait loop's progress indicator.
	Progress io.Writer

	Config
}

// Record creates, configures, starts, and tears down one session. With a
// command it runs the command under trace; without one it blocks until
// interrupted (unless in dry-run mode). It returns the session output
// directory.
//
// Once the session exists, stop and destroy are issued exactly once on
// every path, including configuration and start failures.
func (r *Recorder) Record(ctx context.Context, events *profile.EventSet, command []string) (string, error) {
	kernel := r.All || len(events.Kernel) > 0
	ust := r.All || len(events.UST) > 0

	if !kernel && !ust {
		return "", ErrNothingToTrace
	}

	name := SessionName(r.Session, kernel, ust, time.Now())
	outputDir := filepath.Join(r.Output, name)

	err := r.create(ctx, name, outputDir)
	if err != nil {
		return "", err
	}

	defer r.teardown(name)

	err = r.configure(ctx, events, kernel, ust)
	if err != nil {
		return "", err
	}

	err = r.Client.Start(ctx)
	if err != nil {
		return "", fmt.Errorf("starting session %s: %w", name, err)
	}

	switch {
	case len(command) > 0:
		r.runCommand(ctx, command, events.Preload)
	case !r.DryRun:
		r.Token.Notify()
		r.Token.Wait(r.WaitInterval, r.Progress)
	}

	return outputDir, nil
}

// create issues the create command, retrying exactly once after a
// best-effort destroy. A second failure is fatal.
func (r *Recorder) create(ctx context.Context, name, outputDir string) error {
	err := r.Client.Create(ctx, name, outputDir)
	if err == nil {
		return nil
	}

	slog.Warn("session creation failed, destroying and retrying",
		"session", name, "error", err)

	destroyErr := r.Client.Destroy(ctx, name)
	if destroyErr != nil {
		slog.Debug("pre-retry destroy failed", "session", name, "error", destroyErr)
	}

	err = r.Client.Create(ctx, name, outputDir)
	if err != nil {
		return fmt.Errorf("creating session %s: %w", name, err)
	}

	return nil
}

// configure sets up channels, events, and context for each active domain.
func (r *Recorder) configure(ctx context.Context, events *profile.EventSet, kernel, ust bool) error {
	contextAdded := false

	if kernel {
		var err error

		contextAdded, err = r.configureKernel(ctx, events.Kernel)
		if err != nil {
			return err
		}
	}

	if ust {
		err := r.configureUser(ctx, events.UST, kernel, contextAdded)
		if err != nil {
			return err
		}
	}

	return nil
}

func (r *Recorder) configureKernel(ctx context.Context, kernelEvents []string) (bool, error) {
	if r.All {
		err := r.Client.EnableChannel(ctx, kernelChannel, lttng.DomainKernel, "2048K", 8)
		if err != nil {
			return false, fmt.Errorf("creating kernel channel: %w", err)
		}

		err = r.Client.EnableAllEvents(ctx, kernelChannel, lttng.DomainKernel)
		if err != nil {
			return false, fmt.Errorf("enabling all kernel events: %w", err)
		}

		return false, nil
	}

	err := r.Client.EnableChannel(ctx, kernelChannel, lttng.DomainKernel, "1024K", 8)
	if err != nil {
		return false, fmt.Errorf("creating kernel channel: %w", err)
	}

	contextAdded := false

	if !slices.Contains(kernelEvents, schedSwitchEvent) || r.Stateless {
		err = r.Client.AddContext(ctx, kernelChannel, lttng.DomainKernel,
			"pid", "tid", "procname")
		if err != nil {
			return false, fmt.Errorf("adding kernel context: %w", err)
		}

		contextAdded = true
	}

	if slices.Contains(kernelEvents, SyscallEvent) {
		kernelEvents = slices.DeleteFunc(slices.Clone(kernelEvents), func(e string) bool {
			return e == SyscallEvent
		})

		// The daemon can report failure here even when syscall tracing
		// is already active; tolerate it.
		err = r.Client.EnableSyscalls(ctx, kernelChannel)
		if err != nil {
			slog.Warn("enabling syscall events failed", "error", err)
		}
	}

	if len(kernelEvents) > 0 {
		err = r.Client.EnableEvents(ctx, kernelChannel, lttng.DomainKernel, kernelEvents)
		if err != nil {
			return false, fmt.Errorf("enabling kernel events: %w", err)
		}
	}

	return contextAdded, nil
}

func (r *Recorder) configureUser(ctx context.Context, ustEvents []string, kernel, contextAdded bool) error {
	err := r.Client.EnableChannel(ctx, userChannel, lttng.DomainUser, "1024K", 8)
	if err != nil {
		return fmt.Errorf("creating userspace channel: %w", err)
	}

	if r.All {
		err = r.Client.EnableAllEvents(ctx, userChannel, lttng.DomainUser)
		if err != nil {
			return fmt.Errorf("enabling all userspace events: %w", err)
		}

		return nil
	}

	err = r.Client.EnableEvents(ctx, userChannel, lttng.DomainUser, ustEvents)
	if err != nil {
		return fmt.Errorf("enabling userspace events: %w", err)
	}

	if !kernel || contextAdded {
		err = r.Client.AddContext(ctx, userChannel, lttng.DomainUser, "vpid", "vtid")
		if err != nil {
			return fmt.Errorf("adding userspace context: %w", err)
		}
	}

	return nil
}

// runCommand executes the traced command to completion. The command's exit
// status is not a tracing failure. In dry-run mode the command line is
// printed instead.
func (r *Recorder) runCommand(ctx context.Context, command, preload []string) {
	if r.DryRun {
		fmt.Fprintln(r.Client.Out, strings.Join(command, " "))

		return
	}

	cmd := exec.CommandContext(ctx, command[0], command[1:]...) //nolint:gosec // Running the user-supplied command is the point.
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()

	if len(preload) > 0 {
		cmd.Env = append(cmd.Env, "LD_PRELOAD="+strings.Join(preload, " "))
	}

	err := cmd.Run()
	if err != nil {
		slog.Warn("traced command exited with error", "error", err)
	}
}

// teardown stops and destroys the session, best-effort.
func (r *Recorder) teardown(name string) {
	ctx := context.Background()

	err := r.Client.Stop(ctx)
	if err != nil {
		slog.Warn("stopping session failed", "session", name, "error", err)
	}

	err = r.Client.Destroy(ctx, name)
	if err != nil {
		slog.Warn("destroying session failed", "session", name, "error", err)
	}
}
