package lttng

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes one daemon command given its argument vector and returns
// the command's combined output. A nil error means the command exited with
// status zero.
type Runner interface {
	Run(ctx context.Context, args ...string) ([]byte, error)
}

// execRunner invokes the daemon binary as a child process.
type execRunner struct {
	bin string
}

func (r execRunner) Run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, r.bin, args...) //nolint:gosec // Argument vectors are built from fixed subcommand templates.

	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w: %s",
			r.bin, strings.Join(args, " "), err, bytes.TrimSpace(out))
	}

	return out, nil
}
