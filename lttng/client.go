package lttng

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// DefaultBinary is the daemon control binary invoked for every command.
const DefaultBinary = "lttng"

// Domain selects the tracing domain a command applies to.
type Domain int

const (
	// DomainKernel targets kernel tracing.
	DomainKernel Domain = iota
	// DomainUser targets userspace (UST) tracing.
	DomainUser
)

// String returns the human-readable domain name.
func (d Domain) String() string {
	if d == DomainKernel {
		return "kernel"
	}

	return "userspace"
}

func (d Domain) flag() string {
	if d == DomainKernel {
		return "-k"
	}

	return "-u"
}

// Client issues commands to the tracing daemon.
//
// Create instances with [NewClient].
type Client struct {
	// Runner executes commands; replace it in tests.
	Runner Runner
	// Out receives the command transcript in dry-run mode and the
	// daemon's output for listing commands.
	Out io.Writer
	// DryRun prints every command instead of executing it.
	DryRun bool
}

// NewClient creates a [Client] executing the lttng binary found on PATH.
func NewClient() *Client {
	return &Client{
		Runner: execRunner{bin: DefaultBinary},
		Out:    os.Stdout,
	}
}

func (c *Client) run(ctx context.Context, args ...string) error {
	_, err := c.runOutput(ctx, args...)

	return err
}

func (c *Client) runOutput(ctx context.Context, args ...string) ([]byte, error) {
	if c.DryRun {
		fmt.Fprintln(c.Out, DefaultBinary+" "+strings.Join(args, " "))

		return nil, nil
	}

	slog.Debug("lttng", "args", strings.Join(args, " "))

	return c.Runner.Run(ctx, args...)
}

// Create creates a session writing its trace under outputDir.
func (c *Client) Create(ctx context.Context, name, outputDir string) error {
	return c.run(ctx, "create", name, "-o", outputDir)
}

// EnableChannel creates a channel in the given domain with the given buffer
// geometry. subbufSize uses the daemon's size syntax, e.g. "1024K".
func (c *Client) EnableChannel(ctx context.Context, channel string, d Domain, subbufSize string, numSubbuf int) error {
	return c.run(ctx, "enable-channel", channel, d.flag(),
		"--subbuf-size", subbufSize,
		"--num-subbuf", strconv.Itoa(numSubbuf))
}

// EnableAllEvents enables every event of the domain on the channel.
func (c *Client) EnableAllEvents(ctx context.Context, channel string, d Domain) error {
	return c.run(ctx, "enable-event", "-c", channel, "-a", d.flag())
}

// EnableEvents enables the named events on the channel.
func (c *Client) EnableEvents(ctx context.Context, channel string, d Domain, events []string) error {
	return c.run(ctx, "enable-event", "-c", channel, d.flag(), strings.Join(events, ","))
}

// EnableSyscalls enables the system-call event class on a kernel channel.
func (c *Client) EnableSyscalls(ctx context.Context, channel string) error {
	return c.run(ctx, "enable-event", "-c", channel, "-a", "-k", "--syscall")
}

// AddContext attaches per-event context types to the channel.
func (c *Client) AddContext(ctx context.Context, channel string, d Domain, types ...string) error {
	args := []string{"add-context", "-c", channel, d.flag()}
	for _, t := range types {
		args = append(args, "-t", t)
	}

	return c.run(ctx, args...)
}

// Start starts tracing in the current session.
func (c *Client) Start(ctx context.Context) error {
	return c.run(ctx, "start")
}

// Stop stops tracing in the current session.
func (c *Client) Stop(ctx context.Context) error {
	return c.run(ctx, "stop")
}

// Destroy destroys the named session. Trace data on disk is kept.
func (c *Client) Destroy(ctx context.Context, name string) error {
	return c.run(ctx, "destroy", name)
}

// DestroyAll destroys every session known to the daemon.
func (c *Client) DestroyAll(ctx context.Context) error {
	return c.run(ctx, "destroy", "-a")
}

// List writes the daemon's session listing to Out.
func (c *Client) List(ctx context.Context) error {
	out, err := c.runOutput(ctx, "list")
	if err != nil {
		return err
	}

	_, err = c.Out.Write(out)

	return err
}
