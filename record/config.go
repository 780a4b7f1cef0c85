package record

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/TheMatthew/lttng-utils/lttng"
	"github.com/TheMatthew/lttng-utils/profile"
)

// EnvOutputDir names the environment variable supplying the default base
// output directory for recorded traces.
const EnvOutputDir = "LTTNG_TRACE_HOME"

// Flags holds CLI flag names for recording configuration, allowing callers
// to customize flag names while keeping sensible defaults via [NewConfig].
type Flags struct {
	Output      string
	Profiles    string
	ProfilePath string
	List        string
	Show        string
	All         string
	DryRun      string
	Stateless   string
	Session     string
	Verbose     string
}

// NewConfig creates a new [Config] embedding these flag names.
func (f Flags) NewConfig() *Config {
	return &Config{
		Flags: f,
	}
}

// Config holds CLI flag values for recording configuration.
//
// Create instances with [NewConfig] and register CLI flags with
// [Config.RegisterFlags]. Use [Config.NewRecorder] to create a [Recorder]
// that executes the trace session.
type Config struct {
	Flags Flags

	Output       string
	Profiles     string
	ProfilePaths []string
	Show         string
	Session      string
	List         bool
	All          bool
	DryRun       bool
	Stateless    bool
	Verbose      int
}

// NewConfig returns a new [Config] with default flag names.
// Use [Config.RegisterFlags] to add CLI flags, or set values directly.
func NewConfig() *Config {
	f := Flags{
		Output:      "output",
		Profiles:    "profiles",
		ProfilePath: "profile-path",
		List:        "list",
		Show:        "show",
		All:         "all",
		DryRun:      "dry-run",
		Stateless:   "stateless",
		Session:     "session",
		Verbose:     "verbose",
	}

	return f.NewConfig()
}

// RegisterFlags adds recording flags to the given [*pflag.FlagSet].
func (c *Config) RegisterFlags(flags *pflag.FlagSet) {
	flags.StringVarP(&c.Output, c.Flags.Output, "o", DefaultOutputDir(),
		"base directory for recorded traces")
	flags.StringVarP(&c.Profiles, c.Flags.Profiles, "p", "",
		"comma-separated profile names to enable")
	flags.StringArrayVar(&c.ProfilePaths, c.Flags.ProfilePath, nil,
		"extra profile search directory (repeatable, searched first)")
	flags.BoolVarP(&c.List, c.Flags.List, "l", false,
		"list available profiles and exit")
	flags.StringVar(&c.Show, c.Flags.Show, "",
		"print one resolved profile and exit")
	flags.BoolVarP(&c.All, c.Flags.All, "a", false,
		"enable all kernel and userspace events")
	flags.BoolVarP(&c.DryRun, c.Flags.DryRun, "n", false,
		"print daemon commands instead of executing them")
	flags.BoolVar(&c.Stateless, c.Flags.Stateless, false,
		"always attach pid/tid/procname context to the kernel channel")
	flags.StringVarP(&c.Session, c.Flags.Session, "s", "auto",
		"session base name")
	flags.CountVarP(&c.Verbose, c.Flags.Verbose, "v",
		"increase log verbosity (-v info, -vv debug)")
}

// RegisterCompletions registers shell completions for recording flags on
// cmd. Profile name completion lists the profiles found on the configured
// search path.
func (c *Config) RegisterCompletions(cmd *cobra.Command) error {
	profileNames := func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		store := profile.NewStore(c.SearchPath()...)

		var names []string
		for name := range store.List() {
			names = append(names, name)
		}

		slices.Sort(names)

		return names, cobra.ShellCompDirectiveNoFileComp
	}

	for _, flag := range []string{c.Flags.Profiles, c.Flags.Show} {
		err := cmd.RegisterFlagCompletionFunc(flag, profileNames)
		if err != nil {
			return fmt.Errorf("registering %s completion: %w", flag, err)
		}
	}

	err := cmd.RegisterFlagCompletionFunc(c.Flags.Session,
		cobra.FixedCompletions(nil, cobra.ShellCompDirectiveNoFileComp))
	if err != nil {
		return fmt.Errorf("registering %s completion: %w", c.Flags.Session, err)
	}

	return nil
}

// ProfileNames splits the comma-separated profiles flag into names,
// dropping empty entries.
func (c *Config) ProfileNames() []string {
	var names []string

	for _, name := range strings.Split(c.Profiles, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			names = append(names, name)
		}
	}

	return names
}

// SearchPath returns the profile search directories in priority order:
// CLI-provided directories first, then the user config directory, then the
// system-wide profile directory.
func (c *Config) SearchPath() []string {
	paths := slices.Clone(c.ProfilePaths)

	configDir, err := os.UserConfigDir()
	if err == nil {
		paths = append(paths, filepath.Join(configDir, "lttng-utils", "profiles"))
	}

	return append(paths, "/usr/share/lttng-utils/profiles")
}

// DefaultOutputDir returns the base output directory: $LTTNG_TRACE_HOME if
// set, else lttng-traces under the user's home directory.
func DefaultOutputDir() string {
	dir := os.Getenv(EnvOutputDir)
	if dir != "" {
		return dir
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "lttng-traces"
	}

	return filepath.Join(home, "lttng-traces")
}

// NewRecorder creates a new [Recorder] using this [Config].
func (c *Config) NewRecorder(client *lttng.Client) *Recorder {
	client.DryRun = c.DryRun

	return &Recorder{
		Client:       client,
		Token:        NewToken(),
		WaitInterval: time.Second,
		Progress:     os.Stderr,
		Config:       *c,
	}
}
