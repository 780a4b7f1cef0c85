// Package profiler adds optional pprof self-profiling to the CLI, for
// diagnosing the tool itself rather than the traced workload.
package profiler

import (
	"fmt"
	"os"
	"runtime/pprof"

	"github.com/spf13/pflag"
)

// Profiler manages CPU and heap self-profiling for the running process.
// A zero-value Profiler has all profiles disabled.
//
// Create instances with [New], call [Profiler.Start] before doing work and
// [Profiler.Stop] when done.
type Profiler struct {
	cpuFile *os.File

	// Output paths (empty = disabled).
	CPUProfile  string
	HeapProfile string
}

// New creates a new [Profiler] with all profiles disabled.
// Use [Profiler.RegisterFlags] to add CLI flags, or set paths directly.
func New() *Profiler {
	return &Profiler{}
}

// RegisterFlags adds self-profiling flags to the given [*pflag.FlagSet].
func (p *Profiler) RegisterFlags(flags *pflag.FlagSet) {
	flags.StringVar(&p.CPUProfile, "cpu-profile", "", "write CPU profile of this tool to file")
	flags.StringVar(&p.HeapProfile, "heap-profile", "", "write heap profile of this tool to file")
}

// Start begins CPU profiling if enabled.
func (p *Profiler) Start() error {
	if p.CPUProfile == "" {
		return nil
	}

	f, err := os.Create(p.CPUProfile) //nolint:gosec // Profile path from CLI flag is expected.
	if err != nil {
		return fmt.Errorf("creating CPU profile: %w", err)
	}

	err = pprof.StartCPUProfile(f)
	if err != nil {
		_ = f.Close()

		return fmt.Errorf("starting CPU profile: %w", err)
	}

	p.cpuFile = f

	return nil
}

// Stop stops CPU profiling and writes the heap profile if enabled.
func (p *Profiler) Stop() error {
	if p.cpuFile != nil {
		pprof.StopCPUProfile()

		err := p.cpuFile.Close()
		if err != nil {
			return fmt.Errorf("closing CPU profile: %w", err)
		}

		p.cpuFile = nil
	}

	if p.HeapProfile == "" {
		return nil
	}

	f, err := os.Create(p.HeapProfile) //nolint:gosec // Profile path from CLI flag is expected.
	if err != nil {
		return fmt.Errorf("creating heap profile: %w", err)
	}

	err = pprof.Lookup("heap").WriteTo(f, 0)
	if err != nil {
		_ = f.Close()

		return fmt.Errorf("writing heap profile: %w", err)
	}

	err = f.Close()
	if err != nil {
		return fmt.Errorf("writing heap profile: %w", err)
	}

	return nil
}
