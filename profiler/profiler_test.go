package profiler_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMatthew/lttng-utils/profiler"
)

func TestProfiler_Disabled(t *testing.T) {
	t.Parallel()

	p := profiler.New()

	require.NoError(t, p.Start())
	require.NoError(t, p.Stop())
}

func TestProfiler_WritesProfiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	p := profiler.New()
	p.CPUProfile = filepath.Join(dir, "cpu.prof")
	p.HeapProfile = filepath.Join(dir, "heap.prof")

	require.NoError(t, p.Start())
	require.NoError(t, p.Stop())

	for _, path := range []string{p.CPUProfile, p.HeapProfile} {
		fi, err := os.Stat(path)
		require.NoError(t, err)
		assert.Positive(t, fi.Size())
	}
}

func TestProfiler_RegisterFlags(t *testing.T) {
	t.Parallel()

	p := profiler.New()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)

	p.RegisterFlags(flags)

	err := flags.Parse([]string{"--cpu-profile=cpu.prof", "--heap-profile=heap.prof"})
	require.NoError(t, err)

	assert.Equal(t, "cpu.prof", p.CPUProfile)
	assert.Equal(t, "heap.prof", p.HeapProfile)
}
