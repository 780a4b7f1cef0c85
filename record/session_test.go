package record_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMatthew/lttng-utils/lttng"
	"github.com/TheMatthew/lttng-utils/profile"
	"github.com/TheMatthew/lttng-utils/record"
)

// fakeRunner records every issued command and fails commands whose joined
// argv starts with a registered prefix, a limited number of times each.
type fakeRunner struct {
	fail  map[string]int
	calls []string
}

func (f *fakeRunner) Run(_ context.Context, args ...string) ([]byte, error) {
	line := strings.Join(args, " ")
	f.calls = append(f.calls, line)

	for prefix, remaining := range f.fail {
		if remaining > 0 && strings.HasPrefix(line, prefix) {
			f.fail[prefix] = remaining - 1

			return nil, errors.New("simulated failure: " + prefix)
		}
	}

	return nil, nil
}

func (f *fakeRunner) count(prefix string) int {
	n := 0

	for _, line := range f.calls {
		if strings.HasPrefix(line, prefix) {
			n++
		}
	}

	return n
}

func newRecorder(cfg *record.Config, runner *fakeRunner) *record.Recorder {
	client := lttng.NewClient()
	client.Runner = runner

	rec := cfg.NewRecorder(client)
	rec.WaitInterval = time.Millisecond
	rec.Progress = io.Discard

	// Pre-stop the token so Record does not block in the manual wait loop.
	rec.Token.Stop()

	return rec
}

func testConfig() *record.Config {
	cfg := record.NewConfig()
	cfg.Output = "/tmp/traces"
	cfg.Session = "foo"

	return cfg
}

func TestSessionName(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)

	tcs := map[string]struct {
		base   string
		kernel bool
		ust    bool
		want   string
	}{
		"kernel only": {
			base:   "foo",
			kernel: true,
			want:   "foo-k-20260102-150405",
		},
		"kernel and userspace": {
			base:   "foo",
			kernel: true,
			ust:    true,
			want:   "foo-k-u-20260102-150405",
		},
		"userspace only": {
			base: "foo",
			ust:  true,
			want: "foo-u-20260102-150405",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got := record.SessionName(tc.base, tc.kernel, tc.ust, now)
			assert.Equal(t, tc.want, got)
			assert.Regexp(t, regexp.MustCompile(`^foo(-k)?(-u)?-\d{8}-\d{6}$`), got)
		})
	}
}

func TestRecorder_KernelProfile(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	rec := newRecorder(testConfig(), runner)

	events := &profile.EventSet{Kernel: []string{"sched_switch", "sched_wakeup"}}

	outputDir, err := rec.Record(t.Context(), events, nil)
	require.NoError(t, err)

	require.Len(t, runner.calls, 6)

	name := strings.Fields(runner.calls[0])[1]
	assert.Regexp(t, `^foo-k-\d{8}-\d{6}$`, name)
	assert.Equal(t, filepath.Join("/tmp/traces", name), outputDir)

	assert.Equal(t, "create "+name+" -o "+outputDir, runner.calls[0])
	assert.Equal(t, "enable-channel k -k --subbuf-size 1024K --num-subbuf 8", runner.calls[1])
	assert.Equal(t, "enable-event -c k -k sched_switch,sched_wakeup", runner.calls[2])
	assert.Equal(t, "start", runner.calls[3])
	assert.Equal(t, "stop", runner.calls[4])
	assert.Equal(t, "destroy "+name, runner.calls[5])

	// sched_switch is traced, so no per-event process context is needed.
	assert.Zero(t, runner.count("add-context"))
}

func TestRecorder_KernelContext(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		kernel      []string
		stateless   bool
		wantContext int
	}{
		"sched_switch present": {
			kernel:      []string{"sched_switch"},
			wantContext: 0,
		},
		"sched_switch absent": {
			kernel:      []string{"block_rq_issue"},
			wantContext: 1,
		},
		"stateless overrides sched_switch": {
			kernel:      []string{"sched_switch"},
			stateless:   true,
			wantContext: 1,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfg := testConfig()
			cfg.Stateless = tc.stateless

			runner := &fakeRunner{}
			rec := newRecorder(cfg, runner)

			_, err := rec.Record(t.Context(), &profile.EventSet{Kernel: tc.kernel}, nil)
			require.NoError(t, err)

			assert.Equal(t, tc.wantContext,
				runner.count("add-context -c k -k -t pid -t tid -t procname"))
		})
	}
}

func TestRecorder_SyscallSentinel(t *testing.T) {
	t.Parallel()

	// The syscall-class enable is issued separately and its failure is
	// tolerated.
	runner := &fakeRunner{fail: map[string]int{"enable-event -c k -a -k --syscall": 1}}
	rec := newRecorder(testConfig(), runner)

	events := &profile.EventSet{Kernel: []string{"sched_switch", "syscall", "block_rq_issue"}}

	_, err := rec.Record(t.Context(), events, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, runner.count("enable-event -c k -a -k --syscall"))
	assert.Equal(t, 1, runner.count("enable-event -c k -k sched_switch,block_rq_issue"))

	// The sentinel never appears in a named enable call.
	for _, line := range runner.calls {
		if strings.HasPrefix(line, "enable-event -c k -k ") {
			assert.NotContains(t, line, "syscall")
		}
	}
}

func TestRecorder_AllEvents(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.All = true

	runner := &fakeRunner{}
	rec := newRecorder(cfg, runner)

	_, err := rec.Record(t.Context(), &profile.EventSet{}, nil)
	require.NoError(t, err)

	name := strings.Fields(runner.calls[0])[1]
	assert.Regexp(t, `^foo-k-u-\d{8}-\d{6}$`, name)

	assert.Equal(t, 1, runner.count("enable-channel k -k --subbuf-size 2048K --num-subbuf 8"))
	assert.Equal(t, 1, runner.count("enable-event -c k -a -k"))
	assert.Equal(t, 1, runner.count("enable-channel u -u --subbuf-size 1024K --num-subbuf 8"))
	assert.Equal(t, 1, runner.count("enable-event -c u -a -u"))
	assert.Zero(t, runner.count("add-context"))
}

func TestRecorder_UserContext(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		kernel      []string
		ust         []string
		wantContext int
	}{
		"userspace only": {
			ust:         []string{"app:event"},
			wantContext: 1,
		},
		"kernel active with context added": {
			kernel:      []string{"block_rq_issue"},
			ust:         []string{"app:event"},
			wantContext: 1,
		},
		"kernel active without context": {
			kernel:      []string{"sched_switch"},
			ust:         []string{"app:event"},
			wantContext: 0,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			runner := &fakeRunner{}
			rec := newRecorder(testConfig(), runner)

			_, err := rec.Record(t.Context(), &profile.EventSet{
				Kernel: tc.kernel,
				UST:    tc.ust,
			}, nil)
			require.NoError(t, err)

			assert.Equal(t, 1, runner.count("enable-event -c u -u app:event"))
			assert.Equal(t, tc.wantContext,
				runner.count("add-context -c u -u -t vpid -t vtid"))
		})
	}
}

func TestRecorder_CreateRetry(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{fail: map[string]int{"create": 1}}
	rec := newRecorder(testConfig(), runner)

	_, err := rec.Record(t.Context(), &profile.EventSet{Kernel: []string{"sched_switch"}}, nil)
	require.NoError(t, err)

	// First create fails, a best-effort destroy precedes the single retry.
	name := strings.Fields(runner.calls[0])[1]
	assert.True(t, strings.HasPrefix(runner.calls[0], "create "+name))
	assert.Equal(t, "destroy "+name, runner.calls[1])
	assert.True(t, strings.HasPrefix(runner.calls[2], "create "+name))
	assert.Equal(t, 2, runner.count("create"))
}

func TestRecorder_CreateRetryExhausted(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{fail: map[string]int{"create": 2}}
	rec := newRecorder(testConfig(), runner)

	_, err := rec.Record(t.Context(), &profile.EventSet{Kernel: []string{"sched_switch"}}, nil)
	require.Error(t, err)

	// create, best-effort destroy, create: no further retry, no teardown
	// for a session that never existed.
	require.Len(t, runner.calls, 3)
	assert.Zero(t, runner.count("stop"))
}

func TestRecorder_StartFailureTearsDown(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{fail: map[string]int{"start": 1}}
	rec := newRecorder(testConfig(), runner)

	_, err := rec.Record(t.Context(), &profile.EventSet{Kernel: []string{"sched_switch"}}, nil)
	require.Error(t, err)

	assert.Equal(t, 1, runner.count("stop"))
	assert.Equal(t, 1, runner.count("destroy"))
}

func TestRecorder_TeardownBestEffort(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{fail: map[string]int{"stop": 1, "destroy": 1}}
	rec := newRecorder(testConfig(), runner)

	_, err := rec.Record(t.Context(), &profile.EventSet{Kernel: []string{"sched_switch"}}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, runner.count("stop"))
	assert.Equal(t, 1, runner.count("destroy"))
}

func TestRecorder_NothingToTrace(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	rec := newRecorder(testConfig(), runner)

	_, err := rec.Record(t.Context(), &profile.EventSet{Preload: []string{"/lib/x.so"}}, nil)
	require.ErrorIs(t, err, record.ErrNothingToTrace)

	// No daemon state is touched.
	assert.Empty(t, runner.calls)
}

func TestRecorder_RunsCommandWithPreload(t *testing.T) {
	t.Parallel()

	envFile := filepath.Join(t.TempDir(), "ld-preload")

	runner := &fakeRunner{}
	rec := newRecorder(testConfig(), runner)

	events := &profile.EventSet{
		Kernel:  []string{"sched_switch"},
		Preload: []string{"/usr/lib/liba.so", "/usr/lib/libb.so"},
	}

	// The child sees the preload list in its environment, and its non-zero
	// exit is not treated as a tracing failure.
	outputDir, err := rec.Record(t.Context(), events,
		[]string{"sh", "-c", `printf '%s' "$LD_PRELOAD" > ` + envFile + `; exit 3`})
	require.NoError(t, err)
	require.NotEmpty(t, outputDir)

	got, err := os.ReadFile(envFile)
	require.NoError(t, err)
	assert.Equal(t, "/usr/lib/liba.so /usr/lib/libb.so", string(got))

	// The session is stopped and destroyed exactly once after the child exits.
	assert.Equal(t, 1, runner.count("stop"))
	assert.Equal(t, 1, runner.count("destroy "))
}

func TestRecorder_InterruptStopsWait(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}

	client := lttng.NewClient()
	client.Runner = runner

	rec := testConfig().NewRecorder(client)
	rec.WaitInterval = 5 * time.Millisecond
	rec.Progress = io.Discard

	go func() {
		time.Sleep(20 * time.Millisecond)
		rec.Token.Stop()
	}()

	start := time.Now()

	_, err := rec.Record(t.Context(), &profile.EventSet{Kernel: []string{"sched_switch"}}, nil)
	require.NoError(t, err)

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, runner.count("stop"))
	assert.Equal(t, 1, runner.count("destroy "))
}

func TestRecorder_DryRun(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.DryRun = true

	runner := &fakeRunner{fail: map[string]int{"": 99}} // any execution would fail
	rec := newRecorder(cfg, runner)

	var buf bytes.Buffer
	rec.Client.Out = &buf

	outputDir, err := rec.Record(t.Context(), &profile.EventSet{Kernel: []string{"sched_switch"}},
		[]string{"sleep", "1"})
	require.NoError(t, err)
	require.NotEmpty(t, outputDir)

	// Every daemon command is printed, nothing is executed, and the traced
	// command is printed rather than run.
	assert.Empty(t, runner.calls)
	assert.Contains(t, buf.String(), "lttng create ")
	assert.Contains(t, buf.String(), "lttng start")
	assert.Contains(t, buf.String(), "sleep 1")
	assert.Contains(t, buf.String(), "lttng destroy ")
}

func TestRecorder_DryRunSkipsWait(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.DryRun = true

	runner := &fakeRunner{}

	client := lttng.NewClient()
	client.Runner = runner

	rec := cfg.NewRecorder(client)
	rec.WaitInterval = time.Hour // would hang if the wait loop ran
	rec.Progress = io.Discard

	var buf bytes.Buffer
	rec.Client.Out = &buf

	done := make(chan struct{})

	go func() {
		defer close(done)

		_, err := rec.Record(context.Background(), &profile.EventSet{Kernel: []string{"sched_switch"}}, nil)
		assert.NoError(t, err)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("dry run blocked on the wait loop")
	}
}
