package trim

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/seqpipe/seqflow/pkg/tools"
)

// stallRunner delegates to a fake runner, except for the one invocation whose
// arguments mention stall: that call blocks until its context expires.
type stallRunner struct {
	inner *fakeRunner
	stall string
}

func (r *stallRunner) Run(ctx context.Context, cmd tools.Command) error {
	if filepath.Base(cmd.Path) == "sickle" && argsContain(cmd.Args, r.stall) {
		<-ctx.Done()
		return &tools.ToolError{Tool: "sickle", Err: ctx.Err()}
	}
	return r.inner.Run(ctx, cmd)
}

func TestDispatcherIsolatesFailures(t *testing.T) {
	// Fail only the trim step of the sample whose outputs mention "bad".
	runner := &fakeRunner{failTool: "sickle", failArg: "bad_R1_trimmed.fastq.gz"}
	task := newTestTask(t, runner)

	goodFwd, goodRev := writePairedInputs(t, "good")
	badFwd, badRev := writePairedInputs(t, "bad")

	d := &Dispatcher{Task: task, Workers: 2}
	summary := d.Run(context.Background(), Classification{
		Paired: []PairedSample{
			{Name: "good", Forward: goodFwd, Reverse: goodRev},
			{Name: "bad", Forward: badFwd, Reverse: badRev},
		},
	})

	assert.Equal(t, []string{"good"}, summary.Succeeded)
	require.Len(t, summary.Failed, 1)
	assert.Equal(t, "bad", summary.Failed[0].Sample)
	require.Error(t, summary.Err)

	// The healthy sibling ran to completion.
	assert.FileExists(t, task.Layout.TrimmedOutput("good", Forward))
}

func TestDispatcherMixedBatches(t *testing.T) {
	runner := &fakeRunner{}
	task := newTestTask(t, runner)

	fwd, rev := writePairedInputs(t, "p1")
	single := filepath.Join(t.TempDir(), "s1_single.fastq")
	require.NoError(t, os.WriteFile(single, []byte(fastqFixture), 0644))

	d := &Dispatcher{Task: task, Workers: 4}
	summary := d.Run(context.Background(), Classification{
		Paired:  []PairedSample{{Name: "p1", Forward: fwd, Reverse: rev}},
		Singles: []SingleSample{{Name: "s1", Path: single}},
	})

	require.NoError(t, summary.Err)
	assert.ElementsMatch(t, []string{"p1", "s1"}, summary.Succeeded)
	assert.FileExists(t, task.Layout.TrimmedOutput("p1", Forward))
	assert.FileExists(t, task.Layout.TrimmedOutput("s1", Single))
}

func TestDispatcherTimeoutMarksOnlyStuckSample(t *testing.T) {
	// The stuck sample's trimmer never returns; only its timeout ends it.
	runner := &stallRunner{inner: &fakeRunner{}, stall: "stuck_R1_trimmed.fastq.gz"}
	task := newTestTask(t, runner)

	okFwd, okRev := writePairedInputs(t, "ok")
	stuckFwd, stuckRev := writePairedInputs(t, "stuck")

	d := &Dispatcher{Task: task, Workers: 2, SampleTimeout: 200 * time.Millisecond}
	summary := d.Run(context.Background(), Classification{
		Paired: []PairedSample{
			{Name: "ok", Forward: okFwd, Reverse: okRev},
			{Name: "stuck", Forward: stuckFwd, Reverse: stuckRev},
		},
	})

	assert.Equal(t, []string{"ok"}, summary.Succeeded)
	require.Len(t, summary.Failed, 1)
	assert.Equal(t, "stuck", summary.Failed[0].Sample)

	var taskErr *TaskError
	require.ErrorAs(t, summary.Failed[0].Err, &taskErr)
	assert.Equal(t, "trim", taskErr.Stage)

	// The sibling ran to completion and no pipe survives either sample.
	assert.FileExists(t, task.Layout.TrimmedOutput("ok", Forward))
	assert.NoFileExists(t, task.Layout.PipePath("stuck", Forward))
	assert.NoFileExists(t, task.Layout.PipePath("stuck", Reverse))
	assert.NoFileExists(t, task.Layout.PipePath("ok", Forward))
}

func TestClampWorkers(t *testing.T) {
	auto := runtime.NumCPU()
	if auto > maxWorkers {
		auto = maxWorkers
	}
	assert.Equal(t, auto, clampWorkers(0))
	assert.Equal(t, auto, clampWorkers(-1))
	assert.Equal(t, 1, clampWorkers(1))
	assert.Equal(t, 4, clampWorkers(4))
	assert.Equal(t, maxWorkers, clampWorkers(maxWorkers))
	assert.Equal(t, maxWorkers, clampWorkers(maxWorkers+1))
}

func TestDispatcherNothingToDo(t *testing.T) {
	task := newTestTask(t, &fakeRunner{})
	d := &Dispatcher{Task: task}

	summary := d.Run(context.Background(), Classification{})
	require.NoError(t, summary.Err)
	assert.Empty(t, summary.Succeeded)
	assert.Empty(t, summary.Failed)
}

func TestDispatcherSweepsResidualPipes(t *testing.T) {
	task := newTestTask(t, &fakeRunner{})

	stray := filepath.Join(task.Layout.TrimDir(), "old")
	require.NoError(t, os.MkdirAll(stray, 0755))
	pipe := filepath.Join(stray, "leftover.fifo")
	require.NoError(t, unix.Mkfifo(pipe, 0600))

	d := &Dispatcher{Task: task}
	summary := d.Run(context.Background(), Classification{})
	require.NoError(t, summary.Err)

	// The final sweep removes residual pipes regardless of origin.
	assert.NoFileExists(t, pipe)
}
