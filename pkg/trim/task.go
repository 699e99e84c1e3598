package trim

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/seqpipe/seqflow/pkg/tools"
)

// Task runs one sample's trim pipeline: raw statistics via streaming
// decompression, external trimming, post-trim statistics, quality-score
// repair and plotting. Steps are strictly sequential; each step's output is
// the next step's input.
type Task struct {
	Layout    Layout
	Streamer  *Streamer
	Tools     *tools.Toolset
	Encoding  string
	Threshold int
	Log       *slog.Logger
}

func (t *Task) fail(sample, stage string, err error) error {
	t.log().Error("sample failed", "sample", sample, "stage", stage, "err", err)
	return &TaskError{Sample: sample, Stage: stage, Err: err}
}

func (t *Task) log() *slog.Logger {
	if t.Log != nil {
		return t.Log
	}
	return slog.Default()
}

// RunPaired processes one paired sample. Any step failing aborts the sample;
// the caller isolates the failure from sibling samples.
func (t *Task) RunPaired(ctx context.Context, s PairedSample) error {
	if err := t.Layout.MkSampleTree(s.Name); err != nil {
		return t.fail(s.Name, "mkdir", err)
	}

	fwd, err := t.Streamer.Open(ctx, s.Name, Forward, s.Forward, PhaseRaw)
	if err != nil {
		return t.fail(s.Name, "raw forward stream", err)
	}
	defer fwd.Close()

	rev, err := t.Streamer.Open(ctx, s.Name, Reverse, s.Reverse, PhaseRaw)
	if err != nil {
		return t.fail(s.Name, "raw reverse stream", err)
	}
	defer rev.Close()

	outFwd := t.Layout.TrimmedOutput(s.Name, Forward)
	outRev := t.Layout.TrimmedOutput(s.Name, Reverse)
	outSingles := t.Layout.SinglesOutput(s.Name)
	if err := t.Tools.TrimPaired(ctx, t.Encoding, t.Threshold, fwd.Path, rev.Path, outFwd, outRev, outSingles); err != nil {
		return t.fail(s.Name, "trim", err)
	}

	// The trimmer drained both pipes to EOF, so the producers are done or
	// about to be; a producer that died mid-stream shows up here.
	var g errgroup.Group
	g.Go(func() error { return fwd.Wait(ctx) })
	g.Go(func() error { return rev.Wait(ctx) })
	if err := g.Wait(); err != nil {
		return t.fail(s.Name, "raw statistics producer", err)
	}

	// The singles side output is not statistically profiled.
	if err := t.Streamer.CollectCompressedStats(ctx, s.Name, Forward, outFwd, PhaseTrimmed); err != nil {
		return t.fail(s.Name, "trimmed forward statistics", err)
	}
	if err := t.Streamer.CollectCompressedStats(ctx, s.Name, Reverse, outRev, PhaseTrimmed); err != nil {
		return t.fail(s.Name, "trimmed reverse statistics", err)
	}

	for _, phase := range []Phase{PhaseRaw, PhaseTrimmed} {
		for _, dir := range []Direction{Forward, Reverse} {
			if err := t.Tools.AdjustQuality(ctx, t.Layout.QualDump(s.Name, phase, dir)); err != nil {
				return t.fail(s.Name, "quality repair", err)
			}
		}
	}

	for _, dir := range []Direction{Forward, Reverse} {
		if err := t.renderPlots(ctx, s.Name, dir); err != nil {
			return t.fail(s.Name, "plot", err)
		}
	}

	t.log().Info("sample trimmed", "sample", s.Name, "mode", "paired")
	return nil
}

// RunSingle processes one single-end sample: the paired pipeline collapsed to
// one stream, with no singles side output.
func (t *Task) RunSingle(ctx context.Context, s SingleSample) error {
	if err := t.Layout.MkSampleTree(s.Name); err != nil {
		return t.fail(s.Name, "mkdir", err)
	}

	src, err := t.Streamer.Open(ctx, s.Name, Single, s.Path, PhaseRaw)
	if err != nil {
		return t.fail(s.Name, "raw stream", err)
	}
	defer src.Close()

	out := t.Layout.TrimmedOutput(s.Name, Single)
	if err := t.Tools.TrimSingle(ctx, t.Encoding, t.Threshold, src.Path, out); err != nil {
		return t.fail(s.Name, "trim", err)
	}

	if err := src.Wait(ctx); err != nil {
		return t.fail(s.Name, "raw statistics producer", err)
	}

	if err := t.Streamer.CollectCompressedStats(ctx, s.Name, Single, out, PhaseTrimmed); err != nil {
		return t.fail(s.Name, "trimmed statistics", err)
	}

	for _, phase := range []Phase{PhaseRaw, PhaseTrimmed} {
		if err := t.Tools.AdjustQuality(ctx, t.Layout.QualDump(s.Name, phase, Single)); err != nil {
			return t.fail(s.Name, "quality repair", err)
		}
	}

	if err := t.renderPlots(ctx, s.Name, Single); err != nil {
		return t.fail(s.Name, "plot", err)
	}

	t.log().Info("sample trimmed", "sample", s.Name, "mode", "single")
	return nil
}

func (t *Task) renderPlots(ctx context.Context, name string, dir Direction) error {
	artifacts := [6]string{
		t.Layout.NuclStats(name, PhaseRaw, dir),
		t.Layout.LenStats(name, PhaseRaw, dir),
		t.Layout.AdjustedQualDump(name, PhaseRaw, dir),
		t.Layout.NuclStats(name, PhaseTrimmed, dir),
		t.Layout.LenStats(name, PhaseTrimmed, dir),
		t.Layout.AdjustedQualDump(name, PhaseTrimmed, dir),
	}
	return t.Tools.RenderPlots(ctx, t.Layout.PlotsDir(name), artifacts, name, dir.String())
}
