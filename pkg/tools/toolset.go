package tools

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// Helper scripts that must be present in the helper directory.
const (
	PlotScript   = "plot_seqqs.R"
	AdjustScript = "adjust_quality.sh"
)

// ConfigError reports an invalid or incomplete toolset configuration.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "configuration error: " + e.Reason }

// Toolset holds the external collaborators of the trimming stage: the
// statistics collector, the trimmer, and the helper scripts for quality-score
// repair and plotting.
type Toolset struct {
	Seqqs     string // statistics collector executable
	Sickle    string // trimmer executable
	Rscript   string // R interpreter for the plot script
	HelperDir string // directory holding plot_seqqs.R and adjust_quality.sh

	Runner Runner
}

// NewToolset validates collaborator paths up front and returns a ready
// toolset. A missing helper directory or script fails here, before any
// sample work starts.
func NewToolset(helperDir string, runner Runner) (*Toolset, error) {
	info, err := os.Stat(helperDir)
	if err != nil || !info.IsDir() {
		return nil, &ConfigError{Reason: fmt.Sprintf("helper directory %q not found", helperDir)}
	}
	for _, script := range []string{PlotScript, AdjustScript} {
		if _, err := os.Stat(filepath.Join(helperDir, script)); err != nil {
			return nil, &ConfigError{Reason: fmt.Sprintf("helper script %q not found in %q", script, helperDir)}
		}
	}
	if runner == nil {
		runner = NewExecRunner(nil)
	}
	return &Toolset{
		Seqqs:     "seqqs",
		Sickle:    "sickle",
		Rscript:   "Rscript",
		HelperDir: helperDir,
		Runner:    runner,
	}, nil
}

// CollectStats runs the statistics collector against a stream, writing the
// four artifact files under prefix. When passthrough is non-nil the
// collector's stdout (the unmodified input bytes) is copied to it.
func (t *Toolset) CollectStats(ctx context.Context, prefix, encoding string, in io.Reader, passthrough io.Writer) error {
	args := []string{"-e", "-q", encoding, "-p", prefix, "-"}
	if passthrough == nil {
		passthrough = io.Discard
	}
	return t.Runner.Run(ctx, Command{
		Path:   t.Seqqs,
		Args:   args,
		Stdin:  in,
		Stdout: passthrough,
	})
}

// CollectStatsFile runs the statistics collector directly against a file on
// disk. Unlike CollectStats, -e is omitted: the file is consumed in place,
// so there is no downstream consumer for a pass-through to feed.
func (t *Toolset) CollectStatsFile(ctx context.Context, prefix, encoding, path string) error {
	return t.Runner.Run(ctx, Command{
		Path:   t.Seqqs,
		Args:   []string{"-q", encoding, "-p", prefix, path},
		Stdout: io.Discard,
	})
}

// TrimPaired runs the trimmer in paired mode, consuming the forward and
// reverse handles and emitting three gzip outputs.
func (t *Toolset) TrimPaired(ctx context.Context, encoding string, threshold int, fwd, rev, outFwd, outRev, outSingles string) error {
	return t.Runner.Run(ctx, Command{
		Path: t.Sickle,
		Args: []string{
			"pe", "-g",
			"-t", encoding,
			"-q", strconv.Itoa(threshold),
			"-f", fwd,
			"-r", rev,
			"-o", outFwd,
			"-p", outRev,
			"-s", outSingles,
		},
	})
}

// TrimSingle runs the trimmer in single-end mode, emitting one gzip output.
func (t *Toolset) TrimSingle(ctx context.Context, encoding string, threshold int, in, out string) error {
	return t.Runner.Run(ctx, Command{
		Path: t.Sickle,
		Args: []string{
			"se", "-g",
			"-t", encoding,
			"-q", strconv.Itoa(threshold),
			"-f", in,
			"-o", out,
		},
	})
}

// AdjustQuality rewrites the numeric scale of a raw quality dump, producing
// the _adj sibling. Must be invoked exactly once per artifact.
func (t *Toolset) AdjustQuality(ctx context.Context, qualPath string) error {
	return t.Runner.Run(ctx, Command{
		Path: filepath.Join(t.HelperDir, AdjustScript),
		Args: []string{qualPath},
	})
}

// RenderPlots invokes the plot script with the six artifact paths plus the
// sample name and direction label. Side-effect only.
func (t *Toolset) RenderPlots(ctx context.Context, plotsDir string, artifacts [6]string, sample, direction string) error {
	args := []string{filepath.Join(t.HelperDir, PlotScript)}
	args = append(args, artifacts[:]...)
	args = append(args, sample, direction)
	return t.Runner.Run(ctx, Command{
		Path: t.Rscript,
		Args: args,
		Dir:  plotsDir,
	})
}
