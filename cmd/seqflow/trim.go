package main

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/seqpipe/seqflow/pkg/tools"
	"github.com/seqpipe/seqflow/pkg/trim"
)

var (
	trimForward   string
	trimReverse   string
	trimSingle    string
	trimOutput    string
	trimThreshold int
	trimEncoding  string
	trimHelperDir string
	trimWorkers   int
	trimTimeout   time.Duration
)

var trimCmd = &cobra.Command{
	Use:   "trim <sample-list>",
	Short: "Quality-trim classified samples in parallel",
	Long: `Classify a newline-delimited sample list into paired and single-end
samples, then run one trim task per sample concurrently.

Each sample's task streams its (possibly gzip/bzip2 compressed) inputs
through the statistics collector into the trimmer via a named pipe, collects
post-trim statistics, repairs quality-score scaling and renders plots.

Classification fails before any work starts if the forward and reverse
pattern match counts differ. A failure inside one sample never aborts its
siblings; the run reports a per-sample summary.

Examples:
  seqflow trim samples.txt \
    --forward '_R1\.fastq\.gz$' --reverse '_R2\.fastq\.gz$' \
    --single '_single\.fastq\.gz$' \
    --out ./results --threshold 20 --encoding illumina \
    --helper-dir ./helper_scripts`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := readSampleList(args[0])
		if err != nil {
			return err
		}

		classification, err := trim.Classify(paths, trim.Patterns{
			Forward: trimForward,
			Reverse: trimReverse,
			Single:  trimSingle,
		})
		var mismatch *trim.CountMismatchError
		if err != nil {
			if !errors.As(err, &mismatch) {
				return err
			}
			// Paired work is aborted before dispatch; single-end samples
			// are unaffected and still run.
			fmt.Fprintf(os.Stderr, "Paired classification failed: %v; continuing with single-end samples only.\n", mismatch)
		}

		if len(classification.Paired) == 0 && len(classification.Singles) == 0 {
			if mismatch != nil {
				return mismatch
			}
			fmt.Fprintln(os.Stderr, "No samples matched any pattern; nothing to do.")
			return nil
		}

		toolset, err := tools.NewToolset(trimHelperDir, nil)
		if err != nil {
			return err
		}

		log := slog.Default()
		layout := trim.Layout{Root: trimOutput}
		task := &trim.Task{
			Layout: layout,
			Streamer: &trim.Streamer{
				Layout:   layout,
				Tools:    toolset,
				Encoding: trimEncoding,
				Log:      log,
			},
			Tools:     toolset,
			Encoding:  trimEncoding,
			Threshold: trimThreshold,
			Log:       log,
		}
		dispatcher := &trim.Dispatcher{
			Task:          task,
			Workers:       trimWorkers,
			SampleTimeout: trimTimeout,
			Log:           log,
		}

		summary := dispatcher.Run(cmd.Context(), classification)

		fmt.Fprintf(os.Stderr, "\nTrimming summary:\n")
		fmt.Fprintf(os.Stderr, "  Succeeded: %d\n", len(summary.Succeeded))
		fmt.Fprintf(os.Stderr, "  Failed: %d\n", len(summary.Failed))
		for _, r := range summary.Failed {
			fmt.Fprintf(os.Stderr, "    %s: %v\n", r.Sample, r.Err)
		}
		if mismatch != nil {
			return multierror.Append(mismatch, summary.Err).ErrorOrNil()
		}
		return summary.Err
	},
}

func init() {
	trimCmd.Flags().StringVar(&trimForward, "forward", `_R1\.fastq`,
		"Pattern matching forward read files")
	trimCmd.Flags().StringVar(&trimReverse, "reverse", `_R2\.fastq`,
		"Pattern matching reverse read files")
	trimCmd.Flags().StringVar(&trimSingle, "single", `_single\.fastq`,
		"Pattern matching single-end read files")
	trimCmd.Flags().StringVar(&trimOutput, "out", ".",
		"Output root directory")
	trimCmd.Flags().IntVar(&trimThreshold, "threshold", 20,
		"Quality threshold passed to the trimmer")
	trimCmd.Flags().StringVar(&trimEncoding, "encoding", "sanger",
		"Quality encoding: sanger, illumina, solexa")
	trimCmd.Flags().StringVar(&trimHelperDir, "helper-dir", "",
		"Directory holding the plotting and quality-repair helper scripts")
	trimCmd.Flags().IntVar(&trimWorkers, "workers", 0,
		"Number of concurrent sample tasks (0 = CPU count)")
	trimCmd.Flags().DurationVar(&trimTimeout, "sample-timeout", 0,
		"Per-sample timeout, e.g. 2h (0 = none)")
	_ = trimCmd.MarkFlagRequired("helper-dir")
}

// readSampleList reads a newline-delimited list of paths, skipping blank
// lines and comments.
func readSampleList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sample list: %w", err)
	}
	defer f.Close()

	var paths []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		paths = append(paths, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("sample list: %w", err)
	}
	return paths, nil
}
