package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "seqflow",
	Short: "seqflow - sequencing pipeline orchestration",
	Long: `seqflow coordinates two stages of a sequencing-data pipeline:
quality-based trimming of raw read files with before/after statistics
capture, and sharded joint genotyping of per-sample variant calls into
per-region outputs.

seqflow itself does not trim, profile or genotype; it classifies inputs,
streams decompression through the statistics collector, fans work out
across available parallelism and maps shard indices to genomic regions.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(trimCmd)
	rootCmd.AddCommand(genotypeCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("seqflow version 0.1.0")
	},
}
