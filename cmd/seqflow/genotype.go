package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/seqpipe/seqflow/pkg/genotype"
	"github.com/seqpipe/seqflow/pkg/tools"
)

var (
	genoDict   string
	genoShard  int
	genoRef    string
	genoJar    string
	genoOutput string
	genoHet    float64
	genoPloidy int
	genoMemory string
)

var genotypeCmd = &cobra.Command{
	Use:   "genotype <sample-list>",
	Short: "Joint-genotype one genomic region selected by shard index",
	Long: `Resolve a zero-based shard index against the reference sequence
dictionary and run joint genotyping for the resolved region, consuming every
variant-call file in the sample list and writing <region>.vcf under the
output root.

One invocation handles exactly one shard. Horizontal scaling is achieved by
invoking this command once per index, typically from an array job:

  seqflow genotype samples.txt --dict ref.dict --shard-index "$SLURM_ARRAY_TASK_ID" \
    --reference ref.fa --gatk-jar GenomeAnalysisTK.jar --out ./results

When --shard-index is omitted, SLURM_ARRAY_TASK_ID and PBS_ARRAYID are
consulted as a convenience; the library itself never reads the environment.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := readSampleList(args[0])
		if err != nil {
			return err
		}

		index := genoShard
		if index < 0 {
			index, err = shardIndexFromEnv()
			if err != nil {
				return err
			}
		}

		cfg := &genotype.Config{
			GATKJar:        genoJar,
			Reference:      genoRef,
			Dictionary:     genoDict,
			SampleList:     paths,
			OutputRoot:     genoOutput,
			Heterozygosity: genoHet,
			Ploidy:         genoPloidy,
			Memory:         genoMemory,
			Runner:         tools.NewExecRunner(slog.Default()),
			Log:            slog.Default(),
		}

		out, err := cfg.Run(cmd.Context(), index)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Wrote %s\n", out)
		return nil
	},
}

func init() {
	genotypeCmd.Flags().StringVar(&genoDict, "dict", "",
		"Reference sequence dictionary (.dict)")
	genotypeCmd.Flags().IntVar(&genoShard, "shard-index", -1,
		"Zero-based shard index selecting the region (-1 = from array-job environment)")
	genotypeCmd.Flags().StringVar(&genoRef, "reference", "",
		"Reference fasta")
	genotypeCmd.Flags().StringVar(&genoJar, "gatk-jar", "",
		"Path to the genotyper jar")
	genotypeCmd.Flags().StringVar(&genoOutput, "out", ".",
		"Output root directory")
	genotypeCmd.Flags().Float64Var(&genoHet, "heterozygosity", 0.001,
		"Heterozygosity prior")
	genotypeCmd.Flags().IntVar(&genoPloidy, "ploidy", 2,
		"Sample ploidy")
	genotypeCmd.Flags().StringVar(&genoMemory, "memory", "8g",
		"JVM heap bound for the genotyper")
	_ = genotypeCmd.MarkFlagRequired("dict")
	_ = genotypeCmd.MarkFlagRequired("reference")
	_ = genotypeCmd.MarkFlagRequired("gatk-jar")
}

func shardIndexFromEnv() (int, error) {
	for _, key := range []string{"SLURM_ARRAY_TASK_ID", "PBS_ARRAYID"} {
		if v, ok := os.LookupEnv(key); ok {
			index, err := strconv.Atoi(v)
			if err != nil {
				return 0, fmt.Errorf("%s: %w", key, err)
			}
			return index, nil
		}
	}
	return 0, fmt.Errorf("no --shard-index and no array-job index in the environment")
}
