package genotype

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/seqpipe/seqflow/pkg/tools"
	"github.com/seqpipe/seqflow/pkg/trim"
)

// Config holds everything one sharded genotyping invocation needs. The shard
// index is an explicit parameter to Run, never read from ambient state.
type Config struct {
	Java           string  // java executable, defaults to "java"
	GATKJar        string  // path to the genotyper jar
	Reference      string  // reference fasta
	Dictionary     string  // reference sequence dictionary
	SampleList     []string
	OutputRoot     string
	Heterozygosity float64
	Ploidy         int
	Memory         string // JVM heap bound, e.g. "8g"

	Runner tools.Runner // nil means a real ExecRunner
	Log    *slog.Logger
}

// SelectVariantInputs filters a sample list down to entries recognizable as
// per-sample variant-call files.
func SelectVariantInputs(paths []string) []string {
	var vcfs []string
	for _, p := range paths {
		if strings.HasSuffix(p, ".vcf") {
			vcfs = append(vcfs, p)
		}
	}
	return vcfs
}

// Run resolves the shard index against the dictionary and invokes the
// genotyper scoped to the resolved region, writing one output file named
// after the region. One invocation handles exactly one shard; scaling across
// shards is done by invoking with different indices.
func (c *Config) Run(ctx context.Context, index int) (string, error) {
	regions, err := ReadDictionary(c.Dictionary)
	if err != nil {
		return "", err
	}
	region, err := Resolve(regions, index)
	if err != nil {
		return "", err
	}

	vcfs := SelectVariantInputs(c.SampleList)
	if len(vcfs) == 0 {
		return "", &tools.ConfigError{Reason: "no variant-call inputs in sample list"}
	}

	layout := trim.Layout{Root: c.OutputRoot}
	if err := os.MkdirAll(layout.GenotypeDir(), 0755); err != nil {
		return "", err
	}
	out := layout.RegionVCF(region)

	java := c.Java
	if java == "" {
		java = "java"
	}
	args := []string{
		fmt.Sprintf("-Xmx%s", c.Memory),
		"-jar", c.GATKJar,
		"-T", "GenotypeGVCFs",
		"-R", c.Reference,
		"-L", region,
		"--heterozygosity", fmt.Sprintf("%g", c.Heterozygosity),
		"--sample_ploidy", fmt.Sprintf("%d", c.Ploidy),
	}
	for _, vcf := range vcfs {
		args = append(args, "-V", vcf)
	}
	args = append(args, "-o", out)

	runner := c.Runner
	if runner == nil {
		runner = tools.NewExecRunner(c.Log)
	}

	c.log().Info("genotyping region", "region", region, "shard", index, "inputs", len(vcfs))
	if err := runner.Run(ctx, tools.Command{Path: java, Args: args}); err != nil {
		return "", fmt.Errorf("genotyping region %s: %w", region, err)
	}
	return out, nil
}

func (c *Config) log() *slog.Logger {
	if c.Log != nil {
		return c.Log
	}
	return slog.Default()
}
