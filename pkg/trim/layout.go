package trim

import (
	"fmt"
	"os"
	"path/filepath"
)

// Phase distinguishes statistics collected before and after trimming.
type Phase string

const (
	PhaseRaw     Phase = "raw"
	PhaseTrimmed Phase = "trimmed"
)

// Layout computes every path the trimming stage reads or writes under one
// output root. The naming scheme is fixed; downstream tooling depends on it.
type Layout struct {
	Root string
}

// TrimDir is the root of all per-sample trimming output.
func (l Layout) TrimDir() string {
	return filepath.Join(l.Root, "Quality_Trimming")
}

func (l Layout) SampleDir(name string) string {
	return filepath.Join(l.TrimDir(), name)
}

func (l Layout) StatsDir(name string) string {
	return filepath.Join(l.SampleDir(name), "stats")
}

func (l Layout) PlotsDir(name string) string {
	return filepath.Join(l.StatsDir(name), "plots")
}

// StatsPrefix is the per-invocation output prefix handed to the statistics
// collector, e.g. stats/raw_sample1_R1. The collector appends _nucl.txt,
// _len.txt and _qual.txt.
func (l Layout) StatsPrefix(name string, phase Phase, dir Direction) string {
	return filepath.Join(l.StatsDir(name), fmt.Sprintf("%s_%s_%s", phase, name, dir.Suffix()))
}

// QualDump is the raw quality text dump for one (phase, direction); the
// quality-score repair step writes its _adj sibling next to it.
func (l Layout) QualDump(name string, phase Phase, dir Direction) string {
	return l.StatsPrefix(name, phase, dir) + "_qual.txt"
}

func (l Layout) AdjustedQualDump(name string, phase Phase, dir Direction) string {
	return l.QualDump(name, phase, dir) + "_adj"
}

func (l Layout) NuclStats(name string, phase Phase, dir Direction) string {
	return l.StatsPrefix(name, phase, dir) + "_nucl.txt"
}

func (l Layout) LenStats(name string, phase Phase, dir Direction) string {
	return l.StatsPrefix(name, phase, dir) + "_len.txt"
}

// TrimmedOutput is the trimmer's compressed output for one direction.
func (l Layout) TrimmedOutput(name string, dir Direction) string {
	return filepath.Join(l.SampleDir(name), fmt.Sprintf("%s_%s_trimmed.fastq.gz", name, dir.Suffix()))
}

// SinglesOutput is the unpaired-singles side output of a paired trim.
func (l Layout) SinglesOutput(name string) string {
	return filepath.Join(l.SampleDir(name), name+"_singles_trimmed.fastq.gz")
}

// PipePath is the deterministic named-pipe location for one (sample,
// direction) stream. Never reused across samples.
func (l Layout) PipePath(name string, dir Direction) string {
	return filepath.Join(l.SampleDir(name), fmt.Sprintf("%s_%s.fifo", name, dir.Suffix()))
}

// MkSampleTree creates the sample's directory tree including stats/plots.
func (l Layout) MkSampleTree(name string) error {
	return os.MkdirAll(l.PlotsDir(name), 0755)
}

// GenotypeDir is the root of the genotyping stage's output.
func (l Layout) GenotypeDir() string {
	return filepath.Join(l.Root, "Genotype_GVCFs")
}

// RegionVCF is the joint-genotyping output for one region.
func (l Layout) RegionVCF(region string) string {
	return filepath.Join(l.GenotypeDir(), region+".vcf")
}
