package trim

// Direction identifies which read of a sequencing fragment a file holds.
type Direction int

const (
	Forward Direction = iota
	Reverse
	Single
)

// Suffix returns the direction token used in artifact and output file names.
func (d Direction) Suffix() string {
	switch d {
	case Forward:
		return "R1"
	case Reverse:
		return "R2"
	default:
		return "single"
	}
}

func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Reverse:
		return "reverse"
	default:
		return "single"
	}
}

// Compression identifies how an input file is compressed, inferred from its
// final extension.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionBzip2
)

// PairedSample is one logical sample backed by a forward and a reverse file
// sharing the same derived name.
type PairedSample struct {
	Name    string
	Forward string
	Reverse string
}

// SingleSample is one logical sample backed by a single-end file.
type SingleSample struct {
	Name string
	Path string
}

// Classification is the result of partitioning an input list.
type Classification struct {
	Paired  []PairedSample
	Singles []SingleSample
}

// Result records the outcome of one sample's trim task.
type Result struct {
	Sample string
	Err    error
}

// Summary aggregates the outcomes of a dispatched run.
type Summary struct {
	Succeeded []string
	Failed    []Result
	Err       error // multierror over failed samples, nil if all succeeded
}
