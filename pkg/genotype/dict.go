package genotype

import (
	"fmt"
	"os"

	"github.com/biogo/hts/sam"

	"github.com/seqpipe/seqflow/pkg/tools"
)

// ShardIndexError reports a shard index outside the dictionary's region
// list. Never clamped; the invocation aborts.
type ShardIndexError struct {
	Index int
	Count int
}

func (e *ShardIndexError) Error() string {
	return fmt.Sprintf("shard index %d out of range for %d regions", e.Index, e.Count)
}

// ReadDictionary parses a reference sequence dictionary (a SAM header file)
// and returns its sequence names in file order.
func ReadDictionary(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &tools.ConfigError{Reason: fmt.Sprintf("sequence dictionary: %v", err)}
	}
	defer f.Close()

	r, err := sam.NewReader(f)
	if err != nil {
		return nil, &tools.ConfigError{Reason: fmt.Sprintf("malformed sequence dictionary %s: %v", path, err)}
	}

	refs := r.Header().Refs()
	names := make([]string, len(refs))
	for i, ref := range refs {
		names[i] = ref.Name()
	}
	return names, nil
}

// Resolve maps a zero-based shard index to the region at that position.
func Resolve(regions []string, index int) (string, error) {
	if index < 0 || index >= len(regions) {
		return "", &ShardIndexError{Index: index, Count: len(regions)}
	}
	return regions[index], nil
}
