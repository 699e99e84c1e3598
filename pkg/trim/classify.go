package trim

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
)

// Patterns holds the three direction-matching regular expressions. A file
// matches a direction if the pattern finds a match anywhere in its path.
// The patterns should be mutually exclusive; the classifier does not enforce
// exclusivity, only pairing.
type Patterns struct {
	Forward string
	Reverse string
	Single  string
}

type compiledPatterns struct {
	forward *regexp.Regexp
	reverse *regexp.Regexp
	single  *regexp.Regexp
}

func (p Patterns) compile() (compiledPatterns, error) {
	var c compiledPatterns
	var err error
	if c.forward, err = regexp.Compile(p.Forward); err != nil {
		return c, fmt.Errorf("forward pattern: %w", err)
	}
	if c.reverse, err = regexp.Compile(p.Reverse); err != nil {
		return c, fmt.Errorf("reverse pattern: %w", err)
	}
	if c.single, err = regexp.Compile(p.Single); err != nil {
		return c, fmt.Errorf("single pattern: %w", err)
	}
	return c, nil
}

// Classify partitions candidate file paths into paired and single samples.
//
// Sample names are derived by stripping the matched direction pattern from
// the file's base name; forward and reverse files with equal derived names
// form one paired sample. Unequal forward/reverse match counts fail with
// CountMismatchError before any pairing; the returned classification still
// carries the single samples, which are unaffected by the mismatch. Zero
// matches for both directions is not an error: the run may be single-end
// only.
func Classify(paths []string, patterns Patterns) (Classification, error) {
	var c Classification

	compiled, err := patterns.compile()
	if err != nil {
		return c, err
	}

	forward := matchDirection(paths, compiled.forward)
	reverse := matchDirection(paths, compiled.reverse)
	single := matchDirection(paths, compiled.single)

	singleNames, err := deriveNames(single, compiled.single)
	if err != nil {
		return c, err
	}
	names := make([]string, 0, len(singleNames))
	for name := range singleNames {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c.Singles = append(c.Singles, SingleSample{Name: name, Path: singleNames[name]})
	}

	if len(forward) != len(reverse) {
		return c, &CountMismatchError{Forward: len(forward), Reverse: len(reverse)}
	}

	fwdNames, err := deriveNames(forward, compiled.forward)
	if err != nil {
		return c, err
	}
	revNames, err := deriveNames(reverse, compiled.reverse)
	if err != nil {
		return c, err
	}

	names = names[:0]
	for name := range fwdNames {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		revPath, ok := revNames[name]
		if !ok {
			return c, fmt.Errorf("forward sample %q has no reverse mate", name)
		}
		c.Paired = append(c.Paired, PairedSample{
			Name:    name,
			Forward: fwdNames[name],
			Reverse: revPath,
		})
		delete(revNames, name)
	}
	for name := range revNames {
		return c, fmt.Errorf("reverse sample %q has no forward mate", name)
	}

	return c, nil
}

func matchDirection(paths []string, re *regexp.Regexp) []string {
	var matched []string
	for _, p := range paths {
		if re.MatchString(p) {
			matched = append(matched, p)
		}
	}
	return matched
}

// deriveNames maps derived sample names to their source paths, rejecting
// empty and duplicate names.
func deriveNames(paths []string, re *regexp.Regexp) (map[string]string, error) {
	names := make(map[string]string, len(paths))
	for _, p := range paths {
		name := re.ReplaceAllString(filepath.Base(p), "")
		if name == "" {
			return nil, fmt.Errorf("empty sample name derived from %q", p)
		}
		if prev, ok := names[name]; ok {
			return nil, fmt.Errorf("duplicate sample name %q derived from %q and %q", name, prev, p)
		}
		names[name] = p
	}
	return names, nil
}

// CompressionOf infers the compression kind from a path's final extension.
func CompressionOf(path string) Compression {
	switch filepath.Ext(path) {
	case ".gz":
		return CompressionGzip
	case ".bz2":
		return CompressionBzip2
	default:
		return CompressionNone
	}
}
