package trim

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/pgzip"

	"github.com/seqpipe/seqflow/pkg/tools"
)

// fakeRunner emulates the external collaborators in-process: the statistics
// collector writes its artifact files and passes bytes through, the trimmer
// drains its input handles and writes gzip outputs, the helpers write their
// side effects.
type fakeRunner struct {
	mu    sync.Mutex
	calls []tools.Command

	failTool string // base name of a tool to fail, empty for none
	failArg  string // only fail when an argument contains this substring
}

func (f *fakeRunner) Run(ctx context.Context, cmd tools.Command) error {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	f.mu.Unlock()

	tool := filepath.Base(cmd.Path)
	if f.failTool == tool && (f.failArg == "" || argsContain(cmd.Args, f.failArg)) {
		return &tools.ToolError{Tool: tool, Stderr: "induced failure", Err: fmt.Errorf("exit status 1")}
	}

	switch tool {
	case "seqqs":
		return f.runSeqqs(cmd)
	case "sickle":
		return f.runSickle(cmd)
	case tools.AdjustScript:
		return os.WriteFile(cmd.Args[0]+"_adj", []byte("adjusted\n"), 0644)
	case "Rscript":
		return f.runPlot(cmd)
	case "java":
		return nil
	default:
		return fmt.Errorf("unexpected tool %q", cmd.Path)
	}
}

func (f *fakeRunner) calledTools() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, len(f.calls))
	for i, c := range f.calls {
		names[i] = filepath.Base(c.Path)
	}
	return names
}

func argsContain(args []string, substr string) bool {
	for _, a := range args {
		if a == substr || filepath.Base(a) == substr {
			return true
		}
	}
	return false
}

func flagValue(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func (f *fakeRunner) runSeqqs(cmd tools.Command) error {
	prefix := flagValue(cmd.Args, "-p")
	if prefix == "" {
		return fmt.Errorf("seqqs: missing -p")
	}
	for _, suffix := range []string{"_nucl.txt", "_len.txt", "_qual.txt"} {
		if err := os.WriteFile(prefix+suffix, []byte("stats\n"), 0644); err != nil {
			return err
		}
	}
	if cmd.Stdin != nil && cmd.Stdout != nil {
		if _, err := io.Copy(cmd.Stdout, cmd.Stdin); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeRunner) runSickle(cmd tools.Command) error {
	mode := cmd.Args[0]

	in, err := readAllFile(flagValue(cmd.Args, "-f"))
	if err != nil {
		return err
	}

	if mode == "se" {
		return writeGzipFile(flagValue(cmd.Args, "-o"), in)
	}

	rev, err := readAllFile(flagValue(cmd.Args, "-r"))
	if err != nil {
		return err
	}
	if err := writeGzipFile(flagValue(cmd.Args, "-o"), in); err != nil {
		return err
	}
	if err := writeGzipFile(flagValue(cmd.Args, "-p"), rev); err != nil {
		return err
	}
	return writeGzipFile(flagValue(cmd.Args, "-s"), nil)
}

func (f *fakeRunner) runPlot(cmd tools.Command) error {
	// script path, six artifacts, sample name, direction
	if len(cmd.Args) != 9 {
		return fmt.Errorf("plot: want 9 args, got %d", len(cmd.Args))
	}
	for _, artifact := range cmd.Args[1:7] {
		if _, err := os.Stat(artifact); err != nil {
			return fmt.Errorf("plot: missing artifact: %w", err)
		}
	}
	name, dir := cmd.Args[7], cmd.Args[8]
	marker := filepath.Join(cmd.Dir, fmt.Sprintf("%s_%s.pdf", name, dir))
	return os.WriteFile(marker, []byte("plot\n"), 0644)
}

func readAllFile(path string) ([]byte, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	return io.ReadAll(in)
}

func writeGzipFile(path string, content []byte) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()
	gz := pgzip.NewWriter(out)
	if _, err := gz.Write(content); err != nil {
		return err
	}
	return gz.Close()
}

// fakeToolset builds a toolset wired to a fake runner, bypassing helper
// directory validation.
func fakeToolset(runner tools.Runner) *tools.Toolset {
	return &tools.Toolset{
		Seqqs:     "seqqs",
		Sickle:    "sickle",
		Rscript:   "Rscript",
		HelperDir: "helpers",
		Runner:    runner,
	}
}
