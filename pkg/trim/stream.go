package trim

import (
	"compress/bzip2"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/pgzip"
	"golang.org/x/sys/unix"

	"github.com/seqpipe/seqflow/pkg/tools"
)

// Streamer opens raw input files as consumable stream handles, routing every
// byte through the statistics collector on the way.
type Streamer struct {
	Layout   Layout
	Tools    *tools.Toolset
	Encoding string
	Log      *slog.Logger
}

// Source is the handle a trim task consumes: either the original uncompressed
// file, or a named pipe fed by a background decompression producer.
type Source struct {
	// Path is handed to the trimmer. For compressed inputs it is a named
	// pipe that must be consumed exactly once.
	Path string

	pipe      string // fifo path, empty for direct sources
	done      chan error
	closeOnce sync.Once
	closeErr  error
}

// Wait blocks until the background producer has exited and reports its
// outcome. Direct (uncompressed) sources return nil immediately. The
// producer's failure must be folded into the sample's result; a dead
// producer otherwise looks like a truncated stream downstream.
func (s *Source) Wait(ctx context.Context) error {
	if s.done == nil {
		return nil
	}
	select {
	case err := <-s.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases a still-blocked producer and unlinks the pipe. Idempotent;
// safe on every exit path of the owning task.
func (s *Source) Close() error {
	s.closeOnce.Do(func() {
		if s.pipe == "" {
			return
		}
		// A producer blocked opening the write end is released by briefly
		// opening the read end; its next write then fails instead of
		// hanging forever.
		if f, err := os.OpenFile(s.pipe, os.O_RDONLY|unix.O_NONBLOCK, 0); err == nil {
			f.Close()
		}
		if err := os.Remove(s.pipe); err != nil && !os.IsNotExist(err) {
			s.closeErr = err
		}
	})
	return s.closeErr
}

// Open classifies path by its final extension and returns a stream handle.
//
// Uncompressed inputs are profiled synchronously in place and returned as-is.
// Compressed inputs get a fresh named pipe keyed by (sample, direction) and a
// background producer that decompresses the source through the statistics
// collector, writing the collector's pass-through output into the pipe. Open
// returns as soon as the producer is started; the caller must Wait on the
// source after the consumer has drained it, and Close it when done.
func (st *Streamer) Open(ctx context.Context, name string, dir Direction, path string, phase Phase) (*Source, error) {
	prefix := st.Layout.StatsPrefix(name, phase, dir)
	kind := CompressionOf(path)

	if kind == CompressionNone {
		if err := st.Tools.CollectStatsFile(ctx, prefix, st.Encoding, path); err != nil {
			return nil, fmt.Errorf("raw statistics for %s: %w", path, err)
		}
		return &Source{Path: path}, nil
	}

	pipe := st.Layout.PipePath(name, dir)
	if err := os.Remove(pipe); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err := unix.Mkfifo(pipe, 0600); err != nil {
		return nil, fmt.Errorf("mkfifo %s: %w", pipe, err)
	}

	src := &Source{Path: pipe, pipe: pipe, done: make(chan error, 1)}
	go func() {
		src.done <- st.produce(ctx, kind, path, pipe, prefix)
		close(src.done)
	}()

	st.log().Debug("stream producer started", "sample", name, "direction", dir.String(), "pipe", pipe)
	return src, nil
}

// produce decompresses path and feeds the statistics collector, connecting
// its pass-through stdout to the pipe's write end.
//
// The write end is opened before anything else: it blocks until the consumer
// arrives, and holding it open guarantees the consumer sees EOF rather than
// hanging when decompression setup fails.
func (st *Streamer) produce(ctx context.Context, kind Compression, path, pipe, prefix string) error {
	out, err := os.OpenFile(pipe, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("open pipe %s: %w", pipe, err)
	}
	defer out.Close()

	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	dec, err := decompressReader(kind, in)
	if err != nil {
		return fmt.Errorf("decompress %s: %w", path, err)
	}
	defer dec.Close()

	if err := st.Tools.CollectStats(ctx, prefix, st.Encoding, dec, out); err != nil {
		return fmt.Errorf("statistics for %s: %w", path, err)
	}
	return nil
}

// CollectCompressedStats decompresses a gzip or bzip2 file on the fly and
// feeds it to the statistics collector, discarding the pass-through. Used for
// the trimmer's compressed outputs.
func (st *Streamer) CollectCompressedStats(ctx context.Context, name string, dir Direction, path string, phase Phase) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	dec, err := decompressReader(CompressionOf(path), in)
	if err != nil {
		return fmt.Errorf("decompress %s: %w", path, err)
	}
	defer dec.Close()

	prefix := st.Layout.StatsPrefix(name, phase, dir)
	return st.Tools.CollectStats(ctx, prefix, st.Encoding, dec, nil)
}

func (st *Streamer) log() *slog.Logger {
	if st.Log != nil {
		return st.Log
	}
	return slog.Default()
}

func decompressReader(kind Compression, in io.Reader) (io.ReadCloser, error) {
	switch kind {
	case CompressionGzip:
		return pgzip.NewReader(in)
	case CompressionBzip2:
		return io.NopCloser(bzip2.NewReader(in)), nil
	default:
		return io.NopCloser(in), nil
	}
}

// SweepPipes removes every named pipe left under root. It runs after the
// dispatcher's join point and is idempotent: a second sweep over the same
// root is a no-op.
func SweepPipes(root string) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.Type()&fs.ModeNamedPipe != 0 {
			if rerr := os.Remove(path); rerr != nil && !os.IsNotExist(rerr) {
				return rerr
			}
		}
		return nil
	})
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}
