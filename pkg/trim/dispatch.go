package trim

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
)

// Workers above this see no benefit and needlessly multiply concurrent
// external processes.
const maxWorkers = 32

// Dispatcher fans trim tasks out over a bounded worker pool. Samples have no
// ordering dependency on each other; one sample's failure never cancels
// in-flight or queued siblings.
type Dispatcher struct {
	Task    *Task
	Workers int
	// SampleTimeout bounds one sample's wall time, 0 means none. On expiry
	// the sample's external processes are terminated and the sample is
	// marked failed without affecting siblings.
	SampleTimeout time.Duration
	Log           *slog.Logger
}

type sampleJob struct {
	name string
	run  func(context.Context) error
}

// clampWorkers resolves the configured worker count: non-positive means the
// CPU count, anything above maxWorkers is capped.
func clampWorkers(n int) int {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	if n > maxWorkers {
		n = maxWorkers
	}
	return n
}

// Run executes one trim task per classified sample and returns the per-sample
// outcome summary. Zero samples is not an error: the summary is simply empty.
// After the pool's join point the named-pipe sweep runs over the whole output
// root, success or failure.
func (d *Dispatcher) Run(ctx context.Context, c Classification) Summary {
	workers := clampWorkers(d.Workers)

	jobs := make(chan sampleJob)
	results := make(chan Result)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				results <- Result{Sample: job.name, Err: d.runOne(ctx, job)}
			}
		}()
	}

	var collected []Result
	collectorDone := make(chan struct{})
	go func() {
		defer close(collectorDone)
		for r := range results {
			collected = append(collected, r)
		}
	}()

	for _, s := range c.Paired {
		jobs <- sampleJob{name: s.Name, run: func(ctx context.Context) error {
			return d.Task.RunPaired(ctx, s)
		}}
	}
	for _, s := range c.Singles {
		jobs <- sampleJob{name: s.Name, run: func(ctx context.Context) error {
			return d.Task.RunSingle(ctx, s)
		}}
	}
	close(jobs)
	wg.Wait()
	close(results)
	<-collectorDone

	// All tasks have fully terminated; no producer can race the sweep.
	if err := SweepPipes(d.Task.Layout.Root); err != nil {
		d.log().Warn("pipe sweep", "err", err)
	}

	return summarize(collected)
}

func (d *Dispatcher) runOne(ctx context.Context, job sampleJob) error {
	if d.SampleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.SampleTimeout)
		defer cancel()
	}
	return job.run(ctx)
}

func (d *Dispatcher) log() *slog.Logger {
	if d.Log != nil {
		return d.Log
	}
	return slog.Default()
}

func summarize(results []Result) Summary {
	var s Summary
	var errs *multierror.Error
	for _, r := range results {
		if r.Err != nil {
			s.Failed = append(s.Failed, r)
			errs = multierror.Append(errs, r.Err)
		} else {
			s.Succeeded = append(s.Succeeded, r.Sample)
		}
	}
	s.Err = errs.ErrorOrNil()
	return s
}
