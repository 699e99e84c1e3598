package trim

import "fmt"

// CountMismatchError reports unequal forward and reverse match counts. It is
// raised before any pairing work and aborts the whole paired batch.
type CountMismatchError struct {
	Forward int
	Reverse int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("forward/reverse count mismatch: %d forward, %d reverse", e.Forward, e.Reverse)
}

// TaskError reports a failure inside one sample's pipeline. It is isolated at
// the task boundary and never aborts sibling samples.
type TaskError struct {
	Sample string
	Stage  string
	Err    error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("sample %s: %s: %v", e.Sample, e.Stage, e.Err)
}

func (e *TaskError) Unwrap() error { return e.Err }
