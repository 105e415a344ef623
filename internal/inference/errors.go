package inference

import "fmt"

// InferenceError marks a failure inside the scoring pipeline after
// normalization: a non-finite vector, a dimension mismatch, or a model
// evaluation fault. It never crashes the engine; the transport layer decides
// how to surface it. Malformed raw input is not an error at all, it is
// absorbed by clipping.
type InferenceError struct {
	Stage string
	Err   error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference failed at %s: %v", e.Stage, e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }

func failure(stage string, err error) *InferenceError {
	return &InferenceError{Stage: stage, Err: err}
}
