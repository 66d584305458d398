package pretrained

import (
	"errors"
	"fmt"
)

// ErrMissingRegression is recorded in Result.Warnings when a checkpoint loads
// without its contact regression parameters.
var ErrMissingRegression = errors.New(
	"regression weights not found, predicting contacts will not produce correct results")

// ErrMaskEmbedding is returned when the mask row of the token embedding
// cannot be zeroed.
var ErrMaskEmbedding = errors.New("cannot zero mask token embedding")

// AssignmentError wraps a failure to assign reconciled parameters into the
// constructed model.
type AssignmentError struct {
	Model  string
	Strict bool
	Err    error
}

// Error implements the error interface.
func (e *AssignmentError) Error() string {
	return fmt.Sprintf("failed to assign parameters to %s (strict=%t): %v", e.Model, e.Strict, e.Err)
}

// Unwrap returns the underlying error.
func (e *AssignmentError) Unwrap() error {
	return e.Err
}
