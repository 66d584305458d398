// Package schema reconciles the parameter names found in a rewritten
// checkpoint with the names a model definition expects.
package schema

import (
	"fmt"
	"strings"

	"bitbucket.org/creachadair/stringset"
)

// Names of the contact regression parameters that older checkpoints lack.
const (
	RegressionWeight = "contact_head.regression.weight"
	RegressionBias   = "contact_head.regression.bias"
)

// RegressionKeys returns the names exempt from the missing check when no
// regression checkpoint was supplied.
func RegressionKeys() stringset.Set {
	return stringset.New(RegressionWeight, RegressionBias)
}

// Status classifies a reconciliation.
type Status int

// Reconciliation outcomes.
const (
	Complete Status = iota
	MissingRegressionOnly
	Error
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case Complete:
		return "complete"
	case MissingRegressionOnly:
		return "missing-regression"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Result is the outcome of Validate.
type Result struct {
	Missing    stringset.Set // expected but not found, after exemptions
	Unexpected stringset.Set // found but not expected
	Status     Status
}

// Validate compares the expected parameter names of a model with the names
// found in a checkpoint.
//
// When auxPresent is false the regression parameters may be absent; if both
// are absent and nothing else is wrong the status is MissingRegressionOnly.
func Validate(expected, found stringset.Set, auxPresent bool) Result {
	missingAll := expected.Diff(found)
	missing := missingAll
	if !auxPresent {
		missing = missingAll.Diff(RegressionKeys())
	}
	unexpected := found.Diff(expected)

	res := Result{
		Missing:    missing.Clone(),
		Unexpected: unexpected.Clone(),
	}

	switch {
	case !missing.Empty() || !unexpected.Empty():
		res.Status = Error
	case !auxPresent && RegressionKeys().IsSubset(missingAll):
		res.Status = MissingRegressionOnly
	default:
		res.Status = Complete
	}
	return res
}

// Err returns a *MismatchError for an Error result and nil otherwise.
// model names the model definition in the error message.
func (r Result) Err(model string) error {
	if r.Status != Error {
		return nil
	}
	return &MismatchError{
		Model:      model,
		Missing:    r.Missing.Elements(),
		Unexpected: r.Unexpected.Elements(),
	}
}

// MismatchError reports a checkpoint whose parameter names do not match the
// model definition.
type MismatchError struct {
	Model      string
	Missing    []string // sorted
	Unexpected []string // sorted
}

// Error implements the error interface.
func (e *MismatchError) Error() string {
	var msgs []string
	if len(e.Missing) > 0 {
		msgs = append(msgs, fmt.Sprintf("Missing key(s) in state_dict: %s.", quoteAll(e.Missing)))
	}
	if len(e.Unexpected) > 0 {
		msgs = append(msgs, fmt.Sprintf("Unexpected key(s) in state_dict: %s.", quoteAll(e.Unexpected)))
	}
	return fmt.Sprintf("Error(s) in loading state_dict for %s:\n\t%s", e.Model, strings.Join(msgs, "\n\t"))
}

func quoteAll(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = fmt.Sprintf("%q", n)
	}
	return strings.Join(quoted, ", ")
}
