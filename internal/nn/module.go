// Package nn describes models as trees of named parameter slots.
//
// This package provides the building blocks for model skeletons:
//   - Module interface: anything that owns named parameters
//   - Parameter: a lazily initialized tensor slot with a fixed shape
//   - Linear, LayerNorm, Embedding: the common layers
//   - Container and Sequential: named and indexed composition
//
// Parameter names follow the dotted PyTorch convention
// ("layers.0.self_attn.k_proj.weight"), so a state dictionary read from a
// checkpoint can be assigned by name.
package nn

import (
	"fmt"
	"sort"
	"strings"

	"github.com/erik-whiting/RNA-FM/internal/tensor"
)

// Module is the base interface for all model components.
//
// NamedParameters returns every parameter of the module and its children,
// keyed by dotted name relative to the module.
type Module interface {
	NamedParameters() map[string]*Parameter
}

// ParameterNames returns the sorted names of all parameters of m.
func ParameterNames(m Module) []string {
	params := m.NamedParameters()
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StateDict returns a map of parameter names to tensors, initializing any
// parameter that was never assigned.
func StateDict(m Module) (map[string]*tensor.RawTensor, error) {
	params := m.NamedParameters()
	stateDict := make(map[string]*tensor.RawTensor, len(params))
	for name, p := range params {
		t, err := p.Tensor()
		if err != nil {
			return nil, err
		}
		stateDict[name] = t
	}
	return stateDict, nil
}

// LoadStateDict assigns tensors to the parameters of m by name.
//
// Every tensor whose name matches a parameter is checked with Parameter.Set.
// With strict set, the names must match exactly: missing or unexpected names
// fail with a *KeyMismatchError before anything is assigned. Without strict,
// unknown names are ignored and absent parameters keep their current value.
func LoadStateDict(m Module, stateDict map[string]*tensor.RawTensor, strict bool) error {
	params := m.NamedParameters()

	if strict {
		var mismatch KeyMismatchError
		for name := range params {
			if _, ok := stateDict[name]; !ok {
				mismatch.Missing = append(mismatch.Missing, name)
			}
		}
		for name := range stateDict {
			if _, ok := params[name]; !ok {
				mismatch.Unexpected = append(mismatch.Unexpected, name)
			}
		}
		if len(mismatch.Missing) > 0 || len(mismatch.Unexpected) > 0 {
			sort.Strings(mismatch.Missing)
			sort.Strings(mismatch.Unexpected)
			return &mismatch
		}
	}

	// Check every tensor first so a failed load leaves m untouched.
	names := make([]string, 0, len(stateDict))
	for name, raw := range stateDict {
		p, ok := params[name]
		if !ok {
			continue
		}
		if err := p.check(raw); err != nil {
			return fmt.Errorf("failed to load %s: %w", name, err)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := params[name].Set(stateDict[name]); err != nil {
			return fmt.Errorf("failed to load %s: %w", name, err)
		}
	}
	return nil
}

// KeyMismatchError reports a strict load whose names differ from the module.
type KeyMismatchError struct {
	Missing    []string
	Unexpected []string
}

// Error implements the error interface.
func (e *KeyMismatchError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing %s", strings.Join(e.Missing, ", ")))
	}
	if len(e.Unexpected) > 0 {
		parts = append(parts, fmt.Sprintf("unexpected %s", strings.Join(e.Unexpected, ", ")))
	}
	return "state dict keys do not match: " + strings.Join(parts, "; ")
}

// ShapeMismatchError reports a tensor whose shape differs from its parameter.
type ShapeMismatchError struct {
	Name     string
	Expected tensor.Shape
	Got      tensor.Shape
}

// Error implements the error interface.
func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("%s: shape mismatch: expected %v, got %v", e.Name, e.Expected, e.Got)
}

func prefixed(prefix string, params map[string]*Parameter, into map[string]*Parameter) {
	for name, p := range params {
		into[prefix+"."+name] = p
	}
}
