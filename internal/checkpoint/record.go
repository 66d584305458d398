// Package checkpoint defines the in-memory form of a deserialized checkpoint:
// a configuration bag and a mapping from parameter name to tensor blob.
//
// Records are treated as immutable once read. Functions in this module that
// transform records (merging, key rewriting) always return new maps and never
// write into their inputs.
package checkpoint

import (
	"fmt"
	"sort"

	"github.com/erik-whiting/RNA-FM/internal/tensor"
)

// ArchKey is the configuration field naming the checkpoint's architecture.
const ArchKey = "arch"

// CanonicalKey marks a checkpoint whose configuration keys and parameter
// names are already canonical. Such records skip the legacy rewrite rules of
// their architecture.
const CanonicalKey = "canonical_names"

// Config is the configuration bag stored with a checkpoint (the training "args").
type Config map[string]any

// StateDict maps parameter names to tensors.
type StateDict map[string]*tensor.RawTensor

// Record is one deserialized checkpoint.
type Record struct {
	Config Config
	Params StateDict
}

// NewRecord creates a record, allocating empty maps for nil arguments.
func NewRecord(cfg Config, params StateDict) *Record {
	if cfg == nil {
		cfg = Config{}
	}
	if params == nil {
		params = StateDict{}
	}
	return &Record{Config: cfg, Params: params}
}

// Arch returns the architecture id recorded in the configuration.
func (r *Record) Arch() (string, error) {
	v, ok := r.Config[ArchKey]
	if !ok {
		return "", fmt.Errorf("checkpoint configuration has no %q field", ArchKey)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("checkpoint %q field is %T, not string", ArchKey, v)
	}
	return s, nil
}

// Canonical reports whether the record was written with canonical names.
func (r *Record) Canonical() bool {
	v, _ := r.Config[CanonicalKey].(bool)
	return v
}

// Names returns the parameter names in sorted order.
func (r *Record) Names() []string {
	return r.Params.Names()
}

// Names returns the parameter names in sorted order.
func (sd StateDict) Names() []string {
	names := make([]string, 0, len(sd))
	for name := range sd {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a new map sharing the same tensors.
func (sd StateDict) Clone() StateDict {
	out := make(StateDict, len(sd))
	for name, raw := range sd {
		out[name] = raw
	}
	return out
}

// Keys returns the configuration keys in sorted order.
func (c Config) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
