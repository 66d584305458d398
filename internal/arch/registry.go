// Package arch resolves checkpoint architecture ids to the rules that adapt
// their legacy key names to the canonical model schema.
//
// Known architectures:
//   - roberta_large: ESM-1b style, encoder_/encoder.sentence_encoder. prefixes
//   - protein_bert_base: ESM-1 style, decoder_/decoder. prefixes
//   - msa_transformer: encoder prefixes plus a row/column attention swap
//
// New conventions are added with Registry.Register; resolution is an exact
// id lookup with no pattern matching and no fallback.
package arch

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Architecture ids.
const (
	RobertaLarge    = "roberta_large"
	ProteinBertBase = "protein_bert_base"
	MSATransformer  = "msa_transformer"
)

// DefaultTheme is the vocabulary theme of the built-in architectures.
const DefaultTheme = "protein"

// Family selects which model definition a checkpoint is loaded into.
type Family int

// Model families.
const (
	StandardTransformer Family = iota
	MSATransformerFamily
)

// String returns the family name.
func (f Family) String() string {
	switch f {
	case StandardTransformer:
		return "ProteinBertModel"
	case MSATransformerFamily:
		return "MSATransformer"
	default:
		return "Unknown"
	}
}

// Descriptor holds everything needed to adapt one architecture's checkpoints.
type Descriptor struct {
	ID            string
	ConfigRewrite RewriteFunc // applied to configuration keys
	ParamRewrite  RewriteFunc // applied to parameter names
	Family        Family
	Theme         string // vocabulary theme used when the caller gives none

	// ZeroMaskEmbedding zeroes the mask token row of embed_tokens.weight
	// after rewriting (token dropout during training).
	ZeroMaskEmbedding bool
}

// UnknownArchitectureError is returned when an id is not registered.
type UnknownArchitectureError struct {
	ID string
}

// Error implements the error interface.
func (e *UnknownArchitectureError) Error() string {
	return fmt.Sprintf("unknown architecture selected: %q", e.ID)
}

// Registry errors.
var (
	ErrEmptyID          = errors.New("architecture id is empty")
	ErrDuplicateID      = errors.New("architecture already registered")
	ErrMissingRewriteFn = errors.New("architecture rewrite function is nil")
)

// Registry maps architecture ids to descriptors. It is safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	descriptors map[string]Descriptor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{descriptors: make(map[string]Descriptor)}
}

// DefaultRegistry creates a registry holding the built-in architectures.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, d := range builtins() {
		if err := r.Register(d); err != nil {
			panic(err) // built-ins are distinct and complete
		}
	}
	return r
}

func builtins() []Descriptor {
	return []Descriptor{
		{
			ID:                RobertaLarge,
			ConfigRewrite:     StripEncoderArg,
			ParamRewrite:      StripEncoderParam,
			Family:            StandardTransformer,
			Theme:             DefaultTheme,
			ZeroMaskEmbedding: true,
		},
		{
			ID:            ProteinBertBase,
			ConfigRewrite: StripDecoderArg,
			ParamRewrite:  StripDecoderParam,
			Family:        StandardTransformer,
			Theme:         DefaultTheme,
		},
		{
			ID:            MSATransformer,
			ConfigRewrite: StripEncoderArg,
			ParamRewrite:  MSAParam,
			Family:        MSATransformerFamily,
			Theme:         DefaultTheme,
		},
	}
}

// Register adds a descriptor. Ids are unique; re-registering an id fails.
//
// A descriptor only covers naming. The default vocabulary builder knows the
// alphabets of the built-in ids only, so loading a new id also needs a
// vocabulary builder for it (pretrained.WithVocabularyBuilder).
func (r *Registry) Register(d Descriptor) error {
	if d.ID == "" {
		return ErrEmptyID
	}
	if d.ConfigRewrite == nil || d.ParamRewrite == nil {
		return fmt.Errorf("%w: %s", ErrMissingRewriteFn, d.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.descriptors[d.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, d.ID)
	}
	r.descriptors[d.ID] = d
	return nil
}

// Resolve returns the descriptor registered under id.
func (r *Registry) Resolve(id string) (Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.descriptors[id]
	if !ok {
		return Descriptor{}, &UnknownArchitectureError{ID: id}
	}
	return d, nil
}

// IDs returns the registered ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.descriptors))
	for id := range r.descriptors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the process-wide registry used by Resolve.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = DefaultRegistry()
	})
	return defaultRegistry
}

// Resolve looks up id in the process-wide registry.
func Resolve(id string) (Descriptor, error) {
	return Default().Resolve(id)
}
