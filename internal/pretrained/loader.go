// Package pretrained turns deserialized checkpoints into loaded models.
//
// A Loader resolves the checkpoint's architecture, rewrites legacy key names
// into the canonical schema, overlays the optional contact regression
// checkpoint, validates the names against the model skeleton and assigns the
// tensors.
//
// Example usage:
//
//	l := pretrained.New(pretrained.WithLogger(logger))
//	res, err := l.Load(primary, regression, "roberta_large", "rna")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res.Model.Name(), res.Validation.Status)
package pretrained

import (
	"errors"
	"fmt"

	"bitbucket.org/creachadair/stringset"
	"go.uber.org/zap"

	"github.com/erik-whiting/RNA-FM/internal/arch"
	"github.com/erik-whiting/RNA-FM/internal/checkpoint"
	"github.com/erik-whiting/RNA-FM/internal/schema"
)

// EmbedTokensWeight is the parameter whose mask row is zeroed for
// architectures with Descriptor.ZeroMaskEmbedding.
const EmbedTokensWeight = "embed_tokens.weight"

// Vocabulary is the alphabet paired with a loaded model.
type Vocabulary interface {
	MaskIndex() int
	PaddingIndex() int
	Size() int
}

// VocabularyBuilder creates the vocabulary for an architecture and theme.
type VocabularyBuilder interface {
	Build(archID, theme string) (Vocabulary, error)
}

// ModelHandle is a constructed, not yet loaded model.
type ModelHandle interface {
	Name() string
	ExpectedParameterNames() []string
	AssignParameters(params checkpoint.StateDict, strict bool) error
}

// ModelBuilder constructs an empty model of a family from rewritten args.
type ModelBuilder interface {
	Build(family arch.Family, cfg checkpoint.Config, vocab Vocabulary) (ModelHandle, error)
}

// Result is a successfully loaded model.
type Result struct {
	Model      ModelHandle
	Vocabulary Vocabulary
	Descriptor arch.Descriptor
	Config     checkpoint.Config // rewritten configuration
	Validation schema.Result
	Warnings   []error
}

// Loader loads checkpoints into models. The zero value is not usable; use New.
type Loader struct {
	registry *arch.Registry
	models   ModelBuilder
	vocabs   VocabularyBuilder
	logger   *zap.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithRegistry sets the architecture registry.
func WithRegistry(r *arch.Registry) Option {
	return func(l *Loader) { l.registry = r }
}

// WithModelBuilder sets the model constructor.
func WithModelBuilder(b ModelBuilder) Option {
	return func(l *Loader) { l.models = b }
}

// WithVocabularyBuilder sets the vocabulary constructor.
func WithVocabularyBuilder(b VocabularyBuilder) Option {
	return func(l *Loader) { l.vocabs = b }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// New creates a Loader using the process-wide registry, the built-in model
// skeletons and the tokenizer alphabets unless overridden.
func New(opts ...Option) *Loader {
	l := &Loader{
		registry: arch.Default(),
		models:   DefaultModelBuilder(),
		vocabs:   DefaultVocabularyBuilder(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load builds a model from primary and the optional regression checkpoint
// aux. theme "" selects the architecture's default theme.
//
// Neither record is modified. On error no model is returned.
func (l *Loader) Load(primary, aux *checkpoint.Record, archID, theme string) (*Result, error) {
	if primary == nil {
		return nil, errors.New("primary checkpoint is nil")
	}

	desc, err := l.registry.Resolve(archID)
	if err != nil {
		return nil, err
	}
	log := l.logger.With(zap.String("arch", desc.ID))

	// Each record is rewritten under its own naming before the overlay, so
	// the auxiliary wins on canonical names even when the legacy names differ.
	merged := checkpoint.Merge(arch.RewriteRecord(primary, desc), arch.RewriteRecord(aux, desc))
	cfg, params := merged.Config, merged.Params
	log.Debug("rewrote checkpoint keys",
		zap.Int("config_keys", len(cfg)),
		zap.Int("params", len(params)),
		zap.Bool("regression", aux != nil))

	if theme == "" {
		theme = desc.Theme
	}
	vocab, err := l.vocabs.Build(desc.ID, theme)
	if err != nil {
		return nil, fmt.Errorf("failed to build vocabulary: %w", err)
	}

	if desc.ZeroMaskEmbedding {
		if err := zeroMaskRow(params, vocab.MaskIndex()); err != nil {
			return nil, err
		}
		log.Debug("zeroed mask token embedding", zap.Int("mask_index", vocab.MaskIndex()))
	}

	model, err := l.models.Build(desc.Family, cfg, vocab)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s: %w", desc.Family, err)
	}

	expected := stringset.New(model.ExpectedParameterNames()...)
	found := stringset.FromKeys(params)
	validation := schema.Validate(expected, found, aux != nil)

	res := &Result{
		Model:      model,
		Vocabulary: vocab,
		Descriptor: desc,
		Config:     cfg,
		Validation: validation,
	}
	switch validation.Status {
	case schema.Error:
		return nil, validation.Err(model.Name())
	case schema.MissingRegressionOnly:
		log.Warn("Regression weights not found, predicting contacts will not produce correct results.")
		res.Warnings = append(res.Warnings, ErrMissingRegression)
	case schema.Complete:
	}

	strict := aux != nil
	if err := model.AssignParameters(params, strict); err != nil {
		return nil, &AssignmentError{Model: model.Name(), Strict: strict, Err: err}
	}

	log.Debug("loaded checkpoint",
		zap.String("model", model.Name()),
		zap.Int("params", len(params)),
		zap.Stringer("status", validation.Status))
	return res, nil
}

// zeroMaskRow replaces embed_tokens.weight in params with a copy whose mask
// row is zero. The tensor shared with the input record is left as it was.
func zeroMaskRow(params checkpoint.StateDict, maskIdx int) error {
	raw, ok := params[EmbedTokensWeight]
	if !ok {
		return fmt.Errorf("%w: %s not found", ErrMaskEmbedding, EmbedTokensWeight)
	}
	zeroed := raw.Clone()
	if err := zeroed.ZeroRow(maskIdx); err != nil {
		zeroed.Release()
		return fmt.Errorf("%w: %w", ErrMaskEmbedding, err)
	}
	params[EmbedTokensWeight] = zeroed
	return nil
}
