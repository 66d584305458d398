// Package model builds the parameter skeletons of the pretrained model
// families and assigns checkpoint tensors to them.
//
// Three skeletons exist:
//   - ESM-1: ProteinBertModel for any arch other than roberta_large
//   - ESM-1b: ProteinBertModel for arch roberta_large
//   - MSA Transformer: axial row/column attention over alignments
//
// A skeleton only declares names, shapes and types. Tensors are allocated
// when weights are assigned, or on first read for parameters that never were.
package model

import (
	"fmt"
	"math"

	"github.com/erik-whiting/RNA-FM/internal/arch"
	"github.com/erik-whiting/RNA-FM/internal/checkpoint"
	"github.com/erik-whiting/RNA-FM/internal/nn"
	"github.com/erik-whiting/RNA-FM/internal/tensor"
)

// Model versions.
const (
	VersionESM1  = "ESM-1"
	VersionESM1b = "ESM-1b"
	VersionMSA   = "MSA Transformer"
)

// Vocabulary is the part of an alphabet a skeleton depends on.
type Vocabulary interface {
	Size() int
	PaddingIndex() int
}

// Model is a built skeleton together with its configuration.
type Model struct {
	family  arch.Family
	version string
	config  Config
	root    *nn.Container
}

// New builds the skeleton of family from the rewritten configuration cfg.
func New(family arch.Family, cfg checkpoint.Config, vocab Vocabulary) (*Model, error) {
	c, err := ParseConfig(cfg)
	if err != nil {
		return nil, err
	}
	if vocab.Size() <= 0 {
		return nil, fmt.Errorf("%w: empty vocabulary", ErrInvalidConfig)
	}

	m := &Model{family: family, config: c}
	switch family {
	case arch.StandardTransformer:
		if c.Arch == arch.RobertaLarge {
			m.version = VersionESM1b
			m.root = esm1b(c, vocab)
		} else {
			m.version = VersionESM1
			m.root = esm1(c, vocab)
		}
	case arch.MSATransformerFamily:
		m.version = VersionMSA
		m.root = msaTransformer(c, vocab)
	default:
		return nil, fmt.Errorf("unsupported model family %s", family)
	}
	return m, nil
}

func esm1(c Config, vocab Vocabulary) *nn.Container {
	root := common(c, vocab, true)
	root.Add("embed_positions", nn.NewContainer().
		AddParameter("_float_tensor", nn.NewParameter("_float_tensor", tensor.Shape{1}, tensor.Float32, nil)))
	root.AddParameter("embed_out",
		nn.NewParameter("embed_out", tensor.Shape{vocab.Size(), c.EmbedDim}, tensor.Float32, nil))
	if c.FinalBias {
		root.AddParameter("embed_out_bias",
			nn.NewParameter("embed_out_bias", tensor.Shape{vocab.Size()}, tensor.Float32, nil))
	}
	return root
}

func esm1b(c Config, vocab Vocabulary) *nn.Container {
	root := common(c, vocab, false)
	root.Add("embed_positions", learnedPositions(c.MaxPositions, c.EmbedDim, vocab.PaddingIndex()))
	if c.EmbLayerNormBefore {
		root.Add("emb_layer_norm_before", nn.NewLayerNorm(c.EmbedDim, layerNormEps))
	}
	root.Add("emb_layer_norm_after", nn.NewLayerNorm(c.EmbedDim, layerNormEps))
	root.Add("lm_head", lmHead(c.EmbedDim, vocab.Size()))
	return root
}

// common holds what both ProteinBertModel generations share.
func common(c Config, vocab Vocabulary, biasKV bool) *nn.Container {
	layers := nn.NewSequential()
	for i := 0; i < c.Layers; i++ {
		layers.Add(transformerLayer(c.EmbedDim, c.FFNEmbedDim, biasKV))
	}
	return nn.NewContainer().
		Add("embed_tokens", nn.NewEmbedding(vocab.Size(), c.EmbedDim, vocab.PaddingIndex())).
		Add("layers", layers).
		Add("contact_head", contactHead(c.Layers, c.AttentionHeads))
}

func msaTransformer(c Config, vocab Vocabulary) *nn.Container {
	layers := nn.NewSequential()
	for i := 0; i < c.Layers; i++ {
		layers.Add(axialLayer(c.EmbedDim, c.FFNEmbedDim))
	}
	root := nn.NewContainer().
		Add("embed_tokens", nn.NewEmbedding(vocab.Size(), c.EmbedDim, vocab.PaddingIndex())).
		Add("layers", layers).
		Add("contact_head", contactHead(c.Layers, c.AttentionHeads)).
		Add("embed_positions", learnedPositions(c.MaxPositions, c.EmbedDim, vocab.PaddingIndex())).
		Add("emb_layer_norm_before", nn.NewLayerNorm(c.EmbedDim, layerNormEps)).
		Add("emb_layer_norm_after", nn.NewLayerNorm(c.EmbedDim, layerNormEps)).
		Add("lm_head", lmHead(c.EmbedDim, vocab.Size()))
	if c.EmbedPositionsMSA {
		root.AddParameter("msa_position_embedding",
			nn.NewParameter("msa_position_embedding", tensor.Shape{1, 1024, 1, 1}, tensor.Float32, nil))
	}
	return root
}

// Name returns the model definition name used in load errors.
func (m *Model) Name() string {
	return m.family.String()
}

// Version returns the model generation.
func (m *Model) Version() string {
	return m.version
}

// Family returns the model family.
func (m *Model) Family() arch.Family {
	return m.family
}

// Config returns the parsed configuration.
func (m *Model) Config() Config {
	return m.config
}

// EmbedScale is the factor applied to token embeddings: sqrt(embed_dim) for
// ESM-1 and 1 otherwise.
func (m *Model) EmbedScale() float64 {
	if m.version == VersionESM1 {
		return math.Sqrt(float64(m.config.EmbedDim))
	}
	return 1
}

// NamedParameters implements nn.Module.
func (m *Model) NamedParameters() map[string]*nn.Parameter {
	return m.root.NamedParameters()
}

// ExpectedParameterNames returns the sorted canonical parameter names.
func (m *Model) ExpectedParameterNames() []string {
	return nn.ParameterNames(m.root)
}

// NumParameters returns the total number of parameter elements.
func (m *Model) NumParameters() int {
	total := 0
	for _, p := range m.root.NamedParameters() {
		total += p.Shape().NumElements()
	}
	return total
}

// AssignParameters loads params by name. With strict set the names must match
// the skeleton exactly; otherwise unknown names are ignored and absent
// parameters keep their initial values.
func (m *Model) AssignParameters(params checkpoint.StateDict, strict bool) error {
	return nn.LoadStateDict(m.root, params, strict)
}

// StateDict returns the current tensors of every parameter.
func (m *Model) StateDict() (checkpoint.StateDict, error) {
	return nn.StateDict(m.root)
}
