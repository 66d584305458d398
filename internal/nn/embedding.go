package nn

import (
	"github.com/erik-whiting/RNA-FM/internal/tensor"
)

// Embedding is a lookup table that maps token indices to dense vectors.
//
// Architecture:
//   - Weight: [NumEmbed, EmbedDim]
//   - PaddingIdx: row reserved for padding, -1 when unused
//
// Example:
//
//	// Alphabet of 25 tokens, embedding dimension 640
//	embed := nn.NewEmbedding(25, 640, 1)
type Embedding struct {
	Weight     *Parameter // [NumEmbed, EmbedDim]
	NumEmbed   int
	EmbedDim   int
	PaddingIdx int
}

// NewEmbedding creates a new Embedding layer with zero weights.
func NewEmbedding(numEmbeddings, embeddingDim, paddingIdx int) *Embedding {
	return &Embedding{
		Weight:     NewParameter("weight", tensor.Shape{numEmbeddings, embeddingDim}, tensor.Float32, Zeros),
		NumEmbed:   numEmbeddings,
		EmbedDim:   embeddingDim,
		PaddingIdx: paddingIdx,
	}
}

// NamedParameters returns the weight.
func (e *Embedding) NamedParameters() map[string]*Parameter {
	return map[string]*Parameter{"weight": e.Weight}
}
