package nn

import (
	"github.com/erik-whiting/RNA-FM/internal/tensor"
)

// LayerNorm holds the affine parameters of a Layer Normalization over the
// last dimension.
//
// The scale is stored as "weight" and the shift as "bias", both [d_model].
// The scale starts at one and the shift at zero.
type LayerNorm struct {
	Weight  *Parameter // scale [d_model]
	Bias    *Parameter // shift [d_model]
	Epsilon float32
}

// NewLayerNorm creates a new LayerNorm over normalizedShape features.
func NewLayerNorm(normalizedShape int, epsilon float32) *LayerNorm {
	shape := tensor.Shape{normalizedShape}
	return &LayerNorm{
		Weight:  NewParameter("weight", shape, tensor.Float32, Ones),
		Bias:    NewParameter("bias", shape, tensor.Float32, Zeros),
		Epsilon: epsilon,
	}
}

// NamedParameters returns weight and bias.
func (l *LayerNorm) NamedParameters() map[string]*Parameter {
	return map[string]*Parameter{
		"weight": l.Weight,
		"bias":   l.Bias,
	}
}
