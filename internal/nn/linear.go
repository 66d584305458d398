package nn

import (
	"github.com/erik-whiting/RNA-FM/internal/tensor"
)

// Linear holds the parameters of a fully connected (dense) layer.
//
// Parameters:
//   - weight with shape [out_features, in_features]
//   - bias with shape [out_features] (optional)
//
// Example:
//
//	fc1 := nn.NewLinear(1280, 5120, true)
//	names := nn.ParameterNames(fc1) // [bias weight]
type Linear struct {
	inFeatures  int
	outFeatures int
	weight      *Parameter // [out_features, in_features]
	bias        *Parameter // [out_features]
}

// NewLinear creates a new Linear layer. Weights and bias start at zero.
func NewLinear(inFeatures, outFeatures int, bias bool) *Linear {
	l := &Linear{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      NewParameter("weight", tensor.Shape{outFeatures, inFeatures}, tensor.Float32, Zeros),
	}
	if bias {
		l.bias = NewParameter("bias", tensor.Shape{outFeatures}, tensor.Float32, Zeros)
	}
	return l
}

// NamedParameters returns weight and, if present, bias.
func (l *Linear) NamedParameters() map[string]*Parameter {
	params := map[string]*Parameter{"weight": l.weight}
	if l.bias != nil {
		params["bias"] = l.bias
	}
	return params
}

// Weight returns the weight parameter.
func (l *Linear) Weight() *Parameter {
	return l.weight
}

// Bias returns the bias parameter, or nil when the layer has none.
func (l *Linear) Bias() *Parameter {
	return l.bias
}

// InFeatures returns the number of input features.
func (l *Linear) InFeatures() int {
	return l.inFeatures
}

// OutFeatures returns the number of output features.
func (l *Linear) OutFeatures() int {
	return l.outFeatures
}
