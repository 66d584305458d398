package nn

import (
	"fmt"

	"github.com/erik-whiting/RNA-FM/internal/tensor"
)

// Parameter is a named slot for one learned tensor of a model.
//
// A Parameter knows its shape and data type from construction. The tensor
// itself is created lazily by the initializer the first time it is read, so a
// skeleton of a large model costs nothing until weights are assigned.
//
// Example:
//
//	weight := nn.NewParameter("weight", tensor.Shape{25, 640}, tensor.Float32, nn.Zeros)
//	if err := weight.Set(raw); err != nil {
//	    return err
//	}
type Parameter struct {
	name   string
	shape  tensor.Shape
	dtype  tensor.DataType
	init   Initializer
	tensor *tensor.RawTensor
}

// NewParameter creates a parameter slot. A nil init defaults to Zeros.
func NewParameter(name string, shape tensor.Shape, dtype tensor.DataType, init Initializer) *Parameter {
	if init == nil {
		init = Zeros
	}
	return &Parameter{
		name:  name,
		shape: shape.Clone(),
		dtype: dtype,
		init:  init,
	}
}

// Name returns the parameter name.
func (p *Parameter) Name() string {
	return p.name
}

// Shape returns the declared shape.
func (p *Parameter) Shape() tensor.Shape {
	return p.shape
}

// DType returns the data type of the current tensor, or the declared one
// before anything was assigned.
func (p *Parameter) DType() tensor.DataType {
	if p.tensor != nil {
		return p.tensor.DType()
	}
	return p.dtype
}

// Assigned reports whether a tensor has been set or initialized.
func (p *Parameter) Assigned() bool {
	return p.tensor != nil
}

// Tensor returns the parameter tensor, running the initializer on first use.
func (p *Parameter) Tensor() (*tensor.RawTensor, error) {
	if p.tensor == nil {
		t, err := p.init(p.shape, p.dtype)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize %s: %w", p.name, err)
		}
		p.tensor = t
	}
	return p.tensor, nil
}

// Set assigns raw to the parameter.
//
// The shape must match exactly. A floating point parameter accepts any
// floating point data type (checkpoints are often stored in half precision);
// other types must match exactly. The parameter keeps a clone of raw, so
// later copy-on-write changes on either side stay private.
func (p *Parameter) Set(raw *tensor.RawTensor) error {
	if err := p.check(raw); err != nil {
		return err
	}

	if p.tensor != nil {
		p.tensor.Release()
	}
	p.tensor = raw.Clone()
	return nil
}

func (p *Parameter) check(raw *tensor.RawTensor) error {
	if raw == nil {
		return fmt.Errorf("%s: nil tensor", p.name)
	}
	if !raw.Shape().Equal(p.shape) {
		return &ShapeMismatchError{Name: p.name, Expected: p.shape, Got: raw.Shape()}
	}
	if raw.DType() != p.dtype && !(raw.DType().IsFloat() && p.dtype.IsFloat()) {
		return fmt.Errorf("%s: dtype mismatch: expected %s, got %s", p.name, p.dtype, raw.DType())
	}
	return nil
}
