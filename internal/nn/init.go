package nn

import (
	"encoding/binary"
	"math"

	"github.com/erik-whiting/RNA-FM/internal/tensor"
)

// Initializer creates the starting value of a parameter.
type Initializer func(shape tensor.Shape, dtype tensor.DataType) (*tensor.RawTensor, error)

// Zeros creates a tensor filled with zeros.
//
// This is used for biases and for every weight of an unassigned skeleton.
func Zeros(shape tensor.Shape, dtype tensor.DataType) (*tensor.RawTensor, error) {
	return tensor.NewRaw(shape, dtype)
}

// Ones creates a tensor filled with ones.
//
// LayerNorm scales start at one. Only float32 and float64 are supported;
// other types fall back to zeros.
func Ones(shape tensor.Shape, dtype tensor.DataType) (*tensor.RawTensor, error) {
	raw, err := tensor.NewRaw(shape, dtype)
	if err != nil {
		return nil, err
	}
	switch dtype {
	case tensor.Float32:
		data := make([]byte, raw.ByteSize())
		for i := 0; i < len(data); i += 4 {
			binary.LittleEndian.PutUint32(data[i:], math.Float32bits(1))
		}
		return tensor.FromBytes(shape, dtype, data)
	case tensor.Float64:
		data := make([]byte, raw.ByteSize())
		for i := 0; i < len(data); i += 8 {
			binary.LittleEndian.PutUint64(data[i:], math.Float64bits(1))
		}
		return tensor.FromBytes(shape, dtype, data)
	default:
		return raw, nil
	}
}
