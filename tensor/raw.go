// Copyright 2025 RNA-FM Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/erik-whiting/RNA-FM/internal/tensor"
)

// RawTensor is an opaque parameter value.
//
// RawTensor provides:
//   - Shape and type information via Shape(), DType(), ByteSize()
//   - Byte access via Data() and Row()
//   - Copy-on-Write semantics via Clone() and ZeroRow()
type RawTensor = tensor.RawTensor

// Shape is a tensor's dimensions in row-major order.
type Shape = tensor.Shape

// DataType is the element type of a tensor.
type DataType = tensor.DataType

// Supported data types.
const (
	Float32  = tensor.Float32
	Float64  = tensor.Float64
	Int32    = tensor.Int32
	Int64    = tensor.Int64
	Uint8    = tensor.Uint8
	Bool     = tensor.Bool
	Float16  = tensor.Float16
	BFloat16 = tensor.BFloat16
)

// NewRaw creates a zero-filled tensor.
func NewRaw(shape Shape, dtype DataType) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype)
}

// FromBytes creates a tensor holding a copy of data.
func FromBytes(shape Shape, dtype DataType, data []byte) (*RawTensor, error) {
	return tensor.FromBytes(shape, dtype, data)
}

// FromFloat32 creates a float32 tensor from values in row-major order.
func FromFloat32(shape Shape, values []float32) (*RawTensor, error) {
	return tensor.FromFloat32(shape, values)
}

// ParseDataType converts a name such as "float16" into a DataType.
func ParseDataType(s string) (DataType, bool) {
	return tensor.ParseDataType(s)
}
