// Copyright 2025 RNA-FM Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the opaque tensor blobs held by checkpoints and
// model parameters.
//
// A RawTensor is a shape, a data type and a byte buffer. Tensors are never
// computed on: they are read from checkpoint files, shared between records,
// and zeroed row-wise. Clones share one reference-counted buffer and the first
// write through ZeroRow detaches a private copy, so a tensor shared with a
// checkpoint record is never changed by a model load.
//
// Example:
//
//	raw, _ := tensor.FromFloat32(tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
//	clone := raw.Clone()   // shares the buffer
//	_ = clone.ZeroRow(1)   // copies, then zeroes row 1
//	raw.Equal(clone)       // false
package tensor
