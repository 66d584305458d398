package tensor

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
)

// tensorBuffer is a reference-counted shared buffer for Copy-on-Write semantics.
type tensorBuffer struct {
	data     []byte
	refCount atomic.Int32
	mu       sync.Mutex // For safe deallocation
}

// newTensorBuffer wraps data in a buffer with refCount = 1.
func newTensorBuffer(data []byte) *tensorBuffer {
	buf := &tensorBuffer{data: data}
	buf.refCount.Store(1)
	return buf
}

func (tb *tensorBuffer) addRef() {
	tb.refCount.Add(1)
}

// release decrements the reference count and drops the bytes when it reaches 0.
func (tb *tensorBuffer) release() {
	if tb.refCount.Add(-1) == 0 {
		tb.mu.Lock()
		defer tb.mu.Unlock()
		tb.data = nil
	}
}

func (tb *tensorBuffer) isUnique() bool {
	return tb.refCount.Load() == 1
}

// RawTensor is an opaque named-parameter value: a shape, a data type and bytes.
// Clones share one reference-counted buffer; the first mutation through
// ZeroRow on a shared buffer detaches a private copy.
type RawTensor struct {
	buffer *tensorBuffer
	shape  Shape
	dtype  DataType
}

// NewRaw creates a zero-filled RawTensor with the given shape and type.
func NewRaw(shape Shape, dtype DataType) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	return &RawTensor{
		buffer: newTensorBuffer(make([]byte, shape.NumElements()*dtype.Size())),
		shape:  shape.Clone(),
		dtype:  dtype,
	}, nil
}

// FromBytes creates a RawTensor holding a copy of data.
// len(data) must match the byte size implied by shape and dtype.
func FromBytes(shape Shape, dtype DataType, data []byte) (*RawTensor, error) {
	raw, err := NewRaw(shape, dtype)
	if err != nil {
		return nil, err
	}
	if len(data) != raw.ByteSize() {
		return nil, fmt.Errorf("data size mismatch for shape %v (%s): expected %d bytes, got %d",
			shape, dtype, raw.ByteSize(), len(data))
	}
	copy(raw.buffer.data, data)
	return raw, nil
}

// FromFloat32 creates a float32 RawTensor from values in row-major order.
func FromFloat32(shape Shape, values []float32) (*RawTensor, error) {
	data := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(data[4*i:], math.Float32bits(v))
	}
	return FromBytes(shape, Float32, data)
}

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape {
	return r.shape
}

// DType returns the tensor's data type.
func (r *RawTensor) DType() DataType {
	return r.dtype
}

// NumElements returns the total number of elements.
func (r *RawTensor) NumElements() int {
	return r.shape.NumElements()
}

// ByteSize returns the total memory size in bytes.
func (r *RawTensor) ByteSize() int {
	return r.NumElements() * r.dtype.Size()
}

// Data returns the underlying bytes.
// The slice may be shared with clones and must be treated as read-only.
func (r *RawTensor) Data() []byte {
	return r.buffer.data
}

// Row returns a read-only view of row i along the leading dimension.
func (r *RawTensor) Row(i int) ([]byte, error) {
	start, end, err := r.rowBounds(i)
	if err != nil {
		return nil, err
	}
	return r.buffer.data[start:end], nil
}

// Clone creates a shallow copy of the RawTensor sharing the same buffer.
// The buffer is copied only when one of the sharers is modified.
func (r *RawTensor) Clone() *RawTensor {
	r.buffer.addRef()
	return &RawTensor{
		buffer: r.buffer,
		shape:  r.shape.Clone(),
		dtype:  r.dtype,
	}
}

// ZeroRow sets every byte of row i along the leading dimension to zero.
// If the buffer is shared with a clone, the tensor first detaches its own copy,
// so other sharers never observe the change.
func (r *RawTensor) ZeroRow(i int) error {
	start, end, err := r.rowBounds(i)
	if err != nil {
		return err
	}
	r.detach()
	clear(r.buffer.data[start:end])
	return nil
}

// Equal reports whether two tensors have the same shape, dtype and bytes.
func (r *RawTensor) Equal(other *RawTensor) bool {
	if other == nil {
		return false
	}
	return r.dtype == other.dtype && r.shape.Equal(other.shape) && bytes.Equal(r.buffer.data, other.buffer.data)
}

// Release decrements the reference count and deallocates if it reaches 0.
func (r *RawTensor) Release() {
	r.buffer.release()
}

// IsUnique returns true if this tensor is the only reference to the buffer.
func (r *RawTensor) IsUnique() bool {
	return r.buffer.isUnique()
}

// detach gives r a private buffer when the current one is shared.
func (r *RawTensor) detach() {
	if r.buffer.isUnique() {
		return
	}
	data := make([]byte, len(r.buffer.data))
	copy(data, r.buffer.data)
	old := r.buffer
	r.buffer = newTensorBuffer(data)
	old.release()
}

func (r *RawTensor) rowBounds(i int) (start, end int, err error) {
	if len(r.shape) == 0 {
		return 0, 0, fmt.Errorf("tensor is a scalar and has no rows")
	}
	if i < 0 || i >= r.shape[0] {
		return 0, 0, fmt.Errorf("row index %d out of range for shape %v", i, r.shape)
	}
	rowBytes := r.shape.RowElements() * r.dtype.Size()
	return i * rowBytes, (i + 1) * rowBytes, nil
}
