// Package tensor provides the dense float64 arrays shared by the autodiff
// tape, the models and the adaptation pipeline.
//
// Sequences follow the time-major convention [sequence_length, channels].
package tensor

import (
	"fmt"
	"math"
)

// Dense is a row-major float64 tensor.
type Dense struct {
	shape Shape
	data  []float64
}

// New allocates a zero-filled tensor.
func New(shape Shape) (*Dense, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	return &Dense{
		shape: shape.Clone(),
		data:  make([]float64, shape.NumElements()),
	}, nil
}

// Zeros is New for shapes known to be valid. It panics on invalid shapes.
func Zeros(shape Shape) *Dense {
	t, err := New(shape)
	if err != nil {
		panic(err)
	}
	return t
}

// FromSlice creates a tensor from a Go slice.
// The slice is copied into the tensor's memory.
func FromSlice(data []float64, shape Shape) (*Dense, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}
	t := &Dense{
		shape: shape.Clone(),
		data:  make([]float64, len(data)),
	}
	copy(t.data, data)
	return t, nil
}

// Wrap creates a tensor that shares data with the caller.
func Wrap(data []float64, shape Shape) (*Dense, error) {
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}
	return &Dense{shape: shape.Clone(), data: data}, nil
}

// Shape returns the tensor's shape.
func (t *Dense) Shape() Shape {
	return t.shape
}

// Data returns the underlying storage. Mutations are visible to the tensor.
func (t *Dense) Data() []float64 {
	return t.data
}

// Len returns the total number of elements.
func (t *Dense) Len() int {
	return len(t.data)
}

// Clone returns a deep copy.
func (t *Dense) Clone() *Dense {
	data := make([]float64, len(t.data))
	copy(data, t.data)
	return &Dense{shape: t.shape.Clone(), data: data}
}

// Reshape returns a view with a new shape over the same data.
func (t *Dense) Reshape(shape Shape) (*Dense, error) {
	return Wrap(t.data, shape)
}

// At returns the element at the given multi-dimensional index.
func (t *Dense) At(idx ...int) float64 {
	return t.data[t.offset(idx)]
}

// Set stores v at the given multi-dimensional index.
func (t *Dense) Set(v float64, idx ...int) {
	t.data[t.offset(idx)] = v
}

func (t *Dense) offset(idx []int) int {
	if len(idx) != len(t.shape) {
		panic(fmt.Sprintf("tensor: index rank %d does not match shape %v", len(idx), t.shape))
	}
	strides := t.shape.ComputeStrides()
	off := 0
	for i, v := range idx {
		if v < 0 || v >= t.shape[i] {
			panic(fmt.Sprintf("tensor: index %v out of range for shape %v", idx, t.shape))
		}
		off += v * strides[i]
	}
	return off
}

// Rows returns the leading dimension of a 2-D tensor.
func (t *Dense) Rows() int {
	if len(t.shape) == 0 {
		return 1
	}
	return t.shape[0]
}

// Cols returns the trailing dimension of a 2-D tensor, 1 for vectors.
func (t *Dense) Cols() int {
	if len(t.shape) < 2 {
		return 1
	}
	return t.shape[len(t.shape)-1]
}

// Row returns row i of a 2-D tensor as a slice sharing storage.
func (t *Dense) Row(i int) []float64 {
	c := t.Cols()
	return t.data[i*c : (i+1)*c]
}

// Column copies channel c of a 2-D tensor.
func (t *Dense) Column(c int) []float64 {
	cols := t.Cols()
	out := make([]float64, t.Rows())
	for i := range out {
		out[i] = t.data[i*cols+c]
	}
	return out
}

// AllFinite reports whether every element is finite.
func (t *Dense) AllFinite() bool {
	for _, v := range t.data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
