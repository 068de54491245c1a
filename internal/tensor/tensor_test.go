package tensor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShape(t *testing.T) {
	tests := []struct {
		name     string
		shape    Shape
		elements int
		strides  []int
		valid    bool
	}{
		{"scalar", Shape{}, 1, []int{}, true},
		{"vector", Shape{5}, 5, []int{1}, true},
		{"matrix", Shape{3, 4}, 12, []int{4, 1}, true},
		{"3d", Shape{2, 3, 4}, 24, []int{12, 4, 1}, true},
		{"zero dim", Shape{3, 0}, 0, []int{0, 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.elements, tt.shape.NumElements())
			assert.Equal(t, tt.strides, tt.shape.ComputeStrides())
			assert.Equal(t, tt.valid, tt.shape.Validate() == nil)
		})
	}
	assert.Equal(t, "[2 3]", Shape{2, 3}.String())
	assert.True(t, Shape{2, 3}.Equal(Shape{2, 3}))
	assert.False(t, Shape{2, 3}.Equal(Shape{3, 2}))
}

func TestFromSliceCopies(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5, 6}
	d, err := FromSlice(data, Shape{3, 2})
	require.NoError(t, err)
	data[0] = 100
	assert.Equal(t, 1.0, d.At(0, 0))
	assert.Equal(t, 6.0, d.At(2, 1))

	_, err = FromSlice(data, Shape{4, 2})
	assert.Error(t, err)
}

func TestWrapShares(t *testing.T) {
	data := []float64{1, 2, 3, 4}
	d, err := Wrap(data, Shape{2, 2})
	require.NoError(t, err)
	d.Set(9, 1, 0)
	assert.Equal(t, 9.0, data[2])

	r, err := d.Reshape(Shape{4})
	require.NoError(t, err)
	assert.Equal(t, 9.0, r.At(2))
}

func TestRowsColsTimeMajor(t *testing.T) {
	d, err := FromSlice([]float64{1, 2, 3, 4, 5, 6}, Shape{3, 2})
	require.NoError(t, err)
	assert.Equal(t, 3, d.Rows())
	assert.Equal(t, 2, d.Cols())
	assert.Equal(t, []float64{3, 4}, d.Row(1))
	assert.Equal(t, []float64{2, 4, 6}, d.Column(1))

	v := Zeros(Shape{4})
	assert.Equal(t, 4, v.Rows())
	assert.Equal(t, 1, v.Cols())
}

func TestCloneIndependent(t *testing.T) {
	d := Zeros(Shape{2})
	c := d.Clone()
	c.Data()[0] = 1
	assert.Equal(t, 0.0, d.Data()[0])
}

func TestAllFinite(t *testing.T) {
	d := Zeros(Shape{3})
	assert.True(t, d.AllFinite())
	d.Data()[1] = math.Inf(-1)
	assert.False(t, d.AllFinite())
	d.Data()[1] = math.NaN()
	assert.False(t, d.AllFinite())
}

func TestIndexPanics(t *testing.T) {
	d := Zeros(Shape{2, 2})
	assert.Panics(t, func() { d.At(2, 0) })
	assert.Panics(t, func() { d.At(0) })
	assert.Panics(t, func() { Zeros(Shape{-1}) })
}
