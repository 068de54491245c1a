package params

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/errs"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/tensor"
)

func mustTensor(t *testing.T, data []float64, shape tensor.Shape) *tensor.Dense {
	t.Helper()
	d, err := tensor.FromSlice(data, shape)
	require.NoError(t, err)
	return d
}

func testSet(t *testing.T) *Set {
	t.Helper()
	s, err := NewSet(
		New("net.0.weight", mustTensor(t, []float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})),
		New("net.0.bias", mustTensor(t, []float64{-0.5, math.SmallestNonzeroFloat64}, tensor.Shape{2})),
		New("a_coeff", mustTensor(t, []float64{math.Pi}, tensor.Shape{1})),
	)
	require.NoError(t, err)
	return s
}

func TestFlattenUnflattenRoundTrip(t *testing.T) {
	s := testSet(t)
	theta, layout := Flatten(s)
	require.Len(t, theta, 9)
	assert.Equal(t, 9, layout.Size())
	assert.Equal(t, 9, s.Size())

	back, err := Unflatten(theta, layout)
	require.NoError(t, err)
	require.Len(t, back, s.Len())
	for i, p := range s.All() {
		assert.True(t, p.Shape().Equal(back[i].Shape()), "shape of %s", p.Name())
		for j, v := range p.Value().Data() {
			// Bit-for-bit equality.
			assert.Equal(t, math.Float64bits(v), math.Float64bits(back[i].Data()[j]))
		}
	}
}

func TestFlattenOrderIsDeclarationOrder(t *testing.T) {
	s := testSet(t)
	theta, layout := Flatten(s)
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, theta[:6])
	assert.Equal(t, math.Pi, theta[8])

	entries := layout.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "net.0.weight", entries[0].Name)
	assert.Equal(t, 6, entries[1].Offset)
	assert.Equal(t, 8, entries[2].Offset)

	name, pos := layout.NameOf(7)
	assert.Equal(t, "net.0.bias", name)
	assert.Equal(t, 1, pos)

	names := layout.ScalarNames()
	assert.Equal(t, "net.0.weight_0", names[0])
	assert.Equal(t, "a_coeff_0", names[8])
}

func TestUnflattenWrongLength(t *testing.T) {
	_, layout := Flatten(testSet(t))
	_, err := Unflatten(make([]float64, 8), layout)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrShapeMismatch))
}

func TestLayoutCheck(t *testing.T) {
	s := testSet(t)
	layout := s.Layout()
	require.NoError(t, layout.Check(s.Layout()))

	reordered, err := NewSet(s.All()[1], s.All()[0], s.All()[2])
	require.NoError(t, err)
	err = layout.Check(reordered.Layout())
	require.Error(t, err)
	var shapeErr *errs.ShapeMismatchError
	require.True(t, errors.As(err, &shapeErr))

	reshaped, err := NewSet(
		New("net.0.weight", tensor.Zeros(tensor.Shape{3, 2})),
		s.All()[1], s.All()[2],
	)
	require.NoError(t, err)
	assert.ErrorIs(t, layout.Check(reshaped.Layout()), errs.ErrShapeMismatch)
}

func TestCheckTensors(t *testing.T) {
	s := testSet(t)
	layout := s.Layout()
	require.NoError(t, layout.CheckTensors(s.Values()))
	assert.ErrorIs(t, layout.CheckTensors(s.Values()[:2]), errs.ErrShapeMismatch)
}

func TestDuplicateNames(t *testing.T) {
	_, err := NewSet(New("w", tensor.Zeros(tensor.Shape{1})), New("w", tensor.Zeros(tensor.Shape{1})))
	assert.Error(t, err)
}

func TestAssign(t *testing.T) {
	s := testSet(t)
	err := s.Assign(map[string]*tensor.Dense{
		"net.0.weight": tensor.Zeros(tensor.Shape{2, 3}),
		"net.0.bias":   mustTensor(t, []float64{7, 8}, tensor.Shape{2}),
		"a_coeff":      mustTensor(t, []float64{9}, tensor.Shape{1}),
	})
	require.NoError(t, err)
	p, ok := s.Get("net.0.bias")
	require.True(t, ok)
	assert.Equal(t, []float64{7, 8}, p.Value().Data())

	err = s.Assign(map[string]*tensor.Dense{"a_coeff": tensor.Zeros(tensor.Shape{1})})
	assert.ErrorIs(t, err, errs.ErrShapeMismatch)
}

func TestRestore(t *testing.T) {
	s := testSet(t)
	theta, layout := Flatten(s)

	snap, err := Restore(theta, layout)
	require.NoError(t, err)
	require.NoError(t, layout.Check(snap.Layout()))

	// The snapshot does not share storage with the original set.
	s.All()[0].Value().Data()[0] = 100
	got, _ := Flatten(snap)
	assert.Equal(t, theta[0], got[0])

	_, err = Restore(theta[:3], layout)
	assert.ErrorIs(t, err, errs.ErrShapeMismatch)
}
