package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/tensor"
)

func TestSafeTensorsRoundTrip(t *testing.T) {
	w, err := tensor.FromSlice([]float64{1.5, -2, math.Pi, 0, 1e-300, 7}, tensor.Shape{2, 3})
	require.NoError(t, err)
	b, err := tensor.FromSlice([]float64{0.25, -0.25}, tensor.Shape{2})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, map[string]*tensor.Dense{"net.0.weight": w, "net.0.bias": b}, map[string]string{"model": "ss"}))

	got, meta, err := ReadAll(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "ss", meta["model"])
	require.Contains(t, got, "net.0.weight")
	assert.True(t, got["net.0.weight"].Shape().Equal(tensor.Shape{2, 3}))
	assert.Equal(t, w.Data(), got["net.0.weight"].Data())
	assert.Equal(t, b.Data(), got["net.0.bias"].Data())
}

func TestReaderNamesSorted(t *testing.T) {
	var buf bytes.Buffer
	one := tensor.Zeros(tensor.Shape{1})
	require.NoError(t, Write(&buf, map[string]*tensor.Dense{"b": one, "a": one, "c": one}, nil))
	r, err := NewReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, r.Names())

	_, err = r.Tensor("missing")
	assert.ErrorIs(t, err, ErrTensorNotFound)
}

// encode builds a stream from a hand-written header and payload.
func encode(t *testing.T, header map[string]any, payload []byte) []byte {
	t.Helper()
	h, err := json.Marshal(header)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint64(len(h))))
	buf.Write(h)
	buf.Write(payload)
	return buf.Bytes()
}

func TestReaderWidensFloat32(t *testing.T) {
	payload := make([]byte, 8)
	binary.LittleEndian.PutUint32(payload[0:], math.Float32bits(0.5))
	binary.LittleEndian.PutUint32(payload[4:], math.Float32bits(-3))
	stream := encode(t, map[string]any{
		"w": TensorInfo{DType: F32, Shape: []int64{2}, DataOffsets: [2]int64{0, 8}},
	}, payload)

	got, _, err := ReadAll(bytes.NewReader(stream))
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, -3}, got["w"].Data())
}

func TestReaderRejectsMalformedOffsets(t *testing.T) {
	tests := []struct {
		name    string
		header  map[string]any
		payload int
		want    error
	}{
		{
			name: "out of bounds",
			header: map[string]any{
				"w": TensorInfo{DType: F64, Shape: []int64{2}, DataOffsets: [2]int64{0, 16}},
			},
			payload: 8,
			want:    ErrOutOfBounds,
		},
		{
			name: "overlap",
			header: map[string]any{
				"a": TensorInfo{DType: F64, Shape: []int64{2}, DataOffsets: [2]int64{0, 16}},
				"b": TensorInfo{DType: F64, Shape: []int64{2}, DataOffsets: [2]int64{8, 24}},
			},
			payload: 24,
			want:    ErrOffsetOverlap,
		},
		{
			name: "negative",
			header: map[string]any{
				"a": TensorInfo{DType: F64, Shape: []int64{1}, DataOffsets: [2]int64{-8, 0}},
			},
			payload: 8,
			want:    ErrNegativeOffset,
		},
		{
			name: "dtype",
			header: map[string]any{
				"a": TensorInfo{DType: "BF16", Shape: []int64{1}, DataOffsets: [2]int64{0, 2}},
			},
			payload: 2,
			want:    ErrUnsupportedDType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stream := encode(t, tt.header, make([]byte, tt.payload))
			_, err := NewReader(bytes.NewReader(stream))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestReaderHeaderTooLarge(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint64(1<<20)))
	buf.WriteString("{}")
	_, err := NewReader(bytes.NewReader(buf.Bytes()))
	assert.ErrorIs(t, err, ErrHeaderTooLarge)
}
