// Package serialization reads and writes parameter tensors in the
// SafeTensors format, the interchange format for persisted model weights.
//
// Format:
//
//	[8 bytes: header_size (uint64 LE)]
//	[header_size bytes: JSON header]
//	[tensor data: raw little-endian bytes]
//
// Tensors are written as F64 in alphabetical order by name. The reader
// accepts F64 and F32 (weights exported from float32 frameworks) and
// widens everything to float64.
package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/tensor"
)

// DType represents supported SafeTensors data types.
type DType string

// Supported dtypes.
const (
	F32 DType = "F32"
	F64 DType = "F64"
)

// Size returns the element size in bytes.
func (d DType) Size() int {
	switch d {
	case F32:
		return 4
	case F64:
		return 8
	default:
		return 0
	}
}

// TensorInfo describes a tensor in the header.
type TensorInfo struct {
	DType       DType    `json:"dtype"`
	Shape       []int64  `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"` // [start, end]
}

const metadataKey = "__metadata__"

// Write writes tensors and optional metadata to w.
func Write(w io.Writer, tensors map[string]*tensor.Dense, metadata map[string]string) error {
	names := make([]string, 0, len(tensors))
	for name := range tensors {
		names = append(names, name)
	}
	// Sort tensor names alphabetically (SafeTensors requirement)
	sort.Strings(names)

	header := make(map[string]any, len(names)+1)
	if len(metadata) > 0 {
		header[metadataKey] = metadata
	}

	var offset int64
	for _, name := range names {
		t := tensors[name]
		size := int64(t.Len() * F64.Size())
		shape := make([]int64, len(t.Shape()))
		for i, dim := range t.Shape() {
			shape[i] = int64(dim)
		}
		header[name] = TensorInfo{
			DType:       F64,
			Shape:       shape,
			DataOffsets: [2]int64{offset, offset + size},
		}
		offset += size
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return fmt.Errorf("failed to write header size: %w", err)
	}
	if _, err := w.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, name := range names {
		data := tensors[name].Data()
		buf := make([]byte, 8*len(data))
		for i, v := range data {
			binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(v))
		}
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("failed to write tensor %s: %w", name, err)
		}
	}

	return nil
}

// Reader reads tensors from a SafeTensors stream.
type Reader struct {
	r          io.ReadSeeker
	tensors    map[string]TensorInfo
	metadata   map[string]string
	dataOffset int64 // Offset where tensor data starts
}

// NewReader parses and validates the header.
func NewReader(r io.ReadSeeker) (*Reader, error) {
	end, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to determine stream size: %w", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind stream: %w", err)
	}

	var headerSize uint64
	if err := binary.Read(r, binary.LittleEndian, &headerSize); err != nil {
		return nil, fmt.Errorf("failed to read header size: %w", err)
	}
	if headerSize > MaxHeaderSize || int64(headerSize) > end-8 { //nolint:gosec // G115: bounded by MaxHeaderSize.
		return nil, &ValidationError{
			Type:    "header_too_large",
			Details: fmt.Sprintf("header size %d, stream size %d", headerSize, end),
			Err:     ErrHeaderTooLarge,
		}
	}

	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(headerBytes, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}

	reader := &Reader{
		r:          r,
		tensors:    make(map[string]TensorInfo, len(raw)),
		dataOffset: int64(8 + headerSize), //nolint:gosec // G115: bounded by MaxHeaderSize.
	}
	spans := make([]span, 0, len(raw))
	for key, value := range raw {
		if key == metadataKey {
			if err := json.Unmarshal(value, &reader.metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
			continue
		}
		var info TensorInfo
		if err := json.Unmarshal(value, &info); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tensor %s: %w", key, err)
		}
		if info.DType.Size() == 0 {
			return nil, fmt.Errorf("tensor %s: %w: %s", key, ErrUnsupportedDType, info.DType)
		}
		reader.tensors[key] = info
		spans = append(spans, span{name: key, start: info.DataOffsets[0], end: info.DataOffsets[1]})
	}

	if err := validateSpans(spans, end-reader.dataOffset); err != nil {
		return nil, err
	}
	return reader, nil
}

// Metadata returns the metadata map from the header.
func (r *Reader) Metadata() map[string]string {
	return r.metadata
}

// Names returns the tensor names in alphabetical order.
func (r *Reader) Names() []string {
	names := make([]string, 0, len(r.tensors))
	for name := range r.tensors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tensor loads one tensor, widening F32 to float64.
func (r *Reader) Tensor(name string) (*tensor.Dense, error) {
	info, ok := r.tensors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTensorNotFound, name)
	}

	shape := make(tensor.Shape, len(info.Shape))
	for i, dim := range info.Shape {
		shape[i] = int(dim)
	}
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape for tensor %s: %w", name, err)
	}
	n := shape.NumElements()
	size := info.DataOffsets[1] - info.DataOffsets[0]
	if size != int64(n*info.DType.Size()) {
		return nil, &ValidationError{
			Type:    "out_of_bounds",
			Tensor:  name,
			Details: fmt.Sprintf("shape %v needs %d bytes, header says %d", shape, n*info.DType.Size(), size),
			Err:     ErrOutOfBounds,
		}
	}

	if _, err := r.r.Seek(r.dataOffset+info.DataOffsets[0], io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek to tensor data: %w", err)
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return nil, fmt.Errorf("failed to read tensor data: %w", err)
	}

	data := make([]float64, n)
	switch info.DType {
	case F64:
		for i := range data {
			data[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[8*i:]))
		}
	case F32:
		for i := range data {
			data[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:])))
		}
	}
	return tensor.FromSlice(data, shape)
}

// ReadAll loads every tensor and the metadata.
func ReadAll(r io.ReadSeeker) (map[string]*tensor.Dense, map[string]string, error) {
	reader, err := NewReader(r)
	if err != nil {
		return nil, nil, err
	}
	out := make(map[string]*tensor.Dense, len(reader.tensors))
	for _, name := range reader.Names() {
		t, err := reader.Tensor(name)
		if err != nil {
			return nil, nil, err
		}
		out[name] = t
	}
	return out, reader.Metadata(), nil
}
