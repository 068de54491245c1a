package serialization

import (
	"fmt"
	"sort"
)

// Validation limits for resource protection.
const (
	MaxHeaderSize    = 100 * 1024 * 1024 // 100MB - maximum header size
	MaxTensorCount   = 100_000           // Maximum number of tensors in a file
	MaxTensorNameLen = 4096              // Maximum tensor name length
)

// span is the byte range a tensor occupies in the data section.
type span struct {
	name       string
	start, end int64
}

// validateSpans checks for overlapping tensor ranges and out-of-bounds access.
func validateSpans(spans []span, dataSize int64) error {
	if len(spans) > MaxTensorCount {
		return &ValidationError{
			Type:    "too_many_tensors",
			Details: fmt.Sprintf("got %d, max %d", len(spans), MaxTensorCount),
			Err:     ErrTooManyTensors,
		}
	}

	sorted := make([]span, len(spans))
	copy(sorted, spans)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].start < sorted[j].start
	})

	for i, s := range sorted {
		if len(s.name) == 0 || len(s.name) > MaxTensorNameLen {
			return &ValidationError{
				Type:    "invalid_name",
				Tensor:  s.name,
				Details: fmt.Sprintf("name length %d", len(s.name)),
				Err:     ErrInvalidTensorName,
			}
		}
		if s.start < 0 || s.end < s.start {
			return &ValidationError{
				Type:    "negative_offset",
				Tensor:  s.name,
				Details: fmt.Sprintf("range [%d, %d)", s.start, s.end),
				Err:     ErrNegativeOffset,
			}
		}
		if s.end > dataSize {
			return &ValidationError{
				Type:    "out_of_bounds",
				Tensor:  s.name,
				Details: fmt.Sprintf("end %d > data_size %d", s.end, dataSize),
				Err:     ErrOutOfBounds,
			}
		}
		if i < len(sorted)-1 {
			next := sorted[i+1]
			if s.end > next.start {
				return &ValidationError{
					Type:    "offset_overlap",
					Tensor:  s.name,
					Tensor2: next.name,
					Details: fmt.Sprintf("regions [%d-%d] and [%d-%d] overlap", s.start, s.end, next.start, next.end),
					Err:     ErrOffsetOverlap,
				}
			}
		}
	}

	return nil
}
