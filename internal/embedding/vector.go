package embedding

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// Vector is a face embedding produced by the external model.
type Vector []float64

var ErrMalformed = errors.New("malformed embedding")

// ParseVectors decodes a JSON array of embeddings as stored with a student.
// Every vector must be non-empty, finite and of the same length.
func ParseVectors(raw []byte) ([]Vector, error) {
	var vs []Vector
	if err := json.Unmarshal(raw, &vs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(vs) == 0 {
		return nil, fmt.Errorf("%w: no reference embeddings", ErrMalformed)
	}
	if err := CheckVectors(vs); err != nil {
		return nil, err
	}
	return vs, nil
}

// CheckVectors validates a set of embeddings belonging to one student.
func CheckVectors(vs []Vector) error {
	dim := -1
	for i, v := range vs {
		if err := v.Check(); err != nil {
			return fmt.Errorf("embedding %d: %w", i, err)
		}
		if dim == -1 {
			dim = len(v)
		} else if len(v) != dim {
			return fmt.Errorf("%w: embedding %d has %d dims, expected %d", ErrMalformed, i, len(v), dim)
		}
	}
	return nil
}

// Check rejects empty vectors and non-finite components.
func (v Vector) Check() error {
	if len(v) == 0 {
		return fmt.Errorf("%w: empty vector", ErrMalformed)
	}
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("%w: component %d is not finite", ErrMalformed, i)
		}
	}
	return nil
}

// EncodeVectors is the inverse of ParseVectors.
func EncodeVectors(vs []Vector) ([]byte, error) {
	return json.Marshal(vs)
}
