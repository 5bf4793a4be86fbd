package embedding

import (
	"fmt"
	"math"
	"strings"
)

// Metric selects how two embeddings are compared. Smaller distances mean closer faces.
type Metric string

const (
	Cosine    Metric = "cosine"
	Euclidean Metric = "euclidean"
)

// ParseMetric maps a config value to a Metric. Empty means Cosine.
func ParseMetric(s string) (Metric, error) {
	switch Metric(strings.ToLower(strings.TrimSpace(s))) {
	case "", Cosine:
		return Cosine, nil
	case Euclidean:
		return Euclidean, nil
	}
	return "", fmt.Errorf("unknown distance metric %q", s)
}

// Distance compares a and b with the metric.
func (m Metric) Distance(a, b Vector) float64 {
	if m == Euclidean {
		return EuclideanDistance(a, b)
	}
	return CosineDistance(a, b)
}

// CosineDistance computes 1 - cosine similarity.
// Returns a value between 0 (identical) and 2 (opposite).
// Mismatched lengths and zero vectors get the maximum distance.
func CosineDistance(a, b Vector) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 2.0
	}

	similarity := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp to [-1, 1] to absorb floating point error.
	if similarity > 1 {
		similarity = 1
	}
	if similarity < -1 {
		similarity = -1
	}
	return 1 - similarity
}

// EuclideanDistance is the L2 norm of a-b. Mismatched lengths are infinitely far apart.
func EuclideanDistance(a, b Vector) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
