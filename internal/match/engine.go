package match

import (
	"faceattend/internal/embedding"
	"faceattend/internal/model"
)

// DefaultThreshold is the cosine-distance cut-off; smaller is stricter.
const DefaultThreshold = 0.4

// UnknownName labels faces that matched nobody.
const UnknownName = "Unknown"

// Searcher finds the closest reference embedding and its owner's name in one
// consistent view of the references.
type Searcher interface {
	Lookup(v embedding.Vector) (studentID, name string, distance float64, ok bool)
}

// Decision is the outcome for one detected face.
type Decision struct {
	StudentID  string  `json:"student_id,omitempty"`
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
	Distance   float64 `json:"-"`
	Matched    bool    `json:"matched"`
}

// FaceDecision pairs a decision with the face it was made for.
type FaceDecision struct {
	Decision
	Box model.BoundingBox `json:"box"`
	Err error             `json:"-"`
}

// Engine turns embeddings into identities using a fixed threshold.
type Engine struct {
	store     Searcher
	threshold float64
}

// NewEngine returns an engine; a non-positive threshold selects DefaultThreshold.
func NewEngine(store Searcher, threshold float64) *Engine {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Engine{store: store, threshold: threshold}
}

func (e *Engine) Threshold() float64 { return e.threshold }

// Identify accepts the nearest student only when its distance is strictly below
// the threshold. Equal distances resolve to the first student in store order.
// Confidence is 1 - distance, clamped to [0, 1].
func (e *Engine) Identify(v embedding.Vector) Decision {
	id, name, dist, ok := e.store.Lookup(v)
	if !ok || !(dist < e.threshold) {
		return Decision{Name: UnknownName}
	}
	conf := 1 - dist
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}
	return Decision{
		StudentID:  id,
		Name:       name,
		Confidence: conf,
		Distance:   dist,
		Matched:    true,
	}
}

// DecideFrame decides every detection of a frame independently.
// Detections whose embedding is unusable get an error and an Unknown decision.
func (e *Engine) DecideFrame(f model.Frame) []FaceDecision {
	out := make([]FaceDecision, 0, len(f.Detections))
	for _, d := range f.Detections {
		v := embedding.Vector(d.Embedding)
		if err := v.Check(); err != nil {
			out = append(out, FaceDecision{Decision: Decision{Name: UnknownName}, Box: d.Box, Err: err})
			continue
		}
		out = append(out, FaceDecision{Decision: e.Identify(v), Box: d.Box})
	}
	return out
}
