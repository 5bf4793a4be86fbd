package model

import "time"

// BoundingBox locates a detected face in pixel coordinates. Only overlays use it.
type BoundingBox struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Detection is one face found by the external detector.
type Detection struct {
	Embedding []float64   `json:"embedding"`
	Box       BoundingBox `json:"box"`
}

// Frame carries every detection extracted from one camera image.
type Frame struct {
	CameraID   string      `json:"camera_id"`
	CapturedAt time.Time   `json:"captured_at"`
	Detections []Detection `json:"detections"`
}

// ImageFrame references a raw image waiting for face extraction.
type ImageFrame struct {
	CameraID   string    `json:"camera_id"`
	CapturedAt time.Time `json:"captured_at"`
	ImageURL   string    `json:"image_url"`
}
