package detector

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"faceattend/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stubExtractor map[string][]model.Detection

func (s stubExtractor) EmbedFaces(_ context.Context, url string) ([]model.Detection, error) {
	dets, ok := s[url]
	if !ok {
		return nil, errors.New("unreachable image")
	}
	return dets, nil
}

func TestBridgeRun(t *testing.T) {
	ext := stubExtractor{
		"one":  {{Embedding: []float64{1, 0}}},
		"none": {},
	}
	var published []model.Frame
	b := NewBridge(ext, func(_ context.Context, f model.Frame) error {
		published = append(published, f)
		return nil
	}, zerolog.Nop())

	images := make(chan model.ImageFrame, 3)
	images <- model.ImageFrame{CameraID: "c", ImageURL: "missing"}
	images <- model.ImageFrame{CameraID: "c", ImageURL: "none"}
	images <- model.ImageFrame{CameraID: "c", ImageURL: "one"}
	close(images)
	b.Run(context.Background(), images)

	require.Len(t, published, 1)
	assert.Equal(t, "c", published[0].CameraID)
	assert.Len(t, published[0].Detections, 1)
}

func TestBridgeHandlePublishError(t *testing.T) {
	b := NewBridge(stubExtractor{"one": {{Embedding: []float64{1}}}}, func(context.Context, model.Frame) error {
		return errors.New("queue full")
	}, zerolog.Nop())
	assert.EqualError(t, b.Handle(context.Background(), model.ImageFrame{ImageURL: "one"}), "queue full")
	assert.Error(t, b.Handle(context.Background(), model.ImageFrame{ImageURL: "nope"}))
}
