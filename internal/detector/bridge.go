package detector

import (
	"context"

	"github.com/rs/zerolog"

	"faceattend/internal/metrics"
	"faceattend/internal/model"
)

// Extractor finds faces in an image.
type Extractor interface {
	EmbedFaces(ctx context.Context, imageURL string) ([]model.Detection, error)
}

// Publisher forwards extracted frames to the recognition loop.
type Publisher func(ctx context.Context, f model.Frame) error

// Bridge turns camera images into frames of detections.
type Bridge struct {
	extractor Extractor
	publish   Publisher
	log       zerolog.Logger
}

func NewBridge(extractor Extractor, publish Publisher, log zerolog.Logger) *Bridge {
	return &Bridge{extractor: extractor, publish: publish, log: log}
}

// Run handles images until ctx is cancelled or images is closed.
func (b *Bridge) Run(ctx context.Context, images <-chan model.ImageFrame) {
	for {
		select {
		case <-ctx.Done():
			return
		case img, ok := <-images:
			if !ok {
				return
			}
			_ = b.Handle(ctx, img)
		}
	}
}

// Handle extracts faces from one image and publishes the frame. A failed
// extraction skips the image; images without faces publish nothing.
func (b *Bridge) Handle(ctx context.Context, img model.ImageFrame) error {
	dets, err := b.extractor.EmbedFaces(ctx, img.ImageURL)
	if err != nil {
		metrics.FacesProcessed.WithLabelValues("extract_failed").Inc()
		b.log.Warn().Err(err).Str("camera_id", img.CameraID).Msg("face extraction failed; skipping frame")
		return err
	}
	if len(dets) == 0 {
		return nil
	}
	f := model.Frame{CameraID: img.CameraID, CapturedAt: img.CapturedAt, Detections: dets}
	if err := b.publish(ctx, f); err != nil {
		b.log.Error().Err(err).Str("camera_id", img.CameraID).Msg("publish frame failed")
		return err
	}
	return nil
}
