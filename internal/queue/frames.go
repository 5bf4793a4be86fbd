package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"faceattend/internal/model"
)

// PublishFrame enqueues a frame of detected faces.
func PublishFrame(ctx context.Context, q Queue, f model.Frame) error {
	body, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return q.Publish(ctx, Message{Type: TypeDetections, Body: body})
}

// PublishImage enqueues a camera image awaiting face extraction.
func PublishImage(ctx context.Context, q Queue, f model.ImageFrame) error {
	body, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return q.Publish(ctx, Message{Type: TypeImage, Body: body})
}

// Frames adapts q into a stream of frames. Messages of another type or with
// an undecodable body are logged and dropped.
func Frames(ctx context.Context, q Queue, log zerolog.Logger) (<-chan model.Frame, error) {
	msgs, err := q.Consume(ctx)
	if err != nil {
		return nil, err
	}
	return pipe(ctx, msgs, TypeDetections, log, func(b []byte) (model.Frame, error) {
		var f model.Frame
		err := json.Unmarshal(b, &f)
		return f, err
	}), nil
}

// Images adapts q into a stream of image frames.
func Images(ctx context.Context, q Queue, log zerolog.Logger) (<-chan model.ImageFrame, error) {
	msgs, err := q.Consume(ctx)
	if err != nil {
		return nil, err
	}
	return pipe(ctx, msgs, TypeImage, log, func(b []byte) (model.ImageFrame, error) {
		var f model.ImageFrame
		err := json.Unmarshal(b, &f)
		return f, err
	}), nil
}

func pipe[T any](ctx context.Context, in <-chan Message, typ string, log zerolog.Logger, decode func([]byte) (T, error)) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for msg := range in {
			if msg.Type != typ {
				log.Warn().Str("type", msg.Type).Msg("unexpected message type")
				continue
			}
			v, err := decode(msg.Body)
			if err != nil {
				log.Warn().Err(fmt.Errorf("decode %s: %w", typ, err)).Msg("dropping message")
				continue
			}
			select {
			case out <- v:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
