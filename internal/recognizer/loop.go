package recognizer

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"faceattend/internal/attendance"
	"faceattend/internal/match"
	"faceattend/internal/metrics"
	"faceattend/internal/model"
	"faceattend/internal/session"
)

// Recorder writes recognized students into the active session.
type Recorder interface {
	Record(ctx context.Context, studentID string, confidence float64) (attendance.Outcome, error)
}

// Loop is the frame-processing loop: one frame in, one decision per face out.
type Loop struct {
	engine   *match.Engine
	recorder Recorder
	log      zerolog.Logger
	onFrame  func(model.Frame, []match.FaceDecision)
}

// NewLoop wires the match engine to the session recorder. onFrame, if not nil,
// receives every frame's decisions (overlay rendering, live previews).
func NewLoop(engine *match.Engine, recorder Recorder, log zerolog.Logger, onFrame func(model.Frame, []match.FaceDecision)) *Loop {
	return &Loop{engine: engine, recorder: recorder, log: log, onFrame: onFrame}
}

// Run processes frames until ctx is cancelled or frames is closed.
func (l *Loop) Run(ctx context.Context, frames <-chan model.Frame) {
	l.log.Info().Msg("frame loop started")
	defer l.log.Info().Msg("frame loop stopped")
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-frames:
			if !ok {
				return
			}
			l.Process(ctx, f)
		}
	}
}

// Process decides every face of f and records the matches. Failures are logged
// and counted; they never stop the loop.
func (l *Loop) Process(ctx context.Context, f model.Frame) []match.FaceDecision {
	start := time.Now()
	defer func() { metrics.FrameDuration.Observe(time.Since(start).Seconds()) }()

	decisions := l.engine.DecideFrame(f)
	for _, d := range decisions {
		switch {
		case d.Err != nil:
			metrics.FacesProcessed.WithLabelValues("skipped").Inc()
			l.log.Debug().Err(d.Err).Str("camera_id", f.CameraID).Msg("skipping unusable detection")
		case !d.Matched:
			metrics.FacesProcessed.WithLabelValues("unknown").Inc()
		default:
			metrics.FacesProcessed.WithLabelValues("matched").Inc()
			l.record(ctx, d.Decision)
		}
	}
	if l.onFrame != nil {
		l.onFrame(f, decisions)
	}
	return decisions
}

func (l *Loop) record(ctx context.Context, d match.Decision) {
	out, err := l.recorder.Record(ctx, d.StudentID, d.Confidence)
	switch {
	case errors.Is(err, session.ErrNoSession), errors.Is(err, session.ErrSessionExpired):
		metrics.LedgerWrites.WithLabelValues("ignored").Inc()
	case err != nil:
		metrics.LedgerWrites.WithLabelValues("error").Inc()
		l.log.Error().Err(err).Str("student_id", d.StudentID).Msg("ledger write failed")
	case out.Created:
		metrics.LedgerWrites.WithLabelValues("created").Inc()
	default:
		metrics.LedgerWrites.WithLabelValues("existing").Inc()
	}
}
