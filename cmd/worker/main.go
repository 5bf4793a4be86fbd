package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"faceattend/internal/config"
	"faceattend/internal/detector"
	"faceattend/internal/faceclient"
	"faceattend/internal/logger"
	"faceattend/internal/model"
	"faceattend/internal/queue"
	"faceattend/internal/store"
)

// Worker consumes camera images, asks the face service for embeddings and
// publishes detection frames for the recognition loop.
func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	if cfg.QueueBackend == "memory" {
		log.Fatal().Err(errors.New("worker needs QUEUE_BACKEND=redis")).Msg("invalid configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("shutdown signal received")
		cancel()
	}()

	redisClient := store.NewRedis(cfg.Redis())
	defer redisClient.Close()
	if !redisClient.Healthy(ctx) {
		log.Warn().Str("addr", redisClient.Addr()).Msg("redis not reachable yet")
	}

	qlog := logger.For("queue")
	images := queue.NewRedisQueue(redisClient.Client, cfg.FramesQueue, qlog)
	detections := queue.NewRedisQueue(redisClient.Client, cfg.DetectionsQueue, qlog)

	face := faceclient.New(cfg.FaceServiceURL, cfg.FaceSkip)
	face.MinScore = cfg.FaceMinScore
	face.MinQuality = cfg.FaceMinQuality
	face.FrontalOnly = cfg.FaceFrontal
	if !cfg.FaceSkip {
		if err := face.Health(ctx); err != nil {
			log.Warn().Err(err).Msg("face service not available; frames will be skipped until it is")
		} else {
			log.Info().Msg("face service connected")
		}
	}

	imageCh, err := queue.Images(ctx, images, logger.For("detector"))
	if err != nil {
		log.Fatal().Err(err).Msg("queue consume init failed")
	}

	bridge := detector.NewBridge(face, func(ctx context.Context, f model.Frame) error {
		return queue.PublishFrame(ctx, detections, f)
	}, logger.For("detector"))

	log.Info().Str("images", cfg.FramesQueue).Str("detections", cfg.DetectionsQueue).Msg("worker started")
	bridge.Run(ctx, imageCh)
	log.Info().Msg("worker stopped")
}
