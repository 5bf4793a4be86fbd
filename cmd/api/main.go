package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"faceattend/internal/api"
	"faceattend/internal/attendance"
	"faceattend/internal/auth"
	"faceattend/internal/cloudinary"
	"faceattend/internal/config"
	"faceattend/internal/detector"
	"faceattend/internal/embedding"
	"faceattend/internal/faceclient"
	"faceattend/internal/logger"
	"faceattend/internal/match"
	"faceattend/internal/model"
	"faceattend/internal/queue"
	"faceattend/internal/recognizer"
	"faceattend/internal/roster"
	"faceattend/internal/session"
	"faceattend/internal/store"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("api failed")
	}
}

func run(cfg config.App) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := store.NewDB(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	loc, err := cfg.Location()
	if err != nil {
		log.Warn().Err(err).Msg("using host timezone")
	}
	metric, err := embedding.ParseMetric(cfg.MatchMetric)
	if err != nil {
		return err
	}

	refs := embedding.NewStore(metric, logger.For("embedding"))
	rosterRepo := roster.NewRepository(db.Client)
	rosterSvc := roster.NewService(rosterRepo, refs, cfg.MinReferenceEmbeddings, logger.For("roster"))
	stats, err := rosterSvc.Reload(ctx)
	if err != nil {
		return err
	}
	log.Info().Int("students", stats.Students).Int("references", stats.References).Int("skipped", stats.Skipped).
		Msg("embedding store loaded")

	ledger := attendance.NewLedger(attendance.NewSQLRepository(db.Client), refs.Name, loc, logger.For("ledger"))
	sessions := session.NewManager(ledger, rosterSvc, rosterRepo, logger.For("session"),
		session.WithRecentLimit(cfg.StatusRecentLimit))

	var (
		redis      *store.Redis
		detections queue.Queue
		images     queue.Queue
		workers    errgroup.Group
	)
	if cfg.QueueBackend == "memory" {
		mem := queue.NewInMemory(64)
		imgs := queue.NewInMemory(64)
		detections, images = mem, imgs

		face := faceclient.New(cfg.FaceServiceURL, cfg.FaceSkip)
		face.MinScore = cfg.FaceMinScore
		face.MinQuality = cfg.FaceMinQuality
		face.FrontalOnly = cfg.FaceFrontal
		if err := face.Health(ctx); err != nil {
			log.Warn().Err(err).Msg("face service not available; image frames will be skipped")
		}
		bridge := detector.NewBridge(face, func(ctx context.Context, f model.Frame) error {
			return queue.PublishFrame(ctx, mem, f)
		}, logger.For("detector"))
		imageCh, err := queue.Images(ctx, imgs, logger.For("detector"))
		if err != nil {
			return err
		}
		workers.Go(func() error {
			bridge.Run(ctx, imageCh)
			return nil
		})
	} else {
		redis = store.NewRedis(cfg.Redis())
		defer redis.Close()
		detections = queue.NewRedisQueue(redis.Client, cfg.DetectionsQueue, logger.For("queue"))
		images = queue.NewRedisQueue(redis.Client, cfg.FramesQueue, logger.For("queue"))
	}

	var snapshots api.Uploader
	if cfg.SnapshotsConfigured() {
		snapshots = cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		log.Info().Str("cloud", cfg.CloudinaryCloudName).Msg("snapshot uploads enabled")
	}

	engine := match.NewEngine(refs, cfg.MatchThreshold)
	log.Info().Str("metric", string(refs.Metric())).Float64("threshold", engine.Threshold()).Msg("matcher ready")
	frames, err := queue.Frames(ctx, detections, logger.For("recognizer"))
	if err != nil {
		return err
	}
	loop := recognizer.NewLoop(engine, sessions, logger.For("recognizer"), nil)
	workers.Go(func() error {
		loop.Run(ctx, frames)
		return nil
	})

	router := api.NewRouter(api.Deps{
		DB:         db,
		Redis:      redis,
		Sessions:   sessions,
		Roster:     rosterSvc,
		Ledger:     ledger,
		Cameras:    auth.NewCameras(db.Client),
		Detections: detections,
		Images:     images,
		Snapshots:  snapshots,
		Auth: api.AuthConfig{
			Issuer:     cfg.JWTIssuer,
			SigningKey: cfg.JWTSigningKey,
			AccessTTL:  cfg.AccessTTL,
			RefreshTTL: cfg.RefreshTTL,
		},
		RateLimitPerMin: cfg.RateLimitPerMin,
		Log:             logger.For("api"),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced shutdown")
	}

	cancel()
	_ = workers.Wait()

	// A running session is closed so its day gets its absentees.
	if sum, err := sessions.Stop(shutdownCtx); err == nil {
		log.Info().Str("day", sum.Day).Int("marked_absent", sum.Marked).Msg("closed running session")
	} else if !errors.Is(err, session.ErrNoSession) {
		log.Error().Err(err).Msg("closing running session")
	}

	log.Info().Msg("server exited")
	return nil
}
