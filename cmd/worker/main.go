package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"anglestudio/internal/domain"
	"anglestudio/internal/infra"
	"anglestudio/internal/pipeline"
	"anglestudio/internal/providers/genai"
	"anglestudio/internal/status"
	"anglestudio/internal/storage"
)

type jobWorker struct {
	jobs         *status.Store
	store        *storage.FileStore
	orchestrator *pipeline.Orchestrator
	logger       zerolog.Logger
	pollInterval time.Duration
	slots        *semaphore.Weighted
}

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)

	fileStore, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure storage")
	}

	client, err := genai.NewClient(genai.Options{
		APIKey:         cfg.GeminiAPIKey,
		BaseURL:        cfg.GeminiBaseURL,
		TextModel:      cfg.GeminiTextModel,
		ImageModel:     cfg.GeminiImageModel,
		HTTPClient:     &http.Client{Timeout: cfg.PipelineCallTimeout},
		Logger:         &logger,
		CallsPerMinute: cfg.GeminiCallsPerMin,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure gemini client")
	}

	orchestrator := pipeline.NewOrchestrator(
		pipeline.NewGeminiOptimizer(client),
		pipeline.NewGeminiImageGenerator(client),
		pipeline.NewGeminiSpecExtractor(client, logger),
		cfg.PipelineCallTimeout,
		logger,
	)

	worker := &jobWorker{
		jobs:         status.NewStore(runner, cfg.StatusCacheTTL),
		store:        fileStore,
		orchestrator: orchestrator,
		logger:       logger,
		pollInterval: cfg.JobPollInterval,
		slots:        semaphore.NewWeighted(int64(cfg.WorkerConcurrency)),
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}

// Run claims queued jobs and processes up to the configured number of them
// concurrently. Each job runs its pipeline sequentially; the semaphore bounds
// how many jobs are in flight at once.
func (w *jobWorker) Run(ctx context.Context) error {
	w.logger.Info().Msg("worker: started")
	for {
		if err := w.slots.Acquire(ctx, 1); err != nil {
			return err
		}

		job, err := w.jobs.Claim(ctx)
		if err != nil {
			w.slots.Release(1)
			w.logger.Error().Err(err).Msg("worker: failed to claim job")
			if err := sleepCtx(ctx, w.pollInterval); err != nil {
				return err
			}
			continue
		}
		if job == nil {
			w.slots.Release(1)
			if err := sleepCtx(ctx, w.pollInterval); err != nil {
				return err
			}
			continue
		}

		go func(job *domain.DesignJob) {
			defer w.slots.Release(1)
			w.handleJob(ctx, job)
		}(job)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (w *jobWorker) handleJob(ctx context.Context, job *domain.DesignJob) {
	w.logger.Info().Str("job_id", job.ID).Strs("angles", job.Angles).Msg("worker: picked job")

	result, err := w.processJob(ctx, job)
	if err != nil {
		w.logger.Error().Err(err).Str("job_id", job.ID).Msg("worker: job failed")
		if finErr := w.jobs.Finish(ctx, job.ID, domain.DesignJobFailed, "", err.Error()); finErr != nil {
			w.logger.Error().Err(finErr).Str("job_id", job.ID).Msg("worker: record failure failed")
		}
		return
	}

	finalStatus := domain.DesignJobSucceeded
	failed := 0
	for _, r := range result.Angles {
		if r.Failed() {
			failed++
		}
	}
	if failed > 0 {
		finalStatus = domain.DesignJobPartial
	}
	if finErr := w.jobs.Finish(ctx, job.ID, finalStatus, result.DebugNotes, ""); finErr != nil {
		w.logger.Error().Err(finErr).Str("job_id", job.ID).Msg("worker: record completion failed")
		return
	}
	w.logger.Info().
		Str("job_id", job.ID).
		Str("status", string(finalStatus)).
		Int("angles", len(result.Angles)).
		Int("failed", failed).
		Msg("worker: job done")
}

func (w *jobWorker) processJob(ctx context.Context, job *domain.DesignJob) (*pipeline.Result, error) {
	var payload domain.JobPayload
	if err := json.Unmarshal(job.InputsJSON, &payload); err != nil {
		return nil, fmt.Errorf("decode job payload: %w", err)
	}

	images, err := w.loadUploads(ctx, payload.Uploads)
	if err != nil {
		return nil, err
	}

	result, err := w.orchestrator.Run(ctx, pipeline.Request{
		Inputs: payload.Inputs,
		Scene:  payload.Scene,
		Images: images,
		Angles: job.Angles,
	})
	if err != nil {
		return nil, err
	}

	for i, angle := range result.Angles {
		if err := w.persistAngle(ctx, job.ID, angle, i); err != nil {
			w.logger.Error().Err(err).Str("job_id", job.ID).Str("angle", angle.Angle).Msg("worker: persist angle failed")
		}
	}
	return result, nil
}

// loadUploads reads the job's input images back from storage in their
// declared order. A missing upload fails the job: generating against half the
// declared inputs would silently violate the design contract.
func (w *jobWorker) loadUploads(ctx context.Context, refs []domain.UploadRef) ([]domain.InputImage, error) {
	images := make([]domain.InputImage, 0, len(refs))
	for _, ref := range refs {
		data, err := w.store.Read(ctx, ref.Key)
		if err != nil {
			return nil, fmt.Errorf("load %s upload: %w", ref.Role, err)
		}
		images = append(images, domain.InputImage{Data: data, MIME: ref.MIME, Role: ref.Role})
	}
	return images, nil
}

func (w *jobWorker) persistAngle(ctx context.Context, jobID string, angle domain.AngleResult, position int) error {
	asset := domain.AngleAsset{
		JobID:      jobID,
		Angle:      angle.Angle,
		FailReason: angle.FailureReason,
	}
	if !angle.Failed() {
		key, err := w.store.Write(ctx, storage.AngleKey(jobID, angle.Angle, extensionFor(angle.MIME)), angle.Image)
		if err != nil {
			return fmt.Errorf("write angle image: %w", err)
		}
		asset.StorageKey = key
		asset.MIME = angle.MIME
		asset.SizeBytes = int64(len(angle.Image))
	}
	_, err := w.jobs.InsertAsset(ctx, asset, position)
	return err
}

func extensionFor(mime string) string {
	switch mime {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
