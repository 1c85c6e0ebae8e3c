package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"signalguard/internal/bootstrap"
	"signalguard/internal/config"
	"signalguard/internal/engine"
	"signalguard/internal/enrichment"
	"signalguard/internal/logging"
	"signalguard/internal/models"
)

// main runs the background-enrichment consumer: it pops
// EnrichmentJobs off the FIFO queue and re-runs the full probe set,
// overwriting the fast-path's partial result. The BLPOP consumer loop
// shape is carried over from a bare queue-client pattern, generalized
// behind enrichment.Queue + engine.Engine instead of a direct Postgres
// transaction per job.
func main() {
	settings, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}

	logger, err := logging.New(settings.Environment)
	if err != nil {
		log.Fatalf("❌ Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("🚀 starting signalguard enrichment worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.Build(ctx, settings, logger)
	if err != nil {
		log.Fatalf("❌ Failed to build application: %v", err)
	}
	logger.Info("👷 worker wired, waiting for jobs")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	done := make(chan struct{})
	go func() {
		defer close(done)
		runLoop(ctx, app.Queue, app.Engine, logger)
	}()

	<-quit
	logger.Info("⏳ shutdown signal received, finishing in-flight job")
	cancel()
	<-done
	logger.Info("✅ worker shut down cleanly")
}

func runLoop(ctx context.Context, queue *enrichment.Queue, eng *engine.Engine, logger *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, ok, err := queue.Dequeue(ctx, 5*time.Second)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("❌ dequeue error", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		if !ok {
			continue
		}

		jobCtx, jobCancel := context.WithTimeout(ctx, 60*time.Second)
		envelope, err := eng.Analyse(jobCtx, job.Input, models.ModeFull)
		jobCancel()

		if err != nil {
			logger.Warn("❌ enrichment job failed", zap.String("job_id", job.JobID), zap.Error(err))
			_ = queue.FailResult(ctx, job.JobID, job.PartialEnvelope)
			continue
		}

		if err := queue.CompleteResult(ctx, job.JobID, envelope); err != nil {
			logger.Warn("❌ failed to persist enrichment result", zap.String("job_id", job.JobID), zap.Error(err))
			continue
		}
		logger.Info("✅ enrichment complete", zap.String("job_id", job.JobID), zap.Int("score", envelope.RiskSummary.Score))
	}
}
