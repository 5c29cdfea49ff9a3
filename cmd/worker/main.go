package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"golang.org/x/sync/errgroup"

	"compliance-backend/internal/bootstrap"
	"compliance-backend/internal/reminders"
	"compliance-backend/internal/shared/config"
	"compliance-backend/internal/shared/storage/db"
	"compliance-backend/internal/shared/telemetry"
)

const (
	defaultVisibilitySeconds  = 300
	defaultWorkerConcurrency  = 4
	defaultShutdownTimeoutSec = 30
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.BuildWithOptions(cfg, db.DefaultWorkerOptions())
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}
	defer app.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		runSweeps(gctx, app.Sweeper, cfg.ReminderInterval)
		return nil
	})

	queueURL := strings.TrimSpace(cfg.ReminderQueueURL)
	if queueURL != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			log.Fatalf("load aws config: %v", err)
		}
		c := &consumer{
			client:          sqs.NewFromConfig(awsCfg),
			queueURL:        queueURL,
			proc:            app.Applier,
			concurrency:     envInt("WORKER_CONCURRENCY", defaultWorkerConcurrency),
			visibility:      envInt("SQS_VISIBILITY_TIMEOUT_SECONDS", defaultVisibilitySeconds),
			shutdownTimeout: time.Duration(envInt("SHUTDOWN_TIMEOUT_SECONDS", defaultShutdownTimeoutSec)) * time.Second,
		}
		g.Go(func() error {
			c.run(gctx)
			return nil
		})
	} else {
		log.Printf("REMINDER_QUEUE_URL not set; reminders are applied in-process")
	}

	log.Printf("worker started interval=%s queue=%q", cfg.ReminderInterval, queueURL)
	_ = g.Wait()
	log.Printf("worker stopped")
}

type sweeper interface {
	Sweep(ctx context.Context) (reminders.Report, error)
}

// runSweeps sweeps once at start and then on every tick until ctx ends.
func runSweeps(ctx context.Context, s sweeper, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		sweepOnce(ctx, s)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func sweepOnce(ctx context.Context, s sweeper) {
	start := time.Now()
	report, err := s.Sweep(ctx)
	fields := map[string]any{
		"checked":     report.Checked,
		"sent":        report.Sent,
		"skipped":     report.Skipped,
		"failed":      report.Failed,
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if err != nil {
		fields["error"] = err.Error()
		telemetry.Error("worker.sweep.failed", fields)
		return
	}
	telemetry.Info("worker.sweep.completed", fields)
}

func envInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return val
}
