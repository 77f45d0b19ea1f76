package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"go.uber.org/zap"

	"github.com/kelpmedia/kelp/internal/config"
	"github.com/kelpmedia/kelp/internal/extractor/ytdlp"
	"github.com/kelpmedia/kelp/internal/ingest"
	"github.com/kelpmedia/kelp/internal/library"
	"github.com/kelpmedia/kelp/internal/queue"
	"github.com/kelpmedia/kelp/pkg/events"
	"github.com/kelpmedia/kelp/pkg/logger"
	"github.com/kelpmedia/kelp/pkg/models"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to create logger: %v", err))
	}
	defer log.Sync()

	log.Info("starting kelpd",
		zap.String("environment", cfg.Environment),
		zap.String("home", cfg.Home),
		zap.Int("max_concurrent", cfg.MaxConcurrent),
	)

	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatal("failed to create directories", zap.Error(err))
	}

	store, err := library.Open(cfg.DBPath, log)
	if err != nil {
		log.Fatal("failed to open library", zap.Error(err))
	}
	defer store.Close()

	extractor := ytdlp.New(log)
	pipeline := ingest.New(store, extractor, cfg, log)
	bus := events.NewInMemoryBus(log)

	// Log lifecycle transitions for every queued item.
	logEvent := func(ctx context.Context, event events.Event) error {
		e, ok := event.(queue.ItemEvent)
		if !ok {
			return nil
		}
		log.Info("queue event",
			zap.String("event", e.Type),
			zap.String("item_id", e.Item.ID.String()),
			zap.String("url", e.Item.URL),
			zap.String("status", string(e.Item.Status)))
		return nil
	}
	for _, eventType := range []string{
		queue.EventItemQueued,
		queue.EventItemStarted,
		queue.EventItemCompleted,
		queue.EventItemFailed,
		queue.EventItemCancelled,
	} {
		bus.Subscribe(eventType, logEvent)
	}

	q := queue.New(pipeline, cfg.MaxConcurrent, bus, log)
	q.Start()

	janitor, err := queue.NewJanitor(q, cfg.JanitorSpec, cfg.StaleAfter, log)
	if err != nil {
		log.Fatal("failed to schedule janitor", zap.Error(err))
	}
	janitor.Start()

	// Track completions so a batch invocation can exit when done.
	done := make(chan struct{}, 1)
	remaining := len(os.Args[1:])
	if remaining > 0 {
		var pending = int64(remaining)
		terminal := func(ctx context.Context, event events.Event) error {
			if atomic.AddInt64(&pending, -1) == 0 {
				select {
				case done <- struct{}{}:
				default:
				}
			}
			return nil
		}
		bus.Subscribe(queue.EventItemCompleted, terminal)
		bus.Subscribe(queue.EventItemFailed, terminal)
		bus.Subscribe(queue.EventItemCancelled, terminal)

		for _, item := range q.EnqueueBatch(os.Args[1:]) {
			log.Info("enqueued",
				zap.String("item_id", item.ID.String()),
				zap.String("url", item.URL),
				zap.String("platform", item.Platform))
		}
	}

	// Wait for interrupt, or for all command-line URLs to finish.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	if remaining > 0 {
		select {
		case <-quit:
			log.Info("shutdown signal received")
		case <-done:
			log.Info("all acquisitions finished",
				zap.Int("complete", q.CompleteCount()),
				zap.Int("failed", q.FailedCount()))
		}
	} else {
		<-quit
		log.Info("shutdown signal received")
	}

	janitor.Stop()
	q.Stop()

	for _, item := range q.Items() {
		if item.Status == models.QueueStatusFailed {
			log.Warn("acquisition failed",
				zap.String("url", item.URL),
				zap.String("error", item.ErrorMessage))
		}
	}

	log.Info("kelpd stopped")
}
