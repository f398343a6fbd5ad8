// Command worker consumes task events from Kafka and turns them into
// notifications. It is only needed when the API publishes to Kafka.
package main

import (
	"context"
	"log"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/duthaho/trello-clone-sub000/internal/config"
	"github.com/duthaho/trello-clone-sub000/internal/db"
	"github.com/duthaho/trello-clone-sub000/internal/events"
	"github.com/duthaho/trello-clone-sub000/internal/logger"
	"github.com/duthaho/trello-clone-sub000/internal/metrics"
	"github.com/duthaho/trello-clone-sub000/internal/notify"
	"github.com/duthaho/trello-clone-sub000/internal/repo"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	lg, err := logger.New(cfg.App.LogLevel, cfg.App.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	if !cfg.Kafka.Enabled() {
		lg.Fatalw("KAFKA_BROKERS is empty; the API handles events in-process")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.PG, lg)
	if err != nil {
		lg.Fatalw("postgres", "error", err)
	}
	defer pool.Close()

	handler := notify.NewHandler(
		repo.NewPGUserRepo(pool),
		repo.NewPGNotificationRepo(pool),
		notify.NewSMTPMailer(cfg.SMTP, lg),
		lg,
	)
	policy := notify.DefaultRetryPolicy(cfg.Worker.MaxRetries)

	lg.Infow("worker started", "topic", cfg.Kafka.Topic, "group", cfg.Kafka.GroupID, "consumers", cfg.Worker.Concurrency)

	var wg sync.WaitGroup
	for i := 0; i < cfg.Worker.Concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			consume(ctx, cfg.Kafka, lg.With("consumer", id), handler, policy)
		}(i)
	}
	wg.Wait()
	lg.Infow("worker stopped")
}

// consume runs one group member until ctx ends. A fetch error restarts the
// reader after a pause instead of killing the process.
func consume(ctx context.Context, cfg config.KafkaConfig, lg *zap.SugaredLogger, h *notify.Handler, policy notify.RetryPolicy) {
	for ctx.Err() == nil {
		c := events.NewConsumer(cfg, lg)
		err := c.Run(ctx, func(ctx context.Context, ev events.Event) error {
			err := notify.Retry(ctx, policy, func() error { return h.Handle(ctx, ev) }, func(err error, wait time.Duration) {
				lg.Warnw("event failed, retrying", "event_id", ev.ID, "type", ev.Type, "error", err, "wait", wait)
			})
			if err != nil {
				metrics.ObserveJob("failed")
				return err
			}
			metrics.ObserveJob("ok")
			return nil
		})
		if cerr := c.Close(); cerr != nil {
			lg.Warnw("close consumer", "error", cerr)
		}
		if err == nil {
			return
		}
		lg.Errorw("consumer stopped", "error", err)
		select {
		case <-ctx.Done():
		case <-time.After(5 * time.Second):
		}
	}
}
