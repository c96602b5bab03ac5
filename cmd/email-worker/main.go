package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	redisclient "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	redisadapter "tourstay/internal/adapters/redis"
	"tourstay/internal/config"
	"tourstay/internal/mailer"
	"tourstay/internal/observability"
)

const (
	workers     = 4
	maxAttempts = 3
	popTimeout  = 5 * time.Second
)

// email-worker drains the durable retry queue: jobs land here when the
// API could not deliver a transactional email synchronously.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := observability.NewLogger()

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	queue := redisadapter.NewEmailQueue(redisClient)
	smtp := mailer.New(cfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			return run(gctx, queue, smtp, cfg.MailFrom, logger)
		})
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("Shutdown email worker ...")
	cancel()

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("worker exited: ", err)
	}
}

func run(ctx context.Context, queue *redisadapter.EmailQueue, smtp *mailer.SMTPMailer, from string, logger observability.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		job, err := queue.Pop(ctx, popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn("queue pop failed: ", err)
			time.Sleep(time.Second)
			continue
		}
		if job == nil {
			continue
		}

		entry := logger.WithField("booking_id", job.BookingID).WithField("type", job.Type)
		_, err = smtp.Send(ctx, mailer.Message{
			From:    from,
			To:      job.To,
			Subject: job.Subject,
			HTML:    job.HTML,
		})
		if err == nil {
			entry.Info("queued email delivered")
			continue
		}

		job.Attempts++
		if job.Attempts >= maxAttempts {
			entry.Error("dropping email after ", job.Attempts, " attempts: ", err)
			continue
		}
		if qErr := queue.Push(ctx, *job); qErr != nil {
			entry.Error("failed to requeue email: ", qErr)
		}
	}
}
