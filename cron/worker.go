package cron

import (
	"context"
	"fmt"

	"classbridge/models"
	"classbridge/services/reconcile"
	"classbridge/services/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// RefundRetrier re-attempts a cancellation refund under a per-attempt
// idempotency key.
type RefundRetrier interface {
	RetryCancellation(ctx context.Context, uid string, attempt int) (*models.RefundResult, error)
}

// StartRefundRetryWorker runs the asynq worker that re-attempts failed refunds.
func StartRefundRetryWorker(redisOpts asynq.RedisClientOpt, retrier RefundRetrier, logger *zap.Logger) (*asynq.Server, error) {
	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				tasks.RefundQueueName: 1,
			},
			Logger:   logger.Sugar(),
			LogLevel: asynq.WarnLevel,
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeRefundRetry, handleRefundRetryTask(retrier, logger))

	logger.Info("starting refund retry worker", zap.String("queue", tasks.RefundQueueName))
	if err := srv.Start(mux); err != nil {
		return nil, fmt.Errorf("start refund retry worker: %w", err)
	}
	return srv, nil
}

var retryCount = func(ctx context.Context) int {
	n, _ := asynq.GetRetryCount(ctx)
	return n
}

func handleRefundRetryTask(retrier RefundRetrier, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		p, err := tasks.ParseRefundRetryPayload(task)
		if err != nil {
			logger.Error("invalid refund retry payload", zap.Error(err))
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}

		// The first run of the task is already the first retry.
		attempt := retryCount(ctx) + 1
		log := logger.With(zap.String("booking_uid", p.BookingUID), zap.Int("attempt", attempt))

		refund, err := retrier.RetryCancellation(ctx, p.BookingUID, attempt)
		if err != nil {
			if !reconcile.IsRetryable(err) {
				log.Error("refund retry abandoned", zap.String("code", reconcile.ErrorCode(err)), zap.Error(err))
				return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
			}
			log.Warn("refund retry failed", zap.Error(err))
			return err
		}

		log.Info("refund retry succeeded", zap.String("refund_id", refund.ID), zap.Bool("duplicate", refund.Duplicate))
		return nil
	}
}
