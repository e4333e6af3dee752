package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const (
	TypeRefundRetry = "refund:retry"
	RefundQueueName = "refunds"
)

// RefundRetryPayload identifies the booking whose refund must be attempted again.
type RefundRetryPayload struct {
	BookingUID string    `json:"booking_uid"`
	QueuedAt   time.Time `json:"queued_at"`
}

// RefundRetryTaskID deduplicates pending retries of the same booking.
func RefundRetryTaskID(uid string) string {
	return "refund:" + uid
}

func NewRefundRetryTask(payload RefundRetryPayload, maxRetry int, delay time.Duration) (*asynq.Task, []asynq.Option, error) {
	if payload.BookingUID == "" {
		return nil, nil, errors.New("refund retry: empty booking uid")
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeRefundRetry, b)
	opts := []asynq.Option{
		asynq.TaskID(RefundRetryTaskID(payload.BookingUID)),
		asynq.Queue(RefundQueueName),
		asynq.MaxRetry(maxRetry),
		asynq.ProcessIn(delay),
	}
	return task, opts, nil
}

func ParseRefundRetryPayload(task *asynq.Task) (RefundRetryPayload, error) {
	var p RefundRetryPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return p, fmt.Errorf("refund retry: invalid payload: %w", err)
	}
	if p.BookingUID == "" {
		return p, errors.New("refund retry: empty booking uid")
	}
	return p, nil
}

// Enqueuer is the subset of *asynq.Client used to schedule tasks.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// RefundRetryQueue schedules durable refund retries on Redis.
type RefundRetryQueue struct {
	client   Enqueuer
	maxRetry int
	delay    time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

func NewRefundRetryQueue(client Enqueuer, maxRetry int, delay time.Duration, logger *zap.Logger) *RefundRetryQueue {
	return &RefundRetryQueue{client: client, maxRetry: maxRetry, delay: delay, now: time.Now, logger: logger}
}

// EnqueueRefundRetry is a no-op when a task for uid already exists. The task
// id outlives the task: an archived task whose retries ran out keeps it, and
// blocks new retries for that booking until it is deleted or re-run.
func (q *RefundRetryQueue) EnqueueRefundRetry(ctx context.Context, uid string) error {
	task, opts, err := NewRefundRetryTask(RefundRetryPayload{BookingUID: uid, QueuedAt: q.now().UTC()}, q.maxRetry, q.delay)
	if err != nil {
		return err
	}
	if _, err := q.client.EnqueueContext(ctx, task, opts...); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
			q.logger.Warn("refund retry not scheduled, task already pending or archived",
				zap.String("booking_uid", uid),
				zap.String("task_id", RefundRetryTaskID(uid)),
				zap.String("queue", RefundQueueName),
			)
			return nil
		}
		return fmt.Errorf("enqueue %s: %w", TypeRefundRetry, err)
	}
	return nil
}
