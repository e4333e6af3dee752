package reconcile

import (
	"context"
	"fmt"
)

// RetryQueue durably schedules another refund attempt for a booking.
// Enqueueing the same uid while a retry is pending must be a no-op.
type RetryQueue interface {
	EnqueueRefundRetry(ctx context.Context, uid string) error
}

// ScheduleRefundRetry enqueues a retry when cause is retryable. It reports
// whether a retry was scheduled.
func ScheduleRefundRetry(ctx context.Context, q RetryQueue, uid string, cause error) (bool, error) {
	if q == nil || !IsRetryable(cause) {
		return false, nil
	}
	if err := q.EnqueueRefundRetry(ctx, uid); err != nil {
		return false, fmt.Errorf("enqueue refund retry for %s: %w", uid, err)
	}
	return true, nil
}
