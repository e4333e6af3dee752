package reconcile

import (
	"context"
	"time"

	"classbridge/models"

	"go.uber.org/zap"
)

// CycleReport summarises one polling cycle.
type CycleReport struct {
	Changes       int
	Cancellations int
	Refunded      int
	Failed        int
	Retried       int
}

// Poller periodically pulls the full booking list, detects transitions and
// refunds cancellations the webhook channel may have missed.
type Poller struct {
	fetcher    BookingFetcher
	detector   *Detector
	changes    *ChangeLog
	dispatcher Dispatcher
	retries    RetryQueue
	interval   time.Duration
	logger     *zap.Logger
}

func NewPoller(
	fetcher BookingFetcher,
	detector *Detector,
	changes *ChangeLog,
	dispatcher Dispatcher,
	retries RetryQueue,
	interval time.Duration,
	logger *zap.Logger,
) *Poller {
	return &Poller{
		fetcher:    fetcher,
		detector:   detector,
		changes:    changes,
		dispatcher: dispatcher,
		retries:    retries,
		interval:   interval,
		logger:     logger,
	}
}

// Start runs cycles until ctx is done. The ticker's first tick arrives one
// interval after start, so no cycle races process startup. Cycles never
// overlap: the next tick is only read once the current cycle has finished.
func (p *Poller) Start(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("polling loop terminated, background reconciliation stopped",
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
		}
	}()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("booking poller started", zap.Duration("interval", p.interval))

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("booking poller stopped")
			return
		case <-ticker.C:
			if _, err := p.RunCycle(ctx); err != nil {
				p.logger.Warn("polling cycle skipped", zap.Error(err))
			}
		}
	}
}

// RunCycle performs one fetch, detect, record and dispatch pass. The only
// error it returns is a fetch failure; dispatch failures are logged and
// counted in the report.
func (p *Poller) RunCycle(ctx context.Context) (CycleReport, error) {
	var report CycleReport

	changes, err := p.detector.Reconcile(ctx, p.fetcher)
	if err != nil {
		return report, err
	}
	report.Changes = len(changes)
	if len(changes) == 0 {
		return report, nil
	}

	p.changes.Append(changes...)

	for _, change := range changes {
		if !change.IsCancellation() {
			p.logger.Info("booking status changed",
				zap.String("booking_uid", change.UID),
				zap.String("old_status", string(change.OldStatus)),
				zap.String("new_status", string(change.NewStatus)),
			)
			continue
		}
		report.Cancellations++
		p.dispatchCancellation(ctx, change, &report)
	}

	p.logger.Info("polling cycle finished",
		zap.Int("changes", report.Changes),
		zap.Int("cancellations", report.Cancellations),
		zap.Int("refunded", report.Refunded),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

// dispatchCancellation contains panics to the one booking so the rest of the
// batch and later cycles still run.
func (p *Poller) dispatchCancellation(ctx context.Context, change models.BookingChange, report *CycleReport) {
	log := p.logger.With(zap.String("booking_uid", change.UID), zap.String("old_status", string(change.OldStatus)))
	defer func() {
		if r := recover(); r != nil {
			report.Failed++
			log.Error("refund for cancelled booking panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()

	if _, err := p.dispatcher.HandleCancellation(ctx, change.UID); err != nil {
		report.Failed++
		log.Error("refund for cancelled booking failed", zap.String("code", ErrorCode(err)), zap.Error(err))

		scheduled, qErr := ScheduleRefundRetry(ctx, p.retries, change.UID, err)
		if qErr != nil {
			log.Error("could not schedule refund retry", zap.Error(qErr))
		}
		if scheduled {
			report.Retried++
			log.Info("refund retry scheduled")
		}
		return
	}
	report.Refunded++
}
