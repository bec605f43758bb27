package jobs

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/voyara/backend/internal/queue"
	"github.com/voyara/backend/internal/services/affiliate"
	"github.com/voyara/backend/internal/services/payout"
)

// RegisterAllJobHandlers registers every job handler with the worker
func RegisterAllJobHandlers(
	w *queue.Worker,
	q *queue.RedisQueue,
	lifecycle *affiliate.Lifecycle,
	accrual *affiliate.AccrualEngine,
	batcher *payout.Batcher,
) {
	RegisterCorrelationJobHandlers(w, lifecycle, accrual, q)
	RegisterExpirySweepJobHandlers(w, lifecycle, q)
	RegisterPayoutBatchJobHandlers(w, batcher, q)
}

// ScheduleRecurringJobs wires the expiry sweep and the settlement run onto
// the scheduler. The returned scheduler is already started; the caller
// stops it on shutdown.
func ScheduleRecurringJobs(
	q *queue.RedisQueue,
	lifecycle *affiliate.Lifecycle,
	batcher *payout.Batcher,
	sweepInterval time.Duration,
	batchIntervalHours int,
) (*gocron.Scheduler, error) {
	scheduler := gocron.NewScheduler(time.UTC)

	sweepJob := NewExpirySweepJob(lifecycle, q)
	if _, err := scheduler.Every(sweepInterval).Do(func() {
		if err := sweepJob.EnqueueSweep(); err != nil {
			log.Printf("failed to enqueue expiry sweep: %v", err)
		}
	}); err != nil {
		return nil, err
	}

	batchJob := NewPayoutBatchJob(batcher, q)
	if _, err := scheduler.Every(batchIntervalHours).Hours().Do(func() {
		if err := batchJob.EnqueueBatchAll(time.Now()); err != nil {
			log.Printf("failed to enqueue payout batch run: %v", err)
		}
	}); err != nil {
		return nil, err
	}

	scheduler.StartAsync()
	return scheduler, nil
}
