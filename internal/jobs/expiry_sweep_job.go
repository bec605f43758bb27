package jobs

import (
	"context"
	"log"
	"time"

	"github.com/voyara/backend/internal/queue"
	"github.com/voyara/backend/internal/services/affiliate"
)

// ExpirySweepJob marks referrals whose attribution window lapsed without
// a booking. Runs on a schedule; sweeping is a cleanup, correctness never
// depends on it because correlation checks the window itself.
type ExpirySweepJob struct {
	lifecycle *affiliate.Lifecycle
	queue     *queue.RedisQueue
}

// NewExpirySweepJob creates a new expiry sweep job handler
func NewExpirySweepJob(lifecycle *affiliate.Lifecycle, q *queue.RedisQueue) *ExpirySweepJob {
	return &ExpirySweepJob{lifecycle: lifecycle, queue: q}
}

// RegisterExpirySweepJobHandlers registers the sweep handler with the worker
func RegisterExpirySweepJobHandlers(w *queue.Worker, lifecycle *affiliate.Lifecycle, q *queue.RedisQueue) {
	handler := NewExpirySweepJob(lifecycle, q)
	w.RegisterHandler(queue.JobTypeExpirySweep, handler.ProcessSweep)
}

// EnqueueSweep queues one sweep run
func (j *ExpirySweepJob) EnqueueSweep() error {
	_, err := j.queue.Enqueue(queue.JobTypeExpirySweep, map[string]interface{}{
		"requested_at": time.Now(),
	})
	return err
}

// ProcessSweep expires all stale referrals
func (j *ExpirySweepJob) ProcessSweep(ctx context.Context, job queue.Job) (interface{}, error) {
	expired, err := j.lifecycle.ExpireStale(time.Now())
	if err != nil {
		return nil, err
	}
	if expired > 0 {
		log.Printf("expiry sweep marked %d referrals expired", expired)
	}
	return map[string]interface{}{"expired": expired}, nil
}
