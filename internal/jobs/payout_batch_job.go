package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/voyara/backend/internal/queue"
	"github.com/voyara/backend/internal/services/payout"
)

// PayoutBatchJobPayload selects the batch scope. An empty AffiliateID
// batches every active affiliate with eligible commissions.
type PayoutBatchJobPayload struct {
	AffiliateID *uuid.UUID `json:"affiliate_id,omitempty"`
	PeriodEnd   time.Time  `json:"period_end"`
}

// PayoutBatchJob runs scheduled and on-demand payout batching
type PayoutBatchJob struct {
	batcher *payout.Batcher
	queue   *queue.RedisQueue
}

// NewPayoutBatchJob creates a new payout batch job handler
func NewPayoutBatchJob(batcher *payout.Batcher, q *queue.RedisQueue) *PayoutBatchJob {
	return &PayoutBatchJob{batcher: batcher, queue: q}
}

// RegisterPayoutBatchJobHandlers registers the batch handler with the worker
func RegisterPayoutBatchJobHandlers(w *queue.Worker, batcher *payout.Batcher, q *queue.RedisQueue) {
	handler := NewPayoutBatchJob(batcher, q)
	w.RegisterHandler(queue.JobTypePayoutBatch, handler.ProcessBatch)
}

// EnqueueBatchAll queues a settlement run over all active affiliates
func (j *PayoutBatchJob) EnqueueBatchAll(periodEnd time.Time) error {
	_, err := j.queue.Enqueue(queue.JobTypePayoutBatch, PayoutBatchJobPayload{
		PeriodEnd: periodEnd,
	})
	return err
}

// ProcessBatch runs the payout batcher for the requested scope
func (j *PayoutBatchJob) ProcessBatch(ctx context.Context, job queue.Job) (interface{}, error) {
	var payload PayoutBatchJobPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payout batch payload: %w", err)
	}

	periodEnd := payload.PeriodEnd
	if periodEnd.IsZero() {
		periodEnd = time.Now()
	}

	if payload.AffiliateID != nil {
		p, err := j.batcher.BatchFor(*payload.AffiliateID, periodEnd)
		if err != nil {
			if errors.Is(err, payout.ErrNothingToPay) {
				return map[string]interface{}{"created": 0}, nil
			}
			return nil, err
		}
		return map[string]interface{}{"created": 1, "payout_id": p.ID.String()}, nil
	}

	created, err := j.batcher.BatchAllDue(periodEnd)
	if err != nil {
		return nil, err
	}
	if created > 0 {
		log.Printf("payout batch run created %d payouts", created)
	}
	return map[string]interface{}{"created": created}, nil
}
