package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/voyara/backend/internal/queue"
	"github.com/voyara/backend/internal/services/affiliate"
)

// CorrelationJobPayload carries the identities a platform event delivers
// for click correlation. ClickID is required; UserID arrives with signups,
// BookingID and BookingAmount with booking confirmations.
type CorrelationJobPayload struct {
	ClickID       string           `json:"click_id"`
	UserID        *uuid.UUID       `json:"user_id,omitempty"`
	BookingID     *string          `json:"booking_id,omitempty"`
	BookingAmount *decimal.Decimal `json:"booking_amount,omitempty"`
}

// CorrelationJob consumes platform lifecycle events and advances the
// matching referrals. Events arrive at-least-once from the booking
// pipeline, so every path through here is idempotent.
type CorrelationJob struct {
	lifecycle *affiliate.Lifecycle
	accrual   *affiliate.AccrualEngine
	queue     *queue.RedisQueue
}

// NewCorrelationJob creates a new correlation job handler
func NewCorrelationJob(lifecycle *affiliate.Lifecycle, accrual *affiliate.AccrualEngine, q *queue.RedisQueue) *CorrelationJob {
	return &CorrelationJob{
		lifecycle: lifecycle,
		accrual:   accrual,
		queue:     q,
	}
}

// RegisterCorrelationJobHandlers registers all correlation handlers with
// the worker.
func RegisterCorrelationJobHandlers(w *queue.Worker, lifecycle *affiliate.Lifecycle, accrual *affiliate.AccrualEngine, q *queue.RedisQueue) {
	handler := NewCorrelationJob(lifecycle, accrual, q)
	w.RegisterHandler(queue.JobTypeReferralSignedUp, handler.ProcessSignedUp)
	w.RegisterHandler(queue.JobTypeReferralBooked, handler.ProcessBooked)
	w.RegisterHandler(queue.JobTypeReferralCompleted, handler.ProcessCompleted)
}

// EnqueueSignedUp queues a signup correlation event
func (j *CorrelationJob) EnqueueSignedUp(clickID string, userID uuid.UUID) error {
	_, err := j.queue.Enqueue(queue.JobTypeReferralSignedUp, CorrelationJobPayload{
		ClickID: clickID,
		UserID:  &userID,
	})
	return err
}

// EnqueueBooked queues a booking confirmation correlation event
func (j *CorrelationJob) EnqueueBooked(clickID, bookingID string, amount decimal.Decimal) error {
	_, err := j.queue.Enqueue(queue.JobTypeReferralBooked, CorrelationJobPayload{
		ClickID:       clickID,
		BookingID:     &bookingID,
		BookingAmount: &amount,
	})
	return err
}

// EnqueueCompleted queues a trip completion correlation event
func (j *CorrelationJob) EnqueueCompleted(clickID string) error {
	_, err := j.queue.Enqueue(queue.JobTypeReferralCompleted, CorrelationJobPayload{
		ClickID: clickID,
	})
	return err
}

// ProcessSignedUp advances a referral to signed_up
func (j *CorrelationJob) ProcessSignedUp(ctx context.Context, job queue.Job) (interface{}, error) {
	payload, err := parsePayload(job)
	if err != nil {
		return nil, err
	}

	referral, err := j.lifecycle.Correlate(payload.ClickID, affiliate.Event{
		Type:   affiliate.EventSignedUp,
		UserID: payload.UserID,
	})
	if err != nil {
		return nil, dropTerminal(payload.ClickID, err)
	}

	return map[string]interface{}{"status": string(referral.Status)}, nil
}

// ProcessBooked advances a referral to booked and accrues its commission
func (j *CorrelationJob) ProcessBooked(ctx context.Context, job queue.Job) (interface{}, error) {
	payload, err := parsePayload(job)
	if err != nil {
		return nil, err
	}
	if payload.BookingAmount == nil {
		return nil, fmt.Errorf("booking event for click %s missing booking amount", payload.ClickID)
	}

	referral, err := j.lifecycle.Correlate(payload.ClickID, affiliate.Event{
		Type:      affiliate.EventBooked,
		UserID:    payload.UserID,
		BookingID: payload.BookingID,
	})
	if err != nil {
		return nil, dropTerminal(payload.ClickID, err)
	}

	commission, err := j.accrual.Accrue(referral.ID, *payload.BookingAmount)
	if err != nil {
		// A duplicate delivery already accrued; the transition above was a
		// no-op too, so this is the expected redelivery path.
		if errors.Is(err, affiliate.ErrNotEligible) {
			return map[string]interface{}{"status": string(referral.Status), "accrued": false}, nil
		}
		return nil, err
	}

	return map[string]interface{}{
		"status":     string(referral.Status),
		"accrued":    true,
		"commission": commission.Amount.StringFixed(2),
	}, nil
}

// ProcessCompleted advances a referral to completed
func (j *CorrelationJob) ProcessCompleted(ctx context.Context, job queue.Job) (interface{}, error) {
	payload, err := parsePayload(job)
	if err != nil {
		return nil, err
	}

	referral, err := j.lifecycle.Correlate(payload.ClickID, affiliate.Event{
		Type: affiliate.EventCompleted,
	})
	if err != nil {
		return nil, dropTerminal(payload.ClickID, err)
	}

	return map[string]interface{}{"status": string(referral.Status)}, nil
}

func parsePayload(job queue.Job) (*CorrelationJobPayload, error) {
	var payload CorrelationJobPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal correlation payload: %w", err)
	}
	if payload.ClickID == "" {
		return nil, fmt.Errorf("correlation payload missing click_id")
	}
	return &payload, nil
}

// dropTerminal converts permanent correlation outcomes into successful
// no-ops so the queue does not retry events that can never apply. Unknown
// click tokens and expired windows are normal traffic, not failures.
func dropTerminal(clickID string, err error) error {
	if errors.Is(err, affiliate.ErrReferralNotFound) || errors.Is(err, affiliate.ErrAttributionExpired) {
		log.Printf("dropping correlation event for click %s: %v", clickID, err)
		return nil
	}
	return err
}
