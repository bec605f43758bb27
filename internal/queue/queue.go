package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// JobType defines the type of job
type JobType string

const (
	JobTypeReferralSignedUp  JobType = "referral.signed_up"
	JobTypeReferralBooked    JobType = "referral.booked"
	JobTypeReferralCompleted JobType = "referral.completed"
	JobTypeExpirySweep       JobType = "referral.expiry_sweep"
	JobTypePayoutBatch       JobType = "payout.batch"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

const (
	// DefaultMaxRetries is applied to jobs enqueued without an override
	DefaultMaxRetries = 3

	// mainQueue is the redis list all job types share; dispatch happens by
	// job type at the worker.
	mainQueue = "referral_jobs"

	// delayedQueue is the sorted set holding jobs not yet due, scored by
	// their run-at unix timestamp.
	delayedQueue = "referral_jobs:delayed"
)

// Job represents a background job. Rows are the durable record; the redis
// list only carries in-flight copies.
type Job struct {
	ID         uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	Type       JobType         `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	Status     JobStatus       `json:"status"`
	RetryCount int             `json:"retry_count" gorm:"default:0"`
	MaxRetries int             `json:"max_retries" gorm:"default:3"`
	NextRetry  *time.Time      `json:"next_retry,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	Error      string          `json:"error,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
}

// JobHandler is a function that processes a job
type JobHandler func(ctx context.Context, job Job) (interface{}, error)

// EnqueueOption customizes a job before it is enqueued
type EnqueueOption func(*Job)

// WithMaxRetries sets the maximum number of retries for a job
func WithMaxRetries(maxRetries int) EnqueueOption {
	return func(j *Job) {
		j.MaxRetries = maxRetries
	}
}

// retryBackoff returns the delay before attempt n is retried
func retryBackoff(retryCount int) time.Duration {
	return time.Duration(retryCount) * 5 * time.Second
}
