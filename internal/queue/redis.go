package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RedisQueue is a redis-backed job queue with a database record per job.
// The jobs table is the source of truth for status and retries; redis
// carries the work items.
type RedisQueue struct {
	client *redis.Client
	db     *gorm.DB
	ctx    context.Context
}

// NewRedisQueue creates a new redis queue
func NewRedisQueue(client *redis.Client, db *gorm.DB) *RedisQueue {
	return &RedisQueue{
		client: client,
		db:     db,
		ctx:    context.Background(),
	}
}

// Enqueue persists a job and pushes it onto the work list
func (q *RedisQueue) Enqueue(jobType JobType, payload interface{}, opts ...EnqueueOption) (string, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	now := time.Now()
	job := Job{
		ID:         uuid.New(),
		Type:       jobType,
		Payload:    payloadBytes,
		Status:     JobStatusPending,
		MaxRetries: DefaultMaxRetries,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for _, opt := range opts {
		opt(&job)
	}

	if err := q.db.Create(&job).Error; err != nil {
		return "", fmt.Errorf("failed to persist job: %w", err)
	}

	jobBytes, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("failed to marshal job: %w", err)
	}

	if err := q.client.LPush(q.ctx, mainQueue, jobBytes).Err(); err != nil {
		return "", fmt.Errorf("failed to push job to queue: %w", err)
	}

	return job.ID.String(), nil
}

// EnqueueIn persists a job and schedules it to run after a delay
func (q *RedisQueue) EnqueueIn(jobType JobType, payload interface{}, delay time.Duration, opts ...EnqueueOption) (string, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	now := time.Now()
	runAt := now.Add(delay)
	job := Job{
		ID:         uuid.New(),
		Type:       jobType,
		Payload:    payloadBytes,
		Status:     JobStatusPending,
		MaxRetries: DefaultMaxRetries,
		NextRetry:  &runAt,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for _, opt := range opts {
		opt(&job)
	}

	if err := q.db.Create(&job).Error; err != nil {
		return "", fmt.Errorf("failed to persist job: %w", err)
	}

	jobBytes, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("failed to marshal job: %w", err)
	}

	if err := q.client.ZAdd(q.ctx, delayedQueue, &redis.Z{
		Score:  float64(runAt.Unix()),
		Member: jobBytes,
	}).Err(); err != nil {
		return "", fmt.Errorf("failed to add job to delayed queue: %w", err)
	}

	return job.ID.String(), nil
}

// Dequeue blocks briefly for the next job and marks it processing.
// Returns nil when no job is available.
func (q *RedisQueue) Dequeue() (*Job, error) {
	q.moveReadyDelayedJobs()

	result := q.client.BRPop(q.ctx, 1*time.Second, mainQueue)
	if result.Err() != nil {
		if result.Err() == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to pop job from queue: %w", result.Err())
	}

	vals := result.Val()
	if len(vals) < 2 {
		return nil, fmt.Errorf("unexpected result format from BRPOP")
	}

	var job Job
	if err := json.Unmarshal([]byte(vals[1]), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}

	job.Status = JobStatusProcessing
	if err := q.db.Model(&Job{}).Where("id = ?", job.ID).Updates(map[string]interface{}{
		"status":     JobStatusProcessing,
		"updated_at": time.Now(),
	}).Error; err != nil {
		log.Printf("failed to mark job %s processing: %v", job.ID, err)
	}

	return &job, nil
}

// moveReadyDelayedJobs promotes due delayed jobs onto the work list
func (q *RedisQueue) moveReadyDelayedJobs() {
	now := time.Now().Unix()

	jobs, err := q.client.ZRangeByScore(q.ctx, delayedQueue, &redis.ZRangeBy{
		Min: "0",
		Max: fmt.Sprintf("%d", now),
	}).Result()
	if err != nil {
		log.Printf("failed to read delayed jobs: %v", err)
		return
	}

	for _, jobStr := range jobs {
		if err := q.client.LPush(q.ctx, mainQueue, jobStr).Err(); err != nil {
			log.Printf("failed to promote delayed job: %v", err)
			continue
		}
		q.client.ZRem(q.ctx, delayedQueue, jobStr)
	}
}

// Complete marks a job completed and stores its result
func (q *RedisQueue) Complete(jobID uuid.UUID, result interface{}) error {
	updates := map[string]interface{}{
		"status":     JobStatusCompleted,
		"updated_at": time.Now(),
	}
	if result != nil {
		resultBytes, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		updates["result"] = resultBytes
	}

	if err := q.db.Model(&Job{}).Where("id = ?", jobID).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to mark job completed: %w", err)
	}
	return nil
}

// Fail records a job failure. Jobs with retries left are re-queued with
// backoff; exhausted jobs are marked failed for inspection.
func (q *RedisQueue) Fail(job *Job, jobErr error) error {
	if job.RetryCount < job.MaxRetries {
		job.RetryCount++
		job.Status = JobStatusPending
		delay := retryBackoff(job.RetryCount)
		runAt := time.Now().Add(delay)
		job.NextRetry = &runAt
		job.UpdatedAt = time.Now()
		job.Error = jobErr.Error()

		if err := q.db.Model(&Job{}).Where("id = ?", job.ID).Updates(map[string]interface{}{
			"status":      JobStatusPending,
			"retry_count": job.RetryCount,
			"next_retry":  runAt,
			"error":       jobErr.Error(),
			"updated_at":  job.UpdatedAt,
		}).Error; err != nil {
			return fmt.Errorf("failed to record job retry: %w", err)
		}

		jobBytes, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("failed to marshal job: %w", err)
		}
		if err := q.client.ZAdd(q.ctx, delayedQueue, &redis.Z{
			Score:  float64(runAt.Unix()),
			Member: jobBytes,
		}).Err(); err != nil {
			return fmt.Errorf("failed to schedule retry: %w", err)
		}
		return nil
	}

	if err := q.db.Model(&Job{}).Where("id = ?", job.ID).Updates(map[string]interface{}{
		"status":     JobStatusFailed,
		"error":      jobErr.Error(),
		"updated_at": time.Now(),
	}).Error; err != nil {
		return fmt.Errorf("failed to mark job failed: %w", err)
	}
	return nil
}
