package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryBackoff(t *testing.T) {
	assert.Equal(t, 5*time.Second, retryBackoff(1))
	assert.Equal(t, 10*time.Second, retryBackoff(2))
	assert.Equal(t, 15*time.Second, retryBackoff(3))
}

func TestWithMaxRetries(t *testing.T) {
	job := Job{MaxRetries: DefaultMaxRetries}
	WithMaxRetries(7)(&job)
	assert.Equal(t, 7, job.MaxRetries)
}

func TestWorkerRegisterHandlerDispatchTable(t *testing.T) {
	w := NewWorker(nil, 1)
	w.RegisterHandler(JobTypeExpirySweep, func(ctx context.Context, job Job) (interface{}, error) {
		return nil, nil
	})

	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.handlers[JobTypeExpirySweep]
	assert.True(t, ok)
	_, ok = w.handlers[JobTypePayoutBatch]
	assert.False(t, ok)
}
