package queue

import (
	"context"
	"log"
	"sync"
	"time"
)

// Worker runs a pool of goroutines that drain the queue and dispatch jobs
// to their registered handlers by type.
type Worker struct {
	queue      *RedisQueue
	handlers   map[JobType]JobHandler
	numWorkers int
	wg         sync.WaitGroup
	quit       chan struct{}
	mu         sync.RWMutex
}

// NewWorker creates a new worker pool
func NewWorker(queue *RedisQueue, numWorkers int) *Worker {
	return &Worker{
		queue:      queue,
		handlers:   make(map[JobType]JobHandler),
		numWorkers: numWorkers,
		quit:       make(chan struct{}),
	}
}

// RegisterHandler registers a handler for a job type
func (w *Worker) RegisterHandler(jobType JobType, handler JobHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[jobType] = handler
}

// Start launches the worker goroutines
func (w *Worker) Start() {
	log.Printf("Starting %d queue workers", w.numWorkers)
	for i := 0; i < w.numWorkers; i++ {
		w.wg.Add(1)
		go w.process(i)
	}
}

// Stop signals the workers and waits for in-flight jobs to finish
func (w *Worker) Stop() {
	close(w.quit)
	w.wg.Wait()
	log.Printf("Queue workers stopped")
}

func (w *Worker) process(workerID int) {
	defer w.wg.Done()

	for {
		select {
		case <-w.quit:
			return
		default:
			job, err := w.queue.Dequeue()
			if err != nil {
				log.Printf("worker %d: dequeue error: %v", workerID, err)
				time.Sleep(1 * time.Second)
				continue
			}
			if job == nil {
				time.Sleep(100 * time.Millisecond)
				continue
			}

			w.mu.RLock()
			handler, ok := w.handlers[job.Type]
			w.mu.RUnlock()
			if !ok {
				log.Printf("worker %d: no handler for job type %s", workerID, job.Type)
				if err := w.queue.Fail(job, errNoHandler{jobType: job.Type}); err != nil {
					log.Printf("worker %d: failed to fail job %s: %v", workerID, job.ID, err)
				}
				continue
			}

			result, err := handler(context.Background(), *job)
			if err != nil {
				log.Printf("worker %d: job %s (%s) failed: %v", workerID, job.ID, job.Type, err)
				if err := w.queue.Fail(job, err); err != nil {
					log.Printf("worker %d: failed to record failure for job %s: %v", workerID, job.ID, err)
				}
				continue
			}

			if err := w.queue.Complete(job.ID, result); err != nil {
				log.Printf("worker %d: failed to complete job %s: %v", workerID, job.ID, err)
			}
		}
	}
}

type errNoHandler struct {
	jobType JobType
}

func (e errNoHandler) Error() string {
	return "no handler registered for job type " + string(e.jobType)
}
