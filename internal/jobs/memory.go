package jobs

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// MemoryQueue runs jobs on a fixed set of goroutines in the current process.
// Jobs still queued when the process exits are lost.
type MemoryQueue struct {
	jobs    chan string
	workers int
	logger  *zap.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewMemoryQueue(workers, buffer int, logger *zap.Logger) *MemoryQueue {
	if workers <= 0 {
		workers = 2
	}
	if buffer <= 0 {
		buffer = 64
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryQueue{
		jobs:    make(chan string, buffer),
		workers: workers,
		logger:  logger.Named("jobs"),
	}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, minutesID string) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}
	select {
	case q.jobs <- minutesID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start launches the workers. They stop when ctx is cancelled or the queue is
// closed and drained.
func (q *MemoryQueue) Start(ctx context.Context, handler Handler) error {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case id, ok := <-q.jobs:
					if !ok {
						return
					}
					if err := handler(ctx, id); err != nil {
						q.logger.Error("job failed", zap.String("minutes_id", id), zap.Error(err))
					}
				}
			}
		}()
	}
	return nil
}

// Close stops accepting jobs and waits for the workers to drain the buffer.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	q.wg.Wait()
	return nil
}
