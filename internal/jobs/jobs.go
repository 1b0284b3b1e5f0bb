// Package jobs runs minutes processing outside the request that asked for it.
package jobs

import (
	"context"
	"errors"
	"time"
)

// SubjectProcess carries processing jobs.
const SubjectProcess = "atas.jobs.process"

var ErrClosed = errors.New("job queue closed")

// Handler processes one minutes record.
type Handler func(ctx context.Context, minutesID string) error

// Queue hands minutes IDs to a Handler. Enqueue never waits for the job.
type Queue interface {
	Enqueue(ctx context.Context, minutesID string) error
	Start(ctx context.Context, handler Handler) error
	Close() error
}

// Job is the message body published for each enqueued record.
type Job struct {
	MinutesID  string    `json:"minutesId"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}
