package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"
)

const (
	streamName  = "ATAS"
	durableName = "atas-processor"
	maxDeliver  = 3
)

// NATSQueue publishes jobs to a JetStream work queue and consumes them with a
// durable consumer, so pending jobs survive restarts.
type NATSQueue struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	cc     jetstream.ConsumeContext
	logger *zap.Logger
}

func NewNATSQueue(ctx context.Context, url string, logger *zap.Logger) (*NATSQueue, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	nc, err := nats.Connect(url,
		nats.Name("atas-api"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	streamCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := js.CreateOrUpdateStream(streamCtx, jetstream.StreamConfig{
		Name:      streamName,
		Subjects:  []string{"atas.jobs.>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.WorkQueuePolicy,
	}); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream %s: %w", streamName, err)
	}

	return &NATSQueue{nc: nc, js: js, logger: logger.Named("jobs")}, nil
}

func (q *NATSQueue) Enqueue(ctx context.Context, minutesID string) error {
	data, err := json.Marshal(Job{MinutesID: minutesID, EnqueuedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if _, err := q.js.Publish(ctx, SubjectProcess, data); err != nil {
		return fmt.Errorf("publish job to %s: %w", SubjectProcess, err)
	}
	return nil
}

// Start consumes jobs until Close. Failed jobs are redelivered up to
// maxDeliver times; malformed messages are terminated.
func (q *NATSQueue) Start(ctx context.Context, handler Handler) error {
	consumer, err := q.js.CreateOrUpdateConsumer(ctx, streamName, jetstream.ConsumerConfig{
		Durable:       durableName,
		FilterSubject: SubjectProcess,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       10 * time.Minute,
		MaxDeliver:    maxDeliver,
	})
	if err != nil {
		return fmt.Errorf("create consumer: %w", err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		var job Job
		if err := json.Unmarshal(msg.Data(), &job); err != nil || job.MinutesID == "" {
			q.logger.Error("discarding malformed job", zap.ByteString("data", msg.Data()), zap.Error(err))
			_ = msg.Term()
			return
		}
		if err := handler(ctx, job.MinutesID); err != nil {
			q.logger.Error("job failed", zap.String("minutes_id", job.MinutesID), zap.Error(err))
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}
	q.cc = cc
	q.logger.Info("consuming jobs", zap.String("subject", SubjectProcess), zap.String("durable", durableName))
	return nil
}

func (q *NATSQueue) Close() error {
	if q.cc != nil {
		q.cc.Stop()
	}
	if q.nc != nil {
		return q.nc.Drain()
	}
	return nil
}
