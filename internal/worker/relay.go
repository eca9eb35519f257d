package worker

import (
	"context"
	"time"

	"github.com/jmehdipour/loyalty-backoffice/internal/kafka"
	"github.com/jmehdipour/loyalty-backoffice/internal/logger"
	"github.com/jmehdipour/loyalty-backoffice/internal/metrics"
	"github.com/jmehdipour/loyalty-backoffice/internal/model"
	"github.com/jmehdipour/loyalty-backoffice/internal/repository"
	"github.com/jmehdipour/loyalty-backoffice/internal/util"
	"go.uber.org/zap"
)

// MessageWriter is the producing half of Kafka.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Relay moves committed outbox rows to Kafka. Delivery is at-least-once: a
// row is marked published only after the broker acknowledged it.
type Relay struct {
	Outbox      repository.OutboxRepository
	Writer      MessageWriter
	Interval    time.Duration
	BatchSize   int
	MaxAttempts int
}

func NewRelay(outbox repository.OutboxRepository, w MessageWriter, interval time.Duration, batchSize, maxAttempts int) *Relay {
	return &Relay{Outbox: outbox, Writer: w, Interval: interval, BatchSize: batchSize, MaxAttempts: maxAttempts}
}

func (r *Relay) Run(ctx context.Context) error {
	if r.Interval <= 0 {
		r.Interval = time.Second
	}
	logger.Log.Info("relay started", zap.Duration("interval", r.Interval))

	t := time.NewTicker(r.Interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Log.Info("relay stopped")
			return nil
		case <-t.C:
			if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
				logger.Log.Error("relay cycle failed", zap.Error(err))
			}
		}
	}
}

// RunOnce publishes one batch and returns how many rows were published.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	events, err := r.Outbox.FetchUnpublished(ctx, r.BatchSize, r.MaxAttempts)
	if err != nil || len(events) == 0 {
		return 0, err
	}

	msgs := make([]kafka.Message, 0, len(events))
	ids := make([]int64, 0, len(events))
	for _, e := range events {
		msgs = append(msgs, toMessage(e))
		ids = append(ids, e.ID)
	}

	if err := r.Writer.WriteMessages(ctx, msgs...); err != nil {
		metrics.OutboxRelayedTotal.WithLabelValues("failed").Add(float64(len(ids)))
		if merr := r.Outbox.MarkFailed(ctx, ids); merr != nil {
			logger.Log.Warn("relay: mark failed", zap.Error(merr))
		}
		return 0, err
	}

	if err := r.Outbox.MarkPublished(ctx, ids, util.Now()); err != nil {
		// rows stay unpublished and will be sent again
		return 0, err
	}
	metrics.OutboxRelayedTotal.WithLabelValues("published").Add(float64(len(ids)))
	return len(ids), nil
}

func toMessage(e model.OutboxEvent) kafka.Message {
	return kafka.Message{
		Topic: e.Topic,
		Key:   []byte(e.TenantID + ":" + e.AggregateID),
		Value: e.Payload,
		Headers: []kafka.Header{
			{Key: "aggregate", Value: []byte(e.Aggregate)},
			{Key: "tenant_id", Value: []byte(e.TenantID)},
		},
		Time: e.CreatedAt,
	}
}
