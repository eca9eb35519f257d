package worker

import (
	"context"
	"time"

	"github.com/jmehdipour/loyalty-backoffice/internal/kafka"
	"github.com/jmehdipour/loyalty-backoffice/internal/logger"
	"github.com/jmehdipour/loyalty-backoffice/internal/metrics"
	"github.com/jmehdipour/loyalty-backoffice/internal/model"
	"go.uber.org/zap"
)

// MessageSource is the consuming half of Kafka.
type MessageSource interface {
	Fetch(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, m kafka.Message) error
}

// EventPublisher pushes an event to live sessions.
type EventPublisher interface {
	Publish(ctx context.Context, env model.Envelope) error
}

// Notifier republishes loyalty events from Kafka onto the per-tenant
// real-time channels. Events are hints to re-fetch, so a failed publish is
// logged and the message committed anyway.
type Notifier struct {
	Source    MessageSource
	Publisher EventPublisher
}

func NewNotifier(src MessageSource, pub EventPublisher) *Notifier {
	return &Notifier{Source: src, Publisher: pub}
}

// Run blocks until ctx is cancelled.
func (n *Notifier) Run(ctx context.Context) error {
	logger.Log.Info("notifier started")
	for {
		m, err := n.Source.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Log.Info("notifier stopped")
				return nil
			}
			logger.Log.Warn("notifier: kafka fetch", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(200 * time.Millisecond):
			}
			continue
		}
		n.Handle(ctx, m)
	}
}

// Handle processes a single message and commits it.
func (n *Notifier) Handle(ctx context.Context, m kafka.Message) {
	env, err := kafka.DecodeEnvelope(m)
	if err != nil {
		// poison -> commit, skip
		logger.Log.Warn("notifier: bad envelope", zap.Int64("offset", m.Offset), zap.Error(err))
	} else if err := n.Publisher.Publish(ctx, env); err != nil {
		logger.Log.Warn("notifier: publish", zap.String("tenant_id", env.TenantID), zap.Error(err))
	} else {
		metrics.NotificationsTotal.Inc()
	}

	if err := n.Source.Commit(ctx, m); err != nil {
		logger.Log.Warn("notifier: commit", zap.Error(err))
	}
}
