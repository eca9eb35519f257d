package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmehdipour/loyalty-backoffice/internal/config"
	"github.com/jmehdipour/loyalty-backoffice/internal/model"
	"github.com/segmentio/kafka-go"
)

type (
	Message = kafka.Message
	Header  = kafka.Header
)

// ErrMalformedEvent marks a message that can never be delivered: bad JSON or
// an envelope without a tenant. Such messages are committed and skipped.
var ErrMalformedEvent = errors.New("malformed loyalty event")

// Consumer reads loyalty change events for one consumer group. Offsets are
// committed explicitly after each event is handled.
type Consumer struct {
	r *kafka.Reader
}

// NewConsumer joins cfg.GroupID on cfg.Topic. Zero sizes and intervals fall
// back to 1KB min, 10MB max and a 1s commit interval.
func NewConsumer(cfg config.KafkaConfig) *Consumer {
	minBytes := cfg.MinBytes
	if minBytes <= 0 {
		minBytes = 1 << 10
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	commitEvery := time.Duration(cfg.CommitInterval) * time.Millisecond
	if commitEvery <= 0 {
		commitEvery = time.Second
	}

	return &Consumer{r: kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		Topic:          cfg.Topic,
		MinBytes:       minBytes,
		MaxBytes:       maxBytes,
		CommitInterval: commitEvery,
		MaxWait:        50 * time.Millisecond,
	})}
}

// Fetch blocks for the next message; it is not committed until Commit.
func (c *Consumer) Fetch(ctx context.Context) (Message, error) {
	return c.r.FetchMessage(ctx)
}

func (c *Consumer) Commit(ctx context.Context, m Message) error {
	return c.r.CommitMessages(ctx, m)
}

func (c *Consumer) Close() error { return c.r.Close() }

// DecodeEnvelope unpacks the change notification the relay published. A
// tenant_id header that disagrees with the body is rejected.
func DecodeEnvelope(m Message) (model.Envelope, error) {
	var env model.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return model.Envelope{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if env.TenantID == "" {
		return model.Envelope{}, fmt.Errorf("%w: missing tenant_id", ErrMalformedEvent)
	}
	for _, h := range m.Headers {
		if h.Key == "tenant_id" && string(h.Value) != env.TenantID {
			return model.Envelope{}, fmt.Errorf("%w: header tenant %q, body tenant %q", ErrMalformedEvent, h.Value, env.TenantID)
		}
	}
	return env, nil
}
