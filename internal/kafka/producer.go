package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

type ProducerConfig struct {
	Brokers      []string
	BatchTimeout time.Duration // default 50ms
	WriteTimeout time.Duration // default 10s
}

// Producer is a thin wrapper around segmentio/kafka-go Writer. The topic is
// taken from each message.
type Producer struct {
	w *kafka.Writer
}

func NewProducerFromConfig(c ProducerConfig) *Producer {
	bt := c.BatchTimeout
	if bt <= 0 {
		bt = 50 * time.Millisecond
	}
	wt := c.WriteTimeout
	if wt <= 0 {
		wt = 10 * time.Second
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(c.Brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           bt,
		WriteTimeout:           wt,
		AllowAutoTopicCreation: true,
	}
	return &Producer{w: w}
}

// WriteMessages blocks until every message is acknowledged or fails.
func (p *Producer) WriteMessages(ctx context.Context, msgs ...Message) error {
	return p.w.WriteMessages(ctx, msgs...)
}

func (p *Producer) Close() error { return p.w.Close() }
