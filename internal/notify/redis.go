// Package notify fans change events out to connected sessions over Redis
// pub/sub, one channel per tenant.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jmehdipour/loyalty-backoffice/internal/logger"
	"github.com/jmehdipour/loyalty-backoffice/internal/model"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const DefaultPrefix = "loyalty:events:"

// Subscription delivers a tenant's events until Close.
type Subscription interface {
	Events() <-chan model.Envelope
	Close() error
}

type Redis struct {
	rdb    *redis.Client
	prefix string
}

func NewRedis(rdb *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Redis{rdb: rdb, prefix: prefix}
}

// Channel is the pub/sub channel for a tenant.
func (r *Redis) Channel(tenantID string) string { return r.prefix + tenantID }

func (r *Redis) Publish(ctx context.Context, env model.Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	return r.rdb.Publish(ctx, r.Channel(env.TenantID), payload).Err()
}

// Subscribe confirms the subscription before returning, so no event published
// afterwards is missed.
func (r *Redis) Subscribe(ctx context.Context, tenantID string) (Subscription, error) {
	ps := r.rdb.Subscribe(ctx, r.Channel(tenantID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", r.Channel(tenantID), err)
	}

	sub := &redisSubscription{ps: ps, out: make(chan model.Envelope, 64), done: make(chan struct{})}
	go sub.pump()
	return sub, nil
}

type redisSubscription struct {
	ps   *redis.PubSub
	out  chan model.Envelope
	done chan struct{}
	once sync.Once
}

func (s *redisSubscription) Events() <-chan model.Envelope { return s.out }

func (s *redisSubscription) Close() error {
	s.once.Do(func() { close(s.done) })
	return s.ps.Close()
}

func (s *redisSubscription) pump() {
	defer close(s.out)
	for msg := range s.ps.Channel() {
		var env model.Envelope
		if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
			logger.Log.Warn("notify: bad payload", zap.String("channel", msg.Channel), zap.Error(err))
			continue
		}
		select {
		case s.out <- env:
		case <-s.done:
			return
		}
	}
}
