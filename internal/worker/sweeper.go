package worker

import (
	"context"
	"time"

	"github.com/jmehdipour/loyalty-backoffice/internal/logger"
	"github.com/jmehdipour/loyalty-backoffice/internal/metrics"
	"github.com/jmehdipour/loyalty-backoffice/internal/util"
	"go.uber.org/zap"
)

// Expirer completes approved requests whose pickup window has closed.
type Expirer interface {
	ExpireDue(ctx context.Context, now time.Time, limit int) (int, error)
}

// Sweeper periodically forfeits expired pickups. A failed cycle is logged and
// retried on the next tick; already-completed requests are skipped, so
// overlapping sweepers are harmless.
type Sweeper struct {
	Expirer   Expirer
	Interval  time.Duration
	BatchSize int
	Clock     func() time.Time
}

func NewSweeper(e Expirer, interval time.Duration, batchSize int) *Sweeper {
	return &Sweeper{Expirer: e, Interval: interval, BatchSize: batchSize, Clock: util.Now}
}

// Run sweeps once immediately and then every Interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	if s.Interval <= 0 {
		s.Interval = time.Minute
	}
	logger.Log.Info("sweeper started", zap.Duration("interval", s.Interval), zap.Int("batch_size", s.batch()))

	t := time.NewTicker(s.Interval)
	defer t.Stop()

	for {
		s.tick(ctx)
		select {
		case <-ctx.Done():
			logger.Log.Info("sweeper stopped")
			return nil
		case <-t.C:
		}
	}
}

func (s *Sweeper) tick(ctx context.Context) {
	n, err := s.RunOnce(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		metrics.SweeperRunsTotal.WithLabelValues("error").Inc()
		logger.Log.Error("sweeper cycle failed", zap.Int("expired", n), zap.Error(err))
		return
	}
	metrics.SweeperRunsTotal.WithLabelValues("ok").Inc()
	if n > 0 {
		logger.Log.Info("sweeper expired requests", zap.Int("expired", n))
	}
}

// RunOnce drains everything due at the current time, batch by batch.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	now := s.now()
	batch := s.batch()
	total := 0
	for {
		n, err := s.Expirer.ExpireDue(ctx, now, batch)
		total += n
		if err != nil || n < batch {
			return total, err
		}
	}
}

func (s *Sweeper) batch() int {
	if s.BatchSize <= 0 {
		return 100
	}
	return s.BatchSize
}

func (s *Sweeper) now() time.Time {
	if s.Clock == nil {
		return util.Now()
	}
	return s.Clock()
}
