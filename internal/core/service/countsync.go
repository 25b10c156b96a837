package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hieund/stock-allocator/internal/port"
)

// CountSyncer periodically re-publishes authoritative free counts from the
// stock store into the cache mirror that backs the live stock view. A tick
// also repairs any lag left by failed per-claim decrements.
type CountSyncer struct {
	stock    port.StockStore
	cache    port.CacheRepository
	interval time.Duration
	log      *zap.Logger
}

func NewCountSyncer(stock port.StockStore, cache port.CacheRepository, interval time.Duration) *CountSyncer {
	return &CountSyncer{
		stock:    stock,
		cache:    cache,
		interval: interval,
		log:      zap.L().Named("countsync"),
	}
}

// Run blocks until ctx is cancelled. One sync happens immediately, then
// one per interval.
func (s *CountSyncer) Run(ctx context.Context) {
	if err := s.SyncOnce(ctx); err != nil {
		s.log.Warn("initial free-count sync failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("count syncer stopped")
			return
		case <-ticker.C:
			if err := s.SyncOnce(ctx); err != nil {
				s.log.Warn("free-count sync failed", zap.Error(err))
			}
		}
	}
}

func (s *CountSyncer) SyncOnce(ctx context.Context) error {
	counts, err := s.stock.FreeCounts(ctx)
	if err != nil {
		return fmt.Errorf("free counts: %w", err)
	}

	for code, count := range counts {
		if err := s.cache.SetFreeCount(ctx, code, count); err != nil {
			return fmt.Errorf("set free count %q: %w", code, err)
		}
	}
	return nil
}
