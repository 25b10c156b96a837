package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSyncOnce_PublishesFreeCounts(t *testing.T) {
	stock := newMemStockStore("P1", 4)
	cache := newMemCache()

	syncer := NewCountSyncer(stock, cache, time.Minute)
	syncer.log = zap.NewNop()

	require.NoError(t, syncer.SyncOnce(context.Background()))

	count, ok, err := cache.GetFreeCount(context.Background(), "P1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 4, count)
}

func TestSyncOnce_RepairsStaleMirror(t *testing.T) {
	stock := newMemStockStore("P1", 2)
	cache := newMemCache()
	require.NoError(t, cache.SetFreeCount(context.Background(), "P1", 7))

	syncer := NewCountSyncer(stock, cache, time.Minute)
	syncer.log = zap.NewNop()

	require.NoError(t, syncer.SyncOnce(context.Background()))

	count, _, err := cache.GetFreeCount(context.Background(), "P1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	syncer := NewCountSyncer(newMemStockStore("P1", 1), newMemCache(), 10*time.Millisecond)
	syncer.log = zap.NewNop()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		syncer.Run(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("syncer did not stop on context cancel")
	}
}
