package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hieund/stock-allocator/internal/core/domain"
)

func TestSweep_NoDrift(t *testing.T) {
	stock := newMemStockStore("P1", 3)
	ledger := &memLedger{}
	alloc := newTestAllocator(stock, newMemIdentity("BUYER1"), ledger, newMemCache(), false)

	_, err := alloc.Allocate(context.Background(), "req-1", "P1", "BUYER1")
	require.NoError(t, err)
	_, err = alloc.Allocate(context.Background(), "req-2", "P1", "BUYER1")
	require.NoError(t, err)

	rec := NewReconciler(stock, ledger)
	rec.log = zap.NewNop()

	drifts, err := rec.Sweep(context.Background())
	require.NoError(t, err)
	assert.Empty(t, drifts)
}

func TestSweep_ReportsEveryDriftedProduct(t *testing.T) {
	stock := newMemStockStore("P1", 2)
	buyerID := int64(1)

	// Two claims, only one logged: a partial-failure window on P1.
	_, err := stock.ClaimOne(context.Background(), "P1", buyerID, time.Now())
	require.NoError(t, err)
	unit, err := stock.ClaimOne(context.Background(), "P1", buyerID, time.Now())
	require.NoError(t, err)

	ledger := &memLedger{}
	require.NoError(t, ledger.Record(context.Background(),
		domain.NewSuccessEntry(time.Now(), "P1", "BUYER1", unit.ID)))

	// A success entry for a product with no sold units: tampered stock.
	require.NoError(t, ledger.Record(context.Background(),
		domain.NewSuccessEntry(time.Now(), "P2", "BUYER1", 99)))

	rec := NewReconciler(stock, ledger)
	rec.log = zap.NewNop()

	drifts, err := rec.Sweep(context.Background())
	require.NoError(t, err)

	require.Len(t, drifts, 2)
	assert.Equal(t, Drift{ProductCode: "P1", SoldUnits: 2, LoggedSuccesses: 1}, drifts[0])
	assert.Equal(t, Drift{ProductCode: "P2", SoldUnits: 0, LoggedSuccesses: 1}, drifts[1])
}
