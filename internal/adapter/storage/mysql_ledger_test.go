package storage

import (
	"context"
	"testing"
	"time"

	"github.com/hieund/stock-allocator/internal/core/domain"
)

func TestLedger_RecordAndEntriesSince(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	ledger := NewMySQLLedger(db)

	code := testProductCode(t)
	seedProduct(t, db, code)

	base := now()
	entries := []domain.LedgerEntry{
		domain.NewSuccessEntry(base, code, "BUYER1", 101),
		domain.NewFailureEntry(base.Add(time.Second), code, "BUYER2", domain.OutcomeOutOfStock, "product exhausted"),
	}
	for _, e := range entries {
		if err := ledger.Record(ctx, e); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	got, err := ledger.EntriesSince(ctx, base)
	if err != nil {
		t.Fatalf("EntriesSince failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].Outcome != domain.OutcomeSuccess || got[1].Outcome != domain.OutcomeOutOfStock {
		t.Error("entries not in ascending timestamp order")
	}
	if got[0].UnitID == nil || *got[0].UnitID != 101 {
		t.Error("success entry lost its unit reference")
	}
}

func TestLedger_EntriesSince_Restartable(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	ledger := NewMySQLLedger(db)

	code := testProductCode(t)
	seedProduct(t, db, code)

	base := now()
	if err := ledger.Record(ctx, domain.NewSuccessEntry(base, code, "BUYER1", 7)); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	first, err := ledger.EntriesSince(ctx, base)
	if err != nil {
		t.Fatalf("first query failed: %v", err)
	}
	second, err := ledger.EntriesSince(ctx, base)
	if err != nil {
		t.Fatalf("second query failed: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("restartability violated: %d then %d entries", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID || first[i].Outcome != second[i].Outcome {
			t.Errorf("entry %d differs between identical queries", i)
		}
	}
}

func TestLedger_EntriesForBuyer(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	ledger := NewMySQLLedger(db)

	code := testProductCode(t)
	seedProduct(t, db, code)

	handle := code + "-BUYER"
	base := now()
	for i := 0; i < 3; i++ {
		entry := domain.NewSuccessEntry(base.Add(time.Duration(i)*time.Second), code, handle, int64(i+1))
		if err := ledger.Record(ctx, entry); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	got, err := ledger.EntriesForBuyer(ctx, handle, 2)
	if err != nil {
		t.Fatalf("EntriesForBuyer failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].UnitID == nil || *got[0].UnitID != 3 {
		t.Error("expected newest entry first")
	}
}

func TestLedger_SuccessCountsMatchSoldUnits(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	store := NewMySQLStockStore(db)
	ledger := NewMySQLLedger(db)

	code := testProductCode(t)
	seedProduct(t, db, code)
	seedStock(t, db, code, 2)
	buyerID := seedUser(t, db, code+"-BUYER")

	for i := 0; i < 2; i++ {
		unit, err := store.ClaimOne(ctx, code, buyerID, now())
		if err != nil {
			t.Fatalf("ClaimOne failed: %v", err)
		}
		if err := ledger.Record(ctx, domain.NewSuccessEntry(now(), code, code+"-BUYER", unit.ID)); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	sold, err := store.SoldCounts(ctx)
	if err != nil {
		t.Fatalf("SoldCounts failed: %v", err)
	}
	logged, err := ledger.SuccessCounts(ctx)
	if err != nil {
		t.Fatalf("SuccessCounts failed: %v", err)
	}

	if sold[code] != 2 || logged[code] != 2 {
		t.Errorf("expected 2/2 for %s, got sold=%d logged=%d", code, sold[code], logged[code])
	}
}
