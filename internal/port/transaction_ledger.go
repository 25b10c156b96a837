package port

import (
	"context"
	"time"

	"github.com/hieund/stock-allocator/internal/core/domain"
)

type TransactionLedger interface {
	// Record appends an immutable entry. Failures always propagate to the
	// caller: an unlogged successful allocation is a correctness violation,
	// an unlogged failed attempt is an audit gap.
	Record(ctx context.Context, entry domain.LedgerEntry) error

	// EntriesSince returns entries with CreatedAt >= since, ascending.
	// Re-querying the same timestamp yields the same result, or a superset
	// if new entries arrived in between.
	EntriesSince(ctx context.Context, since time.Time) ([]domain.LedgerEntry, error)

	// EntriesForBuyer returns a buyer's most recent entries, newest first.
	EntriesForBuyer(ctx context.Context, buyerHandle string, limit int) ([]domain.LedgerEntry, error)

	// SuccessCounts returns SUCCESS-entry counts grouped by product code,
	// the ledger side of the reconciliation sweep.
	SuccessCounts(ctx context.Context) (map[string]int, error)
}
