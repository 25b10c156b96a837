package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hieund/stock-allocator/internal/core/domain"
)

// MySQLLedger appends to transaction_log. There is deliberately no UPDATE
// or DELETE here: the log is the audit trail and retroactive edits are
// structurally impossible through this type.
type MySQLLedger struct {
	db *sql.DB
}

func NewMySQLLedger(db *sql.DB) *MySQLLedger {
	return &MySQLLedger{db: db}
}

func (l *MySQLLedger) Record(ctx context.Context, entry domain.LedgerEntry) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO transaction_log (created_at, product_code, buyer_handle, outcome, unit_id, details)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.CreatedAt, entry.ProductCode, entry.BuyerHandle,
		entry.Outcome, entry.UnitID, entry.Details,
	)
	if err != nil {
		return fmt.Errorf("record ledger entry: %w", err)
	}
	return nil
}

func (l *MySQLLedger) EntriesSince(ctx context.Context, since time.Time) ([]domain.LedgerEntry, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, created_at, product_code, buyer_handle, outcome, unit_id, details
		FROM transaction_log
		WHERE created_at >= ?
		ORDER BY created_at ASC, id ASC`, since)
	if err != nil {
		return nil, fmt.Errorf("ledger entries since: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func (l *MySQLLedger) EntriesForBuyer(ctx context.Context, buyerHandle string, limit int) ([]domain.LedgerEntry, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, created_at, product_code, buyer_handle, outcome, unit_id, details
		FROM transaction_log
		WHERE buyer_handle = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, domain.NormalizeHandle(buyerHandle), limit)
	if err != nil {
		return nil, fmt.Errorf("ledger entries for buyer: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func (l *MySQLLedger) SuccessCounts(ctx context.Context) (map[string]int, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT product_code, COUNT(*)
		FROM transaction_log
		WHERE outcome = ?
		GROUP BY product_code`, domain.OutcomeSuccess)
	if err != nil {
		return nil, fmt.Errorf("ledger success counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var code string
		var n int
		if err := rows.Scan(&code, &n); err != nil {
			return nil, fmt.Errorf("scan success count: %w", err)
		}
		counts[code] = n
	}
	return counts, rows.Err()
}

func scanEntries(rows *sql.Rows) ([]domain.LedgerEntry, error) {
	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		if err := rows.Scan(&e.ID, &e.CreatedAt, &e.ProductCode, &e.BuyerHandle,
			&e.Outcome, &e.UnitID, &e.Details); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
