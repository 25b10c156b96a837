package domain

import "time"

type Outcome string

const (
	OutcomeSuccess      Outcome = "SUCCESS"
	OutcomeOutOfStock   Outcome = "OUT_OF_STOCK"
	OutcomeUnknownBuyer Outcome = "UNKNOWN_BUYER"
)

// LedgerEntry is the immutable audit record of one allocation attempt.
// Entries are append-only: nothing in this codebase updates or deletes
// a row of the transaction log.
type LedgerEntry struct {
	ID          int64
	CreatedAt   time.Time
	ProductCode string
	BuyerHandle string
	Outcome     Outcome
	UnitID      *int64
	Details     string
}

func NewSuccessEntry(now time.Time, productCode, buyerHandle string, unitID int64) LedgerEntry {
	return LedgerEntry{
		CreatedAt:   now,
		ProductCode: productCode,
		BuyerHandle: buyerHandle,
		Outcome:     OutcomeSuccess,
		UnitID:      &unitID,
	}
}

func NewFailureEntry(now time.Time, productCode, buyerHandle string, outcome Outcome, details string) LedgerEntry {
	return LedgerEntry{
		CreatedAt:   now,
		ProductCode: productCode,
		BuyerHandle: buyerHandle,
		Outcome:     outcome,
		Details:     details,
	}
}
