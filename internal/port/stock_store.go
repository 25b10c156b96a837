package port

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hieund/stock-allocator/internal/core/domain"
)

var (
	// ErrNoFreeUnit is the expected outcome of ClaimOne when the product
	// has no AVAILABLE unit at the instant of the attempt.
	ErrNoFreeUnit = errors.New("no free stock unit")

	ErrUnitNotFound = errors.New("stock unit not found")
)

// UnconfirmedClaimError reports a claim whose write committed (or may
// have committed) but whose result could not be read back. Partial state
// exists: the unit, if claimed, is SOLD. Callers must not treat this as
// a retryable store failure.
type UnconfirmedClaimError struct {
	UnitID int64 // zero when the claimed row id is unknown
	Err    error
}

func (e *UnconfirmedClaimError) Error() string {
	return fmt.Sprintf("claim unconfirmed (unit %d): %v", e.UnitID, e.Err)
}

func (e *UnconfirmedClaimError) Unwrap() error { return e.Err }

type StockStore interface {
	// CountFree returns the number of AVAILABLE units for the product.
	CountFree(ctx context.Context, productCode string) (int, error)

	// ClaimOne atomically marks exactly one AVAILABLE unit of the product
	// as SOLD, binding buyerID and now to it, and returns the claimed unit.
	// No two concurrent callers ever receive the same unit. Returns
	// ErrNoFreeUnit when the product is exhausted, and an
	// UnconfirmedClaimError when the claim committed but could not be
	// read back.
	ClaimOne(ctx context.Context, productCode string, buyerID int64, now time.Time) (domain.StockUnit, error)

	// LookupUnit is a read-only fetch by unit id.
	LookupUnit(ctx context.Context, unitID int64) (domain.StockUnit, error)

	// FreeCounts returns AVAILABLE counts grouped by product code.
	FreeCounts(ctx context.Context) (map[string]int, error)

	// SoldCounts returns SOLD counts grouped by product code, the stock
	// side of the reconciliation sweep.
	SoldCounts(ctx context.Context) (map[string]int, error)

	// RecentSold returns the most recently sold units of a product,
	// newest first.
	RecentSold(ctx context.Context, productCode string, limit int) ([]domain.StockUnit, error)

	// ListProducts returns the catalog with live free counts.
	ListProducts(ctx context.Context) ([]domain.Product, error)
}
