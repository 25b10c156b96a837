package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hieund/stock-allocator/internal/core/domain"
	"github.com/hieund/stock-allocator/internal/port"
)

var (
	// ErrUnknownBuyer: the handle has no registered identity. Validation
	// failure, not retried automatically.
	ErrUnknownBuyer = errors.New("unknown buyer")

	// ErrOutOfStock: no free unit at the instant of the attempt. Expected
	// exhaustion, recoverable by restocking.
	ErrOutOfStock = errors.New("out of stock")

	// ErrDuplicateRequest: the logical request id was already claimed.
	ErrDuplicateRequest = errors.New("duplicate request")

	// ErrStoreUnavailable / ErrLedgerUnavailable / ErrCacheUnavailable:
	// infrastructure failure before any unit was claimed. The caller may
	// retry the whole call.
	ErrStoreUnavailable  = errors.New("stock store unavailable")
	ErrLedgerUnavailable = errors.New("transaction ledger unavailable")
	ErrCacheUnavailable  = errors.New("cache unavailable")
)

// PartialFailureError reports an allocation that left partial state: a
// stock unit is (or may be) SOLD while the success ledger entry is
// missing, either because the claim could not be read back or because
// the ledger write failed. The claim is never rolled back silently; the
// drift stays visible to the reconciliation sweep until an operator
// intervenes. UnitID is zero when the claimed row id is unknown.
type PartialFailureError struct {
	UnitID      int64
	ProductCode string
	BuyerHandle string
	Err         error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("unit %d (%s) claimed for %s but unrecorded: %v",
		e.UnitID, e.ProductCode, e.BuyerHandle, e.Err)
}

func (e *PartialFailureError) Unwrap() error { return e.Err }

// Allocator orchestrates the atomic "claim one free unit of product P for
// buyer B" operation. Concurrency discipline lives entirely in the stock
// store's claim primitive; the allocator holds no locks across calls.
type Allocator struct {
	stock    port.StockStore
	identity port.IdentityResolver
	ledger   port.TransactionLedger
	cache    port.CacheRepository

	// logValidationFailures decides whether an UnknownBuyer attempt
	// produces a ledger entry. Off by default: a validation failure is
	// not a stock event.
	logValidationFailures bool

	now func() time.Time
	log *zap.Logger
}

func NewAllocator(stock port.StockStore, identity port.IdentityResolver, ledger port.TransactionLedger, cache port.CacheRepository, logValidationFailures bool) *Allocator {
	return &Allocator{
		stock:                 stock,
		identity:              identity,
		ledger:                ledger,
		cache:                 cache,
		logValidationFailures: logValidationFailures,
		now:                   time.Now,
		log:                   zap.L().Named("allocator"),
	}
}

// Allocate resolves the buyer, claims one free unit and records the outcome.
// An empty requestID gets a fresh UUID, making the call a new logical
// request.
func (a *Allocator) Allocate(ctx context.Context, requestID, productCode, buyerHandle string) (domain.Receipt, error) {
	if requestID == "" {
		requestID = uuid.New().String()
	}
	handle := domain.NormalizeHandle(buyerHandle)
	now := a.now()

	ok, err := a.cache.SetIdempotency(ctx, requestID)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("%w: idempotency check: %v", ErrCacheUnavailable, err)
	}
	if !ok {
		return domain.Receipt{}, ErrDuplicateRequest
	}

	user, err := a.identity.Resolve(ctx, handle)
	if errors.Is(err, port.ErrUnknownHandle) {
		a.releaseRequest(ctx, requestID)
		if a.logValidationFailures {
			entry := domain.NewFailureEntry(now, productCode, handle, domain.OutcomeUnknownBuyer, "unregistered handle")
			if lerr := a.ledger.Record(ctx, entry); lerr != nil {
				return domain.Receipt{}, fmt.Errorf("%w: %v", ErrLedgerUnavailable, lerr)
			}
		}
		return domain.Receipt{}, ErrUnknownBuyer
	}
	if err != nil {
		a.releaseRequest(ctx, requestID)
		return domain.Receipt{}, fmt.Errorf("%w: resolve buyer: %v", ErrStoreUnavailable, err)
	}

	unit, err := a.stock.ClaimOne(ctx, productCode, user.ID, now)
	if errors.Is(err, port.ErrNoFreeUnit) {
		a.releaseRequest(ctx, requestID)
		entry := domain.NewFailureEntry(now, productCode, handle, domain.OutcomeOutOfStock, "product exhausted")
		if lerr := a.ledger.Record(ctx, entry); lerr != nil {
			return domain.Receipt{}, fmt.Errorf("%w: %v", ErrLedgerUnavailable, lerr)
		}
		return domain.Receipt{}, ErrOutOfStock
	}
	var unconfirmed *port.UnconfirmedClaimError
	if errors.As(err, &unconfirmed) {
		// The unit, if claimed, is SOLD and unrecorded. The idempotency
		// key is kept: a blind retry must not claim a second unit.
		pf := &PartialFailureError{
			UnitID:      unconfirmed.UnitID,
			ProductCode: productCode,
			BuyerHandle: handle,
			Err:         err,
		}
		a.log.Error("claim committed but unconfirmed, reconciliation required",
			zap.Int64("unit_id", unconfirmed.UnitID),
			zap.String("product_code", productCode),
			zap.String("buyer_handle", handle),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		return domain.Receipt{}, pf
	}
	if err != nil {
		a.releaseRequest(ctx, requestID)
		return domain.Receipt{}, fmt.Errorf("%w: claim: %v", ErrStoreUnavailable, err)
	}

	if err := a.ledger.Record(ctx, domain.NewSuccessEntry(now, unit.ProductCode, handle, unit.ID)); err != nil {
		// The unit is SOLD and stays SOLD. The idempotency key is kept
		// too: a blind retry of this request must not claim a second unit.
		pf := &PartialFailureError{
			UnitID:      unit.ID,
			ProductCode: unit.ProductCode,
			BuyerHandle: handle,
			Err:         err,
		}
		a.log.Error("allocation claimed but unlogged, reconciliation required",
			zap.Int64("unit_id", unit.ID),
			zap.String("product_code", unit.ProductCode),
			zap.String("buyer_handle", handle),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		return domain.Receipt{}, pf
	}

	if err := a.cache.DecrementFreeCount(ctx, unit.ProductCode); err != nil {
		// Mirror only; the syncer repairs it on the next tick.
		a.log.Warn("free-count mirror decrement failed",
			zap.String("product_code", unit.ProductCode), zap.Error(err))
	}

	a.log.Info("stock unit allocated",
		zap.Int64("unit_id", unit.ID),
		zap.String("product_code", unit.ProductCode),
		zap.String("buyer_handle", handle),
		zap.String("request_id", requestID),
	)

	return domain.Receipt{
		RequestID:   requestID,
		UnitID:      unit.ID,
		ProductCode: unit.ProductCode,
		Content:     unit.Content,
		BuyerID:     user.ID,
		BuyerHandle: handle,
		AllocatedAt: now,
	}, nil
}

// releaseRequest frees the idempotency key after a definitive failure so
// the caller can retry explicitly. Best effort: a leaked key only blocks
// retries of an already-failed request until the key expires.
func (a *Allocator) releaseRequest(ctx context.Context, requestID string) {
	if err := a.cache.ReleaseIdempotency(ctx, requestID); err != nil {
		a.log.Warn("failed to release request id", zap.String("request_id", requestID), zap.Error(err))
	}
}
