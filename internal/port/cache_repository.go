package port

import "context"

// CacheRepository is the Redis-backed fast path. It is advisory: the
// free-count mirror serves the live stock view and the idempotency guard
// rejects duplicate logical requests, but MySQL stays authoritative for
// every claim.
type CacheRepository interface {
	// SetFreeCount overwrites the mirrored free count for a product.
	SetFreeCount(ctx context.Context, productCode string, count int) error

	// DecrementFreeCount decreases the mirror by one, clamped at zero.
	DecrementFreeCount(ctx context.Context, productCode string) error

	// GetFreeCount reads the mirrored count. Returns ok=false when the
	// product has never been synced.
	GetFreeCount(ctx context.Context, productCode string) (count int, ok bool, err error)

	// SetIdempotency claims a request id, returns false if already claimed.
	SetIdempotency(ctx context.Context, requestID string) (bool, error)

	// ReleaseIdempotency frees a request id after a definitive failure so
	// an explicit caller retry can proceed.
	ReleaseIdempotency(ctx context.Context, requestID string) error
}
