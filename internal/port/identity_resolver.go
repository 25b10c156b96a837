package port

import (
	"context"
	"errors"

	"github.com/hieund/stock-allocator/internal/core/domain"
)

// ErrUnknownHandle is the normal outcome of resolving a handle that has
// no registered identity.
var ErrUnknownHandle = errors.New("unknown buyer handle")

type IdentityResolver interface {
	// Resolve maps an external handle to its canonical user record.
	// Pure lookup, no mutation.
	Resolve(ctx context.Context, handle string) (domain.User, error)
}
