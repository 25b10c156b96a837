package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/hieund/stock-allocator/internal/core/domain"
	"github.com/hieund/stock-allocator/internal/port"
)

func TestIdentityResolver_KnownHandle(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	resolver := NewMySQLIdentityResolver(db)

	code := testProductCode(t)
	handle := code + "-BUYER"
	id := seedUser(t, db, handle)

	// Lookup is case and whitespace insensitive.
	user, err := resolver.Resolve(ctx, "  "+code+"-buyer ")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if user.ID != id {
		t.Errorf("expected user id %d, got %d", id, user.ID)
	}
	if user.GrowID != domain.NormalizeHandle(handle) {
		t.Errorf("expected normalized growid, got %s", user.GrowID)
	}
}

func TestIdentityResolver_UnknownHandle(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	resolver := NewMySQLIdentityResolver(db)

	_, err := resolver.Resolve(context.Background(), "NOBODY-"+testProductCode(t))
	if !errors.Is(err, port.ErrUnknownHandle) {
		t.Errorf("expected ErrUnknownHandle, got: %v", err)
	}
}
