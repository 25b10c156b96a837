package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hieund/stock-allocator/internal/core/domain"
	"github.com/hieund/stock-allocator/internal/port"
)

type MySQLIdentityResolver struct {
	db *sql.DB
}

func NewMySQLIdentityResolver(db *sql.DB) *MySQLIdentityResolver {
	return &MySQLIdentityResolver{db: db}
}

func (r *MySQLIdentityResolver) Resolve(ctx context.Context, handle string) (domain.User, error) {
	var user domain.User
	err := r.db.QueryRowContext(ctx, `
		SELECT id, growid, created_at FROM users WHERE growid = ?`,
		domain.NormalizeHandle(handle),
	).Scan(&user.ID, &user.GrowID, &user.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, port.ErrUnknownHandle
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("resolve handle: %w", err)
	}
	return user, nil
}
