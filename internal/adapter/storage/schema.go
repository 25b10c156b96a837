package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// InitSchema creates the tables if they are missing. The registration and
// catalog collaborators write users/user_growid/products/product_stock;
// the engine only ever flips product_stock rows AVAILABLE -> SOLD and
// appends to transaction_log.
func InitSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			growid VARCHAR(64) NOT NULL,
			created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
			UNIQUE KEY uq_users_growid (growid)
		)`,
		`CREATE TABLE IF NOT EXISTS user_growid (
			discord_id VARCHAR(32) PRIMARY KEY,
			growid VARCHAR(64),
			created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
			UNIQUE KEY uq_user_growid_growid (growid),
			CONSTRAINT fk_user_growid_users FOREIGN KEY (growid) REFERENCES users (growid)
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			code VARCHAR(32) PRIMARY KEY,
			name VARCHAR(128) NOT NULL,
			price BIGINT NOT NULL,
			description TEXT,
			created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
			updated_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3) ON UPDATE CURRENT_TIMESTAMP(3)
		)`,
		`CREATE TABLE IF NOT EXISTS product_stock (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			product_code VARCHAR(32) NOT NULL,
			content TEXT NOT NULL,
			status VARCHAR(16) NOT NULL DEFAULT 'AVAILABLE',
			added_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
			used_at DATETIME(3) NULL,
			buyer_id BIGINT NULL,
			KEY idx_stock_claim (product_code, status),
			KEY idx_stock_buyer (buyer_id),
			CONSTRAINT fk_stock_products FOREIGN KEY (product_code) REFERENCES products (code),
			CONSTRAINT fk_stock_buyer FOREIGN KEY (buyer_id) REFERENCES users (id)
		)`,
		`CREATE TABLE IF NOT EXISTS transaction_log (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			created_at DATETIME(3) NOT NULL,
			product_code VARCHAR(32) NOT NULL,
			buyer_handle VARCHAR(64) NOT NULL,
			outcome VARCHAR(24) NOT NULL,
			unit_id BIGINT NULL,
			details VARCHAR(255) NOT NULL DEFAULT '',
			KEY idx_log_created (created_at),
			KEY idx_log_outcome (product_code, outcome),
			KEY idx_log_buyer (buyer_handle)
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	return nil
}
