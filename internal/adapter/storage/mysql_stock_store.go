package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hieund/stock-allocator/internal/core/domain"
	"github.com/hieund/stock-allocator/internal/port"
)

type MySQLStockStore struct {
	db *sql.DB
}

func NewMySQLStockStore(db *sql.DB) *MySQLStockStore {
	return &MySQLStockStore{db: db}
}

func (s *MySQLStockStore) CountFree(ctx context.Context, productCode string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM product_stock
		WHERE product_code = ? AND status = ?`,
		productCode, domain.StockStatusAvailable,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count free stock: %w", err)
	}
	return count, nil
}

// ClaimOne performs the free->used transition as one conditional UPDATE.
// LAST_INSERT_ID(id) makes the claimed row id readable from the statement's
// own result, so there is no racing read anywhere: either the UPDATE wins a
// row and we know which one, or RowsAffected is zero and the product is
// exhausted. ORDER BY id sells the oldest unit first.
func (s *MySQLStockStore) ClaimOne(ctx context.Context, productCode string, buyerID int64, now time.Time) (domain.StockUnit, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE product_stock
		SET id = LAST_INSERT_ID(id), status = ?, buyer_id = ?, used_at = ?
		WHERE product_code = ? AND status = ?
		ORDER BY id
		LIMIT 1`,
		domain.StockStatusSold, buyerID, now,
		productCode, domain.StockStatusAvailable,
	)
	if err != nil {
		return domain.StockUnit{}, fmt.Errorf("claim stock unit: %w", err)
	}

	// The UPDATE has committed. Anything failing from here on leaves a
	// claimed row behind, so it must surface as unconfirmed, never as a
	// retryable store failure.
	rows, err := result.RowsAffected()
	if err != nil {
		return domain.StockUnit{}, &port.UnconfirmedClaimError{Err: fmt.Errorf("claim result: %w", err)}
	}
	if rows == 0 {
		return domain.StockUnit{}, port.ErrNoFreeUnit
	}

	unitID, err := result.LastInsertId()
	if err != nil {
		return domain.StockUnit{}, &port.UnconfirmedClaimError{Err: fmt.Errorf("claimed unit id: %w", err)}
	}

	unit, err := s.LookupUnit(ctx, unitID)
	if err != nil {
		return domain.StockUnit{}, &port.UnconfirmedClaimError{UnitID: unitID, Err: fmt.Errorf("claim readback: %w", err)}
	}
	return unit, nil
}

func (s *MySQLStockStore) LookupUnit(ctx context.Context, unitID int64) (domain.StockUnit, error) {
	var unit domain.StockUnit
	err := s.db.QueryRowContext(ctx, `
		SELECT id, product_code, content, status, added_at, used_at, buyer_id
		FROM product_stock WHERE id = ?`, unitID,
	).Scan(&unit.ID, &unit.ProductCode, &unit.Content, &unit.Status,
		&unit.AddedAt, &unit.UsedAt, &unit.BuyerID)

	if errors.Is(err, sql.ErrNoRows) {
		return domain.StockUnit{}, port.ErrUnitNotFound
	}
	if err != nil {
		return domain.StockUnit{}, fmt.Errorf("lookup stock unit: %w", err)
	}
	return unit, nil
}

// FreeCounts covers every catalog product, including ones with zero free
// units, so the mirror can be repaired all the way down to zero.
func (s *MySQLStockStore) FreeCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.code, COUNT(s.id)
		FROM products p
		LEFT JOIN product_stock s ON s.product_code = p.code AND s.status = ?
		GROUP BY p.code`, domain.StockStatusAvailable)
	if err != nil {
		return nil, fmt.Errorf("free counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var code string
		var n int
		if err := rows.Scan(&code, &n); err != nil {
			return nil, fmt.Errorf("scan free count: %w", err)
		}
		counts[code] = n
	}
	return counts, rows.Err()
}

func (s *MySQLStockStore) SoldCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_code, COUNT(*)
		FROM product_stock
		WHERE status = ?
		GROUP BY product_code`, domain.StockStatusSold)
	if err != nil {
		return nil, fmt.Errorf("stock counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var code string
		var n int
		if err := rows.Scan(&code, &n); err != nil {
			return nil, fmt.Errorf("scan stock count: %w", err)
		}
		counts[code] = n
	}
	return counts, rows.Err()
}

func (s *MySQLStockStore) RecentSold(ctx context.Context, productCode string, limit int) ([]domain.StockUnit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_code, content, status, added_at, used_at, buyer_id
		FROM product_stock
		WHERE product_code = ? AND status = ?
		ORDER BY used_at DESC, id DESC
		LIMIT ?`, productCode, domain.StockStatusSold, limit)
	if err != nil {
		return nil, fmt.Errorf("recent sold: %w", err)
	}
	defer rows.Close()

	var units []domain.StockUnit
	for rows.Next() {
		var unit domain.StockUnit
		if err := rows.Scan(&unit.ID, &unit.ProductCode, &unit.Content, &unit.Status,
			&unit.AddedAt, &unit.UsedAt, &unit.BuyerID); err != nil {
			return nil, fmt.Errorf("scan sold unit: %w", err)
		}
		units = append(units, unit)
	}
	return units, rows.Err()
}

func (s *MySQLStockStore) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.code, p.name, p.price, COALESCE(p.description, ''),
			(SELECT COUNT(*) FROM product_stock s
			 WHERE s.product_code = p.code AND s.status = ?) AS free_units
		FROM products p
		ORDER BY p.name ASC`, domain.StockStatusAvailable)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.Code, &p.Name, &p.Price, &p.Description, &p.FreeUnits); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
