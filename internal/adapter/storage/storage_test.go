package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/hieund/stock-allocator/internal/core/domain"
)

func getMySQLDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/allocator?parseTime=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	if err := InitSchema(context.Background(), db); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	return db
}

func getRedisClient(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

// testProductCode returns a unique code per test run so parallel runs
// never collide on shared tables.
func testProductCode(t *testing.T) string {
	t.Helper()
	return "T" + strings.ToUpper(uuid.New().String()[:8])
}

func seedProduct(t *testing.T, db *sql.DB, code string) {
	t.Helper()

	ctx := context.Background()
	_, err := db.ExecContext(ctx, `
		INSERT INTO products (code, name, price, description)
		VALUES (?, ?, 10, 'test product')`, code, "Test "+code)
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}

	t.Cleanup(func() {
		db.ExecContext(ctx, `DELETE FROM transaction_log WHERE product_code = ?`, code)
		db.ExecContext(ctx, `DELETE FROM product_stock WHERE product_code = ?`, code)
		db.ExecContext(ctx, `DELETE FROM products WHERE code = ?`, code)
	})
}

func seedUser(t *testing.T, db *sql.DB, growid string) int64 {
	t.Helper()

	ctx := context.Background()
	result, err := db.ExecContext(ctx,
		`INSERT INTO users (growid) VALUES (?)`, domain.NormalizeHandle(growid))
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	id, _ := result.LastInsertId()

	t.Cleanup(func() {
		db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	})
	return id
}

func seedStock(t *testing.T, db *sql.DB, code string, units int) {
	t.Helper()

	ctx := context.Background()
	for i := 0; i < units; i++ {
		_, err := db.ExecContext(ctx, `
			INSERT INTO product_stock (product_code, content, status)
			VALUES (?, ?, ?)`,
			code, fmt.Sprintf("%s-content-%d", code, i), domain.StockStatusAvailable)
		if err != nil {
			t.Fatalf("seed stock: %v", err)
		}
		// Distinct added_at ordering is carried by auto-increment ids.
	}
}

// now returns a MySQL-roundtrippable timestamp (DATETIME(3), UTC).
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
