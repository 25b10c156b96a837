package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hieund/stock-allocator/internal/adapter/storage"
	"github.com/hieund/stock-allocator/internal/core/domain"
	"github.com/hieund/stock-allocator/internal/core/service"
)

const (
	mysqlDSN      = "root:root@tcp(localhost:3306)/allocator?parseTime=true"
	redisAddr     = "localhost:6379"
	productCode   = "STRESS"
	buyerHandle   = "STRESSBUYER"
	initialStock  = 20
	totalRequests = 50
)

// Allocation storm against a real MySQL and Redis: 50 concurrent
// requests for 20 units must yield exactly 20 receipts, 30 sold-out
// rejections and a clean reconciliation sweep.
func main() {
	zap.ReplaceGlobals(zap.NewNop())
	ctx := context.Background()

	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		log.Fatalf("failed to open mysql: %v", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping mysql: %v", err)
	}
	if err := storage.InitSchema(ctx, db); err != nil {
		log.Fatalf("failed to init schema: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer rdb.Close()

	cleanup(ctx, db, rdb)
	defer cleanup(ctx, db, rdb)
	seed(ctx, db)

	stockStore := storage.NewMySQLStockStore(db)
	identity := storage.NewMySQLIdentityResolver(db)
	ledger := storage.NewMySQLLedger(db)
	cache := storage.NewRedisAdapter(rdb)

	if err := cache.SetFreeCount(ctx, productCode, initialStock); err != nil {
		log.Fatalf("failed to seed free count: %v", err)
	}

	allocator := service.NewAllocator(stockStore, identity, ledger, cache, false)

	var successCount, soldOutCount, otherCount atomic.Int32
	var claimedUnits sync.Map

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			receipt, err := allocator.Allocate(ctx, uuid.New().String(), productCode, buyerHandle)
			switch {
			case err == nil:
				successCount.Add(1)
				if _, dup := claimedUnits.LoadOrStore(receipt.UnitID, true); dup {
					log.Fatalf("unit %d allocated twice", receipt.UnitID)
				}
			case errors.Is(err, service.ErrOutOfStock):
				soldOutCount.Add(1)
			default:
				otherCount.Add(1)
				log.Printf("unexpected error: %v", err)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	soldOut := soldOutCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Allocated:        %d\n", success)
	fmt.Printf("Sold Out:         %d\n", soldOut)
	fmt.Printf("Other Errors:     %d\n", otherCount.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if success == initialStock && soldOut == totalRequests-initialStock {
		fmt.Printf("PASS: exactly %d allocations succeeded, %d rejected\n", initialStock, totalRequests-initialStock)
	} else {
		fmt.Printf("FAIL: expected %d/%d, got %d/%d\n",
			initialStock, totalRequests-initialStock, success, soldOut)
	}

	drifts, err := service.NewReconciler(stockStore, ledger).Sweep(ctx)
	if err != nil {
		log.Fatalf("sweep failed: %v", err)
	}
	if len(drifts) == 0 {
		fmt.Println("PASS: reconciliation clean")
	} else {
		fmt.Printf("FAIL: %d products drifted\n", len(drifts))
	}

	mirror, _ := rdb.Get(ctx, "stock:"+productCode).Int()
	if mirror == 0 {
		fmt.Println("PASS: free-count mirror depleted to 0")
	} else {
		fmt.Printf("FAIL: expected mirror 0, got %d\n", mirror)
	}
}

func seed(ctx context.Context, db *sql.DB) {
	_, err := db.ExecContext(ctx, `
		INSERT INTO products (code, name, price, description)
		VALUES (?, 'Stress Product', 1, 'stress run')`, productCode)
	if err != nil {
		log.Fatalf("failed to seed product: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO users (growid) VALUES (?)`, buyerHandle); err != nil {
		log.Fatalf("failed to seed user: %v", err)
	}
	for i := 0; i < initialStock; i++ {
		_, err := db.ExecContext(ctx, `
			INSERT INTO product_stock (product_code, content, status)
			VALUES (?, ?, ?)`,
			productCode, fmt.Sprintf("unit-%d", i), domain.StockStatusAvailable)
		if err != nil {
			log.Fatalf("failed to seed stock: %v", err)
		}
	}
}

func cleanup(ctx context.Context, db *sql.DB, rdb *redis.Client) {
	db.ExecContext(ctx, `DELETE FROM transaction_log WHERE product_code = ?`, productCode)
	db.ExecContext(ctx, `DELETE FROM product_stock WHERE product_code = ?`, productCode)
	db.ExecContext(ctx, `DELETE FROM products WHERE code = ?`, productCode)
	db.ExecContext(ctx, `DELETE FROM users WHERE growid = ?`, buyerHandle)
	rdb.Del(ctx, "stock:"+productCode)
}
