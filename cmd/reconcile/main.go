package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"

	"github.com/hieund/stock-allocator/internal/adapter/storage"
	"github.com/hieund/stock-allocator/internal/config"
	"github.com/hieund/stock-allocator/internal/core/service"
	"github.com/hieund/stock-allocator/internal/logger"
)

// One-shot drift check between sold units and the transaction log.
// Exits 1 when any product has drifted, so it can gate a cron alert.
func main() {
	configPath := flag.String("config", "./cmd/server/config.yml", "path to config file")
	flag.Parse()

	conf, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := logger.Init(conf.API.Environment); err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer zap.L().Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := sql.Open("mysql", conf.MySQL.DSN)
	if err != nil {
		zap.L().Fatal("failed to open mysql", zap.Error(err))
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		zap.L().Fatal("failed to ping mysql", zap.Error(err))
	}

	reconciler := service.NewReconciler(storage.NewMySQLStockStore(db), storage.NewMySQLLedger(db))

	drifts, err := reconciler.Sweep(ctx)
	if err != nil {
		zap.L().Fatal("sweep failed", zap.Error(err))
	}

	if len(drifts) == 0 {
		zap.L().Info("reconciliation clean")
		return
	}

	out, _ := json.MarshalIndent(drifts, "", "  ")
	os.Stdout.Write(append(out, '\n'))
	zap.L().Error("drift detected", zap.Int("products", len(drifts)))
	os.Exit(1)
}
