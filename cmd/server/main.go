package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hieund/stock-allocator/internal/adapter/handler"
	"github.com/hieund/stock-allocator/internal/adapter/storage"
	"github.com/hieund/stock-allocator/internal/config"
	"github.com/hieund/stock-allocator/internal/core/service"
	"github.com/hieund/stock-allocator/internal/logger"
)

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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := sql.Open("mysql", conf.MySQL.DSN)
	if err != nil {
		zap.L().Fatal("failed to open mysql", zap.Error(err))
	}
	db.SetMaxOpenConns(conf.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(conf.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(conf.MySQL.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		zap.L().Fatal("failed to ping mysql", zap.Error(err))
	}
	zap.L().Info("connected to mysql")

	if err := storage.InitSchema(ctx, db); err != nil {
		zap.L().Fatal("failed to init schema", zap.Error(err))
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		PoolSize: conf.Redis.PoolSize,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		zap.L().Fatal("failed to connect redis", zap.Error(err))
	}
	zap.L().Info("connected to redis")

	stockStore := storage.NewMySQLStockStore(db)
	identity := storage.NewMySQLIdentityResolver(db)
	ledger := storage.NewMySQLLedger(db)
	cache := storage.NewRedisAdapter(rdb)

	allocator := service.NewAllocator(stockStore, identity, ledger, cache, conf.Engine.LogValidationFailures)
	reconciler := service.NewReconciler(stockStore, ledger)
	syncer := service.NewCountSyncer(stockStore, cache, conf.Engine.CountSyncInterval)

	// Seed the mirror before serving, then keep it fresh in the background.
	go syncer.Run(ctx)

	if conf.API.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	httpHandler := handler.NewHTTPHandler(allocator, reconciler, stockStore, ledger, cache, conf.Engine.HistoryLimit)
	httpHandler.RegisterRoutes(router)

	httpServer := &http.Server{
		Addr:    ":" + conf.API.Port,
		Handler: router,
	}

	go func() {
		zap.L().Info("http server listening", zap.String("port", conf.API.Port))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			zap.L().Error("http server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zap.L().Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("http shutdown error", zap.Error(err))
	}

	cancel()
	rdb.Close()
	db.Close()
	zap.L().Info("stopped")
}
